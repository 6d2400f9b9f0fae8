package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/csrf"
	"github.com/MrEthical07/goGuard/middleware"
	"github.com/go-chi/chi/v5"
)

var errBadRequest = errors.New("invalid request body")

type handlers struct {
	engine      *goGuard.Engine
	log         *slog.Logger
	exposeReset bool
}

// credentialsRequest has no role field; self-registered accounts always get
// Config.Account.DefaultRole and a body carrying "role" is rejected.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type blockRequest struct {
	IP     string `json:"ip"`
	Reason string `json:"reason"`
}

type roleRequest struct {
	Role string `json:"role"`
}

type tokensResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type authResponse struct {
	UserID string          `json:"user_id"`
	Email  string          `json:"email"`
	Role   string          `json:"role"`
	Tokens *tokensResponse `json:"tokens,omitempty"`
}

func toAuthResponse(res *goGuard.AuthResult) authResponse {
	out := authResponse{UserID: res.UserID, Email: res.Email, Role: res.Role}
	if res.Tokens != nil {
		out.Tokens = &tokensResponse{
			AccessToken:      res.Tokens.AccessToken,
			RefreshToken:     res.Tokens.RefreshToken,
			AccessExpiresAt:  res.Tokens.AccessExpiresAt,
			RefreshExpiresAt: res.Tokens.RefreshExpiresAt,
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// writeError maps err to a status and a generic message. Internal details
// are logged, never returned.
func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	msg := errBadRequest.Error()
	if !errors.Is(err, errBadRequest) {
		status = middleware.StatusFor(err)
		msg = middleware.MessageFor(err)
	}
	if status >= http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("err", err.Error()),
		)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(value); err != nil {
		return errBadRequest
	}
	return nil
}

func (h *handlers) csrfToken(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"csrf_token": w.Header().Get(csrf.HeaderName)})
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var in credentialsRequest
	if err := decodeStrict(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.engine.Register(r.Context(), goGuard.RegisterRequest{
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAuthResponse(res))
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var in credentialsRequest
	if err := decodeStrict(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.engine.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuthResponse(res))
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeStrict(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	access, err := h.engine.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": access})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeStrict(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.engine.Logout(r.Context(), in.RefreshToken); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requestPasswordReset answers 202 whether or not the email exists.
func (h *handlers) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var in resetRequest
	if err := decodeStrict(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	token, err := h.engine.RequestPasswordReset(r.Context(), in.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	body := map[string]string{"status": "accepted"}
	if h.exposeReset && token != "" {
		body["token"] = token
	}
	writeJSON(w, http.StatusAccepted, body)
}

func (h *handlers) confirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var in resetConfirmRequest
	if err := decodeStrict(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.engine.ConfirmPasswordReset(r.Context(), in.Token, in.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	id, _ := goGuard.IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":     id.UserID,
		"email":       id.Email,
		"role":        id.Role,
		"roles":       h.engine.Roles(r.Context(), id.UserID),
		"permissions": h.engine.Permissions(r.Context(), id.UserID),
	})
}

func (h *handlers) changePassword(w http.ResponseWriter, r *http.Request) {
	var in changePasswordRequest
	if err := decodeStrict(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	id, _ := goGuard.IdentityFromContext(r.Context())
	if err := h.engine.ChangePassword(r.Context(), id.UserID, in.OldPassword, in.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) logoutAll(w http.ResponseWriter, r *http.Request) {
	id, _ := goGuard.IdentityFromContext(r.Context())
	n, err := h.engine.LogoutAll(r.Context(), id.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"revoked": n})
}

func (h *handlers) securityReport(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.SecurityReport())
}

func (h *handlers) blockIP(w http.ResponseWriter, r *http.Request) {
	var in blockRequest
	if err := decodeStrict(r, &in); err != nil || in.IP == "" {
		h.writeError(w, r, errBadRequest)
		return
	}

	if err := h.engine.BlockIP(r.Context(), in.IP, in.Reason); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) ipStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.engine.IPStatus(r.Context(), chi.URLParam(r, "ip"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"blocked":    st.Blocked,
		"reason":     st.Reason,
		"blocked_at": st.BlockedAt,
		"expires_at": st.ExpiresAt,
	})
}

func (h *handlers) unblockIP(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.UnblockIP(r.Context(), chi.URLParam(r, "ip")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) ipActivity(w http.ResponseWriter, r *http.Request) {
	acts, err := h.engine.SuspiciousActivities(r.Context(), chi.URLParam(r, "ip"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if acts == nil {
		acts = []goGuard.SuspiciousActivity{}
	}
	writeJSON(w, http.StatusOK, acts)
}

func (h *handlers) loginStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.engine.LoginStatus(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handlers) clearLoginAttempts(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ClearLoginAttempts(r.Context(), r.URL.Query().Get("email")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) assignRole(w http.ResponseWriter, r *http.Request) {
	var in roleRequest
	if err := decodeStrict(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.engine.AssignRole(r.Context(), chi.URLParam(r, "id"), in.Role); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
