package permission

import "strings"

// Built-in role names.
const (
	RoleGuest  = "guest"
	RoleViewer = "viewer"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

// Hierarchy ranks roles from least to most privileged.
type Hierarchy struct {
	order []string
	rank  map[string]int
}

// NewHierarchy ranks roles in the given order, lowest first.
func NewHierarchy(roles ...string) *Hierarchy {
	h := &Hierarchy{rank: make(map[string]int, len(roles))}
	for _, r := range roles {
		r = roleKey(r)
		if r == "" {
			continue
		}
		if _, dup := h.rank[r]; dup {
			continue
		}
		h.rank[r] = len(h.order)
		h.order = append(h.order, r)
	}
	return h
}

// DefaultHierarchy returns guest < viewer < editor < admin.
func DefaultHierarchy() *Hierarchy {
	return NewHierarchy(RoleGuest, RoleViewer, RoleEditor, RoleAdmin)
}

// Rank returns the position of role, or false for unknown roles.
func (h *Hierarchy) Rank(role string) (int, bool) {
	r, ok := h.rank[roleKey(role)]
	return r, ok
}

// roleKey is the canonical form roles are compared in.
func roleKey(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

// AtLeast reports whether role ranks at or above minRole. Unknown roles
// never satisfy a minimum.
func (h *Hierarchy) AtLeast(role, minRole string) bool {
	have, ok := h.Rank(role)
	if !ok {
		return false
	}
	want, ok := h.Rank(minRole)
	if !ok {
		return false
	}
	return have >= want
}

// Highest returns the best-ranked known role in roles, or "" if none is
// known.
func (h *Hierarchy) Highest(roles []string) string {
	best, bestRank := "", -1
	for _, r := range roles {
		if rank, ok := h.Rank(r); ok && rank > bestRank {
			best, bestRank = h.order[rank], rank
		}
	}
	return best
}

// Roles returns the ranked role names, lowest first.
func (h *Hierarchy) Roles() []string {
	return append([]string(nil), h.order...)
}
