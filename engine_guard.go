package goGuard

import (
	"context"
	"time"

	"github.com/MrEthical07/goGuard/internal/flows"
	"github.com/MrEthical07/goGuard/internal/limiters"
)

// RequestInfo describes an inbound request to the security pipeline.
type RequestInfo struct {
	IP        string
	UserAgent string
	Method    string
	Path      string
}

// GuardDecision is the outcome of GuardRequest.
type GuardDecision struct {
	Blocked    bool
	Throttled  bool
	RetryAfter time.Duration
	Suspicious bool
	Reasons    []string
	// AutoBlocked is set when this request pushed the IP over the
	// suspicious activity threshold. The request itself is not rejected.
	AutoBlocked bool
}

// BlockStatus describes an active IP block.
type BlockStatus = limiters.BlockStatus

// SuspiciousActivity is one logged detection.
type SuspiciousActivity = limiters.Activity

// GuardRequest runs the request pipeline: IP block check, throttle check,
// activity recording and suspicious activity detection.
//
// It returns ErrBlocked for a blocked IP and ErrRateLimited (with
// RetryAfter set) for a throttled one. Store failures on fail-open limiters
// are logged and let the request through.
func (e *Engine) GuardRequest(ctx context.Context, info RequestInfo) (*GuardDecision, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	res, err := flows.RunGuard(ctx, flows.GuardRequest{
		IP:        info.IP,
		UserAgent: info.UserAgent,
		Method:    info.Method,
		Path:      info.Path,
	}, e.flows.Guard)
	if res == nil {
		return nil, mapStoreError(err)
	}
	return &GuardDecision{
		Blocked:     res.Blocked,
		Throttled:   res.Throttled,
		RetryAfter:  res.RetryAfter,
		Suspicious:  res.Suspicious,
		Reasons:     res.Reasons,
		AutoBlocked: res.AutoBlocked,
	}, mapStoreError(err)
}

// BlockIP blocks ip for Config.IPBlock.Duration. Store failures are always
// returned.
func (e *Engine) BlockIP(ctx context.Context, ip, reason string) error {
	if e == nil || e.blocker == nil {
		return ErrEngineNotReady
	}
	if err := e.blocker.Block(ctx, ip, reason); err != nil {
		return mapStoreError(err)
	}
	e.metricInc(MetricIPBlockedManual)
	e.emitAudit(ctx, auditEventIPBlocked, true, "", "", nil, func() map[string]string {
		return map[string]string{"ip": ip, "reason": reason}
	})
	return nil
}

// UnblockIP lifts any block on ip.
func (e *Engine) UnblockIP(ctx context.Context, ip string) error {
	if e == nil || e.blocker == nil {
		return ErrEngineNotReady
	}
	if err := e.blocker.Unblock(ctx, ip); err != nil {
		return mapStoreError(err)
	}
	e.emitAudit(ctx, auditEventIPUnblocked, true, "", "", nil, func() map[string]string {
		return map[string]string{"ip": ip}
	})
	return nil
}

// IPStatus returns the current block on ip, if any.
func (e *Engine) IPStatus(ctx context.Context, ip string) (BlockStatus, error) {
	if e == nil || e.blocker == nil {
		return BlockStatus{}, ErrEngineNotReady
	}
	st, err := e.blocker.Status(ctx, ip)
	return st, mapStoreError(err)
}

// SuspiciousActivities returns the logged detections for ip, oldest first.
func (e *Engine) SuspiciousActivities(ctx context.Context, ip string) ([]SuspiciousActivity, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.suspicious == nil {
		return []SuspiciousActivity{}, nil
	}
	acts, err := e.suspicious.Activities(ctx, ip)
	return acts, mapStoreError(err)
}

// IssueCSRF returns a fresh double-submit token.
func (e *Engine) IssueCSRF() (string, error) {
	if e == nil || e.csrf == nil {
		return "", ErrEngineNotReady
	}
	return e.csrf.Issue()
}

// VerifyCSRF compares the cookie token with the presented one in constant
// time.
func (e *Engine) VerifyCSRF(cookie, presented string) bool {
	if e == nil || e.csrf == nil {
		return false
	}
	if e.csrf.Verify(cookie, presented) {
		return true
	}
	e.metricInc(MetricCSRFRejected)
	return false
}
