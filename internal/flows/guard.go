package flows

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// GuardRequest is what the pipeline knows about an inbound request.
type GuardRequest struct {
	IP        string
	UserAgent string
	Method    string
	Path      string
}

// GuardResult reports what the pipeline decided for one request.
type GuardResult struct {
	Blocked     bool
	Throttled   bool
	RetryAfter  time.Duration
	Suspicious  bool
	Reasons     []string
	AutoBlocked bool
}

// Inspection is the flow-local suspicious activity finding.
type Inspection struct {
	Suspicious bool
	Reasons    []string
	Blocked    bool
}

type GuardMetrics struct {
	RequestBlocked   int
	RequestThrottled int
	Suspicious       int
	AutoBlocked      int
}

type GuardEvents struct {
	RequestBlocked  string
	RateLimited     string
	SuspiciousFound string
	IPAutoBlocked   string
}

type GuardErrors struct {
	EngineNotReady error
	Blocked        error
	RateLimited    error
}

// GuardDeps captures request pipeline dependencies.
type GuardDeps struct {
	IsBlocked      func(context.Context, string) (bool, error)
	CheckThrottle  func(context.Context, string) (bool, time.Duration, error)
	RecordActivity func(context.Context, string) error
	Inspect        func(context.Context, GuardRequest) (Inspection, error)

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics GuardMetrics
	Events  GuardEvents
	Errors  GuardErrors
}

// RunGuard applies the request pipeline in order: block check, throttle
// check, activity recording, suspicious activity detection.
//
// A detection that blocks the IP does not reject the request that caused it;
// the block applies from the next request on. Requests without a client IP
// skip every IP-keyed step.
func RunGuard(ctx context.Context, req GuardRequest, deps GuardDeps) (*GuardResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.IsBlocked == nil || deps.CheckThrottle == nil || deps.RecordActivity == nil {
		return nil, deps.Errors.EngineNotReady
	}

	result := &GuardResult{}
	if req.IP == "" {
		return result, nil
	}

	blocked, err := deps.IsBlocked(ctx, req.IP)
	if err != nil {
		return nil, err
	}
	if blocked {
		result.Blocked = true
		deps.MetricInc(deps.Metrics.RequestBlocked)
		deps.EmitAudit(ctx, deps.Events.RequestBlocked, false, "", "", deps.Errors.Blocked,
			meta("method", req.Method, "path", req.Path))
		return result, deps.Errors.Blocked
	}

	limited, retryAfter, err := deps.CheckThrottle(ctx, req.IP)
	if err != nil {
		return nil, err
	}
	if limited {
		result.Throttled = true
		result.RetryAfter = retryAfter
		deps.MetricInc(deps.Metrics.RequestThrottled)
		deps.EmitAudit(ctx, deps.Events.RateLimited, false, "", "", deps.Errors.RateLimited,
			meta("scope", "ip", "retry_after", itoa(int(retryAfter.Seconds()))))
		return result, deps.Errors.RateLimited
	}

	if err := deps.RecordActivity(ctx, req.IP); err != nil {
		return nil, err
	}

	if deps.Inspect == nil {
		return result, nil
	}
	finding, err := deps.Inspect(ctx, req)
	if err != nil {
		deps.Warn("goGuard: suspicious activity inspection failed", "ip", req.IP, "error", err)
		return result, nil
	}
	if finding.Suspicious {
		result.Suspicious = true
		result.Reasons = finding.Reasons
		deps.MetricInc(deps.Metrics.Suspicious)
		deps.EmitAudit(ctx, deps.Events.SuspiciousFound, false, "", "", nil, func() map[string]string {
			return map[string]string{"reasons": strings.Join(finding.Reasons, ","), "path": req.Path}
		})
	}
	if finding.Blocked {
		result.AutoBlocked = true
		deps.MetricInc(deps.Metrics.AutoBlocked)
		deps.EmitAudit(ctx, deps.Events.IPAutoBlocked, true, "", "", nil, meta("reason", "automatic: suspicious activity"))
	}
	return result, nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
