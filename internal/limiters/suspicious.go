package limiters

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/goGuard/internal/record"
)

// DefaultUserAgentPatterns are matched case-insensitively as substrings of
// the User-Agent header.
var DefaultUserAgentPatterns = []string{
	"bot", "crawler", "spider", "scraper",
	"curl", "wget", "python-requests", "python-urllib", "httpie", "postman",
	"sqlmap", "nikto", "nmap", "masscan", "zgrab", "libwww-perl",
}

// Detection reasons recorded in the activity log.
const (
	ReasonUserAgent    = "suspicious_user_agent"
	ReasonThrottled    = "rate_limit_exceeded"
	ReasonFailedLogins = "excessive_failed_logins"
)

// SuspiciousConfig holds detection thresholds.
type SuspiciousConfig struct {
	BlockThreshold       int
	Window               time.Duration
	FailedLoginThreshold int
	MaxActivities        int
	UserAgentPatterns    []string
	FailOpen             bool
}

// Signal is the request metadata inspected for suspicious behavior.
type Signal struct {
	IP        string
	UserAgent string
	Method    string
	Path      string
}

// Finding is the outcome of one inspection.
type Finding struct {
	Suspicious bool
	Reasons    []string
	Count      int
	Blocked    bool
}

// Activity is one logged detection.
type Activity struct {
	At        int64    `json:"at"`
	Reasons   []string `json:"reasons"`
	Method    string   `json:"method,omitempty"`
	Path      string   `json:"path,omitempty"`
	UserAgent string   `json:"userAgent,omitempty"`
}

type suspiciousRecord struct {
	Count         int        `json:"count"`
	LastAttemptAt int64      `json:"lastAttemptAt"`
	Activities    []Activity `json:"activities"`
}

// SuspiciousDetector flags bot-like or abusive clients and blocks an IP once
// it has been flagged BlockThreshold times within Window.
type SuspiciousDetector struct {
	base
	config   SuspiciousConfig
	patterns []string
	throttle *IPThrottle
	failures *IPFailureCounter
	blocker  *IPBlocker
}

// NewSuspiciousDetector wires a detector to the throttle, failure counter and
// blocker it consults.
func NewSuspiciousDetector(rt Runtime, cfg SuspiciousConfig, throttle *IPThrottle, failures *IPFailureCounter, blocker *IPBlocker) *SuspiciousDetector {
	patterns := cfg.UserAgentPatterns
	if patterns == nil {
		patterns = DefaultUserAgentPatterns
	}
	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lowered = append(lowered, p)
		}
	}

	return &SuspiciousDetector{
		base:     newBase("suspicious", rt, cfg.FailOpen),
		config:   cfg,
		patterns: lowered,
		throttle: throttle,
		failures: failures,
		blocker:  blocker,
	}
}

func suspiciousKey(ip string) string {
	return "suspicious_activity:" + ip
}

// Inspect evaluates sig. A detection is appended to the IP's activity
// record; reaching BlockThreshold blocks the IP.
func (d *SuspiciousDetector) Inspect(ctx context.Context, sig Signal) (Finding, error) {
	reasons := d.reasons(ctx, sig)
	if len(reasons) == 0 {
		return Finding{}, nil
	}

	finding := Finding{Suspicious: true, Reasons: reasons}
	key := suspiciousKey(sig.IP)

	var rec suspiciousRecord
	found, err := d.load(ctx, key, record.KindSuspicious, &rec)
	if err != nil {
		return finding, d.degrade(ctx, "inspect", key, err)
	}

	now := d.now()
	if !found || now.Sub(fromMillis(rec.LastAttemptAt)) > d.config.Window {
		rec = suspiciousRecord{}
	}
	rec.Count++
	rec.LastAttemptAt = millis(now)
	rec.Activities = append(rec.Activities, Activity{
		At:        millis(now),
		Reasons:   reasons,
		Method:    sig.Method,
		Path:      sig.Path,
		UserAgent: sig.UserAgent,
	})
	if limit := d.config.MaxActivities; limit > 0 && len(rec.Activities) > limit {
		rec.Activities = rec.Activities[len(rec.Activities)-limit:]
	}
	finding.Count = rec.Count

	if err := d.save(ctx, key, record.KindSuspicious, rec, d.config.Window); err != nil {
		return finding, d.degrade(ctx, "inspect", key, err)
	}

	d.logger.WarnContext(ctx, "suspicious activity",
		"ip", sig.IP,
		"reasons", strings.Join(reasons, ","),
		"count", rec.Count,
	)

	if rec.Count >= d.config.BlockThreshold && d.blocker != nil {
		if err := d.blocker.Block(ctx, sig.IP, "automatic: suspicious activity"); err != nil {
			return finding, d.degrade(ctx, "auto_block", key, err)
		}
		finding.Blocked = true
	}
	return finding, nil
}

// Activities returns the logged detections for ip, oldest first.
func (d *SuspiciousDetector) Activities(ctx context.Context, ip string) ([]Activity, error) {
	var rec suspiciousRecord
	found, err := d.load(ctx, suspiciousKey(ip), record.KindSuspicious, &rec)
	if err != nil || !found {
		return nil, err
	}
	return rec.Activities, nil
}

func (d *SuspiciousDetector) reasons(ctx context.Context, sig Signal) []string {
	var reasons []string
	if d.matchUserAgent(sig.UserAgent) {
		reasons = append(reasons, ReasonUserAgent)
	}
	if d.throttle != nil && d.throttle.Active(ctx, sig.IP) {
		reasons = append(reasons, ReasonThrottled)
	}
	if d.failures != nil {
		if n, err := d.failures.Count(ctx, sig.IP); err == nil && n > d.config.FailedLoginThreshold {
			reasons = append(reasons, ReasonFailedLogins)
		}
	}
	return reasons
}

func (d *SuspiciousDetector) matchUserAgent(ua string) bool {
	if ua == "" {
		return false
	}
	ua = strings.ToLower(ua)
	for _, p := range d.patterns {
		if strings.Contains(ua, p) {
			return true
		}
	}
	return false
}
