package limiters

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/goGuard/internal/record"
)

// BlockConfig holds the IP block policy.
type BlockConfig struct {
	Duration time.Duration
	FailOpen bool
}

// BlockStatus describes a stored IP block.
type BlockStatus struct {
	Blocked   bool
	Reason    string
	BlockedAt time.Time
	ExpiresAt time.Time
}

type ipBlock struct {
	Blocked   bool   `json:"blocked"`
	Reason    string `json:"reason"`
	BlockedAt int64  `json:"blockedAt"`
}

// IPBlocker stores manual and automatic IP blocks. Blocks are independent of
// the request throttle.
type IPBlocker struct {
	base
	config BlockConfig
}

// NewIPBlocker creates an IP blocker.
func NewIPBlocker(rt Runtime, cfg BlockConfig) *IPBlocker {
	return &IPBlocker{base: newBase("ip_block", rt, cfg.FailOpen), config: cfg}
}

func blockKey(ip string) string {
	return "ip_block:" + ip
}

// Block blocks ip for the configured duration. Re-blocking restarts the
// period and replaces the reason.
func (b *IPBlocker) Block(ctx context.Context, ip, reason string) error {
	key := blockKey(ip)
	rec := ipBlock{Blocked: true, Reason: reason, BlockedAt: millis(b.now())}
	if err := b.save(ctx, key, record.KindIPBlock, rec, b.config.Duration); err != nil {
		return b.failClosed("block", key, err)
	}
	b.logger.InfoContext(ctx, "ip blocked", "ip", ip, "reason", reason)
	return nil
}

// Unblock removes any block on ip.
func (b *IPBlocker) Unblock(ctx context.Context, ip string) error {
	key := blockKey(ip)
	if err := b.store.Delete(ctx, key); err != nil {
		return b.failClosed("unblock", key, err)
	}
	return nil
}

// Status returns the stored block for ip.
func (b *IPBlocker) Status(ctx context.Context, ip string) (BlockStatus, error) {
	key := blockKey(ip)
	var rec ipBlock
	found, err := b.load(ctx, key, record.KindIPBlock, &rec)
	if err != nil {
		return BlockStatus{}, b.degrade(ctx, "status", key, err)
	}
	if !found || !rec.Blocked {
		return BlockStatus{}, nil
	}

	blockedAt := fromMillis(rec.BlockedAt)
	expiresAt := blockedAt.Add(b.config.Duration)
	if !b.now().Before(expiresAt) {
		return BlockStatus{}, nil
	}
	return BlockStatus{Blocked: true, Reason: rec.Reason, BlockedAt: blockedAt, ExpiresAt: expiresAt}, nil
}

// IsBlocked is Status reduced to a bool.
func (b *IPBlocker) IsBlocked(ctx context.Context, ip string) (bool, error) {
	st, err := b.Status(ctx, ip)
	return st.Blocked, err
}

// Writes are administrative actions, so they surface store errors
// regardless of the fail policy.
func (b *IPBlocker) failClosed(op, key string, err error) error {
	return fmt.Errorf("%w: %s %s: %v", ErrStoreUnavailable, b.name, op, err)
}
