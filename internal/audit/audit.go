package audit

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"
)

// Event is one security-relevant outcome. Kind is a stable snake_case name
// such as "login_failure"; Code carries the client-safe failure class and is
// empty on success.
type Event struct {
	At        time.Time         `json:"at"`
	Kind      string            `json:"kind"`
	Success   bool              `json:"success"`
	Code      string            `json:"code,omitempty"`
	UserID    string            `json:"user_id,omitempty"`
	Session   string            `json:"session,omitempty"`
	IP        string            `json:"ip,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// Sink consumes events on the dispatcher goroutine. Implementations must not
// retain ev.Details after returning.
type Sink interface {
	Emit(ctx context.Context, ev Event)
}

// NoOpSink discards events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink hands events to a consumer goroutine. Mostly useful in tests.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan Event, max(buffer, 1))}
}

func (s *ChannelSink) Emit(ctx context.Context, ev Event) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event { return s.events }

// JSONWriterSink appends newline-delimited JSON to an io.Writer. Write
// errors are ignored.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		return &JSONWriterSink{}
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, ev Event) {
	if s == nil || s.enc == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(ev)
}

// SlogSink logs each event as a single "audit" record, at Warn for failures
// and Info otherwise. Details are nested under a "details" group with keys
// in sorted order.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Emit(ctx context.Context, ev Event) {
	if s == nil {
		return
	}
	level := slog.LevelInfo
	if !ev.Success {
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.String("kind", ev.Kind),
		slog.Bool("success", ev.Success),
		slog.Time("at", ev.At),
	}
	optional := [...]struct{ key, val string }{
		{"code", ev.Code},
		{"user_id", ev.UserID},
		{"session", ev.Session},
		{"ip", ev.IP},
		{"user_agent", ev.UserAgent},
	}
	for _, o := range optional {
		if o.val != "" {
			attrs = append(attrs, slog.String(o.key, o.val))
		}
	}
	if len(ev.Details) > 0 {
		group := make([]any, 0, len(ev.Details))
		for _, k := range slices.Sorted(maps.Keys(ev.Details)) {
			group = append(group, slog.String(k, ev.Details[k]))
		}
		attrs = append(attrs, slog.Group("details", group...))
	}

	s.logger.LogAttrs(ctx, level, "audit", attrs...)
}
