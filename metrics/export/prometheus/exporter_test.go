package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot goGuard.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goGuard.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                     { return f.dropped }

func scrape(t *testing.T, c prometheus.Collector) *httptest.ResponseRecorder {
	t.Helper()

	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	rec := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec
}

func TestCollectEmptyWhenMetricsDisabled(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goGuard.MetricsSnapshot{
			Counters:   map[goGuard.MetricID]uint64{},
			Histograms: map[goGuard.MetricID][]uint64{},
		},
	})

	if n := testutil.CollectAndCount(c); n != 0 {
		t.Fatalf("expected no metrics while disabled, got %d", n)
	}
}

func TestCollectIncludesCounterAndHistogram(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goGuard.MetricsSnapshot{
			Counters: map[goGuard.MetricID]uint64{
				goGuard.MetricLoginSuccess:     7,
				goGuard.MetricRequestThrottled: 3,
			},
			Histograms: map[goGuard.MetricID][]uint64{
				goGuard.MetricValidateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := scrape(t, c).Body.String()
	for _, want := range []string{
		"goguard_login_success_total 7",
		"goguard_request_throttled_total 3",
		`goguard_validate_latency_seconds_bucket{le="0.005"} 1`,
		`goguard_validate_latency_seconds_bucket{le="0.5"} 28`,
		`goguard_validate_latency_seconds_bucket{le="+Inf"} 36`,
		"goguard_validate_latency_seconds_count 36",
		"goguard_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestCollectSkipsHistogramWhenLatencyDisabled(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goGuard.MetricsSnapshot{
			Counters:   map[goGuard.MetricID]uint64{goGuard.MetricLoginSuccess: 1},
			Histograms: map[goGuard.MetricID][]uint64{},
		},
	})

	if n := testutil.CollectAndCount(c, "goguard_validate_latency_seconds"); n != 0 {
		t.Fatalf("expected no histogram, got %d", n)
	}
	if n := testutil.CollectAndCount(c, "goguard_login_success_total"); n != 1 {
		t.Fatalf("expected login counter, got %d", n)
	}
}

func TestScrapeWritesTextContentType(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goGuard.MetricsSnapshot{
			Counters:   map[goGuard.MetricID]uint64{goGuard.MetricLoginSuccess: 1},
			Histograms: map[goGuard.MetricID][]uint64{},
		},
	})

	rec := scrape(t, c)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected text exposition content type, got %q", got)
	}
}

func BenchmarkCollect(b *testing.B) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goGuard.MetricsSnapshot{
			Counters: map[goGuard.MetricID]uint64{
				goGuard.MetricLoginSuccess:   1000,
				goGuard.MetricLoginFailure:   40,
				goGuard.MetricRefreshSuccess: 800,
				goGuard.MetricSessionCreated: 800,
			},
			Histograms: map[goGuard.MetricID][]uint64{
				goGuard.MetricValidateLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = reg.Gather()
	}
}
