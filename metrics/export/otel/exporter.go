package otel

import (
	"context"
	"errors"
	"fmt"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goGuard.MetricsSnapshot
	AuditDropped() uint64
}

type counterBinding struct {
	id  goGuard.MetricID
	obs metric.Int64ObservableCounter
}

// histogramBinding flattens one engine histogram into a gauge per
// cumulative bucket plus a sample-count gauge.
type histogramBinding struct {
	id     goGuard.MetricID
	bucket []metric.Int64ObservableGauge
	count  metric.Int64ObservableGauge
}

// Exporter publishes engine metrics through OTel asynchronous instruments.
// Values are read from the engine once per collection cycle.
type Exporter struct {
	source  metricsSource
	reg     metric.Registration
	counter []counterBinding
	hist    []histogramBinding
	dropped metric.Int64ObservableCounter
}

func NewExporter(meter metric.Meter, engine *goGuard.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource registers one instrument per metric in internaldefs
// and a single callback observing all of them.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	switch {
	case meter == nil:
		return nil, ErrNilMeter
	case source == nil:
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}
	var all []metric.Observable

	gauge := func(name, help string) (metric.Int64ObservableGauge, error) {
		g, err := meter.Int64ObservableGauge(name, metric.WithDescription(help))
		if err != nil {
			return nil, fmt.Errorf("otel gauge %s: %w", name, err)
		}
		all = append(all, g)
		return g, nil
	}
	counter := func(name, help string) (metric.Int64ObservableCounter, error) {
		c, err := meter.Int64ObservableCounter(name, metric.WithDescription(help))
		if err != nil {
			return nil, fmt.Errorf("otel counter %s: %w", name, err)
		}
		all = append(all, c)
		return c, nil
	}

	for _, def := range internaldefs.CounterDefs {
		c, err := counter(def.Name, def.Help)
		if err != nil {
			return nil, err
		}
		e.counter = append(e.counter, counterBinding{id: def.ID, obs: c})
	}

	for _, def := range internaldefs.HistogramDefs {
		b := histogramBinding{id: def.ID}
		for _, suffix := range internaldefs.HistogramBoundSuffix {
			g, err := gauge(def.Name+"_bucket_le_"+suffix, "Cumulative bucket count: "+def.Help)
			if err != nil {
				return nil, err
			}
			b.bucket = append(b.bucket, g)
		}
		var err error
		if b.count, err = gauge(def.Name+"_count", "Sample count: "+def.Help); err != nil {
			return nil, err
		}
		e.hist = append(e.hist, b)
	}

	var err error
	if e.dropped, err = counter("goguard_audit_dropped_total", "Audit events dropped by the dispatcher."); err != nil {
		return nil, err
	}
	if e.reg, err = meter.RegisterCallback(e.observe, all...); err != nil {
		return nil, fmt.Errorf("otel register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	for _, c := range e.counter {
		o.ObserveInt64(c.obs, int64(snap.Counters[c.id]))
	}
	for _, h := range e.hist {
		raw, ok := snap.Histograms[h.id]
		if !ok {
			continue
		}
		cum := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, g := range h.bucket {
			o.ObserveInt64(g, int64(cum[i]))
		}
		o.ObserveInt64(h.count, int64(cum[len(cum)-1]))
	}
	o.ObserveInt64(e.dropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the callback. It is safe on a nil Exporter.
func (e *Exporter) Close() error {
	if e == nil || e.reg == nil {
		return nil
	}
	return e.reg.Unregister()
}
