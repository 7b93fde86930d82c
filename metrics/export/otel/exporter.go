package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrEthical07/rpcgate"
	"github.com/MrEthical07/rpcgate/metrics/export/internaldefs"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

const (
	outcomeKey = attribute.Key("outcome")
	boundKey   = attribute.Key("le")
)

type metricsSource interface {
	MetricsSnapshot() rpcgate.MetricsSnapshot
	AuditDropped() uint64
}

// counterView reads one router counter into an instrument. Outcome counters
// share the calls instrument and differ only by their outcome attribute.
type counterView struct {
	id   rpcgate.MetricID
	inst metric.Int64ObservableCounter
	opts []metric.ObserveOption
}

type latencyView struct {
	id     rpcgate.MetricID
	bucket metric.Int64ObservableGauge
	count  metric.Int64ObservableGauge
}

// OTelExporter publishes router counters as observable OTel instruments.
// Values are read from the source once per collection cycle.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration

	counters []counterView
	latency  []latencyView
	bounds   []metric.ObserveOption
	dropped  metric.Int64ObservableCounter
}

// NewOTelExporter registers instruments on meter that observe srv.
func NewOTelExporter(meter metric.Meter, srv *rpcgate.Server) (*OTelExporter, error) {
	if srv == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, srv)
}

// NewOTelExporterFromSource is NewOTelExporter for any snapshot source.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	for _, le := range internaldefs.HistogramBounds {
		e.bounds = append(e.bounds, metric.WithAttributes(boundKey.String(le)))
	}

	observables, err := e.instruments(meter)
	if err != nil {
		return nil, err
	}
	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

// instruments creates every instrument on meter and returns them for
// callback registration.
func (e *OTelExporter) instruments(meter metric.Meter) ([]metric.Observable, error) {
	calls, err := meter.Int64ObservableCounter(internaldefs.CallOutcomeName,
		metric.WithDescription(internaldefs.CallOutcomeHelp))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", internaldefs.CallOutcomeName, err)
	}
	out := []metric.Observable{calls}

	byOutcome := make(map[rpcgate.MetricID]bool, len(internaldefs.CallOutcomeDefs))
	for _, def := range internaldefs.CallOutcomeDefs {
		byOutcome[def.ID] = true
		e.counters = append(e.counters, counterView{
			id:   def.ID,
			inst: calls,
			opts: []metric.ObserveOption{metric.WithAttributes(outcomeKey.String(def.Outcome))},
		})
	}

	for _, def := range internaldefs.CounterDefs {
		if byOutcome[def.ID] {
			continue
		}
		inst, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, counterView{id: def.ID, inst: inst})
		out = append(out, inst)
	}

	for _, def := range internaldefs.HistogramDefs {
		bucket, err := meter.Int64ObservableGauge(def.Name+"_bucket",
			metric.WithDescription(def.Help+" Cumulative count per le bound."))
		if err != nil {
			return nil, fmt.Errorf("create %s_bucket: %w", def.Name, err)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count",
			metric.WithDescription(def.Help+" Total sample count."))
		if err != nil {
			return nil, fmt.Errorf("create %s_count: %w", def.Name, err)
		}
		e.latency = append(e.latency, latencyView{id: def.ID, bucket: bucket, count: count})
		out = append(out, bucket, count)
	}

	e.dropped, err = meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", internaldefs.AuditDroppedName, err)
	}
	return append(out, e.dropped), nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()

	for _, c := range e.counters {
		o.ObserveInt64(c.inst, int64(snap.Counters[c.id]), c.opts...)
	}
	for _, l := range e.latency {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[l.id]))
		for i, n := range cumulative {
			if i < len(e.bounds) {
				o.ObserveInt64(l.bucket, int64(n), e.bounds[i])
			}
		}
		o.ObserveInt64(l.count, int64(cumulative[len(cumulative)-1]))
	}
	o.ObserveInt64(e.dropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
