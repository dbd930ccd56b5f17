package mesh

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Emit outcomes reported by ObserveEmit.
const (
	EmitWritten   = "written"
	EmitUnchanged = "unchanged"
	EmitChanged   = "changed"
	EmitFailed    = "failed"
)

// Collector exposes build and emit metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	Zones              prometheus.Gauge
	PassthroughRegions prometheus.Gauge
	Warnings           *prometheus.CounterVec
	BuildDuration      prometheus.Histogram
	Emits              *prometheus.CounterVec
}

// NewCollector registers the metrics against reg. A nil reg means the
// default registerer.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	zones, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zonemesh_zones",
		Help: "Number of aggregated zones in the last build.",
	}), "zonemesh_zones")
	if err != nil {
		return nil, err
	}

	passthrough, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zonemesh_passthrough_regions",
		Help: "Number of unassigned regions passed through in the last build.",
	}), "zonemesh_passthrough_regions")
	if err != nil {
		return nil, err
	}

	warnings, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zonemesh_warnings_total",
		Help: "Non-fatal build diagnostics by kind.",
	}, []string{"kind"}), "zonemesh_warnings_total")
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "zonemesh_build_duration_seconds",
		Help:    "Duration of zone builds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}), "zonemesh_build_duration_seconds")
	if err != nil {
		return nil, err
	}

	emits, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zonemesh_emits_total",
		Help: "Topology emits by result.",
	}, []string{"result"}), "zonemesh_emits_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:           gatherer,
		Zones:              zones,
		PassthroughRegions: passthrough,
		Warnings:           warnings,
		BuildDuration:      duration,
		Emits:              emits,
	}, nil
}

// ObserveBuild records the shape of a build result and how long it took.
func (c *Collector) ObserveBuild(res *BuildResult, d time.Duration) {
	if c == nil || res == nil {
		return
	}
	c.Zones.Set(float64(res.Zones))
	c.PassthroughRegions.Set(float64(res.Passthrough))
	for _, w := range res.Warnings {
		c.Warnings.WithLabelValues(warningKind(w)).Inc()
	}
	c.BuildDuration.Observe(d.Seconds())
}

// ObserveEmit counts one emit outcome.
func (c *Collector) ObserveEmit(result string) {
	if c == nil {
		return
	}
	c.Emits.WithLabelValues(result).Inc()
}

// Handler serves the collector's gatherer in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil || c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// register registers col, reusing an already registered collector of the same
// type under that name.
func register[T prometheus.Collector](reg prometheus.Registerer, col T, name string) (T, error) {
	if err := reg.Register(col); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return col, nil
}
