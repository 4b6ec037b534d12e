// Package metrics exposes the pipeline's Prometheus instrumentation.
// Names and label shapes are carried over from the original client's
// metrics.cpp/metrics.hpp: one counter for frame-level statistics, one
// counter for per-field rule matches, a histogram for facet counts, a
// gauge for internal queue/backlog depths, and a counter for alerts.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// facetBuckets mirrors the original client's BucketBoundaries: the
// integers 0 through 30 inclusive, registered once up front.
var facetBuckets = func() []float64 {
	b := make([]float64, 31)
	for i := range b {
		b[i] = float64(i)
	}
	return b
}()

// firehoseLabelNames is the full label set documented for the
// "firehose" counter: op, type, collection, kind, status, embed, and
// language are each independently optional per event. A CounterVec
// needs a fixed label schema, so every increment fills every name,
// leaving whichever ones don't apply to that event as "".
var firehoseLabelNames = []string{"op", "type", "collection", "kind", "status", "embed", "language"}

// Registry holds every metric the pipeline emits. It is constructed
// once at startup and passed to the components that report through it.
type Registry struct {
	Firehose        *prometheus.CounterVec
	MatchedElements *prometheus.CounterVec
	FirehoseFacets  *prometheus.HistogramVec
	Operational     *prometheus.GaugeVec
	RealtimeAlerts  *prometheus.CounterVec

	reg *prometheus.Registry
}

// New builds and registers the metric families against a fresh
// Prometheus registry.
func New() *Registry {
	reg := prometheus.NewRegistry()

	m := &Registry{
		reg: reg,
		Firehose: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "firehose",
			Help: "Statistics about received firehose data",
		}, firehoseLabelNames),
		MatchedElements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "message_field_matches",
			Help: "Number of matches within each field of a message",
		}, []string{"filter", "type", "field"}),
		FirehoseFacets: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "firehose_facets",
			Help:    "Statistics about received firehose facets",
			Buckets: facetBuckets,
		}, []string{"facet"}),
		Operational: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "operational_stats",
			Help: "Statistics about client internals",
		}, []string{"stat"}),
		RealtimeAlerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realtime_alerts",
			Help: "Alerts generated for possibly suspect activity",
		}, []string{"outcome"}),
	}

	reg.MustRegister(m.Firehose, m.MatchedElements, m.FirehoseFacets, m.Operational, m.RealtimeAlerts)

	// The histogram family's label values are fixed and known up front
	// (link/mention/tag/total); pre-creating each series keeps
	// cardinality bounded exactly as the original client documents.
	for _, facet := range []string{"link", "mention", "tag", "total"} {
		m.FirehoseFacets.WithLabelValues(facet)
	}

	return m
}

// Gatherer exposes the underlying registry for an HTTP exposition
// endpoint (wired up by the caller, outside this package's scope).
func (m *Registry) Gatherer() prometheus.Gatherer {
	return m.reg
}

// IncFirehose increments the firehose counter for one event, naming
// only the labels that apply; every other label in firehoseLabelNames
// is recorded as "". Use this instead of Firehose.WithLabelValues
// directly so call sites can't desync from the declared label order.
func (m *Registry) IncFirehose(fields map[string]string) {
	labels := make(prometheus.Labels, len(firehoseLabelNames))
	for _, name := range firehoseLabelNames {
		labels[name] = fields[name]
	}
	m.Firehose.With(labels).Inc()
}
