package callgraph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	locateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "callscope",
		Name:      "locate_total",
		Help:      "Occurrence lookups by backend and outcome.",
	}, []string{"backend", "outcome"})

	indexBuildTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "callscope",
		Name:      "index_build_total",
		Help:      "Symbol index builds by outcome.",
	}, []string{"outcome"})

	resolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "callscope",
		Name:      "resolve_duration_seconds",
		Help:      "Wall time of call hierarchy requests.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"outcome"})

	resolveNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "callscope",
		Name:      "resolve_nodes",
		Help:      "Number of nodes in returned call hierarchies.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
	})
)

func recordLocate(backend Backend, outcome string) {
	locateTotal.WithLabelValues(string(backend), outcome).Inc()
}

func recordIndexBuild(outcome string) {
	indexBuildTotal.WithLabelValues(outcome).Inc()
}
