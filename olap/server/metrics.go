package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests        *prometheus.CounterVec
	compileDuration prometheus.Histogram
	programRules    prometheus.Histogram
	cacheLookups    *prometheus.CounterVec
}

func newMetrics(r prometheus.Registerer) *metrics {
	return &metrics{
		requests: promauto.With(r).NewCounterVec(prometheus.CounterOpts{
			Namespace: "logiclm",
			Name:      "requests_total",
			Help:      "Total number of API requests by endpoint and status code.",
		}, []string{"endpoint", "code"}),
		compileDuration: promauto.With(r).NewHistogram(prometheus.HistogramOpts{
			Namespace: "logiclm",
			Name:      "compile_duration_seconds",
			Help:      "Time spent compiling requests into logic programs.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		programRules: promauto.With(r).NewHistogram(prometheus.HistogramOpts{
			Namespace: "logiclm",
			Name:      "program_rules",
			Help:      "Number of rules in compiled programs.",
			Buckets:   prometheus.LinearBuckets(2, 2, 10),
		}),
		cacheLookups: promauto.With(r).NewCounterVec(prometheus.CounterOpts{
			Namespace: "logiclm",
			Name:      "program_cache_lookups_total",
			Help:      "Program cache lookups by result.",
		}, []string{"result"}),
	}
}
