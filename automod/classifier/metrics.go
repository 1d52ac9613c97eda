package classifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var upstreamDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "warden_classifier_upstream_duration_sec",
	Help: "Duration of classifier service calls",
})

var upstreamStatusCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_classifier_upstream_status",
	Help: "Classifier service responses, by HTTP status code",
}, []string{"status"})

var cacheHitCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_classifier_cache_hits",
	Help: "Number of classifier score cache hits",
})

var cacheMissCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_classifier_cache_misses",
	Help: "Number of classifier score cache misses",
})

var rejectCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_classifier_rejects",
	Help: "Score requests rejected before reaching upstream",
}, []string{"reason"})

var breakerStateGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "warden_classifier_breaker_state",
	Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
})

var breakerTransitionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_classifier_breaker_transitions",
	Help: "Circuit breaker state transitions",
}, []string{"to"})
