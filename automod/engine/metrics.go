package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "warden_event_duration_sec",
	Help: "Total duration of automod event processing",
}, []string{"type"})

var eventProcessCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_event_processed",
	Help: "Number of events processed",
}, []string{"type"})

var eventErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_event_errors",
	Help: "Number of events which failed processing",
}, []string{"type"})

var eventDupeCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_event_duplicates",
	Help: "Number of redelivered events skipped by deduplication",
})

var ruleErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_rule_errors",
	Help: "Number of individual rule executions which failed",
})

var findingCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_findings",
	Help: "Number of findings raised, by rule kind",
}, []string{"rule"})

var tierCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_tier_outcomes",
	Help: "Escalation tier reached by events with findings",
}, []string{"tier"})
