package executor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var actionsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_executor_actions_applied_total",
}, []string{"kind"})

var actionsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_executor_actions_failed_total",
}, []string{"kind"})

var actionsRetried = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_executor_actions_retried_total",
}, []string{"kind"})

var actionsQuotaTripped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_executor_actions_quota_tripped_total",
}, []string{"kind"})
