package platform

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var callCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_platform_calls",
	Help: "Platform API calls, by logical operation and HTTP status",
}, []string{"operation", "status"})
