package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("warden")

var eventsReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_gateway_events_received",
	Help: "Number of gateway events received",
})

var eventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_gateway_events_processed",
	Help: "Number of gateway events fully processed",
})

var eventsFailed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_gateway_events_failed",
	Help: "Number of gateway events that failed processing after retries",
})

var eventsRetried = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_gateway_events_retried",
	Help: "Number of engine retry attempts on transiently failed events",
})

var eventsMalformed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_gateway_events_malformed",
	Help: "Number of gateway events dropped as malformed",
})

var eventsSkipped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_gateway_events_skipped",
	Help: "Number of gateway events of kinds the engine does not inspect",
})

var currentSeq = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "warden_current_seq",
	Help: "Current gateway sequence number",
})
