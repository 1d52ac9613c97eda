// Package classifier wraps the external toxicity-scoring service. The raw
// HTTP client is deliberately thin; GuardedClient layers the caching, rate
// budget, and circuit breaker that keep a classifier outage or slowdown from
// ever blocking the rest of the pipeline.
package classifier

import (
	"context"
	"errors"
)

// ErrUnavailable means the score could not be obtained: budget exhausted,
// queue full, breaker open, or upstream failure. The toxicity rule treats
// this as fail-open and emits no finding.
var ErrUnavailable = errors.New("classifier unavailable")

// Score is one toxicity evaluation of a piece of text.
type Score struct {
	Toxicity     float64 `json:"toxicity"`
	ModelVersion string  `json:"model_version"`
}

type Client interface {
	ScoreText(ctx context.Context, text string) (*Score, error)
}
