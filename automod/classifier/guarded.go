package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/RussellLuo/slidingwindow"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/haven-chat/warden/automod/cachestore"
	"github.com/haven-chat/warden/automod/util"
)

const cacheNamespace = "classifier"

// GuardedConfig bounds how hard warden will lean on the scoring service.
type GuardedConfig struct {
	// RatePerSecond and Burst form the request token budget.
	RatePerSecond float64
	Burst         int
	// QueueDepth is how many callers may wait on the budget at once; beyond
	// this, ScoreText fails fast instead of queueing.
	QueueDepth int64
	// MaxWait bounds how long a queued caller waits before giving up.
	MaxWait time.Duration
	// DailyQuota caps total upstream calls per rolling day.
	DailyQuota int64
	// BreakerThreshold consecutive failures trip the circuit open;
	// BreakerProbeAfter is the open-state probe interval.
	BreakerThreshold  int
	BreakerProbeAfter time.Duration
}

func DefaultGuardedConfig() GuardedConfig {
	return GuardedConfig{
		RatePerSecond:     10,
		Burst:             20,
		QueueDepth:        64,
		MaxWait:           2 * time.Second,
		DailyQuota:        500_000,
		BreakerThreshold:  5,
		BreakerProbeAfter: 30 * time.Second,
	}
}

// GuardedClient is the process-wide classifier front end: score cache, rate
// budget with bounded queueing, daily quota, and circuit breaker. Safe for
// concurrent use by all in-flight evaluations; construct once at startup and
// Close on shutdown.
type GuardedClient struct {
	inner     Client
	cache     cachestore.CacheStore
	limiter   *rate.Limiter
	queue     *semaphore.Weighted
	maxWait   time.Duration
	daily     *slidingwindow.Limiter
	dailyStop slidingwindow.StopFunc
	breaker   *breaker
	logger    *slog.Logger
}

var _ Client = (*GuardedClient)(nil)

func NewGuardedClient(inner Client, cache cachestore.CacheStore, cfg GuardedConfig, logger *slog.Logger) *GuardedClient {
	daily, dailyStop := slidingwindow.NewLimiter(24*time.Hour, cfg.DailyQuota, func() (slidingwindow.Window, slidingwindow.StopFunc) {
		return slidingwindow.NewLocalWindow()
	})
	return &GuardedClient{
		inner:     inner,
		cache:     cache,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		queue:     semaphore.NewWeighted(cfg.QueueDepth),
		maxWait:   cfg.MaxWait,
		daily:     daily,
		dailyStop: dailyStop,
		breaker:   newBreaker(cfg.BreakerThreshold, cfg.BreakerProbeAfter),
		logger:    logger.With("component", "classifier"),
	}
}

func (g *GuardedClient) Close() {
	g.dailyStop()
}

func (g *GuardedClient) ScoreText(ctx context.Context, text string) (*Score, error) {
	hash := util.HashOfString(util.NormalizeText(text))
	if cached, err := g.cache.Get(ctx, cacheNamespace, hash); err == nil && cached != "" {
		var score Score
		if err := json.Unmarshal([]byte(cached), &score); err == nil {
			cacheHitCount.Inc()
			return &score, nil
		}
	}
	cacheMissCount.Inc()

	if !g.daily.Allow() {
		rejectCount.WithLabelValues("daily-quota").Inc()
		return nil, fmt.Errorf("%w: daily quota exhausted", ErrUnavailable)
	}

	// bounded wait: callers queue up to QueueDepth deep for at most MaxWait,
	// then fail fast instead of stalling the pipeline
	waitCtx, cancel := context.WithTimeout(ctx, g.maxWait)
	defer cancel()
	if err := g.queue.Acquire(waitCtx, 1); err != nil {
		rejectCount.WithLabelValues("queue-full").Inc()
		return nil, fmt.Errorf("%w: request queue full", ErrUnavailable)
	}
	defer g.queue.Release(1)
	if err := g.limiter.Wait(waitCtx); err != nil {
		rejectCount.WithLabelValues("rate-budget").Inc()
		return nil, fmt.Errorf("%w: rate budget exhausted", ErrUnavailable)
	}

	// local admission passed; the breaker decides last so a half-open probe
	// is always followed by a real upstream attempt
	if !g.breaker.Allow() {
		rejectCount.WithLabelValues("breaker-open").Inc()
		return nil, fmt.Errorf("%w: circuit breaker open", ErrUnavailable)
	}

	score, err := g.inner.ScoreText(ctx, text)
	if err != nil {
		g.breaker.MarkFailure()
		g.logger.Warn("classifier call failed", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	g.breaker.MarkSuccess()

	if enc, err := json.Marshal(score); err == nil {
		if err := g.cache.Set(ctx, cacheNamespace, hash, string(enc)); err != nil {
			g.logger.Warn("classifier cache write failed", "err", err)
		}
	}
	return score, nil
}
