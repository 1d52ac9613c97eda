package classifier

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/haven-chat/warden/automod/cachestore"
)

// stubClient scripts upstream behavior and counts calls.
type stubClient struct {
	mu    sync.Mutex
	calls int
	fail  bool
	score Score
}

func (s *stubClient) ScoreText(ctx context.Context, text string) (*Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return nil, errors.New("upstream boom")
	}
	out := s.score
	return &out, nil
}

func (s *stubClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubClient) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func newTestGuarded(inner Client, cfg GuardedConfig) *GuardedClient {
	return NewGuardedClient(inner, cachestore.NewMemCacheStore(100, time.Hour), cfg, slog.Default())
}

func TestGuardedClientCache(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	stub := &stubClient{score: Score{Toxicity: 0.92, ModelVersion: "tox-v2"}}
	g := newTestGuarded(stub, DefaultGuardedConfig())
	defer g.Close()

	score, err := g.ScoreText(ctx, "you are terrible")
	assert.NoError(err)
	assert.Equal(0.92, score.Toxicity)
	assert.Equal("tox-v2", score.ModelVersion)
	assert.Equal(1, stub.callCount())

	// identical and near-identical (case/whitespace) repeats hit the cache
	_, err = g.ScoreText(ctx, "you are terrible")
	assert.NoError(err)
	_, err = g.ScoreText(ctx, "  You are   TERRIBLE ")
	assert.NoError(err)
	assert.Equal(1, stub.callCount())

	_, err = g.ScoreText(ctx, "different text")
	assert.NoError(err)
	assert.Equal(2, stub.callCount())
}

func TestGuardedClientBreakerTripAndRecover(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cfg := DefaultGuardedConfig()
	cfg.BreakerThreshold = 3
	cfg.BreakerProbeAfter = 50 * time.Millisecond
	stub := &stubClient{fail: true, score: Score{Toxicity: 0.1}}
	g := newTestGuarded(stub, cfg)
	defer g.Close()

	// three consecutive failures trip the breaker
	for i := 0; i < 3; i++ {
		_, err := g.ScoreText(ctx, "text-a")
		assert.ErrorIs(err, ErrUnavailable)
	}
	assert.Equal(3, stub.callCount())

	// open: rejected without an upstream call
	_, err := g.ScoreText(ctx, "text-b")
	assert.ErrorIs(err, ErrUnavailable)
	assert.Equal(3, stub.callCount())

	// after the probe interval, a single trial goes through; failure re-opens
	time.Sleep(60 * time.Millisecond)
	_, err = g.ScoreText(ctx, "text-c")
	assert.ErrorIs(err, ErrUnavailable)
	assert.Equal(4, stub.callCount())
	_, err = g.ScoreText(ctx, "text-d")
	assert.ErrorIs(err, ErrUnavailable)
	assert.Equal(4, stub.callCount())

	// a successful probe closes the breaker again
	stub.setFail(false)
	time.Sleep(60 * time.Millisecond)
	score, err := g.ScoreText(ctx, "text-e")
	assert.NoError(err)
	assert.Equal(0.1, score.Toxicity)
	score, err = g.ScoreText(ctx, "text-f")
	assert.NoError(err)
	assert.NotNil(score)
}

func TestGuardedClientQueueFailFast(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cfg := DefaultGuardedConfig()
	cfg.RatePerSecond = 0.001 // effectively no tokens after burst
	cfg.Burst = 1
	cfg.QueueDepth = 1
	cfg.MaxWait = 30 * time.Millisecond
	stub := &stubClient{score: Score{Toxicity: 0.5}}
	g := newTestGuarded(stub, cfg)
	defer g.Close()

	_, err := g.ScoreText(ctx, "first") // consumes the only burst token
	assert.NoError(err)

	// budget exhausted: bounded wait, then fail fast
	start := time.Now()
	_, err = g.ScoreText(ctx, "second")
	assert.ErrorIs(err, ErrUnavailable)
	assert.Less(time.Since(start), 500*time.Millisecond)
}

func TestGuardedClientDailyQuota(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cfg := DefaultGuardedConfig()
	cfg.DailyQuota = 2
	stub := &stubClient{score: Score{Toxicity: 0.5}}
	g := newTestGuarded(stub, cfg)
	defer g.Close()

	_, err := g.ScoreText(ctx, "one")
	assert.NoError(err)
	_, err = g.ScoreText(ctx, "two")
	assert.NoError(err)
	_, err = g.ScoreText(ctx, "three")
	assert.ErrorIs(err, ErrUnavailable)
	assert.Equal(2, stub.callCount())
}

func TestBreakerStateMachine(t *testing.T) {
	assert := assert.New(t)

	b := newBreaker(2, time.Minute)
	now := time.Now()
	b.now = func() time.Time { return now }

	assert.True(b.Allow())
	b.MarkFailure()
	assert.True(b.Allow())
	b.MarkFailure() // trips
	assert.False(b.Allow())

	// probe interval elapses: exactly one probe admitted
	now = now.Add(2 * time.Minute)
	assert.True(b.Allow())
	assert.False(b.Allow())
	b.MarkFailure() // probe failed, re-open
	assert.False(b.Allow())

	now = now.Add(2 * time.Minute)
	assert.True(b.Allow())
	b.MarkSuccess()
	assert.True(b.Allow())
	assert.True(b.Allow())
}
