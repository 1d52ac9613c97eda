package main

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/haven-chat/warden/automod/engine"
	"github.com/haven-chat/warden/automod/event"
	"github.com/haven-chat/warden/automod/policy"
)

// flakyPolicyProvider fails the first n lookups, then delegates. Simulates
// the policy store coming back after a transient outage.
type flakyPolicyProvider struct {
	inner    policy.Provider
	failures int
}

func (p *flakyPolicyProvider) ForCommunity(ctx context.Context, communityID string) (*policy.CommunityPolicy, error) {
	if p.failures > 0 {
		p.failures--
		return nil, errors.New("storage offline")
	}
	return p.inner.ForCommunity(ctx, communityID)
}

func testServer(t *testing.T, failures int) (*Server, *flakyPolicyProvider) {
	t.Helper()
	eng, _, _ := engine.EngineTestFixture(filepath.Join(t.TempDir(), "warden.sqlite"), engine.RuleSet{})
	flaky := &flakyPolicyProvider{inner: eng.Policies, failures: failures}
	eng.Policies = flaky
	return &Server{
		logger:       slog.Default(),
		engine:       eng,
		eventTimeout: 5 * time.Second,
		retryCeiling: 4,
		retryBase:    time.Millisecond,
	}, flaky
}

func testMessageEvent(id string) *event.InspectionEvent {
	return &event.InspectionEvent{
		CommunityID: "c1",
		AuthorID:    "u1",
		ChannelID:   "ch1",
		EventID:     id,
		Kind:        event.KindMessageCreate,
		Content:     "hello",
		CreatedAt:   time.Now(),
	}
}

func TestProcessWithRetryRecovers(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, flaky := testServer(t, 2)

	assert.NoError(s.processWithRetry(ctx, testMessageEvent("m1")))
	assert.Equal(0, flaky.failures)
}

func TestProcessWithRetryGivesUp(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, _ := testServer(t, 100)

	err := s.processWithRetry(ctx, testMessageEvent("m1"))
	assert.Error(err)
	assert.Contains(err.Error(), "storage offline")
}

func TestProcessWithRetryStopsOnCancel(t *testing.T) {
	assert := assert.New(t)
	s, _ := testServer(t, 100)
	s.retryBase = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan error, 1)
	go func() { done <- s.processWithRetry(ctx, testMessageEvent("m1")) }()
	select {
	case err := <-done:
		assert.Error(err)
	case <-time.After(time.Second):
		t.Fatal("retry loop ignored cancellation")
	}
}
