package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	assert := assert.New(t)

	rl := &RateLimitedError{RetryAfter: 2 * time.Second}
	assert.True(IsRetryable(rl))
	assert.True(IsRetryable(ErrUnavailable))
	assert.False(IsRetryable(ErrForbidden))
	assert.False(IsRetryable(ErrNotFound))
	assert.Equal(2*time.Second, RetryAfterHint(rl))
	assert.Equal(time.Duration(0), RetryAfterHint(ErrUnavailable))
}

func TestHTTPClientStatusMapping(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var status int
	var retryAfter string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if retryAfter != "" {
			w.Header().Set("Retry-After", retryAfter)
		}
		w.WriteHeader(status)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "token", time.Second)

	status = 204
	assert.NoError(c.DeleteMessage(ctx, "c1", "ch1", "m1"))

	status = 403
	assert.ErrorIs(c.KickUser(ctx, "c1", "u1", "spam"), ErrForbidden)

	status = 404
	assert.ErrorIs(c.BanUser(ctx, "c1", "u1", "spam"), ErrNotFound)

	status = 500
	assert.ErrorIs(c.SendNotice(ctx, "c1", "ch1", "hi"), ErrUnavailable)

	status = 429
	retryAfter = "1.5"
	err := c.TimeoutUser(ctx, "c1", "u1", time.Now().Add(time.Minute), "spam")
	assert.True(IsRetryable(err))
	assert.Equal(1500*time.Millisecond, RetryAfterHint(err))
}

func TestCallMetricLabelBounded(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(204)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "token", time.Second)

	// calls against distinct subjects share one series per operation; IDs
	// never appear as label values
	before := testutil.ToFloat64(callCount.WithLabelValues("delete-message", "204"))
	for i := 0; i < 3; i++ {
		assert.NoError(c.DeleteMessage(ctx, fmt.Sprintf("c%d", i), fmt.Sprintf("ch%d", i), fmt.Sprintf("m%d", i)))
	}
	after := testutil.ToFloat64(callCount.WithLabelValues("delete-message", "204"))
	assert.Equal(3.0, after-before)
}

func TestMockClientScripting(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	m := NewMockClient()
	m.QueueError("kick", ErrForbidden)

	assert.ErrorIs(m.KickUser(ctx, "c1", "u1", "r"), ErrForbidden)
	assert.NoError(m.KickUser(ctx, "c1", "u1", "r"))
	assert.Len(m.CallsOfKind("kick"), 1)
}
