// Package platform is the only place warden touches the chat platform's
// state. Everything else in the pipeline treats enforcement as this
// capability interface plus a typed error taxonomy.
package platform

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrForbidden: the bot lacks permission to act on this target.
	ErrForbidden = errors.New("platform: forbidden")
	// ErrNotFound: the target message/user/community no longer exists.
	ErrNotFound = errors.New("platform: not found")
	// ErrUnavailable: transient platform-side failure.
	ErrUnavailable = errors.New("platform: unavailable")
)

// RateLimitedError is returned when the platform throttles us; RetryAfter
// carries the server-provided backoff hint when present.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("platform: rate limited (retry after %s)", e.RetryAfter)
	}
	return "platform: rate limited"
}

// IsRetryable reports whether the executor should retry the call.
func IsRetryable(err error) bool {
	var rl *RateLimitedError
	return errors.Is(err, ErrUnavailable) || errors.As(err, &rl)
}

// RetryAfterHint extracts the server backoff hint, or zero.
func RetryAfterHint(err error) time.Duration {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl.RetryAfter
	}
	return 0
}

// Client is the enforcement capability surface.
type Client interface {
	DeleteMessage(ctx context.Context, communityID, channelID, messageID string) error
	TimeoutUser(ctx context.Context, communityID, userID string, until time.Time, reason string) error
	KickUser(ctx context.Context, communityID, userID, reason string) error
	BanUser(ctx context.Context, communityID, userID, reason string) error
	// SendNotice posts a non-punitive in-channel nudge; not an enforcement
	// action and not audited.
	SendNotice(ctx context.Context, communityID, channelID, text string) error
}
