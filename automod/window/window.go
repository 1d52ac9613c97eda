// Package window tracks the recent message history of each (community, user)
// pair. Detectors receive a point-in-time snapshot of this history; they
// never read the store directly, so concurrent evaluations of the same user
// all see a stable view.
package window

import (
	"context"
	"time"
)

// Retention bounds for per-user history. Entries beyond either bound are
// dropped on write.
const (
	MaxMessages = 32
	MaxAge      = 10 * time.Minute
)

// Message is one remembered prior message from a user. Content is stored
// only as a normalized hash.
type Message struct {
	At          time.Time `json:"at"`
	ContentHash string    `json:"content_hash"`
	Attachments int       `json:"attachments"`
	Links       int       `json:"links"`
}

// UserWindow is an immutable snapshot of one user's recent messages within
// one community, newest first. The current event is NOT included.
type UserWindow struct {
	Messages []Message
}

// CountSince returns how many remembered messages arrived at or after t.
func (w *UserWindow) CountSince(t time.Time) int {
	n := 0
	for _, m := range w.Messages {
		if !m.At.Before(t) {
			n++
		}
	}
	return n
}

// AttachmentsSince sums attachment counts of messages at or after t.
func (w *UserWindow) AttachmentsSince(t time.Time) int {
	n := 0
	for _, m := range w.Messages {
		if !m.At.Before(t) {
			n += m.Attachments
		}
	}
	return n
}

// LinksSince sums link counts of messages at or after t.
func (w *UserWindow) LinksSince(t time.Time) int {
	n := 0
	for _, m := range w.Messages {
		if !m.At.Before(t) {
			n += m.Links
		}
	}
	return n
}

// HasContentHash reports whether any remembered message at or after t has
// the given normalized content hash.
func (w *UserWindow) HasContentHash(hash string, t time.Time) bool {
	if hash == "" {
		return false
	}
	for _, m := range w.Messages {
		if m.ContentHash == hash && !m.At.Before(t) {
			return true
		}
	}
	return false
}

type Store interface {
	// Snapshot returns the user's current window. Missing users yield an
	// empty (non-nil) window.
	Snapshot(ctx context.Context, communityID, userID string) (*UserWindow, error)
	// RecordMessage appends one message to the user's history, trimming to
	// the retention bounds.
	RecordMessage(ctx context.Context, communityID, userID string, m Message) error
}

func windowKey(communityID, userID string) string {
	return communityID + "/" + userID
}
