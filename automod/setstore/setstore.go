// Package setstore holds platform-wide string sets consulted by detectors:
// known-bad link domains, global bad-word lists, invite allowlists.
package setstore

import (
	"context"
)

type SetStore interface {
	InSet(ctx context.Context, name, val string) (bool, error)
	// Members returns the full set, for detectors which scan for substring
	// matches (wildcard word lists). Sets are expected to stay small.
	Members(ctx context.Context, name string) ([]string, error)
}
