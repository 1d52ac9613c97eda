// Package policy defines the per-community moderation configuration consumed
// by the engine. The settings editor that writes these documents is a
// separate system; warden only reads them, as an immutable snapshot per
// evaluated event. Configuration changes apply to subsequently evaluated
// events only.
package policy

import (
	"context"
	"time"

	"github.com/haven-chat/warden/automod/event"
	"github.com/haven-chat/warden/automod/ledger"
)

// RulePolicy configures one detector within one community.
type RulePolicy struct {
	Enabled bool `json:"enabled"`
	// DeleteMessage requests removal of the offending message on any
	// finding from this rule, independent of the escalation tier.
	DeleteMessage bool `json:"delete_message"`
	// WarnOnNotice issues a formal warn action already at the notice tier.
	// Off by default: notice-tier findings only accrue ledger weight and
	// nudge the user in-channel.
	WarnOnNotice bool `json:"warn_on_notice"`
	// ExcludedChannels are channel IDs this rule never fires in.
	ExcludedChannels []string `json:"excluded_channels,omitempty"`
}

// Duration wraps time.Duration with JSON string encoding ("15m", "1h"), the
// format the settings editor writes.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Duration.String() + `"`), nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// CommunityPolicy is the full moderation configuration for one community.
type CommunityPolicy struct {
	Enabled bool                          `json:"enabled"`
	Rules   map[event.RuleKind]RulePolicy `json:"rules"`

	// detector thresholds
	SpamBurstCount    int      `json:"spam_burst_count"`
	SpamBurstWindow   Duration `json:"spam_burst_window"`
	MassMentionCount  int      `json:"mass_mention_count"`
	LinkCountMax      int      `json:"link_count_max"`
	LinkBurstCount    int      `json:"link_burst_count"`
	LinkBurstWindow   Duration `json:"link_burst_window"`
	AttachBurstCount  int      `json:"attach_burst_count"`
	AttachBurstWindow Duration `json:"attach_burst_window"`
	CapsMinLength     int      `json:"caps_min_length"`
	CapsRatio         float64  `json:"caps_ratio"`
	DuplicateWindow   Duration `json:"duplicate_window"`
	JoinFloodCount    int      `json:"join_flood_count"`
	ToxicityThreshold float64  `json:"toxicity_threshold"`

	// community word lists; the global lists live in the set store
	BadWords         []string `json:"bad_words,omitempty"`
	BadWordWildcards []string `json:"bad_word_wildcards,omitempty"`

	// escalation configuration
	HalfLife     Duration                `json:"half_life"`
	Lookback     Duration                `json:"lookback"`
	TierCutoffs  map[ledger.Tier]float64 `json:"tier_cutoffs"`
	TimeoutShort Duration                `json:"timeout_short"`
	TimeoutLong  Duration                `json:"timeout_long"`
}

// TierConfig converts the policy's escalation settings to the ledger's
// computation config.
func (p *CommunityPolicy) TierConfig() ledger.TierConfig {
	return ledger.TierConfig{
		HalfLife: p.HalfLife.Duration,
		Lookback: p.Lookback.Duration,
		Cutoffs:  p.TierCutoffs,
	}
}

// Rule returns the policy for one rule kind; unknown kinds read as disabled.
func (p *CommunityPolicy) Rule(kind event.RuleKind) RulePolicy {
	return p.Rules[kind]
}

// RuleAppliesInChannel reports whether a rule is enabled and not excluded
// from the given channel.
func (p *CommunityPolicy) RuleAppliesInChannel(kind event.RuleKind, channelID string) bool {
	rp, ok := p.Rules[kind]
	if !ok || !rp.Enabled {
		return false
	}
	for _, excluded := range rp.ExcludedChannels {
		if excluded == channelID {
			return false
		}
	}
	return true
}

// Provider supplies policy snapshots per community.
type Provider interface {
	ForCommunity(ctx context.Context, communityID string) (*CommunityPolicy, error)
}
