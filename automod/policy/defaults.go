package policy

import (
	"encoding/json"
	"time"

	"github.com/haven-chat/warden/automod/event"
	"github.com/haven-chat/warden/automod/ledger"
)

// DefaultPolicy returns the baseline configuration applied to communities
// with no stored policy document, and used to backfill missing keys in
// stored documents.
func DefaultPolicy() *CommunityPolicy {
	return &CommunityPolicy{
		Enabled: true,
		Rules: map[event.RuleKind]RulePolicy{
			event.RuleSpamBurst:     {Enabled: true},
			event.RuleMassMention:   {Enabled: true, DeleteMessage: true},
			event.RuleInviteLink:    {Enabled: true, DeleteMessage: true},
			event.RuleLinkSpam:      {Enabled: true, DeleteMessage: true},
			event.RuleAttachSpam:    {Enabled: true, DeleteMessage: true},
			event.RuleDuplicateText: {Enabled: true},
			event.RuleCapsRatio:     {Enabled: true, DeleteMessage: true},
			event.RuleBadWords:      {Enabled: true, DeleteMessage: true},
			event.RuleToxicity:      {Enabled: true, DeleteMessage: true},
			event.RuleJoinFlood:     {Enabled: true},
		},

		SpamBurstCount:    5,
		SpamBurstWindow:   Duration{5 * time.Second},
		MassMentionCount:  10,
		LinkCountMax:      7,
		LinkBurstCount:    10,
		LinkBurstWindow:   Duration{30 * time.Second},
		AttachBurstCount:  8,
		AttachBurstWindow: Duration{30 * time.Second},
		CapsMinLength:     16,
		CapsRatio:         0.6,
		DuplicateWindow:   Duration{2 * time.Minute},
		JoinFloodCount:    20,
		ToxicityThreshold: 0.8,

		HalfLife: Duration{time.Hour},
		Lookback: Duration{24 * time.Hour},
		TierCutoffs: map[ledger.Tier]float64{
			ledger.TierNotice:       20,
			ledger.TierTimeoutShort: 50,
			ledger.TierTimeoutLong:  90,
			ledger.TierKick:         140,
			ledger.TierBan:          200,
		},
		TimeoutShort: Duration{15 * time.Minute},
		TimeoutLong:  Duration{2 * time.Hour},
	}
}

// mergeWithDefaults parses a stored policy document, backfilling any missing
// keys from the defaults and dropping unknown rule kinds. Stored documents
// written by older settings editors stay readable this way.
func mergeWithDefaults(doc []byte) (*CommunityPolicy, error) {
	out := DefaultPolicy()
	if len(doc) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(doc, out); err != nil {
		return nil, err
	}
	defaults := DefaultPolicy()
	if out.Rules == nil {
		out.Rules = defaults.Rules
	} else {
		for kind, rp := range defaults.Rules {
			if _, ok := out.Rules[kind]; !ok {
				out.Rules[kind] = rp
			}
		}
		for kind := range out.Rules {
			if _, ok := defaults.Rules[kind]; !ok {
				delete(out.Rules, kind)
			}
		}
	}
	if out.TierCutoffs == nil {
		out.TierCutoffs = defaults.TierCutoffs
	}
	return out, nil
}
