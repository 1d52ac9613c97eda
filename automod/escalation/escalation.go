// Package escalation maps (rule kind, escalation tier, community policy) to
// a concrete enforcement decision. Pure lookup logic, no side effects; the
// executor owns all effectful work.
package escalation

import (
	"fmt"
	"time"

	"github.com/haven-chat/warden/automod/event"
	"github.com/haven-chat/warden/automod/ledger"
	"github.com/haven-chat/warden/automod/policy"
	"github.com/haven-chat/warden/automod/util"
)

type ActionKind string

const (
	ActionDeleteMessage ActionKind = "delete-message"
	ActionWarn          ActionKind = "warn"
	ActionTimeout       ActionKind = "timeout"
	ActionKick          ActionKind = "kick"
	ActionBan           ActionKind = "ban"
)

// Action is a fully-specified enforcement request. The idempotency key is a
// deterministic function of (triggering event, rule kind, tier), so retries
// and duplicate deliveries of the same event produce the same key.
type Action struct {
	Kind              ActionKind
	CommunityID       string
	ChannelID         string
	MessageID         string
	TargetUserID      string
	Reason            string
	Duration          time.Duration // timeouts only
	TriggeringEventID string
	IdempotencyKey    string
}

// IdempotencyKey derives the at-most-once key for an enforcement decision.
func IdempotencyKey(eventID string, kind event.RuleKind, tier ledger.Tier) string {
	return util.HashOfString(fmt.Sprintf("%s/%s/%s", eventID, kind, tier))
}

// Decision is the tier-mapped outcome before target identifiers are filled
// in: what to do and, for timeouts, for how long.
type Decision struct {
	Kind     ActionKind
	Duration time.Duration
}

// Decide returns the enforcement decision for one finding's rule kind at the
// user's current tier, or false when no action is warranted. Notice-tier
// findings accrue ledger weight without enforcement unless the rule policy
// opts into warning.
func Decide(kind event.RuleKind, tier ledger.Tier, pol *policy.CommunityPolicy) (Decision, bool) {
	rp, ok := pol.Rules[kind]
	if !ok || !rp.Enabled {
		return Decision{}, false
	}
	switch tier {
	case ledger.TierNone:
		return Decision{}, false
	case ledger.TierNotice:
		if rp.WarnOnNotice {
			return Decision{Kind: ActionWarn}, true
		}
		return Decision{}, false
	case ledger.TierTimeoutShort:
		return Decision{Kind: ActionTimeout, Duration: pol.TimeoutShort.Duration}, true
	case ledger.TierTimeoutLong:
		return Decision{Kind: ActionTimeout, Duration: pol.TimeoutLong.Duration}, true
	case ledger.TierKick:
		return Decision{Kind: ActionKick}, true
	case ledger.TierBan:
		return Decision{Kind: ActionBan}, true
	}
	return Decision{}, false
}

// ShouldDelete reports whether the rule's policy asks for removal of the
// offending message, independent of tier.
func ShouldDelete(kind event.RuleKind, pol *policy.CommunityPolicy) bool {
	rp, ok := pol.Rules[kind]
	return ok && rp.Enabled && rp.DeleteMessage
}
