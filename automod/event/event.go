package event

import (
	"time"
)

// Kind of gateway event that the pipeline inspects.
type Kind string

const (
	KindMessageCreate Kind = "message-create"
	KindMessageEdit   Kind = "message-edit"
	KindMemberJoin    Kind = "member-join"
)

// RuleKind identifies a single detector. Values are stable identifiers used
// in ledger entries, audit records, and per-community policy documents.
type RuleKind string

const (
	RuleSpamBurst     RuleKind = "spam-burst"
	RuleMassMention   RuleKind = "mass-mention"
	RuleInviteLink    RuleKind = "invite-link"
	RuleLinkSpam      RuleKind = "link-spam"
	RuleAttachSpam    RuleKind = "attach-spam"
	RuleDuplicateText RuleKind = "duplicate-text"
	RuleCapsRatio     RuleKind = "caps-ratio"
	RuleBadWords      RuleKind = "bad-words"
	RuleToxicity      RuleKind = "toxicity-score"
	RuleJoinFlood     RuleKind = "join-flood"
)

// InspectionEvent is the canonical form of one gateway event, as consumed by
// the rule engine. Immutable once constructed; owned by the pipeline
// invocation that produced it.
type InspectionEvent struct {
	CommunityID string
	AuthorID    string
	ChannelID   string
	// EventID is unique per source event and is the basis for deduplication
	// and action idempotency keys.
	EventID     string
	Kind        Kind
	Content     string
	Mentions    int
	Attachments int
	Links       int
	CreatedAt   time.Time
}

// Finding is one detector's positive result on one event. Immutable.
type Finding struct {
	RuleKind RuleKind
	// Severity on a 0-100 scale; feeds the violation ledger weight.
	Severity uint8
	// Evidence is a short rule-specific payload: matched substring, burst
	// size, classifier score, etc.
	Evidence string
	EventID  string
}
