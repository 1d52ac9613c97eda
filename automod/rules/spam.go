package rules

import (
	"fmt"

	"github.com/haven-chat/warden/automod/engine"
	"github.com/haven-chat/warden/automod/event"
	"github.com/haven-chat/warden/automod/util"
)

var _ engine.MessageRuleFunc = SpamBurstMessageRule

// SpamBurstMessageRule flags users sending messages faster than the
// community's burst threshold. The window snapshot excludes the current
// message, so the burst count is prior messages plus this one.
func SpamBurstMessageRule(c *engine.MessageContext) error {
	if !c.RuleApplies(event.RuleSpamBurst) {
		return nil
	}
	if c.Policy.SpamBurstCount <= 0 {
		return nil
	}
	burst := c.Window.CountSince(c.Event.CreatedAt.Add(-c.Policy.SpamBurstWindow.Duration)) + 1
	if burst >= c.Policy.SpamBurstCount {
		c.AddFinding(event.RuleSpamBurst, burstSeverity(burst, c.Policy.SpamBurstCount), fmt.Sprintf("%d messages in %s", burst, c.Policy.SpamBurstWindow.Duration))
	}
	return nil
}

// burstSeverity grows with how far past the threshold the burst runs; a user
// sustaining a flood weighs more in the ledger than one barely over the line.
func burstSeverity(burst, threshold int) uint8 {
	sev := 25 + 5*(burst-threshold)
	if sev > 100 {
		sev = 100
	}
	return uint8(sev)
}

var _ engine.MessageRuleFunc = DuplicateTextMessageRule

// DuplicateTextMessageRule flags repeats of a recently sent message.
// Matching is on the normalized content hash; trivially short messages
// ("ok", "lol") are ignored.
func DuplicateTextMessageRule(c *engine.MessageContext) error {
	if !c.RuleApplies(event.RuleDuplicateText) {
		return nil
	}
	if len(c.Event.Content) < 10 {
		return nil
	}
	hash := util.HashOfString(util.NormalizeText(c.Event.Content))
	since := c.Event.CreatedAt.Add(-c.Policy.DuplicateWindow.Duration)
	if c.Window.HasContentHash(hash, since) {
		c.AddFinding(event.RuleDuplicateText, 20, "repeated message content")
	}
	return nil
}

var _ engine.MessageRuleFunc = AttachSpamMessageRule

// AttachSpamMessageRule flags bursts of attachment-carrying messages.
func AttachSpamMessageRule(c *engine.MessageContext) error {
	if !c.RuleApplies(event.RuleAttachSpam) {
		return nil
	}
	if c.Policy.AttachBurstCount <= 0 || c.Event.Attachments == 0 {
		return nil
	}
	since := c.Event.CreatedAt.Add(-c.Policy.AttachBurstWindow.Duration)
	total := c.Window.AttachmentsSince(since) + c.Event.Attachments
	if total >= c.Policy.AttachBurstCount {
		c.AddFinding(event.RuleAttachSpam, 25, fmt.Sprintf("%d attachments in %s", total, c.Policy.AttachBurstWindow.Duration))
	}
	return nil
}
