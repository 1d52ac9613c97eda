package rules

import (
	"fmt"

	"github.com/haven-chat/warden/automod/engine"
	"github.com/haven-chat/warden/automod/event"
)

var _ engine.MessageRuleFunc = MassMentionMessageRule

// MassMentionMessageRule flags messages pinging an unusually large number of
// distinct users. Self-mentions and bot mentions were already excluded
// during normalization.
func MassMentionMessageRule(c *engine.MessageContext) error {
	if !c.RuleApplies(event.RuleMassMention) {
		return nil
	}
	if c.Policy.MassMentionCount <= 0 || c.Event.Mentions < c.Policy.MassMentionCount {
		return nil
	}
	c.Increment("mass-mention", c.Event.AuthorID)
	c.AddFinding(event.RuleMassMention, 40, fmt.Sprintf("%d mentions", c.Event.Mentions))
	return nil
}
