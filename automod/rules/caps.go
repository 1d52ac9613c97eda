package rules

import (
	"fmt"
	"unicode"

	"github.com/haven-chat/warden/automod/engine"
	"github.com/haven-chat/warden/automod/event"
)

var _ engine.MessageRuleFunc = CapsRatioMessageRule

// CapsRatioMessageRule flags shouting: messages above a minimum length whose
// letters are mostly upper-case. The ratio only considers cased letters, so
// digits, emoji, and CJK text never count against the author.
func CapsRatioMessageRule(c *engine.MessageContext) error {
	if !c.RuleApplies(event.RuleCapsRatio) {
		return nil
	}
	if len(c.Event.Content) < c.Policy.CapsMinLength || c.Policy.CapsRatio <= 0 {
		return nil
	}
	var upper, letters int
	for _, r := range c.Event.Content {
		if unicode.IsUpper(r) {
			upper++
			letters++
		} else if unicode.IsLower(r) {
			letters++
		}
	}
	if letters == 0 {
		return nil
	}
	ratio := float64(upper) / float64(letters)
	if ratio > c.Policy.CapsRatio {
		c.AddFinding(event.RuleCapsRatio, 10, fmt.Sprintf("caps ratio %.2f", ratio))
	}
	return nil
}
