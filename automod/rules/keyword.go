package rules

import (
	"fmt"
	"strings"

	"github.com/haven-chat/warden/automod/engine"
	"github.com/haven-chat/warden/automod/event"
	"github.com/haven-chat/warden/automod/keyword"
	"github.com/haven-chat/warden/automod/util"
)

var _ engine.MessageRuleFunc = BadWordsMessageRule

// BadWordsMessageRule matches message tokens against the community's word
// list and the global "bad-words" set. Exact entries match whole tokens
// only; wildcard entries match as substrings of the normalized text.
func BadWordsMessageRule(c *engine.MessageContext) error {
	if !c.RuleApplies(event.RuleBadWords) {
		return nil
	}
	if c.Event.Content == "" {
		return nil
	}

	tokens := keyword.TokenizeText(c.Event.Content)
	tokens = append(tokens, keyword.TokenizeTextSkippingCensorChars(c.Event.Content)...)
	tokens = util.DedupeStrings(tokens)

	global := c.SetMembers("bad-words")
	for _, tok := range tokens {
		if keyword.TokenInSet(tok, c.Policy.BadWords) || keyword.TokenInSet(tok, global) {
			c.AddFinding(event.RuleBadWords, 30, fmt.Sprintf("matched: %s", tok))
			return nil
		}
	}

	normalized := util.NormalizeText(c.Event.Content)
	wildcards := append([]string{}, c.Policy.BadWordWildcards...)
	wildcards = append(wildcards, c.SetMembers("bad-word-wildcards")...)
	for _, w := range wildcards {
		if w != "" && strings.Contains(normalized, strings.ToLower(w)) {
			c.AddFinding(event.RuleBadWords, 30, fmt.Sprintf("matched wildcard: %s", w))
			return nil
		}
	}
	return nil
}
