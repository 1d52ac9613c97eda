package rules

import (
	"github.com/haven-chat/warden/automod/engine"
)

func DefaultRules() engine.RuleSet {
	rules := engine.RuleSet{
		MessageRules: []engine.MessageRuleFunc{
			SpamBurstMessageRule,
			DuplicateTextMessageRule,
			MassMentionMessageRule,
			InviteLinkMessageRule,
			LinkSpamMessageRule,
			AttachSpamMessageRule,
			CapsRatioMessageRule,
			BadWordsMessageRule,
			ToxicityMessageRule,
		},
		JoinRules: []engine.JoinRuleFunc{
			JoinFloodJoinRule,
		},
	}
	return rules
}
