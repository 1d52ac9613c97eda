package rules

import (
	"fmt"

	"github.com/haven-chat/warden/automod/engine"
	"github.com/haven-chat/warden/automod/event"
)

var _ engine.MessageRuleFunc = ToxicityMessageRule

// ToxicityMessageRule asks the external classifier to score the message and
// flags scores at or above the community's threshold. Fails open: when the
// classifier is unavailable the rule simply yields no finding; the
// deterministic rules still run on the same event.
func ToxicityMessageRule(c *engine.MessageContext) error {
	if !c.RuleApplies(event.RuleToxicity) {
		return nil
	}
	if c.Event.Content == "" || c.Policy.ToxicityThreshold <= 0 {
		return nil
	}
	score, err := c.ContentScore()
	if err != nil {
		c.Increment("classifier-unavailable", c.Event.CommunityID)
		c.Logger.Debug("classifier unavailable, skipping toxicity rule", "err", err)
		return nil
	}
	if score.Toxicity >= c.Policy.ToxicityThreshold {
		c.AddFinding(event.RuleToxicity, 45, fmt.Sprintf("toxicity %.3f (%s)", score.Toxicity, score.ModelVersion))
	}
	return nil
}
