package rules

import (
	"fmt"

	"github.com/haven-chat/warden/automod/countstore"
	"github.com/haven-chat/warden/automod/engine"
	"github.com/haven-chat/warden/automod/event"
)

var _ engine.JoinRuleFunc = JoinFloodJoinRule

// JoinFloodJoinRule flags members arriving during a join flood (raid). The
// per-community join rate is tracked in the count store, so all consumer
// workers see the same rate.
func JoinFloodJoinRule(c *engine.JoinContext) error {
	if !c.RuleApplies(event.RuleJoinFlood) {
		return nil
	}
	if c.Policy.JoinFloodCount <= 0 {
		return nil
	}
	c.IncrementPeriod("community-joins", c.Event.CommunityID, countstore.PeriodMinute)
	recent := c.GetCount("community-joins", c.Event.CommunityID, countstore.PeriodMinute)
	// the increment above is an effect, not yet persisted; count this join
	if recent+1 >= c.Policy.JoinFloodCount {
		c.AddFinding(event.RuleJoinFlood, 15, fmt.Sprintf("%d joins in the last minute", recent+1))
	}
	return nil
}
