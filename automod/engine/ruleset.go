package engine

type MessageRuleFunc = func(c *MessageContext) error
type JoinRuleFunc = func(c *JoinContext) error

// Holds configuration of which rules of various types should be run, and helps dispatch events to those rules.
type RuleSet struct {
	MessageRules []MessageRuleFunc
	JoinRules    []JoinRuleFunc
}

// Executes all message rules. A failing rule is logged and skipped; its
// error never suppresses findings from the other rules.
func (r *RuleSet) CallMessageRules(c *MessageContext) {
	for _, f := range r.MessageRules {
		if err := f(c); err != nil {
			ruleErrorCount.Inc()
			c.Logger.Warn("rule execution failed", "err", err)
		}
		// per-method errors rolled up on the context count as rule
		// failures too
		if c.Err != nil {
			ruleErrorCount.Inc()
			c.Logger.Warn("rule state access failed", "err", c.Err)
			c.Err = nil
		}
	}
}

// Executes rules for member-join events.
func (r *RuleSet) CallJoinRules(c *JoinContext) {
	for _, f := range r.JoinRules {
		if err := f(c); err != nil {
			ruleErrorCount.Inc()
			c.Logger.Warn("rule execution failed", "err", err)
		}
		if c.Err != nil {
			ruleErrorCount.Inc()
			c.Logger.Warn("rule state access failed", "err", c.Err)
			c.Err = nil
		}
	}
}
