package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haven-chat/warden/automod/event"
	"github.com/haven-chat/warden/automod/ledger"
	"github.com/haven-chat/warden/automod/policy"
)

func msgEvent(id, content string) event.InspectionEvent {
	return event.InspectionEvent{
		CommunityID: "c1",
		AuthorID:    "u1",
		ChannelID:   "ch1",
		EventID:     id,
		Kind:        event.KindMessageCreate,
		Content:     content,
		CreatedAt:   time.Now(),
	}
}

// flags every message with a fixed severity
func alwaysFlagRule(severity uint8) MessageRuleFunc {
	return func(c *MessageContext) error {
		c.AddFinding(event.RuleSpamBurst, severity, "test")
		return nil
	}
}

func TestDuplicateEventSkipped(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	runs := 0
	rules := RuleSet{MessageRules: []MessageRuleFunc{func(c *MessageContext) error {
		runs++
		return nil
	}}}
	eng, _, _ := EngineTestFixture(filepath.Join(t.TempDir(), "warden.sqlite"), rules)

	evt := msgEvent("m1", "hello")
	assert.NoError(eng.ProcessMessage(ctx, evt))
	assert.NoError(eng.ProcessMessage(ctx, evt))
	assert.Equal(1, runs)
}

func TestPanicInRuleRecovered(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	rules := RuleSet{MessageRules: []MessageRuleFunc{func(c *MessageContext) error {
		panic("rule blew up")
	}}}
	eng, _, _ := EngineTestFixture(filepath.Join(t.TempDir(), "warden.sqlite"), rules)

	assert.NotPanics(func() {
		_ = eng.ProcessMessage(ctx, msgEvent("m1", "hello"))
	})
}

func TestRuleErrorDoesNotSuppressOtherRules(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	rules := RuleSet{MessageRules: []MessageRuleFunc{
		func(c *MessageContext) error { return fmt.Errorf("broken rule") },
		alwaysFlagRule(60),
	}}
	eng, _, _ := EngineTestFixture(filepath.Join(t.TempDir(), "warden.sqlite"), rules)

	assert.NoError(eng.ProcessMessage(ctx, msgEvent("m1", "hello")))

	tier, err := eng.Ledger.CurrentTier(ctx, "c1", "u1", policy.DefaultPolicy().TierConfig())
	assert.NoError(err)
	assert.Equal(ledger.TierTimeoutShort, tier)
}

func TestTimeoutApplied(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	// severity 60 decays from 60; above the default short-timeout cutoff
	rules := RuleSet{MessageRules: []MessageRuleFunc{alwaysFlagRule(60)}}
	eng, mock, _ := EngineTestFixture(filepath.Join(t.TempDir(), "warden.sqlite"), rules)

	assert.NoError(eng.ProcessMessage(ctx, msgEvent("m1", "hello")))

	calls := mock.CallsOfKind("timeout")
	require.Len(t, calls, 1)
	assert.Equal("u1", calls[0].UserID)
	assert.Equal("c1", calls[0].CommunityID)
}

func TestDeleteRequestedByPolicy(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	rules := RuleSet{MessageRules: []MessageRuleFunc{func(c *MessageContext) error {
		c.AddFinding(event.RuleBadWords, 30, "matched: x")
		return nil
	}}}
	eng, mock, _ := EngineTestFixture(filepath.Join(t.TempDir(), "warden.sqlite"), rules)

	assert.NoError(eng.ProcessMessage(ctx, msgEvent("m1", "x")))

	// default policy asks for message deletion on bad-words findings
	calls := mock.CallsOfKind("delete-message")
	require.Len(t, calls, 1)
	assert.Equal("m1", calls[0].MessageID)
}

func TestNoticeTierNudgesWithDailyCap(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	rules := RuleSet{MessageRules: []MessageRuleFunc{func(c *MessageContext) error {
		c.AddFinding(event.RuleSpamBurst, 5, "test")
		return nil
	}}}
	eng, mock, _ := EngineTestFixture(filepath.Join(t.TempDir(), "warden.sqlite"), rules)

	// severity 5 each: weight stays in notice range for the first few, and
	// the per-user daily notice cap kicks in well before the tier rises
	for i := 0; i < QuotaNoticeUserDay+3; i++ {
		evt := msgEvent(fmt.Sprintf("m%d", i), "hello")
		assert.NoError(eng.ProcessMessage(ctx, evt))
	}
	notices := mock.CallsOfKind("notice")
	assert.NotEmpty(notices)
	assert.LessOrEqual(len(notices), QuotaNoticeUserDay)
}

func TestDisabledCommunitySkipsRules(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	runs := 0
	rules := RuleSet{MessageRules: []MessageRuleFunc{func(c *MessageContext) error {
		runs++
		return nil
	}}}
	eng, _, _ := EngineTestFixture(filepath.Join(t.TempDir(), "warden.sqlite"), rules)

	off := policy.DefaultPolicy()
	off.Enabled = false
	eng.Policies.(*policy.StaticProvider).Set("c1", off)

	assert.NoError(eng.ProcessMessage(ctx, msgEvent("m1", "hello")))
	assert.Equal(0, runs)
}

func TestWindowExcludesCurrentEvent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var sizes []int
	rules := RuleSet{MessageRules: []MessageRuleFunc{func(c *MessageContext) error {
		sizes = append(sizes, len(c.Window.Messages))
		return nil
	}}}
	eng, _, _ := EngineTestFixture(filepath.Join(t.TempDir(), "warden.sqlite"), rules)

	for i := 0; i < 3; i++ {
		evt := msgEvent(fmt.Sprintf("m%d", i), "hello")
		assert.NoError(eng.ProcessMessage(ctx, evt))
	}
	assert.Equal([]int{0, 1, 2}, sizes)
}

func TestContentScoreMemoized(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	rules := RuleSet{MessageRules: []MessageRuleFunc{
		func(c *MessageContext) error {
			_, err := c.ContentScore()
			return err
		},
		func(c *MessageContext) error {
			_, err := c.ContentScore()
			return err
		},
	}}
	eng, _, stub := EngineTestFixture(filepath.Join(t.TempDir(), "warden.sqlite"), rules)

	assert.NoError(eng.ProcessMessage(ctx, msgEvent("m1", "hello")))
	assert.Equal(1, stub.Calls())
}

func TestJoinRulesRun(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	runs := 0
	rules := RuleSet{JoinRules: []JoinRuleFunc{func(c *JoinContext) error {
		runs++
		return nil
	}}}
	eng, _, _ := EngineTestFixture(filepath.Join(t.TempDir(), "warden.sqlite"), rules)

	evt := event.InspectionEvent{
		CommunityID: "c1",
		AuthorID:    "u9",
		EventID:     "j1",
		Kind:        event.KindMemberJoin,
		CreatedAt:   time.Now(),
	}
	assert.NoError(eng.ProcessJoin(ctx, evt))
	assert.Equal(1, runs)
}
