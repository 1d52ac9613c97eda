package engine

import (
	"context"
	"log/slog"

	"github.com/haven-chat/warden/automod/classifier"
	"github.com/haven-chat/warden/automod/event"
	"github.com/haven-chat/warden/automod/policy"
	"github.com/haven-chat/warden/automod/window"
)

// The primary interface exposed to rules. All other contexts derive from this "base" struct.
type BaseContext struct {
	// Actual golang "context.Context", if needed for timeouts etc
	Ctx context.Context
	// Any errors encountered while processing methods on this struct (or sub-types) get rolled up in this nullable field
	Err error
	// slog logger handle, with event-specific structured fields pre-populated. Pointer, but expected to never be nil.
	Logger *slog.Logger

	engine  *Engine // NOTE: pointer, but expected never to be nil
	effects *Effects
}

// MessageContext is handed to message rules: the event under inspection, the
// community's policy snapshot, and the author's recent-history snapshot. All
// three are stable for the duration of the evaluation.
type MessageContext struct {
	BaseContext

	Event  event.InspectionEvent
	Policy *policy.CommunityPolicy
	Window *window.UserWindow

	// classifier score for this event's content, memoized across rules
	score     *classifier.Score
	scoreErr  error
	scoreDone bool
}

// JoinContext is handed to member-join rules.
type JoinContext struct {
	BaseContext

	Event  event.InspectionEvent
	Policy *policy.CommunityPolicy
}

func NewMessageContext(ctx context.Context, eng *Engine, evt event.InspectionEvent, pol *policy.CommunityPolicy, win *window.UserWindow) MessageContext {
	return MessageContext{
		BaseContext: BaseContext{
			Ctx:     ctx,
			Err:     nil,
			Logger:  eng.Logger.With("community", evt.CommunityID, "author", evt.AuthorID, "eventID", evt.EventID),
			engine:  eng,
			effects: &Effects{},
		},
		Event:  evt,
		Policy: pol,
		Window: win,
	}
}

func NewJoinContext(ctx context.Context, eng *Engine, evt event.InspectionEvent, pol *policy.CommunityPolicy) JoinContext {
	return JoinContext{
		BaseContext: BaseContext{
			Ctx:     ctx,
			Err:     nil,
			Logger:  eng.Logger.With("community", evt.CommunityID, "author", evt.AuthorID, "eventID", evt.EventID),
			engine:  eng,
			effects: &Effects{},
		},
		Event:  evt,
		Policy: pol,
	}
}

// request external state via engine (indirect)
func (c *BaseContext) GetCount(name, val, period string) int {
	out, err := c.engine.Counters.GetCount(c.Ctx, name, val, period)
	if err != nil {
		if nil == c.Err {
			c.Err = err
		}
		return 0
	}
	return out
}

func (c *BaseContext) GetCountDistinct(name, bucket, period string) int {
	out, err := c.engine.Counters.GetCountDistinct(c.Ctx, name, bucket, period)
	if err != nil {
		if nil == c.Err {
			c.Err = err
		}
		return 0
	}
	return out
}

func (c *BaseContext) InSet(name, val string) bool {
	out, err := c.engine.Sets.InSet(c.Ctx, name, val)
	if err != nil {
		if nil == c.Err {
			c.Err = err
		}
		return false
	}
	return out
}

func (c *BaseContext) SetMembers(name string) []string {
	out, err := c.engine.Sets.Members(c.Ctx, name)
	if err != nil {
		if nil == c.Err {
			c.Err = err
		}
		return nil
	}
	return out
}

// update effects (indirect) ======

func (c *BaseContext) Increment(name, val string) {
	c.effects.Increment(name, val)
}

func (c *BaseContext) IncrementDistinct(name, bucket, val string) {
	c.effects.IncrementDistinct(name, bucket, val)
}

func (c *BaseContext) IncrementPeriod(name, val string, period string) {
	c.effects.IncrementPeriod(name, val, period)
}

// RuleApplies reports whether the given rule is enabled for this community
// and not excluded from the event's channel. Rules call this first and
// return immediately when it is false.
func (c *MessageContext) RuleApplies(kind event.RuleKind) bool {
	return c.Policy.RuleAppliesInChannel(kind, c.Event.ChannelID)
}

func (c *JoinContext) RuleApplies(kind event.RuleKind) bool {
	return c.Policy.Rule(kind).Enabled
}

// AddFinding enqueues a finding against the event being processed.
func (c *MessageContext) AddFinding(kind event.RuleKind, severity uint8, evidence string) {
	c.effects.AddFinding(event.Finding{
		RuleKind: kind,
		Severity: severity,
		Evidence: evidence,
		EventID:  c.Event.EventID,
	})
}

func (c *JoinContext) AddFinding(kind event.RuleKind, severity uint8, evidence string) {
	c.effects.AddFinding(event.Finding{
		RuleKind: kind,
		Severity: severity,
		Evidence: evidence,
		EventID:  c.Event.EventID,
	})
}

// ContentScore returns the classifier verdict for this event's content,
// calling the classifier at most once per event regardless of how many rules
// ask. The error is the classifier's; rules decide their own fallback.
func (c *MessageContext) ContentScore() (*classifier.Score, error) {
	if !c.scoreDone {
		c.scoreDone = true
		if c.engine.Classifier == nil {
			c.scoreErr = classifier.ErrUnavailable
		} else {
			c.score, c.scoreErr = c.engine.Classifier.ScoreText(c.Ctx, c.Event.Content)
		}
	}
	return c.score, c.scoreErr
}

// Returns a pointer to the underlying automod engine. This usually should NOT be used in rules.
func (c *BaseContext) InternalEngine() *Engine {
	return c.engine
}
