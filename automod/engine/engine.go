package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/haven-chat/warden/automod/cachestore"
	"github.com/haven-chat/warden/automod/classifier"
	"github.com/haven-chat/warden/automod/countstore"
	"github.com/haven-chat/warden/automod/escalation"
	"github.com/haven-chat/warden/automod/event"
	"github.com/haven-chat/warden/automod/executor"
	"github.com/haven-chat/warden/automod/ledger"
	"github.com/haven-chat/warden/automod/policy"
	"github.com/haven-chat/warden/automod/setstore"
	"github.com/haven-chat/warden/automod/util"
	"github.com/haven-chat/warden/automod/window"
)

const seenCacheName = "event-seen"

// runtime for executing rules, managing state, and applying enforcement
// actions.
//
// TODO: careful when initializing: several fields should not be null or zero, even though they are pointer type.
type Engine struct {
	Logger   *slog.Logger
	Rules    RuleSet
	Counters countstore.CountStore
	Sets     setstore.SetStore
	Cache    cachestore.CacheStore
	Windows  window.Store
	Policies policy.Provider
	Ledger   *ledger.Tracker
	// Classifier is the guarded process-wide client (optional; the
	// toxicity rule fails open when nil)
	Classifier classifier.Client
	Executor   *executor.Executor
}

// ProcessMessage runs the full pipeline for one message event: dedupe,
// policy snapshot, rule evaluation, ledger write, escalation, enforcement,
// history append. An error return means the event was NOT fully processed
// and may be redelivered; completed enforcement is idempotent across
// redeliveries.
func (eng *Engine) ProcessMessage(ctx context.Context, evt event.InspectionEvent) error {
	// similar to an HTTP server, we want to recover any panics from rule execution
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("automod event execution exception", "err", r, "eventID", evt.EventID)
			eventErrorCount.WithLabelValues(string(evt.Kind)).Inc()
		}
	}()
	start := time.Now()
	defer func() {
		eventProcessDuration.WithLabelValues(string(evt.Kind)).Observe(time.Since(start).Seconds())
	}()
	eventProcessCount.WithLabelValues(string(evt.Kind)).Inc()

	if seen, err := eng.alreadySeen(ctx, evt.EventID); err != nil {
		return err
	} else if seen {
		eventDupeCount.Inc()
		eng.Logger.Debug("skipping duplicate event", "eventID", evt.EventID)
		return nil
	}

	pol, err := eng.Policies.ForCommunity(ctx, evt.CommunityID)
	if err != nil {
		eventErrorCount.WithLabelValues(string(evt.Kind)).Inc()
		return fmt.Errorf("loading community policy: %w", err)
	}
	if !pol.Enabled {
		return eng.markSeen(ctx, evt.EventID)
	}

	win, err := eng.Windows.Snapshot(ctx, evt.CommunityID, evt.AuthorID)
	if err != nil {
		eventErrorCount.WithLabelValues(string(evt.Kind)).Inc()
		return fmt.Errorf("loading user window: %w", err)
	}

	c := NewMessageContext(ctx, eng, evt, pol, win)
	eng.Rules.CallMessageRules(&c)

	if err := eng.enforceFindings(ctx, &c.BaseContext, evt, pol, c.score); err != nil {
		eventErrorCount.WithLabelValues(string(evt.Kind)).Inc()
		return err
	}

	// history append happens after evaluation, so detectors never see the
	// event they are judging
	if evt.Kind == event.KindMessageCreate {
		m := window.Message{
			At:          evt.CreatedAt,
			ContentHash: util.HashOfString(util.NormalizeText(evt.Content)),
			Attachments: evt.Attachments,
			Links:       evt.Links,
		}
		if err := eng.Windows.RecordMessage(ctx, evt.CommunityID, evt.AuthorID, m); err != nil {
			eventErrorCount.WithLabelValues(string(evt.Kind)).Inc()
			return fmt.Errorf("recording user window: %w", err)
		}
	}

	if err := eng.persistCounters(ctx, c.effects); err != nil {
		return err
	}
	eng.canonicalLogLine(&c.BaseContext, evt, c.effects)
	return eng.markSeen(ctx, evt.EventID)
}

// ProcessJoin runs the pipeline for a member-join event. Joins carry no
// content and no message history; only join rules run.
func (eng *Engine) ProcessJoin(ctx context.Context, evt event.InspectionEvent) error {
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("automod event execution exception", "err", r, "eventID", evt.EventID)
			eventErrorCount.WithLabelValues(string(evt.Kind)).Inc()
		}
	}()
	start := time.Now()
	defer func() {
		eventProcessDuration.WithLabelValues(string(evt.Kind)).Observe(time.Since(start).Seconds())
	}()
	eventProcessCount.WithLabelValues(string(evt.Kind)).Inc()

	if seen, err := eng.alreadySeen(ctx, evt.EventID); err != nil {
		return err
	} else if seen {
		eventDupeCount.Inc()
		return nil
	}

	pol, err := eng.Policies.ForCommunity(ctx, evt.CommunityID)
	if err != nil {
		eventErrorCount.WithLabelValues(string(evt.Kind)).Inc()
		return fmt.Errorf("loading community policy: %w", err)
	}
	if !pol.Enabled {
		return eng.markSeen(ctx, evt.EventID)
	}

	c := NewJoinContext(ctx, eng, evt, pol)
	eng.Rules.CallJoinRules(&c)

	if err := eng.enforceFindings(ctx, &c.BaseContext, evt, pol, nil); err != nil {
		eventErrorCount.WithLabelValues(string(evt.Kind)).Inc()
		return err
	}

	if err := eng.persistCounters(ctx, c.effects); err != nil {
		return err
	}
	eng.canonicalLogLine(&c.BaseContext, evt, c.effects)
	return eng.markSeen(ctx, evt.EventID)
}

// enforceFindings records findings to the ledger and applies the resulting
// tier's actions. Once findings exist, the ledger and audit writes proceed
// even if the inbound context gets cancelled: the decision has been made.
func (eng *Engine) enforceFindings(ctx context.Context, c *BaseContext, evt event.InspectionEvent, pol *policy.CommunityPolicy, score *classifier.Score) error {
	findings := c.effects.Findings
	if len(findings) == 0 {
		return nil
	}
	for _, f := range findings {
		findingCount.WithLabelValues(string(f.RuleKind)).Inc()
	}

	writeCtx := context.WithoutCancel(ctx)
	tier, err := eng.Ledger.Record(writeCtx, evt.CommunityID, evt.AuthorID, findings, pol.TierConfig())
	if err != nil {
		return err
	}
	tierCount.WithLabelValues(tier.String()).Inc()
	c.Logger = c.Logger.With("tier", tier)

	deleted := false
	noticed := false
	for _, f := range findings {
		if !deleted && evt.Kind != event.KindMemberJoin && escalation.ShouldDelete(f.RuleKind, pol) {
			deleted = true
			act := escalation.Action{
				Kind:              escalation.ActionDeleteMessage,
				CommunityID:       evt.CommunityID,
				ChannelID:         evt.ChannelID,
				MessageID:         evt.EventID,
				TargetUserID:      evt.AuthorID,
				Reason:            fmt.Sprintf("%s: %s", f.RuleKind, f.Evidence),
				TriggeringEventID: evt.EventID,
				IdempotencyKey:    escalation.IdempotencyKey(evt.EventID, f.RuleKind, ledger.TierNone),
			}
			if _, err := eng.Executor.Apply(writeCtx, act, nil); err != nil {
				return err
			}
		}

		decision, ok := escalation.Decide(f.RuleKind, tier, pol)
		if !ok {
			if tier == ledger.TierNotice && !noticed {
				noticed = true
				eng.sendNotice(writeCtx, c, evt, f)
			}
			continue
		}
		act := escalation.Action{
			Kind:              decision.Kind,
			CommunityID:       evt.CommunityID,
			ChannelID:         evt.ChannelID,
			TargetUserID:      evt.AuthorID,
			Reason:            fmt.Sprintf("%s: %s", f.RuleKind, f.Evidence),
			Duration:          decision.Duration,
			TriggeringEventID: evt.EventID,
			IdempotencyKey:    escalation.IdempotencyKey(evt.EventID, f.RuleKind, tier),
		}
		var snap *executor.ClassifierSnapshot
		if f.RuleKind == event.RuleToxicity && score != nil {
			snap = &executor.ClassifierSnapshot{Score: score.Toxicity, Model: score.ModelVersion}
		}
		rec, err := eng.Executor.Apply(writeCtx, act, snap)
		if err != nil {
			return err
		}
		c.Logger.Info("action applied", "action", act.Kind, "rule", f.RuleKind, "result", rec.Result)
	}
	return nil
}

// sendNotice posts the notice-tier in-channel nudge, rate-capped per user
// per day. Notices are not enforcement actions and are not audited.
func (eng *Engine) sendNotice(ctx context.Context, c *BaseContext, evt event.InspectionEvent, f event.Finding) {
	val := evt.CommunityID + "/" + evt.AuthorID
	count, err := eng.Counters.GetCount(ctx, "automod-notice", val, countstore.PeriodDay)
	if err != nil {
		c.Logger.Warn("notice quota read failed", "err", err)
		return
	}
	if count >= QuotaNoticeUserDay {
		return
	}
	text := fmt.Sprintf("<@%s> please slow down: %s", evt.AuthorID, f.RuleKind)
	if err := eng.Executor.Platform.SendNotice(ctx, evt.CommunityID, evt.ChannelID, text); err != nil {
		c.Logger.Warn("sending notice failed", "err", err)
		return
	}
	if err := eng.Counters.IncrementPeriod(ctx, "automod-notice", val, countstore.PeriodDay); err != nil {
		c.Logger.Warn("notice quota increment failed", "err", err)
	}
}

func (eng *Engine) persistCounters(ctx context.Context, eff *Effects) error {
	for _, ref := range eff.CounterIncrements {
		if ref.Period != nil {
			if err := eng.Counters.IncrementPeriod(ctx, ref.Name, ref.Val, *ref.Period); err != nil {
				return err
			}
		} else {
			if err := eng.Counters.Increment(ctx, ref.Name, ref.Val); err != nil {
				return err
			}
		}
	}
	for _, ref := range eff.CounterDistinctIncrements {
		if err := eng.Counters.IncrementDistinct(ctx, ref.Name, ref.Bucket, ref.Val); err != nil {
			return err
		}
	}
	return nil
}

func (eng *Engine) alreadySeen(ctx context.Context, eventID string) (bool, error) {
	val, err := eng.Cache.Get(ctx, seenCacheName, eventID)
	if err != nil {
		return false, fmt.Errorf("event dedupe read: %w", err)
	}
	return val != "", nil
}

// markSeen records the event as fully processed. Only called after all
// writes succeed, so a crash mid-event leads to redelivery rather than a
// silently dropped event.
func (eng *Engine) markSeen(ctx context.Context, eventID string) error {
	if err := eng.Cache.Set(ctx, seenCacheName, eventID, "1"); err != nil {
		return fmt.Errorf("event dedupe write: %w", err)
	}
	return nil
}

func (eng *Engine) canonicalLogLine(c *BaseContext, evt event.InspectionEvent, eff *Effects) {
	c.Logger.Info("canonical-event-line",
		"kind", evt.Kind,
		"findings", len(eff.Findings),
		"counters", len(eff.CounterIncrements),
	)
}
