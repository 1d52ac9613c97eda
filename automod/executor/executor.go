// Package executor turns escalation decisions into platform calls, exactly
// once per idempotency key, with a durable audit record for every attempt.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/haven-chat/warden/automod/audit"
	"github.com/haven-chat/warden/automod/countstore"
	"github.com/haven-chat/warden/automod/escalation"
	"github.com/haven-chat/warden/automod/platform"
)

const quotaCountName = "automod-quota"

// ClassifierSnapshot carries the toxicity score that motivated the action
// into the audit record, so reviewers see what the model saw.
type ClassifierSnapshot struct {
	Score float64
	Model string
}

// Notifier receives a copy of every applied action. Best-effort: failures
// are logged and never block enforcement.
type Notifier interface {
	ActionApplied(ctx context.Context, rec *audit.Record) error
}

type Executor struct {
	Platform platform.Client
	Audit    *audit.Store
	Counters countstore.CountStore
	Notifier Notifier
	Logger   *slog.Logger

	// RetryCeiling bounds platform call attempts per Apply. Attempts beyond
	// the ceiling finalize the record as failed; the engine does not retry
	// a finalized action.
	RetryCeiling int
	BackoffBase  time.Duration
	BackoffMax   time.Duration

	// per-community daily quotas for destructive actions; a mass-trigger
	// incident burns the quota instead of the member list
	QuotaKickDay int
	QuotaBanDay  int
}

func New(pc platform.Client, store *audit.Store, counters countstore.CountStore, logger *slog.Logger) *Executor {
	return &Executor{
		Platform:     pc,
		Audit:        store,
		Counters:     counters,
		Logger:       logger.With("subsystem", "executor"),
		RetryCeiling: 4,
		BackoffBase:  250 * time.Millisecond,
		BackoffMax:   8 * time.Second,
		QuotaKickDay: 25,
		QuotaBanDay:  25,
	}
}

// Apply executes one enforcement action at most once. Concurrent or repeated
// calls with the same idempotency key produce a single platform call; losers
// get the winner's record back with Result set to already-applied.
func (x *Executor) Apply(ctx context.Context, act escalation.Action, snap *ClassifierSnapshot) (*audit.Record, error) {
	rec := &audit.Record{
		IdempotencyKey:    act.IdempotencyKey,
		ActionKind:        string(act.Kind),
		CommunityID:       act.CommunityID,
		TargetUserID:      act.TargetUserID,
		ChannelID:         act.ChannelID,
		MessageID:         act.MessageID,
		TriggeringEventID: act.TriggeringEventID,
		Reason:            act.Reason,
		DurationSecs:      int64(act.Duration / time.Second),
	}
	if snap != nil {
		score := snap.Score
		rec.ClassifierScore = &score
		rec.ClassifierModel = snap.Model
	}

	rec, won, err := x.Audit.Reserve(ctx, rec)
	if err != nil {
		return nil, err
	}
	if !won {
		dup := *rec
		dup.Result = audit.ResultAlreadyApplied
		return &dup, nil
	}

	// The key is reserved: from here every path must finalize, even when
	// the caller's context has been cancelled.
	finalizeCtx := context.WithoutCancel(ctx)

	if reason, ok, err := x.checkQuota(ctx, act); err != nil {
		return rec, x.finalize(finalizeCtx, rec, audit.ResultFailed, err.Error())
	} else if !ok {
		actionsQuotaTripped.WithLabelValues(string(act.Kind)).Inc()
		x.Logger.Warn("action quota exceeded", "community", act.CommunityID, "action", act.Kind)
		return rec, x.finalize(finalizeCtx, rec, audit.ResultFailed, reason)
	}

	callErr := x.perform(ctx, act)
	if callErr != nil {
		actionsFailed.WithLabelValues(string(act.Kind)).Inc()
		x.Logger.Error("platform call failed",
			"action", act.Kind,
			"community", act.CommunityID,
			"target", act.TargetUserID,
			"err", callErr)
		return rec, x.finalize(finalizeCtx, rec, audit.ResultFailed, callErr.Error())
	}

	if err := x.finalize(finalizeCtx, rec, audit.ResultApplied, ""); err != nil {
		return rec, err
	}
	actionsApplied.WithLabelValues(string(act.Kind)).Inc()
	x.bumpQuota(finalizeCtx, act)

	if x.Notifier != nil {
		if err := x.Notifier.ActionApplied(finalizeCtx, rec); err != nil {
			x.Logger.Warn("action notification failed", "err", err)
		}
	}
	return rec, nil
}

func (x *Executor) checkQuota(ctx context.Context, act escalation.Action) (string, bool, error) {
	var limit int
	switch act.Kind {
	case escalation.ActionKick:
		limit = x.QuotaKickDay
	case escalation.ActionBan:
		limit = x.QuotaBanDay
	default:
		return "", true, nil
	}
	if limit <= 0 {
		return "", true, nil
	}
	val := fmt.Sprintf("%s/%s", act.CommunityID, act.Kind)
	count, err := x.Counters.GetCount(ctx, quotaCountName, val, countstore.PeriodDay)
	if err != nil {
		return "", false, fmt.Errorf("quota read: %w", err)
	}
	if count >= limit {
		return "quota-exceeded", false, nil
	}
	return "", true, nil
}

func (x *Executor) bumpQuota(ctx context.Context, act escalation.Action) {
	if act.Kind != escalation.ActionKick && act.Kind != escalation.ActionBan {
		return
	}
	val := fmt.Sprintf("%s/%s", act.CommunityID, act.Kind)
	if err := x.Counters.IncrementPeriod(ctx, quotaCountName, val, countstore.PeriodDay); err != nil {
		x.Logger.Error("quota increment failed", "err", err)
	}
}

// perform issues the platform call with bounded retries on transient and
// rate-limit errors. Server Retry-After hints override the computed backoff.
func (x *Executor) perform(ctx context.Context, act escalation.Action) error {
	ceiling := x.RetryCeiling
	if ceiling < 1 {
		ceiling = 1
	}
	var err error
	for attempt := 0; attempt < ceiling; attempt++ {
		if attempt > 0 {
			delay := x.backoff(attempt)
			if hint := platform.RetryAfterHint(err); hint > 0 {
				delay = hint
			}
			actionsRetried.WithLabelValues(string(act.Kind)).Inc()
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err = x.call(ctx, act)
		if err == nil {
			return nil
		}
		if !platform.IsRetryable(err) {
			return err
		}
	}
	return fmt.Errorf("retries exhausted: %w", err)
}

func (x *Executor) backoff(attempt int) time.Duration {
	d := x.BackoffBase << (attempt - 1)
	if d > x.BackoffMax || d <= 0 {
		return x.BackoffMax
	}
	return d
}

func (x *Executor) call(ctx context.Context, act escalation.Action) error {
	switch act.Kind {
	case escalation.ActionDeleteMessage:
		return x.Platform.DeleteMessage(ctx, act.CommunityID, act.ChannelID, act.MessageID)
	case escalation.ActionWarn:
		return x.Platform.SendNotice(ctx, act.CommunityID, act.ChannelID, act.Reason)
	case escalation.ActionTimeout:
		return x.Platform.TimeoutUser(ctx, act.CommunityID, act.TargetUserID, time.Now().Add(act.Duration), act.Reason)
	case escalation.ActionKick:
		return x.Platform.KickUser(ctx, act.CommunityID, act.TargetUserID, act.Reason)
	case escalation.ActionBan:
		return x.Platform.BanUser(ctx, act.CommunityID, act.TargetUserID, act.Reason)
	default:
		return fmt.Errorf("unknown action kind: %s", act.Kind)
	}
}

func (x *Executor) finalize(ctx context.Context, rec *audit.Record, result audit.Result, failureReason string) error {
	now := time.Now()
	if err := x.Audit.Finalize(ctx, rec.IdempotencyKey, result, failureReason, now); err != nil {
		return err
	}
	rec.Result = result
	rec.FailureReason = failureReason
	if result == audit.ResultApplied {
		rec.AppliedAt = &now
	}
	return nil
}
