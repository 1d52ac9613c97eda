// Package ledger is the violation tracker: an append-only, per-(community,
// user) history of rule findings with exponential decay, from which the
// current escalation tier is derived.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spaolacci/murmur3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/haven-chat/warden/automod/event"
)

// Entry is one recorded finding. Append-only: entries are never mutated,
// only aggregated over and eventually compacted once fully decayed.
type Entry struct {
	ID          uint64 `gorm:"primaryKey"`
	CommunityID string `gorm:"index:idx_ledger_subject,priority:1;not null"`
	UserID      string `gorm:"index:idx_ledger_subject,priority:2;not null"`
	RuleKind    string `gorm:"uniqueIndex:idx_ledger_event;not null"`
	EventID     string `gorm:"uniqueIndex:idx_ledger_event;not null"`
	Severity    uint8  `gorm:"not null"`
	CreatedAt   time.Time
}

func (Entry) TableName() string {
	return "violation_ledger"
}

const lockStripes = 512

// Tracker is the sole writer of ledger entries. Writes for one (community,
// user) are serialized through striped locks; distinct users proceed in
// parallel.
type Tracker struct {
	db     *gorm.DB
	logger *slog.Logger
	locks  [lockStripes]chan struct{}
}

func NewTracker(db *gorm.DB, logger *slog.Logger) (*Tracker, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("ledger migration: %w", err)
	}
	t := &Tracker{
		db:     db,
		logger: logger.With("component", "ledger"),
	}
	for i := range t.locks {
		t.locks[i] = make(chan struct{}, 1)
	}
	return t, nil
}

func (t *Tracker) stripe(communityID, userID string) chan struct{} {
	h := murmur3.Sum32([]byte(communityID + "/" + userID))
	return t.locks[h%lockStripes]
}

// Record appends one ledger entry per finding and returns the user's
// resulting tier. Re-inserts of the same (event, rule) pair are ignored, so
// redelivered events do not double-count. Returns an error when persistence
// fails; callers must not acknowledge the event as handled in that case.
func (t *Tracker) Record(ctx context.Context, communityID, userID string, findings []event.Finding, cfg TierConfig) (Tier, error) {
	if len(findings) == 0 {
		return t.CurrentTier(ctx, communityID, userID, cfg)
	}

	lock := t.stripe(communityID, userID)
	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		return TierNone, ctx.Err()
	}
	defer func() { <-lock }()

	now := time.Now().UTC()
	entries := make([]Entry, 0, len(findings))
	for _, f := range findings {
		entries = append(entries, Entry{
			CommunityID: communityID,
			UserID:      userID,
			RuleKind:    string(f.RuleKind),
			EventID:     f.EventID,
			Severity:    f.Severity,
			CreatedAt:   now,
		})
	}
	err := t.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entries).Error
	if err != nil {
		return TierNone, fmt.Errorf("ledger write: %w", err)
	}

	return t.currentTierLocked(ctx, communityID, userID, cfg, now)
}

// CurrentTier computes the user's tier from live (non-fully-decayed) ledger
// weight at the current wall-clock time. Read-only.
func (t *Tracker) CurrentTier(ctx context.Context, communityID, userID string, cfg TierConfig) (Tier, error) {
	return t.currentTierLocked(ctx, communityID, userID, cfg, time.Now().UTC())
}

func (t *Tracker) currentTierLocked(ctx context.Context, communityID, userID string, cfg TierConfig, now time.Time) (Tier, error) {
	var entries []Entry
	q := t.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID)
	if cfg.Lookback > 0 {
		q = q.Where("created_at >= ?", now.Add(-cfg.Lookback))
	}
	if err := q.Find(&entries).Error; err != nil {
		return TierNone, fmt.Errorf("ledger read: %w", err)
	}
	return tierForWeight(weightSum(entries, now, cfg), cfg), nil
}

// RecentEntries returns a user's entries within the lookback horizon, newest
// first. Consumed read-only by the dashboard/report collaborators.
func (t *Tracker) RecentEntries(ctx context.Context, communityID, userID string, lookback time.Duration, limit int) ([]Entry, error) {
	var entries []Entry
	q := t.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Order("created_at desc")
	if lookback > 0 {
		q = q.Where("created_at >= ?", time.Now().UTC().Add(-lookback))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("ledger read: %w", err)
	}
	return entries, nil
}

// PruneExpired deletes entries older than the given horizon. Compaction may
// lag behind reads: reads already ignore out-of-horizon entries, so pruning
// never changes a computed tier.
func (t *Tracker) PruneExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	res := t.db.WithContext(ctx).
		Where("created_at < ?", time.Now().UTC().Add(-olderThan)).
		Delete(&Entry{})
	if res.Error != nil {
		return 0, fmt.Errorf("ledger compaction: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		t.logger.Info("compacted expired ledger entries", "count", res.RowsAffected)
	}
	return res.RowsAffected, nil
}
