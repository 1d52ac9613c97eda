// Package audit is the durable, append-only record of every enforcement
// attempt. It is the system of record for moderator accountability: the core
// writes it and never deletes from it.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Result string

const (
	// ResultPending: the idempotency key is reserved, platform call not yet
	// resolved. Rows stuck in pending indicate a crash mid-apply and are
	// surfaced to operators, never silently cleaned up.
	ResultPending Result = "pending"
	ResultApplied Result = "applied"
	// ResultAlreadyApplied is only ever a returned result, not a stored
	// one: the stored row keeps its original outcome.
	ResultAlreadyApplied Result = "already-applied"
	ResultFailed         Result = "failed"
)

// Record is one enforcement attempt. The unique idempotency key makes the
// insert a compare-and-set: exactly one concurrent applier wins the right to
// perform the platform call.
type Record struct {
	ID                uint64 `gorm:"primaryKey"`
	IdempotencyKey    string `gorm:"uniqueIndex;not null"`
	ActionKind        string `gorm:"not null"`
	CommunityID       string `gorm:"index:idx_audit_subject,priority:1;not null"`
	TargetUserID      string `gorm:"index:idx_audit_subject,priority:2;not null"`
	ChannelID         string
	MessageID         string
	TriggeringEventID string
	Reason            string
	DurationSecs      int64
	Result            Result `gorm:"not null"`
	FailureReason     string
	// classifier snapshot, populated when a toxicity finding triggered the
	// action
	ClassifierScore *float64
	ClassifierModel string
	CreatedAt       time.Time `gorm:"index"`
	AppliedAt       *time.Time
}

func (Record) TableName() string {
	return "audit_log"
}

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("audit migration: %w", err)
	}
	return &Store{db: db}, nil
}

// Reserve atomically claims the record's idempotency key. Returns (rec,
// true) when this caller won and must perform the platform call, or
// (existing, false) when another apply already holds the key.
func (s *Store) Reserve(ctx context.Context, rec *Record) (*Record, bool, error) {
	rec.Result = ResultPending
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).
		Create(rec)
	if res.Error != nil {
		return nil, false, fmt.Errorf("audit write: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		existing, err := s.GetByKey(ctx, rec.IdempotencyKey)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	return rec, true, nil
}

// Finalize transitions a reserved row to its terminal result. The audit
// write happens even when the platform call failed; a failed action is
// recorded, never dropped.
func (s *Store) Finalize(ctx context.Context, idempotencyKey string, result Result, failureReason string, appliedAt time.Time) error {
	updates := map[string]any{
		"result":         result,
		"failure_reason": failureReason,
	}
	if result == ResultApplied {
		updates["applied_at"] = appliedAt
	}
	res := s.db.WithContext(ctx).
		Model(&Record{}).
		Where("idempotency_key = ? AND result = ?", idempotencyKey, ResultPending).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("audit write: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("audit finalize: no pending record for key %s", idempotencyKey)
	}
	return nil
}

func (s *Store) GetByKey(ctx context.Context, idempotencyKey string) (*Record, error) {
	var rec Record
	err := s.db.WithContext(ctx).First(&rec, "idempotency_key = ?", idempotencyKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("audit read: %w", err)
	}
	return &rec, nil
}

// Query filters for the read-only audit listing consumed by the dashboard
// and report collaborators.
type Query struct {
	CommunityID  string
	TargetUserID string
	Since        time.Time
	Until        time.Time
	Limit        int
}

func (s *Store) List(ctx context.Context, q Query) ([]Record, error) {
	db := s.db.WithContext(ctx).Order("created_at desc")
	if q.CommunityID != "" {
		db = db.Where("community_id = ?", q.CommunityID)
	}
	if q.TargetUserID != "" {
		db = db.Where("target_user_id = ?", q.TargetUserID)
	}
	if !q.Since.IsZero() {
		db = db.Where("created_at >= ?", q.Since)
	}
	if !q.Until.IsZero() {
		db = db.Where("created_at < ?", q.Until)
	}
	limit := q.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []Record
	if err := db.Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("audit read: %w", err)
	}
	return out, nil
}
