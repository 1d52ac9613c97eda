package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/haven-chat/warden/automod/cachestore"
)

// StaticProvider serves a fixed policy set from memory; used in tests and in
// single-community deployments configured from a file.
type StaticProvider struct {
	mu       sync.RWMutex
	policies map[string]*CommunityPolicy
	fallback *CommunityPolicy
}

var _ Provider = (*StaticProvider)(nil)

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		policies: make(map[string]*CommunityPolicy),
		fallback: DefaultPolicy(),
	}
}

func (p *StaticProvider) Set(communityID string, pol *CommunityPolicy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.policies[communityID] = pol
}

func (p *StaticProvider) ForCommunity(ctx context.Context, communityID string) (*CommunityPolicy, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if pol, ok := p.policies[communityID]; ok {
		return pol, nil
	}
	return p.fallback, nil
}

// ModConfig is the stored per-community policy document, written by the
// external settings editor and read here.
type ModConfig struct {
	CommunityID string `gorm:"primaryKey"`
	// Policies is a JSON CommunityPolicy document; missing keys are
	// backfilled from defaults at read time.
	Policies  string
	UpdatedAt time.Time
}

func (ModConfig) TableName() string {
	return "mod_config"
}

// GormProvider reads policy documents from the database, with a short-TTL
// cache so bursty traffic from one community doesn't hammer the config
// table. A community with no stored row gets the defaults.
type GormProvider struct {
	db     *gorm.DB
	cache  cachestore.CacheStore
	logger *slog.Logger
}

var _ Provider = (*GormProvider)(nil)

func NewGormProvider(db *gorm.DB, cache cachestore.CacheStore, logger *slog.Logger) (*GormProvider, error) {
	if err := db.AutoMigrate(&ModConfig{}); err != nil {
		return nil, fmt.Errorf("policy migration: %w", err)
	}
	return &GormProvider{
		db:     db,
		cache:  cache,
		logger: logger.With("component", "policy"),
	}, nil
}

func (p *GormProvider) ForCommunity(ctx context.Context, communityID string) (*CommunityPolicy, error) {
	if cached, err := p.cache.Get(ctx, "policy", communityID); err == nil && cached != "" {
		var pol CommunityPolicy
		if err := json.Unmarshal([]byte(cached), &pol); err == nil {
			return &pol, nil
		}
		// unparseable cache entry: fall through to the database
		_ = p.cache.Purge(ctx, "policy", communityID)
	}

	var row ModConfig
	err := p.db.WithContext(ctx).First(&row, "community_id = ?", communityID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DefaultPolicy(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("policy read: %w", err)
	}

	pol, err := mergeWithDefaults([]byte(row.Policies))
	if err != nil {
		// a corrupt stored document must not disable enforcement entirely
		p.logger.Error("unparseable policy document, using defaults", "community", communityID, "err", err)
		return DefaultPolicy(), nil
	}

	if enc, err := json.Marshal(pol); err == nil {
		if err := p.cache.Set(ctx, "policy", communityID, string(enc)); err != nil {
			p.logger.Warn("policy cache write failed", "community", communityID, "err", err)
		}
	}
	return pol, nil
}
