package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/haven-chat/warden/automod/audit"
	"github.com/haven-chat/warden/automod/cachestore"
	"github.com/haven-chat/warden/automod/classifier"
	"github.com/haven-chat/warden/automod/countstore"
	"github.com/haven-chat/warden/automod/engine"
	"github.com/haven-chat/warden/automod/executor"
	"github.com/haven-chat/warden/automod/ledger"
	"github.com/haven-chat/warden/automod/platform"
	"github.com/haven-chat/warden/automod/policy"
	"github.com/haven-chat/warden/automod/rules"
	"github.com/haven-chat/warden/automod/setstore"
	"github.com/haven-chat/warden/automod/window"
)

// how long fully decayed ledger entries stick around before pruning
const ledgerRetention = 30 * 24 * time.Hour

type Server struct {
	gatewayHost  string
	logger       *slog.Logger
	engine       *engine.Engine
	tracker      *ledger.Tracker
	auditStore   *audit.Store
	policies     policy.Provider
	classifier   *classifier.GuardedClient
	rdb          *redis.Client
	workers      int64
	eventTimeout time.Duration
	retryCeiling int
	retryBase    time.Duration
	lastSeq      int64
}

type Config struct {
	GatewayHost     string
	PlatformAPIHost string
	BotToken        string
	RedisURL        string
	ClassifierHost  string
	ClassifierKey   string
	SetsFileJSON    string
	SlackWebhookURL string
	Workers         int
	EventTimeout    time.Duration
	Logger          *slog.Logger
}

func NewServer(db *gorm.DB, config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	if !strings.HasPrefix(config.GatewayHost, "ws") {
		return nil, fmt.Errorf("specified gateway host must include 'ws://' or 'wss://'")
	}

	var counters countstore.CountStore
	var cache cachestore.CacheStore
	var sets setstore.SetStore
	var windows window.Store
	var rdb *redis.Client
	if config.RedisURL != "" {
		opt, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %v", err)
		}
		rdb = redis.NewClient(opt)
		// check redis connection
		if _, err := rdb.Ping(context.TODO()).Result(); err != nil {
			return nil, fmt.Errorf("redis ping failed: %v", err)
		}
		counters = countstore.NewRedisCountStore(rdb)
		cache = cachestore.NewRedisCacheStore(rdb, 30*time.Minute)
		sets = setstore.NewRedisSetStore(rdb)
		windows = window.NewRedisStore(rdb)
	} else {
		counters = countstore.NewMemCountStore()
		cache = cachestore.NewMemCacheStore(50_000, 30*time.Minute)
		memSets := setstore.NewMemSetStore()
		if config.SetsFileJSON != "" {
			if err := memSets.LoadFromFileJSON(config.SetsFileJSON); err != nil {
				return nil, fmt.Errorf("initializing in-process setstore: %v", err)
			}
			logger.Info("loaded set config from JSON", "path", config.SetsFileJSON)
		}
		sets = memSets
		windows = window.NewMemStore()
	}

	tracker, err := ledger.NewTracker(db, logger)
	if err != nil {
		return nil, err
	}
	auditStore, err := audit.NewStore(db)
	if err != nil {
		return nil, err
	}
	policies, err := policy.NewGormProvider(db, cache, logger)
	if err != nil {
		return nil, err
	}

	pc := platform.NewHTTPClient(config.PlatformAPIHost, config.BotToken, 15*time.Second)
	exec := executor.New(pc, auditStore, counters, logger)
	if config.SlackWebhookURL != "" {
		logger.Info("configuring slack action notifications")
		exec.Notifier = &executor.SlackNotifier{SlackWebhookURL: config.SlackWebhookURL}
	}

	var guarded *classifier.GuardedClient
	if config.ClassifierHost != "" {
		logger.Info("configuring toxicity classifier", "host", config.ClassifierHost)
		inner := classifier.NewHTTPClient(config.ClassifierHost, config.ClassifierKey, 10*time.Second)
		guarded = classifier.NewGuardedClient(inner, cache, classifier.DefaultGuardedConfig(), logger)
	}

	eng := &engine.Engine{
		Logger:   logger,
		Rules:    rules.DefaultRules(),
		Counters: counters,
		Sets:     sets,
		Cache:    cache,
		Windows:  windows,
		Policies: policies,
		Ledger:   tracker,
		Executor: exec,
	}
	if guarded != nil {
		eng.Classifier = guarded
	}

	workers := config.Workers
	if workers < 1 {
		workers = 1
	}
	eventTimeout := config.EventTimeout
	if eventTimeout <= 0 {
		eventTimeout = 30 * time.Second
	}

	s := &Server{
		gatewayHost:  config.GatewayHost,
		logger:       logger,
		engine:       eng,
		tracker:      tracker,
		auditStore:   auditStore,
		policies:     policies,
		classifier:   guarded,
		rdb:          rdb,
		workers:      int64(workers),
		eventTimeout: eventTimeout,
		retryCeiling: 4,
		retryBase:    250 * time.Millisecond,
	}

	return s, nil
}

// RunAPI serves the metrics and read-only admin endpoints.
func (s *Server) RunAPI(listen string) error {
	e := echo.New()
	e.HideBanner = true

	e.GET("/_health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": versioninfo.Short()})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/admin/communities/:community/users/:user/standing", s.handleUserStanding)
	e.GET("/admin/communities/:community/audit", s.handleAuditList)

	return e.Start(listen)
}

type userStandingView struct {
	CommunityID string         `json:"community_id"`
	UserID      string         `json:"user_id"`
	Tier        string         `json:"tier"`
	Entries     []ledger.Entry `json:"entries"`
}

func (s *Server) handleUserStanding(c echo.Context) error {
	ctx := c.Request().Context()
	communityID := c.Param("community")
	userID := c.Param("user")

	pol, err := s.policies.ForCommunity(ctx, communityID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	tier, err := s.tracker.CurrentTier(ctx, communityID, userID, pol.TierConfig())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	entries, err := s.tracker.RecentEntries(ctx, communityID, userID, pol.Lookback.Duration, 100)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, userStandingView{
		CommunityID: communityID,
		UserID:      userID,
		Tier:        tier.String(),
		Entries:     entries,
	})
}

func (s *Server) handleAuditList(c echo.Context) error {
	ctx := c.Request().Context()
	q := audit.Query{
		CommunityID:  c.Param("community"),
		TargetUserID: c.QueryParam("user"),
	}
	records, err := s.auditStore.List(ctx, q)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, records)
}

var cursorKey = "warden/seq"

func (s *Server) ReadLastCursor(ctx context.Context) (int64, error) {
	// if redis isn't configured, just skip
	if s.rdb == nil {
		s.logger.Info("redis not configured, skipping cursor read")
		return 0, nil
	}

	val, err := s.rdb.Get(ctx, cursorKey).Int64()
	if err == redis.Nil {
		s.logger.Info("no pre-existing cursor in redis")
		return 0, nil
	}
	s.logger.Info("successfully found prior subscription cursor seq in redis", "seq", val)
	return val, err
}

func (s *Server) PersistCursor(ctx context.Context) error {
	// if redis isn't configured, just skip
	if s.rdb == nil {
		return nil
	}
	seq := atomic.LoadInt64(&s.lastSeq)
	if seq <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, cursorKey, seq, 14*24*time.Hour).Err()
}

// this method runs in a loop, persisting the current cursor state every 5 seconds
func (s *Server) RunPersistCursor(ctx context.Context) error {
	// if redis isn't configured, just skip
	if s.rdb == nil {
		return nil
	}
	ticker := time.NewTicker(5 * time.Second)
	for {
		select {
		case <-ctx.Done():
			if atomic.LoadInt64(&s.lastSeq) >= 1 {
				s.logger.Info("persisting final cursor seq value", "seq", atomic.LoadInt64(&s.lastSeq))
				if err := s.PersistCursor(context.WithoutCancel(ctx)); err != nil {
					s.logger.Error("failed to persist cursor", "err", err)
				}
			}
			return nil
		case <-ticker.C:
			if atomic.LoadInt64(&s.lastSeq) >= 1 {
				if err := s.PersistCursor(ctx); err != nil {
					s.logger.Error("failed to persist cursor", "err", err)
				}
			}
		}
	}
}

// RunLedgerPrune periodically drops ledger entries old enough to carry no
// live weight in any community.
func (s *Server) RunLedgerPrune(ctx context.Context) error {
	ticker := time.NewTicker(time.Hour)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.tracker.PruneExpired(ctx, ledgerRetention)
			if err != nil {
				s.logger.Error("ledger prune failed", "err", err)
				continue
			}
			if n > 0 {
				s.logger.Info("pruned expired ledger entries", "count", n)
			}
		}
	}
}
