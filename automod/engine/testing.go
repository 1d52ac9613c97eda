package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/haven-chat/warden/automod/audit"
	"github.com/haven-chat/warden/automod/cachestore"
	"github.com/haven-chat/warden/automod/classifier"
	"github.com/haven-chat/warden/automod/countstore"
	"github.com/haven-chat/warden/automod/executor"
	"github.com/haven-chat/warden/automod/ledger"
	"github.com/haven-chat/warden/automod/platform"
	"github.com/haven-chat/warden/automod/policy"
	"github.com/haven-chat/warden/automod/setstore"
	"github.com/haven-chat/warden/automod/window"
)

// StubClassifier returns a fixed score (or error) and counts calls. Intended
// for use in test code.
type StubClassifier struct {
	mu    sync.Mutex
	calls int

	Score classifier.Score
	Err   error
}

var _ classifier.Client = (*StubClassifier)(nil)

func (s *StubClassifier) ScoreText(ctx context.Context, text string) (*classifier.Score, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	score := s.Score
	return &score, nil
}

func (s *StubClassifier) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Helper to access the private effects field from a context. Intended for use in test code, *not* from rules.
func ExtractEffects(c *BaseContext) Effects {
	return *c.effects
}

// EngineTestFixture assembles a fully in-memory engine around a sqlite file
// at dbPath: mem stores, mock platform client, stub classifier, static
// policies. Panics on setup failure; intended for use from test code only.
func EngineTestFixture(dbPath string, rules RuleSet) (*Engine, *platform.MockClient, *StubClassifier) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		panic(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	logger := slog.Default()
	tracker, err := ledger.NewTracker(db, logger)
	if err != nil {
		panic(err)
	}
	auditStore, err := audit.NewStore(db)
	if err != nil {
		panic(err)
	}

	mock := platform.NewMockClient()
	counters := countstore.NewMemCountStore()
	exec := executor.New(mock, auditStore, counters, logger)
	exec.BackoffBase = time.Millisecond
	exec.BackoffMax = 5 * time.Millisecond

	stub := &StubClassifier{Score: classifier.Score{Toxicity: 0.1, ModelVersion: "stub-v1"}}

	eng := &Engine{
		Logger:     logger,
		Rules:      rules,
		Counters:   counters,
		Sets:       setstore.NewMemSetStore(),
		Cache:      cachestore.NewMemCacheStore(1000, time.Hour),
		Windows:    window.NewMemStore(),
		Policies:   policy.NewStaticProvider(),
		Ledger:     tracker,
		Classifier: stub,
		Executor:   exec,
	}
	return eng, mock, stub
}
