package policy

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/haven-chat/warden/automod/cachestore"
	"github.com/haven-chat/warden/automod/event"
	"github.com/haven-chat/warden/automod/ledger"
)

func TestDefaultPolicy(t *testing.T) {
	assert := assert.New(t)

	pol := DefaultPolicy()
	assert.True(pol.Enabled)
	assert.True(pol.Rule(event.RuleSpamBurst).Enabled)
	assert.False(pol.Rule(event.RuleSpamBurst).DeleteMessage)
	assert.True(pol.Rule(event.RuleInviteLink).DeleteMessage)
	assert.Equal(5, pol.SpamBurstCount)
	assert.Equal(0.8, pol.ToxicityThreshold)
	assert.Equal(time.Hour, pol.TierConfig().HalfLife)
	assert.Equal(20.0, pol.TierCutoffs[ledger.TierNotice])
}

func TestRuleAppliesInChannel(t *testing.T) {
	assert := assert.New(t)

	pol := DefaultPolicy()
	pol.Rules[event.RuleCapsRatio] = RulePolicy{
		Enabled:          true,
		ExcludedChannels: []string{"ch-memes"},
	}
	assert.True(pol.RuleAppliesInChannel(event.RuleCapsRatio, "ch-general"))
	assert.False(pol.RuleAppliesInChannel(event.RuleCapsRatio, "ch-memes"))

	pol.Rules[event.RuleCapsRatio] = RulePolicy{Enabled: false}
	assert.False(pol.RuleAppliesInChannel(event.RuleCapsRatio, "ch-general"))
	assert.False(pol.RuleAppliesInChannel(event.RuleKind("made-up"), "ch-general"))
}

func TestMergeWithDefaults(t *testing.T) {
	assert := assert.New(t)

	doc := `{
		"mass_mention_count": 4,
		"toxicity_threshold": 0.9,
		"half_life": "30m",
		"rules": {
			"spam-burst": {"enabled": false},
			"ancient-rule": {"enabled": true}
		}
	}`
	pol, err := mergeWithDefaults([]byte(doc))
	assert.NoError(err)
	assert.Equal(4, pol.MassMentionCount)
	assert.Equal(0.9, pol.ToxicityThreshold)
	assert.Equal(30*time.Minute, pol.HalfLife.Duration)
	assert.False(pol.Rule(event.RuleSpamBurst).Enabled)
	// unknown rule kinds are dropped, missing ones backfilled
	_, hasAncient := pol.Rules["ancient-rule"]
	assert.False(hasAncient)
	assert.True(pol.Rule(event.RuleCapsRatio).Enabled)
	// untouched keys keep defaults
	assert.Equal(5, pol.SpamBurstCount)

	_, err = mergeWithDefaults([]byte(`{broken`))
	assert.Error(err)
}

func TestPolicyJSONRoundTrip(t *testing.T) {
	assert := assert.New(t)

	pol := DefaultPolicy()
	enc, err := json.Marshal(pol)
	assert.NoError(err)

	var decoded CommunityPolicy
	assert.NoError(json.Unmarshal(enc, &decoded))
	assert.Equal(pol.TierCutoffs, decoded.TierCutoffs)
	assert.Equal(pol.SpamBurstWindow.Duration, decoded.SpamBurstWindow.Duration)
	assert.Equal(pol.Rules, decoded.Rules)
}

func TestGormProvider(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "policy.db")), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	provider, err := NewGormProvider(db, cachestore.NewMemCacheStore(100, time.Minute), slog.Default())
	require.NoError(t, err)

	// no stored row: defaults
	pol, err := provider.ForCommunity(ctx, "c1")
	assert.NoError(err)
	assert.Equal(DefaultPolicy().SpamBurstCount, pol.SpamBurstCount)

	require.NoError(t, db.Create(&ModConfig{
		CommunityID: "c2",
		Policies:    `{"mass_mention_count": 3}`,
	}).Error)

	pol, err = provider.ForCommunity(ctx, "c2")
	assert.NoError(err)
	assert.Equal(3, pol.MassMentionCount)

	// second read comes from cache and matches
	again, err := provider.ForCommunity(ctx, "c2")
	assert.NoError(err)
	assert.Equal(pol.MassMentionCount, again.MassMentionCount)

	// corrupt documents degrade to defaults rather than disabling automod
	require.NoError(t, db.Create(&ModConfig{
		CommunityID: "c3",
		Policies:    `{not json`,
	}).Error)
	pol, err = provider.ForCommunity(ctx, "c3")
	assert.NoError(err)
	assert.Equal(DefaultPolicy().MassMentionCount, pol.MassMentionCount)
}
