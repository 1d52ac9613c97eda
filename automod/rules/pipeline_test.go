package rules

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haven-chat/warden/automod/classifier"
	"github.com/haven-chat/warden/automod/event"
	"github.com/haven-chat/warden/automod/setstore"
)

// Six quick messages with a burst threshold of five: messages 5 and 6 each
// produce a spam-burst finding, and both land in the ledger.
func TestBurstEscalationPipeline(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mock, _ := engineFixture(t)

	base := time.Now().Add(-4 * time.Second)
	for i := 0; i < 6; i++ {
		evt := msgEvent(fmt.Sprintf("m%d", i), fmt.Sprintf("message number %d", i))
		evt.CreatedAt = base.Add(time.Duration(i) * 700 * time.Millisecond)
		assert.NoError(eng.ProcessMessage(ctx, evt))
	}

	pol, err := eng.Policies.ForCommunity(ctx, "c1")
	require.NoError(t, err)
	entries, err := eng.Ledger.RecentEntries(ctx, "c1", "u1", pol.Lookback.Duration, 10)
	assert.NoError(err)
	require.Len(t, entries, 2)
	assert.Equal(string(event.RuleSpamBurst), entries[0].RuleKind)
	assert.Equal(string(event.RuleSpamBurst), entries[1].RuleKind)
	// severity grows with the burst: 25 at the threshold, 30 one message past
	assert.ElementsMatch([]uint8{25, 30}, []uint8{entries[0].Severity, entries[1].Severity})

	// combined weight 55 crosses the short-timeout cutoff of 50
	assert.Len(mock.CallsOfKind("timeout"), 1)
}

// A redelivered event changes nothing: no extra ledger entries, no extra
// platform calls.
func TestRedeliveredEventPipeline(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mock, _ := engineFixture(t)
	eng.Sets.(*setstore.MemSetStore).AddToSet("bad-words", "crudword")

	evt := msgEvent("m1", "you crudword")
	assert.NoError(eng.ProcessMessage(ctx, evt))
	assert.NoError(eng.ProcessMessage(ctx, evt))

	pol, err := eng.Policies.ForCommunity(ctx, "c1")
	require.NoError(t, err)
	entries, err := eng.Ledger.RecentEntries(ctx, "c1", "u1", pol.Lookback.Duration, 10)
	assert.NoError(err)
	assert.Len(entries, 1)
	assert.Len(mock.CallsOfKind("delete-message"), 1)
}

// Classifier outage leaves the deterministic rules fully functional.
func TestClassifierFailOpenPipeline(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _, stub := engineFixture(t)
	stub.Err = classifier.ErrUnavailable
	eng.Sets.(*setstore.MemSetStore).AddToSet("bad-words", "crudword")

	evt := msgEvent("m1", "you crudword")
	assert.NoError(eng.ProcessMessage(ctx, evt))

	pol, err := eng.Policies.ForCommunity(ctx, "c1")
	require.NoError(t, err)
	entries, err := eng.Ledger.RecentEntries(ctx, "c1", "u1", pol.Lookback.Duration, 10)
	assert.NoError(err)
	require.Len(t, entries, 1)
	assert.Equal(string(event.RuleBadWords), entries[0].RuleKind)
}

// Distinct users never share ledger state: one user's spree does not raise
// another user's tier.
func TestPerUserIsolationPipeline(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _, _ := engineFixture(t)
	eng.Sets.(*setstore.MemSetStore).AddToSet("bad-words", "crudword")

	for i := 0; i < 4; i++ {
		evt := msgEvent(fmt.Sprintf("bad%d", i), "you crudword")
		assert.NoError(eng.ProcessMessage(ctx, evt))
	}
	clean := msgEvent("clean1", "lovely weather today")
	clean.AuthorID = "u2"
	assert.NoError(eng.ProcessMessage(ctx, clean))

	pol, err := eng.Policies.ForCommunity(ctx, "c1")
	require.NoError(t, err)
	entries, err := eng.Ledger.RecentEntries(ctx, "c1", "u2", pol.Lookback.Duration, 10)
	assert.NoError(err)
	assert.Empty(entries)
}

func TestJoinFloodPipeline(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _, _ := engineFixture(t)

	var lastUser string
	for i := 0; i < 25; i++ {
		lastUser = fmt.Sprintf("joiner%d", i)
		evt := event.InspectionEvent{
			CommunityID: "c1",
			AuthorID:    lastUser,
			EventID:     fmt.Sprintf("j%d", i),
			Kind:        event.KindMemberJoin,
			CreatedAt:   time.Now(),
		}
		assert.NoError(eng.ProcessJoin(ctx, evt))
	}

	pol, err := eng.Policies.ForCommunity(ctx, "c1")
	require.NoError(t, err)
	// joins at and beyond the flood threshold get flagged
	entries, err := eng.Ledger.RecentEntries(ctx, "c1", lastUser, pol.Lookback.Duration, 10)
	assert.NoError(err)
	assert.Len(entries, 1)

	early, err := eng.Ledger.RecentEntries(ctx, "c1", "joiner0", pol.Lookback.Duration, 10)
	assert.NoError(err)
	assert.Empty(early)
}
