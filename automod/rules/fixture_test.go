package rules

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/haven-chat/warden/automod/engine"
	"github.com/haven-chat/warden/automod/event"
	"github.com/haven-chat/warden/automod/platform"
	"github.com/haven-chat/warden/automod/window"
)

func engineFixture(t *testing.T) (*engine.Engine, *platform.MockClient, *engine.StubClassifier) {
	t.Helper()
	return engine.EngineTestFixture(filepath.Join(t.TempDir(), "warden.sqlite"), DefaultRules())
}

func msgEvent(id, content string) event.InspectionEvent {
	return event.InspectionEvent{
		CommunityID: "c1",
		AuthorID:    "u1",
		ChannelID:   "ch1",
		EventID:     id,
		Kind:        event.KindMessageCreate,
		Content:     content,
		CreatedAt:   time.Now(),
	}
}

// runRule evaluates a single rule directly against an event, with an
// explicit prior-history window, and returns the findings it raised.
func runRule(t *testing.T, eng *engine.Engine, rule engine.MessageRuleFunc, evt event.InspectionEvent, win *window.UserWindow) []event.Finding {
	t.Helper()
	if win == nil {
		win = &window.UserWindow{}
	}
	pol, err := eng.Policies.ForCommunity(context.Background(), evt.CommunityID)
	if err != nil {
		t.Fatal(err)
	}
	c := engine.NewMessageContext(context.Background(), eng, evt, pol, win)
	if err := rule(&c); err != nil {
		t.Fatal(err)
	}
	return engine.ExtractEffects(&c.BaseContext).Findings
}
