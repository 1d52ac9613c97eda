package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/haven-chat/warden/automod/audit"
)

// SlackNotifier posts a short summary of each applied action to a slack
// incoming webhook, for moderator awareness.
type SlackNotifier struct {
	SlackWebhookURL string
}

type SlackWebhookBody struct {
	Text string `json:"text"`
}

func (n *SlackNotifier) ActionApplied(ctx context.Context, rec *audit.Record) error {
	msg := "⚠️ AutoMod Action ⚠️\n"
	msg += fmt.Sprintf("`%s` on user `%s` in community `%s`\n", rec.ActionKind, rec.TargetUserID, rec.CommunityID)
	msg += fmt.Sprintf("Reason: %s\n", rec.Reason)
	if rec.DurationSecs > 0 {
		msg += fmt.Sprintf("Duration: %s\n", time.Duration(rec.DurationSecs)*time.Second)
	}
	return n.sendSlackMsg(ctx, msg)
}

// Sends a simple slack message to a channel via "incoming webhook".
//
// The slack incoming webhook must be already configured in the slack workplace.
func (n *SlackNotifier) sendSlackMsg(ctx context.Context, msg string) error {
	body, err := json.Marshal(SlackWebhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.SlackWebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	if resp.StatusCode != 200 || buf.String() != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}
