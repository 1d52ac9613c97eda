package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/carlmjohnson/versioninfo"
)

// HTTPClient talks to the platform's moderation REST API. It deliberately
// does not retry: the executor owns the retry policy, so a retrying
// transport here would multiply attempts.
type HTTPClient struct {
	Host     string
	BotToken string
	Client   *http.Client
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(host, botToken string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		Host:     host,
		BotToken: botToken,
		Client:   &http.Client{Timeout: timeout},
	}
}

// op is the stable metric label; paths embed IDs and would blow up the
// label cardinality.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, payload any) error {
	var body *bytes.Reader
	if payload != nil {
		enc, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(enc)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.Host+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bot "+c.BotToken)
	req.Header.Set("User-Agent", "warden/"+versioninfo.Short())

	res, err := c.Client.Do(req)
	if err != nil {
		callCount.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	callCount.WithLabelValues(op, strconv.Itoa(res.StatusCode)).Inc()

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		return nil
	case res.StatusCode == http.StatusTooManyRequests:
		var retryAfter time.Duration
		if secs, err := strconv.ParseFloat(res.Header.Get("Retry-After"), 64); err == nil {
			retryAfter = time.Duration(secs * float64(time.Second))
		}
		return &RateLimitedError{RetryAfter: retryAfter}
	case res.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case res.StatusCode == http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("%w: status %d", ErrUnavailable, res.StatusCode)
	}
}

func (c *HTTPClient) DeleteMessage(ctx context.Context, communityID, channelID, messageID string) error {
	path := fmt.Sprintf("/api/communities/%s/channels/%s/messages/%s", communityID, channelID, messageID)
	return c.do(ctx, "delete-message", "DELETE", path, nil)
}

func (c *HTTPClient) TimeoutUser(ctx context.Context, communityID, userID string, until time.Time, reason string) error {
	path := fmt.Sprintf("/api/communities/%s/members/%s/timeout", communityID, userID)
	return c.do(ctx, "timeout", "PUT", path, map[string]any{
		"until":  until.UTC().Format(time.RFC3339),
		"reason": reason,
	})
}

func (c *HTTPClient) KickUser(ctx context.Context, communityID, userID, reason string) error {
	path := fmt.Sprintf("/api/communities/%s/members/%s", communityID, userID)
	return c.do(ctx, "kick", "DELETE", path, map[string]any{"reason": reason})
}

func (c *HTTPClient) BanUser(ctx context.Context, communityID, userID, reason string) error {
	path := fmt.Sprintf("/api/communities/%s/bans/%s", communityID, userID)
	return c.do(ctx, "ban", "PUT", path, map[string]any{"reason": reason})
}

func (c *HTTPClient) SendNotice(ctx context.Context, communityID, channelID, text string) error {
	path := fmt.Sprintf("/api/communities/%s/channels/%s/messages", communityID, channelID)
	return c.do(ctx, "notice", "POST", path, map[string]any{"content": text})
}
