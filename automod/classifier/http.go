package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/hashicorp/go-retryablehttp"
)

// HTTPClient calls a perspective-style scoring endpoint:
// POST {host}/v1/score with {"text": ...}, returning a Score document.
type HTTPClient struct {
	Host   string
	APIKey string
	Client *http.Client
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(host, apiKey string, timeout time.Duration) *HTTPClient {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil
	client := retryClient.StandardClient()
	client.Timeout = timeout
	return &HTTPClient{
		Host:   host,
		APIKey: apiKey,
		Client: client,
	}
}

type scoreRequest struct {
	Text string `json:"text"`
}

func (c *HTTPClient) ScoreText(ctx context.Context, text string) (*Score, error) {
	body, err := json.Marshal(scoreRequest{Text: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.Host+"/v1/score", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("User-Agent", "warden/"+versioninfo.Short())

	start := time.Now()
	res, err := c.Client.Do(req)
	upstreamDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		upstreamStatusCount.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("classifier request failed: %w", err)
	}
	defer res.Body.Close()

	upstreamStatusCount.WithLabelValues(fmt.Sprint(res.StatusCode)).Inc()
	if res.StatusCode != 200 {
		return nil, fmt.Errorf("classifier request failed statusCode=%d", res.StatusCode)
	}

	respBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading classifier response: %w", err)
	}
	var score Score
	if err := json.Unmarshal(respBytes, &score); err != nil {
		return nil, fmt.Errorf("parsing classifier response: %w", err)
	}
	return &score, nil
}
