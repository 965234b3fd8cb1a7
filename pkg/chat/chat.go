// Package chat delivers notification messages through the chat
// platform's Web API. Interactive surfaces live elsewhere; this client
// only authenticates and posts.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// DefaultBaseURL is the hosted Web API endpoint.
const DefaultBaseURL = "https://slack.com/api"

const defaultTimeout = 30 * time.Second

// ErrAuthFailed indicates the bot token was rejected.
var ErrAuthFailed = errors.New("chat authentication failed")

// Client posts messages with a bot token.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	logger  *slog.Logger
}

// NewClient returns a client for the given endpoint.
func NewClient(logger *slog.Logger, baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, payload any) error {
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(payload); err != nil {
		return fmt.Errorf("%s: failed to encode payload: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, &body)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", method, err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", method, err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("Failed to close response body", "error", err)
		}
	}()

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", method, err)
	}

	if !result.OK {
		if result.Error == "invalid_auth" || result.Error == "not_authed" {
			return fmt.Errorf("%w: %s", ErrAuthFailed, result.Error)
		}

		return fmt.Errorf("%s returned error: %s", method, result.Error)
	}

	return nil
}

// AuthTest verifies the bot token is usable.
func (c *Client) AuthTest(ctx context.Context) error {
	return c.call(ctx, "auth.test", map[string]string{})
}

// PostMessage delivers a plain-text message to a user or channel id.
func (c *Client) PostMessage(ctx context.Context, channel, text string) error {
	return c.call(ctx, "chat.postMessage", map[string]string{
		"channel": channel,
		"text":    text,
	})
}
