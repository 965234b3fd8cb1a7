package taiga

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client talks to a single Taiga instance with a bearer session token.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	logger  *slog.Logger
}

// NewClient returns a client using a pre-provisioned session token.
func NewClient(logger *slog.Logger, baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
}

// Authenticate exchanges username/password credentials for a session
// token and returns a client holding it.
func Authenticate(ctx context.Context, logger *slog.Logger, baseURL, username, password string) (*Client, error) {
	payload, err := json.Marshal(map[string]string{
		"type":     "normal",
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode auth payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/v1/auth", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build auth request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	httpc := &http.Client{Timeout: defaultTimeout}

	resp, err := httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach tracker: %w", err)
	}
	defer closeBody(logger, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: auth returned status %d", ErrAuthFailed, resp.StatusCode)
	}

	var body struct {
		AuthToken string `json:"auth_token"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode auth response: %w", err)
	}

	if body.AuthToken == "" {
		return nil, fmt.Errorf("%w: auth response carried no token", ErrAuthFailed)
	}

	client := NewClient(logger, baseURL, body.AuthToken)

	return client, nil
}

// Token returns the session token in use.
func (c *Client) Token() string {
	return c.token
}

// do performs a tracker request and decodes the response into out when
// out is non-nil. List endpoints disable server-side pagination.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, payload, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: failed to encode payload: %w", op, err)
		}

		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", op, err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("x-disable-pagination", "True")

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer closeBody(c.logger, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(detail))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: failed to decode response: %w", op, err)
		}
	}

	return nil
}

func closeBody(logger *slog.Logger, body io.ReadCloser) {
	if err := body.Close(); err != nil {
		logger.Warn("Failed to close response body", "error", err)
	}
}
