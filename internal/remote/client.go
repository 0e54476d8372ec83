package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/tada/internal/model"
)

// Client is a Backend speaking JSON over HTTP to a tada sync server.
// It handles Bearer token authentication and automatic retry with
// exponential backoff on HTTP 429.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxRetries sets how many times a rate-limited request is retried.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) { c.maxRetries = n }
}

// NewClient creates a client for the server at baseURL. An empty token
// sends no Authorization header.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type accountResponse struct {
	Status AccountStatus `json:"status"`
}

type pushRequest struct {
	Device  string         `json:"device"`
	Records []model.Record `json:"records"`
}

type shareRequest struct {
	Title string `json:"title"`
}

type sharedResponse struct {
	Shared bool `json:"shared"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// AccountStatus asks the server for the account state.
func (c *Client) AccountStatus(ctx context.Context) (AccountStatus, error) {
	var resp accountResponse
	if err := c.do(ctx, http.MethodGet, "/v1/account", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// Push uploads records.
func (c *Client) Push(ctx context.Context, device string, records []model.Record) error {
	return c.do(ctx, http.MethodPost, "/v1/push", pushRequest{Device: device, Records: records}, nil)
}

// Pull fetches changes after cursor.
func (c *Client) Pull(ctx context.Context, device, cursor string) (PullResult, error) {
	q := url.Values{}
	q.Set("device", device)
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var res PullResult
	if err := c.do(ctx, http.MethodGet, "/v1/changes?"+q.Encode(), nil, &res); err != nil {
		return PullResult{}, err
	}
	return res, nil
}

// Share creates a share record for a list.
func (c *Client) Share(ctx context.Context, listID, title string) (ShareHandle, error) {
	var h ShareHandle
	path := "/v1/lists/" + url.PathEscape(listID) + "/share"
	if err := c.do(ctx, http.MethodPost, path, shareRequest{Title: title}, &h); err != nil {
		return ShareHandle{}, err
	}
	return h, nil
}

// IsShared asks whether a share record exists for a list.
func (c *Client) IsShared(ctx context.Context, listID string) (bool, error) {
	var resp sharedResponse
	path := "/v1/lists/" + url.PathEscape(listID) + "/share"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return false, err
	}
	return resp.Shared, nil
}

// do is the core HTTP method that builds the request, handles auth,
// rate limiting with exponential backoff, and JSON (de)serialization.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			waitDuration := retryAfterDuration(resp, attempt)
			lastErr = fmt.Errorf("rate limited (429) on %s %s", method, path)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitDuration):
				continue
			}
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return &AuthError{Message: "sync token rejected by " + c.baseURL}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			var apiErr errorResponse
			if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
				if resp.StatusCode == http.StatusNotFound {
					return fmt.Errorf("%s %s: %s: %w", method, path, apiErr.Error, ErrNotFound)
				}
				return fmt.Errorf("sync API error (%d) on %s %s: %s",
					resp.StatusCode, method, path, apiErr.Error)
			}
			return fmt.Errorf("unexpected status %d on %s %s: %s",
				resp.StatusCode, method, path, string(respBody))
		}

		// No content to parse (e.g. 204).
		if result == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
		}

		return nil
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
