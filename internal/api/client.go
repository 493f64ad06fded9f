// Package api is a thin HTTP client for the association server's
// notification endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dkrenn/clubwatch/internal/credential"
	"github.com/dkrenn/clubwatch/internal/model"
)

// ErrNoCredential is returned by mutation calls when no API token is
// stored. List calls never return it; they resolve to an empty batch.
var ErrNoCredential = fmt.Errorf("no API token stored")

// Client issues authenticated requests against the notification API.
// It performs no retries; reliability comes from the caller's fixed-interval
// re-poll.
type Client struct {
	baseURL    string
	creds      credential.Source
	httpClient *http.Client
}

// NewClient creates a notification API client. baseURL is the root of the
// notification resource (e.g. https://verein.example.org/api/notifications).
func NewClient(baseURL string, creds credential.Source) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// authHeader builds the Authorization header value from a raw stored token.
// Tokens carrying an explicit "Bearer " or "Token " prefix are passed
// through; anything else is treated as a bare DRF token.
func authHeader(token string) string {
	if strings.HasPrefix(token, "Bearer ") || strings.HasPrefix(token, "Token ") {
		return token
	}
	return "Token " + token
}

// ListNotifications fetches the current notification batch. When no token
// is stored it returns an empty batch without touching the network.
func (c *Client) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	token, ok := c.creds.Token()
	if !ok {
		return nil, nil
	}

	body, err := c.do(ctx, http.MethodGet, "/", token, false)
	if err != nil {
		return nil, err
	}

	return decodeBatch(body), nil
}

// UnreadCount fetches the server-side unread counter.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	token, ok := c.creds.Token()
	if !ok {
		return 0, nil
	}

	body, err := c.do(ctx, http.MethodGet, "/unread_count/", token, false)
	if err != nil {
		return 0, err
	}

	var payload struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("unmarshaling unread count: %w", err)
	}
	return payload.Count, nil
}

// MarkAsRead acknowledges a single notification on the server. Only a 200
// response counts as acknowledged; anything else is an error so the caller
// does not treat a queued or partial acknowledgement as done.
func (c *Client) MarkAsRead(ctx context.Context, id int64) error {
	token, ok := c.creds.Token()
	if !ok {
		return ErrNoCredential
	}

	path := "/" + strconv.FormatInt(id, 10) + "/mark_as_read/"
	_, err := c.do(ctx, http.MethodPost, path, token, true)
	return err
}

// MarkAllAsRead acknowledges every notification on the server. Like
// MarkAsRead, it requires an exact 200.
func (c *Client) MarkAllAsRead(ctx context.Context) error {
	token, ok := c.creds.Token()
	if !ok {
		return ErrNoCredential
	}

	_, err := c.do(ctx, http.MethodPost, "/mark_all_as_read/", token, true)
	return err
}

// do executes a single request and returns the response body. Any status
// outside 2xx is an error; with exactOK set only a 200 passes. POSTs send
// an empty JSON body.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	token string,
	exactOK bool,
) ([]byte, error) {
	url := c.baseURL + path

	var bodyReader io.Reader
	if method == http.MethodPost {
		bodyReader = bytes.NewReader([]byte("{}"))
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", authHeader(token))
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf(
			"unexpected status %d on %s %s", resp.StatusCode, method, path,
		)
	}
	if exactOK && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"expected 200 on %s %s, got %d", method, path, resp.StatusCode,
		)
	}

	return respBody, nil
}

// decodeBatch normalizes any accepted server shape into a canonical list.
// The endpoint historically returned either a bare JSON array or a
// paginated {"results": [...]} envelope; anything else fails closed to an
// empty batch so the filtering logic never sees garbage.
func decodeBatch(body []byte) []model.Notification {
	var list []model.Notification
	if err := json.Unmarshal(body, &list); err == nil {
		return list
	}

	var envelope struct {
		Results []model.Notification `json:"results"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Results != nil {
		return envelope.Results
	}

	return nil
}
