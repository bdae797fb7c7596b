// Package apiclient is the worker's HTTP channel back to the API service:
// a readiness probe plus best-effort pushes of status patches and job
// events to the internal endpoints.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yuki-noguchi/pdf-to-markdown/internal/domain"
)

const defaultTimeout = 10 * time.Second

// Client talks to the API service on behalf of the worker.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client for the given API base URL.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Ready probes GET /healthz. Any transport error or non-2xx status means
// the API is not reachable and the caller should skip its tick.
func (c *Client) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to build readiness request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api not reachable: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("api not ready: status %d", resp.StatusCode)
	}
	return nil
}

// PushStatus posts a job patch to the internal status endpoint.
func (c *Client) PushStatus(ctx context.Context, jobID string, patch *domain.JobPatch) error {
	return c.post(ctx, fmt.Sprintf("/internal/jobs/%s/status", url.PathEscape(jobID)), patch)
}

// PushEvent posts a job event to the internal events endpoint.
func (c *Client) PushEvent(ctx context.Context, jobID string, event domain.JobEvent) error {
	return c.post(ctx, fmt.Sprintf("/internal/jobs/%s/events", url.PathEscape(jobID)), event)
}

func (c *Client) post(ctx context.Context, path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push to %s failed: %w", path, err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push to %s rejected: status %d", path, resp.StatusCode)
	}
	return nil
}

// drain empties the body so the transport can reuse the connection.
func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
