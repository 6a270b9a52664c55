// Package client is the Go SDK for the Northstar alert API. It wraps the
// ingestion and alert-retrieval endpoints so collectors and downstream
// consumers do not hand-roll HTTP calls.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// ErrNotFound is returned when the requested alert does not exist.
var ErrNotFound = errors.New("alert not found")

// IngestRequest is the payload for Ingest. Source, URL, and Text are
// required; VulnFeatures is the optional vulnerability feature block.
type IngestRequest struct {
	Source       string          `json:"source"`
	URL          string          `json:"url"`
	Title        string          `json:"title,omitempty"`
	Author       string          `json:"author,omitempty"`
	CreatedAt    *time.Time      `json:"created_at,omitempty"`
	Text         string          `json:"text"`
	VulnFeatures json.RawMessage `json:"vuln_features,omitempty"`
}

// IngestResult is the server's response to an ingest call.
type IngestResult struct {
	PostID    string `json:"post_id"`
	AlertID   string `json:"alert_id"`
	Duplicate bool   `json:"duplicate"`
}

// Alert is the stored alert record as returned by the API.
type Alert struct {
	ID               string    `json:"id"`
	PostID           string    `json:"post_id"`
	Category         string    `json:"category"`
	Sector           string    `json:"sector"`
	Intent           string    `json:"intent"`
	IntentConfidence float64   `json:"intent_confidence"`
	Score            float64   `json:"score"`
	ScoreReasons     []string  `json:"score_reasons"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	VulnRiskScore    *float64  `json:"vuln_risk_score,omitempty"`
	VulnRiskMethod   *string   `json:"vuln_risk_method,omitempty"`
}

// Client talks to one Northstar server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the request timeout on the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a Client connected to baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Ingest submits a raw post for analysis. A duplicate submission is not an
// error: the result carries Duplicate=true and the existing ids.
func (c *Client) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ingest", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	body, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	var result IngestResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

// GetAlert fetches a single alert by id.
func (c *Client) GetAlert(ctx context.Context, id string) (*Alert, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/alerts/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var alert Alert
	if err := json.Unmarshal(body, &alert); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &alert, nil
}

// ListAlerts returns the most recent alerts, newest first. limit 0 uses the
// server default.
func (c *Client) ListAlerts(ctx context.Context, limit int) ([]Alert, error) {
	endpoint := c.baseURL + "/api/alerts"
	if limit > 0 {
		endpoint += "?limit=" + strconv.Itoa(limit)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var wrapper struct {
		Alerts []Alert `json:"alerts"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return wrapper.Alerts, nil
}

// Health checks the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	_, err = c.do(req)
	return err
}

// do executes an HTTP request and returns the response body, mapping 404 to
// ErrNotFound.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
