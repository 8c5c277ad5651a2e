// Package lensapi is the HTTP client for the analysis service. It implements
// the search and streaming synthesis ports used by the session.
package lensapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driven"
	"github.com/custodia-labs/movement-lens/internal/logger"
)

// Ensure Client implements the interfaces.
var (
	_ driven.ResultFetcher     = (*Client)(nil)
	_ driven.AnalysisTransport = (*Client)(nil)
)

// Default configuration values.
const (
	DefaultRequestTimeout = 30 * time.Second

	// maxErrorBody bounds how much of a failed response is kept for the error.
	maxErrorBody = 512
)

// Config holds configuration for the analysis service client.
type Config struct {
	// BaseURL is the API root, e.g. http://localhost:8000/api (required).
	BaseURL string

	// RequestTimeout bounds a search request (default: 30s). Streams are
	// bounded by their context and the decoder's idle watchdog instead.
	RequestTimeout time.Duration

	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

// Client talks to the analysis service.
type Client struct {
	baseURL      string
	searchClient *http.Client
	streamClient *http.Client
}

// NewClient creates a new analysis service client.
func NewClient(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: api url %q must be absolute", domain.ErrInvalidInput, cfg.BaseURL)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		searchClient: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
		streamClient: &http.Client{
			Transport: transport,
		},
	}, nil
}

// Search runs GET {base}/search?q=query. The empty query asks for the
// unfiltered top results.
func (c *Client) Search(ctx context.Context, query string) ([]domain.Movement, error) {
	endpoint := c.baseURL + "/search?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.searchClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", domain.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read search response: %w", domain.ErrNetworkFailure, err)
	}
	movements, err := decodeMovements(body)
	if err != nil {
		return nil, err
	}

	logger.Debug("lensapi: search %q returned %d records", query, len(movements))
	return movements, nil
}

// OpenStream runs POST {base}/chat_stream and returns the response body
// unread. A 200 with no content is an empty stream; only a 204 has no body.
func (c *Client) OpenStream(ctx context.Context, analysis domain.AnalysisRequest) (io.ReadCloser, error) {
	if analysis.ContextMovements == nil {
		analysis.ContextMovements = []string{}
	}
	payload, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat_stream", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create stream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: chat stream: %w", domain.ErrNetworkFailure, err)
	}

	if resp.StatusCode == http.StatusNoContent {
		resp.Body.Close()
		return nil, nil
	}
	if err := statusError(resp); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("chat stream: %w", err)
	}
	if resp.Body == http.NoBody {
		// net/http swaps in NoBody for Content-Length: 0.
		return io.NopCloser(strings.NewReader("")), nil
	}

	logger.Debug("lensapi: chat stream opened (%d context lines)", len(analysis.ContextMovements))
	return resp.Body, nil
}

// statusError classifies a non-OK response. It reads at most maxErrorBody
// bytes of the body for the message.
func statusError(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	detail := strings.TrimSpace(string(snippet))

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w: status %d", domain.ErrNetworkFailure, domain.ErrRateLimited, resp.StatusCode)
	}
	if detail != "" {
		return fmt.Errorf("%w: status %d: %s", domain.ErrNetworkFailure, resp.StatusCode, detail)
	}
	return fmt.Errorf("%w: status %d", domain.ErrNetworkFailure, resp.StatusCode)
}
