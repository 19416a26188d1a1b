// Package gateway is the boundary to the search backend: one POST /search call
// per submit, plus a GET /ping probe used for health checks.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cymbal-labs/searchdemo/internal/search"
)

// DefaultBaseURL is the backend origin used when none is configured.
const DefaultBaseURL = "http://localhost:8000"

const maxErrorBody = 512

// ErrBackendStatus matches any non-2xx backend response.
var ErrBackendStatus = errors.New("backend returned non-success status")

// StatusError carries the status and a prefix of the body of a failed call.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

// Is reports ErrBackendStatus as a match.
func (e *StatusError) Is(target error) bool {
	return target == ErrBackendStatus
}

// RequestIDHeader is forwarded on backend calls so one id ties the browser
// request, the server log and the backend log together.
const RequestIDHeader = "X-Request-ID"

// Client performs backend calls. The zero value talks to DefaultBaseURL with
// http.DefaultClient and no pacing.
type Client struct {
	BaseURL string
	Client  *http.Client
	Limiter *rate.Limiter
	Logger  *logging.Logger
	Clock   func() time.Time

	// RequestID extracts the caller's correlation id from ctx. Nil or an
	// empty result sends no header.
	RequestID func(ctx context.Context) string
}

// wireRequest is the body of POST /search. Field names mix camelCase and
// snake_case because that is what the backend accepts.
type wireRequest struct {
	Query                     string `json:"query"`
	PageSize                  int    `json:"pageSize"`
	SummaryResultCount        int    `json:"summary_result_count"`
	MaxSnippetCount           int    `json:"max_snippet_count"`
	MaxExtractiveSegmentCount int    `json:"max_extractive_segment_count"`
	MaxExtractiveAnswerCount  int    `json:"max_extractive_answer_count"`
}

func toWire(req search.SearchRequest) wireRequest {
	return wireRequest{
		Query:                     req.Query,
		PageSize:                  req.PageSize,
		SummaryResultCount:        req.SummaryResultCount,
		MaxSnippetCount:           req.MaxSnippetCount,
		MaxExtractiveSegmentCount: req.MaxExtractiveSegmentCount,
		MaxExtractiveAnswerCount:  req.MaxExtractiveAnswerCount,
	}
}

// Search sends req to the backend and decodes the response. Transport
// failures, non-2xx statuses and undecodable bodies are returned as errors;
// the caller decides how to surface them.
func (c *Client) Search(ctx context.Context, req search.SearchRequest) (*search.SearchResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	payload, err := json.Marshal(toWire(req))
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	endpoint := c.endpoint("/search")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	requestID := c.requestID(ctx)
	if requestID != "" {
		httpReq.Header.Set(RequestIDHeader, requestID)
	}

	start := c.now()
	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	c.debug("backend search completed",
		zap.String("endpoint", endpoint),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", c.now().Sub(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp)
	}

	var out search.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &out, nil
}

// Ping probes GET /ping and expects {"status":"pong"}.
func (c *Client) Ping(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/ping"), http.NoBody)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode ping response: %w", err)
	}
	if body.Status != "pong" {
		return fmt.Errorf("unexpected ping status %q", body.Status)
	}
	return nil
}

// CheckHealth lets the client be registered as a server health checker.
func (c *Client) CheckHealth(ctx context.Context) error {
	return c.Ping(ctx)
}

// Endpoint returns the resolved backend origin.
func (c *Client) Endpoint() string {
	return c.baseURL().String()
}

// NewLimiter paces outbound searches to perSecond requests. Zero or negative
// disables pacing.
func NewLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func (c *Client) wait(ctx context.Context) error {
	if c.Limiter == nil {
		return nil
	}
	if err := c.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL().JoinPath(path).String()
}

func (c *Client) baseURL() *url.URL {
	if c != nil && c.BaseURL != "" {
		if parsed, err := url.Parse(strings.TrimRight(c.BaseURL, "/")); err == nil && parsed.Scheme != "" {
			return parsed
		}
	}
	parsed, _ := url.Parse(DefaultBaseURL)
	return parsed
}

func (c *Client) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return http.DefaultClient
}

func (c *Client) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

func (c *Client) requestID(ctx context.Context) string {
	if c.RequestID == nil {
		return ""
	}
	return c.RequestID(ctx)
}

func (c *Client) debug(msg string, fields ...zap.Field) {
	if c.Logger != nil {
		c.Logger.Debug(msg, fields...)
	}
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
