// Package contentstudio is the HTTP client for the external
// content-understanding service. It classifies failures as transient or
// permanent; the orchestrator owns the retry policy.
package contentstudio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpDoer
	limiter    *rate.Limiter
}

type Options struct {
	// RequestsPerSecond throttles outbound calls against the provider
	// quota, shared by all workers. Zero disables throttling.
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

func New(baseURL, apiKey string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	var limiter *rate.Limiter
	if options.RequestsPerSecond > 0 {
		burst := options.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(options.RequestsPerSecond), burst)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: newHTTPClient(timeout),
		limiter:    limiter,
	}
}

func (c *Client) AnalyzeDocument(ctx context.Context, data []byte, analyzerID string) (map[string]any, error) {
	return c.analyze(ctx, "document", analyzerID, data)
}

func (c *Client) AnalyzeImage(ctx context.Context, data []byte, analyzerID string) (map[string]any, error) {
	return c.analyze(ctx, "image", analyzerID, data)
}

func (c *Client) AnalyzeVideo(ctx context.Context, data []byte, analyzerID string) (map[string]any, error) {
	return c.analyze(ctx, "video", analyzerID, data)
}

func (c *Client) analyze(ctx context.Context, kind, analyzerID string, data []byte) (map[string]any, error) {
	if analyzerID == "" {
		return nil, fmt.Errorf("analyze %s: analyzer id is empty", kind)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("analyze %s rate wait: %w", kind, err)
		}
	}

	operation := "analyze-" + kind
	raw, err := c.postBinary(ctx, fmt.Sprintf("/v1/analyzers/%s/analyze", analyzerID), data, operation)
	if err != nil {
		return nil, wrapTemporaryIfNeeded(operation, err)
	}
	return raw, nil
}
