// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package api is a client for the Stream Video server-side REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-agent-service/internal/logging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
)

const (
	// BaseURL is the base URL for the Stream Video API
	BaseURL = "https://video.stream-io-api.com"
	// DefaultClientTimeout is the default HTTP client timeout for Stream API requests
	DefaultClientTimeout = 30 * time.Second
	// Default retry configuration
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 1 * time.Second
	DefaultMaxBackoff        = 30 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// Config holds the configuration for the Stream client
type Config struct {
	APIKey    string
	APISecret string
	// Optional: override base URL for testing
	BaseURL string
	// Optional: override timeout for HTTP requests
	Timeout time.Duration
	// Optional: server token lifetime
	TokenTTL time.Duration
	// Optional: retry configuration
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// Client represents a Stream Video API client
type Client struct {
	httpClient *http.Client
	config     Config
	issuer     *TokenIssuer
}

// Ensure that Client implements domain.SessionController
var _ domain.SessionController = (*Client)(nil)

// NewClient creates a new Stream Video API client
func NewClient(config Config) *Client {
	// Set defaults if not provided
	if config.BaseURL == "" {
		config.BaseURL = BaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}
	if config.TokenTTL == 0 {
		config.TokenTTL = DefaultTokenTTL
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = DefaultInitialBackoff
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = DefaultMaxBackoff
	}
	if config.BackoffMultiplier == 0 {
		config.BackoffMultiplier = DefaultBackoffMultiplier
	}

	issuer := NewTokenIssuer(config.APISecret)

	// Wrap with oauth2.ReuseTokenSource for automatic caching and renewal
	tokenSource := oauth2.ReuseTokenSource(nil, &serverTokenSource{issuer: issuer, ttl: config.TokenTTL})

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: otelhttp.NewTransport(&authTransport{
				source: tokenSource,
				base:   http.DefaultTransport,
			}),
		},
		config: config,
		issuer: issuer,
	}
}

// APIError is a non-2xx response from the Stream API
type APIError struct {
	StatusCode int
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("stream API error (status %d, code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("stream API error (status %d)", e.StatusCode)
}

// Call returns a handle on the call identified by callType and callID.
func (c *Client) Call(callType, callID string) domain.Call {
	return &Call{client: c, callType: callType, callID: callID}
}

// UserToken issues a participant token for userID.
func (c *Client) UserToken(userID string) (string, error) {
	token, _, err := c.issuer.UserToken(userID, c.config.TokenTTL)
	return token, err
}

// Call is a handle on one Stream call
type Call struct {
	client   *Client
	callType string
	callID   string
}

// CID returns the composite call id.
func (c *Call) CID() string {
	return c.callType + ":" + c.callID
}

// End marks the call as ended for every participant.
func (c *Call) End(ctx context.Context) error {
	path := fmt.Sprintf("/video/call/%s/%s/mark_ended", url.PathEscape(c.callType), url.PathEscape(c.callID))
	resp, err := c.client.doRequest(ctx, http.MethodPost, path, struct{}{})
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return parseErrorResponse(resp)
	}
	return nil
}

// shouldRetry determines if an error or HTTP status code should be retried
func shouldRetry(statusCode int, err error) bool {
	// Don't retry if context was cancelled
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		// Retry on network/connection errors
		return true
	}

	// Retry on server errors (5xx)
	if statusCode >= 500 && statusCode < 600 {
		return true
	}

	// Retry on rate limiting (429)
	return statusCode == http.StatusTooManyRequests
}

// calculateBackoff calculates the backoff duration for a retry attempt with jitter
func (c *Client) calculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return c.config.InitialBackoff
	}

	// Calculate exponential backoff
	backoff := float64(c.config.InitialBackoff) * math.Pow(c.config.BackoffMultiplier, float64(attempt))

	// Cap at max backoff
	if time.Duration(backoff) > c.config.MaxBackoff {
		backoff = float64(c.config.MaxBackoff)
	}

	// Add jitter (±25% of backoff duration) to prevent thundering herd
	jitter := backoff * 0.25 * (rand.Float64()*2 - 1)
	backoffWithJitter := time.Duration(backoff + jitter)

	// Ensure we don't go below initial backoff
	if backoffWithJitter < c.config.InitialBackoff {
		backoffWithJitter = c.config.InitialBackoff
	}

	return backoffWithJitter
}

// doRequest performs an authenticated HTTP request to the Stream API with retry logic.
// The api_key query parameter is added to every request.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var jsonBody []byte
	if body != nil {
		var err error
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	target := c.config.BaseURL + path + "?" + url.Values{"api_key": []string{c.config.APIKey}}.Encode()

	var lastErr error
	var statusCode int
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		var bodyReader io.Reader
		if jsonBody != nil {
			bodyReader = bytes.NewReader(jsonBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		slog.DebugContext(ctx, "making Stream API request",
			"method", method,
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.config.MaxRetries,
		)

		startTime := time.Now()
		resp, err := c.httpClient.Do(req)
		duration := time.Since(startTime)

		if err == nil && resp.StatusCode < http.StatusInternalServerError && resp.StatusCode != http.StatusTooManyRequests {
			slog.InfoContext(ctx, "Stream API request completed",
				"method", method,
				"path", path,
				"status", resp.StatusCode,
				"duration", duration.String(),
				"attempt", attempt+1,
			)
			return resp, nil
		}

		lastErr, statusCode = err, 0
		if resp != nil {
			statusCode = resp.StatusCode
			lastErr = parseErrorResponse(resp)
			_ = resp.Body.Close()
		}

		if !shouldRetry(statusCode, err) {
			slog.ErrorContext(ctx, "Stream API request failed (not retryable)",
				"method", method,
				"path", path,
				"duration", duration.String(),
				"attempt", attempt+1,
				logging.ErrKey, lastErr)
			return nil, lastErr
		}

		if attempt == c.config.MaxRetries {
			break
		}

		backoff := c.calculateBackoff(attempt)
		slog.WarnContext(ctx, "Stream API request failed, retrying",
			"method", method,
			"path", path,
			"status", statusCode,
			"duration", duration.String(),
			"attempt", attempt+1,
			"max_retries", c.config.MaxRetries,
			"backoff", backoff.String(),
			logging.ErrKey, lastErr)

		// Wait with backoff, but check for context cancellation
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	slog.ErrorContext(ctx, "Stream API request failed after all retries",
		"method", method,
		"path", path,
		"status", statusCode,
		"attempts", c.config.MaxRetries+1,
		logging.ErrKey, lastErr,
		logging.PriorityCritical())
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

// parseErrorResponse reads a Stream API error body. It does not close resp.Body.
func parseErrorResponse(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil && len(body) > 0 {
		if jsonErr := json.Unmarshal(body, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
	}
	apiErr.StatusCode = resp.StatusCode
	return apiErr
}
