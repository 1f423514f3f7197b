// Package githost talks to the source-hosting provider's REST API: repository
// metadata, tree listings, and raw file contents.
package githost

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	agenterrors "github.com/fareya22/CleanCodeAAgent/internal/errors"
	"github.com/fareya22/CleanCodeAAgent/internal/logging"
)

// DefaultMaxBodySize caps API responses at 16 MiB
const DefaultMaxBodySize = 16 << 20

// Client is an HTTP client for the source host's REST API
type Client struct {
	apiBase string
	webBase string
	token   string
	client  *http.Client
	logger  *logging.Logger
}

// ClientConfig configures a host API client
type ClientConfig struct {
	APIBaseURL string
	WebBaseURL string
	Token      string
	Timeout    time.Duration
}

// NewClient creates a new host API client
func NewClient(cfg ClientConfig, logger *logging.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		apiBase: cfg.APIBaseURL,
		webBase: cfg.WebBaseURL,
		token:   cfg.Token,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// WebBaseURL returns the host's web (deep link) base URL
func (c *Client) WebBaseURL() string {
	return c.webBase
}

// get performs a GET request against the API and returns the response body.
// Transport and HTTP errors surface as-is; callers decide whether they are
// fatal (tree level) or per-file.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u, err := url.Parse(c.apiBase)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}
	u.Path = path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "cleancode-agent/1.0")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, DefaultMaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, parseHostError(resp, body)
	}

	return body, nil
}

// HostError represents an error response from the source host
type HostError struct {
	StatusCode        int
	Message           string
	RateLimitExceeded bool
}

func (e *HostError) Error() string {
	return fmt.Sprintf("host error %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports a 404 response
func (e *HostError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports a 401 or a non-rate-limit 403 response
func (e *HostError) IsUnauthorized() bool {
	if e.StatusCode == http.StatusUnauthorized {
		return true
	}
	return e.StatusCode == http.StatusForbidden && !e.RateLimitExceeded
}

// IsRateLimited reports a 429, or the host's 403 quota rejection
func (e *HostError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.RateLimitExceeded
}

func parseHostError(resp *http.Response, body []byte) error {
	hostErr := &HostError{StatusCode: resp.StatusCode}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		hostErr.Message = payload.Message
	} else {
		hostErr.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}

	// GitHub signals quota exhaustion as 403 with a zeroed remaining header
	if resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0" {
		hostErr.RateLimitExceeded = true
	}

	return hostErr
}

// Diagnose maps a host error to the error-code taxonomy so fatal failures
// surface with enough detail to tell rate-limit from not-found from auth
func Diagnose(err error) agenterrors.ErrorCode {
	hostErr, ok := err.(*HostError)
	if !ok {
		return agenterrors.InternalError
	}
	switch {
	case hostErr.IsRateLimited():
		return agenterrors.RateLimited
	case hostErr.IsNotFound():
		return agenterrors.NotFound
	case hostErr.IsUnauthorized():
		return agenterrors.AuthRequired
	default:
		return agenterrors.InternalError
	}
}
