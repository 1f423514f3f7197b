// Package analysis provides the client for the remote design-quality
// analysis service and the issue model it returns.
package analysis

import (
	"bytes"
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

// DefaultMaxBodySize caps analysis responses at 8 MiB
const DefaultMaxBodySize = 8 << 20

// Client is an HTTP client for the analysis service
type Client struct {
	baseURL string
	client  *http.Client
	logger  *logging.Logger
}

// NewClient creates a client for the analysis service at baseURL
func NewClient(baseURL string, timeout time.Duration, logger *logging.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// FileRequest is the payload for single-file analysis
type FileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Repo    string `json:"repo,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

// FileResult is the single-file analysis response
type FileResult struct {
	Status  string  `json:"status"`
	File    string  `json:"file"`
	Issues  []Issue `json:"issues"`
	Summary string  `json:"summary"`
}

// BatchRequest is the payload for whole-repository analysis
type BatchRequest struct {
	Repo   string      `json:"repo"`
	Branch string      `json:"branch,omitempty"`
	Files  []BatchFile `json:"files"`
}

// BatchFile is one file in a batch request
type BatchFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// BatchEntry is one per-file result in a batch response
type BatchEntry struct {
	File   string  `json:"file"`
	Status string  `json:"status"`
	Issues []Issue `json:"issues"`
	Error  string  `json:"error,omitempty"`
}

// BatchResult is the whole-repository analysis response
type BatchResult struct {
	Status  string       `json:"status"`
	Repo    string       `json:"repo"`
	Results []BatchEntry `json:"results"`
	Summary BatchSummary `json:"summary"`
}

// BatchSummary carries the service-computed totals of a batch run
type BatchSummary struct {
	TotalFiles      int `json:"total_files"`
	SuccessfulFiles int `json:"successful_files"`
	TotalIssues     int `json:"total_issues"`
}

// AnalyzeFile submits one file for analysis. A non-2xx response or a
// non-"success" status is an ANALYZE_CALL_FAILED error; callers treat it as
// a per-file failure, never pipeline-fatal.
func (c *Client) AnalyzeFile(ctx context.Context, req FileRequest) (*FileResult, error) {
	body, err := c.post(ctx, "/analyze-file", req)
	if err != nil {
		return nil, agenterrors.New(agenterrors.AnalyzeCallFailed,
			fmt.Sprintf("analysis of %s failed", req.Path), err)
	}

	var result FileResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, agenterrors.New(agenterrors.AnalyzeCallFailed,
			fmt.Sprintf("analysis response for %s is not valid JSON", req.Path), err)
	}

	if result.Status != "success" {
		return nil, agenterrors.New(agenterrors.AnalyzeCallFailed,
			fmt.Sprintf("analysis of %s returned status %q", req.Path, result.Status), nil)
	}

	return &result, nil
}

// AnalyzeRepository submits every file of a repository in one call
func (c *Client) AnalyzeRepository(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	body, err := c.post(ctx, "/analyze", req)
	if err != nil {
		return nil, agenterrors.New(agenterrors.AnalyzeCallFailed,
			fmt.Sprintf("batch analysis of %s failed", req.Repo), err)
	}

	var result BatchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, agenterrors.New(agenterrors.AnalyzeCallFailed,
			"batch analysis response is not valid JSON", err)
	}

	if result.Status != "success" {
		return nil, agenterrors.New(agenterrors.AnalyzeCallFailed,
			fmt.Sprintf("batch analysis returned status %q", result.Status), nil)
	}

	return &result, nil
}

// Health probes the service's health endpoint
func (c *Client) Health(ctx context.Context) error {
	u, err := url.JoinPath(c.baseURL, "/health")
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("analysis service unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("analysis service health check returned %d", resp.StatusCode)
	}
	return nil
}

// post performs a POST request and returns the response body
func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("invalid service URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "cleancode-agent/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, DefaultMaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseServiceError(resp.StatusCode, body)
	}

	return body, nil
}

// ServiceError is a non-2xx response from the analysis service
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("analysis service error %d: %s", e.StatusCode, e.Message)
}

func parseServiceError(statusCode int, body []byte) error {
	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err == nil && resp.Message != "" {
		return &ServiceError{StatusCode: statusCode, Message: resp.Message}
	}
	return &ServiceError{StatusCode: statusCode, Message: fmt.Sprintf("HTTP %d", statusCode)}
}
