package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// NotARepoPage indicates the page context does not identify a repository
	NotARepoPage ErrorCode = "NOT_A_REPO_PAGE"
	// TreeFetchFailed indicates the repository tree could not be listed
	TreeFetchFailed ErrorCode = "TREE_FETCH_FAILED"
	// ContentFetchFailed indicates a single file's content could not be retrieved
	ContentFetchFailed ErrorCode = "CONTENT_FETCH_FAILED"
	// AnalyzeCallFailed indicates the analysis service rejected or failed a single file
	AnalyzeCallFailed ErrorCode = "ANALYZE_CALL_FAILED"
	// NoAnalyzableFiles indicates the repository has no files matching the allow-list
	NoAnalyzableFiles ErrorCode = "NO_ANALYZABLE_FILES"
	// RestoreFailed indicates a pending navigation snapshot could not be decoded
	RestoreFailed ErrorCode = "RESTORE_FAILED"
	// RateLimited indicates the remote host rejected a request for quota reasons
	RateLimited ErrorCode = "RATE_LIMITED"
	// NotFound indicates the remote resource does not exist
	NotFound ErrorCode = "NOT_FOUND"
	// AuthRequired indicates the remote host requires or rejected credentials
	AuthRequired ErrorCode = "AUTH_REQUIRED"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Command     string `json:"command,omitempty"`
	Description string `json:"description,omitempty"`
}

// AgentError represents a failure with a stable code, message, and optional fixes
type AgentError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new AgentError
func New(code ErrorCode, message string, cause error) *AgentError {
	return &AgentError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: suggestedFixes[code],
	}
}

// Error implements the error interface
func (e *AgentError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AgentError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *AgentError) WithDetails(details interface{}) *AgentError {
	e.Details = details
	return e
}

// CodeOf extracts the error code from err, or InternalError for foreign errors.
// A nil err has no code and returns the empty string.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var agentErr *AgentError
	if errors.As(err, &agentErr) {
		return agentErr.Code
	}
	return InternalError
}

// IsCode reports whether err carries the given code
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// Fatal reports whether an error code aborts the whole page load.
// Per-file codes and the informational NoAnalyzableFiles are recoverable.
func Fatal(code ErrorCode) bool {
	switch code {
	case ContentFetchFailed, AnalyzeCallFailed, NoAnalyzableFiles, RestoreFailed:
		return false
	case "":
		return false
	default:
		return true
	}
}

// suggestedFixes maps error codes to fix actions shown alongside fatal errors
var suggestedFixes = map[ErrorCode][]FixAction{
	RateLimited: {
		{
			Command:     "cleancode config init --token <github-token>",
			Description: "Configure an API token to raise the rate limit",
		},
	},
	AuthRequired: {
		{
			Command:     "cleancode config init --token <github-token>",
			Description: "Configure a valid API token",
		},
	},
	TreeFetchFailed: {
		{
			Command:     "cleancode tree <owner/repo> --branch <branch>",
			Description: "Retry the tree listing, optionally against another branch",
		},
	},
}
