package githost

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	agenterrors "github.com/fareya22/CleanCodeAAgent/internal/errors"
	"github.com/fareya22/CleanCodeAAgent/internal/logging"
)

// ContentFetcher retrieves raw text content for files at a reference
type ContentFetcher struct {
	client *Client
	logger *logging.Logger
}

// NewContentFetcher creates a content fetcher on top of a host client
func NewContentFetcher(client *Client, logger *logging.Logger) *ContentFetcher {
	return &ContentFetcher{client: client, logger: logger}
}

type contentsResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// Fetch returns the decoded text of path at ref's branch. Failures are
// CONTENT_FETCH_FAILED and recoverable per-file; callers must not treat
// them as pipeline-fatal.
func (f *ContentFetcher) Fetch(ctx context.Context, ref *RepoRef, path string) (string, error) {
	apiPath := fmt.Sprintf("/repos/%s/contents/%s", ref.Key(), path)
	query := url.Values{"ref": {ref.Branch}}

	body, err := f.client.get(ctx, apiPath, query)
	if err != nil {
		return "", agenterrors.New(agenterrors.ContentFetchFailed,
			fmt.Sprintf("failed to fetch %s", path), err)
	}

	var resp contentsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", agenterrors.New(agenterrors.ContentFetchFailed,
			fmt.Sprintf("contents response for %s is not valid JSON", path), err)
	}

	text, err := decodeContent(resp)
	if err != nil {
		return "", agenterrors.New(agenterrors.ContentFetchFailed,
			fmt.Sprintf("failed to decode %s", path), err)
	}
	return text, nil
}

// decodeContent decodes the transport encoding. The host wraps base64
// payloads across multiple lines, so all whitespace is stripped first.
func decodeContent(resp contentsResponse) (string, error) {
	switch resp.Encoding {
	case "base64":
		compact := strings.Map(func(r rune) rune {
			switch r {
			case '\n', '\r', ' ', '\t':
				return -1
			}
			return r
		}, resp.Content)

		data, err := base64.StdEncoding.DecodeString(compact)
		if err != nil {
			return "", fmt.Errorf("base64 decode failed: %w", err)
		}
		return string(data), nil
	case "", "none":
		return resp.Content, nil
	default:
		return "", fmt.Errorf("unsupported content encoding %q", resp.Encoding)
	}
}
