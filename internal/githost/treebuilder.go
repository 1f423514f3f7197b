package githost

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	agenterrors "github.com/fareya22/CleanCodeAAgent/internal/errors"
	"github.com/fareya22/CleanCodeAAgent/internal/logging"
	"github.com/fareya22/CleanCodeAAgent/internal/tree"
)

// TreeBuilder fetches a repository's full file tree and assembles the
// rooted hierarchy
type TreeBuilder struct {
	client *Client
	logger *logging.Logger
}

// NewTreeBuilder creates a tree builder on top of a host client
func NewTreeBuilder(client *Client, logger *logging.Logger) *TreeBuilder {
	return &TreeBuilder{client: client, logger: logger}
}

// treeResponse is the host's tree-listing payload
type treeResponse struct {
	SHA       string      `json:"sha"`
	Truncated bool        `json:"truncated"`
	Tree      []treeEntry `json:"tree"`
}

type treeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"` // "blob" or "tree"
	SHA  string `json:"sha"`
	Size int64  `json:"size,omitempty"`
}

// Load fetches the full tree for ref and returns the assembled roots.
// The recursive listing is tried first; when the host reports it truncated,
// loading switches to a depth-first per-directory walk. Transport and HTTP
// failures are fatal (TREE_FETCH_FAILED) and are not retried here.
func (b *TreeBuilder) Load(ctx context.Context, ref *RepoRef) ([]*tree.Node, error) {
	resp, err := b.listTree(ctx, ref.Key(), ref.Branch, true)
	if err != nil {
		return nil, b.fetchFailed(ref, err)
	}

	var entries []*tree.Node
	if resp.Truncated {
		b.logger.Info("Tree listing truncated, switching to per-directory walk", map[string]interface{}{
			"repo":    ref.Key(),
			"entries": len(resp.Tree),
		})
		entries, err = b.walkDirectories(ctx, ref, ref.Branch, "")
		if err != nil {
			return nil, b.fetchFailed(ref, err)
		}
	} else {
		entries = make([]*tree.Node, 0, len(resp.Tree))
		for _, e := range resp.Tree {
			entries = append(entries, b.normalize(ref, e.Path, e))
		}
	}

	b.logger.Debug("Tree loaded", map[string]interface{}{
		"repo":    ref.Key(),
		"entries": len(entries),
	})
	return tree.Build(entries), nil
}

// walkDirectories lists one directory level at a time, recursing into each
// directory before moving to the next sibling and accumulating full paths
// by concatenation.
func (b *TreeBuilder) walkDirectories(ctx context.Context, ref *RepoRef, treeish, prefix string) ([]*tree.Node, error) {
	resp, err := b.listTree(ctx, ref.Key(), treeish, false)
	if err != nil {
		return nil, err
	}

	var entries []*tree.Node
	for _, e := range resp.Tree {
		fullPath := e.Path
		if prefix != "" {
			fullPath = prefix + "/" + e.Path
		}
		entries = append(entries, b.normalize(ref, fullPath, e))

		if e.Type == "tree" {
			children, err := b.walkDirectories(ctx, ref, e.SHA, fullPath)
			if err != nil {
				return nil, err
			}
			entries = append(entries, children...)
		}
	}
	return entries, nil
}

// listTree calls the tree-listing endpoint for a tree-ish (branch or SHA)
func (b *TreeBuilder) listTree(ctx context.Context, repoKey, treeish string, recursive bool) (*treeResponse, error) {
	path := fmt.Sprintf("/repos/%s/git/trees/%s", repoKey, url.PathEscape(treeish))

	var query url.Values
	if recursive {
		query = url.Values{"recursive": {"1"}}
	}

	body, err := b.client.get(ctx, path, query)
	if err != nil {
		return nil, err
	}

	var resp treeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse tree response: %w", err)
	}
	return &resp, nil
}

// normalize converts a provider entry into a zero-annotation tree node with
// a computed deep link
func (b *TreeBuilder) normalize(ref *RepoRef, fullPath string, e treeEntry) *tree.Node {
	kind := tree.KindFile
	linkKind := "blob"
	if e.Type == "tree" {
		kind = tree.KindDirectory
		linkKind = "tree"
	}

	return &tree.Node{
		Path:        fullPath,
		Name:        tree.BaseName(fullPath),
		Kind:        kind,
		ContentHash: e.SHA,
		ByteSize:    e.Size,
		SourceURL: fmt.Sprintf("%s/%s/%s/%s/%s",
			b.client.WebBaseURL(), ref.Key(), linkKind, ref.Branch, fullPath),
		Severity: tree.SeverityNone,
	}
}

func (b *TreeBuilder) fetchFailed(ref *RepoRef, err error) error {
	code := Diagnose(err)
	return agenterrors.New(agenterrors.TreeFetchFailed,
		fmt.Sprintf("failed to list tree for %s", ref), err).
		WithDetails(map[string]interface{}{"diagnosis": string(code)})
}
