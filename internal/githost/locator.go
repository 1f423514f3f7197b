package githost

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	agenterrors "github.com/fareya22/CleanCodeAAgent/internal/errors"
	"github.com/fareya22/CleanCodeAAgent/internal/logging"
)

// FallbackBranch is used when every branch detection strategy fails.
// Resolution still succeeds; the result is logged as degraded.
const FallbackBranch = "main"

// RepoRef identifies a repository at a branch. Immutable once resolved
// for a page view.
type RepoRef struct {
	Owner       string `json:"owner"`
	Name        string `json:"name"`
	Branch      string `json:"branch"`
	PathContext string `json:"pathContext,omitempty"`
}

// Key returns the owner/name cache key
func (r RepoRef) Key() string {
	return r.Owner + "/" + r.Name
}

func (r RepoRef) String() string {
	return fmt.Sprintf("%s/%s@%s", r.Owner, r.Name, r.Branch)
}

// PageContext is what the host page exposes about itself: its address and
// the state of the on-page branch selector, if one is rendered.
type PageContext struct {
	URL              string
	SelectorBranch   string // text of the branch selector, "" if absent
	SelectorDisabled bool   // selector rendered but in placeholder/disabled state
}

// BranchCache persists default branches per owner/name. Implementations may
// be in-process only; the locator layers its own process-lifetime map on top.
type BranchCache interface {
	GetDefaultBranch(key string) (string, bool)
	PutDefaultBranch(key, branch string) error
}

// Locator derives repository identity from a page context
type Locator struct {
	client    *Client
	persisted BranchCache // optional
	logger    *logging.Logger

	mu       sync.Mutex
	branches map[string]string // owner/name -> default branch
}

// NewLocator creates a locator. persisted may be nil.
func NewLocator(client *Client, persisted BranchCache, logger *logging.Logger) *Locator {
	return &Locator{
		client:    client,
		persisted: persisted,
		logger:    logger,
		branches:  make(map[string]string),
	}
}

// Path segments that can never be a repository owner on the host
var reservedSegments = map[string]bool{
	"orgs": true, "settings": true, "marketplace": true, "explore": true,
	"notifications": true, "login": true, "topics": true, "trending": true,
	"search": true, "pulls": true, "issues": true, "features": true,
	"sponsors": true, "about": true,
}

// Resolve derives a RepoRef from the page context. It fails with
// NOT_A_REPO_PAGE when the URL path does not start with an owner/name pair.
func (l *Locator) Resolve(ctx context.Context, page PageContext) (*RepoRef, error) {
	u, err := url.Parse(page.URL)
	if err != nil {
		return nil, agenterrors.New(agenterrors.NotARepoPage, "page URL is not parseable", err)
	}

	segments := splitPath(u.Path)
	if len(segments) < 2 || reservedSegments[segments[0]] {
		return nil, agenterrors.New(agenterrors.NotARepoPage,
			fmt.Sprintf("path %q does not identify an owner/name repository", u.Path), nil)
	}

	ref := &RepoRef{Owner: segments[0], Name: segments[1]}
	if len(segments) > 2 {
		ref.PathContext = strings.Join(segments[2:], "/")
	}

	ref.Branch = l.resolveBranch(ctx, page, ref.Key())
	return ref, nil
}

// resolveBranch applies the detection order: on-page selector, remembered
// default, repository-metadata endpoint, fixed fallback.
func (l *Locator) resolveBranch(ctx context.Context, page PageContext, key string) string {
	if branch := strings.TrimSpace(page.SelectorBranch); branch != "" && !page.SelectorDisabled {
		return branch
	}

	l.mu.Lock()
	branch, ok := l.branches[key]
	l.mu.Unlock()
	if ok {
		return branch
	}

	if l.persisted != nil {
		if branch, ok := l.persisted.GetDefaultBranch(key); ok {
			l.remember(key, branch)
			return branch
		}
	}

	branch, err := l.fetchDefaultBranch(ctx, key)
	if err != nil {
		l.logger.Warn("Default branch lookup failed, using fallback", map[string]interface{}{
			"repo":   key,
			"branch": FallbackBranch,
			"error":  err.Error(),
		})
		return FallbackBranch
	}

	l.remember(key, branch)
	if l.persisted != nil {
		if err := l.persisted.PutDefaultBranch(key, branch); err != nil {
			l.logger.Debug("Failed to persist default branch", map[string]interface{}{
				"repo": key, "error": err.Error(),
			})
		}
	}
	return branch
}

func (l *Locator) remember(key, branch string) {
	l.mu.Lock()
	l.branches[key] = branch
	l.mu.Unlock()
}

// fetchDefaultBranch calls the repository-metadata endpoint
func (l *Locator) fetchDefaultBranch(ctx context.Context, key string) (string, error) {
	body, err := l.client.get(ctx, "/repos/"+key, nil)
	if err != nil {
		return "", err
	}

	var meta struct {
		DefaultBranch string `json:"default_branch"`
	}
	if err := json.Unmarshal(body, &meta); err != nil {
		return "", fmt.Errorf("failed to parse repository metadata: %w", err)
	}
	if meta.DefaultBranch == "" {
		return "", fmt.Errorf("repository metadata has no default branch")
	}
	return meta.DefaultBranch, nil
}

func splitPath(p string) []string {
	var segments []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
