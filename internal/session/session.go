// Package session implements the page-load sequence: resolve the repository,
// build its tree, then either restore a pending navigation snapshot or run
// the analysis pipeline, and finally honor a line fragment in the address.
package session

import (
	"context"
	"time"

	"github.com/fareya22/CleanCodeAAgent/internal/analysis"
	agenterrors "github.com/fareya22/CleanCodeAAgent/internal/errors"
	"github.com/fareya22/CleanCodeAAgent/internal/githost"
	"github.com/fareya22/CleanCodeAAgent/internal/highlight"
	"github.com/fareya22/CleanCodeAAgent/internal/logging"
	"github.com/fareya22/CleanCodeAAgent/internal/pipeline"
	"github.com/fareya22/CleanCodeAAgent/internal/tree"
)

// DefaultSettleDelay is how long to wait after load before highlighting a
// fragment line, giving the host page time to finish rendering.
const DefaultSettleDelay = 500 * time.Millisecond

// Page extends the highlight collaborator with what the locator needs
type Page interface {
	highlight.Page
	URL() string
	SelectorBranch() (branch string, disabled bool)
}

// Resolver derives repository identity from the page
type Resolver interface {
	Resolve(ctx context.Context, page githost.PageContext) (*githost.RepoRef, error)
}

// TreeLoader fetches and assembles the repository file tree
type TreeLoader interface {
	Load(ctx context.Context, ref *githost.RepoRef) ([]*tree.Node, error)
}

// Runner is the pipeline surface the session drives
type Runner interface {
	RunForRepository(ctx context.Context, ref *githost.RepoRef, roots []*tree.Node) (*pipeline.Snapshot, error)
	AnnotateTree(roots []*tree.Node, snap *pipeline.Snapshot)
	Restore(snap *pipeline.Snapshot)
}

// StateManager is the cross-navigation handoff slot
type StateManager interface {
	SaveForNavigation(snap *pipeline.Snapshot, ref *githost.RepoRef) error
	ConsumePending() (*pipeline.Snapshot, *githost.RepoRef, error)
}

// Options tunes session behavior
type Options struct {
	SettleDelay time.Duration
}

// Session owns one page view's worth of state
type Session struct {
	resolver Resolver
	trees    TreeLoader
	runner   Runner
	state    StateManager
	logger   *logging.Logger
	settle   time.Duration

	highlighter *highlight.Controller

	ref      *githost.RepoRef
	roots    []*tree.Node
	snapshot *pipeline.Snapshot
}

// New creates a session over the collaborators
func New(resolver Resolver, trees TreeLoader, runner Runner, state StateManager, opts Options, logger *logging.Logger) *Session {
	settle := opts.SettleDelay
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &Session{
		resolver: resolver,
		trees:    trees,
		runner:   runner,
		state:    state,
		logger:   logger,
		settle:   settle,
	}
}

// Result is what a completed load produced
type Result struct {
	Ref      *githost.RepoRef
	Roots    []*tree.Node
	Snapshot *pipeline.Snapshot
	Restored bool
}

// Load runs the startup sequence for the page. When a pending navigation
// snapshot exists for the same repository, the pipeline is skipped entirely
// and the tree is re-annotated from the snapshot; a failed or mismatched
// restore falls back to a fresh run. A line fragment in the address is
// highlighted after a short settling delay.
func (s *Session) Load(ctx context.Context, page Page) (*Result, error) {
	branch, disabled := page.SelectorBranch()
	ref, err := s.resolver.Resolve(ctx, githost.PageContext{
		URL:              page.URL(),
		SelectorBranch:   branch,
		SelectorDisabled: disabled,
	})
	if err != nil {
		return nil, err
	}

	roots, err := s.trees.Load(ctx, ref)
	if err != nil {
		return nil, err
	}

	s.highlighter = highlight.New(page, s.logger)

	snap, restored := s.pendingSnapshot(ref)
	if !restored {
		snap, err = s.runner.RunForRepository(ctx, ref, roots)
		if err != nil {
			return nil, err
		}
	}
	s.runner.AnnotateTree(roots, snap)

	s.ref = ref
	s.roots = roots
	s.snapshot = snap

	if line, ok := highlight.ParseLineFragment(page.Fragment()); ok {
		if err := s.highlightAfterSettle(ctx, line); err != nil {
			return nil, err
		}
	}

	return &Result{Ref: ref, Roots: roots, Snapshot: snap, Restored: restored}, nil
}

// pendingSnapshot consumes the handoff slot and decides whether its content
// can stand in for a pipeline run
func (s *Session) pendingSnapshot(ref *githost.RepoRef) (*pipeline.Snapshot, bool) {
	pending, savedRef, err := s.state.ConsumePending()
	if err != nil {
		s.logger.Warn("Pending snapshot could not be restored, running fresh", map[string]interface{}{
			"error": err.Error(),
			"code":  string(agenterrors.CodeOf(err)),
		})
		return nil, false
	}
	if pending == nil {
		return nil, false
	}
	if savedRef == nil || savedRef.Key() != ref.Key() {
		s.logger.Info("Pending snapshot is for a different repository, running fresh", map[string]interface{}{
			"repo": ref.Key(),
		})
		return nil, false
	}

	s.runner.Restore(pending)
	s.logger.Info("Restored analysis from navigation snapshot", map[string]interface{}{
		"repo":  pending.RepoKey,
		"files": pending.Totals.FileCount,
	})
	return pending, true
}

func (s *Session) highlightAfterSettle(ctx context.Context, line int) error {
	timer := time.NewTimer(s.settle)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := s.highlighter.GoTo(line); err != nil {
		// The document may not render that line; not fatal to the load
		s.logger.Debug("Fragment line could not be highlighted", map[string]interface{}{
			"line":  line,
			"error": err.Error(),
		})
	}
	return nil
}

// OpenIssue routes an issue's jump link through the highlight controller.
// Same-file links highlight in place; different-file links save the current
// snapshot and navigate.
func (s *Session) OpenIssue(issue analysis.Issue) error {
	if issue.JumpURL == "" {
		return agenterrors.New(agenterrors.InternalError, "issue has no jump link", nil)
	}
	var save func() error
	if s.snapshot != nil {
		save = func() error {
			return s.state.SaveForNavigation(s.snapshot, s.ref)
		}
	}
	return s.highlighter.Navigate(issue.JumpURL, save)
}

// Snapshot returns the snapshot the session is currently displaying
func (s *Session) Snapshot() *pipeline.Snapshot {
	return s.snapshot
}

// Roots returns the annotated tree roots
func (s *Session) Roots() []*tree.Node {
	return s.roots
}
