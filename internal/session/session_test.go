package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fareya22/CleanCodeAAgent/internal/analysis"
	agenterrors "github.com/fareya22/CleanCodeAAgent/internal/errors"
	"github.com/fareya22/CleanCodeAAgent/internal/githost"
	"github.com/fareya22/CleanCodeAAgent/internal/highlight"
	"github.com/fareya22/CleanCodeAAgent/internal/logging"
	"github.com/fareya22/CleanCodeAAgent/internal/pipeline"
	"github.com/fareya22/CleanCodeAAgent/internal/tree"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Level: logging.ErrorLevel})
}

// --- collaborator fakes ---

type fakeResolver struct {
	ref *githost.RepoRef
	err error
}

func (r *fakeResolver) Resolve(ctx context.Context, page githost.PageContext) (*githost.RepoRef, error) {
	return r.ref, r.err
}

type fakeTrees struct {
	entries []*tree.Node
	err     error
}

func (f *fakeTrees) Load(ctx context.Context, ref *githost.RepoRef) ([]*tree.Node, error) {
	if f.err != nil {
		return nil, f.err
	}
	return tree.Build(f.entries), nil
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, ref *githost.RepoRef, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return "class A {}", nil
}

type fakeAnalyzer struct {
	mu     sync.Mutex
	calls  int
	issues map[string][]analysis.Issue
}

func (f *fakeAnalyzer) AnalyzeFile(ctx context.Context, req analysis.FileRequest) (*analysis.FileResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return &analysis.FileResult{Status: "success", File: req.Path, Issues: f.issues[req.Path]}, nil
}

func (f *fakeAnalyzer) AnalyzeRepository(ctx context.Context, req analysis.BatchRequest) (*analysis.BatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return &analysis.BatchResult{Status: "success"}, nil
}

type fakeState struct {
	pending    *pipeline.Snapshot
	pendingRef *githost.RepoRef
	consumeErr error

	saved    *pipeline.Snapshot
	savedRef *githost.RepoRef
}

func (s *fakeState) SaveForNavigation(snap *pipeline.Snapshot, ref *githost.RepoRef) error {
	s.saved = snap
	s.savedRef = ref
	return nil
}

func (s *fakeState) ConsumePending() (*pipeline.Snapshot, *githost.RepoRef, error) {
	snap, ref, err := s.pending, s.pendingRef, s.consumeErr
	s.pending, s.pendingRef, s.consumeErr = nil, nil, nil
	return snap, ref, err
}

// fakePage satisfies session.Page; element handles are line numbers
type fakePage struct {
	url      string
	path     string
	fragment string
	lines    map[int]bool

	marked      []int
	navigatedTo string
}

func (p *fakePage) URL() string                    { return p.url }
func (p *fakePage) Path() string                   { return p.path }
func (p *fakePage) Fragment() string               { return p.fragment }
func (p *fakePage) SetFragment(fragment string)    { p.fragment = fragment }
func (p *fakePage) SelectorBranch() (string, bool) { return "main", false }

func (p *fakePage) RowElement(line int) (highlight.Element, bool) { return nil, false }

func (p *fakePage) LineElement(line int) (highlight.Element, bool) {
	if p.lines[line] {
		return line, true
	}
	return nil, false
}

func (p *fakePage) ScrollTo(el highlight.Element) {}
func (p *fakePage) ApplyMark(el highlight.Element) {
	p.marked = append(p.marked, el.(int))
}
func (p *fakePage) RemoveMark(el highlight.Element)       {}
func (p *fakePage) NativeHighlights() []highlight.Element { return nil }
func (p *fakePage) Yield()                                {}
func (p *fakePage) Navigate(targetURL string) error {
	p.navigatedTo = targetURL
	return nil
}

// --- fixtures ---

func repoEntries() []*tree.Node {
	return []*tree.Node{
		{Path: "src", Name: "src", Kind: tree.KindDirectory},
		{Path: "src/a.java", Name: "a.java", Kind: tree.KindFile},
		{Path: "src/b.java", Name: "b.java", Kind: tree.KindFile},
		{Path: "README.md", Name: "README.md", Kind: tree.KindFile},
	}
}

func newTestSession(t *testing.T, fetcher *fakeFetcher, analyzer *fakeAnalyzer, state *fakeState) (*Session, *pipeline.Orchestrator) {
	t.Helper()
	orch := pipeline.New(fetcher, analyzer, pipeline.Options{
		Extensions:        []string{".java"},
		MaxFiles:          10,
		RequestsPerMinute: 100000,
	}, testLogger())

	resolver := &fakeResolver{ref: &githost.RepoRef{Owner: "octocat", Name: "hello", Branch: "main"}}
	trees := &fakeTrees{entries: repoEntries()}
	sess := New(resolver, trees, orch, state, Options{SettleDelay: time.Millisecond}, testLogger())
	return sess, orch
}

func findNode(roots []*tree.Node, path string) *tree.Node {
	var found *tree.Node
	tree.Walk(roots, func(n *tree.Node) {
		if n.Path == path {
			found = n
		}
	})
	return found
}

// --- tests ---

func TestLoadFreshRun(t *testing.T) {
	fetcher := &fakeFetcher{}
	analyzer := &fakeAnalyzer{issues: map[string][]analysis.Issue{
		"src/a.java": {{OwnerClass: "A", Rank: 1}, {OwnerClass: "A", Rank: 6}},
	}}
	sess, _ := newTestSession(t, fetcher, analyzer, &fakeState{})

	res, err := sess.Load(context.Background(), &fakePage{url: "https://github.test/octocat/hello"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if res.Restored {
		t.Error("nothing was pending, Restored must be false")
	}
	if res.Snapshot.Totals.FileCount != 2 || res.Snapshot.Totals.IssueCount != 2 {
		t.Errorf("totals = %+v", res.Snapshot.Totals)
	}

	a := findNode(res.Roots, "src/a.java")
	if a == nil || a.Severity != tree.SeverityHigh || a.IssueCount != 2 {
		t.Errorf("a.java = %+v", a)
	}
	dir := findNode(res.Roots, "src")
	if dir == nil || dir.Severity != tree.SeverityAggregated || dir.IssueCount != 2 {
		t.Errorf("src = %+v", dir)
	}
}

func TestLoadRestoresWithoutNetworkCalls(t *testing.T) {
	fetcher := &fakeFetcher{}
	analyzer := &fakeAnalyzer{issues: map[string][]analysis.Issue{
		"src/a.java": {{OwnerClass: "A", Rank: 1}, {OwnerClass: "A", Rank: 6}},
	}}

	// First, produce a snapshot via a fresh run in a throwaway session
	seedSess, _ := newTestSession(t, fetcher, analyzer, &fakeState{})
	seedRes, err := seedSess.Load(context.Background(), &fakePage{url: "https://github.test/octocat/hello"})
	if err != nil {
		t.Fatalf("seed Load failed: %v", err)
	}
	freshTree := seedRes.Roots

	// Now load a new page with that snapshot pending; the pipeline must be
	// skipped entirely
	fetcher2 := &fakeFetcher{}
	analyzer2 := &fakeAnalyzer{}
	state := &fakeState{
		pending:    seedRes.Snapshot,
		pendingRef: seedRes.Ref,
	}
	sess, _ := newTestSession(t, fetcher2, analyzer2, state)

	res, err := sess.Load(context.Background(), &fakePage{url: "https://github.test/octocat/hello"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !res.Restored {
		t.Fatal("expected the pending snapshot to be restored")
	}
	if fetcher2.calls != 0 || analyzer2.calls != 0 {
		t.Errorf("restore made network calls: fetch=%d analyze=%d", fetcher2.calls, analyzer2.calls)
	}

	// The restored tree annotation matches the fresh run's
	for _, path := range []string{"src/a.java", "src/b.java", "src"} {
		fresh := findNode(freshTree, path)
		restored := findNode(res.Roots, path)
		if restored.IssueCount != fresh.IssueCount || restored.Severity != fresh.Severity {
			t.Errorf("%s: restored (%d, %s), fresh (%d, %s)",
				path, restored.IssueCount, restored.Severity, fresh.IssueCount, fresh.Severity)
		}
	}
}

func TestLoadPendingForOtherRepoRunsFresh(t *testing.T) {
	fetcher := &fakeFetcher{}
	analyzer := &fakeAnalyzer{}
	state := &fakeState{
		pending:    &pipeline.Snapshot{RepoKey: "someone/else"},
		pendingRef: &githost.RepoRef{Owner: "someone", Name: "else", Branch: "main"},
	}
	sess, _ := newTestSession(t, fetcher, analyzer, state)

	res, err := sess.Load(context.Background(), &fakePage{url: "https://github.test/octocat/hello"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if res.Restored {
		t.Error("a mismatched snapshot must not be restored")
	}
	if analyzer.calls == 0 {
		t.Error("expected a fresh pipeline run")
	}
}

func TestLoadRestoreFailureFallsBackToFreshRun(t *testing.T) {
	fetcher := &fakeFetcher{}
	analyzer := &fakeAnalyzer{}
	state := &fakeState{
		consumeErr: agenterrors.New(agenterrors.RestoreFailed, "slot payload is corrupt", nil),
	}
	sess, _ := newTestSession(t, fetcher, analyzer, state)

	res, err := sess.Load(context.Background(), &fakePage{url: "https://github.test/octocat/hello"})
	if err != nil {
		t.Fatalf("Load must absorb a restore failure, got: %v", err)
	}
	if res.Restored {
		t.Error("a failed restore must not count as restored")
	}
	if analyzer.calls == 0 {
		t.Error("expected a fresh pipeline run after the failed restore")
	}
}

func TestLoadHighlightsFragmentLine(t *testing.T) {
	sess, _ := newTestSession(t, &fakeFetcher{}, &fakeAnalyzer{}, &fakeState{})
	page := &fakePage{
		url:      "https://github.test/octocat/hello/blob/main/src/a.java#L17",
		path:     "/octocat/hello/blob/main/src/a.java",
		fragment: "L17",
		lines:    map[int]bool{17: true},
	}

	if _, err := sess.Load(context.Background(), page); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(page.marked) != 1 || page.marked[0] != 17 {
		t.Errorf("marked = %v, want [17]", page.marked)
	}
}

func TestOpenIssueDifferentFileSavesSnapshot(t *testing.T) {
	state := &fakeState{}
	sess, _ := newTestSession(t, &fakeFetcher{}, &fakeAnalyzer{}, state)
	page := &fakePage{
		url:  "https://github.test/octocat/hello/blob/main/src/a.java",
		path: "/octocat/hello/blob/main/src/a.java",
	}

	if _, err := sess.Load(context.Background(), page); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	target := "https://github.test/octocat/hello/blob/main/src/b.java#L9"
	err := sess.OpenIssue(analysis.Issue{OwnerClass: "B", JumpURL: target})
	if err != nil {
		t.Fatalf("OpenIssue failed: %v", err)
	}

	if state.saved == nil {
		t.Fatal("the snapshot must be saved before navigating away")
	}
	if state.saved != sess.Snapshot() {
		t.Error("saved snapshot is not the session's snapshot")
	}
	if state.savedRef.Key() != "octocat/hello" {
		t.Errorf("savedRef = %+v", state.savedRef)
	}
	if page.navigatedTo != target {
		t.Errorf("navigatedTo = %q, want %q", page.navigatedTo, target)
	}
}

func TestOpenIssueWithoutJumpLink(t *testing.T) {
	sess, _ := newTestSession(t, &fakeFetcher{}, &fakeAnalyzer{}, &fakeState{})
	page := &fakePage{url: "https://github.test/octocat/hello"}
	if _, err := sess.Load(context.Background(), page); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := sess.OpenIssue(analysis.Issue{OwnerClass: "A"}); err == nil {
		t.Error("expected an error for an issue with no jump link")
	}
}
