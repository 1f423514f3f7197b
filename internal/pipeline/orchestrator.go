// Package pipeline coordinates the end-to-end analysis run: candidate
// selection, rate-limited sequential analysis, whole-repository result
// caching, and tree annotation.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/fareya22/CleanCodeAAgent/internal/analysis"
	agenterrors "github.com/fareya22/CleanCodeAAgent/internal/errors"
	"github.com/fareya22/CleanCodeAAgent/internal/githost"
	"github.com/fareya22/CleanCodeAAgent/internal/logging"
	"github.com/fareya22/CleanCodeAAgent/internal/tree"
)

// ContentFetcher retrieves raw file text at a reference
type ContentFetcher interface {
	Fetch(ctx context.Context, ref *githost.RepoRef, path string) (string, error)
}

// Analyzer submits files to the analysis service
type Analyzer interface {
	AnalyzeFile(ctx context.Context, req analysis.FileRequest) (*analysis.FileResult, error)
	AnalyzeRepository(ctx context.Context, req analysis.BatchRequest) (*analysis.BatchResult, error)
}

// Progress is invoked after every completed file with the running count
type Progress func(completed, total int, path string)

// Options bound the candidate set and the request rate
type Options struct {
	Extensions        []string
	MaxFiles          int
	RequestsPerMinute int
	MaxContentBytes   int
}

// Orchestrator owns the snapshot cache and drives analysis runs. All state
// is instance-scoped; create one per process and pass it explicitly.
type Orchestrator struct {
	fetcher  ContentFetcher
	analyzer Analyzer
	limiter  *rate.Limiter
	logger   *logging.Logger
	opts     Options

	// OnProgress, when set, receives incremental completion updates
	OnProgress Progress

	mu       sync.Mutex
	cache    map[string]*Snapshot     // repoKey -> finalized snapshot
	inflight map[string]chan struct{} // repoKey -> closed when run ends
}

// New creates an orchestrator. The token-bucket limiter spaces analysis
// calls at opts.RequestsPerMinute while keeping the per-file loop strictly
// sequential with ordered appends.
func New(fetcher ContentFetcher, analyzer Analyzer, opts Options, logger *logging.Logger) *Orchestrator {
	rpm := opts.RequestsPerMinute
	if rpm <= 0 {
		rpm = 20
	}
	return &Orchestrator{
		fetcher:  fetcher,
		analyzer: analyzer,
		limiter:  rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		logger:   logger,
		opts:     opts,
		cache:    make(map[string]*Snapshot),
		inflight: make(map[string]chan struct{}),
	}
}

// RunForRepository runs the per-file analysis pipeline over the tree,
// returning the cached snapshot when one exists for ref's key. At most one
// run is in flight per repository: a concurrent caller for the same key
// waits for the active run and shares its snapshot.
func (o *Orchestrator) RunForRepository(ctx context.Context, ref *githost.RepoRef, roots []*tree.Node) (*Snapshot, error) {
	return o.run(ctx, ref, roots, o.analyzeSequential)
}

// RunBatch is the whole-repository mode: contents are gathered locally and
// submitted in a single analysis call. It shares the snapshot cache and
// in-flight guard with RunForRepository.
func (o *Orchestrator) RunBatch(ctx context.Context, ref *githost.RepoRef, roots []*tree.Node) (*Snapshot, error) {
	return o.run(ctx, ref, roots, o.analyzeBatch)
}

type analyzeFunc func(ctx context.Context, ref *githost.RepoRef, candidates []*tree.Node, snap *Snapshot) error

func (o *Orchestrator) run(ctx context.Context, ref *githost.RepoRef, roots []*tree.Node, analyze analyzeFunc) (*Snapshot, error) {
	key := ref.Key()

	for {
		o.mu.Lock()
		if snap, ok := o.cache[key]; ok {
			o.mu.Unlock()
			o.logger.Debug("Snapshot cache hit", map[string]interface{}{"repo": key})
			return snap, nil
		}
		wait, running := o.inflight[key]
		if !running {
			done := make(chan struct{})
			o.inflight[key] = done
			o.mu.Unlock()

			snap, err := o.execute(ctx, ref, roots, analyze)

			o.mu.Lock()
			delete(o.inflight, key)
			if err == nil {
				// Insert-if-absent: the first finished run wins
				if existing, ok := o.cache[key]; ok {
					snap = existing
				} else {
					o.cache[key] = snap
				}
			}
			o.mu.Unlock()
			close(done)
			return snap, err
		}
		o.mu.Unlock()

		select {
		case <-wait:
			// Re-check the cache; if the active run failed, take over
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// execute performs one full run and finalizes the snapshot
func (o *Orchestrator) execute(ctx context.Context, ref *githost.RepoRef, roots []*tree.Node, analyze analyzeFunc) (*Snapshot, error) {
	candidates := o.selectCandidates(roots)
	if len(candidates) == 0 {
		return nil, agenterrors.New(agenterrors.NoAnalyzableFiles,
			fmt.Sprintf("%s has no files matching the source allow-list", ref.Key()), nil)
	}

	o.logger.Info("Starting analysis run", map[string]interface{}{
		"repo":   ref.Key(),
		"branch": ref.Branch,
		"files":  len(candidates),
	})

	snap := newSnapshot(ref.Key(), ref.Branch)
	if err := analyze(ctx, ref, candidates, snap); err != nil {
		// Interrupted runs are discarded, never cached
		return nil, err
	}

	snap.finalize()
	o.logger.Info("Analysis run complete", map[string]interface{}{
		"repo":      snap.RepoKey,
		"files":     snap.Totals.FileCount,
		"succeeded": snap.Totals.SucceededCount,
		"issues":    snap.Totals.IssueCount,
	})
	return snap, nil
}

// analyzeSequential is the per-file loop: fetch, analyze, append, in
// file-list order. Per-file failures are recorded and never abort the loop.
func (o *Orchestrator) analyzeSequential(ctx context.Context, ref *githost.RepoRef, candidates []*tree.Node, snap *Snapshot) error {
	total := len(candidates)
	for i, node := range candidates {
		if err := o.limiter.Wait(ctx); err != nil {
			return err
		}

		entry := o.analyzeOne(ctx, ref, node.Path)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		snap.append(entry)
		o.emitProgress(i+1, total, node.Path)
	}
	return nil
}

func (o *Orchestrator) analyzeOne(ctx context.Context, ref *githost.RepoRef, path string) PerFile {
	content, err := o.fetcher.Fetch(ctx, ref, path)
	if err != nil {
		o.logger.Warn("Content fetch failed", map[string]interface{}{
			"path": path, "error": err.Error(),
		})
		return PerFile{Path: path, OK: false}
	}
	content = o.clamp(content)

	result, err := o.analyzer.AnalyzeFile(ctx, analysis.FileRequest{
		Path:    path,
		Content: content,
		Repo:    ref.Key(),
		Branch:  ref.Branch,
	})
	if err != nil {
		o.logger.Warn("Analyze call failed", map[string]interface{}{
			"path": path, "error": err.Error(),
		})
		return PerFile{Path: path, OK: false}
	}

	return PerFile{Path: path, Issues: result.Issues, Summary: result.Summary, OK: true}
}

// analyzeBatch gathers contents and submits one whole-repository call.
// Files whose content cannot be fetched become failed entries up front.
func (o *Orchestrator) analyzeBatch(ctx context.Context, ref *githost.RepoRef, candidates []*tree.Node, snap *Snapshot) error {
	var files []analysis.BatchFile
	for _, node := range candidates {
		content, err := o.fetcher.Fetch(ctx, ref, node.Path)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			o.logger.Warn("Content fetch failed", map[string]interface{}{
				"path": node.Path, "error": err.Error(),
			})
			continue
		}
		files = append(files, analysis.BatchFile{Path: node.Path, Content: o.clamp(content)})
	}

	entries := make(map[string]PerFile, len(files))
	if len(files) > 0 {
		if err := o.limiter.Wait(ctx); err != nil {
			return err
		}
		result, err := o.analyzer.AnalyzeRepository(ctx, analysis.BatchRequest{
			Repo:   ref.Key(),
			Branch: ref.Branch,
			Files:  files,
		})
		if err != nil {
			// The single batch call failing fails every fetched file,
			// but the snapshot still finalizes with failed entries
			o.logger.Warn("Batch analyze call failed", map[string]interface{}{
				"repo": ref.Key(), "error": err.Error(),
			})
		} else {
			for _, r := range result.Results {
				entries[r.File] = PerFile{
					Path:   r.File,
					Issues: r.Issues,
					OK:     r.Status == "success",
				}
			}
		}
	}

	// Append in candidate order regardless of service response order
	total := len(candidates)
	for i, node := range candidates {
		entry, ok := entries[node.Path]
		if !ok {
			entry = PerFile{Path: node.Path, OK: false}
		}
		snap.append(entry)
		o.emitProgress(i+1, total, node.Path)
	}
	return nil
}

// selectCandidates flattens the tree to files, filters by the extension
// allow-list, and caps the result at MaxFiles
func (o *Orchestrator) selectCandidates(roots []*tree.Node) []*tree.Node {
	var candidates []*tree.Node
	for _, f := range tree.Files(roots) {
		if !o.analyzable(f.Path) {
			continue
		}
		candidates = append(candidates, f)
		if o.opts.MaxFiles > 0 && len(candidates) >= o.opts.MaxFiles {
			break
		}
	}
	return candidates
}

func (o *Orchestrator) analyzable(path string) bool {
	for _, ext := range o.opts.Extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func (o *Orchestrator) clamp(content string) string {
	if o.opts.MaxContentBytes > 0 && len(content) > o.opts.MaxContentBytes {
		return content[:o.opts.MaxContentBytes]
	}
	return content
}

func (o *Orchestrator) emitProgress(completed, total int, path string) {
	if o.OnProgress != nil {
		o.OnProgress(completed, total, path)
	}
}

// AnnotateTree applies a snapshot's issues to the tree and recomputes
// directory aggregates bottom-up
func (o *Orchestrator) AnnotateTree(roots []*tree.Node, snap *Snapshot) {
	tree.Annotate(roots, snap.IssuesByPath())
}

// ClearCache drops all cached snapshots. In-flight runs are unaffected and
// will insert their snapshot when they finish.
func (o *Orchestrator) ClearCache() {
	o.mu.Lock()
	o.cache = make(map[string]*Snapshot)
	o.mu.Unlock()
	o.logger.Debug("Snapshot cache cleared", nil)
}

// Restore seeds the cache with a snapshot recovered from the navigation
// handoff slot so the pipeline is bypassed for that repository
func (o *Orchestrator) Restore(snap *Snapshot) {
	o.mu.Lock()
	if _, ok := o.cache[snap.RepoKey]; !ok {
		o.cache[snap.RepoKey] = snap
	}
	o.mu.Unlock()
}
