package audit

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kestrelworks/curator/internal/config"
	"github.com/kestrelworks/curator/internal/refgraph"
	"github.com/kestrelworks/curator/internal/registry"
)

// DocState tracks a document through the audit/fix lifecycle.
type DocState string

// Document states.
const (
	StateUnaudited  DocState = "UNAUDITED"
	StateAudited    DocState = "AUDITED"
	StateClean      DocState = "CLEAN"
	StateFixPending DocState = "FIX_PENDING"
	StateApplying   DocState = "APPLYING"
	StateReAuditing DocState = "RE_AUDITING"
)

// DocumentResult is the audit outcome for one document.
type DocumentResult struct {
	// Path is the corpus-relative document path.
	Path string `json:"path"`

	// State is the document's lifecycle state after the run.
	State DocState `json:"state"`

	// Issues lists every finding against the document, phase order
	// preserved.
	Issues []Issue `json:"issues,omitempty"`
}

// Passed reports whether the document has no critical issues.
func (r *DocumentResult) Passed() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityCritical {
			return false
		}
	}
	return true
}

// Runner executes the fixed phase pipeline.
type Runner struct {
	phases  []Phase
	workers int
}

// NewRunner creates a runner with the full pipeline and the given worker
// bound (0 = NumCPU).
func NewRunner(workers int) *Runner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Runner{phases: Phases(), workers: workers}
}

// RunCorpus audits every document: per-document phases on a bounded pool,
// then cross-document phases single-threaded against the completed graph.
// Cancellation is honored between documents.
func (r *Runner) RunCorpus(ctx context.Context, reg *registry.Registry, graph *refgraph.Graph, cfg *config.Config) (map[string]*DocumentResult, error) {
	paths := reg.Paths()
	results := make(map[string]*DocumentResult, len(paths))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, p := range paths {
		if err := gctx.Err(); err != nil {
			break
		}
		p := p
		g.Go(func() error {
			res := r.auditDocument(p, reg, graph, cfg)
			mu.Lock()
			results[p] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.runCrossDocument(reg, graph, cfg, results)

	for _, res := range results {
		res.State = stateAfterAudit(res)
	}
	return results, nil
}

// auditDocument runs the per-document phases for one path, honoring phase
// dependencies: a phase whose prerequisite raised a critical issue is
// skipped, not failed.
func (r *Runner) auditDocument(path string, reg *registry.Registry, graph *refgraph.Graph, cfg *config.Config) *DocumentResult {
	res := &DocumentResult{Path: path, State: StateAudited}
	res.Issues = r.RunDocumentPhases(path, reg, graph, cfg)
	return res
}

// RunDocumentPhases executes only the per-document phases for one path. The
// fixer uses this for the post-apply re-audit.
func (r *Runner) RunDocumentPhases(path string, reg *registry.Registry, graph *refgraph.Graph, cfg *config.Config) []Issue {
	doc, _ := graph.Document(path)
	in := Input{Doc: doc, Path: path, Registry: reg, Graph: graph, Config: cfg}

	criticalPhases := make(map[string]bool)
	var issues []Issue

	for _, phase := range r.phases {
		if phase.Scope() != ScopePerDocument {
			continue
		}
		if dep := phase.DependsOn(); dep != "" && criticalPhases[dep] {
			continue
		}
		if doc == nil && phase.ID() != PhaseStructural {
			// Unparsable documents only get the structural finding.
			continue
		}
		for _, issue := range phase.Check(in) {
			if issue.Severity == SeverityCritical {
				criticalPhases[phase.ID()] = true
			}
			issues = append(issues, issue)
		}
	}
	return issues
}

// runCrossDocument executes the corpus-wide phases and attaches their
// findings to the per-document results.
func (r *Runner) runCrossDocument(reg *registry.Registry, graph *refgraph.Graph, cfg *config.Config, results map[string]*DocumentResult) {
	in := Input{Registry: reg, Graph: graph, Config: cfg}
	for _, phase := range r.phases {
		if phase.Scope() != ScopeCrossDocument {
			continue
		}
		for _, issue := range phase.Check(in) {
			res, ok := results[issue.Path]
			if !ok {
				res = &DocumentResult{Path: issue.Path, State: StateAudited}
				results[issue.Path] = res
			}
			res.Issues = append(res.Issues, issue)
		}
	}
}

// stateAfterAudit resolves the post-audit state.
func stateAfterAudit(res *DocumentResult) DocState {
	if len(res.Issues) == 0 {
		return StateClean
	}
	return StateFixPending
}

// SortedResults flattens a result map into path order.
func SortedResults(results map[string]*DocumentResult) []*DocumentResult {
	paths := make([]string, 0, len(results))
	for p := range results {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	out := make([]*DocumentResult, 0, len(paths))
	for _, p := range paths {
		out = append(out, results[p])
	}
	return out
}
