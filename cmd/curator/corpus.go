package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kestrelworks/curator/internal/audit"
	"github.com/kestrelworks/curator/internal/config"
	"github.com/kestrelworks/curator/internal/document"
	"github.com/kestrelworks/curator/internal/fixer"
	"github.com/kestrelworks/curator/internal/refgraph"
	"github.com/kestrelworks/curator/internal/registry"
)

// corpus bundles the per-run snapshot every command works from.
type corpus struct {
	cfg    *config.Config
	loader *document.Loader
	reg    *registry.Registry
	graph  *refgraph.Graph
}

// loadConfig resolves configuration with root-flag overrides on top.
func loadConfig() (*config.Config, error) {
	overrides := &config.Config{
		Output:  GetOutput(),
		Verbose: GetVerbose(),
	}
	return config.Load(overrides)
}

// openCorpus builds the registry and reference graph for the configured root.
func openCorpus(ctx context.Context, cfg *config.Config) (*corpus, error) {
	loader := document.NewLoader()
	loader.CoreDir = cfg.CoreDir
	loader.LibraryDir = cfg.LibraryDir

	reg, err := registry.NewBuilder(loader).Build(cfg.CorpusRoot)
	if err != nil {
		return nil, err
	}
	VerbosePrintf("registered %d documents under %s\n", len(reg.Paths()), cfg.CorpusRoot)

	graph, err := refgraph.NewBuilder(loader, cfg.Workers).Build(ctx, reg)
	if err != nil {
		return nil, fmt.Errorf("build reference graph: %w", err)
	}
	return &corpus{cfg: cfg, loader: loader, reg: reg, graph: graph}, nil
}

// runAudit executes the full phase pipeline over the snapshot.
func (c *corpus) runAudit(ctx context.Context) (map[string]*audit.DocumentResult, error) {
	return audit.NewRunner(c.cfg.Workers).RunCorpus(ctx, c.reg, c.graph, c.cfg)
}

// normalizeTarget turns a user-supplied document argument into the
// corpus-relative key the registry uses. Accepts paths with or without the
// corpus root prefix and with or without the SKILL.md suffix.
func (c *corpus) normalizeTarget(arg string) (string, error) {
	rel := filepath.ToSlash(filepath.Clean(arg))
	rootPrefix := filepath.ToSlash(filepath.Clean(c.cfg.CorpusRoot)) + "/"
	rel = strings.TrimPrefix(rel, rootPrefix)
	if !strings.HasSuffix(rel, "/"+registry.DocumentFile) {
		rel = rel + "/" + registry.DocumentFile
	}
	for _, p := range c.reg.Paths() {
		if p == rel {
			return rel, nil
		}
	}
	return "", fmt.Errorf("document %s not found in corpus %s", rel, c.cfg.CorpusRoot)
}

// filterResults narrows a result set to a single document path.
func filterResults(results map[string]*audit.DocumentResult, path string) map[string]*audit.DocumentResult {
	if res, ok := results[path]; ok {
		return map[string]*audit.DocumentResult{path: res}
	}
	return map[string]*audit.DocumentResult{}
}

// filterPhase keeps only one phase's issues, dropping documents the phase
// left untouched. States are recomputed for the narrowed view.
func filterPhase(results map[string]*audit.DocumentResult, phase string) map[string]*audit.DocumentResult {
	out := make(map[string]*audit.DocumentResult)
	for path, res := range results {
		var kept []audit.Issue
		for _, issue := range res.Issues {
			if issue.Phase == phase {
				kept = append(kept, issue)
			}
		}
		if len(kept) == 0 {
			continue
		}
		out[path] = &audit.DocumentResult{Path: path, State: audit.StateFixPending, Issues: kept}
	}
	return out
}

// resultFilter narrows an audit result set before resolution and reporting.
type resultFilter func(map[string]*audit.DocumentResult) map[string]*audit.DocumentResult

// maxFixRounds bounds audit-resolve-apply rounds in one invocation. Rounds
// past the first only run when the applier deferred an edit because its line
// range collided with another accepted edit in the same file.
const maxFixRounds = 4

// runFixRounds drives the fix loop: audit, resolve, apply, and repeat while
// edits were deferred, so a deferred fix is re-suggested against fresh line
// numbers and still lands in this invocation. Returns the merged apply
// outcome and the final audit results.
func runFixRounds(ctx context.Context, cfg *config.Config, c *corpus, resolver fixer.Resolver, dryRun bool, narrow resultFilter) (*fixer.Result, map[string]*audit.DocumentResult, error) {
	results, err := c.runAudit(ctx)
	if err != nil {
		return nil, nil, err
	}
	if narrow != nil {
		results = narrow(results)
	}

	merged := &fixer.Result{}
	changeIdx := make(map[string]int)

	for round := 1; round <= maxFixRounds; round++ {
		suggested := suggestedIssues(results)
		accepted := resolver.Resolve(suggested)
		VerbosePrintf("round %d: accepted %d of %d suggested fixes\n", round, len(accepted), len(suggested))
		if len(accepted) == 0 {
			break
		}

		applier := fixer.NewApplier(cfg.CorpusRoot, c.loader, cfg.Workers, dryRun)
		res, err := applier.Apply(ctx, cfg, accepted)
		if err != nil {
			return nil, nil, err
		}
		mergeRound(merged, changeIdx, res)

		if dryRun || len(res.Changes) == 0 {
			break
		}

		// Fresh snapshot: the applied fixes changed registry and graph inputs.
		c, err = openCorpus(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		results, err = c.runAudit(ctx)
		if err != nil {
			return nil, nil, err
		}
		if narrow != nil {
			results = narrow(results)
		}

		if len(res.Deferred) == 0 {
			break
		}
	}

	sort.Slice(merged.Changes, func(i, j int) bool {
		return merged.Changes[i].Path < merged.Changes[j].Path
	})
	return merged, results, nil
}

// mergeRound folds one round's outcome into the merged result, collapsing
// repeated changes to the same file into a single before/after pair.
func mergeRound(merged *fixer.Result, changeIdx map[string]int, res *fixer.Result) {
	merged.Failures = append(merged.Failures, res.Failures...)
	for _, change := range res.Changes {
		if i, ok := changeIdx[change.Path]; ok {
			merged.Changes[i].After = change.After
			merged.Changes[i].Fixed = append(merged.Changes[i].Fixed, change.Fixed...)
			continue
		}
		changeIdx[change.Path] = len(merged.Changes)
		merged.Changes = append(merged.Changes, change)
	}
}

// suggestedIssues collects every issue carrying a fix suggestion, in the
// deterministic report order.
func suggestedIssues(results map[string]*audit.DocumentResult) []audit.Issue {
	var issues []audit.Issue
	for _, res := range audit.SortedResults(results) {
		for _, issue := range res.Issues {
			if issue.Suggestion != nil {
				issues = append(issues, issue)
			}
		}
	}
	return issues
}
