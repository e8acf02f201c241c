// Package fixer applies accepted fix suggestions to corpus documents.
// Every write is atomic per file, serialized per path, and followed by a
// mandatory reload and re-audit: a fix whose issue survives re-audit is a
// fix-application failure and the file is rolled back.
package fixer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kestrelworks/curator/internal/audit"
	"github.com/kestrelworks/curator/internal/config"
	"github.com/kestrelworks/curator/internal/document"
	"github.com/kestrelworks/curator/internal/refgraph"
	"github.com/kestrelworks/curator/internal/registry"
)

// ErrFixNotClosed is reported when a fix's issue is still present after the
// post-apply re-audit. The file is rolled back to its pre-fix bytes.
var ErrFixNotClosed = errors.New("issue still present after fix")

// Applier applies accepted fixes against a corpus root.
type Applier struct {
	// Root is the corpus root directory.
	Root string

	// Loader parses documents for the re-audit.
	Loader *document.Loader

	// Workers bounds cross-document fix parallelism (0 = NumCPU).
	Workers int

	// DryRun computes changes without writing anything.
	DryRun bool

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewApplier creates an applier for the given corpus root.
func NewApplier(root string, loader *document.Loader, workers int, dryRun bool) *Applier {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Applier{
		Root:    root,
		Loader:  loader,
		Workers: workers,
		DryRun:  dryRun,
		locks:   make(map[string]*sync.Mutex),
	}
}

// FileChange records one modified (or, in dry-run, would-be-modified) file.
type FileChange struct {
	// Path is the corpus-relative file path.
	Path string `json:"path"`

	// Before and After are the full file contents around the fix batch.
	Before string `json:"-"`
	After  string `json:"-"`

	// Fixed lists the issues whose edits were applied to this file.
	Fixed []audit.Issue `json:"fixed"`
}

// Failure records a fix that could not be applied or did not close.
type Failure struct {
	// Path is the affected file.
	Path string `json:"path"`

	// Issue is the finding the fix targeted.
	Issue audit.Issue `json:"issue"`

	// Reason describes the failure.
	Reason string `json:"reason"`
}

// Result is the outcome of one fix batch.
type Result struct {
	// Changes lists modified files in path order.
	Changes []FileChange `json:"changes"`

	// Failures lists fixes that failed or did not close. Every failure is
	// critical: the affected file was rolled back.
	Failures []Failure `json:"failures"`

	// Deferred lists issues whose accepted edit collided with another
	// edit's line range in the same file. The batch was computed against
	// one audit's line numbers; composing overlapping edits would produce
	// a result neither phase suggested. Deferred fixes are not applied and
	// not failures: a following round, resolved against fresh line
	// numbers, picks them up.
	Deferred []audit.Issue `json:"deferred,omitempty"`

	// ReAudit holds the post-apply audit results for changed documents.
	// Nil in dry-run mode.
	ReAudit map[string]*audit.DocumentResult `json:"-"`
}

// Apply applies the accepted fixes. Edits are grouped per target file;
// different files are fixed concurrently, the same file never is.
func (a *Applier) Apply(ctx context.Context, cfg *config.Config, accepted []Accepted) (*Result, error) {
	groups := groupByFile(accepted)
	paths := make([]string, 0, len(groups))
	for p := range groups {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	result := &Result{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.Workers)

	for _, p := range paths {
		if err := gctx.Err(); err != nil {
			break
		}
		p, batch := p, groups[p]
		g.Go(func() error {
			change, fail, deferred := a.applyFile(p, batch)
			mu.Lock()
			defer mu.Unlock()
			for _, acc := range deferred {
				result.Deferred = append(result.Deferred, acc.Issue)
			}
			if fail != nil {
				result.Failures = append(result.Failures, *fail)
				return nil
			}
			if change != nil {
				result.Changes = append(result.Changes, *change)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(result.Changes, func(i, j int) bool {
		return result.Changes[i].Path < result.Changes[j].Path
	})
	sort.Slice(result.Deferred, func(i, j int) bool {
		return result.Deferred[i].Key() < result.Deferred[j].Key()
	})

	if !a.DryRun && len(result.Changes) > 0 {
		if err := a.verify(ctx, cfg, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// groupByFile partitions accepted fixes by the file their edit targets,
// which for gateway-entry fixes differs from the issue's document.
func groupByFile(accepted []Accepted) map[string][]Accepted {
	groups := make(map[string][]Accepted)
	for _, acc := range accepted {
		target := acc.Edit.Path
		if target == "" {
			target = acc.Issue.Path
		}
		groups[target] = append(groups[target], acc)
	}
	return groups
}

// applyFile applies one file's fix batch: read, transform, atomic replace.
// On any error the file is left byte-identical to before. Edits whose line
// ranges collide are deferred rather than composed.
func (a *Applier) applyFile(relPath string, batch []Accepted) (*FileChange, *Failure, []Accepted) {
	batch, deferred := splitConflicting(batch)
	if len(batch) == 0 {
		return nil, nil, deferred
	}

	lock := a.pathLock(relPath)
	lock.Lock()
	defer lock.Unlock()

	full := filepath.Join(a.Root, filepath.FromSlash(relPath))
	before, err := os.ReadFile(full)
	if err != nil {
		return nil, &Failure{Path: relPath, Issue: batch[0].Issue, Reason: fmt.Sprintf("read: %v", err)}, deferred
	}

	edits := make([]audit.Edit, len(batch))
	for i, acc := range batch {
		edits[i] = acc.Edit
	}

	after, err := applyEdits(string(before), edits)
	if err != nil {
		return nil, &Failure{Path: relPath, Issue: batch[0].Issue, Reason: fmt.Sprintf("apply: %v", err)}, deferred
	}
	if after == string(before) {
		return nil, nil, deferred
	}

	change := &FileChange{Path: relPath, Before: string(before), After: after}
	for _, acc := range batch {
		change.Fixed = append(change.Fixed, acc.Issue)
	}

	if a.DryRun {
		return change, nil, deferred
	}
	if err := atomicWrite(full, []byte(after)); err != nil {
		return nil, &Failure{Path: relPath, Issue: batch[0].Issue, Reason: fmt.Sprintf("write: %v", err)}, deferred
	}
	return change, nil, deferred
}

// editSpan returns the inclusive line range an edit touches. Appends carry
// no span and never conflict.
func editSpan(e audit.Edit) (start, end int, spanned bool) {
	switch e.Kind {
	case audit.EditAppendLine:
		return 0, 0, false
	case audit.EditReplaceRange:
		end = e.EndLine
		if end < e.Line {
			end = e.Line
		}
		return e.Line, end, true
	default:
		return e.Line, e.Line, true
	}
}

// splitConflicting partitions one file's batch into a mutually
// non-overlapping subset and the edits deferred by a line collision. The
// earliest-starting edit on a contested range wins.
func splitConflicting(batch []Accepted) (apply, deferred []Accepted) {
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].Edit.Line < batch[j].Edit.Line
	})

	type span struct{ start, end int }
	var taken []span

	for _, acc := range batch {
		start, end, spanned := editSpan(acc.Edit)
		if !spanned {
			apply = append(apply, acc)
			continue
		}
		collides := false
		for _, s := range taken {
			if start <= s.end && end >= s.start {
				collides = true
				break
			}
		}
		if collides {
			deferred = append(deferred, acc)
			continue
		}
		taken = append(taken, span{start, end})
		apply = append(apply, acc)
	}
	return apply, deferred
}

// pathLock returns the mutex serializing writes to one file path.
func (a *Applier) pathLock(path string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	lock, ok := a.locks[path]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[path] = lock
	}
	return lock
}

// atomicWrite replaces path with data via a temp file and rename, so readers
// never observe a partial write.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".curator-fix-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if info, err := os.Stat(path); err == nil {
		_ = os.Chmod(tmpName, info.Mode())
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// verify reloads the corpus and re-audits every changed document. A fixed
// issue that is still present marks its file as failed and rolls the file
// back to its pre-fix bytes.
func (a *Applier) verify(ctx context.Context, cfg *config.Config, result *Result) error {
	reg, err := registry.NewBuilder(a.Loader).Build(a.Root)
	if err != nil {
		return fmt.Errorf("re-audit registry: %w", err)
	}
	graph, err := refgraph.NewBuilder(a.Loader, a.Workers).Build(ctx, reg)
	if err != nil {
		return fmt.Errorf("re-audit graph: %w", err)
	}

	runner := audit.NewRunner(a.Workers)
	results, err := runner.RunCorpus(ctx, reg, graph, cfg)
	if err != nil {
		return fmt.Errorf("re-audit: %w", err)
	}

	result.ReAudit = make(map[string]*audit.DocumentResult)
	kept := result.Changes[:0]
	for _, change := range result.Changes {
		if failed := a.closureFailures(change, results); len(failed) > 0 {
			a.rollback(change, failed, result)
			continue
		}
		if res, ok := results[change.Path]; ok {
			res.State = stateAfterReAudit(res)
			result.ReAudit[change.Path] = res
		}
		kept = append(kept, change)
	}
	result.Changes = kept
	return nil
}

// closureFailures returns the fixed issues of a change that the re-audit
// still reports.
func (a *Applier) closureFailures(change FileChange, results map[string]*audit.DocumentResult) []audit.Issue {
	var failed []audit.Issue
	for _, fixed := range change.Fixed {
		res, ok := results[fixed.Path]
		if !ok {
			continue
		}
		for _, issue := range res.Issues {
			if issue.Key() == fixed.Key() {
				failed = append(failed, fixed)
				break
			}
		}
	}
	return failed
}

// rollback restores a change's file to its pre-fix bytes and records one
// critical failure per unclosed issue.
func (a *Applier) rollback(change FileChange, failed []audit.Issue, result *Result) {
	full := filepath.Join(a.Root, filepath.FromSlash(change.Path))
	if err := atomicWrite(full, []byte(change.Before)); err != nil {
		result.Failures = append(result.Failures, Failure{
			Path:   change.Path,
			Issue:  failed[0],
			Reason: fmt.Sprintf("rollback failed: %v", err),
		})
		return
	}
	for _, issue := range failed {
		result.Failures = append(result.Failures, Failure{
			Path:   change.Path,
			Issue:  issue,
			Reason: ErrFixNotClosed.Error(),
		})
	}
}

// stateAfterReAudit maps a re-audit outcome onto the document state machine.
func stateAfterReAudit(res *audit.DocumentResult) audit.DocState {
	if len(res.Issues) == 0 {
		return audit.StateClean
	}
	return audit.StateFixPending
}
