// Package report aggregates per-document audit results into a run-level
// report and renders it as a table or as machine-readable JSON.
package report

import (
	"sort"

	"github.com/kestrelworks/curator/internal/audit"
	"github.com/kestrelworks/curator/internal/fixer"
)

// RunReport is the run-level aggregation of an audit or fix run.
type RunReport struct {
	// Results holds every document result in path order.
	Results []*audit.DocumentResult `json:"results"`

	// TotalCritical, TotalWarning, and TotalInfo count issues by severity.
	TotalCritical int `json:"total_critical"`
	TotalWarning  int `json:"total_warning"`
	TotalInfo     int `json:"total_info"`

	// ModifiedPaths lists files changed in apply mode, sorted.
	ModifiedPaths []string `json:"modified_paths,omitempty"`

	// Diffs maps each modified path to its before/after diff.
	Diffs map[string]string `json:"diffs,omitempty"`

	// Failures lists fixes that failed to apply or close.
	Failures []fixer.Failure `json:"failures,omitempty"`

	// DryRun marks a run that computed fixes without writing.
	DryRun bool `json:"dry_run"`
}

// Build aggregates per-document results into a run report.
func Build(results map[string]*audit.DocumentResult) *RunReport {
	rep := &RunReport{Results: audit.SortedResults(results)}
	for _, res := range rep.Results {
		for _, issue := range res.Issues {
			switch issue.Severity {
			case audit.SeverityCritical:
				rep.TotalCritical++
			case audit.SeverityWarning:
				rep.TotalWarning++
			case audit.SeverityInfo:
				rep.TotalInfo++
			}
		}
	}
	return rep
}

// AttachFixes records a fix batch's outcome: modified paths, diffs, and
// failures. Failures count as critical; they must flip the exit code.
func (r *RunReport) AttachFixes(result *fixer.Result, dryRun bool) {
	r.DryRun = dryRun
	r.Failures = result.Failures
	r.TotalCritical += len(result.Failures)

	if len(result.Changes) == 0 {
		return
	}
	r.Diffs = make(map[string]string, len(result.Changes))
	for _, change := range result.Changes {
		r.ModifiedPaths = append(r.ModifiedPaths, change.Path)
		r.Diffs[change.Path] = Diff(change.Before, change.After)
	}
	sort.Strings(r.ModifiedPaths)
}

// Passed reports whether no critical issues remain.
func (r *RunReport) Passed() bool {
	return r.TotalCritical == 0
}
