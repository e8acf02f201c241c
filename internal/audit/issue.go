// Package audit runs the ordered check pipeline over a corpus: per-document
// phases in parallel, the cross-document gateway synchronizer once the graph
// is complete. Every issue carries a fix tier describing how safely it can be
// auto-corrected.
package audit

import (
	"fmt"

	"github.com/kestrelworks/curator/internal/refgraph"
)

// Severity grades an issue.
type Severity string

// Issue severities.
const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// FixTier describes how safely an issue can be auto-corrected.
type FixTier string

// Fix tiers.
const (
	// TierDeterministic has exactly one correct rewrite, computable from
	// the document itself. Auto-applicable.
	TierDeterministic FixTier = "deterministic"

	// TierHybrid has deterministic detection but the correct replacement
	// is one of a small enumerable set. Needs an external choice.
	TierHybrid FixTier = "hybrid"

	// TierHuman has no enumerable correct answer in the corpus. Ranked
	// candidates may be offered but never auto-selected.
	TierHuman FixTier = "human-required"
)

// Issue is one finding raised by a phase against a document.
type Issue struct {
	// Phase is the id of the phase that raised the issue.
	Phase string `json:"phase"`

	// Path is the corpus-relative path of the affected document.
	Path string `json:"path"`

	// Severity grades the issue.
	Severity Severity `json:"severity"`

	// Line is a 1-based location hint (0 = whole document).
	Line int `json:"line,omitempty"`

	// Message describes the finding.
	Message string `json:"message"`

	// FixTier classifies the fix safety.
	FixTier FixTier `json:"fix_tier"`

	// Suggestion is the proposed correction, when one is computable.
	Suggestion *FixSuggestion `json:"suggestion,omitempty"`
}

// Key identifies an issue class for closure checking: two issues with the
// same key on the same document are the same finding.
func (i Issue) Key() string {
	return fmt.Sprintf("%s|%s|%s", i.Phase, i.Path, i.Message)
}

// FixSuggestion is a concrete proposed correction for an issue.
type FixSuggestion struct {
	// Description says what the fix does.
	Description string `json:"description"`

	// Current is the offending value as written.
	Current string `json:"current,omitempty"`

	// Suggested is the single concrete value for deterministic fixes.
	Suggested string `json:"suggested,omitempty"`

	// Edit is the concrete transformation for deterministic fixes.
	Edit *Edit `json:"edit,omitempty"`

	// Options is the enumerable choice set for hybrid fixes.
	Options []FixOption `json:"options,omitempty"`

	// Candidates is the ranked, non-authoritative list for human-required
	// fixes.
	Candidates []refgraph.Candidate `json:"candidates,omitempty"`
}

// FixOption is one entry of a hybrid suggestion's choice set.
type FixOption struct {
	// Label names the choice for the resolver.
	Label string `json:"label"`

	// Edit is the transformation applied when this option is accepted.
	Edit Edit `json:"edit"`
}

// EditKind enumerates the supported textual transformations.
type EditKind string

// Edit kinds.
const (
	// EditReplaceLine replaces line Line with Replace.
	EditReplaceLine EditKind = "replace-line"

	// EditDeleteLine removes line Line.
	EditDeleteLine EditKind = "delete-line"

	// EditReplaceToken replaces occurrences of Find with Replace on line
	// Line.
	EditReplaceToken EditKind = "replace-token"

	// EditReplaceRange replaces lines Line through EndLine with Replace
	// (possibly multi-line).
	EditReplaceRange EditKind = "replace-range"

	// EditAppendLine appends Replace as a new final line.
	EditAppendLine EditKind = "append-line"
)

// Edit is one concrete textual transformation. Edits are line-oriented so
// that applying the same edit to already-fixed content produces no change.
type Edit struct {
	// Kind selects the transformation.
	Kind EditKind `json:"kind"`

	// Path targets a document other than the issue's own (used by gateway
	// sync fixes that modify the gateway, not the orphan). Empty means the
	// issue's document.
	Path string `json:"path,omitempty"`

	// Line is the 1-based target line for line-scoped kinds.
	Line int `json:"line,omitempty"`

	// EndLine is the inclusive final line for replace-range edits.
	EndLine int `json:"end_line,omitempty"`

	// Find is the token to replace for replace-token edits.
	Find string `json:"find,omitempty"`

	// Replace is the replacement text.
	Replace string `json:"replace,omitempty"`
}
