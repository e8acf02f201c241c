package audit

import (
	"regexp"
	"strings"

	"github.com/kestrelworks/curator/internal/document"
)

// structuralPhase surfaces document load failures: bad delimiters, invalid
// frontmatter YAML, missing required keys. A structural critical blocks the
// dependent per-document phases for that document.
type structuralPhase struct{}

func (p *structuralPhase) ID() string        { return PhaseStructural }
func (p *structuralPhase) Scope() Scope      { return ScopePerDocument }
func (p *structuralPhase) DependsOn() string { return "" }

func (p *structuralPhase) Check(in Input) []Issue {
	perr, ok := in.Graph.ParseFailure(in.Path)
	if !ok {
		return nil
	}

	issue := Issue{
		Phase:    PhaseStructural,
		Path:     in.Path,
		Severity: SeverityCritical,
		Line:     perr.Line,
		Message:  perr.Message,
		// Malformed structure usually has no enumerable correct rewrite;
		// the author must repair the document.
		FixTier: TierHuman,
	}

	// An unclosed header fence is recoverable when the header run is
	// bounded by a blank line: closing it there restores a parsable
	// document.
	if perr.ErrorType == document.ErrClassDelimiter && strings.Contains(perr.Message, "never closed") {
		raw, _ := in.Graph.FailedSource(in.Path)
		if line, ok := recoverableFenceLine(raw); ok {
			issue.FixTier = TierDeterministic
			issue.Suggestion = &FixSuggestion{
				Description: "close the frontmatter block before the first blank line",
				Suggested:   "---",
				Edit: &Edit{
					Kind:    EditReplaceLine,
					Line:    line,
					Replace: "---",
				},
			}
		}
	}

	return []Issue{issue}
}

// headerEntryPattern matches lines that belong to a YAML header run: mapping
// keys, indented continuations, and list items.
var headerEntryPattern = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*:|\s+\S|\s*-\s)`)

// recoverableFenceLine inspects the source of a document whose opening fence
// was never closed and reports the 1-based line where a closing fence
// deterministically belongs: the first blank line, provided every line
// between the opening fence and it looks like a header entry. A run reaching
// end of file stays ambiguous.
func recoverableFenceLine(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	lines := strings.Split(raw, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return 0, false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			if i == 1 {
				return 0, false // empty header, nothing to close around
			}
			return i + 1, true
		}
		if !headerEntryPattern.MatchString(lines[i]) {
			return 0, false
		}
	}
	return 0, false
}
