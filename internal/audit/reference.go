package audit

import (
	"fmt"
	"strings"

	"github.com/kestrelworks/curator/internal/document"
	"github.com/kestrelworks/curator/internal/refgraph"
)

// referencePhase reports broken and deprecated reference edges for one
// document. Severity follows whether the reference is load-bearing: a
// frontmatter declaration is critical, a body mention is a warning.
type referencePhase struct{}

func (p *referencePhase) ID() string        { return PhaseReference }
func (p *referencePhase) Scope() Scope      { return ScopePerDocument }
func (p *referencePhase) DependsOn() string { return PhaseStructural }

func (p *referencePhase) Check(in Input) []Issue {
	var issues []Issue
	for _, edge := range in.Graph.EdgesFrom(in.Path) {
		switch edge.Kind {
		case refgraph.EdgePhantom:
			issues = append(issues, phantomIssue(edge))
		case refgraph.EdgeDeprecated:
			issues = append(issues, deprecatedIssue(edge))
		}
	}
	return issues
}

// phantomIssue reports a reference that resolves nowhere. No corpus answer
// exists, so the tier is human-required with informational candidates.
func phantomIssue(edge refgraph.Edge) Issue {
	severity := SeverityWarning
	if edge.Ref.LoadBearing {
		severity = SeverityCritical
	}

	return Issue{
		Phase:    PhaseReference,
		Path:     edge.From,
		Severity: severity,
		Line:     edge.Ref.Line,
		Message:  fmt.Sprintf("reference %q does not resolve", edge.Ref.Token),
		FixTier:  TierHuman,
		Suggestion: &FixSuggestion{
			Description: "no resolvable target; candidates are informational",
			Current:     edge.Ref.Raw,
			Candidates:  edge.Candidates,
		},
	}
}

// deprecatedIssue reports a reference to a deprecated document. A name
// reference has exactly one correct rewrite (the declared replacement);
// a path reference's target form is not derivable mechanically, so it
// becomes a hybrid choice.
func deprecatedIssue(edge refgraph.Edge) Issue {
	issue := Issue{
		Phase:    PhaseReference,
		Path:     edge.From,
		Severity: SeverityWarning,
		Line:     edge.Ref.Line,
		Message:  fmt.Sprintf("reference %q is deprecated, replaced by %q", edge.Ref.Token, edge.Replacement),
	}

	if edge.Ref.Kind == document.RefByName {
		issue.FixTier = TierDeterministic
		issue.Suggestion = &FixSuggestion{
			Description: "substitute the declared replacement",
			Current:     edge.Ref.Raw,
			Suggested:   edge.Replacement,
			Edit: &Edit{
				Kind:    EditReplaceToken,
				Line:    edge.Ref.Line,
				Find:    edge.Ref.Raw,
				Replace: rewriteNameRef(edge.Ref.Raw, edge.Replacement),
			},
		}
		return issue
	}

	issue.FixTier = TierHybrid
	issue.Suggestion = &FixSuggestion{
		Description: "retarget to the replacement or drop the reference",
		Current:     edge.Ref.Raw,
		Options: []FixOption{
			{
				Label: fmt.Sprintf("replace with skills/%s", edge.Replacement),
				Edit: Edit{
					Kind:    EditReplaceToken,
					Line:    edge.Ref.Line,
					Find:    edge.Ref.Raw,
					Replace: "skills/" + edge.Replacement,
				},
			},
			{
				Label: "remove the referencing line",
				Edit:  Edit{Kind: EditDeleteLine, Line: edge.Ref.Line},
			},
		},
	}
	return issue
}

// rewriteNameRef preserves the written form of a name reference: a body token
// keeps its skills/ prefix, a bare frontmatter entry stays bare.
func rewriteNameRef(raw, replacement string) string {
	if strings.HasPrefix(raw, "skills/") {
		return "skills/" + replacement
	}
	return replacement
}
