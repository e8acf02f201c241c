package fixer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kestrelworks/curator/internal/audit"
)

func deterministicIssue() audit.Issue {
	return audit.Issue{
		Phase:    audit.PhaseReference,
		Path:     "skills/a/SKILL.md",
		Severity: audit.SeverityWarning,
		Message:  "deprecated reference",
		FixTier:  audit.TierDeterministic,
		Suggestion: &audit.FixSuggestion{
			Edit: &audit.Edit{Kind: audit.EditReplaceToken, Line: 3, Find: "old", Replace: "new"},
		},
	}
}

func hybridIssue() audit.Issue {
	return audit.Issue{
		Phase:    audit.PhaseGatewaySync,
		Path:     "skills/gateway-dev/SKILL.md",
		Severity: audit.SeverityWarning,
		Message:  "broken entry",
		FixTier:  audit.TierHybrid,
		Suggestion: &audit.FixSuggestion{
			Options: []audit.FixOption{
				{Label: "remove entry", Edit: audit.Edit{Kind: audit.EditDeleteLine, Line: 5}},
				{Label: "retarget", Edit: audit.Edit{Kind: audit.EditReplaceToken, Line: 5, Find: "a", Replace: "b"}},
			},
		},
	}
}

func humanIssue() audit.Issue {
	return audit.Issue{
		Phase:      audit.PhaseReference,
		Path:       "skills/a/SKILL.md",
		Severity:   audit.SeverityCritical,
		Message:    "phantom reference",
		FixTier:    audit.TierHuman,
		Suggestion: &audit.FixSuggestion{},
	}
}

func TestAutoResolverDeterministicOnly(t *testing.T) {
	issues := []audit.Issue{deterministicIssue(), hybridIssue(), humanIssue()}

	accepted := (&AutoResolver{}).Resolve(issues)
	if len(accepted) != 1 {
		t.Fatalf("accepted = %+v", accepted)
	}
	if accepted[0].Edit.Kind != audit.EditReplaceToken {
		t.Errorf("edit = %+v", accepted[0].Edit)
	}
}

func TestAutoResolverAcceptHybrid(t *testing.T) {
	issues := []audit.Issue{deterministicIssue(), hybridIssue(), humanIssue()}

	accepted := (&AutoResolver{AcceptHybrid: true}).Resolve(issues)
	if len(accepted) != 2 {
		t.Fatalf("accepted = %+v", accepted)
	}
	// Hybrid takes its first option; human-required is never auto-selected.
	if accepted[1].Edit.Kind != audit.EditDeleteLine {
		t.Errorf("hybrid edit = %+v", accepted[1].Edit)
	}
}

func TestInteractiveResolverSelection(t *testing.T) {
	var out bytes.Buffer
	r := &InteractiveResolver{In: strings.NewReader("2\n"), Out: &out}

	accepted := r.Resolve([]audit.Issue{hybridIssue()})
	if len(accepted) != 1 {
		t.Fatalf("accepted = %+v", accepted)
	}
	if accepted[0].Edit.Kind != audit.EditReplaceToken {
		t.Errorf("edit = %+v", accepted[0].Edit)
	}
	if !strings.Contains(out.String(), "[2] retarget") {
		t.Errorf("prompt output = %q", out.String())
	}
}

func TestInteractiveResolverSkipOnEmpty(t *testing.T) {
	r := &InteractiveResolver{In: strings.NewReader("\n"), Out: &bytes.Buffer{}}

	if accepted := r.Resolve([]audit.Issue{hybridIssue()}); len(accepted) != 0 {
		t.Errorf("accepted = %+v", accepted)
	}
}

func TestInteractiveResolverAcceptsDeterministicSilently(t *testing.T) {
	var out bytes.Buffer
	r := &InteractiveResolver{In: strings.NewReader(""), Out: &out}

	accepted := r.Resolve([]audit.Issue{deterministicIssue()})
	if len(accepted) != 1 {
		t.Fatalf("accepted = %+v", accepted)
	}
	if out.Len() != 0 {
		t.Errorf("deterministic fix prompted: %q", out.String())
	}
}

func TestInteractiveResolverHumanWithoutOptions(t *testing.T) {
	r := &InteractiveResolver{In: strings.NewReader("1\n"), Out: &bytes.Buffer{}}

	if accepted := r.Resolve([]audit.Issue{humanIssue()}); len(accepted) != 0 {
		t.Errorf("human-required without options accepted: %+v", accepted)
	}
}
