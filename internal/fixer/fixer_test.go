package fixer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kestrelworks/curator/internal/audit"
	"github.com/kestrelworks/curator/internal/config"
	"github.com/kestrelworks/curator/internal/document"
	"github.com/kestrelworks/curator/internal/refgraph"
	"github.com/kestrelworks/curator/internal/registry"
)

// writeDoc creates a SKILL.md under root at the given corpus-relative dir.
func writeDoc(t *testing.T, root, relDir, frontmatter, body string) {
	t.Helper()
	dir := filepath.Join(root, filepath.FromSlash(relDir))
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	content := "---\n" + frontmatter + "---\n" + body
	if err := os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// auditCorpus runs the full pipeline and returns the suggestion-bearing
// issues plus the per-document results.
func auditCorpus(t *testing.T, root string, cfg *config.Config) ([]audit.Issue, map[string]*audit.DocumentResult) {
	t.Helper()
	loader := document.NewLoader()
	reg, err := registry.NewBuilder(loader).Build(root)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	graph, err := refgraph.NewBuilder(loader, 2).Build(context.Background(), reg)
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	results, err := audit.NewRunner(2).RunCorpus(context.Background(), reg, graph, cfg)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}

	var issues []audit.Issue
	for _, res := range audit.SortedResults(results) {
		issues = append(issues, res.Issues...)
	}
	return issues, results
}

func readFile(t *testing.T, root, relPath string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(relPath)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// deprecatedCorpus sets up a corpus with one deterministic fix available.
func deprecatedCorpus(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeDoc(t, root, "skills/new-validator", "name: new-validator\ndescription: current\n", "")
	writeDoc(t, root, "skills/old-validator",
		"name: old-validator\ndescription: superseded\nreplaced-by: new-validator\n", "")
	writeDoc(t, root, "skills/caller",
		"name: caller\ndescription: calls\n", "Use skills/old-validator here.\n")
	return root
}

func TestApplyDeterministicFixCloses(t *testing.T) {
	root := deprecatedCorpus(t)
	cfg := config.Default()

	issues, _ := auditCorpus(t, root, cfg)
	accepted := (&AutoResolver{}).Resolve(issues)
	if len(accepted) != 1 {
		t.Fatalf("accepted = %+v", accepted)
	}

	applier := NewApplier(root, document.NewLoader(), 2, false)
	result, err := applier.Apply(context.Background(), cfg, accepted)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Failures) != 0 {
		t.Fatalf("failures = %+v", result.Failures)
	}
	if len(result.Changes) != 1 {
		t.Fatalf("changes = %+v", result.Changes)
	}

	// Closure: re-audit reports no reference issues for the caller.
	after, _ := auditCorpus(t, root, cfg)
	for _, issue := range after {
		if issue.Phase == audit.PhaseReference {
			t.Errorf("reference issue survived fix: %+v", issue)
		}
	}
}

func TestApplyIdempotent(t *testing.T) {
	root := deprecatedCorpus(t)
	cfg := config.Default()

	issues, _ := auditCorpus(t, root, cfg)
	accepted := (&AutoResolver{}).Resolve(issues)

	applier := NewApplier(root, document.NewLoader(), 2, false)
	if _, err := applier.Apply(context.Background(), cfg, accepted); err != nil {
		t.Fatal(err)
	}
	fixed := readFile(t, root, "skills/caller/SKILL.md")

	// Re-applying the same accepted batch must produce no further diff.
	result, err := applier.Apply(context.Background(), cfg, accepted)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Changes) != 0 {
		t.Errorf("second apply produced changes: %+v", result.Changes)
	}
	if got := readFile(t, root, "skills/caller/SKILL.md"); got != fixed {
		t.Errorf("file changed on second apply:\n%q\nvs\n%q", got, fixed)
	}
}

func TestDryRunWritesNothing(t *testing.T) {
	root := deprecatedCorpus(t)
	cfg := config.Default()
	before := readFile(t, root, "skills/caller/SKILL.md")

	issues, _ := auditCorpus(t, root, cfg)
	accepted := (&AutoResolver{}).Resolve(issues)

	applier := NewApplier(root, document.NewLoader(), 2, true)
	result, err := applier.Apply(context.Background(), cfg, accepted)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Changes) != 1 {
		t.Fatalf("dry-run changes = %+v", result.Changes)
	}
	if result.Changes[0].After == result.Changes[0].Before {
		t.Error("dry-run change has no diff")
	}
	if got := readFile(t, root, "skills/caller/SKILL.md"); got != before {
		t.Error("dry-run mutated the file")
	}
}

func TestUnclosedFixRollsBack(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "skills/x",
		"name: x\ndescription: mentions\n", "See skills/ghost for details.\nfiller line\n")
	cfg := config.Default()

	issues, _ := auditCorpus(t, root, cfg)
	var phantom *audit.Issue
	for i := range issues {
		if issues[i].Phase == audit.PhaseReference {
			phantom = &issues[i]
		}
	}
	if phantom == nil {
		t.Fatal("expected phantom issue")
	}
	before := readFile(t, root, "skills/x/SKILL.md")

	// An accepted edit that changes the file but does not address the
	// issue: the re-audit must flag it and roll the file back.
	bogus := []Accepted{{
		Issue: *phantom,
		Edit:  audit.Edit{Kind: audit.EditReplaceLine, Line: 6, Replace: "rewritten filler"},
	}}

	applier := NewApplier(root, document.NewLoader(), 2, false)
	result, err := applier.Apply(context.Background(), cfg, bogus)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("failures = %+v", result.Failures)
	}
	if result.Failures[0].Reason != ErrFixNotClosed.Error() {
		t.Errorf("reason = %q", result.Failures[0].Reason)
	}
	if len(result.Changes) != 0 {
		t.Errorf("unclosed change kept: %+v", result.Changes)
	}
	if got := readFile(t, root, "skills/x/SKILL.md"); got != before {
		t.Error("file not rolled back to pre-fix bytes")
	}
}

// gatewayCorpus has one broken routing entry and one orphaned library
// document whose category maps to the gateway.
func gatewayCorpus(t *testing.T) (string, *config.Config) {
	t.Helper()
	root := t.TempDir()
	writeDoc(t, root, "skills/gateway-dev",
		"name: gateway-dev\ndescription: routes dev\n",
		"| old | skill-library/dev/removed-doc |\n")
	writeDoc(t, root, "skill-library/dev/new-doc",
		"name: new-doc\ndescription: unrouted\n", "")

	cfg := config.Default()
	cfg.Gateways.CategoryMap = map[string]string{"dev": "gateway-dev"}
	return root, cfg
}

func TestGatewaySyncClosure(t *testing.T) {
	root, cfg := gatewayCorpus(t)

	issues, _ := auditCorpus(t, root, cfg)
	var syncIssues []audit.Issue
	for _, issue := range issues {
		if issue.Phase == audit.PhaseGatewaySync {
			syncIssues = append(syncIssues, issue)
		}
	}
	if len(syncIssues) != 2 {
		t.Fatalf("gateway-sync issues = %+v", syncIssues)
	}

	accepted := (&AutoResolver{AcceptHybrid: true}).Resolve(issues)
	applier := NewApplier(root, document.NewLoader(), 2, false)
	result, err := applier.Apply(context.Background(), cfg, accepted)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Failures) != 0 {
		t.Fatalf("failures = %+v", result.Failures)
	}

	// Sync closure: a second run reports zero gateway-sync findings.
	after, _ := auditCorpus(t, root, cfg)
	for _, issue := range after {
		if issue.Phase == audit.PhaseGatewaySync {
			t.Errorf("gateway-sync issue after sync: %+v", issue)
		}
	}
}

// Scenario: a routing entry targeting a library document that no longer
// exists yields one hybrid gateway-sync warning whose first option names the
// exact entry line to remove.
func TestBrokenEntryNamesLine(t *testing.T) {
	root, cfg := gatewayCorpus(t)

	issues, _ := auditCorpus(t, root, cfg)
	for _, issue := range issues {
		if issue.Phase != audit.PhaseGatewaySync || issue.Path != "skills/gateway-dev/SKILL.md" {
			continue
		}
		if issue.FixTier != audit.TierHybrid {
			t.Errorf("fix tier = %q", issue.FixTier)
		}
		if issue.Line != 5 {
			t.Errorf("entry line = %d, expected 5", issue.Line)
		}
		if issue.Suggestion.Options[0].Label != "remove entry at line 5" {
			t.Errorf("option = %q", issue.Suggestion.Options[0].Label)
		}
		return
	}
	t.Fatal("broken entry issue not found")
}

// conflictCorpus sets up a gateway whose routing table is both ragged and
// holds an entry targeting a missing library document, so the formatting
// rewrite and the entry removal contend for the same lines.
func conflictCorpus(t *testing.T) (string, *config.Config) {
	t.Helper()
	root := t.TempDir()
	writeDoc(t, root, "skills/gateway-dev",
		"name: gateway-dev\ndescription: routes dev\n",
		"|kw|skill-library/dev/kept-doc|\n|old|skill-library/dev/removed-doc|\n")
	writeDoc(t, root, "skill-library/dev/kept-doc",
		"name: kept-doc\ndescription: routed\n", "")

	cfg := config.Default()
	cfg.Gateways.CategoryMap = map[string]string{"dev": "gateway-dev"}
	return root, cfg
}

func TestSplitConflicting(t *testing.T) {
	rangeFix := Accepted{
		Issue: audit.Issue{Phase: audit.PhaseFormatting, Message: "ragged"},
		Edit:  audit.Edit{Kind: audit.EditReplaceRange, Line: 5, EndLine: 6, Replace: "| a |\n| b |"},
	}
	deleteFix := Accepted{
		Issue: audit.Issue{Phase: audit.PhaseGatewaySync, Message: "broken"},
		Edit:  audit.Edit{Kind: audit.EditDeleteLine, Line: 6},
	}
	appendFix := Accepted{
		Issue: audit.Issue{Phase: audit.PhaseGatewaySync, Message: "orphan"},
		Edit:  audit.Edit{Kind: audit.EditAppendLine, Replace: "| kw | skill-library/dev/x |"},
	}
	disjointFix := Accepted{
		Issue: audit.Issue{Phase: audit.PhaseFormatting, Message: "whitespace"},
		Edit:  audit.Edit{Kind: audit.EditReplaceLine, Line: 9, Replace: "text"},
	}

	apply, deferred := splitConflicting([]Accepted{deleteFix, rangeFix, appendFix, disjointFix})
	if len(apply) != 3 {
		t.Fatalf("applied %d edits, want 3: %+v", len(apply), apply)
	}
	if len(deferred) != 1 || deferred[0].Issue.Message != "broken" {
		t.Fatalf("deferred = %+v, want the line-6 delete", deferred)
	}
	for _, acc := range apply {
		if acc.Issue.Message == "broken" {
			t.Error("colliding delete both applied and deferred")
		}
	}
}

func TestApplyDefersCollidingEditWithoutFailure(t *testing.T) {
	root, cfg := conflictCorpus(t)

	issues, _ := auditCorpus(t, root, cfg)
	accepted := (&AutoResolver{AcceptHybrid: true}).Resolve(issues)
	if len(accepted) < 2 {
		t.Fatalf("accepted = %+v, want the table rewrite and the entry removal", accepted)
	}

	applier := NewApplier(root, document.NewLoader(), 2, false)
	result, err := applier.Apply(context.Background(), cfg, accepted)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Failures) != 0 {
		t.Fatalf("failures = %+v, want none: deferral is not failure", result.Failures)
	}
	if len(result.Changes) != 1 {
		t.Fatalf("changes = %+v, want the surviving formatting rewrite", result.Changes)
	}
	if len(result.Deferred) != 1 || result.Deferred[0].Phase != audit.PhaseGatewaySync {
		t.Fatalf("deferred = %+v, want the gateway entry removal", result.Deferred)
	}

	// The applied rewrite landed and was not rolled back.
	content := readFile(t, root, "skills/gateway-dev/SKILL.md")
	if !strings.Contains(content, "| kw | skill-library/dev/kept-doc |") {
		t.Errorf("formatting rewrite missing:\n%s", content)
	}
	if !strings.Contains(content, "removed-doc") {
		t.Errorf("deferred removal applied in the same batch:\n%s", content)
	}
}

func TestDeferredFixLandsNextRound(t *testing.T) {
	root, cfg := conflictCorpus(t)
	applier := NewApplier(root, document.NewLoader(), 2, false)

	for round := 0; round < 2; round++ {
		issues, _ := auditCorpus(t, root, cfg)
		accepted := (&AutoResolver{AcceptHybrid: true}).Resolve(issues)
		result, err := applier.Apply(context.Background(), cfg, accepted)
		if err != nil {
			t.Fatal(err)
		}
		if len(result.Failures) != 0 {
			t.Fatalf("round %d failures = %+v", round+1, result.Failures)
		}
	}

	content := readFile(t, root, "skills/gateway-dev/SKILL.md")
	if strings.Contains(content, "removed-doc") {
		t.Errorf("broken entry survived both rounds:\n%s", content)
	}
	issues, _ := auditCorpus(t, root, cfg)
	for _, issue := range issues {
		if issue.Phase == audit.PhaseGatewaySync || issue.Phase == audit.PhaseFormatting {
			t.Errorf("issue survived convergence: %+v", issue)
		}
	}
}
