package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kestrelworks/curator/internal/audit"
	"github.com/kestrelworks/curator/internal/config"
	"github.com/kestrelworks/curator/internal/fixer"
)

func writeTestDoc(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func testCorpus(t *testing.T) *corpus {
	t.Helper()
	root := t.TempDir()
	writeTestDoc(t, root, "skills/commit/SKILL.md", `---
name: commit
description: Commit workflow.
---

Body.
`)
	writeTestDoc(t, root, "skill-library/git/rebase/SKILL.md", `---
name: rebase
description: Rebase helper.
---

Body.
`)

	cfg := config.Default()
	cfg.CorpusRoot = root

	c, err := openCorpus(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openCorpus: %v", err)
	}
	return c
}

func TestNormalizeTarget(t *testing.T) {
	c := testCorpus(t)

	tests := []struct {
		name    string
		arg     string
		want    string
		wantErr bool
	}{
		{"core by dir", "skills/commit", "skills/commit/SKILL.md", false},
		{"core with file", "skills/commit/SKILL.md", "skills/commit/SKILL.md", false},
		{"with corpus root", filepath.Join(c.cfg.CorpusRoot, "skills/commit"), "skills/commit/SKILL.md", false},
		{"library", "skill-library/git/rebase", "skill-library/git/rebase/SKILL.md", false},
		{"missing", "skills/nope", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.normalizeTarget(tt.arg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("normalizeTarget(%q) error = %v, wantErr %v", tt.arg, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("normalizeTarget(%q) = %q, want %q", tt.arg, got, tt.want)
			}
		})
	}
}

func TestFilterPhase(t *testing.T) {
	results := map[string]*audit.DocumentResult{
		"a": {Path: "a", Issues: []audit.Issue{
			{Phase: audit.PhaseGatewaySync, Message: "orphan"},
			{Phase: audit.PhaseReference, Message: "phantom"},
		}},
		"b": {Path: "b", Issues: []audit.Issue{
			{Phase: audit.PhaseReference, Message: "phantom"},
		}},
	}

	got := filterPhase(results, audit.PhaseGatewaySync)
	if len(got) != 1 {
		t.Fatalf("got %d documents, want 1", len(got))
	}
	res, ok := got["a"]
	if !ok {
		t.Fatal("document a missing from filtered results")
	}
	if len(res.Issues) != 1 || res.Issues[0].Message != "orphan" {
		t.Errorf("filtered issues = %+v", res.Issues)
	}
}

func TestSuggestedIssuesOrderAndFilter(t *testing.T) {
	sugg := &audit.FixSuggestion{Description: "fix it"}
	results := map[string]*audit.DocumentResult{
		"b": {Path: "b", Issues: []audit.Issue{{Path: "b", Message: "m1", Suggestion: sugg}}},
		"a": {Path: "a", Issues: []audit.Issue{
			{Path: "a", Message: "m2", Suggestion: sugg},
			{Path: "a", Message: "no suggestion"},
		}},
	}

	got := suggestedIssues(results)
	if len(got) != 2 {
		t.Fatalf("got %d issues, want 2", len(got))
	}
	if got[0].Path != "a" || got[1].Path != "b" {
		t.Errorf("issues out of path order: %s then %s", got[0].Path, got[1].Path)
	}
}

func TestCommandRegistration(t *testing.T) {
	want := map[string]bool{
		"audit":         false,
		"fix":           false,
		"sync-gateways": false,
		"list":          false,
		"version":       false,
	}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %s not registered", name)
		}
	}
}

func TestFixFlags(t *testing.T) {
	if fixCmd.Flags().Lookup("yes") == nil {
		t.Error("--yes flag not found on fix")
	}
	if rootCmd.PersistentFlags().Lookup("dry-run") == nil {
		t.Error("--dry-run persistent flag not found")
	}
	if rootCmd.PersistentFlags().Lookup("output") == nil {
		t.Error("--output persistent flag not found")
	}
}

func TestFixRoundsConvergeOnCollidingEdits(t *testing.T) {
	root := t.TempDir()
	writeTestDoc(t, root, "skills/gateway-dev/SKILL.md", `---
name: gateway-dev
description: routes dev
---
|kw|skill-library/dev/kept-doc|
|old|skill-library/dev/removed-doc|
`)
	writeTestDoc(t, root, "skill-library/dev/kept-doc/SKILL.md", `---
name: kept-doc
description: routed
---

Body.
`)

	cfg := config.Default()
	cfg.CorpusRoot = root
	cfg.Gateways.CategoryMap = map[string]string{"dev": "gateway-dev"}

	c, err := openCorpus(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openCorpus: %v", err)
	}

	resolver := &fixer.AutoResolver{AcceptHybrid: true}
	result, final, err := runFixRounds(context.Background(), cfg, c, resolver, false, nil)
	if err != nil {
		t.Fatalf("runFixRounds: %v", err)
	}

	if len(result.Failures) != 0 {
		t.Fatalf("failures = %+v, want none", result.Failures)
	}
	if len(result.Changes) != 1 || result.Changes[0].Path != "skills/gateway-dev/SKILL.md" {
		t.Fatalf("changes = %+v, want one merged change to the gateway", result.Changes)
	}

	for _, res := range final {
		for _, issue := range res.Issues {
			if issue.Phase == audit.PhaseGatewaySync || issue.Phase == audit.PhaseFormatting {
				t.Errorf("issue survived the fix rounds: %+v", issue)
			}
		}
	}

	content, err := os.ReadFile(filepath.Join(root, "skills/gateway-dev/SKILL.md"))
	if err != nil {
		t.Fatal(err)
	}
	got := string(content)
	if !strings.Contains(got, "| kw | skill-library/dev/kept-doc |") {
		t.Errorf("table not canonicalized:\n%s", got)
	}
	if strings.Contains(got, "removed-doc") {
		t.Errorf("broken entry survived:\n%s", got)
	}
}
