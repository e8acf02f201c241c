package fixer

import (
	"testing"

	"github.com/kestrelworks/curator/internal/audit"
)

func TestApplyEditsReplaceLine(t *testing.T) {
	out, err := applyEdits("a\nb\nc\n", []audit.Edit{
		{Kind: audit.EditReplaceLine, Line: 2, Replace: "B"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "a\nB\nc\n" {
		t.Errorf("out = %q", out)
	}
}

func TestApplyEditsDeleteLine(t *testing.T) {
	out, err := applyEdits("a\nb\nc\n", []audit.Edit{
		{Kind: audit.EditDeleteLine, Line: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "a\nc\n" {
		t.Errorf("out = %q", out)
	}
}

func TestApplyEditsReplaceToken(t *testing.T) {
	out, err := applyEdits("use skills/old here\nskills/old elsewhere\n", []audit.Edit{
		{Kind: audit.EditReplaceToken, Line: 1, Find: "skills/old", Replace: "skills/new"},
	})
	if err != nil {
		t.Fatal(err)
	}
	// Only the targeted line changes.
	if out != "use skills/new here\nskills/old elsewhere\n" {
		t.Errorf("out = %q", out)
	}
}

func TestApplyEditsReplaceRange(t *testing.T) {
	out, err := applyEdits("a\n|x|\n|y|\nz\n", []audit.Edit{
		{Kind: audit.EditReplaceRange, Line: 2, EndLine: 3, Replace: "| x |\n| y |"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "a\n| x |\n| y |\nz\n" {
		t.Errorf("out = %q", out)
	}
}

func TestApplyEditsAppendKeepsFinalNewline(t *testing.T) {
	out, err := applyEdits("a\nb\n", []audit.Edit{
		{Kind: audit.EditAppendLine, Replace: "| kw | skill-library/dev/x |"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "a\nb\n| kw | skill-library/dev/x |\n" {
		t.Errorf("out = %q", out)
	}
}

func TestApplyEditsAppendIdempotent(t *testing.T) {
	edit := audit.Edit{Kind: audit.EditAppendLine, Replace: "| kw | skill-library/dev/x |"}
	once, err := applyEdits("a\n", []audit.Edit{edit})
	if err != nil {
		t.Fatal(err)
	}
	twice, err := applyEdits(once, []audit.Edit{edit})
	if err != nil {
		t.Fatal(err)
	}
	if once != twice {
		t.Errorf("append not idempotent: %q vs %q", once, twice)
	}
}

func TestApplyEditsBottomUpOrdering(t *testing.T) {
	// Deleting line 2 must not shift the replacement targeted at line 4.
	out, err := applyEdits("a\nb\nc\nd\n", []audit.Edit{
		{Kind: audit.EditDeleteLine, Line: 2},
		{Kind: audit.EditReplaceLine, Line: 4, Replace: "D"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "a\nc\nD\n" {
		t.Errorf("out = %q", out)
	}
}

func TestApplyEditsIdempotentTokenReplace(t *testing.T) {
	edits := []audit.Edit{
		{Kind: audit.EditReplaceToken, Line: 1, Find: "skills/old", Replace: "skills/new"},
	}
	once, err := applyEdits("use skills/old\n", edits)
	if err != nil {
		t.Fatal(err)
	}
	twice, err := applyEdits(once, edits)
	if err != nil {
		t.Fatal(err)
	}
	if once != twice {
		t.Errorf("token replace not idempotent: %q vs %q", once, twice)
	}
}

func TestApplyEditsOutOfRange(t *testing.T) {
	if _, err := applyEdits("a\n", []audit.Edit{{Kind: audit.EditReplaceLine, Line: 9, Replace: "x"}}); err == nil {
		t.Error("expected error for out-of-range line")
	}
}
