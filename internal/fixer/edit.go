package fixer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kestrelworks/curator/internal/audit"
)

// applyEdits applies a batch of edits to raw content. Line-scoped edits are
// applied bottom-up so earlier edits never shift later line numbers; appends
// run last, in submission order. Edits that find nothing to change leave the
// content untouched, which keeps re-application idempotent.
func applyEdits(content string, edits []audit.Edit) (string, error) {
	lines := strings.Split(content, "\n")

	var lineEdits, appends []audit.Edit
	for _, e := range edits {
		if e.Kind == audit.EditAppendLine {
			appends = append(appends, e)
			continue
		}
		lineEdits = append(lineEdits, e)
	}

	sort.SliceStable(lineEdits, func(i, j int) bool {
		return lineEdits[i].Line > lineEdits[j].Line
	})

	for _, e := range lineEdits {
		var err error
		lines, err = applyLineEdit(lines, e)
		if err != nil {
			return "", err
		}
	}

	for _, e := range appends {
		lines = appendLine(lines, e.Replace)
	}

	return strings.Join(lines, "\n"), nil
}

// applyLineEdit applies one line-scoped edit to the line slice.
func applyLineEdit(lines []string, e audit.Edit) ([]string, error) {
	idx := e.Line - 1
	if idx < 0 || idx >= len(lines) {
		return nil, fmt.Errorf("edit %s targets line %d of %d-line document", e.Kind, e.Line, len(lines))
	}

	switch e.Kind {
	case audit.EditReplaceLine:
		lines[idx] = e.Replace

	case audit.EditDeleteLine:
		lines = append(lines[:idx], lines[idx+1:]...)

	case audit.EditReplaceToken:
		lines[idx] = strings.ReplaceAll(lines[idx], e.Find, e.Replace)

	case audit.EditReplaceRange:
		end := e.EndLine
		if end < e.Line {
			end = e.Line
		}
		if end > len(lines) {
			return nil, fmt.Errorf("edit range %d-%d exceeds %d-line document", e.Line, end, len(lines))
		}
		replacement := strings.Split(e.Replace, "\n")
		rest := append([]string(nil), lines[end:]...)
		lines = append(lines[:idx], append(replacement, rest...)...)

	default:
		return nil, fmt.Errorf("unsupported edit kind %q", e.Kind)
	}

	return lines, nil
}

// appendLine adds a line before any trailing newline so files keep their
// final-newline convention. Identical consecutive appends collapse to one,
// keeping gateway-entry fixes idempotent.
func appendLine(lines []string, text string) []string {
	// Trailing "" element represents the file's final newline.
	insert := len(lines)
	hasFinalNewline := len(lines) > 0 && lines[len(lines)-1] == ""
	if hasFinalNewline {
		insert--
	}
	if insert > 0 && lines[insert-1] == text {
		return lines
	}

	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:insert]...)
	out = append(out, text)
	out = append(out, lines[insert:]...)
	return out
}
