package audit

import (
	"fmt"
	"regexp"
	"strings"
)

// formattingPhase normalizes body text structure: markdown tables are
// rewritten to canonical form, trailing whitespace is trimmed. All fixes here
// are deterministic and idempotent.
type formattingPhase struct{}

func (p *formattingPhase) ID() string        { return PhaseFormatting }
func (p *formattingPhase) Scope() Scope      { return ScopePerDocument }
func (p *formattingPhase) DependsOn() string { return PhaseStructural }

func (p *formattingPhase) Check(in Input) []Issue {
	var issues []Issue
	issues = append(issues, checkTables(in)...)
	issues = append(issues, checkTrailingWhitespace(in)...)
	return issues
}

// tableBlock is a contiguous run of markdown table rows in the body.
type tableBlock struct {
	startLine int // 1-based file line of the first row
	rows      []string
}

// checkTables finds table blocks whose rows deviate from canonical form and
// proposes a single range rewrite per block.
func checkTables(in Input) []Issue {
	var issues []Issue
	for _, block := range tableBlocks(in.Doc.BodyLines(), in.Doc.BodyStart) {
		canonical := canonicalizeBlock(block.rows)
		if equalLines(canonical, block.rows) {
			continue
		}
		endLine := block.startLine + len(block.rows) - 1
		issues = append(issues, Issue{
			Phase:    PhaseFormatting,
			Path:     in.Doc.Path,
			Severity: SeverityWarning,
			Line:     block.startLine,
			Message:  fmt.Sprintf("malformed table at lines %d-%d", block.startLine, endLine),
			FixTier:  TierDeterministic,
			Suggestion: &FixSuggestion{
				Description: "rewrite the table in canonical form",
				Current:     strings.Join(block.rows, "\n"),
				Suggested:   strings.Join(canonical, "\n"),
				Edit: &Edit{
					Kind:    EditReplaceRange,
					Line:    block.startLine,
					EndLine: endLine,
					Replace: strings.Join(canonical, "\n"),
				},
			},
		})
	}
	return issues
}

// tableBlocks groups contiguous table rows. A row is any line whose trimmed
// form starts with a pipe.
func tableBlocks(lines []string, bodyStart int) []tableBlock {
	var blocks []tableBlock
	var current *tableBlock

	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "|") {
			if current == nil {
				current = &tableBlock{startLine: bodyStart + i}
			}
			current.rows = append(current.rows, line)
			continue
		}
		if current != nil {
			blocks = append(blocks, *current)
			current = nil
		}
	}
	if current != nil {
		blocks = append(blocks, *current)
	}
	return blocks
}

// separatorCell matches a markdown table alignment cell.
var separatorCell = regexp.MustCompile(`^:?-+:?$`)

// canonicalizeBlock rewrites every row of a table block to canonical form:
// edge pipes, single-space padding, and cell counts padded to the block's
// widest row. Canonicalizing canonical rows is the identity.
func canonicalizeBlock(rows []string) []string {
	cols := 0
	parsed := make([][]string, len(rows))
	for i, row := range rows {
		parsed[i] = tableCells(row)
		if len(parsed[i]) > cols {
			cols = len(parsed[i])
		}
	}

	out := make([]string, len(rows))
	for i, cells := range parsed {
		for len(cells) < cols {
			if isSeparatorRow(cells) {
				cells = append(cells, "---")
			} else {
				cells = append(cells, "")
			}
		}
		if isSeparatorRow(cells) {
			for j := range cells {
				cells[j] = canonicalSeparator(cells[j])
			}
		}
		out[i] = "| " + strings.Join(cells, " | ") + " |"
	}
	return out
}

// tableCells splits a row into trimmed cells, dropping the empty edges
// produced by leading/trailing pipes.
func tableCells(row string) []string {
	parts := strings.Split(strings.TrimSpace(row), "|")
	if len(parts) > 0 && strings.TrimSpace(parts[0]) == "" {
		parts = parts[1:]
	}
	if len(parts) > 0 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

// isSeparatorRow reports whether every cell is an alignment marker.
func isSeparatorRow(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	for _, c := range cells {
		if !separatorCell.MatchString(c) {
			return false
		}
	}
	return true
}

// canonicalSeparator normalizes an alignment cell, preserving the colons.
func canonicalSeparator(cell string) string {
	left := strings.HasPrefix(cell, ":")
	right := strings.HasSuffix(cell, ":")
	switch {
	case left && right:
		return ":---:"
	case left:
		return ":---"
	case right:
		return "---:"
	default:
		return "---"
	}
}

// equalLines compares two line slices.
func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// checkTrailingWhitespace flags body lines with trailing spaces or tabs.
func checkTrailingWhitespace(in Input) []Issue {
	var issues []Issue
	for i, line := range in.Doc.BodyLines() {
		// Table rows are owned by the table canonicalization fix.
		if strings.HasPrefix(strings.TrimSpace(line), "|") {
			continue
		}
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == line {
			continue
		}
		fileLine := in.Doc.BodyStart + i
		issues = append(issues, Issue{
			Phase:    PhaseFormatting,
			Path:     in.Doc.Path,
			Severity: SeverityInfo,
			Line:     fileLine,
			Message:  fmt.Sprintf("trailing whitespace on line %d", fileLine),
			FixTier:  TierDeterministic,
			Suggestion: &FixSuggestion{
				Description: "trim trailing whitespace",
				Current:     line,
				Suggested:   trimmed,
				Edit: &Edit{
					Kind:    EditReplaceLine,
					Line:    fileLine,
					Replace: trimmed,
				},
			},
		})
	}
	return issues
}
