package audit

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// frontmatterPhase validates the header block of a parsed document: the name
// must match the directory, keys must be known, the description must fit the
// ceiling, and declared tools must come from the known vocabulary.
type frontmatterPhase struct{}

func (p *frontmatterPhase) ID() string        { return PhaseFrontmatter }
func (p *frontmatterPhase) Scope() Scope      { return ScopePerDocument }
func (p *frontmatterPhase) DependsOn() string { return PhaseStructural }

func (p *frontmatterPhase) Check(in Input) []Issue {
	var issues []Issue
	issues = append(issues, p.checkName(in)...)
	issues = append(issues, p.checkUnknownKeys(in)...)
	issues = append(issues, p.checkDescription(in)...)
	issues = append(issues, p.checkTools(in)...)
	return issues
}

// checkName requires the declared name to match the document directory. The
// directory is the identity the registry resolves, so the directory wins.
func (p *frontmatterPhase) checkName(in Input) []Issue {
	fm := in.Doc.Frontmatter
	dir := directoryName(in.Doc.Path)
	if dir == "" || strings.EqualFold(fm.Name, dir) {
		return nil
	}

	line := fm.Line("name")
	return []Issue{{
		Phase:    PhaseFrontmatter,
		Path:     in.Doc.Path,
		Severity: SeverityWarning,
		Line:     line,
		Message:  fmt.Sprintf("frontmatter name %q does not match directory %q", fm.Name, dir),
		FixTier:  TierDeterministic,
		Suggestion: &FixSuggestion{
			Description: "rename to match the directory",
			Current:     fm.Name,
			Suggested:   dir,
			Edit: &Edit{
				Kind:    EditReplaceToken,
				Line:    line,
				Find:    fm.Name,
				Replace: dir,
			},
		},
	}}
}

// checkUnknownKeys flags frontmatter keys outside the known set.
func (p *frontmatterPhase) checkUnknownKeys(in Input) []Issue {
	known := make(map[string]bool, len(in.Config.Audit.KnownKeys))
	for _, k := range in.Config.Audit.KnownKeys {
		known[k] = true
	}

	var issues []Issue
	for _, key := range in.Doc.Frontmatter.Keys {
		if known[key] {
			continue
		}
		line := in.Doc.Frontmatter.Line(key)
		issues = append(issues, Issue{
			Phase:    PhaseFrontmatter,
			Path:     in.Doc.Path,
			Severity: SeverityWarning,
			Line:     line,
			Message:  fmt.Sprintf("unknown frontmatter key %q", key),
			FixTier:  TierHybrid,
			Suggestion: &FixSuggestion{
				Description: "remove the unrecognized key",
				Current:     key,
				Options: []FixOption{{
					Label: "remove entry",
					Edit:  Edit{Kind: EditDeleteLine, Line: line},
				}},
			},
		})
	}
	return issues
}

// checkDescription enforces the description length ceiling.
func (p *frontmatterPhase) checkDescription(in Input) []Issue {
	max := in.Config.Audit.DescriptionMaxLen
	desc := in.Doc.Frontmatter.Description
	if max <= 0 || len(desc) <= max {
		return nil
	}

	return []Issue{{
		Phase:    PhaseFrontmatter,
		Path:     in.Doc.Path,
		Severity: SeverityWarning,
		Line:     in.Doc.Frontmatter.Line("description"),
		Message:  fmt.Sprintf("description is %d characters, ceiling is %d", len(desc), max),
		// Shortening prose has no mechanical rewrite.
		FixTier: TierHuman,
	}}
}

// maxToolOptions caps the replacement choices offered for an unknown tool.
const maxToolOptions = 3

// checkTools verifies allowed-tools entries against the known vocabulary.
// Near-misses become a hybrid choice among close known tools.
func (p *frontmatterPhase) checkTools(in Input) []Issue {
	knownTools := in.Config.Audit.KnownTools
	known := make(map[string]bool, len(knownTools))
	for _, tool := range knownTools {
		known[strings.ToLower(tool)] = true
	}

	line := in.Doc.Frontmatter.Line("allowed-tools")
	var issues []Issue
	for _, tool := range in.Doc.Frontmatter.AllowedTools {
		if known[strings.ToLower(tool)] {
			continue
		}
		issues = append(issues, p.unknownToolIssue(in, tool, line, knownTools))
	}
	return issues
}

// unknownToolIssue builds the finding for one unrecognized tool entry.
func (p *frontmatterPhase) unknownToolIssue(in Input, tool string, line int, knownTools []string) Issue {
	issue := Issue{
		Phase:    PhaseFrontmatter,
		Path:     in.Doc.Path,
		Severity: SeverityWarning,
		Line:     line,
		Message:  fmt.Sprintf("unknown tool %q in allowed-tools", tool),
	}

	var options []FixOption
	for i, m := range fuzzy.Find(tool, knownTools) {
		if i == maxToolOptions {
			break
		}
		options = append(options, FixOption{
			Label: fmt.Sprintf("replace with %s", m.Str),
			Edit: Edit{
				Kind:    EditReplaceToken,
				Line:    line,
				Find:    tool,
				Replace: m.Str,
			},
		})
	}

	if len(options) == 0 {
		issue.FixTier = TierHuman
		return issue
	}

	issue.FixTier = TierHybrid
	issue.Suggestion = &FixSuggestion{
		Description: "replace with a known tool",
		Current:     tool,
		Options:     options,
	}
	return issue
}

// directoryName returns the document's containing directory name, the
// identity the registry indexes core documents by.
func directoryName(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}
