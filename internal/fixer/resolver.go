package fixer

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/kestrelworks/curator/internal/audit"
)

// Accepted is one fix the resolver approved for application.
type Accepted struct {
	// Issue is the finding being fixed.
	Issue audit.Issue

	// Edit is the chosen transformation.
	Edit audit.Edit
}

// Resolver chooses which suggested fixes to apply. The applier never reads
// the terminal itself; interactive confirmation lives behind this interface.
type Resolver interface {
	// Resolve receives every issue that carries a suggestion and returns
	// the accepted subset.
	Resolve(issues []audit.Issue) []Accepted
}

// AutoResolver is a non-interactive policy: deterministic fixes are always
// accepted; hybrid fixes take their first option when AcceptHybrid is set
// (batch/CI use); human-required fixes are never auto-selected.
type AutoResolver struct {
	AcceptHybrid bool
}

// Resolve implements Resolver.
func (r *AutoResolver) Resolve(issues []audit.Issue) []Accepted {
	var accepted []Accepted
	for _, issue := range issues {
		switch issue.FixTier {
		case audit.TierDeterministic:
			if issue.Suggestion != nil && issue.Suggestion.Edit != nil {
				accepted = append(accepted, Accepted{Issue: issue, Edit: *issue.Suggestion.Edit})
			}
		case audit.TierHybrid:
			if r.AcceptHybrid && issue.Suggestion != nil && len(issue.Suggestion.Options) > 0 {
				accepted = append(accepted, Accepted{Issue: issue, Edit: issue.Suggestion.Options[0].Edit})
			}
		}
	}
	return accepted
}

// InteractiveResolver prompts for each non-deterministic suggestion on the
// given reader/writer pair. Deterministic fixes are accepted silently.
type InteractiveResolver struct {
	In  io.Reader
	Out io.Writer
}

// Prompt styles.
var (
	promptPath   = color.New(color.FgCyan, color.Bold)
	promptOption = color.New(color.FgYellow)
)

// Resolve implements Resolver.
func (r *InteractiveResolver) Resolve(issues []audit.Issue) []Accepted {
	scanner := bufio.NewScanner(r.In)

	var accepted []Accepted
	for _, issue := range issues {
		if issue.Suggestion == nil {
			continue
		}
		switch issue.FixTier {
		case audit.TierDeterministic:
			if issue.Suggestion.Edit != nil {
				accepted = append(accepted, Accepted{Issue: issue, Edit: *issue.Suggestion.Edit})
			}
		case audit.TierHybrid, audit.TierHuman:
			if choice, ok := r.prompt(scanner, issue); ok {
				accepted = append(accepted, choice)
			}
		}
	}
	return accepted
}

// prompt displays one issue's option set and reads a selection. Empty input
// or anything unparsable skips the issue.
func (r *InteractiveResolver) prompt(scanner *bufio.Scanner, issue audit.Issue) (Accepted, bool) {
	options := issue.Suggestion.Options
	if len(options) == 0 {
		// Human-required with no enumerable options: nothing to offer.
		return Accepted{}, false
	}

	promptPath.Fprintf(r.Out, "%s:%d\n", issue.Path, issue.Line)
	fmt.Fprintf(r.Out, "  %s\n", issue.Message)
	for i, opt := range options {
		promptOption.Fprintf(r.Out, "  [%d] %s\n", i+1, opt.Label)
	}
	fmt.Fprint(r.Out, "  choice (enter to skip): ")

	if !scanner.Scan() {
		return Accepted{}, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil || n < 1 || n > len(options) {
		return Accepted{}, false
	}
	return Accepted{Issue: issue, Edit: options[n-1].Edit}, true
}
