package audit

import (
	"fmt"
	"path"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"github.com/sahilm/fuzzy"

	"github.com/kestrelworks/curator/internal/document"
)

// gatewaySyncPhase enforces bidirectional consistency between gateways and
// library documents. It runs once per corpus, only after the reference graph
// is complete: a partial graph would misreport reachability.
type gatewaySyncPhase struct{}

func (p *gatewaySyncPhase) ID() string        { return PhaseGatewaySync }
func (p *gatewaySyncPhase) Scope() Scope      { return ScopeCrossDocument }
func (p *gatewaySyncPhase) DependsOn() string { return "" }

func (p *gatewaySyncPhase) Check(in Input) []Issue {
	var issues []Issue
	issues = append(issues, p.checkBrokenEntries(in)...)
	issues = append(issues, p.checkOrphans(in)...)
	return issues
}

// maxRetargetOptions caps the corrected-target choices for a broken entry.
const maxRetargetOptions = 3

// checkBrokenEntries flags routing-table rows whose target is not a valid
// library document.
func (p *gatewaySyncPhase) checkBrokenEntries(in Input) []Issue {
	var issues []Issue
	for _, gw := range in.Graph.Gateways() {
		for _, route := range gw.Routes() {
			if _, ok := in.Registry.ResolvePath(route.Target); ok {
				continue
			}
			issues = append(issues, brokenEntryIssue(in, gw, route))
		}
	}
	return issues
}

// brokenEntryIssue builds the hybrid finding for one dead routing entry:
// remove the row, or retarget it to a close resolvable path.
func brokenEntryIssue(in Input, gw *document.Document, route document.RouteEntry) Issue {
	options := []FixOption{{
		Label: fmt.Sprintf("remove entry at line %d", route.Line),
		Edit:  Edit{Kind: EditDeleteLine, Line: route.Line},
	}}

	for i, m := range fuzzy.Find(route.Target, in.Registry.LibraryPaths()) {
		if i == maxRetargetOptions {
			break
		}
		options = append(options, FixOption{
			Label: fmt.Sprintf("retarget to %s", m.Str),
			Edit: Edit{
				Kind:    EditReplaceToken,
				Line:    route.Line,
				Find:    route.Target,
				Replace: m.Str,
			},
		})
	}

	return Issue{
		Phase:    PhaseGatewaySync,
		Path:     gw.Path,
		Severity: SeverityWarning,
		Line:     route.Line,
		Message: fmt.Sprintf("routing entry at line %d targets %q which does not exist",
			route.Line, route.Target),
		FixTier: TierHybrid,
		Suggestion: &FixSuggestion{
			Description: "remove the entry or point it at a resolvable document",
			Current:     route.Raw,
			Options:     options,
		},
	}
}

// checkOrphans flags library documents no gateway routes to, unless a
// configured exemption pattern covers them.
func (p *gatewaySyncPhase) checkOrphans(in Input) []Issue {
	var exempt *ignore.GitIgnore
	if patterns := in.Config.Gateways.ExemptPatterns; len(patterns) > 0 {
		exempt = ignore.CompileIgnoreLines(patterns...)
	}

	var issues []Issue
	for _, libPath := range in.Registry.LibraryPaths() {
		if len(in.Graph.Reachability(libPath)) > 0 {
			continue
		}
		if exempt != nil && exempt.MatchesPath(libPath) {
			continue
		}
		issues = append(issues, p.orphanIssue(in, libPath))
	}
	return issues
}

// orphanIssue builds the hybrid finding for an unreachable library document.
// The suggested gateway comes from the category mapping in config.
func (p *gatewaySyncPhase) orphanIssue(in Input, libPath string) Issue {
	file, _ := in.Registry.ResolvePath(libPath)
	issue := Issue{
		Phase:    PhaseGatewaySync,
		Path:     file,
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("library document %q is not reachable from any gateway", libPath),
		FixTier:  TierHybrid,
	}

	gwPath, ok := suggestedGateway(in, libPath)
	if !ok {
		// No mapped gateway for the category; the choice set is empty
		// and a human has to place the document.
		issue.FixTier = TierHuman
		return issue
	}

	issue.Suggestion = &FixSuggestion{
		Description: fmt.Sprintf("add a routing entry to %s", gwPath),
		Options: []FixOption{{
			Label: fmt.Sprintf("route from %s", gwPath),
			Edit: Edit{
				Kind:    EditAppendLine,
				Path:    gwPath,
				Replace: fmt.Sprintf("| %s | %s |", suggestedKeywords(libPath), libPath),
			},
		}},
	}
	return issue
}

// suggestedGateway maps a library path's category (its first segment below
// the library root) to the configured gateway document.
func suggestedGateway(in Input, libPath string) (string, bool) {
	parts := strings.Split(libPath, "/")
	if len(parts) < 2 {
		return "", false
	}
	gwName, ok := in.Config.Gateways.CategoryMap[parts[1]]
	if !ok {
		return "", false
	}
	gwPath, ok := in.Registry.ResolveName(gwName)
	return gwPath, ok
}

// suggestedKeywords derives trigger keywords from the document's base name.
func suggestedKeywords(libPath string) string {
	return strings.Join(strings.Split(path.Base(libPath), "-"), ", ")
}
