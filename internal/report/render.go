package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"

	"github.com/kestrelworks/curator/internal/audit"
)

// Output format names accepted by the --output flag.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

var (
	criticalStyle = color.New(color.FgRed, color.Bold)
	warningStyle  = color.New(color.FgYellow)
	infoStyle     = color.New(color.FgCyan)
	okStyle       = color.New(color.FgGreen)
)

// Render writes the report to w in the requested format.
func (r *RunReport) Render(w io.Writer, format string) error {
	switch format {
	case FormatJSON:
		return r.renderJSON(w)
	case FormatTable, "":
		return r.renderTable(w)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func (r *RunReport) renderJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func (r *RunReport) renderTable(w io.Writer) error {
	if err := r.renderIssues(w); err != nil {
		return err
	}
	r.renderFixes(w)
	r.renderSummary(w)
	return nil
}

func (r *RunReport) renderIssues(w io.Writer) error {
	total := 0
	for _, res := range r.Results {
		total += len(res.Issues)
	}
	if total == 0 {
		return nil
	}

	t := NewTable("SEVERITY", "DOCUMENT", "LINE", "PHASE", "ISSUE").CapLastColumn(80)
	for _, res := range r.Results {
		for _, issue := range res.Issues {
			line := ""
			if issue.Line > 0 {
				line = strconv.Itoa(issue.Line)
			}
			t.AddRow(severityLabel(issue.Severity), res.Path, line, issue.Phase, issue.Message)
		}
	}
	if err := t.Render(w); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

func (r *RunReport) renderFixes(w io.Writer) {
	for _, path := range r.ModifiedPaths {
		verb := "fixed"
		if r.DryRun {
			verb = "would fix"
		}
		fmt.Fprintf(w, "%s %s\n", okStyle.Sprint(verb), path)
		if diff := r.Diffs[path]; diff != "" {
			fmt.Fprintln(w, diff)
		}
	}
	for _, f := range r.Failures {
		fmt.Fprintf(w, "%s %s: %s\n", criticalStyle.Sprint("fix failed"), f.Path, f.Reason)
	}
	if len(r.ModifiedPaths) > 0 || len(r.Failures) > 0 {
		fmt.Fprintln(w)
	}
}

func (r *RunReport) renderSummary(w io.Writer) {
	fmt.Fprintf(w, "%d documents audited: %s, %s, %s\n",
		len(r.Results),
		criticalStyle.Sprintf("%d critical", r.TotalCritical),
		warningStyle.Sprintf("%d warnings", r.TotalWarning),
		infoStyle.Sprintf("%d info", r.TotalInfo))
	if r.Passed() {
		fmt.Fprintln(w, okStyle.Sprint("corpus is clean"))
	}
}

func severityLabel(s audit.Severity) string {
	switch s {
	case audit.SeverityCritical:
		return criticalStyle.Sprint("CRITICAL")
	case audit.SeverityWarning:
		return warningStyle.Sprint("WARNING")
	case audit.SeverityInfo:
		return infoStyle.Sprint("INFO")
	default:
		return string(s)
	}
}
