package document

import (
	"strings"
)

// RouteEntry is one row of a gateway's routing table: trigger keywords mapped
// to a library document path.
type RouteEntry struct {
	// Keywords are the comma-separated triggers from the first cell.
	Keywords []string

	// Target is the normalized library path from the last cell.
	Target string

	// Line is the 1-based file line of the table row.
	Line int

	// Raw is the original row text, used when a fix removes the entry.
	Raw string
}

// Routes extracts the routing table from a gateway body: markdown table rows
// whose last non-empty cell is a library path reference. Returns entries in
// body order. Non-gateway documents yield nil.
func (d *Document) Routes() []RouteEntry {
	if !d.IsGateway() {
		return nil
	}

	var entries []RouteEntry
	for i, line := range d.BodyLines() {
		entry, ok := parseRouteRow(line)
		if !ok {
			continue
		}
		entry.Line = d.BodyStart + i
		entries = append(entries, entry)
	}
	return entries
}

// parseRouteRow parses a single markdown table row into a route entry.
// Header and separator rows are rejected because their target cell is not a
// library path.
func parseRouteRow(line string) (RouteEntry, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "|") {
		return RouteEntry{}, false
	}

	cells := splitTableCells(trimmed)
	if len(cells) < 2 {
		return RouteEntry{}, false
	}

	target := strings.Trim(cells[len(cells)-1], "` ")
	if !strings.HasPrefix(target, "skill-library/") {
		return RouteEntry{}, false
	}

	var keywords []string
	for _, kw := range strings.Split(cells[0], ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}

	return RouteEntry{
		Keywords: keywords,
		Target:   normalizeRefToken(target),
		Raw:      line,
	}, true
}

// splitTableCells splits a pipe-delimited row into trimmed cell values,
// dropping the empty edges produced by leading/trailing pipes.
func splitTableCells(row string) []string {
	parts := strings.Split(row, "|")
	var cells []string
	for i, p := range parts {
		if i == 0 || i == len(parts)-1 {
			if strings.TrimSpace(p) == "" {
				continue
			}
		}
		cells = append(cells, strings.TrimSpace(p))
	}
	return cells
}
