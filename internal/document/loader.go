package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Error classification constants for parse errors.
const (
	ErrClassDelimiter = "delimiter"
	ErrClassYAML      = "yaml"
	ErrClassSchema    = "schema"
)

// delimiter is the frontmatter fence line.
const delimiter = "---"

// ParseError provides structured error information for document parsing
// failures. A ParseError isolates to one document and never aborts a run.
type ParseError struct {
	Path      string `json:"path"`
	Line      int    `json:"line"`
	Message   string `json:"message"`
	ErrorType string `json:"error_type"` // "delimiter", "yaml", "schema"
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: line %d: %s (%s)", e.Path, e.Line, e.Message, e.ErrorType)
}

// Loader parses corpus documents. The directory names decide tier membership.
type Loader struct {
	// CoreDir is the core-tier directory name (default "skills").
	CoreDir string

	// LibraryDir is the library-tier directory name (default "skill-library").
	LibraryDir string
}

// NewLoader creates a loader with the default tier directory names.
func NewLoader() *Loader {
	return &Loader{CoreDir: "skills", LibraryDir: "skill-library"}
}

// TierOf derives the tier from a corpus-relative path. The second return is
// false for paths outside both tiers.
func (l *Loader) TierOf(relPath string) (Tier, bool) {
	rel := filepath.ToSlash(relPath)
	switch {
	case strings.HasPrefix(rel, l.CoreDir+"/"):
		return TierCore, true
	case strings.HasPrefix(rel, l.LibraryDir+"/"):
		return TierLibrary, true
	default:
		return "", false
	}
}

// Load reads and parses the document at root/relPath. A missing file returns
// the underlying error; the engine treats it as "does not exist", never as an
// empty document.
func (l *Loader) Load(root, relPath string) (*Document, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(relPath)))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	doc, perr := l.Parse(relPath, data)
	if perr != nil {
		return nil, perr
	}
	return doc, nil
}

// Parse parses raw document content. On malformed input it returns a
// *ParseError describing the first failure.
func (l *Loader) Parse(relPath string, data []byte) (*Document, *ParseError) {
	tier, ok := l.TierOf(relPath)
	if !ok {
		tier = TierLibrary
	}

	raw := string(data)
	fmText, body, bodyStart, perr := splitFrontmatter(relPath, raw)
	if perr != nil {
		return nil, perr
	}

	fm, perr := parseFrontmatter(relPath, fmText)
	if perr != nil {
		return nil, perr
	}

	if perr := checkRequiredKeys(relPath, fm); perr != nil {
		return nil, perr
	}

	return &Document{
		Path:        relPath,
		Tier:        tier,
		Frontmatter: *fm,
		Body:        body,
		BodyStart:   bodyStart,
		Raw:         raw,
	}, nil
}

// splitFrontmatter separates the delimited header block from the body.
// Returns the frontmatter text, the body, and the 1-based line number of the
// first body line.
func splitFrontmatter(path, raw string) (string, string, int, *ParseError) {
	lines := strings.Split(raw, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != delimiter {
		return "", "", 0, &ParseError{
			Path:      path,
			Line:      1,
			Message:   "missing opening frontmatter delimiter",
			ErrorType: ErrClassDelimiter,
		}
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == delimiter {
			fmText := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return fmText, body, i + 2, nil
		}
	}

	return "", "", 0, &ParseError{
		Path:      path,
		Line:      len(lines),
		Message:   "frontmatter delimiter never closed",
		ErrorType: ErrClassDelimiter,
	}
}

// frontmatterLineOffset converts a line within the YAML fragment to a file
// line: the fragment starts on file line 2.
const frontmatterLineOffset = 1

// parseFrontmatter decodes the YAML header preserving key order.
func parseFrontmatter(path, text string) (*Frontmatter, *ParseError) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(text), &root); err != nil {
		return nil, &ParseError{
			Path:      path,
			Line:      frontmatterLineOffset + 1,
			Message:   fmt.Sprintf("invalid frontmatter YAML: %v", err),
			ErrorType: ErrClassYAML,
		}
	}

	fm := &Frontmatter{
		Values:   make(map[string]string),
		KeyLines: make(map[string]int),
	}

	if len(root.Content) == 0 {
		return fm, nil
	}
	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, &ParseError{
			Path:      path,
			Line:      mapping.Line + frontmatterLineOffset,
			Message:   "frontmatter must be a key/value mapping",
			ErrorType: ErrClassSchema,
		}
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode, valNode := mapping.Content[i], mapping.Content[i+1]
		key := keyNode.Value
		fm.Keys = append(fm.Keys, key)
		fm.KeyLines[key] = keyNode.Line + frontmatterLineOffset
		fm.Values[key] = renderValue(valNode)
		assignTyped(fm, key, valNode)
	}

	return fm, nil
}

// renderValue flattens a YAML value node to a display string.
func renderValue(n *yaml.Node) string {
	switch n.Kind {
	case yaml.ScalarNode:
		return n.Value
	case yaml.SequenceNode:
		items := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			items = append(items, c.Value)
		}
		return strings.Join(items, ", ")
	default:
		return ""
	}
}

// assignTyped populates the typed frontmatter fields for known keys.
func assignTyped(fm *Frontmatter, key string, val *yaml.Node) {
	switch key {
	case "name":
		fm.Name = val.Value
	case "description":
		fm.Description = val.Value
	case "replaced-by":
		fm.ReplacedBy = val.Value
	case "allowed-tools":
		fm.AllowedTools = listValue(val)
	case "skills":
		fm.Skills = listValue(val)
	}
}

// listValue accepts either a YAML sequence or a comma-separated scalar; both
// shapes occur in real corpora.
func listValue(n *yaml.Node) []string {
	var items []string
	switch n.Kind {
	case yaml.SequenceNode:
		for _, c := range n.Content {
			if v := strings.TrimSpace(c.Value); v != "" {
				items = append(items, v)
			}
		}
	case yaml.ScalarNode:
		for _, part := range strings.Split(n.Value, ",") {
			if v := strings.TrimSpace(part); v != "" {
				items = append(items, v)
			}
		}
	}
	return items
}

// requiredKeys must be present in every document's frontmatter.
var requiredKeys = []string{"name", "description"}

// checkRequiredKeys validates the minimal frontmatter shape.
func checkRequiredKeys(path string, fm *Frontmatter) *ParseError {
	for _, key := range requiredKeys {
		if strings.TrimSpace(fm.Values[key]) == "" {
			return &ParseError{
				Path:      path,
				Line:      frontmatterLineOffset + 1,
				Message:   fmt.Sprintf("missing required frontmatter key: %s", key),
				ErrorType: ErrClassSchema,
			}
		}
	}
	return nil
}
