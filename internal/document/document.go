// Package document provides loading and parsing of corpus capability
// documents: a YAML frontmatter block delimited by --- lines, followed by a
// free-text markdown body.
package document

import (
	"strings"
)

// Tier identifies which corpus tier a document belongs to.
type Tier string

// Document tiers.
const (
	// TierCore documents live under the core directory and are addressed
	// by name.
	TierCore Tier = "core"

	// TierLibrary documents live under the library directory and are
	// addressed by path.
	TierLibrary Tier = "library"
)

// GatewayNamePrefix marks core documents that act as routing gateways.
const GatewayNamePrefix = "gateway-"

// Document is a parsed capability document. Documents are never mutated in
// place: a fix produces new file content and forces a reload.
type Document struct {
	// Path is the corpus-relative path to the document file (unique id).
	Path string

	// Tier is core or library, derived from the path convention.
	Tier Tier

	// Frontmatter is the parsed header block.
	Frontmatter Frontmatter

	// Body is the raw text after the closing frontmatter delimiter.
	Body string

	// BodyStart is the 1-based file line number of the first body line.
	BodyStart int

	// Raw is the complete original file content.
	Raw string
}

// Frontmatter holds the header key/value block with key order preserved.
type Frontmatter struct {
	// Keys lists the top-level keys in file order.
	Keys []string

	// Values maps each key to its scalar rendering. List values are
	// joined with ", " here; typed accessors below carry the real shape.
	Values map[string]string

	// KeyLines maps each key to its 1-based file line number.
	KeyLines map[string]int

	// Name is the required document name.
	Name string

	// Description is the required document description.
	Description string

	// AllowedTools is the declared tool list, if any.
	AllowedTools []string

	// Skills is the declared reference list (names or library paths).
	Skills []string

	// ReplacedBy marks the document deprecated and names its replacement.
	ReplacedBy string
}

// Has reports whether the frontmatter declares the given key.
func (f *Frontmatter) Has(key string) bool {
	_, ok := f.Values[key]
	return ok
}

// Line returns the 1-based file line of a frontmatter key, or 0 if absent.
func (f *Frontmatter) Line(key string) int {
	return f.KeyLines[key]
}

// IsGateway reports whether the document is a routing gateway: a core-tier
// document whose name carries the gateway prefix.
func (d *Document) IsGateway() bool {
	return d.Tier == TierCore && strings.HasPrefix(d.Frontmatter.Name, GatewayNamePrefix)
}

// IsDeprecated reports whether the document declares a replacement.
func (d *Document) IsDeprecated() bool {
	return d.Frontmatter.ReplacedBy != ""
}

// BodyLines splits the body into lines. Line i of the result is file line
// BodyStart+i.
func (d *Document) BodyLines() []string {
	if d.Body == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(d.Body, "\n"), "\n")
}
