package document

import (
	"regexp"
	"strings"
)

// RefKind distinguishes the two reference syntax forms.
type RefKind string

// Reference kinds.
const (
	// RefByName references a core document by name (skills/<name>).
	RefByName RefKind = "name"

	// RefByPath references a library document by path (skill-library/...).
	RefByPath RefKind = "path"
)

// Ref is one declared reference extracted from a document.
type Ref struct {
	// Token is the normalized reference: the bare name for name refs, the
	// corpus path without the SKILL.md suffix for path refs.
	Token string

	// Raw is the reference exactly as written, used by fixes that rewrite
	// the original text.
	Raw string

	// Kind is the reference syntax form.
	Kind RefKind

	// Line is the 1-based file line the reference appears on.
	Line int

	// LoadBearing is true for frontmatter-declared references; those are
	// critical when broken, body mentions are warnings.
	LoadBearing bool
}

// Reference token detectors. Path refs use the library directory prefix,
// name refs the core prefix with no further path segments.
var (
	pathRefPattern = regexp.MustCompile(`\bskill-library/[A-Za-z0-9][A-Za-z0-9._/-]*`)
	nameRefPattern = regexp.MustCompile(`\bskills/[A-Za-z0-9][A-Za-z0-9._-]*`)
)

// References extracts every declared reference from frontmatter and body.
// Frontmatter references come first, in key order, marked load-bearing.
func (d *Document) References() []Ref {
	refs := d.frontmatterRefs()
	return append(refs, d.bodyRefs()...)
}

// frontmatterRefs extracts references declared in the skills and replaced-by
// frontmatter keys.
func (d *Document) frontmatterRefs() []Ref {
	var refs []Ref

	for _, entry := range d.Frontmatter.Skills {
		refs = append(refs, Ref{
			Token:       normalizeRefToken(entry),
			Raw:         entry,
			Kind:        refKindOf(entry),
			Line:        d.Frontmatter.Line("skills"),
			LoadBearing: true,
		})
	}

	if rb := d.Frontmatter.ReplacedBy; rb != "" {
		refs = append(refs, Ref{
			Token:       normalizeRefToken(rb),
			Raw:         rb,
			Kind:        refKindOf(rb),
			Line:        d.Frontmatter.Line("replaced-by"),
			LoadBearing: true,
		})
	}

	return refs
}

// bodyRefs scans body lines for reference tokens of both syntax forms.
func (d *Document) bodyRefs() []Ref {
	var refs []Ref
	for i, line := range d.BodyLines() {
		fileLine := d.BodyStart + i
		for _, tok := range pathRefPattern.FindAllString(line, -1) {
			refs = append(refs, Ref{
				Token: normalizeRefToken(tok),
				Raw:   tok,
				Kind:  RefByPath,
				Line:  fileLine,
			})
		}
		for _, tok := range nameRefPattern.FindAllString(line, -1) {
			refs = append(refs, Ref{
				Token: normalizeRefToken(tok),
				Raw:   tok,
				Kind:  RefByName,
				Line:  fileLine,
			})
		}
	}
	return refs
}

// refKindOf classifies a frontmatter reference entry by its shape.
func refKindOf(entry string) RefKind {
	if strings.HasPrefix(strings.TrimSpace(entry), "skill-library/") {
		return RefByPath
	}
	return RefByName
}

// normalizeRefToken canonicalizes a reference token: trims whitespace and
// trailing punctuation, strips the SKILL.md suffix from path refs, and
// reduces skills/<name> to the bare name.
func normalizeRefToken(tok string) string {
	tok = strings.TrimSpace(tok)
	tok = strings.TrimRight(tok, ".,;:)\"'`")
	tok = strings.TrimSuffix(tok, "/SKILL.md")
	tok = strings.TrimSuffix(tok, "/")
	if !strings.HasPrefix(tok, "skill-library/") {
		tok = strings.TrimPrefix(tok, "skills/")
	}
	return tok
}
