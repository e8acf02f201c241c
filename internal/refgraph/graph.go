// Package refgraph builds the cross-document reference graph: every declared
// reference resolved against the registry and classified Valid, Phantom, or
// Deprecated, plus gateway reachability for library documents.
//
// Construction is two-stage. Stage A extracts references from every document
// in parallel. Stage B resolves them single-threaded against the complete
// registry; resolving against a partial snapshot would manufacture false
// Phantoms.
package refgraph

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kestrelworks/curator/internal/document"
	"github.com/kestrelworks/curator/internal/registry"
)

// EdgeKind classifies a resolved reference edge.
type EdgeKind string

// Edge kinds.
const (
	// EdgeValid resolved via the registry built in the same run.
	EdgeValid EdgeKind = "valid"

	// EdgePhantom failed both exact and deprecated-map resolution.
	EdgePhantom EdgeKind = "phantom"

	// EdgeDeprecated resolved through the deprecation map and carries the
	// replacement.
	EdgeDeprecated EdgeKind = "deprecated"
)

// Edge is one classified reference from a document to a target.
type Edge struct {
	// From is the referencing document's corpus-relative path.
	From string

	// Ref is the extracted reference as written.
	Ref document.Ref

	// Kind is the resolution outcome.
	Kind EdgeKind

	// Target is the resolved document path for Valid edges.
	Target string

	// Replacement is the replacement name for Deprecated edges.
	Replacement string

	// Candidates is the ranked, informational candidate list for Phantom
	// edges. Never authoritative.
	Candidates []Candidate
}

// Graph is the completed reference graph for one run.
type Graph struct {
	edges     map[string][]Edge               // from-path -> edges
	docs      map[string]*document.Document   // path -> loaded document
	failed    map[string]*document.ParseError // path -> parse failure
	failedRaw map[string]string               // path -> source of parse-failed document
	reach     map[string][]string             // library path -> gateway paths
	reg       *registry.Registry
}

// Builder constructs a Graph.
type Builder struct {
	// Loader parses documents during Stage A.
	Loader *document.Loader

	// Workers bounds Stage A parallelism (0 = NumCPU).
	Workers int
}

// NewBuilder creates a graph builder.
func NewBuilder(loader *document.Loader, workers int) *Builder {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Builder{Loader: loader, Workers: workers}
}

// extraction is the Stage A output for one document. raw carries the source
// of parse-failed documents so later phases never re-read the file.
type extraction struct {
	path string
	doc  *document.Document
	perr *document.ParseError
	raw  string
}

// Build runs both stages against the registry snapshot. Cancellation is
// honored between documents: in-flight extractions complete first.
func (b *Builder) Build(ctx context.Context, reg *registry.Registry) (*Graph, error) {
	extractions, err := b.extractAll(ctx, reg)
	if err != nil {
		return nil, err
	}
	return b.resolve(reg, extractions), nil
}

// extractAll is Stage A: parallel load + reference extraction.
func (b *Builder) extractAll(ctx context.Context, reg *registry.Registry) ([]extraction, error) {
	paths := reg.Paths()
	results := make([]extraction, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.Workers)

	for i, p := range paths {
		if err := gctx.Err(); err != nil {
			break
		}
		i, p := i, p
		g.Go(func() error {
			results[i] = b.extractOne(reg.Root(), p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// extractOne loads a single document, capturing parse failures per-document.
func (b *Builder) extractOne(root, p string) extraction {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(p)))
	if err != nil {
		perr := &document.ParseError{Path: p, Line: 1, Message: err.Error(), ErrorType: "read"}
		return extraction{path: p, perr: perr}
	}
	doc, perr := b.Loader.Parse(p, data)
	if perr != nil {
		return extraction{path: p, perr: perr, raw: string(data)}
	}
	return extraction{path: p, doc: doc}
}

// resolve is Stage B: single-threaded classification of every extracted
// reference against the complete registry, plus reachability computation.
func (b *Builder) resolve(reg *registry.Registry, extractions []extraction) *Graph {
	g := &Graph{
		edges:     make(map[string][]Edge),
		docs:      make(map[string]*document.Document),
		failed:    make(map[string]*document.ParseError),
		failedRaw: make(map[string]string),
		reach:     make(map[string][]string),
		reg:       reg,
	}

	ranker := newRanker(reg)

	for _, ex := range extractions {
		if ex.perr != nil {
			g.failed[ex.path] = ex.perr
			g.failedRaw[ex.path] = ex.raw
			continue
		}
		g.docs[ex.path] = ex.doc
		for _, ref := range ex.doc.References() {
			g.edges[ex.path] = append(g.edges[ex.path], classify(reg, ranker, ex.path, ref))
		}
	}

	g.computeReachability()
	return g
}

// classify resolves one reference: exact match first, then the deprecation
// map, then Phantom with ranked candidates.
func classify(reg *registry.Registry, ranker *ranker, from string, ref document.Ref) Edge {
	edge := Edge{From: from, Ref: ref}

	switch ref.Kind {
	case document.RefByName:
		if target, ok := reg.ResolveName(ref.Token); ok {
			edge.Kind, edge.Target = EdgeValid, target
			return edge
		}
		if repl, ok := reg.Replacement(ref.Token); ok {
			edge.Kind, edge.Replacement = EdgeDeprecated, repl
			return edge
		}
	case document.RefByPath:
		if target, ok := reg.ResolvePath(ref.Token); ok {
			edge.Kind, edge.Target = EdgeValid, target
			return edge
		}
		if repl, ok := reg.Replacement(path.Base(ref.Token)); ok {
			edge.Kind, edge.Replacement = EdgeDeprecated, repl
			return edge
		}
	}

	edge.Kind = EdgePhantom
	edge.Candidates = ranker.rank(ref.Token, ref.Kind)
	return edge
}

// computeReachability records, for every library document, the gateways whose
// routing table holds a Valid edge to it.
func (g *Graph) computeReachability() {
	for p, doc := range g.docs {
		if !doc.IsGateway() {
			continue
		}
		for _, route := range doc.Routes() {
			if _, ok := g.reg.ResolvePath(route.Target); !ok {
				continue
			}
			key := normalizeKey(route.Target)
			g.reach[key] = append(g.reach[key], p)
		}
	}
	for key := range g.reach {
		sort.Strings(g.reach[key])
	}
}

// EdgesFrom returns the classified edges declared by one document.
func (g *Graph) EdgesFrom(path string) []Edge {
	return g.edges[path]
}

// AllEdges returns every edge in the graph, ordered by source path.
func (g *Graph) AllEdges() []Edge {
	froms := make([]string, 0, len(g.edges))
	for f := range g.edges {
		froms = append(froms, f)
	}
	sort.Strings(froms)

	var all []Edge
	for _, f := range froms {
		all = append(all, g.edges[f]...)
	}
	return all
}

// Reachability returns the gateways routing to a library document path.
func (g *Graph) Reachability(libPath string) []string {
	return g.reach[normalizeKey(libPath)]
}

// Document returns the loaded document at path, if it parsed.
func (g *Graph) Document(path string) (*document.Document, bool) {
	doc, ok := g.docs[path]
	return doc, ok
}

// ParseFailure returns the parse error for a document that failed to load.
func (g *Graph) ParseFailure(path string) (*document.ParseError, bool) {
	perr, ok := g.failed[path]
	return perr, ok
}

// FailedSource returns the raw content of a document that failed to parse.
// Unreadable files have an empty source.
func (g *Graph) FailedSource(path string) (string, bool) {
	raw, ok := g.failedRaw[path]
	return raw, ok
}

// Documents returns every successfully loaded document, ordered by path.
func (g *Graph) Documents() []*document.Document {
	paths := make([]string, 0, len(g.docs))
	for p := range g.docs {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	docs := make([]*document.Document, 0, len(paths))
	for _, p := range paths {
		docs = append(docs, g.docs[p])
	}
	return docs
}

// Gateways returns every gateway document, ordered by path.
func (g *Graph) Gateways() []*document.Document {
	var gws []*document.Document
	for _, doc := range g.Documents() {
		if doc.IsGateway() {
			gws = append(gws, doc)
		}
	}
	return gws
}

// normalizeKey mirrors registry key normalization for reachability lookups.
func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
