// Package registry builds the per-run immutable snapshot of every resolvable
// document in the corpus: core names, library paths, and the deprecation map.
// The snapshot is rebuilt fresh each run and never cached across runs.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kestrelworks/curator/internal/document"
)

// DocumentFile is the canonical file name of a capability document.
const DocumentFile = "SKILL.md"

// ErrCorpusUnreadable is returned when the corpus root cannot be walked.
// This is the one fatal error that aborts an entire run.
var ErrCorpusUnreadable = errors.New("corpus root unreadable")

// Registry is the immutable per-run corpus snapshot.
type Registry struct {
	// coreNames maps core document name -> corpus-relative path.
	coreNames map[string]string

	// libraryPaths maps normalized library path -> corpus-relative file path.
	libraryPaths map[string]string

	// deprecated maps deprecated name -> replacement name.
	deprecated map[string]string

	// paths lists every document file path, sorted, for corpus iteration.
	paths []string

	// root is the corpus root the snapshot was built from.
	root string
}

// Builder constructs a Registry from a corpus walk.
type Builder struct {
	loader *document.Loader
}

// NewBuilder creates a registry builder using the given loader's tier
// conventions.
func NewBuilder(loader *document.Loader) *Builder {
	return &Builder{loader: loader}
}

// Build walks the corpus root once and produces the snapshot. Individual
// unparsable documents are skipped here (the structural phase reports them);
// only an unreadable root is fatal.
func (b *Builder) Build(root string) (*Registry, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorpusUnreadable, root, err)
	}

	reg := &Registry{
		coreNames:    make(map[string]string),
		libraryPaths: make(map[string]string),
		deprecated:   make(map[string]string),
		root:         root,
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // unreadable subtree isolates to its documents
		}
		if d.IsDir() || d.Name() != DocumentFile {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		b.register(reg, filepath.ToSlash(rel))
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorpusUnreadable, root, walkErr)
	}

	sort.Strings(reg.paths)
	return reg, nil
}

// register records one document file in the snapshot maps.
func (b *Builder) register(reg *Registry, rel string) {
	tier, ok := b.loader.TierOf(rel)
	if !ok {
		return
	}
	reg.paths = append(reg.paths, rel)

	switch tier {
	case document.TierCore:
		name := coreNameOf(rel)
		if name != "" {
			reg.coreNames[normalize(name)] = rel
		}
	case document.TierLibrary:
		reg.libraryPaths[normalize(strings.TrimSuffix(rel, "/"+DocumentFile))] = rel
	}

	// The deprecation map needs the frontmatter; a parse failure here just
	// leaves the document out of the map.
	doc, err := b.loader.Load(reg.root, rel)
	if err == nil && doc.IsDeprecated() {
		reg.deprecated[normalize(doc.Frontmatter.Name)] = doc.Frontmatter.ReplacedBy
	}
}

// coreNameOf derives a core document's name from its path convention:
// skills/<name>/SKILL.md.
func coreNameOf(rel string) string {
	parts := strings.Split(rel, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-2]
}

// ResolveName returns the path of the core document with the given name.
func (r *Registry) ResolveName(name string) (string, bool) {
	path, ok := r.coreNames[normalize(name)]
	return path, ok
}

// ResolvePath reports whether a library document exists at the given
// normalized path.
func (r *Registry) ResolvePath(path string) (string, bool) {
	file, ok := r.libraryPaths[normalize(path)]
	return file, ok
}

// Replacement returns the replacement for a deprecated name.
func (r *Registry) Replacement(name string) (string, bool) {
	repl, ok := r.deprecated[normalize(name)]
	return repl, ok
}

// Paths returns every document file path in the snapshot, sorted.
func (r *Registry) Paths() []string {
	return r.paths
}

// CoreNames returns the sorted list of core document names.
func (r *Registry) CoreNames() []string {
	names := make([]string, 0, len(r.coreNames))
	for name := range r.coreNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LibraryPaths returns the sorted list of normalized library paths.
func (r *Registry) LibraryPaths() []string {
	paths := make([]string, 0, len(r.libraryPaths))
	for p := range r.libraryPaths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Root returns the corpus root the snapshot was built from.
func (r *Registry) Root() string {
	return r.root
}

// normalize lowercases and trims a lookup key so that case/whitespace-only
// mismatches never produce a false Phantom.
func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
