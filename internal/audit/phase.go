package audit

import (
	"github.com/kestrelworks/curator/internal/config"
	"github.com/kestrelworks/curator/internal/document"
	"github.com/kestrelworks/curator/internal/refgraph"
	"github.com/kestrelworks/curator/internal/registry"
)

// Scope distinguishes per-document phases from corpus-wide ones.
type Scope string

// Phase scopes.
const (
	ScopePerDocument   Scope = "per-document"
	ScopeCrossDocument Scope = "cross-document"
)

// Phase ids, in pipeline order.
const (
	PhaseStructural  = "structural"
	PhaseFrontmatter = "frontmatter"
	PhaseReference   = "reference"
	PhaseFormatting  = "formatting"
	PhaseGatewaySync = "gateway-sync"
)

// Input carries everything a phase may read. Phases are pure functions of
// this input; the registry and graph are immutable for the run.
type Input struct {
	// Doc is the document under audit. Nil for cross-document phases.
	Doc *document.Document

	// Path is the document path, set even when the document failed to
	// parse and Doc is nil.
	Path string

	// Registry is the per-run corpus snapshot.
	Registry *registry.Registry

	// Graph is the completed reference graph.
	Graph *refgraph.Graph

	// Config holds audit thresholds and gateway mappings.
	Config *config.Config
}

// Phase is one named check unit of the pipeline. Adding a check means adding
// a variant to Phases, not new dispatch logic.
type Phase interface {
	// ID is the stable phase identifier used in reports.
	ID() string

	// Scope says whether the phase runs per document or corpus-wide.
	Scope() Scope

	// DependsOn names a hard prerequisite phase id, or "". A dependent
	// phase is skipped for documents where the prerequisite raised a
	// critical issue.
	DependsOn() string

	// Check inspects the input and returns its findings.
	Check(in Input) []Issue
}

// Phases returns the fixed, ordered pipeline.
func Phases() []Phase {
	return []Phase{
		&structuralPhase{},
		&frontmatterPhase{},
		&referencePhase{},
		&formattingPhase{},
		&gatewaySyncPhase{},
	}
}
