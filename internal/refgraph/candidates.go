package refgraph

import (
	"regexp"
	"sort"

	"github.com/sahilm/fuzzy"

	"github.com/kestrelworks/curator/internal/document"
	"github.com/kestrelworks/curator/internal/registry"
)

// maxCandidates caps the ranked candidate list attached to a Phantom edge.
const maxCandidates = 5

// Candidate is one ranked suggestion for a phantom reference. Informational
// only; never auto-selected.
type Candidate struct {
	// Value is the resolvable name or path.
	Value string `json:"value"`

	// Score is the ranking score (higher is better). Comparable only
	// within one candidate list.
	Score int `json:"score"`
}

// ranker produces candidate lists from the registry's resolvable names.
type ranker struct {
	coreNames    []string
	libraryPaths []string
}

func newRanker(reg *registry.Registry) *ranker {
	return &ranker{
		coreNames:    reg.CoreNames(),
		libraryPaths: reg.LibraryPaths(),
	}
}

// rank returns up to maxCandidates suggestions for an unresolvable token,
// matching against the namespace of the reference's own kind. Fuzzy matching
// first; token-overlap scoring as fallback when fuzzy finds nothing.
func (r *ranker) rank(token string, kind document.RefKind) []Candidate {
	pool := r.coreNames
	if kind == document.RefByPath {
		pool = r.libraryPaths
	}

	matches := fuzzy.Find(token, pool)
	candidates := make([]Candidate, 0, maxCandidates)
	for _, m := range matches {
		candidates = append(candidates, Candidate{Value: m.Str, Score: m.Score})
		if len(candidates) == maxCandidates {
			return candidates
		}
	}
	if len(candidates) > 0 {
		return candidates
	}

	return overlapCandidates(token, pool)
}

// wordPattern splits identifiers into comparable word tokens.
var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

// overlapCandidates scores pool entries by shared word count with the token.
func overlapCandidates(token string, pool []string) []Candidate {
	tokenWords := wordSet(token)
	if len(tokenWords) == 0 {
		return nil
	}

	var candidates []Candidate
	for _, entry := range pool {
		score := 0
		for w := range wordSet(entry) {
			if tokenWords[w] {
				score++
			}
		}
		if score > 0 {
			candidates = append(candidates, Candidate{Value: entry, Score: score})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Value < candidates[j].Value
	})

	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return candidates
}

// wordSet lowercases and tokenizes an identifier into its word set.
func wordSet(s string) map[string]bool {
	words := wordPattern.FindAllString(normalizeKey(s), -1)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
