// Package resolver maps free-text group tags to canonical group records.
//
// Matching precedence, first hit wins: exact canonical short identifier,
// case-insensitive alias-table match, then fuzzy name similarity, but
// fuzzy hits are only ever surfaced as suggestions for an operator, never
// silently assigned, because a false positive here corrupts every event
// the tag appears on. Unresolved tags are reported, not defaulted.
//
// Resolutions are cached process-wide. The resolver never invalidates its
// own cache: any caller that changes the alias table or group linkage
// must call ClearCache itself.
package resolver

import (
	"fmt"
	"strings"

	"github.com/agext/levenshtein"
	lru "github.com/hashicorp/golang-lru/v2"
)

// SimilarityThreshold is the minimum levenshtein similarity (0..1) for a
// fuzzy suggestion.
const SimilarityThreshold = 0.85

const cacheSize = 512

// Group is a canonical group record as the external store presents it.
type Group struct {
	ID      string `json:"id"`
	ShortID string `json:"short_id"` // the kennel's usual abbreviation, e.g. "EWH3"
	Name    string `json:"name"`
}

// Directory is the read side of the group/alias store the resolver
// matches against.
type Directory interface {
	// Groups returns every canonical group.
	Groups() ([]Group, error)
	// LookupAlias resolves a case-insensitive alias to a group ID.
	LookupAlias(alias string) (groupID string, ok bool, err error)
}

// Resolution is the outcome for one tag. ConflictsWith is set when the
// directory itself is inconsistent: the tag matched a canonical short ID
// but the alias table maps the same tag to a different group. The
// short-ID match still wins; the conflict is surfaced for alerting.
type Resolution struct {
	Matched       bool   `json:"matched"`
	CanonicalID   string `json:"canonical_id,omitempty"`
	ConflictsWith string `json:"conflicts_with,omitempty"`
}

// Suggestion is a fuzzy candidate for an unresolved tag, for interactive
// review flows.
type Suggestion struct {
	GroupID    string  `json:"group_id"`
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
}

// Resolver resolves tags against a Directory with a process-wide cache.
type Resolver struct {
	dir   Directory
	cache *lru.Cache[string, Resolution]
}

// New creates a resolver over the given directory.
func New(dir Directory) (*Resolver, error) {
	cache, err := lru.New[string, Resolution](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating resolution cache: %w", err)
	}
	return &Resolver{dir: dir, cache: cache}, nil
}

// Resolve maps a tag to a canonical group. Results are cached; resolving
// the same tag twice with no intervening ClearCache returns identical
// results. Only the lookup cache is ever mutated.
func (r *Resolver) Resolve(tag string) (Resolution, error) {
	// The cache key keeps the tag's exact case: short-ID matching is
	// case-sensitive, so "EWH3" and "ewh3" are different lookups with
	// different answers.
	key := strings.TrimSpace(tag)
	if key == "" {
		return Resolution{}, nil
	}
	if res, ok := r.cache.Get(key); ok {
		return res, nil
	}

	res, err := r.resolveUncached(key)
	if err != nil {
		return Resolution{}, err
	}
	r.cache.Add(key, res)
	return res, nil
}

func (r *Resolver) resolveUncached(tag string) (Resolution, error) {
	groups, err := r.dir.Groups()
	if err != nil {
		return Resolution{}, fmt.Errorf("listing groups: %w", err)
	}

	// Stage 1: exact short-identifier match.
	for _, g := range groups {
		if g.ShortID != "" && g.ShortID == tag {
			res := Resolution{Matched: true, CanonicalID: g.ID}
			// An alias for the same tag pointing at a different group is
			// a directory inconsistency worth reporting.
			if id, ok, err := r.dir.LookupAlias(tag); err != nil {
				return Resolution{}, fmt.Errorf("looking up alias: %w", err)
			} else if ok && id != g.ID {
				res.ConflictsWith = id
			}
			return res, nil
		}
	}

	// Stage 2: case-insensitive alias-table match.
	id, ok, err := r.dir.LookupAlias(tag)
	if err != nil {
		return Resolution{}, fmt.Errorf("looking up alias: %w", err)
	}
	if ok {
		return Resolution{Matched: true, CanonicalID: id}, nil
	}

	// Fuzzy matching is deliberately absent here: see Suggest.
	return Resolution{}, nil
}

// Suggest returns canonical groups whose names are similar to the tag,
// best first, for an operator to confirm. This is the only place fuzzy
// matching runs.
func (r *Resolver) Suggest(tag string) ([]Suggestion, error) {
	groups, err := r.dir.Groups()
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}

	tag = strings.ToLower(strings.TrimSpace(tag))
	var out []Suggestion
	for _, g := range groups {
		sim := levenshtein.Similarity(tag, strings.ToLower(g.Name), nil)
		if s := levenshtein.Similarity(tag, strings.ToLower(g.ShortID), nil); s > sim {
			sim = s
		}
		if sim >= SimilarityThreshold {
			out = append(out, Suggestion{GroupID: g.ID, Name: g.Name, Similarity: sim})
		}
	}
	// Highest similarity first; insertion sort keeps it tiny.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Similarity > out[j-1].Similarity; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

// Resolvable reports whether a tag now resolves, for alert
// auto-resolution after an operator action. It bypasses the cache so a
// just-created alias is visible immediately.
func (r *Resolver) Resolvable(tag string) (bool, error) {
	res, err := r.resolveUncached(strings.TrimSpace(tag))
	if err != nil {
		return false, err
	}
	return res.Matched, nil
}

// ClearCache drops every cached resolution. Callers that have just
// created an alias or changed a tag-to-group link must call this before
// the change is visible to in-flight pipelines.
func (r *Resolver) ClearCache() {
	r.cache.Purge()
}
