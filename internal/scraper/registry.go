package scraper

import (
	"context"
	"time"

	"github.com/hashtrails/trailscan/internal/config"
)

// Options carries per-run knobs into adapters.
type Options struct {
	// Days bounds how far ahead adapters look for events.
	Days int
	// Reference is the instant year-less date inference works from.
	// Zero means "now".
	Reference time.Time
}

// Ref returns the effective reference instant.
func (o Options) Ref() time.Time {
	if o.Reference.IsZero() {
		return time.Now().UTC()
	}
	return o.Reference
}

// Adapter fetches and extracts one source family. Implementations must
// never let a failure escape their boundary: every problem surfaces as
// entries in the result's error lists, not as a panic or a bare error.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, src config.Source, opts Options) *Result
}

// registration is one predicate → adapter pair. Order matters: the first
// matching predicate wins, so site-specific adapters register before the
// generic families.
type registration struct {
	match   func(src config.Source) bool
	adapter Adapter
}

// Registry dispatches a source descriptor to the adapter that handles
// it. New sites are added by registering an adapter with a predicate,
// never by subclassing anything.
type Registry struct {
	regs []registration
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a predicate → adapter pair.
func (r *Registry) Register(match func(src config.Source) bool, adapter Adapter) {
	r.regs = append(r.regs, registration{match: match, adapter: adapter})
}

// RegisterType registers an adapter for every source of one config type.
func (r *Registry) RegisterType(sourceType string, adapter Adapter) {
	r.Register(func(src config.Source) bool { return src.Type == sourceType }, adapter)
}

// Find returns the first adapter whose predicate accepts the source.
func (r *Registry) Find(src config.Source) (Adapter, bool) {
	for _, reg := range r.regs {
		if reg.match(src) {
			return reg.adapter, true
		}
	}
	return nil, false
}
