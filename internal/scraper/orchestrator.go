package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashtrails/trailscan/internal/alert"
	"github.com/hashtrails/trailscan/internal/config"
	"github.com/hashtrails/trailscan/internal/diagnostics"
	"github.com/hashtrails/trailscan/internal/drift"
	"github.com/hashtrails/trailscan/internal/event"
	"github.com/hashtrails/trailscan/internal/logger"
	"github.com/hashtrails/trailscan/internal/resolver"
	"github.com/hashtrails/trailscan/internal/storage"
)

// DefaultCadence is how often a source is expected to produce a
// successful run before it counts as stale.
const DefaultCadence = 8 * 24 * time.Hour

// Orchestrator runs sources through the full pipeline: config
// validation, adapter dispatch, resolution, fingerprint comparison,
// diagnostics, and state persistence.
type Orchestrator struct {
	Registry  *Registry
	Resolver  *resolver.Resolver
	Store     *storage.Store
	Collector *diagnostics.Collector // optional
	Cadence   time.Duration
}

// New creates an orchestrator with the default cadence.
func New(reg *Registry, res *resolver.Resolver, store *storage.Store) *Orchestrator {
	return &Orchestrator{
		Registry: reg,
		Resolver: res,
		Store:    store,
		Cadence:  DefaultCadence,
	}
}

// ScrapeSource drives one source to completion. It never returns an
// error: every failure mode lands in the result, and a total failure for
// this source leaves any concurrent sources untouched.
func (o *Orchestrator) ScrapeSource(ctx context.Context, src config.Source, opts Options) *Result {
	start := time.Now()
	res := NewResult(src.Name)

	// Config validation runs strictly before any network access and a
	// failure blocks the run entirely.
	if errs := config.Validate(&src); len(errs) > 0 {
		for _, e := range errs {
			res.Errors = append(res.Errors, "config: "+e)
		}
		res.DiagnosticContext["config_valid"] = false
		res.DurationMS = time.Since(start).Milliseconds()
		o.observe(res, start, false)
		return res
	}

	adapter, ok := o.Registry.Find(src)
	if !ok {
		res.Errors = append(res.Errors, fmt.Sprintf("config: no adapter for source type %q", src.Type))
		res.DurationMS = time.Since(start).Milliseconds()
		o.observe(res, start, false)
		return res
	}
	res.DiagnosticContext["adapter"] = adapter.Name()

	fetched := o.runAdapter(ctx, adapter, src, opts)
	res.Merge(fetched)
	res.StructureHash = fetched.StructureHash

	o.resolveTags(res)
	res.FillRates = diagnostics.FillRates(res.Events)
	event.SortByDate(res.Events)

	o.reconcile(src.Name, res)
	res.DurationMS = time.Since(start).Milliseconds()
	o.observe(res, start, !res.Failed())

	logger.Info("scrape complete", logger.Fields{
		"source":   src.Name,
		"events":   len(res.Events),
		"errors":   len(res.Errors),
		"duration": res.DurationMS,
	})
	return res
}

// runAdapter invokes the adapter behind a panic guard: adapters must not
// throw past their boundary, but one buggy site extractor still must not
// take the orchestrator down.
func (o *Orchestrator) runAdapter(ctx context.Context, adapter Adapter, src config.Source, opts Options) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			res = NewResult(src.Name)
			res.AddParseError("adapter", "", fmt.Errorf("adapter %s panicked: %v", adapter.Name(), r))
		}
	}()
	res = adapter.Fetch(ctx, src, opts)
	if res == nil {
		res = NewResult(src.Name)
		res.AddParseError("adapter", "", fmt.Errorf("adapter %s returned no result", adapter.Name()))
	}
	return res
}

// resolveTags resolves each unique group tag once per run. Unresolved
// tags are reported for alerting, never defaulted to a group.
func (o *Orchestrator) resolveTags(res *Result) {
	if o.Resolver == nil {
		return
	}
	res.Resolved = make(map[string]resolver.Resolution)
	seenUnmatched := make(map[string]bool)

	for i := range res.Events {
		tag := res.Events[i].GroupTag
		if tag == "" {
			continue
		}
		if _, done := res.Resolved[tag]; done {
			continue
		}
		r, err := o.Resolver.Resolve(tag)
		if err != nil {
			res.AddMergeError(fmt.Sprintf("resolving tag %q: %v", tag, err))
			continue
		}
		res.Resolved[tag] = r
		if r.ConflictsWith != "" {
			res.AddMergeError(fmt.Sprintf("tag %q: short ID resolves to %s but alias maps to %s", tag, r.CanonicalID, r.ConflictsWith))
		}
		if !r.Matched && !seenUnmatched[tag] {
			seenUnmatched[tag] = true
			res.UnmatchedTags = append(res.UnmatchedTags, tag)
		}
	}
}

// reconcile compares this run against the previous one: event accounting
// for the persistence collaborator, structure-hash drift, and alert
// creation. State is only saved on runs that produced something, so a
// totally failed fetch does not erase the baseline.
func (o *Orchestrator) reconcile(source string, res *Result) {
	if o.Store == nil {
		res.Accounting = event.Accounting{Found: len(res.Events)}
		return
	}

	state, err := o.Store.LoadRunState(source)
	if err != nil {
		res.AddMergeError(fmt.Sprintf("loading run state: %v", err))
		state = &storage.RunState{Snapshot: event.NewSnapshot()}
	}

	acct, next := event.Reconcile(state.Snapshot, res.Events)
	res.Accounting = acct

	if drift.Changed(state.StructureHash, res.StructureHash) {
		res.DiagnosticContext["structure_changed"] = true
		a := alert.NewStructureChange(source, state.StructureHash, res.StructureHash)
		if err := o.Store.AppendAlert(a); err != nil {
			res.AddMergeError(fmt.Sprintf("recording structure-change alert: %v", err))
		}
		if o.Collector != nil {
			o.Collector.CountStructureChange(source)
		}
		logger.Warn("structure hash changed", logger.Fields{
			"source":   source,
			"previous": state.StructureHash,
			"current":  res.StructureHash,
		})
	}

	if len(res.UnmatchedTags) > 0 {
		if err := o.Store.AppendAlert(alert.NewUnmatchedTags(source, res.UnmatchedTags)); err != nil {
			res.AddMergeError(fmt.Sprintf("recording unmatched-tags alert: %v", err))
		}
	}

	for tag, r := range res.Resolved {
		if r.ConflictsWith == "" {
			continue
		}
		if err := o.Store.AppendAlert(alert.NewGroupMismatch(source, tag, r.CanonicalID, r.ConflictsWith)); err != nil {
			res.AddMergeError(fmt.Sprintf("recording group-mismatch alert: %v", err))
		}
	}

	if !res.Failed() {
		state.Snapshot = next
		state.LastSuccess = time.Now().UTC()
		state.FillRates = res.FillRates
		if res.StructureHash != "" {
			state.StructureHash = res.StructureHash
		}
		if err := o.Store.SaveRunState(source, state); err != nil {
			res.AddMergeError(fmt.Sprintf("saving run state: %v", err))
		}
	}
}

// observe feeds the prometheus collector, when one is attached.
func (o *Orchestrator) observe(res *Result, start time.Time, ok bool) {
	if o.Collector == nil {
		return
	}
	var lastSuccess time.Time
	if o.Store != nil {
		if state, err := o.Store.LoadRunState(res.Source); err == nil {
			lastSuccess = state.LastSuccess
		}
	}
	h := diagnostics.Classify(res.FillRates, lastSuccess, o.Cadence, time.Now().UTC())
	o.Collector.ObserveRun(res.Source, res.FillRates, h, time.Since(start), ok)
	o.Collector.CountEvents(res.Source, "created", res.Accounting.Created)
	o.Collector.CountEvents(res.Source, "updated", res.Accounting.Updated)
	o.Collector.CountEvents(res.Source, "skipped", res.Accounting.Skipped)
	o.Collector.CountErrors(res.Source, "fetch", len(res.ErrorDetails.Fetch))
	o.Collector.CountErrors(res.Source, "parse", len(res.ErrorDetails.Parse))
	o.Collector.CountErrors(res.Source, "merge", len(res.ErrorDetails.Merge))
}

// ScrapeAll runs every source through ScrapeSource on a bounded worker
// pool. Each scrape is self-contained; the only shared mutable state is
// the resolver's cache, which is safe under concurrent reads.
func (o *Orchestrator) ScrapeAll(ctx context.Context, sources []config.Source, opts Options, concurrency int) []*Result {
	if concurrency < 1 {
		concurrency = 4
	}
	results := make([]*Result, len(sources))

	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for i, src := range sources {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, src config.Source) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = o.ScrapeSource(ctx, src, opts)
		}(i, src)
	}
	wg.Wait()
	return results
}
