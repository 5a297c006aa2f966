package scraper

import (
	"context"
	"strings"
	"testing"

	"github.com/hashtrails/trailscan/internal/alert"
	"github.com/hashtrails/trailscan/internal/config"
	"github.com/hashtrails/trailscan/internal/event"
	"github.com/hashtrails/trailscan/internal/resolver"
	"github.com/hashtrails/trailscan/internal/storage"
)

// fakeAdapter returns a canned result per source name.
type fakeAdapter struct {
	name  string
	fetch func(src config.Source) *Result
}

func (f *fakeAdapter) Name() string { return f.name }
func (f *fakeAdapter) Fetch(ctx context.Context, src config.Source, opts Options) *Result {
	return f.fetch(src)
}

func newTestOrchestrator(t *testing.T, adapter Adapter) (*Orchestrator, *storage.Store) {
	t.Helper()
	store, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.AddGroup(resolver.Group{ID: "g-ewh3", ShortID: "EWH3", Name: "Everyday Winos H3"}); err != nil {
		t.Fatal(err)
	}
	res, err := resolver.New(store)
	if err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry()
	reg.RegisterType(config.TypeSite, adapter)
	return New(reg, res, store), store
}

func siteSource(name string) config.Source {
	return config.Source{Name: name, Type: config.TypeSite, URL: "https://example.org", Enabled: true}
}

func TestScrapeSourceResolvesAndReconciles(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", fetch: func(src config.Source) *Result {
		r := NewResult(src.Name)
		r.Events = append(r.Events,
			event.PreResolutionEvent{Date: "2026-02-19", GroupTag: "EWH3", RunNumber: 1506, Title: "t"},
			event.PreResolutionEvent{Date: "2026-02-26", GroupTag: "MYSTERY", RunNumber: 9},
		)
		r.StructureHash = "hash-1"
		return r
	}}
	orch, store := newTestOrchestrator(t, adapter)

	res := orch.ScrapeSource(context.Background(), siteSource("src"), Options{})

	if res.Accounting.Created != 2 || res.Accounting.Found != 2 {
		t.Errorf("accounting = %+v, want 2 found, 2 created", res.Accounting)
	}
	if r := res.Resolved["EWH3"]; !r.Matched || r.CanonicalID != "g-ewh3" {
		t.Errorf("EWH3 resolution = %+v", r)
	}
	if len(res.UnmatchedTags) != 1 || res.UnmatchedTags[0] != "MYSTERY" {
		t.Errorf("unmatched = %v, want [MYSTERY]", res.UnmatchedTags)
	}

	// The unmatched tag raised a durable alert.
	alerts, err := store.LoadAlerts()
	if err != nil {
		t.Fatal(err)
	}
	foundTagAlert := false
	for _, a := range alerts {
		if a.Type == alert.TypeUnmatchedTags {
			foundTagAlert = true
		}
	}
	if !foundTagAlert {
		t.Error("expected an UNMATCHED_TAGS alert")
	}

	// Second identical run: everything skips.
	res = orch.ScrapeSource(context.Background(), siteSource("src"), Options{})
	if res.Accounting.Skipped != 2 || res.Accounting.Created != 0 {
		t.Errorf("second run accounting = %+v, want 2 skipped", res.Accounting)
	}
}

func TestScrapeSourceGroupMismatchAlert(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", fetch: func(src config.Source) *Result {
		r := NewResult(src.Name)
		r.Events = append(r.Events, event.PreResolutionEvent{Date: "2026-02-19", GroupTag: "EWH3"})
		return r
	}}
	orch, store := newTestOrchestrator(t, adapter)

	// Directory inconsistency: "EWH3" is a canonical short ID, but an
	// alias for the same text points at another group.
	if err := store.AddGroup(resolver.Group{ID: "g-bah3", ShortID: "BAH3", Name: "Ballston Area H3"}); err != nil {
		t.Fatal(err)
	}
	if err := store.AddAlias("EWH3", "g-bah3"); err != nil {
		t.Fatal(err)
	}

	res := orch.ScrapeSource(context.Background(), siteSource("src"), Options{})

	// The short-ID match still wins; the disagreement is a merge error
	// plus a durable alert.
	if r := res.Resolved["EWH3"]; !r.Matched || r.CanonicalID != "g-ewh3" {
		t.Errorf("EWH3 resolution = %+v, want short-ID match on g-ewh3", r)
	}
	if len(res.ErrorDetails.Merge) != 1 {
		t.Errorf("merge errors = %v, want exactly one", res.ErrorDetails.Merge)
	}
	alerts, err := store.LoadAlerts()
	if err != nil {
		t.Fatal(err)
	}
	found := 0
	for _, a := range alerts {
		if a.Type == alert.TypeGroupMismatch {
			found++
			if a.Context["tag"] != "EWH3" || a.Context["canonical_id"] != "g-ewh3" || a.Context["alias_id"] != "g-bah3" {
				t.Errorf("alert context = %+v", a.Context)
			}
		}
	}
	if found != 1 {
		t.Errorf("got %d GROUP_MISMATCH alerts, want 1", found)
	}
}

func TestScrapeSourceStructureDrift(t *testing.T) {
	hash := "hash-1"
	adapter := &fakeAdapter{name: "fake", fetch: func(src config.Source) *Result {
		r := NewResult(src.Name)
		r.Events = append(r.Events, event.PreResolutionEvent{Date: "2026-02-19", GroupTag: "EWH3"})
		r.StructureHash = hash
		return r
	}}
	orch, store := newTestOrchestrator(t, adapter)
	src := siteSource("src")

	countDriftAlerts := func() int {
		alerts, err := store.LoadAlerts()
		if err != nil {
			t.Fatal(err)
		}
		n := 0
		for _, a := range alerts {
			if a.Type == alert.TypeStructureChange {
				n++
			}
		}
		return n
	}

	// Baseline run, then an identical one: no drift alert.
	orch.ScrapeSource(context.Background(), src, Options{})
	orch.ScrapeSource(context.Background(), src, Options{})
	if n := countDriftAlerts(); n != 0 {
		t.Fatalf("unchanged hash raised %d drift alerts", n)
	}

	// Hash moves: exactly one alert.
	hash = "hash-2"
	res := orch.ScrapeSource(context.Background(), src, Options{})
	if n := countDriftAlerts(); n != 1 {
		t.Errorf("moved hash raised %d drift alerts, want 1", n)
	}
	if res.DiagnosticContext["structure_changed"] != true {
		t.Error("drift should be flagged in diagnostics")
	}
}

func TestScrapeSourceConfigGate(t *testing.T) {
	called := false
	adapter := &fakeAdapter{name: "fake", fetch: func(src config.Source) *Result {
		called = true
		return NewResult(src.Name)
	}}
	orch, _ := newTestOrchestrator(t, adapter)

	src := siteSource("src")
	src.Config.GroupPatterns = []config.GroupPattern{{Pattern: `(a+)+`, Tag: "X"}}

	res := orch.ScrapeSource(context.Background(), src, Options{})
	if called {
		t.Error("invalid config must block the scrape before any fetch")
	}
	if !res.Failed() {
		t.Error("blocked run should be a failure")
	}
	joined := strings.Join(res.Errors, "\n")
	if !strings.Contains(joined, "config:") {
		t.Errorf("errors should be config-classified: %v", res.Errors)
	}
}

func TestScrapeSourcePanicIsolation(t *testing.T) {
	adapter := &fakeAdapter{name: "boom", fetch: func(src config.Source) *Result {
		panic("adapter bug")
	}}
	orch, _ := newTestOrchestrator(t, adapter)

	res := orch.ScrapeSource(context.Background(), siteSource("src"), Options{})
	if !res.Failed() {
		t.Error("panicking adapter should yield a failed result, not a crash")
	}
}

func TestScrapeSourceFailureKeepsBaseline(t *testing.T) {
	failing := false
	adapter := &fakeAdapter{name: "fake", fetch: func(src config.Source) *Result {
		r := NewResult(src.Name)
		if failing {
			r.AddFetchError("https://example.org", 503, nil)
			return r
		}
		r.Events = append(r.Events, event.PreResolutionEvent{Date: "2026-02-19", GroupTag: "EWH3"})
		r.StructureHash = "hash-1"
		return r
	}}
	orch, store := newTestOrchestrator(t, adapter)
	src := siteSource("src")

	orch.ScrapeSource(context.Background(), src, Options{})

	failing = true
	orch.ScrapeSource(context.Background(), src, Options{})

	state, err := store.LoadRunState("src")
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Snapshot.Events) != 1 || state.StructureHash != "hash-1" {
		t.Error("a total failure must not erase the previous baseline")
	}
}

func TestScrapeAllIsolation(t *testing.T) {
	adapter := &fakeAdapter{name: "mixed", fetch: func(src config.Source) *Result {
		if src.Name == "broken" {
			panic("one bad source")
		}
		r := NewResult(src.Name)
		r.Events = append(r.Events, event.PreResolutionEvent{Date: "2026-02-19", GroupTag: "EWH3"})
		return r
	}}
	orch, _ := newTestOrchestrator(t, adapter)

	sources := []config.Source{siteSource("a"), siteSource("broken"), siteSource("c")}
	results := orch.ScrapeAll(context.Background(), sources, Options{}, 2)

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, name := range []string{"a", "broken", "c"} {
		if results[i] == nil || results[i].Source != name {
			t.Fatalf("result %d missing or misordered", i)
		}
	}
	if results[1].Failed() != true {
		t.Error("broken source should fail")
	}
	if len(results[0].Events) != 1 || len(results[2].Events) != 1 {
		t.Error("one broken source must not cost the healthy ones")
	}
}
