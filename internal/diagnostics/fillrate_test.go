package diagnostics

import (
	"testing"
	"time"

	"github.com/hashtrails/trailscan/internal/event"
)

func TestFillRates(t *testing.T) {
	events := []event.PreResolutionEvent{
		{Date: "2026-02-19", GroupTag: "A", Title: "one", Location: "x", RunNumber: 1, StartTime: "19:00", PeopleText: "alice"},
		{Date: "2026-02-26", GroupTag: "A", Title: "two", Location: "y"},
		{Date: "2026-03-05", GroupTag: "A", Title: "three"},
		{Date: "2026-03-12", GroupTag: "A"},
	}
	rates := FillRates(events)

	want := map[string]float64{
		"title":     75,
		"location":  50,
		"people":    25,
		"startTime": 25,
		"runNumber": 25,
	}
	for field, w := range want {
		if rates[field] != w {
			t.Errorf("rates[%q] = %g, want %g", field, rates[field], w)
		}
	}
}

func TestFillRatesEmptyBatch(t *testing.T) {
	rates := FillRates(nil)
	for _, f := range TrackedFields {
		if rates[f] != 0 {
			t.Errorf("rates[%q] = %g, want 0", f, rates[f])
		}
	}
}

func TestClassify(t *testing.T) {
	now := time.Date(2026, 2, 24, 0, 0, 0, 0, time.UTC)
	cadence := 8 * 24 * time.Hour
	recent := now.Add(-24 * time.Hour)

	flat := func(v float64) map[string]float64 {
		m := make(map[string]float64)
		for _, f := range TrackedFields {
			m[f] = v
		}
		return m
	}

	tests := []struct {
		name        string
		rates       map[string]float64
		lastSuccess time.Time
		want        Health
	}{
		{"healthy above 90", flat(95), recent, HealthHealthy},
		{"degraded at 90", flat(90), recent, HealthDegraded},
		{"degraded at 70", flat(70), recent, HealthDegraded},
		{"failing below 70", flat(60), recent, HealthFailing},
		{"stale beats good rates", flat(100), now.Add(-9 * 24 * time.Hour), HealthStale},
		{"never succeeded is stale", flat(100), time.Time{}, HealthStale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.rates, tt.lastSuccess, cadence, now); got != tt.want {
				t.Errorf("Classify = %s, want %s", got, tt.want)
			}
		})
	}
}
