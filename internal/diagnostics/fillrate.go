// Package diagnostics computes per-field fill rates and classifies
// source health. Fill rates serve two audiences: the live configuration
// preview (an operator judging a candidate config before saving it) and
// the historical per-run record that health scoring runs on.
package diagnostics

import (
	"time"

	"github.com/hashtrails/trailscan/internal/event"
)

// TrackedFields is the fixed set of optional fields fill rates cover.
// Date and group tag are required, so they carry no signal here.
var TrackedFields = []string{"title", "location", "people", "startTime", "runNumber"}

// FillRates computes the percentage (0–100) of events with each tracked
// optional field populated. An empty batch reports zero across the board.
func FillRates(events []event.PreResolutionEvent) map[string]float64 {
	rates := make(map[string]float64, len(TrackedFields))
	for _, f := range TrackedFields {
		rates[f] = 0
	}
	if len(events) == 0 {
		return rates
	}

	counts := make(map[string]int, len(TrackedFields))
	for i := range events {
		e := &events[i]
		if e.Title != "" {
			counts["title"]++
		}
		if e.Location != "" {
			counts["location"]++
		}
		if e.PeopleText != "" {
			counts["people"]++
		}
		if e.StartTime != "" {
			counts["startTime"]++
		}
		if e.HasRunNumber() {
			counts["runNumber"]++
		}
	}
	for _, f := range TrackedFields {
		rates[f] = 100 * float64(counts[f]) / float64(len(events))
	}
	return rates
}

// Health is the four-level source health classification.
type Health string

const (
	HealthHealthy  Health = "healthy"  // average fill rate above 90%
	HealthDegraded Health = "degraded" // 70–90%
	HealthFailing  Health = "failing"  // below 70%
	HealthStale    Health = "stale"    // no successful run within the expected cadence
)

// Classify scores a source from its latest fill rates and the time of its
// last successful run. Staleness wins over every rate-based level: a
// source that stopped producing runs is stale no matter how good its last
// numbers were. Health is independent of whether the run reported hard
// errors.
func Classify(rates map[string]float64, lastSuccess time.Time, cadence time.Duration, now time.Time) Health {
	if lastSuccess.IsZero() || now.Sub(lastSuccess) > cadence {
		return HealthStale
	}

	var sum float64
	for _, f := range TrackedFields {
		sum += rates[f]
	}
	avg := sum / float64(len(TrackedFields))

	switch {
	case avg > 90:
		return HealthHealthy
	case avg >= 70:
		return HealthDegraded
	default:
		return HealthFailing
	}
}
