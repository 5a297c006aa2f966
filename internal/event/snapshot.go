package event

import "sort"

// Snapshot is the set of events seen for one source on a previous run,
// keyed by the deterministic event ID, with a content digest per event so
// a re-scrape can tell "same trail, edited details" from "nothing new".
type Snapshot struct {
	Events    map[string]string `json:"events"` // event ID → content key
	UpdatedAt string            `json:"updated_at"`
}

// NewSnapshot creates an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{Events: make(map[string]string)}
}

// Accounting is the run-over-run reconciliation a persistence
// collaborator expects alongside the extracted events.
type Accounting struct {
	Found   int `json:"events_found"`
	Created int `json:"events_created"`
	Updated int `json:"events_updated"`
	Skipped int `json:"events_skipped"`
}

// Reconcile compares freshly extracted events against the previous
// snapshot and returns the accounting plus the snapshot for this run.
// Events never seen before count as created; known events whose content
// digest changed count as updated; unchanged events count as skipped.
func Reconcile(previous *Snapshot, current []PreResolutionEvent) (Accounting, *Snapshot) {
	if previous == nil {
		previous = NewSnapshot()
	}

	next := NewSnapshot()
	acct := Accounting{Found: len(current)}

	for i := range current {
		id := current[i].ID()
		key := current[i].ContentKey()
		next.Events[id] = key

		prevKey, seen := previous.Events[id]
		switch {
		case !seen:
			acct.Created++
		case prevKey != key:
			acct.Updated++
		default:
			acct.Skipped++
		}
	}
	return acct, next
}

// SortByDate orders events by date, then group tag, then run number, for
// stable output across runs.
func SortByDate(events []PreResolutionEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		if events[i].GroupTag != events[j].GroupTag {
			return events[i].GroupTag < events[j].GroupTag
		}
		return events[i].RunNumber < events[j].RunNumber
	})
}
