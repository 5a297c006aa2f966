package adapter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hashtrails/trailscan/internal/config"
	"github.com/hashtrails/trailscan/internal/event"
	"github.com/hashtrails/trailscan/internal/scraper"
)

// Recurring synthesizes events from a recurrence rule instead of
// scraping anything. Some groups never publish individual announcements
// because the run is always the same slot ("every Tuesday at 19:00");
// for those the registry entry itself is the source of truth.
type Recurring struct{}

// NewRecurring creates the adapter.
func NewRecurring() *Recurring { return &Recurring{} }

// Name implements scraper.Adapter.
func (a *Recurring) Name() string { return "recurring" }

// Fetch implements scraper.Adapter. It touches no network: occurrences
// are expanded from the anchor date out to the run's day horizon.
func (a *Recurring) Fetch(ctx context.Context, src config.Source, opts scraper.Options) *scraper.Result {
	res := scraper.NewResult(src.Name)
	res.DiagnosticContext["fetch_method"] = "synthetic"

	rule, err := parseRecurrence(src.Config.RecurrenceRule)
	if err != nil {
		res.Errors = append(res.Errors, "config: "+err.Error())
		return res
	}
	anchor, err := time.Parse("2006-01-02", src.Config.AnchorDate)
	if err != nil {
		res.Errors = append(res.Errors, "config: parsing anchor_date: "+err.Error())
		return res
	}

	ref := opts.Ref()
	horizon := ref.AddDate(0, 0, opts.Days)
	for _, day := range rule.expand(anchor, ref, horizon) {
		ev := event.PreResolutionEvent{
			Date:      day.Format("2006-01-02"),
			GroupTag:  src.Config.GroupTag,
			StartTime: src.Config.StartTime,
			SourceURL: src.URL,
		}
		if src.Name != "" {
			ev.Title = src.Name
		}
		res.Events = append(res.Events, ev)
	}
	return res
}

// recurrence is a small, closed subset of RRULE: FREQ plus optional
// BYDAY and INTERVAL. Anything richer belongs in a real calendar feed.
type recurrence struct {
	freq     string // DAILY, WEEKLY, BIWEEKLY, MONTHLY
	interval int
	byDay    []time.Weekday
}

var weekdayNames = map[string]time.Weekday{
	"SU": time.Sunday, "MO": time.Monday, "TU": time.Tuesday,
	"WE": time.Wednesday, "TH": time.Thursday, "FR": time.Friday,
	"SA": time.Saturday,
}

func parseRecurrence(raw string) (*recurrence, error) {
	r := &recurrence{interval: 1}
	for _, part := range strings.Split(raw, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return nil, fmt.Errorf("parsing recurrence rule: malformed part %q", part)
		}
		switch strings.ToUpper(key) {
		case "FREQ":
			r.freq = strings.ToUpper(value)
		case "INTERVAL":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("parsing recurrence rule: bad INTERVAL %q", value)
			}
			r.interval = n
		case "BYDAY":
			for _, name := range strings.Split(value, ",") {
				wd, ok := weekdayNames[strings.ToUpper(strings.TrimSpace(name))]
				if !ok {
					return nil, fmt.Errorf("parsing recurrence rule: unknown BYDAY value %q", name)
				}
				r.byDay = append(r.byDay, wd)
			}
		}
	}
	switch r.freq {
	case "DAILY", "WEEKLY", "MONTHLY":
	case "BIWEEKLY":
		r.freq = "WEEKLY"
		r.interval *= 2
	default:
		return nil, fmt.Errorf("parsing recurrence rule: unsupported FREQ %q", r.freq)
	}
	return r, nil
}

// expand lists occurrence days in [from, to], stepping from anchor so
// that biweekly cadences stay phase-locked to the anchor date.
func (r *recurrence) expand(anchor, from, to time.Time) []time.Time {
	anchor = truncateDay(anchor)
	from = truncateDay(from)
	to = truncateDay(to)

	var out []time.Time
	switch r.freq {
	case "DAILY":
		for d := anchor; !d.After(to); d = d.AddDate(0, 0, r.interval) {
			if !d.Before(from) {
				out = append(out, d)
			}
		}
	case "WEEKLY":
		days := r.byDay
		if len(days) == 0 {
			days = []time.Weekday{anchor.Weekday()}
		}
		// Walk week by week from the anchor's week start.
		weekStart := anchor.AddDate(0, 0, -int(anchor.Weekday()))
		for w := weekStart; !w.After(to); w = w.AddDate(0, 0, 7*r.interval) {
			for _, wd := range days {
				d := w.AddDate(0, 0, int(wd))
				if d.Before(anchor) || d.Before(from) || d.After(to) {
					continue
				}
				out = append(out, d)
			}
		}
	case "MONTHLY":
		for d := anchor; !d.After(to); d = addMonthsClamped(d, r.interval, anchor.Day()) {
			if !d.Before(from) {
				out = append(out, d)
			}
		}
	}
	return out
}

// addMonthsClamped advances by months keeping the anchor's day of month
// where it exists, clamping to the month's last day otherwise (a run
// anchored on the 31st happens on the 30th in shorter months, not the
// 1st of the next).
func addMonthsClamped(d time.Time, months, wantDay int) time.Time {
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location()).AddDate(0, months, 0)
	last := first.AddDate(0, 1, -1).Day()
	day := wantDay
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, d.Location())
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
