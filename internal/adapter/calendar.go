package adapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashtrails/trailscan/internal/config"
	"github.com/hashtrails/trailscan/internal/event"
	"github.com/hashtrails/trailscan/internal/extract"
	"github.com/hashtrails/trailscan/internal/scraper"
)

// Calendar ingests an iCalendar feed. Several kennels keep a shared
// Google Calendar instead of a website; the feed's SUMMARY lines carry
// the same free-text conventions as blog titles, so group classification
// runs through the configured pattern matcher.
type Calendar struct {
	Client *scraper.Client
}

// NewCalendar creates the adapter.
func NewCalendar(client *scraper.Client) *Calendar {
	return &Calendar{Client: client}
}

// Name implements scraper.Adapter.
func (a *Calendar) Name() string { return "calendar" }

// Fetch implements scraper.Adapter.
func (a *Calendar) Fetch(ctx context.Context, src config.Source, opts scraper.Options) *scraper.Result {
	res := scraper.NewResult(src.Name)

	matcher, err := extract.NewMatcher(&src.Config)
	if err != nil {
		res.Errors = append(res.Errors, "config: "+err.Error())
		return res
	}

	body, err := a.Client.Get(ctx, src.URL)
	if err != nil {
		status := 0
		if se, ok := err.(*scraper.StatusError); ok {
			status = se.Status
		}
		res.AddFetchError(src.URL, status, err)
		return res
	}
	res.DiagnosticContext["fetch_method"] = "ics"

	blocks := splitVEvents(string(body))
	res.DiagnosticContext["vevents_scanned"] = len(blocks)

	for i, block := range blocks {
		ev, err := parseVEvent(block)
		if err != nil {
			res.AddParseError(fmt.Sprintf("vevent %d", i), extract.Truncate(block), err)
			continue
		}

		probe := ev.Title
		if ev.Description != "" {
			probe += "\n" + ev.Description
		}
		if matcher.Skip(probe) || beyondHorizon(ev.Date, opts) {
			continue
		}

		tag, _ := matcher.GroupTag(probe)
		ev.GroupTag = tag
		if n, ok := extract.RunNumber(ev.Title); ok {
			ev.RunNumber = n
		}
		if ev.SourceURL == "" {
			ev.SourceURL = src.URL
		}
		res.Events = append(res.Events, *ev)
	}
	return res
}

// splitVEvents unfolds the feed (RFC 5545 long lines continue with a
// leading space or tab) and returns each BEGIN:VEVENT..END:VEVENT block.
func splitVEvents(ics string) []string {
	ics = strings.ReplaceAll(ics, "\r\n", "\n")
	ics = strings.ReplaceAll(ics, "\n ", "")
	ics = strings.ReplaceAll(ics, "\n\t", "")

	var blocks []string
	for {
		start := strings.Index(ics, "BEGIN:VEVENT")
		if start < 0 {
			break
		}
		end := strings.Index(ics[start:], "END:VEVENT")
		if end < 0 {
			break
		}
		blocks = append(blocks, ics[start:start+end])
		ics = ics[start+end+len("END:VEVENT"):]
	}
	return blocks
}

// parseVEvent extracts one event block. DTSTART is required; an event
// without a parsable start is a per-record parse error, not a batch
// failure.
func parseVEvent(block string) (*event.PreResolutionEvent, error) {
	ev := &event.PreResolutionEvent{}

	for _, line := range strings.Split(block, "\n") {
		name, value, ok := splitICSLine(line)
		if !ok {
			continue
		}
		switch name {
		case "DTSTART":
			date, clock, err := parseICSTime(value)
			if err != nil {
				return nil, fmt.Errorf("parsing DTSTART: %w", err)
			}
			ev.Date = date
			if clock != "" {
				ev.StartTime = clock
			}
		case "SUMMARY":
			ev.Title = unescapeICS(value)
		case "DESCRIPTION":
			ev.Description = unescapeICS(value)
		case "LOCATION":
			ev.Location = unescapeICS(value)
		case "URL":
			ev.SourceURL = value
		}
	}

	if ev.Date == "" {
		return nil, fmt.Errorf("event block has no DTSTART")
	}
	return ev, nil
}

// splitICSLine separates "NAME;PARAM=X:value" into name and value.
func splitICSLine(line string) (name, value string, ok bool) {
	colon := strings.Index(line, ":")
	if colon < 0 {
		return "", "", false
	}
	name = line[:colon]
	value = line[colon+1:]
	if semi := strings.Index(name, ";"); semi >= 0 {
		name = name[:semi]
	}
	return strings.ToUpper(strings.TrimSpace(name)), strings.TrimSpace(value), true
}

// parseICSTime handles the two DTSTART shapes the feeds use: all-day
// dates (20260219) and timestamps (20260219T140000, optionally Z).
func parseICSTime(value string) (date, clock string, err error) {
	value = strings.TrimSuffix(value, "Z")
	if t, perr := time.Parse("20060102T150405", value); perr == nil {
		return t.Format("2006-01-02"), t.Format("15:04"), nil
	}
	if t, perr := time.Parse("20060102", value); perr == nil {
		return t.Format("2006-01-02"), "", nil
	}
	return "", "", fmt.Errorf("unrecognized time %q", value)
}

// unescapeICS reverses RFC 5545 text escaping.
func unescapeICS(value string) string {
	r := strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)
	return r.Replace(value)
}
