package adapter

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hashtrails/trailscan/internal/config"
	"github.com/hashtrails/trailscan/internal/drift"
	"github.com/hashtrails/trailscan/internal/event"
	"github.com/hashtrails/trailscan/internal/extract"
	"github.com/hashtrails/trailscan/internal/htmltext"
	"github.com/hashtrails/trailscan/internal/scraper"
)

// DCH4 scrapes kennels that publish a single schedule page of terse
// one-line listings: "DCH4 Trail# 2298 - 2/7/26 @ 2pm - somewhere".
// The site has moved between hosts and never redirects, so the fetch
// tries protocol/host variants in sequence. Past and future schedule
// tables are fetched from the same page but extracted independently, so
// a broken one does not hide the other.
type DCH4 struct {
	Client *scraper.Client
}

// NewDCH4 creates the adapter.
func NewDCH4(client *scraper.Client) *DCH4 {
	return &DCH4{Client: client}
}

// Name implements scraper.Adapter.
func (a *DCH4) Name() string { return "dch4" }

// Fetch implements scraper.Adapter.
func (a *DCH4) Fetch(ctx context.Context, src config.Source, opts scraper.Options) *scraper.Result {
	res := scraper.NewResult(src.Name)

	var strategies []scraper.Strategy
	for _, variant := range hostVariants(src.URL) {
		variant := variant
		strategies = append(strategies, scraper.Strategy{
			Name: variant,
			Run: func(ctx context.Context) ([]byte, error) {
				return a.Client.Get(ctx, variant)
			},
		})
	}

	body, used, attempts, err := scraper.RunChain(ctx, strategies)
	res.DiagnosticContext["fetch_attempts"] = attempts
	if err != nil {
		for _, at := range attempts {
			res.AddFetchError(at.Strategy, 0, fmt.Errorf("%s", at.Err))
		}
		return res
	}
	res.DiagnosticContext["fetch_method"] = used
	res.StructureHash = drift.Fingerprint(string(body))

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		res.AddParseError("page", extract.Truncate(string(body)), fmt.Errorf("parsing page: %w", err))
		return res
	}

	// Upcoming and past tables are independent sub-extractions.
	for _, section := range []string{"#upcoming", "#past"} {
		a.extractTable(res, doc, section, src, opts)
	}
	// Fall back to a whole-page line scan when neither table anchor
	// exists; older revisions of these sites are one big <pre>.
	if len(res.Events) == 0 {
		a.extractLines(res, string(body), "page", src, opts)
	}
	return res
}

// extractTable extracts one schedule table, isolating its failures from
// the other table's.
func (a *DCH4) extractTable(res *scraper.Result, doc *goquery.Document, section string, src config.Source, opts scraper.Options) {
	table := doc.Find(section)
	if table.Length() == 0 {
		return
	}
	rows := 0
	table.Find("tr, li").Each(func(i int, sel *goquery.Selection) {
		rows++
		line := htmltext.Decode(strings.TrimSpace(sel.Text()))
		if line == "" {
			return
		}
		ev, err := ParseDCH4Line(line, opts.Ref())
		if err != nil {
			res.AddParseError(fmt.Sprintf("%s row %d", section, i), extract.Truncate(line), err)
			return
		}
		if ev == nil {
			return // not a listing row
		}
		if beyondHorizon(ev.Date, opts) {
			return
		}
		ev.SourceURL = src.URL
		res.Events = append(res.Events, *ev)
	})
	res.DiagnosticContext["rows_scanned_"+strings.TrimPrefix(section, "#")] = rows
}

// extractLines scans raw markup line by line, normalizing each line on
// its own so source newlines survive as listing boundaries.
func (a *DCH4) extractLines(res *scraper.Result, text, section string, src config.Source, opts scraper.Options) {
	rows := 0
	for i, line := range strings.Split(text, "\n") {
		line = htmltext.Decode(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		rows++
		ev, err := ParseDCH4Line(line, opts.Ref())
		if err != nil {
			res.AddParseError(fmt.Sprintf("%s line %d", section, i), extract.Truncate(line), err)
			continue
		}
		if ev == nil {
			continue
		}
		if beyondHorizon(ev.Date, opts) {
			continue
		}
		ev.SourceURL = src.URL
		res.Events = append(res.Events, *ev)
	}
	res.DiagnosticContext["rows_scanned"] = rows
}

// ParseDCH4Line applies the listing grammar: group tag, "Trail# NNNN",
// a numeric or named date, an optional "@ time", and an optional
// trailing location. A line that carries neither a run-number marker nor
// a date is not a listing (nil, nil); a line that looks like a listing
// but has an unparsable date is a parse error.
func ParseDCH4Line(line string, ref time.Time) (*event.PreResolutionEvent, error) {
	runNum, hasRun := extract.RunNumber(line)
	iso, start, end, hasDate := event.FindDate(line, ref)

	if !hasRun {
		return nil, nil
	}
	if !hasDate {
		return nil, fmt.Errorf("listing row has no recognizable date")
	}

	ev := &event.PreResolutionEvent{
		Date:      iso,
		RunNumber: runNum,
	}

	// Group tag: leading token of the line.
	head := strings.TrimSpace(line[:start])
	if fields := strings.Fields(head); len(fields) > 0 {
		ev.GroupTag = strings.Trim(fields[0], ":#-")
	}

	tail := line[end:]
	if clock, ok := event.ParseClock(tail); ok {
		ev.StartTime = clock
	}
	// Location is whatever follows the time marker, if anything.
	if idx := strings.LastIndex(tail, " - "); idx >= 0 {
		if loc := strings.TrimSpace(tail[idx+3:]); loc != "" {
			ev.Location = loc
		}
	}
	return ev, nil
}

// hostVariants expands a URL into the protocol/host fallback sequence:
// as configured, then https with and without www, then plain http.
func hostVariants(rawURL string) []string {
	seen := map[string]bool{rawURL: true}
	out := []string{rawURL}

	add := func(u string) {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}

	stripped := strings.TrimPrefix(strings.TrimPrefix(rawURL, "https://"), "http://")
	bare := strings.TrimPrefix(stripped, "www.")
	add("https://" + bare)
	add("https://www." + bare)
	add("http://" + bare)
	return out
}
