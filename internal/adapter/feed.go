package adapter

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hashtrails/trailscan/internal/config"
	"github.com/hashtrails/trailscan/internal/drift"
	"github.com/hashtrails/trailscan/internal/event"
	"github.com/hashtrails/trailscan/internal/extract"
	"github.com/hashtrails/trailscan/internal/htmltext"
	"github.com/hashtrails/trailscan/internal/scraper"
)

// Feed is the catch-all config-driven adapter for sites with no
// dedicated extractor: it pulls the page's candidate item elements,
// flattens each to text, and leans entirely on the configured skip and
// group patterns plus the shared date grammar. Extraction quality
// depends on the operator's config, and the fill-rate diagnostics
// exist to make that visible.
type Feed struct {
	Client *scraper.Client
}

// NewFeed creates the adapter.
func NewFeed(client *scraper.Client) *Feed {
	return &Feed{Client: client}
}

// Name implements scraper.Adapter.
func (a *Feed) Name() string { return "feed" }

// Fetch implements scraper.Adapter.
func (a *Feed) Fetch(ctx context.Context, src config.Source, opts scraper.Options) *scraper.Result {
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
	res.DiagnosticContext["fetch_method"] = "html"
	res.StructureHash = drift.Fingerprint(string(body))

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		res.AddParseError("page", extract.Truncate(string(body)), fmt.Errorf("parsing page: %w", err))
		return res
	}

	items := doc.Find("article, .event, li")
	res.DiagnosticContext["items_scanned"] = items.Length()

	items.Each(func(i int, sel *goquery.Selection) {
		text := htmltext.Decode(strings.TrimSpace(sel.Text()))
		if text == "" || matcher.Skip(text) {
			return
		}

		iso, _, end, ok := event.FindDate(text, opts.Ref())
		if !ok {
			return // prose without a date is not an announcement
		}
		if beyondHorizon(iso, opts) {
			return
		}

		tag, matched := matcher.GroupTag(text)
		if tag == "" && !matched {
			res.AddParseError(fmt.Sprintf("item %d", i), extract.Truncate(text), fmt.Errorf("no group pattern matched and no default tag"))
			return
		}

		ev := event.PreResolutionEvent{
			Date:      iso,
			GroupTag:  tag,
			SourceURL: src.URL,
		}
		if n, ok := extract.RunNumber(text); ok {
			ev.RunNumber = n
		}
		if clock, ok := event.ParseClock(text[end:]); ok {
			ev.StartTime = clock
		}
		if title := firstSentence(text); title != "" {
			ev.Title = title
		}
		if href, ok := sel.Find("a").Attr("href"); ok {
			ev.SourceURL = absoluteURL(src.URL, href)
		}
		res.Events = append(res.Events, ev)
	})
	return res
}

// firstSentence clips a display title out of flattened item text.
func firstSentence(text string) string {
	for _, sep := range []string{". ", " | ", " — "} {
		if idx := strings.Index(text, sep); idx > 0 && idx < 120 {
			return strings.TrimSpace(text[:idx])
		}
	}
	if len(text) > 120 {
		return strings.TrimSpace(text[:120])
	}
	return text
}
