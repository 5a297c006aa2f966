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

// Signup scrapes registration platforms that publish one listing page
// per group. Each configured slug is fetched independently; a slug
// whose page fails to fetch or parse records its errors and the batch
// moves on, so one broken group page never costs the others.
type Signup struct {
	Client *scraper.Client

	// PageURL builds the listing URL for one slug. Defaults to
	// appending the slug to the source URL.
	PageURL func(baseURL, slug string) string
}

// NewSignup creates the adapter.
func NewSignup(client *scraper.Client) *Signup {
	return &Signup{Client: client}
}

// Name implements scraper.Adapter.
func (a *Signup) Name() string { return "signup" }

// Fetch implements scraper.Adapter.
func (a *Signup) Fetch(ctx context.Context, src config.Source, opts scraper.Options) *scraper.Result {
	res := scraper.NewResult(src.Name)
	pageURL := a.PageURL
	if pageURL == nil {
		pageURL = func(base, slug string) string {
			base = strings.TrimRight(base, "/")
			// group_url_name is the platform's path namespace for the
			// organization, when it has one.
			if n := src.Config.GroupURLName; n != "" {
				base += "/" + n
			}
			return base + "/" + slug
		}
	}

	fetched := 0
	for _, slug := range src.Config.GroupSlugs {
		if ctx.Err() != nil {
			res.Errors = append(res.Errors, "fetch: "+ctx.Err().Error())
			break
		}
		u := pageURL(src.URL, slug)
		body, err := a.Client.Get(ctx, u)
		if err != nil {
			status := 0
			if se, ok := err.(*scraper.StatusError); ok {
				status = se.Status
			}
			res.AddFetchError(u, status, err)
			continue
		}
		fetched++
		if res.StructureHash == "" {
			// Slug pages share a template; the first one stands in for
			// the platform's layout.
			res.StructureHash = drift.Fingerprint(string(body))
		}
		a.extractGroupPage(res, body, slug, u, src, opts)
	}
	res.DiagnosticContext["slugs_fetched"] = fetched
	return res
}

// extractGroupPage pulls the event cards off one group's listing page.
// The group tag comes from the slug itself (optionally remapped by
// group_tag_rules), not from page text, because signup platforms title
// events freely.
func (a *Signup) extractGroupPage(res *scraper.Result, body []byte, slug, pageURL string, src config.Source, opts scraper.Options) {
	tag := slug
	if mapped, ok := src.Config.GroupTagRules[strings.ToLower(slug)]; ok {
		tag = mapped
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		res.AddParseError(slug, extract.Truncate(string(body)), fmt.Errorf("parsing page: %w", err))
		return
	}

	cards := doc.Find(".event-card, .event, article, li")
	cards.Each(func(i int, sel *goquery.Selection) {
		text := htmltext.Decode(strings.TrimSpace(sel.Text()))
		if text == "" {
			return
		}
		iso, _, end, ok := event.FindDate(text, opts.Ref())
		if !ok || beyondHorizon(iso, opts) {
			return
		}
		ev := event.PreResolutionEvent{
			Date:      iso,
			GroupTag:  tag,
			SourceURL: pageURL,
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
			ev.SourceURL = absoluteURL(pageURL, href)
		}
		res.Events = append(res.Events, ev)
	})
}
