package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
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

// ewh3Labels is the body grammar for EWH3-style announcement posts.
var ewh3Labels = extract.NewLabelSet([]extract.Label{
	{Field: "hares", Aliases: []string{"Hares", "Hare", "Hared by"}},
	{Field: "onafter", Aliases: []string{"On-After", "On After", "OnAfter"}},
	{Field: "start", Aliases: []string{"Start", "Start Time", "Meet"}},
	{Field: "station", Aliases: []string{"Metro", "Closest Metro", "Station"}},
})

// "NoMa/Gallaudet U (Red Line)" → station, lines
var stationLinesRe = regexp.MustCompile(`^(.*?)\s*\(([^)]+)\)$`)

// EWH3 scrapes kennels that publish on an EWH3-style WordPress blog:
// each run is one post, the title carries "GROUP #run: name, date,
// station (lines)", the body carries labeled fields. The WordPress REST
// API is tried first because it returns clean per-post JSON; the full
// HTML page is the fallback when the API is disabled.
type EWH3 struct {
	Client *scraper.Client
}

// NewEWH3 creates the adapter.
func NewEWH3(client *scraper.Client) *EWH3 {
	return &EWH3{Client: client}
}

// Name implements scraper.Adapter.
func (a *EWH3) Name() string { return "ewh3" }

// wpPost is the subset of the WordPress REST post object the extractor
// reads.
type wpPost struct {
	Link  string `json:"link"`
	Title struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
	Content struct {
		Rendered string `json:"rendered"`
	} `json:"content"`
}

// Fetch implements scraper.Adapter.
func (a *EWH3) Fetch(ctx context.Context, src config.Source, opts scraper.Options) *scraper.Result {
	res := scraper.NewResult(src.Name)

	apiURL := strings.TrimRight(src.URL, "/") + "/wp-json/wp/v2/posts?per_page=20"
	strategies := []scraper.Strategy{
		{Name: "wp-api", Run: func(ctx context.Context) ([]byte, error) {
			return a.Client.Get(ctx, apiURL)
		}},
		{Name: "html", Run: func(ctx context.Context) ([]byte, error) {
			return a.Client.Get(ctx, src.URL)
		}},
	}

	body, used, attempts, err := scraper.RunChain(ctx, strategies)
	res.DiagnosticContext["fetch_attempts"] = attempts
	if err != nil {
		for _, at := range attempts {
			res.AddFetchError(src.URL, 0, fmt.Errorf("%s: %s", at.Strategy, at.Err))
		}
		return res
	}
	res.DiagnosticContext["fetch_method"] = used

	switch used {
	case "wp-api":
		a.extractAPI(res, body, opts)
	default:
		res.StructureHash = drift.Fingerprint(string(body))
		a.extractHTML(res, body, src, opts)
	}
	return res
}

// extractAPI walks the REST post list; each post is isolated so one
// malformed post costs one parse error, not the batch.
func (a *EWH3) extractAPI(res *scraper.Result, body []byte, opts scraper.Options) {
	var posts []wpPost
	if err := json.Unmarshal(body, &posts); err != nil {
		res.AddParseError("wp-api", extract.Truncate(string(body)), fmt.Errorf("decoding post list: %w", err))
		return
	}
	res.DiagnosticContext["posts_scanned"] = len(posts)

	for _, p := range posts {
		title := htmltext.Decode(p.Title.Rendered)
		parsed, ok := ParseEWH3Title(title, opts.Ref())
		if !ok {
			// Blogs mix announcements with administrative posts;
			// titles with no date are skipped silently.
			continue
		}
		if beyondHorizon(parsed.Date, opts) {
			continue
		}
		ev := parsed.Event()
		applyEWH3Body(&ev, p.Content.Rendered)
		if ev.SourceURL == "" {
			ev.SourceURL = p.Link
		}
		res.Events = append(res.Events, ev)
	}
}

// extractHTML handles the fallback full-page fetch: each article element
// is one post.
func (a *EWH3) extractHTML(res *scraper.Result, body []byte, src config.Source, opts scraper.Options) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		res.AddParseError("html", extract.Truncate(string(body)), fmt.Errorf("parsing page: %w", err))
		return
	}

	posts := doc.Find("article")
	if posts.Length() == 0 {
		posts = doc.Find(".post")
	}
	res.DiagnosticContext["posts_scanned"] = posts.Length()

	posts.Each(func(i int, sel *goquery.Selection) {
		titleSel := sel.Find(".entry-title, h1, h2").First()
		title := htmltext.Decode(strings.TrimSpace(titleSel.Text()))
		if title == "" {
			res.AddParseError(fmt.Sprintf("post %d", i), extract.Truncate(sel.Text()), fmt.Errorf("no title element"))
			return
		}
		parsed, ok := ParseEWH3Title(title, opts.Ref())
		if !ok || beyondHorizon(parsed.Date, opts) {
			return
		}
		ev := parsed.Event()
		bodyHTML, _ := sel.Find(".entry-content").First().Html()
		applyEWH3Body(&ev, bodyHTML)
		if href, ok := titleSel.Find("a").Attr("href"); ok {
			ev.SourceURL = absoluteURL(src.URL, href)
		}
		res.Events = append(res.Events, ev)
	})
}

// EWH3Title is a parsed announcement title.
type EWH3Title struct {
	GroupTag  string
	RunNumber float64
	Name      string
	Date      string // ISO
	Location  string
	Lines     string
	StartTime string
}

// ParseEWH3Title applies the title grammar: optional "#1506" run number
// (half-integers mark supplementary runs), a free-text name, a date
// expression, and a trailing "station (lines)" qualifier. The title is
// split around the located date span, so names containing commas
// survive. A title with no recognizable date is not an announcement.
func ParseEWH3Title(title string, ref time.Time) (EWH3Title, bool) {
	var t EWH3Title

	iso, start, end, ok := event.FindDate(title, ref)
	if !ok {
		return t, false
	}
	t.Date = iso

	head := strings.TrimSpace(title[:start])
	tail := strings.Trim(strings.TrimSpace(title[end:]), ",– -")

	if n, ok := extract.RunNumber(head); ok {
		t.RunNumber = n
	}

	// Group tag is the leading token, before any run number or colon.
	if fields := strings.FieldsFunc(head, func(r rune) bool { return r == ' ' || r == '#' || r == ':' }); len(fields) > 0 {
		t.GroupTag = fields[0]
	}

	// Name sits between the colon (after the run number) and the date.
	if idx := strings.Index(head, ":"); idx >= 0 {
		t.Name = strings.Trim(strings.TrimSpace(head[idx+1:]), ",– -")
	} else if t.RunNumber == 0 {
		// Numberless secondary form: "GROUP name, date, ...".
		rest := strings.TrimSpace(strings.TrimPrefix(head, t.GroupTag))
		t.Name = strings.Trim(rest, ",– -")
	}

	// Trailing qualifier: "NoMa/Gallaudet U (Red Line)" → station + lines.
	if m := stationLinesRe.FindStringSubmatch(tail); m != nil {
		t.Location = strings.TrimSpace(m[1])
		t.Lines = strings.TrimSpace(m[2])
	} else if tail != "" {
		t.Location = tail
	}

	if clock, ok := event.ParseClock(title[end:]); ok {
		t.StartTime = clock
	}
	return t, true
}

// Event converts a parsed title into the canonical pre-resolution shape.
func (t EWH3Title) Event() event.PreResolutionEvent {
	ev := event.PreResolutionEvent{
		Date:      t.Date,
		GroupTag:  t.GroupTag,
		RunNumber: t.RunNumber,
		Title:     t.Name,
		Location:  t.Location,
		StartTime: t.StartTime,
	}
	if t.Lines != "" {
		ev.Description = "Lines: " + t.Lines
	}
	return ev
}

// applyEWH3Body runs the label-anchored body grammar over the post
// content.
func applyEWH3Body(ev *event.PreResolutionEvent, rawHTML string) {
	if rawHTML == "" {
		return
	}
	text := htmltext.Decode(rawHTML)
	fields := ewh3Labels.Extract(text)
	if v, ok := fields["hares"]; ok {
		ev.PeopleText = v
	}
	if v, ok := fields["onafter"]; ok {
		if ev.Description != "" {
			ev.Description += "; "
		}
		ev.Description += "On-after: " + v
	}
	if ev.StartTime == "" {
		if v, ok := fields["start"]; ok {
			if clock, ok := event.ParseClock(v); ok {
				ev.StartTime = clock
			}
		}
	}
	if ev.Location == "" {
		if v, ok := fields["station"]; ok {
			ev.Location = v
		}
	}
}

// beyondHorizon reports whether a date falls past the run's day bound.
// Days <= 0 means unbounded.
func beyondHorizon(date string, opts scraper.Options) bool {
	if opts.Days <= 0 {
		return false
	}
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return false
	}
	return d.After(opts.Ref().AddDate(0, 0, opts.Days))
}

// absoluteURL resolves a possibly-relative href against the source page.
func absoluteURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}
