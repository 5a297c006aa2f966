package adapter

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/hashtrails/trailscan/internal/config"
	"github.com/hashtrails/trailscan/internal/event"
	"github.com/hashtrails/trailscan/internal/extract"
	"github.com/hashtrails/trailscan/internal/scraper"
)

// Sheet ingests a published spreadsheet via its CSV export. The column
// map in the source config names which column holds which field; group
// tags come either from a mapped column plus the group-tag rules, or
// from the configured default.
type Sheet struct {
	Client *scraper.Client

	// ExportURL builds the CSV export URL from a sheet ID. Overridable
	// in tests.
	ExportURL func(sheetID string) string
}

// NewSheet creates the adapter.
func NewSheet(client *scraper.Client) *Sheet {
	return &Sheet{
		Client: client,
		ExportURL: func(sheetID string) string {
			return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv", sheetID)
		},
	}
}

// Name implements scraper.Adapter.
func (a *Sheet) Name() string { return "sheet" }

// Fetch implements scraper.Adapter.
func (a *Sheet) Fetch(ctx context.Context, src config.Source, opts scraper.Options) *scraper.Result {
	res := scraper.NewResult(src.Name)

	url := a.ExportURL(src.Config.SheetID)
	body, err := a.Client.Get(ctx, url)
	if err != nil {
		status := 0
		if se, ok := err.(*scraper.StatusError); ok {
			status = se.Status
		}
		res.AddFetchError(url, status, err)
		return res
	}
	res.DiagnosticContext["fetch_method"] = "csv-export"

	// One mangled row must not abort the sheet: FieldsPerRecord -1
	// tolerates ragged rows and per-row parsing catches the rest.
	reader := csv.NewReader(strings.NewReader(string(body)))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		res.AddParseError("csv", extract.Truncate(string(body)), fmt.Errorf("reading csv: %w", err))
		return res
	}
	res.DiagnosticContext["rows_scanned"] = len(rows)

	for i, row := range rows {
		if i == 0 && looksLikeHeader(row, src.Config.ColumnMap) {
			continue
		}
		ev, err := parseSheetRow(row, &src.Config, opts)
		if err != nil {
			res.AddParseError(fmt.Sprintf("row %d", i+1), extract.Truncate(strings.Join(row, ",")), err)
			continue
		}
		if ev == nil {
			continue // blank row
		}
		ev.SourceURL = url
		res.Events = append(res.Events, *ev)
	}
	return res
}

// parseSheetRow maps one CSV row through the column map. A row whose
// date cell does not parse is a per-row error; a row with an empty date
// cell is blank padding and skipped silently.
func parseSheetRow(row []string, cfg *config.SourceConfig, opts scraper.Options) (*event.PreResolutionEvent, error) {
	cell := func(field string) string {
		idx, ok := cfg.ColumnMap[field]
		if !ok || idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	dateText := cell("date")
	if dateText == "" {
		return nil, nil
	}
	iso, ok := event.ParseDate(dateText, opts.Ref())
	if !ok {
		return nil, fmt.Errorf("unparsable date %q", dateText)
	}

	ev := &event.PreResolutionEvent{
		Date:       iso,
		Title:      cell("title"),
		PeopleText: cell("people"),
		Location:   cell("location"),
	}

	if raw := cell("runNumber"); raw != "" {
		if n, ok := extract.RunNumber("#" + raw); ok {
			ev.RunNumber = n
		}
	}
	if raw := cell("startTime"); raw != "" {
		if clock, ok := event.ParseClock(raw); ok {
			ev.StartTime = clock
		}
	}

	// Group tag: mapped column first, then the tag rules keyed by that
	// cell, then the configured default.
	tag := cell("group")
	if mapped, ok := cfg.GroupTagRules[strings.ToLower(tag)]; ok {
		tag = mapped
	}
	if tag == "" {
		tag = cfg.GroupTagRules["default"]
	}
	if tag == "" {
		tag = cfg.DefaultGroupTag
	}
	ev.GroupTag = tag
	return ev, nil
}

// looksLikeHeader reports whether the first row is column headers
// rather than data: its mapped date cell does not parse as a date.
func looksLikeHeader(row []string, columnMap map[string]int) bool {
	idx, ok := columnMap["date"]
	if !ok || idx < 0 || idx >= len(row) {
		return true
	}
	_, isDate := event.ParseDate(strings.TrimSpace(row[idx]), time.Now().UTC())
	return !isDate
}
