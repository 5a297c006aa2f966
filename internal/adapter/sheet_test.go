package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hashtrails/trailscan/internal/config"
	"github.com/hashtrails/trailscan/internal/scraper"
)

const testCSV = `Date,Run,Title,Start,Kennel,Where,Hares
2/28/26,2301,Leap Weekend Trail,2:00 PM,dc,Meridian Hill Park,Just Dave
March 7,2302,Shamrock Trail,,,Quincy Park,
,,,,,,
sometime soon,2303,Mystery Trail,,,TBD,
3/14/26,,Pi Day Social,3pm,bah3,Clarendon
`

func sheetSource(url string) config.Source {
	return config.Source{
		Name: "sheet", Type: config.TypeSheet,
		Config: config.SourceConfig{
			SheetID: "abc123",
			ColumnMap: map[string]int{
				"date": 0, "runNumber": 1, "title": 2, "startTime": 3,
				"group": 4, "location": 5, "people": 6,
			},
			GroupTagRules:   map[string]string{"dc": "DCHHH", "bah3": "BAH3", "default": "DCHHH"},
			DefaultGroupTag: "MISC",
		},
	}
}

func TestSheetFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testCSV))
	}))
	defer srv.Close()

	a := NewSheet(scraper.NewClient())
	a.ExportURL = func(sheetID string) string {
		if sheetID != "abc123" {
			t.Errorf("sheet id = %q", sheetID)
		}
		return srv.URL
	}

	res := a.Fetch(context.Background(), sheetSource(srv.URL), scraper.Options{Reference: testRef})

	// Header skipped, one blank row skipped, one bad-date row errored,
	// three data rows survive. The last row is ragged (six cells).
	if len(res.Events) != 3 {
		t.Fatalf("got %d events, want 3: %v", len(res.Events), res.Errors)
	}
	if len(res.ErrorDetails.Parse) != 1 {
		t.Errorf("got %d parse errors, want 1: %v", len(res.ErrorDetails.Parse), res.Errors)
	}

	first := res.Events[0]
	if first.Date != "2026-02-28" || first.RunNumber != 2301 {
		t.Errorf("first = %+v", first)
	}
	if first.StartTime != "14:00" {
		t.Errorf("start = %q", first.StartTime)
	}
	if first.GroupTag != "DCHHH" {
		t.Errorf("group cell %q should map through the tag rules, got %q", "dc", first.GroupTag)
	}
	if first.Location != "Meridian Hill Park" || first.PeopleText != "Just Dave" {
		t.Errorf("first = %+v", first)
	}

	second := res.Events[1]
	if second.Date != "2026-03-07" {
		t.Errorf("relative date = %q", second.Date)
	}
	if second.GroupTag != "DCHHH" {
		t.Errorf("empty group cell should fall to the default rule, got %q", second.GroupTag)
	}

	ragged := res.Events[2]
	if ragged.Date != "2026-03-14" || ragged.GroupTag != "BAH3" {
		t.Errorf("ragged = %+v", ragged)
	}
	if ragged.PeopleText != "" {
		t.Errorf("missing trailing cell should read empty, got %q", ragged.PeopleText)
	}
	if ragged.HasRunNumber() {
		t.Errorf("empty run cell should stay unset, got %g", ragged.RunNumber)
	}
}

func TestLooksLikeHeader(t *testing.T) {
	columnMap := map[string]int{"date": 0}
	if !looksLikeHeader([]string{"Date", "Run"}, columnMap) {
		t.Error("label row not detected as header")
	}
	if looksLikeHeader([]string{"2/28/26", "2301"}, columnMap) {
		t.Error("data row misread as header")
	}
	if !looksLikeHeader([]string{"anything"}, map[string]int{"date": 5}) {
		t.Error("out-of-range date column should be treated as header")
	}
}
