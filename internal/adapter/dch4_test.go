package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hashtrails/trailscan/internal/config"
	"github.com/hashtrails/trailscan/internal/scraper"
)

func TestParseDCH4Line(t *testing.T) {
	t.Run("full listing", func(t *testing.T) {
		ev, err := ParseDCH4Line("DCH4 Trail# 2298 - 2/7/26 @ 2pm - Fort Reno Park", testRef)
		if err != nil {
			t.Fatal(err)
		}
		if ev == nil {
			t.Fatal("expected a listing")
		}
		if ev.GroupTag != "DCH4" {
			t.Errorf("group = %q", ev.GroupTag)
		}
		if ev.RunNumber != 2298 {
			t.Errorf("run = %g", ev.RunNumber)
		}
		if ev.Date != "2026-02-07" {
			t.Errorf("date = %s", ev.Date)
		}
		if ev.StartTime != "14:00" {
			t.Errorf("start = %s", ev.StartTime)
		}
		if ev.Location != "Fort Reno Park" {
			t.Errorf("location = %q", ev.Location)
		}
	})

	t.Run("minimal listing", func(t *testing.T) {
		ev, err := ParseDCH4Line("DCH4 Trail# 2298 - 2/7/26 @ 2pm", testRef)
		if err != nil {
			t.Fatal(err)
		}
		if ev.RunNumber != 2298 || ev.Date != "2026-02-07" || ev.StartTime != "14:00" {
			t.Errorf("event = %+v", ev)
		}
		if ev.Location != "" {
			t.Errorf("location = %q, want none", ev.Location)
		}
	})

	t.Run("prose line is not a listing", func(t *testing.T) {
		ev, err := ParseDCH4Line("Welcome to the hash! See you out there.", testRef)
		if err != nil {
			t.Fatalf("prose is not an error: %v", err)
		}
		if ev != nil {
			t.Errorf("got %+v, want nil", ev)
		}
	})

	t.Run("listing with broken date is a parse error", func(t *testing.T) {
		_, err := ParseDCH4Line("DCH4 Trail# 2299 - date TBD", testRef)
		if err == nil {
			t.Error("a numbered listing without a date should error")
		}
	})
}

func TestHostVariants(t *testing.T) {
	got := hostVariants("http://www.dchashing.example/schedule")
	want := []string{
		"http://www.dchashing.example/schedule",
		"https://dchashing.example/schedule",
		"https://www.dchashing.example/schedule",
		"http://dchashing.example/schedule",
	}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("variant %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDCH4Fetch(t *testing.T) {
	page := `<html><body>
	<table id="upcoming">
	<tr><td>DCH4 Trail# 2298 - 2/7/26 @ 2pm - Fort Reno Park</td></tr>
	<tr><td>DCH4 Trail# 2299 - date TBD</td></tr>
	<tr><td>DCH4 Trail# 2300 - 2/21/26 @ 2pm</td></tr>
	</table>
	<table id="past">
	<tr><td>DCH4 Trail# 2297 - 1/24/26 @ 2pm - Meridian Hill</td></tr>
	</table>
	</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	a := NewDCH4(scraper.NewClient())
	src := config.Source{Name: "dch4", Type: config.TypeSite, URL: srv.URL}
	res := a.Fetch(context.Background(), src, scraper.Options{Reference: testRef})

	// Three good rows across both tables; the broken one is a parse
	// error, not a batch failure.
	if len(res.Events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(res.Events), res.Events)
	}
	if len(res.ErrorDetails.Parse) != 1 {
		t.Errorf("got %d parse errors, want 1: %v", len(res.ErrorDetails.Parse), res.Errors)
	}
	if res.StructureHash == "" {
		t.Error("page should be fingerprinted")
	}
}

func TestDCH4FetchHorizon(t *testing.T) {
	page := `<html><body>
	<table id="upcoming">
	<tr><td>DCH4 Trail# 2301 - 2/28/26 @ 2pm</td></tr>
	<tr><td>DCH4 Trail# 2302 - 3/20/26 @ 2pm</td></tr>
	</table>
	</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	a := NewDCH4(scraper.NewClient())
	src := config.Source{Name: "dch4", Type: config.TypeSite, URL: srv.URL}
	res := a.Fetch(context.Background(), src, scraper.Options{Days: 5, Reference: testRef})

	if len(res.Events) != 1 {
		t.Fatalf("got %d events, want 1: %+v", len(res.Events), res.Events)
	}
	if res.Events[0].RunNumber != 2301 {
		t.Errorf("kept run = %g, want the one inside the horizon", res.Events[0].RunNumber)
	}
}

func TestDCH4FetchPlainTextFallback(t *testing.T) {
	page := `<html><body><pre>
DCH4 Trail# 2298 - 2/7/26 @ 2pm - Fort Reno Park
some chatter in between
DCH4 Trail# 2300 - 2/21/26 @ 2pm
</pre></body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	a := NewDCH4(scraper.NewClient())
	res := a.Fetch(context.Background(), config.Source{Name: "dch4", URL: srv.URL}, scraper.Options{Reference: testRef})
	if len(res.Events) != 2 {
		t.Fatalf("got %d events, want 2", len(res.Events))
	}
}
