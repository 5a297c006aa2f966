package event

import (
	"crypto/sha1"
	"fmt"
	"strings"
)

// PreResolutionEvent is the output of field extraction and the input to
// identity resolution. Date is always a fully-resolved ISO calendar date
// (YYYY-MM-DD) before an event leaves extraction; GroupTag is the raw
// free-text tag as it appeared in the source, resolved to a canonical
// group later. All other fields are optional and empty when the source
// did not provide them.
type PreResolutionEvent struct {
	Date        string  `json:"date"`
	GroupTag    string  `json:"group_tag"`
	RunNumber   float64 `json:"run_number,omitempty"` // half-integers allowed (e.g. 1506.5)
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	PeopleText  string  `json:"people_text,omitempty"`
	Location    string  `json:"location,omitempty"`
	LocationURL string  `json:"location_url,omitempty"`
	StartTime   string  `json:"start_time,omitempty"` // 24-hour HH:MM
	SourceURL   string  `json:"source_url,omitempty"`
}

// ID returns a deterministic identifier for the event, derived from the
// fields that identify one trail: date, group tag, and run number.
func (e *PreResolutionEvent) ID() string {
	h := sha1.New()
	fmt.Fprintf(h, "%s|%s|%g", e.Date, strings.ToLower(strings.TrimSpace(e.GroupTag)), e.RunNumber)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// ContentKey returns a digest of the mutable fields, used to decide
// whether a re-scraped event changed since the previous run.
func (e *PreResolutionEvent) ContentKey() string {
	h := sha1.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s|%s",
		e.Title, e.Description, e.PeopleText, e.Location, e.LocationURL, e.StartTime, e.SourceURL)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// HasRunNumber reports whether a run number was extracted. Zero is not a
// run number any source uses, so it doubles as the unset marker.
func (e *PreResolutionEvent) HasRunNumber() bool {
	return e.RunNumber != 0
}
