package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hashtrails/trailscan/internal/scraper"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// BatchOutput is the printable summary of one scrape batch.
type BatchOutput struct {
	CheckedAt   time.Time         `json:"checked_at"`
	Sources     []*scraper.Result `json:"sources"`
	TotalEvents int               `json:"total_events"`
	TotalErrors int               `json:"total_errors"`
}

// NewBatchOutput aggregates per-source results.
func NewBatchOutput(results []*scraper.Result) *BatchOutput {
	out := &BatchOutput{
		CheckedAt: time.Now().UTC(),
		Sources:   results,
	}
	for _, r := range results {
		if r == nil {
			continue
		}
		out.TotalEvents += len(r.Events)
		out.TotalErrors += len(r.Errors)
	}
	return out
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, out *BatchOutput, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, out)
	case FormatText:
		return writeText(w, out, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, out *BatchOutput) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, out *BatchOutput, verbose bool) error {
	for _, r := range out.Sources {
		if r == nil {
			continue
		}
		status := "ok"
		if r.Failed() {
			status = "FAILED"
		} else if len(r.Errors) > 0 {
			status = "partial"
		}
		fmt.Fprintf(w, "%-24s %-8s %3d events  (%d created, %d updated, %d skipped)  %dms\n",
			r.Source, status, len(r.Events),
			r.Accounting.Created, r.Accounting.Updated, r.Accounting.Skipped,
			r.DurationMS)

		if verbose {
			for _, ev := range r.Events {
				line := fmt.Sprintf("    %s  %s", ev.Date, ev.GroupTag)
				if ev.HasRunNumber() {
					line += fmt.Sprintf(" #%g", ev.RunNumber)
				}
				if ev.StartTime != "" {
					line += " @ " + ev.StartTime
				}
				if ev.Title != "" {
					line += "  " + ev.Title
				}
				fmt.Fprintln(w, line)
			}
			if len(r.FillRates) > 0 {
				fmt.Fprintf(w, "    fill rates:")
				for _, f := range []string{"title", "location", "people", "startTime", "runNumber"} {
					fmt.Fprintf(w, " %s=%.0f%%", f, r.FillRates[f])
				}
				fmt.Fprintln(w)
			}
		}
		for _, e := range r.Errors {
			fmt.Fprintf(w, "    ! %s\n", e)
		}
		if len(r.UnmatchedTags) > 0 {
			fmt.Fprintf(w, "    ? unmatched tags: %v\n", r.UnmatchedTags)
		}
	}
	fmt.Fprintf(w, "\n%d sources, %d events, %d errors\n",
		len(out.Sources), out.TotalEvents, out.TotalErrors)
	return nil
}
