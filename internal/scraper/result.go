// Package scraper drives one source end-to-end: validate config, fetch
// (with fallback chains), extract, resolve group tags, fingerprint, and
// assemble the final result record. It owns the error taxonomy (fetch,
// parse, merge, and config errors) and guarantees that a failure in one
// source never takes down a multi-source run.
package scraper

import (
	"fmt"

	"github.com/hashtrails/trailscan/internal/event"
	"github.com/hashtrails/trailscan/internal/resolver"
)

// ErrorDetails is the structured breakdown diagnostic displays consume.
// The flat Errors list on Result carries the same messages for simple
// displays.
type ErrorDetails struct {
	Fetch []string `json:"fetch,omitempty"`
	Parse []string `json:"parse,omitempty"`
	Merge []string `json:"merge,omitempty"`
}

// Result is the orchestrator's output for one source run. Diagnostic
// context is attached regardless of success or failure so operators can
// tell "nothing found" from "site layout changed".
type Result struct {
	Source string                       `json:"source"`
	Events []event.PreResolutionEvent   `json:"events"`
	Errors []string                     `json:"errors,omitempty"`

	StructureHash string       `json:"structure_hash,omitempty"`
	ErrorDetails  ErrorDetails `json:"error_details,omitempty"`

	// DiagnosticContext holds free-form counters: rows scanned, fetch
	// method used, fallback attempts, and similar.
	DiagnosticContext map[string]any `json:"diagnostic_context,omitempty"`

	// The shape the persistence collaborator expects.
	Accounting event.Accounting               `json:"accounting"`
	FillRates  map[string]float64             `json:"fill_rates,omitempty"`
	DurationMS int64                          `json:"duration_ms"`
	Resolved   map[string]resolver.Resolution `json:"resolved,omitempty"`

	// UnmatchedTags are group tags no resolution stage matched, in the
	// order first seen. They feed UNMATCHED_TAGS alerts, not errors.
	UnmatchedTags []string `json:"unmatched_tags,omitempty"`
}

// NewResult creates an empty result with diagnostics initialized.
func NewResult(source string) *Result {
	return &Result{
		Source:            source,
		Events:            []event.PreResolutionEvent{},
		DiagnosticContext: make(map[string]any),
	}
}

// AddFetchError records a network/HTTP failure for one attempted URL.
// Pass status 0 when no HTTP status was available.
func (r *Result) AddFetchError(url string, status int, err error) {
	var msg string
	if status > 0 {
		msg = fmt.Sprintf("fetch %s: status %d", url, status)
	} else {
		msg = fmt.Sprintf("fetch %s: %v", url, err)
	}
	r.Errors = append(r.Errors, msg)
	r.ErrorDetails.Fetch = append(r.ErrorDetails.Fetch, msg)
}

// AddParseError records a row/record-level extraction failure, with a
// section identifier and truncated raw context for recovery passes.
func (r *Result) AddParseError(section, rawContext string, err error) {
	msg := fmt.Sprintf("parse [%s]: %v (context: %q)", section, err, rawContext)
	r.Errors = append(r.Errors, msg)
	r.ErrorDetails.Parse = append(r.ErrorDetails.Parse, msg)
}

// AddMergeError records an identity or fingerprint conflict found during
// reconciliation.
func (r *Result) AddMergeError(detail string) {
	msg := "merge: " + detail
	r.Errors = append(r.Errors, msg)
	r.ErrorDetails.Merge = append(r.ErrorDetails.Merge, msg)
}

// Failed reports whether the run produced no events and at least one
// error, the "total failure" case as opposed to partial degradation.
func (r *Result) Failed() bool {
	return len(r.Events) == 0 && len(r.Errors) > 0
}

// Merge folds a sub-fetch result into this one. Sub-fetches (past vs
// future tables, per-slug pages) are fault-isolated, so errors
// accumulate while events concatenate.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Events = append(r.Events, other.Events...)
	r.Errors = append(r.Errors, other.Errors...)
	r.ErrorDetails.Fetch = append(r.ErrorDetails.Fetch, other.ErrorDetails.Fetch...)
	r.ErrorDetails.Parse = append(r.ErrorDetails.Parse, other.ErrorDetails.Parse...)
	r.ErrorDetails.Merge = append(r.ErrorDetails.Merge, other.ErrorDetails.Merge...)
	for k, v := range other.DiagnosticContext {
		r.DiagnosticContext[k] = v
	}
	if r.StructureHash == "" {
		r.StructureHash = other.StructureHash
	}
}
