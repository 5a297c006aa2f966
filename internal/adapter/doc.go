// Package adapter implements the per-source-family fetch+extract
// implementations behind the scraper registry.
//
// Two families exist. Named-site adapters (ewh3.go, dch4.go) encode one
// publisher's layout explicitly: locate the title and body elements,
// then run that publisher's own title and body grammar. Generic adapters
// (calendar.go, sheet.go, feed.go, signup.go, recurring.go) are
// config-driven and share the pattern matcher in internal/extract.
//
// Every adapter honors the same contract: Fetch never panics past its
// boundary and never returns a bare error; all failures surface as
// entries in the result's error lists, with diagnostic context attached
// whether or not the run succeeded.
package adapter
