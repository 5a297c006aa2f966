// Package cli implements the command-line interface for trailscan.
//
// The cli package provides the Cobra-based CLI with subcommands for
// scraping the source registry, previewing a single source without
// persisting state, validating configuration offline, serving
// prometheus metrics on an interval, and managing alerts and the group
// directory. It coordinates the config, adapter, scraper, resolver,
// and storage packages.
package cli
