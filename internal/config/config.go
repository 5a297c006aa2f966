// Package config holds the source registry: one entry per publisher site
// or feed, with the type-tagged extraction configuration the generic
// adapters run on. Configuration is validated in full before any network
// access; a source with config errors never starts a scrape.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Source types recognized by the registry. Named sites (dedicated
// extractors) use TypeSite plus URL dispatch; the rest are config-driven
// families sharing the generic extractor.
const (
	TypeSite      = "site"      // dedicated per-publisher extractor, chosen by URL
	TypeCalendar  = "calendar"  // ICS calendar feed
	TypeSheet     = "sheet"     // published spreadsheet (CSV export)
	TypeFeed      = "feed"      // generic text/HTML feed
	TypeSignup    = "signup"    // registration platform, per-group slug pages
	TypeRecurring = "recurring" // synthesized from a recurrence rule
)

// GroupPattern pairs a regex (as entered by an operator) with the group
// tag assigned on match. Order matters: patterns are tried first to last,
// and administrators list longer, more specific alternatives before
// shorter substrings of other tags.
type GroupPattern struct {
	Pattern string `yaml:"pattern" json:"pattern"`
	Tag     string `yaml:"tag" json:"tag"`
}

// SourceConfig is the type-tagged per-source configuration. Only the
// subset relevant to the source's type is populated.
type SourceConfig struct {
	GroupPatterns   []GroupPattern    `yaml:"group_patterns,omitempty" json:"group_patterns,omitempty"`
	SkipPatterns    []string          `yaml:"skip_patterns,omitempty" json:"skip_patterns,omitempty"`
	DefaultGroupTag string            `yaml:"default_group_tag,omitempty" json:"default_group_tag,omitempty"`
	SheetID         string            `yaml:"sheet_id,omitempty" json:"sheet_id,omitempty"`
	ColumnMap       map[string]int    `yaml:"column_map,omitempty" json:"column_map,omitempty"`
	GroupTagRules   map[string]string `yaml:"group_tag_rules,omitempty" json:"group_tag_rules,omitempty"`
	GroupSlugs      []string          `yaml:"group_slugs,omitempty" json:"group_slugs,omitempty"`
	GroupTag        string            `yaml:"group_tag,omitempty" json:"group_tag,omitempty"`
	RecurrenceRule  string            `yaml:"recurrence_rule,omitempty" json:"recurrence_rule,omitempty"`
	StartTime       string            `yaml:"start_time,omitempty" json:"start_time,omitempty"` // "HH:MM"
	AnchorDate      string            `yaml:"anchor_date,omitempty" json:"anchor_date,omitempty"` // "YYYY-MM-DD"
	GroupURLName    string            `yaml:"group_url_name,omitempty" json:"group_url_name,omitempty"`
}

// Source is one registry entry.
type Source struct {
	Name    string       `yaml:"name" json:"name"`
	Type    string       `yaml:"type" json:"type"`
	URL     string       `yaml:"url,omitempty" json:"url,omitempty"`
	Enabled bool         `yaml:"enabled" json:"enabled"`
	Config  SourceConfig `yaml:"config" json:"config"`
}

// Registry is the full source list plus run-wide settings.
type Registry struct {
	Sources []Source `yaml:"sources"`

	// DaysAhead bounds how far into the future adapters look.
	DaysAhead int `yaml:"days_ahead"`

	// DataDir holds run snapshots, hash history, aliases, and alerts.
	DataDir string `yaml:"data_dir"`
}

// Load reads and parses a registry file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parsing registry: %w", err)
	}
	if reg.DaysAhead == 0 {
		reg.DaysAhead = 14
	}
	if reg.DataDir == "" {
		reg.DataDir = "~/.local/share/trailscan"
	}
	return &reg, nil
}

// Enabled returns the sources that should be scraped.
func (r *Registry) Enabled() []Source {
	out := make([]Source, 0, len(r.Sources))
	for _, s := range r.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// FindSource looks a source up by name.
func (r *Registry) FindSource(name string) (*Source, bool) {
	for i := range r.Sources {
		if r.Sources[i].Name == name {
			return &r.Sources[i], true
		}
	}
	return nil, false
}
