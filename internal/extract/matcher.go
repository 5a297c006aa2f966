package extract

import (
	"fmt"
	"regexp"

	"github.com/hashtrails/trailscan/internal/config"
)

// runNumberNearbyRe spots a run-number-like token: "#1506", "no. 123",
// "run 42", or a bare 2-5 digit number.
var runNumberNearbyRe = regexp.MustCompile(`(?i)(?:#|№|\bno\.?\s*|\brun\s*|\btrail\s*#?\s*)?\b\d{1,5}(?:\.5)?\b`)

// Matcher applies a source's configured group and skip patterns to free
// text. Patterns are compiled once, case-insensitively, and evaluated in
// configured order with first match winning; the convention is that
// operators list longer, more specific alternatives before tags that are
// substrings of others.
type Matcher struct {
	groups     []*regexp.Regexp
	tags       []string
	skips      []*regexp.Regexp
	defaultTag string
}

// NewMatcher compiles a matcher from validated source configuration.
// Returns an error for any pattern that fails the safety screen; callers
// that ran config.Validate first never see one.
func NewMatcher(cfg *config.SourceConfig) (*Matcher, error) {
	m := &Matcher{defaultTag: cfg.DefaultGroupTag}
	for i, gp := range cfg.GroupPatterns {
		if err := config.CheckPattern(gp.Pattern); err != nil {
			return nil, fmt.Errorf("group pattern %d: %w", i, err)
		}
		m.groups = append(m.groups, regexp.MustCompile("(?i)"+gp.Pattern))
		m.tags = append(m.tags, gp.Tag)
	}
	for i, sp := range cfg.SkipPatterns {
		if err := config.CheckPattern(sp); err != nil {
			return nil, fmt.Errorf("skip pattern %d: %w", i, err)
		}
		m.skips = append(m.skips, regexp.MustCompile("(?i)"+sp))
	}
	return m, nil
}

// Skip reports whether the text matches any configured skip pattern
// (administrative posts, cancellations, anything that is not a run).
func (m *Matcher) Skip(text string) bool {
	for _, re := range m.skips {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// GroupTag classifies text in two stages. Stage one anchors each pattern
// to the start of the text; stage two accepts a match anywhere, but only
// when the text also carries a run-number-like token; a loose mention of
// a group name in prose is not an announcement. When nothing matches, the
// configured default tag is returned (matched=false).
func (m *Matcher) GroupTag(text string) (tag string, matched bool) {
	for i, re := range m.groups {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			return m.tags[i], true
		}
	}
	if runNumberNearbyRe.MatchString(text) {
		for i, re := range m.groups {
			if re.MatchString(text) {
				return m.tags[i], true
			}
		}
	}
	return m.defaultTag, false
}
