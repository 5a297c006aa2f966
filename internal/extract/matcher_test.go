package extract

import (
	"testing"

	"github.com/hashtrails/trailscan/internal/config"
)

func newTestMatcher(t *testing.T, cfg config.SourceConfig) *Matcher {
	t.Helper()
	m, err := NewMatcher(&cfg)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	return m
}

func TestMatcherGroupTagTwoStage(t *testing.T) {
	m := newTestMatcher(t, config.SourceConfig{
		GroupPatterns: []config.GroupPattern{
			{Pattern: `EWH3`, Tag: "EWH3"},
			{Pattern: `BAH3`, Tag: "BAH3"},
		},
		DefaultGroupTag: "DCHHH",
	})

	tests := []struct {
		name        string
		text        string
		wantTag     string
		wantMatched bool
	}{
		{"anchored match", "EWH3 #1506: some trail", "EWH3", true},
		{"anywhere plus run number", "Trail #88 hosted by BAH3 this week", "BAH3", true},
		{"mention without run number falls back", "we joined BAH3 last month for beers", "DCHHH", false},
		{"no match at all", "administrative note", "DCHHH", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, matched := m.GroupTag(tt.text)
			if tag != tt.wantTag || matched != tt.wantMatched {
				t.Errorf("GroupTag(%q) = %q/%v, want %q/%v",
					tt.text, tag, matched, tt.wantTag, tt.wantMatched)
			}
		})
	}
}

func TestMatcherPatternOrder(t *testing.T) {
	// First configured pattern wins, so the longer tag must be listed
	// before its substring.
	m := newTestMatcher(t, config.SourceConfig{
		GroupPatterns: []config.GroupPattern{
			{Pattern: `EWH3X`, Tag: "EWH3X"},
			{Pattern: `EWH3`, Tag: "EWH3"},
		},
	})

	if tag, _ := m.GroupTag("EWH3X trail #9"); tag != "EWH3X" {
		t.Errorf("got %q, want EWH3X", tag)
	}
	if tag, _ := m.GroupTag("EWH3 trail #9"); tag != "EWH3" {
		t.Errorf("got %q, want EWH3", tag)
	}
}

func TestMatcherSkip(t *testing.T) {
	m := newTestMatcher(t, config.SourceConfig{
		SkipPatterns: []string{`cancell?ed`, `happy hour`},
	})

	if !m.Skip("Trail CANCELLED due to weather") {
		t.Error("skip patterns are case-insensitive")
	}
	if !m.Skip("monthly happy hour announcement") {
		t.Error("expected skip")
	}
	if m.Skip("regular trail announcement") {
		t.Error("unexpected skip")
	}
}

func TestNewMatcherRejectsUnsafePattern(t *testing.T) {
	_, err := NewMatcher(&config.SourceConfig{
		GroupPatterns: []config.GroupPattern{{Pattern: `(a+)+`, Tag: "X"}},
	})
	if err == nil {
		t.Fatal("expected nested-quantifier pattern to be rejected")
	}
}
