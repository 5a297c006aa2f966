// Package extract holds the shared field-extraction machinery: the
// label-anchored body grammar used by the dedicated site extractors and
// the config-driven group/skip pattern matcher used by the generic
// adapters. Everything here works on plain text that has already been
// through htmltext.Decode.
package extract

import (
	"regexp"
	"strings"
)

// Label is one body field anchor. Aliases are alternative spellings the
// sources use for the same field ("Hare:", "Hares:", "Hared by:").
type Label struct {
	Field   string
	Aliases []string
}

// LabelSet is the full list of labels one site's body grammar knows. A
// field's value runs from after its label to the next occurrence of any
// other known label, a newline, or end of text, never to an arbitrary
// fixed delimiter, so a value containing a comma, an ampersand, or a
// label-looking word ("The Station Hotel") survives intact.
type LabelSet struct {
	labels []Label
	res    map[string]*regexp.Regexp // field → compiled alias alternation
	all    *regexp.Regexp            // any label, for the lookahead boundary
}

// NewLabelSet compiles a label set. Alias matching is case-insensitive
// and anchored on word boundaries; the trailing colon is optional in the
// source text but the alias list is written without it.
func NewLabelSet(labels []Label) *LabelSet {
	ls := &LabelSet{
		labels: labels,
		res:    make(map[string]*regexp.Regexp, len(labels)),
	}
	var allAlts []string
	for _, l := range labels {
		alts := make([]string, 0, len(l.Aliases))
		for _, a := range l.Aliases {
			alts = append(alts, regexp.QuoteMeta(a))
		}
		group := "(?:" + strings.Join(alts, "|") + ")"
		ls.res[l.Field] = regexp.MustCompile(`(?i)\b` + group + `\s*:`)
		allAlts = append(allAlts, group)
	}
	ls.all = regexp.MustCompile(`(?i)\b(?:` + strings.Join(allAlts, "|") + `)\s*:`)
	return ls
}

// Extract pulls every labeled field out of the text. Fields whose label
// does not appear are absent from the result.
func (ls *LabelSet) Extract(text string) map[string]string {
	out := make(map[string]string)
	for _, l := range ls.labels {
		if v, ok := ls.Field(text, l.Field); ok {
			out[l.Field] = v
		}
	}
	return out
}

// Field extracts one labeled value. The value ends at the next known
// label, the next newline, or end of text, whichever comes first.
func (ls *LabelSet) Field(text, field string) (string, bool) {
	re, ok := ls.res[field]
	if !ok {
		return "", false
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return "", false
	}

	rest := text[loc[1]:]
	end := len(rest)
	if next := ls.all.FindStringIndex(rest); next != nil && next[0] < end {
		end = next[0]
	}
	if nl := strings.IndexAny(rest, "\n\r"); nl >= 0 && nl < end {
		end = nl
	}

	value := strings.TrimSpace(strings.Trim(strings.TrimSpace(rest[:end]), "-–|•"))
	if value == "" {
		return "", false
	}
	return strings.TrimSpace(value), true
}
