package config

import (
	"fmt"
	"regexp"
	"regexp/syntax"
)

// CheckPattern screens an operator-supplied pattern before it is saved or
// executed. Two gates:
//
//  1. The pattern must compile.
//  2. No quantifier may sit inside another unbounded quantifier
//     (the (a+)+ shape). Go's engine runs every pattern in linear time,
//     so such a pattern cannot actually blow up here, but configs are
//     data shared with other tooling, and the rejection keeps a
//     catastrophic-backtracking pattern from being saved at all.
//
// Rejection is deterministic: it depends only on the pattern's structure,
// never on any input it might be run against.
func CheckPattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("pattern is empty")
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return fmt.Errorf("pattern does not compile: %v", err)
	}

	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return fmt.Errorf("pattern does not parse: %v", err)
	}
	if hasNestedQuantifier(re, false) {
		return fmt.Errorf("pattern %q nests unbounded quantifiers (catastrophic-backtracking shape)", pattern)
	}
	return nil
}

// hasNestedQuantifier walks the pattern tree; insideUnbounded is true
// when an ancestor is an unbounded quantifier.
func hasNestedQuantifier(re *syntax.Regexp, insideUnbounded bool) bool {
	unbounded := false
	switch re.Op {
	case syntax.OpStar, syntax.OpPlus:
		unbounded = true
	case syntax.OpRepeat:
		// {2,} style with no upper bound, or a large bounded repeat of a
		// quantified group behaves the same way on a backtracking engine.
		unbounded = re.Max < 0
	}

	if unbounded && insideUnbounded {
		return true
	}
	for _, sub := range re.Sub {
		if hasNestedQuantifier(sub, insideUnbounded || unbounded) {
			return true
		}
	}
	return false
}

// MustCompilePatterns compiles a validated pattern list case-insensitively.
// Call only after CheckPattern has accepted every entry.
func MustCompilePatterns(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile("(?i)"+p))
	}
	return out
}
