// Package htmltext normalizes raw HTML fragments into plain text.
//
// Publishing tools used by the source sites frequently double-encode
// entities or mix named, hex, and decimal encodings in one document, so
// Decode runs three full decoding passes in a fixed order (named, hex
// numeric, decimal numeric) before any tag stripping. The order is
// fixed to keep the result deterministic regardless of how the source
// encoded its text, and each call decodes exactly one encoding level,
// so Decode on already-decoded text returns it unchanged.
package htmltext

import (
	"regexp"
	"strconv"
	"strings"
)

// namedEntities covers the entities seen in practice across the source
// sites, applied in slice order. &amp; decodes last so double-encoded
// text ("&amp;lt;") decodes exactly one level per pass instead of
// collapsing straight to "<". Unknown named entities pass through
// unchanged.
var namedEntities = []struct{ entity, replacement string }{
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&quot;", "\""},
	{"&apos;", "'"},
	{"&nbsp;", " "},
	{"&ndash;", "–"},
	{"&mdash;", "—"},
	{"&lsquo;", "‘"},
	{"&rsquo;", "’"},
	{"&ldquo;", "“"},
	{"&rdquo;", "”"},
	{"&hellip;", "…"},
	{"&copy;", "©"},
	{"&eacute;", "é"},
	{"&uuml;", "ü"},
	{"&amp;", "&"},
}

var (
	hexEntityRe     = regexp.MustCompile(`&#[xX]([0-9a-fA-F]{1,6});`)
	decEntityRe     = regexp.MustCompile(`&#([0-9]{1,7});`)
	scriptStyleRe   = regexp.MustCompile(`(?is)<(script|style)\b[^>]*>.*?</(script|style)>`)
	lineBreakTagRe  = regexp.MustCompile(`(?i)<(br|/p|/div|/li|/tr|/h[1-6])\s*/?>`)
	anyTagRe        = regexp.MustCompile(`<[^>]+>`)
	whitespaceRunRe = regexp.MustCompile(`\s+`)
)

// DecodeEntities decodes HTML entities in three ordered passes: named,
// hexadecimal numeric, then decimal numeric. Each pass is applied in full
// before the next. Malformed entities are left untouched; numeric entities
// outside the valid rune range are dropped.
func DecodeEntities(text string) string {
	// Pass 1: named entities.
	for _, e := range namedEntities {
		text = strings.ReplaceAll(text, e.entity, e.replacement)
	}

	// Pass 2: hex numeric entities (&#x2019;).
	text = hexEntityRe.ReplaceAllStringFunc(text, func(m string) string {
		digits := hexEntityRe.FindStringSubmatch(m)[1]
		code, err := strconv.ParseInt(digits, 16, 32)
		if err != nil || !validRune(rune(code)) {
			return ""
		}
		return string(rune(code))
	})

	// Pass 3: decimal numeric entities (&#8217;).
	text = decEntityRe.ReplaceAllStringFunc(text, func(m string) string {
		digits := decEntityRe.FindStringSubmatch(m)[1]
		code, err := strconv.ParseInt(digits, 10, 32)
		if err != nil || !validRune(rune(code)) {
			return ""
		}
		return string(rune(code))
	})

	return text
}

// validRune reports whether a decoded entity code point is acceptable.
// Control characters other than tab/newline are dropped rather than
// emitted into the normalized text.
func validRune(r rune) bool {
	if r == '\t' || r == '\n' {
		return true
	}
	if r < 0x20 || r > 0x10FFFF {
		return false
	}
	// Surrogate halves are invalid on their own.
	if r >= 0xD800 && r <= 0xDFFF {
		return false
	}
	return true
}

// StripTags removes markup from an HTML fragment: script and style blocks
// are removed wholesale (content included), block-level closers and <br>
// become spaces so adjacent fields don't run together, remaining tags are
// dropped, and runs of whitespace collapse to a single space.
func StripTags(text string) string {
	text = scriptStyleRe.ReplaceAllString(text, " ")
	text = lineBreakTagRe.ReplaceAllString(text, " ")
	text = anyTagRe.ReplaceAllString(text, " ")
	text = whitespaceRunRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Decode fully normalizes an HTML fragment: entity decoding (all three
// passes) followed by tag stripping. Safe on already-plain text.
func Decode(text string) string {
	return StripTags(DecodeEntities(text))
}
