// Package drift fingerprints a source's raw markup so that layout
// changes are visible even when extraction fails silently.
//
// Parse failures in this domain rarely raise errors: a redesigned page
// just yields fewer matches, and the fallbacks (default tags, empty
// optional fields) absorb the damage. Comparing a structural fingerprint
// run-over-run is the only reliable automated signal that a page changed
// in a way that may be breaking extraction.
//
// The normalization is fixed and documented: parse the markup, drop all
// text nodes, keep element names, nesting, and class attributes, and
// hash the resulting skeleton. Week-to-week content changes (new dates,
// names, descriptions) leave the hash untouched; changes to tag
// structure or class names move it.
package drift

import (
	"crypto/sha1"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Fingerprint hashes the markup skeleton of raw HTML. Input that does
// not parse as HTML still produces a stable hash (the parser is
// lenient); Fingerprint never fails.
func Fingerprint(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		// html.Parse almost never errors; hash the raw bytes so the
		// signal degrades to plain content comparison instead of vanishing.
		h := sha1.Sum([]byte(raw))
		return fmt.Sprintf("%x", h[:])
	}

	var sb strings.Builder
	writeSkeleton(&sb, doc)
	h := sha1.Sum([]byte(sb.String()))
	return fmt.Sprintf("%x", h[:])
}

// writeSkeleton serializes the element tree: tag names, class
// attributes, and nesting via explicit open/close markers. Text,
// comments, and non-class attributes are dropped.
func writeSkeleton(sb *strings.Builder, n *html.Node) {
	if n.Type == html.ElementNode {
		sb.WriteByte('<')
		sb.WriteString(n.Data)
		for _, attr := range n.Attr {
			if attr.Key == "class" {
				// Class lists are order-sensitive in the source markup;
				// normalize internal whitespace only.
				sb.WriteString(` class="`)
				sb.WriteString(strings.Join(strings.Fields(attr.Val), " "))
				sb.WriteByte('"')
			}
		}
		sb.WriteByte('>')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeSkeleton(sb, c)
	}
	if n.Type == html.ElementNode {
		sb.WriteString("</")
		sb.WriteString(n.Data)
		sb.WriteByte('>')
	}
}

// Changed reports whether two consecutive fingerprints indicate a layout
// change. An empty previous hash means no baseline yet, which is never a
// change.
func Changed(previous, current string) bool {
	return previous != "" && current != "" && previous != current
}
