package drift

import "testing"

func TestFingerprintStableAcrossContentChanges(t *testing.T) {
	weekOne := `<html><body>
		<div class="schedule">
			<article class="run"><h2>EWH3 #1506</h2><p>February 19, NoMa</p></article>
			<article class="run"><h2>EWH3 #1507</h2><p>February 26, Rosslyn</p></article>
		</div></body></html>`
	weekTwo := `<html><body>
		<div class="schedule">
			<article class="run"><h2>EWH3 #1508</h2><p>March 5, Petworth</p></article>
			<article class="run"><h2>EWH3 #1509</h2><p>March 12, Bethesda</p></article>
		</div></body></html>`

	if Fingerprint(weekOne) != Fingerprint(weekTwo) {
		t.Error("content-only changes must not move the fingerprint")
	}
}

func TestFingerprintMovesOnLayoutChanges(t *testing.T) {
	base := `<html><body><div class="schedule"><article class="run"><h2>x</h2></article></div></body></html>`

	t.Run("tag change", func(t *testing.T) {
		changed := `<html><body><div class="schedule"><section class="run"><h2>x</h2></section></div></body></html>`
		if Fingerprint(base) == Fingerprint(changed) {
			t.Error("element rename should move the fingerprint")
		}
	})

	t.Run("class change", func(t *testing.T) {
		changed := `<html><body><div class="calendar"><article class="run"><h2>x</h2></article></div></body></html>`
		if Fingerprint(base) == Fingerprint(changed) {
			t.Error("class rename should move the fingerprint")
		}
	})

	t.Run("nesting change", func(t *testing.T) {
		changed := `<html><body><div class="schedule"></div><article class="run"><h2>x</h2></article></body></html>`
		if Fingerprint(base) == Fingerprint(changed) {
			t.Error("moved element should move the fingerprint")
		}
	})
}

func TestFingerprintIgnoresNonClassAttributes(t *testing.T) {
	a := `<div class="x" id="one" data-v="1"><p>t</p></div>`
	b := `<div class="x" id="two" data-v="9"><p>t</p></div>`
	if Fingerprint(a) != Fingerprint(b) {
		t.Error("non-class attributes should not affect the fingerprint")
	}
}

func TestFingerprintNormalizesClassWhitespace(t *testing.T) {
	a := `<div class="a  b">x</div>`
	b := `<div class="a b">x</div>`
	if Fingerprint(a) != Fingerprint(b) {
		t.Error("internal class whitespace should be normalized")
	}
}

func TestFingerprintNeverFails(t *testing.T) {
	for _, raw := range []string{"", "not html at all", "<<<", "<div>unclosed"} {
		if Fingerprint(raw) == "" {
			t.Errorf("Fingerprint(%q) returned empty", raw)
		}
	}
}

func TestChanged(t *testing.T) {
	tests := []struct {
		name     string
		previous string
		current  string
		want     bool
	}{
		{"no baseline", "", "abc", false},
		{"no current", "abc", "", false},
		{"same", "abc", "abc", false},
		{"moved", "abc", "def", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Changed(tt.previous, tt.current); got != tt.want {
				t.Errorf("Changed(%q, %q) = %v, want %v", tt.previous, tt.current, got, tt.want)
			}
		})
	}
}
