package alert

import "testing"

func TestTransition(t *testing.T) {
	t.Run("normal lifecycle", func(t *testing.T) {
		a := New(TypeUnmatchedTags, "src", nil)
		if err := a.Transition(StatusAcknowledged); err != nil {
			t.Fatal(err)
		}
		if err := a.Transition(StatusResolved); err != nil {
			t.Fatal(err)
		}
		if a.Open() {
			t.Error("resolved alert should not be open")
		}
	})

	t.Run("resolved is terminal", func(t *testing.T) {
		a := New(TypeStructureChange, "src", nil)
		a.Status = StatusResolved
		if err := a.Transition(StatusOpen); err == nil {
			t.Error("resolved alerts must not reopen")
		}
	})

	t.Run("snoozed can reopen", func(t *testing.T) {
		a := New(TypeUnmatchedTags, "src", nil)
		a.Status = StatusSnoozed
		if err := a.Transition(StatusOpen); err != nil {
			t.Errorf("snoozed alert should reopen: %v", err)
		}
	})

	t.Run("cannot skip acknowledgement into snooze", func(t *testing.T) {
		a := New(TypeUnmatchedTags, "src", nil)
		if err := a.Transition(StatusSnoozed); err == nil {
			t.Error("open alerts snooze only after acknowledgement")
		}
	})
}

// stubResolver resolves only the tags in its set.
type stubResolver struct{ known map[string]bool }

func (s stubResolver) Resolvable(tag string) (bool, error) {
	return s.known[tag], nil
}

func TestAutoResolve(t *testing.T) {
	t.Run("all tags resolvable resolves the alert", func(t *testing.T) {
		a := NewUnmatchedTags("src", []string{"EWH3", "BAH3"})
		resolved, err := AutoResolve(a, stubResolver{known: map[string]bool{"EWH3": true, "BAH3": true}})
		if err != nil {
			t.Fatal(err)
		}
		if !resolved || a.Status != StatusResolved {
			t.Errorf("resolved=%v status=%s, want resolved", resolved, a.Status)
		}
	})

	t.Run("one unresolvable tag keeps the alert open", func(t *testing.T) {
		a := NewUnmatchedTags("src", []string{"EWH3", "MYSTERY"})
		resolved, err := AutoResolve(a, stubResolver{known: map[string]bool{"EWH3": true}})
		if err != nil {
			t.Fatal(err)
		}
		if resolved || a.Status != StatusOpen {
			t.Errorf("resolved=%v status=%s, want still open", resolved, a.Status)
		}
	})

	t.Run("tagless alerts are left alone", func(t *testing.T) {
		a := NewStructureChange("src", "aaa", "bbb")
		resolved, err := AutoResolve(a, stubResolver{})
		if err != nil {
			t.Fatal(err)
		}
		if resolved {
			t.Error("structure alerts have no tags to re-check")
		}
	})

	t.Run("closed alerts are skipped", func(t *testing.T) {
		a := NewUnmatchedTags("src", []string{"EWH3"})
		a.Status = StatusResolved
		resolved, err := AutoResolve(a, stubResolver{known: map[string]bool{"EWH3": true}})
		if err != nil {
			t.Fatal(err)
		}
		if resolved {
			t.Error("already-resolved alert should not re-resolve")
		}
	})
}
