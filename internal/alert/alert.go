// Package alert models the durable operator-facing anomalies the
// pipeline raises: unresolvable group tags, canonical-group mismatches,
// and structure-hash changes. Alerts are not transient errors: a fetch
// timeout is an error on one run, an unmatched tag is a standing
// condition that stays open until an operator action (usually creating an
// alias) makes it resolvable again.
package alert

import (
	"fmt"
	"time"
)

// Type classifies an alert.
type Type string

const (
	TypeGroupMismatch   Type = "GROUP_MISMATCH"
	TypeUnmatchedTags   Type = "UNMATCHED_TAGS"
	TypeStructureChange Type = "STRUCTURE_CHANGE"
)

// Status is the alert lifecycle. OPEN → ACKNOWLEDGED → {RESOLVED | SNOOZED}.
type Status string

const (
	StatusOpen         Status = "OPEN"
	StatusAcknowledged Status = "ACKNOWLEDGED"
	StatusResolved     Status = "RESOLVED"
	StatusSnoozed      Status = "SNOOZED"
)

// Alert is one durable anomaly record.
type Alert struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	Status    Status         `json:"status"`
	Source    string         `json:"source"`
	Context   map[string]any `json:"context,omitempty"`
	Tags      []string       `json:"tags,omitempty"` // the unresolvable tags, for auto-resolution
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// New creates an open alert.
func New(t Type, source string, context map[string]any) *Alert {
	now := time.Now().UTC()
	return &Alert{
		ID:        fmt.Sprintf("%s-%s-%d", t, source, now.UnixNano()),
		Type:      t,
		Status:    StatusOpen,
		Source:    source,
		Context:   context,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewUnmatchedTags creates an alert carrying the tags that failed
// resolution; the tag list is what auto-resolution re-checks later.
func NewUnmatchedTags(source string, tags []string) *Alert {
	a := New(TypeUnmatchedTags, source, map[string]any{"tag_count": len(tags)})
	a.Tags = tags
	return a
}

// NewGroupMismatch creates an alert recording a tag whose canonical
// short-ID match and alias-table entry point at different groups.
func NewGroupMismatch(source, tag, canonicalID, aliasID string) *Alert {
	return New(TypeGroupMismatch, source, map[string]any{
		"tag":          tag,
		"canonical_id": canonicalID,
		"alias_id":     aliasID,
	})
}

// NewStructureChange creates an alert recording a fingerprint move.
func NewStructureChange(source, previousHash, currentHash string) *Alert {
	return New(TypeStructureChange, source, map[string]any{
		"previous_hash": previousHash,
		"current_hash":  currentHash,
	})
}

// Transition moves the alert to a new status, enforcing the lifecycle.
// RESOLVED and SNOOZED are terminal except that a snoozed alert may be
// reopened.
func (a *Alert) Transition(to Status) error {
	allowed := map[Status][]Status{
		StatusOpen:         {StatusAcknowledged, StatusResolved},
		StatusAcknowledged: {StatusResolved, StatusSnoozed},
		StatusSnoozed:      {StatusOpen},
	}
	for _, s := range allowed[a.Status] {
		if s == to {
			a.Status = to
			a.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("alert %s: cannot transition %s → %s", a.ID, a.Status, to)
}

// Open reports whether the alert still needs operator attention.
func (a *Alert) Open() bool {
	return a.Status == StatusOpen || a.Status == StatusAcknowledged
}

// TagResolver is the subset of the identity resolver auto-resolution
// needs.
type TagResolver interface {
	Resolvable(tag string) (bool, error)
}

// AutoResolve re-checks an alert's recorded tags after an operator action
// (alias creation, link creation) and resolves the alert when every tag
// has become resolvable. Alerts without recorded tags are left alone.
func AutoResolve(a *Alert, res TagResolver) (bool, error) {
	if !a.Open() || len(a.Tags) == 0 {
		return false, nil
	}
	for _, tag := range a.Tags {
		ok, err := res.Resolvable(tag)
		if err != nil {
			return false, fmt.Errorf("re-checking tag %q: %w", tag, err)
		}
		if !ok {
			return false, nil
		}
	}
	a.Status = StatusResolved
	a.UpdatedAt = time.Now().UTC()
	return true, nil
}
