// Package storage persists the pipeline's local working state as JSON
// files under a data directory: per-source run state (previous event
// snapshot, structure-hash history, last success time), the group/alias
// directory the resolver matches against, and open alerts.
//
// This is the pipeline-side view only. The canonical record store is an
// external collaborator; the pipeline hands it values of the expected
// shape and never writes it directly.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashtrails/trailscan/internal/alert"
	"github.com/hashtrails/trailscan/internal/event"
	"github.com/hashtrails/trailscan/internal/resolver"
)

// Store handles persistence of pipeline state
type Store struct {
	dataDir string
}

// New creates a new Store rooted at dataDir, creating it if needed.
func New(dataDir string) (*Store, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Store{dataDir: dataDir}, nil
}

// RunState is what one source carries between runs.
type RunState struct {
	StructureHash string          `json:"structure_hash,omitempty"`
	LastSuccess   time.Time       `json:"last_success,omitempty"`
	FillRates     map[string]float64 `json:"fill_rates,omitempty"`
	Snapshot      *event.Snapshot `json:"snapshot,omitempty"`
}

func (s *Store) runStatePath(source string) string {
	return filepath.Join(s.dataDir, fmt.Sprintf("runstate_%s.json", sanitize(source)))
}

// LoadRunState loads a source's previous run state; a missing file
// returns an empty state, not an error.
func (s *Store) LoadRunState(source string) (*RunState, error) {
	data, err := os.ReadFile(s.runStatePath(source))
	if err != nil {
		if os.IsNotExist(err) {
			return &RunState{Snapshot: event.NewSnapshot()}, nil
		}
		return nil, fmt.Errorf("reading run state: %w", err)
	}
	var rs RunState
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parsing run state: %w", err)
	}
	if rs.Snapshot == nil {
		rs.Snapshot = event.NewSnapshot()
	}
	return &rs, nil
}

// SaveRunState persists a source's run state.
func (s *Store) SaveRunState(source string, rs *RunState) error {
	return s.writeJSON(s.runStatePath(source), rs)
}

// directory is the serialized group/alias tables.
type directory struct {
	Groups  []resolver.Group  `json:"groups"`
	Aliases map[string]string `json:"aliases"` // lowercased alias → group ID
}

func (s *Store) directoryPath() string {
	return filepath.Join(s.dataDir, "directory.json")
}

func (s *Store) loadDirectory() (*directory, error) {
	data, err := os.ReadFile(s.directoryPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &directory{Aliases: make(map[string]string)}, nil
		}
		return nil, fmt.Errorf("reading directory: %w", err)
	}
	var d directory
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing directory: %w", err)
	}
	if d.Aliases == nil {
		d.Aliases = make(map[string]string)
	}
	return &d, nil
}

// Groups returns every canonical group. Part of resolver.Directory.
func (s *Store) Groups() ([]resolver.Group, error) {
	d, err := s.loadDirectory()
	if err != nil {
		return nil, err
	}
	return d.Groups, nil
}

// LookupAlias resolves a case-insensitive alias. Part of resolver.Directory.
func (s *Store) LookupAlias(alias string) (string, bool, error) {
	d, err := s.loadDirectory()
	if err != nil {
		return "", false, err
	}
	id, ok := d.Aliases[strings.ToLower(strings.TrimSpace(alias))]
	return id, ok, nil
}

// AddGroup registers a canonical group.
func (s *Store) AddGroup(g resolver.Group) error {
	d, err := s.loadDirectory()
	if err != nil {
		return err
	}
	for _, existing := range d.Groups {
		if existing.ID == g.ID {
			return fmt.Errorf("group %q already exists", g.ID)
		}
	}
	d.Groups = append(d.Groups, g)
	return s.writeJSON(s.directoryPath(), d)
}

// AddAlias creates an alias → group mapping. Aliases are case-insensitive
// and unique; creating one that already exists is a hard error, an
// existing mapping is never silently overwritten.
func (s *Store) AddAlias(aliasText, groupID string) error {
	key := strings.ToLower(strings.TrimSpace(aliasText))
	if key == "" {
		return fmt.Errorf("alias is empty")
	}
	d, err := s.loadDirectory()
	if err != nil {
		return err
	}
	if existing, ok := d.Aliases[key]; ok {
		return fmt.Errorf("alias %q already maps to group %q", aliasText, existing)
	}
	found := false
	for _, g := range d.Groups {
		if g.ID == groupID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("unknown group %q", groupID)
	}
	d.Aliases[key] = groupID
	return s.writeJSON(s.directoryPath(), d)
}

func (s *Store) alertsPath() string {
	return filepath.Join(s.dataDir, "alerts.json")
}

// LoadAlerts returns all persisted alerts, oldest first.
func (s *Store) LoadAlerts() ([]*alert.Alert, error) {
	data, err := os.ReadFile(s.alertsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading alerts: %w", err)
	}
	var alerts []*alert.Alert
	if err := json.Unmarshal(data, &alerts); err != nil {
		return nil, fmt.Errorf("parsing alerts: %w", err)
	}
	return alerts, nil
}

// SaveAlerts persists the full alert list.
func (s *Store) SaveAlerts(alerts []*alert.Alert) error {
	return s.writeJSON(s.alertsPath(), alerts)
}

// AppendAlert adds one alert, deduplicating open alerts of the same type
// and source so a broken source does not raise a fresh alert every run.
func (s *Store) AppendAlert(a *alert.Alert) error {
	alerts, err := s.LoadAlerts()
	if err != nil {
		return err
	}
	for _, existing := range alerts {
		if existing.Open() && existing.Type == a.Type && existing.Source == a.Source {
			return nil
		}
	}
	return s.SaveAlerts(append(alerts, a))
}

// writeJSON writes via a temp file and rename so a crash mid-write
// leaves the previous state intact instead of a truncated file.
func (s *Store) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// sanitize keeps source names filesystem-safe.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
