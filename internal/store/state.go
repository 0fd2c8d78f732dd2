// Package store persists portfolio state between runs and archives trades for
// offline reporting.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/portfolio"
)

// schemaVersion is bumped whenever a field is added to the state file. Older
// files still load; new fields default to their zero values.
const schemaVersion = 2

type envelope struct {
	SchemaVersion int `json:"schema_version"`
	portfolio.State
}

// StateStore reads and writes the portfolio snapshot as a versioned JSON file.
// Writes go to a temp file in the same directory and are renamed into place,
// so a crash mid-write never leaves a half-written state behind.
type StateStore struct {
	path string
	log  zerolog.Logger
}

// NewStateStore builds a store targeting the given file path.
func NewStateStore(path string, log zerolog.Logger) *StateStore {
	return &StateStore{path: path, log: log}
}

// Load reads the persisted snapshot. A missing file means "no prior state" and
// returns (nil, nil); a corrupt file is logged as recoverable and also returns
// (nil, nil) so the caller can start fresh. Only I/O surprises beyond those
// bubble up as errors.
func (s *StateStore) Load() (*portfolio.State, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.log.Info().Str("path", s.path).Msg("no saved state, starting fresh")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.log.Warn().Str("path", s.path).Err(err).Msg("state file corrupt, starting fresh")
		return nil, nil
	}
	if env.SchemaVersion < 1 {
		s.log.Warn().Str("path", s.path).Int("schema_version", env.SchemaVersion).
			Msg("state file missing schema version, starting fresh")
		return nil, nil
	}
	if env.SchemaVersion > schemaVersion {
		s.log.Warn().Int("schema_version", env.SchemaVersion).
			Msg("state file written by a newer build, loading known fields")
	}
	for i := range env.State.TradeHistory {
		env.State.TradeHistory[i].Time = env.State.TradeHistory[i].Time.UTC()
	}
	for i := range env.State.ValueHistory {
		env.State.ValueHistory[i].Time = env.State.ValueHistory[i].Time.UTC()
	}
	return &env.State, nil
}

// Save atomically replaces the persisted snapshot.
func (s *StateStore) Save(state portfolio.State) error {
	data, err := json.MarshalIndent(envelope{SchemaVersion: schemaVersion, State: state}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}
