// Package dismissal persists which findings the user has dismissed.
//
// Only opaque finding ids are stored, never secrets or locations. The
// file format is versioned JSON; a legacy bare array of ids is still
// accepted on read and upgraded to the versioned form on the next
// write.
package dismissal

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"

	"github.com/secretlens/secretlens/internal/common"
	"github.com/secretlens/secretlens/internal/config"
)

const currentVersion = 1

type persistedState struct {
	Version      int      `json:"version"`
	DismissedIDs []string `json:"dismissedIDs"`
}

// Store is the durable dismissed-id set plus an in-memory seen-id set
// used to de-duplicate findings across re-scans. Dismissals are
// written through to disk on every insert; seen ids never leave
// memory.
type Store struct {
	filePath string
	logger   zerolog.Logger

	mu        sync.Mutex
	dismissed map[string]struct{}
	order     []string
	seen      map[string]struct{}
}

// NewStore loads (or initializes) the dismissal file named by cfg.
// A missing file is an empty set, not an error.
func NewStore(cfg config.DismissalConfig, logger zerolog.Logger) (*Store, error) {
	filePath := cfg.FilePath
	if filePath == "" {
		filePath = config.DefaultDismissalFilePath
	}
	expanded, err := homedir.Expand(filePath)
	if err != nil {
		return nil, common.WrapError(err, "failed to expand dismissal file path")
	}

	s := &Store{
		filePath:  expanded,
		logger:    logger.With().Str("component", "DismissalStore").Logger(),
		dismissed: make(map[string]struct{}),
		seen:      make(map[string]struct{}),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads the file, accepting both the current versioned object
// and the legacy bare-array form.
func (s *Store) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return common.WrapError(err, "failed to read dismissal file")
	}
	if len(data) == 0 {
		return nil
	}

	var ids []string
	var state persistedState
	if err := json.Unmarshal(data, &state); err == nil {
		ids = state.DismissedIDs
	} else if legacyErr := json.Unmarshal(data, &ids); legacyErr != nil {
		return common.WrapError(err, "failed to parse dismissal file")
	} else {
		s.logger.Info().Int("count", len(ids)).Msg("Loaded legacy dismissal format, will upgrade on next write")
	}

	for _, id := range ids {
		if _, exists := s.dismissed[id]; exists {
			continue
		}
		s.dismissed[id] = struct{}{}
		s.order = append(s.order, id)
	}
	return nil
}

// Dismiss records id as dismissed and persists the set. Dismissing an
// already dismissed id is a no-op and touches nothing on disk.
func (s *Store) Dismiss(id string) error {
	if id == "" {
		return common.WrapError(common.ErrInvalidInput, "empty finding id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.dismissed[id]; exists {
		return nil
	}
	s.dismissed[id] = struct{}{}
	s.order = append(s.order, id)

	if err := s.saveLocked(); err != nil {
		// The in-memory set keeps the dismissal; the next successful
		// save will pick it up.
		s.logger.Error().Err(err).Msg("Failed to persist dismissal")
		return err
	}
	return nil
}

// IsDismissed reports whether id has been dismissed.
func (s *Store) IsDismissed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.dismissed[id]
	return exists
}

// DismissedIDs returns the dismissed ids in insertion order.
func (s *Store) DismissedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Count returns the number of dismissed ids.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// MarkSeen records id as encountered during the current session.
// Returns true the first time, false for repeats.
func (s *Store) MarkSeen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.seen[id]; exists {
		return false
	}
	s.seen[id] = struct{}{}
	return true
}

// WasSeen reports whether id was already encountered this session.
func (s *Store) WasSeen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.seen[id]
	return exists
}

// ResetSeen clears the session-local seen set, typically before a
// fresh scan.
func (s *Store) ResetSeen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[string]struct{})
}

// FilePath returns the resolved path backing the store.
func (s *Store) FilePath() string {
	return s.filePath
}

func (s *Store) saveLocked() error {
	state := persistedState{
		Version:      currentVersion,
		DismissedIDs: append([]string(nil), s.order...),
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return common.WrapError(err, "failed to marshal dismissal state")
	}
	return common.WriteFileAtomic(s.filePath, data, 0o600)
}
