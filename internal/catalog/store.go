package catalog

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Store holds the active catalog snapshot. Reads are lock-free; Reload is a
// rare exclusive operation that builds a complete new snapshot and swaps it
// in atomically, so in-flight analyses keep their consistent view.
type Store struct {
	logger  *logrus.Logger
	dir     string
	current atomic.Pointer[Snapshot]

	reloadMu sync.Mutex
	version  int
}

// NewStore loads the initial snapshot from dir (or the embedded catalogs
// when dir is empty) and returns a ready store. A load failure here is
// fatal to startup: the service must not run without a valid catalog.
func NewStore(logger *logrus.Logger, dir string) (*Store, error) {
	s := &Store{
		logger: logger,
		dir:    dir,
	}
	if _, err := s.Reload(); err != nil {
		return nil, fmt.Errorf("failed to load catalogs: %w", err)
	}
	return s, nil
}

// Snapshot returns the active immutable snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Reload re-reads both catalogs from their source and atomically replaces
// the active snapshot. On failure the previous snapshot stays active.
func (s *Store) Reload() (*Snapshot, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	next := s.version + 1
	snap, err := buildSnapshot(s.dir, next, s.logger.Warnf)
	if err != nil {
		return nil, err
	}

	s.version = next
	s.current.Store(snap)

	s.logger.WithFields(logrus.Fields{
		"catalog_version": snap.Version,
		"biomarkers":      len(snap.Biomarkers),
		"categories":      len(snap.Categories),
		"rules":           len(snap.Rules),
		"triggers":        len(snap.Triggers),
	}).Info("Catalog snapshot loaded")

	return snap, nil
}
