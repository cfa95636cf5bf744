package debuginfo

import (
	"fmt"
	"io"
	"os"
	"sync"

	"ember/internal/backtrace"
	"ember/internal/bytecode"
)

// Store implements backtrace.Store over a lazily loaded Table.
//
// The first lookup (or an explicit Load) reads the table from the
// configured path; the result, success or failure, is cached for the
// process lifetime. Load failure is reported once to Warn and afterwards
// every lookup simply misses, so decoding degrades to unresolved frames
// instead of erroring. Concurrent lookups are safe; the mutex only guards
// the rare load.
type Store struct {
	// Warn receives the one-time load failure notice. Defaults to stderr.
	Warn io.Writer

	mu      sync.RWMutex
	path    string
	loaded  bool
	table   *Table
	loadErr error
}

// NewStore creates a store reading from path. An empty path falls back to
// the EMBER_DEBUG_FILE environment variable; if that is unset too, the
// store has no debug information and every lookup misses.
func NewStore(path string) *Store {
	if path == "" {
		path = os.Getenv(EnvDebugFile)
	}
	return &Store{path: path}
}

// NewStoreFromTable wraps an already materialized table (assembler output),
// skipping the disk round trip.
func NewStoreFromTable(t *Table) *Store {
	return &Store{loaded: true, table: t}
}

// Load forces the table load now. Idempotent: only the first call does
// work, later calls return the cached outcome.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	return s.loadErr
}

func (s *Store) loadLocked() {
	if s.loaded {
		return
	}
	s.loaded = true
	if s.path == "" {
		return
	}
	t, err := Read(s.path)
	if err != nil {
		s.loadErr = err
		w := s.Warn
		if w == nil {
			w = os.Stderr
		}
		fmt.Fprintf(w, "ember: cannot load debug info: %v\n", err)
		return
	}
	s.table = t
}

// Lookup resolves a bytecode slot against the table, loading it on first
// use. Host slots and misses of any kind return false.
func (s *Store) Lookup(slot backtrace.Slot) (backtrace.Location, bool) {
	if slot.Kind != backtrace.SlotBytecode {
		return backtrace.Location{}, false
	}

	s.mu.RLock()
	loaded, table := s.loaded, s.table
	s.mu.RUnlock()

	if !loaded {
		s.mu.Lock()
		s.loadLocked()
		table = s.table
		s.mu.Unlock()
	}
	if table == nil {
		return backtrace.Location{}, false
	}
	return table.Lookup(bytecode.PC(slot.PC))
}
