// Package jsonfile provides a JSON file-based store for hosted sessions.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/hay-kot/lobby/internal/core/session"
)

// SessionFile is the root JSON structure stored on disk.
type SessionFile struct {
	Sessions []session.Hosted `json:"sessions"`
}

// Store implements session.Store using a JSON file for persistence. Writes
// take an exclusive flock on a sibling lock file so a server and CLI
// commands can share one data directory.
type Store struct {
	path string
	mu   sync.RWMutex
}

var _ session.Store = (*Store)(nil)

// New creates a new JSON file store at the given path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// List returns all hosted sessions in creation order.
func (s *Store) List(ctx context.Context) ([]session.Hosted, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []session.Hosted
	err := s.withFileLock(syscall.LOCK_SH, func() error {
		file, err := s.load()
		if err != nil {
			return err
		}
		out = file.Sessions
		return nil
	})
	return out, err
}

// Get returns a hosted session by ID. Returns ErrNotFound if not found.
func (s *Store) Get(ctx context.Context, id string) (session.Hosted, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		found session.Hosted
		ok    bool
	)
	err := s.withFileLock(syscall.LOCK_SH, func() error {
		file, err := s.load()
		if err != nil {
			return err
		}
		found, ok = lookup(file.Sessions, id)
		return nil
	})
	if err != nil {
		return session.Hosted{}, err
	}
	if !ok {
		return session.Hosted{}, session.ErrNotFound
	}

	return found, nil
}

// Save creates or updates a hosted session.
func (s *Store) Save(ctx context.Context, h session.Hosted) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withFileLock(syscall.LOCK_EX, func() error {
		file, err := s.load()
		if err != nil {
			return err
		}

		idx := slices.IndexFunc(file.Sessions, func(existing session.Hosted) bool { return existing.ID == h.ID })
		if idx >= 0 {
			file.Sessions[idx] = h
		} else {
			file.Sessions = append(file.Sessions, h)
		}

		return s.save(file)
	})
}

// Update applies fn to the session with the given ID and persists the result
// under one exclusive lock. If fn returns an error nothing is written and the
// error is returned. Returns ErrNotFound if not found.
func (s *Store) Update(ctx context.Context, id string, fn func(*session.Hosted) error) (session.Hosted, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated session.Hosted
	err := s.withFileLock(syscall.LOCK_EX, func() error {
		file, err := s.load()
		if err != nil {
			return err
		}

		idx := slices.IndexFunc(file.Sessions, func(h session.Hosted) bool { return h.ID == id })
		if idx < 0 {
			return session.ErrNotFound
		}

		h := file.Sessions[idx]
		if err := fn(&h); err != nil {
			return err
		}
		file.Sessions[idx] = h
		updated = h

		return s.save(file)
	})
	return updated, err
}

// Delete removes a hosted session by ID. Returns ErrNotFound if not found.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withFileLock(syscall.LOCK_EX, func() error {
		file, err := s.load()
		if err != nil {
			return err
		}

		idx := slices.IndexFunc(file.Sessions, func(h session.Hosted) bool { return h.ID == id })
		if idx < 0 {
			return session.ErrNotFound
		}

		file.Sessions = slices.Delete(file.Sessions, idx, idx+1)
		return s.save(file)
	})
}

// Prune removes sessions last updated before cutoff and returns how many
// were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	err := s.withFileLock(syscall.LOCK_EX, func() error {
		file, err := s.load()
		if err != nil {
			return err
		}

		before := len(file.Sessions)
		file.Sessions = slices.DeleteFunc(file.Sessions, func(h session.Hosted) bool {
			return h.UpdatedAt.Before(cutoff)
		})
		removed = before - len(file.Sessions)
		if removed == 0 {
			return nil
		}

		return s.save(file)
	})
	return removed, err
}

func lookup(sessions []session.Hosted, id string) (session.Hosted, bool) {
	for _, h := range sessions {
		if h.ID == id {
			return h, true
		}
	}
	return session.Hosted{}, false
}

// withFileLock acquires a file lock, executes fn, then releases the lock.
func (s *Store) withFileLock(lockType int, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(s.path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	if err := syscall.Flock(int(f.Fd()), lockType); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN) //nolint:errcheck

	return fn()
}

// load reads the session file from disk.
// Returns empty SessionFile if file doesn't exist.
func (s *Store) load() (SessionFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return SessionFile{}, nil
		}
		return SessionFile{}, fmt.Errorf("read sessions file: %w", err)
	}

	if len(data) == 0 {
		return SessionFile{}, nil
	}

	var file SessionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return SessionFile{}, fmt.Errorf("parse sessions file: %w", err)
	}

	return file, nil
}

// save writes the session file to disk atomically.
func (s *Store) save(file SessionFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create sessions directory: %w", err)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
