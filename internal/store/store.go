// Package store is the JSON-file-backed event store behind the API.
// The scheduling engine never touches it directly; the web layer reads
// events out and hands them to the pure engine functions.
package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"dashcal/internal/model"
)

// ErrNotFound is returned when an event id does not exist.
var ErrNotFound = errors.New("store: event not found")

// Store holds the event set in memory and mirrors every mutation to a
// JSON file (atomic temp-file + rename, 0600).
type Store struct {
	mu     sync.RWMutex
	path   string
	events []model.Event
}

// storeFile is the on-disk shape.
type storeFile struct {
	Events []model.Event `json:"events"`
}

// Open loads the store at path, starting empty when the file does not
// exist yet.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store: path is empty")
	}
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the backing file, replacing the in-memory set. A
// missing file resets to empty.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.mu.Lock()
			s.events = nil
			s.mu.Unlock()
			return nil
		}
		return err
	}

	var f storeFile
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}

	s.mu.Lock()
	s.events = f.Events
	s.mu.Unlock()
	return nil
}

// Events returns a copy of the current event set.
func (s *Store) Events() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Get returns the event with the given id.
func (s *Store) Get(id string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ev := range s.events {
		if ev.ID == id {
			return ev, nil
		}
	}
	return model.Event{}, ErrNotFound
}

// Add inserts ev, assigning a fresh UUID when it carries no id, and
// persists the store. The stored event is returned.
func (s *Store) Add(ev model.Event) (model.Event, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.events {
		if existing.ID == ev.ID {
			return model.Event{}, errors.New("store: duplicate event id " + ev.ID)
		}
	}

	s.events = append(s.events, ev)
	if err := s.saveLocked(); err != nil {
		s.events = s.events[:len(s.events)-1]
		return model.Event{}, err
	}
	return ev, nil
}

// Update replaces the event with ev.ID and persists the store.
func (s *Store) Update(ev model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.events {
		if s.events[i].ID == ev.ID {
			prev := s.events[i]
			s.events[i] = ev
			if err := s.saveLocked(); err != nil {
				s.events[i] = prev
				return err
			}
			return nil
		}
	}
	return ErrNotFound
}

// Delete removes the event with the given id and persists the store.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.events {
		if s.events[i].ID == id {
			prev := s.events
			s.events = append(append([]model.Event{}, s.events[:i]...), s.events[i+1:]...)
			if err := s.saveLocked(); err != nil {
				s.events = prev
				return err
			}
			return nil
		}
	}
	return ErrNotFound
}

// ReplaceSource swaps all events carrying the given source id for the
// provided set, in one persisted step. Used by the ICS refresh loop so
// a feed's removed events disappear locally too.
func (s *Store) ReplaceSource(sourceID string, events []model.Event) error {
	if sourceID == "" {
		return errors.New("store: source id is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]model.Event, 0, len(s.events)+len(events))
	for _, ev := range s.events {
		if ev.SourceID != sourceID {
			kept = append(kept, ev)
		}
	}
	for _, ev := range events {
		ev.SourceID = sourceID
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		kept = append(kept, ev)
	}

	prev := s.events
	s.events = kept
	if err := s.saveLocked(); err != nil {
		s.events = prev
		return err
	}
	return nil
}

// saveLocked writes the store file atomically. Callers hold s.mu.
func (s *Store) saveLocked() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(storeFile{Events: s.events}, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".dashcal-events-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, s.path)
}
