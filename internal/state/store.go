package state

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store is a snapshot file that remembers the bytes it last read or wrote, so
// a long-lived owner can tell when another process replaced the file.
type Store struct {
	path string

	mu     sync.Mutex
	last   []byte
	exists bool
}

// NewStore returns a Store for the snapshot at path. Nothing is read until
// Load.
func NewStore(path string) *Store {
	return &Store{path: filepath.Clean(path)}
}

// Path returns the snapshot file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads and decodes the snapshot. A missing file yields an empty song at
// DefaultTempo. A file that fails to decode is not recorded.
func (s *Store) Load() (*Song, error) {
	data, exists, err := s.read()
	if err != nil {
		return nil, err
	}
	song := NewSong(DefaultTempo)
	if exists {
		if song, err = DecodeSnapshot(data); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	s.last, s.exists = data, exists
	s.mu.Unlock()
	return song, nil
}

// Changed reports whether the file on disk differs from what the store last
// read or wrote.
func (s *Store) Changed() (bool, error) {
	data, exists, err := s.read()
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if exists != s.exists {
		return true, nil
	}
	return !bytes.Equal(data, s.last), nil
}

// Save writes the song atomically and records the written bytes.
func (s *Store) Save(song *Song) error {
	data, err := EncodeSnapshot(song)
	if err != nil {
		return err
	}
	if err := writeSnapshotFile(s.path, data); err != nil {
		return err
	}

	s.mu.Lock()
	s.last, s.exists = data, true
	s.mu.Unlock()
	return nil
}

func (s *Store) read() ([]byte, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read snapshot: %w", err)
	}
	return data, true, nil
}
