package store

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"sync"
	"time"
)

// Mapping is the persisted document: repository -> relative path -> remote path.
type Mapping map[string]map[string]string

// MapStore holds learned (repository, relative path) -> remote path mappings
// backed by a JSON file shared with other missile processes.
// Every mutation re-reads the file, applies one key and saves under one writer lock.
type MapStore struct {
	mu   sync.Mutex
	path string
	data Mapping

	// Stamp of the file content held in data.
	modTime time.Time
	size    int64
}

// NewMapStore creates a store backed by path. Call Initialize and Load before use.
func NewMapStore(path string) *MapStore {
	return &MapStore{
		path: path,
		data: make(Mapping),
	}
}

// Path returns the backing file path.
func (s *MapStore) Path() string {
	return s.path
}

// Initialize creates the backing file with an empty mapping if it is missing.
// It is safe to call repeatedly.
func (s *MapStore) Initialize() error {
	return EnsureJSONFile(s.path, Mapping{})
}

// Load replaces the in-memory mapping with the file content.
// On ErrDataCorruption the current mapping is kept unchanged.
func (s *MapStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked(true)
}

// reloadLocked reads the file into data. Unless force is set, a file whose
// modification time and size match the last read or write is not read again.
// A missing file keeps the in-memory mapping.
func (s *MapStore) reloadLocked(force bool) error {
	info, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking %s: %w", s.path, err)
	}
	if !force && info.ModTime().Equal(s.modTime) && info.Size() == s.size {
		return nil
	}

	loaded := make(Mapping)
	if err := ReadJSON(s.path, &loaded); err != nil {
		return err
	}
	if loaded == nil {
		loaded = make(Mapping)
	}
	for repo, paths := range loaded {
		if paths == nil {
			loaded[repo] = make(map[string]string)
		}
	}
	s.data = loaded
	s.modTime, s.size = info.ModTime(), info.Size()
	return nil
}

// refreshLocked picks up changes written by other processes. A failed read
// keeps the in-memory mapping.
func (s *MapStore) refreshLocked() {
	_ = s.reloadLocked(false)
}

// Save writes the whole mapping atomically.
func (s *MapStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *MapStore) saveLocked() error {
	if err := WriteJSONAtomic(s.path, s.data); err != nil {
		return fmt.Errorf("saving mapping: %w", err)
	}
	if info, err := os.Stat(s.path); err == nil {
		s.modTime, s.size = info.ModTime(), info.Size()
	}
	return nil
}

// Get returns the remote path recorded for (repo, relativePath).
func (s *MapStore) Get(repo string, relativePath string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
	remote, ok := s.data[repo][relativePath]
	return remote, ok
}

// Set records remotePath for (repo, relativePath) and saves. The last write wins.
// Mappings other processes saved in the meantime are kept. A corrupt file is
// not overwritten.
func (s *MapStore) Set(repo string, relativePath string, remotePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reloadLocked(true); err != nil {
		return fmt.Errorf("reading mapping before update: %w", err)
	}
	paths, ok := s.data[repo]
	if !ok {
		paths = make(map[string]string)
		s.data[repo] = paths
	}
	previous, existed := paths[relativePath]
	paths[relativePath] = remotePath

	if err := s.saveLocked(); err != nil {
		if existed {
			paths[relativePath] = previous
		} else {
			delete(paths, relativePath)
		}
		return err
	}
	return nil
}

// Delete removes the mapping for (repo, relativePath) and saves.
// It reports whether a mapping existed.
func (s *MapStore) Delete(repo string, relativePath string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reloadLocked(true); err != nil {
		return false, fmt.Errorf("reading mapping before update: %w", err)
	}
	previous, ok := s.data[repo][relativePath]
	if !ok {
		return false, nil
	}
	delete(s.data[repo], relativePath)

	if err := s.saveLocked(); err != nil {
		s.data[repo][relativePath] = previous
		return false, err
	}
	return true, nil
}

// Entries returns a copy of the mappings recorded for repo.
func (s *MapStore) Entries(repo string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
	return maps.Clone(s.data[repo])
}

// Count returns the number of mappings recorded for repo.
func (s *MapStore) Count(repo string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
	return len(s.data[repo])
}
