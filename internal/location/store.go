package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists the ordered location list and its active index
type Store interface {
	Load(ctx context.Context) (List, error)
	Save(ctx context.Context, list List) error
}

const fileStoreVersion = 1

// fileDocument is the on-disk schema of a FileStore
type fileDocument struct {
	Version   int        `json:"version"`
	Active    int        `json:"active"`
	Locations []Location `json:"locations"`
}

// FileStore keeps the location list as a JSON document
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed store at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the list; a missing file yields an empty list
func (s *FileStore) Load(ctx context.Context) (List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return List{}, nil
	}
	if err != nil {
		return List{}, fmt.Errorf("failed to read location file: %w", err)
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return List{}, fmt.Errorf("failed to parse location file: %w", err)
	}
	if doc.Version != fileStoreVersion {
		return List{}, fmt.Errorf("unsupported location file version %d", doc.Version)
	}

	list := List{Locations: doc.Locations}
	list.SetActive(doc.Active)
	return list, nil
}

// Save writes the list atomically through a temp file rename
func (s *FileStore) Save(ctx context.Context, list List) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	valid := make([]Location, 0, len(list.Locations))
	for _, loc := range list.Locations {
		if !loc.Invalid {
			valid = append(valid, loc)
		}
	}

	doc := fileDocument{
		Version:   fileStoreVersion,
		Active:    clamp(list.Active, len(valid)),
		Locations: valid,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal locations: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create location directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write location file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace location file: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store. weatherd uses it when locations
// should not outlive the process; tests use it as a fixture.
type MemoryStore struct {
	mu   sync.Mutex
	list List
}

// NewMemoryStore creates a store seeded with list
func NewMemoryStore(list List) *MemoryStore {
	return &MemoryStore{list: list.Clone()}
}

func (s *MemoryStore) Load(ctx context.Context) (List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, list List) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = list.Clone()
	return nil
}

// Migrate imports a legacy delimited string into store when the store is
// empty. It reports whether anything was written. Invalid legacy entries
// are dropped and returned in the error alongside a successful import.
func Migrate(ctx context.Context, legacy string, active int, store Store) (bool, error) {
	current, err := store.Load(ctx)
	if err != nil {
		return false, err
	}
	if current.Len() > 0 || legacy == "" {
		return false, nil
	}

	list, decodeErr := Decode(legacy)
	valid := List{}
	for _, loc := range list.Locations {
		if !loc.Invalid {
			valid.Add(loc)
		}
	}
	if valid.Len() == 0 {
		return false, decodeErr
	}
	valid.SetActive(active)

	if err := store.Save(ctx, valid); err != nil {
		return false, fmt.Errorf("failed to save migrated locations: %w", err)
	}
	return true, decodeErr
}

// Verify that stores implement the interface
var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
