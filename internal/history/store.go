// Package history persists resolved configurations as JSON records keyed by
// their resolution ID.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/resolver"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/pkg/types"
)

var (
	ErrNotFound = errors.New("resolution not found")
)

// Record is one stored resolution.
type Record struct {
	ID     string        `json:"id"`
	Source string        `json:"source"`
	Chain  []string      `json:"chain"`
	Files  []string      `json:"files"`
	Config *types.Object `json:"config"`
	Time   time.Time     `json:"time"`
}

// NewRecord builds a Record from a resolver result.
func NewRecord(source string, res *resolver.Result) Record {
	return Record{
		ID:     res.ID,
		Source: source,
		Chain:  res.Chain,
		Files:  res.Files,
		Config: res.Config,
		Time:   time.Now().UTC(),
	}
}

// Store keeps records as <dir>/<id>.json.
type Store struct {
	fs  afero.Fs
	dir string
	mu  sync.RWMutex
}

// New creates a Store rooted at dir. A nil fs means the OS filesystem.
func New(fs afero.Fs, dir string) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Store{fs: fs, dir: dir}
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Put stores rec, replacing any record with the same ID.
func (s *Store) Put(ctx context.Context, rec Record) error {
	if rec.ID == "" || strings.ContainsAny(rec.ID, `/\`) {
		return fmt.Errorf("invalid record id %q", rec.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}

	// Write to temp file first, then rename
	filePath := s.path(rec.ID)
	tmpPath := filePath + ".tmp"
	if err := afero.WriteFile(s.fs, tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := s.fs.Rename(tmpPath, filePath); err != nil {
		s.fs.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

// Get returns the record with the given ID.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := afero.ReadFile(s.fs, s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Record{}, fmt.Errorf("failed to read file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal %s: %w", id, err)
	}
	return rec, nil
}

// Delete removes a record. Deleting a missing record is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// List returns the stored IDs, newest first. ULIDs sort by creation time.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list()
}

func (s *Store) list() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasSuffix(name, ".json") {
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// Latest returns the newest record whose source is source, or any newest
// record when source is empty.
func (s *Store) Latest(ctx context.Context, source string) (Record, error) {
	ids, err := s.List(ctx)
	if err != nil {
		return Record{}, err
	}
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		if source == "" || rec.Source == source {
			return rec, nil
		}
	}
	return Record{}, ErrNotFound
}

// Prune keeps the newest keep records and deletes the rest. It returns the
// number of deleted records.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.list()
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	if len(ids) <= keep {
		return 0, nil
	}

	deleted := 0
	for _, id := range ids[keep:] {
		if err := s.fs.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
			return deleted, fmt.Errorf("failed to delete file: %w", err)
		}
		deleted++
	}
	return deleted, nil
}
