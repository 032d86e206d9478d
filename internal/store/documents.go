package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Document names, one file-backed document per concern.
const (
	DocORBCache         = "orb_cache.json"
	DocSentimentHistory = "sentiment_history.json"
	DocTradeQueue       = "trade_queue.json"
	DocOrderHistory     = "order_history.json"
	DocLastRun          = "last_run.json"
)

// DocumentStore is the persistence surface for the engine's state
// documents. Each document is read-modify-written as a whole; the on-disk
// format is an implementation detail behind this interface.
type DocumentStore interface {
	// Load decodes the named document into v. A missing document leaves v
	// untouched and returns nil (load-or-default-empty).
	Load(name string, v any) error
	// Save atomically overwrites the named document with v.
	Save(name string, v any) error
	// Update runs mutate between a Load and a Save of the same document,
	// holding the store lock so concurrent mutations cannot interleave.
	Update(name string, v any, mutate func() error) error
}

// FileStore keeps each document as a JSON file under a base directory.
// Saves go through a temp file and rename so a crash mid-write never
// leaves a truncated document behind.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

var _ DocumentStore = (*FileStore)(nil)

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *FileStore) Load(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(name, v)
}

func (s *FileStore) load(name string, v any) error {
	b, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) Save(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(name, v)
}

func (s *FileStore) save(name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, s.path(name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) Update(name string, v any, mutate func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(name, v); err != nil {
		return err
	}
	if err := mutate(); err != nil {
		return err
	}
	return s.save(name, v)
}
