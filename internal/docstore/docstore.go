// Package docstore persists the dashboard's JSON documents. Documents are
// replaced wholesale with write-new-then-rename so concurrent readers never
// observe a half-written file.
package docstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/renameio"
)

// Document file names.
const (
	RawInventoryFile = "admin_nodes_inventory.json"
	InventoryFile    = "datacenter_inventory.json"
	MetricsFile      = "metrics.json"
)

// ErrNotFound is returned when a document has never been produced.
var ErrNotFound = errors.New("document not found")

// Store reads and writes JSON documents under a single data directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Path returns the on-disk path of a document.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// WriteJSON marshals v and atomically replaces the named document.
func (s *Store) WriteJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", name, err)
	}
	return s.WriteRaw(name, data)
}

// WriteRaw atomically replaces the named document with raw bytes.
func (s *Store) WriteRaw(name string, data []byte) error {
	if err := renameio.WriteFile(s.Path(name), data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	s.logger.Debug("document written", "name", name, "bytes", len(data))
	return nil
}

// ReadRaw returns the raw bytes of the named document, or ErrNotFound when
// it has never been produced.
func (s *Store) ReadRaw(name string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

// ReadJSON reads and unmarshals the named document into v.
func (s *Store) ReadJSON(name string, v any) error {
	data, err := s.ReadRaw(name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}
