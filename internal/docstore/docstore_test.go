package docstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	store, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	type doc struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	in := doc{Name: "fleet", Count: 42}
	if err := store.WriteJSON("test.json", in); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var out doc
	if err := store.ReadJSON("test.json", &out); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if out != in {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}

func TestReadMissingDocument(t *testing.T) {
	store, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := store.ReadRaw("never-written.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadRaw error = %v, want ErrNotFound", err)
	}
	var v any
	if err := store.ReadJSON("never-written.json", &v); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadJSON error = %v, want ErrNotFound", err)
	}
}

func TestWriteRawReplacesWholeFile(t *testing.T) {
	store, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := store.WriteRaw("doc.json", []byte(`{"version":1,"padding":"xxxxxxxxxxxx"}`)); err != nil {
		t.Fatalf("WriteRaw: %v", err)
	}
	if err := store.WriteRaw("doc.json", []byte(`{"version":2}`)); err != nil {
		t.Fatalf("WriteRaw: %v", err)
	}

	data, err := store.ReadRaw("doc.json")
	if err != nil {
		t.Fatalf("ReadRaw: %v", err)
	}
	if string(data) != `{"version":2}` {
		t.Errorf("contents = %s", data)
	}
}

func TestNewCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	if _, err := New(dir, nil); err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("data directory not created: %v", err)
	}
}

func TestPath(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := store.Path(InventoryFile); got != filepath.Join(dir, InventoryFile) {
		t.Errorf("Path = %q", got)
	}
}
