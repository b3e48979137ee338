package refresh

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fabriclabs/dcdash/internal/docstore"
	"github.com/fabriclabs/dcdash/internal/inventory"
	"github.com/fabriclabs/dcdash/internal/metrics"
)

const rawInventory = `[
	{
		"id": "n1", "name": "vaeq-cu12a-r001-prod-hv-01",
		"type": "SLICE_TYPE_VCPU_88_MEM_480_H100_SXM_80GB_4_IB",
		"location": "vaeq-cu", "ib_network_id": "fab-1",
		"state": "Available", "mode": "AGENT_MODE_NORMAL", "avail": "2", "used": 0
	}
]`

// stubRunner returns fixed output, optionally blocking until released.
type stubRunner struct {
	out     []byte
	err     error
	release chan struct{}
}

func (s *stubRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if s.release != nil {
		<-s.release
	}
	return s.out, s.err
}

type stubMetrics struct {
	err error
}

func (s *stubMetrics) Build(ctx context.Context, now time.Time) (*metrics.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &metrics.Document{LastUpdated: now.UTC().Format(time.RFC3339)}, nil
}

// waitIdle polls until the orchestrator reports no run in flight.
func waitIdle(t *testing.T, o *Orchestrator) Status {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st := o.Snapshot()
		if !st.InProgress {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("refresh did not finish in time")
	return Status{}
}

func newTestStore(t *testing.T) *docstore.Store {
	t.Helper()
	store, err := docstore.New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("docstore.New: %v", err)
	}
	return store
}

func TestRefreshSuccess(t *testing.T) {
	store := newTestStore(t)
	o := New(&stubRunner{out: []byte(rawInventory)}, "cloud-admin", store, &stubMetrics{}, nil)

	if err := o.Trigger(); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	st := waitIdle(t, o)
	if st.Progress != 100 {
		t.Errorf("Progress = %d, want 100", st.Progress)
	}
	if st.Message != "Refresh complete" {
		t.Errorf("Message = %q", st.Message)
	}
	if st.Error != nil {
		t.Errorf("Error = %v, want nil", *st.Error)
	}
	if st.LastUpdated == nil {
		t.Error("LastUpdated not set")
	}

	// All three documents must exist.
	if _, err := store.ReadRaw(docstore.RawInventoryFile); err != nil {
		t.Errorf("raw inventory missing: %v", err)
	}
	var doc inventory.Document
	if err := store.ReadJSON(docstore.InventoryFile, &doc); err != nil {
		t.Fatalf("inventory missing: %v", err)
	}
	if doc.GlobalStats.TotalNodes != 1 || doc.GlobalStats.TotalGPUs != 8 {
		t.Errorf("inventory rollup = %+v", doc.GlobalStats.Rollup)
	}
	var mdoc metrics.Document
	if err := store.ReadJSON(docstore.MetricsFile, &mdoc); err != nil {
		t.Errorf("metrics missing: %v", err)
	}
}

func TestRefreshAdminCLIFailure(t *testing.T) {
	store := newTestStore(t)
	o := New(&stubRunner{err: errors.New("token expired")}, "cloud-admin", store, &stubMetrics{}, nil)

	if err := o.Trigger(); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	st := waitIdle(t, o)
	if st.Error == nil || *st.Error != "token expired" {
		t.Errorf("Error = %v, want token expired", st.Error)
	}
	if st.Message != "Refresh failed" {
		t.Errorf("Message = %q", st.Message)
	}
	if st.LastUpdated != nil {
		t.Error("failed run must not set LastUpdated")
	}

	// No documents written past the failing step.
	if _, err := store.ReadRaw(docstore.InventoryFile); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("inventory should not exist, got %v", err)
	}
}

func TestRefreshBadInventoryJSON(t *testing.T) {
	store := newTestStore(t)
	o := New(&stubRunner{out: []byte("not json")}, "cloud-admin", store, &stubMetrics{}, nil)

	if err := o.Trigger(); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	st := waitIdle(t, o)
	if st.Error == nil {
		t.Fatal("expected parse error in status")
	}

	// The raw fetch is persisted even when parsing fails, for debugging.
	if _, err := store.ReadRaw(docstore.RawInventoryFile); err != nil {
		t.Errorf("raw inventory missing: %v", err)
	}
}

func TestRefreshMetricsFailureKeepsInventory(t *testing.T) {
	store := newTestStore(t)
	o := New(&stubRunner{out: []byte(rawInventory)}, "cloud-admin", store,
		&stubMetrics{err: errors.New("tenant CLI down")}, nil)

	if err := o.Trigger(); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	st := waitIdle(t, o)
	if st.Error == nil {
		t.Fatal("expected error in status")
	}
	if _, err := store.ReadRaw(docstore.InventoryFile); err != nil {
		t.Errorf("inventory from earlier step should survive: %v", err)
	}
	if _, err := store.ReadRaw(docstore.MetricsFile); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("metrics should not exist, got %v", err)
	}
}

func TestRefreshSingleFlight(t *testing.T) {
	release := make(chan struct{})
	runner := &stubRunner{out: []byte(rawInventory), release: release}
	o := New(runner, "cloud-admin", newTestStore(t), &stubMetrics{}, nil)

	if err := o.Trigger(); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if err := o.Trigger(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Trigger = %v, want ErrAlreadyRunning", err)
	}

	close(release)
	waitIdle(t, o)

	// A fresh trigger is allowed once the first run finishes.
	runner.release = nil
	if err := o.Trigger(); err != nil {
		t.Errorf("Trigger after completion: %v", err)
	}
	waitIdle(t, o)
}

func TestRefreshPreservesLastUpdatedAcrossRuns(t *testing.T) {
	store := newTestStore(t)
	o := New(&stubRunner{out: []byte(rawInventory)}, "cloud-admin", store, &stubMetrics{}, nil)

	if err := o.Trigger(); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	first := waitIdle(t, o)
	if first.LastUpdated == nil {
		t.Fatal("LastUpdated not set")
	}

	// A failing run keeps the previous success timestamp.
	o.runner = &stubRunner{err: errors.New("boom")}
	if err := o.Trigger(); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	st := waitIdle(t, o)
	if st.LastUpdated == nil || !st.LastUpdated.Equal(*first.LastUpdated) {
		t.Errorf("LastUpdated = %v, want preserved %v", st.LastUpdated, first.LastUpdated)
	}
}
