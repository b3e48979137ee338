// Package refresh runs the three-step inventory refresh as a single-flight
// background task and tracks its progress.
package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fabriclabs/dcdash/internal/clitool"
	"github.com/fabriclabs/dcdash/internal/docstore"
	"github.com/fabriclabs/dcdash/internal/inventory"
	"github.com/fabriclabs/dcdash/internal/metrics"
)

// ErrAlreadyRunning is returned when a refresh is triggered while one is in
// flight. The in-flight run is not disturbed.
var ErrAlreadyRunning = errors.New("refresh already in progress")

// Status is the refresh progress record polled by clients. A snapshot is
// always internally consistent; it may be momentarily stale.
type Status struct {
	InProgress  bool       `json:"in_progress"`
	Progress    int        `json:"progress"`
	Message     string     `json:"message"`
	Error       *string    `json:"error"`
	LastUpdated *time.Time `json:"last_updated"`
}

// MetricsBuilder produces the customer metrics document.
type MetricsBuilder interface {
	Build(ctx context.Context, now time.Time) (*metrics.Document, error)
}

// Orchestrator owns the refresh state machine. It is the only writer of the
// status record and of the persisted documents; at most one run is active at
// a time.
type Orchestrator struct {
	runner   clitool.Runner
	adminCLI string
	store    *docstore.Store
	metrics  MetricsBuilder
	logger   *slog.Logger

	mu     sync.Mutex
	status Status
}

// New creates an orchestrator. adminCLI is the binary that lists the raw
// node inventory.
func New(runner clitool.Runner, adminCLI string, store *docstore.Store, mb MetricsBuilder, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		runner:   runner,
		adminCLI: adminCLI,
		store:    store,
		metrics:  mb,
		logger:   logger,
	}
}

// Snapshot returns a copy of the current status.
func (o *Orchestrator) Snapshot() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Trigger starts a refresh in the background. It returns ErrAlreadyRunning
// if one is already in flight; the caller's request returns immediately
// either way.
func (o *Orchestrator) Trigger() error {
	o.mu.Lock()
	if o.status.InProgress {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	last := o.status.LastUpdated
	o.status = Status{
		InProgress:  true,
		Message:     "Refresh starting...",
		LastUpdated: last,
	}
	o.mu.Unlock()

	go o.run()
	return nil
}

func (o *Orchestrator) setProgress(progress int, message string) {
	o.mu.Lock()
	o.status.Progress = progress
	o.status.Message = message
	o.mu.Unlock()
	o.logger.Info("refresh progress", "progress", progress, "message", message)
}

func (o *Orchestrator) finish() {
	now := time.Now().UTC()
	o.mu.Lock()
	o.status.Progress = 100
	o.status.Message = "Refresh complete"
	o.status.LastUpdated = &now
	o.mu.Unlock()
}

func (o *Orchestrator) fail(err error) {
	msg := err.Error()
	o.mu.Lock()
	o.status.Error = &msg
	o.status.Message = "Refresh failed"
	o.mu.Unlock()
	o.logger.Error("refresh failed", "error", err)
}

// countUnplacedNodes tallies nodes whose name parsing fell back to the
// unknown floor placeholder.
func countUnplacedNodes(doc *inventory.Document) int {
	count := 0
	for _, loc := range doc.Locations {
		if floor, ok := loc.Floors["unknown"]; ok {
			count += floor.TotalNodes
		}
	}
	return count
}

// run executes the three steps in strict sequence. Each step's output file
// is fully written before the next step begins. All failures, panics
// included, are converted into the status record; nothing escapes to crash
// the serving process.
func (o *Orchestrator) run() {
	defer func() {
		if rec := recover(); rec != nil {
			o.fail(fmt.Errorf("refresh panicked: %v", rec))
		}
		o.mu.Lock()
		o.status.InProgress = false
		o.mu.Unlock()
	}()

	// The steps are deliberately not cancellable: the refresh is a
	// human-triggered internal task bounded only by the external tools'
	// own timeouts.
	ctx := context.Background()

	o.setProgress(10, "Fetching node inventory from admin CLI...")
	raw, err := o.runner.Run(ctx, o.adminCLI, "nodes", "list", "--format", "json")
	if err != nil {
		o.fail(err)
		return
	}
	if err := o.store.WriteRaw(docstore.RawInventoryFile, raw); err != nil {
		o.fail(err)
		return
	}

	o.setProgress(50, "Processing datacenter hierarchy...")
	var nodes []inventory.RawNode
	if err := json.Unmarshal(raw, &nodes); err != nil {
		o.fail(fmt.Errorf("parsing admin inventory: %w", err))
		return
	}
	doc := inventory.Aggregate(nodes, time.Now().UTC())
	if err := o.store.WriteJSON(docstore.InventoryFile, doc); err != nil {
		o.fail(err)
		return
	}
	if degraded := countUnplacedNodes(doc); degraded > 0 {
		o.logger.Warn("nodes with unparseable names placed on unknown floor", "count", degraded)
	}
	o.logger.Info("inventory processed",
		"nodes", doc.GlobalStats.TotalNodes,
		"gpus", doc.GlobalStats.TotalGPUs,
		"locations", len(doc.Locations),
	)

	o.setProgress(80, "Updating customer metrics...")
	mdoc, err := o.metrics.Build(ctx, time.Now().UTC())
	if err != nil {
		o.fail(err)
		return
	}
	if err := o.store.WriteJSON(docstore.MetricsFile, mdoc); err != nil {
		o.fail(err)
		return
	}

	o.finish()
}
