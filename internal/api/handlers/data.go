package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fabriclabs/dcdash/internal/docstore"
	"github.com/fabriclabs/dcdash/internal/inventory"
)

// DataHandler serves the persisted JSON documents and the capacity query.
type DataHandler struct {
	store  *docstore.Store
	logger *slog.Logger
}

// NewDataHandler creates a new data handler.
func NewDataHandler(store *docstore.Store, logger *slog.Logger) *DataHandler {
	return &DataHandler{
		store:  store,
		logger: logger,
	}
}

// serveDocument writes a persisted document verbatim. A document that has
// never been produced is 404; a corrupt one is 500.
func (h *DataHandler) serveDocument(w http.ResponseWriter, name string) {
	data, err := h.store.ReadRaw(name)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			WriteNotFound(w, name+" not found")
			return
		}
		h.logger.Error("failed to read document", "name", name, "error", err)
		WriteInternalError(w, "failed to read "+name)
		return
	}

	if !json.Valid(data) {
		h.logger.Error("persisted document is not valid JSON", "name", name)
		WriteInternalError(w, name+" is corrupt")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Inventory serves the datacenter inventory document.
func (h *DataHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	h.serveDocument(w, docstore.InventoryFile)
}

// Metrics serves the customer metrics document.
func (h *DataHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	h.serveDocument(w, docstore.MetricsFile)
}

// Capacity runs a capacity query over the persisted inventory document.
// Query parameters: gpu_type, min_gpus, location, floor, ib_fabric.
func (h *DataHandler) Capacity(w http.ResponseWriter, r *http.Request) {
	var doc inventory.Document
	if err := h.store.ReadJSON(docstore.InventoryFile, &doc); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			WriteNotFound(w, "inventory data not found")
			return
		}
		h.logger.Error("failed to load inventory document", "error", err)
		WriteInternalError(w, "failed to load inventory document")
		return
	}

	q := r.URL.Query()
	filter := inventory.Filter{
		GPUType:  q.Get("gpu_type"),
		Location: q.Get("location"),
		Floor:    q.Get("floor"),
		IBFabric: q.Get("ib_fabric"),
	}
	if raw := q.Get("min_gpus"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			WriteError(w, http.StatusBadRequest, "invalid_request", "min_gpus must be a non-negative integer")
			return
		}
		filter.MinGPUs = n
	}

	nodes := inventory.FindCapacity(&doc, filter)
	summary := inventory.SummarizeCapacity(nodes)

	if nodes == nil {
		nodes = []inventory.MatchedNode{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"summary": summary,
		"nodes":   nodes,
	})
}
