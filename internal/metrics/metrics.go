// Package metrics builds the customer metrics document from the tenant CLI.
// It is an independent pipeline from the datacenter inventory: same subject
// matter, unrelated schema and source.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/fabriclabs/dcdash/internal/clitool"
)

// gpuPricing holds monthly per-GPU revenue estimates in USD.
var gpuPricing = map[string]int{
	"A100-PCIe-40GB": 1000,
	"A100-PCIe-80GB": 1200,
	"A100-SXM-80GB":  1500,
	"L40S-48GB":      800,
	"H100-80GB":      2500,
	"H200-141GB":     3000,
	"MI300X":         2500,
}

const (
	defaultGPUPrice  = 1000
	regionalGPUPrice = 1500
	amdModelMarker   = "MI300X"
	stateRunning     = "STATE_RUNNING"
)

// regionNames maps tenant location codes to friendly region keys. Unknown
// codes pass through unchanged.
var regionNames = map[string]string{
	"us-southcentral1-a": "dallas",
	"us-east1-a":         "virginia",
	"eu-iceland1-a":      "iceland",
	"us-west1-a":         "us-west",
}

// Project is one tenant project listing entry.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// VMType describes one instance type with its GPU composition.
type VMType struct {
	ProductName string `json:"product_name"`
	GPUType     string `json:"gpu_type"`
	NumGPU      int    `json:"num_gpu"`
}

// Instance is one running VM in a project.
type Instance struct {
	Type     string `json:"type"`
	Location string `json:"location"`
	State    string `json:"state"`
}

// GlobalSummary is the fleet-wide section of the metrics document.
type GlobalSummary struct {
	TotalNodes     int `json:"total_nodes"`
	TotalGPUs      int `json:"total_gpus"`
	MonthlyRevenue int `json:"monthly_revenue"`
	AvailableNodes int `json:"available_nodes"`
}

// VendorShare is a GPU count with its share of the fleet.
type VendorShare struct {
	GPUs       int     `json:"gpus"`
	Percentage float64 `json:"percentage"`
}

// Region is one friendly-named region entry.
type Region struct {
	Name           string `json:"name"`
	Nodes          int    `json:"nodes"`
	GPUs           int    `json:"gpus"`
	MonthlyRevenue int    `json:"monthly_revenue"`
}

// ModelShare is a per-GPU-model count with its share of the fleet.
type ModelShare struct {
	GPUs       int `json:"gpus"`
	Percentage int `json:"percentage"`
}

// LocationCount is the raw per-location-code tally.
type LocationCount struct {
	Nodes int `json:"nodes"`
	GPUs  int `json:"gpus"`
}

// Document is the persisted customer metrics document.
type Document struct {
	LastUpdated string        `json:"last_updated"`
	Global      GlobalSummary `json:"global_summary"`
	Vendors     struct {
		NVIDIA VendorShare `json:"nvidia"`
		AMD    VendorShare `json:"amd"`
	} `json:"vendors"`
	Regions         map[string]*Region        `json:"regions"`
	GPUModels       map[string]*ModelShare    `json:"gpu_models"`
	States          map[string]int            `json:"states"`
	RawLocationData map[string]*LocationCount `json:"raw_location_data"`
}

// Service fetches tenant inventory through the CLI and aggregates it into a
// metrics document.
type Service struct {
	runner clitool.Runner
	cli    string
	logger *slog.Logger
}

// NewService creates a metrics service using the named tenant CLI binary.
func NewService(runner clitool.Runner, cli string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{runner: runner, cli: cli, logger: logger}
}

func (s *Service) list(ctx context.Context, v any, args ...string) error {
	args = append(args, "--json")
	out, err := s.runner.Run(ctx, s.cli, args...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(out, v); err != nil {
		return fmt.Errorf("parsing %s %s output: %w", s.cli, strings.Join(args, " "), err)
	}
	return nil
}

// Build runs the tenant CLI listings and aggregates them into a document.
// Every call is read-only.
func (s *Service) Build(ctx context.Context, now time.Time) (*Document, error) {
	var vmTypes []VMType
	if err := s.list(ctx, &vmTypes, "compute", "vms", "types"); err != nil {
		return nil, fmt.Errorf("fetching vm types: %w", err)
	}

	var projects []Project
	if err := s.list(ctx, &projects, "projects", "list"); err != nil {
		return nil, fmt.Errorf("fetching projects: %w", err)
	}
	s.logger.Info("fetched projects", "count", len(projects))

	// Locations are fetched for parity with the CLI's listing set but the
	// region mapping is static; a failure here is not fatal.
	var locations []json.RawMessage
	if err := s.list(ctx, &locations, "locations", "list"); err != nil {
		s.logger.Warn("fetching locations failed", "error", err)
	}

	typeByProduct := make(map[string]VMType, len(vmTypes))
	for _, vt := range vmTypes {
		typeByProduct[vt.ProductName] = vt
	}

	doc := &Document{
		LastUpdated:     now.UTC().Format(time.RFC3339),
		Regions:         make(map[string]*Region),
		GPUModels:       make(map[string]*ModelShare),
		States:          make(map[string]int),
		RawLocationData: make(map[string]*LocationCount),
	}

	gpuCounts := make(map[string]int)

	for _, project := range projects {
		var instances []Instance
		if err := s.list(ctx, &instances, "compute", "vms", "list", "--project-id", project.ID); err != nil {
			return nil, fmt.Errorf("fetching instances for project %s: %w", project.Name, err)
		}

		for _, inst := range instances {
			vt, ok := typeByProduct[inst.Type]
			if !ok || vt.GPUType == "" || vt.NumGPU <= 0 {
				continue
			}

			location := inst.Location
			if location == "" {
				location = "unknown"
			}
			state := inst.State
			if state == "" {
				state = "unknown"
			}

			gpuCounts[vt.GPUType] += vt.NumGPU

			lc := doc.RawLocationData[location]
			if lc == nil {
				lc = &LocationCount{}
				doc.RawLocationData[location] = lc
			}
			lc.Nodes++
			lc.GPUs += vt.NumGPU

			doc.Global.TotalNodes++
			doc.Global.TotalGPUs += vt.NumGPU
			doc.States[state]++
		}
	}

	for gpuType, count := range gpuCounts {
		if strings.Contains(gpuType, amdModelMarker) {
			doc.Vendors.AMD.GPUs += count
		} else {
			doc.Vendors.NVIDIA.GPUs += count
		}

		price, ok := gpuPricing[gpuType]
		if !ok {
			price = defaultGPUPrice
		}
		doc.Global.MonthlyRevenue += count * price

		doc.GPUModels[gpuType] = &ModelShare{GPUs: count}
	}

	doc.Global.AvailableNodes = doc.States[stateRunning]

	for code, data := range doc.RawLocationData {
		friendly, ok := regionNames[code]
		if !ok {
			friendly = code
		}
		doc.Regions[friendly] = &Region{
			Name:           code,
			Nodes:          data.Nodes,
			GPUs:           data.GPUs,
			MonthlyRevenue: data.GPUs * regionalGPUPrice,
		}
	}

	deriveShares(doc)

	s.logger.Info("aggregated tenant metrics",
		"nodes", doc.Global.TotalNodes,
		"gpus", doc.Global.TotalGPUs,
		"nvidia_gpus", doc.Vendors.NVIDIA.GPUs,
		"amd_gpus", doc.Vendors.AMD.GPUs,
	)

	return doc, nil
}

// deriveShares fills in the vendor and model percentages.
func deriveShares(doc *Document) {
	total := doc.Global.TotalGPUs
	if total == 0 {
		return
	}

	doc.Vendors.NVIDIA.Percentage = round1(float64(doc.Vendors.NVIDIA.GPUs) / float64(total) * 100)
	doc.Vendors.AMD.Percentage = round1(float64(doc.Vendors.AMD.GPUs) / float64(total) * 100)

	for _, model := range doc.GPUModels {
		model.Percentage = int(math.Round(float64(model.GPUs) / float64(total) * 100))
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
