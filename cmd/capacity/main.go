// Package main provides a command-line capacity query against the persisted
// inventory document. It reads the same file the dashboard serves, so it works
// offline and never touches the external CLIs.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/fabriclabs/dcdash/internal/docstore"
	"github.com/fabriclabs/dcdash/internal/inventory"
	"github.com/fabriclabs/dcdash/pkg/logger"
)

func main() {
	var (
		gpuType  = flag.String("gpu-type", "", "filter by GPU model (e.g. H100, MI300X)")
		minGPUs  = flag.Int("min-gpus", 0, "minimum GPUs per node")
		location = flag.String("location", "", "filter by location code or name")
		floor    = flag.String("floor", "", "filter by floor code")
		ibFabric = flag.String("ib-fabric", "", "filter by IB network ID")
		dataDir  = flag.String("data-dir", "data", "directory holding the inventory document")
		limit    = flag.Int("limit", 20, "maximum nodes to list (0 for all)")
	)
	flag.Parse()

	log := logger.Default()

	store, err := docstore.New(*dataDir, log.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var doc inventory.Document
	if err := store.ReadJSON(docstore.InventoryFile, &doc); err != nil {
		fmt.Fprintf(os.Stderr, "error: loading inventory: %v\n", err)
		fmt.Fprintln(os.Stderr, "hint: run a refresh from the dashboard first")
		os.Exit(1)
	}

	filter := inventory.Filter{
		GPUType:  *gpuType,
		MinGPUs:  *minGPUs,
		Location: *location,
		Floor:    *floor,
		IBFabric: *ibFabric,
	}

	nodes := inventory.FindCapacity(&doc, filter)
	summary := inventory.SummarizeCapacity(nodes)

	fmt.Printf("Inventory as of %s\n\n", doc.LastUpdated)
	fmt.Printf("Matched: %d nodes, %d GPUs\n\n", summary.TotalNodes, summary.TotalGPUs)

	printCounts("By location", summary.ByLocation)
	printCounts("By GPU type", summary.ByGPUType)

	if len(summary.ByIBFabric) > 0 {
		fmt.Println("By IB fabric:")
		for _, key := range sortedKeys(summary.ByIBFabric) {
			fc := summary.ByIBFabric[key]
			fmt.Printf("  %-24s %4d nodes %5d GPUs  (%s / %s)\n",
				key, fc.Nodes, fc.GPUs, fc.Location, fc.Floor)
		}
		fmt.Println()
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })

	shown := len(nodes)
	if *limit > 0 && shown > *limit {
		shown = *limit
	}
	for _, node := range nodes[:shown] {
		fmt.Printf("  %-40s %-10s x%d  %s / %s / %s  ib=%s\n",
			node.Name, node.GPUType, node.GPUCount,
			node.LocationName, node.Floor, node.Rack, node.IBNetworkID)
	}
	if shown < len(nodes) {
		fmt.Printf("  ... and %d more (raise -limit to see them)\n", len(nodes)-shown)
	}
}

func printCounts(title string, counts map[string]*inventory.CapacityCount) {
	if len(counts) == 0 {
		return
	}
	fmt.Printf("%s:\n", title)
	for _, key := range sortedKeys(counts) {
		c := counts[key]
		fmt.Printf("  %-24s %4d nodes %5d GPUs\n", key, c.Nodes, c.GPUs)
	}
	fmt.Println()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
