package inventory

import (
	"strings"
)

// Filter selects available nodes from the persisted inventory document.
// Zero values leave the corresponding dimension unconstrained.
type Filter struct {
	// GPUType matches the resolved display name, case-insensitively.
	GPUType string
	// MinGPUs is an inclusive lower bound on the node GPU count.
	MinGPUs int
	// Location matches either the location code or its display name,
	// case-insensitively.
	Location string
	// Floor matches the floor code, case-insensitively.
	Floor string
	// IBFabric matches the IB network ID exactly.
	IBFabric string
}

// MatchedNode is an available node annotated with its position in the tree.
type MatchedNode struct {
	*ClassifiedNode
	LocationName string `json:"_location"`
	Floor        string `json:"_floor"`
	Rack         string `json:"_rack"`
}

// CapacityCount is a node/GPU pair in the capacity summary.
type CapacityCount struct {
	Nodes int `json:"nodes"`
	GPUs  int `json:"gpus"`
}

// FabricCapacity is the per-fabric entry in the capacity summary.
type FabricCapacity struct {
	Nodes    int    `json:"nodes"`
	GPUs     int    `json:"gpus"`
	Location string `json:"location"`
	Floor    string `json:"floor"`
}

// CapacitySummary aggregates a capacity query result by location, GPU model
// and IB fabric.
type CapacitySummary struct {
	TotalNodes int                        `json:"total_nodes"`
	TotalGPUs  int                        `json:"total_gpus"`
	ByLocation map[string]*CapacityCount  `json:"by_location"`
	ByGPUType  map[string]*CapacityCount  `json:"by_gpu_type"`
	ByIBFabric map[string]*FabricCapacity `json:"by_ib_fabric"`
}

// FindCapacity walks the inventory tree and returns the available nodes
// matching the filter, in tree traversal order. It never mutates the
// document.
func FindCapacity(doc *Document, f Filter) []MatchedNode {
	var matched []MatchedNode

	for locKey, loc := range doc.Locations {
		if f.Location != "" &&
			!strings.EqualFold(f.Location, locKey) &&
			!strings.EqualFold(f.Location, loc.Name) {
			continue
		}

		for floorKey, floor := range loc.Floors {
			if f.Floor != "" && !strings.EqualFold(f.Floor, floorKey) {
				continue
			}

			for rackKey, rack := range floor.Racks {
				for fabricKey, fabric := range rack.IBFabrics {
					if f.IBFabric != "" && f.IBFabric != fabricKey {
						continue
					}

					for _, node := range fabric.Nodes {
						if !node.IsAvailable {
							continue
						}
						if f.GPUType != "" && !strings.EqualFold(f.GPUType, node.GPUType) {
							continue
						}
						if f.MinGPUs > 0 && node.GPUCount < f.MinGPUs {
							continue
						}

						matched = append(matched, MatchedNode{
							ClassifiedNode: node,
							LocationName:   loc.Name,
							Floor:          floorKey,
							Rack:           rackKey,
						})
					}
				}
			}
		}
	}

	return matched
}

// SummarizeCapacity aggregates matched nodes by location, GPU model and
// IB fabric.
func SummarizeCapacity(nodes []MatchedNode) *CapacitySummary {
	summary := &CapacitySummary{
		ByLocation: make(map[string]*CapacityCount),
		ByGPUType:  make(map[string]*CapacityCount),
		ByIBFabric: make(map[string]*FabricCapacity),
	}

	for _, node := range nodes {
		gpus := node.GPUCount
		summary.TotalNodes++
		summary.TotalGPUs += gpus

		loc := summary.ByLocation[node.LocationName]
		if loc == nil {
			loc = &CapacityCount{}
			summary.ByLocation[node.LocationName] = loc
		}
		loc.Nodes++
		loc.GPUs += gpus

		model := summary.ByGPUType[node.GPUType]
		if model == nil {
			model = &CapacityCount{}
			summary.ByGPUType[node.GPUType] = model
		}
		model.Nodes++
		model.GPUs += gpus

		fabric := summary.ByIBFabric[node.IBNetworkID]
		if fabric == nil {
			fabric = &FabricCapacity{}
			summary.ByIBFabric[node.IBNetworkID] = fabric
		}
		fabric.Nodes++
		fabric.GPUs += gpus
		fabric.Location = node.LocationName
		fabric.Floor = node.Floor
	}

	return summary
}
