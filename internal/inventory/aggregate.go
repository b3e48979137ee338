package inventory

import (
	"time"
)

// NoIBSentinel keys nodes that lack an InfiniBand network.
const NoIBSentinel = "no-ib"

// locationNames maps location codes to display names and region codes.
// Unknown codes pass through unchanged as both key and display name.
var locationNames = map[string]struct {
	Name   string
	Region string
}{
	"icat-m":   {Name: "Iceland", Region: "eu-iceland1-a"},
	"nvrm-bsl": {Name: "US West", Region: "us-west1-a"},
	"oh5c-dh":  {Name: "US East 2", Region: "us-east2-a"},
	"txdr-iah": {Name: "Dallas", Region: "us-southcentral1-a"},
	"vaeq-cu":  {Name: "Virginia", Region: "us-east1-a"},
}

// Aggregate folds a full raw node set into one inventory document. It is a
// single streaming pass: each node is classified, its
// location/floor/rack/fabric path is created on first visit, and the rollup
// counters are incremented at every level. Running it twice over the same
// input yields identical rollups and tree membership; only map iteration
// order and the timestamp may differ.
func Aggregate(nodes []RawNode, now time.Time) *Document {
	doc := &Document{
		LastUpdated: now.UTC().Format(time.RFC3339),
		GlobalStats: &GlobalStats{
			GPUModels: make(map[string]*GPUCounters),
			Vendors:   make(map[string]*GPUCounters),
		},
		Locations: make(map[string]*Location),
	}

	for i := range nodes {
		raw := &nodes[i]
		node := Classify(raw)

		// The location field from the admin CLI is more reliable than the
		// parsed name; the parsed value covers records missing the field.
		locKey := raw.Location
		if locKey == "" {
			locKey = node.Placement.Location
		}

		loc := doc.Locations[locKey]
		if loc == nil {
			loc = &Location{
				Name:   locKey,
				Region: locKey,
				Floors: make(map[string]*Floor),
			}
			if known, ok := locationNames[locKey]; ok {
				loc.Name = known.Name
				loc.Region = known.Region
			}
			doc.Locations[locKey] = loc
		}

		floorKey := node.Placement.Floor
		floor := loc.Floors[floorKey]
		if floor == nil {
			floor = &Floor{
				Name:  floorKey,
				Racks: make(map[string]*Rack),
			}
			loc.Floors[floorKey] = floor
		}

		rackKey := node.Placement.Rack
		rack := floor.Racks[rackKey]
		if rack == nil {
			rack = &Rack{
				Name:      rackKey,
				IBFabrics: make(map[string]*IBFabric),
			}
			floor.Racks[rackKey] = rack
		}

		fabricKey := node.IBNetworkID
		fabric := rack.IBFabrics[fabricKey]
		if fabric == nil {
			fabric = &IBFabric{ID: fabricKey}
			rack.IBFabrics[fabricKey] = fabric
		}
		fabric.Nodes = append(fabric.Nodes, node)

		rack.Rollup.add(node)
		floor.Rollup.add(node)
		loc.Rollup.add(node)
		doc.GlobalStats.Rollup.add(node)

		model := doc.GlobalStats.GPUModels[node.GPUType]
		if model == nil {
			model = &GPUCounters{}
			doc.GlobalStats.GPUModels[node.GPUType] = model
		}
		model.add(node)

		vendor := doc.GlobalStats.Vendors[node.Vendor]
		if vendor == nil {
			vendor = &GPUCounters{}
			doc.GlobalStats.Vendors[node.Vendor] = vendor
		}
		vendor.add(node)
	}

	return doc
}
