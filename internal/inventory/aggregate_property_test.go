package inventory

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genRawNode generates a raw node record covering both well-formed and
// degenerate shapes the admin CLI has been seen to emit.
func genRawNode() gopter.Gen {
	return gopter.CombineGens(
		gen.Identifier(),
		gen.OneConstOf(
			"vaeq-cu12a-r001-prod-hv-01",
			"icat-m-03a-r101-prod-hv-02",
			"txdr-iah-01b-r042-prod-hv-03",
			"nvrm-bsl-02c-r007-prod-hv-04",
			"oddly-shaped-host",
			"",
		),
		gen.OneConstOf(
			"SLICE_TYPE_VCPU_88_MEM_480_H100_SXM_80GB_4_IB",
			"SLICE_TYPE_VCPU_112_MEM_960_H200_SXM_141GB_4_IB",
			"SLICE_TYPE_VCPU_96_MEM_1024_MI300X_192GB_4_IB",
			"SLICE_TYPE_A100_PCIE_80GB",
			"SLICE_TYPE_VCPU_32_MEM_128",
			"SLICE_TYPE_A40_48GB_2_IB",
		),
		gen.OneConstOf("vaeq-cu", "icat-m", "txdr-iah", "nvrm-bsl", "oh5c-dh", ""),
		gen.OneConstOf("fab-1", "fab-2", "fab-3", ""),
		gen.OneConstOf("Available", "Maintenance", "Offline"),
		gen.OneConstOf("AGENT_MODE_NORMAL", "AGENT_MODE_DRAIN"),
		gen.IntRange(0, 4),
		gen.IntRange(0, 4),
		gen.OneConstOf("", "Y", "N"),
		gen.OneConstOf("", "hot spare", "scheduled for repair", "hot-spare candidate"),
	).Map(func(vals []interface{}) RawNode {
		return RawNode{
			ID:          vals[0].(string),
			Name:        vals[1].(string),
			Type:        vals[2].(string),
			Location:    vals[3].(string),
			IBNetworkID: vals[4].(string),
			State:       vals[5].(string),
			Mode:        vals[6].(string),
			Avail:       FlexInt(vals[7].(int)),
			Used:        FlexInt(vals[8].(int)),
			Reserved:    vals[9].(string),
			Note:        vals[10].(string),
		}
	})
}

func genRawNodes() gopter.Gen {
	return gen.SliceOf(genRawNode())
}

func TestClassifyFlagInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("spare implies available and not reserved", prop.ForAll(
		func(raw RawNode) bool {
			node := Classify(&raw)
			if node.IsSpare {
				return node.IsAvailable && !node.IsReserved
			}
			return true
		},
		genRawNode(),
	))

	properties.Property("availability requires state, mode and free slices", prop.ForAll(
		func(raw RawNode) bool {
			node := Classify(&raw)
			expected := raw.State == "Available" &&
				raw.Mode == "AGENT_MODE_NORMAL" &&
				int(raw.Avail) > 0
			return node.IsAvailable == expected
		},
		genRawNode(),
	))

	properties.TestingRun(t)
}

// sumRollups adds up the rollups one level down.
func sumRollups(rollups []Rollup) Rollup {
	var total Rollup
	for _, r := range rollups {
		total.TotalNodes += r.TotalNodes
		total.TotalGPUs += r.TotalGPUs
		total.AvailableNodes += r.AvailableNodes
		total.AvailableGPUs += r.AvailableGPUs
		total.SpareNodes += r.SpareNodes
		total.SpareGPUs += r.SpareGPUs
		total.HotSpareNodes += r.HotSpareNodes
		total.HotSpareGPUs += r.HotSpareGPUs
	}
	return total
}

func TestAggregateInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("global node count equals input length", prop.ForAll(
		func(nodes []RawNode) bool {
			doc := Aggregate(nodes, time.Now())
			return doc.GlobalStats.TotalNodes == len(nodes)
		},
		genRawNodes(),
	))

	properties.Property("every rollup is the sum of its children", prop.ForAll(
		func(nodes []RawNode) bool {
			doc := Aggregate(nodes, time.Now())

			var locRollups []Rollup
			for _, loc := range doc.Locations {
				var floorRollups []Rollup
				for _, floor := range loc.Floors {
					var rackRollups []Rollup
					for _, rack := range floor.Racks {
						rackRollups = append(rackRollups, rack.Rollup)
					}
					if sumRollups(rackRollups) != floor.Rollup {
						return false
					}
					floorRollups = append(floorRollups, floor.Rollup)
				}
				if sumRollups(floorRollups) != loc.Rollup {
					return false
				}
				locRollups = append(locRollups, loc.Rollup)
			}
			return sumRollups(locRollups) == doc.GlobalStats.Rollup
		},
		genRawNodes(),
	))

	properties.Property("every input node appears in exactly one fabric", prop.ForAll(
		func(nodes []RawNode) bool {
			doc := Aggregate(nodes, time.Now())

			placed := 0
			for _, loc := range doc.Locations {
				for _, floor := range loc.Floors {
					for _, rack := range floor.Racks {
						for _, fabric := range rack.IBFabrics {
							placed += len(fabric.Nodes)
						}
					}
				}
			}
			return placed == len(nodes)
		},
		genRawNodes(),
	))

	properties.Property("aggregation is deterministic", prop.ForAll(
		func(nodes []RawNode) bool {
			now := time.Now()
			a := Aggregate(nodes, now)
			b := Aggregate(nodes, now)
			if a.GlobalStats.Rollup != b.GlobalStats.Rollup {
				return false
			}
			if len(a.Locations) != len(b.Locations) {
				return false
			}
			for key, loc := range a.Locations {
				other := b.Locations[key]
				if other == nil || loc.Rollup != other.Rollup {
					return false
				}
			}
			return true
		},
		genRawNodes(),
	))

	properties.TestingRun(t)
}
