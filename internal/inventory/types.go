// Package inventory builds the hierarchical datacenter inventory from the
// flat node list reported by the admin CLI.
package inventory

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexInt is an integer that tolerates both string and number JSON encodings.
// The admin CLI emits slice counts as strings in some versions.
type FlexInt int

// UnmarshalJSON accepts numbers, numeric strings, empty strings and null.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			*f = 0
			return nil
		}
		*f = FlexInt(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexInt(n)
	return nil
}

// MarshalJSON always emits a number.
func (f FlexInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(f))
}

// RawNode is one node record as reported by the admin CLI. One fetch cycle
// produces one full replacement set; records are never mutated.
type RawNode struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Location    string  `json:"location"`
	IBNetworkID string  `json:"ib_network_id"`
	State       string  `json:"state"`
	Mode        string  `json:"mode"`
	Avail       FlexInt `json:"avail"`
	Used        FlexInt `json:"used"`
	Reserved    string  `json:"reserved"`
	Note        string  `json:"note"`
	PodID       string  `json:"pod_id"`
}

// ParsedName holds the location components extracted from a node name.
type ParsedName struct {
	Location   string
	Floor      string
	Rack       string
	NodeNumber string
}

// ClassifiedNode is the derived view of a RawNode persisted inside the
// inventory document.
type ClassifiedNode struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Type            string `json:"type"`
	GPUType         string `json:"gpu_type"`
	GPUCount        int    `json:"gpu_count"`
	Vendor          string `json:"vendor"`
	State           string `json:"state"`
	Mode            string `json:"mode"`
	AvailableSlices int    `json:"available_slices"`
	UsedSlices      int    `json:"used_slices"`
	IsAvailable     bool   `json:"is_available"`
	IsReserved      bool   `json:"is_reserved"`
	IsSpare         bool   `json:"is_spare"`
	IsHotSpare      bool   `json:"is_hot_spare"`
	Note            string `json:"note"`
	IBNetworkID     string `json:"ib_network_id"`
	PodID           string `json:"pod_id"`

	// Placement is derived from the node name and used only to position the
	// node in the hierarchy; it is not part of the persisted record.
	Placement ParsedName `json:"-"`
}

// Rollup holds the availability counters maintained at every hierarchy level.
type Rollup struct {
	TotalNodes     int `json:"total_nodes"`
	TotalGPUs      int `json:"total_gpus"`
	AvailableNodes int `json:"available_nodes"`
	AvailableGPUs  int `json:"available_gpus"`
	SpareNodes     int `json:"spare_nodes"`
	SpareGPUs      int `json:"spare_gpus"`
	HotSpareNodes  int `json:"hot_spare_nodes"`
	HotSpareGPUs   int `json:"hot_spare_gpus"`
}

func (r *Rollup) add(n *ClassifiedNode) {
	gpus := n.GPUCount
	r.TotalNodes++
	r.TotalGPUs += gpus
	if n.IsAvailable {
		r.AvailableNodes++
		r.AvailableGPUs += gpus
	}
	if n.IsSpare {
		r.SpareNodes++
		r.SpareGPUs += gpus
	}
	if n.IsHotSpare {
		r.HotSpareNodes++
		r.HotSpareGPUs += gpus
	}
}

// IBFabric groups the nodes of one rack sharing an InfiniBand network.
type IBFabric struct {
	ID    string            `json:"id"`
	Nodes []*ClassifiedNode `json:"nodes"`
}

// Rack is one rack within a floor.
type Rack struct {
	Name string `json:"name"`
	Rollup
	IBFabrics map[string]*IBFabric `json:"ib_fabrics"`
}

// Floor is one floor within a location.
type Floor struct {
	Name string `json:"name"`
	Rollup
	Racks map[string]*Rack `json:"racks"`
}

// Location is one datacenter location.
type Location struct {
	Name   string `json:"name"`
	Region string `json:"region"`
	Rollup
	Floors map[string]*Floor `json:"floors"`
}

// GPUCounters holds per-dimension GPU counts at the global level.
type GPUCounters struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Spare     int `json:"spare"`
	HotSpare  int `json:"hot_spare"`
}

func (c *GPUCounters) add(n *ClassifiedNode) {
	gpus := n.GPUCount
	c.Total += gpus
	if n.IsAvailable {
		c.Available += gpus
	}
	if n.IsSpare {
		c.Spare += gpus
	}
	if n.IsHotSpare {
		c.HotSpare += gpus
	}
}

// GlobalStats is the whole-fleet rollup plus per-model and per-vendor counters.
type GlobalStats struct {
	Rollup
	GPUModels map[string]*GPUCounters `json:"gpu_models"`
	Vendors   map[string]*GPUCounters `json:"vendors"`
}

// Document is the persisted datacenter inventory. It is produced wholesale by
// one aggregation pass and replaces any prior document.
type Document struct {
	LastUpdated string               `json:"last_updated"`
	GlobalStats *GlobalStats         `json:"global_stats"`
	Locations   map[string]*Location `json:"locations"`
}
