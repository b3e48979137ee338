package inventory

import (
	"regexp"
	"strconv"
	"strings"
)

// GPUInfo describes one canonical GPU model.
type GPUInfo struct {
	Name        string
	GPUsPerNode int
	Vendor      string
}

// Canonical GPU model keys.
const (
	gpuCPUOnly = "CPU_ONLY"
	gpuUnknown = "UNKNOWN"
)

// gpuTypeMap maps canonical slice-type keys to display metadata.
var gpuTypeMap = map[string]GPUInfo{
	"H100_SXM_80GB":  {Name: "H100-SXM-80GB", GPUsPerNode: 8, Vendor: "NVIDIA"},
	"H200_141GB":     {Name: "H200-SXM-141GB", GPUsPerNode: 8, Vendor: "NVIDIA"},
	"GB200_186GB":    {Name: "GB200-NVL-186GB", GPUsPerNode: 4, Vendor: "NVIDIA"},
	"B200_180GB":     {Name: "B200-SXM-180GB", GPUsPerNode: 8, Vendor: "NVIDIA"},
	"L40S_48GB":      {Name: "L40S-48GB", GPUsPerNode: 8, Vendor: "NVIDIA"},
	"A100_80GB_SXM":  {Name: "A100-SXM-80GB", GPUsPerNode: 8, Vendor: "NVIDIA"},
	"A100_80GB_PCIE": {Name: "A100-PCIe-80GB", GPUsPerNode: 1, Vendor: "NVIDIA"},
	"A100_40GB_PCIE": {Name: "A100-PCIe-40GB", GPUsPerNode: 1, Vendor: "NVIDIA"},
	"MI300X_192GB":   {Name: "MI300X-192GB", GPUsPerNode: 8, Vendor: "AMD"},
	"MI355X_288GB":   {Name: "MI355X-288GB", GPUsPerNode: 8, Vendor: "AMD"},
	gpuCPUOnly:       {Name: "CPU-Only", GPUsPerNode: 0, Vendor: "CPU"},
	gpuUnknown:       {Name: "Unknown", GPUsPerNode: 0, Vendor: "Unknown"},
}

// gpuMarkers are the vendor/model substrings whose absence classifies a slice
// type as CPU-only.
var gpuMarkers = []string{
	"H100", "H200", "GB200", "B200", "L40S", "A100", "A40", "A6000", "MI300X", "MI355X",
}

// gpuPatterns maps slice-type substrings to canonical keys, most specific
// pattern first. Order matters: H200_SXM_141GB must win over a generic H200
// match, and the SXM variants must be checked before the PCIe ones.
var gpuPatterns = []struct {
	substrings []string
	key        string
}{
	{[]string{"H200_SXM_141GB"}, "H200_141GB"},
	{[]string{"H100_SXM_80GB"}, "H100_SXM_80GB"},
	{[]string{"GB200_NVL_186GB", "GB200_186GB"}, "GB200_186GB"},
	{[]string{"B200_SXM_180GB", "B200_180GB"}, "B200_180GB"},
	{[]string{"L40S_PCIE_48GB", "L40S_48GB"}, "L40S_48GB"},
	{[]string{"A100_SXM_80GB"}, "A100_80GB_SXM"},
	{[]string{"A100_PCIE_80GB"}, "A100_80GB_PCIE"},
	{[]string{"A100_PCIE_40GB"}, "A100_40GB_PCIE"},
	{[]string{"MI300X_192GB"}, "MI300X_192GB"},
	{[]string{"MI355X_288GB"}, "MI355X_288GB"},
}

// Node names come in two shapes:
//
//	loc1-loc2-floor-rack-prod-hv-seq  (e.g. icat-m-03a-r101-prod-hv-01)
//	loc-floor-rack-prod-hv-seq        (e.g. vaeq-cu12a-r001-prod-hv-01)
var (
	nodeNameFiveGroups = regexp.MustCompile(`^([a-z0-9]+)-([a-z0-9]+)-([a-z0-9]+)-(r\d+)-prod-hv-(\d+)$`)
	nodeNameFourGroups = regexp.MustCompile(`^([a-z0-9]+)-([a-z0-9]+)-(r\d+)-prod-hv-(\d+)$`)
	gpuCountToken      = regexp.MustCompile(`_(\d+)_IB`)
)

const (
	stateAvailable  = "Available"
	agentModeNormal = "AGENT_MODE_NORMAL"
	reservedFlag    = "Y"
)

// ParseNodeName extracts location, floor, rack and sequence number from a
// node name. Names that match neither shape fall back to the first
// hyphen-delimited token as the location and "unknown" placeholders.
func ParseNodeName(name string) ParsedName {
	if m := nodeNameFiveGroups.FindStringSubmatch(name); m != nil {
		return ParsedName{
			Location:   m[1] + "-" + m[2],
			Floor:      m[3],
			Rack:       m[4],
			NodeNumber: m[5],
		}
	}
	if m := nodeNameFourGroups.FindStringSubmatch(name); m != nil {
		return ParsedName{
			Location:   m[1],
			Floor:      m[2],
			Rack:       m[3],
			NodeNumber: m[4],
		}
	}

	location := "unknown"
	if first, _, _ := strings.Cut(name, "-"); first != "" {
		location = first
	}
	return ParsedName{
		Location:   location,
		Floor:      "unknown",
		Rack:       "unknown",
		NodeNumber: "unknown",
	}
}

// ParseGPUType resolves the canonical GPU model key from a slice-type string
// such as SLICE_TYPE_VCPU_88_MEM_480_H100_SXM_80GB_4_IB.
func ParseGPUType(sliceType string) string {
	upper := strings.ToUpper(sliceType)
	hasGPU := false
	for _, marker := range gpuMarkers {
		if strings.Contains(upper, marker) {
			hasGPU = true
			break
		}
	}
	if !hasGPU {
		return gpuCPUOnly
	}

	for _, p := range gpuPatterns {
		for _, sub := range p.substrings {
			if strings.Contains(sliceType, sub) {
				return p.key
			}
		}
	}
	return gpuUnknown
}

// nodeGPUCount estimates the GPU count for slice types without a static
// mapping. A _<N>_IB token means N GPUs per slice with two slices per node;
// standard GPU nodes default to 8.
func nodeGPUCount(sliceType string) int {
	if m := gpuCountToken.FindStringSubmatch(sliceType); m != nil {
		perSlice, err := strconv.Atoi(m[1])
		if err == nil {
			return perSlice * 2
		}
	}
	return 8
}

// ResolveGPUInfo maps a slice-type string to its GPU metadata. GPU-bearing
// types without a static mapping get the Unknown model with an estimated
// count.
func ResolveGPUInfo(sliceType string) GPUInfo {
	key := ParseGPUType(sliceType)
	info := gpuTypeMap[key]
	if key == gpuUnknown {
		info.GPUsPerNode = nodeGPUCount(sliceType)
	}
	return info
}

// Classify derives the classified view of one raw node. It is total: any
// well-formed RawNode produces a result, with "unknown" placeholders for
// unparseable names.
func Classify(raw *RawNode) *ClassifiedNode {
	info := ResolveGPUInfo(raw.Type)
	parsed := ParseNodeName(raw.Name)

	isAvailable := raw.State == stateAvailable &&
		raw.Mode == agentModeNormal &&
		int(raw.Avail) > 0
	isReserved := raw.Reserved == reservedFlag
	isSpare := isAvailable && !isReserved

	note := strings.ToLower(raw.Note)
	isHotSpare := strings.Contains(note, "hot spare") || strings.Contains(note, "hot-spare")

	fabric := raw.IBNetworkID
	if fabric == "" {
		fabric = NoIBSentinel
	}

	return &ClassifiedNode{
		ID:              raw.ID,
		Name:            raw.Name,
		Type:            raw.Type,
		GPUType:         info.Name,
		GPUCount:        info.GPUsPerNode,
		Vendor:          info.Vendor,
		State:           raw.State,
		Mode:            raw.Mode,
		AvailableSlices: int(raw.Avail),
		UsedSlices:      int(raw.Used),
		IsAvailable:     isAvailable,
		IsReserved:      isReserved,
		IsSpare:         isSpare,
		IsHotSpare:      isHotSpare,
		Note:            raw.Note,
		IBNetworkID:     fabric,
		PodID:           raw.PodID,
		Placement:       parsed,
	}
}
