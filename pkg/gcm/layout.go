package gcm

import (
	"fmt"
	"sort"
)

// RegionKind classifies a byte range of the disc image
type RegionKind int

const (
	HeaderRegion RegionKind = iota
	ApploaderRegion
	DOLHeaderRegion
	DOLSegmentRegion
	FSTRegion
	FileRegion
)

var regionKindNames = map[RegionKind]string{
	HeaderRegion:     "header",
	ApploaderRegion:  "apploader",
	DOLHeaderRegion:  "dol header",
	DOLSegmentRegion: "dol segment",
	FSTRegion:        "fst",
	FileRegion:       "file",
}

func (k RegionKind) String() string {
	if name, ok := regionKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("RegionKind(%d)", int(k))
}

// Region is a named byte range [Start, Start+Length) of the disc image
type Region struct {
	Name   string
	Kind   RegionKind
	Start  uint64
	Length uint64
}

// End returns the offset of the last byte of the region, or Start when the
// region is empty.
func (r Region) End() uint64 {
	if r.Length == 0 {
		return r.Start
	}
	return r.Start + r.Length - 1
}

// Contains reports whether offset lies inside the region. Empty regions
// contain nothing.
func (r Region) Contains(offset uint64) bool {
	return r.Length > 0 && r.Start <= offset && offset <= r.End()
}

// Layout is an offset-sorted index of every region in a disc image
type Layout struct {
	Regions []Region
}

// NewLayout sorts regions by start offset and indexes them
func NewLayout(regions []Region) *Layout {
	sorted := make([]Region, len(regions))
	copy(sorted, regions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	return &Layout{Regions: sorted}
}

// FindOffset returns the region containing offset. Offsets in padding between
// regions are not found.
func (l *Layout) FindOffset(offset uint64) (Region, bool) {
	// first region starting after offset
	i := sort.Search(len(l.Regions), func(i int) bool { return l.Regions[i].Start > offset })
	for j := i - 1; j >= 0; j-- {
		r := l.Regions[j]
		if r.Length == 0 {
			continue
		}
		if r.Contains(offset) {
			return r, true
		}
		break
	}
	return Region{}, false
}

// Len returns the number of regions
func (l *Layout) Len() int {
	return len(l.Regions)
}
