// Copyright 2024 The OpenTIMS-Go Authors.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package opentims

import "sort"

// MsMsType classifies the kind of fragmentation (if any) a frame was
// acquired with. The engine never interprets these values beyond carrying
// them through; the named constants below are the ones recognized by the
// instrument's own accompanying tooling.
type MsMsType uint32

// Recognized MsMsType values. Any other uint32 is tolerated and passed
// through unexamined.
const (
	MsMsTypeMS1   MsMsType = 0
	MsMsTypePASEF MsMsType = 8
	MsMsTypeDIA   MsMsType = 9
	MsMsTypePRM   MsMsType = 10
)

// FrameDescriptor is the immutable per-frame record described in
// SPEC_FULL.md §3. Descriptors are produced once, from the acquisition's
// metadata provider, and never mutated afterward.
type FrameDescriptor struct {
	ID                  uint32
	NumScans            uint32
	NumPeaks            uint32
	MsMsType            MsMsType
	IntensityCorrection float64
	Time                float64
	ByteOffset          uint64
}

// decompressedLen is the exact decompressed payload length this
// descriptor's frame must produce: 4 planes of (NumScans + 2*NumPeaks)
// bytes each.
func (d FrameDescriptor) decompressedLen() int {
	return 4 * (int(d.NumScans) + 2*int(d.NumPeaks))
}

// descriptorTable is the indexed collection of frame descriptors keyed by
// frame id, as described in SPEC_FULL.md §4.3.
type descriptorTable struct {
	byID  map[uint32]FrameDescriptor
	ids   []uint32 // ascending, cached once at construction
	minID uint32
	maxID uint32
}

func newDescriptorTable(descs []FrameDescriptor) *descriptorTable {
	t := &descriptorTable{
		byID: make(map[uint32]FrameDescriptor, len(descs)),
	}
	if len(descs) == 0 {
		return t
	}
	t.minID = descs[0].ID
	t.maxID = descs[0].ID
	for _, d := range descs {
		t.byID[d.ID] = d
		if d.ID < t.minID {
			t.minID = d.ID
		}
		if d.ID > t.maxID {
			t.maxID = d.ID
		}
	}
	t.ids = make([]uint32, 0, len(t.byID))
	for id := range t.byID {
		t.ids = append(t.ids, id)
	}
	sort.Slice(t.ids, func(i, j int) bool { return t.ids[i] < t.ids[j] })
	return t
}

// Get returns the descriptor for id and whether it is present.
func (t *descriptorTable) Get(id uint32) (FrameDescriptor, bool) {
	d, ok := t.byID[id]
	return d, ok
}

// Has reports whether id is present in the table. Absence here is never
// fatal by itself — it is the caller's question, per SPEC_FULL.md §4.3.
func (t *descriptorTable) Has(id uint32) bool {
	_, ok := t.byID[id]
	return ok
}

// Min returns the smallest frame id present in the table.
func (t *descriptorTable) Min() uint32 { return t.minID }

// Max returns the largest frame id present in the table.
func (t *descriptorTable) Max() uint32 { return t.maxID }

// Len returns the number of frames in the table.
func (t *descriptorTable) Len() int { return len(t.byID) }

// IDs returns all frame ids present, in ascending order.
func (t *descriptorTable) IDs() []uint32 { return t.ids }

// PeaksIn sums NumPeaks across the given ids. An id absent from the table
// fails with UnknownFrameError.
func (t *descriptorTable) PeaksIn(ids []uint32) (uint64, error) {
	var total uint64
	for _, id := range ids {
		d, ok := t.byID[id]
		if !ok {
			return 0, newUnknownFrameError(id)
		}
		total += uint64(d.NumPeaks)
	}
	return total, nil
}

// PeaksInSlice sums NumPeaks across ids in [start, end) stepping by step,
// skipping ids absent from the table (the slice-iteration policy chosen
// in SPEC_FULL.md §9).
func (t *descriptorTable) PeaksInSlice(start, end, step uint32) (uint64, error) {
	if step == 0 {
		return 0, ErrInvalidStep
	}
	var total uint64
	for id := start; id < end; id += step {
		if d, ok := t.byID[id]; ok {
			total += uint64(d.NumPeaks)
		}
	}
	return total, nil
}

// maxDecompressedLen returns the largest decompressed payload length over
// all descriptors, used to size the shared scratch buffer.
func (t *descriptorTable) maxDecompressedLen() int {
	max := 0
	for _, d := range t.byID {
		if l := d.decompressedLen(); l > max {
			max = l
		}
	}
	return max
}

// maxPeaksInFrame returns the largest NumPeaks over all descriptors.
func (t *descriptorTable) maxPeaksInFrame() uint32 {
	var max uint32
	for _, d := range t.byID {
		if d.NumPeaks > max {
			max = d.NumPeaks
		}
	}
	return max
}

// peaksTotal sums NumPeaks across every descriptor in the table.
func (t *descriptorTable) peaksTotal() uint64 {
	var total uint64
	for _, d := range t.byID {
		total += uint64(d.NumPeaks)
	}
	return total
}
