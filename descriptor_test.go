// Copyright 2024 The OpenTIMS-Go Authors.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package opentims

import (
	"errors"
	"testing"
)

func sampleDescriptors() []FrameDescriptor {
	return []FrameDescriptor{
		{ID: 3, NumScans: 2, NumPeaks: 5},
		{ID: 5, NumScans: 4, NumPeaks: 10},
		{ID: 7, NumScans: 3, NumPeaks: 2},
	}
}

func TestDescriptorTableMinMaxLen(t *testing.T) {
	table := newDescriptorTable(sampleDescriptors())
	if got, want := table.Min(), uint32(3); got != want {
		t.Errorf("Min() = %d, want %d", got, want)
	}
	if got, want := table.Max(), uint32(7); got != want {
		t.Errorf("Max() = %d, want %d", got, want)
	}
	if got, want := table.Len(), 3; got != want {
		t.Errorf("Len() = %d, want %d", got, want)
	}
	if got, want := table.IDs(), []uint32{3, 5, 7}; !equalUint32Slices(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
}

func TestDescriptorTablePeaksTotal(t *testing.T) {
	table := newDescriptorTable(sampleDescriptors())
	if got, want := table.peaksTotal(), uint64(17); got != want {
		t.Errorf("peaksTotal() = %d, want %d", got, want)
	}
	if got, want := table.maxPeaksInFrame(), uint32(10); got != want {
		t.Errorf("maxPeaksInFrame() = %d, want %d", got, want)
	}
}

func TestDescriptorTablePeaksIn(t *testing.T) {
	table := newDescriptorTable(sampleDescriptors())

	total, err := table.PeaksIn([]uint32{3, 7})
	if err != nil {
		t.Fatalf("PeaksIn: %v", err)
	}
	if total != 7 {
		t.Errorf("PeaksIn([3,7]) = %d, want 7", total)
	}

	_, err = table.PeaksIn([]uint32{4})
	var ufe *UnknownFrameError
	if !errors.As(err, &ufe) {
		t.Fatalf("PeaksIn([4]): expected *UnknownFrameError, got %T: %v", err, err)
	}
}

func TestDescriptorTablePeaksInSliceSkipsAbsentIDs(t *testing.T) {
	table := newDescriptorTable(sampleDescriptors())

	// S6: ids {3,5,7} present; slice(1,100,1) should sum exactly those,
	// ignoring the absent 1,2,4,6.
	total, err := table.PeaksInSlice(1, 100, 1)
	if err != nil {
		t.Fatalf("PeaksInSlice: %v", err)
	}
	if total != 17 {
		t.Errorf("PeaksInSlice(1,100,1) = %d, want 17", total)
	}
}

func TestDescriptorTablePeaksInSliceRejectsZeroStep(t *testing.T) {
	table := newDescriptorTable(sampleDescriptors())
	_, err := table.PeaksInSlice(0, 10, 0)
	if !errors.Is(err, ErrInvalidStep) {
		t.Fatalf("PeaksInSlice with step 0: got %v, want ErrInvalidStep", err)
	}
}

func TestDescriptorTableEmpty(t *testing.T) {
	table := newDescriptorTable(nil)
	if table.Len() != 0 {
		t.Errorf("Len() = %d, want 0", table.Len())
	}
	if table.Has(1) {
		t.Error("Has(1) on empty table = true, want false")
	}
}

func equalUint32Slices(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
