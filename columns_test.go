// Copyright 2024 The OpenTIMS-Go Authors.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package opentims

import "testing"

func TestColumnsWantsReflectsNonEmptySlices(t *testing.T) {
	cols := &Columns{
		FrameID: make([]uint32, 3),
		Mz:      make([]float64, 0),
	}
	if !cols.wantsFrameID() {
		t.Error("wantsFrameID() = false, want true for a non-empty slice")
	}
	if cols.wantsMz() {
		t.Error("wantsMz() = true, want false for a zero-length slice")
	}
	if cols.wantsScanID() {
		t.Error("wantsScanID() = true, want false for a nil slice")
	}
}

func TestColumnsNilReceiverWantsNothing(t *testing.T) {
	var cols *Columns
	if cols.wantsFrameID() || cols.wantsTof() || cols.wantsMz() {
		t.Error("nil *Columns reported wanting a column")
	}
	if !cols.fits(1000) {
		t.Error("fits() on a nil *Columns should always succeed")
	}
}

func TestColumnsFitsChecksLength(t *testing.T) {
	cols := &Columns{Tof: make([]uint32, 3)}
	if !cols.fits(3) {
		t.Error("fits(3) with a 3-length Tof slice should succeed")
	}
	if cols.fits(4) {
		t.Error("fits(4) with a 3-length Tof slice should fail")
	}
}

func TestColumnsFitsIgnoresOmittedColumns(t *testing.T) {
	cols := &Columns{Tof: make([]uint32, 3)}
	// Mz/InvIonMobility/RetentionTime are nil (omitted); their absence
	// must never make fits fail regardless of the requested count.
	if !cols.fits(3) {
		t.Error("fits(3) should ignore omitted columns and only check Tof")
	}
}
