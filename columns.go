// Copyright 2024 The OpenTIMS-Go Authors.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package opentims

// Columns is the caller-supplied set of output buffers for an extraction.
// A field left nil (or with len 0, whatever its capacity) means that column is not
// wanted: the engine still walks the full peak stream to keep offsets
// correct, it simply skips writing into the omitted slice, per
// SPEC_FULL.md §4.9.
//
// FrameID, ScanID, Tof, and Intensity are always derivable from the raw
// stream. Mz and InvIonMobility require a configured Calibrator; asking
// for them without one installed surfaces CalibrationNotConfiguredError.
// RetentionTime is copied from the frame descriptor, one value per peak.
type Columns struct {
	FrameID        []uint32
	ScanID         []uint32
	Tof            []uint32
	Intensity      []uint32
	Mz             []float64
	InvIonMobility []float64
	RetentionTime  []float64
}

// wants reports whether the caller asked for a given column.
func (c *Columns) wantsFrameID() bool       { return c != nil && len(c.FrameID) > 0 }
func (c *Columns) wantsScanID() bool        { return c != nil && len(c.ScanID) > 0 }
func (c *Columns) wantsTof() bool           { return c != nil && len(c.Tof) > 0 }
func (c *Columns) wantsIntensity() bool     { return c != nil && len(c.Intensity) > 0 }
func (c *Columns) wantsMz() bool            { return c != nil && len(c.Mz) > 0 }
func (c *Columns) wantsInvMobility() bool   { return c != nil && len(c.InvIonMobility) > 0 }
func (c *Columns) wantsRetentionTime() bool { return c != nil && len(c.RetentionTime) > 0 }

// fits reports whether every requested column has at least n slots of
// length, per the zero-copy contract: callers pre-size their buffers to
// the peak count returned by PeaksIn/PeaksInSlice before calling
// ExtractByIDs/ExtractBySlice. A column with len 0 is treated as omitted
// regardless of its capacity, so a nil or empty slice never fails this
// check.
func (c *Columns) fits(n int) bool {
	if c == nil {
		return true
	}
	checks := [][]uint32{c.FrameID, c.ScanID, c.Tof, c.Intensity}
	for _, s := range checks {
		if len(s) > 0 && len(s) < n {
			return false
		}
	}
	fchecks := [][]float64{c.Mz, c.InvIonMobility, c.RetentionTime}
	for _, s := range fchecks {
		if len(s) > 0 && len(s) < n {
			return false
		}
	}
	return true
}
