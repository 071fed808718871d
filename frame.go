// Copyright 2024 The OpenTIMS-Go Authors.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package opentims

import (
	"encoding/binary"
	"math"
)

// frameHeaderSize is the length, in bytes, of the two little-endian u32
// header words preceding a frame's compressed payload.
const frameHeaderSize = 8

// frameOrigin returns the byte slice beginning at the frame's on-disk
// header, as described in SPEC_FULL.md §3.
func frameOrigin(mm []byte, desc FrameDescriptor) []byte {
	return mm[desc.ByteOffset:]
}

// decodeFrame implements the decoding algorithm in SPEC_FULL.md §4.5,
// ported from original_source/opentims++/opentims.cpp's
// TimsFrame::decompress + TimsFrame::save_to_buffs.
//
// scanIDs, tofs, and intensities are output slices the caller has already
// sized to desc.NumPeaks; any of them may be nil to skip that column,
// except that the walk always happens over the full stream regardless of
// which columns are requested, to keep offsets correct.
func decodeFrame(pool *decompressPool, mm []byte, desc FrameDescriptor, scanIDs, tofs, intensities []uint32) error {
	if desc.NumPeaks == 0 {
		return nil
	}
	if desc.NumScans < 1 {
		return newCorruptFrameError(desc.ID, "invalid scan count")
	}

	origin := frameOrigin(mm, desc)
	if len(origin) < frameHeaderSize {
		return newCorruptFrameError(desc.ID, "short payload")
	}

	timsPacketSize := binary.LittleEndian.Uint32(origin[0:4])
	storedNumScans := binary.LittleEndian.Uint32(origin[4:8])
	if storedNumScans != desc.NumScans {
		return newCorruptFrameError(desc.ID, "scan count mismatch")
	}
	if timsPacketSize < frameHeaderSize || timsPacketSize > uint32(len(origin)) {
		return newCorruptFrameError(desc.ID, "short payload")
	}

	compressed := origin[frameHeaderSize:timsPacketSize]
	wantLen := desc.decompressedLen()
	decompressed, err := pool.decompress(compressed, wantLen)
	if err != nil {
		return newDecompressionError(desc.ID, err)
	}
	if len(decompressed) < wantLen {
		return newCorruptFrameError(desc.ID, "short payload")
	}

	planeLen := int(desc.NumScans) + 2*int(desc.NumPeaks)
	plane0 := decompressed[0:planeLen]
	plane1 := decompressed[planeLen : 2*planeLen]
	plane2 := decompressed[2*planeLen : 3*planeLen]
	plane3 := decompressed[3*planeLen : 4*planeLen]

	word := func(i int) uint32 {
		return uint32(plane0[i]) | uint32(plane1[i])<<8 | uint32(plane2[i])<<16 | uint32(plane3[i])<<24
	}
	// safeWord bounds-checks against the plane length so that a corrupt
	// peak count can never walk the read cursor past the decompressed
	// buffer; it fails the decode instead of panicking.
	safeWord := func(i int) (uint32, bool) {
		if i < 0 || i >= planeLen {
			return 0, false
		}
		return word(i), true
	}

	var peaksWritten uint32
	readOffset := int(desc.NumScans)
	numScansM1 := desc.NumScans - 1

	readPair := func() (tof, intensity uint32, ok bool) {
		t, ok1 := safeWord(readOffset)
		i, ok2 := safeWord(readOffset + 1)
		if !ok1 || !ok2 {
			return 0, 0, false
		}
		readOffset += 2
		return t, i, true
	}

	emit := func(scanIdx uint32) error {
		countWord, ok := safeWord(int(scanIdx) + 1)
		if !ok {
			return newCorruptFrameError(desc.ID, "peak count mismatch")
		}
		peakCount := countWord / 2
		accumTof := ^uint32(0) // unsigned -1
		for k := uint32(0); k < peakCount; k++ {
			delta, intensity, ok := readPair()
			if !ok || peaksWritten >= desc.NumPeaks {
				return newCorruptFrameError(desc.ID, "peak count mismatch")
			}
			accumTof += delta
			if tofs != nil {
				tofs[peaksWritten] = accumTof
			}
			if intensities != nil {
				intensities[peaksWritten] = intensity
			}
			if scanIDs != nil {
				scanIDs[peaksWritten] = scanIdx
			}
			peaksWritten++
		}
		return nil
	}

	for s := uint32(0); s < numScansM1; s++ {
		if err := emit(s); err != nil {
			return err
		}
	}
	// Terminal scan's peak count is implicit: consume pairs until the
	// declared NumPeaks is reached, per SPEC_FULL.md §4.5 step 6.
	accumTof := ^uint32(0)
	for peaksWritten < desc.NumPeaks {
		delta, intensity, ok := readPair()
		if !ok {
			return newCorruptFrameError(desc.ID, "peak count mismatch")
		}
		accumTof += delta
		if tofs != nil {
			tofs[peaksWritten] = accumTof
		}
		if intensities != nil {
			intensities[peaksWritten] = intensity
		}
		if scanIDs != nil {
			scanIDs[peaksWritten] = numScansM1
		}
		peaksWritten++
	}

	if peaksWritten != desc.NumPeaks {
		return newCorruptFrameError(desc.ID, "peak count mismatch")
	}

	if intensities != nil {
		for i := uint32(0); i < peaksWritten; i++ {
			corrected := math.Floor(float64(intensities[i])*desc.IntensityCorrection + 0.5)
			if corrected < 0 {
				corrected = 0
			}
			if corrected > math.MaxUint32 {
				corrected = math.MaxUint32
			}
			intensities[i] = uint32(corrected)
		}
	}

	return nil
}
