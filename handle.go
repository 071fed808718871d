// Copyright 2024 The OpenTIMS-Go Authors.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package opentims

import (
	"context"
	"os"
	"path/filepath"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	metadataFileName = "analysis.tdf"
	binaryFileName   = "analysis.tdf_bin"
)

// DataHandle is a read-only handle onto one acquisition directory. It
// owns the memory-mapped binary payload, the frame descriptor table, and
// the decompression and calibration state needed to serve extractions.
//
// A DataHandle is not safe for concurrent Extract* calls (the
// decompression pool and scratch buffer are exclusive, shared mutable
// state); read-only queries (PeaksTotal, PeaksIn, PeaksInSlice,
// MaxPeaksInFrame) are safe for concurrent use once construction has
// returned, since the descriptor table is immutable thereafter.
type DataHandle struct {
	dir  string
	f    *os.File
	mm   mmap.MMap
	opts

	frames *descriptorTable
	pool   *decompressPool

	tof2mz        Calibrator
	scan2mobility Calibrator

	log zerolog.Logger
}

// opts holds the collaborators that Option values set before Open runs
// its own construction logic.
type opts struct {
	metadataProvider MetadataProvider
	logger           *zerolog.Logger
	threadingToggle  *ThreadingToggle
}

// Option configures Open. See WithMetadataProvider, WithLogger, and
// WithThreadingToggle.
type Option func(*opts)

// WithMetadataProvider overrides the default opentimssql.SQLiteMetadataProvider.
func WithMetadataProvider(p MetadataProvider) Option {
	return func(o *opts) { o.metadataProvider = p }
}

// WithLogger overrides the package default logger (github.com/rs/zerolog/log.Logger)
// for this handle.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *opts) { o.logger = &logger }
}

// WithThreadingToggle attaches toggle to any vendor calibrators this
// handle's default calibrator factories create. Without this option, a
// handle that later installs a vendor calibrator via SetTofToMz /
// SetScanToMobility is still governed by DefaultThreadingToggle().
func WithThreadingToggle(toggle *ThreadingToggle) Option {
	return func(o *opts) { o.threadingToggle = toggle }
}

// Open memory-maps dir/analysis.tdf_bin, reads dir/analysis.tdf through
// the configured MetadataProvider, and installs the process-wide default
// calibrator factories (error stubs, unless SetDefaultTof2MzCalibratorFactory
// / SetDefaultScanToMobilityCalibratorFactory were called beforehand).
func Open(dir string, options ...Option) (*DataHandle, error) {
	o := opts{
		threadingToggle: DefaultThreadingToggle(),
	}
	for _, apply := range options {
		apply(&o)
	}
	if o.metadataProvider == nil {
		if defaultMetadataProviderFactory == nil {
			return nil, newMetadataError(errNoMetadataProvider)
		}
		o.metadataProvider = defaultMetadataProviderFactory()
	}

	logger := log.Logger
	if o.logger != nil {
		logger = *o.logger
	}

	tdfPath := filepath.Join(dir, metadataFileName)
	descs, err := o.metadataProvider.FrameDescriptors(context.Background(), tdfPath)
	if err != nil {
		return nil, newMetadataError(err)
	}
	frames := newDescriptorTable(descs)

	binPath := filepath.Join(dir, binaryFileName)
	f, err := os.Open(binPath)
	if err != nil {
		return nil, newMappingError(binPath, err)
	}
	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, newMappingError(binPath, err)
	}

	pool, err := newDecompressPool(frames.maxDecompressedLen())
	if err != nil {
		mm.Unmap()
		f.Close()
		return nil, err
	}

	tof2mz, err := currentDefaultTof2Mz()(dir)
	if err != nil {
		pool.close()
		mm.Unmap()
		f.Close()
		return nil, err
	}
	scan2mobility, err := currentDefaultScan2Mobility()(dir)
	if err != nil {
		tof2mz.Close()
		pool.close()
		mm.Unmap()
		f.Close()
		return nil, err
	}

	h := &DataHandle{
		dir:           dir,
		f:             f,
		mm:            mm,
		opts:          o,
		frames:        frames,
		pool:          pool,
		tof2mz:        tof2mz,
		scan2mobility: scan2mobility,
		log:           logger.With().Str("acquisition", dir).Logger(),
	}
	h.attachThreading(tof2mz)
	h.attachThreading(scan2mobility)

	h.log.Debug().Int("frames", frames.Len()).Msg("opened acquisition")
	return h, nil
}

func (h *DataHandle) attachThreading(c Calibrator) {
	if vc, ok := c.(*vendorCalibrator); ok {
		vc.attachThreading(h.threadingToggle)
	}
}

// Close releases the memory mapping, the underlying file descriptor, the
// decompression pool, and any installed vendor calibrators.
func (h *DataHandle) Close() error {
	h.tof2mz.Close()
	h.scan2mobility.Close()
	h.pool.close()
	if err := h.mm.Unmap(); err != nil {
		h.f.Close()
		return newMappingError(h.dir, err)
	}
	return h.f.Close()
}

// SetTofToMz installs c as this handle's tof→mz calibration strategy,
// replacing whatever was installed at construction time. The previous
// strategy is closed.
func (h *DataHandle) SetTofToMz(c Calibrator) {
	h.tof2mz.Close()
	h.tof2mz = c
	h.attachThreading(c)
}

// SetScanToMobility installs c as this handle's scan→(1/K0) calibration
// strategy, replacing whatever was installed at construction time. The
// previous strategy is closed.
func (h *DataHandle) SetScanToMobility(c Calibrator) {
	h.scan2mobility.Close()
	h.scan2mobility = c
	h.attachThreading(c)
}

// PeaksTotal returns the sum of NumPeaks across every frame in the
// acquisition.
func (h *DataHandle) PeaksTotal() uint64 { return h.frames.peaksTotal() }

// PeaksIn returns the sum of NumPeaks across ids. An id absent from the
// acquisition fails with UnknownFrameError.
func (h *DataHandle) PeaksIn(ids []uint32) (uint64, error) { return h.frames.PeaksIn(ids) }

// PeaksInSlice returns the sum of NumPeaks across ids in [start, end)
// stepping by step, skipping ids absent from the acquisition.
func (h *DataHandle) PeaksInSlice(start, end, step uint32) (uint64, error) {
	return h.frames.PeaksInSlice(start, end, step)
}

// MaxPeaksInFrame returns the largest NumPeaks over all frames in the
// acquisition.
func (h *DataHandle) MaxPeaksInFrame() uint32 { return h.frames.maxPeaksInFrame() }

// PerFrameTotalIntensity decodes every frame in the acquisition and
// returns the sum of corrected intensities, keyed by frame id. See
// SPEC_FULL.md §9 for why this returns a map rather than a dense,
// 1-based array.
func (h *DataHandle) PerFrameTotalIntensity() (map[uint32]uint64, error) {
	totals := make(map[uint32]uint64, h.frames.Len())
	for _, id := range h.frames.IDs() {
		desc, _ := h.frames.Get(id)
		if desc.NumPeaks == 0 {
			totals[id] = 0
			continue
		}
		intensities := make([]uint32, desc.NumPeaks)
		if err := decodeFrame(h.pool, h.mm, desc, nil, nil, intensities); err != nil {
			return nil, err
		}
		var sum uint64
		for _, v := range intensities {
			sum += uint64(v)
		}
		totals[id] = sum
	}
	return totals, nil
}

// ExtractByIDs decodes the frames named by ids, in the order given, and
// writes their peaks into cols. An id absent from the acquisition fails
// the whole call with UnknownFrameError before anything is written to cols.
func (h *DataHandle) ExtractByIDs(ids []uint32, cols Columns) error {
	total, err := h.frames.PeaksIn(ids)
	if err != nil {
		return err
	}
	if !cols.fits(int(total)) {
		return newCorruptFrameError(0, "output columns too small for requested extraction")
	}
	var cursor int
	for _, id := range ids {
		desc, _ := h.frames.Get(id)
		n, err := h.extractFrame(desc, cols, cursor)
		if err != nil {
			return err
		}
		cursor += n
	}
	return nil
}

// ExtractBySlice decodes the frames with ids in [start, end) stepping by
// step, skipping ids absent from the acquisition, and writes their peaks
// into cols. end is clamped to frames.Max()+1 when it exceeds that bound,
// per SPEC_FULL.md §9.
func (h *DataHandle) ExtractBySlice(start, end, step uint32, cols Columns) error {
	if step == 0 {
		return ErrInvalidStep
	}
	if h.frames.Len() > 0 && end > h.frames.Max()+1 {
		end = h.frames.Max() + 1
	}
	total, err := h.frames.PeaksInSlice(start, end, step)
	if err != nil {
		return err
	}
	if !cols.fits(int(total)) {
		return newCorruptFrameError(0, "output columns too small for requested extraction")
	}
	var cursor int
	for id := start; id < end; id += step {
		desc, ok := h.frames.Get(id)
		if !ok {
			continue
		}
		n, err := h.extractFrame(desc, cols, cursor)
		if err != nil {
			return err
		}
		cursor += n
	}
	return nil
}

// extractFrame decodes one frame's peaks starting at write position
// cursor in cols, returning the number of peaks written.
func (h *DataHandle) extractFrame(desc FrameDescriptor, cols Columns, cursor int) (int, error) {
	n := int(desc.NumPeaks)
	if n == 0 {
		return 0, nil
	}

	scanWanted := cols.wantsScanID() || cols.wantsInvMobility()
	tofWanted := cols.wantsTof() || cols.wantsMz()
	intensityWanted := cols.wantsIntensity()

	var scanIDs, tofs, intensities []uint32
	if scanWanted {
		scanIDs = make([]uint32, n)
	}
	if tofWanted {
		tofs = make([]uint32, n)
	}
	if intensityWanted {
		intensities = make([]uint32, n)
	}
	if err := decodeFrame(h.pool, h.mm, desc, scanIDs, tofs, intensities); err != nil {
		return 0, err
	}

	if cols.wantsFrameID() {
		for i := 0; i < n; i++ {
			cols.FrameID[cursor+i] = desc.ID
		}
	}
	if cols.wantsScanID() {
		copy(cols.ScanID[cursor:cursor+n], scanIDs)
	}
	if cols.wantsTof() {
		copy(cols.Tof[cursor:cursor+n], tofs)
	}
	if cols.wantsIntensity() {
		copy(cols.Intensity[cursor:cursor+n], intensities)
	}
	if cols.wantsRetentionTime() {
		for i := 0; i < n; i++ {
			cols.RetentionTime[cursor+i] = desc.Time
		}
	}
	if cols.wantsMz() {
		if err := h.tof2mz.ConvertFromUint32(desc.ID, cols.Mz[cursor:cursor+n], tofs); err != nil {
			return 0, err
		}
	}
	if cols.wantsInvMobility() {
		scansAsFloat := make([]float64, n)
		for i, s := range scanIDs {
			scansAsFloat[i] = float64(s)
		}
		if err := h.scan2mobility.Convert(desc.ID, cols.InvIonMobility[cursor:cursor+n], scansAsFloat); err != nil {
			return 0, err
		}
	}
	return n, nil
}
