// Copyright 2024 The OpenTIMS-Go Authors.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package opentims

import (
	"errors"
	"sync"

	"github.com/opentims/opentims-go/internal/vendorlib"
)

// Calibrator is the pluggable transform SPEC_FULL.md §4.6 describes: one
// instance handles tof→mz, another handles scan→(1/K0). Both shapes share
// this interface since the vendor ABI treats them identically (a
// handle+frame-id+array convert call).
type Calibrator interface {
	// Convert fills out[i] from in[i] for frame frameID. len(out) must
	// equal len(in).
	Convert(frameID uint32, out []float64, in []float64) error
	// ConvertFromUint32 is the integer-input variant used for tof arrays,
	// which are carried as uint32 elsewhere in the engine.
	ConvertFromUint32(frameID uint32, out []float64, in []uint32) error
	// Describe names the strategy, for diagnostics.
	Describe() string
	// Close releases any resources the strategy holds (vendor library
	// handles). Safe to call on a strategy with nothing to release.
	Close() error
}

// CalibratorFactory produces a Calibrator bound to a specific acquisition
// directory. Data handles call this once at construction for each of the
// two calibration kinds.
type CalibratorFactory func(acquisitionDir string) (Calibrator, error)

// errorCalibrator is the default strategy: every convert call fails with
// CalibrationNotConfiguredError. Grounded on
// original_source/opentims++/tof2mz_converter.h's ErrorTof2MzConverter.
type errorCalibrator struct{ kind string }

func newErrorCalibrator(kind string) Calibrator { return &errorCalibrator{kind: kind} }

func (e *errorCalibrator) Convert(uint32, []float64, []float64) error {
	return newCalibrationNotConfiguredError(e.kind)
}

func (e *errorCalibrator) ConvertFromUint32(uint32, []float64, []uint32) error {
	return newCalibrationNotConfiguredError(e.kind)
}

func (e *errorCalibrator) Describe() string { return "error-stub " + e.kind + " calibrator" }

func (e *errorCalibrator) Close() error { return nil }

// ErrorTof2MzCalibratorFactory always produces the error-stub tof→mz
// calibrator, regardless of acquisition directory.
func ErrorTof2MzCalibratorFactory(string) (Calibrator, error) {
	return newErrorCalibrator("tof→mz"), nil
}

// ErrorScanToMobilityCalibratorFactory always produces the error-stub
// scan→(1/K0) calibrator, regardless of acquisition directory.
func ErrorScanToMobilityCalibratorFactory(string) (Calibrator, error) {
	return newErrorCalibrator("scan→1/K0"), nil
}

// vendorConvertFunc is the shape shared by tims_index_to_mz and
// tims_scannum_to_oneoverk0: (handle, frame id, in, out, count) -> status.
type vendorConvertFunc func(handle uint64, frameID int64, in, out *float64, n uint32) uint32

// vendorCalibrator dispatches to a dynamically-loaded Bruker vendor
// library, grounded on
// original_source/opentims++/tof2mz_converter.h's BrukerTof2MzConverter.
type vendorCalibrator struct {
	kind    string
	lib     *vendorlib.Library
	fns     *vendorlib.Functions
	handle  uint64
	convert vendorConvertFunc
}

func newVendorCalibrator(kind, acquisitionDir, libPath string, pick func(*vendorlib.Functions) vendorConvertFunc) (Calibrator, error) {
	lib, err := vendorlib.Load(libPath)
	if err != nil {
		return nil, newLibraryLoadError(libPath, err)
	}
	fns, err := vendorlib.Resolve(lib)
	if err != nil {
		lib.Close()
		var symErr *vendorlib.SymbolError
		if errors.As(err, &symErr) {
			return nil, newSymbolMissingError(symErr.Symbol, symErr.Reason)
		}
		return nil, err
	}
	handle := fns.Open(acquisitionDir, 0) // recalibration_mode is always 0
	if handle == 0 {
		msg := vendorLastError(fns)
		lib.Close()
		return nil, newVendorError("tims_open", msg)
	}
	return &vendorCalibrator{
		kind:    kind,
		lib:     lib,
		fns:     fns,
		handle:  handle,
		convert: pick(fns),
	}, nil
}

// VendorTof2MzCalibratorFactory returns a CalibratorFactory that opens
// libPath as the Bruker vendor library for tof→mz calibration.
func VendorTof2MzCalibratorFactory(libPath string) CalibratorFactory {
	return func(acquisitionDir string) (Calibrator, error) {
		return newVendorCalibrator("tof→mz", acquisitionDir, libPath, func(fns *vendorlib.Functions) vendorConvertFunc {
			return func(h uint64, id int64, in, out *float64, n uint32) uint32 {
				return fns.IndexToMz(h, id, in, out, n)
			}
		})
	}
}

// VendorScanToMobilityCalibratorFactory returns a CalibratorFactory that
// opens libPath as the Bruker vendor library for scan→(1/K0) calibration.
func VendorScanToMobilityCalibratorFactory(libPath string) CalibratorFactory {
	return func(acquisitionDir string) (Calibrator, error) {
		return newVendorCalibrator("scan→1/K0", acquisitionDir, libPath, func(fns *vendorlib.Functions) vendorConvertFunc {
			return func(h uint64, id int64, in, out *float64, n uint32) uint32 {
				return fns.ScanToOneOverK0(h, id, in, out, n)
			}
		})
	}
}

func vendorLastError(fns *vendorlib.Functions) string {
	buf := make([]byte, 10000)
	n := fns.LastErrorString(buf, uint32(len(buf)-1))
	if int(n) < len(buf) {
		buf = buf[:n]
	}
	return string(buf)
}

func (v *vendorCalibrator) Convert(frameID uint32, out []float64, in []float64) error {
	if len(out) != len(in) {
		return newCorruptFrameError(frameID, "calibration buffer length mismatch")
	}
	if len(in) == 0 {
		return nil
	}
	status := v.convert(v.handle, int64(frameID), &in[0], &out[0], uint32(len(in)))
	if status == 0 {
		return newVendorError(v.kind, vendorLastError(v.fns))
	}
	return nil
}

func (v *vendorCalibrator) ConvertFromUint32(frameID uint32, out []float64, in []uint32) error {
	if len(out) != len(in) {
		return newCorruptFrameError(frameID, "calibration buffer length mismatch")
	}
	if len(in) == 0 {
		return nil
	}
	widened := make([]float64, len(in))
	for i, v := range in {
		widened[i] = float64(v)
	}
	return v.Convert(frameID, out, widened)
}

func (v *vendorCalibrator) Describe() string { return "vendor-backed " + v.kind + " calibrator" }

// attachThreading registers this calibrator's vendor library with toggle,
// so subsequent UseEngineThreading/UseVendorThreading/SetThreadCount
// calls take effect on it, per SPEC_FULL.md §4.8.
func (v *vendorCalibrator) attachThreading(toggle *ThreadingToggle) {
	if toggle == nil || v.fns.SetNumThreads == nil {
		return
	}
	toggle.attachVendor(v.fns.SetNumThreads)
}

func (v *vendorCalibrator) Close() error {
	if v.handle != 0 {
		v.fns.Close(v.handle)
		v.handle = 0
	}
	return v.lib.Close()
}

// Process-wide default-strategy factories, per SPEC_FULL.md §4.6 and
// original_source/opentims++/tof2mz_converter.h's
// DefaultTof2MzConverterFactory singleton.
var (
	defaultFactoriesMu   sync.Mutex
	defaultTof2Mz        CalibratorFactory = ErrorTof2MzCalibratorFactory
	defaultScan2Mobility CalibratorFactory = ErrorScanToMobilityCalibratorFactory
)

// SetDefaultTof2MzCalibratorFactory replaces the process-wide default used
// by data handles constructed after this call. Handles already built keep
// the calibrator they captured at construction time.
func SetDefaultTof2MzCalibratorFactory(f CalibratorFactory) {
	defaultFactoriesMu.Lock()
	defer defaultFactoriesMu.Unlock()
	if f == nil {
		f = ErrorTof2MzCalibratorFactory
	}
	defaultTof2Mz = f
}

// SetDefaultScanToMobilityCalibratorFactory replaces the process-wide
// default used by data handles constructed after this call.
func SetDefaultScanToMobilityCalibratorFactory(f CalibratorFactory) {
	defaultFactoriesMu.Lock()
	defer defaultFactoriesMu.Unlock()
	if f == nil {
		f = ErrorScanToMobilityCalibratorFactory
	}
	defaultScan2Mobility = f
}

func currentDefaultTof2Mz() CalibratorFactory {
	defaultFactoriesMu.Lock()
	defer defaultFactoriesMu.Unlock()
	return defaultTof2Mz
}

func currentDefaultScan2Mobility() CalibratorFactory {
	defaultFactoriesMu.Lock()
	defer defaultFactoriesMu.Unlock()
	return defaultScan2Mobility
}
