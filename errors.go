// Copyright 2024 The OpenTIMS-Go Authors.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package opentims

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// LibraryLoadError is returned when a vendor shared library fails to load.
type LibraryLoadError struct {
	Path   string
	Reason error
}

func (e *LibraryLoadError) Error() string {
	return fmt.Sprintf("opentims: failed to load library %q: %v", e.Path, e.Reason)
}

func (e *LibraryLoadError) Unwrap() error { return e.Reason }

func newLibraryLoadError(path string, reason error) *LibraryLoadError {
	log.Debug().Str("path", path).Err(reason).Msg("library load failed")
	return &LibraryLoadError{Path: path, Reason: reason}
}

// SymbolMissingError is returned when a required symbol can't be resolved
// in a loaded vendor library.
type SymbolMissingError struct {
	Symbol string
	Reason error
}

func (e *SymbolMissingError) Error() string {
	return fmt.Sprintf("opentims: symbol %q not found: %v", e.Symbol, e.Reason)
}

func (e *SymbolMissingError) Unwrap() error { return e.Reason }

func newSymbolMissingError(symbol string, reason error) *SymbolMissingError {
	log.Debug().Str("symbol", symbol).Err(reason).Msg("symbol lookup failed")
	return &SymbolMissingError{Symbol: symbol, Reason: reason}
}

// MetadataError wraps a failure from the external metadata provider.
type MetadataError struct {
	Reason error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("opentims: metadata query failed: %v", e.Reason)
}

func (e *MetadataError) Unwrap() error { return e.Reason }

func newMetadataError(reason error) *MetadataError {
	log.Debug().Err(reason).Msg("metadata provider failed")
	return &MetadataError{Reason: reason}
}

// UnknownFrameError is returned when a requested frame id is absent from
// the descriptor table.
type UnknownFrameError struct {
	ID uint32
}

func (e *UnknownFrameError) Error() string {
	return fmt.Sprintf("opentims: unknown frame id %d", e.ID)
}

func newUnknownFrameError(id uint32) *UnknownFrameError {
	log.Debug().Uint32("frame_id", id).Msg("unknown frame id")
	return &UnknownFrameError{ID: id}
}

// CorruptFrameError is returned when a frame's on-disk payload fails a
// structural check during decoding.
type CorruptFrameError struct {
	ID     uint32
	Reason string
}

func (e *CorruptFrameError) Error() string {
	return fmt.Sprintf("opentims: frame %d is corrupt: %s", e.ID, e.Reason)
}

func newCorruptFrameError(id uint32, reason string) *CorruptFrameError {
	log.Debug().Uint32("frame_id", id).Str("reason", reason).Msg("corrupt frame")
	return &CorruptFrameError{ID: id, Reason: reason}
}

// DecompressionError is returned when the zstd decoder rejects a frame's
// compressed payload.
type DecompressionError struct {
	ID     uint32
	Reason error
}

func (e *DecompressionError) Error() string {
	return fmt.Sprintf("opentims: frame %d failed to decompress: %v", e.ID, e.Reason)
}

func (e *DecompressionError) Unwrap() error { return e.Reason }

func newDecompressionError(id uint32, reason error) *DecompressionError {
	log.Debug().Uint32("frame_id", id).Err(reason).Msg("decompression failed")
	return &DecompressionError{ID: id, Reason: reason}
}

// CalibrationNotConfiguredError is returned by the default error-stub
// calibrator whenever a calibrated column is requested without an
// installed strategy.
type CalibrationNotConfiguredError struct {
	Kind string
}

func (e *CalibrationNotConfiguredError) Error() string {
	return fmt.Sprintf("opentims: no %s calibration strategy installed", e.Kind)
}

func newCalibrationNotConfiguredError(kind string) *CalibrationNotConfiguredError {
	log.Debug().Str("kind", kind).Msg("calibration not configured")
	return &CalibrationNotConfiguredError{Kind: kind}
}

// VendorError wraps the message returned by the vendor library's
// last-error string after a failed vendor call.
type VendorError struct {
	Op      string
	Message string
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("opentims: vendor library operation %q failed: %s", e.Op, e.Message)
}

func newVendorError(op, message string) *VendorError {
	log.Debug().Str("op", op).Str("message", message).Msg("vendor library error")
	return &VendorError{Op: op, Message: message}
}

// MappingError is returned when the binary acquisition file can't be
// memory-mapped.
type MappingError struct {
	Path   string
	Reason error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("opentims: failed to memory-map %q: %v", e.Path, e.Reason)
}

func (e *MappingError) Unwrap() error { return e.Reason }

func newMappingError(path string, reason error) *MappingError {
	log.Debug().Str("path", path).Err(reason).Msg("mmap failed")
	return &MappingError{Path: path, Reason: reason}
}

// ErrInvalidStep is returned by ExtractBySlice/PeaksInSlice when the
// requested step is zero.
var ErrInvalidStep = fmt.Errorf("opentims: step must be non-zero")

// errNoMetadataProvider is returned when Open is given no
// WithMetadataProvider option and no MetadataProvider implementation has
// registered itself as the default (typically because the caller never
// imported opentimssql, or any other package providing one, for its
// init-time registration side effect).
var errNoMetadataProvider = fmt.Errorf("opentims: no metadata provider configured or registered")
