// Copyright 2024 The OpenTIMS-Go Authors.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package vendorlib loads the Bruker vendor shared library and resolves
// the six entry points the calibration layer calls into.
//
// It is built on github.com/ebitengine/purego, which abstracts dlopen/dlsym
// (Unix) and LoadLibrary/GetProcAddress (Windows) behind one API, the same
// way guestfs's libc/guestfs loader tables do.
package vendorlib

import (
	"fmt"

	"github.com/ebitengine/purego"
)

// Library is a scoped handle to a loaded shared object. Close releases it;
// a Library must not be used after Close.
type Library struct {
	handle uintptr
	path   string
}

// Load opens the shared object at path. The caller must call Close when
// done with it.
func Load(path string) (*Library, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("vendorlib: dlopen(%s): %w", path, err)
	}
	return &Library{handle: handle, path: path}, nil
}

// SymbolError reports a named symbol that could not be resolved in a
// loaded library, carrying the OS loader's underlying reason.
type SymbolError struct {
	Symbol string
	Reason error
}

func (e *SymbolError) Error() string {
	return fmt.Sprintf("vendorlib: symbol %q not found: %v", e.Symbol, e.Reason)
}

func (e *SymbolError) Unwrap() error { return e.Reason }

// Symbol resolves name to an address within the library.
func (l *Library) Symbol(name string) (uintptr, error) {
	addr, err := purego.Dlsym(l.handle, name)
	if err != nil {
		return 0, &SymbolError{Symbol: name, Reason: err}
	}
	return addr, nil
}

// Register resolves name and populates fptr, a pointer to a function
// variable, via purego.RegisterFunc.
func (l *Library) Register(fptr any, name string) error {
	addr, err := l.Symbol(name)
	if err != nil {
		return err
	}
	purego.RegisterFunc(fptr, addr)
	return nil
}

// Close releases the underlying shared object handle.
//
// purego does not currently expose a dlclose wrapper, so the handle is
// intentionally leaked for the process lifetime, matching guestfs's own
// documented behavior ("This handle to the library is never freed, which
// means the library can't be hot-reloaded."); callers should treat Close
// as releasing the Library value, not the OS mapping.
func (l *Library) Close() error {
	l.handle = 0
	return nil
}

// Functions is the typed table of vendor entry points used by the
// calibration layer, resolved once per Library.
type Functions struct {
	Open            func(path string, recalibration uint32) uint64
	LastErrorString func(buf []byte, bufLen uint32) uint32
	Close           func(handle uint64)
	IndexToMz       func(handle uint64, frameID int64, in *float64, out *float64, n uint32) uint32
	ScanToOneOverK0 func(handle uint64, frameID int64, in *float64, out *float64, n uint32) uint32
	SetNumThreads   func(n uint32)
}

// Resolve looks up the symbols documented in SPEC_FULL.md §4.2 and returns a
// populated Functions table. It fails if any one of them is missing.
func Resolve(lib *Library) (*Functions, error) {
	fns := &Functions{}
	for name, fptr := range map[string]any{
		"tims_open":                  &fns.Open,
		"tims_get_last_error_string": &fns.LastErrorString,
		"tims_close":                 &fns.Close,
		"tims_index_to_mz":           &fns.IndexToMz,
		"tims_scannum_to_oneoverk0":  &fns.ScanToOneOverK0,
		"tims_set_num_threads":       &fns.SetNumThreads,
	} {
		if err := lib.Register(fptr, name); err != nil {
			return nil, err
		}
	}
	return fns, nil
}
