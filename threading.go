// Copyright 2024 The OpenTIMS-Go Authors.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package opentims

import (
	"runtime"
	"sync"
)

// ThreadingMode selects who parallelizes calibration work: this package's
// own extraction loop, or the vendor library's internal thread pool.
// Grounded on original_source/opentims++/thread_mgr.h's
// ThreadingManager/BrukerThreadingManager split, expressed here as one
// struct with an optional vendor hook rather than two subclassed types.
type ThreadingMode int

const (
	// EngineThreading runs calibration calls on the calling goroutine only;
	// a loaded vendor library is told to use a single thread.
	EngineThreading ThreadingMode = iota
	// VendorThreading lets the vendor library manage its own internal
	// thread pool for calibration calls.
	VendorThreading
)

func (m ThreadingMode) String() string {
	switch m {
	case EngineThreading:
		return "engine"
	case VendorThreading:
		return "vendor"
	default:
		return "unknown"
	}
}

// ThreadingToggle is a mutex-guarded switch controlling whether a loaded
// vendor library is allowed to use its own internal threading, and how
// many threads it should use when it does. A vendorCalibrator attaches
// its SetNumThreads entry point via setVendorThreads when it's loaded;
// before that, toggling the mode has no observable effect.
type ThreadingToggle struct {
	mu               sync.Mutex
	n                uint32
	mode             ThreadingMode
	setVendorThreads func(uint32)
}

// defaultToggle is the process-wide singleton returned by
// DefaultThreadingToggle, initialized to EngineThreading with a thread
// count of 1.
var defaultToggle = &ThreadingToggle{mode: EngineThreading, n: 1}

// DefaultThreadingToggle returns the process-wide threading toggle.
// Callers who want an independent toggle per handle should construct
// their own with &ThreadingToggle{} instead.
func DefaultThreadingToggle() *ThreadingToggle {
	return defaultToggle
}

// SetThreadCount sets the thread count requested of the vendor library
// under VendorThreading. If VendorThreading is already active, the new
// count is applied to an attached vendor library immediately.
func (t *ThreadingToggle) SetThreadCount(n uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n = n
	if t.mode == VendorThreading {
		t.applyLocked()
	}
}

// UseEngineThreading switches to engine-managed threading: the calling
// goroutine alone drives calibration calls, and any attached vendor
// library is told to use exactly one thread.
func (t *ThreadingToggle) UseEngineThreading() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = EngineThreading
	t.applyLocked()
}

// UseVendorThreading switches to vendor-managed threading: an attached
// vendor library is told to use the thread count last set via
// SetThreadCount (1 for DefaultThreadingToggle; 0, meaning hardware
// concurrency, for a zero-value ThreadingToggle).
func (t *ThreadingToggle) UseVendorThreading() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = VendorThreading
	t.applyLocked()
}

// Mode reports the toggle's current setting.
func (t *ThreadingToggle) Mode() ThreadingMode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

func (t *ThreadingToggle) applyLocked() {
	if t.setVendorThreads == nil {
		return
	}
	switch t.mode {
	case VendorThreading:
		n := t.n
		if n == 0 {
			n = uint32(runtime.NumCPU())
		}
		t.setVendorThreads(n)
	default:
		t.setVendorThreads(1)
	}
}

// attachVendor registers fn as the vendor library's thread-count setter
// and immediately applies the toggle's current mode to it. Called once
// by a vendorCalibrator right after it resolves tims_set_num_threads.
func (t *ThreadingToggle) attachVendor(fn func(uint32)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setVendorThreads = fn
	t.applyLocked()
}
