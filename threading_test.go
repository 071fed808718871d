// Copyright 2024 The OpenTIMS-Go Authors.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package opentims

import (
	"runtime"
	"testing"
)

func TestThreadingToggleDefaultsToEngine(t *testing.T) {
	toggle := DefaultThreadingToggle()
	if got := toggle.Mode(); got != EngineThreading {
		t.Errorf("Mode() = %v, want EngineThreading", got)
	}
}

func TestThreadingToggleAttachVendorAppliesCurrentMode(t *testing.T) {
	toggle := &ThreadingToggle{mode: VendorThreading, n: 4}
	var gotN uint32
	toggle.attachVendor(func(n uint32) { gotN = n })
	if gotN != 4 {
		t.Errorf("attachVendor applied n=%d, want 4", gotN)
	}
}

func TestThreadingToggleUseEngineThreadingForcesOneThread(t *testing.T) {
	toggle := &ThreadingToggle{mode: VendorThreading, n: 8}
	var gotN uint32
	toggle.attachVendor(func(n uint32) { gotN = n })
	if gotN != 8 {
		t.Fatalf("setup: attachVendor applied n=%d, want 8", gotN)
	}

	toggle.UseEngineThreading()
	if gotN != 1 {
		t.Errorf("after UseEngineThreading, vendor thread count = %d, want 1", gotN)
	}
}

func TestThreadingToggleSetThreadCountAppliesWhenVendorActive(t *testing.T) {
	toggle := &ThreadingToggle{mode: VendorThreading}
	var gotN uint32
	toggle.attachVendor(func(n uint32) { gotN = n })

	toggle.SetThreadCount(6)
	if gotN != 6 {
		t.Errorf("SetThreadCount(6) under VendorThreading: vendor thread count = %d, want 6", gotN)
	}
}

func TestThreadingToggleSetThreadCountIgnoredUnderEngineThreading(t *testing.T) {
	toggle := &ThreadingToggle{mode: EngineThreading}
	var gotN uint32
	toggle.attachVendor(func(n uint32) { gotN = n })
	if gotN != 1 {
		t.Fatalf("setup: attachVendor applied n=%d under EngineThreading, want 1", gotN)
	}

	toggle.SetThreadCount(6)
	if gotN != 1 {
		t.Errorf("SetThreadCount under EngineThreading: vendor thread count = %d, want unchanged 1", gotN)
	}
}

func TestThreadingToggleZeroThreadCountMeansHardwareConcurrency(t *testing.T) {
	toggle := &ThreadingToggle{mode: VendorThreading, n: 4}
	var gotN uint32
	toggle.attachVendor(func(n uint32) { gotN = n })
	if gotN != 4 {
		t.Fatalf("setup: attachVendor applied n=%d, want 4", gotN)
	}

	toggle.SetThreadCount(0)
	if want := uint32(runtime.NumCPU()); gotN != want {
		t.Errorf("SetThreadCount(0): vendor thread count = %d, want %d (hardware concurrency)", gotN, want)
	}
}

func TestThreadingModeString(t *testing.T) {
	cases := map[ThreadingMode]string{
		EngineThreading:   "engine",
		VendorThreading:   "vendor",
		ThreadingMode(99): "unknown",
	}
	for mode, want := range cases {
		if got := mode.String(); got != want {
			t.Errorf("ThreadingMode(%d).String() = %q, want %q", mode, got, want)
		}
	}
}
