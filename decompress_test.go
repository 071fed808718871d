// Copyright 2024 The OpenTIMS-Go Authors.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package opentims

import (
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestDecompressPoolRoundTrip(t *testing.T) {
	want := []byte("the quick brown fox jumps over the lazy dog, repeated for compressibility, "+
		"the quick brown fox jumps over the lazy dog")

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd.NewWriter: %v", err)
	}
	compressed := enc.EncodeAll(want, nil)
	enc.Close()

	pool, err := newDecompressPool(len(want))
	if err != nil {
		t.Fatalf("newDecompressPool: %v", err)
	}
	defer pool.close()

	got, err := pool.decompress(compressed, len(want))
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("decompress() = %q, want %q", got, want)
	}
}

func TestDecompressPoolReusesScratchAcrossCalls(t *testing.T) {
	pool, err := newDecompressPool(16)
	if err != nil {
		t.Fatalf("newDecompressPool: %v", err)
	}
	defer pool.close()

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd.NewWriter: %v", err)
	}
	defer enc.Close()

	small := enc.EncodeAll([]byte("abcd"), nil)
	got, err := pool.decompress(small, 4)
	if err != nil {
		t.Fatalf("decompress small: %v", err)
	}
	if string(got) != "abcd" {
		t.Errorf("decompress(small) = %q, want %q", got, "abcd")
	}

	// A payload larger than the pool's initial scratch buffer must still
	// decompress correctly, growing the scratch buffer rather than
	// truncating the result.
	large := make([]byte, 256)
	for i := range large {
		large[i] = byte(i)
	}
	largeCompressed := enc.EncodeAll(large, nil)
	got, err = pool.decompress(largeCompressed, len(large))
	if err != nil {
		t.Fatalf("decompress large: %v", err)
	}
	if len(got) != len(large) {
		t.Fatalf("decompress(large): len = %d, want %d", len(got), len(large))
	}
	for i := range large {
		if got[i] != large[i] {
			t.Fatalf("decompress(large)[%d] = %d, want %d", i, got[i], large[i])
		}
	}
}
