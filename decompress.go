// Copyright 2024 The OpenTIMS-Go Authors.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package opentims

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// decompressPool owns one long-lived zstd decoder and one scratch buffer,
// reused across every frame decoded through a single DataHandle. This
// amortizes the allocation that would otherwise be proportional to the
// number of frames extracted, per SPEC_FULL.md §4.4.
//
// Unlike the many-decoder sync.Pool in a concurrent server (the pattern
// this is grounded on), a DataHandle decodes one frame at a time on the
// calling goroutine, so a single *zstd.Decoder suffices; the pool here is
// one slot, not N.
type decompressPool struct {
	dec     *zstd.Decoder
	scratch []byte
}

func newDecompressPool(maxDecompressedLen int) (*decompressPool, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("opentims: failed to create zstd decoder: %w", err)
	}
	return &decompressPool{
		dec:     dec,
		scratch: make([]byte, maxDecompressedLen),
	}, nil
}

// decompress decompresses compressed into the pool's scratch buffer and
// returns the exact-length slice actually written. wantLen is the expected
// decompressed length derived from the frame descriptor (SPEC_FULL.md
// §3); a shorter result is reported by the caller as a corrupt frame, not
// by this function, since only the caller knows the frame id.
func (p *decompressPool) decompress(compressed []byte, wantLen int) ([]byte, error) {
	if cap(p.scratch) < wantLen {
		p.scratch = make([]byte, wantLen)
	}
	out, err := p.dec.DecodeAll(compressed, p.scratch[:0])
	if err != nil {
		return nil, err
	}
	// DecodeAll may have reallocated if its internal estimate under-shot;
	// keep the larger buffer around for the next frame.
	if cap(out) > cap(p.scratch) {
		p.scratch = out[:cap(out)]
	}
	return out, nil
}

func (p *decompressPool) close() {
	if p.dec != nil {
		p.dec.Close()
	}
}
