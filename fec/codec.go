// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.

// Package fec implements the erasure-coded link layer sitting between the
// raw message a caller wants to transmit and the individually-recoverable
// symbols actually keyed onto the air (spec.md §4.4, §4.5). The coding
// scheme itself is hidden behind the narrow Codec/Session trait the spec
// calls out in its Open Questions, so the LDPC-staircase construction the
// original C prototype used can be swapped for the systematic Reed-Solomon
// code klauspost/reedsolomon provides, or for a trivial XOR mock in tests,
// without touching the Encoder/Decoder control flow.
package fec

// Session is one erasure-coding instance bound to a fixed (k, n,
// symbolSize) triple. An Encoder uses SetSymbol/BuildRepair to produce
// symbols; a Decoder uses Feed/IsComplete/Finish/Recover to consume them.
// Implementations need not support both encode and decode use in the same
// Session value, but must support being driven through exactly one of the
// two call sequences below.
type Session interface {
	// SetSymbol stores source symbol esi (0 <= esi < k) for later use by
	// BuildRepair. Used only on the encode path.
	SetSymbol(esi int, data []byte) error

	// BuildRepair computes and returns repair symbol esi (k <= esi < n).
	// All k source symbols must already be set. Used only on the encode
	// path.
	BuildRepair(esi int) ([]byte, error)

	// Feed supplies a received symbol, source or repair, at position esi.
	// Used only on the decode path.
	Feed(esi int, data []byte) error

	// IsComplete reports whether at least k distinct symbols have been fed.
	// It does not reconstruct anything: missing source symbols are rebuilt
	// by Finish.
	IsComplete() bool

	// Finish finalises decoding from whatever symbols have been fed so
	// far. It is always safe to call, including when IsComplete already
	// reports true.
	Finish() error

	// Recover returns the k source symbols in order. Valid only after
	// Finish has returned nil.
	Recover() ([][]byte, error)
}

// Codec constructs coding Sessions for a given (k, n, symbolSize) shape.
type Codec interface {
	// Create returns a new Session for k source symbols, n total symbols,
	// each symbolSize bytes. It fails if the codec cannot support the
	// requested shape (k <= 0 or n <= k for both codecs here). The N1
	// window of 3..10 repair symbols is applied by Encoder, not by Create.
	Create(k, n, symbolSize int) (Session, error)
}
