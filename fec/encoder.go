// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.
package fec

import "math"

// Wire-format constants carried over from the original encoder.h: a fixed
// frame payload budget split into RSBlocksPerFrame inner blocks, with
// SymbolSize left over once the OTI header is accounted for.
const (
	RSMaxMsgLen      = 223
	RSBlocksPerFrame = 5
	LDPCFrameSize    = RSMaxMsgLen * RSBlocksPerFrame
	SymbolSize       = LDPCFrameSize - OTISize

	// N1Min and N1Max bound how many repair symbols a message may be
	// padded out to relative to its source symbol count (spec.md §9).
	N1Min = 3
	N1Max = 10

	maxTotalShards = 256 // GF(256) ceiling shared by the RS and XOR codecs
)

// Encoder is the FEC Encoder (C4): it splits a message into K source
// symbols, asks a Codec to build repair symbols up to N, and serialises
// every symbol with a self-describing OTI header so a Decoder can
// reassemble the message blind.
type Encoder struct {
	Codec      Codec
	SymbolSize int
}

// NewEncoder returns an Encoder using the default wire symbol size.
func NewEncoder(codec Codec) *Encoder {
	return &Encoder{Codec: codec, SymbolSize: SymbolSize}
}

// Encode erasure-codes message at the requested codeRate (source symbols /
// total symbols, in (0, 1]) and returns the concatenated OTI||symbol wire
// stream. The realised code rate is clamped so the repair count stays
// within [N1Min, N1Max]; ErrRateUnrealisable is returned when even the
// minimum repair count can't be honoured, ErrMessageTooLarge when the
// message needs more source symbols than the codec can address or is empty.
func (e *Encoder) Encode(message []byte, codeRate float64) ([]byte, error) {
	if len(message) == 0 {
		return nil, ErrMessageTooLarge
	}
	if codeRate <= 0 || codeRate > 1 {
		codeRate = 1
	}

	symbolSize := e.symbolSize()
	k := (len(message) + symbolSize - 1) / symbolSize
	// Even the minimum repair window must fit under the shard ceiling the
	// codec can address; if it doesn't, no code rate can be honoured.
	if k+N1Min > maxTotalShards {
		return nil, ErrRateUnrealisable
	}
	n := int(math.Ceil(float64(k) / codeRate))
	if n-k < N1Min {
		n = k + N1Min
	}
	if n-k > N1Max {
		n = k + N1Max
	}
	if k+N1Max > maxTotalShards {
		return nil, ErrMessageTooLarge
	}

	session, err := e.Codec.Create(k, n, symbolSize)
	if err != nil {
		return nil, err
	}

	bodies := make([][]byte, n)
	for esi := 0; esi < k; esi++ {
		start := esi * symbolSize
		end := start + symbolSize
		body := make([]byte, symbolSize)
		if start < len(message) {
			if end > len(message) {
				end = len(message)
			}
			copy(body, message[start:end])
		}
		bodies[esi] = body
		if err := session.SetSymbol(esi, body); err != nil {
			return nil, err
		}
	}
	for esi := k; esi < n; esi++ {
		body, err := session.BuildRepair(esi)
		if err != nil {
			return nil, err
		}
		bodies[esi] = body
	}

	out := make([]byte, 0, n*(OTISize+symbolSize))
	for esi, body := range bodies {
		oti := OTI{ESI: uint32(esi), N: uint32(n), K: uint32(k), CRC: checksum(body)}
		out = append(out, oti.Marshal()...)
		out = append(out, body...)
	}
	return out, nil
}

func (e *Encoder) symbolSize() int {
	if e.SymbolSize > 0 {
		return e.SymbolSize
	}
	return SymbolSize
}
