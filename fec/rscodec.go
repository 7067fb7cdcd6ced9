// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.
package fec

import (
	"fmt"

	"github.com/klauspost/reedsolomon"
)

// RSCodec is the production erasure codec: a systematic Reed-Solomon code
// over GF(256), the same construction xtaci/kcp-go's fec.go wires up with
// klauspost/reedsolomon for its own FEC group recovery. Any k of the n
// shards recover the k data shards, which is the property the blind OTI
// scan in Decode relies on.
type RSCodec struct{}

// NewRSCodec returns the systematic Reed-Solomon Codec.
func NewRSCodec() *RSCodec { return &RSCodec{} }

func (RSCodec) Create(k, n, symbolSize int) (Session, error) {
	if k <= 0 || n <= k {
		return nil, fmt.Errorf("fec: invalid shard shape k=%d n=%d", k, n)
	}
	enc, err := reedsolomon.New(k, n-k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodecInitFailed, err)
	}
	return &rsSession{
		enc:        enc,
		k:          k,
		n:          n,
		symbolSize: symbolSize,
		shards:     make([][]byte, n),
	}, nil
}

type rsSession struct {
	enc        reedsolomon.Encoder
	k, n       int
	symbolSize int
	shards     [][]byte
	present    int
	encoded    bool
}

func (s *rsSession) SetSymbol(esi int, data []byte) error {
	if esi < 0 || esi >= s.k {
		return fmt.Errorf("fec: source esi %d out of range [0,%d)", esi, s.k)
	}
	s.shards[esi] = cloneShard(data, s.symbolSize)
	return nil
}

func (s *rsSession) BuildRepair(esi int) ([]byte, error) {
	if esi < s.k || esi >= s.n {
		return nil, fmt.Errorf("fec: repair esi %d out of range [%d,%d)", esi, s.k, s.n)
	}
	if !s.encoded {
		for i := s.k; i < s.n; i++ {
			s.shards[i] = make([]byte, s.symbolSize)
		}
		if err := s.enc.Encode(s.shards); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCodecFailure, err)
		}
		s.encoded = true
	}
	return s.shards[esi], nil
}

func (s *rsSession) Feed(esi int, data []byte) error {
	if esi < 0 || esi >= s.n {
		return fmt.Errorf("fec: esi %d out of range [0,%d)", esi, s.n)
	}
	if s.shards[esi] != nil {
		return nil // already have this one
	}
	s.shards[esi] = cloneShard(data, s.symbolSize)
	s.present++
	return nil
}

func (s *rsSession) IsComplete() bool { return s.present >= s.k }

func (s *rsSession) Finish() error {
	if s.present < s.k {
		return ErrUnrecoverableLoss
	}
	if err := s.enc.ReconstructData(s.shards); err != nil {
		return fmt.Errorf("%w: %v", ErrCodecFailure, err)
	}
	return nil
}

func (s *rsSession) Recover() ([][]byte, error) {
	for i := 0; i < s.k; i++ {
		if s.shards[i] == nil {
			return nil, fmt.Errorf("%w: source shard %d missing after finish", ErrCodecFailure, i)
		}
	}
	return s.shards[:s.k], nil
}

func cloneShard(data []byte, size int) []byte {
	out := make([]byte, size)
	copy(out, data)
	return out
}
