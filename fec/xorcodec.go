// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.
package fec

import "fmt"

// XORCodec is a trivial erasure codec for tests and benchmarks where the
// Reed-Solomon matrix math of RSCodec is unwanted overhead (spec.md §9
// explicitly allows a "mock" codec behind the same Session trait). It
// partitions the k data shards into n-k parity groups of near-equal size
// and repairs at most one missing shard per group, so it is not a general
// substitute for RSCodec once more than one erasure lands in a group.
type XORCodec struct{}

// NewXORCodec returns the mock parity-group XOR codec.
func NewXORCodec() *XORCodec { return &XORCodec{} }

func (XORCodec) Create(k, n, symbolSize int) (Session, error) {
	if k <= 0 || n <= k {
		return nil, fmt.Errorf("fec: invalid shard shape k=%d n=%d", k, n)
	}
	groups := n - k
	members := make([][]int, groups)
	for esi := 0; esi < k; esi++ {
		g := esi % groups
		members[g] = append(members[g], esi)
	}
	return &xorSession{
		k: k, n: n, symbolSize: symbolSize,
		members: members,
		shards:  make([][]byte, n),
	}, nil
}

type xorSession struct {
	k, n       int
	symbolSize int
	members    [][]int // members[g] = data esi's XORed into parity shard k+g
	shards     [][]byte
	present    int
}

func (s *xorSession) groupOf(esi int) int {
	for g, ms := range s.members {
		for _, m := range ms {
			if m == esi {
				return g
			}
		}
	}
	return -1
}

func (s *xorSession) SetSymbol(esi int, data []byte) error {
	if esi < 0 || esi >= s.k {
		return fmt.Errorf("fec: source esi %d out of range [0,%d)", esi, s.k)
	}
	s.shards[esi] = cloneShard(data, s.symbolSize)
	return nil
}

func (s *xorSession) BuildRepair(esi int) ([]byte, error) {
	g := esi - s.k
	if g < 0 || g >= len(s.members) {
		return nil, fmt.Errorf("fec: repair esi %d out of range [%d,%d)", esi, s.k, s.n)
	}
	parity := make([]byte, s.symbolSize)
	for _, m := range s.members[g] {
		xorInto(parity, s.shards[m])
	}
	s.shards[esi] = parity
	return parity, nil
}

func (s *xorSession) Feed(esi int, data []byte) error {
	if esi < 0 || esi >= s.n {
		return fmt.Errorf("fec: esi %d out of range [0,%d)", esi, s.n)
	}
	if s.shards[esi] != nil {
		return nil
	}
	s.shards[esi] = cloneShard(data, s.symbolSize)
	s.present++
	return nil
}

func (s *xorSession) IsComplete() bool { return s.present >= s.k }

func (s *xorSession) Finish() error {
	if s.present < s.k {
		return ErrUnrecoverableLoss
	}
	for g, ms := range s.members {
		missing := -1
		missingCount := 0
		parity := s.shards[s.k+g]
		if parity == nil {
			missingCount++
			missing = s.k + g
		}
		for _, m := range ms {
			if s.shards[m] == nil {
				missingCount++
				missing = m
			}
		}
		if missingCount == 0 {
			continue
		}
		if missingCount > 1 {
			return ErrUnrecoverableLoss
		}
		rebuilt := make([]byte, s.symbolSize)
		if missing != s.k+g && parity != nil {
			xorInto(rebuilt, parity)
		}
		for _, m := range ms {
			if m == missing {
				continue
			}
			xorInto(rebuilt, s.shards[m])
		}
		s.shards[missing] = rebuilt
	}
	return nil
}

func (s *xorSession) Recover() ([][]byte, error) {
	for i := 0; i < s.k; i++ {
		if s.shards[i] == nil {
			return nil, fmt.Errorf("%w: source shard %d missing after finish", ErrCodecFailure, i)
		}
	}
	return s.shards[:s.k], nil
}

func xorInto(dst, src []byte) {
	for i := range dst {
		if i < len(src) {
			dst[i] ^= src[i]
		}
	}
}
