// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.

// Package reorder implements the fixed-capacity min-heap reorder buffer
// (spec.md §4.3) used to stage received packets for ascending-sequence
// playout. It follows the container/heap.Interface idiom shown by
// xtaci/kcp-go's shardHeap rather than the hand-rolled sift-up/down a C
// implementation needs.
package reorder

import (
	"container/heap"
	"errors"
)

// ErrFull is returned by Push when the heap is already at capacity.
var ErrFull = errors.New("reorder: heap is full")

// Packet is a received-packet descriptor staged for reassembly: the
// frame number stamped into addr1 plus the packet's copy of the payload
// bytes.
type Packet struct {
	FrameNumber uint32
	Data        []byte

	seq int // insertion order, used to break FrameNumber ties
}

// innerHeap is the container/heap.Interface implementation. Ties in
// FrameNumber break by insertion order (seq ascending) so that duplicate
// sequence numbers — e.g. from air retransmission or double-delivery by
// the capture driver — are both drained, oldest first.
type innerHeap []Packet

func (h innerHeap) Len() int { return len(h) }
func (h innerHeap) Less(i, j int) bool {
	if h[i].FrameNumber != h[j].FrameNumber {
		return h[i].FrameNumber < h[j].FrameNumber
	}
	return h[i].seq < h[j].seq
}
func (h innerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *innerHeap) Push(x any) {
	*h = append(*h, x.(Packet))
}

func (h *innerHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Heap is a fixed-capacity binary min-heap of received packets ordered
// ascending by FrameNumber, with O(log n) push/pop and no allocation
// after Init beyond what container/heap itself performs on each call.
type Heap struct {
	capacity int
	nextSeq  int
	inner    innerHeap
}

// New constructs a Heap with room for capacity elements.
func New(capacity int) *Heap {
	h := &Heap{
		capacity: capacity,
		inner:    make(innerHeap, 0, capacity),
	}
	heap.Init(&h.inner)
	return h
}

// Len reports the number of packets currently staged.
func (h *Heap) Len() int { return h.inner.Len() }

// Cap reports the heap's fixed capacity.
func (h *Heap) Cap() int { return h.capacity }

// Push stages packet for reassembly. It fails with ErrFull once the heap
// holds capacity elements (spec.md §4.3).
func (h *Heap) Push(p Packet) error {
	if h.inner.Len() >= h.capacity {
		return ErrFull
	}
	p.seq = h.nextSeq
	h.nextSeq++
	heap.Push(&h.inner, p)
	return nil
}

// Pop removes and returns the packet with the smallest FrameNumber. ok is
// false when the heap is empty.
func (h *Heap) Pop() (p Packet, ok bool) {
	if h.inner.Len() == 0 {
		return Packet{}, false
	}
	return heap.Pop(&h.inner).(Packet), true
}

// Capacity computes the reorder heap size prescribed by spec.md §4.8:
// packetBufferBytes/minBlockSize + 1, one entry more than a byte buffer of
// packetBufferBytes holds at minBlockSize bytes per packet, so the heap
// does not fill before that byte budget does.
func Capacity(packetBufferBytes, minBlockSize int) int {
	return packetBufferBytes/minBlockSize + 1
}
