// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.

// Package receive is the Receiver (C7): a state machine that listens for a
// Preamble control frame or the first data frame, stages data frames for
// reassembly until an EOT control frame, and writes reassembled payload
// out in order. Unlike the original receiver.c, gaps left by frames lost
// on the air are filled with a fixed noise byte rather than silently
// compacted out of the output stream, which is the REDESIGN this package
// implements over the C prototype's behavior.
package receive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	dxwifi "github.com/AlexanderJDupree/dxwifi-prototype"
	"github.com/AlexanderJDupree/dxwifi-prototype/control"
	"github.com/AlexanderJDupree/dxwifi-prototype/frame"
	"github.com/AlexanderJDupree/dxwifi-prototype/link"
	"github.com/AlexanderJDupree/dxwifi-prototype/reorder"
	"github.com/google/gopacket"
)

// Bounds on Config.PacketBufferSize (spec.md §4.7).
const (
	MinPacketBufferSize = 1 << 10 // 1 KiB
	MaxPacketBufferSize = 1 << 20 // 1 MiB
)

// ErrInvalidBufferSize is returned by New when PacketBufferSize falls
// outside [MinPacketBufferSize, MaxPacketBufferSize].
var ErrInvalidBufferSize = errors.New("receive: packet buffer size out of range")

// Config configures a Receiver.
type Config struct {
	BlockSize int
	Ordered   bool // stage frames through a reorder.Heap before writing

	// PacketBufferSize is the in-RAM reorder staging budget in bytes, in
	// [MinPacketBufferSize, MaxPacketBufferSize]. The reorder heap is sized
	// so it fills no earlier than this budget would (spec.md §4.8). Zero
	// picks a default of 64 KiB.
	PacketBufferSize int

	NoiseByte byte // 0 picks dxwifi.DxWiFiNoiseValue
	MaxFrames int  // stop after this many data frames; 0 = unbounded (run until EOT)

	// DispatchTimeout bounds how long Start will wait for the next captured
	// frame before giving up (spec.md §6 capture_timeout: "seconds to wait
	// for activity"). It is an inactivity timeout reset on every dispatched
	// frame, not a deadline over the whole session. Zero means wait forever.
	DispatchTimeout time.Duration

	// OnCapture, if set, is invoked with every raw captured frame (control
	// or data) before classification, for diagnostics such as the
	// highest-verbosity hexdump the original receiver's log_hexdump traced.
	// It must not retain raw past the call.
	OnCapture func(raw []byte)
}

// Stats reports what a Start call accomplished.
type Stats struct {
	FramesCaptured int
	BytesWritten   int
	GapsFilled     int // frame-sized gaps patched with noise bytes
}

// state is the receiver's position in the session lifecycle (spec.md
// §4.7's state table).
type state int

const (
	stateListening state = iota
	stateReceiving
	stateDone
)

var errDone = errors.New("receive: session complete")

// ErrDispatchTimeout is returned by Start when DispatchTimeout elapses
// without a captured frame being dispatched. Staged frames have still been
// drained to the output when Start returns it; a timed-out session
// terminates cleanly, distinguishable from an EOT only by this error.
var ErrDispatchTimeout = errors.New("receive: timed out waiting for activity")

// Receiver drives one capture session over a link.Driver.
type Receiver struct {
	driver link.Driver
	cfg    Config

	heap         *reorder.Heap
	nextExpected uint32
	stats        Stats
}

// New constructs a Receiver bound to driver.
func New(driver link.Driver, cfg Config) (*Receiver, error) {
	if cfg.BlockSize <= 0 || cfg.BlockSize > frame.MaxBlockSize {
		return nil, frame.ErrInvalidBlockSize
	}
	if cfg.PacketBufferSize == 0 {
		cfg.PacketBufferSize = 64 << 10
	}
	if cfg.PacketBufferSize < MinPacketBufferSize || cfg.PacketBufferSize > MaxPacketBufferSize {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidBufferSize,
			cfg.PacketBufferSize, MinPacketBufferSize, MaxPacketBufferSize)
	}
	if cfg.NoiseByte == 0 {
		cfg.NoiseByte = dxwifi.DxWiFiNoiseValue
	}
	r := &Receiver{driver: driver, cfg: cfg}
	if cfg.Ordered {
		r.heap = reorder.New(reorder.Capacity(cfg.PacketBufferSize, cfg.BlockSize))
	}
	return r, nil
}

// Start dispatches captured frames from the driver until an EOT control
// frame is observed, parent is cancelled, or cfg.DispatchTimeout elapses
// without a frame arriving, writing reassembled payload to w. Whatever
// ends the session, frames still staged in the reorder heap are drained to
// w before Start returns; cancellation via parent is a clean termination
// and reports a nil error.
func (r *Receiver) Start(parent context.Context, w io.Writer) (Stats, error) {
	st := stateListening
	var handlerErr error

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var timer *time.Timer
	if r.cfg.DispatchTimeout > 0 {
		timer = time.AfterFunc(r.cfg.DispatchTimeout, cancel)
		defer timer.Stop()
	}

	_, dispatchErr := r.driver.Dispatch(ctx, 0, func(raw []byte, _ gopacket.CaptureInfo) error {
		if timer != nil {
			timer.Reset(r.cfg.DispatchTimeout)
		}
		if r.cfg.OnCapture != nil {
			r.cfg.OnCapture(raw)
		}
		cap, err := frame.ParseCaptured(raw)
		if err != nil {
			return nil // malformed capture, not a protocol event
		}
		kind := control.Classify(cap.Payload)

		switch st {
		case stateListening:
			switch kind {
			case control.Preamble:
				st = stateReceiving
				return nil
			case control.EOT:
				return nil // stale EOT from an earlier session
			default:
				// A data frame also acquires the uplink: the preamble is
				// subject to air loss like any other frame.
				st = stateReceiving
			}
			fallthrough

		case stateReceiving:
			switch kind {
			case control.EOT:
				st = stateDone
				return errDone
			case control.Preamble:
				return nil
			default:
				r.stats.FramesCaptured++
				if r.cfg.Ordered {
					seq := frame.ParseSequence(cap.Addr1)
					if err := r.stage(w, reorder.Packet{FrameNumber: seq, Data: cap.Payload}); err != nil {
						handlerErr = err
						return err
					}
				} else {
					if _, err := w.Write(cap.Payload); err != nil {
						handlerErr = err
						return err
					}
					r.stats.BytesWritten += len(cap.Payload)
				}
				if r.cfg.MaxFrames > 0 && r.stats.FramesCaptured >= r.cfg.MaxFrames {
					st = stateDone
					return errDone
				}
				return nil
			}

		default:
			return errDone
		}
	})

	if handlerErr != nil {
		return r.stats, handlerErr
	}

	var cause error
	if dispatchErr != nil && !errors.Is(dispatchErr, errDone) {
		switch {
		case errors.Is(dispatchErr, context.Canceled) && parent.Err() != nil:
			// External stop: a clean termination, indistinguishable from
			// timeout except for the reported error.
		case errors.Is(dispatchErr, context.Canceled) && timer != nil:
			cause = ErrDispatchTimeout
		default:
			return r.stats, dispatchErr
		}
	}

	// Final drain: everything still staged is written out, however the
	// session ended.
	if r.cfg.Ordered {
		if err := r.finalize(w); err != nil {
			return r.stats, err
		}
	}
	return r.stats, cause
}

// stage pushes p onto the reorder heap, draining the whole heap first
// (noise-filling gaps) when staging it would overflow the buffer budget,
// then flushes every frame now ready in ascending order.
func (r *Receiver) stage(w io.Writer, p reorder.Packet) error {
	// The heap borrows the dispatch buffer's payload slice only until the
	// next callback, so staged packets own a copy.
	p.Data = append([]byte(nil), p.Data...)
	if err := r.heap.Push(p); err != nil {
		if !errors.Is(err, reorder.ErrFull) {
			return err
		}
		if err := r.finalize(w); err != nil {
			return err
		}
		if err := r.heap.Push(p); err != nil {
			return err
		}
	}
	return r.drainReady(w)
}

// drainReady writes every staged frame whose FrameNumber is exactly the
// next expected one, stopping (and re-staging) at the first gap.
func (r *Receiver) drainReady(w io.Writer) error {
	for r.heap.Len() > 0 {
		p, _ := r.heap.Pop()
		if p.FrameNumber != r.nextExpected {
			return r.heap.Push(p)
		}
		if err := r.emit(w, p); err != nil {
			return err
		}
	}
	return nil
}

// drainOneForced writes the single lowest-numbered staged frame regardless
// of whether it is the next expected one, noise-filling the gap before it.
func (r *Receiver) drainOneForced(w io.Writer) error {
	if r.heap.Len() == 0 {
		return nil
	}
	p, _ := r.heap.Pop()
	return r.emit(w, p)
}

// finalize drains every remaining staged frame at end of session.
func (r *Receiver) finalize(w io.Writer) error {
	for r.heap.Len() > 0 {
		if err := r.drainOneForced(w); err != nil {
			return err
		}
	}
	return nil
}

// emit writes p's payload to w, noise-filling any sequence gap before it.
// The expected counter starts at 0, the first sequence number any
// transmission stamps, so frames lost before the first delivery are
// noise-filled too and downstream length-based framing stays aligned.
func (r *Receiver) emit(w io.Writer, p reorder.Packet) error {
	if p.FrameNumber > r.nextExpected {
		gap := int(p.FrameNumber - r.nextExpected)
		if err := r.writeNoise(w, gap); err != nil {
			return err
		}
		r.stats.GapsFilled += gap
	}
	if _, err := w.Write(p.Data); err != nil {
		return err
	}
	r.stats.BytesWritten += len(p.Data)
	r.nextExpected = p.FrameNumber + 1
	return nil
}

// writeNoise patches over frameGap missing frames with BlockSize bytes of
// the configured noise value each (spec.md §9 REDESIGN: gaps are made
// visible in the output stream rather than silently closed up).
func (r *Receiver) writeNoise(w io.Writer, frameGap int) error {
	fill := make([]byte, r.cfg.BlockSize)
	for i := range fill {
		fill[i] = r.cfg.NoiseByte
	}
	for i := 0; i < frameGap; i++ {
		if _, err := w.Write(fill); err != nil {
			return err
		}
		r.stats.BytesWritten += len(fill)
	}
	return nil
}
