// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.

// Package transmit is the Transmitter (C6): it walks an input stream
// block-size bytes at a time, wraps each block in an 802.11 frame, runs it
// through any attached pre-inject handlers, and hands it to a link.Driver
// for injection, bracketing the whole stream with Preamble/EOT control
// frames (spec.md §4.6). The control flow follows the teacher's main
// send-loop shape: a blocking read loop with a fixed per-iteration work
// unit, rather than a buffered pipeline.
package transmit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/AlexanderJDupree/dxwifi-prototype/control"
	"github.com/AlexanderJDupree/dxwifi-prototype/frame"
	"github.com/AlexanderJDupree/dxwifi-prototype/link"
)

// MaxPreInjectHandlers bounds how many handlers a Transmitter will carry,
// matching the fixed-size handler table the original transmitter.c config
// struct reserved. The sequence-number stamper New always installs counts
// against this bound.
const MaxPreInjectHandlers = 8

// ErrTooManyHandlers is returned by Attach once MaxPreInjectHandlers are
// already registered.
var ErrTooManyHandlers = errors.New("transmit: too many pre-inject handlers attached")

// ErrReadTimeout is returned by Start when ReadTimeout elapses without a
// read off r completing. The EOT control frame has still been sent when
// Start returns it; a timed-out session terminates cleanly on the air.
var ErrReadTimeout = errors.New("transmit: timed out waiting for input")

// Handler inspects or mutates a frame immediately before injection.
// frameNo is the monotonic transmit frame number about to go out. Handlers
// may rewrite the payload or headers but must not resize the frame; an
// error from a handler aborts the transmission.
type Handler func(f *frame.Frame, frameNo uint32) error

// Config configures a Transmitter. FrameControl, Addr2, and Addr3 are held
// fixed across the whole transmission; Addr1's trailing four octets are
// overwritten per frame by the sequence stamper, so only its two-byte
// prefix is caller-controlled, and that prefix must not be zero.
type Config struct {
	BlockSize    int
	RadiotapFlag uint8
	RateMbps     uint8
	TxFlags      uint16
	FC           frame.FrameControl
	Addr1        frame.HardwareAddr
	Addr2        frame.HardwareAddr
	Addr3        frame.HardwareAddr

	// ReadTimeout bounds how long Start will wait for the next chunk off r
	// before giving up (spec.md §6 transmit_timeout: "seconds to wait for
	// next input read"). It is an inactivity timeout reset on every
	// successful read, not a deadline over the whole transmission. Zero
	// means wait forever.
	ReadTimeout time.Duration

	// Logger receives inject-failure and diagnostic messages. Defaults to
	// log.Default() when nil.
	Logger *log.Logger
}

// Stats reports what a Start call accomplished (spec.md §4.6 logging).
type Stats struct {
	FramesSent   int
	BytesSent    int
	InjectErrors int // driver.Inject failures, logged and skipped rather than fatal
}

// Transmitter drives one transmission over a link.Driver.
type Transmitter struct {
	driver   link.Driver
	cfg      Config
	handlers []Handler
}

// New constructs a Transmitter bound to driver. The sequence-number
// stamper — writing the frame number into addr1's trailing four octets —
// is always installed as the first pre-inject handler.
func New(driver link.Driver, cfg Config) (*Transmitter, error) {
	if cfg.BlockSize <= frame.FrameControlDataSize || cfg.BlockSize > frame.MaxBlockSize {
		return nil, frame.ErrInvalidBlockSize
	}
	// The addr1 prefix survives sequence stamping and is what the default
	// BPF filter keys on; a zero prefix would be indistinguishable from an
	// unset address (spec.md §3 invariant).
	if cfg.Addr1[0] == 0 && cfg.Addr1[1] == 0 {
		return nil, fmt.Errorf("%w: addr1 prefix must not be zero", frame.ErrInvalidAddress)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	t := &Transmitter{driver: driver, cfg: cfg}
	t.handlers = append(t.handlers, func(f *frame.Frame, frameNo uint32) error {
		f.SetSequence(frameNo)
		return nil
	})
	return t, nil
}

// Attach registers a pre-inject handler, run in attachment order
// immediately before every data frame (not control frames) is injected.
func (t *Transmitter) Attach(h Handler) error {
	if len(t.handlers) >= MaxPreInjectHandlers {
		return ErrTooManyHandlers
	}
	t.handlers = append(t.handlers, h)
	return nil
}

// Start reads r to EOF, injecting one data frame per BlockSize-byte chunk
// (the final chunk may be shorter), bracketed by a Preamble control frame
// before the first chunk and an EOT control frame after the last. Once the
// preamble is sent, the EOT is sent unconditionally on every exit path —
// EOF, cancellation, read timeout, a read error, or a handler error — so
// listening receivers can terminate cleanly; Start still reports
// ctx.Err(), ErrReadTimeout, or the read/handler error so the caller can
// tell the exits apart.
func (t *Transmitter) Start(ctx context.Context, r io.Reader) (Stats, error) {
	var stats Stats

	// Built once per transmission and reused for every frame (spec.md §3's
	// Frame lifetime note): the Radiotap/MAC headers are written a single
	// time, and each iteration below only overwrites the payload region and
	// the addr1-embedded sequence number.
	f, err := frame.BuildTxFrame(t.cfg.BlockSize)
	if err != nil {
		return stats, err
	}
	f.SetRadiotap(t.cfg.RadiotapFlag, t.cfg.RateMbps, t.cfg.TxFlags)
	f.SetMAC(t.cfg.FC, frame.DurationID, t.cfg.Addr1, t.cfg.Addr2, t.cfg.Addr3)

	if err := t.injectControl(f, control.Preamble); err != nil {
		return stats, fmt.Errorf("transmit: preamble: %w", err)
	}

	buf := make([]byte, t.cfg.BlockSize)
	var frameNo uint32
	var cause error
loop:
	for {
		select {
		case <-ctx.Done():
			cause = ctx.Err()
			break loop
		default:
		}

		n, err := readFullTimeout(ctx, r, buf, t.cfg.ReadTimeout)
		if n > 0 {
			sent, injErr := t.injectData(f, buf[:n], frameNo)
			if injErr != nil {
				cause = fmt.Errorf("transmit: frame %d: %w", frameNo, injErr)
				break loop
			}
			if sent {
				stats.FramesSent++
				stats.BytesSent += n
			} else {
				stats.InjectErrors++
			}
			frameNo++
		}
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
				break loop
			case errors.Is(err, ErrReadTimeout):
				t.cfg.Logger.Printf("transmit: no input for %v, ending session", t.cfg.ReadTimeout)
				cause = err
				break loop
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				cause = err
				break loop
			default:
				cause = fmt.Errorf("transmit: read: %w", err)
				break loop
			}
		}
	}

	if err := t.injectControl(f, control.EOT); err != nil {
		return stats, fmt.Errorf("transmit: eot: %w", err)
	}
	return stats, cause
}

// readFullTimeout behaves like io.ReadFull but gives up with ErrReadTimeout
// if no read off r completes within timeout (spec.md §6 transmit_timeout is
// an inactivity timeout, reset on every call, not a deadline over Start's
// whole run). timeout <= 0 disables the timeout entirely.
func readFullTimeout(ctx context.Context, r io.Reader, buf []byte, timeout time.Duration) (int, error) {
	if timeout <= 0 {
		return io.ReadFull(r, buf)
	}
	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := io.ReadFull(r, buf)
		done <- result{n, err}
	}()
	select {
	case res := <-done:
		return res.n, res.err
	case <-time.After(timeout):
		return 0, ErrReadTimeout
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// injectData returns sent=false (with a nil error) when the driver rejects
// the frame: inject failures are logged and counted, not fatal (spec.md
// §4.6 Failure semantics / §7 InjectFailed) since DxWiFi's uplink is
// best-effort. A non-nil error means a pre-inject handler rejected the
// frame, which does abort the transmission.
func (t *Transmitter) injectData(f *frame.Frame, payload []byte, frameNo uint32) (sent bool, err error) {
	copy(f.Payload(), payload)
	f.SetPayloadLen(len(payload))

	for _, h := range t.handlers {
		if err := h(f, frameNo); err != nil {
			return false, fmt.Errorf("handler: %w", err)
		}
	}
	// A short final read must inject only the bytes actually read, not the
	// full block-size slab (spec.md §9's off-by-one note on short-read
	// handling); the receiver derives payload size from caplen, not an
	// assumed uniform block size.
	if err := t.driver.Inject(f.Bytes()[:frame.WireLength(len(payload))]); err != nil {
		t.cfg.Logger.Printf("transmit: inject frame %d: %v", frameNo, err)
		return false, nil
	}
	return true, nil
}

func (t *Transmitter) injectControl(f *frame.Frame, kind control.Type) error {
	f.SetSequence(0)
	payload := control.BuildPayload(kind)
	copy(f.Payload(), payload)
	f.SetPayloadLen(len(payload))
	return t.driver.Inject(f.Bytes()[:frame.WireLength(len(payload))])
}
