// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.

// Package link is the opaque capture-and-injection collaborator spec.md §1
// treats as an external dependency: something that can put a radio into
// monitor mode, inject raw 802.11 frames, and dispatch captured frames back
// to a handler. PcapDriver grounds that contract on gopacket/pcap the way
// lcalzada/xor-wmap's sniffer/injector adapter does; Loopback is an
// in-memory stand-in for deterministic tests that never touch a NIC.
package link

import (
	"context"
	"time"

	"github.com/google/gopacket"
)

// Stats mirrors the capture-driver counters spec.md's Transmitter/Receiver
// configs surface in their periodic logging.
type Stats struct {
	PacketsReceived  int
	PacketsDropped   int
	PacketsIfDropped int
}

// Handler processes one captured frame. Returning an error from Handler
// stops the in-flight Dispatch call.
type Handler func(frame []byte, ci gopacket.CaptureInfo) error

// Driver is the monitor-mode capture/injection contract. Implementations
// need not be safe for concurrent Inject and Dispatch calls from multiple
// goroutines; callers serialise access the way the teacher's adapter does.
type Driver interface {
	// Inject transmits frame as-is onto the monitor-mode interface.
	Inject(frame []byte) error

	// Dispatch reads up to count frames (0 means until ctx is done or the
	// driver is closed), invoking handler for each, and returns the number
	// handled.
	Dispatch(ctx context.Context, count int, handler Handler) (int, error)

	// SetBPFFilter installs a Berkeley Packet Filter expression restricting
	// which frames Dispatch delivers.
	SetBPFFilter(expr string) error

	// Stats reports the driver's capture counters.
	Stats() (Stats, error)

	// Close releases the underlying capture handle.
	Close() error
}

// Config bundles the parameters spec.md §6 exposes as CLI flags for
// opening a monitor-mode interface.
type Config struct {
	Device        string
	SnapLen       int
	BufferTimeout time.Duration
	Promiscuous   bool
}
