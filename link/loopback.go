// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.
package link

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/gopacket"
)

// Loopback is an in-memory Driver: frames Inject hands it are delivered
// back out through Dispatch in FIFO order. It lets transmit/ and receive/
// be exercised end to end in tests without a monitor-mode NIC or libpcap.
type Loopback struct {
	mu     sync.Mutex
	queue  [][]byte
	closed bool
	stats  Stats
}

// NewLoopback returns an open Loopback driver.
func NewLoopback() *Loopback { return &Loopback{} }

func (l *Loopback) Inject(frame []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errClosed
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	l.queue = append(l.queue, cp)
	return nil
}

func (l *Loopback) Dispatch(ctx context.Context, count int, handler Handler) (int, error) {
	dispatched := 0
	for count == 0 || dispatched < count {
		l.mu.Lock()
		if l.closed && len(l.queue) == 0 {
			l.mu.Unlock()
			return dispatched, nil
		}
		if len(l.queue) == 0 {
			l.mu.Unlock()
			select {
			case <-ctx.Done():
				return dispatched, ctx.Err()
			case <-time.After(time.Millisecond):
				continue
			}
		}
		frame := l.queue[0]
		l.queue = l.queue[1:]
		l.stats.PacketsReceived++
		l.mu.Unlock()

		ci := gopacket.CaptureInfo{CaptureLength: len(frame), Length: len(frame)}
		if err := handler(frame, ci); err != nil {
			return dispatched, err
		}
		dispatched++
	}
	return dispatched, nil
}

func (l *Loopback) SetBPFFilter(string) error { return nil }

func (l *Loopback) Stats() (Stats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats, nil
}

func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

var errClosed = errors.New("link: loopback driver is closed")
