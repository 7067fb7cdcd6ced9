// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.
package link

import (
	"context"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

// PcapDriver is the production Driver, backed by libpcap through
// gopacket/pcap exactly as the teacher's packet-capture adapter opens a
// live handle, installs a filter, and pumps a gopacket.PacketSource.
type PcapDriver struct {
	handle *pcap.Handle
}

// OpenMonitor opens cfg.Device in monitor-capable promiscuous mode and
// returns a Driver backed by it. The caller is responsible for having
// already put the interface into IEEE 802.11 monitor mode (e.g. via `iw`);
// libpcap itself only opens the capture handle.
func OpenMonitor(cfg Config) (*PcapDriver, error) {
	handle, err := pcap.OpenLive(cfg.Device, int32(cfg.SnapLen), cfg.Promiscuous, cfg.BufferTimeout)
	if err != nil {
		return nil, fmt.Errorf("link: open %s: %w", cfg.Device, err)
	}
	return &PcapDriver{handle: handle}, nil
}

func (d *PcapDriver) Inject(frame []byte) error {
	if err := d.handle.WritePacketData(frame); err != nil {
		return fmt.Errorf("link: inject: %w", err)
	}
	return nil
}

func (d *PcapDriver) Dispatch(ctx context.Context, count int, handler Handler) (int, error) {
	source := gopacket.NewPacketSource(d.handle, d.handle.LinkType())
	packets := source.Packets()

	dispatched := 0
	for count == 0 || dispatched < count {
		select {
		case <-ctx.Done():
			return dispatched, ctx.Err()
		case pkt, ok := <-packets:
			if !ok {
				return dispatched, nil
			}
			if err := handler(pkt.Data(), pkt.Metadata().CaptureInfo); err != nil {
				return dispatched, err
			}
			dispatched++
		}
	}
	return dispatched, nil
}

func (d *PcapDriver) SetBPFFilter(expr string) error {
	if expr == "" {
		return nil
	}
	if err := d.handle.SetBPFFilter(expr); err != nil {
		return fmt.Errorf("link: set filter %q: %w", expr, err)
	}
	return nil
}

func (d *PcapDriver) Stats() (Stats, error) {
	s, err := d.handle.Stats()
	if err != nil {
		return Stats{}, fmt.Errorf("link: stats: %w", err)
	}
	return Stats{
		PacketsReceived:  s.PacketsReceived,
		PacketsDropped:   s.PacketsDropped,
		PacketsIfDropped: s.PacketsIfDropped,
	}, nil
}

func (d *PcapDriver) Close() error {
	d.handle.Close()
	return nil
}
