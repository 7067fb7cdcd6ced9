// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.
package frame

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// BroadcastAddr is the reserved all-ones hardware address.
var BroadcastAddr = HardwareAddr{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// HardwareAddr is a 6-octet IEEE 802 MAC address.
type HardwareAddr [6]byte

// ParseHardwareAddr parses a colon-separated hex MAC address, e.g.
// "aa:aa:aa:aa:aa:aa".
func ParseHardwareAddr(addr string) (HardwareAddr, error) {
	b := strings.SplitN(addr, ":", 6)
	if len(b) != 6 {
		return HardwareAddr{}, errors.New("frame: hardware address must have 6 colon-separated octets")
	}
	var haddr HardwareAddr
	for i := range b {
		v, err := strconv.ParseUint(b[i], 16, 16)
		if err != nil {
			return HardwareAddr{}, fmt.Errorf("frame: parse hardware address: %w", err)
		}
		haddr[i] = byte(v)
	}
	return haddr, nil
}

// String renders the address as lowercase colon-separated hex.
func (h HardwareAddr) String() string {
	return fmt.Sprintf("%.2x:%.2x:%.2x:%.2x:%.2x:%.2x",
		h[0], h[1], h[2], h[3], h[4], h[5],
	)
}
