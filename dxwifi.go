// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.

// Package dxwifi is a one-way, connectionless bulk data uplink over raw
// 802.11 monitor-mode frame injection: a sender packetises a byte stream
// into Radiotap/802.11 frames and injects them; a receiver listens in
// monitor mode, reassembles frames by sequence number, and gap-fills lost
// blocks with a noise pattern.
//
// The frame wire format lives in frame, control-frame classification in
// control, the lossy reassembly heap in reorder, the FEC layer in fec, the
// packet-capture collaborator in link, and the transmit/receive control
// loops in transmit and receive.
package dxwifi

// Version identifies this implementation of the DxWiFi protocol.
const (
	VersionMajor   = 0
	VersionMinor   = 1
	VersionPatch   = 0
	VersionRelease = "alpha"
)

// DxWiFiNoiseValue is the fixed byte value written into the output stream
// to pad for missing sequence numbers (spec.md GLOSSARY).
const DxWiFiNoiseValue byte = 0x23
