// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.
package frame

// Radiotap "Flags" field bits (spec.md §6's --cfp/--short-preamble/--wep/
// --frag/--nofcs CLI options map directly onto these).
const (
	FlagCFP           uint8 = 1 << 0
	FlagShortPreamble uint8 = 1 << 1
	FlagWEP           uint8 = 1 << 2
	FlagFragmentation uint8 = 1 << 3
	FlagFCSAtEnd      uint8 = 1 << 4
	FlagDataPad       uint8 = 1 << 5
	FlagBadFCS        uint8 = 1 << 6
	FlagShortGI       uint8 = 1 << 7
)

// Radiotap "TX flags" field bits. TxFlagNoAck is set by default on inject
// (DxWiFi never expects an ACK); --ack clears it, --sequence/--ordered set
// TxFlagNoSeqNo/TxFlagOrder.
const (
	TxFlagFail    uint16 = 0x0001
	TxFlagCTS     uint16 = 0x0002
	TxFlagRTS     uint16 = 0x0004
	TxFlagNoAck   uint16 = 0x0008
	TxFlagNoSeqNo uint16 = 0x0010
	TxFlagOrder   uint16 = 0x0020
)
