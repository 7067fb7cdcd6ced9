// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.

// Package frame implements the DxWiFi wire frame: a contiguous byte slab
// laid out as [Radiotap header | 802.11 MAC header | payload | FCS
// placeholder], synthesised and parsed byte-exactly per spec.md §3/§4.1/§6.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Size constants for the fixed wire layout (spec.md §3, §6).
const (
	RadiotapHeaderSize = 12 // version(1) + pad(1) + len(2) + present(4) + flags(1) + rate(1) + tx_flags(2)
	MACHeaderSize      = 24 // frame_control(2) + duration_id(2) + addr1(6) + addr2(6) + addr3(6) + seq_ctrl(2)
	FCSSize            = 4

	TxHeaderSize = RadiotapHeaderSize + MACHeaderSize

	// FrameControlDataSize is the maximum payload width of a control frame
	// (preamble/EOT sentinel); also the lower bound (exclusive) on data
	// block size so a full-size data frame can never be mistaken for a
	// control frame. A short final data frame of FrameControlDataSize bytes
	// or fewer is still classified by its content.
	FrameControlDataSize = 256

	// MaxBlockSize is the largest payload a single air frame may carry.
	MaxBlockSize = 1400

	// DurationID is the constant value DxWiFi stamps into the MAC header's
	// duration_id field.
	DurationID uint16 = 0xFFFF
)

// Radiotap present-bitmap bit positions (subset actually used by DxWiFi).
const (
	radiotapPresentFlags    = 1 << 1
	radiotapPresentRate     = 1 << 2
	radiotapPresentTxFlags  = 1 << 15
	txRadiotapPresenceField = radiotapPresentFlags | radiotapPresentRate | radiotapPresentTxFlags
)

var (
	// ErrInvalidBlockSize is returned when a requested block size falls
	// outside (FrameControlDataSize, MaxBlockSize].
	ErrInvalidBlockSize = errors.New("frame: block size out of range")
	// ErrInvalidAddress is returned when a supplied MAC address cannot be
	// used where it was given, e.g. an addr1 whose reserved prefix is zero.
	ErrInvalidAddress = errors.New("frame: invalid hardware address")
	// ErrShortFrame is returned when RadiotapLength or ParseCaptured is
	// given too few bytes to contain a Radiotap + MAC header.
	ErrShortFrame = errors.New("frame: buffer too short to contain a DxWiFi frame")
)

// Frame is a reusable slab: [radiotap | mac header | payload | fcs
// placeholder]. Header field accesses read/write directly into the
// underlying buffer with explicit endianness conversion — no pointer
// aliasing or struct overlay, per the "raw pointer slabs -> typed views"
// design note.
type Frame struct {
	buf        []byte
	blockSize  int
	payloadLen int // bytes of payload actually in use (<= blockSize)
}

// BuildTxFrame allocates a reusable frame slab sized for blockSize bytes of
// payload. blockSize must be in (FrameControlDataSize, MaxBlockSize].
func BuildTxFrame(blockSize int) (*Frame, error) {
	if blockSize <= FrameControlDataSize || blockSize > MaxBlockSize {
		return nil, fmt.Errorf("%w: %d not in (%d, %d]", ErrInvalidBlockSize, blockSize, FrameControlDataSize, MaxBlockSize)
	}
	f := &Frame{
		buf:       make([]byte, TxHeaderSize+blockSize+FCSSize),
		blockSize: blockSize,
	}
	return f, nil
}

// WireLength returns the number of bytes that must be handed to the link
// driver's inject call for a frame carrying payloadSize bytes of payload.
func WireLength(payloadSize int) int {
	return TxHeaderSize + payloadSize + FCSSize
}

// BlockSize returns the configured payload capacity of the frame.
func (f *Frame) BlockSize() int { return f.blockSize }

// Bytes returns the full backing slab. Only the first
// WireLength(payloadSize) bytes are meaningful for a frame carrying
// payloadSize bytes.
func (f *Frame) Bytes() []byte { return f.buf }

// Payload returns the mutable payload region of the slab (blockSize bytes,
// regardless of how much of it is in use).
func (f *Frame) Payload() []byte {
	return f.buf[TxHeaderSize : TxHeaderSize+f.blockSize]
}

// SetPayloadLen records how many of the payload bytes are in use, e.g.
// after a short read. It does not resize the underlying slab.
func (f *Frame) SetPayloadLen(n int) { f.payloadLen = n }

// PayloadLen returns the number of in-use payload bytes set by
// SetPayloadLen.
func (f *Frame) PayloadLen() int { return f.payloadLen }

// SetRadiotap writes the Radiotap header. Radiotap multi-byte fields are
// little-endian (spec.md §3).
func (f *Frame) SetRadiotap(flags, rateMbps uint8, txFlags uint16) {
	b := f.buf[0:RadiotapHeaderSize]
	b[0] = 0 // it_version
	b[1] = 0 // it_pad
	binary.LittleEndian.PutUint16(b[2:4], RadiotapHeaderSize)
	binary.LittleEndian.PutUint32(b[4:8], txRadiotapPresenceField)
	b[8] = flags
	b[9] = rateMbps * 2 // radiotap units are 500Kbps; human Mbps * 2
	binary.LittleEndian.PutUint16(b[10:12], txFlags)
}

// RadiotapFields reports the decoded Radiotap flags/rate/tx_flags
// (rate is returned in human Mbps).
func (f *Frame) RadiotapFields() (flags uint8, rateMbps uint8, txFlags uint16) {
	b := f.buf[0:RadiotapHeaderSize]
	return b[8], b[9] / 2, binary.LittleEndian.Uint16(b[10:12])
}

// RadiotapLength returns the it_len field of the Radiotap header (always
// RadiotapHeaderSize for frames built by this package, but this reads what
// is actually in the buffer, which matters when parsing captured frames
// from the air where it_len may differ).
func RadiotapLength(buf []byte) (uint16, error) {
	if len(buf) < 4 {
		return 0, ErrShortFrame
	}
	return binary.LittleEndian.Uint16(buf[2:4]), nil
}

// SetMAC writes the 802.11 3-address MAC header.
func (f *Frame) SetMAC(fc FrameControl, durationID uint16, addr1, addr2, addr3 HardwareAddr) {
	b := f.mac()
	binary.LittleEndian.PutUint16(b[0:2], EncodeFrameControl(fc))
	binary.BigEndian.PutUint16(b[2:4], durationID)
	copy(b[4:10], addr1[:])
	copy(b[10:16], addr2[:])
	copy(b[16:22], addr3[:])
	binary.LittleEndian.PutUint16(b[22:24], 0) // seq_ctrl left zero; DxWiFi's own sequence lives in addr1
}

func (f *Frame) mac() []byte {
	return f.buf[RadiotapHeaderSize : RadiotapHeaderSize+MACHeaderSize]
}

// MACFrameControl returns the decoded frame_control field.
func (f *Frame) MACFrameControl() FrameControl {
	return DecodeFrameControl(binary.LittleEndian.Uint16(f.mac()[0:2]))
}

// MACDurationID returns the decoded duration_id field (network byte order).
func (f *Frame) MACDurationID() uint16 {
	return binary.BigEndian.Uint16(f.mac()[2:4])
}

// Addr1 returns the receiver-address field, which DxWiFi overloads with a
// short prefix plus an embedded sequence number (spec.md §3).
func (f *Frame) Addr1() HardwareAddr {
	var a HardwareAddr
	copy(a[:], f.mac()[4:10])
	return a
}

// Addr2 returns the transmitter/BSSID address field.
func (f *Frame) Addr2() HardwareAddr {
	var a HardwareAddr
	copy(a[:], f.mac()[10:16])
	return a
}

// Addr3 returns the third address field.
func (f *Frame) Addr3() HardwareAddr {
	var a HardwareAddr
	copy(a[:], f.mac()[16:22])
	return a
}

// SetSequence stamps the monotonic transmit frame number into the trailing
// four octets of addr1, network byte order, per spec.md §3's invariant
// that addr1[0:2] must never be zero.
func (f *Frame) SetSequence(frameNo uint32) {
	binary.BigEndian.PutUint32(f.mac()[6:10], frameNo)
}

// Sequence reads the frame number stamped by SetSequence (or by a captured
// frame's addr1[2:6]) back out.
func (f *Frame) Sequence() uint32 {
	return binary.BigEndian.Uint32(f.mac()[6:10])
}

// ParseSequence extracts the frame number from a raw captured MAC header's
// addr1 field without requiring a *Frame.
func ParseSequence(addr1 HardwareAddr) uint32 {
	return binary.BigEndian.Uint32(addr1[2:6])
}
