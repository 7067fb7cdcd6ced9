// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.
package fec

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// OTISize is the wire size, in bytes, of a marshalled OTI header.
const OTISize = 16

// OTI is the Object Transmission Information prepended to every FEC
// symbol on the wire (spec.md §4.4, GLOSSARY). It carries enough state for
// a receiver to recognise a symbol and its place in the erasure code
// blindly, without an out-of-band control channel.
type OTI struct {
	ESI uint32 // encoding symbol ID: this symbol's index in [0, N)
	N   uint32 // total symbols transmitted for this message
	K   uint32 // source symbols required to reconstruct the message
	CRC uint32 // CRC-32 (IEEE) of the symbol body that follows this header
}

// Marshal encodes o as 16 big-endian bytes.
func (o OTI) Marshal() []byte {
	buf := make([]byte, OTISize)
	binary.BigEndian.PutUint32(buf[0:4], o.ESI)
	binary.BigEndian.PutUint32(buf[4:8], o.N)
	binary.BigEndian.PutUint32(buf[8:12], o.K)
	binary.BigEndian.PutUint32(buf[12:16], o.CRC)
	return buf
}

// UnmarshalOTI decodes a 16-byte big-endian header.
func UnmarshalOTI(buf []byte) (OTI, error) {
	if len(buf) < OTISize {
		return OTI{}, fmt.Errorf("fec: short OTI header: %d bytes", len(buf))
	}
	return OTI{
		ESI: binary.BigEndian.Uint32(buf[0:4]),
		N:   binary.BigEndian.Uint32(buf[4:8]),
		K:   binary.BigEndian.Uint32(buf[8:12]),
		CRC: binary.BigEndian.Uint32(buf[12:16]),
	}, nil
}

// checksum computes the CRC-32 (IEEE polynomial) of a symbol body, the same
// check the teacher's frame80211 code used for payload integrity.
func checksum(symbolBody []byte) uint32 {
	return crc32.ChecksumIEEE(symbolBody)
}
