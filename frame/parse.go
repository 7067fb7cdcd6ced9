// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.
package frame

import "encoding/binary"

// Captured is a read view over a frame captured off the air: the Radiotap
// header length is whatever the capture driver reported, not the fixed
// TxHeaderSize this package writes on transmit, since DxWiFi does not
// control the radiotap layout a NIC's driver chooses to prepend.
type Captured struct {
	FC      FrameControl
	Addr1   HardwareAddr
	Addr2   HardwareAddr
	Addr3   HardwareAddr
	Payload []byte
}

// ParseCaptured splits a captured frame into its MAC header fields and
// payload. It trusts the Radiotap it_len field for where the MAC header
// starts and treats everything between the fixed-width MAC header and the
// trailing FCSSize-byte FCS placeholder as payload (spec.md §4.7: "derive
// payload slice = buf[it_len + sizeof(MAC) .. caplen - 4]"), so a caller's
// WireLength-sized inject of fewer than blockSize payload bytes parses back
// to exactly the bytes that were written, not the unused tail of the
// frame's payload capacity.
func ParseCaptured(buf []byte) (Captured, error) {
	rtLen, err := RadiotapLength(buf)
	if err != nil {
		return Captured{}, err
	}
	macStart := int(rtLen)
	macEnd := macStart + MACHeaderSize
	payloadEnd := len(buf) - FCSSize
	if macEnd > len(buf) || payloadEnd < macEnd {
		return Captured{}, ErrShortFrame
	}
	mac := buf[macStart:macEnd]

	var c Captured
	c.FC = DecodeFrameControl(binary.LittleEndian.Uint16(mac[0:2]))
	copy(c.Addr1[:], mac[4:10])
	copy(c.Addr2[:], mac[10:16])
	copy(c.Addr3[:], mac[16:22])
	c.Payload = buf[macEnd:payloadEnd]
	return c, nil
}
