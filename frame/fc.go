// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.
package frame

// Frame type/subtype values used by DxWiFi's MAC header (spec.md §3).
const (
	TypeMgmt    uint16 = 0
	TypeControl uint16 = 1
	TypeData    uint16 = 2

	SubtypeData uint16 = 0
)

// FrameControl mirrors the bitfields of an 802.11 frame_control word in the
// order defined by the GLOSSARY: protocol version, type, subtype, to-DS,
// from-DS, more-frag, retry, power-mgmt, more-data, protected, order.
type FrameControl struct {
	Version   uint16
	Type      uint16
	Subtype   uint16
	ToDS      bool
	FromDS    bool
	MoreFrag  bool
	Retry     bool
	PowerMgmt bool
	MoreData  bool
	Protected bool
	Order     bool
}

// DefaultFrameControl returns the data-frame default described in spec.md
// §3: type=DATA, subtype=DATA, from-DS=1, to-DS=0, more-data=1.
func DefaultFrameControl() FrameControl {
	return FrameControl{
		Type:     TypeData,
		Subtype:  SubtypeData,
		FromDS:   true,
		MoreData: true,
	}
}

func boolBit(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}

// EncodeFrameControl packs fc into the little-endian bit layout expected on
// the wire (bit positions per the Linux ieee80211_fctl_* convention: version
// bits 0-1, type bits 2-3, subtype bits 4-7, then one flag bit per field up
// to bit 15 for order).
func EncodeFrameControl(fc FrameControl) uint16 {
	return (fc.Version & 0x3) |
		((fc.Type & 0x3) << 2) |
		((fc.Subtype & 0xF) << 4) |
		(boolBit(fc.ToDS) << 8) |
		(boolBit(fc.FromDS) << 9) |
		(boolBit(fc.MoreFrag) << 10) |
		(boolBit(fc.Retry) << 11) |
		(boolBit(fc.PowerMgmt) << 12) |
		(boolBit(fc.MoreData) << 13) |
		(boolBit(fc.Protected) << 14) |
		(boolBit(fc.Order) << 15)
}

// DecodeFrameControl reverses EncodeFrameControl.
func DecodeFrameControl(encoded uint16) FrameControl {
	return FrameControl{
		Version:   encoded & 0x3,
		Type:      (encoded >> 2) & 0x3,
		Subtype:   (encoded >> 4) & 0xF,
		ToDS:      (encoded>>8)&1 == 1,
		FromDS:    (encoded>>9)&1 == 1,
		MoreFrag:  (encoded>>10)&1 == 1,
		Retry:     (encoded>>11)&1 == 1,
		PowerMgmt: (encoded>>12)&1 == 1,
		MoreData:  (encoded>>13)&1 == 1,
		Protected: (encoded>>14)&1 == 1,
		Order:     (encoded>>15)&1 == 1,
	}
}
