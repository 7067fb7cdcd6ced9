// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.
package fec

// Decoder is the FEC Decoder (C5): it blindly scans a byte stream in fixed
// LDPC_FRAME_SIZE strides looking for a symbol whose CRC matches its own
// claimed OTI, locks onto the (n, k) that OTI reports, then feeds every
// subsequent matching stride into a coding Session until enough symbols
// have arrived to reconstruct the source message (spec.md §4.5, mirroring
// find_valid_oti in the original decoder.c).
type Decoder struct {
	Codec      Codec
	SymbolSize int
}

// NewDecoder returns a Decoder using the default wire symbol size.
func NewDecoder(codec Codec) *Decoder {
	return &Decoder{Codec: codec, SymbolSize: SymbolSize}
}

// Decode reverses Encoder.Encode. It returns ErrNoValidOTI if no stride's
// CRC matches its header anywhere in encoded, and ErrUnrecoverableLoss if
// fewer than K distinct symbols for the locked-on message were found.
func (d *Decoder) Decode(encoded []byte) ([]byte, error) {
	symbolSize := d.symbolSize()
	stride := OTISize + symbolSize
	if stride <= OTISize || len(encoded) < stride {
		return nil, ErrNoValidOTI
	}

	k, n, ok := scanAuthoritative(encoded, stride, symbolSize)
	if !ok {
		return nil, ErrNoValidOTI
	}

	session, err := d.Codec.Create(k, n, symbolSize)
	if err != nil {
		return nil, err
	}

	for off := 0; off+stride <= len(encoded); off += stride {
		oti, body, ok := parseStride(encoded[off : off+stride])
		if !ok || int(oti.N) != n || int(oti.K) != k {
			continue
		}
		if err := session.Feed(int(oti.ESI), body); err != nil {
			return nil, err
		}
		if session.IsComplete() {
			break
		}
	}

	if err := session.Finish(); err != nil {
		return nil, err
	}
	symbols, err := session.Recover()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, k*symbolSize)
	for _, s := range symbols {
		out = append(out, s...)
	}
	return out, nil
}

// scanAuthoritative returns the first stride whose body CRC matches its
// own OTI header, establishing (k, n) for the rest of the scan.
func scanAuthoritative(encoded []byte, stride, symbolSize int) (k, n int, ok bool) {
	for off := 0; off+stride <= len(encoded); off += stride {
		oti, _, valid := parseStride(encoded[off : off+stride])
		if valid {
			return int(oti.K), int(oti.N), true
		}
	}
	return 0, 0, false
}

func parseStride(s []byte) (OTI, []byte, bool) {
	oti, err := UnmarshalOTI(s[:OTISize])
	if err != nil {
		return OTI{}, nil, false
	}
	body := s[OTISize:]
	if checksum(body) != oti.CRC {
		return OTI{}, nil, false
	}
	return oti, body, true
}

func (d *Decoder) symbolSize() int {
	if d.SymbolSize > 0 {
		return d.SymbolSize
	}
	return SymbolSize
}
