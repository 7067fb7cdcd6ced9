package fec

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, codec Codec, message []byte, rate float64) []byte {
	t.Helper()
	enc := NewEncoder(codec)
	wire, err := enc.Encode(message, rate)
	require.NoError(t, err)

	dec := NewDecoder(codec)
	got, err := dec.Decode(wire)
	require.NoError(t, err)
	return got
}

func TestRoundTripRSCodec(t *testing.T) {
	message := bytes.Repeat([]byte("dxwifi-uplink-"), 400) // several symbols
	got := roundTrip(t, NewRSCodec(), message, 0.7)
	assert.True(t, bytes.HasPrefix(got, message))
}

func TestRoundTripXORCodec(t *testing.T) {
	message := bytes.Repeat([]byte("xor-mock-codec-"), 400)
	got := roundTrip(t, NewXORCodec(), message, 0.7)
	assert.True(t, bytes.HasPrefix(got, message))
}

func TestDecodeRecoversFromErasures(t *testing.T) {
	message := bytes.Repeat([]byte("erasure-recovery-test-payload-"), 200)
	enc := NewEncoder(NewRSCodec())
	wire, err := enc.Encode(message, 0.6)
	require.NoError(t, err)

	stride := OTISize + SymbolSize
	n := len(wire) / stride
	require.GreaterOrEqual(t, n, 2)

	// drop one symbol's worth of bytes to simulate a lost frame.
	dropped := append([]byte(nil), wire[:stride]...)
	dropped = append(dropped, wire[2*stride:]...)

	dec := NewDecoder(NewRSCodec())
	got, err := dec.Decode(dropped)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(got, message))
}

func TestDecodeSkipsGarbagePrefixAndCorruptOTI(t *testing.T) {
	message := bytes.Repeat([]byte("garbage-prefix-scenario-"), 200)
	enc := NewEncoder(NewRSCodec())
	wire, err := enc.Encode(message, 0.7)
	require.NoError(t, err)

	stride := OTISize + SymbolSize

	// The scan below steps in fixed strides from offset 0 (mirroring the
	// original find_valid_oti's frame-aligned walk), so the prefix must be
	// a whole number of strides or no offset will ever land back on a real
	// frame boundary.
	r := rand.New(rand.NewSource(42))
	garbage := make([]byte, stride*4)
	r.Read(garbage)

	corrupted := append([]byte(nil), wire...)
	corrupted[stride-1] ^= 0xFF // flip last byte of first symbol's body

	input := append(garbage, corrupted...)

	dec := NewDecoder(NewRSCodec())
	got, err := dec.Decode(input)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(got, message))
}

func TestDecodeUnrecoverableLoss(t *testing.T) {
	message := bytes.Repeat([]byte("loss-threshold-"), 500)
	enc := NewEncoder(NewRSCodec())
	wire, err := enc.Encode(message, 0.6)
	require.NoError(t, err)

	stride := OTISize + SymbolSize
	n := len(wire) / stride
	k := (len(message) + SymbolSize - 1) / SymbolSize
	repairs := n - k
	require.GreaterOrEqual(t, repairs, N1Min)

	// Dropping exactly n-k symbols still decodes; one more does not.
	survivable := wire[repairs*stride:]
	dec := NewDecoder(NewRSCodec())
	got, err := dec.Decode(survivable)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(got, message))

	fatal := wire[(repairs+1)*stride:]
	_, err = NewDecoder(NewRSCodec()).Decode(fatal)
	assert.ErrorIs(t, err, ErrUnrecoverableLoss)
}

func TestDecodeNoValidOTI(t *testing.T) {
	r := rand.New(rand.NewSource(9))
	garbage := make([]byte, 8192)
	r.Read(garbage)

	dec := NewDecoder(NewRSCodec())
	_, err := dec.Decode(garbage)
	assert.ErrorIs(t, err, ErrNoValidOTI)
}

func TestEncodeClampsRepairWindow(t *testing.T) {
	enc := NewEncoder(NewRSCodec())
	wire, err := enc.Encode([]byte("short message"), 0.99)
	require.NoError(t, err)

	stride := OTISize + SymbolSize
	n := len(wire) / stride
	assert.Equal(t, 1+N1Min, n) // k=1, clamped up to the N1Min floor
}

func TestEncodeRejectsUnrealisableRate(t *testing.T) {
	enc := NewEncoder(NewRSCodec())
	// k = 254 source symbols; even N1Min repair symbols would push the
	// total past maxTotalShards, so no code rate can be honoured.
	huge := make([]byte, 254*SymbolSize)
	_, err := enc.Encode(huge, 0.99)
	assert.ErrorIs(t, err, ErrRateUnrealisable)
}

func TestEncodeEmptyMessage(t *testing.T) {
	enc := NewEncoder(NewRSCodec())
	_, err := enc.Encode(nil, 0.5)
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}

func BenchmarkEncodeDecodeRS(b *testing.B) {
	message := bytes.Repeat([]byte("benchmark-payload-"), 1000)
	enc := NewEncoder(NewRSCodec())
	for i := 0; i < b.N; i++ {
		wire, err := enc.Encode(message, 0.75)
		if err != nil {
			b.Fatal(err)
		}
		dec := NewDecoder(NewRSCodec())
		if _, err := dec.Decode(wire); err != nil {
			b.Fatal(err)
		}
	}
}
