package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCapturedRoundTrip(t *testing.T) {
	f, err := BuildTxFrame(512)
	require.NoError(t, err)

	fc := DefaultFrameControl()
	f.SetRadiotap(0, 12, 0)
	f.SetMAC(fc, DurationID, BroadcastAddr, BroadcastAddr, BroadcastAddr)
	f.SetSequence(42)
	copy(f.Payload(), []byte("hello"))
	f.SetPayloadLen(5)

	cap, err := ParseCaptured(f.Bytes())
	require.NoError(t, err)
	assert.Equal(t, fc, cap.FC)
	assert.Equal(t, BroadcastAddr, cap.Addr2)
	assert.Equal(t, uint32(42), ParseSequence(cap.Addr1))
	assert.Equal(t, "hello", string(cap.Payload[:5]))
}

func TestParseCapturedShortBuffer(t *testing.T) {
	_, err := ParseCaptured([]byte{0, 0, 4, 0})
	assert.ErrorIs(t, err, ErrShortFrame)
}
