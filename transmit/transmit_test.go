package transmit

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AlexanderJDupree/dxwifi-prototype/control"
	"github.com/AlexanderJDupree/dxwifi-prototype/frame"
	"github.com/AlexanderJDupree/dxwifi-prototype/link"
	"github.com/google/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyDriver wraps a Loopback and fails Inject on chosen call numbers
// (1-indexed across the whole session, preamble included), to exercise
// Start's best-effort handling of inject errors.
type flakyDriver struct {
	*link.Loopback
	failOn map[int]bool
	calls  int
}

func (f *flakyDriver) Inject(frame []byte) error {
	f.calls++
	if f.failOn[f.calls] {
		return errors.New("injected failure")
	}
	return f.Loopback.Inject(frame)
}

func testConfig() Config {
	return Config{
		BlockSize: 512,
		RateMbps:  12,
		FC:        frame.DefaultFrameControl(),
		Addr1:     frame.BroadcastAddr,
		Addr2:     frame.BroadcastAddr,
		Addr3:     frame.BroadcastAddr,
	}
}

func TestStartBracketsStreamWithControlFrames(t *testing.T) {
	l := link.NewLoopback()
	tx, err := New(l, testConfig())
	require.NoError(t, err)

	message := bytes.Repeat([]byte("x"), 512*3+17)
	stats, err := tx.Start(context.Background(), bytes.NewReader(message))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	assert.Equal(t, 4, stats.FramesSent) // 3 full blocks + 1 short block
	assert.Equal(t, len(message), stats.BytesSent)

	var kinds []control.Type
	var seqs []uint32
	_, err = l.Dispatch(context.Background(), 0, func(raw []byte, _ gopacket.CaptureInfo) error {
		cap, perr := frame.ParseCaptured(raw)
		require.NoError(t, perr)
		kind := control.Classify(cap.Payload)
		kinds = append(kinds, kind)
		if kind == control.None {
			seqs = append(seqs, frame.ParseSequence(cap.Addr1))
		}
		return nil
	})
	require.NoError(t, err)

	require.Len(t, kinds, 6) // preamble + 4 data frames + eot
	assert.Equal(t, control.Preamble, kinds[0])
	assert.Equal(t, control.EOT, kinds[len(kinds)-1])
	for _, k := range kinds[1 : len(kinds)-1] {
		assert.Equal(t, control.None, k)
	}
	assert.Equal(t, []uint32{0, 1, 2, 3}, seqs, "sequence numbers are stamped monotonically from 0")
}

func TestAttachEnforcesMaxHandlers(t *testing.T) {
	l := link.NewLoopback()
	tx, err := New(l, testConfig())
	require.NoError(t, err)

	// The sequence stamper installed by New occupies the first slot.
	for i := 0; i < MaxPreInjectHandlers-1; i++ {
		require.NoError(t, tx.Attach(func(*frame.Frame, uint32) error { return nil }))
	}
	assert.ErrorIs(t, tx.Attach(func(*frame.Frame, uint32) error { return nil }), ErrTooManyHandlers)
}

func TestPreInjectHandlerCalledPerDataFrame(t *testing.T) {
	l := link.NewLoopback()
	tx, err := New(l, testConfig())
	require.NoError(t, err)

	var calls int
	var frameNos []uint32
	require.NoError(t, tx.Attach(func(f *frame.Frame, frameNo uint32) error {
		calls++
		frameNos = append(frameNos, frameNo)
		assert.Equal(t, frameNo, f.Sequence(), "stamper runs before user handlers")
		return nil
	}))

	message := bytes.Repeat([]byte("y"), 512*2)
	_, err = tx.Start(context.Background(), bytes.NewReader(message))
	require.NoError(t, err)

	assert.Equal(t, 2, calls) // handler runs only for data frames, not control frames
	assert.Equal(t, []uint32{0, 1}, frameNos)
}

func TestInjectFailuresAreLoggedAndCounted(t *testing.T) {
	l := &flakyDriver{Loopback: link.NewLoopback(), failOn: map[int]bool{2: true}}
	tx, err := New(l, testConfig())
	require.NoError(t, err)

	message := bytes.Repeat([]byte("z"), 512*3)
	stats, err := tx.Start(context.Background(), bytes.NewReader(message))
	require.NoError(t, err) // a dropped frame is not fatal

	assert.Equal(t, 1, stats.InjectErrors)
	assert.Equal(t, 2, stats.FramesSent)
	assert.Equal(t, 1024, stats.BytesSent)
}

func TestStartTimeoutStillSendsEOT(t *testing.T) {
	l := link.NewLoopback()
	cfg := testConfig()
	cfg.ReadTimeout = time.Millisecond
	tx, err := New(l, cfg)
	require.NoError(t, err)

	_, err = tx.Start(context.Background(), blockingReader{})
	assert.ErrorIs(t, err, ErrReadTimeout)
	require.NoError(t, l.Close())

	// The session must still be bracketed on the air: preamble then EOT.
	var kinds []control.Type
	_, err = l.Dispatch(context.Background(), 0, func(raw []byte, _ gopacket.CaptureInfo) error {
		cap, perr := frame.ParseCaptured(raw)
		require.NoError(t, perr)
		kinds = append(kinds, control.Classify(cap.Payload))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []control.Type{control.Preamble, control.EOT}, kinds)
}

// blockingReader never returns, simulating a stalled input source.
type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	select {}
}

func TestInvalidBlockSizeRejected(t *testing.T) {
	l := link.NewLoopback()
	cfg := testConfig()
	cfg.BlockSize = 10
	_, err := New(l, cfg)
	assert.ErrorIs(t, err, frame.ErrInvalidBlockSize)
}

func TestZeroAddr1PrefixRejected(t *testing.T) {
	l := link.NewLoopback()
	cfg := testConfig()
	cfg.Addr1 = frame.HardwareAddr{0x00, 0x00, 0x01, 0x02, 0x03, 0x04}
	_, err := New(l, cfg)
	assert.ErrorIs(t, err, frame.ErrInvalidAddress)
}
