package link

import (
	"context"
	"testing"

	"github.com/google/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopbackInjectDispatchFIFO(t *testing.T) {
	l := NewLoopback()
	require.NoError(t, l.Inject([]byte("one")))
	require.NoError(t, l.Inject([]byte("two")))
	require.NoError(t, l.Close())

	var got []string
	n, err := l.Dispatch(context.Background(), 0, func(frame []byte, _ gopacket.CaptureInfo) error {
		got = append(got, string(frame))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"one", "two"}, got)
}

func TestLoopbackInjectAfterCloseFails(t *testing.T) {
	l := NewLoopback()
	require.NoError(t, l.Close())
	assert.Error(t, l.Inject([]byte("x")))
}

func TestLoopbackStatsCountsDispatched(t *testing.T) {
	l := NewLoopback()
	require.NoError(t, l.Inject([]byte("a")))
	require.NoError(t, l.Close())

	_, err := l.Dispatch(context.Background(), 1, func([]byte, gopacket.CaptureInfo) error { return nil })
	require.NoError(t, err)

	stats, err := l.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PacketsReceived)
}

func TestLoopbackDispatchCtxCancel(t *testing.T) {
	l := NewLoopback()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := l.Dispatch(ctx, 1, func([]byte, gopacket.CaptureInfo) error { return nil })
	assert.Error(t, err)
	assert.Equal(t, 0, n)
}
