package ptyio

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripThroughSlave(t *testing.T) {
	port, err := Open(Options{ReadCap: 256, WriteCap: 256, PollTimeoutMs: 10})
	require.NoError(t, err)
	defer port.Close()

	require.NotEmpty(t, port.TTYName(), "slave path MUST be known")

	client, err := os.OpenFile(port.TTYName(), os.O_RDWR, 0)
	require.NoError(t, err)
	defer client.Close()

	var mu sync.Mutex
	var received []byte
	port.SetReadCallback(func(data []byte) {
		mu.Lock()
		received = append(received, data...)
		mu.Unlock()
	})

	_, err = client.Write([]byte{0x00, 0x00, 0x00, 0x08})
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 4
	}, 2*time.Second, 10*time.Millisecond, "client bytes MUST reach the callback unmodified")

	n, err := port.Write([]byte{0x80, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	buf := make([]byte, 4)
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	got := 0
	for got < 4 {
		m, err := client.Read(buf[got:])
		require.NoError(t, err)
		got += m
	}
	assert.Equal(t, []byte{0x80, 0x00, 0x00, 0x00}, buf)

	stats := port.Stats()
	assert.Equal(t, uint64(4), stats.ReadBytesTotal)
	assert.Zero(t, stats.DroppedWriteCount)
}

func TestWriteAfterClose(t *testing.T) {
	port, err := Open(Options{ReadCap: 16, WriteCap: 16, PollTimeoutMs: 10})
	require.NoError(t, err)

	require.NoError(t, port.Close())
	assert.NoError(t, port.Close(), "second close MUST be a no-op")

	_, err = port.Write([]byte{1})
	assert.ErrorIs(t, err, os.ErrClosed)
	_, err = port.Read(make([]byte, 1))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestOpenRejectsZeroCapacity(t *testing.T) {
	_, err := Open(Options{})
	assert.Error(t, err)
}
