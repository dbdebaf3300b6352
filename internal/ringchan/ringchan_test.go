package ringchan

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collect reads until the buffer stays empty for a moment.
func collect[T any](rc *RingChannel[T]) []T {
	var got []T
	for {
		v, ok, _ := rc.ReceiveTimeout(context.Background(), 10*time.Millisecond)
		if !ok {
			return got
		}
		got = append(got, v)
	}
}

func TestOverwriteOldest(t *testing.T) {
	rc := New[int](3)
	for i := 0; i < 10; i++ {
		rc.Send(i)
	}

	assert.Equal(t, []int{7, 8, 9}, collect(rc), "only the newest values MUST survive")

	m := rc.GetMetrics()
	assert.Equal(t, int64(10), m.Written)
	assert.Equal(t, int64(7), m.Overwritten)
	assert.Equal(t, int64(3), m.Processed)
}

func TestSendReportsDrop(t *testing.T) {
	rc := New[int](1)
	assert.False(t, rc.Send(1), "first send MUST fit")
	assert.True(t, rc.Send(2), "send into a full buffer MUST report the drop")
	assert.Equal(t, []int{2}, collect(rc))
}

func TestNewRejectsZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { New[int](0) })
}

func TestReceiveTimeout(t *testing.T) {
	rc := New[string](2)

	_, ok, err := rc.ReceiveTimeout(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok, "empty channel MUST time out")

	go func() {
		time.Sleep(5 * time.Millisecond)
		rc.Send("evt")
	}()
	v, ok, err := rc.ReceiveTimeout(context.Background(), time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "evt", v)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok, err = rc.ReceiveTimeout(ctx, time.Second)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClose(t *testing.T) {
	rc := New[int](4)
	rc.Send(3)
	rc.Close()
	rc.Close()
	rc.Send(4)
	assert.Equal(t, int64(1), rc.GetMetrics().Errors, "send after close MUST be counted, not panic")

	var got []int
	for v := range rc.C() {
		got = append(got, v)
	}
	assert.Equal(t, []int{3}, got, "buffered items MUST stay readable after close")
}
