package groutine

import (
	"context"
	"runtime/pprof"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGoNamesTheGoroutine(t *testing.T) {
	names := make(chan string, 1)
	labels := make(chan string, 1)

	Go(nil, "worker-42", func(ctx context.Context) {
		names <- GetName(ctx)
		v, _ := pprof.Label(ctx, "goroutine_name")
		labels <- v
	})

	assert.Equal(t, "worker-42", <-names)
	assert.Equal(t, "worker-42", <-labels, "pprof label MUST carry the name")
	assert.Empty(t, GetName(context.Background()))
	assert.Empty(t, GetName(nil))
}

func TestGroupWaits(t *testing.T) {
	var g Group
	var done atomic.Int32

	for i := 0; i < 5; i++ {
		g.Go(context.Background(), "counter", func(context.Context) {
			done.Add(1)
		})
	}
	g.Wait()

	assert.Equal(t, int32(5), done.Load(), "Wait MUST return after every goroutine")
}
