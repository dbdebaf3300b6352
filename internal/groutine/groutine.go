// Package groutine starts named goroutines. The name is attached as a pprof label, so
// the reader loops, notifiers and drainers can be told apart in a goroutine profile,
// and is available to the goroutine for logging.
package groutine

import (
	"context"
	"runtime/pprof"
	"sync"
)

type ctxKey string

const goroutineNameKey ctxKey = "goroutine_name"

// Go runs fn in a new goroutine labelled name. A nil parentCtx means
// context.Background().
//
//	groutine.Go(ctx, "bgapi-reader", func(ctx context.Context) {
//	    log.WithField("goroutine", groutine.GetName(ctx)).Debug("started")
//	})
func Go(parentCtx context.Context, name string, fn func(ctx context.Context)) {
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	labels := pprof.Labels("goroutine_name", name)

	go pprof.Do(parentCtx, labels, func(ctx context.Context) {
		fn(context.WithValue(ctx, goroutineNameKey, name))
	})
}

// GetName returns the name given to Go, or "" outside such a goroutine.
func GetName(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(goroutineNameKey).(string); ok {
		return s
	}
	return ""
}

// Group tracks named goroutines so their owner can wait for all of them.
type Group struct {
	wg sync.WaitGroup
}

// Go is the package level Go, counted by the group.
func (g *Group) Go(parentCtx context.Context, name string, fn func(ctx context.Context)) {
	g.wg.Add(1)
	Go(parentCtx, name, func(ctx context.Context) {
		defer g.wg.Done()
		fn(ctx)
	})
}

// Wait blocks until every goroutine started through the group has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}
