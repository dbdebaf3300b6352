package lua

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/bgatt/internal/groutine"
)

// OutputDrainer copies Lua output records to stdout/stderr writers as they arrive.
//
// The drainer ends when the channel is closed, or when ctx ends, after a short flush of
// what is still buffered.
type OutputDrainer struct {
	group groutine.Group

	stdout, stderr io.Writer
	logger         *logrus.Logger
}

// Wait blocks until the drainer goroutine has exited.
func (d *OutputDrainer) Wait() {
	d.group.Wait()
}

func (d *OutputDrainer) write(record LuaOutputRecord) {
	w := d.stdout
	if record.Source == SourceStderr {
		w = d.stderr
	}
	if _, err := fmt.Fprint(w, record.Content); err != nil {
		d.logger.WithFields(logrus.Fields{
			"source": record.Source,
			"error":  err,
		}).Warn("Output drainer: write failed")
	}
}

// flush writes what is left, for at most timeout. It reports whether the channel was
// closed before the timeout.
func (d *OutputDrainer) flush(outputChan <-chan LuaOutputRecord, timeout time.Duration, reason string) bool {
	deadline := time.After(timeout)
	drained := 0
	for {
		select {
		case record, ok := <-outputChan:
			if !ok {
				d.logger.WithFields(logrus.Fields{
					"reason":  reason,
					"drained": drained,
				}).Debug("Output drainer: drain completed")
				return true
			}
			drained++
			d.write(record)
		case <-deadline:
			d.logger.WithFields(logrus.Fields{
				"reason":  reason,
				"drained": drained,
				"timeout": timeout,
			}).Debug("Output drainer: drain timeout reached")
			return false
		}
	}
}

// NewOutputDrainer starts draining outputChan. Nil writers discard.
func NewOutputDrainer(ctx context.Context, outputChan <-chan LuaOutputRecord, logger *logrus.Logger, stdout, stderr io.Writer) *OutputDrainer {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	d := &OutputDrainer{
		stdout: stdout,
		stderr: stderr,
		logger: logger,
	}

	d.group.Go(ctx, "lua-output-drainer", func(ctx context.Context) {
		defer logger.Debugf("%s: exiting", groutine.GetName(ctx))

		for {
			select {
			case record, ok := <-outputChan:
				if !ok {
					return
				}
				d.write(record)
			case <-ctx.Done():
				d.flush(outputChan, 100*time.Millisecond, "context-done")
				return
			}
		}
	})

	return d
}
