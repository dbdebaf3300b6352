package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/bgatt/internal/bgapi"
	"github.com/srg/bgatt/internal/groutine"
	"github.com/srg/bgatt/internal/ringchan"
)

// Options configures a UART transport.
type Options struct {
	// PacketMode prefixes every frame with one length byte in both directions, as the
	// module firmware expects when built for UART packet mode.
	PacketMode bool
	// ReplyTimeout bounds ReadSyncReply.
	ReplyTimeout time.Duration
	// EventBuffer is the event queue capacity; the oldest event is dropped on overflow.
	EventBuffer int
	Logger      *logrus.Logger
}

// DefaultOptions match a BLE112 on a USB CDC port.
func DefaultOptions() Options {
	return Options{
		ReplyTimeout: time.Second,
		EventBuffer:  64,
	}
}

// UART is a Transport over any io.ReadWriteCloser: a serial port, a pty or a pipe.
// A single reader goroutine splits incoming frames into replies and events.
type UART struct {
	port    io.ReadWriteCloser
	opts    Options
	logger  *logrus.Logger
	replies chan bgapi.Packet
	events  *ringchan.RingChannel[bgapi.Packet]

	writeMu   sync.Mutex
	done      chan struct{}
	closing   atomic.Bool
	closeOnce sync.Once
	cause     error // set before done is closed
}

// NewUART wraps port and starts the reader goroutine.
func NewUART(port io.ReadWriteCloser, opts Options) *UART {
	def := DefaultOptions()
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = def.ReplyTimeout
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = def.EventBuffer
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}

	u := &UART{
		port:    port,
		opts:    opts,
		logger:  logger,
		replies: make(chan bgapi.Packet, 4),
		events:  ringchan.New[bgapi.Packet](opts.EventBuffer),
		done:    make(chan struct{}),
	}

	groutine.Go(context.Background(), "bgapi-reader", u.readLoop)
	return u
}

// Send writes one frame, prefixed with its length in packet mode. Replies left over from
// a previous command that timed out are discarded first.
func (u *UART) Send(frame []byte) error {
	if u.isClosed() {
		return u.closedErr()
	}
	if len(frame) < bgapi.HeaderLen {
		return fmt.Errorf("frame too short: %d bytes", len(frame))
	}

	u.writeMu.Lock()
	defer u.writeMu.Unlock()

	for drained := false; !drained; {
		select {
		case stale := <-u.replies:
			u.logger.WithField("frame", stale.String()).Warn("Discarding stale reply")
		default:
			drained = true
		}
	}

	out, err := bgapi.Encode(frame, u.opts.PacketMode)
	if err != nil {
		return err
	}

	u.logger.WithField("frame", bgapi.Packet(frame).String()).Trace("TX")
	if _, err := u.port.Write(out); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// ReadSyncReply waits for the next command response, bounded by the reply timeout.
func (u *UART) ReadSyncReply(ctx context.Context) (bgapi.Packet, error) {
	timer := time.NewTimer(u.opts.ReplyTimeout)
	defer timer.Stop()

	select {
	case p := <-u.replies:
		return p, nil
	case <-u.done:
		return nil, u.closedErr()
	case <-timer.C:
		return nil, ErrNoReply
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WaitEvent returns the next queued event, or (nil, false, nil) after timeout.
func (u *UART) WaitEvent(ctx context.Context, timeout time.Duration) (bgapi.Packet, bool, error) {
	p, ok, err := u.events.ReceiveTimeout(ctx, timeout)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		if u.isClosed() {
			return nil, false, u.closedErr()
		}
		return nil, false, nil
	}
	return p, true, nil
}

// DroppedEvents reports how many events were overwritten before being consumed.
func (u *UART) DroppedEvents() int64 {
	return u.events.GetMetrics().Overwritten
}

// Close closes the port and stops the reader.
func (u *UART) Close() error {
	var err error
	u.closing.Store(true)
	u.closeOnce.Do(func() {
		err = u.port.Close()
		u.shutdown(ErrClosed)
	})
	return err
}

func (u *UART) shutdown(cause error) {
	u.cause = cause
	close(u.done)
	u.events.Close()
}

func (u *UART) readLoop(ctx context.Context) {
	logger := u.logger.WithField("goroutine", groutine.GetName(ctx))
	r := bufio.NewReader(u.port)

	for {
		p, err := bgapi.ReadFrame(r, u.opts.PacketMode)
		if err != nil && p != nil {
			logger.WithError(err).Warn("Dropping malformed frame")
			continue
		}
		if err != nil {
			if u.closing.Load() {
				return
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				logger.Debug("Port closed by peer")
			} else {
				logger.WithError(err).Error("Read failed, stopping transport")
			}
			u.closeOnce.Do(func() {
				_ = u.port.Close()
				u.shutdown(fmt.Errorf("%w: %w", ErrClosed, err))
			})
			return
		}

		logger.WithField("frame", p.String()).Trace("RX")
		if p.IsEvent() {
			if dropped := u.events.Send(p); dropped {
				logger.Warn("Event queue full, oldest event dropped")
			}
			continue
		}

		select {
		case u.replies <- p:
		default:
			logger.WithField("frame", p.String()).Warn("Reply queue full, reply dropped")
		}
	}
}

func (u *UART) isClosed() bool {
	select {
	case <-u.done:
		return true
	default:
		return false
	}
}

// closedErr must only be called once done is closed.
func (u *UART) closedErr() error {
	if u.cause != nil {
		return u.cause
	}
	return ErrClosed
}
