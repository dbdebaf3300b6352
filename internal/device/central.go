package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/bgatt/internal/bgapi"
	"github.com/srg/bgatt/internal/profile"
	"github.com/srg/bgatt/internal/transport"
)

// DefaultEventTimeout bounds every wait for an event.
const DefaultEventTimeout = 1000 * time.Millisecond

// DefaultConnectTimeout bounds the wait for the connection status event after
// gap_connect_direct.
const DefaultConnectTimeout = 10 * time.Second

// Options configure a Central.
type Options struct {
	EventTimeout   time.Duration
	ConnectTimeout time.Duration
	Logger         *logrus.Logger
}

// Central drives one BGAPI link.
type Central struct {
	mu             sync.Mutex
	tr             transport.Transport
	dev            *profile.Device
	logger         *logrus.Logger
	eventTimeout   time.Duration
	connectTimeout time.Duration
}

// NewCentral wraps a transport and the profile it populates. A nil dev starts an empty
// profile on connection 0.
func NewCentral(tr transport.Transport, dev *profile.Device, opts Options) *Central {
	if dev == nil {
		dev = profile.NewDevice(profile.MAC{}, 0)
	}
	if opts.EventTimeout <= 0 {
		opts.EventTimeout = DefaultEventTimeout
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &Central{
		tr:             tr,
		dev:            dev,
		logger:         opts.Logger,
		eventTimeout:   opts.EventTimeout,
		connectTimeout: opts.ConnectTimeout,
	}
}

// Profile returns the profile tree. It must not be read while an operation runs.
func (c *Central) Profile() *profile.Device {
	return c.dev
}

// Close closes the transport.
func (c *Central) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tr.Close()
}

// exchange sends a command and consumes its synchronous reply.
func (c *Central) exchange(ctx context.Context, op string, cmd bgapi.Packet) (bgapi.Packet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.logger.WithFields(logrus.Fields{
		"op":    op,
		"frame": cmd.String(),
	}).Trace("Sending command")

	if err := c.tr.Send(cmd); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	reply, err := c.tr.ReadSyncReply(ctx)
	if err != nil {
		if errors.Is(err, transport.ErrNoReply) {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrLinkLost, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return reply, nil
}

// command is exchange plus the result check shared by every command that reports one.
func (c *Central) command(ctx context.Context, op string, cmd bgapi.Packet) error {
	reply, err := c.exchange(ctx, op, cmd)
	if err != nil {
		return err
	}
	code, err := bgapi.ParseResult(reply)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return bgapi.CheckResult(op, code)
}

// nextEvent waits for one event, mapping a timeout to ErrLinkLost.
func (c *Central) nextEvent(ctx context.Context) (bgapi.Packet, error) {
	return c.nextEventWithin(ctx, c.eventTimeout)
}

func (c *Central) nextEventWithin(ctx context.Context, timeout time.Duration) (bgapi.Packet, error) {
	evt, ok, err := c.tr.WaitEvent(ctx, timeout)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLinkLost
	}
	c.logger.WithField("frame", evt.String()).Trace("Event received")
	return evt, nil
}
