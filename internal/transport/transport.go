// Package transport moves BGAPI frames between the host and a radio module.
//
// A Transport has exactly one outstanding command at a time: the caller sends a frame,
// consumes one synchronous reply with ReadSyncReply and then polls for the events the
// command produces with WaitEvent.
package transport

import (
	"context"
	"errors"
	"time"

	"github.com/srg/bgatt/internal/bgapi"
)

var (
	// ErrNoReply is returned when the module does not answer a command in time.
	ErrNoReply = errors.New("no reply from module")
	// ErrClosed is returned by every operation once the transport is closed or the
	// underlying port failed.
	ErrClosed = errors.New("transport closed")
)

// Transport is the byte stream to the radio module.
type Transport interface {
	// Send writes one complete frame.
	Send(frame []byte) error
	// ReadSyncReply consumes exactly one command response.
	ReadSyncReply(ctx context.Context) (bgapi.Packet, error)
	// WaitEvent waits up to timeout for the next event. It returns (nil, false, nil) on
	// timeout.
	WaitEvent(ctx context.Context, timeout time.Duration) (bgapi.Packet, bool, error)
	Close() error
}
