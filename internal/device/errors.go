package device

import (
	"errors"
	"fmt"
)

var (
	// ErrLinkLost means the module stopped producing events mid procedure. It is the
	// only disconnect signal the engine has.
	ErrLinkLost = errors.New("link lost: no event before timeout")
	// ErrNoNotification is returned by ReceiveNotification when nothing arrived in time.
	ErrNoNotification = errors.New("no notification")
	// ErrUnexpectedEvent is returned by ReceiveNotification for any event other than an
	// attribute value.
	ErrUnexpectedEvent = errors.New("unexpected event")
	// ErrValueTooLong is returned for writes over the 255 byte attribute write limit.
	ErrValueTooLong = errors.New("value longer than 255 bytes")
)

// NotFoundError represents an attribute lookup that the discovered profile cannot serve
type NotFoundError struct {
	Resource string   // "service", "characteristic", "attribute"
	UUIDs    []string // One or more UUIDs, outermost first
}

func (e *NotFoundError) Error() string {
	if len(e.UUIDs) == 0 {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	if len(e.UUIDs) == 1 {
		return fmt.Sprintf("%s %q not found", e.Resource, e.UUIDs[0])
	}
	return fmt.Sprintf("%s %q not found in service %q", e.Resource, e.UUIDs[len(e.UUIDs)-1], e.UUIDs[0])
}

// ConnectionState represents the specific kind of connection state failure
type ConnectionState string

const (
	NotConnected  ConnectionState = "not_connected"
	ConnectFailed ConnectionState = "connect_failed"
)

// ConnectionError represents any connection-related problem
type ConnectionError struct {
	State ConnectionState
	Msg   string
}

func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.State)
	}
	return fmt.Sprintf("%s: %s", e.State, e.Msg)
}

// Is allows errors.Is to compare ConnectionError values by State
func (e *ConnectionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnectionError)
	if !ok {
		return false
	}
	return e.State == t.State
}

var (
	ErrNotConnected  = &ConnectionError{State: NotConnected}
	ErrConnectFailed = &ConnectionError{State: ConnectFailed}
)

// Phase names a discovery phase.
type Phase string

const (
	PhaseServices        Phase = "services"
	PhaseCharacteristics Phase = "characteristics"
	PhaseDescriptors     Phase = "descriptors"
)

// DiscoveryError is returned by DiscoverProfile. The profile has been reset by the time
// the caller sees it.
type DiscoveryError struct {
	Phase Phase
	Err   error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("%s discovery failed: %v", e.Phase, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}
