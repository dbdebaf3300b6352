package testutils

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/srg/bgatt/internal/bgapi"
	"github.com/srg/bgatt/internal/transport"
)

var _ transport.Transport = (*MockTransport)(nil)

// MockTransport is a scripted transport.Transport. Expect one exchange at a time:
//
//	m.ExpectCommand(bgapi.DiscoverServices(0), reply)
//	m.ExpectEvents(evt1, evt2)
//	m.ExpectTimeout()
type MockTransport struct {
	mock.Mock
}

// Send records the frame.
func (m *MockTransport) Send(frame []byte) error {
	args := m.Called(bgapi.Packet(frame))
	return args.Error(0)
}

// ReadSyncReply returns the next scripted reply.
func (m *MockTransport) ReadSyncReply(ctx context.Context) (bgapi.Packet, error) {
	args := m.Called()
	p, _ := args.Get(0).(bgapi.Packet)
	return p, args.Error(1)
}

// WaitEvent returns the next scripted event.
func (m *MockTransport) WaitEvent(ctx context.Context, timeout time.Duration) (bgapi.Packet, bool, error) {
	args := m.Called()
	p, _ := args.Get(0).(bgapi.Packet)
	return p, args.Bool(1), args.Error(2)
}

// Close records the call.
func (m *MockTransport) Close() error {
	args := m.Called()
	return args.Error(0)
}

// ExpectCommand scripts one send of cmd answered by reply.
func (m *MockTransport) ExpectCommand(cmd, reply bgapi.Packet) *MockTransport {
	m.On("Send", cmd).Return(nil).Once()
	m.On("ReadSyncReply").Return(reply, nil).Once()
	return m
}

// ExpectEvents scripts events returned by WaitEvent, in order.
func (m *MockTransport) ExpectEvents(events ...bgapi.Packet) *MockTransport {
	for _, e := range events {
		m.On("WaitEvent").Return(e, true, nil).Once()
	}
	return m
}

// ExpectTimeout scripts one WaitEvent that sees nothing.
func (m *MockTransport) ExpectTimeout() *MockTransport {
	m.On("WaitEvent").Return(nil, false, nil).Once()
	return m
}
