package notifyhub

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/bgatt/internal/bgapi"
	"github.com/srg/bgatt/internal/device"
	"github.com/srg/bgatt/internal/testutils"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Clients() == n }, time.Second, 10*time.Millisecond,
		"hub MUST have %d clients", n)
}

func TestBroadcast(t *testing.T) {
	hub := New(testutils.NewTestHelper(t).Logger)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	waitClients(t, hub, 2)

	evt := NewEvent(device.Notification{Connection: 0, Handle: 0x19, Type: bgapi.AttValueNotify, Value: []byte{0x01, 0xAB}}, "6e400003-b5a3-f393-e0a9-e50e24dcca9e")
	assert.Equal(t, 2, hub.Broadcast(evt), "every client MUST receive the event")

	for _, c := range []*websocket.Conn{a, b} {
		var got Event
		require.NoError(t, c.ReadJSON(&got))
		assert.Equal(t, uint16(0x19), got.Handle)
		assert.Equal(t, "notify", got.Type)
		assert.Equal(t, "01AB", got.Value)
		assert.Equal(t, evt.UUID, got.UUID)
	}
}

func TestClientDisconnectIsNoticed(t *testing.T) {
	hub := New(testutils.NewTestHelper(t).Logger)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	c := dial(t, srv)
	waitClients(t, hub, 1)

	require.NoError(t, c.Close())
	waitClients(t, hub, 0)
	assert.Equal(t, 0, hub.Broadcast(Event{}))
}

func TestClose(t *testing.T) {
	hub := New(testutils.NewTestHelper(t).Logger)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	c := dial(t, srv)
	waitClients(t, hub, 1)

	hub.Close()
	assert.Equal(t, 0, hub.Clients())

	_ = c.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := c.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "client MUST get a going away close, got %v", err)
}

func TestValueType(t *testing.T) {
	tests := []struct {
		in   byte
		want string
	}{
		{bgapi.AttValueRead, "read"},
		{bgapi.AttValueNotify, "notify"},
		{bgapi.AttValueIndicate, "indicate"},
		{bgapi.AttValueIndicateRspReq, "indicate"},
		{bgapi.AttValueReadBlob, "read"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, valueType(tt.in))
	}
}

type scriptedSource struct {
	results []error
	calls   int
}

func (s *scriptedSource) ReceiveNotification(context.Context) (device.Notification, error) {
	if s.calls >= len(s.results) {
		return device.Notification{}, device.ErrLinkLost
	}
	err := s.results[s.calls]
	s.calls++
	return device.Notification{Handle: uint16(s.calls)}, err
}

func TestRelay(t *testing.T) {
	src := &scriptedSource{results: []error{
		nil,
		device.ErrNoNotification,
		device.ErrUnexpectedEvent,
		nil,
	}}

	var handles []uint16
	err := Relay(context.Background(), src, func(n device.Notification) { handles = append(handles, n.Handle) })

	assert.ErrorIs(t, err, device.ErrLinkLost, "link errors MUST end the relay")
	assert.Equal(t, []uint16{1, 4}, handles, "timeouts and stray events MUST be skipped")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = Relay(ctx, &scriptedSource{}, func(device.Notification) {})
	assert.True(t, errors.Is(err, context.Canceled))
}
