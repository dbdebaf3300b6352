// Package simulator plays the radio module side of BGAPI for one peripheral: it answers
// attribute client, connection, GAP and system commands from an attribute table built
// from a Peripheral description.
//
// It is a test fixture and a demo backend for "bgatt simulate", not a GATT server.
package simulator

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/blang/semver"
	"github.com/sirupsen/logrus"

	"github.com/srg/bgatt/internal/advdata"
	"github.com/srg/bgatt/internal/bgapi"
	"github.com/srg/bgatt/internal/profile"
)

// ReasonLocalTerminated is the disconnect reason reported after connection_disconnect.
const ReasonLocalTerminated uint16 = 0x0216

// FaultHook may rewrite the frames produced for a command. out[0] is the response
// when the command has one.
type FaultHook func(cmd bgapi.Packet, out []bgapi.Packet) []bgapi.Packet

// Simulator answers commands for one peripheral. It is safe for concurrent use.
type Simulator struct {
	mu        sync.Mutex
	periph    *Peripheral
	table     *attributeTable
	logger    *logrus.Logger
	connected bool
	scanning  bool
	notifying map[uint16]bool // value handle -> enabled
	hook      FaultHook
	emit      func(bgapi.Packet)
	commands  []bgapi.Packet
}

// New builds a simulator. The link starts connected, as discovery expects.
func New(p *Peripheral, logger *logrus.Logger) (*Simulator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if _, err := semver.Parse(p.Firmware); err != nil {
		return nil, fmt.Errorf("invalid firmware version %q: %w", p.Firmware, err)
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Simulator{
		periph:    p,
		table:     buildTable(p),
		logger:    logger,
		connected: true,
		notifying: make(map[uint16]bool),
	}, nil
}

// SetFaultHook installs (or clears with nil) a hook applied to every command.
func (s *Simulator) SetFaultHook(h FaultHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = h
}

// SetConnected forces the link state.
func (s *Simulator) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
}

// Connected reports the link state.
func (s *Simulator) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Commands returns every command received so far, in order.
func (s *Simulator) Commands() []bgapi.Packet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bgapi.Packet(nil), s.commands...)
}

// Value returns the current value of an attribute.
func (s *Simulator) Value(handle uint16) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.table.get(handle)
	if !ok {
		return nil, false
	}
	return append([]byte(nil), a.value...), true
}

// NotificationsEnabled reports whether the client enabled notifications for a value
// handle.
func (s *Simulator) NotificationsEnabled(valueHandle uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notifying[valueHandle]
}

// Notify updates a characteristic value and, when the client enabled notifications,
// emits an attribute value event. It reports whether an event was emitted.
func (s *Simulator) Notify(valueHandle uint16, value []byte) bool {
	s.mu.Lock()
	a, ok := s.table.get(valueHandle)
	if !ok || a.kind != attrValue {
		s.mu.Unlock()
		return false
	}
	a.value = append([]byte(nil), value...)
	enabled := s.notifying[valueHandle] && s.connected
	emit := s.emit
	conn := s.periph.Connection
	s.mu.Unlock()

	if !enabled || emit == nil {
		return false
	}
	emit(bgapi.AttributeValueEvent(conn, valueHandle, bgapi.AttValueNotify, value))
	return true
}

func (s *Simulator) setEmitter(fn func(bgapi.Packet)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emit = fn
}

// Handle processes one command frame and returns the response followed by the events
// it causes. Unknown commands produce nothing.
func (s *Simulator) Handle(cmd bgapi.Packet) []bgapi.Packet {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commands = append(s.commands, append(bgapi.Packet(nil), cmd...))
	out := s.dispatch(cmd)
	if s.hook != nil {
		out = s.hook(cmd, out)
	}

	s.logger.WithFields(logrus.Fields{
		"class":  cmd.Class(),
		"id":     cmd.ID(),
		"frames": len(out),
	}).Debug("Simulator handled command")
	return out
}

func (s *Simulator) dispatch(cmd bgapi.Packet) []bgapi.Packet {
	if cmd.IsEvent() || len(cmd) < bgapi.HeaderLen {
		return nil
	}
	pl := cmd.Payload()

	switch cmd.Class() {
	case bgapi.ClassAttClient:
		if !s.connected {
			return []bgapi.Packet{bgapi.ResultResponse(cmd.Class(), cmd.ID(), cmd.Connection(), bgapi.ResultNotConnected)}
		}
		switch cmd.ID() {
		case bgapi.CmdAttClientReadByGroup:
			return s.readByGroupType(cmd, pl)
		case bgapi.CmdAttClientReadByType:
			return s.readByType(cmd, pl)
		case bgapi.CmdAttClientFindInfo:
			return s.findInformation(cmd, pl)
		case bgapi.CmdAttClientReadByHandle:
			return s.readByHandle(cmd, pl)
		case bgapi.CmdAttClientWrite:
			return s.attributeWrite(cmd, pl)
		}
	case bgapi.ClassConnection:
		switch cmd.ID() {
		case bgapi.CmdConnectionGetStatus:
			return []bgapi.Packet{bgapi.ConnectionGetStatusResponse(cmd.Connection()), s.statusEvent()}
		case bgapi.CmdConnectionDisconnect:
			if !s.connected {
				return []bgapi.Packet{bgapi.ResultResponse(cmd.Class(), cmd.ID(), cmd.Connection(), bgapi.ResultNotConnected)}
			}
			s.connected = false
			s.notifying = make(map[uint16]bool)
			return []bgapi.Packet{
				bgapi.ResultResponse(cmd.Class(), cmd.ID(), cmd.Connection(), bgapi.ResultSuccess),
				bgapi.DisconnectedEvent(cmd.Connection(), ReasonLocalTerminated),
			}
		}
	case bgapi.ClassGap:
		return s.gap(cmd, pl)
	case bgapi.ClassSystem:
		switch cmd.ID() {
		case bgapi.CmdSystemHello:
			return []bgapi.Packet{bgapi.Frame(false, bgapi.ClassSystem, bgapi.CmdSystemHello, nil)}
		case bgapi.CmdSystemGetInfo:
			v := semver.MustParse(s.periph.Firmware)
			return []bgapi.Packet{bgapi.SystemInfoResponse(bgapi.SystemInfo{
				Major: uint16(v.Major), Minor: uint16(v.Minor), Patch: uint16(v.Patch),
				Build: 1, LLVersion: 2, Protocol: 1, Hardware: 1,
			})}
		}
	}

	s.logger.WithField("frame", cmd.String()).Warn("Simulator ignoring unsupported command")
	return nil
}

func (s *Simulator) ok(cmd bgapi.Packet) bgapi.Packet {
	return bgapi.ResultResponse(cmd.Class(), cmd.ID(), cmd.Connection(), bgapi.ResultSuccess)
}

func (s *Simulator) invalidParameter(cmd bgapi.Packet) []bgapi.Packet {
	return []bgapi.Packet{bgapi.ResultResponse(cmd.Class(), cmd.ID(), cmd.Connection(), bgapi.ResultInvalidParameter)}
}

// readByGroupType: [0] conn [1:3) start [3:5) end [5] uuid len [6:8) uuid
func (s *Simulator) readByGroupType(cmd bgapi.Packet, pl []byte) []bgapi.Packet {
	if len(pl) < 8 {
		return s.invalidParameter(cmd)
	}
	conn := pl[0]
	start, end := le16(pl[1:]), le16(pl[3:])
	if le16(pl[6:]) != bgapi.UUIDPrimaryService || start > end {
		return s.invalidParameter(cmd)
	}

	out := []bgapi.Packet{s.ok(cmd)}
	for _, svc := range s.table.services {
		if svc.start < start || svc.start > end {
			continue
		}
		groupEnd := svc.end
		if svc.openEnd {
			groupEnd = bgapi.LastHandle
		}
		out = append(out, bgapi.GroupFoundEvent(conn, svc.start, groupEnd, svc.uuid))
	}
	return append(out, s.completed(conn, len(out) > 1, 0))
}

// readByType only serves characteristic declarations.
func (s *Simulator) readByType(cmd bgapi.Packet, pl []byte) []bgapi.Packet {
	if len(pl) < 8 {
		return s.invalidParameter(cmd)
	}
	conn := pl[0]
	start, end := le16(pl[1:]), le16(pl[3:])
	if le16(pl[6:]) != bgapi.UUIDCharacteristic || start == 0 || start > end {
		return s.invalidParameter(cmd)
	}

	out := []bgapi.Packet{s.ok(cmd)}
	s.table.between(start, end, func(a *attribute) {
		if a.kind == attrDeclaration {
			out = append(out, bgapi.CharacteristicDeclarationEvent(conn, a.handle, a.props, a.owner, a.uuid))
		}
	})
	return append(out, s.completed(conn, len(out) > 1, 0))
}

func (s *Simulator) findInformation(cmd bgapi.Packet, pl []byte) []bgapi.Packet {
	if len(pl) < 5 {
		return s.invalidParameter(cmd)
	}
	conn := pl[0]
	start, end := le16(pl[1:]), le16(pl[3:])
	if start == 0 || start > end {
		return s.invalidParameter(cmd)
	}

	out := []bgapi.Packet{s.ok(cmd)}
	s.table.between(start, end, func(a *attribute) {
		out = append(out, bgapi.FindInformationFoundEvent(conn, a.handle, a.typ16))
	})
	return append(out, s.completed(conn, len(out) > 1, start))
}

func (s *Simulator) readByHandle(cmd bgapi.Packet, pl []byte) []bgapi.Packet {
	if len(pl) < 3 {
		return s.invalidParameter(cmd)
	}
	conn, h := pl[0], le16(pl[1:])
	out := []bgapi.Packet{s.ok(cmd)}

	a, ok := s.table.get(h)
	switch {
	case !ok:
		return append(out, bgapi.ProcedureCompletedEvent(conn, bgapi.ResultInvalidHandle, h))
	case a.kind == attrValue && a.props&0x02 == 0:
		return append(out, bgapi.ProcedureCompletedEvent(conn, bgapi.ResultReadNotPermitted, h))
	}
	return append(out, bgapi.AttributeValueEvent(conn, h, bgapi.AttValueRead, s.readValue(a)))
}

// readValue renders declarations the way the server stores them.
func (s *Simulator) readValue(a *attribute) []byte {
	switch a.kind {
	case attrService:
		if u16, ok := a.uuid.UUID16(); ok {
			return binary.LittleEndian.AppendUint16(nil, u16)
		}
		return a.uuid.Wire()
	case attrDeclaration:
		v := binary.LittleEndian.AppendUint16([]byte{a.props}, a.owner)
		if u16, ok := a.uuid.UUID16(); ok {
			return binary.LittleEndian.AppendUint16(v, u16)
		}
		return append(v, a.uuid.Wire()...)
	}
	return append([]byte(nil), a.value...)
}

func (s *Simulator) attributeWrite(cmd bgapi.Packet, pl []byte) []bgapi.Packet {
	if len(pl) < 4 || len(pl) < 4+int(pl[3]) {
		return s.invalidParameter(cmd)
	}
	conn, h := pl[0], le16(pl[1:])
	data := append([]byte(nil), pl[4:4+int(pl[3])]...)
	out := []bgapi.Packet{s.ok(cmd)}

	a, ok := s.table.get(h)
	switch {
	case !ok:
		return append(out, bgapi.ProcedureCompletedEvent(conn, bgapi.ResultInvalidHandle, h))
	case a.kind == attrService || a.kind == attrDeclaration:
		return append(out, bgapi.ProcedureCompletedEvent(conn, bgapi.ResultWriteNotPermitted, h))
	case a.kind == attrValue && a.props&(0x04|0x08) == 0:
		return append(out, bgapi.ProcedureCompletedEvent(conn, bgapi.ResultWriteNotPermitted, h))
	}

	a.value = data
	if a.kind == attrDescriptor && a.typ16 == bgapi.UUIDClientCharCfg {
		s.notifying[a.owner] = cccdEnables(data)
		s.logger.WithFields(logrus.Fields{
			"handle":  a.owner,
			"enabled": s.notifying[a.owner],
		}).Info("Client configuration written")
	}
	return append(out, bgapi.ProcedureCompletedEvent(conn, bgapi.ResultSuccess, h))
}

// cccdEnables accepts both the binary form (0x0001, 0x0002) and the ASCII "1" some
// clients write.
func cccdEnables(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	switch data[0] {
	case 0x00, '0':
		return false
	}
	return true
}

func (s *Simulator) gap(cmd bgapi.Packet, pl []byte) []bgapi.Packet {
	switch cmd.ID() {
	case bgapi.CmdGapSetScanParameters:
		return []bgapi.Packet{s.ok(cmd)}
	case bgapi.CmdGapDiscover:
		if s.scanning {
			return []bgapi.Packet{bgapi.ResultResponse(cmd.Class(), cmd.ID(), 0, bgapi.ResultWrongState)}
		}
		s.scanning = true
		return append([]bgapi.Packet{s.ok(cmd)}, s.scanResponses()...)
	case bgapi.CmdGapEndProcedure:
		if !s.scanning {
			return []bgapi.Packet{bgapi.ResultResponse(cmd.Class(), cmd.ID(), 0, bgapi.ResultWrongState)}
		}
		s.scanning = false
		return []bgapi.Packet{s.ok(cmd)}
	case bgapi.CmdGapConnectDirect:
		if len(pl) < 7 {
			return s.invalidParameter(cmd)
		}
		var mac profile.MAC
		for i := 0; i < 6; i++ {
			mac[i] = pl[5-i]
		}
		out := []bgapi.Packet{bgapi.ConnectDirectResponse(bgapi.ResultSuccess, s.periph.Connection)}
		if mac != s.periph.Address {
			// the module keeps trying, no event follows
			return out
		}
		s.connected = true
		return append(out, s.statusEvent())
	}
	return nil
}

func (s *Simulator) statusEvent() bgapi.Packet {
	flags := byte(0)
	if s.connected {
		flags = bgapi.ConnectionFlagConnected | 0x04
	}
	return bgapi.ConnectionStatusEvent(bgapi.ConnectionStatus{
		Connection:  s.periph.Connection,
		Flags:       flags,
		Address:     s.periph.Address,
		AddressType: s.periph.AddressType,
		Interval:    bgapi.DefaultConnectParams.IntervalMin,
		Timeout:     bgapi.DefaultConnectParams.Timeout,
		Latency:     bgapi.DefaultConnectParams.Latency,
		Bonding:     0xFF,
	})
}

func (s *Simulator) scanResponses() []bgapi.Packet {
	out := []bgapi.Packet{bgapi.ScanResponseEvent(bgapi.ScanResponse{
		RSSI:        s.periph.RSSI,
		Sender:      s.periph.Address,
		AddressType: s.periph.AddressType,
		Bond:        0xFF,
		Data:        advertisement(s.periph.Name),
	})}
	for _, adv := range s.periph.Advertisers {
		rssi := adv.RSSI
		if rssi == 0 {
			rssi = -80
		}
		out = append(out, bgapi.ScanResponseEvent(bgapi.ScanResponse{
			RSSI:   rssi,
			Sender: adv.Address,
			Bond:   0xFF,
			Data:   advertisement(adv.Name),
		}))
	}
	return out
}

func advertisement(name string) []byte {
	fields := []advdata.Field{{Type: advdata.TypeFlags, Value: []byte{0x06}}}
	if name != "" {
		fields = append(fields, advdata.Field{Type: advdata.TypeCompleteName, Value: []byte(name)})
	}
	return advdata.Build(fields...)
}

// completed ends a discovery procedure: success when something was found, attribute
// not found otherwise.
func (s *Simulator) completed(conn byte, found bool, handle uint16) bgapi.Packet {
	if found {
		return bgapi.ProcedureCompletedEvent(conn, bgapi.ResultSuccess, handle)
	}
	return bgapi.ProcedureCompletedEvent(conn, bgapi.ResultAttributeNotFound, handle)
}

func le16(b []byte) uint16 {
	return binary.LittleEndian.Uint16(b)
}
