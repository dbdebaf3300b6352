package bgapi

import (
	"fmt"

	"github.com/srg/bgatt/internal/bledb"
)

// GroupFound is attclient_group_found: one primary service.
type GroupFound struct {
	Connection byte
	Start      uint16
	End        uint16
	UUID16     uint16 // set when the event carries a 16-bit UUID
	UUID128    bledb.UUID128
	Short      bool
}

// ParseGroupFound decodes
//
//	[5:7) start [7:9) end [9] uuid length [10:] uuid (16-bit LE, or 128-bit reversed)
func ParseGroupFound(p Packet) (GroupFound, error) {
	if !p.Is(ClassAttClient, EvtAttClientGroupFound) {
		return GroupFound{}, fmt.Errorf("not a group found event: %s", p)
	}
	if len(p) < 10 {
		return GroupFound{}, ErrShortPacket
	}
	g := GroupFound{
		Connection: p[4],
		Start:      le16(p, 5),
		End:        le16(p, 7),
	}
	switch n := int(p[9]); {
	case n == uuid16Len && len(p) >= 12:
		g.Short = true
		g.UUID16 = le16(p, 10)
		g.UUID128 = bledb.ServiceUUID16ToUUID128(g.UUID16)
	case n == uuid128Len && len(p) >= 26:
		g.UUID128 = bledb.FromWire(p[10:26])
	default:
		return GroupFound{}, fmt.Errorf("%w: group found uuid length %d", ErrShortPacket, n)
	}
	return g, nil
}

// CharacteristicDeclaration is an attclient_attribute_value event carrying the value
// of a characteristic declaration attribute.
type CharacteristicDeclaration struct {
	Connection  byte
	StartHandle uint16
	Properties  uint8
	ValueHandle uint16
	UUID16      uint16
	UUID128     bledb.UUID128
	Short       bool
}

// ParseCharacteristicDeclaration decodes
//
//	[5:7) declaration handle [7] type [8] value length
//	[9] properties [10:12) value handle [12:14) uuid16 | [12:28) uuid128 reversed
//
// The UUID width is selected by value length minus the 3 fixed bytes.
func ParseCharacteristicDeclaration(p Packet) (CharacteristicDeclaration, error) {
	if !p.Is(ClassAttClient, EvtAttClientAttributeValue) {
		return CharacteristicDeclaration{}, fmt.Errorf("not an attribute value event: %s", p)
	}
	if len(p) < 12 {
		return CharacteristicDeclaration{}, ErrShortPacket
	}
	c := CharacteristicDeclaration{
		Connection:  p[4],
		StartHandle: le16(p, 5),
		Properties:  p[9],
		ValueHandle: le16(p, 10),
	}
	switch width := int(p[8]) - charDeclFixedPrefix; {
	case width == uuid16Len && len(p) >= 14:
		c.Short = true
		c.UUID16 = le16(p, 12)
		c.UUID128 = bledb.CharacteristicUUID16ToUUID128(c.UUID16)
	case width == uuid128Len && len(p) >= 28:
		c.UUID128 = bledb.FromWire(p[12:28])
	default:
		return CharacteristicDeclaration{}, fmt.Errorf("%w: characteristic declaration value length %d", ErrShortPacket, p[8])
	}
	return c, nil
}

// FindInformationFound is attclient_find_information_found: one descriptor.
type FindInformationFound struct {
	Connection byte
	Handle     uint16
	UUID16     uint16
}

// ParseFindInformationFound decodes
//
//	[5:7) handle [7] uuid length [8:10) uuid16
//
// 128-bit descriptor types are reported with their two least significant bytes.
func ParseFindInformationFound(p Packet) (FindInformationFound, error) {
	if !p.Is(ClassAttClient, EvtAttClientFindInfoFound) {
		return FindInformationFound{}, fmt.Errorf("not a find information found event: %s", p)
	}
	if len(p) < 10 {
		return FindInformationFound{}, ErrShortPacket
	}
	return FindInformationFound{
		Connection: p[4],
		Handle:     le16(p, 5),
		UUID16:     le16(p, 8),
	}, nil
}

// ProcedureCompleted is attclient_procedure_completed.
type ProcedureCompleted struct {
	Connection byte
	Result     uint16
	Handle     uint16
}

// ParseProcedureCompleted decodes [5:7) result [7:9) characteristic handle.
func ParseProcedureCompleted(p Packet) (ProcedureCompleted, error) {
	if !p.Is(ClassAttClient, EvtAttClientProcedureDone) {
		return ProcedureCompleted{}, fmt.Errorf("not a procedure completed event: %s", p)
	}
	if len(p) < 9 {
		return ProcedureCompleted{}, ErrShortPacket
	}
	return ProcedureCompleted{
		Connection: p[4],
		Result:     le16(p, 5),
		Handle:     le16(p, 7),
	}, nil
}

// AttributeValue is attclient_attribute_value: a read result or a notification.
type AttributeValue struct {
	Connection byte
	Handle     uint16
	Type       byte
	Value      []byte
}

// ParseAttributeValue decodes [5:7) handle [7] type [8] length [9:9+length) value.
// The value is copied.
func ParseAttributeValue(p Packet) (AttributeValue, error) {
	if !p.Is(ClassAttClient, EvtAttClientAttributeValue) {
		return AttributeValue{}, fmt.Errorf("not an attribute value event: %s", p)
	}
	if len(p) < 9 {
		return AttributeValue{}, ErrShortPacket
	}
	n := int(p[8])
	if len(p) < 9+n {
		return AttributeValue{}, ErrShortPacket
	}
	return AttributeValue{
		Connection: p[4],
		Handle:     le16(p, 5),
		Type:       p[7],
		Value:      append([]byte{}, p[9:9+n]...),
	}, nil
}

// ScanResponse is gap_scan_response.
type ScanResponse struct {
	RSSI        int8
	PacketType  byte
	Sender      [6]byte // display order
	AddressType byte
	Bond        byte
	Data        []byte // AD payload with its leading length byte
}

// ParseScanResponse decodes
//
//	[4] rssi [5] packet type [6:12) sender (LSB first) [12] address type [13] bond
//	[14] data length [15:) data
//
// Data is returned with its length byte so it can be handed to advdata as is.
func ParseScanResponse(p Packet) (ScanResponse, error) {
	if !p.Is(ClassGap, EvtGapScanResponse) {
		return ScanResponse{}, fmt.Errorf("not a scan response event: %s", p)
	}
	if len(p) < 15 {
		return ScanResponse{}, ErrShortPacket
	}
	n := int(p[14])
	if len(p) < 15+n {
		return ScanResponse{}, ErrShortPacket
	}
	s := ScanResponse{
		RSSI:        int8(p[4]),
		PacketType:  p[5],
		AddressType: p[12],
		Bond:        p[13],
		Data:        append([]byte{}, p[14:15+n]...),
	}
	for i := 0; i < 6; i++ {
		s.Sender[i] = p[11-i]
	}
	return s, nil
}

// ConnectionStatus is connection_status.
type ConnectionStatus struct {
	Connection  byte
	Flags       byte
	Address     [6]byte // display order
	AddressType byte
	Interval    uint16
	Timeout     uint16
	Latency     uint16
	Bonding     byte
}

// Connected reports whether the connected flag is set.
func (c ConnectionStatus) Connected() bool {
	return c.Flags&ConnectionFlagConnected != 0
}

// ParseConnectionStatus decodes
//
//	[4] connection [5] flags [6:12) address (LSB first) [12] address type
//	[13:15) interval [15:17) timeout [17:19) latency [19] bonding
func ParseConnectionStatus(p Packet) (ConnectionStatus, error) {
	if !p.Is(ClassConnection, EvtConnectionStatus) {
		return ConnectionStatus{}, fmt.Errorf("not a connection status event: %s", p)
	}
	if len(p) < 20 {
		return ConnectionStatus{}, ErrShortPacket
	}
	c := ConnectionStatus{
		Connection:  p[4],
		Flags:       p[5],
		AddressType: p[12],
		Interval:    le16(p, 13),
		Timeout:     le16(p, 15),
		Latency:     le16(p, 17),
		Bonding:     p[19],
	}
	for i := 0; i < 6; i++ {
		c.Address[i] = p[11-i]
	}
	return c, nil
}

// Disconnected is connection_disconnected.
type Disconnected struct {
	Connection byte
	Reason     uint16
}

// ParseDisconnected decodes [4] connection [5:7) reason.
func ParseDisconnected(p Packet) (Disconnected, error) {
	if !p.Is(ClassConnection, EvtConnectionDisconnected) {
		return Disconnected{}, fmt.Errorf("not a disconnected event: %s", p)
	}
	if len(p) < 7 {
		return Disconnected{}, ErrShortPacket
	}
	return Disconnected{Connection: p[4], Reason: le16(p, 5)}, nil
}
