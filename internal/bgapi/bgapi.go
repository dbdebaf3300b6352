// Package bgapi encodes BGAPI commands and decodes BGAPI responses and events, as
// spoken by the BLE112 family of UART modules.
//
// Every frame starts with a 4-byte header:
//
//	[0] message type (bit 7: event) | technology | payload length bits 10..8
//	[1] payload length bits 7..0
//	[2] message class
//	[3] message id
//
// followed by the payload. Connection oriented commands and events carry the
// connection handle as the first payload byte, i.e. at frame offset 4.
package bgapi

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderLen is the size of the BGAPI frame header.
const HeaderLen = 4

// MaxPayloadLen is the largest payload the 11-bit length field can express.
const MaxPayloadLen = 0x7FF

const (
	msgTypeCommand = 0x00
	msgTypeEvent   = 0x80
)

// Message classes.
const (
	ClassSystem     = 0x00
	ClassConnection = 0x03
	ClassAttClient  = 0x04
	ClassGap        = 0x06
)

// Commands (class, id).
const (
	CmdSystemHello           = 0x01
	CmdSystemGetInfo         = 0x08
	CmdConnectionDisconnect  = 0x00
	CmdConnectionGetStatus   = 0x07
	CmdAttClientReadByGroup  = 0x01
	CmdAttClientReadByType   = 0x02
	CmdAttClientFindInfo     = 0x03
	CmdAttClientReadByHandle = 0x04
	CmdAttClientWrite        = 0x05
	CmdGapDiscover           = 0x02
	CmdGapConnectDirect      = 0x03
	CmdGapEndProcedure       = 0x04
	CmdGapSetScanParameters  = 0x07
)

// Events (class, id).
const (
	EvtSystemBoot              = 0x00
	EvtConnectionStatus        = 0x00
	EvtConnectionDisconnected  = 0x04
	EvtAttClientIndicated      = 0x00
	EvtAttClientProcedureDone  = 0x01
	EvtAttClientGroupFound     = 0x02
	EvtAttClientAttributeFound = 0x03
	EvtAttClientFindInfoFound  = 0x04
	EvtAttClientAttributeValue = 0x05
	EvtGapScanResponse         = 0x00
)

// GATT declaration UUIDs and the handle range used by discovery.
const (
	UUIDPrimaryService   uint16 = 0x2800
	UUIDSecondaryService uint16 = 0x2801
	UUIDCharacteristic   uint16 = 0x2803
	UUIDClientCharCfg    uint16 = 0x2902
	FirstHandle          uint16 = 0x0001
	LastHandle           uint16 = 0xFFFF
)

const (
	uuid16Len           = 2
	uuid128Len          = 16
	charDeclFixedPrefix = 3 // properties + value handle
)

// Attribute value types reported by the attribute value event.
const (
	AttValueRead           = 0x00
	AttValueNotify         = 0x01
	AttValueIndicate       = 0x02
	AttValueReadByType     = 0x03
	AttValueReadBlob       = 0x04
	AttValueIndicateRspReq = 0x05
)

// GAP discover modes.
const (
	GapDiscoverLimited     = 0x00
	GapDiscoverGeneric     = 0x01
	GapDiscoverObservation = 0x02
)

// ConnectionFlagConnected is bit 0 of the connection status flags.
const ConnectionFlagConnected = 0x01

// ErrShortPacket is returned by decoders when a frame is shorter than its layout.
var ErrShortPacket = errors.New("bgapi: short packet")

// Packet is one complete BGAPI frame: header plus payload.
type Packet []byte

// IsEvent reports whether the frame is an event (as opposed to a command response).
func (p Packet) IsEvent() bool {
	return len(p) > 0 && p[0]&msgTypeEvent != 0
}

// PayloadLen returns the payload length declared in the header.
func (p Packet) PayloadLen() int {
	if len(p) < 2 {
		return 0
	}
	return int(p[0]&0x07)<<8 | int(p[1])
}

// Class returns the message class.
func (p Packet) Class() byte {
	if len(p) < HeaderLen {
		return 0xFF
	}
	return p[2]
}

// ID returns the message id.
func (p Packet) ID() byte {
	if len(p) < HeaderLen {
		return 0xFF
	}
	return p[3]
}

// Is reports whether the frame is the given event.
func (p Packet) Is(class, id byte) bool {
	return p.IsEvent() && p.Class() == class && p.ID() == id
}

// IsResponse reports whether the frame is the response to the given command.
func (p Packet) IsResponse(class, id byte) bool {
	return len(p) >= HeaderLen && !p.IsEvent() && p.Class() == class && p.ID() == id
}

// Payload returns the bytes after the header.
func (p Packet) Payload() []byte {
	if len(p) < HeaderLen {
		return nil
	}
	return p[HeaderLen:]
}

// Connection returns the connection handle carried at offset 4.
func (p Packet) Connection() byte {
	if len(p) <= HeaderLen {
		return 0
	}
	return p[HeaderLen]
}

// String renders the frame for logs.
func (p Packet) String() string {
	kind := "rsp"
	if p.IsEvent() {
		kind = "evt"
	}
	return fmt.Sprintf("%s(%d,%d)[% X]", kind, p.Class(), p.ID(), []byte(p))
}

// Frame assembles a frame from its parts.
func Frame(event bool, class, id byte, payload []byte) Packet {
	n := len(payload)
	hdr := byte(msgTypeCommand)
	if event {
		hdr = msgTypeEvent
	}
	out := make([]byte, HeaderLen, HeaderLen+n)
	out[0] = hdr | byte(n>>8)&0x07
	out[1] = byte(n)
	out[2] = class
	out[3] = id
	return append(out, payload...)
}

func le16(b []byte, off int) uint16 {
	return binary.LittleEndian.Uint16(b[off : off+2])
}

func putLE16(b []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(b, v)
}
