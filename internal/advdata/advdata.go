// Package advdata decodes Advertising Data and Scan Response payloads.
//
// A payload is laid out as
//
//	[total_length][len][type][value ...][len][type][value ...] ...
//
// where every len counts the type byte plus the value bytes. The first byte holds
// the total length of the records that follow and is consumed by the caller.
package advdata

import (
	"bytes"
	"fmt"
)

// AD field types.
const (
	TypeFlags             = 0x01 // Flags
	TypeSomeUUID16        = 0x02 // Incomplete List of 16-bit Service Class UUIDs
	TypeAllUUID16         = 0x03 // Complete List of 16-bit Service Class UUIDs
	TypeSomeUUID32        = 0x04 // Incomplete List of 32-bit Service Class UUIDs
	TypeAllUUID32         = 0x05 // Complete List of 32-bit Service Class UUIDs
	TypeSomeUUID128       = 0x06 // Incomplete List of 128-bit Service Class UUIDs
	TypeAllUUID128        = 0x07 // Complete List of 128-bit Service Class UUIDs
	TypeShortName         = 0x08 // Shortened Local Name
	TypeCompleteName      = 0x09 // Complete Local Name
	TypeTxPower           = 0x0A // Tx Power Level
	TypeClassOfDevice     = 0x0D // Class of Device
	TypeSlaveConnInterval = 0x12 // Slave Connection Interval Range
	TypeServiceSol16      = 0x14 // List of 16-bit Service Solicitation UUIDs
	TypeServiceSol128     = 0x15 // List of 128-bit Service Solicitation UUIDs
	TypeServiceData16     = 0x16 // Service Data - 16-bit UUID
	TypePublicTarget      = 0x17 // Public Target Address
	TypeRandomTarget      = 0x18 // Random Target Address
	TypeAppearance        = 0x19 // Appearance
	TypeAdvInterval       = 0x1A // Advertising Interval
	TypeServiceData32     = 0x20 // Service Data - 32-bit UUID
	TypeServiceData128    = 0x21 // Service Data - 128-bit UUID
	TypeManufacturerData  = 0xFF // Manufacturer Specific Data
)

var typeNames = map[byte]string{
	TypeFlags:             "Flags",
	TypeSomeUUID16:        "Incomplete 16-bit UUIDs",
	TypeAllUUID16:         "Complete 16-bit UUIDs",
	TypeSomeUUID32:        "Incomplete 32-bit UUIDs",
	TypeAllUUID32:         "Complete 32-bit UUIDs",
	TypeSomeUUID128:       "Incomplete 128-bit UUIDs",
	TypeAllUUID128:        "Complete 128-bit UUIDs",
	TypeShortName:         "Shortened Local Name",
	TypeCompleteName:      "Complete Local Name",
	TypeTxPower:           "Tx Power Level",
	TypeClassOfDevice:     "Class of Device",
	TypeSlaveConnInterval: "Slave Connection Interval Range",
	TypeServiceSol16:      "16-bit Service Solicitation",
	TypeServiceSol128:     "128-bit Service Solicitation",
	TypeServiceData16:     "Service Data (16-bit UUID)",
	TypePublicTarget:      "Public Target Address",
	TypeRandomTarget:      "Random Target Address",
	TypeAppearance:        "Appearance",
	TypeAdvInterval:       "Advertising Interval",
	TypeServiceData32:     "Service Data (32-bit UUID)",
	TypeServiceData128:    "Service Data (128-bit UUID)",
	TypeManufacturerData:  "Manufacturer Specific Data",
}

// Field is a single well-formed AD record.
type Field struct {
	Type  byte
	Value []byte
}

// TypeName returns the assigned name of the field type.
func (f Field) TypeName() string {
	if name, ok := typeNames[f.Type]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (0x%02X)", f.Type)
}

// limit returns the number of bytes that may be scanned: the declared total length
// plus the length byte itself, clamped to the real buffer size.
func limit(buf []byte) int {
	if len(buf) == 0 {
		return 0
	}
	end := int(buf[0]) + 1
	if end > len(buf) {
		end = len(buf)
	}
	return end
}

// Decode returns the value of the first record of the given type.
//
// The scan starts at offset 1 and advances by length+1 per record. A record with a
// zero length, or one whose declared length would run past the buffer, stops the
// scan and the result is "not found". The returned slice aliases buf.
func Decode(typ byte, buf []byte) ([]byte, bool) {
	end := limit(buf)
	for index := 1; index < end; {
		fieldLen := int(buf[index])
		if fieldLen == 0 || index+1+fieldLen > end {
			return nil, false
		}
		if buf[index+1] == typ {
			return buf[index+2 : index+1+fieldLen], true
		}
		index += fieldLen + 1
	}
	return nil, false
}

// Parse lists every well-formed record in order. It stops at the first malformed one.
func Parse(buf []byte) []Field {
	var fields []Field
	end := limit(buf)
	for index := 1; index < end; {
		fieldLen := int(buf[index])
		if fieldLen == 0 || index+1+fieldLen > end {
			break
		}
		fields = append(fields, Field{Type: buf[index+1], Value: buf[index+2 : index+1+fieldLen]})
		index += fieldLen + 1
	}
	return fields
}

// LocalName returns the complete local name, or the shortened one when the complete
// name is absent.
func LocalName(buf []byte) (string, bool) {
	if v, ok := Decode(TypeCompleteName, buf); ok {
		return string(v), true
	}
	if v, ok := Decode(TypeShortName, buf); ok {
		return string(v), true
	}
	return "", false
}

// MatchName reports whether the complete local name in buf matches name.
//
// The comparison covers the decoded length only, so an advertised "Thunder" matches a
// requested "Thunder Sense #02735". An empty advertised name never matches.
func MatchName(buf []byte, name string) bool {
	v, ok := Decode(TypeCompleteName, buf)
	if !ok || len(v) == 0 || len(v) > len(name) {
		return false
	}
	return bytes.Equal(v, []byte(name[:len(v)]))
}

// Build assembles an AD payload with the leading total length byte. It is the
// inverse of Parse for well-formed input and is used by the simulator.
func Build(fields ...Field) []byte {
	body := make([]byte, 0, 31)
	for _, f := range fields {
		body = append(body, byte(len(f.Value)+1), f.Type)
		body = append(body, f.Value...)
	}
	return append([]byte{byte(len(body))}, body...)
}
