// Package bledb maps Bluetooth SIG assigned 16-bit UUIDs to their canonical 128-bit
// form and to human readable names.
//
// The 16-bit to 128-bit tables are deliberately small and static: they list exactly the
// services and characteristics the discovery engine knows how to name. Anything else
// resolves to the all-zero UUID128, which callers must treat as "no canonical form".
package bledb

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/go-ble/ble"
	uuid "github.com/satori/go.uuid"
)

// UUID128 is a 128-bit UUID in canonical (big-endian, textual) byte order.
type UUID128 [16]byte

// Zero is the "unknown UUID" sentinel.
var Zero UUID128

// sigBase is 00000000-0000-1000-8000-00805F9B34FB.
var sigBase = UUID128{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5F, 0x9B, 0x34, 0xFB}

// FromUUID16 expands a 16-bit UUID over the Bluetooth SIG base UUID.
func FromUUID16(u16 uint16) UUID128 {
	u := sigBase
	binary.BigEndian.PutUint16(u[2:4], u16)
	return u
}

// FromWire converts a 128-bit UUID as carried in BGAPI event payloads (least significant
// byte first) into canonical order: out[i] = wire[15-i].
func FromWire(wire []byte) UUID128 {
	var u UUID128
	if len(wire) < 16 {
		return u
	}
	for i := 0; i < 16; i++ {
		u[i] = wire[15-i]
	}
	return u
}

// Wire returns the UUID in BGAPI payload order (least significant byte first).
func (u UUID128) Wire() []byte {
	out := make([]byte, 16)
	for i := 0; i < 16; i++ {
		out[i] = u[15-i]
	}
	return out
}

// IsZero reports whether u is the unknown UUID sentinel.
func (u UUID128) IsZero() bool {
	return u == Zero
}

// UUID16 returns the 16-bit alias when u lies on the SIG base.
func (u UUID128) UUID16() (uint16, bool) {
	if u[0] != 0 || u[1] != 0 {
		return 0, false
	}
	base := u
	base[2], base[3] = 0, 0
	if base != sigBase {
		return 0, false
	}
	return binary.BigEndian.Uint16(u[2:4]), true
}

// String formats u as 8-4-4-4-12 lower case hex.
func (u UUID128) String() string {
	return uuid.UUID(u).String()
}

// MarshalText renders the canonical text form.
func (u UUID128) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText accepts the canonical text form, with or without dashes.
func (u *UUID128) UnmarshalText(text []byte) error {
	parsed, err := ParseUUID128(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// ParseUUID128 parses a full 128-bit UUID string.
func ParseUUID128(s string) (UUID128, error) {
	parsed, err := uuid.FromString(strings.TrimSpace(s))
	if err != nil {
		return Zero, fmt.Errorf("invalid 128-bit UUID %q: %w", s, err)
	}
	return UUID128(parsed), nil
}

var serviceUUIDs = map[uint16]UUID128{
	0x1800: FromUUID16(0x1800), // Generic Access
	0x1801: FromUUID16(0x1801), // Generic Attribute
	0x180A: FromUUID16(0x180A), // Device Information
	0x180F: FromUUID16(0x180F), // Battery
	0x181A: FromUUID16(0x181A), // Environmental Sensing
	0x1815: FromUUID16(0x1815), // Automation IO
}

var characteristicUUIDs = map[uint16]UUID128{
	0x2A00: FromUUID16(0x2A00), // Device Name
	0x2A01: FromUUID16(0x2A01), // Appearance
	0x2A05: FromUUID16(0x2A05), // Service Changed
	0x2A29: FromUUID16(0x2A29), // Manufacturer Name String
	0x2A24: FromUUID16(0x2A24), // Model Number String
	0x2A25: FromUUID16(0x2A25), // Serial Number String
	0x2A27: FromUUID16(0x2A27), // Hardware Revision String
	0x2A26: FromUUID16(0x2A26), // Firmware Revision String
	0x2A23: FromUUID16(0x2A23), // System ID
	0x2A19: FromUUID16(0x2A19), // Battery Level
	0x2A76: FromUUID16(0x2A76), // UV Index
	0x2A6D: FromUUID16(0x2A6D), // Pressure
	0x2A6E: FromUUID16(0x2A6E), // Temperature
	0x2A6F: FromUUID16(0x2A6F), // Humidity
	0x2A56: FromUUID16(0x2A56), // Digital
}

// ServiceUUID16ToUUID128 resolves a service UUID through the static table.
// Unmapped input yields Zero.
func ServiceUUID16ToUUID128(u16 uint16) UUID128 {
	return serviceUUIDs[u16]
}

// CharacteristicUUID16ToUUID128 resolves a characteristic UUID through the static
// table. Unmapped input yields Zero.
func CharacteristicUUID16ToUUID128(u16 uint16) UUID128 {
	return characteristicUUIDs[u16]
}

// KnownServices returns the 16-bit keys of the service table.
func KnownServices() []uint16 {
	return keys(serviceUUIDs)
}

// KnownCharacteristics returns the 16-bit keys of the characteristic table.
func KnownCharacteristics() []uint16 {
	return keys(characteristicUUIDs)
}

func keys(m map[uint16]UUID128) []uint16 {
	out := make([]uint16, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

var names = map[uint16]string{
	0x1800: "Generic Access",
	0x1801: "Generic Attribute",
	0x180A: "Device Information",
	0x180F: "Battery Service",
	0x181A: "Environmental Sensing",
	0x1815: "Automation IO",

	0x2A00: "Device Name",
	0x2A01: "Appearance",
	0x2A05: "Service Changed",
	0x2A29: "Manufacturer Name String",
	0x2A24: "Model Number String",
	0x2A25: "Serial Number String",
	0x2A27: "Hardware Revision String",
	0x2A26: "Firmware Revision String",
	0x2A23: "System ID",
	0x2A19: "Battery Level",
	0x2A76: "UV Index",
	0x2A6D: "Pressure",
	0x2A6E: "Temperature",
	0x2A6F: "Humidity",
	0x2A56: "Digital",

	0x2900: "Characteristic Extended Properties",
	0x2901: "Characteristic User Description",
	0x2902: "Client Characteristic Configuration",
	0x2903: "Server Characteristic Configuration",
	0x2904: "Characteristic Presentation Format",
	0x2905: "Characteristic Aggregate Format",
	0x2906: "Valid Range",
}

// Name returns a human readable name for a 16-bit UUID, or "" when unknown.
func Name(u16 uint16) string {
	if n, ok := names[u16]; ok {
		return n
	}
	return ble.Name(ble.UUID16(u16))
}

// Parsed is a user supplied UUID.
type Parsed struct {
	// UUID16 is set for short input; zero otherwise.
	UUID16 uint16
	// UUID128 is the canonical form: the table entry for short input, or the SIG base
	// expansion when the table has none.
	UUID128 UUID128
	// Short reports whether the input was a 16-bit UUID.
	Short bool
}

// ParseUUID accepts "2a19", "0x2A19", "2A19" or a full 128-bit UUID with or without
// dashes.
func ParseUUID(s string) (Parsed, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(strings.TrimPrefix(clean, "0x"), "0X")
	if clean == "" {
		return Parsed{}, fmt.Errorf("empty UUID")
	}

	u, err := ble.Parse(clean)
	if err != nil {
		return Parsed{}, fmt.Errorf("invalid UUID %q: %w", s, err)
	}

	switch u.Len() {
	case 2:
		u16 := binary.LittleEndian.Uint16(u)
		return Parsed{UUID16: u16, UUID128: Resolve(u16), Short: true}, nil
	case 16:
		// ble.UUID keeps the wire (reversed) order
		return Parsed{UUID128: FromWire(u)}, nil
	default:
		return Parsed{}, fmt.Errorf("unsupported UUID length %d for %q", u.Len(), s)
	}
}

// Resolve returns the canonical 128-bit form of a 16-bit UUID: the service table, then
// the characteristic table, then the SIG base expansion.
func Resolve(u16 uint16) UUID128 {
	if u, ok := serviceUUIDs[u16]; ok {
		return u
	}
	if u, ok := characteristicUUIDs[u16]; ok {
		return u
	}
	return FromUUID16(u16)
}

// ShortString renders the 16-bit alias when u lies on the SIG base, the full form
// otherwise.
func (u UUID128) ShortString() string {
	if u16, ok := u.UUID16(); ok {
		return fmt.Sprintf("%04x", u16)
	}
	return u.String()
}
