package bledb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestServiceTable verifies every documented service constant
func TestServiceTable(t *testing.T) {
	tests := []struct {
		uuid16   uint16
		expected string
	}{
		{0x1800, "00001800-0000-1000-8000-00805f9b34fb"},
		{0x1801, "00001801-0000-1000-8000-00805f9b34fb"},
		{0x180A, "0000180a-0000-1000-8000-00805f9b34fb"},
		{0x180F, "0000180f-0000-1000-8000-00805f9b34fb"},
		{0x181A, "0000181a-0000-1000-8000-00805f9b34fb"},
		{0x1815, "00001815-0000-1000-8000-00805f9b34fb"},
	}

	assert.Len(t, KnownServices(), len(tests), "table MUST contain exactly the documented services")
	for _, tt := range tests {
		t.Run(Name(tt.uuid16), func(t *testing.T) {
			u := ServiceUUID16ToUUID128(tt.uuid16)
			assert.False(t, u.IsZero())
			assert.Equal(t, tt.expected, u.String())
		})
	}
}

// TestCharacteristicTable verifies every documented characteristic constant
func TestCharacteristicTable(t *testing.T) {
	tests := []struct {
		uuid16   uint16
		expected UUID128
	}{
		{0x2A00, UUID128{0x00, 0x00, 0x2A, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5F, 0x9B, 0x34, 0xFB}},
		{0x2A01, UUID128{0x00, 0x00, 0x2A, 0x01, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5F, 0x9B, 0x34, 0xFB}},
		{0x2A05, UUID128{0x00, 0x00, 0x2A, 0x05, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5F, 0x9B, 0x34, 0xFB}},
		{0x2A29, UUID128{0x00, 0x00, 0x2A, 0x29, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5F, 0x9B, 0x34, 0xFB}},
		{0x2A24, UUID128{0x00, 0x00, 0x2A, 0x24, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5F, 0x9B, 0x34, 0xFB}},
		{0x2A25, UUID128{0x00, 0x00, 0x2A, 0x25, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5F, 0x9B, 0x34, 0xFB}},
		{0x2A27, UUID128{0x00, 0x00, 0x2A, 0x27, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5F, 0x9B, 0x34, 0xFB}},
		{0x2A26, UUID128{0x00, 0x00, 0x2A, 0x26, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5F, 0x9B, 0x34, 0xFB}},
		{0x2A23, UUID128{0x00, 0x00, 0x2A, 0x23, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5F, 0x9B, 0x34, 0xFB}},
		{0x2A19, UUID128{0x00, 0x00, 0x2A, 0x19, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5F, 0x9B, 0x34, 0xFB}},
		{0x2A76, UUID128{0x00, 0x00, 0x2A, 0x76, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5F, 0x9B, 0x34, 0xFB}},
		{0x2A6D, UUID128{0x00, 0x00, 0x2A, 0x6D, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5F, 0x9B, 0x34, 0xFB}},
		{0x2A6E, UUID128{0x00, 0x00, 0x2A, 0x6E, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5F, 0x9B, 0x34, 0xFB}},
		{0x2A6F, UUID128{0x00, 0x00, 0x2A, 0x6F, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5F, 0x9B, 0x34, 0xFB}},
		{0x2A56, UUID128{0x00, 0x00, 0x2A, 0x56, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5F, 0x9B, 0x34, 0xFB}},
	}

	assert.Len(t, KnownCharacteristics(), len(tests), "table MUST contain exactly the documented characteristics")
	for _, tt := range tests {
		t.Run(Name(tt.uuid16), func(t *testing.T) {
			assert.Equal(t, tt.expected, CharacteristicUUID16ToUUID128(tt.uuid16))
		})
	}
}

// TestUnmappedYieldsZero verifies the unknown UUID sentinel
func TestUnmappedYieldsZero(t *testing.T) {
	for _, u16 := range []uint16{0x0000, 0x180D, 0x2A37, 0xFFFF} {
		assert.True(t, ServiceUUID16ToUUID128(u16).IsZero(), "service 0x%04X MUST be unmapped", u16)
		assert.True(t, CharacteristicUUID16ToUUID128(u16).IsZero(), "characteristic 0x%04X MUST be unmapped", u16)
	}

	// the tables are disjoint
	assert.True(t, ServiceUUID16ToUUID128(0x2A19).IsZero())
	assert.True(t, CharacteristicUUID16ToUUID128(0x180F).IsZero())
}

// TestFromWire verifies the reversed 128-bit event order
func TestFromWire(t *testing.T) {
	canonical, err := ParseUUID128("6e400001-b5a3-f393-e0a9-e50e24dcca9e")
	require.NoError(t, err)

	wire := []byte{0x9e, 0xca, 0xdc, 0x24, 0x0e, 0xe5, 0xa9, 0xe0, 0x93, 0xf3, 0xa3, 0xb5, 0x01, 0x00, 0x40, 0x6e}
	assert.Equal(t, canonical, FromWire(wire))
	assert.Equal(t, wire, canonical.Wire())
	assert.True(t, FromWire(wire[:8]).IsZero(), "short input MUST yield the zero UUID")
}

// TestParseUUID verifies user input forms
func TestParseUUID(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		short     bool
		uuid16    uint16
		expected  string
		expectErr bool
	}{
		{name: "short lower", input: "2a19", short: true, uuid16: 0x2A19, expected: "00002a19-0000-1000-8000-00805f9b34fb"},
		{name: "short with prefix", input: "0x180F", short: true, uuid16: 0x180F, expected: "0000180f-0000-1000-8000-00805f9b34fb"},
		{name: "short outside tables expands over SIG base", input: "2a37", short: true, uuid16: 0x2A37, expected: "00002a37-0000-1000-8000-00805f9b34fb"},
		{name: "full with dashes", input: "6e400001-b5a3-f393-e0a9-e50e24dcca9e", expected: "6e400001-b5a3-f393-e0a9-e50e24dcca9e"},
		{name: "full without dashes", input: "0000180f00001000800000805f9b34fb", expected: "0000180f-0000-1000-8000-00805f9b34fb"},
		{name: "empty", input: "  ", expectErr: true},
		{name: "not hex", input: "zz19", expectErr: true},
		{name: "odd length", input: "2a1", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseUUID(tt.input)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.short, parsed.Short)
			assert.Equal(t, tt.uuid16, parsed.UUID16)
			assert.Equal(t, tt.expected, parsed.UUID128.String())
		})
	}
}

// TestUUID16Alias verifies SIG base detection
func TestUUID16Alias(t *testing.T) {
	u16, ok := FromUUID16(0x2A19).UUID16()
	assert.True(t, ok)
	assert.Equal(t, uint16(0x2A19), u16)
	assert.Equal(t, "2a19", FromUUID16(0x2A19).ShortString())

	custom, err := ParseUUID128("6e400001-b5a3-f393-e0a9-e50e24dcca9e")
	require.NoError(t, err)
	_, ok = custom.UUID16()
	assert.False(t, ok)
	assert.Equal(t, "6e400001-b5a3-f393-e0a9-e50e24dcca9e", custom.ShortString())
}

// TestTextMarshalling verifies UUID128 as a JSON/YAML scalar
func TestTextMarshalling(t *testing.T) {
	text, err := FromUUID16(0x180F).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "0000180f-0000-1000-8000-00805f9b34fb", string(text))

	var u UUID128
	require.NoError(t, u.UnmarshalText(text))
	assert.Equal(t, FromUUID16(0x180F), u)
	assert.Error(t, u.UnmarshalText([]byte("nope")))
}

// TestNames verifies names and property helpers
func TestNames(t *testing.T) {
	assert.Equal(t, "Battery Level", Name(0x2A19))
	assert.Equal(t, "Client Characteristic Configuration", Name(0x2902))

	assert.Equal(t, []string{"read", "notify"}, PropertyNames(0x12))
	assert.Empty(t, PropertyNames(0))
	assert.Equal(t, uint8(0x1A), ParseProperties("read, write,notify,bogus"))
	assert.True(t, CanNotify(0x10))
	assert.True(t, CanNotify(0x20))
	assert.False(t, CanNotify(0x0A))
	assert.True(t, CanRead(0x12))
	assert.False(t, CanRead(0x18))
}
