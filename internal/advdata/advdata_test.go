package advdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// thunderSense is a typical scan response: flags, complete 16-bit list, complete name.
var thunderSense = []byte{
	0x1C,
	0x02, TypeFlags, 0x06,
	0x03, TypeAllUUID16, 0x0F, 0x18,
	0x14, TypeCompleteName, 'T', 'h', 'u', 'n', 'd', 'e', 'r', ' ', 'S', 'e', 'n', 's', 'e', ' ', '#', '0', '2', '7', '3',
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		typ      byte
		buf      []byte
		expected []byte
		found    bool
	}{
		{
			name:     "first record",
			typ:      TypeFlags,
			buf:      thunderSense,
			expected: []byte{0x06},
			found:    true,
		},
		{
			name:     "middle record",
			typ:      TypeAllUUID16,
			buf:      thunderSense,
			expected: []byte{0x0F, 0x18},
			found:    true,
		},
		{
			name:     "last record",
			typ:      TypeCompleteName,
			buf:      thunderSense,
			expected: []byte("Thunder Sense #0273"),
			found:    true,
		},
		{
			name:  "absent type",
			typ:   TypeManufacturerData,
			buf:   thunderSense,
			found: false,
		},
		{
			name:  "empty buffer",
			typ:   TypeFlags,
			buf:   nil,
			found: false,
		},
		{
			name:  "record runs past declared total length",
			typ:   TypeCompleteName,
			buf:   []byte{0x05, 0x02, TypeFlags, 0x06, 0x09, TypeCompleteName, 'a'},
			found: false,
		},
		{
			name:  "record runs past real buffer",
			typ:   TypeCompleteName,
			buf:   []byte{0x1F, 0x02, TypeFlags, 0x06, 0x09, TypeCompleteName, 'a'},
			found: false,
		},
		{
			name:  "zero length record stops the scan",
			typ:   TypeCompleteName,
			buf:   []byte{0x06, 0x00, 0x00, 0x02, TypeCompleteName, 'a', 0x00},
			found: false,
		},
		{
			name:     "empty value",
			typ:      TypeCompleteName,
			buf:      []byte{0x02, 0x01, TypeCompleteName},
			expected: []byte{},
			found:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, ok := Decode(tt.typ, tt.buf)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.expected, value)
			} else {
				assert.Nil(t, value)
			}
		})
	}
}

func TestDecode_IsIdempotent(t *testing.T) {
	for _, typ := range []byte{TypeFlags, TypeAllUUID16, TypeCompleteName, TypeTxPower} {
		first, ok1 := Decode(typ, thunderSense)
		second, ok2 := Decode(typ, thunderSense)
		assert.Equal(t, ok1, ok2, "type 0x%02X", typ)
		assert.Equal(t, first, second, "type 0x%02X", typ)
	}
}

func TestDecode_NeverReadsPastEveryTruncation(t *testing.T) {
	// Every prefix of a valid buffer, with the original total length byte, must decode
	// without panicking and never return data outside the prefix.
	for n := 0; n <= len(thunderSense); n++ {
		prefix := thunderSense[:n]
		assert.NotPanics(t, func() {
			for typ := 0; typ < 256; typ++ {
				if v, ok := Decode(byte(typ), prefix); ok {
					assert.LessOrEqual(t, len(v), len(prefix))
				}
			}
		})
	}
}

func TestParse(t *testing.T) {
	fields := Parse(thunderSense)
	require.Len(t, fields, 3)
	assert.Equal(t, "Flags", fields[0].TypeName())
	assert.Equal(t, "Complete 16-bit UUIDs", fields[1].TypeName())
	assert.Equal(t, "Complete Local Name", fields[2].TypeName())
	assert.Equal(t, "Unknown (0x42)", Field{Type: 0x42}.TypeName())

	// malformed tail is dropped, good records before it are kept
	broken := []byte{0x06, 0x02, TypeFlags, 0x06, 0x07, TypeCompleteName, 'x'}
	assert.Len(t, Parse(broken), 1)
}

func TestLocalName(t *testing.T) {
	name, ok := LocalName(thunderSense)
	assert.True(t, ok)
	assert.Equal(t, "Thunder Sense #0273", name)

	short := Build(Field{Type: TypeShortName, Value: []byte("Thund")})
	name, ok = LocalName(short)
	assert.True(t, ok)
	assert.Equal(t, "Thund", name)

	_, ok = LocalName(Build(Field{Type: TypeFlags, Value: []byte{0x06}}))
	assert.False(t, ok)
}

func TestMatchName(t *testing.T) {
	adv := Build(Field{Type: TypeCompleteName, Value: []byte("Thunder")})

	assert.True(t, MatchName(adv, "Thunder"))
	assert.True(t, MatchName(adv, "Thunder Sense #02735"), "advertised name is compared over its own length")
	assert.False(t, MatchName(adv, "Thund"), "requested name shorter than advertised MUST NOT match")
	assert.False(t, MatchName(adv, "Lightning"))
	assert.False(t, MatchName(thunderSense[:5], "Thunder"), "truncated buffer MUST NOT match")
	assert.False(t, MatchName(Build(Field{Type: TypeCompleteName}), "Thunder"), "empty name MUST NOT match")
}

func TestBuild_RoundTripsThroughParse(t *testing.T) {
	fields := []Field{
		{Type: TypeFlags, Value: []byte{0x06}},
		{Type: TypeManufacturerData, Value: []byte{0x47, 0x00, 0x01}},
	}
	buf := Build(fields...)
	assert.Equal(t, byte(len(buf)-1), buf[0])
	assert.Equal(t, fields, Parse(buf))
}
