package testutils

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/srg/bgatt/internal/bledb"
	"github.com/srg/bgatt/internal/profile"
)

func TestJSONAsserterDefaults(t *testing.T) {
	opts := NewJSONAsserter(t).Options()
	assert.True(t, opts.IgnoreExtraKeys, "IgnoreExtraKeys MUST default to true")
	assert.True(t, opts.NilToEmptyArray, "NilToEmptyArray MUST default to true")
	assert.True(t, opts.AllowPresencePlaceholder, "AllowPresencePlaceholder MUST default to true")
	assert.False(t, opts.IgnoreArrayOrder)
	assert.Empty(t, opts.IgnoredFields)
}

func TestJSONAsserterComparison(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		actual   string
		expected string
		match    bool
	}{
		{name: "equal", actual: `{"a":1}`, expected: `{"a":1}`, match: true},
		{name: "different value", actual: `{"a":1}`, expected: `{"a":2}`, match: false},
		{name: "extra keys ignored", actual: `{"a":1,"b":2}`, expected: `{"a":1}`, match: true},
		{name: "extra keys reported", opts: []Option{WithIgnoreExtraKeys(false)}, actual: `{"a":1,"b":2}`, expected: `{"a":1}`, match: false},
		{name: "null equals empty array", actual: `{"a":null}`, expected: `{"a":[]}`, match: true},
		{name: "null differs from empty array", opts: []Option{WithNilToEmptyArray(false)}, actual: `{"a":null}`, expected: `{"a":[]}`, match: false},
		{name: "presence placeholder", actual: `{"a":{"x":1}}`, expected: `{"a":"<<PRESENCE>>"}`, match: true},
		{name: "presence placeholder needs the key", actual: `{"b":1}`, expected: `{"a":"<<PRESENCE>>"}`, match: false},
		{name: "placeholder disabled", opts: []Option{WithAllowPresencePlaceholder(false)}, actual: `{"a":1}`, expected: `{"a":"<<PRESENCE>>"}`, match: false},
		{name: "array order matters", actual: `[1,2]`, expected: `[2,1]`, match: false},
		{name: "array order ignored", opts: []Option{WithIgnoreArrayOrder(true)}, actual: `[{"h":1},{"h":2}]`, expected: `[{"h":2},{"h":1}]`, match: true},
		{name: "ignored fields", opts: []Option{WithIgnoredFields("ts")}, actual: `{"a":1,"ts":5}`, expected: `{"a":1,"ts":9}`, match: true},
		{name: "invalid expected", actual: `{}`, expected: `{`, match: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := &recordingT{}
			ok := NewJSONAsserterWithInterface(rt).WithOptions(tt.opts...).Assert(tt.actual, tt.expected)
			assert.Equal(t, tt.match, ok)
			assert.Equal(t, !tt.match, rt.failed)
		})
	}
}

func TestJSONAsserterProfile(t *testing.T) {
	dev := profile.NewDevice(profile.MAC{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}, 1)
	svc := dev.AppendService(profile.Service{
		StartGroupHandle: 1, EndGroupHandle: 4,
		UUID16: 0x180F, UUID128: bledb.ServiceUUID16ToUUID128(0x180F),
	})
	svc.AppendCharacteristic(profile.Characteristic{
		StartHandle: 2, ValueHandle: 3, Properties: 0x12,
		UUID16: 0x2A19, UUID128: bledb.CharacteristicUUID16ToUUID128(0x2A19),
		Descriptors: []profile.Descriptor{{Handle: 4, UUID16: 0x2902}},
	})

	NewJSONAsserter(t).AssertProfile(dev, `{
		"mac": "aa:bb:cc:dd:ee:ff",
		"connection": 1,
		"services": [{
			"start_handle": 1,
			"end_handle": 4,
			"uuid128": "0000180f-0000-1000-8000-00805f9b34fb",
			"characteristics": [{
				"value_handle": 3,
				"properties": 18,
				"descriptors": [{"handle": 4, "uuid16": 10498}]
			}]
		}]
	}`)
}
