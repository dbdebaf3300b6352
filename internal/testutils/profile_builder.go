package testutils

import (
	"encoding/hex"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/srg/bgatt/internal/profile"
	"github.com/srg/bgatt/internal/simulator"
)

// DefaultAddress is the address of peripherals built without WithAddress.
const DefaultAddress = "AA:BB:CC:DD:EE:FF"

// CharacteristicOption tunes a characteristic added by WithCharacteristic
type CharacteristicOption func(*simulator.CharacteristicDef)

// WithNotifyEvery makes the simulator push a changed value periodically once the
// client enables notifications.
func WithNotifyEvery(d time.Duration) CharacteristicOption {
	return func(c *simulator.CharacteristicDef) { c.NotifyEvery = d }
}

// WithDescriptor adds an explicit descriptor.
func WithDescriptor(uuid16 string, value []byte) CharacteristicOption {
	return func(c *simulator.CharacteristicDef) {
		c.Descriptors = append(c.Descriptors, simulator.DescriptorDef{UUID: uuid16, Value: hex.EncodeToString(value)})
	}
}

// ProfileBuilder builds simulated peripherals with a fluent API:
//
//	testutils.NewProfileBuilder().
//	    WithService("180F").
//	    WithCharacteristic("2A19", "read,notify", []byte{85}).
//	    Build()
type ProfileBuilder struct {
	p simulator.Peripheral
}

// NewProfileBuilder starts an empty peripheral at DefaultAddress
func NewProfileBuilder() *ProfileBuilder {
	mac, _ := profile.ParseMAC(DefaultAddress)
	return &ProfileBuilder{p: simulator.Peripheral{Name: "Mock Peripheral", Address: mac}}
}

// WithName sets the advertised name
func (b *ProfileBuilder) WithName(name string) *ProfileBuilder {
	b.p.Name = name
	return b
}

// WithAddress sets the peripheral address
func (b *ProfileBuilder) WithAddress(mac string) *ProfileBuilder {
	parsed, err := profile.ParseMAC(mac)
	if err != nil {
		panic(fmt.Sprintf("ProfileBuilder.WithAddress: %v", err))
	}
	b.p.Address = parsed
	return b
}

// WithConnection sets the connection handle the module reports
func (b *ProfileBuilder) WithConnection(conn uint8) *ProfileBuilder {
	b.p.Connection = conn
	return b
}

// WithFirmware sets the module firmware version reported by system_get_info
func (b *ProfileBuilder) WithFirmware(version string) *ProfileBuilder {
	b.p.Firmware = version
	return b
}

// WithService appends a service after the previous one
func (b *ProfileBuilder) WithService(uuid string) *ProfileBuilder {
	return b.WithServiceAt(0, uuid)
}

// WithServiceAt appends a service whose declaration sits at handle
func (b *ProfileBuilder) WithServiceAt(handle uint16, uuid string) *ProfileBuilder {
	b.p.Services = append(b.p.Services, simulator.ServiceDef{UUID: uuid, Handle: handle})
	return b
}

// WithOpenEndService appends a service reported with group end 0xFFFF
func (b *ProfileBuilder) WithOpenEndService(uuid string) *ProfileBuilder {
	b.p.Services = append(b.p.Services, simulator.ServiceDef{UUID: uuid, OpenEnd: true})
	return b
}

// WithCharacteristic adds a characteristic to the last added service
func (b *ProfileBuilder) WithCharacteristic(uuid, properties string, value []byte, opts ...CharacteristicOption) *ProfileBuilder {
	if len(b.p.Services) == 0 {
		panic("WithCharacteristic: no service added yet, call WithService first")
	}
	c := simulator.CharacteristicDef{UUID: uuid, Properties: properties, Value: hex.EncodeToString(value)}
	for _, opt := range opts {
		opt(&c)
	}
	last := &b.p.Services[len(b.p.Services)-1]
	last.Characteristics = append(last.Characteristics, c)
	return b
}

// WithAdvertiser adds another device to scan results
func (b *ProfileBuilder) WithAdvertiser(name, address string, rssi int8) *ProfileBuilder {
	mac, err := profile.ParseMAC(address)
	if err != nil {
		panic(fmt.Sprintf("ProfileBuilder.WithAdvertiser: %v", err))
	}
	b.p.Advertisers = append(b.p.Advertisers, simulator.AdvertiserDef{Name: name, Address: mac, RSSI: rssi})
	return b
}

// FromYAML replaces the peripheral with a YAML description
func (b *ProfileBuilder) FromYAML(yamlStrFmt string, args ...interface{}) *ProfileBuilder {
	var p simulator.Peripheral
	if err := yaml.Unmarshal([]byte(fmt.Sprintf(yamlStrFmt, args...)), &p); err != nil {
		panic(fmt.Sprintf("ProfileBuilder.FromYAML: failed to unmarshal: %v", err))
	}
	b.p = p
	return b
}

// Build validates and returns a copy of the peripheral
func (b *ProfileBuilder) Build() *simulator.Peripheral {
	p := b.p
	p.Services = append([]simulator.ServiceDef(nil), b.p.Services...)
	if err := p.Validate(); err != nil {
		panic(fmt.Sprintf("ProfileBuilder.Build: %v", err))
	}
	return &p
}
