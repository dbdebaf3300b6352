// Package profile holds the GATT profile tree of one connected peripheral: services,
// their characteristics and the descriptors of each characteristic, addressed by
// attribute handles.
//
// The tree is built in discovery order. Handles are unique and ascending, every entry
// carries a canonical 128-bit UUID (or the all-zero sentinel when none is known) and
// lookups by UUID return the first match in that order.
package profile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/srg/bgatt/internal/bledb"
)

// UnknownEndHandle marks a service whose group end the server reported as open. The
// descriptor scan back-fills the real end.
const UnknownEndHandle uint16 = 0xFFFF

// ----------------------------
// Descriptor
// ----------------------------

// Descriptor is a characteristic descriptor.
type Descriptor struct {
	Handle uint16 `json:"handle"`
	UUID16 uint16 `json:"uuid16"`
}

// Name returns the assigned descriptor name, or "".
func (d Descriptor) Name() string {
	return bledb.Name(d.UUID16)
}

// ----------------------------
// Characteristic
// ----------------------------

// Characteristic is one characteristic declaration and its descriptors.
type Characteristic struct {
	StartHandle uint16        `json:"start_handle"`
	ValueHandle uint16        `json:"value_handle"`
	Properties  uint8         `json:"properties"`
	UUID16      uint16        `json:"uuid16"`
	UUID128     bledb.UUID128 `json:"uuid128"`
	Descriptors []Descriptor  `json:"descriptors"`
}

// AppendDescriptor adds a descriptor in discovery order.
func (c *Characteristic) AppendDescriptor(d Descriptor) {
	c.Descriptors = append(c.Descriptors, d)
}

// PropertyNames lists the property bits by name.
func (c *Characteristic) PropertyNames() []string {
	return bledb.PropertyNames(c.Properties)
}

// ----------------------------
// Service
// ----------------------------

// Service is one primary service group.
type Service struct {
	StartGroupHandle uint16           `json:"start_handle"`
	EndGroupHandle   uint16           `json:"end_handle"`
	UUID16           uint16           `json:"uuid16"`
	UUID128          bledb.UUID128    `json:"uuid128"`
	Characteristics  []Characteristic `json:"characteristics"`
}

// AppendCharacteristic adds a characteristic in discovery order.
func (s *Service) AppendCharacteristic(c Characteristic) {
	s.Characteristics = append(s.Characteristics, c)
}

// OpenEnded reports whether the group end is still unknown.
func (s *Service) OpenEnded() bool {
	return s.EndGroupHandle == UnknownEndHandle
}

// ----------------------------
// Device
// ----------------------------

// Device is the profile of one connected peripheral.
type Device struct {
	MAC              MAC       `json:"mac"`
	ConnectionHandle uint8     `json:"connection"`
	Services         []Service `json:"services"`
}

// NewDevice returns an empty profile for the given link.
func NewDevice(mac MAC, conn uint8) *Device {
	return &Device{MAC: mac, ConnectionHandle: conn}
}

// AppendService adds a service and returns it for further population. The pointer is
// valid until the next AppendService.
func (d *Device) AppendService(s Service) *Service {
	d.Services = append(d.Services, s)
	return &d.Services[len(d.Services)-1]
}

// Reset drops every service, characteristic and descriptor.
func (d *Device) Reset() {
	d.Services = nil
}

// Counts returns the number of services, characteristics and descriptors.
func (d *Device) Counts() (services, characteristics, descriptors int) {
	services = len(d.Services)
	for i := range d.Services {
		characteristics += len(d.Services[i].Characteristics)
		for j := range d.Services[i].Characteristics {
			descriptors += len(d.Services[i].Characteristics[j].Descriptors)
		}
	}
	return services, characteristics, descriptors
}

// UUID128ToHandle returns the start handle of the first service, or else the value
// handle of the first characteristic, whose UUID equals u. Services are checked before
// the characteristics of the same service. The zero UUID never matches.
func (d *Device) UUID128ToHandle(u bledb.UUID128) (uint16, bool) {
	if u.IsZero() {
		return 0, false
	}
	for i := range d.Services {
		s := &d.Services[i]
		if s.UUID128 == u {
			return s.StartGroupHandle, true
		}
		for j := range s.Characteristics {
			if s.Characteristics[j].UUID128 == u {
				return s.Characteristics[j].ValueHandle, true
			}
		}
	}
	return 0, false
}

// UUID16ToHandle is UUID128ToHandle for 16-bit UUIDs, extended to descriptors: within
// a service the order is service, then each characteristic followed by its
// descriptors. Zero never matches.
func (d *Device) UUID16ToHandle(u16 uint16) (uint16, bool) {
	if u16 == 0 {
		return 0, false
	}
	for i := range d.Services {
		s := &d.Services[i]
		if s.UUID16 == u16 {
			return s.StartGroupHandle, true
		}
		for j := range s.Characteristics {
			c := &s.Characteristics[j]
			if c.UUID16 == u16 {
				return c.ValueHandle, true
			}
			for _, desc := range c.Descriptors {
				if desc.UUID16 == u16 {
					return desc.Handle, true
				}
			}
		}
	}
	return 0, false
}

// Characteristic returns the first characteristic with the given UUID.
func (d *Device) Characteristic(u bledb.UUID128) (*Characteristic, bool) {
	if u.IsZero() {
		return nil, false
	}
	for i := range d.Services {
		for j := range d.Services[i].Characteristics {
			if c := &d.Services[i].Characteristics[j]; c.UUID128 == u {
				return c, true
			}
		}
	}
	return nil, false
}

// CharacteristicByValueHandle returns the characteristic owning a value handle.
func (d *Device) CharacteristicByValueHandle(h uint16) (*Characteristic, bool) {
	for i := range d.Services {
		for j := range d.Services[i].Characteristics {
			if c := &d.Services[i].Characteristics[j]; c.ValueHandle == h {
				return c, true
			}
		}
	}
	return nil, false
}

// ----------------------------
// MAC
// ----------------------------

// MAC is a Bluetooth device address in display order (most significant byte first).
type MAC [6]byte

// ParseMAC accepts "aa:bb:cc:dd:ee:ff", "aa-bb-..." or 12 hex digits.
func ParseMAC(s string) (MAC, error) {
	var m MAC
	clean := strings.NewReplacer(":", "", "-", "", " ", "").Replace(strings.TrimSpace(s))
	if len(clean) != 12 {
		return m, fmt.Errorf("invalid device address %q", s)
	}
	for i := 0; i < 6; i++ {
		b, err := strconv.ParseUint(clean[2*i:2*i+2], 16, 8)
		if err != nil {
			return m, fmt.Errorf("invalid device address %q: %w", s, err)
		}
		m[i] = byte(b)
	}
	return m, nil
}

func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// MarshalText renders the colon separated form.
func (m MAC) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses any form ParseMAC accepts.
func (m *MAC) UnmarshalText(text []byte) error {
	parsed, err := ParseMAC(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
