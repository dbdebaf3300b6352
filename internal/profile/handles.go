package profile

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/srg/bgatt/internal/bledb"
)

// AttributeKind tells what a handle refers to.
type AttributeKind string

const (
	KindService        AttributeKind = "service"
	KindCharacteristic AttributeKind = "characteristic"
	KindValue          AttributeKind = "value"
	KindDescriptor     AttributeKind = "descriptor"
)

// Attribute is one row of the handle table.
type Attribute struct {
	Handle uint16        `json:"handle"`
	Kind   AttributeKind `json:"kind"`
	UUID   string        `json:"uuid"`
	Name   string        `json:"name,omitempty"`
}

// HandleTable maps handles to attributes in discovery order.
type HandleTable = orderedmap.OrderedMap[uint16, Attribute]

// Handles flattens the tree into a handle table. A characteristic contributes its
// declaration and its value handle.
func (d *Device) Handles() *HandleTable {
	table := orderedmap.New[uint16, Attribute]()
	for i := range d.Services {
		s := &d.Services[i]
		table.Set(s.StartGroupHandle, Attribute{
			Handle: s.StartGroupHandle,
			Kind:   KindService,
			UUID:   uuidText(s.UUID16, s.UUID128),
			Name:   bledb.Name(s.UUID16),
		})
		for j := range s.Characteristics {
			c := &s.Characteristics[j]
			table.Set(c.StartHandle, Attribute{
				Handle: c.StartHandle,
				Kind:   KindCharacteristic,
				UUID:   uuidText(c.UUID16, c.UUID128),
				Name:   bledb.Name(c.UUID16),
			})
			table.Set(c.ValueHandle, Attribute{
				Handle: c.ValueHandle,
				Kind:   KindValue,
				UUID:   uuidText(c.UUID16, c.UUID128),
			})
			for _, desc := range c.Descriptors {
				table.Set(desc.Handle, Attribute{
					Handle: desc.Handle,
					Kind:   KindDescriptor,
					UUID:   uuidText(desc.UUID16, bledb.Zero),
					Name:   desc.Name(),
				})
			}
		}
	}
	return table
}

// uuidText prefers the 128-bit form when it is known.
func uuidText(u16 uint16, u bledb.UUID128) string {
	if !u.IsZero() {
		return u.ShortString()
	}
	if u16 != 0 {
		return bledb.FromUUID16(u16).ShortString()
	}
	return bledb.Zero.String()
}
