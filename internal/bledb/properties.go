package bledb

import (
	"strings"

	"github.com/go-ble/ble"
)

var propertyNames = []struct {
	bit  ble.Property
	name string
}{
	{ble.CharBroadcast, "broadcast"},
	{ble.CharRead, "read"},
	{ble.CharWriteNR, "write-without-response"},
	{ble.CharWrite, "write"},
	{ble.CharNotify, "notify"},
	{ble.CharIndicate, "indicate"},
	{ble.CharSignedWrite, "signed-write"},
	{ble.CharExtended, "extended"},
}

// PropertyNames lists the names of the characteristic property bits set in p, in bit
// order.
func PropertyNames(p uint8) []string {
	var out []string
	for _, pn := range propertyNames {
		if ble.Property(p)&pn.bit != 0 {
			out = append(out, pn.name)
		}
	}
	return out
}

// ParseProperties is the inverse of PropertyNames for a comma separated list.
// Unknown names are ignored.
func ParseProperties(s string) uint8 {
	var p uint8
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		for _, pn := range propertyNames {
			if pn.name == part {
				p |= uint8(pn.bit)
			}
		}
	}
	return p
}

// CanNotify reports whether the notify or indicate bit is set.
func CanNotify(p uint8) bool {
	return ble.Property(p)&(ble.CharNotify|ble.CharIndicate) != 0
}

// CanRead reports whether the read bit is set.
func CanRead(p uint8) bool {
	return ble.Property(p)&ble.CharRead != 0
}
