package simulator

import (
	"encoding/binary"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/srg/bgatt/internal/bgapi"
	"github.com/srg/bgatt/internal/bledb"
)

type attrKind int

const (
	attrService attrKind = iota
	attrDeclaration
	attrValue
	attrDescriptor
)

// attribute is one row of the server's attribute table.
type attribute struct {
	handle uint16
	kind   attrKind
	// typ16 is the attribute type reported by find information: 0x2800, 0x2803, the
	// descriptor type, or the low 16 bits of the characteristic UUID for values.
	typ16 uint16
	uuid  bledb.UUID128
	props uint8
	value []byte
	// owner is the value handle of the characteristic a descriptor or declaration
	// belongs to.
	owner       uint16
	notifyEvery time.Duration // values only
}

type serviceEntry struct {
	start, end uint16
	uuid       bledb.UUID128
	openEnd    bool
}

// attributeTable lays out a Peripheral the way a GATT server does: handles start at 1,
// each service is followed by its characteristics, each characteristic by its
// declaration, value and descriptors.
type attributeTable struct {
	rows     *orderedmap.OrderedMap[uint16, *attribute]
	services []serviceEntry
}

func buildTable(p *Peripheral) *attributeTable {
	t := &attributeTable{rows: orderedmap.New[uint16, *attribute]()}
	h := uint16(1)

	for _, sd := range p.Services {
		if sd.Handle > h {
			h = sd.Handle
		}
		su := mustParse(sd.UUID)
		entry := serviceEntry{start: h, uuid: su, openEnd: sd.OpenEnd}
		t.add(&attribute{handle: h, kind: attrService, typ16: bgapi.UUIDPrimaryService, uuid: su})
		h++

		for _, cd := range sd.Characteristics {
			cu := mustParse(cd.UUID)
			props := bledb.ParseProperties(cd.Properties)
			value, _ := decodeHex(cd.Value)
			valueHandle := h + 1

			t.add(&attribute{handle: h, kind: attrDeclaration, typ16: bgapi.UUIDCharacteristic, uuid: cu, props: props, owner: valueHandle})
			t.add(&attribute{handle: valueHandle, kind: attrValue, typ16: low16(cu), uuid: cu, props: props, value: value, notifyEvery: cd.NotifyEvery})
			h += 2

			hasCCCD := false
			for _, dd := range cd.Descriptors {
				parsed := mustParsed(dd.UUID)
				dv, _ := decodeHex(dd.Value)
				if parsed.UUID16 == bgapi.UUIDClientCharCfg {
					hasCCCD = true
				}
				t.add(&attribute{handle: h, kind: attrDescriptor, typ16: parsed.UUID16, value: dv, owner: valueHandle})
				h++
			}
			if !hasCCCD && bledb.CanNotify(props) {
				t.add(&attribute{handle: h, kind: attrDescriptor, typ16: bgapi.UUIDClientCharCfg, value: []byte{0, 0}, owner: valueHandle})
				h++
			}
		}

		entry.end = h - 1
		t.services = append(t.services, entry)
	}
	return t
}

func (t *attributeTable) add(a *attribute) {
	t.rows.Set(a.handle, a)
}

func (t *attributeTable) get(h uint16) (*attribute, bool) {
	return t.rows.Get(h)
}

// between calls fn for every attribute in [start, end], in handle order.
func (t *attributeTable) between(start, end uint16, fn func(a *attribute)) {
	for pair := t.rows.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key >= start && pair.Key <= end {
			fn(pair.Value)
		}
	}
}

// cccdOf returns the client configuration descriptor of a characteristic value.
func (t *attributeTable) cccdOf(valueHandle uint16) (*attribute, bool) {
	var found *attribute
	t.between(valueHandle+1, bgapi.LastHandle, func(a *attribute) {
		if found == nil && a.kind == attrDescriptor && a.owner == valueHandle && a.typ16 == bgapi.UUIDClientCharCfg {
			found = a
		}
	})
	return found, found != nil
}

func (t *attributeTable) lastHandle() uint16 {
	if newest := t.rows.Newest(); newest != nil {
		return newest.Key
	}
	return 0
}

func mustParsed(s string) bledb.Parsed {
	parsed, err := bledb.ParseUUID(s)
	if err != nil {
		panic(err) // Validate ran before
	}
	return parsed
}

func mustParse(s string) bledb.UUID128 {
	return mustParsed(s).UUID128
}

func low16(u bledb.UUID128) uint16 {
	return binary.BigEndian.Uint16(u[2:4])
}
