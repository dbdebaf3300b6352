package profile

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/srg/bgatt/internal/bledb"
)

// DumpOptions controls Dump.
type DumpOptions struct {
	Color bool
}

// Dump writes the tree as indented text:
//
//	Service 0001..0005 1800 (Generic Access)
//	  Characteristic 0002 value 0003 2a00 (Device Name) [read]
//	    Descriptor 0004 2901 (Characteristic User Description)
//
// An open service end is printed as "????".
func (d *Device) Dump(w io.Writer, opts DumpOptions) error {
	paint := newPainter(opts.Color)

	var b strings.Builder
	services, chars, descs := d.Counts()
	fmt.Fprintf(&b, "%s %s (conn %d): %d services, %d characteristics, %d descriptors\n",
		paint.header("Device"), d.MAC, d.ConnectionHandle, services, chars, descs)

	for i := range d.Services {
		s := &d.Services[i]
		end := fmt.Sprintf("%04x", s.EndGroupHandle)
		if s.OpenEnded() {
			end = "????"
		}
		fmt.Fprintf(&b, "%s %04x..%s %s%s\n",
			paint.service("Service"), s.StartGroupHandle, end,
			paint.uuid(uuidText(s.UUID16, s.UUID128)), named(s.UUID16))

		for j := range s.Characteristics {
			c := &s.Characteristics[j]
			fmt.Fprintf(&b, "  %s %04x value %04x %s%s [%s]\n",
				paint.characteristic("Characteristic"), c.StartHandle, c.ValueHandle,
				paint.uuid(uuidText(c.UUID16, c.UUID128)), named(c.UUID16),
				strings.Join(c.PropertyNames(), ","))

			for _, desc := range c.Descriptors {
				fmt.Fprintf(&b, "    %s %04x %04x%s\n",
					paint.descriptor("Descriptor"), desc.Handle, desc.UUID16, named(desc.UUID16))
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// String is the uncoloured Dump.
func (d *Device) String() string {
	var b strings.Builder
	_ = d.Dump(&b, DumpOptions{})
	return b.String()
}

// WriteJSON writes the tree as indented JSON.
func (d *Device) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

func named(u16 uint16) string {
	if name := lookupName(u16); name != "" {
		return " (" + name + ")"
	}
	return ""
}

func lookupName(u16 uint16) string {
	if u16 == 0 {
		return ""
	}
	return bledb.Name(u16)
}

type painter struct {
	header, service, characteristic, descriptor, uuid func(a ...interface{}) string
}

func newPainter(enabled bool) painter {
	if !enabled {
		plain := fmt.Sprint
		return painter{plain, plain, plain, plain, plain}
	}
	mk := func(attrs ...color.Attribute) func(a ...interface{}) string {
		c := color.New(attrs...)
		c.EnableColor()
		return c.SprintFunc()
	}
	return painter{
		header:         mk(color.Bold),
		service:        mk(color.FgCyan, color.Bold),
		characteristic: mk(color.FgGreen),
		descriptor:     mk(color.FgYellow),
		uuid:           mk(color.FgMagenta),
	}
}
