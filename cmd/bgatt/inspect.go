package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/srg/bgatt/inspector"
	"github.com/srg/bgatt/internal/bledb"
	"github.com/srg/bgatt/internal/device"
	"github.com/srg/bgatt/internal/profile"
	"github.com/srg/bgatt/pkg/config"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <device-address>",
	Short: "Discover services, characteristics, and descriptors of a device",
	Long: fmt.Sprintf(`Connects to a device through the radio module, discovers its GATT profile
and prints it. With --values every readable characteristic is read as well.
With --handles the profile is printed as a flat handle table in discovery order.

Examples:
  bgatt inspect %s --port /dev/ttyACM0
  bgatt inspect %s --values --json
  bgatt inspect %s --handles

%s`, exampleDeviceAddress, exampleDeviceAddress, exampleDeviceAddress, deviceAddressNote),
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

var (
	inspectJSON    bool
	inspectValues  bool
	inspectHandles bool
)

func init() {
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Output as JSON")
	inspectCmd.Flags().BoolVar(&inspectValues, "values", false, "Read every readable characteristic")
	inspectCmd.Flags().BoolVar(&inspectHandles, "handles", false, "Print the attribute handle table instead of the tree")
}

// attributeValue is one characteristic read made by --values.
type attributeValue struct {
	Handle uint16 `json:"handle"`
	UUID   string `json:"uuid"`
	Name   string `json:"name,omitempty"`
	Value  string `json:"value,omitempty"`
	Error  string `json:"error,omitempty"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	address := args[0]
	if err := validateAddress(address); err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	opts, err := s.inspectOptions()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	progress := NewProgressPrinter(fmt.Sprintf("Inspecting %s", address), "Connecting", "Processing results", "Failed")
	progress.Start()
	defer progress.Stop()

	asJSON := inspectJSON || s.cfg.OutputFormat == config.OutputJSON
	out := cmd.OutOrStdout()

	_, err = inspector.InspectDevice(ctx, s.tr, address, opts, s.logger, progress.Callback(),
		func(c *device.Central) (struct{}, error) {
			if inspectHandles {
				return struct{}{}, writeHandleTable(out, c.Profile().Handles(), asJSON)
			}
			var values []attributeValue
			if inspectValues {
				values = readValues(ctx, c)
			}
			return struct{}{}, writeInspection(out, c.Profile(), values, asJSON)
		})
	return err
}

// readValues reads every readable characteristic. A failed read is recorded, not fatal.
func readValues(ctx context.Context, c *device.Central) []attributeValue {
	var values []attributeValue
	dev := c.Profile()
	for i := range dev.Services {
		for _, ch := range dev.Services[i].Characteristics {
			if !bledb.CanRead(ch.Properties) {
				continue
			}
			v := attributeValue{
				Handle: ch.ValueHandle,
				UUID:   ch.UUID128.ShortString(),
				Name:   bledb.Name(ch.UUID16),
			}
			data, err := c.ReadHandle(ctx, ch.ValueHandle)
			if err != nil {
				v.Error = err.Error()
			} else {
				v.Value = hex.EncodeToString(data)
			}
			values = append(values, v)
		}
	}
	return values
}

func writeInspection(w io.Writer, dev *profile.Device, values []attributeValue, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Profile *profile.Device  `json:"profile"`
			Values  []attributeValue `json:"values,omitempty"`
		}{dev, values})
	}

	if err := dev.Dump(w, profile.DumpOptions{Color: !color.NoColor}); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	fmt.Fprintln(w, "Values:")
	for _, v := range values {
		label := v.UUID
		if v.Name != "" {
			label += " (" + v.Name + ")"
		}
		if v.Error != "" {
			fmt.Fprintf(w, "  %04x %s: error: %s\n", v.Handle, label, v.Error)
			continue
		}
		data, _ := hex.DecodeString(v.Value)
		fmt.Fprintf(w, "  %04x %s: %s\n", v.Handle, label, formatValue(data, true))
	}
	return nil
}

// writeHandleTable prints one row per attribute handle, in discovery order.
func writeHandleTable(w io.Writer, table *profile.HandleTable, asJSON bool) error {
	rows := make([]profile.Attribute, 0, table.Len())
	for pair := table.Oldest(); pair != nil; pair = pair.Next() {
		rows = append(rows, pair.Value)
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "HANDLE\tKIND\tUUID\tNAME")
	for _, a := range rows {
		fmt.Fprintf(tw, "0x%04x\t%s\t%s\t%s\n", a.Handle, a.Kind, a.UUID, a.Name)
	}
	return tw.Flush()
}

// formatValue renders bytes as hex, or as quoted text when every byte is printable
// and asText is set.
func formatValue(data []byte, asText bool) string {
	if len(data) == 0 {
		return "(empty)"
	}
	if asText && isPrintable(data) {
		return fmt.Sprintf("%q", string(data))
	}
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, " ")
}

func isPrintable(data []byte) bool {
	for _, b := range data {
		if b > unicode.MaxASCII || !unicode.IsPrint(rune(b)) {
			return false
		}
	}
	return true
}
