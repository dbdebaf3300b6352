package main

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/srg/bgatt/inspector"
	"github.com/srg/bgatt/internal/device"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read <device-address> <uuid>",
	Short: "Read an attribute value",
	Long: fmt.Sprintf(`Connects to a device, discovers its profile and reads one attribute.

The attribute is a 16-bit UUID (service, characteristic or descriptor), a 128-bit UUID
or, with --handle, an attribute handle.

Examples:
  # Battery level
  bgatt read %s 2a19

  # Device name as hex
  bgatt read %s 2a00 --hex

  # Raw handle
  bgatt read %s 0x0003 --handle

%s`, exampleDeviceAddress, exampleDeviceAddress, exampleDeviceAddress, deviceAddressNote),
	Args: cobra.ExactArgs(2),
	RunE: runRead,
}

var (
	readHex    bool
	readHandle bool
)

func init() {
	readCmd.Flags().BoolVar(&readHex, "hex", false, "Output as hex string; raw bytes by default")
	readCmd.Flags().BoolVar(&readHandle, "handle", false, "Treat the attribute argument as a handle")
}

func runRead(cmd *cobra.Command, args []string) error {
	address, target := args[0], args[1]
	if err := validateAddress(address); err != nil {
		return err
	}
	if readHandle {
		if _, err := parseHandle(target); err != nil {
			return err
		}
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

	data, err := inspector.InspectDevice(ctx, s.tr, address, opts, s.logger, nil,
		func(c *device.Central) ([]byte, error) {
			h, err := resolveAttribute(c, target, readHandle)
			if err != nil {
				return nil, err
			}
			return c.ReadHandle(ctx, h)
		})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if readHex {
		_, err = fmt.Fprintln(out, hex.EncodeToString(data))
		return err
	}
	_, err = out.Write(data)
	return err
}

// resolveAttribute maps the command line attribute argument to a handle.
func resolveAttribute(c *device.Central, target string, isHandle bool) (uint16, error) {
	if isHandle {
		return parseHandle(target)
	}
	return c.LookupHandle(target)
}

// parseHandle accepts decimal, 0x-prefixed hex or 0-prefixed octal.
func parseHandle(s string) (uint16, error) {
	h, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid handle %q: %w", s, err)
	}
	if h == 0 {
		return 0, fmt.Errorf("invalid handle %q: handle 0 is reserved", s)
	}
	return uint16(h), nil
}
