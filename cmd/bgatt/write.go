package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/srg/bgatt/inspector"
	"github.com/srg/bgatt/internal/device"
)

// writeCmd represents the write command
var writeCmd = &cobra.Command{
	Use:   "write <device-address> <uuid> <data>",
	Short: "Write an attribute value",
	Long: fmt.Sprintf(`Connects to a device, discovers its profile and writes one attribute.

Data is sent as the literal string unless --hex is given. Values are limited to 255
bytes.

Examples:
  # Write text
  bgatt write %s 2a00 "Sensor 7"

  # Write bytes
  bgatt write %s 2a06 01 --hex

  # Enable notifications by hand through the configuration descriptor
  bgatt write %s 0x0004 0100 --hex --handle

%s`, exampleDeviceAddress, exampleDeviceAddress, exampleDeviceAddress, deviceAddressNote),
	Args: cobra.ExactArgs(3),
	RunE: runWrite,
}

var (
	writeHex    bool
	writeHandle bool
)

func init() {
	writeCmd.Flags().BoolVar(&writeHex, "hex", false, "Data is a hex string")
	writeCmd.Flags().BoolVar(&writeHandle, "handle", false, "Treat the attribute argument as a handle")
}

func runWrite(cmd *cobra.Command, args []string) error {
	address, target := args[0], args[1]
	if err := validateAddress(address); err != nil {
		return err
	}
	if writeHandle {
		if _, err := parseHandle(target); err != nil {
			return err
		}
	}
	data, err := parseData(args[2], writeHex)
	if err != nil {
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

	handle, err := inspector.InspectDevice(ctx, s.tr, address, opts, s.logger, nil,
		func(c *device.Central) (uint16, error) {
			h, err := resolveAttribute(c, target, writeHandle)
			if err != nil {
				return 0, err
			}
			return h, c.WriteHandle(ctx, h, data)
		})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to handle 0x%04x\n", len(data), handle)
	return err
}

// parseData decodes the data argument. Hex input may contain spaces or colons.
func parseData(s string, isHex bool) ([]byte, error) {
	if !isHex {
		return []byte(s), nil
	}
	clean := strings.NewReplacer(" ", "", ":", "", "0x", "", "0X", "").Replace(s)
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex data %q: %w", s, err)
	}
	return data, nil
}
