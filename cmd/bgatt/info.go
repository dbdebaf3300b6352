package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srg/bgatt/inspector"
	"github.com/srg/bgatt/internal/device"
	"github.com/srg/bgatt/pkg/config"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the radio module firmware version",
	Long: `Greets the radio module with system_hello, queries it with system_get_info and prints its firmware, link
layer and protocol versions, and whether the firmware satisfies min_firmware.`,
	Args: cobra.NoArgs,
	RunE: runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	central := device.NewCentral(s.tr, nil, device.Options{
		EventTimeout: s.cfg.EventTimeout,
		Logger:       s.logger,
	})
	if err := central.Hello(ctx); err != nil {
		return err
	}
	info, err := central.ModuleInfo(ctx)
	if err != nil {
		return err
	}

	accept, err := s.cfg.FirmwareRange()
	if err != nil {
		return err
	}
	supported := inspector.CheckFirmware(ctx, central, accept) == nil

	out := cmd.OutOrStdout()
	if s.cfg.OutputFormat == config.OutputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Firmware  string `json:"firmware"`
			Build     uint16 `json:"build"`
			LinkLayer uint16 `json:"link_layer"`
			Protocol  byte   `json:"protocol"`
			Hardware  byte   `json:"hardware"`
			Supported bool   `json:"supported"`
		}{info.Version(), info.Build, info.LLVersion, info.Protocol, info.Hardware, supported})
	}

	fmt.Fprintf(out, "Firmware:   %s (build %d)\n", info.Version(), info.Build)
	fmt.Fprintf(out, "Link layer: %d\n", info.LLVersion)
	fmt.Fprintf(out, "Protocol:   %d\n", info.Protocol)
	fmt.Fprintf(out, "Hardware:   %d\n", info.Hardware)
	if supported {
		fmt.Fprintf(out, "Supported:  yes\n")
	} else {
		fmt.Fprintf(out, "Supported:  no (min_firmware %q)\n", s.cfg.MinFirmware)
	}
	return nil
}
