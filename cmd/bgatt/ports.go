package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srg/bgatt/internal/transport"
)

// portsCmd represents the ports command
var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		ports, err := listPorts()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(ports) == 0 {
			_, err := fmt.Fprintln(out, "No serial ports found")
			return err
		}
		for _, p := range ports {
			fmt.Fprintln(out, p)
		}
		return nil
	},
}

// listPorts is a variable so tests do not depend on the host's devices.
var listPorts = transport.ListPorts
