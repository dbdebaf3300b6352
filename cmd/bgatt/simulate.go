package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srg/bgatt/internal/simulator"
)

// simulateCmd represents the simulate command
var simulateCmd = &cobra.Command{
	Use:   "simulate <peripheral.yaml>",
	Short: "Run a simulated radio module on a pseudo-terminal",
	Long: `Serves BGAPI on a fresh pseudo-terminal, answering as a radio module that is
connected to the peripheral described in the YAML file. Point the other commands at
the printed device with --port.

Example peripheral:

  name: Thunder Sense
  address: "00:0b:57:1a:88:ef"
  services:
    - uuid: "180f"
      characteristics:
        - uuid: "2a19"
          properties: read,notify
          value: "32"
          notify_every: 1s

Example:
  bgatt simulate thunder.yaml
  bgatt inspect 00:0b:57:1a:88:ef --port /dev/pts/7`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}

	peripheral, err := simulator.LoadPeripheral(args[0])
	if err != nil {
		return err
	}
	sim, err := simulator.New(peripheral, logger)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	ctx, stop := signalContext(cmd)
	defer stop()

	port, err := sim.ServePTY(ctx, cfg.PacketMode)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Simulated module for %s on %s\n", peripheral.Address, port.TTYName())
	fmt.Fprintln(cmd.ErrOrStderr(), "Press Ctrl+C to stop")

	<-ctx.Done()
	return nil
}
