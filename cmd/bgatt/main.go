package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bgatt",
	Short: "GATT client for BGAPI radio modules",
	Long: `GATT client for BLE112-class radio modules driven over a UART with BGAPI:

- Scan for advertisers and decode advertising data
- Connect and discover services, characteristics, and descriptors
- Read from and write to attributes by UUID or handle
- Receive notifications and relay them to WebSocket clients
- Lua scripting against a connected peripheral
- A simulated module on a pseudo-terminal for development without hardware`,
	Version: formatVersion(version),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Ctrl+C is a normal exit
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
		os.Exit(1)
	}
}

func init() {
	// main() prints the error itself
	rootCmd.SilenceErrors = true
	rootCmd.SetVersionTemplate(fmt.Sprintf("bgatt {{.Version}} (commit %s, built %s)\n", commit, date))

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(advCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(subscribeCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(simulateCmd)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "YAML configuration file")
	pf.StringP("port", "p", "", "Serial device of the radio module (e.g. /dev/ttyACM0)")
	pf.Int("baud", 0, "Serial baud rate (default from config, 115200)")
	pf.Bool("packet-mode", false, "Module firmware expects UART packet mode length prefixes")
	pf.Duration("event-timeout", 0, "Per event wait during procedures (default from config, 1s)")
	pf.Uint8("connection", 0, "Connection handle to use")
	pf.String("log-level", "", "Log level (trace, debug, info, warn, error)")
	pf.Bool("verbose", false, "Enable debug logging")

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
}
