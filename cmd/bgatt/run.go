package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/srg/bgatt"
	"github.com/srg/bgatt/inspector"
	"github.com/srg/bgatt/internal/device"
	"github.com/srg/bgatt/internal/lua"
	"github.com/srg/bgatt/pkg/config"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <device-address> [script.lua]",
	Short: "Run a Lua script against a connected device",
	Long: fmt.Sprintf(`Connects to a device, discovers its profile and runs a Lua script with the
ble table in scope. Without a script file the built-in inspect script runs.

The ble table:
  ble.device                   address, connection and attribute counts
  ble.profile()                services, characteristics and descriptors
  ble.profile_json()           the same as a JSON string
  ble.handle(uuid)             attribute handle for a UUID
  ble.read(uuid|handle)        value, or nil and an error message
  ble.write(uuid|handle, data) true, or nil and an error message
  ble.enable_notify(uuid)      true when the configuration write succeeded
  ble.receive()                {handle, type, value}, or nil and an error message
  ble.name(uuid)               assigned name of a 16-bit UUID
  ble.hex(data)                uppercase hex of a string
  ble.sleep(ms)

Script arguments are passed with --arg key=value and read from the arg table.

Examples:
  bgatt run %s
  bgatt run %s battery.lua --arg uuid=2a19
  bgatt run %s --arg values=false --json

%s`, exampleDeviceAddress, exampleDeviceAddress, exampleDeviceAddress, deviceAddressNote),
	Args: cobra.RangeArgs(1, 2),
	RunE: runScript,
}

var (
	runArgs       map[string]string
	runJSON       bool
	runBufferSize uint32
)

func init() {
	runCmd.Flags().StringToStringVar(&runArgs, "arg", nil, "Script argument as key=value (repeatable)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Collect the output and print it as JSON records")
	runCmd.Flags().Uint32Var(&runBufferSize, "buffer", 4096, "Output records kept with --json")
}

func runScript(cmd *cobra.Command, args []string) error {
	address := args[0]
	if err := validateAddress(address); err != nil {
		return err
	}

	script := bgatt.DefaultInspectLuaScript
	if len(args) == 2 {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("failed to read script: %w", err)
		}
		script = string(data)
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

	scriptArgs := runArgs
	if scriptArgs == nil {
		scriptArgs = map[string]string{}
	}
	asJSON := runJSON || s.cfg.OutputFormat == config.OutputJSON

	_, err = inspector.InspectDevice(ctx, s.tr, address, opts, s.logger, nil,
		func(c *device.Central) (struct{}, error) {
			if !asJSON {
				return struct{}{}, lua.ExecuteDeviceScriptWithOutput(ctx, c, s.logger, script, scriptArgs, cmd.OutOrStdout(), cmd.ErrOrStderr())
			}

			records, metrics, err := lua.ExecuteDeviceScriptCollected(ctx, c, s.logger, script, scriptArgs, runBufferSize)
			if metrics.RecordsOverwritten > 0 {
				s.logger.WithField("dropped", metrics.RecordsOverwritten).Warn("Script output exceeded --buffer, oldest records dropped")
			}
			if records == nil {
				records = []lua.LuaOutputRecord{}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(records); encErr != nil {
				return struct{}{}, encErr
			}
			return struct{}{}, err
		})
	return err
}
