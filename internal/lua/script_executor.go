package lua

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/srg/bgatt/internal/device"
)

// ExecuteDeviceScriptWithOutput runs script against central and streams its output to
// stdout and stderr while it runs. args become the global arg table.
func ExecuteDeviceScriptWithOutput(
	ctx context.Context,
	central *device.Central,
	logger *logrus.Logger,
	script string,
	args map[string]string,
	stdout, stderr io.Writer,
) error {
	api := NewBLEAPI(central, logger)

	if err := api.LuaEngine.SetGlobal("arg", args); err != nil {
		api.Close()
		return err
	}

	drainer := NewOutputDrainer(ctx, api.OutputChannel(), logger, stdout, stderr)

	logger.WithField("script_size", len(script)).Debug("Starting Lua script execution")
	scriptErr := api.ExecuteScript(ctx, script)
	logger.Debug("Lua script execution completed")

	// closing the engine closes the output channel, so the drainer ends after the last record
	api.Close()
	drainer.Wait()

	if scriptErr != nil {
		return fmt.Errorf("failed to execute script: %w", scriptErr)
	}
	return nil
}

// ExecuteDeviceScriptCollected runs script against central and returns its output
// records once it finishes. Only the most recent bufferSize records are kept.
func ExecuteDeviceScriptCollected(
	ctx context.Context,
	central *device.Central,
	logger *logrus.Logger,
	script string,
	args map[string]string,
	bufferSize uint32,
) ([]LuaOutputRecord, CollectorMetrics, error) {
	api := NewBLEAPI(central, logger)

	collector, err := NewLuaOutputCollector(api.OutputChannel(), bufferSize)
	if err != nil {
		api.Close()
		return nil, CollectorMetrics{}, err
	}
	if err := api.LuaEngine.SetGlobal("arg", args); err != nil {
		api.Close()
		return nil, CollectorMetrics{}, err
	}
	if err := collector.Start(); err != nil {
		api.Close()
		return nil, CollectorMetrics{}, err
	}

	scriptErr := api.ExecuteScript(ctx, script)
	api.Close()
	collector.Wait()

	records, err := collector.Records()
	if err != nil {
		return records, collector.GetMetrics(), err
	}
	if scriptErr != nil {
		return records, collector.GetMetrics(), fmt.Errorf("failed to execute script: %w", scriptErr)
	}
	return records, collector.GetMetrics(), nil
}
