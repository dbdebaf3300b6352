package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/srg/bgatt/inspector"
	"github.com/srg/bgatt/internal/bgapi"
	"github.com/srg/bgatt/internal/device"
	"github.com/srg/bgatt/internal/lua"
	"github.com/srg/bgatt/internal/transport"
)

// FormatUserError turns the errors the commands return into one line for the terminal.
// Errors it does not recognise are printed as is.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	var (
		notFound  *device.NotFoundError
		discovery *device.DiscoveryError
		result    *bgapi.ResultError
		luaErr    *lua.LuaError
	)

	switch {
	case errors.As(err, &luaErr):
		if luaErr.Line > 0 {
			return fmt.Sprintf("script %s error at line %d: %s", luaErr.Type, luaErr.Line, luaErr.Message)
		}
		return fmt.Sprintf("script %s error: %s", luaErr.Type, luaErr.Message)

	case errors.As(err, &discovery):
		return fmt.Sprintf("%s discovery failed: %s", discovery.Phase, FormatUserError(discovery.Err))

	case errors.Is(err, device.ErrLinkLost):
		return "connection lost: the module stopped reporting events (is the peripheral still in range?)"

	case errors.Is(err, transport.ErrNoReply):
		return "the module did not answer; check --port, --baud and --packet-mode"

	case errors.Is(err, transport.ErrClosed):
		return "the serial link to the module was closed"

	case errors.As(err, &notFound):
		return fmt.Sprintf("%s; run 'bgatt inspect <address>' to list the device attributes", notFound.Error())

	case errors.Is(err, device.ErrConnectFailed):
		return fmt.Sprintf("could not connect to the device: %s", err)

	case errors.Is(err, device.ErrNotConnected):
		return "the device is not connected"

	case errors.Is(err, inspector.ErrUnsupportedFirmware):
		return fmt.Sprintf("%s; set min_firmware in the config file to override", err)

	case errors.As(err, &result):
		if result.ATT() {
			return fmt.Sprintf("the device refused the request: %s", result)
		}
		return fmt.Sprintf("the module refused the request: %s", result)

	case errors.Is(err, context.DeadlineExceeded):
		return "operation timed out"
	}

	return err.Error()
}
