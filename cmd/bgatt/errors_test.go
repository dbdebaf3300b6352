package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/srg/bgatt/inspector"
	"github.com/srg/bgatt/internal/bgapi"
	"github.com/srg/bgatt/internal/device"
	"github.com/srg/bgatt/internal/lua"
	"github.com/srg/bgatt/internal/transport"
)

func TestFormatUserError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"nil", nil, ""},
		{"link lost", fmt.Errorf("read failed: %w", device.ErrLinkLost), "connection lost"},
		{"no reply", transport.ErrNoReply, "--packet-mode"},
		{"closed", transport.ErrClosed, "serial link"},
		{"not found", &device.NotFoundError{Resource: "attribute", UUIDs: []string{"2a37"}}, `attribute "2a37" not found; run 'bgatt inspect`},
		{"connect failed", fmt.Errorf("%w: timeout", device.ErrConnectFailed), "could not connect"},
		{"not connected", device.ErrNotConnected, "not connected"},
		{"firmware", fmt.Errorf("%w: 1.2.0", inspector.ErrUnsupportedFirmware), "min_firmware"},
		{"att result", &bgapi.ResultError{Code: 0x0403, Op: "attclient_attribute_write"}, "the device refused"},
		{"module result", &bgapi.ResultError{Code: 0x0181, Op: "gap_discover"}, "the module refused"},
		{"timeout", context.DeadlineExceeded, "timed out"},
		{"lua runtime", &lua.LuaError{Type: lua.ErrTypeRuntime, Line: 3, Message: "boom"}, "script runtime error at line 3: boom"},
		{"lua api", &lua.LuaError{Type: lua.ErrTypeAPI, Message: "empty script"}, "script api error: empty script"},
		{"other", errors.New("something else"), "something else"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := FormatUserError(tt.err)
			if tt.contains == "" {
				assert.Empty(t, msg)
				return
			}
			assert.Contains(t, msg, tt.contains)
		})
	}
}

func TestFormatUserErrorUnwrapsDiscovery(t *testing.T) {
	err := &device.DiscoveryError{Phase: device.PhaseCharacteristics, Err: device.ErrLinkLost}

	msg := FormatUserError(err)

	assert.Contains(t, msg, "characteristics discovery failed")
	assert.Contains(t, msg, "connection lost", "the cause MUST be formatted as well")
}
