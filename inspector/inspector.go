package inspector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blang/semver"
	"github.com/sirupsen/logrus"

	"github.com/srg/bgatt/internal/device"
	"github.com/srg/bgatt/internal/profile"
	"github.com/srg/bgatt/internal/transport"
)

// ErrUnsupportedFirmware is returned when the module firmware is outside the accepted range.
var ErrUnsupportedFirmware = errors.New("unsupported module firmware")

// ProgressCallback is called when the inspection phase changes
type ProgressCallback func(phase string)

// InspectOptions defines options for inspecting a BLE device profile
type InspectOptions struct {
	ConnectTimeout time.Duration
	EventTimeout   time.Duration
	// Connection is the handle to use when the link is already up.
	Connection uint8
	// AlreadyConnected skips connect and disconnect; the caller owns the link.
	AlreadyConnected bool
	// Firmware, when set, must accept the module version reported by system_get_info.
	Firmware semver.Range
}

// InspectCallback processes a discovered device and produces output of type R
type InspectCallback[R any] func(*device.Central) (R, error)

// InspectDevice connects to a device, discovers its profile, and executes the callback
// with the central. Connection and disconnection are managed automatically unless
// AlreadyConnected is set.
func InspectDevice[R any](ctx context.Context, tr transport.Transport, address string, opts *InspectOptions, logger *logrus.Logger, progressCallback ProgressCallback, callback InspectCallback[R]) (R, error) {
	var zero R
	if opts == nil {
		opts = &InspectOptions{ConnectTimeout: device.DefaultConnectTimeout}
	}
	if logger == nil {
		logger = logrus.New()
	}
	if progressCallback == nil {
		progressCallback = func(string) {} // No-op callback
	}

	mac, err := profile.ParseMAC(address)
	if err != nil {
		return zero, err
	}

	central := device.NewCentral(tr, profile.NewDevice(mac, opts.Connection), device.Options{
		EventTimeout:   opts.EventTimeout,
		ConnectTimeout: opts.ConnectTimeout,
		Logger:         logger,
	})

	if opts.Firmware != nil {
		progressCallback("Checking module")
		if err := CheckFirmware(ctx, central, opts.Firmware); err != nil {
			progressCallback("Failed")
			return zero, err
		}
	}

	if !opts.AlreadyConnected {
		progressCallback("Connecting")
		if err := central.Connect(ctx, mac); err != nil {
			progressCallback("Failed")
			return zero, err
		}
		progressCallback("Connected")

		// Ensure the device is disconnected after the callback completes
		defer func() {
			// replies and events are bounded by their own timeouts
			if err := central.Disconnect(context.WithoutCancel(ctx)); err != nil {
				logger.WithError(err).Error("failed to disconnect device")
			}
		}()
	}

	progressCallback("Discovering")
	if err := central.DiscoverProfile(ctx); err != nil {
		progressCallback("Failed")
		return zero, err
	}

	progressCallback("Processing results")

	return callback(central)
}

// CheckFirmware queries the module version and tests it against accept.
func CheckFirmware(ctx context.Context, central *device.Central, accept semver.Range) error {
	info, err := central.ModuleInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to query module: %w", err)
	}
	v, err := semver.Parse(info.Version())
	if err != nil {
		return fmt.Errorf("module reported version %q: %w", info.Version(), err)
	}
	if !accept(v) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFirmware, v)
	}
	return nil
}
