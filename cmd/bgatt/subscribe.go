package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/bgatt/inspector"
	"github.com/srg/bgatt/internal/bledb"
	"github.com/srg/bgatt/internal/device"
	"github.com/srg/bgatt/internal/groutine"
	"github.com/srg/bgatt/internal/notifyhub"
)

// subscribeCmd represents the subscribe command
var subscribeCmd = &cobra.Command{
	Use:   "subscribe <device-address> <uuid> [uuid...]",
	Short: "Enable and print characteristic notifications",
	Long: fmt.Sprintf(`Connects to a device, enables notifications on the given characteristics and
prints every value the device pushes until Ctrl+C, --duration or --count.

With --ws the notifications are also relayed as JSON to WebSocket clients
connected to ws://<addr>/ws.

Examples:
  # Heart rate measurement
  bgatt subscribe %s 2a37

  # Two characteristics for ten seconds, as hex
  bgatt subscribe %s 2a37 2a19 --hex --duration 10s

  # Relay to a browser dashboard
  bgatt subscribe %s 2a37 --ws 127.0.0.1:8080

%s`, exampleDeviceAddress, exampleDeviceAddress, exampleDeviceAddress, deviceAddressNote),
	Args: cobra.MinimumNArgs(2),
	RunE: runSubscribe,
}

var (
	subscribeHex      bool
	subscribeDuration time.Duration
	subscribeCount    int
	subscribeWS       string
)

func init() {
	subscribeCmd.Flags().BoolVar(&subscribeHex, "hex", false, "Output values as hex; printable values are shown as text by default")
	subscribeCmd.Flags().DurationVarP(&subscribeDuration, "duration", "d", 0, "Stop after this long (0 runs until Ctrl+C)")
	subscribeCmd.Flags().IntVarP(&subscribeCount, "count", "n", 0, "Stop after this many notifications (0 for unlimited)")
	subscribeCmd.Flags().StringVar(&subscribeWS, "ws", "", "Serve notifications to WebSocket clients on this address")
}

func runSubscribe(cmd *cobra.Command, args []string) error {
	address := args[0]
	if err := validateAddress(address); err != nil {
		return err
	}
	var uuids []bledb.UUID128
	for _, arg := range args[1:] {
		parsed, err := bledb.ParseUUID(arg)
		if err != nil {
			return err
		}
		uuids = append(uuids, parsed.UUID128)
	}
	if subscribeCount < 0 {
		return fmt.Errorf("invalid --count %d: must not be negative", subscribeCount)
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

	var hub *notifyhub.Hub
	if subscribeWS != "" {
		hub = notifyhub.New(s.logger)
		shutdown, err := serveHub(ctx, hub, subscribeWS, s.logger)
		if err != nil {
			return err
		}
		defer shutdown()
		fmt.Fprintf(cmd.ErrOrStderr(), "Relaying notifications on ws://%s/ws\n", subscribeWS)
	}

	out := cmd.OutOrStdout()
	_, err = inspector.InspectDevice(ctx, s.tr, address, opts, s.logger, nil,
		func(c *device.Central) (int, error) {
			return subscribe(ctx, c, uuids, out, hub, s.logger)
		})
	return err
}

// subscribe enables notifications for uuids and relays them until the stop condition.
// It returns the number of notifications received.
func subscribe(ctx context.Context, c *device.Central, uuids []bledb.UUID128, out io.Writer, hub *notifyhub.Hub, logger *logrus.Logger) (int, error) {
	for _, u := range uuids {
		if _, err := c.ValueHandle(u); err != nil {
			return 0, err
		}
		if err := c.EnableNotificationErr(ctx, u); err != nil {
			return 0, fmt.Errorf("failed to enable notifications on %s: %w", u.ShortString(), err)
		}
		logger.WithField("uuid", u.ShortString()).Info("Notifications enabled")
	}

	relayCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if subscribeDuration > 0 {
		relayCtx, cancel = context.WithTimeout(relayCtx, subscribeDuration)
		defer cancel()
	}

	dev := c.Profile()
	received := 0
	err := notifyhub.Relay(relayCtx, c, func(n device.Notification) {
		uuid := fmt.Sprintf("%04x", n.Handle)
		if ch, ok := dev.CharacteristicByValueHandle(n.Handle); ok {
			uuid = ch.UUID128.ShortString()
		}

		value := formatValue(n.Value, true)
		if subscribeHex {
			value = hex.EncodeToString(n.Value)
		}
		fmt.Fprintf(out, "%s %04x %s %s\n", time.Now().Format("15:04:05.000"), n.Handle, uuid, value)

		if hub != nil {
			hub.Broadcast(notifyhub.NewEvent(n, uuid))
		}

		received++
		if subscribeCount > 0 && received >= subscribeCount {
			cancel()
		}
	})

	// the stop conditions end the relay through relayCtx; only the caller's ctx is an error
	if ctx.Err() == nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		err = nil
	}
	return received, err
}

// serveHub starts an HTTP server with the hub on /ws. The returned function stops it.
func serveHub(ctx context.Context, hub *notifyhub.Hub, addr string, logger *logrus.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	var group groutine.Group
	group.Go(ctx, "ws-server", func(ctx context.Context) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("WebSocket server failed")
		}
	})

	return func() {
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		group.Wait()
	}, nil
}
