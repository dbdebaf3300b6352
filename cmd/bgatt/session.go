package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/bgatt/inspector"
	"github.com/srg/bgatt/internal/profile"
	"github.com/srg/bgatt/internal/transport"
	"github.com/srg/bgatt/pkg/config"
)

// ErrNoPort is returned when neither --port nor the config file names a serial device.
var ErrNoPort = errors.New("no serial port: use --port or set port in the config file")

// openTransport connects to the radio module. It is a variable so tests can substitute a
// simulated module.
var openTransport = func(cfg *config.Config, logger *logrus.Logger) (transport.Transport, error) {
	if cfg.Port == "" {
		return nil, ErrNoPort
	}
	uart, err := transport.OpenSerial(cfg.Port, cfg.BaudRate, transport.Options{
		PacketMode:   cfg.PacketMode,
		ReplyTimeout: cfg.ReplyTimeout,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	return uart, nil
}

// session is what every command that talks to the module starts with.
type session struct {
	cfg    *config.Config
	logger *logrus.Logger
	tr     transport.Transport
}

// loadConfig reads --config and applies the persistent flags the user set on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetString("port")
	}
	if flags.Changed("baud") {
		cfg.BaudRate, _ = flags.GetInt("baud")
	}
	if flags.Changed("packet-mode") {
		cfg.PacketMode, _ = flags.GetBool("packet-mode")
	}
	if flags.Changed("event-timeout") {
		cfg.EventTimeout, _ = flags.GetDuration("event-timeout")
	}
	if flags.Changed("connection") {
		cfg.Connection, _ = flags.GetUint8("connection")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSession loads the configuration, builds the logger and opens the module link.
// The caller must Close the session.
func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	tr, err := openTransport(cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.WithField("port", cfg.Port).Debug("Module link open")
	return &session{cfg: cfg, logger: logger, tr: tr}, nil
}

// inspectOptions derives the inspector options from the configuration.
func (s *session) inspectOptions() (*inspector.InspectOptions, error) {
	firmware, err := s.cfg.FirmwareRange()
	if err != nil {
		return nil, err
	}
	return &inspector.InspectOptions{
		ConnectTimeout: s.cfg.ConnectTimeout,
		EventTimeout:   s.cfg.EventTimeout,
		Connection:     s.cfg.Connection,
		Firmware:       firmware,
	}, nil
}

func (s *session) Close() {
	if err := s.tr.Close(); err != nil {
		s.logger.WithError(err).Debug("Failed to close module link")
	}
}

// validateAddress rejects malformed addresses before the port is opened.
func validateAddress(address string) error {
	if _, err := profile.ParseMAC(address); err != nil {
		return fmt.Errorf("invalid device address %q: %w", address, err)
	}
	return nil
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
