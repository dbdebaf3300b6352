//go:build test

package testutils

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"github.com/srg/bgatt/internal/simulator"
	"github.com/srg/bgatt/internal/transport"
)

// SimulatedModuleSuite connects a UART transport to a simulated radio module over an
// in-memory pipe. Each test gets a fresh simulator built from PeripheralBuilder.
//
// Basic usage (default battery service):
//
//	type DiscoverySuite struct {
//	    testutils.SimulatedModuleSuite
//	}
//
//	func TestDiscoverySuite(t *testing.T) {
//	    suite.Run(t, new(DiscoverySuite))
//	}
//
// Custom peripheral:
//
//	func (s *DiscoverySuite) SetupTest() {
//	    s.WithPeripheral().
//	        WithService("180D").
//	        WithCharacteristic("2A37", "read,notify", []byte{80})
//
//	    s.SimulatedModuleSuite.SetupTest() // call parent last to apply configuration
//	}
type SimulatedModuleSuite struct {
	suite.Suite

	Helper *TestHelper
	Logger *logrus.Logger

	// EventTimeout is what tests should hand to the code under test; short, so fault
	// scenarios finish quickly.
	EventTimeout time.Duration
	// PacketMode runs the pipe with the UART packet mode length prefix.
	PacketMode bool

	PeripheralBuilder *ProfileBuilder
	Peripheral        *simulator.Peripheral
	Sim               *simulator.Simulator
	Transport         *transport.UART

	cancel context.CancelFunc
	served chan error
}

// SetupSuite initializes the shared helpers. Called once before all tests.
func (s *SimulatedModuleSuite) SetupSuite() {
	s.Helper = NewTestHelper(s.T())
	s.Logger = s.Helper.Logger
	if s.EventTimeout == 0 {
		s.EventTimeout = 200 * time.Millisecond
	}
}

// SetupTest builds the simulator and connects the transport. Called before each test.
func (s *SimulatedModuleSuite) SetupTest() {
	if s.PeripheralBuilder == nil {
		s.PeripheralBuilder = DefaultPeripheral()
	}
	s.Peripheral = s.PeripheralBuilder.Build()

	sim, err := simulator.New(s.Peripheral, s.Logger)
	s.Require().NoError(err, "simulator MUST accept the peripheral")
	s.Sim = sim

	host, module := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.served = make(chan error, 1)
	go func() { s.served <- sim.Serve(ctx, module, s.PacketMode) }()

	s.Transport = transport.NewUART(host, transport.Options{
		PacketMode:   s.PacketMode,
		ReplyTimeout: s.EventTimeout,
		Logger:       s.Logger,
	})
	s.Logger.Debug("Simulated module ready")
}

// TearDownTest stops the simulator and closes the transport.
func (s *SimulatedModuleSuite) TearDownTest() {
	if s.Transport != nil {
		_ = s.Transport.Close()
	}
	if s.cancel != nil {
		s.cancel()
		select {
		case err := <-s.served:
			s.NoError(err, "simulator MUST stop cleanly")
		case <-time.After(2 * time.Second):
			s.Fail("simulator did not stop")
		}
	}
	s.PeripheralBuilder = nil
	s.Sim = nil
	s.Transport = nil
}

// WithPeripheral returns the builder for the next test's peripheral.
func (s *SimulatedModuleSuite) WithPeripheral() *ProfileBuilder {
	if s.PeripheralBuilder == nil {
		s.PeripheralBuilder = NewProfileBuilder()
	}
	return s.PeripheralBuilder
}

// DefaultPeripheral is a Battery Service (180F) with Battery Level (2A19) at 50%.
func DefaultPeripheral() *ProfileBuilder {
	return NewProfileBuilder().
		WithName("Battery").
		WithService("180F").
		WithCharacteristic("2A19", "read,notify", []byte{50})
}
