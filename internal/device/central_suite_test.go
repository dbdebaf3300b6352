//go:build test

package device_test

import (
	"context"
	"time"

	"github.com/srg/bgatt/internal/device"
	"github.com/srg/bgatt/internal/profile"
	"github.com/srg/bgatt/internal/testutils"
)

const (
	nusService = "6e400001-b5a3-f393-e0a9-e50e24dcca9e"
	nusRX      = "6e400002-b5a3-f393-e0a9-e50e24dcca9e"
	nusTX      = "6e400003-b5a3-f393-e0a9-e50e24dcca9e"
)

// CentralTestSuite runs a Central against a simulated module. The default peripheral
// lays out handles as follows:
//
//	0x0001 1800 service      0x0002 decl, 0x0003 2A00 value
//	0x0004 1801 service      (single handle, no characteristics)
//	0x000E 180F service      0x000F decl, 0x0010 2A19 value, 0x0011 2904, 0x0012 2902
//	                         0x0013 decl, 0x0014 2A29 value
//	0x0015 NUS (open end)    0x0016 decl, 0x0017 RX value
//	                         0x0018 decl, 0x0019 TX value, 0x001A 2902 (implicit)
type CentralTestSuite struct {
	testutils.SimulatedModuleSuite

	central *device.Central
}

func (suite *CentralTestSuite) SetupTest() {
	if suite.PeripheralBuilder == nil {
		suite.WithPeripheral().
			WithName("Thunder Sense").
			WithServiceAt(0x0001, "1800").
			WithCharacteristic("2A00", "read", []byte("Thunder")).
			WithServiceAt(0x0004, "1801").
			WithServiceAt(0x000E, "180F").
			WithCharacteristic("2A19", "read,notify", []byte{85},
				testutils.WithDescriptor("2904", []byte{0x04, 0x00, 0xAD, 0x27, 0x01, 0x00, 0x00}),
				testutils.WithDescriptor("2902", []byte{0x00, 0x00})).
			WithCharacteristic("2A29", "read", []byte("Acme")).
			WithOpenEndService(nusService).
			WithCharacteristic(nusRX, "write", nil).
			WithCharacteristic(nusTX, "notify", nil)
	}

	suite.SimulatedModuleSuite.SetupTest()

	suite.central = device.NewCentral(suite.Transport, profile.NewDevice(suite.Peripheral.Address, suite.Peripheral.Connection), device.Options{
		EventTimeout:   suite.EventTimeout,
		ConnectTimeout: suite.EventTimeout,
		Logger:         suite.Logger,
	})
}

func (suite *CentralTestSuite) ctx() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	suite.T().Cleanup(cancel)
	return ctx
}

// discover runs discovery and fails the test when it does not succeed.
func (suite *CentralTestSuite) discover() *profile.Device {
	suite.Require().NoError(suite.central.DiscoverProfile(suite.ctx()), "discovery MUST succeed")
	return suite.central.Profile()
}
