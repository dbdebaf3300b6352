//go:build test

//go:generate go run github.com/srgg/testify/depend/cmd/dependgen

package lua_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/srg/bgatt/internal/device"
	"github.com/srg/bgatt/internal/lua"
	"github.com/srg/bgatt/internal/profile"
	"github.com/srg/bgatt/internal/testutils"
	"github.com/srgg/testify/depend"
)

// BLEAPITestSuite runs scripts against the default battery peripheral:
//
//	0x0001 180F service, 0x0002 decl, 0x0003 2A19 value, 0x0004 2902
type BLEAPITestSuite struct {
	testutils.SimulatedModuleSuite

	central *device.Central
}

func (suite *BLEAPITestSuite) SetupTest() {
	suite.SimulatedModuleSuite.SetupTest()

	suite.central = device.NewCentral(suite.Transport, profile.NewDevice(suite.Peripheral.Address, suite.Peripheral.Connection), device.Options{
		EventTimeout: suite.EventTimeout,
		Logger:       suite.Logger,
	})
	suite.Require().NoError(suite.central.DiscoverProfile(context.Background()), "discovery MUST succeed")
}

func (suite *BLEAPITestSuite) run(script string, args map[string]string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	err := lua.ExecuteDeviceScriptWithOutput(context.Background(), suite.central, suite.Logger, script, args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func (suite *BLEAPITestSuite) TestDeviceTable() {
	out, _, err := suite.run(`print(ble.device.address, ble.device.services, ble.device.characteristics, ble.device.descriptors)`, nil)

	suite.Require().NoError(err)
	suite.Equal("aa:bb:cc:dd:ee:ff\t1\t1\t1\n", out)
}

func (suite *BLEAPITestSuite) TestProfileWalk() {
	// GOAL: Verify scripts see the discovered tree
	//
	// TEST SCENARIO: Walk ble.profile() → every level carries uuid and handles

	out, _, err := suite.run(`
		for _, svc in ipairs(ble.profile()) do
			print(svc.uuid, svc.start_handle, svc.end_handle)
			for _, ch in ipairs(svc.characteristics) do
				print(ch.uuid, ch.value_handle, ch.properties)
				for _, d in ipairs(ch.descriptors) do
					print(d.uuid, d.handle)
				end
			end
		end
	`, nil)

	suite.Require().NoError(err)
	testutils.NewTextAsserter(suite.T()).WithOptions(testutils.WithTrimSpace(true)).Assert(out, `
180f	1	4
2a19	3	read,notify
2902	4
`)
}

func (suite *BLEAPITestSuite) TestReadWrite() {
	out, _, err := suite.run(`
		local v = ble.read(arg.uuid)
		print(ble.hex(v), string.byte(v))
		print(ble.read(3) == v)
		print(ble.handle("2902"))
		print(ble.name("2a19"))
		local ok, err = ble.read("2a37")
		print(ok, err ~= nil)
	`, map[string]string{"uuid": "2a19"})

	suite.Require().NoError(err)
	suite.Equal("32\t50\ntrue\n4\nBattery Level\nnil\ttrue\n", out)
}

func (suite *BLEAPITestSuite) TestWriteRefusedComesBackAsError() {
	out, _, err := suite.run(`
		local ok, err = ble.write("2a19", "x")
		print(ok, err ~= nil)
	`, nil)

	suite.Require().NoError(err, "API errors MUST NOT abort the script")
	suite.Equal("nil\ttrue\n", out)
}

func (suite *BLEAPITestSuite) TestNotifications() {
	out, _, err := suite.run(`
		print(ble.enable_notify("2a19"))
		local n, err = ble.receive()
		print(n, err ~= nil)
	`, nil)

	suite.Require().NoError(err)
	suite.Equal("true\nnil\ttrue\n", out, "no notification MUST be reported as an error value")
	suite.True(suite.Sim.NotificationsEnabled(0x0003), "CCCD MUST be written")

	suite.True(suite.Sim.Notify(0x0003, []byte{42}))
	out, _, err = suite.run(`
		local n = ble.receive()
		print(n.handle, n.type, string.byte(n.value))
	`, nil)
	suite.Require().NoError(err)
	suite.Equal("3\t1\t42\n", out)
}

func (suite *BLEAPITestSuite) TestRuntimeErrorGoesToStderr() {
	_, stderr, err := suite.run(`error("script failed")`, nil)

	suite.ErrorIs(err, &lua.LuaError{Type: lua.ErrTypeRuntime})
	suite.Contains(stderr, "script failed", "runtime errors MUST be written to stderr")
}

func (suite *BLEAPITestSuite) TestProfileJSON() {
	out, _, err := suite.run(`print(ble.profile_json())`, nil)

	suite.Require().NoError(err)
	testutils.NewJSONAsserter(suite.T()).Assert(out, `{
		"mac": "aa:bb:cc:dd:ee:ff",
		"services": [{"start_handle": 1, "end_handle": 4, "uuid16": 6159}]
	}`)
}

func (suite *BLEAPITestSuite) TestCollectedOutput() {
	// GOAL: Verify collected execution keeps stdout and stderr records in order
	//
	// TEST SCENARIO: Print, then fail → two records, runtime error returned

	records, metrics, err := lua.ExecuteDeviceScriptCollected(context.Background(), suite.central, suite.Logger,
		`print(ble.hex(ble.read(arg.uuid))) error("boom")`, map[string]string{"uuid": "2a19"}, 16)

	suite.ErrorIs(err, &lua.LuaError{Type: lua.ErrTypeRuntime}, "script failure MUST be returned")
	suite.Require().Len(records, 2, "both outputs MUST be collected")
	suite.Equal(lua.SourceStdout, records[0].Source)
	suite.Equal("32\n", records[0].Content)
	suite.Equal(lua.SourceStderr, records[1].Source)
	suite.Contains(records[1].Content, "boom")
	suite.EqualValues(2, metrics.RecordsProcessed)
}

func TestBLEAPITestSuite(t *testing.T) {
	depend.RunSuite(t, new(BLEAPITestSuite))
}
