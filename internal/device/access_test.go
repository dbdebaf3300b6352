//go:build test

//go:generate go run github.com/srgg/testify/depend/cmd/dependgen

package device_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/srgg/testify/depend"

	"github.com/srg/bgatt/internal/bgapi"
	"github.com/srg/bgatt/internal/bledb"
	"github.com/srg/bgatt/internal/device"
	"github.com/srg/bgatt/internal/profile"
)

type AccessTestSuite struct {
	CentralTestSuite
}

func (suite *AccessTestSuite) SetupTest() {
	suite.CentralTestSuite.SetupTest()
	suite.discover()
}

func mustUUID(s string) bledb.UUID128 {
	p, err := bledb.ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return p.UUID128
}

func (suite *AccessTestSuite) TestRead() {
	// GOAL: Verify reads by UUID and by handle
	//
	// TEST SCENARIO: Various read targets → value or module error surfaced verbatim

	suite.Run("characteristic value", func() {
		data, err := suite.central.Read(suite.ctx(), mustUUID("2a19"))
		suite.Require().NoError(err, "MUST read successfully")
		suite.Assert().Equal([]byte{85}, data, "data MUST match the simulated value")
	})

	suite.Run("by handle", func() {
		data, err := suite.central.ReadHandle(suite.ctx(), 0x0014)
		suite.Require().NoError(err, "MUST read successfully")
		suite.Assert().Equal([]byte("Acme"), data)
	})

	suite.Run("unknown UUID sends handle 0", func() {
		_, err := suite.central.Read(suite.ctx(), mustUUID("2a37"))
		suite.Require().Error(err, "MUST fail")
		suite.Assert().ErrorIs(err, &bgapi.ResultError{Code: bgapi.ResultInvalidHandle}, "module error MUST be surfaced verbatim")

		cmds := suite.Sim.Commands()
		last := cmds[len(cmds)-1]
		suite.Assert().Equal(bgapi.ReadByHandle(0, 0), last, "handle 0 MUST still be sent")
	})

	suite.Run("not readable", func() {
		_, err := suite.central.Read(suite.ctx(), mustUUID(nusRX))
		suite.Assert().ErrorIs(err, &bgapi.ResultError{Code: bgapi.ResultReadNotPermitted})
	})

	suite.Run("concurrent readers are serialized", func() {
		var wg sync.WaitGroup
		results := make([][]byte, 4)
		errs := make([]error, 4)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = suite.central.Read(suite.ctx(), mustUUID("2a19"))
			}(i)
		}
		wg.Wait()
		for i := range results {
			suite.Assert().NoError(errs[i], "reader %d MUST succeed", i)
			suite.Assert().Equal([]byte{85}, results[i], "reader %d MUST see the value", i)
		}
	})
}

func (suite *AccessTestSuite) TestWrite() {
	// GOAL: Verify writes report the procedure result
	//
	// TEST SCENARIO: write to writable and read only characteristics → success or write not permitted

	suite.Run("writable", func() {
		err := suite.central.Write(suite.ctx(), mustUUID(nusRX), []byte("hi"))
		suite.Require().NoError(err, "MUST write successfully")
		value, _ := suite.Sim.Value(0x0017)
		suite.Assert().Equal([]byte("hi"), value, "peripheral MUST hold the written value")
	})

	suite.Run("read only", func() {
		err := suite.central.Write(suite.ctx(), mustUUID("2a19"), []byte{1})
		suite.Assert().ErrorIs(err, &bgapi.ResultError{Code: bgapi.ResultWriteNotPermitted})
	})

	suite.Run("too long", func() {
		err := suite.central.WriteHandle(suite.ctx(), 0x0017, make([]byte, 256))
		suite.Assert().ErrorIs(err, device.ErrValueTooLong)
	})
}

func (suite *AccessTestSuite) TestNotifications() {
	// GOAL: Verify enabling and polling notifications
	//
	// TEST SCENARIO: enable on TX → peripheral pushes a value → ReceiveNotification returns it → next poll times out

	tx := mustUUID(nusTX)
	suite.Require().True(suite.central.EnableNotification(suite.ctx(), tx), "MUST enable notifications")
	suite.Require().True(suite.Sim.NotificationsEnabled(0x0019), "peripheral MUST see the configuration write")

	suite.Require().True(suite.Sim.Notify(0x0019, []byte{1, 2, 3}))
	n, err := suite.central.ReceiveNotification(suite.ctx())
	suite.Require().NoError(err, "MUST receive the notification")
	suite.Assert().Equal(uint16(0x0019), n.Handle)
	suite.Assert().Equal(byte(bgapi.AttValueNotify), n.Type)
	suite.Assert().Equal([]byte{1, 2, 3}, n.Value)

	_, err = suite.central.ReceiveNotification(suite.ctx())
	suite.Assert().ErrorIs(err, device.ErrNoNotification, "an empty poll MUST report no notification")
}

func (suite *AccessTestSuite) TestEnableNotificationAssumesNextHandle() {
	// GOAL: Verify the configuration write goes to value handle + 1, discovered descriptors notwithstanding
	//
	// TEST SCENARIO: 2A19 has 2904 at 0x0011 and 2902 at 0x0012 → write lands on 0x0011 → notifications stay off

	suite.Assert().True(suite.central.EnableNotification(suite.ctx(), mustUUID("2a19")), "the write itself MUST succeed")
	suite.Assert().False(suite.Sim.NotificationsEnabled(0x0010), "the real CCCD MUST be untouched")

	cmds := suite.Sim.Commands()
	suite.Assert().Equal(bgapi.AttributeWrite(0, 0x0011, []byte("1")), cmds[len(cmds)-1])
}

func (suite *AccessTestSuite) TestUnexpectedEvent() {
	// GOAL: Verify a non notification event is reported as unexpected
	//
	// TEST SCENARIO: disconnect behind the Central's back → disconnected event → ErrUnexpectedEvent

	suite.Require().NoError(suite.Transport.Send(bgapi.ConnectionDisconnect(0)))
	_, err := suite.Transport.ReadSyncReply(suite.ctx())
	suite.Require().NoError(err)

	_, err = suite.central.ReceiveNotification(suite.ctx())
	suite.Assert().ErrorIs(err, device.ErrUnexpectedEvent)
}

func (suite *AccessTestSuite) TestConnectionLifecycle() {
	// GOAL: Verify disconnect, status and reconnect
	//
	// TEST SCENARIO: disconnect → status reports down → connect → status up → discovery works again

	info, err := suite.central.ModuleInfo(suite.ctx())
	suite.Require().NoError(err)
	suite.Assert().Equal("1.3.2", info.Version())

	suite.Require().NoError(suite.central.Disconnect(suite.ctx()), "MUST disconnect")
	services, _, _ := suite.central.Profile().Counts()
	suite.Assert().Zero(services, "disconnect MUST drop the profile")

	st, err := suite.central.Status(suite.ctx())
	suite.Require().NoError(err)
	suite.Assert().False(st.Connected(), "link MUST be down")

	err = suite.central.Disconnect(suite.ctx())
	suite.Assert().ErrorIs(err, device.ErrNotConnected, "second disconnect MUST report not connected")

	suite.Require().NoError(suite.central.Connect(suite.ctx(), suite.Peripheral.Address), "MUST reconnect")
	st, err = suite.central.Status(suite.ctx())
	suite.Require().NoError(err)
	suite.Assert().True(st.Connected(), "link MUST be up")

	suite.discover()
}

func (suite *AccessTestSuite) TestConnectUnknownAddress() {
	// GOAL: Verify connecting to an absent device fails after the connect timeout
	//
	// TEST SCENARIO: connect to an address nobody answers → ErrConnectFailed wrapping ErrLinkLost

	mac, err := profile.ParseMAC("01:02:03:04:05:06")
	suite.Require().NoError(err)

	err = suite.central.Connect(suite.ctx(), mac)
	suite.Require().Error(err)
	suite.Assert().True(errors.Is(err, device.ErrConnectFailed), "MUST be a connect failure, got %v", err)
	suite.Assert().ErrorIs(err, device.ErrLinkLost)
}

func TestAccessTestSuite(t *testing.T) {
	depend.RunSuite(t, new(AccessTestSuite))
}
