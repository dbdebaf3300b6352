package device

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/srg/bgatt/internal/bgapi"
	"github.com/srg/bgatt/internal/profile"
)

// Connect opens a link to mac with the default connection parameters and waits for
// the module to report it connected. The profile is reset and rebound to the new
// connection handle.
func (c *Central) Connect(ctx context.Context, mac profile.MAC) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.WithField("address", mac.String()).Info("Connecting to BLE device...")

	reply, err := c.exchange(ctx, "gap_connect_direct", bgapi.GapConnectDirect(mac, 0, bgapi.DefaultConnectParams))
	if err != nil {
		return err
	}
	res, err := bgapi.ParseConnectDirectResult(reply)
	if err != nil {
		return err
	}
	if err := bgapi.CheckResult("gap_connect_direct", res.Result); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	for {
		evt, err := c.nextEventWithin(ctx, c.connectTimeout)
		if err != nil {
			c.cancelConnect(ctx)
			return fmt.Errorf("%w: %s: %w", ErrConnectFailed, mac, err)
		}
		switch {
		case evt.Is(bgapi.ClassConnection, bgapi.EvtConnectionStatus):
			st, err := bgapi.ParseConnectionStatus(evt)
			if err != nil {
				return err
			}
			if !st.Connected() {
				continue
			}
			c.dev.Reset()
			c.dev.MAC = mac
			c.dev.ConnectionHandle = st.Connection
			c.logger.WithFields(logrus.Fields{
				"address":    mac.String(),
				"connection": st.Connection,
				"interval":   st.Interval,
			}).Info("BLE device connected")
			return nil
		case evt.Is(bgapi.ClassConnection, bgapi.EvtConnectionDisconnected):
			d, _ := bgapi.ParseDisconnected(evt)
			return &ConnectionError{State: ConnectFailed, Msg: fmt.Sprintf("disconnected, reason 0x%04X", d.Reason)}
		default:
			c.logger.WithField("frame", evt.String()).Debug("Ignoring event while connecting")
		}
	}
}

// cancelConnect stops a pending gap_connect_direct.
func (c *Central) cancelConnect(ctx context.Context) {
	if err := c.command(context.WithoutCancel(ctx), "gap_end_procedure", bgapi.GapEndProcedure()); err != nil {
		c.logger.WithError(err).Warn("Failed to cancel connection attempt")
	}
}

// Disconnect closes the link and drops the profile.
func (c *Central) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.WithField("connection", c.dev.ConnectionHandle).Info("Disconnecting BLE device...")
	err := c.command(ctx, "connection_disconnect", bgapi.ConnectionDisconnect(c.dev.ConnectionHandle))
	if err != nil {
		if isResult(err) {
			return fmt.Errorf("%w: %w", ErrNotConnected, err)
		}
		return err
	}

	for {
		evt, err := c.nextEvent(ctx)
		if err != nil {
			return err
		}
		if evt.Is(bgapi.ClassConnection, bgapi.EvtConnectionDisconnected) {
			d, _ := bgapi.ParseDisconnected(evt)
			c.dev.Reset()
			c.logger.WithField("reason", fmt.Sprintf("0x%04X", d.Reason)).Info("BLE device disconnected successfully")
			return nil
		}
		c.logger.WithField("frame", evt.String()).Debug("Ignoring event while disconnecting")
	}
}

// Status asks the module for the state of the link.
func (c *Central) Status(ctx context.Context) (bgapi.ConnectionStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.exchange(ctx, "connection_get_status", bgapi.ConnectionGetStatus(c.dev.ConnectionHandle)); err != nil {
		return bgapi.ConnectionStatus{}, err
	}
	for {
		evt, err := c.nextEvent(ctx)
		if err != nil {
			return bgapi.ConnectionStatus{}, err
		}
		if evt.Is(bgapi.ClassConnection, bgapi.EvtConnectionStatus) {
			return bgapi.ParseConnectionStatus(evt)
		}
		c.logger.WithField("frame", evt.String()).Debug("Ignoring event while reading status")
	}
}

// Hello checks that the module answers commands at all.
func (c *Central) Hello(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	reply, err := c.exchange(ctx, "system_hello", bgapi.SystemHello())
	if err != nil {
		return err
	}
	if !reply.IsResponse(bgapi.ClassSystem, bgapi.CmdSystemHello) {
		return fmt.Errorf("system_hello: unexpected reply %s", reply)
	}
	return nil
}

// ModuleInfo reads the module firmware and hardware versions.
func (c *Central) ModuleInfo(ctx context.Context) (bgapi.SystemInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reply, err := c.exchange(ctx, "system_get_info", bgapi.SystemGetInfo())
	if err != nil {
		return bgapi.SystemInfo{}, err
	}
	return bgapi.ParseSystemInfo(reply)
}
