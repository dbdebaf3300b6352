package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/srg/bgatt/internal/bgapi"
	"github.com/srg/bgatt/internal/bledb"
)

// Notification is one attribute value event received outside a read.
type Notification struct {
	Connection byte
	Handle     uint16
	Type       byte
	Value      []byte
}

// cccdEnable is what EnableNotification writes: the ASCII digit one.
var cccdEnable = []byte{'1'}

// Read resolves u to a handle and reads it. An unknown UUID is not an error here: handle
// 0 is sent and the module's answer is returned as is.
func (c *Central) Read(ctx context.Context, u bledb.UUID128) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readHandle(ctx, c.resolve(u))
}

// ReadHandle reads an attribute by handle.
func (c *Central) ReadHandle(ctx context.Context, h uint16) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readHandle(ctx, h)
}

// Write resolves u to a handle and writes data to it.
func (c *Central) Write(ctx context.Context, u bledb.UUID128, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeHandle(ctx, c.resolve(u), data)
}

// WriteHandle writes an attribute by handle.
func (c *Central) WriteHandle(ctx context.Context, h uint16, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeHandle(ctx, h, data)
}

// EnableNotification reports whether notifications were enabled for the characteristic
// u. See EnableNotificationErr.
func (c *Central) EnableNotification(ctx context.Context, u bledb.UUID128) bool {
	return c.EnableNotificationErr(ctx, u) == nil
}

// EnableNotificationErr writes "1" to the handle right after the characteristic value,
// which is assumed to be its client configuration descriptor. The discovered
// descriptors are not consulted.
func (c *Central) EnableNotificationErr(ctx context.Context, u bledb.UUID128) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := c.resolve(u)
	if h != 0 {
		h++
	}
	return c.writeHandle(ctx, h, cccdEnable)
}

// ReceiveNotification polls once for an attribute value event.
func (c *Central) ReceiveNotification(ctx context.Context) (Notification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	evt, ok, err := c.tr.WaitEvent(ctx, c.eventTimeout)
	if err != nil {
		return Notification{}, err
	}
	if !ok {
		return Notification{}, ErrNoNotification
	}
	if !evt.Is(bgapi.ClassAttClient, bgapi.EvtAttClientAttributeValue) {
		return Notification{}, fmt.Errorf("%w: %s", ErrUnexpectedEvent, evt)
	}
	av, err := bgapi.ParseAttributeValue(evt)
	if err != nil {
		return Notification{}, err
	}
	return Notification{Connection: av.Connection, Handle: av.Handle, Type: av.Type, Value: av.Value}, nil
}

// LookupHandle resolves a user supplied UUID against the profile: 16-bit forms match
// services, characteristics and descriptors, 128-bit forms services and
// characteristics.
func (c *Central) LookupHandle(uuid string) (uint16, error) {
	parsed, err := bledb.ParseUUID(uuid)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if parsed.Short {
		if h, ok := c.dev.UUID16ToHandle(parsed.UUID16); ok {
			return h, nil
		}
	}
	if h, ok := c.dev.UUID128ToHandle(parsed.UUID128); ok {
		return h, nil
	}
	return 0, &NotFoundError{Resource: "attribute", UUIDs: []string{uuid}}
}

// ValueHandle returns the value handle of the characteristic u.
func (c *Central) ValueHandle(u bledb.UUID128) (uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, ok := c.dev.Characteristic(u)
	if !ok {
		return 0, &NotFoundError{Resource: "characteristic", UUIDs: []string{u.ShortString()}}
	}
	return ch.ValueHandle, nil
}

func (c *Central) resolve(u bledb.UUID128) uint16 {
	h, ok := c.dev.UUID128ToHandle(u)
	if !ok {
		c.logger.WithField("uuid", u.String()).Warn("UUID not in profile, sending handle 0")
	}
	return h
}

func (c *Central) readHandle(ctx context.Context, h uint16) ([]byte, error) {
	conn := c.dev.ConnectionHandle
	if err := c.command(ctx, "read_by_handle", bgapi.ReadByHandle(conn, h)); err != nil {
		return nil, err
	}

	for {
		evt, err := c.nextEvent(ctx)
		if err != nil {
			return nil, err
		}
		switch {
		case evt.Is(bgapi.ClassAttClient, bgapi.EvtAttClientAttributeValue):
			av, err := bgapi.ParseAttributeValue(evt)
			if err != nil {
				return nil, err
			}
			if av.Handle != h || av.Type == bgapi.AttValueNotify || av.Type == bgapi.AttValueIndicate {
				c.logger.WithField("handle", av.Handle).Debug("Ignoring attribute value during read")
				continue
			}
			return av.Value, nil
		case evt.Is(bgapi.ClassAttClient, bgapi.EvtAttClientProcedureDone):
			pc, err := bgapi.ParseProcedureCompleted(evt)
			if err != nil {
				return nil, err
			}
			if err := bgapi.CheckResult("read_by_handle", pc.Result); err != nil {
				return nil, err
			}
			return []byte{}, nil
		default:
			c.logger.WithField("frame", evt.String()).Debug("Ignoring event during read")
		}
	}
}

func (c *Central) writeHandle(ctx context.Context, h uint16, data []byte) error {
	if len(data) > 255 {
		return ErrValueTooLong
	}
	conn := c.dev.ConnectionHandle
	if err := c.command(ctx, "attribute_write", bgapi.AttributeWrite(conn, h, data)); err != nil {
		return err
	}

	for {
		evt, err := c.nextEvent(ctx)
		if err != nil {
			return err
		}
		if !evt.Is(bgapi.ClassAttClient, bgapi.EvtAttClientProcedureDone) {
			c.logger.WithField("frame", evt.String()).Debug("Ignoring event during write")
			continue
		}
		pc, err := bgapi.ParseProcedureCompleted(evt)
		if err != nil {
			return err
		}
		c.logger.WithFields(logrus.Fields{
			"handle": h,
			"result": pc.Result,
		}).Debug("Write completed")
		return bgapi.CheckResult("attribute_write", pc.Result)
	}
}

// isResult reports whether err is a result code reported by the module.
func isResult(err error) bool {
	var re *bgapi.ResultError
	return errors.As(err, &re)
}
