package device

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/srg/bgatt/internal/bgapi"
	"github.com/srg/bgatt/internal/profile"
)

// DiscoverProfile enumerates services, characteristics and descriptors of the
// connected peripheral into the profile. It starts from an empty tree. On failure the
// tree is reset and a *DiscoveryError is returned; run it again to retry.
func (c *Central) DiscoverProfile(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dev.Reset()
	c.logger.WithFields(logrus.Fields{
		"mac":        c.dev.MAC.String(),
		"connection": c.dev.ConnectionHandle,
	}).Info("Discovering profile...")

	if err := c.discoverServices(ctx); err != nil {
		return c.discoveryFailed(PhaseServices, err)
	}
	if err := c.discoverCharacteristics(ctx); err != nil {
		return c.discoveryFailed(PhaseCharacteristics, err)
	}
	if err := c.discoverDescriptors(ctx); err != nil {
		return c.discoveryFailed(PhaseDescriptors, err)
	}

	services, chars, descs := c.dev.Counts()
	c.logger.WithFields(logrus.Fields{
		"services":        services,
		"characteristics": chars,
		"descriptors":     descs,
	}).Info("Profile discovered")

	if c.logger.IsLevelEnabled(logrus.DebugLevel) {
		var sb strings.Builder
		_ = c.dev.Dump(&sb, profile.DumpOptions{})
		c.logger.Debugf("Profile:\n%s", sb.String())
	}
	return nil
}

func (c *Central) discoveryFailed(phase Phase, err error) error {
	c.dev.Reset()
	c.logger.WithFields(logrus.Fields{
		"phase": phase,
		"error": err,
	}).Error("Profile discovery failed, profile reset")
	return &DiscoveryError{Phase: phase, Err: err}
}

// discoverServices is phase A: one read_by_group_type over the whole handle range.
func (c *Central) discoverServices(ctx context.Context) error {
	conn := c.dev.ConnectionHandle
	if err := c.command(ctx, "read_by_group_type", bgapi.DiscoverServices(conn)); err != nil {
		return err
	}

	for {
		evt, err := c.nextEvent(ctx)
		if err != nil {
			return err
		}

		switch {
		case evt.Is(bgapi.ClassAttClient, bgapi.EvtAttClientGroupFound):
			g, err := bgapi.ParseGroupFound(evt)
			if err != nil {
				c.logger.WithError(err).Warn("Skipping malformed group found event")
				continue
			}
			c.dev.AppendService(profile.Service{
				StartGroupHandle: g.Start,
				EndGroupHandle:   g.End,
				UUID16:           g.UUID16,
				UUID128:          g.UUID128,
			})
			c.logger.WithFields(logrus.Fields{
				"start":   g.Start,
				"end":     g.End,
				"service": g.UUID128.ShortString(),
			}).Debug("Service found")

		case evt.Is(bgapi.ClassAttClient, bgapi.EvtAttClientProcedureDone):
			pc, err := bgapi.ParseProcedureCompleted(evt)
			if err == nil && pc.Result != bgapi.ResultSuccess && pc.Result != bgapi.ResultAttributeNotFound {
				c.logger.WithField("error", bgapi.CheckResult("read_by_group_type", pc.Result)).Warn("Service discovery completed with error")
			}
			return nil

		default:
			c.logger.WithField("frame", evt.String()).Debug("Ignoring event during service discovery")
		}
	}
}

// discoverCharacteristics is phase B: one read_by_type per service.
func (c *Central) discoverCharacteristics(ctx context.Context) error {
	conn := c.dev.ConnectionHandle

	for i := range c.dev.Services {
		svc := &c.dev.Services[i]
		log := c.logger.WithField("service", svc.UUID128.ShortString())

		err := c.command(ctx, "read_by_type", bgapi.DiscoverCharacteristics(conn, svc.StartGroupHandle, svc.EndGroupHandle))
		if err != nil {
			if isResult(err) {
				// single handle services make the range empty and the module refuses it
				log.WithError(err).Info("No characteristics in service")
				continue
			}
			return err
		}

		if err := c.collectCharacteristics(ctx, svc, log); err != nil {
			return err
		}
	}
	return nil
}

func (c *Central) collectCharacteristics(ctx context.Context, svc *profile.Service, log *logrus.Entry) error {
	for {
		evt, err := c.nextEvent(ctx)
		if err != nil {
			return err
		}
		if !evt.Is(bgapi.ClassAttClient, bgapi.EvtAttClientAttributeValue) {
			if !evt.Is(bgapi.ClassAttClient, bgapi.EvtAttClientProcedureDone) {
				log.WithField("frame", evt.String()).Warn("Unexpected event ended characteristic discovery")
			}
			return nil
		}

		decl, err := bgapi.ParseCharacteristicDeclaration(evt)
		if err != nil {
			log.WithError(err).Warn("Skipping malformed characteristic declaration")
			continue
		}
		svc.AppendCharacteristic(profile.Characteristic{
			StartHandle: decl.StartHandle,
			ValueHandle: decl.ValueHandle,
			Properties:  decl.Properties,
			UUID16:      decl.UUID16,
			UUID128:     decl.UUID128,
		})
		log.WithFields(logrus.Fields{
			"handle":         decl.StartHandle,
			"value_handle":   decl.ValueHandle,
			"characteristic": decl.UUID128.ShortString(),
		}).Debug("Characteristic found")
	}
}

// discoverDescriptors is phase C: one find_information per handle, within the range
// of the characteristic's scan strategy.
func (c *Central) discoverDescriptors(ctx context.Context) error {
	for i := range c.dev.Services {
		svc := &c.dev.Services[i]
		for j := range svc.Characteristics {
			if err := c.scanDescriptors(ctx, svc, j); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Central) scanDescriptors(ctx context.Context, svc *profile.Service, idx int) error {
	st := chooseStrategy(svc, idx)
	ch := &svc.Characteristics[idx]
	log := c.logger.WithFields(logrus.Fields{
		"characteristic": ch.UUID128.ShortString(),
		"strategy":       st.kind.String(),
	})
	if st.empty() {
		log.Debug("No descriptor handles to scan")
		return nil
	}

	for h := st.first; ; h++ {
		found, err := c.findInformation(ctx, h)
		if err != nil {
			return err
		}

		if st.kind == unboundedUntilComplete && endsGroup(found) {
			svc.EndGroupHandle = h - 1
			log.WithField("end", svc.EndGroupHandle).Debug("Service end resolved")
			return nil
		}
		for _, fi := range found {
			ch.AppendDescriptor(profile.Descriptor{Handle: fi.Handle, UUID16: fi.UUID16})
			log.WithFields(logrus.Fields{
				"handle":     fi.Handle,
				"descriptor": fi.UUID16,
			}).Debug("Descriptor found")
		}

		if h == st.last {
			return nil
		}
	}
}

// endsGroup reports whether a find information answer marks the end of an open ended
// service: nothing there, or the declaration of the next service.
func endsGroup(found []bgapi.FindInformationFound) bool {
	if len(found) == 0 {
		return true
	}
	for _, fi := range found {
		if fi.UUID16 == bgapi.UUIDPrimaryService || fi.UUID16 == bgapi.UUIDSecondaryService {
			return true
		}
	}
	return false
}

// findInformation runs one find_information exchange for a single handle. A refused
// request counts as no information found.
func (c *Central) findInformation(ctx context.Context, h uint16) ([]bgapi.FindInformationFound, error) {
	conn := c.dev.ConnectionHandle
	if err := c.command(ctx, "find_information", bgapi.FindInformation(conn, h, h)); err != nil {
		if isResult(err) {
			c.logger.WithFields(logrus.Fields{
				"handle": h,
				"error":  err,
			}).Debug("Find information refused")
			return nil, nil
		}
		return nil, err
	}

	var found []bgapi.FindInformationFound
	for {
		evt, err := c.nextEvent(ctx)
		if err != nil {
			return nil, err
		}
		switch {
		case evt.Is(bgapi.ClassAttClient, bgapi.EvtAttClientFindInfoFound):
			fi, err := bgapi.ParseFindInformationFound(evt)
			if err != nil {
				c.logger.WithError(err).Warn("Skipping malformed find information event")
				continue
			}
			found = append(found, fi)
		case evt.Is(bgapi.ClassAttClient, bgapi.EvtAttClientProcedureDone):
			return found, nil
		default:
			c.logger.WithField("frame", evt.String()).Debug("Ignoring event during descriptor discovery")
		}
	}
}
