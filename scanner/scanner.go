package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"

	"github.com/srg/bgatt/internal/advdata"
	"github.com/srg/bgatt/internal/bgapi"
	"github.com/srg/bgatt/internal/profile"
	"github.com/srg/bgatt/internal/ringchan"
	"github.com/srg/bgatt/internal/transport"
)

// ProgressCallback is called when the scan phase changes
type ProgressCallback func(phase string)

// AdvertiserEventType marks if the advertiser was newly discovered or updated
type AdvertiserEventType int

const (
	EventNew AdvertiserEventType = iota
	EventUpdated
)

type AdvertiserEvent struct {
	Type       AdvertiserEventType
	Advertiser Advertiser
}

// Advertiser is the latest scan response seen from one address.
type Advertiser struct {
	Address     profile.MAC     `json:"address"`
	AddressType byte            `json:"address_type"`
	Name        string          `json:"name,omitempty"`
	RSSI        int8            `json:"rssi"`
	Fields      []advdata.Field `json:"-"`
	Data        []byte          `json:"data"`
	Seen        int             `json:"seen"`
	LastSeen    time.Time       `json:"last_seen"`
}

// Scanner collects advertisers reported by gap_discover.
type Scanner struct {
	tr          transport.Transport
	advertisers *hashmap.Map[string, *Advertiser]
	events      *ringchan.RingChannel[AdvertiserEvent]
	logger      *logrus.Logger
}

// ScanOptions configures scanning behavior
type ScanOptions struct {
	Duration time.Duration
	// NameFilter keeps only advertisers whose complete local name equals it.
	NameFilter string
	// StopOnMatch ends the scan at the first advertiser that passes the filters.
	StopOnMatch bool
	AllowList   []string
	BlockList   []string
	Mode        byte
	Active      bool
	Interval    uint16 // units of 625us
	Window      uint16 // units of 625us
}

// DefaultScanOptions returns default scanning options
func DefaultScanOptions() *ScanOptions {
	return &ScanOptions{
		Duration: 10 * time.Second,
		Mode:     bgapi.GapDiscoverGeneric,
		Active:   true,
		Interval: 0x4B,
		Window:   0x32,
	}
}

// NewScanner creates a scanner on an open transport
func NewScanner(tr transport.Transport, logger *logrus.Logger) *Scanner {
	if logger == nil {
		logger = logrus.New()
	}

	return &Scanner{
		tr:     tr,
		events: ringchan.New[AdvertiserEvent](100),
		logger: logger,
	}
}

// Scan runs gap_discover until the duration elapses, ctx is done or, with StopOnMatch,
// the first match arrives. The procedure is always ended with gap_end_procedure.
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions, progressCallback ProgressCallback) (map[string]Advertiser, error) {
	s.advertisers = hashmap.New[string, *Advertiser]()

	if opts == nil {
		opts = DefaultScanOptions()
	}
	if progressCallback == nil {
		progressCallback = func(string) {} // No-op callback
	}

	s.logger.WithFields(logrus.Fields{
		"duration": opts.Duration,
		"name":     opts.NameFilter,
	}).Info("Starting BLE scan...")

	if opts.Interval != 0 && opts.Window != 0 {
		if err := s.command(ctx, "gap_set_scan_parameters", bgapi.GapSetScanParameters(opts.Interval, opts.Window, opts.Active)); err != nil {
			return nil, err
		}
	}
	if err := s.command(ctx, "gap_discover", bgapi.GapDiscover(opts.Mode)); err != nil {
		return nil, err
	}

	progressCallback("Scanning")

	scanCtx, cancel := context.WithTimeout(ctx, opts.Duration)
	err := s.collect(scanCtx, opts)
	cancel()

	// ctx may already be done, the module still has to leave the discover state
	stopCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer stop()
	if endErr := s.command(stopCtx, "gap_end_procedure", bgapi.GapEndProcedure()); endErr != nil {
		s.logger.WithError(endErr).Warn("Failed to end scan procedure")
	}

	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	s.logger.WithField("device_count", s.advertisers.Len()).Info("BLE scan completed")

	progressCallback("Processing results")

	return s.Advertisers(), nil
}

func (s *Scanner) collect(ctx context.Context, opts *ScanOptions) error {
	for {
		p, ok, err := s.tr.WaitEvent(ctx, time.Until(deadline(ctx)))
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if !ok {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		if !p.Is(bgapi.ClassGap, bgapi.EvtGapScanResponse) {
			s.logger.WithField("frame", p.String()).Debug("Ignoring event while scanning")
			continue
		}

		sr, err := bgapi.ParseScanResponse(p)
		if err != nil {
			s.logger.WithError(err).Warn("Dropping malformed scan response")
			continue
		}
		if s.handleScanResponse(sr, opts) && opts.StopOnMatch {
			return nil
		}
	}
}

func deadline(ctx context.Context) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(time.Second)
}

// handleScanResponse updates existing or adds a new advertiser. It reports whether the
// response passed the filters.
func (s *Scanner) handleScanResponse(sr bgapi.ScanResponse, opts *ScanOptions) bool {
	addr := profile.MAC(sr.Sender)
	key := addr.String()

	adv, existing := s.advertisers.Get(key)
	if !existing {
		if !shouldInclude(sr, opts) {
			return false
		}
		adv, existing = s.advertisers.GetOrInsert(key, &Advertiser{Address: addr, AddressType: sr.AddressType})
	}

	adv.RSSI = sr.RSSI
	adv.Data = sr.Data
	adv.Fields = advdata.Parse(sr.Data)
	if name, ok := advdata.LocalName(sr.Data); ok {
		adv.Name = name
	}
	adv.Seen++
	adv.LastSeen = time.Now()

	event := AdvertiserEvent{Advertiser: *adv}
	if existing {
		event.Type = EventUpdated
	} else {
		s.logger.WithFields(logrus.Fields{
			"device":  adv.Name,
			"address": key,
			"rssi":    adv.RSSI,
		}).Info("Discovered new device")
		event.Type = EventNew
	}

	s.events.Send(event)
	return true
}

// shouldInclude applies the allow/block and name filters
func shouldInclude(sr bgapi.ScanResponse, opts *ScanOptions) bool {
	addr := profile.MAC(sr.Sender)

	for _, blocked := range opts.BlockList {
		if m, err := profile.ParseMAC(blocked); err == nil && m == addr {
			return false
		}
	}

	if len(opts.AllowList) > 0 {
		allowed := false
		for _, a := range opts.AllowList {
			if m, err := profile.ParseMAC(a); err == nil && m == addr {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	if opts.NameFilter != "" && !advdata.MatchName(sr.Data, opts.NameFilter) {
		return false
	}

	return true
}

// Advertisers returns a snapshot of the advertisers seen by the last scan
func (s *Scanner) Advertisers() map[string]Advertiser {
	out := make(map[string]Advertiser)
	if s.advertisers == nil {
		return out
	}
	s.advertisers.Range(func(key string, value *Advertiser) bool {
		out[key] = *value
		return true
	})
	return out
}

// Events return a read-only channel of advertiser events
func (s *Scanner) Events() <-chan AdvertiserEvent {
	return s.events.C()
}

// Close closes the Events channel. Events already queued stay readable; the scanner
// must not be used afterwards.
func (s *Scanner) Close() {
	s.events.Close()
}

func (s *Scanner) command(ctx context.Context, op string, cmd bgapi.Packet) error {
	if err := s.tr.Send(cmd); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	reply, err := s.tr.ReadSyncReply(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	code, err := bgapi.ParseResult(reply)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return bgapi.CheckResult(op, code)
}
