package device

import (
	"fmt"

	"github.com/srg/bgatt/internal/bgapi"
	"github.com/srg/bgatt/internal/profile"
)

type scanKind int

const (
	// boundedByNextCharacteristic scans value+1 .. next.start-1.
	boundedByNextCharacteristic scanKind = iota
	// boundedByServiceEnd scans value+1 .. service end, for the last characteristic of
	// a service with a known end.
	boundedByServiceEnd
	// unboundedUntilComplete scans from value+1 until a handle reports no information,
	// for the last characteristic of a service reported with end 0xFFFF.
	unboundedUntilComplete
)

func (k scanKind) String() string {
	switch k {
	case boundedByNextCharacteristic:
		return "next-characteristic"
	case boundedByServiceEnd:
		return "service-end"
	case unboundedUntilComplete:
		return "until-complete"
	}
	return fmt.Sprintf("scanKind(%d)", int(k))
}

// scanStrategy is the handle range the descriptor scan of one characteristic may
// request. first > last means there is nothing to scan.
type scanStrategy struct {
	kind  scanKind
	first uint16
	last  uint16
}

// chooseStrategy picks the strategy for svc.Characteristics[idx].
func chooseStrategy(svc *profile.Service, idx int) scanStrategy {
	c := svc.Characteristics[idx]
	first := c.ValueHandle + 1

	if idx+1 < len(svc.Characteristics) {
		next := svc.Characteristics[idx+1]
		return scanStrategy{kind: boundedByNextCharacteristic, first: first, last: next.StartHandle - 1}
	}
	if svc.OpenEnded() {
		return scanStrategy{kind: unboundedUntilComplete, first: first, last: bgapi.LastHandle}
	}
	return scanStrategy{kind: boundedByServiceEnd, first: first, last: svc.EndGroupHandle}
}

// empty reports whether the strategy has no handle to request. A value handle of
// 0xFFFF wraps first to 0.
func (s scanStrategy) empty() bool {
	return s.first == 0 || s.first > s.last
}
