//go:build test

//go:generate go run github.com/srgg/testify/depend/cmd/dependgen

package scanner_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/srg/bgatt/internal/bgapi"
	"github.com/srg/bgatt/internal/testutils"
	"github.com/srg/bgatt/scanner"
	"github.com/srgg/testify/depend"
)

const (
	thunderAddr = "aa:bb:cc:dd:ee:ff"
	tagAddr     = "11:22:33:44:55:66"
	beaconAddr  = "99:88:77:66:55:44"
)

type ScannerTestSuite struct {
	testutils.SimulatedModuleSuite
}

func (suite *ScannerTestSuite) SetupTest() {
	suite.WithPeripheral().
		WithName("Thunder Sense").
		WithAddress(thunderAddr).
		WithService("180F").
		WithCharacteristic("2A19", "read", []byte{50}).
		WithAdvertiser("Tag", tagAddr, -67).
		WithAdvertiser("", beaconAddr, -80)

	suite.SimulatedModuleSuite.SetupTest()
}

func (suite *ScannerTestSuite) scan(opts *scanner.ScanOptions) map[string]scanner.Advertiser {
	s := scanner.NewScanner(suite.Transport, suite.Logger)
	found, err := s.Scan(context.Background(), opts, nil)
	suite.Require().NoError(err, "scan MUST succeed")
	return found
}

func options(mutate func(*scanner.ScanOptions)) *scanner.ScanOptions {
	opts := scanner.DefaultScanOptions()
	opts.Duration = 150 * time.Millisecond
	if mutate != nil {
		mutate(opts)
	}
	return opts
}

func addresses(found map[string]scanner.Advertiser) []string {
	out := make([]string, 0, len(found))
	for k := range found {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (suite *ScannerTestSuite) TestDefaultScanOptions() {
	opts := scanner.DefaultScanOptions()

	suite.Equal(10*time.Second, opts.Duration)
	suite.Equal(byte(bgapi.GapDiscoverGeneric), opts.Mode)
	suite.Empty(opts.NameFilter)
	suite.Nil(opts.AllowList)
	suite.Nil(opts.BlockList)
}

func (suite *ScannerTestSuite) TestScannerFiltering() {
	// GOAL: Verify filters decide which advertisers enter the result
	//
	// TEST SCENARIO: The module reports three advertisers → each filter combination keeps exactly the expected addresses

	tests := []struct {
		name     string
		mutate   func(*scanner.ScanOptions)
		expected []string
	}{
		{
			name:     "includes all advertisers with no filters",
			expected: []string{tagAddr, beaconAddr, thunderAddr},
		},
		{
			name:     "excludes advertiser on block list",
			mutate:   func(o *scanner.ScanOptions) { o.BlockList = []string{"AA:BB:CC:DD:EE:FF"} },
			expected: []string{tagAddr, beaconAddr},
		},
		{
			name:     "includes advertiser on allow list",
			mutate:   func(o *scanner.ScanOptions) { o.AllowList = []string{tagAddr} },
			expected: []string{tagAddr},
		},
		{
			name:     "name filter keeps the exact complete name",
			mutate:   func(o *scanner.ScanOptions) { o.NameFilter = "Thunder Sense" },
			expected: []string{thunderAddr},
		},
		{
			name:     "name filter rejects a prefix",
			mutate:   func(o *scanner.ScanOptions) { o.NameFilter = "Thunder" },
			expected: []string{},
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.TearDownTest()
			suite.SetupTest()

			found := suite.scan(options(tt.mutate))
			suite.Equal(tt.expected, addresses(found), "scan result MUST match the filters")
		})
	}
}

func (suite *ScannerTestSuite) TestAdvertiserDetails() {
	found := suite.scan(options(nil))

	adv, ok := found[thunderAddr]
	suite.Require().True(ok, "peripheral MUST be reported")
	suite.Equal("Thunder Sense", adv.Name)
	suite.Equal(int8(-60), adv.RSSI, "default simulator RSSI MUST be reported")
	suite.Equal(1, adv.Seen)
	suite.NotEmpty(adv.Fields, "AD fields MUST be decoded")

	suite.Empty(found[beaconAddr].Name, "advertiser without a name MUST keep an empty name")
}

func (suite *ScannerTestSuite) TestScanEndsProcedure() {
	// GOAL: Verify the discover procedure is always closed
	//
	// TEST SCENARIO: Scan finishes → the last command the module saw is gap_end_procedure, so a second scan is accepted

	suite.scan(options(nil))

	cmds := suite.Sim.Commands()
	suite.Require().NotEmpty(cmds)
	last := cmds[len(cmds)-1]
	suite.Equal(byte(bgapi.ClassGap), last.Class())
	suite.Equal(byte(bgapi.CmdGapEndProcedure), last.ID(), "scan MUST end with gap_end_procedure")

	found := suite.scan(options(nil))
	suite.Len(found, 3, "second scan MUST be accepted by the module")
}

func (suite *ScannerTestSuite) TestStopOnMatch() {
	start := time.Now()
	found := suite.scan(options(func(o *scanner.ScanOptions) {
		o.Duration = 5 * time.Second
		o.NameFilter = "Tag"
		o.StopOnMatch = true
	}))

	suite.Equal([]string{tagAddr}, addresses(found))
	suite.Less(time.Since(start), 2*time.Second, "scan MUST stop at the first match")
}

func (suite *ScannerTestSuite) TestCancelledScan() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := scanner.NewScanner(suite.Transport, suite.Logger)
	_, err := s.Scan(ctx, options(nil), nil)
	suite.ErrorIs(err, context.Canceled)
}

func (suite *ScannerTestSuite) TestEvents() {
	s := scanner.NewScanner(suite.Transport, suite.Logger)
	_, err := s.Scan(context.Background(), options(nil), nil)
	suite.Require().NoError(err)

	seen := map[string]scanner.AdvertiserEventType{}
	for len(seen) < 3 {
		select {
		case evt := <-s.Events():
			seen[evt.Advertiser.Address.String()] = evt.Type
		case <-time.After(time.Second):
			suite.FailNow("missing advertiser events", "%v", seen)
		}
	}
	suite.Equal(scanner.EventNew, seen[thunderAddr], "first sighting MUST be reported as new")
}

func TestScannerTestSuite(t *testing.T) {
	depend.RunSuite(t, new(ScannerTestSuite))
}
