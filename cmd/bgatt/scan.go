package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/srg/bgatt/internal/advdata"
	"github.com/srg/bgatt/pkg/config"
	"github.com/srg/bgatt/scanner"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for advertising devices",
	Long: `Runs a GAP discovery on the radio module and lists the devices that advertised,
with their address, RSSI and local name.

Examples:
  # Five second scan
  bgatt scan --duration 5s

  # Stop at the first device named "Thunder Sense"
  bgatt scan --name "Thunder Sense" --stop-on-match

  # Print devices as they are found
  bgatt scan --watch`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var (
	scanDuration    time.Duration
	scanFormat      string
	scanName        string
	scanStopOnMatch bool
	scanAllowList   []string
	scanBlockList   []string
	scanPassive     bool
	scanWatch       bool
)

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 0, "Scan duration (default from config, 10s)")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "", "Output format (table, json); default from config")
	scanCmd.Flags().StringVar(&scanName, "name", "", "Only show devices whose complete local name matches")
	scanCmd.Flags().BoolVar(&scanStopOnMatch, "stop-on-match", false, "End the scan at the first matching device")
	scanCmd.Flags().StringSliceVar(&scanAllowList, "allow", nil, "Only show devices with these addresses")
	scanCmd.Flags().StringSliceVar(&scanBlockList, "block", nil, "Hide devices with these addresses")
	scanCmd.Flags().BoolVar(&scanPassive, "passive", false, "Passive scan: no scan requests are sent")
	scanCmd.Flags().BoolVarP(&scanWatch, "watch", "w", false, "Print devices as they are discovered")
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanFormat != "" && scanFormat != "table" && scanFormat != "json" {
		return fmt.Errorf("invalid format '%s': must be one of [table json]", scanFormat)
	}
	for _, addr := range append(append([]string{}, scanAllowList...), scanBlockList...) {
		if err := validateAddress(addr); err != nil {
			return err
		}
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	format := scanFormat
	if format == "" {
		format = "table"
		if s.cfg.OutputFormat == config.OutputJSON {
			format = "json"
		}
	}

	opts := scanner.DefaultScanOptions()
	opts.Duration = s.cfg.ScanTimeout
	if scanDuration > 0 {
		opts.Duration = scanDuration
	}
	opts.NameFilter = scanName
	opts.StopOnMatch = scanStopOnMatch
	opts.AllowList = scanAllowList
	opts.BlockList = scanBlockList
	opts.Active = !scanPassive

	ctx, stop := signalContext(cmd)
	defer stop()

	sc := scanner.NewScanner(s.tr, s.logger)
	out := cmd.OutOrStdout()

	var progress *ProgressPrinter
	done := make(chan struct{})
	if scanWatch {
		go func() {
			defer close(done)
			for evt := range sc.Events() {
				if evt.Type == scanner.EventNew {
					fmt.Fprintf(out, "+ %s %4d dBm %s\n", evt.Advertiser.Address, evt.Advertiser.RSSI, displayName(evt.Advertiser.Name))
				}
			}
		}()
	} else {
		close(done)
		progress = NewCountdownProgressPrinter("Scanning", "Starting", opts.Duration, "Processing results")
		progress.Start()
		defer progress.Stop()
	}

	var callback scanner.ProgressCallback
	if progress != nil {
		callback = progress.Callback()
	}
	found, err := sc.Scan(ctx, opts, callback)
	sc.Close()
	<-done
	if progress != nil {
		progress.Stop()
	}
	if err != nil {
		return err
	}

	if scanWatch && format == "table" {
		return nil
	}
	return writeAdvertisers(out, found, format)
}

// sortedAdvertisers orders by RSSI, strongest first, then address.
func sortedAdvertisers(found map[string]scanner.Advertiser) []scanner.Advertiser {
	list := make([]scanner.Advertiser, 0, len(found))
	for _, a := range found {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].RSSI != list[j].RSSI {
			return list[i].RSSI > list[j].RSSI
		}
		return list[i].Address.String() < list[j].Address.String()
	})
	return list
}

func writeAdvertisers(w io.Writer, found map[string]scanner.Advertiser, format string) error {
	list := sortedAdvertisers(found)

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No devices found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tTYPE\tRSSI\tSEEN\tNAME\tDATA")
	for _, a := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			a.Address, addressType(a.AddressType), a.RSSI, a.Seen, displayName(a.Name), fieldSummary(a))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d device(s) found\n", len(list))
	return err
}

func addressType(t byte) string {
	if t == 0 {
		return "public"
	}
	return "random"
}

func displayName(name string) string {
	if name == "" {
		return "(unknown)"
	}
	return name
}

// fieldSummary lists the advertised AD types other than the name.
func fieldSummary(a scanner.Advertiser) string {
	var parts []string
	for _, f := range a.Fields {
		if f.Type == advdata.TypeCompleteName || f.Type == advdata.TypeShortName {
			continue
		}
		parts = append(parts, f.TypeName())
	}
	return strings.Join(parts, ", ")
}
