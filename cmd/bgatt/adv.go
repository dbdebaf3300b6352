package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/srg/bgatt/internal/advdata"
)

// advCmd represents the adv command
var advCmd = &cobra.Command{
	Use:   "adv <hex>",
	Short: "Decode an advertising data payload",
	Long: `Decodes advertising data records (length, type, value) from a hex string, as
found in a scan response. No radio module is needed.

The payload is the sequence of AD records. With --prefixed the first byte is the
total length, as the module reports it in gap_scan_response.

Examples:
  bgatt adv 020106 0e09 5468756e6465722053656e7365
  bgatt adv 12020106 0e095468756e6465722053656e7365 --prefixed --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdv,
}

var (
	advPrefixed bool
	advJSON     bool
)

func init() {
	advCmd.Flags().BoolVar(&advPrefixed, "prefixed", false, "Payload starts with its total length byte")
	advCmd.Flags().BoolVar(&advJSON, "json", false, "Output as JSON")
}

// advRecord is one decoded AD record.
type advRecord struct {
	Type  byte   `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

func runAdv(cmd *cobra.Command, args []string) error {
	var raw []byte
	for _, arg := range args {
		part, err := parseData(arg, true)
		if err != nil {
			return err
		}
		raw = append(raw, part...)
	}

	buf := raw
	if !advPrefixed {
		if len(raw) > 0xFF {
			return fmt.Errorf("payload of %d bytes does not fit a length byte", len(raw))
		}
		buf = append([]byte{byte(len(raw))}, raw...)
	}

	cmd.SilenceUsage = true
	return writeAdvRecords(cmd.OutOrStdout(), buf, advJSON)
}

func writeAdvRecords(w io.Writer, buf []byte, asJSON bool) error {
	fields := advdata.Parse(buf)
	records := make([]advRecord, 0, len(fields))
	for _, f := range fields {
		records = append(records, advRecord{Type: f.Type, Name: f.TypeName(), Value: hex.EncodeToString(f.Value)})
	}
	name, hasName := advdata.LocalName(buf)

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Name    string      `json:"name,omitempty"`
			Records []advRecord `json:"records"`
		}{name, records})
	}

	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No well-formed records")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tNAME\tVALUE")
	for i, r := range records {
		fmt.Fprintf(tw, "0x%02x\t%s\t%s\n", r.Type, r.Name, formatValue(fields[i].Value, false))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if hasName {
		_, err := fmt.Fprintf(w, "Local name: %s\n", name)
		return err
	}
	return nil
}
