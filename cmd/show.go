package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/koizuka/orderscraper"
	"github.com/spf13/cobra"
)

func newShowCommand() *cobra.Command {
	var limit int
	var charset string
	showCmd := &cobra.Command{
		Use:   "show FILE",
		Short: "Print a saved orders file (CSV or JSON) as a table.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := orderscraper.ReadRecords(args[0], charset)
			if err != nil {
				return err
			}
			renderRecords(cmd, records, limit)
			return nil
		},
	}
	showCmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most this many rows (0 = all)")
	showCmd.Flags().StringVar(&charset, "encoding", "utf-8", "charset of a CSV file")
	return showCmd
}

// columnOrder lists keys in the order they first appear across records.
func columnOrder(records []orderscraper.Record) []string {
	seen := map[string]bool{}
	var columns []string
	for _, record := range records {
		for _, key := range record.Keys() {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}
	return columns
}

func renderRecords(cmd *cobra.Command, records []orderscraper.Record, limit int) {
	columns := columnOrder(records)

	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.SetStyle(table.StyleLight)

	header := table.Row{"#"}
	for _, column := range columns {
		header = append(header, column)
	}
	tw.AppendHeader(header)

	shown := records
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	for i, record := range shown {
		row := table.Row{i + 1}
		for _, column := range columns {
			value, _ := record.Get(column)
			row = append(row, value)
		}
		tw.AppendRow(row)
	}
	tw.AppendFooter(table.Row{"", fmt.Sprintf("%d of %d rows", len(shown), len(records))})
	tw.Render()
}
