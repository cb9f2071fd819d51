package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/faciam-dev/gadmin/pkg/client"
)

func outputFormat(cmd *cobra.Command) string {
	f, _ := cmd.Root().PersistentFlags().GetString("output")
	return f
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// printRecords renders records as a table with the id first and the other
// columns sorted by name.
func printRecords(cmd *cobra.Command, recs []client.Record) error {
	w := cmd.OutOrStdout()
	if outputFormat(cmd) == "json" {
		return printJSON(w, recs)
	}
	cols := map[string]bool{}
	for _, r := range recs {
		for k := range r.Values {
			cols[k] = true
		}
	}
	names := make([]string, 0, len(cols))
	for k := range cols {
		names = append(names, k)
	}
	sort.Strings(names)

	tw := tablewriter.NewWriter(w)
	tw.SetHeader(append([]string{"ID"}, names...))
	for _, r := range recs {
		row := []string{r.ID}
		for _, n := range names {
			v := r.Values[n]
			if l, ok := r.Labels[n]; ok {
				v = l
			}
			row = append(row, v)
		}
		tw.Append(row)
	}
	tw.Render()
	return nil
}
