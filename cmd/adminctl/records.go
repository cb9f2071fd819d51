package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/faciam-dev/gadmin/pkg/client"
)

func newRecordsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "records", Short: "Browse and delete records through the API"}
	cmd.AddCommand(newRecordsListCmd())
	cmd.AddCommand(newRecordsGetCmd())
	cmd.AddCommand(newRecordsDeleteCmd())
	return cmd
}

// parseFilters turns name=value flags into list filters.
func parseFilters(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("filter %q: want name=value", kv)
		}
		out[name] = value
	}
	return out, nil
}

type listFlags struct {
	page, pageSize int
	search, sortBy string
	desc           bool
	filters        []string
}

func (f *listFlags) add(cmd *cobra.Command, paging bool) {
	if paging {
		cmd.Flags().IntVar(&f.page, "page", 1, "page number")
		cmd.Flags().IntVar(&f.pageSize, "page-size", 0, "records per page (server default when 0)")
	}
	cmd.Flags().StringVar(&f.search, "search", "", "search text")
	cmd.Flags().StringVar(&f.sortBy, "sort", "", "sort field")
	cmd.Flags().BoolVar(&f.desc, "desc", false, "sort descending")
	cmd.Flags().StringArrayVar(&f.filters, "filter", nil, "filter as name=value (repeatable)")
}

func (f *listFlags) options() (client.ListOptions, error) {
	filters, err := parseFilters(f.filters)
	if err != nil {
		return client.ListOptions{}, err
	}
	o := client.ListOptions{Page: f.page, PageSize: f.pageSize, Search: f.search, SortBy: f.sortBy, Filters: filters}
	if f.desc {
		o.SortOrder = "desc"
	}
	return o, nil
}

func newRecordsListCmd() *cobra.Command {
	var lf listFlags
	cmd := &cobra.Command{
		Use:   "list <entity>",
		Short: "List records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			o, err := lf.options()
			if err != nil {
				return err
			}
			page, err := c.List(cmd.Context(), args[0], o)
			if err != nil {
				return err
			}
			if outputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), page)
			}
			if err := printRecords(cmd, page.Records); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "page %d/%d, %d records\n", page.Page, page.TotalPages, page.Total)
			return nil
		},
	}
	lf.add(cmd, true)
	return cmd
}

func newRecordsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <entity> <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			rec, err := c.Get(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printRecords(cmd, []client.Record{*rec})
		},
	}
}

func newRecordsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entity> <id>...",
		Short: "Delete records",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			res, err := c.DeleteMany(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}
			for _, id := range res.Deleted {
				fmt.Fprintf(out, "%s %s\n", color.New(color.FgGreen).Sprint("deleted"), id)
			}
			for _, id := range args[1:] {
				if msg, ok := res.Failed[id]; ok {
					fmt.Fprintf(out, "%s %s: %s\n", color.New(color.FgRed).Sprint("failed"), id, msg)
				}
			}
			if len(res.Failed) > 0 {
				return fmt.Errorf("%d of %d deletes failed", len(res.Failed), len(args)-1)
			}
			return nil
		},
	}
}
