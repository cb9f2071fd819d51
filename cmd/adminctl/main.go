package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "adminctl",
		Short:         "Manage an admin panel backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("api-url", "", "Admin API base URL")
	root.PersistentFlags().String("token", "", "Bearer token for Admin API")
	root.PersistentFlags().String("tenant", "", "Tenant sent as X-Tenant-ID")
	root.PersistentFlags().String("profile", "", "Profile name in config (overrides active)")
	root.PersistentFlags().String("output", "table", "Output format (table|json)")

	root.AddCommand(newGenCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newRecordsCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newUserCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newLoginCmd())
	root.AddCommand(newConfigCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
