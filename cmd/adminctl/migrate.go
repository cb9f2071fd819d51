package main

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/faciam-dev/gadmin/pkg/migrator"
)

func newMigrateCmd() *cobra.Command {
	var flags dbFlags
	cmd := &cobra.Command{Use: "migrate", Short: "Manage the admin tables"}
	flags.addPersistent(cmd)
	cmd.AddCommand(newMigrateUpCmd(&flags))
	cmd.AddCommand(newMigrateDownCmd(&flags))
	cmd.AddCommand(newMigrateStatusCmd(&flags))
	return cmd
}

func openMigrator(f *dbFlags) (*migrator.Migrator, *sql.DB, error) {
	driver, err := f.driver()
	if err != nil {
		return nil, nil, err
	}
	m, err := migrator.New(driver, f.TablePrefix)
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open(driver, f.DSN)
	if err != nil {
		return nil, nil, err
	}
	return m, db, nil
}

func targetArg(args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	v, err := strconv.Atoi(args[0])
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid version %q", args[0])
	}
	return v, nil
}

func newMigrateUpCmd(flags *dbFlags) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "up [version]",
		Short: "Apply migrations up to version (latest when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := targetArg(args)
			if err != nil {
				return err
			}
			m, db, err := openMigrator(flags)
			if err != nil {
				return err
			}
			defer db.Close()
			cur, err := m.Current(cmd.Context(), db)
			if err != nil {
				return err
			}
			if target == 0 {
				target = m.Latest()
			}
			if dryRun {
				for _, stmt := range m.SQLForRange(cur, target) {
					fmt.Fprintf(cmd.OutOrStdout(), "%s;\n", stmt)
				}
				return nil
			}
			if err := m.Up(cmd.Context(), db, target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %d\n", color.New(color.FgGreen).Sprint("migrated"), max(cur, target))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print SQL without executing")
	return cmd
}

func newMigrateDownCmd(flags *dbFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "down <version>",
		Short: "Roll back to version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := targetArg(args)
			if err != nil {
				return err
			}
			m, db, err := openMigrator(flags)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := m.Down(cmd.Context(), db, target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %d\n", color.New(color.FgYellow).Sprint("rolled back to"), target)
			return nil
		},
	}
}

func newMigrateStatusCmd(flags *dbFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, db, err := openMigrator(flags)
			if err != nil {
				return err
			}
			defer db.Close()
			cur, err := m.Current(cmd.Context(), db)
			if err != nil {
				return err
			}
			for _, mig := range m.Migrations() {
				state := color.New(color.FgYellow).Sprint("pending")
				if mig.Version <= cur {
					state = color.New(color.FgGreen).Sprint("applied")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%04d_%s %s\n", mig.Version, mig.Name, state)
			}
			return nil
		},
	}
}
