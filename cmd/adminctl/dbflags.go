package main

import (
	"github.com/spf13/cobra"

	pkgutil "github.com/faciam-dev/gadmin/pkg/util"
)

// dbFlags defines the flags of commands that talk to the database directly.
type dbFlags struct {
	Driver      string
	DSN         string
	TablePrefix string
}

func (f *dbFlags) add(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.DSN, "db", pkgutil.GetEnv("DB_DSN", ""), "database DSN")
	cmd.Flags().StringVar(&f.Driver, "driver", "", "database driver (detected from the DSN when empty)")
	cmd.Flags().StringVar(&f.TablePrefix, "table-prefix", pkgutil.GetEnv("TABLE_PREFIX", "admin_"), "table name prefix")
}

func (f *dbFlags) driver() (string, error) {
	if f.Driver != "" {
		return f.Driver, nil
	}
	return pkgutil.DetectDriver(f.DSN)
}

func (f *dbFlags) addPersistent(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.DSN, "db", pkgutil.GetEnv("DB_DSN", ""), "database DSN")
	cmd.PersistentFlags().StringVar(&f.Driver, "driver", "", "database driver (detected from the DSN when empty)")
	cmd.PersistentFlags().StringVar(&f.TablePrefix, "table-prefix", pkgutil.GetEnv("TABLE_PREFIX", "admin_"), "table name prefix")
}
