package main

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/faciam-dev/gadmin/pkg/admin"
	"github.com/faciam-dev/gadmin/pkg/session"
	"github.com/faciam-dev/gadmin/pkg/store"
)

// newExportCmd writes a CSV export. With --db it reads the database directly
// using the entity file; otherwise it asks the API.
func newExportCmd() *cobra.Command {
	var (
		db       dbFlags
		lf       listFlags
		entities string
		out      string
	)
	cmd := &cobra.Command{
		Use:   "export <entity>",
		Short: "Export records as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := lf.options()
			if err != nil {
				return err
			}
			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(filepath.Clean(out))
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if db.DSN == "" {
				c, err := newClient(cmd)
				if err != nil {
					return err
				}
				return c.Export(cmd.Context(), args[0], o, w)
			}

			tenant, _ := cmd.Root().PersistentFlags().GetString("tenant")
			driver, err := db.driver()
			if err != nil {
				return err
			}
			reg, err := admin.LoadRegistry(entities)
			if err != nil {
				return err
			}
			conn, err := sql.Open(driver, db.DSN)
			if err != nil {
				return err
			}
			defer conn.Close()
			svc := admin.New(admin.Config{Registry: reg, Store: store.NewSQL(conn, driver)})
			err = svc.ExportCSV(cmd.Context(), session.Session{Tenant: tenant}, args[0], admin.ListParams{
				Search:    o.Search,
				SortBy:    o.SortBy,
				SortOrder: admin.SortOrder(o.SortOrder),
				Filters:   o.Filters,
				Tenant:    tenant,
			}, w)
			if err != nil {
				return fmt.Errorf("export %s: %w", args[0], err)
			}
			return nil
		},
	}
	db.add(cmd)
	lf.add(cmd, false)
	cmd.Flags().StringVarP(&entities, "file", "f", "entities.yaml", "entity definition file (with --db)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (stdout when empty)")
	return cmd
}
