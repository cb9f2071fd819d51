package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/gadmin/internal/auth"
	pkgutil "github.com/faciam-dev/gadmin/pkg/util"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage API users in the database"}
	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newUserListCmd())
	return cmd
}

func openUsers(f dbFlags) (*auth.UserRepo, func() error, error) {
	driver, err := f.driver()
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open(driver, f.DSN)
	if err != nil {
		return nil, nil, err
	}
	return &auth.UserRepo{DB: db, Dialect: pkgutil.DialectFromDriver(driver), TablePrefix: f.TablePrefix}, db.Close, nil
}

func newUserCreateCmd() *cobra.Command {
	var (
		flags                    dbFlags
		username, password, role string
		tenant                   string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				p, err := readSecret(cmd, "Password")
				if err != nil {
					return err
				}
				password = p
			}
			if password == "" {
				return fmt.Errorf("password must not be empty")
			}
			repo, closeDB, err := openUsers(flags)
			if err != nil {
				return err
			}
			defer closeDB()
			u := &auth.User{Username: username, Role: role, TenantID: tenant}
			if err := repo.Create(cmd.Context(), u, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", u.Username, u.ID)
			return nil
		},
	}
	flags.add(cmd)
	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	cmd.Flags().StringVar(&role, "role", "", "comma separated roles")
	cmd.Flags().StringVar(&tenant, "user-tenant", "", "tenant put into the user's tokens")
	mustFlag(cmd, "username")
	mustFlag(cmd, "role")
	return cmd
}

func newUserListCmd() *cobra.Command {
	var flags dbFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeDB, err := openUsers(flags)
			if err != nil {
				return err
			}
			defer closeDB()
			users, err := repo.List(cmd.Context())
			if err != nil {
				return err
			}
			if outputFormat(cmd) == "json" {
				type brief struct {
					ID       int64    `json:"id"`
					Username string   `json:"username"`
					Roles    []string `json:"roles"`
					Tenant   string   `json:"tenant,omitempty"`
				}
				out := make([]brief, len(users))
				for i, u := range users {
					out[i] = brief{u.ID, u.Username, u.Roles(), u.TenantID}
				}
				return printJSON(cmd.OutOrStdout(), out)
			}
			for _, u := range users {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Role, u.TenantID)
			}
			return nil
		},
	}
	flags.add(cmd)
	return cmd
}
