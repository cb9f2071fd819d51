package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/faciam-dev/gadmin/pkg/client"
	"github.com/faciam-dev/gadmin/pkg/config"
)

func newLoginCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the token into ~/.adminctl/config.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			flags := cmd.Root().PersistentFlags()
			prof, _ := flags.GetString("profile")
			if prof == "" {
				prof = cfg.Active
			}
			cp := cfg.Profiles[prof]
			if url, _ := flags.GetString("api-url"); url != "" {
				cp.APIURL = url
			}
			if tenant, _ := flags.GetString("tenant"); tenant != "" {
				cp.Tenant = tenant
			}
			if cp.APIURL == "" {
				return fmt.Errorf("--api-url is required for a new profile")
			}
			if password == "" {
				if password, err = readSecret(cmd, "Password"); err != nil {
					return err
				}
			}

			tok, err := client.New(cp.APIURL, client.WithTenant(cp.Tenant)).Login(cmd.Context(), username, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			cp.Name = prof
			cp.Token = tok.AccessToken
			cfg.Profiles[prof] = cp
			cfg.Active = prof
			if err := config.Save(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in. Active profile: %s (token expires %s)\n", prof, tok.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "user name")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	mustFlag(cmd, "username")
	return cmd
}

// readSecret prompts on the terminal without echo.
func readSecret(cmd *cobra.Command, label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%s required: stdin is not a terminal", strings.ToLower(label))
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: ", label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// mustFlag marks a flag as required and panics on error.
func mustFlag(cmd *cobra.Command, name string) {
	cobra.CheckErr(cmd.MarkFlagRequired(name))
}
