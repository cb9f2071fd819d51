package config

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Environment variables consulted by Resolve.
const (
	EnvAPIURL = "ADMINCTL_API_URL"
	EnvToken  = "ADMINCTL_TOKEN"
	EnvTenant = "ADMINCTL_TENANT"
)

type Resolved struct {
	APIURL  string
	Token   string
	Tenant  string
	Profile string
}

// Resolve picks each setting from the root flags, then the environment, then
// the selected profile. The token may stay empty for servers without auth.
func Resolve(cmd *cobra.Command) (Resolved, error) {
	flags := cmd.Root().PersistentFlags()
	flagURL, _ := flags.GetString("api-url")
	flagToken, _ := flags.GetString("token")
	flagTenant, _ := flags.GetString("tenant")

	cfg, err := Load()
	if err != nil {
		return Resolved{}, err
	}
	prof := cfg.Active
	if p, _ := flags.GetString("profile"); p != "" {
		prof = p
	}
	cp := cfg.Profiles[prof]

	r := Resolved{
		APIURL:  firstNonEmpty(flagURL, os.Getenv(EnvAPIURL), cp.APIURL),
		Token:   firstNonEmpty(flagToken, os.Getenv(EnvToken), cp.Token),
		Tenant:  firstNonEmpty(flagTenant, os.Getenv(EnvTenant), cp.Tenant),
		Profile: prof,
	}
	if r.APIURL == "" {
		return Resolved{}, errors.New("API URL not set (flag/env/config)")
	}
	return r, nil
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
