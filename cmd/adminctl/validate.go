package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/faciam-dev/gadmin/pkg/admin"
)

func newValidateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check an entity file",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := admin.LoadRegistry(file)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %v\n", color.New(color.FgRed).Sprint("FAIL"), err)
				return fmt.Errorf("%s is invalid", file)
			}
			for _, e := range reg.Entities() {
				vm := e.VM
				tenant := ""
				if tf := vm.TenantField(); tf != "" {
					tenant = ", tenant " + tf
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d fields, key %s%s\n", color.New(color.FgGreen).Sprint("OK"), vm.EntityName, len(vm.Fields), vm.PrimaryKey, tenant)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "entities.yaml", "entity definition file")
	return cmd
}
