package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/gadmin/internal/generator"
)

func newGenCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "gen", Short: "Generate entity files and structs"}
	cmd.AddCommand(newGenYAMLCmd())
	cmd.AddCommand(newGenGoCmd())
	return cmd
}

func newGenYAMLCmd() *cobra.Command {
	var (
		srcs  []string
		out   string
		merge bool
	)
	cmd := &cobra.Command{
		Use:   "yaml",
		Short: "Generate an entity file from Go structs with admin tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(srcs) == 0 {
				return errors.New("--src is required")
			}
			opts := generator.YAMLFromGoOptions{Srcs: srcs, Merge: merge}
			if merge && out != "" {
				existing, err := os.ReadFile(filepath.Clean(out))
				if err != nil && !errors.Is(err, os.ErrNotExist) {
					return err
				}
				opts.Existing = existing
			}
			b, err := generator.GenerateYAMLFromGo(opts)
			if err != nil {
				return err
			}
			if out == "" {
				_, err := cmd.OutOrStdout().Write(b)
				return err
			}
			if err := os.WriteFile(filepath.Clean(out), b, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&srcs, "src", nil, "source Go files (glob)")
	cmd.Flags().StringVar(&out, "out", "", "output YAML file (stdout when empty)")
	cmd.Flags().BoolVar(&merge, "merge", false, "keep entities, tables, access rules and filters of the existing output file")
	return cmd
}

func newGenGoCmd() *cobra.Command {
	var (
		file     string
		pkg      string
		out      string
		entities []string
	)
	cmd := &cobra.Command{
		Use:   "go",
		Short: "Generate Go structs from an entity file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(filepath.Clean(file))
			if err != nil {
				return err
			}
			b, err := generator.GenerateGoFromYAML(data, generator.GoFromYAMLOptions{Package: pkg, Entities: entities})
			if err != nil {
				return err
			}
			if out == "" {
				_, err := cmd.OutOrStdout().Write(b)
				return err
			}
			if err := os.WriteFile(filepath.Clean(out), b, 0o600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "generated %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "entities.yaml", "input entity file")
	cmd.Flags().StringVar(&pkg, "pkg", "models", "package name")
	cmd.Flags().StringVar(&out, "out", "", "output file (stdout when empty)")
	cmd.Flags().StringSliceVar(&entities, "entity", nil, "entities to generate (all when empty)")
	return cmd
}
