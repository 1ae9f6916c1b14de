package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"metacatalog/internal/auth"
	"metacatalog/internal/loader"
)

func newSeedCommand(a *app) *cobra.Command {
	var principal string

	cmd := &cobra.Command{
		Use:   "seed <file>",
		Short: "Load a seed file into the catalog",
		Long: `Upsert the users, teams, tag categories, services and glossaries
declared in a JSON or YAML seed file. Entries that already exist are updated;
tags are only ever added.

Examples:
  metacatalog seed catalog.yaml
  metacatalog seed catalog.json --as admin@example.com
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, closeFn, err := a.openCatalog(nil)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := cmd.Context()
			if principal != "" {
				ctx = auth.WithPrincipal(ctx, principal)
			}
			result, err := loader.New(catalog, a.logger).LoadFile(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&principal, "as", "",
		"Principal recorded as updatedBy (default: "+loader.DefaultPrincipal+")")
	return cmd
}
