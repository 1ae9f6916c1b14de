package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"metacatalog/internal/codec"
)

func newExportCommand(a *app) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a snapshot of the catalog",
		Long: `Write every entity and tag category in the catalog as JSON or YAML.

Examples:
  metacatalog export > snapshot.json
  metacatalog export --format yaml -o snapshot.yaml
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exporter, err := codec.ForFormat(format)
			if err != nil {
				return err
			}

			catalog, closeFn, err := a.openCatalog(nil)
			if err != nil {
				return err
			}
			defer closeFn()

			snapshot, err := catalog.Snapshot(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read catalog: %w", err)
			}

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			if err := exporter.Export(snapshot, w); err != nil {
				return fmt.Errorf("failed to export: %w", err)
			}
			if output != "" {
				a.logger.Info("catalog exported", zap.String("path", output), zap.String("format", exporter.Format()))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}
