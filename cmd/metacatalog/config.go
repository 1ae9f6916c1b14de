package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"metacatalog/internal/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
		// config commands must work before a valid config exists
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	}
	cmd.AddCommand(newConfigInitCommand())
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		path  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write the default configuration to a file, creating its directory.

Without --path the file goes to $XDG_CONFIG_HOME/metacatalog/config.yaml
or ~/.config/metacatalog/config.yaml.

Examples:
  metacatalog config init
  metacatalog config init --path ./metacatalog.yaml
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = config.DefaultConfigPath()
			}
			if config.Exists(path) && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite it", path)
			}
			if err := config.DefaultConfig().Save(path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Config file to write")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
