// metacatalog serves a metadata catalog of data assets over a REST API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"metacatalog/internal/config"
	"metacatalog/internal/logging"
	"metacatalog/internal/metrics"
	"metacatalog/internal/repository/sqlite"
	"metacatalog/internal/service"
)

var version = "dev"

// app holds what every command needs once flags and config are resolved
type app struct {
	configPath string
	dbPath     string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "metacatalog",
		Short: "metacatalog - metadata catalog for pipelines, tables and glossaries",
		Long: `metacatalog stores versioned metadata about data assets: services,
databases, tables, pipelines and business glossaries, with tags, owners
and followers. Every change is recorded and streamed as a change event.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "",
		"Config file (default: $METACATALOG_CONFIG or ./metacatalog.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.dbPath, "db", "",
		"SQLite database path (overrides database.path)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides logging.level)")

	rootCmd.AddCommand(
		newServeCommand(a),
		newMigrateCommand(a),
		newSeedCommand(a),
		newExportCommand(a),
		newConfigCommand(),
	)

	rootCmd.SetVersionTemplate("metacatalog version {{.Version}}\n")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// init loads the config, applies flag overrides and builds the logger
func (a *app) init() error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, _, err = config.LoadFromPath(a.configPath)
	} else {
		cfg, _, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}

	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// openCatalog opens the store and builds a catalog over it. The returned
// close function releases the store.
func (a *app) openCatalog(collector *metrics.Collector) (*service.Catalog, func(), error) {
	store, err := sqlite.New(a.cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database %s: %w", a.cfg.Database.Path, err)
	}
	a.logger.Debug("database opened", zap.String("path", a.cfg.Database.Path))

	catalog := service.NewCatalog(store, service.NewEventBus(), a.logger, collector, service.Options{
		BaseURL:      a.cfg.Server.BaseURL,
		DefaultLimit: a.cfg.Paging.DefaultLimit,
		MaxLimit:     a.cfg.Paging.MaxLimit,
	})
	closeFn := func() {
		if err := store.Close(); err != nil {
			a.logger.Warn("failed to close database", zap.Error(err))
		}
	}
	return catalog, closeFn, nil
}
