package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/runterritory/server/internal/config"
	"github.com/runterritory/server/internal/logging"
)

// app holds what every subcommand needs once flags are parsed
type app struct {
	configPath string
	logLevel   string

	config *config.Config
	logger *zap.Logger
}

// NewRootCommand builds the runterritory command tree
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "runterritory",
		Short: "Run route verification and territory capture",
		Long: `runterritory computes distances along GPS paths, verifies runs against routes
and captures territories from runs that close a loop.

Paths are read from GPX files or Google encoded polylines. The serve command
exposes the same operations over HTTP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newServeCommand(a),
		newDistanceCommand(a),
		newResampleCommand(a),
		newTerritoryCommand(a),
		newImportGPXCommand(a),
		newSimulateCommand(a),
	)

	return root
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	a.config = cfg
	a.logger = logger
	return nil
}
