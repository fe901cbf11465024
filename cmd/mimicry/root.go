package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CTAG07/mimicry/pkg/store"
)

var (
	cfgFile string

	// Populated by the root PersistentPreRunE before any subcommand runs.
	config *Config
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mimicry",
	Short: "Train and sample order-N Markov text models",
	Long: `Mimicry trains order-N Markov chain models over plain-text corpora and
generates new text from them.

Models are persisted in a local SQLite database, so training is incremental:
running train twice on the same model name merges the new counts into the
existing chain. Generation is reproducible when a seed is given.

Examples:
  # Train an order-2 model from two corpus files
  mimicry train -m shakespeare -f hamlet.txt -f macbeth.txt

  # Generate 3 chains with a fixed seed
  mimicry generate -m shakespeare -n 3 --seed 42

  # Inspect a corpus before training
  mimicry analyze -f hamlet.txt`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		config, err = LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: parseLogLevel(config.LogLevel),
		}))
		return nil
	},
}

// Execute runs the root command and returns its error for main to report.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "./mimicry.json", "path to the JSON config file")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(serveCmd)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openStore opens the configured database, ensures the schema exists, and
// returns a ready Store. The caller owns both handles.
func openStore() (*sql.DB, *store.Store, error) {
	db, err := initDB(config.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = store.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to set up schema: %w", err)
	}
	s, err := store.New(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to prepare store: %w", err)
	}
	s.SetLogger(logger)
	return db, s, nil
}
