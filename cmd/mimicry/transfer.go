package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <model>",
	Short: "Export a model as JSON",
	Long: `Export a model's vocabulary, prefixes, and chain data as JSON, suitable
for backup or for importing into another database.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, s, err := openStore()
		if err != nil {
			return err
		}
		defer func() {
			s.Close()
			_ = db.Close()
		}()

		if exportOutput == "" {
			return s.Export(cmd.Context(), args[0], os.Stdout)
		}

		var buf bytes.Buffer
		if err = s.Export(cmd.Context(), args[0], &buf); err != nil {
			return err
		}
		if err = atomic.WriteFile(exportOutput, &buf); err != nil {
			return fmt.Errorf("failed to write export file: %w", err)
		}
		fmt.Printf("Exported model %q to %s.\n", args[0], exportOutput)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a previously exported model",
	Long: `Import a model from a JSON export file. If a model with the same name
already exists, the imported counts are merged into it; vocabulary and prefix
IDs are re-mapped to the target database.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open import file: %w", err)
		}
		defer func() {
			_ = file.Close()
		}()

		db, s, err := openStore()
		if err != nil {
			return err
		}
		defer func() {
			s.Close()
			_ = db.Close()
		}()

		if err = s.Import(cmd.Context(), file); err != nil {
			return err
		}
		fmt.Printf("Imported model from %s.\n", args[0])
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
}
