package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/CTAG07/mimicry/pkg/markov"
)

var (
	trainModel string
	trainOrder int
	trainFiles []string
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a model from one or more corpus files",
	Long: `Train a model from one or more plain-text corpus files.

Each file is tokenized and trained as an independent sequence with its own
chain boundaries; files are processed in parallel and the partial models are
merged. If the named model already exists with the same order, the new counts
are merged into it, so training is incremental.

Examples:
  mimicry train -m shakespeare -f hamlet.txt
  mimicry train -m shakespeare --order 3 -f hamlet.txt -f macbeth.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(trainFiles) == 0 {
			return fmt.Errorf("at least one corpus file is required, use -f")
		}
		order := trainOrder
		if order <= 0 {
			order = config.DefaultOrder
		}

		tokenizer := markov.NewTokenizer()
		sequences := make([][]string, 0, len(trainFiles))
		var tokenCount int
		for _, path := range trainFiles {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read corpus file %s: %w", path, err)
			}
			tokens := tokenizer.Tokenize(string(data))
			tokenCount += len(tokens)
			sequences = append(sequences, tokens)
		}

		m, err := markov.BuildConcurrent(sequences, order)
		if err != nil {
			return err
		}

		db, s, err := openStore()
		if err != nil {
			return err
		}
		defer func() {
			s.Close()
			_ = db.Close()
		}()

		if err = s.Save(cmd.Context(), trainModel, m); err != nil {
			return err
		}

		logger.Info("Training complete",
			"model", trainModel,
			"order", order,
			"files", len(trainFiles),
			"tokens", tokenCount,
			"states", m.Len(),
		)
		fmt.Printf("Trained model %q (order %d) on %d tokens from %d file(s).\n",
			trainModel, order, tokenCount, len(trainFiles))
		return nil
	},
}

func init() {
	trainCmd.Flags().StringVarP(&trainModel, "model", "m", "", "name of the model to train")
	trainCmd.Flags().IntVar(&trainOrder, "order", 0, "chain order (default: config default_order)")
	trainCmd.Flags().StringSliceVarP(&trainFiles, "file", "f", nil, "corpus file, repeatable")
	_ = trainCmd.MarkFlagRequired("model")
}
