package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/CTAG07/mimicry/pkg/markov"
)

var (
	analyzeFiles []string
	analyzeTop   int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Report token and sentence statistics for a corpus",
	Long: `Analyze one or more corpus files without training anything.

Reports the token count, vocabulary size, average sentence length, and the
most frequent tokens with their share of the corpus. Useful for choosing a
chain order and spotting tokenizer surprises before training.

Example:
  mimicry analyze -f hamlet.txt --top 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(analyzeFiles) == 0 {
			return fmt.Errorf("at least one corpus file is required, use -f")
		}

		var text strings.Builder
		for _, path := range analyzeFiles {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read corpus file %s: %w", path, err)
			}
			text.Write(data)
			text.WriteByte('\n')
		}
		corpus := text.String()

		tokens := markov.Tokenize(corpus)
		freqs := markov.Frequencies(tokens)
		probs := markov.Probabilities(freqs)

		type tokenFreq struct {
			token string
			freq  int
		}
		ranked := make([]tokenFreq, 0, len(freqs))
		for token, freq := range freqs {
			ranked = append(ranked, tokenFreq{token: token, freq: freq})
		}
		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].freq != ranked[j].freq {
				return ranked[i].freq > ranked[j].freq
			}
			return ranked[i].token < ranked[j].token
		})
		if analyzeTop > 0 && analyzeTop < len(ranked) {
			ranked = ranked[:analyzeTop]
		}

		fmt.Printf("Files:                   %d\n", len(analyzeFiles))
		fmt.Printf("Tokens:                  %d\n", len(tokens))
		fmt.Printf("Distinct tokens:         %d\n", len(freqs))
		fmt.Printf("Average sentence length: %d tokens\n", markov.AverageSentenceLength(corpus))
		fmt.Println()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TOKEN\tCOUNT\tSHARE")
		for _, tf := range ranked {
			fmt.Fprintf(w, "%s\t%d\t%.2f%%\n", tf.token, tf.freq, probs[tf.token]*100)
		}
		return w.Flush()
	},
}

func init() {
	analyzeCmd.Flags().StringSliceVarP(&analyzeFiles, "file", "f", nil, "corpus file, repeatable")
	analyzeCmd.Flags().IntVar(&analyzeTop, "top", 10, "number of most frequent tokens to list; 0 lists all")
}
