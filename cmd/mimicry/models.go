package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models and database statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, s, err := openStore()
		if err != nil {
			return err
		}
		defer func() {
			s.Close()
			_ = db.Close()
		}()

		stats, err := s.Stats(cmd.Context())
		if err != nil {
			return err
		}

		if len(stats.Models) == 0 {
			fmt.Println("No models in the database.")
			return nil
		}

		models := stats.Models
		sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tORDER\tCHAINS\tFREQUENCY\tSTARTERS")
		for _, info := range models {
			ms := stats.Stats[info.Id]
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n",
				info.Name, info.Order, ms.TotalChains, ms.TotalFrequency, ms.StartingTokens)
		}
		if err = w.Flush(); err != nil {
			return err
		}

		fmt.Printf("\nShared vocabulary: %d tokens, %d prefixes\n", stats.VocabSize, stats.PrefixSize)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <model>",
	Short: "Delete a model and its chain data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, s, err := openStore()
		if err != nil {
			return err
		}
		defer func() {
			s.Close()
			_ = db.Close()
		}()

		if err = s.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted model %q.\n", args[0])
		return nil
	},
}

var pruneMinFreq int

var pruneCmd = &cobra.Command{
	Use:   "prune <model>",
	Short: "Remove rare transitions from a model",
	Long: `Remove every transition of a model whose frequency is at or below the
threshold. Pruning shrinks a model by discarding rare, often noisy links; it
cannot be undone.`,
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

		if err = s.Prune(cmd.Context(), args[0], pruneMinFreq); err != nil {
			return err
		}
		fmt.Printf("Pruned model %q at frequency threshold %d.\n", args[0], pruneMinFreq)
		return nil
	},
}

func init() {
	pruneCmd.Flags().IntVar(&pruneMinFreq, "min-frequency", 1, "remove transitions with frequency at or below this value")
}
