package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/indexer/index"
)

func newStatsCmd(root *rootOptions) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Build the index and print corpus statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := root.loadDocuments(cmd.Context())
			if err != nil {
				return err
			}
			start := time.Now()
			c := corpus.New(docs, root.cfg.Search.TextFields...)
			idx := index.Build(c, root.policy())
			took := time.Since(start)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "documents:      %d\n", idx.DocCount())
			fmt.Fprintf(out, "distinct terms: %d\n", idx.TermCount())
			fmt.Fprintf(out, "total tokens:   %d\n", idx.TotalTokens())
			fmt.Fprintf(out, "avg length:     %.2f\n", idx.AvgDocLength())
			fmt.Fprintf(out, "text fields:    %v\n", c.TextFields())
			fmt.Fprintf(out, "build time:     %s\n", took.Round(time.Microsecond))

			if top > 0 {
				fmt.Fprintf(out, "\ntop %d terms by document frequency:\n", top)
				for _, e := range topTerms(idx, top) {
					fmt.Fprintf(out, "  %-20s %d\n", e.Term, len(e.Postings))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "Show the N most common terms (0 to disable)")
	return cmd
}

func topTerms(idx *index.Index, n int) []index.TermEntry {
	entries := idx.Snapshot()
	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i].Postings) > len(entries[j].Postings)
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
