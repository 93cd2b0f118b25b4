package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/searcher/ranker"
)

type queryOptions struct {
	limit  int
	format string
	fields []string
}

func newQueryCmd(root *rootOptions) *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Rank the corpus against a query",
		Example: `  imgsearch query "sunset over the sea" --corpus image_data/metadata.jsonl
  imgsearch query red car --limit 3 --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := root.loadDocuments(cmd.Context())
			if err != nil {
				return err
			}
			fields := root.cfg.Search.TextFields
			if len(opts.fields) > 0 {
				fields = opts.fields
			}
			params := ranker.Params{K1: root.cfg.Search.K1, B: root.cfg.Search.B}
			c := corpus.New(docs, fields...)
			results := executor.SearchCorpus(strings.Join(args, " "), c, opts.limit, params, root.policy())
			return writeResults(cmd.OutOrStdout(), results, opts.format)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().StringSliceVar(&opts.fields, "fields", nil, "Text fields to index (default from config)")
	return cmd
}

func writeResults(w io.Writer, results []executor.Result, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case "text":
		if len(results) == 0 {
			_, err := fmt.Fprintln(w, "no results")
			return err
		}
		for i, r := range results {
			label := r.Document.Title
			if label == "" {
				label = r.Document.AltText
			}
			if _, err := fmt.Fprintf(w, "%2d. %.4f  #%d  %s  %s\n", i+1, r.Score, r.DocID, r.Document.URL, label); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text or json)", format)
	}
}
