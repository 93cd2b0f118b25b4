package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/corpus"
)

func newConvertCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <input> <output.jsonl>",
		Short: "Rewrite a corpus file (JSON array or JSON Lines) as JSON Lines",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := corpus.Load(args[0])
			if err != nil {
				return err
			}
			if err := corpus.Save(args[1], docs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d documents to %s\n", len(docs), args[1])
			return nil
		},
	}
}
