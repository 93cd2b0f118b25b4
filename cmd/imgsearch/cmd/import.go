package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/corpus/pgstore"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/postgres"
)

func newImportCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the PostgreSQL corpus table with the documents in a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			docs, err := corpus.Load(args[0])
			if err != nil {
				return err
			}
			db, err := postgres.New(ctx, root.cfg.Postgres)
			if err != nil {
				return fmt.Errorf("connecting to postgres: %w", err)
			}
			defer db.Close()

			store := pgstore.New(db, root.cfg.Corpus.Table)
			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}
			if err := store.Replace(ctx, docs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d documents into %s\n", len(docs), root.cfg.Corpus.Table)
			return nil
		},
	}
}
