// Package cmd implements the imgsearch command tree.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/corpus/pgstore"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/postgres"
)

type rootOptions struct {
	configPath string
	corpusPath string
	logLevel   string
	cfg        *config.Config
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "imgsearch",
		Short: "BM25 search over image metadata",
		Long: `imgsearch ranks image records (title, alt text, caption) against a
free-text query with Okapi BM25.

The corpus is read from a JSON Lines file (or a legacy JSON array), or from
PostgreSQL when corpus.source is "postgres" in the config file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			slog.SetDefault(logger.New(cmd.ErrOrStderr(), opts.logLevel, "text"))
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.corpusPath != "" {
				cfg.Corpus.Source = config.SourceFile
				cfg.Corpus.Path = opts.corpusPath
			}
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.corpusPath, "corpus", "", "Corpus file to use instead of the configured source")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	cmd.AddCommand(
		newQueryCmd(opts),
		newStatsCmd(opts),
		newConvertCmd(opts),
		newImportCmd(opts),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *rootOptions) policy() tokenizer.Policy {
	return tokenizer.Policy{AlnumOnly: o.cfg.Search.AlnumOnly}
}

// loadDocuments reads the corpus from the configured source.
func (o *rootOptions) loadDocuments(ctx context.Context) ([]corpus.Document, error) {
	if o.cfg.Corpus.Source != config.SourcePostgres {
		return corpus.Load(o.cfg.Corpus.Path)
	}
	db, err := postgres.New(ctx, o.cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	return pgstore.New(db, o.cfg.Corpus.Table).Documents(ctx, "")
}
