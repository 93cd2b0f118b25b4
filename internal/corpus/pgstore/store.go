// Package pgstore keeps the image corpus in a PostgreSQL table and serves it
// as a corpus.Provider. Rows are returned in id order so document positions
// are stable between loads.
//
// Expected table (created by EnsureSchema):
//
//	CREATE TABLE images (
//	    id               BIGSERIAL PRIMARY KEY,
//	    url              TEXT NOT NULL,
//	    title            TEXT NOT NULL DEFAULT '',
//	    context          TEXT NOT NULL DEFAULT '',
//	    alt_text         TEXT NOT NULL DEFAULT '',
//	    caption          TEXT NOT NULL DEFAULT '',
//	    detected_objects TEXT[] NOT NULL DEFAULT '{}',
//	    source           TEXT NOT NULL DEFAULT '',
//	    extra            JSONB
//	);
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/postgres"
	"github.com/lib/pq"
)

type Store struct {
	db     *postgres.Client
	table  string
	logger *slog.Logger
}

func New(db *postgres.Client, table string) *Store {
	return &Store{
		db:     db,
		table:  pq.QuoteIdentifier(table),
		logger: slog.Default().With("component", "corpus-store", "table", table),
	}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.DB.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id               BIGSERIAL PRIMARY KEY,
		url              TEXT NOT NULL,
		title            TEXT NOT NULL DEFAULT '',
		context          TEXT NOT NULL DEFAULT '',
		alt_text         TEXT NOT NULL DEFAULT '',
		caption          TEXT NOT NULL DEFAULT '',
		detected_objects TEXT[] NOT NULL DEFAULT '{}',
		source           TEXT NOT NULL DEFAULT '',
		extra            JSONB
	)`, s.table))
	if err != nil {
		return fmt.Errorf("creating table %s: %w", s.table, err)
	}
	return nil
}

// Documents loads every row. The query argument is ignored.
func (s *Store) Documents(ctx context.Context, query string) ([]corpus.Document, error) {
	rows, err := s.db.DB.QueryContext(ctx, fmt.Sprintf(
		`SELECT url, COALESCE(title, ''), COALESCE(context, ''), COALESCE(alt_text, ''),
			COALESCE(caption, ''), COALESCE(detected_objects, '{}'), COALESCE(source, ''), extra
		FROM %s ORDER BY id`, s.table))
	if err != nil {
		return nil, fmt.Errorf("%w: querying %s: %v", apperrors.ErrCorpusLoad, s.table, err)
	}
	defer rows.Close()

	docs := make([]corpus.Document, 0)
	for rows.Next() {
		var (
			doc   corpus.Document
			extra []byte
		)
		if err := rows.Scan(
			&doc.URL, &doc.Title, &doc.Context, &doc.AltText,
			&doc.Caption, pq.Array(&doc.DetectedObjects), &doc.Source, &extra,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning row %d: %v", apperrors.ErrCorpusLoad, len(docs), err)
		}
		if len(extra) > 0 {
			if err := json.Unmarshal(extra, &doc.Extra); err != nil {
				return nil, fmt.Errorf("%w: %w: decoding extra for row %d: %v", apperrors.ErrCorpusLoad, apperrors.ErrMalformedCorpus, len(docs), err)
			}
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating %s: %v", apperrors.ErrCorpusLoad, s.table, err)
	}
	s.logger.Debug("corpus loaded", "documents", len(docs))
	return docs, nil
}

// Replace swaps the table contents for docs in a single transaction.
func (s *Store) Replace(ctx context.Context, docs []corpus.Document) error {
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, s.table)); err != nil {
			return fmt.Errorf("clearing %s: %w", s.table, err)
		}
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
			`INSERT INTO %s (url, title, context, alt_text, caption, detected_objects, source, extra)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, s.table))
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()
		for i, doc := range docs {
			extra, err := encodeExtra(doc.Extra)
			if err != nil {
				return fmt.Errorf("encoding extra for document %d: %w", i, err)
			}
			objects := doc.DetectedObjects
			if objects == nil {
				objects = []string{}
			}
			if _, err := stmt.ExecContext(ctx,
				doc.URL, doc.Title, doc.Context, doc.AltText,
				doc.Caption, pq.Array(objects), doc.Source, extra,
			); err != nil {
				return fmt.Errorf("inserting document %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("corpus replaced", "documents", len(docs))
	return nil
}

func encodeExtra(extra map[string]any) (any, error) {
	if len(extra) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return nil, err
	}
	return data, nil
}
