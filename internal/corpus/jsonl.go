package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	apperrors "github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/errors"
)

const maxLineSize = 4 << 20

// ReadJSONL decodes one Document per non-blank line. A malformed line fails
// the whole read and no documents are returned.
func ReadJSONL(r io.Reader) ([]Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	docs := make([]Document, 0)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("%w: %w: line %d: %v", apperrors.ErrCorpusLoad, apperrors.ErrMalformedCorpus, line, err)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading line %d: %v", apperrors.ErrCorpusLoad, line+1, err)
	}
	return docs, nil
}

// WriteJSONL encodes docs one per line.
func WriteJSONL(w io.Writer, docs []Document) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding document %d: %w", i, err)
		}
	}
	return nil
}

// Load reads a corpus file. JSON Lines is the native format; a file whose
// first non-space byte is '[' is decoded as a legacy metadata.json array.
func Load(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCorpusLoad, err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var docs []Document
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, fmt.Errorf("%w: %w: %s: %v", apperrors.ErrCorpusLoad, apperrors.ErrMalformedCorpus, path, err)
		}
		if docs == nil {
			docs = []Document{}
		}
		return docs, nil
	}
	docs, err := ReadJSONL(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return docs, nil
}

// Save writes docs as JSON Lines, replacing path atomically through a
// temporary file in the same directory.
func Save(path string, docs []Document) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating corpus directory: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp corpus file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := WriteJSONL(w, docs); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("flushing corpus file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing corpus file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing corpus file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming corpus file: %w", err)
	}
	return nil
}
