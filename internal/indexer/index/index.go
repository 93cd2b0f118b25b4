// Package index builds the immutable inverted index over a corpus: for every
// term, the documents containing it with their term frequencies, plus the
// per-document token counts BM25 needs for length normalisation.
package index

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/indexer/tokenizer"
)

// Index is safe for concurrent readers; nothing mutates it after Build.
type Index struct {
	postings    map[string]map[int]*Posting
	lengths     []int
	totalTokens int64
	policy      tokenizer.Policy
}

// Build indexes every document of c. It reads c only and is deterministic in
// (c, policy).
func Build(c *corpus.Corpus, policy tokenizer.Policy) *Index {
	n := c.Len()
	idx := &Index{
		postings: make(map[string]map[int]*Posting),
		lengths:  make([]int, n),
		policy:   policy,
	}
	for id := 0; id < n; id++ {
		tokens := tokenizer.Tokenize(c.Text(id), policy)
		termData := make(map[string]*Posting)
		for _, token := range tokens {
			p, exists := termData[token.Term]
			if !exists {
				p = &Posting{DocID: id}
				termData[token.Term] = p
			}
			p.Frequency++
		}
		for term, posting := range termData {
			docs, exists := idx.postings[term]
			if !exists {
				docs = make(map[int]*Posting)
				idx.postings[term] = docs
			}
			docs[id] = posting
		}
		idx.lengths[id] = len(tokens)
		idx.totalTokens += int64(len(tokens))
	}
	return idx
}

// Policy is the tokenizer policy the index was built with. Queries must be
// tokenized with it.
func (ix *Index) Policy() tokenizer.Policy {
	return ix.policy
}

// Postings returns the postings of term ordered by document ID, or nil when
// the term does not occur.
func (ix *Index) Postings(term string) PostingList {
	docs, exists := ix.postings[term]
	if !exists {
		return nil
	}
	result := make(PostingList, 0, len(docs))
	for _, posting := range docs {
		result = append(result, *posting)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}

// DocFreq is the number of documents containing term.
func (ix *Index) DocFreq(term string) int {
	return len(ix.postings[term])
}

// TermFreq is the number of occurrences of term in document id.
func (ix *Index) TermFreq(term string, id int) int {
	if p, ok := ix.postings[term][id]; ok {
		return p.Frequency
	}
	return 0
}

// DocLength returns the token count of a document, 0 for unknown IDs.
func (ix *Index) DocLength(id int) int {
	if id < 0 || id >= len(ix.lengths) {
		return 0
	}
	return ix.lengths[id]
}

func (ix *Index) DocCount() int {
	return len(ix.lengths)
}

func (ix *Index) TermCount() int {
	return len(ix.postings)
}

func (ix *Index) TotalTokens() int64 {
	return ix.totalTokens
}

// AvgDocLength is the mean token count per document, defined as 1 for an
// empty index so length normalisation never divides by zero.
func (ix *Index) AvgDocLength() float64 {
	if len(ix.lengths) == 0 {
		return 1
	}
	return float64(ix.totalTokens) / float64(len(ix.lengths))
}

// Lengths returns a copy of the document length table indexed by ID.
func (ix *Index) Lengths() []int {
	return append([]int(nil), ix.lengths...)
}

// Snapshot lists every term in lexical order with its sorted postings.
func (ix *Index) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(ix.postings))
	for term := range ix.postings {
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: ix.Postings(term),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}
