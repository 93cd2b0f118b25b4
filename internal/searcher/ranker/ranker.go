// Package ranker scores documents against query terms with Okapi BM25 and
// orders them deterministically: higher score first, lower document ID first
// among equal scores.
package ranker

import (
	"fmt"
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/errors"
)

const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

type ScoredDoc struct {
	DocID int     `json:"doc_id"`
	Score float64 `json:"score"`
}

// Params are the BM25 free parameters. K1 controls term-frequency saturation
// and B the strength of document-length normalisation.
type Params struct {
	K1 float64 `json:"k1" yaml:"k1"`
	B  float64 `json:"b" yaml:"b"`
}

func DefaultParams() Params {
	return Params{K1: DefaultK1, B: DefaultB}
}

// Validate rejects parameters outside the range where BM25 is meaningful.
func (p Params) Validate() error {
	if math.IsNaN(p.K1) || math.IsInf(p.K1, 0) || p.K1 < 0 {
		return fmt.Errorf("%w: k1 must be a finite non-negative number, got %v", apperrors.ErrInvalidConfig, p.K1)
	}
	if math.IsNaN(p.B) || p.B < 0 || p.B > 1 {
		return fmt.Errorf("%w: b must be within [0, 1], got %v", apperrors.ErrInvalidConfig, p.B)
	}
	return nil
}

// Source is the read side of an index that scoring needs.
type Source interface {
	Postings(term string) index.PostingList
	DocLength(id int) int
	DocCount() int
	AvgDocLength() float64
}

// Score accumulates the BM25 contribution of every query term occurrence.
// A term repeated in the query contributes once per repetition; terms absent
// from the index contribute nothing.
func Score(terms []string, src Source, p Params) map[int]float64 {
	scores := make(map[int]float64)
	totalDocs := src.DocCount()
	avgDocLength := src.AvgDocLength()
	for _, term := range terms {
		postings := src.Postings(term)
		if len(postings) == 0 {
			continue
		}
		idf := computeIDF(totalDocs, len(postings))
		for _, posting := range postings {
			tfNorm := computeTFNorm(
				float64(posting.Frequency),
				float64(src.DocLength(posting.DocID)),
				avgDocLength,
				p,
			)
			scores[posting.DocID] += idf * tfNorm
		}
	}
	return scores
}

// Rank orders every scored document.
func Rank(scores map[int]float64) []ScoredDoc {
	result := make([]ScoredDoc, 0, len(scores))
	for docID, score := range scores {
		result = append(result, ScoredDoc{DocID: docID, Score: score})
	}
	sort.Slice(result, func(i, j int) bool {
		return ranksBefore(result[i], result[j])
	})
	return result
}

func ranksBefore(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

func computeIDF(totalDocs int, docFreq int) float64 {
	numerator := float64(totalDocs) - float64(docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

func computeTFNorm(termFreq float64, docLength float64, avgDocLength float64, p Params) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + p.K1*(1-p.B+p.B*lengthRatio)
	return (termFreq * (p.K1 + 1)) / denominator
}
