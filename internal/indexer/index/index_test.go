package index

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/indexer/tokenizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func titles(ts ...string) []corpus.Document {
	docs := make([]corpus.Document, len(ts))
	for i, t := range ts {
		docs[i] = corpus.Document{URL: fmt.Sprintf("https://img/%d", i), Title: t}
	}
	return docs
}

func TestBuild_WorkedExample(t *testing.T) {
	c := corpus.New(titles("cat dog", "dog dog cat"), corpus.FieldTitle)
	idx := Build(c, tokenizer.Policy{AlnumOnly: true})

	assert.Equal(t, 2, idx.DocCount())
	assert.Equal(t, []int{2, 3}, idx.Lengths())
	assert.InDelta(t, 2.5, idx.AvgDocLength(), 1e-12)
	assert.Equal(t, 2, idx.TermCount())

	dog := idx.Postings("dog")
	require.Len(t, dog, 2)
	assert.Equal(t, Posting{DocID: 0, Frequency: 1}, dog[0])
	assert.Equal(t, Posting{DocID: 1, Frequency: 2}, dog[1])
	assert.Equal(t, 2, idx.DocFreq("dog"))
	assert.Equal(t, 2, idx.TermFreq("dog", 1))
	assert.Equal(t, 0, idx.TermFreq("dog", 5))
}

func TestBuild_EmptyCorpus(t *testing.T) {
	idx := Build(corpus.New(nil), tokenizer.Policy{})

	assert.Equal(t, 0, idx.DocCount())
	assert.Equal(t, 0, idx.TermCount())
	assert.Equal(t, 1.0, idx.AvgDocLength())
	assert.Nil(t, idx.Postings("anything"))
	assert.Empty(t, idx.Snapshot())
}

func TestBuild_DocumentsWithoutTextHaveZeroLength(t *testing.T) {
	docs := []corpus.Document{
		{URL: "a"},
		{URL: "b", Caption: "harbour boats"},
	}
	idx := Build(corpus.New(docs, corpus.FieldTitle, corpus.FieldCaption), tokenizer.Policy{})

	assert.Equal(t, 2, idx.DocCount())
	assert.Equal(t, 0, idx.DocLength(0))
	assert.Equal(t, 2, idx.DocLength(1))
	assert.Equal(t, 1.0, idx.AvgDocLength())
	assert.Equal(t, 0, idx.DocLength(-3))
}

func TestBuild_Deterministic(t *testing.T) {
	docs := titles(
		"snowy mountain peak at sunrise",
		"mountain goat on a rocky peak",
		"city skyline at night",
		"night sky full of stars over the mountain",
	)
	policy := tokenizer.Policy{AlnumOnly: true}

	first := Build(corpus.New(docs), policy)
	second := Build(corpus.New(docs), policy)

	assert.Equal(t, first.Snapshot(), second.Snapshot())
	assert.Equal(t, first.Lengths(), second.Lengths())
}

func TestBuild_TermFrequencyConservation(t *testing.T) {
	docs := titles(
		"dog dog dog",
		"cat dog",
		"bird cat cat",
		"",
		"dog bird",
	)
	policy := tokenizer.Policy{}
	c := corpus.New(docs)
	idx := Build(c, policy)

	occurrences := make(map[string]int)
	var total int64
	for id := 0; id < c.Len(); id++ {
		for _, term := range tokenizer.Terms(c.Text(id), policy) {
			occurrences[term]++
			total++
		}
	}

	for _, entry := range idx.Snapshot() {
		sum := 0
		for _, p := range entry.Postings {
			assert.GreaterOrEqual(t, p.Frequency, 1, "term %q doc %d", entry.Term, p.DocID)
			sum += p.Frequency
		}
		assert.Equal(t, occurrences[entry.Term], sum, "term %q", entry.Term)
	}
	assert.Len(t, idx.Snapshot(), len(occurrences))
	assert.Equal(t, total, idx.TotalTokens())
}

func TestBuild_PostingMembershipMatchesOccurrence(t *testing.T) {
	docs := titles("alpha beta", "beta gamma", "gamma gamma")
	c := corpus.New(docs)
	idx := Build(c, tokenizer.Policy{})

	for _, term := range []string{"alpha", "beta", "gamma", "delta"} {
		for id := 0; id < c.Len(); id++ {
			occurs := false
			for _, got := range tokenizer.Terms(c.Text(id), tokenizer.Policy{}) {
				if got == term {
					occurs = true
				}
			}
			assert.Equal(t, occurs, idx.TermFreq(term, id) > 0, "term %q doc %d", term, id)
		}
	}
}

func TestBuild_DoesNotMutateCorpus(t *testing.T) {
	docs := titles("Bright YELLOW flowers", "flowers, in a vase")
	c := corpus.New(docs)
	before := c.Documents()

	Build(c, tokenizer.Policy{AlnumOnly: true})

	assert.Equal(t, before, c.Documents())
}

func TestBuild_PolicyIsRecorded(t *testing.T) {
	idx := Build(corpus.New(titles("one, two")), tokenizer.Policy{AlnumOnly: true})
	assert.True(t, idx.Policy().AlnumOnly)
	assert.Nil(t, idx.Postings("one,"))
	assert.Equal(t, 1, idx.DocFreq("two"))
}

func BenchmarkBuild(b *testing.B) {
	for _, n := range []int{100, 1000, 10000} {
		docs := make([]corpus.Document, n)
		for i := range docs {
			docs[i] = corpus.Document{
				Title:   fmt.Sprintf("image %d of a mountain lake", i),
				AltText: "reflection of trees in calm water at dawn",
			}
		}
		c := corpus.New(docs)
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = Build(c, tokenizer.Policy{AlnumOnly: true})
			}
		})
	}
}
