package ranker

import "container/heap"

// TopK returns the first k entries of Rank(scores) without sorting every
// scored document. k <= 0 yields an empty slice.
func TopK(scores map[int]float64, k int) []ScoredDoc {
	if k <= 0 {
		return []ScoredDoc{}
	}
	h := make(scoredDocHeap, 0, min(k, len(scores))+1)
	for docID, score := range scores {
		heap.Push(&h, ScoredDoc{DocID: docID, Score: score})
		if h.Len() > k {
			heap.Pop(&h)
		}
	}
	result := make([]ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(ScoredDoc)
	}
	return result
}

// scoredDocHeap keeps the worst-ranked document at the root.
type scoredDocHeap []ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool {
	return ranksBefore(h[j], h[i])
}

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x any) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *scoredDocHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
