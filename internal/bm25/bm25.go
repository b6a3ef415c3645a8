// Package bm25 is an in-memory inverted index scoring documents with the
// BM25 ranking function. It exists alongside the vector index as the
// lexical half of the hybrid search DB; unlike the teacher's
// bleve-backed store, it persists nothing to disk and computes the
// textbook formula directly so its scores are reproducible byte for
// byte rather than delegated to a segment-store's internal ranking.
package bm25

import (
	"container/heap"
	"math"
	"sync"

	"github.com/codegraph/retrieval/internal/tokenize"
)

const (
	k1 = 1.5
	b  = 0.75
)

// Result is one scored document.
type Result struct {
	DocID string
	Score float64
}

// Index is a mutable, thread-safe BM25 inverted index over string
// document ids.
type Index struct {
	mu sync.RWMutex

	// postings[term][docID] = term frequency within that document.
	postings map[string]map[string]int
	docLen   map[string]int
	totalLen int
	docs     map[string]struct{}
}

// New returns an empty index.
func New() *Index {
	return &Index{
		postings: make(map[string]map[string]int),
		docLen:   make(map[string]int),
		docs:     make(map[string]struct{}),
	}
}

// Add indexes text under docID. Adding an id that already exists is
// undefined; callers must Remove first. Empty-text documents are
// ignored, matching the teacher-pack convention of treating blank input
// as a no-op rather than an error.
func (idx *Index) Add(docID, text string) {
	terms := tokenize.Tokenize(text)
	if len(terms) == 0 {
		return
	}

	tf := make(map[string]int, len(terms))
	for _, t := range terms {
		tf[t]++
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	for term, count := range tf {
		bucket, ok := idx.postings[term]
		if !ok {
			bucket = make(map[string]int)
			idx.postings[term] = bucket
		}
		bucket[docID] = count
	}
	idx.docLen[docID] = len(terms)
	idx.totalLen += len(terms)
	idx.docs[docID] = struct{}{}
}

// Remove deletes docID from every posting list it appears in. It is
// idempotent: removing an unknown id is a no-op.
func (idx *Index) Remove(docID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.docs[docID]; !ok {
		return
	}
	for term, bucket := range idx.postings {
		if _, ok := bucket[docID]; ok {
			delete(bucket, docID)
			if len(bucket) == 0 {
				delete(idx.postings, term)
			}
		}
	}
	idx.totalLen -= idx.docLen[docID]
	delete(idx.docLen, docID)
	delete(idx.docs, docID)
}

// Len reports the number of indexed documents.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

// Has reports whether docID currently has a posting entry.
func (idx *Index) Has(docID string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.docs[docID]
	return ok
}

type scoredHeap []Result

func (h scoredHeap) Len() int            { return len(h) }
func (h scoredHeap) Less(i, j int) bool  { return h[i].Score < h[j].Score }
func (h scoredHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *scoredHeap) Push(x interface{}) { *h = append(*h, x.(Result)) }
func (h *scoredHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// TopK tokenizes query, deduplicates its terms preserving first-seen
// order, and returns the k highest-scoring documents sorted by
// descending score. A bounded min-heap of size k keeps the cost
// O(N log k) instead of a full sort.
func (idx *Index) TopK(query string, k int) []Result {
	if k <= 0 {
		return nil
	}

	terms := dedupPreserveOrder(tokenize.Tokenize(query))
	if len(terms) == 0 {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := len(idx.docs)
	nf := float64(n)
	if nf < 1 {
		nf = 1
	}
	avgdl := 1.0
	if n > 0 {
		avgdl = float64(idx.totalLen) / nf
	}
	if avgdl <= 0 {
		avgdl = 1e-9
	}

	scores := make(map[string]float64)
	for _, term := range terms {
		bucket, ok := idx.postings[term]
		if !ok {
			continue
		}
		df := float64(len(bucket))
		idf := math.Log(1 + (nf-df+0.5)/(df+0.5))
		for docID, tf := range bucket {
			dl := float64(idx.docLen[docID])
			tft := float64(tf)
			denom := tft + k1*(1-b+b*dl/avgdl)
			scores[docID] += idf * (tft * (k1 + 1)) / denom
		}
	}

	h := &scoredHeap{}
	heap.Init(h)
	for docID, score := range scores {
		if h.Len() < k {
			heap.Push(h, Result{DocID: docID, Score: score})
			continue
		}
		if score > (*h)[0].Score {
			heap.Pop(h)
			heap.Push(h, Result{DocID: docID, Score: score})
		}
	}

	out := make([]Result, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(Result)
	}
	return out
}

func dedupPreserveOrder(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
