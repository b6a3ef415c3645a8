package searchdb

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/codegraph/retrieval/internal/bm25"
	"github.com/codegraph/retrieval/internal/chunk"
	"github.com/codegraph/retrieval/internal/rerrors"
	"github.com/codegraph/retrieval/internal/vectorindex"
)

// addManyConcurrency bounds how many chunks AddMany annotates at once,
// so a slow or rate-limited external annotator never gets hit with an
// unbounded burst of concurrent calls.
const addManyConcurrency = 8

// DefaultBM25K and DefaultKNNK are the top-K sizes used when a Search
// call's options leave them unset.
const (
	DefaultBM25K = 10
	DefaultKNNK  = 10
)

// SearchDB is a catalog of annotated chunks backed by a BM25 index and a
// dense-vector index, searched in combination. It owns all three stores
// exclusively; callers never touch the BM25 or vector indexes directly.
type SearchDB struct {
	mu       sync.RWMutex
	catalog  map[string]*AnnotatedChunk
	bm25     *bm25.Index
	vec      *vectorindex.Index
	annotate Annotator
	filter   RelevanceFilter
	log      *slog.Logger
}

// Option configures a SearchDB at construction time.
type Option func(*SearchDB)

// WithRelevanceFilter installs a custom relevance filter. Without one,
// Search falls back to DefaultRelevanceFilter.
func WithRelevanceFilter(f RelevanceFilter) Option {
	return func(s *SearchDB) { s.filter = f }
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *SearchDB) { s.log = log }
}

// New builds an empty SearchDB using annotator for label_and_embed/embed.
func New(annotator Annotator, opts ...Option) *SearchDB {
	s := &SearchDB{
		catalog:  map[string]*AnnotatedChunk{},
		bm25:     bm25.New(),
		vec:      vectorindex.New(),
		annotate: annotator,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add annotates c and inserts it into the catalog and both indexes.
func (s *SearchDB) Add(ctx context.Context, c *chunk.Chunk) error {
	desc, vec, err := s.annotate.LabelAndEmbed(ctx, c)
	if err != nil {
		return rerrors.Annotator(err, "annotate chunk %s", c.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(c, desc, vec)
	return nil
}

func (s *SearchDB) insertLocked(c *chunk.Chunk, desc string, vec []float32) {
	s.catalog[c.ID] = &AnnotatedChunk{Chunk: c, Description: desc, Embedding: vec}
	s.bm25.Add(c.ID, desc+"\n"+c.Content)
	s.vec.Add(c.ID, vec)
}

// AddMany annotates chunks in small parallel batches bounded by
// addManyConcurrency. A batch failure propagates and aborts the call;
// chunks already inserted before the failing batch remain indexed.
func (s *SearchDB) AddMany(ctx context.Context, chunks []*chunk.Chunk) error {
	type annotated struct {
		c    *chunk.Chunk
		desc string
		vec  []float32
	}

	for start := 0; start < len(chunks); start += addManyConcurrency {
		end := start + addManyConcurrency
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		results := make([]annotated, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		for i, c := range batch {
			i, c := i, c
			g.Go(func() error {
				desc, vec, err := s.annotate.LabelAndEmbed(gctx, c)
				if err != nil {
					return rerrors.Annotator(err, "annotate chunk %s", c.ID)
				}
				results[i] = annotated{c: c, desc: desc, vec: vec}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		s.mu.Lock()
		for _, r := range results {
			s.insertLocked(r.c, r.desc, r.vec)
		}
		s.mu.Unlock()
	}
	return nil
}

// Update is equivalent to Remove(c.ID) followed by Add(c).
func (s *SearchDB) Update(ctx context.Context, c *chunk.Chunk) error {
	s.Remove(c.ID)
	return s.Add(ctx, c)
}

// Remove deletes id from the catalog and both indexes. It is a no-op if
// id is not present.
func (s *SearchDB) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.catalog, id)
	s.bm25.Remove(id)
	s.vec.Remove(id)
}

// Get returns the catalog entry for id, if present.
func (s *SearchDB) Get(id string) (*AnnotatedChunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ac, ok := s.catalog[id]
	return ac, ok
}

// List returns every catalog entry, in no particular order.
func (s *SearchDB) List() []*AnnotatedChunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*AnnotatedChunk, 0, len(s.catalog))
	for _, ac := range s.catalog {
		out = append(out, ac)
	}
	return out
}

// Len reports the number of chunks in the catalog.
func (s *SearchDB) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.catalog)
}

// Search runs BM25.top_k and Vector.top_k, takes their union preserving
// first-seen order (BM25 before KNN), resolves ids to AnnotatedChunks,
// and applies a relevance filter (the caller's, or the default
// heuristic if none was configured or the caller's failed).
func (s *SearchDB) Search(ctx context.Context, query string, opts SearchOptions) ([]AnnotatedChunk, error) {
	bm25K := DefaultBM25K
	if opts.BM25K != nil {
		bm25K = *opts.BM25K
	}
	knnK := DefaultKNNK
	if opts.KNNK != nil {
		knnK = *opts.KNNK
	}

	var bm25Hits []bm25.Result
	if bm25K > 0 {
		s.mu.RLock()
		bm25Hits = s.bm25.TopK(query, bm25K)
		s.mu.RUnlock()
	}

	var knnHits []vectorindex.Result
	if knnK > 0 {
		queryVec, err := s.annotate.Embed(ctx, query)
		if err != nil {
			return nil, rerrors.Annotator(err, "embed query")
		}
		s.mu.RLock()
		knnHits = s.vec.TopK(queryVec, knnK)
		s.mu.RUnlock()
	}

	ids := make([]string, 0, len(bm25Hits)+len(knnHits))
	seen := map[string]bool{}
	for _, r := range bm25Hits {
		if !seen[r.DocID] {
			seen[r.DocID] = true
			ids = append(ids, r.DocID)
		}
	}
	for _, r := range knnHits {
		if !seen[r.ID] {
			seen[r.ID] = true
			ids = append(ids, r.ID)
		}
	}

	s.mu.RLock()
	union := make([]AnnotatedChunk, 0, len(ids))
	for _, id := range ids {
		if ac, ok := s.catalog[id]; ok {
			union = append(union, *ac)
		}
	}
	s.mu.RUnlock()

	filter := s.filter
	if filter == nil {
		filter = DefaultRelevanceFilter
	}
	filtered, err := filter(ctx, query, union)
	if err != nil {
		s.log.Warn("relevance filter failed, using default heuristic", "error", err)
		filtered, err = DefaultRelevanceFilter(ctx, query, union)
		if err != nil {
			return nil, err
		}
	}
	return filtered, nil
}
