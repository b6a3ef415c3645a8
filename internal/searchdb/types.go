// Package searchdb combines the lexical (BM25) and dense-vector indexes
// behind one chunk catalog, with a pluggable annotator that turns a raw
// chunk into a short label and an embedding, and an optional relevance
// filter applied to hybrid results.
package searchdb

import (
	"context"

	"github.com/codegraph/retrieval/internal/chunk"
)

// AnnotatedChunk is a catalog entry: the chunk plus what the annotator
// produced for it.
type AnnotatedChunk struct {
	Chunk       *chunk.Chunk
	Description string
	Embedding   []float32
}

// Annotator turns a chunk into a short description and a dense vector,
// and embeds free-text queries into that same vector space. Implementations
// backed by a real model should be deterministic per content hash when
// fronted by a cache (see CachedAnnotator).
type Annotator interface {
	LabelAndEmbed(ctx context.Context, c *chunk.Chunk) (description string, embedding []float32, err error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// RelevanceFilter narrows (or reorders) a hybrid result list for a query.
// A filter that errors causes the caller to log and fall back to the
// default heuristic filter.
type RelevanceFilter func(ctx context.Context, query string, chunks []AnnotatedChunk) ([]AnnotatedChunk, error)

// SearchOptions bounds a single search call. A nil field means "unset":
// Search applies DefaultBM25K/DefaultKNNK. A non-nil field pointing at 0
// is an explicit instruction to skip that retrieval path entirely, which
// is distinct from leaving it unset.
type SearchOptions struct {
	BM25K *int
	KNNK  *int
}
