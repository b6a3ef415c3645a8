package searchdb

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/codegraph/retrieval/internal/chunk"
)

// DefaultAnnotationCacheSize bounds the number of cached label+embedding
// pairs kept for LabelAndEmbed, and the number of cached query vectors
// kept for Embed.
const DefaultAnnotationCacheSize = 2048

type labelAndEmbedding struct {
	description string
	embedding   []float32
}

// CachedAnnotator wraps an Annotator with an LRU cache keyed by content
// hash (LabelAndEmbed) or by the raw query text (Embed), so repeated
// annotation of unchanged chunks or repeated queries skip the inner
// annotator entirely.
type CachedAnnotator struct {
	inner       Annotator
	byContent   *lru.Cache[string, labelAndEmbedding]
	byQueryText *lru.Cache[string, []float32]
}

// NewCachedAnnotator wraps inner with an LRU cache of the given size
// (DefaultAnnotationCacheSize if size <= 0).
func NewCachedAnnotator(inner Annotator, size int) *CachedAnnotator {
	if size <= 0 {
		size = DefaultAnnotationCacheSize
	}
	byContent, _ := lru.New[string, labelAndEmbedding](size)
	byQueryText, _ := lru.New[string, []float32](size)
	return &CachedAnnotator{inner: inner, byContent: byContent, byQueryText: byQueryText}
}

func (c *CachedAnnotator) LabelAndEmbed(ctx context.Context, ch *chunk.Chunk) (string, []float32, error) {
	key := ch.ContentHash
	if key == "" {
		key = chunk.Hash(ch.Content)
	}
	if cached, ok := c.byContent.Get(key); ok {
		return cached.description, cached.embedding, nil
	}
	desc, vec, err := c.inner.LabelAndEmbed(ctx, ch)
	if err != nil {
		return "", nil, err
	}
	c.byContent.Add(key, labelAndEmbedding{description: desc, embedding: vec})
	return desc, vec, nil
}

func (c *CachedAnnotator) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := c.byQueryText.Get(text); ok {
		return cached, nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.byQueryText.Add(text, vec)
	return vec, nil
}
