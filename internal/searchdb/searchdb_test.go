package searchdb

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codegraph/retrieval/internal/chunk"
)

func mkChunk(id, content string) *chunk.Chunk {
	return &chunk.Chunk{ID: id, FilePath: id + ".go", Type: "file", Content: content, Line: 1, EndLine: 1}
}

func intPtr(n int) *int { return &n }

// countingEmbedder is the 2-dimensional embedder from scenario 2: each
// dimension counts occurrences of one fixed token.
type countingEmbedder struct{}

func (countingEmbedder) LabelAndEmbed(_ context.Context, c *chunk.Chunk) (string, []float32, error) {
	return c.Content, countingEmbedder{}.vec(c.Content), nil
}

func (countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return countingEmbedder{}.vec(text), nil
}

func (countingEmbedder) vec(text string) []float32 {
	return []float32{
		float32(strings.Count(text, "alpha")),
		float32(strings.Count(text, "beta")),
	}
}

func TestBM25HitScenario(t *testing.T) {
	db := New(NewDefaultAnnotator())
	ctx := context.Background()
	require.NoError(t, db.Add(ctx, mkChunk("a", "database connection pool manager")))
	require.NoError(t, db.Add(ctx, mkChunk("b", "image processing pipeline for photos")))

	results, err := db.Search(ctx, "connection pool", SearchOptions{BM25K: intPtr(2), KNNK: intPtr(0)})
	require.NoError(t, err)

	ids := idsOf(results)
	require.Contains(t, ids, "a")
}

func TestKNNHitScenario(t *testing.T) {
	db := New(countingEmbedder{})
	ctx := context.Background()
	require.NoError(t, db.Add(ctx, mkChunk("a", "alpha alpha here")))
	require.NoError(t, db.Add(ctx, mkChunk("b", "beta beta here")))

	results, err := db.Search(ctx, "alpha", SearchOptions{BM25K: intPtr(0), KNNK: intPtr(1)})
	require.NoError(t, err)

	require.Equal(t, []string{"a"}, idsOf(results))
}

func TestHybridUnionScenario(t *testing.T) {
	db := New(countingEmbedder{})
	ctx := context.Background()
	require.NoError(t, db.Add(ctx, mkChunk("t", "unique textonly tokens zyxwv zyxwv zyxwv")))
	require.NoError(t, db.Add(ctx, mkChunk("k", "alpha alpha content")))

	results, err := db.Search(ctx, "alpha zyxwv textonly", SearchOptions{BM25K: intPtr(1), KNNK: intPtr(1)})
	require.NoError(t, err)

	ids := idsOf(results)
	require.Contains(t, ids, "t")
	require.Contains(t, ids, "k")
}

func TestRemoveIsIdempotent(t *testing.T) {
	db := New(NewDefaultAnnotator())
	db.Remove("missing")
	require.Equal(t, 0, db.Len())
}

func TestUpdateReplacesContent(t *testing.T) {
	db := New(NewDefaultAnnotator())
	ctx := context.Background()
	require.NoError(t, db.Add(ctx, mkChunk("a", "original content")))
	require.NoError(t, db.Update(ctx, mkChunk("a", "revised content")))

	ac, ok := db.Get("a")
	require.True(t, ok)
	require.Equal(t, "revised content", ac.Chunk.Content)
	require.Equal(t, 1, db.Len())
}

func TestAddManyPropagatesBatchFailure(t *testing.T) {
	db := New(failingAnnotator{failOn: "bad"})
	ctx := context.Background()
	chunks := []*chunk.Chunk{mkChunk("good", "fine"), mkChunk("bad", "boom")}

	err := db.AddMany(ctx, chunks)
	require.Error(t, err)
}

type failingAnnotator struct{ failOn string }

func (f failingAnnotator) LabelAndEmbed(_ context.Context, c *chunk.Chunk) (string, []float32, error) {
	if c.ID == f.failOn {
		return "", nil, errBoom
	}
	return c.Content, []float32{1}, nil
}

func (f failingAnnotator) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{1}, nil
}

var errBoom = errors.New("boom")

func idsOf(results []AnnotatedChunk) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Chunk.ID
	}
	return ids
}
