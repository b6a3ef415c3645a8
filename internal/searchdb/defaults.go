package searchdb

import (
	"context"
	"crypto/sha256"
	"strconv"
	"strings"

	"github.com/codegraph/retrieval/internal/chunk"
	"github.com/codegraph/retrieval/internal/tokenize"
)

// DefaultEmbeddingDim is the dimensionality of the offline hash embedder.
// Chosen small enough that the brute-force vector index stays cheap for
// tests and small repos run without a real embedding backend.
const DefaultEmbeddingDim = 64

// DefaultLabelWordBudget bounds the heuristic label's length.
const DefaultLabelWordBudget = 30

// DefaultAnnotator is the offline annotator used when no external model
// is configured: a heuristic labeler and a deterministic hash embedder.
// It makes the engine self-contained for tests and offline use.
type DefaultAnnotator struct{}

// NewDefaultAnnotator returns the built-in offline annotator.
func NewDefaultAnnotator() *DefaultAnnotator { return &DefaultAnnotator{} }

func (DefaultAnnotator) LabelAndEmbed(_ context.Context, c *chunk.Chunk) (string, []float32, error) {
	label := HeuristicLabel(c)
	vec := HashEmbed(c.Name+" "+c.Content, DefaultEmbeddingDim)
	return label, vec, nil
}

func (DefaultAnnotator) Embed(_ context.Context, text string) ([]float32, error) {
	return HashEmbed(text, DefaultEmbeddingDim), nil
}

// HeuristicLabel composes a short label from a chunk's name, file, and
// line range, bounded to DefaultLabelWordBudget words.
func HeuristicLabel(c *chunk.Chunk) string {
	var sb strings.Builder
	if c.Name != "" {
		sb.WriteString(c.Type)
		sb.WriteByte(' ')
		sb.WriteString(c.Name)
	} else {
		sb.WriteString(c.Type)
	}
	sb.WriteString(" in ")
	sb.WriteString(c.FilePath)
	sb.WriteString(" (lines ")
	sb.WriteString(strconv.Itoa(c.Line))
	sb.WriteByte('-')
	sb.WriteString(strconv.Itoa(c.EndLine))
	sb.WriteString("): ")
	sb.WriteString(c.Content)

	words := strings.Fields(sb.String())
	if len(words) > DefaultLabelWordBudget {
		words = words[:DefaultLabelWordBudget]
	}
	return strings.Join(words, " ")
}

// HashEmbed hashes every token of text with SHA-256 and accumulates the
// digest's bytes into a fixed-dimension vector, giving a deterministic,
// model-free embedding: identical text always produces an identical
// vector, and similar token sets produce vectors with high cosine
// similarity by construction.
func HashEmbed(text string, dim int) []float32 {
	vec := make([]float32, dim)
	for _, tok := range tokenize.Tokenize(text) {
		sum := sha256.Sum256([]byte(tok))
		for i, b := range sum {
			vec[i%dim] += float32(b) / 255.0
		}
	}
	return vec
}

// DefaultRelevanceFilter keeps chunks whose name+content, lowercased,
// contains any query token; if none survive, it returns the input
// unfiltered rather than over-pruning a hybrid result set.
func DefaultRelevanceFilter(_ context.Context, query string, chunks []AnnotatedChunk) ([]AnnotatedChunk, error) {
	tokens := tokenize.Tokenize(query)
	if len(tokens) == 0 {
		return chunks, nil
	}

	var kept []AnnotatedChunk
	for _, ac := range chunks {
		haystack := strings.ToLower(ac.Chunk.Name + " " + ac.Chunk.Content)
		for _, tok := range tokens {
			if strings.Contains(haystack, tok) {
				kept = append(kept, ac)
				break
			}
		}
	}
	if len(kept) == 0 {
		return chunks, nil
	}
	return kept, nil
}
