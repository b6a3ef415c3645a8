package chunk

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkFileUnsupportedExtensionReturnsNil(t *testing.T) {
	c := NewChunker()
	chunks, err := c.ChunkFile(context.Background(), "a.rs", []byte("fn main() {}"))
	require.NoError(t, err)
	require.Nil(t, chunks)
}

func TestChunkFileAlwaysReturnsFileChunk(t *testing.T) {
	c := NewChunker()
	src := "package main\n\nfunc Hello() string {\n\treturn \"hi\"\n}\n"
	chunks, err := c.ChunkFile(context.Background(), "hello.go", []byte(src))
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	require.Equal(t, "file", chunks[0].Type)
	require.Equal(t, src, chunks[0].Content)
}

func TestChunkFileEmitsFunctionChunkWithContainsEdge(t *testing.T) {
	c := NewChunker()
	src := "package main\n\nfunc Hello() string {\n\treturn \"hi\"\n}\n"
	chunks, err := c.ChunkFile(context.Background(), "hello.go", []byte(src))
	require.NoError(t, err)

	var fn *Chunk
	for _, ch := range chunks {
		if ch.Type == "function" {
			fn = ch
		}
	}
	require.NotNil(t, fn)
	require.Equal(t, "Hello", fn.Name)
	require.Equal(t, chunks[0].ID, fn.ParentID)

	var containsEdges int
	for _, rel := range chunks[0].Relations {
		if rel.Kind == RelationContains && rel.TargetID == fn.ID {
			containsEdges++
		}
	}
	require.Equal(t, 1, containsEdges)
}

func TestChunkFileStripsNUL(t *testing.T) {
	c := NewChunker()
	raw := []byte("package main\x00\n")
	chunks, err := c.ChunkFile(context.Background(), "x.go", raw)
	require.NoError(t, err)
	require.NotContains(t, chunks[0].Content, "\x00")
}

// TestChunkFileRawHashCoversUnstrippedBytes guards the file chunk's
// RawHash against ever drifting to the NUL-stripped content: callers
// (the Merkle leaf builder, the watcher) rely on RawHash being exactly
// H(file_bytes), independent of what ContentHash hashes.
func TestChunkFileRawHashCoversUnstrippedBytes(t *testing.T) {
	c := NewChunker()
	raw := []byte("package main\x00\n")
	chunks, err := c.ChunkFile(context.Background(), "x.go", raw)
	require.NoError(t, err)

	fileChunk := chunks[0]
	require.Equal(t, HashBytes(raw), fileChunk.RawHash)
	require.NotEqual(t, fileChunk.ContentHash, fileChunk.RawHash)
}

func TestChunkCodebaseSkipsUnsupportedFileButEmitsGoodOnes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.go"), []byte("package main\n\nfunc Good() {}\n"), 0o644))
	// An unsupported extension: never read, never chunked, no error.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))

	c := NewChunker()
	chunks, err := c.ChunkCodebase(context.Background(), dir, Options{})
	require.NoError(t, err)

	var foundFunc bool
	for _, ch := range chunks {
		if ch.Type == "function" && ch.Name == "Good" {
			foundFunc = true
		}
	}
	require.True(t, foundFunc)
}

func TestChunkCodebaseSkipsVCSDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "config.go"), []byte("package x\nfunc X(){}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\nfunc Main(){}\n"), 0o644))

	c := NewChunker()
	chunks, err := c.ChunkCodebase(context.Background(), dir, Options{})
	require.NoError(t, err)
	for _, ch := range chunks {
		require.NotContains(t, ch.FilePath, ".git")
	}
}
