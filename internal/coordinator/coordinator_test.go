package coordinator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codegraph/retrieval/internal/chunk"
	"github.com/codegraph/retrieval/internal/searchdb"
)

func intPtr(n int) *int { return &n }

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIngestIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n\nfunc Hello() {}\n")

	ctx := context.Background()
	c1 := New(dir, searchdb.New(searchdb.NewDefaultAnnotator()))
	require.NoError(t, c1.Ingest(ctx))
	root1 := c1.MerkleRoot()
	ids1 := catalogIDs(c1)

	c2 := New(dir, searchdb.New(searchdb.NewDefaultAnnotator()))
	require.NoError(t, c2.Ingest(ctx))
	root2 := c2.MerkleRoot()
	ids2 := catalogIDs(c2)

	require.Equal(t, root1, root2)
	require.ElementsMatch(t, ids1, ids2)
}

func TestIngestThenSearchText(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "db.go", "package main\n\nfunc ConnectPool() {}\n")
	writeFile(t, dir, "img.go", "package main\n\nfunc ProcessPhoto() {}\n")

	ctx := context.Background()
	c := New(dir, searchdb.New(searchdb.NewDefaultAnnotator()))
	require.NoError(t, c.Ingest(ctx))

	results, err := c.SearchText(ctx, "ConnectPool", searchdb.SearchOptions{BM25K: intPtr(5), KNNK: intPtr(0)})
	require.NoError(t, err)
	require.NotEmpty(t, results)
}

func TestIngestThenSearchGraph(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n\nfunc Hello() {}\n")

	ctx := context.Background()
	c := New(dir, searchdb.New(searchdb.NewDefaultAnnotator()))
	require.NoError(t, c.Ingest(ctx))

	rows, _, err := c.SearchGraph(`MATCH (n:File) RETURN count(*) AS c`)
	require.NoError(t, err)
	require.Equal(t, float64(1), rows[0]["c"])
}

func TestWatcherDetectsChangeAndRemove(t *testing.T) {
	dir := t.TempDir()
	keepPath := writeFile(t, dir, "keep.go", "package main\n\nfunc Keep() {}\n")
	removePath := writeFile(t, dir, "remove.go", "package main\n\nfunc Gone() {}\n")

	ctx := context.Background()
	c := New(dir, searchdb.New(searchdb.NewDefaultAnnotator()))
	require.NoError(t, c.Ingest(ctx))
	rootBefore := c.MerkleRoot()

	require.NoError(t, os.Remove(removePath))
	require.NoError(t, os.WriteFile(keepPath, []byte("package main\n\nfunc Keep() { /* changed */ }\n"), 0o644))

	require.NoError(t, c.poll(ctx))

	rootAfter := c.MerkleRoot()
	require.NotEqual(t, rootBefore, rootAfter)

	c.mu.RLock()
	_, stillThere := c.fileChunks[removePath]
	c.mu.RUnlock()
	require.False(t, stillThere)
}

// TestWatcherIgnoresUnchangedFileContainingNUL guards against leaves
// being keyed by the NUL-stripped content hash instead of H(file_bytes):
// if the two ever disagree for a NUL-containing file, poll would treat
// that file as changed on every single tick even though its bytes never
// change.
func TestWatcherIgnoresUnchangedFileContainingNUL(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.go", "package main\n\nfunc Hello() {}\n\x00trailing")

	ctx := context.Background()
	c := New(dir, searchdb.New(searchdb.NewDefaultAnnotator()))
	require.NoError(t, c.Ingest(ctx))
	rootBefore := c.MerkleRoot()

	fileID := chunk.FileChunkID(path)
	c.mu.RLock()
	before := c.catalog[fileID]
	c.mu.RUnlock()
	require.NotNil(t, before)

	require.NoError(t, c.poll(ctx))
	require.NoError(t, c.poll(ctx))

	c.mu.RLock()
	after := c.catalog[fileID]
	c.mu.RUnlock()
	require.Same(t, before, after, "watcher reprocessed an unchanged NUL-containing file")
	require.Equal(t, rootBefore, c.MerkleRoot())
}

func TestStartStopWatcher(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n\nfunc Hello() {}\n")

	ctx := context.Background()
	c := New(dir, searchdb.New(searchdb.NewDefaultAnnotator()))
	require.NoError(t, c.Ingest(ctx))

	c.StartWatcher(ctx, 20*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	c.StopWatcher()
}

func catalogIDs(c *Coordinator) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.catalog))
	for id := range c.catalog {
		ids = append(ids, id)
	}
	return ids
}
