// Package coordinator owns a repository's chunk catalog, Merkle tree of
// file hashes, graph store, and polling watcher, and ties them to a
// SearchDB so ingest, incremental updates, and hybrid/graph search are
// all driven from one place.
package coordinator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/codegraph/retrieval/internal/chunk"
	"github.com/codegraph/retrieval/internal/graph"
	"github.com/codegraph/retrieval/internal/rerrors"
	"github.com/codegraph/retrieval/internal/searchdb"
)

// Coordinator owns the root, the chunk catalog, the graph store, the
// Merkle tree, and the watcher. File-system access is read-only; all
// mutation happens through Ingest and the watcher's poll loop.
type Coordinator struct {
	root    string
	chunker *chunk.Chunker
	search  *searchdb.SearchDB
	graph   *graph.Store
	log     *slog.Logger

	mu          sync.RWMutex
	catalog     map[string]*chunk.Chunk // chunk id -> chunk
	fileChunks  map[string][]string     // file path -> chunk ids owned by that file
	leaves      map[string]Leaf         // file path -> leaf
	merkleRoot  string
	chunkOpts   chunk.Options

	watcherCancel context.CancelFunc
	watcherDone   chan struct{}
}

// Option configures a Coordinator at construction time.
type Option func(*Coordinator)

// WithChunkOptions overrides the chunker's walk options (language
// allowlist, custom path filter).
func WithChunkOptions(opts chunk.Options) Option {
	return func(c *Coordinator) { c.chunkOpts = opts }
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

// New builds a Coordinator rooted at root, backed by db for chunk
// search.
func New(root string, db *searchdb.SearchDB, opts ...Option) *Coordinator {
	c := &Coordinator{
		root:       root,
		chunker:    chunk.NewChunker(),
		search:     db,
		graph:      graph.New(),
		log:        slog.Default(),
		catalog:    map[string]*chunk.Chunk{},
		fileChunks: map[string][]string{},
		leaves:     map[string]Leaf{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ingest walks the repository, chunks every matched file, feeds every
// chunk to the search DB, rebuilds the graph from the full catalog, and
// recomputes the Merkle root. Running it twice without any file change
// yields identical catalog ids and an identical Merkle root.
func (c *Coordinator) Ingest(ctx context.Context) error {
	chunks, err := c.chunker.ChunkCodebase(ctx, c.root, c.chunkOpts)
	if err != nil {
		return rerrors.IO(err, "walk codebase")
	}

	leaves := computeLeaves(chunks)

	c.mu.Lock()
	c.catalog = map[string]*chunk.Chunk{}
	c.fileChunks = map[string][]string{}
	for _, ch := range chunks {
		c.catalog[ch.ID] = ch
		c.fileChunks[ch.FilePath] = append(c.fileChunks[ch.FilePath], ch.ID)
	}
	c.leaves = leaves
	c.mu.Unlock()

	if err := c.search.AddMany(ctx, chunks); err != nil {
		return err
	}

	c.rebuildGraphAndMerkle()
	return nil
}

// computeLeaves builds one Merkle leaf per file chunk. The leaf hash is
// the file chunk's RawHash, H(file_bytes) computed before NUL stripping,
// so it matches exactly what the watcher recomputes on each poll tick
// (see watcher.go); using the NUL-stripped ContentHash here instead would
// make the two hash bases disagree for any file containing a NUL byte,
// and the watcher would treat that file as changed on every tick even
// though its bytes never change.
func computeLeaves(chunks []*chunk.Chunk) map[string]Leaf {
	leaves := make(map[string]Leaf)
	for _, ch := range chunks {
		if ch.Type != "file" {
			continue
		}
		leaves[ch.FilePath] = Leaf{Path: ch.FilePath, Hash: ch.RawHash}
	}
	return leaves
}

func (c *Coordinator) rebuildGraphAndMerkle() {
	c.mu.RLock()
	records := make([]graph.ChunkRecord, 0, len(c.catalog))
	for _, ch := range c.catalog {
		records = append(records, toRecord(ch))
	}
	leaves := make([]Leaf, 0, len(c.leaves))
	for _, l := range c.leaves {
		leaves = append(leaves, l)
	}
	c.mu.RUnlock()

	c.graph.Rebuild(records)

	root := merkleRoot(leaves)
	c.mu.Lock()
	c.merkleRoot = root
	c.mu.Unlock()
}

func toRecord(ch *chunk.Chunk) graph.ChunkRecord {
	return graph.ChunkRecord{
		ID:          ch.ID,
		FilePath:    ch.FilePath,
		Language:    ch.Language,
		Type:        ch.Type,
		Name:        ch.Name,
		ContentHash: ch.ContentHash,
		Content:     ch.Content,
		Line:        ch.Line,
		EndLine:     ch.EndLine,
		ParentID:    ch.ParentID,
		IsFile:      ch.Type == "file",
	}
}

// MerkleRoot returns the current Merkle root over tracked files' bytes.
func (c *Coordinator) MerkleRoot() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.merkleRoot
}

// SearchText runs a hybrid BM25+vector search over the catalog.
func (c *Coordinator) SearchText(ctx context.Context, query string, opts searchdb.SearchOptions) ([]searchdb.AnnotatedChunk, error) {
	return c.search.Search(ctx, query, opts)
}

// SearchGraph runs a pattern query against the graph store and resolves
// any Chunk-labeled rows back to catalog chunks.
func (c *Coordinator) SearchGraph(query string) ([]graph.Row, []any, error) {
	rows, err := c.graph.Run(query)
	if err != nil {
		return nil, nil, err
	}
	chunks := graph.RowsToChunks(rows, (*catalogLookup)(c))
	return rows, chunks, nil
}

// Snapshot exposes the graph store's current contents.
func (c *Coordinator) Snapshot() graph.Snapshot {
	return c.graph.Snapshot()
}

// catalogLookup adapts Coordinator to graph.ChunkLookup without
// exporting the catalog's internal locking.
type catalogLookup Coordinator

func (c *catalogLookup) ByID(id string) (any, bool) {
	co := (*Coordinator)(c)
	co.mu.RLock()
	defer co.mu.RUnlock()
	ch, ok := co.catalog[id]
	return ch, ok
}

func (c *catalogLookup) ByFilePath(path string) (any, bool) {
	co := (*Coordinator)(c)
	co.mu.RLock()
	defer co.mu.RUnlock()
	ids, ok := co.fileChunks[path]
	if !ok {
		return nil, false
	}
	for _, id := range ids {
		if ch := co.catalog[id]; ch != nil && ch.Type == "file" {
			return ch, true
		}
	}
	return nil, false
}
