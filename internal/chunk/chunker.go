package chunk

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
)

// Options configures a single chunk operation. The zero value is valid.
type Options struct {
	WalkOptions
}

// Chunker walks a syntactic tree per language and emits a file chunk
// plus, on successful parse, a containment tree of sub-chunks beneath
// it. A parse failure is never fatal: the file chunk alone is returned.
type Chunker struct {
	registry *LanguageRegistry
	producer *TreeSitterProducer
	log      *slog.Logger
}

// NewChunker builds a Chunker over the default language registry.
func NewChunker() *Chunker {
	reg := DefaultRegistry()
	return &Chunker{
		registry: reg,
		producer: NewTreeSitterProducer(reg),
		log:      slog.Default(),
	}
}

// SupportedExtensions lists every extension the chunker recognizes.
func (c *Chunker) SupportedExtensions() []string {
	return c.registry.SupportedExtensions()
}

// ChunkFile reads raw file content and returns its chunk tree, or nil if
// the extension has no registered language. A file that matches is
// always represented by at least its file chunk.
func (c *Chunker) ChunkFile(ctx context.Context, path string, raw []byte) ([]*Chunk, error) {
	ext := extOf(path)
	config, ok := c.registry.GetByExtension(ext)
	if !ok {
		return nil, nil
	}

	content := stripNUL(raw)
	text := string(content)
	fileID := FileChunkID(path)
	fileChunk := &Chunk{
		ID:          fileID,
		FilePath:    path,
		Language:    config.Name,
		Type:        "file",
		Line:        1,
		EndLine:     lineCount(text),
		Content:     text,
		ContentHash: Hash(text),
		RawHash:     HashBytes(raw),
	}

	chunks := []*Chunk{fileChunk}
	byID := map[string]*Chunk{fileID: fileChunk}

	root, err := c.producer.Parse(ctx, content, config.Name)
	if err != nil {
		c.log.Debug("chunk: parse failed, falling back to file chunk", "path", path, "error", err)
		return chunks, nil
	}

	c.walk(root, content, path, config.Name, config.ChunkNodeTypes, fileID, byID, &chunks)
	return chunks, nil
}

// walk performs the depth-first tree walk described in the chunker's
// algorithm: a node whose kind is in nodeTypes starts a new chunk whose
// parent is the current top of the (implicit, recursion-carried) stack;
// the chunk becomes the new top for its own subtree and is popped again
// — by simply returning — once that subtree is fully visited.
func (c *Chunker) walk(node SyntaxNode, source []byte, path, language string, nodeTypes map[string]string, parentID string, byID map[string]*Chunk, out *[]*Chunk) {
	top := parentID
	if kind, ok := nodeTypes[node.Kind()]; ok {
		startByte, startLine := node.Start()
		endByte, endLine := node.End()
		id := ChunkID(path, startByte, endByte)
		content := node.Text(source)
		ch := &Chunk{
			ID:          id,
			FilePath:    path,
			Language:    language,
			Type:        kind,
			Name:        extractName(node, source, language),
			Line:        int(startLine) + 1,
			EndLine:     int(endLine) + 1,
			Content:     content,
			ContentHash: Hash(content),
			ParentID:    parentID,
		}
		byID[id] = ch
		*out = append(*out, ch)
		if parent, ok := byID[parentID]; ok {
			parent.Relations = append(parent.Relations, Relation{Kind: RelationContains, TargetID: id})
		}
		top = id
	}

	for i := 0; i < node.ChildCount(); i++ {
		c.walk(node.Child(i), source, path, language, nodeTypes, top, byID, out)
	}
}

// ChunkCodebase walks root and chunks every file with a registered
// language, honoring VCS/ignore-file/dependency-dir skipping.
func (c *Chunker) ChunkCodebase(ctx context.Context, root string, opts Options) ([]*Chunk, error) {
	var all []*Chunk
	err := walkCodebase(root, c.registry, opts.WalkOptions, func(absPath, relPath string) error {
		raw, readErr := os.ReadFile(absPath)
		if readErr != nil {
			c.log.Warn("chunk: skipping unreadable file", "path", absPath, "error", readErr)
			return nil
		}
		chunks, chunkErr := c.ChunkFile(ctx, absPath, raw)
		if chunkErr != nil {
			c.log.Warn("chunk: skipping file", "path", absPath, "error", chunkErr)
			return nil
		}
		all = append(all, chunks...)
		return nil
	})
	return all, err
}

// WalkFiles visits every matched file's absolute path under root,
// honoring the same VCS/ignore-file/dependency-dir/language filtering as
// ChunkCodebase, without reading or chunking any file. Callers that need
// to detect changes without re-parsing everything (the watcher) use this
// to enumerate the current file set.
func (c *Chunker) WalkFiles(root string, opts Options, visit func(absPath string) error) error {
	return walkCodebase(root, c.registry, opts.WalkOptions, func(absPath, _ string) error {
		return visit(absPath)
	})
}

func extOf(path string) string {
	i := strings.LastIndexByte(path, '.')
	slash := strings.LastIndexAny(path, "/\\")
	if i < 0 || i < slash {
		return ""
	}
	return path[i:]
}

func stripNUL(raw []byte) []byte {
	if !bytes.ContainsRune(raw, 0) {
		return raw
	}
	return bytes.ReplaceAll(raw, []byte{0}, nil)
}

func lineCount(s string) int {
	if s == "" {
		return 1
	}
	n := 1
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
		}
	}
	if strings.HasSuffix(s, "\n") {
		n--
	}
	return n
}
