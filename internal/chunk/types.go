// Package chunk splits source files into a tree of retrievable units
// ("chunks") using a language-specific syntax tree, falling back to a
// single whole-file chunk whenever the tree producer fails. Chunks are
// both the unit of search indexing and nodes of the dependency graph.
package chunk

import "crypto/sha256"

// RelationKind names an edge between two chunks.
type RelationKind string

const (
	RelationContains   RelationKind = "contains"
	RelationDefines    RelationKind = "defines"
	RelationReferences RelationKind = "references"
)

// Relation is one outgoing edge from a chunk.
type Relation struct {
	Kind     RelationKind
	TargetID string
}

// Chunk is a contiguous span of source code: either a whole file, or a
// syntactic unit within one (function, method, class, ...).
type Chunk struct {
	ID          string
	FilePath    string // absolute
	Language    string
	Type        string // "file" or a language-specific chunk kind
	Name        string // optional; extracted from the syntax node
	Line        int    // 1-based, inclusive
	EndLine     int    // 1-based, inclusive
	Content     string
	ContentHash string
	RawHash     string // file chunks only: H(file_bytes) before NUL stripping
	ParentID    string // empty for the file chunk
	Relations   []Relation
}

// Hash returns the hex SHA-256 digest of s.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex(sum[:])
}

// HashBytes returns the hex SHA-256 digest of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex(sum[:])
}

func hex(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0x0f]
	}
	return string(out)
}

// ChunkID derives the deterministic id of a sub-file chunk from its file
// path and byte range.
func ChunkID(path string, startByte, endByte uint32) string {
	return Hash(path + ":" + itoa(int(startByte)) + ":" + itoa(int(endByte)))
}

// FileChunkID derives the deterministic id of a file's root chunk.
func FileChunkID(path string) string {
	return Hash(path + ":file")
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// LanguageConfig is a value-type payload describing how one language is
// chunked: its file extensions, the set of syntax-node types that each
// start a new chunk (mapped to a human-readable chunk kind), and how to
// pull a name out of a matching node.
type LanguageConfig struct {
	Name       string
	Extensions []string

	// ChunkNodeTypes maps a tree-sitter node type to the chunk kind
	// emitted for it (e.g. "function_declaration" -> "function").
	ChunkNodeTypes map[string]string

	// NameField is the tree-sitter field name usually holding the
	// identifier (most grammars call it "name"). It is recorded per
	// language; extractName does not read it.
	NameField string
}

// SyntaxNode is the generic tree-walk interface the chunker consumes.
// Any tree producer (tree-sitter today; anything tomorrow) can satisfy
// it by implementing conversion into this shape once.
type SyntaxNode interface {
	Kind() string
	Start() (byte uint32, line uint32)
	End() (byte uint32, line uint32)
	ChildCount() int
	Child(i int) SyntaxNode
	Text(source []byte) string
}
