package chunk

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// sitterNode adapts *sitter.Node to the generic SyntaxNode interface, so
// the chunker's walk never imports the tree-sitter package directly.
type sitterNode struct {
	n *sitter.Node
}

func (s sitterNode) Kind() string { return s.n.Type() }

func (s sitterNode) Start() (uint32, uint32) {
	return s.n.StartByte(), s.n.StartPoint().Row
}

func (s sitterNode) End() (uint32, uint32) {
	return s.n.EndByte(), s.n.EndPoint().Row
}

func (s sitterNode) ChildCount() int { return int(s.n.ChildCount()) }

func (s sitterNode) Child(i int) SyntaxNode {
	c := s.n.Child(i)
	if c == nil {
		return nil
	}
	return sitterNode{n: c}
}

func (s sitterNode) Text(source []byte) string {
	start, end := s.n.StartByte(), s.n.EndByte()
	if start >= end || int(end) > len(source) {
		return ""
	}
	return string(source[start:end])
}

// TreeSitterProducer parses source into the generic SyntaxNode interface
// using the tree-sitter grammar registered for language.
type TreeSitterProducer struct {
	registry *LanguageRegistry
}

// NewTreeSitterProducer builds a producer over the given registry.
func NewTreeSitterProducer(registry *LanguageRegistry) *TreeSitterProducer {
	return &TreeSitterProducer{registry: registry}
}

// Parse returns the root SyntaxNode for source under language, or an
// error if the language is unregistered or the parse itself fails. This
// is the one place a failure must be treated as "the chunker falls back
// to a file-only chunk" by the caller.
func (p *TreeSitterProducer) Parse(ctx context.Context, source []byte, language string) (SyntaxNode, error) {
	tsLang, ok := p.registry.GetTreeSitterLanguage(language)
	if !ok {
		return nil, fmt.Errorf("chunk: unsupported language %q", language)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(tsLang)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("chunk: parse failed: %w", err)
	}
	if tree == nil || tree.RootNode() == nil {
		return nil, fmt.Errorf("chunk: parse produced no tree")
	}
	return sitterNode{n: tree.RootNode()}, nil
}
