package graph

import (
	"github.com/codegraph/retrieval/internal/tokenize"
)

// ChunkRecord is the minimal view of a catalog chunk the graph rebuild
// needs. It is a plain struct (not *chunk.Chunk) to keep this package
// independent of internal/chunk.
type ChunkRecord struct {
	ID          string
	FilePath    string
	Language    string
	Type        string
	Name        string
	ContentHash string
	Content     string
	Line        int
	EndLine     int
	ParentID    string
	IsFile      bool
}

// Rebuild replaces the store's contents wholesale from records: one node
// per chunk with labels File:Chunk or Code:Chunk, a CONTAINS relationship
// per parent/child pair, and a best-effort REFERENCES relationship for
// every (usage, definition) pair in distinct files where the usage's
// content contains the definition's name as a token.
//
// This has the same net effect as running one multi-pattern CREATE over
// the whole catalog, but goes through the store's node/relationship
// primitives directly rather than building and reparsing a single giant
// query string on every rebuild; the query language remains available
// unchanged for ad hoc reads against the result.
func (s *Store) Rebuild(records []ChunkRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = nil
	s.rels = nil
	s.nextNode = 0
	s.nextRel = 0

	byID := make(map[string]*Node, len(records))
	for _, r := range records {
		labels := []string{"Code", "Chunk"}
		if r.IsFile {
			labels = []string{"File", "Chunk"}
		}
		props := map[string]any{
			"id":          r.ID,
			"filePath":    r.FilePath,
			"language":    r.Language,
			"type":        r.Type,
			"name":        r.Name,
			"line":        float64(r.Line),
			"endLine":     float64(r.EndLine),
			"contentHash": r.ContentHash,
			"content":     r.Content,
		}
		byID[r.ID] = s.createNode(labels, props)
	}

	for _, r := range records {
		if r.ParentID == "" {
			continue
		}
		parent, ok := byID[r.ParentID]
		if !ok {
			continue
		}
		s.createRelationship(parent.ID, byID[r.ID].ID, "CONTAINS", nil)
	}

	for _, usage := range records {
		if usage.IsFile {
			continue
		}
		usageTokens := tokenSet(usage.Content)
		for _, def := range records {
			if def.IsFile || def.Name == "" || def.ID == usage.ID || def.FilePath == usage.FilePath {
				continue
			}
			if usageTokens[foldTokens(def.Name)] {
				s.createRelationship(byID[usage.ID].ID, byID[def.ID].ID, "REFERENCES", nil)
			}
		}
	}
}

func tokenSet(content string) map[string]bool {
	set := map[string]bool{}
	for _, tok := range tokenize.Tokenize(content) {
		set[tok] = true
	}
	return set
}

// foldTokens folds a definition's name the same way Tokenize folds
// content, since a name may itself be a multi-token identifier (e.g.
// "HandleRequest" tokenizes whole, matching Tokenize's no-stemming,
// no-splitting-on-case behavior).
func foldTokens(name string) string {
	toks := tokenize.Tokenize(name)
	if len(toks) == 0 {
		return ""
	}
	return toks[0]
}
