package graph

import (
	"testing"

	"github.com/codegraph/retrieval/internal/rerrors"
	"github.com/stretchr/testify/require"
)

func TestCountWithLabelFilter(t *testing.T) {
	s := New()
	_, err := s.Run(`CREATE (a:Person {name:'A'}), (b:Person {name:'B'}), (c:Animal {name:'C'})`)
	require.NoError(t, err)

	rows, err := s.Run(`MATCH (p:Person) RETURN count(*) AS c`)
	require.NoError(t, err)
	require.Equal(t, []Row{{"c": float64(2)}}, rows)
}

func TestStringOperators(t *testing.T) {
	s := New()
	_, err := s.Run(`CREATE (a:File {filePath:'/path/to/a.ts'}), (b:File {filePath:'/path/to/b.ts'}), (c:File {filePath:'/root/other/c.ts'})`)
	require.NoError(t, err)

	rows, err := s.Run(`MATCH (f:File) WHERE f.filePath ENDS WITH '/b.ts' RETURN count(*) AS c`)
	require.NoError(t, err)
	require.Equal(t, []Row{{"c": float64(1)}}, rows)

	rows, err = s.Run(`MATCH (f:File) WHERE f.filePath STARTS WITH '/path' RETURN count(*) AS c`)
	require.NoError(t, err)
	require.Equal(t, []Row{{"c": float64(2)}}, rows)

	rows, err = s.Run(`MATCH (f:File) WHERE f.filePath CONTAINS '/other/' RETURN count(*) AS c`)
	require.NoError(t, err)
	require.Equal(t, []Row{{"c": float64(1)}}, rows)
}

func TestMalformedQueryLeavesStoreUnchanged(t *testing.T) {
	s := New()
	_, err := s.Run(`CREATE (a:Person {name:'A'})`)
	require.NoError(t, err)

	_, err = s.Run(`MATCH (n RETURN n`)
	require.Error(t, err)
	require.Equal(t, rerrors.CategoryQueryParse, rerrors.CategoryOf(err))

	snap := s.Snapshot()
	require.Len(t, snap.Nodes, 1)
}

func TestDistinctDedupsAndOrderByIsSorted(t *testing.T) {
	s := New()
	_, err := s.Run(`CREATE (a:Person {name:'Bob'}), (b:Person {name:'Ann'}), (c:Person {name:'Ann'})`)
	require.NoError(t, err)

	rows, err := s.Run(`MATCH (p:Person) RETURN DISTINCT p.name AS name ORDER BY name`)
	require.NoError(t, err)
	require.Equal(t, []Row{{"name": "Ann"}, {"name": "Bob"}}, rows)
}

func TestRelationshipTraversalAndCrossPatternJoin(t *testing.T) {
	s := New()
	_, err := s.Run(`CREATE (f:File {filePath:'/a.go'})-[:contains]->(c:Chunk {id:'chunk-1'})`)
	require.NoError(t, err)

	rows, err := s.Run(`MATCH (f:File)-[:contains]->(c:Chunk) RETURN c.id AS id`)
	require.NoError(t, err)
	require.Equal(t, []Row{{"id": "chunk-1"}}, rows)

	rows, err = s.Run(`MATCH (f:File {filePath:'/a.go'}), (c:Chunk {id:'chunk-1'}) RETURN f.filePath AS path, c.id AS id`)
	require.NoError(t, err)
	require.Equal(t, []Row{{"path": "/a.go", "id": "chunk-1"}}, rows)
}

func TestCallDbLabels(t *testing.T) {
	s := New()
	_, err := s.Run(`CREATE (a:Person {name:'A'}), (b:Animal {name:'B'})`)
	require.NoError(t, err)

	rows, err := s.Run(`CALL db.labels()`)
	require.NoError(t, err)
	require.Equal(t, []Row{{"label": "Animal"}, {"label": "Person"}}, rows)
}

func TestCollectAndLimit(t *testing.T) {
	s := New()
	_, err := s.Run(`CREATE (a:Person {name:'A'}), (b:Person {name:'B'}), (c:Person {name:'C'})`)
	require.NoError(t, err)

	rows, err := s.Run(`MATCH (p:Person) RETURN p.name AS name ORDER BY name LIMIT 2`)
	require.NoError(t, err)
	require.Equal(t, []Row{{"name": "A"}, {"name": "B"}}, rows)

	agg, err := s.Run(`MATCH (p:Person) RETURN collect(p.name) AS names`)
	require.NoError(t, err)
	require.Len(t, agg, 1)
	require.ElementsMatch(t, []any{"A", "B", "C"}, agg[0]["names"])
}
