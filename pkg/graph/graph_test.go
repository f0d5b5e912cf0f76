package graph

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iggraph/pkg/logger"
	"iggraph/pkg/models"
)

func summary(id, username, name string) models.AccountSummary {
	return models.AccountSummary{ID: id, Username: username, DisplayName: name}
}

func TestAddNodesIsIdempotent(t *testing.T) {
	g := New(nil)
	batch := []models.AccountSummary{summary("1", "ann", "Ann"), summary("2", "bob", "")}

	added := g.AddNodes(batch...)
	assert.Equal(t, []string{"1", "2"}, added)

	added = g.AddNodes(batch...)
	assert.Empty(t, added)
	assert.Equal(t, 2, g.NodeCount())
}

func TestAddNodesNeverDowngrades(t *testing.T) {
	g := New(nil)
	g.Enrich(&models.Account{
		AccountSummary: summary("1", "ann", "Ann Example"),
		Profile:        models.Profile{Biography: "hello", FollowedByCount: 10},
	})

	g.AddNodes(summary("1", "ann_renamed", ""))

	n, ok := g.Node("1")
	require.True(t, ok)
	assert.Equal(t, "ann", n.Username)
	assert.Equal(t, "Ann Example", n.DisplayName)
	require.NotNil(t, n.Profile)
	assert.Equal(t, "hello", n.Profile.Biography)
}

func TestAddEdgesDeduplicates(t *testing.T) {
	g := New(nil)
	g.AddNodes(summary("a", "a", ""), summary("b", "b", ""), summary("c", "c", ""))

	assert.Equal(t, 2, g.AddEdges("a", "b", "c"))
	assert.Equal(t, 0, g.AddEdges("a", "b", "c"))
	assert.Equal(t, 1, g.AddEdges("b", "a", "a"))

	assert.Equal(t, 3, g.EdgeCount())
	assert.Equal(t, 1, g.InDegree("a"))
	assert.Equal(t, 1, g.InDegree("c"))
	assert.Equal(t, []string{"b", "c"}, g.Successors("a"))
	assert.True(t, g.HasEdge("b", "a"))
	assert.False(t, g.HasEdge("a", "a"))
}

func TestMergeTwiceYieldsSameGraph(t *testing.T) {
	merge := func(g *FollowGraph) {
		g.AddNodes(summary("b", "b", ""), summary("c", "c", ""))
		g.AddEdges("a", "b", "c")
	}
	once, twice := New(nil), New(nil)
	once.AddNodes(summary("a", "a", ""))
	twice.AddNodes(summary("a", "a", ""))
	merge(once)
	merge(twice)
	merge(twice)

	assert.Equal(t, once.Nodes(), twice.Nodes())
	assert.Equal(t, once.Edges(), twice.Edges())
}

func TestAddNodesLogsOutcome(t *testing.T) {
	tl := logger.NewTestLogger()
	g := New(tl)
	g.AddNodes(summary("1", "ann", ""))
	g.AddNodes(summary("1", "ann", ""))

	assert.True(t, tl.HasMessage("Node added"))
	assert.True(t, tl.HasMessage("Node already present"))
}

func TestGMLRoundTrip(t *testing.T) {
	g := New(nil)
	g.AddNodes(summary("100", "ann", `Ann "the" Émigré & co`), summary("200", "bob", ""))
	g.Enrich(&models.Account{
		AccountSummary: summary("300", "cat", "Cat"),
		Profile: models.Profile{
			Biography:       "line one\nline two",
			FollowedByCount: 42,
			IsVerified:      true,
		},
	})
	g.AddEdges("100", "200", "300")
	g.AddEdges("300", "100")

	var buf bytes.Buffer
	require.NoError(t, g.WriteGML(&buf))

	loaded, err := ReadGML(&buf, nil)
	require.NoError(t, err)

	assert.Equal(t, g.Nodes(), loaded.Nodes())
	assert.Equal(t, g.Edges(), loaded.Edges())

	ann, _ := loaded.Node("100")
	assert.Equal(t, `Ann "the" Émigré & co`, ann.DisplayName)
	assert.Nil(t, ann.Profile)

	cat, _ := loaded.Node("300")
	require.NotNil(t, cat.Profile)
	assert.Equal(t, "line one\nline two", cat.Profile.Biography)
	assert.Equal(t, 42, cat.Profile.FollowedByCount)
	assert.True(t, cat.Profile.IsVerified)
}

func TestGMLOmitsEmptyAttributes(t *testing.T) {
	g := New(nil)
	g.AddNodes(summary("1", "ann", ""))
	g.Enrich(&models.Account{AccountSummary: summary("2", "bob", ""), Profile: models.Profile{MediaCount: 0, IsPrivate: false}})

	var buf bytes.Buffer
	require.NoError(t, g.WriteGML(&buf))
	out := buf.String()

	assert.NotContains(t, out, "fullName")
	assert.NotContains(t, out, "mediaCount")
	assert.NotContains(t, out, "isPrivate")
	assert.Contains(t, out, `username "bob"`)
}

func TestReadGMLFromOtherProducers(t *testing.T) {
	doc := `
# written elsewhere
Creator "someone"
graph [
  directed 1
  weighted 0
  node [ id 7 label "x" username "xu" color "red" ]
  node [ id 8 ]
  edge [ source 7 target 8 weight 2.5 ]
]`
	g, err := ReadGML(strings.NewReader(doc), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "8"}, g.Nodes())
	assert.True(t, g.HasEdge("x", "8"))
}

func TestReadGMLUndirected(t *testing.T) {
	doc := `graph [ node [ id 0 label "a" ] node [ id 1 label "b" ] edge [ source 0 target 1 ] ]`
	g, err := ReadGML(strings.NewReader(doc), nil)
	require.NoError(t, err)
	assert.True(t, g.HasEdge("a", "b"))
	assert.True(t, g.HasEdge("b", "a"))
}

func TestReadGMLErrors(t *testing.T) {
	tests := map[string]string{
		"no graph":     `node [ id 1 ]`,
		"unterminated": `graph [ node [ id 1 label "a ]`,
		"missing ]":    `graph [ node [ id 1 ]`,
		"dangling":     `graph [ node [ id 1 ] edge [ source 1 target 9 ] ]`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadGML(strings.NewReader(doc), nil)
			assert.Error(t, err)
		})
	}
}

func TestWriteVisJSON(t *testing.T) {
	g := New(nil)
	g.AddEdges("a", "b")
	g.AddEdges("b", "c")

	var buf bytes.Buffer
	require.NoError(t, g.WriteVisJSON(&buf))

	var doc struct {
		Nodes []struct {
			ID    int    `json:"id"`
			Label string `json:"label"`
		} `json:"nodes"`
		Edges []struct {
			From int `json:"from"`
			To   int `json:"to"`
		} `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Nodes, 3)
	assert.Equal(t, "b", doc.Nodes[1].Label)
	require.Len(t, doc.Edges, 2)
	assert.Equal(t, 1, doc.Edges[1].From)
	assert.Equal(t, 2, doc.Edges[1].To)
}
