package centrality

import (
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iggraph/pkg/logger"
)

type edgeList map[string][]string

func (e edgeList) Nodes() []string {
	seen := map[string]bool{}
	for src, dsts := range e {
		seen[src] = true
		for _, d := range dsts {
			seen[d] = true
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (e edgeList) Successors(id string) []string { return e[id] }

func TestInDegreeCentrality(t *testing.T) {
	g := edgeList{"a": {"b", "c"}, "b": {"c"}}
	res := InDegreeCentrality(g)

	assert.Equal(t, 0.0, res.Scores["a"])
	assert.Equal(t, 0.5, res.Scores["b"])
	assert.Equal(t, 1.0, res.Scores["c"])
	assert.Equal(t, []string{"c", "b", "a"}, res.Ranked)
	assert.Equal(t, InDegree, res.Algorithm)
}

func TestInDegreeCentralitySingleNode(t *testing.T) {
	g := edgeList{"solo": nil}
	res := InDegreeCentrality(g)
	assert.Equal(t, map[string]float64{"solo": 1}, res.Scores)
}

func TestEigenvectorCentralityCycle(t *testing.T) {
	g := edgeList{"a": {"b"}, "b": {"c"}, "c": {"a"}}
	res, err := EigenvectorCentrality(g, DefaultConfig())
	require.NoError(t, err)

	want := 1 / math.Sqrt(3)
	for _, id := range []string{"a", "b", "c"} {
		assert.InDelta(t, want, res.Scores[id], 1e-9, id)
	}
	assert.Equal(t, []string{"a", "b", "c"}, res.Ranked, "ties break by id")
	assert.True(t, res.Converged)
}

func TestEigenvectorCentralityOrdersByInfluence(t *testing.T) {
	// A->B, B->A, B->C, C->A, C->D
	g := edgeList{"A": {"B"}, "B": {"A", "C"}, "C": {"A", "D"}}
	res, err := EigenvectorCentrality(g, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C", "D"}, res.Ranked)
	assert.Equal(t, []string{"A", "B", "C"}, res.Top(3))
	assert.Greater(t, res.Scores["C"], res.Scores["D"])
}

func TestEigenvectorCentralityNotConverged(t *testing.T) {
	g := edgeList{"A": {"B"}}
	_, err := EigenvectorCentrality(g, DefaultConfig())
	assert.True(t, errors.Is(err, ErrNotConverged))
}

func TestEigenvectorCentralityEmpty(t *testing.T) {
	res, err := EigenvectorCentrality(edgeList{}, DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, res.Scores)
	assert.Empty(t, res.Top(3))
}

func TestRankerFallsBackToInDegree(t *testing.T) {
	tl := logger.NewTestLogger()
	r := NewRanker(Eigenvector, DefaultConfig(), tl)
	var rounds []*Result
	r.OnRound = func(res *Result) { rounds = append(rounds, res) }

	res, err := r.Rank(edgeList{"A": {"B"}})
	require.NoError(t, err)

	assert.Equal(t, InDegree, res.Algorithm)
	assert.False(t, res.Converged)
	assert.Equal(t, map[string]float64{"A": 0, "B": 1}, res.Scores)
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 1)
	assert.Len(t, rounds, 1)
}

func TestRankerUsesEigenvectorWhenItConverges(t *testing.T) {
	tl := logger.NewTestLogger()
	r := NewRanker(Eigenvector, DefaultConfig(), tl)

	res, err := r.Rank(edgeList{"A": {"B"}, "B": {"A", "C"}})
	require.NoError(t, err)

	assert.Equal(t, Eigenvector, res.Algorithm)
	assert.Empty(t, tl.GetMessagesByLevel("WARN"))
	assert.InDelta(t, res.Scores["A"], res.Scores["C"], 1e-12)
}

func TestParseAlgorithm(t *testing.T) {
	tests := map[string]Algorithm{
		"eigenvector":             Eigenvector,
		"EIGENVECTOR_CENTRALITY":  Eigenvector,
		"in-degree":               InDegree,
		"IN_DEGREE_CENTRALITY":    InDegree,
	}
	for in, want := range tests {
		got, err := ParseAlgorithm(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseAlgorithm("betweenness")
	assert.Error(t, err)
}
