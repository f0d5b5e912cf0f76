package centrality

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Graph is the read-only view of a directed graph the algorithms need
type Graph interface {
	Nodes() []string
	Successors(id string) []string
}

// Algorithm names a centrality measure
type Algorithm string

const (
	Eigenvector Algorithm = "eigenvector"
	InDegree    Algorithm = "in-degree"
)

// ParseAlgorithm accepts the short names as well as the historical
// EIGENVECTOR_CENTRALITY / IN_DEGREE_CENTRALITY spellings
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSuffix(strings.ToUpper(s), "_CENTRALITY")) {
	case "eigenvector":
		return Eigenvector, nil
	case "in-degree", "in_degree", "indegree":
		return InDegree, nil
	}
	return "", fmt.Errorf("unknown centrality measure %q", s)
}

// ErrNotConverged is returned when power iteration hits its iteration limit
var ErrNotConverged = errors.New("power iteration did not converge")

// Config holds power iteration parameters
type Config struct {
	MaxIterations int
	Tolerance     float64
}

// DefaultConfig matches the usual eigenvector centrality defaults
func DefaultConfig() Config {
	return Config{MaxIterations: 100, Tolerance: 1e-6}
}

// Result holds one ranking round
type Result struct {
	// Scores maps node id to score
	Scores map[string]float64
	// Ranked lists node ids by descending score, ties broken by id
	Ranked []string
	// Algorithm that produced the scores
	Algorithm Algorithm
	// Iterations run by power iteration; zero for in-degree
	Iterations int
	// Converged is false for a round that had to fall back to in-degree
	Converged bool
}

// Top returns at most n ids from the head of the ranking
func (r *Result) Top(n int) []string {
	if n > len(r.Ranked) {
		n = len(r.Ranked)
	}
	if n < 0 {
		n = 0
	}
	return r.Ranked[:n]
}

// EigenvectorCentrality scores nodes by the leading eigenvector of the
// adjacency matrix, where a node is important when important nodes follow
// it. Power iteration runs on A^T + I starting from the uniform vector and
// normalising by the Euclidean norm each round; it converges when the L1
// change falls below n*tolerance.
func EigenvectorCentrality(g Graph, cfg Config) (*Result, error) {
	ids := sortedNodes(g)
	n := len(ids)
	if n == 0 {
		return newResult(map[string]float64{}, Eigenvector, 0, true), nil
	}

	index := make(map[string]int, n)
	for i, id := range ids {
		index[id] = i
	}
	succ := make([][]int, n)
	for i, id := range ids {
		for _, d := range g.Successors(id) {
			if j, ok := index[d]; ok {
				succ[i] = append(succ[i], j)
			}
		}
	}

	x := make([]float64, n)
	for i := range x {
		x[i] = 1 / float64(n)
	}
	last := make([]float64, n)

	for iter := 1; iter <= cfg.MaxIterations; iter++ {
		copy(last, x)
		for i := range succ {
			for _, j := range succ[i] {
				x[j] += last[i]
			}
		}

		norm := 0.0
		for _, v := range x {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			norm = 1
		}
		for i := range x {
			x[i] /= norm
		}

		delta := 0.0
		for i := range x {
			delta += math.Abs(x[i] - last[i])
		}
		if delta < float64(n)*cfg.Tolerance {
			scores := make(map[string]float64, n)
			for i, id := range ids {
				scores[id] = x[i]
			}
			return newResult(scores, Eigenvector, iter, true), nil
		}
	}
	return nil, fmt.Errorf("eigenvector centrality after %d iterations: %w", cfg.MaxIterations, ErrNotConverged)
}

// InDegreeCentrality scores each node by the fraction of other nodes that
// follow it. Graphs with a single node score it 1.
func InDegreeCentrality(g Graph) *Result {
	ids := sortedNodes(g)
	n := len(ids)
	scores := make(map[string]float64, n)
	if n <= 1 {
		for _, id := range ids {
			scores[id] = 1
		}
		return newResult(scores, InDegree, 0, true)
	}

	for _, id := range ids {
		scores[id] = 0
	}
	for _, id := range ids {
		for _, d := range g.Successors(id) {
			if _, ok := scores[d]; ok {
				scores[d]++
			}
		}
	}
	scale := 1 / float64(n-1)
	for id := range scores {
		scores[id] *= scale
	}
	return newResult(scores, InDegree, 0, true)
}

func sortedNodes(g Graph) []string {
	ids := g.Nodes()
	sort.Strings(ids)
	return ids
}

func newResult(scores map[string]float64, algo Algorithm, iterations int, converged bool) *Result {
	ranked := make([]string, 0, len(scores))
	for id := range scores {
		ranked = append(ranked, id)
	}
	sort.Slice(ranked, func(i, j int) bool {
		si, sj := scores[ranked[i]], scores[ranked[j]]
		if si != sj {
			return si > sj
		}
		return ranked[i] < ranked[j]
	})
	return &Result{
		Scores:     scores,
		Ranked:     ranked,
		Algorithm:  algo,
		Iterations: iterations,
		Converged:  converged,
	}
}
