package graph

import (
	"sort"

	"iggraph/pkg/logger"
	"iggraph/pkg/models"
)

// Node is one account in the follow graph. Profile is nil for accounts only
// seen as follow targets.
type Node struct {
	ID          string
	Username    string
	DisplayName string
	Profile     *models.Profile
}

// Edge is a directed follow relationship
type Edge struct {
	Source string
	Target string
}

// FollowGraph is a simple directed graph of follow relationships. Nodes and
// edges are only ever added during a crawl.
type FollowGraph struct {
	nodes map[string]*Node
	order []string
	succ  map[string]map[string]struct{}
	indeg map[string]int
	edges int
	log   logger.Logger
}

// New creates an empty graph
func New(log logger.Logger) *FollowGraph {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &FollowGraph{
		nodes: make(map[string]*Node),
		succ:  make(map[string]map[string]struct{}),
		indeg: make(map[string]int),
		log:   log,
	}
}

// AddNodes adds a node for each summary not already present and returns the
// ids that were new. Existing nodes are left untouched.
func (g *FollowGraph) AddNodes(summaries ...models.AccountSummary) []string {
	var added []string
	for _, s := range summaries {
		if _, ok := g.nodes[s.ID]; ok {
			g.log.DebugWithFields("Node already present", map[string]interface{}{
				"account_id": s.ID,
				"username":   s.Username,
			})
			continue
		}
		g.insert(&Node{ID: s.ID, Username: s.Username, DisplayName: s.DisplayName})
		added = append(added, s.ID)
		g.log.DebugWithFields("Node added", map[string]interface{}{
			"account_id": s.ID,
			"username":   s.Username,
		})
	}
	return added
}

// Enrich records the full profile of a tracked account on its node,
// creating the node if needed.
func (g *FollowGraph) Enrich(account *models.Account) {
	node, ok := g.nodes[account.ID]
	if !ok {
		node = &Node{ID: account.ID}
		g.insert(node)
	}
	if account.Username != "" {
		node.Username = account.Username
	}
	if account.DisplayName != "" {
		node.DisplayName = account.DisplayName
	}
	profile := account.Profile
	node.Profile = &profile
}

func (g *FollowGraph) insert(n *Node) {
	g.nodes[n.ID] = n
	g.order = append(g.order, n.ID)
}

// AddEdges adds source -> d for every destination, creating bare nodes for
// unknown endpoints. Duplicate edges are ignored. Returns the number of new edges.
func (g *FollowGraph) AddEdges(source string, destinations ...string) int {
	if _, ok := g.nodes[source]; !ok {
		g.insert(&Node{ID: source})
	}
	added := 0
	for _, d := range destinations {
		if _, ok := g.nodes[d]; !ok {
			g.insert(&Node{ID: d})
		}
		out := g.succ[source]
		if out == nil {
			out = make(map[string]struct{})
			g.succ[source] = out
		}
		if _, dup := out[d]; dup {
			continue
		}
		out[d] = struct{}{}
		g.indeg[d]++
		g.edges++
		added++
	}
	return added
}

// HasNode reports whether id is a node
func (g *FollowGraph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// HasEdge reports whether the edge source -> target exists
func (g *FollowGraph) HasEdge(source, target string) bool {
	_, ok := g.succ[source][target]
	return ok
}

// Node returns a copy of the node with the given id
func (g *FollowGraph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns node ids in insertion order
func (g *FollowGraph) Nodes() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Successors returns the targets of id's outgoing edges, sorted
func (g *FollowGraph) Successors(id string) []string {
	out := make([]string, 0, len(g.succ[id]))
	for d := range g.succ[id] {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// InDegree returns the number of edges pointing at id
func (g *FollowGraph) InDegree(id string) int {
	return g.indeg[id]
}

// Edges returns all edges ordered by source insertion order, then target id
func (g *FollowGraph) Edges() []Edge {
	out := make([]Edge, 0, g.edges)
	for _, src := range g.order {
		for _, d := range g.Successors(src) {
			out = append(out, Edge{Source: src, Target: d})
		}
	}
	return out
}

func (g *FollowGraph) NodeCount() int { return len(g.nodes) }
func (g *FollowGraph) EdgeCount() int { return g.edges }
