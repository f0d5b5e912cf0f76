package graph

import (
	"encoding/json"
	"io"
)

type visNode struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

type visEdge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type visDocument struct {
	Nodes []visNode `json:"nodes"`
	Edges []visEdge `json:"edges"`
}

// WriteVisJSON writes the graph as {"nodes":[{id,label}],"edges":[{from,to}]},
// the shape consumed by vis.js network views. Node ids are positional.
func (g *FollowGraph) WriteVisJSON(w io.Writer) error {
	doc := visDocument{Nodes: []visNode{}, Edges: []visEdge{}}
	index := make(map[string]int, len(g.order))
	for i, id := range g.order {
		index[id] = i
		doc.Nodes = append(doc.Nodes, visNode{ID: i, Label: id})
	}
	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, visEdge{From: index[e.Source], To: index[e.Target]})
	}
	return json.NewEncoder(w).Encode(doc)
}
