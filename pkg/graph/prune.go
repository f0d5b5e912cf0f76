package graph

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// PruneOptions controls Prune
type PruneOptions struct {
	// Retained is the number of highest-scoring nodes kept; negative keeps all
	Retained int
	// MaxFollowers drops nodes whose followedByCount is at least this value; negative disables
	MaxFollowers int
	// OmitAttributes strips every node attribute from the result
	OmitAttributes bool
}

// Scorer assigns an importance score to every node of a graph
type Scorer func(g *FollowGraph) (map[string]float64, error)

// Prune returns a reduced copy of g holding only its most important nodes.
// Nodes in the copy are relabelled "<full name> (<username>)", or just the
// username when the account has no display name.
func Prune(g *FollowGraph, opts PruneOptions, score Scorer) (*FollowGraph, error) {
	work := New(g.log)
	for _, id := range g.order {
		n := *g.nodes[id]
		if opts.MaxFollowers >= 0 && n.Profile != nil && n.Profile.FollowedByCount >= opts.MaxFollowers {
			continue
		}
		work.insert(&n)
	}
	for _, e := range g.Edges() {
		if work.HasNode(e.Source) && work.HasNode(e.Target) {
			work.AddEdges(e.Source, e.Target)
		}
	}

	keep := make(map[string]bool, work.NodeCount())
	if opts.Retained < 0 || opts.Retained >= work.NodeCount() {
		for _, id := range work.order {
			keep[id] = true
		}
	} else {
		scores, err := score(work)
		if err != nil {
			return nil, fmt.Errorf("failed to score graph: %w", err)
		}
		ids := work.Nodes()
		sort.SliceStable(ids, func(i, j int) bool {
			if scores[ids[i]] != scores[ids[j]] {
				return scores[ids[i]] > scores[ids[j]]
			}
			return ids[i] < ids[j]
		})
		for _, id := range ids[:opts.Retained] {
			keep[id] = true
		}
	}

	out := New(g.log)
	labels := make(map[string]string, len(keep))
	used := make(map[string]bool, len(keep))
	for _, id := range work.order {
		if !keep[id] {
			continue
		}
		n := *work.nodes[id]
		label := displayLabel(&n)
		if used[label] {
			label = fmt.Sprintf("%s [%s]", label, id)
		}
		used[label] = true
		labels[id] = label

		n.ID = label
		if opts.OmitAttributes {
			n = Node{ID: label}
		}
		out.insert(&n)
	}
	for _, e := range work.Edges() {
		src, ok1 := labels[e.Source]
		dst, ok2 := labels[e.Target]
		if ok1 && ok2 {
			out.AddEdges(src, dst)
		}
	}
	return out, nil
}

func displayLabel(n *Node) string {
	switch {
	case n.DisplayName != "" && n.Username != "":
		return fmt.Sprintf("%s (%s)", n.DisplayName, n.Username)
	case n.Username != "":
		return n.Username
	default:
		return n.ID
	}
}

// PrunedFileName derives the output name for a pruned copy of graphPath
func PrunedFileName(graphPath string, opts PruneOptions) string {
	base := strings.TrimSuffix(filepath.Base(graphPath), filepath.Ext(graphPath))
	name := fmt.Sprintf("%s_pruned-to-%d", base, opts.Retained)
	if opts.MaxFollowers >= 0 {
		name += fmt.Sprintf("_max-followers_%d", opts.MaxFollowers)
	}
	if opts.OmitAttributes {
		name += "_no-attrs"
	}
	return name + ".gml"
}
