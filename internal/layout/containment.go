package layout

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/mvp-joe/shadow-ui/internal/indexer/extraction"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// featureRank orders features by precedence when a node is claimed twice.
var featureRank = map[extraction.EdgeFeature]int{
	extraction.FeatureNesting:     0,
	extraction.FeatureScopedBlock: 1,
	extraction.FeatureAttachCall:  2,
}

// candidate is a proposed parent-child relation found in the source.
type candidate struct {
	parent, child int
	feature       extraction.EdgeFeature
	site          *sitter.Node
}

type orderKey struct {
	parent  int
	feature extraction.EdgeFeature
}

// containment collects candidate edges per feature and accepts them in
// precedence order, keeping the graph a forest.
type containment struct {
	nodes      []extraction.Node
	candidates [3][]candidate
	parent     []int
	feature    []extraction.EdgeFeature
	next       map[orderKey]int
	g          graph.Graph[string, *extraction.Node]
}

func newContainment(nodes []extraction.Node) *containment {
	c := &containment{
		nodes:   nodes,
		parent:  make([]int, len(nodes)),
		feature: make([]extraction.EdgeFeature, len(nodes)),
		next:    make(map[orderKey]int),
		g:       graph.New(func(n *extraction.Node) string { return n.ID }, graph.Directed(), graph.PreventCycles()),
	}
	for i := range nodes {
		c.parent[i] = -1
		// ids are unique, AddVertex cannot fail
		_ = c.g.AddVertex(&nodes[i])
	}
	return c
}

// add proposes an edge; it is decided later by apply.
func (c *containment) add(parent, child int, feature extraction.EdgeFeature, site *sitter.Node) {
	rank := featureRank[feature]
	c.candidates[rank] = append(c.candidates[rank], candidate{
		parent:  parent,
		child:   child,
		feature: feature,
		site:    site,
	})
}

// apply accepts candidates by feature precedence, then source order. A node
// keeps its first parent; later claims and cycle-closing edges become records.
func (c *containment) apply(fx *fileExtractor) {
	for _, group := range c.candidates {
		for _, cand := range group {
			parentID := c.nodes[cand.parent].ID
			childID := c.nodes[cand.child].ID

			if cand.parent == cand.child {
				fx.record(extraction.BucketContainmentCycle, cand.site,
					fmt.Sprintf("%s would contain itself via %s", childID, cand.feature))
				continue
			}

			if existing := c.parent[cand.child]; existing >= 0 {
				fx.record(extraction.BucketMultipleParents, cand.site,
					fmt.Sprintf("%s already child of %s via %s; also claimed by %s via %s",
						childID, c.nodes[existing].ID, c.feature[cand.child], parentID, cand.feature))
				continue
			}

			key := orderKey{parent: cand.parent, feature: cand.feature}
			edge := extraction.Edge{
				Parent:  parentID,
				Child:   childID,
				Order:   c.next[key],
				Feature: cand.feature,
			}

			if err := c.g.AddEdge(parentID, childID, graph.EdgeData(edge)); err != nil {
				if errors.Is(err, graph.ErrEdgeCreatesCycle) {
					fx.record(extraction.BucketContainmentCycle, cand.site,
						fmt.Sprintf("%s -> %s via %s closes a cycle", parentID, childID, cand.feature))
				}
				continue
			}

			c.next[key]++
			c.parent[cand.child] = cand.parent
			c.feature[cand.child] = cand.feature
			fx.result.Edges = append(fx.result.Edges, edge)
		}
	}

	sort.SliceStable(fx.result.Edges, func(i, j int) bool {
		a, b := fx.result.Edges[i], fx.result.Edges[j]
		if a.Parent != b.Parent {
			return a.Parent < b.Parent
		}
		if featureRank[a.Feature] != featureRank[b.Feature] {
			return featureRank[a.Feature] < featureRank[b.Feature]
		}
		return a.Order < b.Order
	})
}

// hasParent reports whether node idx was accepted as a child.
func (c *containment) hasParent(idx int) bool {
	return c.parent[idx] >= 0
}

// children returns the ordered child ids of every node with at least one edge.
func (c *containment) children() (map[string][]string, error) {
	adjacency, err := c.g.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("failed to read containment graph: %w", err)
	}

	result := make(map[string][]string, len(adjacency))
	for parent, targets := range adjacency {
		if len(targets) == 0 {
			continue
		}
		edges := make([]extraction.Edge, 0, len(targets))
		for _, e := range targets {
			edges = append(edges, e.Properties.Data.(extraction.Edge))
		}
		sort.Slice(edges, func(i, j int) bool {
			if featureRank[edges[i].Feature] != featureRank[edges[j].Feature] {
				return featureRank[edges[i].Feature] < featureRank[edges[j].Feature]
			}
			return edges[i].Order < edges[j].Order
		})
		ids := make([]string, len(edges))
		for i, e := range edges {
			ids[i] = e.Child
		}
		result[parent] = ids
	}
	return result, nil
}
