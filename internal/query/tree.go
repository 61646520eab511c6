package query

import (
	"fmt"
	"sort"

	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/shadow-ui/internal/indexer/extraction"
)

// TreeNode is a node with its children in edge order. Feature is the
// feature of the edge from the parent; empty for the root.
type TreeNode struct {
	extraction.Node
	Feature  extraction.EdgeFeature `json:"feature,omitempty"`
	Children []*TreeNode            `json:"children,omitempty"`
}

// Tree rebuilds the containment tree of one root. An empty rootID returns
// every root of the file.
func (s *Service) Tree(file, rootID string) ([]*TreeNode, error) {
	where := sq.Eq{"file_path": file}
	if rootID != "" {
		where["root_id"] = rootID
	}
	roots, err := s.roots(where)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		if rootID != "" {
			return nil, fmt.Errorf("root %s in %s: %w", rootID, file, ErrNotFound)
		}
		return nil, fmt.Errorf("roots in %s: %w", file, ErrNotFound)
	}

	nodes, err := s.Nodes(NodeFilter{File: file})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]extraction.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	edges, err := s.edges(file)
	if err != nil {
		return nil, err
	}
	children := make(map[string][]EdgeRow)
	for _, e := range edges {
		children[e.Parent] = append(children[e.Parent], e)
	}

	var build func(id string, feature extraction.EdgeFeature, seen map[string]bool) *TreeNode
	build = func(id string, feature extraction.EdgeFeature, seen map[string]bool) *TreeNode {
		tn := &TreeNode{Node: byID[id], Feature: feature}
		if seen[id] {
			return tn
		}
		seen[id] = true
		for _, e := range children[id] {
			tn.Children = append(tn.Children, build(e.Child, e.Feature, seen))
		}
		return tn
	}

	result := make([]*TreeNode, 0, len(roots))
	for _, r := range roots {
		result = append(result, build(r.NodeID, "", make(map[string]bool)))
	}
	return result, nil
}

// Flatten returns the tree in depth-first order with each node's depth.
func Flatten(root *TreeNode) ([]*TreeNode, []int) {
	var nodes []*TreeNode
	var depths []int
	var walk func(n *TreeNode, depth int)
	walk = func(n *TreeNode, depth int) {
		nodes = append(nodes, n)
		depths = append(depths, depth)
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(root, 0)
	return nodes, depths
}

func sortHashGroups(groups []HashGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		if len(groups[i].Roots) != len(groups[j].Roots) {
			return len(groups[i].Roots) > len(groups[j].Roots)
		}
		return groups[i].Hash < groups[j].Hash
	})
}
