package layout

import (
	"fmt"
	"sort"

	"github.com/mvp-joe/shadow-ui/internal/indexer/extraction"
	"github.com/mvp-joe/shadow-ui/internal/indexer/parsers"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

type rootSite struct {
	node int
	kind extraction.RootKind
	site *sitter.Node
}

// collectRoots turns parentless nodes produced by `yield` or a `with` header
// into roots and hashes the tree under each one.
func (fx *fileExtractor) collectRoots() error {
	var sites []rootSite
	parsers.WalkTree(fx.tree.Root(), func(n *sitter.Node) bool {
		switch n.Kind() {
		case "yield":
			if isYieldFrom(n) {
				fx.record(extraction.BucketYieldFromUnmodeled, n, "delegated children are not followed")
				return true
			}
			if idx := fx.resolveChild(yieldValue(n)); idx >= 0 {
				sites = append(sites, rootSite{node: idx, kind: extraction.RootYield, site: n})
			}
		case "with_statement":
			if items := fx.uiWithItems(n); len(items) > 0 {
				sites = append(sites, rootSite{node: items[0], kind: extraction.RootWith, site: n})
			}
		}
		return true
	})

	sort.SliceStable(sites, func(i, j int) bool {
		return sites[i].node < sites[j].node
	})

	children, err := fx.edges.children()
	if err != nil {
		return err
	}

	byID := make(map[string]*extraction.Node, len(fx.result.Nodes))
	for i := range fx.result.Nodes {
		byID[fx.result.Nodes[i].ID] = &fx.result.Nodes[i]
	}

	seen := make(map[int]bool)
	for _, s := range sites {
		if seen[s.node] || fx.edges.hasParent(s.node) {
			continue
		}
		seen[s.node] = true

		node := &fx.result.Nodes[s.node]
		var ids []string
		shape := buildShape(node.ID, byID, children, &ids)

		fx.result.Roots = append(fx.result.Roots, extraction.Root{
			ID:            fmt.Sprintf("r%06d", len(fx.result.Roots)+1),
			NodeID:        node.ID,
			Kind:          s.kind,
			Container:     fx.tree.ScopeName(s.site),
			StructureHash: extraction.StructureHash(shape),
			Shape:         extraction.Shape(shape),
			NodeIDs:       ids,
		})
	}
	return nil
}

// buildShape walks the tree under id in child order, collecting node ids in
// pre-order. The containment graph is acyclic, so the walk terminates.
func buildShape(id string, byID map[string]*extraction.Node, children map[string][]string, ids *[]string) *extraction.ShapeNode {
	node := byID[id]
	*ids = append(*ids, id)

	shape := &extraction.ShapeNode{
		Type: node.Type,
		Kind: node.Identity.Kind,
	}
	for _, child := range children[id] {
		shape.Children = append(shape.Children, buildShape(child, byID, children, ids))
	}
	return shape
}
