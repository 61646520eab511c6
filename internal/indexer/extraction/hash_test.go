package extraction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test Plan for structure hashing:
// - Same shape hashes equal regardless of identity values (values are not part of ShapeNode)
// - Type, identity kind, child order and child count each change the hash
// - Length prefixing keeps ("AB", "C") and ("A", "BC") apart
// - Shape renders nested trees canonically

func leaf(typ string, kind IdentityKind) *ShapeNode {
	return &ShapeNode{Type: typ, Kind: kind}
}

func TestStructureHash_Format(t *testing.T) {
	t.Parallel()

	h := StructureHash(leaf("Static", IdentityLiteral))
	assert.True(t, strings.HasPrefix(h, HashPrefix))
	assert.Len(t, h, len(HashPrefix)+64)
}

func TestStructureHash_Sensitivity(t *testing.T) {
	t.Parallel()

	base := &ShapeNode{Type: "Container", Kind: IdentityNone, Children: []*ShapeNode{
		leaf("Static", IdentityLiteral),
		leaf("Button", IdentityNone),
	}}
	baseHash := StructureHash(base)

	same := &ShapeNode{Type: "Container", Kind: IdentityNone, Children: []*ShapeNode{
		leaf("Static", IdentityLiteral),
		leaf("Button", IdentityNone),
	}}
	assert.Equal(t, baseHash, StructureHash(same))

	variants := map[string]*ShapeNode{
		"type": {Type: "Vertical", Kind: IdentityNone, Children: same.Children},
		"kind": {Type: "Container", Kind: IdentityLiteral, Children: same.Children},
		"order": {Type: "Container", Kind: IdentityNone, Children: []*ShapeNode{
			leaf("Button", IdentityNone),
			leaf("Static", IdentityLiteral),
		}},
		"count": {Type: "Container", Kind: IdentityNone, Children: []*ShapeNode{
			leaf("Static", IdentityLiteral),
		}},
		"child kind": {Type: "Container", Kind: IdentityNone, Children: []*ShapeNode{
			leaf("Static", IdentityPattern),
			leaf("Button", IdentityNone),
		}},
	}
	for name, v := range variants {
		assert.NotEqual(t, baseHash, StructureHash(v), name)
	}
}

func TestStructureHash_LengthPrefixed(t *testing.T) {
	t.Parallel()

	a := &ShapeNode{Type: "AB", Kind: "C"}
	b := &ShapeNode{Type: "A", Kind: "BC"}
	assert.NotEqual(t, StructureHash(a), StructureHash(b))
}

func TestShape(t *testing.T) {
	t.Parallel()

	tree := &ShapeNode{Type: "Container", Kind: IdentityNone, Children: []*ShapeNode{
		leaf("Static", IdentityLiteral),
		{Type: "Horizontal", Kind: IdentityPattern, Children: []*ShapeNode{leaf("Button", IdentityNonLiteral)}},
	}}
	assert.Equal(t, "Container#none(Static#literal,Horizontal#pattern(Button#nonliteral))", Shape(tree))
	assert.Equal(t, "Static#literal", Shape(leaf("Static", IdentityLiteral)))
}
