package extraction

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"
)

// HashPrefix marks the digest algorithm of structure hashes.
const HashPrefix = "sha256:"

// ShapeNode is the view of a node that structure hashing depends on.
type ShapeNode struct {
	Type     string
	Kind     IdentityKind
	Children []*ShapeNode
}

// StructureHash returns the Merkle digest of the tree rooted at n. Each level
// hashes the length-prefixed type, the identity kind, the child count and the
// ordered child digests, so distinct trees never share an encoding. Identity
// values never contribute.
func StructureHash(n *ShapeNode) string {
	return HashPrefix + hex.EncodeToString(digest(n))
}

func digest(n *ShapeNode) []byte {
	h := sha256.New()
	writeField(h, n.Type)
	writeField(h, string(n.Kind))

	var count [8]byte
	binary.BigEndian.PutUint64(count[:], uint64(len(n.Children)))
	h.Write(count[:])

	for _, child := range n.Children {
		h.Write(digest(child))
	}
	return h.Sum(nil)
}

func writeField(h interface{ Write([]byte) (int, error) }, s string) {
	var size [8]byte
	binary.BigEndian.PutUint64(size[:], uint64(len(s)))
	h.Write(size[:])
	h.Write([]byte(s))
}

// Shape renders the canonical, human-readable form of a tree:
// `Type#kind(child,child)`.
func Shape(n *ShapeNode) string {
	var sb strings.Builder
	writeShape(&sb, n)
	return sb.String()
}

func writeShape(sb *strings.Builder, n *ShapeNode) {
	sb.WriteString(n.Type)
	sb.WriteByte('#')
	sb.WriteString(string(n.Kind))
	if len(n.Children) == 0 {
		return
	}
	sb.WriteByte('(')
	for i, child := range n.Children {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeShape(sb, child)
	}
	sb.WriteByte(')')
}
