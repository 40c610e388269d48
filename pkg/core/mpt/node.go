package mpt

import (
	"encoding/json"

	"github.com/nspcc-dev/mptrie/pkg/crypto/hash"
	"github.com/nspcc-dev/mptrie/pkg/util"
)

// NodeType represents node type.
type NodeType byte

// Node types definitions.
const (
	BranchT    NodeType = 0x00
	ExtensionT NodeType = 0x01
	HashT      NodeType = 0x02
	LeafT      NodeType = 0x03
	EmptyT     NodeType = 0x04
)

// String implements fmt.Stringer.
func (t NodeType) String() string {
	switch t {
	case BranchT:
		return "branch"
	case ExtensionT:
		return "extension"
	case HashT:
		return "hash"
	case LeafT:
		return "leaf"
	case EmptyT:
		return "empty"
	default:
		return "unknown"
	}
}

// Node represents common interface of all MPT nodes. The set of
// implementations is closed: EmptyNode, *LeafNode, *ExtensionNode,
// *BranchNode and *HashNode. Nodes are immutable, their encoding and digest
// are computed once when the node is created.
type Node interface {
	json.Marshaler

	// Type returns node kind.
	Type() NodeType
	// Hash returns node digest, that is a hash of its canonical encoding.
	Hash() util.Uint256
	// Bytes returns canonical node encoding. It's nil for EmptyNode and
	// HashNode. The slice must not be modified.
	Bytes() []byte

	node()
}

// BaseNode holds canonical encoding and digest of a node. It's included
// into all non-trivial node types.
type BaseNode struct {
	hash  util.Uint256
	bytes []byte
	// dirty is set for nodes created by trie mutations and not yet known
	// to be persisted, nodes decoded from the store are clean.
	dirty bool
}

// Hash implements the Node interface.
func (b *BaseNode) Hash() util.Uint256 {
	return b.hash
}

// Bytes implements the Node interface.
func (b *BaseNode) Bytes() []byte {
	return b.bytes
}

func (b *BaseNode) node() {}

// isDirty checks whether node is not yet persisted.
func (b *BaseNode) isDirty() bool {
	return b.dirty
}

func (b *BaseNode) init(h hash.Func, bs []byte, dirty bool) {
	b.bytes = bs
	b.hash = h(bs)
	b.dirty = dirty
}

// isEmpty checks whether n is an empty slot.
func isEmpty(n Node) bool {
	if n == nil {
		return true
	}
	_, ok := n.(EmptyNode)
	return ok
}

// isDirty checks whether n needs to be persisted.
func isDirty(n Node) bool {
	switch n := n.(type) {
	case *LeafNode:
		return n.isDirty()
	case *ExtensionNode:
		return n.isDirty()
	case *BranchNode:
		return n.isDirty()
	default:
		return false
	}
}
