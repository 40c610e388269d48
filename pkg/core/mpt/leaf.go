package mpt

import (
	"github.com/nspcc-dev/mptrie/pkg/crypto/hash"
	"github.com/nspcc-dev/mptrie/pkg/util/slice"
)

const (
	// MaxKeyLength is the max length of the key to put in the trie
	// before transforming to nibbles.
	MaxKeyLength = 1024
	// maxPathLength is the max length of the node path in nibbles.
	maxPathLength = MaxKeyLength * 2

	// MaxValueLength is the max length of a value stored in the trie.
	MaxValueLength = 1 << 20
)

// LeafNode represents MPT's leaf node, it holds the rest of the key path and
// the value.
type LeafNode struct {
	BaseNode
	path  []byte
	value []byte
}

var _ Node = (*LeafNode)(nil)

// NewLeafNode returns a leaf node with the specified remaining nibble path
// and value, h is used to compute node digest.
func NewLeafNode(h hash.Func, path, value []byte) *LeafNode {
	n := &LeafNode{
		path:  slice.Copy(path),
		value: slice.Copy(value),
	}
	n.init(h, encodeLeaf(n.path, n.value), true)
	return n
}

// Type implements the Node interface.
func (n *LeafNode) Type() NodeType { return LeafT }

// Path returns the remaining nibble path of the leaf. It must not be modified.
func (n *LeafNode) Path() []byte {
	return n.path
}

// Value returns the leaf value. It must not be modified.
func (n *LeafNode) Value() []byte {
	return n.value
}
