package mpt

import (
	"github.com/nspcc-dev/mptrie/pkg/crypto/hash"
	"github.com/nspcc-dev/mptrie/pkg/util/slice"
)

// ExtensionNode represents an MPT's extension node. It compresses a run of
// nibbles shared by all the keys below it.
type ExtensionNode struct {
	BaseNode
	path []byte
	next Node
}

var _ Node = (*ExtensionNode)(nil)

// NewExtensionNode returns an extension node with the specified path and
// the next node. Path must not be empty and next must be a branch (or a hash
// of one), otherwise it's not a valid trie.
func NewExtensionNode(h hash.Func, path []byte, next Node) *ExtensionNode {
	if len(path) == 0 {
		panic("empty extension node path")
	}
	e := &ExtensionNode{
		path: slice.Copy(path),
		next: next,
	}
	e.init(h, encodeExtension(e.path, e.next), true)
	return e
}

// Type implements the Node interface.
func (e *ExtensionNode) Type() NodeType { return ExtensionT }

// Path returns the shared nibble path. It must not be modified.
func (e *ExtensionNode) Path() []byte {
	return e.path
}

// Next returns the child node.
func (e *ExtensionNode) Next() Node {
	return e.next
}
