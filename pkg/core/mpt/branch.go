package mpt

import (
	"github.com/nspcc-dev/mptrie/pkg/crypto/hash"
	"github.com/nspcc-dev/mptrie/pkg/util/slice"
)

// ChildrenCount is the number of branch node slots, one per nibble value.
const ChildrenCount = 16

// BranchNode represents an MPT's branch node. It has a slot for every nibble
// and an optional value for the key ending exactly at this node.
type BranchNode struct {
	BaseNode
	children [ChildrenCount]Node
	value    []byte
}

var _ Node = (*BranchNode)(nil)

// NewBranchNode returns a new branch node. Nil children are replaced by
// EmptyNode, empty value means no value.
func NewBranchNode(h hash.Func, children [ChildrenCount]Node, value []byte) *BranchNode {
	b := &BranchNode{children: children}
	for i := range b.children {
		if b.children[i] == nil {
			b.children[i] = EmptyNode{}
		}
	}
	if len(value) != 0 {
		b.value = slice.Copy(value)
	}
	b.init(h, encodeBranch(&b.children, b.value), true)
	return b
}

// Type implements the Node interface.
func (b *BranchNode) Type() NodeType { return BranchT }

// Child returns the node at slot i (EmptyNode if the slot is empty).
func (b *BranchNode) Child(i byte) Node {
	return b.children[i]
}

// Children returns a copy of all branch slots.
func (b *BranchNode) Children() [ChildrenCount]Node {
	return b.children
}

// Value returns the value stored at the branch, nil if there is none. It
// must not be modified.
func (b *BranchNode) Value() []byte {
	return b.value
}

// count returns the number of non-empty slots and the index of the last one.
func (b *BranchNode) count() (int, byte) {
	return countChildren(&b.children)
}

func countChildren(children *[ChildrenCount]Node) (int, byte) {
	var (
		cnt   int
		index byte
	)
	for i := range children {
		if !isEmpty(children[i]) {
			cnt++
			index = byte(i)
		}
	}
	return cnt, index
}
