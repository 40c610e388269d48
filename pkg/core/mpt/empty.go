package mpt

import (
	"github.com/nspcc-dev/mptrie/pkg/util"
)

// EmptyNode represents an empty trie or an empty branch slot. It's never
// stored.
type EmptyNode struct{}

var _ Node = EmptyNode{}

// Type implements the Node interface.
func (EmptyNode) Type() NodeType { return EmptyT }

// Hash implements the Node interface. Empty trie has zero root digest.
func (EmptyNode) Hash() util.Uint256 { return util.Uint256{} }

// Bytes implements the Node interface.
func (EmptyNode) Bytes() []byte { return nil }

// MarshalJSON implements the json.Marshaler interface.
func (EmptyNode) MarshalJSON() ([]byte, error) {
	return []byte(`{}`), nil
}

func (EmptyNode) node() {}
