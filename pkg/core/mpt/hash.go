package mpt

import (
	"github.com/nspcc-dev/mptrie/pkg/util"
)

// HashNode represents a child referenced by digest, it's resolved via the
// backing store when needed.
type HashNode struct {
	hash util.Uint256
}

var _ Node = (*HashNode)(nil)

// NewHashNode returns hash node with the specified digest.
func NewHashNode(h util.Uint256) *HashNode {
	return &HashNode{hash: h}
}

// Type implements the Node interface.
func (h *HashNode) Type() NodeType { return HashT }

// Hash implements the Node interface.
func (h *HashNode) Hash() util.Uint256 {
	return h.hash
}

// Bytes implements the Node interface. Encoding of the referenced node is
// unknown until it's resolved, so it's always nil.
func (h *HashNode) Bytes() []byte {
	return nil
}

// MarshalJSON implements the json.Marshaler interface.
func (h *HashNode) MarshalJSON() ([]byte, error) {
	return []byte(`{"type":"hash","hash":"` + h.hash.StringBE() + `"}`), nil
}

func (h *HashNode) node() {}
