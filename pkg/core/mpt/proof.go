package mpt

import (
	"bytes"
	"fmt"

	"github.com/nspcc-dev/mptrie/pkg/crypto/hash"
	"github.com/nspcc-dev/mptrie/pkg/io"
	"github.com/nspcc-dev/mptrie/pkg/util"
	"github.com/nspcc-dev/mptrie/pkg/util/slice"
)

// maxProofNodes is the max number of nodes in a proof, it's one per nibble
// plus the root.
const maxProofNodes = maxPathLength + 1

// Proof is a Merkle proof for a single key. It contains encodings of all the
// nodes referenced by digest on the path from the root to the key, the root
// goes first. Embedded nodes are a part of their parent encoding.
type Proof struct {
	Nodes [][]byte `json:"nodes"`
	// Exists is true when the key is present in the trie, otherwise the
	// proof shows its absence.
	Exists bool `json:"exists"`
}

var _ io.Serializable = (*Proof)(nil)

// GetProof returns a proof of presence or absence of the key in t. Missing
// key is not an error, Proof.Exists is false then.
func (t *Trie) GetProof(key []byte) (*Proof, error) {
	if len(key) > MaxKeyLength {
		return nil, ErrKeyTooBig
	}
	var (
		p    = new(Proof)
		path = ToNibbles(key)
	)
	err := t.getProof(t.root, path, p, true)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (t *Trie) getProof(curr Node, path []byte, p *Proof, byDigest bool) error {
	if h, ok := curr.(*HashNode); ok {
		r, err := t.store.get(h.hash)
		if err != nil {
			return err
		}
		curr, byDigest = r, true
	}
	if byDigest || !isInline(curr) {
		if bs := curr.Bytes(); bs != nil {
			p.Nodes = append(p.Nodes, slice.Copy(bs))
		}
	}
	switch n := curr.(type) {
	case EmptyNode:
	case *LeafNode:
		p.Exists = bytes.Equal(path, n.path)
	case *BranchNode:
		if len(path) == 0 {
			p.Exists = n.value != nil
			return nil
		}
		i, path := splitPath(path)
		return t.getProof(n.children[i], path, p, false)
	case *ExtensionNode:
		if bytes.HasPrefix(path, n.path) {
			return t.getProof(n.next, path[len(n.path):], p, false)
		}
	default:
		panic(fmt.Sprintf("invalid MPT node type: %T", curr))
	}
	return nil
}

// VerifyProof verifies the proof for the key against the root digest using
// h as the node digest function. ok is true if the proof is valid, value
// is nil then if the proof shows key absence. Invalid proofs never cause
// panics.
func VerifyProof(h hash.Func, root util.Uint256, key []byte, p *Proof) (value []byte, ok bool) {
	if p == nil {
		return nil, false
	}
	if h == nil {
		h = hash.Keccak256
	}
	if root.IsZero() {
		// Empty trie has nothing to prove.
		return nil, len(p.Nodes) == 0 && !p.Exists
	}
	v := &proofVerifier{hasher: h, nodes: p.Nodes}
	n, ok := v.next(root)
	if !ok {
		return nil, false
	}
	value, ok = v.walk(n, ToNibbles(key))
	if !ok || v.used != len(v.nodes) || p.Exists != (value != nil) {
		return nil, false
	}
	return slice.Copy(value), true
}

// Verify checks the proof for the key against the root digest. Nil expected
// value means the key is expected to be absent.
func Verify(h hash.Func, root util.Uint256, key []byte, p *Proof, expected []byte) bool {
	v, ok := VerifyProof(h, root, key, p)
	if !ok {
		return false
	}
	if expected == nil {
		return v == nil
	}
	return v != nil && bytes.Equal(v, expected)
}

type proofVerifier struct {
	hasher hash.Func
	nodes  [][]byte
	used   int
}

// next decodes the next proof node checking its digest.
func (v *proofVerifier) next(ref util.Uint256) (Node, bool) {
	if v.used >= len(v.nodes) {
		return nil, false
	}
	data := v.nodes[v.used]
	v.used++
	if v.hasher(data) != ref {
		return nil, false
	}
	n, err := DecodeNode(v.hasher, data)
	if err != nil {
		return nil, false
	}
	return n, true
}

// walk follows the path from n and returns the value found (nil if the key
// is absent) and whether the proof is consistent.
func (v *proofVerifier) walk(n Node, path []byte) ([]byte, bool) {
	for {
		switch curr := n.(type) {
		case EmptyNode:
			return nil, true
		case *LeafNode:
			if bytes.Equal(path, curr.path) {
				return curr.value, true
			}
			return nil, true
		case *BranchNode:
			if len(path) == 0 {
				return curr.value, true
			}
			n, path = curr.children[path[0]], path[1:]
		case *ExtensionNode:
			if !bytes.HasPrefix(path, curr.path) {
				return nil, true
			}
			n, path = curr.next, path[len(curr.path):]
		case *HashNode:
			var ok bool
			n, ok = v.next(curr.hash)
			if !ok {
				return nil, false
			}
		default:
			return nil, false
		}
	}
}

// EncodeBinary implements the io.Serializable interface.
func (p *Proof) EncodeBinary(w *io.BinWriter) {
	w.WriteBool(p.Exists)
	w.WriteVarUint(uint64(len(p.Nodes)))
	for i := range p.Nodes {
		w.WriteVarBytes(p.Nodes[i])
	}
}

// Size returns the size of the binary proof representation.
func (p *Proof) Size() int {
	size := 1 + io.GetVarSize(len(p.Nodes))
	for i := range p.Nodes {
		size += io.GetVarBytesSize(p.Nodes[i])
	}
	return size
}

// DecodeBinary implements the io.Serializable interface.
func (p *Proof) DecodeBinary(r *io.BinReader) {
	p.Exists = r.ReadBool()
	n := r.ReadVarUint()
	if r.Err != nil {
		return
	}
	if n > maxProofNodes {
		r.Err = fmt.Errorf("too many proof nodes: %d", n)
		return
	}
	p.Nodes = make([][]byte, n)
	for i := range p.Nodes {
		p.Nodes[i] = r.ReadVarBytes(MaxValueLength + 2*maxPathLength)
	}
}
