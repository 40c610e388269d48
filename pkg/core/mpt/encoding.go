package mpt

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/nspcc-dev/mptrie/pkg/crypto/hash"
	"github.com/nspcc-dev/mptrie/pkg/util"
)

// InlineThreshold is the encoded node size starting from which a child is
// referenced by its digest, smaller children are embedded into the parent.
const InlineThreshold = 32

// branchListSize is the number of RLP list items in an encoded branch.
const branchListSize = ChildrenCount + 1

// EncodeNode returns canonical node encoding. It's the same as n.Bytes().
func EncodeNode(n Node) []byte {
	return n.Bytes()
}

func encodeLeaf(path, value []byte) []byte {
	w := rlp.NewEncoderBuffer(nil)
	offset := w.List()
	w.WriteBytes(HexPrefixEncode(path, true))
	w.WriteBytes(value)
	w.ListEnd(offset)
	return toBytes(w)
}

func encodeExtension(path []byte, next Node) []byte {
	w := rlp.NewEncoderBuffer(nil)
	offset := w.List()
	w.WriteBytes(HexPrefixEncode(path, false))
	writeRef(w, next)
	w.ListEnd(offset)
	return toBytes(w)
}

func encodeBranch(children *[ChildrenCount]Node, value []byte) []byte {
	w := rlp.NewEncoderBuffer(nil)
	offset := w.List()
	for i := range children {
		writeRef(w, children[i])
	}
	w.WriteBytes(value)
	w.ListEnd(offset)
	return toBytes(w)
}

// writeRef writes child reference: empty string for an empty slot, raw
// encoding for small children and digest for everything else.
func writeRef(w rlp.EncoderBuffer, n Node) {
	switch n := n.(type) {
	case nil, EmptyNode:
		_, _ = w.Write(rlp.EmptyString)
	case *HashNode:
		w.WriteBytes(n.hash[:])
	default:
		if bs := n.Bytes(); len(bs) < InlineThreshold {
			_, _ = w.Write(bs)
		} else {
			h := n.Hash()
			w.WriteBytes(h[:])
		}
	}
}

func toBytes(w rlp.EncoderBuffer) []byte {
	res := w.ToBytes()
	_ = w.Flush()
	return res
}

// isInline checks whether n is embedded into its parent's encoding.
func isInline(n Node) bool {
	switch n.(type) {
	case nil, EmptyNode, *HashNode:
		return false
	default:
		return len(n.Bytes()) < InlineThreshold
	}
}

// DecodeNode decodes canonical node encoding, h is used to compute digests
// of the node and its embedded children. Decoded nodes are considered to be
// persisted already. Any structural violation is reported as
// ErrMalformedEncoding.
func DecodeNode(h hash.Func, data []byte) (Node, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty node", ErrMalformedEncoding)
	}
	return decodeNode(h, bytes.Clone(data))
}

func decodeNode(h hash.Func, buf []byte) (Node, error) {
	elems, rest, err := rlp.SplitList(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEncoding, err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedEncoding, len(rest))
	}
	c, err := rlp.CountValues(elems)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEncoding, err)
	}
	switch c {
	case 2:
		return decodeShort(h, buf, elems)
	case branchListSize:
		return decodeBranch(h, buf, elems)
	default:
		return nil, fmt.Errorf("%w: invalid number of list elements: %d", ErrMalformedEncoding, c)
	}
}

func decodeShort(h hash.Func, buf, elems []byte) (Node, error) {
	kbuf, rest, err := rlp.SplitString(elems)
	if err != nil {
		return nil, fmt.Errorf("%w: path: %w", ErrMalformedEncoding, err)
	}
	path, isLeaf, err := HexPrefixDecode(kbuf)
	if err != nil {
		return nil, err
	}
	if isLeaf {
		val, _, err := rlp.SplitString(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: leaf value: %w", ErrMalformedEncoding, err)
		}
		if len(val) == 0 {
			return nil, fmt.Errorf("%w: empty leaf value", ErrMalformedEncoding)
		}
		if len(val) > MaxValueLength {
			return nil, fmt.Errorf("%w: leaf value is too big: %d", ErrMalformedEncoding, len(val))
		}
		n := &LeafNode{path: path, value: val}
		n.init(h, buf, false)
		return n, nil
	}
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: empty extension path", ErrMalformedEncoding)
	}
	next, _, err := decodeRef(h, rest)
	if err != nil {
		return nil, err
	}
	switch next.(type) {
	case *BranchNode, *HashNode:
	default:
		return nil, fmt.Errorf("%w: extension can't point to %s node", ErrMalformedEncoding, next.Type())
	}
	e := &ExtensionNode{path: path, next: next}
	e.init(h, buf, false)
	return e, nil
}

func decodeBranch(h hash.Func, buf, elems []byte) (Node, error) {
	b := new(BranchNode)
	for i := range b.children {
		c, rest, err := decodeRef(h, elems)
		if err != nil {
			return nil, fmt.Errorf("branch child %d: %w", i, err)
		}
		b.children[i], elems = c, rest
	}
	val, _, err := rlp.SplitString(elems)
	if err != nil {
		return nil, fmt.Errorf("%w: branch value: %w", ErrMalformedEncoding, err)
	}
	if len(val) > MaxValueLength {
		return nil, fmt.Errorf("%w: branch value is too big: %d", ErrMalformedEncoding, len(val))
	}
	if len(val) != 0 {
		b.value = val
	}
	cnt, _ := b.count()
	if cnt == 0 || (cnt == 1 && b.value == nil) {
		return nil, fmt.Errorf("%w: branch with %d children and no value", ErrMalformedEncoding, cnt)
	}
	b.init(h, buf, false)
	return b, nil
}

// decodeRef decodes child reference at the beginning of buf and returns the
// rest of it.
func decodeRef(h hash.Func, buf []byte) (Node, []byte, error) {
	kind, val, rest, err := rlp.Split(buf)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedEncoding, err)
	}
	switch {
	case kind == rlp.List:
		size := len(buf) - len(rest)
		if size >= InlineThreshold {
			return nil, nil, fmt.Errorf("%w: oversized embedded node (%d bytes, want < %d)",
				ErrMalformedEncoding, size, InlineThreshold)
		}
		n, err := decodeNode(h, buf[:size])
		return n, rest, err
	case kind == rlp.String && len(val) == 0:
		return EmptyNode{}, rest, nil
	case kind == rlp.String && len(val) == util.Uint256Size:
		u, _ := util.Uint256DecodeBytesBE(val)
		return NewHashNode(u), rest, nil
	default:
		return nil, nil, fmt.Errorf("%w: invalid reference size %d (want 0 or %d)",
			ErrMalformedEncoding, len(val), util.Uint256Size)
	}
}
