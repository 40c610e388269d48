package mpt

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/nspcc-dev/mptrie/pkg/core/storage"
	"github.com/nspcc-dev/mptrie/pkg/util/slice"
)

// errStop is used to break the traversal.
var errStop = errors.New("stop condition is met")

// Walk calls f for every key-value pair in t in ascending key order until f
// returns false.
func (t *Trie) Walk(f func(key, value []byte) bool) error {
	return t.traverse(nil, nil, f)
}

// Count returns the number of key-value pairs in t.
func (t *Trie) Count() (int, error) {
	var n int
	err := t.Walk(func(_, _ []byte) bool {
		n++
		return true
	})
	return n, err
}

// Find returns up to max key-value pairs (all of them if max is not
// positive) with keys starting with prefix in ascending key order. If from is
// not empty, only the keys greater than prefix+from are returned.
func (t *Trie) Find(prefix, from []byte, max int) ([]storage.KeyValue, error) {
	if len(prefix)+len(from) > MaxKeyLength {
		return nil, ErrKeyTooBig
	}
	var (
		res   []storage.KeyValue
		start []byte
	)
	if len(from) != 0 {
		start = slice.Concat(prefix, from)
	}
	err := t.traverse(prefix, start, func(k, v []byte) bool {
		if start != nil && bytes.Equal(k, start) {
			return true
		}
		res = append(res, storage.KeyValue{Key: k, Value: v})
		return max <= 0 || len(res) < max
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// traverse calls f for all the pairs with the key having the prefix and not
// less than start.
func (t *Trie) traverse(prefix, start []byte, f func(k, v []byte) bool) error {
	it := &iterator{
		trie:   t,
		prefix: ToNibbles(prefix),
		f:      f,
	}
	if start != nil {
		it.start = ToNibbles(start)
	}
	err := it.walk(t.root, nil)
	if errors.Is(err, errStop) {
		err = nil
	}
	return err
}

type iterator struct {
	trie   *Trie
	prefix []byte
	start  []byte
	f      func(k, v []byte) bool
}

// skip checks whether the whole subtrie at path can be skipped.
func (it *iterator) skip(path []byte) bool {
	n := min(len(path), len(it.prefix))
	if !bytes.Equal(path[:n], it.prefix[:n]) {
		return true
	}
	n = min(len(path), len(it.start))
	return bytes.Compare(path[:n], it.start[:n]) < 0
}

// emit passes the pair found at the full path to the callback.
func (it *iterator) emit(path, value []byte) error {
	if len(path) < len(it.prefix) || bytes.Compare(path, it.start) < 0 {
		return nil
	}
	key, err := FromNibbles(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptStore, err)
	}
	if !it.f(key, slice.Copy(value)) {
		return errStop
	}
	return nil
}

func (it *iterator) walk(curr Node, path []byte) error {
	if it.skip(path) {
		return nil
	}
	switch n := curr.(type) {
	case EmptyNode:
	case *LeafNode:
		full := slice.Concat(path, n.path)
		if it.skip(full) {
			return nil
		}
		return it.emit(full, n.value)
	case *BranchNode:
		if n.value != nil {
			if err := it.emit(path, n.value); err != nil {
				return err
			}
		}
		for i := range n.children {
			err := it.walk(n.children[i], append(slice.Copy(path), byte(i)))
			if err != nil {
				return err
			}
		}
	case *ExtensionNode:
		return it.walk(n.next, slice.Concat(path, n.path))
	case *HashNode:
		r, err := it.trie.store.get(n.hash)
		if err != nil {
			return err
		}
		return it.walk(r, path)
	default:
		panic(fmt.Sprintf("invalid MPT node type: %T", curr))
	}
	return nil
}
