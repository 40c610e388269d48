package mpt

import (
	"bytes"
	"slices"

	"github.com/nspcc-dev/mptrie/pkg/util/slice"
)

// Batch is a batch of trie changes, it's kept sorted by key and every key
// is present at most once.
type Batch struct {
	kv []keyValue
}

type keyValue struct {
	key   []byte
	value []byte
}

// Len returns the number of changes in the batch.
func (b *Batch) Len() int {
	return len(b.kv)
}

// Add adds a key-value pair to the batch, nil value means deletion. Later
// changes of the same key override the previous ones.
func (b *Batch) Add(key []byte, value []byte) {
	i, found := slices.BinarySearchFunc(b.kv, key, func(kv keyValue, k []byte) int {
		return bytes.Compare(kv.key, k)
	})
	kv := keyValue{key: slice.Copy(key), value: slice.Copy(value)}
	if found {
		b.kv[i] = kv
		return
	}
	b.kv = slices.Insert(b.kv, i, kv)
}

// PutBatch applies the batch to t in key order and returns the number of
// changes applied. On error t contains all the changes before the failed
// one.
func (t *Trie) PutBatch(b Batch) (int, error) {
	for i, kv := range b.kv {
		var err error
		if kv.value == nil {
			err = t.Delete(kv.key)
		} else {
			err = t.Put(kv.key, kv.value)
		}
		if err != nil {
			return i, err
		}
	}
	return len(b.kv), nil
}
