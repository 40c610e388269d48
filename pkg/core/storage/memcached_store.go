package storage

import (
	"bytes"
	"slices"
)

// MemCachedStore is a wrapper around persistent store that caches all changes
// being made for them to be later flushed in one batch. Deletions are kept as
// nil values.
type MemCachedStore struct {
	MemoryStore

	// Persistent Store.
	ps Store
}

// NewMemCachedStore creates a new MemCachedStore object.
func NewMemCachedStore(lower Store) *MemCachedStore {
	return &MemCachedStore{
		MemoryStore: MemoryStore{mem: make(map[string][]byte)},
		ps:          lower,
	}
}

// Get implements the Store interface.
func (s *MemCachedStore) Get(key []byte) ([]byte, error) {
	s.mut.RLock()
	val, ok := s.mem[string(key)]
	s.mut.RUnlock()
	if ok {
		if val == nil {
			return nil, ErrKeyNotFound
		}
		return val, nil
	}
	return s.ps.Get(key)
}

// Delete drops the key from the store, the deletion is propagated to the
// lower store on Persist.
func (s *MemCachedStore) Delete(key []byte) error {
	s.mut.Lock()
	s.mem[string(key)] = nil
	s.mut.Unlock()
	return nil
}

// PutChangeSet implements the Store interface, the changes are cached until
// Persist. Never returns an error.
func (s *MemCachedStore) PutChangeSet(puts map[string][]byte) error {
	s.mut.Lock()
	for k := range puts {
		s.mem[k] = puts[k]
	}
	s.mut.Unlock()
	return nil
}

// Seek implements the Store interface, cached changes take precedence over
// the lower store contents.
func (s *MemCachedStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	s.mut.RLock()
	cached := s.collect(rng, true)
	s.mut.RUnlock()

	overlay := make(map[string]struct{}, len(cached))
	for _, kv := range cached {
		overlay[string(kv.Key)] = struct{}{}
	}
	var res = make([]KeyValue, 0, len(cached))
	for _, kv := range cached {
		if kv.Value != nil {
			res = append(res, kv)
		}
	}
	s.ps.Seek(rng, func(k, v []byte) bool {
		if _, ok := overlay[string(k)]; !ok {
			res = append(res, KeyValue{Key: bytes.Clone(k), Value: bytes.Clone(v)})
		}
		return true
	})
	slices.SortFunc(res, func(a, b KeyValue) int {
		if rng.Backwards {
			return bytes.Compare(b.Key, a.Key)
		}
		return bytes.Compare(a.Key, b.Key)
	})
	for _, kv := range res {
		if !f(kv.Key, kv.Value) {
			break
		}
	}
}

// Persist flushes all the changes made into the lower store and returns the
// number of written (not deleted) items.
func (s *MemCachedStore) Persist() (int, error) {
	s.mut.Lock()
	defer s.mut.Unlock()

	var keys int
	for _, v := range s.mem {
		if v != nil {
			keys++
		}
	}
	if len(s.mem) == 0 {
		return 0, nil
	}
	err := s.ps.PutChangeSet(s.mem)
	if err != nil {
		return 0, err
	}
	s.mem = make(map[string][]byte)
	return keys, nil
}

// Close implements Store interface, it closes the lower store too.
func (s *MemCachedStore) Close() error {
	errClose := s.ps.Close()
	_ = s.MemoryStore.Close()
	return errClose
}
