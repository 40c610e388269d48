package mpt

import (
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/nspcc-dev/mptrie/pkg/core/storage"
	"github.com/nspcc-dev/mptrie/pkg/crypto/hash"
	"github.com/nspcc-dev/mptrie/pkg/util"
	"go.uber.org/zap"
)

var (
	// ErrCorruptStore is returned when a node referenced by digest is missing
	// from the store or can't be decoded. Retrying won't help.
	ErrCorruptStore = errors.New("corrupt trie store")
	// ErrStoreUnavailable is returned for any other store failure, the
	// operation can be retried.
	ErrStoreUnavailable = errors.New("trie store unavailable")
)

// nodeStore resolves digests into nodes via the backing store keeping
// recently decoded nodes in memory.
type nodeStore struct {
	store  storage.Store
	hasher hash.Func
	cache  *lru.Cache
	log    *zap.Logger
}

func newNodeStore(s storage.Store, h hash.Func, cacheSize int, log *zap.Logger) *nodeStore {
	ns := &nodeStore{
		store:  s,
		hasher: h,
		log:    log,
	}
	if cacheSize > 0 {
		ns.cache, _ = lru.New(cacheSize) // Never errors for positive size.
	}
	return ns
}

// makeStorageKey returns the key node with the specified digest is stored by.
func makeStorageKey(h util.Uint256) []byte {
	return append([]byte{byte(storage.DataMPT)}, h[:]...)
}

// get returns a node with the specified digest.
func (s *nodeStore) get(h util.Uint256) (Node, error) {
	if s.cache != nil {
		if n, ok := s.cache.Get(h); ok {
			nodeCacheHits.Inc()
			return n.(Node), nil
		}
	}
	if s.store == nil {
		return nil, fmt.Errorf("%w: no store to resolve %s", ErrStoreUnavailable, h.StringBE())
	}
	data, err := s.store.Get(makeStorageKey(h))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			s.log.Error("trie node is missing", zap.Stringer("hash", h))
			return nil, fmt.Errorf("%w: node %s is missing", ErrCorruptStore, h.StringBE())
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	n, err := DecodeNode(s.hasher, data)
	if err != nil {
		s.log.Error("can't decode trie node", zap.Stringer("hash", h), zap.Error(err))
		return nil, fmt.Errorf("%w: node %s: %w", ErrCorruptStore, h.StringBE(), err)
	}
	if n.Hash() != h {
		s.log.Error("trie node digest mismatch", zap.Stringer("hash", h), zap.Stringer("actual", n.Hash()))
		return nil, fmt.Errorf("%w: node %s has digest %s", ErrCorruptStore, h.StringBE(), n.Hash().StringBE())
	}
	nodesResolved.Inc()
	s.add(n)
	return n, nil
}

// add puts node into the cache.
func (s *nodeStore) add(n Node) {
	if s.cache != nil {
		s.cache.Add(n.Hash(), n)
	}
}

// putChangeSet writes encoded nodes into the store in one batch.
func (s *nodeStore) putChangeSet(nodes map[string][]byte) error {
	if s.store == nil {
		return fmt.Errorf("%w: no store to persist nodes", ErrStoreUnavailable)
	}
	if err := s.store.PutChangeSet(nodes); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	updateCommitMetrics(len(nodes))
	return nil
}
