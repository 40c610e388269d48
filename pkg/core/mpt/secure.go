package mpt

import (
	"github.com/nspcc-dev/mptrie/pkg/crypto/hash"
	"github.com/nspcc-dev/mptrie/pkg/util"
)

// SecureTrie is a trie with keys replaced by their digests. It keeps paths
// of the same length for all keys, so that adversarial keys can't make the
// trie deep.
type SecureTrie struct {
	trie *Trie
}

// NewSecureTrie wraps t into SecureTrie, t digest function is used for keys.
func NewSecureTrie(t *Trie) *SecureTrie {
	return &SecureTrie{trie: t}
}

// SecureKey returns the key a SecureTrie stores the value by.
func SecureKey(h hash.Func, key []byte) []byte {
	d := h(key)
	return d.BytesBE()
}

// Trie returns the underlying trie.
func (s *SecureTrie) Trie() *Trie {
	return s.trie
}

func (s *SecureTrie) key(key []byte) []byte {
	return SecureKey(s.trie.hasher, key)
}

// Get returns value for the provided key.
func (s *SecureTrie) Get(key []byte) ([]byte, error) {
	return s.trie.Get(s.key(key))
}

// Put puts key-value pair into the trie.
func (s *SecureTrie) Put(key, value []byte) error {
	return s.trie.Put(s.key(key), value)
}

// Delete removes key from the trie.
func (s *SecureTrie) Delete(key []byte) error {
	return s.trie.Delete(s.key(key))
}

// GetProof returns a proof for the key, it must be verified against
// SecureKey(h, key).
func (s *SecureTrie) GetProof(key []byte) (*Proof, error) {
	return s.trie.GetProof(s.key(key))
}

// PutValue stores the value by its own digest (content addressing) and
// returns the digest. Value is retrievable via GetValue then.
func (s *SecureTrie) PutValue(value []byte) (util.Uint256, error) {
	if len(value) == 0 {
		return util.Uint256{}, ErrValueTooSmall
	}
	d := s.trie.hasher(value)
	return d, s.trie.Put(d[:], value)
}

// GetValue returns the value stored with PutValue.
func (s *SecureTrie) GetValue(d util.Uint256) ([]byte, error) {
	return s.trie.Get(d[:])
}

// StateRoot returns root digest of the trie.
func (s *SecureTrie) StateRoot() util.Uint256 {
	return s.trie.StateRoot()
}

// Commit persists the trie, see Trie.Commit.
func (s *SecureTrie) Commit() (util.Uint256, error) {
	return s.trie.Commit()
}
