package config

import (
	"errors"

	"github.com/nspcc-dev/mptrie/pkg/crypto/hash"
)

// Defaults for TrieConfiguration.
const (
	DefaultHash      = hash.Keccak256Name
	DefaultCacheSize = 10000
)

// TrieConfiguration contains trie parameters.
type TrieConfiguration struct {
	// Hash is the node digest function name, see hash.Names.
	Hash string `yaml:"Hash"`
	// CacheSize is the number of decoded nodes cached, 0 disables the cache.
	CacheSize int `yaml:"CacheSize"`
	// SecureKeys makes the trie store values by key digests instead of
	// keys themselves.
	SecureKeys bool `yaml:"SecureKeys"`
}

// Validate checks TrieConfiguration for consistency.
func (t TrieConfiguration) Validate() error {
	if _, err := hash.ByName(t.Hash); err != nil {
		return err
	}
	if t.CacheSize < 0 {
		return errors.New("negative CacheSize")
	}
	return nil
}

// HashFunc returns the configured digest function.
func (t TrieConfiguration) HashFunc() (hash.Func, error) {
	return hash.ByName(t.Hash)
}
