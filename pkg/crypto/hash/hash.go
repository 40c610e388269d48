/*
Package hash contains digest functions used to identify trie nodes. Every
function here produces a 32-byte util.Uint256 and depends on nothing but its
input.
*/
package hash

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/nspcc-dev/mptrie/pkg/util"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Func is a digest function used for trie nodes.
type Func func(data []byte) util.Uint256

// Supported digest function names.
const (
	Keccak256Name    = "keccak256"
	Sha256Name       = "sha256"
	DoubleSha256Name = "doublesha256"
	Blake2b256Name   = "blake2b256"
)

var byName = map[string]Func{
	Keccak256Name:    Keccak256,
	Sha256Name:       Sha256,
	DoubleSha256Name: DoubleSha256,
	Blake2b256Name:   Blake2b256,
}

// Sha256 hashes the incoming byte slice using the sha256 algorithm.
func Sha256(data []byte) util.Uint256 {
	return sha256.Sum256(data)
}

// DoubleSha256 performs sha256 twice on the given data.
func DoubleSha256(data []byte) util.Uint256 {
	h1 := Sha256(data)
	return Sha256(h1[:])
}

// Keccak256 hashes the incoming byte slice using the legacy (pre-FIPS)
// Keccak-256 algorithm.
func Keccak256(data []byte) util.Uint256 {
	var h util.Uint256
	d := sha3.NewLegacyKeccak256()
	_, _ = d.Write(data) // hash.Hash never returns errors
	d.Sum(h[:0])
	return h
}

// Blake2b256 hashes the incoming byte slice using the BLAKE2b-256 algorithm.
func Blake2b256(data []byte) util.Uint256 {
	return blake2b.Sum256(data)
}

// ByName returns a digest function by its (case-insensitive) name. Empty
// name means Keccak256.
func ByName(name string) (Func, error) {
	if name == "" {
		return Keccak256, nil
	}
	f, ok := byName[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown hash function %q, use one of %s", name, strings.Join(Names(), ", "))
	}
	return f, nil
}

// Names returns sorted list of supported digest function names.
func Names() []string {
	res := make([]string, 0, len(byName))
	for n := range byName {
		res = append(res, n)
	}
	sort.Strings(res)
	return res
}
