package mpt

import (
	"errors"
	"fmt"
)

// ErrMalformedEncoding is returned for byte sequences violating node wire
// format (hex-prefix paths included).
var ErrMalformedEncoding = errors.New("malformed encoding")

// Hex-prefix flag nibble bits.
const (
	hpLeafFlag     = 0x1
	hpOddFlag      = 0x2
	hpReservedBits = 0xc
)

// ToNibbles splits every byte of key into high and low nibbles, high goes
// first.
func ToNibbles(key []byte) []byte {
	path := make([]byte, len(key)*2)
	for i, b := range key {
		path[i*2] = b >> 4
		path[i*2+1] = b & 0x0F
	}
	return path
}

// FromNibbles packs nibble path back into bytes. It fails for odd-length
// paths and for nibbles that don't fit into 4 bits.
func FromNibbles(path []byte) ([]byte, error) {
	if len(path)%2 != 0 {
		return nil, fmt.Errorf("odd nibble path length: %d", len(path))
	}
	key := make([]byte, len(path)/2)
	for i := range key {
		hi, lo := path[2*i], path[2*i+1]
		if hi > 0x0F || lo > 0x0F {
			return nil, fmt.Errorf("invalid nibble at %d", 2*i)
		}
		key[i] = hi<<4 | lo
	}
	return key, nil
}

// HexPrefixEncode packs nibble path into bytes prepending a flag nibble with
// the leaf bit (bit 0) and the odd length bit (bit 1). For odd paths the
// first nibble shares the byte with the flag, even paths get a zero pad
// nibble instead.
func HexPrefixEncode(path []byte, isLeaf bool) []byte {
	var flag byte
	if isLeaf {
		flag |= hpLeafFlag
	}
	res := make([]byte, len(path)/2+1)
	if len(path)%2 == 1 {
		flag |= hpOddFlag
		res[0] = flag<<4 | path[0]
		path = path[1:]
	} else {
		res[0] = flag << 4
	}
	for i := 0; i < len(path); i += 2 {
		res[1+i/2] = path[i]<<4 | path[i+1]
	}
	return res
}

// HexPrefixDecode is the inverse of HexPrefixEncode.
func HexPrefixDecode(data []byte) ([]byte, bool, error) {
	if len(data) == 0 {
		return nil, false, fmt.Errorf("%w: empty hex-prefix path", ErrMalformedEncoding)
	}
	flag := data[0] >> 4
	if flag&hpReservedBits != 0 {
		return nil, false, fmt.Errorf("%w: invalid hex-prefix flag %x", ErrMalformedEncoding, flag)
	}
	var (
		isLeaf = flag&hpLeafFlag != 0
		path   []byte
	)
	if flag&hpOddFlag != 0 {
		path = make([]byte, 1, 2*len(data)-1)
		path[0] = data[0] & 0x0F
	} else {
		if data[0]&0x0F != 0 {
			return nil, false, fmt.Errorf("%w: non-zero hex-prefix padding", ErrMalformedEncoding)
		}
		path = make([]byte, 0, 2*len(data)-2)
	}
	if len(path)+2*(len(data)-1) > maxPathLength {
		return nil, false, fmt.Errorf("%w: path is too long", ErrMalformedEncoding)
	}
	for _, b := range data[1:] {
		path = append(path, b>>4, b&0x0F)
	}
	return path, isLeaf, nil
}

// lcp returns the length of the longest common prefix of a and b.
func lcp(a, b []byte) int {
	n := min(len(a), len(b))
	for i := range n {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// splitPath splits path into the first nibble and the rest.
func splitPath(path []byte) (byte, []byte) {
	return path[0], path[1:]
}
