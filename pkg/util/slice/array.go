/*
Package slice contains byte slice helpers.
*/
package slice

// Copy is a helper for copying slice of bytes. A nil slice stays nil.
func Copy(b []byte) []byte {
	if b == nil {
		return nil
	}
	d := make([]byte, len(b))
	copy(d, b)
	return d
}

// Concat returns a new slice holding a followed by b.
func Concat(a, b []byte) []byte {
	res := make([]byte, len(a)+len(b))
	copy(res, a)
	copy(res[len(a):], b)
	return res
}
