package io

// GetVarSize returns the number of bytes a variable-length integer with the
// given value occupies.
func GetVarSize(value int) int {
	switch {
	case value < 0xFD:
		return 1
	case value <= 0xFFFF:
		return 3
	case uint64(value) <= 0xFFFFFFFF:
		return 5
	default:
		return 9
	}
}

// GetVarBytesSize returns the size of a length-prefixed byte slice.
func GetVarBytesSize(b []byte) int {
	return GetVarSize(len(b)) + len(b)
}
