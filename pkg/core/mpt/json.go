package mpt

import (
	"encoding/hex"
	"encoding/json"
	"strconv"
)

// nibblesString returns one hex digit per nibble.
func nibblesString(path []byte) string {
	const digits = "0123456789abcdef"
	res := make([]byte, len(path))
	for i := range path {
		res[i] = digits[path[i]&0x0F]
	}
	return string(res)
}

// MarshalJSON implements the json.Marshaler interface.
func (n *LeafNode) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"type":  LeafT.String(),
		"path":  nibblesString(n.path),
		"value": hex.EncodeToString(n.value),
	})
}

// MarshalJSON implements the json.Marshaler interface.
func (e *ExtensionNode) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"type": ExtensionT.String(),
		"path": nibblesString(e.path),
		"next": e.next,
	})
}

// MarshalJSON implements the json.Marshaler interface. Only non-empty
// children are shown, keyed by their nibble.
func (b *BranchNode) MarshalJSON() ([]byte, error) {
	children := make(map[string]Node)
	for i := range b.children {
		if !isEmpty(b.children[i]) {
			children[strconv.FormatInt(int64(i), 16)] = b.children[i]
		}
	}
	m := map[string]any{
		"type":     BranchT.String(),
		"children": children,
	}
	if b.value != nil {
		m["value"] = hex.EncodeToString(b.value)
	}
	return json.Marshal(m)
}
