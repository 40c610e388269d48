package io

// Serializable defines the binary encoding/decoding interface. Errors are
// returned through the reader/writer's Err field.
type Serializable interface {
	DecodeBinary(*BinReader)
	EncodeBinary(*BinWriter)
}
