package io

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxArraySize is the default limit for ReadVarBytes and ReadString.
const MaxArraySize = 0x1000000

// BinReader reads binary-encoded data from an io.Reader. Like BinWriter it
// keeps the first error in Err, all reads return zero values after it.
type BinReader struct {
	r   io.Reader
	Err error
	buf [8]byte
}

// NewBinReaderFromIO makes a BinReader from io.Reader.
func NewBinReaderFromIO(ior io.Reader) *BinReader {
	return &BinReader{r: ior}
}

// NewBinReaderFromBuf makes a BinReader from byte buffer.
func NewBinReaderFromBuf(b []byte) *BinReader {
	return NewBinReaderFromIO(bytes.NewReader(b))
}

// ReadBytes fills buf completely.
func (r *BinReader) ReadBytes(buf []byte) {
	if r.Err != nil {
		return
	}
	_, r.Err = io.ReadFull(r.r, buf)
}

// ReadB reads a single byte.
func (r *BinReader) ReadB() byte {
	r.ReadBytes(r.buf[:1])
	if r.Err != nil {
		return 0
	}
	return r.buf[0]
}

// ReadBool reads a byte, any non-zero value is true.
func (r *BinReader) ReadBool() bool {
	return r.ReadB() != 0
}

// ReadU32LE reads a little-endian uint32.
func (r *BinReader) ReadU32LE() uint32 {
	r.ReadBytes(r.buf[:4])
	if r.Err != nil {
		return 0
	}
	return binary.LittleEndian.Uint32(r.buf[:4])
}

// ReadVarUint reads an integer written by BinWriter.WriteVarUint.
func (r *BinReader) ReadVarUint() uint64 {
	var res uint64
	switch b := r.ReadB(); b {
	case 0xfd:
		r.ReadBytes(r.buf[:2])
		res = uint64(binary.LittleEndian.Uint16(r.buf[:2]))
	case 0xfe:
		res = uint64(r.ReadU32LE())
	case 0xff:
		r.ReadBytes(r.buf[:8])
		res = binary.LittleEndian.Uint64(r.buf[:8])
	default:
		res = uint64(b)
	}
	if r.Err != nil {
		return 0
	}
	return res
}

// ReadVarBytes reads a length-prefixed byte slice. The length is limited by
// maxSize if given and by MaxArraySize otherwise.
func (r *BinReader) ReadVarBytes(maxSize ...int) []byte {
	limit := MaxArraySize
	if len(maxSize) != 0 {
		limit = maxSize[0]
	}
	n := r.ReadVarUint()
	if n > uint64(limit) {
		r.Err = fmt.Errorf("byte-slice is too big (%d)", n)
		return nil
	}
	b := make([]byte, n)
	r.ReadBytes(b)
	return b
}

// ReadString reads a length-prefixed string, see ReadVarBytes.
func (r *BinReader) ReadString(maxSize ...int) string {
	return string(r.ReadVarBytes(maxSize...))
}

// ExpectEOF sets Err if there is anything left to read.
func (r *BinReader) ExpectEOF() {
	if r.Err != nil {
		return
	}
	var b [1]byte
	n, err := r.r.Read(b[:])
	switch {
	case n != 0:
		r.Err = errors.New("unexpected trailing data")
	case err != nil && !errors.Is(err, io.EOF):
		r.Err = err
	}
}
