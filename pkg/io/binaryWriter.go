package io

import (
	"encoding/binary"
	"io"
)

// BinWriter writes binary-encoded data into an io.Writer. The first write
// error is kept in Err, all subsequent writes do nothing then, so a number of
// fields can be written with a single error check at the end.
type BinWriter struct {
	w   io.Writer
	Err error
	buf [9]byte
}

// NewBinWriterFromIO makes a BinWriter from io.Writer.
func NewBinWriterFromIO(iow io.Writer) *BinWriter {
	return &BinWriter{w: iow}
}

// WriteBytes writes b as is, without a length prefix.
func (w *BinWriter) WriteBytes(b []byte) {
	if w.Err != nil {
		return
	}
	_, w.Err = w.w.Write(b)
}

// WriteB writes a single byte.
func (w *BinWriter) WriteB(b byte) {
	w.buf[0] = b
	w.WriteBytes(w.buf[:1])
}

// WriteBool writes a boolean as 1 or 0 byte.
func (w *BinWriter) WriteBool(b bool) {
	if b {
		w.WriteB(1)
	} else {
		w.WriteB(0)
	}
}

// WriteU32LE writes a little-endian uint32.
func (w *BinWriter) WriteU32LE(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	w.WriteBytes(w.buf[:4])
}

// WriteVarUint writes val in 1, 3, 5 or 9 bytes. Values below 0xfd take one
// byte, larger ones are written as 0xfd, 0xfe or 0xff marker followed by
// little-endian uint16, uint32 or uint64 respectively.
func (w *BinWriter) WriteVarUint(val uint64) {
	var n int
	switch {
	case val < 0xfd:
		w.buf[0] = byte(val)
		n = 1
	case val <= 0xffff:
		w.buf[0] = 0xfd
		binary.LittleEndian.PutUint16(w.buf[1:], uint16(val))
		n = 3
	case val <= 0xffffffff:
		w.buf[0] = 0xfe
		binary.LittleEndian.PutUint32(w.buf[1:], uint32(val))
		n = 5
	default:
		w.buf[0] = 0xff
		binary.LittleEndian.PutUint64(w.buf[1:], val)
		n = 9
	}
	w.WriteBytes(w.buf[:n])
}

// WriteVarBytes writes b prefixed with its length.
func (w *BinWriter) WriteVarBytes(b []byte) {
	w.WriteVarUint(uint64(len(b)))
	w.WriteBytes(b)
}

// WriteString writes s prefixed with its length.
func (w *BinWriter) WriteString(s string) {
	w.WriteVarUint(uint64(len(s)))
	if w.Err != nil {
		return
	}
	_, w.Err = io.WriteString(w.w, s)
}
