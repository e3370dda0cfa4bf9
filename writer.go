// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

import (
	"encoding/binary"
	"io"
	"math"
)

// Writer emits the pickle wire primitives to an underlying byte sink and
// tracks the absolute stream position used by the memo protocol.
type Writer struct {
	w       io.Writer
	off     int64
	scratch [8]byte
}

// NewWriter returns a Writer over the given sink.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Pos returns the absolute position of the next byte to be written.
func (w *Writer) Pos() int64 {
	return w.off
}

// WriteByte writes a single byte.
func (w *Writer) WriteByte(b byte) error {
	w.scratch[0] = b
	return w.write(w.scratch[:1])
}

// WriteBytes writes a raw byte span with no length prefix.
func (w *Writer) WriteBytes(b []byte) error {
	return w.write(b)
}

// WriteBool writes a boolean as one byte.
func (w *Writer) WriteBool(v bool) error {
	if v {
		return w.WriteByte(1)
	}
	return w.WriteByte(0)
}

// WriteUint16 writes a little-endian 16-bit integer.
func (w *Writer) WriteUint16(v uint16) error {
	binary.LittleEndian.PutUint16(w.scratch[:2], v)
	return w.write(w.scratch[:2])
}

// WriteUint32 writes a little-endian 32-bit integer.
func (w *Writer) WriteUint32(v uint32) error {
	binary.LittleEndian.PutUint32(w.scratch[:4], v)
	return w.write(w.scratch[:4])
}

// WriteUint64 writes a little-endian 64-bit integer.
func (w *Writer) WriteUint64(v uint64) error {
	binary.LittleEndian.PutUint64(w.scratch[:8], v)
	return w.write(w.scratch[:8])
}

// WriteFloat32 writes a little-endian IEEE-754 single.
func (w *Writer) WriteFloat32(v float32) error {
	return w.WriteUint32(math.Float32bits(v))
}

// WriteFloat64 writes a little-endian IEEE-754 double.
func (w *Writer) WriteFloat64(v float64) error {
	return w.WriteUint64(math.Float64bits(v))
}

// WriteVarUint writes an unsigned integer as little-endian 7-bit groups.
// The high bit of each byte is the continuation bit; a clear high bit stops.
func (w *Writer) WriteVarUint(v uint64) error {
	for {
		group := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			group |= 0x80
		}
		if err := w.WriteByte(group); err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
	}
}

// WriteVarInt writes a signed integer zig-zag folded into WriteVarUint.
// Negated lengths use this encoding.
func (w *Writer) WriteVarInt(v int64) error {
	return w.WriteVarUint(uint64((v << 1) ^ (v >> 63)))
}

// WriteMemoPosition writes a stream position as little-endian 15-bit groups,
// two bytes per group, high bit of the group as the continuation bit.
func (w *Writer) WriteMemoPosition(pos int64) error {
	v := uint64(pos)
	for {
		group := uint16(v & 0x7fff)
		v >>= 15
		if v != 0 {
			group |= 0x8000
		}
		if err := w.WriteUint16(group); err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
	}
}

// WriteString writes a length-prefixed UTF-8 string.
func (w *Writer) WriteString(s string) error {
	if err := w.WriteVarUint(uint64(len(s))); err != nil {
		return err
	}
	return w.write([]byte(s))
}

// WriteNullableString writes a presence byte followed, when present, by a
// length-prefixed UTF-8 string.
func (w *Writer) WriteNullableString(s *string) error {
	if s == nil {
		return w.WriteByte(0)
	}
	if err := w.WriteByte(1); err != nil {
		return err
	}
	return w.WriteString(*s)
}

// WriteLengthPrefixedBytes writes a byte span as a length followed by the
// raw bytes.
func (w *Writer) WriteLengthPrefixedBytes(b []byte) error {
	if err := w.WriteVarUint(uint64(len(b))); err != nil {
		return err
	}
	return w.write(b)
}

func (w *Writer) write(b []byte) error {
	n, err := w.w.Write(b)
	w.off += int64(n)
	if err == nil && n < len(b) {
		err = io.ErrShortWrite
	}
	return err
}
