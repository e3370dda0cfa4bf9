// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrBadMagic is returned when a stream does not open with the pickle
// magic.
var ErrBadMagic = errors.New("not a pickle stream, magic not found")

// StreamHeader is the decoded preamble of a pickle stream.
type StreamHeader struct {
	Magic        [4]byte
	PicklerMajor uint64
	PicklerMinor uint64
	RuntimeMajor uint64
	RuntimeMinor uint64
}

// ParseHeader decodes the stream preamble and returns it together with the
// offset of the first payload byte.
func ParseHeader(data []byte) (*StreamHeader, int, error) {
	if len(data) < len(PickleMagic) {
		return nil, 0, ErrBadMagic
	}
	if !bytes.Equal(data[:len(PickleMagic)], PickleMagic[:]) {
		return nil, 0, ErrBadMagic
	}
	hdr := &StreamHeader{}
	copy(hdr.Magic[:], data)
	off := len(PickleMagic)

	fields := []*uint64{
		&hdr.PicklerMajor, &hdr.PicklerMinor,
		&hdr.RuntimeMajor, &hdr.RuntimeMinor,
	}
	for _, field := range fields {
		v, n, err := readVarUint(data[off:])
		if err != nil {
			return nil, 0, err
		}
		*field = v
		off += n
	}
	return hdr, off, nil
}

// readVarUint decodes one little-endian 7-bit-group integer.
func readVarUint(data []byte) (uint64, int, error) {
	var v uint64
	for i := 0; i < len(data) && i < 10; i++ {
		v |= uint64(data[i]&0x7f) << (7 * i)
		if data[i]&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("truncated variable-length integer")
}
