// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

import (
	"bytes"
	"reflect"
	"testing"
)

func TestWriteVarUint(t *testing.T) {

	tests := []struct {
		in  uint64
		out []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{0x7f, []byte{0x7f}},
		{0x80, []byte{0x80, 0x01}},
		{300, []byte{0xac, 0x02}},
		{0x4000, []byte{0x80, 0x80, 0x01}},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		w := NewWriter(&buf)
		if err := w.WriteVarUint(tt.in); err != nil {
			t.Fatalf("WriteVarUint(%d) failed: %v", tt.in, err)
		}
		if !reflect.DeepEqual(buf.Bytes(), tt.out) {
			t.Errorf("WriteVarUint(%d) = % x, want % x", tt.in, buf.Bytes(), tt.out)
		}
		if w.Pos() != int64(len(tt.out)) {
			t.Errorf("Pos() = %d, want %d", w.Pos(), len(tt.out))
		}
	}
}

func TestWriteVarInt(t *testing.T) {

	tests := []struct {
		in  int64
		out []byte
	}{
		{0, []byte{0x00}},
		{-1, []byte{0x01}},
		{1, []byte{0x02}},
		{-2, []byte{0x03}},
		{63, []byte{0x7e}},
		{-64, []byte{0x7f}},
		{64, []byte{0x80, 0x01}},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		w := NewWriter(&buf)
		if err := w.WriteVarInt(tt.in); err != nil {
			t.Fatalf("WriteVarInt(%d) failed: %v", tt.in, err)
		}
		if !reflect.DeepEqual(buf.Bytes(), tt.out) {
			t.Errorf("WriteVarInt(%d) = % x, want % x", tt.in, buf.Bytes(), tt.out)
		}
	}
}

func TestWriteMemoPosition(t *testing.T) {

	tests := []struct {
		in  int64
		out []byte
	}{
		{0, []byte{0x00, 0x00}},
		{1, []byte{0x01, 0x00}},
		{0x7fff, []byte{0xff, 0x7f}},
		{0x8000, []byte{0x00, 0x80, 0x01, 0x00}},
		{40000, []byte{0x40, 0x9c, 0x01, 0x00}},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		w := NewWriter(&buf)
		if err := w.WriteMemoPosition(tt.in); err != nil {
			t.Fatalf("WriteMemoPosition(%d) failed: %v", tt.in, err)
		}
		if !reflect.DeepEqual(buf.Bytes(), tt.out) {
			t.Errorf("WriteMemoPosition(%d) = % x, want % x",
				tt.in, buf.Bytes(), tt.out)
		}
	}
}

func TestWriteNullableString(t *testing.T) {

	some := func(s string) *string { return &s }

	tests := []struct {
		in  *string
		out []byte
	}{
		{nil, []byte{0x00}},
		{some(""), []byte{0x01, 0x00}},
		{some("ab"), []byte{0x01, 0x02, 0x61, 0x62}},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		w := NewWriter(&buf)
		if err := w.WriteNullableString(tt.in); err != nil {
			t.Fatalf("WriteNullableString failed: %v", err)
		}
		if !reflect.DeepEqual(buf.Bytes(), tt.out) {
			t.Errorf("WriteNullableString(%v) = % x, want % x",
				tt.in, buf.Bytes(), tt.out)
		}
	}
}

func TestWriteScalars(t *testing.T) {

	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.WriteUint16(0x1234); err != nil {
		t.Fatalf("WriteUint16 failed: %v", err)
	}
	if err := w.WriteUint32(0x12345678); err != nil {
		t.Fatalf("WriteUint32 failed: %v", err)
	}
	if err := w.WriteBool(true); err != nil {
		t.Fatalf("WriteBool failed: %v", err)
	}
	if err := w.WriteLengthPrefixedBytes([]byte{0xAA, 0xBB}); err != nil {
		t.Fatalf("WriteLengthPrefixedBytes failed: %v", err)
	}

	want := []byte{
		0x34, 0x12,
		0x78, 0x56, 0x34, 0x12,
		0x01,
		0x02, 0xAA, 0xBB,
	}
	if !reflect.DeepEqual(buf.Bytes(), want) {
		t.Errorf("scalar stream = % x, want % x", buf.Bytes(), want)
	}
	if w.Pos() != int64(len(want)) {
		t.Errorf("Pos() = %d, want %d", w.Pos(), len(want))
	}
}
