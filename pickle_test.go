// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

import (
	"bytes"
	"errors"
	"testing"
	"unsafe"
)

func TestStreamPreamble(t *testing.T) {

	var buf bytes.Buffer
	if err := New(&buf, nil).Pickle(int32(1)); err != nil {
		t.Fatalf("Pickle failed: %v", err)
	}

	hdr, off, err := ParseHeader(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}
	if string(hdr.Magic[:]) != "PKLA" {
		t.Errorf("magic = %q, want PKLA", hdr.Magic)
	}
	if hdr.PicklerMajor != PicklerMajorVersion || hdr.PicklerMinor != PicklerMinorVersion {
		t.Errorf("pickler version = %d.%d, want %d.%d",
			hdr.PicklerMajor, hdr.PicklerMinor,
			PicklerMajorVersion, PicklerMinorVersion)
	}
	if hdr.RuntimeMajor == 0 {
		t.Errorf("runtime major version = 0, want the toolchain version")
	}
	if len(buf.Bytes())-off != 4 {
		t.Errorf("payload length = %d, want 4", len(buf.Bytes())-off)
	}
}

func TestParseHeaderBadMagic(t *testing.T) {

	tests := [][]byte{
		nil,
		{0x50},
		{'M', 'Z', 0x00, 0x00, 0x01, 0x00},
	}
	for _, data := range tests {
		if _, _, err := ParseHeader(data); !errors.Is(err, ErrBadMagic) {
			t.Errorf("ParseHeader(% x) err = %v, want ErrBadMagic", data, err)
		}
	}
}

func TestPickleRejectsPointerLike(t *testing.T) {

	var buf bytes.Buffer
	err := New(&buf, nil).Pickle(unsafe.Pointer(nil))
	if !errors.Is(err, ErrUnserializablePointer) {
		t.Errorf("err = %v, want ErrUnserializablePointer", err)
	}

	buf.Reset()
	err = New(&buf, nil).Pickle(uintptr(7))
	if !errors.Is(err, ErrUnserializablePointer) {
		t.Errorf("err = %v, want ErrUnserializablePointer", err)
	}
}

func TestPickleRejectsLiveHandles(t *testing.T) {

	var buf bytes.Buffer
	err := New(&buf, nil).Pickle(make(chan int))
	if !errors.Is(err, ErrUnserializableMarshalByRef) {
		t.Errorf("chan err = %v, want ErrUnserializableMarshalByRef", err)
	}

	buf.Reset()
	err = New(&buf, nil).Pickle(func() {})
	if !errors.Is(err, ErrUnserializableMarshalByRef) {
		t.Errorf("func err = %v, want ErrUnserializableMarshalByRef", err)
	}
}

func TestPickleRejectsBareReflectionStructs(t *testing.T) {

	var buf bytes.Buffer
	err := New(&buf, nil).Pickle(Assembly{FullName: "x"})
	if !errors.Is(err, ErrUnserializableNonRuntimeReflection) {
		t.Errorf("err = %v, want ErrUnserializableNonRuntimeReflection", err)
	}
}

type testCustom struct {
	Tag   string
	Count int32
}

func (c *testCustom) PickleData() []NamedValue {
	return []NamedValue{
		{Name: "tag", Value: c.Tag},
		{Name: "count", Value: c.Count},
	}
}

func TestPickleSerializableProvidesPairs(t *testing.T) {

	var buf bytes.Buffer
	p := New(&buf, nil)
	if err := p.Pickle(&testCustom{Tag: "t", Count: 2}); err != nil {
		t.Fatalf("Pickle failed: %v", err)
	}

	sr := newStreamReader(t, buf.Bytes())
	sr.expectByte(byte(ObjectOpObject), "object tag")
	sr.expectVarUint(0, "record marker")
	sr.expectString("*pickle.testCustom", "record name")
	sr.expectByte(0x42, "packed byte")
	sr.expectVarUint(2, "pair count")
	sr.expectString("tag", "first pair name")
}

func TestPickleSharedTypeCache(t *testing.T) {

	cache := NewTypeCache()
	var first, second bytes.Buffer

	if err := New(&first, &Options{TypeCache: cache}).Pickle(testRec{A: 1}); err != nil {
		t.Fatalf("first Pickle failed: %v", err)
	}
	if err := New(&second, &Options{TypeCache: cache}).Pickle(testRec{A: 1}); err != nil {
		t.Fatalf("second Pickle failed: %v", err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Errorf("shared cache changed the encoding across instances")
	}
}
