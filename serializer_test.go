// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

import (
	"bytes"
	"encoding/binary"
	"reflect"
	"testing"
)

// streamReader walks an encoded stream in tests, failing the test on any
// shape mismatch.
type streamReader struct {
	t    *testing.T
	data []byte
	off  int
}

func newStreamReader(t *testing.T, data []byte) *streamReader {
	t.Helper()
	_, off, err := ParseHeader(data)
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}
	return &streamReader{t: t, data: data, off: off}
}

func (r *streamReader) pos() int64 { return int64(r.off) }

func (r *streamReader) readByte() byte {
	r.t.Helper()
	if r.off >= len(r.data) {
		r.t.Fatalf("stream truncated at %d", r.off)
	}
	b := r.data[r.off]
	r.off++
	return b
}

func (r *streamReader) readBytes(n int) []byte {
	r.t.Helper()
	if r.off+n > len(r.data) {
		r.t.Fatalf("stream truncated at %d (+%d)", r.off, n)
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *streamReader) readVarUint() uint64 {
	r.t.Helper()
	v, n, err := readVarUint(r.data[r.off:])
	if err != nil {
		r.t.Fatalf("bad varint at %d: %v", r.off, err)
	}
	r.off += n
	return v
}

func (r *streamReader) readString() string {
	r.t.Helper()
	n := int(r.readVarUint())
	return string(r.readBytes(n))
}

func (r *streamReader) readUint32() uint32 {
	r.t.Helper()
	return binary.LittleEndian.Uint32(r.readBytes(4))
}

func (r *streamReader) readMemoPos() int64 {
	r.t.Helper()
	var v uint64
	shift := 0
	for {
		group := binary.LittleEndian.Uint16(r.readBytes(2))
		v |= uint64(group&0x7fff) << shift
		if group&0x8000 == 0 {
			return int64(v)
		}
		shift += 15
	}
}

func (r *streamReader) expectByte(want byte, what string) {
	r.t.Helper()
	if got := r.readByte(); got != want {
		r.t.Fatalf("%s: byte = %#02x, want %#02x", what, got, want)
	}
}

func (r *streamReader) expectString(want, what string) {
	r.t.Helper()
	if got := r.readString(); got != want {
		r.t.Fatalf("%s: string = %q, want %q", what, got, want)
	}
}

func (r *streamReader) expectVarUint(want uint64, what string) {
	r.t.Helper()
	if got := r.readVarUint(); got != want {
		r.t.Fatalf("%s: varint = %d, want %d", what, got, want)
	}
}

func (r *streamReader) done() {
	r.t.Helper()
	if r.off != len(r.data) {
		r.t.Fatalf("stream has %d trailing bytes", len(r.data)-r.off)
	}
}

type testRec struct {
	A int32
	B string
}

type testSelf struct {
	Self *testSelf
}

type testVal struct {
	N int32
}

type testPair struct {
	A testVal
	B testVal
}

func TestPickleInt32Root(t *testing.T) {

	var buf bytes.Buffer
	p := New(&buf, nil)
	if err := p.Pickle(int32(0x12345678)); err != nil {
		t.Fatalf("Pickle failed: %v", err)
	}

	_, off, err := ParseHeader(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}
	payload := buf.Bytes()[off:]
	want := []byte{0x78, 0x56, 0x34, 0x12}
	if !reflect.DeepEqual(payload, want) {
		t.Errorf("payload = % x, want % x", payload, want)
	}
}

func TestPickleStringRoot(t *testing.T) {

	var buf bytes.Buffer
	p := New(&buf, nil)
	if err := p.Pickle("x"); err != nil {
		t.Fatalf("Pickle failed: %v", err)
	}
	_, off, _ := ParseHeader(buf.Bytes())
	want := []byte{0x01, 0x01, 0x78}
	if !reflect.DeepEqual(buf.Bytes()[off:], want) {
		t.Errorf("payload = % x, want % x", buf.Bytes()[off:], want)
	}
}

func TestPickleNilRoot(t *testing.T) {

	var buf bytes.Buffer
	p := New(&buf, nil)
	if err := p.Pickle(nil); err != nil {
		t.Fatalf("Pickle failed: %v", err)
	}
	_, off, _ := ParseHeader(buf.Bytes())
	if !reflect.DeepEqual(buf.Bytes()[off:], []byte{byte(ObjectOpNull)}) {
		t.Errorf("payload = % x, want the null operation", buf.Bytes()[off:])
	}
}

func TestPickleNullableScalar(t *testing.T) {

	var absent *int32
	var buf bytes.Buffer
	if err := New(&buf, nil).Pickle(absent); err != nil {
		t.Fatalf("Pickle failed: %v", err)
	}
	_, off, _ := ParseHeader(buf.Bytes())
	if !reflect.DeepEqual(buf.Bytes()[off:], []byte{0x00}) {
		t.Errorf("absent payload = % x, want 00", buf.Bytes()[off:])
	}

	present := int32(5)
	buf.Reset()
	if err := New(&buf, nil).Pickle(&present); err != nil {
		t.Fatalf("Pickle failed: %v", err)
	}
	_, off, _ = ParseHeader(buf.Bytes())
	want := []byte{0x01, 0x05, 0x00, 0x00, 0x00}
	if !reflect.DeepEqual(buf.Bytes()[off:], want) {
		t.Errorf("present payload = % x, want % x", buf.Bytes()[off:], want)
	}
}

func TestPickleSharedRecordIdentity(t *testing.T) {

	r := &testRec{A: 1, B: "x"}
	var buf bytes.Buffer
	p := New(&buf, nil)
	if err := p.Pickle([]*testRec{r, r}); err != nil {
		t.Fatalf("Pickle failed: %v", err)
	}

	sr := newStreamReader(t, buf.Bytes())

	sr.expectByte(byte(ObjectOpObject), "slice tag")

	// Slice type-info record, written inline on first use.
	sr.expectVarUint(0, "slice record marker")
	sr.expectString("[]*pickle.testRec", "slice record name")
	sr.expectByte(0x0A, "slice packed byte")

	// Element record nested inside.
	sr.expectVarUint(0, "element record marker")
	sr.expectString("*pickle.testRec", "element record name")
	sr.expectByte(0x52, "element packed byte")
	sr.expectVarUint(2, "field count")
	sr.expectString("A", "first field name")
	sr.expectVarUint(1, "well-known field marker")
	sr.expectByte(byte(TypeOpInt32), "field token")
	sr.expectString("B", "second field name")
	sr.expectVarUint(1, "well-known field marker")
	sr.expectByte(byte(TypeOpString), "field token")

	// Array body: length, then items.
	sr.expectVarUint(2, "array length")

	posR := sr.pos()
	sr.expectByte(byte(ObjectOpObject), "first item tag")
	sr.expectVarUint(3, "element record back-reference")
	if got := sr.readUint32(); got != 1 {
		t.Fatalf("field A = %d, want 1", got)
	}
	sr.expectByte(0x01, "field B presence")
	sr.expectVarUint(1, "field B length")
	if got := sr.readBytes(1); got[0] != 'x' {
		t.Fatalf("field B = %q, want x", got)
	}

	// The second slot back-references the first emission.
	sr.expectByte(byte(ObjectOpMemo), "second item memo")
	if got := sr.readMemoPos(); got != posR {
		t.Fatalf("memo position = %d, want %d", got, posR)
	}
	sr.done()
}

func TestPickleSelfReference(t *testing.T) {

	root := &testSelf{}
	root.Self = root

	var buf bytes.Buffer
	if err := New(&buf, nil).Pickle(root); err != nil {
		t.Fatalf("Pickle failed: %v", err)
	}

	sr := newStreamReader(t, buf.Bytes())
	posRoot := sr.pos()
	sr.expectByte(byte(ObjectOpObject), "root tag")
	sr.expectVarUint(0, "record marker")
	sr.expectString("*pickle.testSelf", "record name")
	sr.expectByte(0x52, "packed byte")
	sr.expectVarUint(1, "field count")
	sr.expectString("Self", "field name")
	sr.expectVarUint(2, "self record back-reference")

	sr.expectByte(byte(ObjectOpMemo), "cyclic field memo")
	if got := sr.readMemoPos(); got != posRoot {
		t.Fatalf("memo position = %d, want %d", got, posRoot)
	}
	sr.done()
}

func TestPickleRectangularArray(t *testing.T) {

	a := NewArray(reflect.TypeOf(int16(0)),
		ArrayDimension{Length: 2, LowerBound: 1},
		ArrayDimension{Length: 3, LowerBound: 2})
	v := int16(0)
	for i := 1; i <= 2; i++ {
		for j := 2; j <= 4; j++ {
			v += 10
			if err := a.Set(v, i, j); err != nil {
				t.Fatalf("Set(%d,%d) failed: %v", i, j, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := New(&buf, nil).Pickle(a); err != nil {
		t.Fatalf("Pickle failed: %v", err)
	}

	_, off, _ := ParseHeader(buf.Bytes())
	want := []byte{
		byte(ObjectOpObject),
		byte(TypeOpArrayType), 0x02, byte(TypeOpInt16),
		0x02, 0x01, // length 2, lower bound 1
		0x03, 0x02, // length 3, lower bound 2
		0x0A, 0x00, 0x14, 0x00, 0x1E, 0x00,
		0x28, 0x00, 0x32, 0x00, 0x3C, 0x00,
	}
	if !reflect.DeepEqual(buf.Bytes()[off:], want) {
		t.Errorf("payload = % x, want % x", buf.Bytes()[off:], want)
	}
}

func TestPickleValueFieldsNeverMemoized(t *testing.T) {

	shared := testVal{N: 9}
	root := testPair{A: shared, B: shared}

	var buf bytes.Buffer
	if err := New(&buf, nil).Pickle(root); err != nil {
		t.Fatalf("Pickle failed: %v", err)
	}

	sr := newStreamReader(t, buf.Bytes())
	sr.expectVarUint(0, "pair record marker")
	sr.expectString("pickle.testPair", "pair record name")
	sr.expectByte(0x53, "pair packed byte")
	sr.expectVarUint(2, "pair field count")
	sr.expectString("A", "field A name")
	sr.expectVarUint(0, "value record marker")
	sr.expectString("pickle.testVal", "value record name")
	sr.expectByte(0x53, "value packed byte")
	sr.expectVarUint(1, "value field count")
	sr.expectString("N", "inner field name")
	sr.expectVarUint(1, "well-known field marker")
	sr.expectByte(byte(TypeOpInt32), "inner field token")
	sr.expectString("B", "field B name")
	sr.expectVarUint(3, "value record back-reference")

	// Both fields are written in full: identical values never share a memo.
	sr.expectVarUint(3, "field A record reference")
	if got := sr.readUint32(); got != 9 {
		t.Fatalf("A.N = %d, want 9", got)
	}
	sr.expectVarUint(3, "field B record reference")
	if got := sr.readUint32(); got != 9 {
		t.Fatalf("B.N = %d, want 9", got)
	}
	sr.done()
}

func TestPickleEnumValue(t *testing.T) {

	var buf bytes.Buffer
	if err := New(&buf, nil).Pickle(testColor(3)); err != nil {
		t.Fatalf("Pickle failed: %v", err)
	}

	sr := newStreamReader(t, buf.Bytes())
	sr.expectVarUint(0, "enum record marker")
	sr.expectString("pickle.testColor", "enum record name")
	sr.expectByte(0x13, "enum packed byte")
	sr.expectByte(byte(PrimInt32), "enum underlying code")
	if got := sr.readUint32(); got != 3 {
		t.Fatalf("enum value = %d, want 3", got)
	}
	sr.done()
}

func TestPickleTupleDynamicSlots(t *testing.T) {

	var buf bytes.Buffer
	if err := New(&buf, nil).Pickle(NewTuple(int32(1))); err != nil {
		t.Fatalf("Pickle failed: %v", err)
	}

	sr := newStreamReader(t, buf.Bytes())
	sr.expectByte(byte(ObjectOpObject), "tuple tag")
	sr.expectVarUint(1, "tuple arity")
	sr.expectByte(byte(ObjectOpObject), "boxed slot tag")
	sr.expectByte(byte(TypeOpInt32), "runtime type token")
	if got := sr.readUint32(); got != 1 {
		t.Fatalf("slot = %d, want 1", got)
	}
	sr.done()
}

func TestPickleDeterminism(t *testing.T) {

	build := func() interface{} {
		r := &testRec{A: 2, B: "b"}
		return map[string]interface{}{
			"zz": r,
			"aa": []*testRec{r},
			"mm": testColor(1),
		}
	}

	var first, second bytes.Buffer
	if err := New(&first, nil).Pickle(build()); err != nil {
		t.Fatalf("first Pickle failed: %v", err)
	}
	if err := New(&second, nil).Pickle(build()); err != nil {
		t.Fatalf("second Pickle failed: %v", err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Errorf("two runs over equal graphs produced different bytes")
	}
}

func TestPickleSharedGraphCounters(t *testing.T) {

	r := &testRec{A: 1, B: "x"}
	var buf bytes.Buffer
	p := New(&buf, nil)
	if err := p.Pickle([]*testRec{r, r, r}); err != nil {
		t.Fatalf("Pickle failed: %v", err)
	}
	c := p.Counters()
	if c.MemoHits != 2 {
		t.Errorf("memo hits = %d, want 2", c.MemoHits)
	}
	if c.Objects == 0 {
		t.Errorf("objects = 0, want > 0")
	}
}
