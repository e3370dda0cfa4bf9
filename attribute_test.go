// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributeTagOf(t *testing.T) {

	tests := []struct {
		in  interface{}
		out AttributeValueTag
	}{
		{nil, AttrTagString},
		{true, AttrTagBool},
		{int8(1), AttrTagInt8},
		{uint16(1), AttrTagUint16},
		{int32(1), AttrTagInt32},
		{int64(1), AttrTagInt64},
		{int(1), AttrTagInt64},
		{float32(1), AttrTagFloat32},
		{float64(1), AttrTagFloat64},
		{"s", AttrTagString},
		{testColor(1), AttrTagEnum},
		{[]int32{1}, AttrTagSZArray},
		{Int32Type, AttrTagType},
	}

	for _, tt := range tests {
		got, err := attributeTagOf(tt.in)
		if err != nil {
			t.Fatalf("attributeTagOf(%v) failed: %v", tt.in, err)
		}
		if got != tt.out {
			t.Errorf("attributeTagOf(%v) = %s, want %s", tt.in, got, tt.out)
		}
	}
}

func TestAttributeTagOfUnsupported(t *testing.T) {

	if _, err := attributeTagOf(make(chan int)); err == nil {
		t.Errorf("channel value classified, want error")
	}
}

func TestWriteAttributeValues(t *testing.T) {

	t.Run("scalar", func(t *testing.T) {
		var buf bytes.Buffer
		p := New(&buf, nil)
		require.NoError(t, p.writeAttributeValue(int32(7)))
		assert.Equal(t, []byte{byte(AttrTagInt32), 0x07, 0x00, 0x00, 0x00},
			buf.Bytes())
	})

	t.Run("string", func(t *testing.T) {
		var buf bytes.Buffer
		p := New(&buf, nil)
		require.NoError(t, p.writeAttributeValue("hi"))
		assert.Equal(t, []byte{byte(AttrTagString), 0x01, 0x02, 'h', 'i'},
			buf.Bytes())
	})

	t.Run("enum carries its type", func(t *testing.T) {
		var buf bytes.Buffer
		p := New(&buf, nil)
		require.NoError(t, p.writeAttributeValue(testColor(2)))
		assert.Equal(t, byte(AttrTagEnum), buf.Bytes()[0])
		assert.Equal(t, byte(TypeOpTypeRef), buf.Bytes()[1])
	})

	t.Run("array of tagged items", func(t *testing.T) {
		var buf bytes.Buffer
		p := New(&buf, nil)
		require.NoError(t, p.writeAttributeValue([]int32{1, 2}))
		sr := &streamReader{t: t, data: buf.Bytes()}
		sr.expectByte(byte(AttrTagSZArray), "array tag")
		sr.expectVarUint(2, "array length")
		sr.expectByte(byte(AttrTagInt32), "item tag")
	})

	t.Run("type literal", func(t *testing.T) {
		var buf bytes.Buffer
		p := New(&buf, nil)
		require.NoError(t, p.writeAttributeValue(Int32Type))
		assert.Equal(t, []byte{byte(AttrTagType), byte(TypeOpInt32)}, buf.Bytes())
	})
}

func TestWriteAttributesTable(t *testing.T) {

	asm := NewDynamicAssembly("dyn")
	marker := asm.ManifestModule().DefineType("", "Marker", TypeKindClass,
		TypeAttrPublic)
	ctor := marker.DefineConstructor(MethodAttrPublic,
		NewParameter("level", Int32Type))

	attr := &Attribute{
		Constructor: ctor,
		Arguments:   []interface{}{int32(3), "debug"},
		Named: []NamedArgument{
			{Name: "Enabled", Field: true, Value: true},
		},
	}

	var buf bytes.Buffer
	p := New(&buf, nil)
	err := p.trailers.scope(func() error {
		return p.writeAttributes([]*Attribute{attr})
	})
	require.NoError(t, err)

	sr := &streamReader{t: t, data: buf.Bytes()}
	sr.expectVarUint(1, "attribute count")
	sr.expectByte(byte(TypeOpTypeDef), "attribute type")

	// The named argument entry carries member tag, value tag and name
	// ahead of the value.
	assert.True(t, bytes.Contains(buf.Bytes(), []byte{
		byte(AttrTagField), byte(AttrTagBool),
		0x07, 'E', 'n', 'a', 'b', 'l', 'e', 'd',
		0x01,
	}))
}

func TestWriteEmptyAttributeTable(t *testing.T) {

	var buf bytes.Buffer
	p := New(&buf, nil)
	require.NoError(t, p.writeAttributes(nil))
	assert.Equal(t, []byte{0x00}, buf.Bytes())
}
