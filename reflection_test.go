// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAssemblyModes(t *testing.T) {

	t.Run("core", func(t *testing.T) {
		var buf bytes.Buffer
		p := New(&buf, nil)
		require.NoError(t, p.writeAssembly(CoreAssembly()))
		assert.Equal(t, []byte{byte(AssemblyOpMscorlib)}, buf.Bytes())
	})

	t.Run("located is by reference", func(t *testing.T) {
		var buf bytes.Buffer
		p := New(&buf, nil)
		a := NewAssembly("fixture")
		a.Location = "/lib/fixture.dll"
		require.NoError(t, p.writeAssembly(a))
		assert.Equal(t, byte(AssemblyOpAssemblyRef), buf.Bytes()[0])
	})

	t.Run("dynamic is by value", func(t *testing.T) {
		var buf bytes.Buffer
		p := New(&buf, nil)
		a := NewDynamicAssembly("scratch")
		err := p.trailers.scope(func() error { return p.writeAssembly(a) })
		require.NoError(t, err)
		assert.Equal(t, byte(AssemblyOpAssemblyDef), buf.Bytes()[0])
	})

	t.Run("own assembly never by value", func(t *testing.T) {
		var buf bytes.Buffer
		p := New(&buf, nil)
		a := NewDynamicAssembly(selfAssemblyName)
		require.NoError(t, p.writeAssembly(a))
		assert.Equal(t, byte(AssemblyOpAssemblyRef), buf.Bytes()[0])
	})

	t.Run("policy override", func(t *testing.T) {
		var buf bytes.Buffer
		p := New(&buf, &Options{
			AssemblyMode: func(*Assembly) AssemblyPickleMode {
				return AssemblyModeByReference
			},
		})
		a := NewDynamicAssembly("scratch")
		require.NoError(t, p.writeAssembly(a))
		assert.Equal(t, byte(AssemblyOpAssemblyRef), buf.Bytes()[0])
	})
}

func TestWriteAssemblyMemo(t *testing.T) {

	var buf bytes.Buffer
	p := New(&buf, nil)
	a := NewAssembly("fixture")
	a.Location = "/lib/fixture.dll"

	require.NoError(t, p.writeAssembly(a))
	first := buf.Len()
	require.NoError(t, p.writeAssembly(a))

	assert.Equal(t, byte(AssemblyOpMemo), buf.Bytes()[first])
	pos := binary.LittleEndian.Uint16(buf.Bytes()[first+1:])
	assert.Equal(t, uint16(0), pos&0x7fff)
}

func TestWriteModuleForms(t *testing.T) {

	t.Run("core", func(t *testing.T) {
		var buf bytes.Buffer
		p := New(&buf, nil)
		require.NoError(t, p.writeModule(CoreModule()))
		assert.Equal(t, []byte{byte(ModuleOpMscorlib)}, buf.Bytes())
	})

	t.Run("manifest reference", func(t *testing.T) {
		var buf bytes.Buffer
		p := New(&buf, nil)
		a := NewAssembly("fixture")
		a.Location = "/lib/fixture.dll"
		require.NoError(t, p.writeModule(a.ManifestModule()))
		assert.Equal(t, byte(ModuleOpManifestModuleRef), buf.Bytes()[0])
	})

	t.Run("secondary module reference", func(t *testing.T) {
		var buf bytes.Buffer
		p := New(&buf, nil)
		a := NewAssembly("fixture")
		a.Location = "/lib/fixture.dll"
		m := a.DefineModule("extra.netmodule")
		require.NoError(t, p.writeModule(m))
		assert.Equal(t, byte(ModuleOpModuleRef), buf.Bytes()[0])
	})

	t.Run("dynamic definition", func(t *testing.T) {
		var buf bytes.Buffer
		p := New(&buf, nil)
		a := NewDynamicAssembly("scratch")
		err := p.trailers.scope(func() error {
			return p.writeModule(a.ManifestModule())
		})
		require.NoError(t, err)
		assert.Equal(t, byte(ModuleOpModuleDef), buf.Bytes()[0])
	})
}

func TestGlobalFieldZeroBlobNegatedLength(t *testing.T) {

	var buf bytes.Buffer
	p := New(&buf, nil)

	f := &Field{Name: "data", Type: BytesType, RVAData: []byte{0, 0, 0, 0}}
	require.NoError(t, p.writeGlobalFieldDef(f))

	sr := &streamReader{t: t, data: buf.Bytes()}
	assert.Equal(t, "data", sr.readString())
	sr.readVarUint() // attrs
	sr.expectByte(byte(TypeOpBytes), "field type token")
	// Zig-zag of -4.
	assert.Equal(t, uint64(7), sr.readVarUint())
	sr.done()
}

func TestDynamicEnumDefinition(t *testing.T) {

	asm := NewDynamicAssembly("dyn")
	hue := asm.ManifestModule().DefineType("", "Hue", TypeKindEnum, TypeAttrPublic)
	hue.SetEnumUnderlying(PrimInt16)
	hue.AddEnumEntry("Red", 1)
	hue.AddEnumEntry("Blue", 2)

	var buf bytes.Buffer
	p := New(&buf, nil)
	err := p.trailers.scope(func() error { return p.writeType(hue) })
	require.NoError(t, err)

	sr := &streamReader{t: t, data: buf.Bytes()}
	sr.expectByte(byte(TypeOpTypeDef), "typedef op")
	sr.expectString("Hue", "type name")
	sr.readVarUint() // attrs
	sr.expectByte(byte(TypeKindEnum), "kind")
	sr.expectVarUint(0, "generic parameter count")
	sr.expectByte(0x00, "nested flag")
	sr.expectByte(byte(ModuleOpModuleDef), "module def")
	sr.expectString("dyn.dll", "module name")
	sr.expectByte(byte(AssemblyOpAssemblyDef), "assembly def")
	sr.expectString("dyn", "assembly name")
	sr.expectVarUint(0, "global fields")
	sr.expectVarUint(0, "global methods")
	sr.expectByte(byte(PrimInt16), "underlying code")
	sr.expectVarUint(2, "entry count")
	sr.expectString("Red", "first entry")
	assert.Equal(t, []byte{0x01, 0x00}, sr.readBytes(2))
	sr.expectString("Blue", "second entry")
	assert.Equal(t, []byte{0x02, 0x00}, sr.readBytes(2))

	// Scope exit drains the deferred attribute tables of the module and
	// assembly definitions; the module's trailer was pushed last, so it
	// runs first.
	sr.expectVarUint(0, "module attribute table")
	sr.expectVarUint(0, "assembly attribute table")
	sr.done()
}

func TestDynamicEnumRejectsBadUnderlying(t *testing.T) {

	asm := NewDynamicAssembly("dyn")
	bad := asm.ManifestModule().DefineType("", "Bad", TypeKindEnum, 0)
	bad.SetEnumUnderlying(PrimString)

	var buf bytes.Buffer
	p := New(&buf, nil)
	err := p.trailers.scope(func() error { return p.writeType(bad) })
	assert.ErrorIs(t, err, ErrInvalidEnumUnderlying)
}

func TestDynamicTypeWithSelfReferencingBody(t *testing.T) {

	asm := NewDynamicAssembly("scratch")
	mod := asm.ManifestModule()
	cell := mod.DefineType("", "Cell", TypeKindStruct, TypeAttrPublic)
	next := cell.DefineMethod("Next", MethodAttrPublic|MethodAttrStatic, Int32Type)

	tok := mod.TokenFor(next)
	code := []byte{0x28, 0, 0, 0, 0, 0x2A} // call <token>; ret
	binary.LittleEndian.PutUint32(code[1:], uint32(tok))
	next.SetBody(&MethodBody{MaxStack: 1, InitLocals: true, Code: code})

	var buf bytes.Buffer
	p := New(&buf, nil)
	require.NoError(t, p.Pickle(cell))

	// The deferred body carries the mirrored ret opcode followed by the
	// body terminator.
	assert.True(t, bytes.Contains(buf.Bytes(), []byte{0x2A, ilBodyTerminator}))
	assert.NoError(t, p.trailers.assertDrained())
}

func TestWriteRankOverflow(t *testing.T) {

	var buf bytes.Buffer
	p := New(&buf, nil)
	at := NewArrayType(Int32Type, 300)
	assert.ErrorIs(t, p.writeType(at), ErrUnsupportedRank)
}

func TestWriteModifierOverflow(t *testing.T) {

	var buf bytes.Buffer
	p := New(&buf, nil)

	param := NewParameter("v", Int32Type)
	for i := 0; i < 8; i++ {
		param.Required = append(param.Required, StringType)
	}
	err := p.writeParameters([]*Parameter{param})
	assert.ErrorIs(t, err, ErrUnsupportedModifierCount)
}

func TestGenericParameterContexts(t *testing.T) {

	asm := NewDynamicAssembly("dyn")
	box := asm.ManifestModule().DefineType("", "Box", TypeKindClass, TypeAttrPublic)
	params := box.DefineGenericParameters("T")

	t.Run("in context", func(t *testing.T) {
		var buf bytes.Buffer
		p := New(&buf, nil)
		p.genericTypeContext = params
		require.NoError(t, p.writeType(params[0]))
		assert.Equal(t, []byte{byte(TypeOpTVar), 0x00}, buf.Bytes())
	})

	t.Run("out of context", func(t *testing.T) {
		var buf bytes.Buffer
		p := New(&buf, nil)
		err := p.trailers.scope(func() error { return p.writeType(params[0]) })
		require.NoError(t, err)
		assert.Equal(t, byte(TypeOpGenericTypeParameter), buf.Bytes()[0])
	})
}

func TestGenericInstantiation(t *testing.T) {

	asm := NewDynamicAssembly("dyn")
	box := asm.ManifestModule().DefineType("", "Box", TypeKindClass, TypeAttrPublic)
	box.DefineGenericParameters("T")
	inst := NewGenericInstance(box, Int32Type)

	var buf bytes.Buffer
	p := New(&buf, nil)
	err := p.trailers.scope(func() error { return p.writeType(inst) })
	require.NoError(t, err)

	sr := &streamReader{t: t, data: buf.Bytes()}
	sr.expectByte(byte(TypeOpGenericInstantiation), "instantiation op")
	sr.expectByte(byte(TypeOpTypeDef), "definition op")
}
