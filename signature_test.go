// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// buildShape defines a method of a fixed shape on a freshly built type, the
// way a consumer rebuilding a pickled definition would.
func buildShape(assemblyName string) *Method {
	asm := NewDynamicAssembly(assemblyName)
	typ := asm.ManifestModule().DefineType("", "Worker", TypeKindClass,
		TypeAttrPublic)
	return typ.DefineMethod("Run", MethodAttrPublic, Int32Type,
		NewParameter("input", StringType),
		NewParameter("flags", NewSZArrayType(BoolType)))
}

func TestSignatureStableAcrossRebuild(t *testing.T) {

	original := MethodSignature(buildShape("one"))
	rebuilt := MethodSignature(buildShape("two"))

	assert.True(t, original.Equal(rebuilt))
	assert.Equal(t, original.Hash(), rebuilt.Hash())
	assert.Equal(t, original.String(), rebuilt.String())
}

func TestSignatureString(t *testing.T) {

	sig := MethodSignature(buildShape("one"))
	assert.Equal(t, "Run(string, bool[]) : int32", sig.String())
}

func TestSignatureInequality(t *testing.T) {

	base := MethodSignature(buildShape("one"))

	renamed := buildShape("two")
	renamed.Name = "Walk"
	assert.False(t, base.Equal(MethodSignature(renamed)))

	widened := buildShape("three")
	widened.Params = append(widened.Params, NewParameter("extra", Int32Type))
	assert.False(t, base.Equal(MethodSignature(widened)))

	retyped := buildShape("four")
	retyped.Return.Type = Int64Type
	assert.False(t, base.Equal(MethodSignature(retyped)))
}

func TestSignatureGenericParameters(t *testing.T) {

	build := func() Signature {
		asm := NewDynamicAssembly("dyn")
		typ := asm.ManifestModule().DefineType("", "Box", TypeKindClass, 0)
		tparams := typ.DefineGenericParameters("T")
		m := typ.DefineMethod("Map", MethodAttrPublic, nil)
		mparams := m.DefineGenericParameters("U")
		m.Params = []*Parameter{
			NewParameter("item", tparams[0]),
			NewParameter("seed", mparams[0]),
		}
		return MethodSignature(m)
	}

	a, b := build(), build()
	assert.True(t, a.Equal(b))
	assert.Equal(t, "Map`1(!0, !!0) : void", a.String())

	// The elements distinguish owner kinds, not owner identity.
	assert.Equal(t, SigGenericParam{Method: false, Position: 0}, a.Params[0])
	assert.Equal(t, SigGenericParam{Method: true, Position: 0}, a.Params[1])
}

func TestSignatureModifiers(t *testing.T) {

	plain := NewParameter("v", Int32Type)
	wrapped := NewParameter("v", Int32Type)
	wrapped.Required = []*Type{StringType}

	a := Signature{Name: "F", Return: SigNamedType{Name: "void"},
		Params: []SignatureElement{parameterElement(plain)}}
	b := Signature{Name: "F", Return: SigNamedType{Name: "void"},
		Params: []SignatureElement{parameterElement(wrapped)}}

	assert.False(t, a.Equal(b))
	assert.Equal(t, "int32 modreq(string)", b.Params[0].String())
}

func TestSignatureConstructedGenericUsesDefinition(t *testing.T) {

	asm := NewDynamicAssembly("dyn")
	typ := asm.ManifestModule().DefineType("", "Box", TypeKindClass, 0)
	m := typ.DefineMethod("Get", MethodAttrPublic, Int32Type)
	m.DefineGenericParameters("U")

	inst := m.MakeGeneric(Int32Type)
	assert.True(t, MethodSignature(inst).Equal(MethodSignature(m)))
}

func TestSignatureElementShapes(t *testing.T) {

	tests := []struct {
		in  SignatureElement
		op  SignatureElementOperation
		str string
	}{
		{SigNamedType{Name: "int32"}, SigOpType, "int32"},
		{SigGenericParam{Position: 1}, SigOpTVar, "!1"},
		{SigGenericParam{Method: true, Position: 2}, SigOpMVar, "!!2"},
		{SigArray{Rank: 1, SZ: true, Element: SigNamedType{Name: "bool"}},
			SigOpArray, "bool[]"},
		{SigArray{Rank: 3, Element: SigNamedType{Name: "bool"}},
			SigOpArray, "bool[,,]"},
		{SigByRef{Element: SigNamedType{Name: "int32"}}, SigOpByRef, "int32&"},
		{SigPointer{Element: SigNamedType{Name: "int32"}}, SigOpPointer, "int32*"},
		{SigConstructedGeneric{
			Def:  SigNamedType{Name: "List"},
			Args: []SignatureElement{SigNamedType{Name: "int32"}},
		}, SigOpGeneric, "List[int32]"},
		{SigModOpt{
			Element:  SigNamedType{Name: "int32"},
			Modifier: SigNamedType{Name: "volatile"},
		}, SigOpModopt, "int32 modopt(volatile)"},
	}

	for _, tt := range tests {
		if got := tt.in.Op(); got != tt.op {
			t.Errorf("%s: op = %v, want %v", tt.str, got, tt.op)
		}
		if got := tt.in.String(); got != tt.str {
			t.Errorf("element string = %q, want %q", got, tt.str)
		}
		if !tt.in.Equal(tt.in) {
			t.Errorf("%s is not equal to itself", tt.str)
		}
	}
}
