// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

import (
	"fmt"
	"strings"

	"github.com/spaolacci/murmur3"
)

// SignatureElement is the structural identity of one type position inside
// a signature. Elements compare structurally so that a rebuilt dynamic
// type matches the equivalent fully-defined one.
type SignatureElement interface {
	// Op returns the wire discriminator of the element.
	Op() SignatureElementOperation

	// Equal reports structural equality.
	Equal(other SignatureElement) bool

	// String returns the canonical rendering of the element.
	String() string
}

// SigNamedType names a type by its full name.
type SigNamedType struct {
	Name string
}

// Op implements SignatureElement.
func (e SigNamedType) Op() SignatureElementOperation { return SigOpType }

// Equal implements SignatureElement.
func (e SigNamedType) Equal(other SignatureElement) bool {
	o, ok := other.(SigNamedType)
	return ok && o.Name == e.Name
}

func (e SigNamedType) String() string { return e.Name }

// SigGenericParam identifies a generic parameter by owner kind and
// position.
type SigGenericParam struct {
	// Method is true for method generic parameters, false for type ones.
	Method   bool
	Position int
}

// Op implements SignatureElement.
func (e SigGenericParam) Op() SignatureElementOperation {
	if e.Method {
		return SigOpMVar
	}
	return SigOpTVar
}

// Equal implements SignatureElement.
func (e SigGenericParam) Equal(other SignatureElement) bool {
	o, ok := other.(SigGenericParam)
	return ok && o.Method == e.Method && o.Position == e.Position
}

func (e SigGenericParam) String() string {
	if e.Method {
		return fmt.Sprintf("!!%d", e.Position)
	}
	return fmt.Sprintf("!%d", e.Position)
}

// SigConstructedGeneric is an instantiated generic element.
type SigConstructedGeneric struct {
	Def  SignatureElement
	Args []SignatureElement
}

// Op implements SignatureElement.
func (e SigConstructedGeneric) Op() SignatureElementOperation { return SigOpGeneric }

// Equal implements SignatureElement.
func (e SigConstructedGeneric) Equal(other SignatureElement) bool {
	o, ok := other.(SigConstructedGeneric)
	if !ok || !o.Def.Equal(e.Def) || len(o.Args) != len(e.Args) {
		return false
	}
	for i := range e.Args {
		if !o.Args[i].Equal(e.Args[i]) {
			return false
		}
	}
	return true
}

func (e SigConstructedGeneric) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return e.Def.String() + "[" + strings.Join(args, ",") + "]"
}

// SigArray is an array shape element.
type SigArray struct {
	Rank    int
	SZ      bool
	Element SignatureElement
}

// Op implements SignatureElement.
func (e SigArray) Op() SignatureElementOperation { return SigOpArray }

// Equal implements SignatureElement.
func (e SigArray) Equal(other SignatureElement) bool {
	o, ok := other.(SigArray)
	return ok && o.Rank == e.Rank && o.SZ == e.SZ && o.Element.Equal(e.Element)
}

func (e SigArray) String() string {
	if e.SZ {
		return e.Element.String() + "[]"
	}
	return e.Element.String() + "[" + strings.Repeat(",", e.Rank-1) + "]"
}

// SigByRef is a by-reference element.
type SigByRef struct {
	Element SignatureElement
}

// Op implements SignatureElement.
func (e SigByRef) Op() SignatureElementOperation { return SigOpByRef }

// Equal implements SignatureElement.
func (e SigByRef) Equal(other SignatureElement) bool {
	o, ok := other.(SigByRef)
	return ok && o.Element.Equal(e.Element)
}

func (e SigByRef) String() string { return e.Element.String() + "&" }

// SigPointer is an unmanaged pointer element.
type SigPointer struct {
	Element SignatureElement
}

// Op implements SignatureElement.
func (e SigPointer) Op() SignatureElementOperation { return SigOpPointer }

// Equal implements SignatureElement.
func (e SigPointer) Equal(other SignatureElement) bool {
	o, ok := other.(SigPointer)
	return ok && o.Element.Equal(e.Element)
}

func (e SigPointer) String() string { return e.Element.String() + "*" }

// SigModReq wraps an element with a required custom modifier.
type SigModReq struct {
	Element  SignatureElement
	Modifier SignatureElement
}

// Op implements SignatureElement.
func (e SigModReq) Op() SignatureElementOperation { return SigOpModreq }

// Equal implements SignatureElement.
func (e SigModReq) Equal(other SignatureElement) bool {
	o, ok := other.(SigModReq)
	return ok && o.Element.Equal(e.Element) && o.Modifier.Equal(e.Modifier)
}

func (e SigModReq) String() string {
	return e.Element.String() + " modreq(" + e.Modifier.String() + ")"
}

// SigModOpt wraps an element with an optional custom modifier.
type SigModOpt struct {
	Element  SignatureElement
	Modifier SignatureElement
}

// Op implements SignatureElement.
func (e SigModOpt) Op() SignatureElementOperation { return SigOpModopt }

// Equal implements SignatureElement.
func (e SigModOpt) Equal(other SignatureElement) bool {
	o, ok := other.(SigModOpt)
	return ok && o.Element.Equal(e.Element) && o.Modifier.Equal(e.Modifier)
}

func (e SigModOpt) String() string {
	return e.Element.String() + " modopt(" + e.Modifier.String() + ")"
}

// Signature is the structural, name-based identity of a method or
// property, stable across type rebuild.
type Signature struct {
	Name              string
	CallingConvention CallingConvention
	GenericParamCount int
	Return            SignatureElement
	Params            []SignatureElement
}

// SignatureElementOf converts a metadata type into its signature element.
func SignatureElementOf(t *Type) SignatureElement {
	switch {
	case t == nil:
		return SigNamedType{Name: "void"}
	case t.IsGenericParameter():
		return SigGenericParam{
			Method:   t.GenericParameterOwnerMethod() != nil,
			Position: t.GenericParameterPosition(),
		}
	case t.IsByRef():
		return SigByRef{Element: SignatureElementOf(t.Element())}
	case t.IsPointer():
		return SigPointer{Element: SignatureElementOf(t.Element())}
	case t.IsArray():
		return SigArray{
			Rank:    t.Rank(),
			SZ:      t.IsSZArray(),
			Element: SignatureElementOf(t.Element()),
		}
	case t.IsConstructedGeneric():
		args := make([]SignatureElement, len(t.GenericArguments()))
		for i, a := range t.GenericArguments() {
			args[i] = SignatureElementOf(a)
		}
		return SigConstructedGeneric{
			Def:  SignatureElementOf(t.GenericDefinition()),
			Args: args,
		}
	}
	return SigNamedType{Name: t.FullName()}
}

// parameterElement wraps the base element of a parameter with its custom
// modifiers, innermost required first.
func parameterElement(p *Parameter) SignatureElement {
	elem := SignatureElementOf(p.Type)
	for _, mod := range p.Required {
		elem = SigModReq{Element: elem, Modifier: SignatureElementOf(mod)}
	}
	for _, mod := range p.Optional {
		elem = SigModOpt{Element: elem, Modifier: SignatureElementOf(mod)}
	}
	return elem
}

// MethodSignature derives the structural signature of a method. For
// constructed generic methods the definition's signature is returned.
func MethodSignature(m *Method) Signature {
	if m.IsConstructedGeneric() {
		return MethodSignature(m.GenericDefinition())
	}
	params := make([]SignatureElement, len(m.Params))
	for i, p := range m.Params {
		params[i] = parameterElement(p)
	}
	return Signature{
		Name:              m.Name,
		CallingConvention: m.CallingConvention,
		GenericParamCount: len(m.GenericParams),
		Return:            parameterElement(&m.Return),
		Params:            params,
	}
}

// ConstructorSignature derives the structural signature of a constructor.
func ConstructorSignature(c *Constructor) Signature {
	params := make([]SignatureElement, len(c.Params))
	for i, p := range c.Params {
		params[i] = parameterElement(p)
	}
	return Signature{
		Name:              c.MemberName(),
		CallingConvention: c.CallingConvention,
		Return:            SigNamedType{Name: "void"},
		Params:            params,
	}
}

// PropertySignature derives the structural signature of a property from
// its type and index parameters.
func PropertySignature(p *Property) Signature {
	params := make([]SignatureElement, len(p.IndexParams))
	for i, ip := range p.IndexParams {
		params[i] = parameterElement(ip)
	}
	return Signature{
		Name:   p.Name,
		Return: SignatureElementOf(p.Type),
		Params: params,
	}
}

// Equal reports structural equality of two signatures.
func (s Signature) Equal(other Signature) bool {
	if s.Name != other.Name ||
		s.CallingConvention != other.CallingConvention ||
		s.GenericParamCount != other.GenericParamCount ||
		len(s.Params) != len(other.Params) {
		return false
	}
	if !s.Return.Equal(other.Return) {
		return false
	}
	for i := range s.Params {
		if !s.Params[i].Equal(other.Params[i]) {
			return false
		}
	}
	return true
}

// String returns the canonical rendering used for diagnostics and hashing.
func (s Signature) String() string {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.String()
	}
	name := s.Name
	if s.GenericParamCount > 0 {
		name = fmt.Sprintf("%s`%d", name, s.GenericParamCount)
	}
	return fmt.Sprintf("%s(%s) : %s", name, strings.Join(params, ", "),
		s.Return.String())
}

// Hash returns a stable hashcode of the canonical rendering.
func (s Signature) Hash() uint64 {
	return murmur3.Sum64([]byte(s.String()))
}
