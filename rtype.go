// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

import (
	"fmt"
	"reflect"
	"strings"
)

// TypeKind discriminates the flavors of a named type definition.
type TypeKind uint8

// Type kinds.
const (
	// TypeKindClass is a reference type with fields and methods.
	TypeKindClass TypeKind = iota
	// TypeKindStruct is a value type.
	TypeKindStruct
	// TypeKindInterface declares members without implementation.
	TypeKindInterface
	// TypeKindEnum is a named set of integral values.
	TypeKindEnum
	// TypeKindDelegate is a method-typed reference with an invoke signature.
	TypeKindDelegate
)

// String returns the name of a type kind.
func (k TypeKind) String() string {
	switch k {
	case TypeKindClass:
		return "Class"
	case TypeKindStruct:
		return "Struct"
	case TypeKindInterface:
		return "Interface"
	case TypeKindEnum:
		return "Enum"
	case TypeKindDelegate:
		return "Delegate"
	}
	return "?"
}

// TypeAttributes is the visibility/semantics flag word of a type.
type TypeAttributes uint32

// Type attribute flags.
const (
	TypeAttrPublic    TypeAttributes = 0x00000001
	TypeAttrNested    TypeAttributes = 0x00000002
	TypeAttrAbstract  TypeAttributes = 0x00000080
	TypeAttrSealed    TypeAttributes = 0x00000100
	TypeAttrInterface TypeAttributes = 0x00000020
)

// PrimitiveCode identifies a builtin scalar shape. It is the underlying
// code of enums and the tag of directly-encoded constants.
type PrimitiveCode uint8

// Primitive codes.
const (
	PrimNone PrimitiveCode = iota
	PrimBool
	PrimInt8
	PrimUint8
	PrimInt16
	PrimUint16
	PrimInt32
	PrimUint32
	PrimInt64
	PrimUint64
	PrimInt
	PrimUint
	PrimFloat32
	PrimFloat64
	PrimString
)

// String returns the name of a primitive code.
func (c PrimitiveCode) String() string {
	names := map[PrimitiveCode]string{
		PrimBool:    "Bool",
		PrimInt8:    "Int8",
		PrimUint8:   "Uint8",
		PrimInt16:   "Int16",
		PrimUint16:  "Uint16",
		PrimInt32:   "Int32",
		PrimUint32:  "Uint32",
		PrimInt64:   "Int64",
		PrimUint64:  "Uint64",
		PrimInt:     "Int",
		PrimUint:    "Uint",
		PrimFloat32: "Float32",
		PrimFloat64: "Float64",
		PrimString:  "String",
	}
	if v, ok := names[c]; ok {
		return v
	}
	return "?"
}

// EnumEntry is one named value of an enum definition.
type EnumEntry struct {
	Name  string
	Value int64
}

// InterfaceMapping pairs an interface method with the target method that
// implements it on a type.
type InterfaceMapping struct {
	InterfaceMethod *Method
	TargetMethod    *Method
}

// Type is a metadata type entity. One struct covers named definitions,
// constructed generics, array shapes, byref/pointer shapes and generic
// parameters; the shape accessors discriminate.
type Type struct {
	name      string
	namespace string
	module    *Module
	declaring *Type
	attrs     TypeAttributes
	kind      TypeKind
	dynamic   bool

	base          *Type
	interfaces    []*Type
	interfaceMaps []InterfaceMapping

	genericParams []*Type
	genericArgs   []*Type
	genericDef    *Type

	element *Type
	rank    int
	szArray bool
	byRef   bool
	pointer bool

	isGenericParam bool
	gpPosition     int
	gpOwnerType    *Type
	gpOwnerMethod  *Method

	enumUnderlying PrimitiveCode
	enumEntries    []EnumEntry

	delegateInvoke *Method

	fields  []*Field
	methods []*Method
	ctors   []*Constructor
	props   []*Property
	events  []*Event

	// Attributes are the custom attributes applied to the type.
	Attributes []*Attribute

	// goType is set on types interned from the Go reflection surface.
	goType reflect.Type

	// wellKnown is the single-byte token for builtin types, zero otherwise.
	wellKnown TypeOperation
}

// Name returns the simple name of the type.
func (t *Type) Name() string { return t.name }

// Namespace returns the namespace of the type.
func (t *Type) Namespace() string { return t.namespace }

// FullName returns the namespace-qualified name.
func (t *Type) FullName() string {
	switch {
	case t.isGenericParam:
		return t.name
	case t.byRef:
		return t.element.FullName() + "&"
	case t.pointer:
		return t.element.FullName() + "*"
	case t.IsArray():
		if t.szArray {
			return t.element.FullName() + "[]"
		}
		return fmt.Sprintf("%s[%s]", t.element.FullName(),
			strings.Repeat(",", t.rank-1))
	case t.genericDef != nil:
		names := make([]string, len(t.genericArgs))
		for i, a := range t.genericArgs {
			names[i] = a.FullName()
		}
		return t.genericDef.FullName() + "[" + strings.Join(names, ",") + "]"
	case t.declaring != nil:
		return t.declaring.FullName() + "+" + t.name
	case t.namespace != "":
		return t.namespace + "." + t.name
	}
	return t.name
}

// Module returns the defining module, following constructed shapes to
// their element or definition.
func (t *Type) Module() *Module {
	switch {
	case t.module != nil:
		return t.module
	case t.element != nil:
		return t.element.Module()
	case t.genericDef != nil:
		return t.genericDef.Module()
	case t.gpOwnerType != nil:
		return t.gpOwnerType.Module()
	case t.gpOwnerMethod != nil && t.gpOwnerMethod.DeclaringType() != nil:
		return t.gpOwnerMethod.DeclaringType().Module()
	}
	return nil
}

// DeclaringType returns the enclosing type for nested types, nil otherwise.
func (t *Type) DeclaringType() *Type { return t.declaring }

// Kind returns the definition kind.
func (t *Type) Kind() TypeKind { return t.kind }

// Attrs returns the attribute flag word.
func (t *Type) Attrs() TypeAttributes { return t.attrs }

// IsDynamic reports whether the type was emitted at run time.
func (t *Type) IsDynamic() bool { return t.dynamic }

// IsValueType reports whether instances are values rather than references.
func (t *Type) IsValueType() bool {
	return t.kind == TypeKindStruct || t.kind == TypeKindEnum
}

// IsInterface reports whether the type is an interface.
func (t *Type) IsInterface() bool { return t.kind == TypeKindInterface }

// IsSealed reports whether the type cannot be derived from.
func (t *Type) IsSealed() bool {
	return t.attrs&TypeAttrSealed != 0 || t.IsValueType()
}

// IsAbstract reports whether the type cannot be instantiated.
func (t *Type) IsAbstract() bool {
	return t.attrs&TypeAttrAbstract != 0 || t.IsInterface()
}

// IsArray reports whether this is an array shape.
func (t *Type) IsArray() bool { return t.rank > 0 }

// IsSZArray reports whether this is a single-dimension, zero-lower-bound
// array shape.
func (t *Type) IsSZArray() bool { return t.szArray }

// IsByRef reports whether this is a by-reference shape.
func (t *Type) IsByRef() bool { return t.byRef }

// IsPointer reports whether this is an unmanaged pointer shape.
func (t *Type) IsPointer() bool { return t.pointer }

// IsGenericParameter reports whether this is a generic parameter
// placeholder.
func (t *Type) IsGenericParameter() bool { return t.isGenericParam }

// IsConstructedGeneric reports whether this is an instantiated generic.
func (t *Type) IsConstructedGeneric() bool { return t.genericDef != nil }

// Element returns the element type of array/byref/pointer shapes.
func (t *Type) Element() *Type { return t.element }

// Rank returns the array rank, zero for non-arrays.
func (t *Type) Rank() int { return t.rank }

// GenericDefinition returns the open definition of a constructed generic.
func (t *Type) GenericDefinition() *Type { return t.genericDef }

// GenericArguments returns the argument types of a constructed generic.
func (t *Type) GenericArguments() []*Type { return t.genericArgs }

// GenericParameters returns the declared generic parameters.
func (t *Type) GenericParameters() []*Type { return t.genericParams }

// GenericParameterPosition returns the position of a generic parameter.
func (t *Type) GenericParameterPosition() int { return t.gpPosition }

// GenericParameterOwnerType returns the owning type of a type generic
// parameter, nil for method parameters.
func (t *Type) GenericParameterOwnerType() *Type { return t.gpOwnerType }

// GenericParameterOwnerMethod returns the owning method of a method generic
// parameter, nil for type parameters.
func (t *Type) GenericParameterOwnerMethod() *Method { return t.gpOwnerMethod }

// BaseType returns the base type, nil for value types and interfaces.
func (t *Type) BaseType() *Type { return t.base }

// Interfaces returns the implemented interfaces.
func (t *Type) Interfaces() []*Type { return t.interfaces }

// InterfaceMaps returns the declared interface-method mappings.
func (t *Type) InterfaceMaps() []InterfaceMapping { return t.interfaceMaps }

// EnumUnderlying returns the underlying primitive code of an enum.
func (t *Type) EnumUnderlying() PrimitiveCode { return t.enumUnderlying }

// EnumEntries returns the named values of an enum definition.
func (t *Type) EnumEntries() []EnumEntry { return t.enumEntries }

// DelegateInvoke returns the invoke method of a delegate definition.
func (t *Type) DelegateInvoke() *Method { return t.delegateInvoke }

// Fields returns the declared fields.
func (t *Type) Fields() []*Field { return t.fields }

// Methods returns the declared methods.
func (t *Type) Methods() []*Method { return t.methods }

// Constructors returns the declared constructors.
func (t *Type) Constructors() []*Constructor { return t.ctors }

// Properties returns the declared properties.
func (t *Type) Properties() []*Property { return t.props }

// Events returns the declared events.
func (t *Type) Events() []*Event { return t.events }

// GoType returns the Go reflection type this entity was interned from, nil
// for dynamic or constructed entities.
func (t *Type) GoType() reflect.Type { return t.goType }

// SetBaseType sets the base type of a class definition.
func (t *Type) SetBaseType(base *Type) { t.base = base }

// AddInterface declares an implemented interface, optionally with explicit
// method mappings.
func (t *Type) AddInterface(iface *Type, maps ...InterfaceMapping) {
	t.interfaces = append(t.interfaces, iface)
	t.interfaceMaps = append(t.interfaceMaps, maps...)
}

// DefineGenericParameters declares generic parameters by name and returns
// their placeholder types.
func (t *Type) DefineGenericParameters(names ...string) []*Type {
	params := make([]*Type, len(names))
	for i, name := range names {
		params[i] = &Type{
			name:           name,
			isGenericParam: true,
			gpPosition:     i,
			gpOwnerType:    t,
		}
	}
	t.genericParams = params
	return params
}

// DefineField adds an instance or static field to the definition.
func (t *Type) DefineField(name string, typ *Type, attrs FieldAttributes) *Field {
	f := &Field{Name: name, Type: typ, Attrs: attrs, declaring: t}
	t.fields = append(t.fields, f)
	return f
}

// DefineLiteral adds a literal constant field (an enum member or const).
func (t *Type) DefineLiteral(name string, typ *Type, value interface{}) *Field {
	f := t.DefineField(name, typ, FieldAttrStatic|FieldAttrLiteral)
	f.Constant = value
	return f
}

// DefineMethod adds a method header to the definition.
func (t *Type) DefineMethod(name string, attrs MethodAttributes, ret *Type, params ...*Parameter) *Method {
	m := &Method{Name: name, Attrs: attrs, Params: params, declaring: t}
	m.Return.Type = ret
	t.methods = append(t.methods, m)
	return m
}

// DefineConstructor adds a constructor header to the definition.
func (t *Type) DefineConstructor(attrs MethodAttributes, params ...*Parameter) *Constructor {
	c := &Constructor{Attrs: attrs, Params: params, declaring: t}
	t.ctors = append(t.ctors, c)
	return c
}

// DefineProperty adds a property to the definition.
func (t *Type) DefineProperty(name string, typ *Type, attrs PropertyAttributes) *Property {
	p := &Property{Name: name, Type: typ, Attrs: attrs, declaring: t}
	t.props = append(t.props, p)
	return p
}

// DefineEvent adds an event to the definition.
func (t *Type) DefineEvent(name string, handler *Type, attrs EventAttributes) *Event {
	e := &Event{Name: name, HandlerType: handler, Attrs: attrs, declaring: t}
	t.events = append(t.events, e)
	return e
}

// AddEnumEntry appends a named value to an enum definition.
func (t *Type) AddEnumEntry(name string, value int64) {
	t.enumEntries = append(t.enumEntries, EnumEntry{Name: name, Value: value})
}

// SetEnumUnderlying sets the underlying code of an enum definition.
func (t *Type) SetEnumUnderlying(code PrimitiveCode) {
	t.enumUnderlying = code
}

// SetDelegateInvoke sets the invoke method of a delegate definition.
func (t *Type) SetDelegateInvoke(invoke *Method) {
	invoke.declaring = t
	t.delegateInvoke = invoke
}

// NewArrayType returns the general array shape over elem with the given
// rank. Rank one with zero lower bound should use NewSZArrayType instead.
func NewArrayType(elem *Type, rank int) *Type {
	return &Type{element: elem, rank: rank, kind: TypeKindClass}
}

// NewSZArrayType returns the single-dimension, zero-lower-bound array shape
// over elem.
func NewSZArrayType(elem *Type) *Type {
	return &Type{element: elem, rank: 1, szArray: true, kind: TypeKindClass}
}

// NewByRefType returns the by-reference shape over elem.
func NewByRefType(elem *Type) *Type {
	return &Type{element: elem, byRef: true}
}

// NewPointerType returns the unmanaged pointer shape over elem.
func NewPointerType(elem *Type) *Type {
	return &Type{element: elem, pointer: true}
}

// NewGenericInstance returns the constructed generic `def[args...]`.
func NewGenericInstance(def *Type, args ...*Type) *Type {
	return &Type{
		genericDef:  def,
		genericArgs: args,
		kind:        def.kind,
		attrs:       def.attrs,
	}
}
