// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

// FieldAttributes is the flag word of a field.
type FieldAttributes uint16

// Field attribute flags.
const (
	FieldAttrPublic   FieldAttributes = 0x0006
	FieldAttrStatic   FieldAttributes = 0x0010
	FieldAttrInitOnly FieldAttributes = 0x0020
	FieldAttrLiteral  FieldAttributes = 0x0040
)

// MethodAttributes is the flag word of a method or constructor.
type MethodAttributes uint16

// Method attribute flags.
const (
	MethodAttrPublic       MethodAttributes = 0x0006
	MethodAttrStatic       MethodAttributes = 0x0010
	MethodAttrVirtual      MethodAttributes = 0x0040
	MethodAttrNewSlot      MethodAttributes = 0x0100
	MethodAttrAbstract     MethodAttributes = 0x0400
	MethodAttrPInvokeImpl  MethodAttributes = 0x2000
	MethodAttrUnmanagedExp MethodAttributes = 0x0008
)

// ParamAttributes is the flag word of a parameter.
type ParamAttributes uint16

// Parameter attribute flags.
const (
	ParamAttrIn         ParamAttributes = 0x0001
	ParamAttrOut        ParamAttributes = 0x0002
	ParamAttrOptional   ParamAttributes = 0x0010
	ParamAttrHasDefault ParamAttributes = 0x1000
)

// PropertyAttributes is the flag word of a property.
type PropertyAttributes uint16

// EventAttributes is the flag word of an event.
type EventAttributes uint16

// CallingConvention selects how a method expects its arguments.
type CallingConvention uint8

// Calling conventions.
const (
	CallConvStandard CallingConvention = 0x00
	CallConvVarArgs  CallingConvention = 0x05
	CallConvHasThis  CallingConvention = 0x20
	CallConvGeneric  CallingConvention = 0x10
)

// Parameter describes one parameter slot, or the return slot, of a method.
type Parameter struct {
	// Name is nil for unnamed slots (always for returns).
	Name *string

	// Type of the slot.
	Type *Type

	// Attrs is the parameter flag word.
	Attrs ParamAttributes

	// Required and Optional are the custom modifier types. At most 7 of
	// each fit the packed wire form.
	Required []*Type
	Optional []*Type

	// HasDefault marks a slot with a default constant in Default.
	HasDefault bool
	Default    interface{}
}

// NewParameter returns a named parameter of the given type.
func NewParameter(name string, typ *Type) *Parameter {
	return &Parameter{Name: &name, Type: typ}
}

// Field is a field metadata entity.
type Field struct {
	Name  string
	Attrs FieldAttributes
	Type  *Type

	// Constant holds the value of literal fields.
	Constant interface{}

	// StaticValue holds the current value of static (non-literal) fields;
	// it is written in the static-field trailer phase.
	StaticValue interface{}

	// RVAData is the raw data blob of module-level mapped fields.
	RVAData []byte

	declaring *Type
	module    *Module
}

// DeclaringType returns the declaring type, nil for module globals.
func (f *Field) DeclaringType() *Type { return f.declaring }

// IsLiteral reports whether the field is a compile-time constant.
func (f *Field) IsLiteral() bool { return f.Attrs&FieldAttrLiteral != 0 }

// IsStatic reports whether the field is static.
func (f *Field) IsStatic() bool { return f.Attrs&FieldAttrStatic != 0 }

// Method is a method metadata entity.
type Method struct {
	Name              string
	Attrs             MethodAttributes
	ImplFlags         uint16
	CallingConvention CallingConvention

	// GenericParams are the declared generic parameters of a generic
	// method definition.
	GenericParams []*Type

	// genericDef and GenericArgs describe a constructed generic method.
	genericDef  *Method
	GenericArgs []*Type

	// Return is the return slot; Params are the parameter slots.
	Return Parameter
	Params []*Parameter

	// Body is nil for abstract, pinvoke and unmanaged-export methods.
	Body *MethodBody

	// Attributes are the custom attributes applied to the method.
	Attributes []*Attribute

	declaring *Type
	module    *Module
}

// DeclaringType returns the declaring type, nil for module globals.
func (m *Method) DeclaringType() *Type { return m.declaring }

// MemberName returns the method name.
func (m *Method) MemberName() string { return m.Name }

// IsStatic reports whether the method is static.
func (m *Method) IsStatic() bool { return m.Attrs&MethodAttrStatic != 0 }

// IsAbstract reports whether the method is declared abstract. HasBody also
// covers pinvoke and unmanaged-export methods, which carry no body either.
func (m *Method) IsAbstract() bool { return m.Attrs&MethodAttrAbstract != 0 }

// HasBody reports whether the method carries IL.
func (m *Method) HasBody() bool {
	if m.Attrs&(MethodAttrAbstract|MethodAttrPInvokeImpl|MethodAttrUnmanagedExp) != 0 {
		return false
	}
	return true
}

// IsConstructedGeneric reports whether this is an instantiated generic
// method.
func (m *Method) IsConstructedGeneric() bool { return m.genericDef != nil }

// GenericDefinition returns the open definition of a constructed generic
// method.
func (m *Method) GenericDefinition() *Method { return m.genericDef }

// DefineGenericParameters declares generic parameters by name and returns
// their placeholder types.
func (m *Method) DefineGenericParameters(names ...string) []*Type {
	params := make([]*Type, len(names))
	for i, name := range names {
		params[i] = &Type{
			name:           name,
			isGenericParam: true,
			gpPosition:     i,
			gpOwnerMethod:  m,
		}
	}
	m.GenericParams = params
	m.CallingConvention |= CallConvGeneric
	return params
}

// MakeGeneric returns the constructed method `m[args...]`.
func (m *Method) MakeGeneric(args ...*Type) *Method {
	return &Method{
		Name:              m.Name,
		Attrs:             m.Attrs,
		ImplFlags:         m.ImplFlags,
		CallingConvention: m.CallingConvention,
		genericDef:        m,
		GenericArgs:       args,
		Return:            m.Return,
		Params:            m.Params,
		declaring:         m.declaring,
		module:            m.module,
	}
}

// SetBody attaches an IL body to the method.
func (m *Method) SetBody(body *MethodBody) { m.Body = body }

// Constructor is a constructor metadata entity.
type Constructor struct {
	Attrs             MethodAttributes
	ImplFlags         uint16
	CallingConvention CallingConvention
	Params            []*Parameter

	// Body is nil for runtime-provided constructors.
	Body *MethodBody

	// Attributes are the custom attributes applied to the constructor.
	Attributes []*Attribute

	declaring *Type
}

// DeclaringType returns the declaring type.
func (c *Constructor) DeclaringType() *Type { return c.declaring }

// MemberName returns the metadata name of a constructor.
func (c *Constructor) MemberName() string {
	if c.Attrs&MethodAttrStatic != 0 {
		return ".cctor"
	}
	return ".ctor"
}

// SetBody attaches an IL body to the constructor.
func (c *Constructor) SetBody(body *MethodBody) { c.Body = body }

// MethodBase is the common surface of methods and constructors, used by
// reducers and delegate targets.
type MethodBase interface {
	DeclaringType() *Type
	MemberName() string
}

// Property is a property metadata entity.
type Property struct {
	Name  string
	Attrs PropertyAttributes
	Type  *Type

	// IndexParams are the indexer parameters, empty for plain properties.
	IndexParams []*Parameter

	Getter *Method
	Setter *Method

	// Others are additional accessors beyond getter and setter.
	Others []*Method

	declaring *Type
}

// DeclaringType returns the declaring type.
func (p *Property) DeclaringType() *Type { return p.declaring }

// Event is an event metadata entity.
type Event struct {
	Name        string
	Attrs       EventAttributes
	HandlerType *Type

	Add    *Method
	Remove *Method
	Raise  *Method

	// Others are additional accessors beyond add, remove and raise.
	Others []*Method

	declaring *Type
}

// DeclaringType returns the declaring type.
func (e *Event) DeclaringType() *Type { return e.declaring }

// MethodBody is the IL body of a method or constructor.
type MethodBody struct {
	// MaxStack is the operand stack depth hint.
	MaxStack int

	// InitLocals requests zero-initialization of locals.
	InitLocals bool

	// Locals are the local variable types.
	Locals []*Type

	// Code is the raw IL stream. Token operands reference the owning
	// module's token table.
	Code []byte
}

// NamedArgument is a named field or property argument of an attribute.
type NamedArgument struct {
	// Name of the member assigned.
	Name string

	// Field is true for field arguments, false for property arguments.
	Field bool

	// Value assigned to the member.
	Value interface{}
}

// Attribute is one custom attribute application.
type Attribute struct {
	// Constructor identifies the attribute type and overload.
	Constructor *Constructor

	// Arguments are the positional constructor arguments.
	Arguments []interface{}

	// Named are the named field and property arguments.
	Named []NamedArgument
}

// AttributeType returns the attribute's declaring type.
func (a *Attribute) AttributeType() *Type {
	if a.Constructor == nil {
		return nil
	}
	return a.Constructor.DeclaringType()
}
