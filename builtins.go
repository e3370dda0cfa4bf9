// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

// Builtin type singletons, usable wherever a metadata type is expected.
// Each is encoded as its single-byte well-known token.
var (
	BoolType    = newBuiltinType("bool", TypeOpBool)
	Int8Type    = newBuiltinType("int8", TypeOpInt8)
	Uint8Type   = newBuiltinType("uint8", TypeOpUint8)
	Int16Type   = newBuiltinType("int16", TypeOpInt16)
	Uint16Type  = newBuiltinType("uint16", TypeOpUint16)
	Int32Type   = newBuiltinType("int32", TypeOpInt32)
	Uint32Type  = newBuiltinType("uint32", TypeOpUint32)
	Int64Type   = newBuiltinType("int64", TypeOpInt64)
	Uint64Type  = newBuiltinType("uint64", TypeOpUint64)
	IntType     = newBuiltinType("int", TypeOpInt)
	UintType    = newBuiltinType("uint", TypeOpUint)
	Float32Type = newBuiltinType("float32", TypeOpFloat32)
	Float64Type = newBuiltinType("float64", TypeOpFloat64)
	StringType  = newBuiltinType("string", TypeOpString)
	BytesType   = newBuiltinType("bytes", TypeOpBytes)
	TimeType    = newBuiltinType("time", TypeOpTime)
	ObjectType  = newBuiltinType("object", TypeOpObject)
)

// Reflection-root type singletons.
var (
	AssemblyRootType    = newBuiltinType("Assembly", TypeOpAssembly)
	ModuleRootType      = newBuiltinType("Module", TypeOpModule)
	TypeRootType        = newBuiltinType("Type", TypeOpType)
	FieldRootType       = newBuiltinType("Field", TypeOpField)
	MethodRootType      = newBuiltinType("Method", TypeOpMethod)
	ConstructorRootType = newBuiltinType("Constructor", TypeOpConstructor)
	PropertyRootType    = newBuiltinType("Property", TypeOpProperty)
	EventRootType       = newBuiltinType("Event", TypeOpEvent)
	DelegateRootType    = newBuiltinType("Delegate", TypeOpDelegate)
	ArrayRootType       = newBuiltinType("Array", TypeOpArray)
	TupleRootType       = newBuiltinType("Tuple", TypeOpTuple)
)

func newBuiltinType(name string, op TypeOperation) *Type {
	return &Type{
		name:      name,
		kind:      TypeKindStruct,
		attrs:     TypeAttrPublic | TypeAttrSealed,
		wellKnown: op,
	}
}

// builtinTypesByOp indexes the singletons by their token.
var builtinTypesByOp = map[TypeOperation]*Type{}

func init() {
	for _, t := range []*Type{
		BoolType, Int8Type, Uint8Type, Int16Type, Uint16Type,
		Int32Type, Uint32Type, Int64Type, Uint64Type, IntType, UintType,
		Float32Type, Float64Type, StringType, BytesType, TimeType,
		ObjectType, AssemblyRootType, ModuleRootType, TypeRootType,
		FieldRootType, MethodRootType, ConstructorRootType,
		PropertyRootType, EventRootType, DelegateRootType,
		ArrayRootType, TupleRootType,
	} {
		builtinTypesByOp[t.wellKnown] = t
	}
}
