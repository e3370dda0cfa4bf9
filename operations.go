// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

// ObjectOperation is a one-byte discriminator in the object opcode space.
type ObjectOperation uint8

// Object-level pickle operations.
const (
	// ObjectOpNull encodes a null reference.
	ObjectOpNull ObjectOperation = iota
	// ObjectOpMemo encodes a back-reference to an already written object.
	// It is followed by the memoized stream position.
	ObjectOpMemo
	// ObjectOpObject opens a reference object written in full.
	ObjectOpObject
)

// TypeOperation is a one-byte discriminator in the type opcode space.
type TypeOperation uint8

// Type-level pickle operations. Values from TypeOpWellKnown upward are
// single-byte tokens for built-in types, which elide a full reference.
const (
	// TypeOpMemo encodes a back-reference to an already written type.
	TypeOpMemo TypeOperation = iota
	// TypeOpTypeRef encodes a type by name and declaring scope.
	TypeOpTypeRef
	// TypeOpTypeDef encodes a full structural type definition.
	TypeOpTypeDef
	// TypeOpGenericInstantiation encodes a constructed generic type as its
	// definition plus argument types.
	TypeOpGenericInstantiation
	// TypeOpArrayType encodes an array shape as rank plus element type.
	TypeOpArrayType
	// TypeOpGenericTypeParameter encodes a generic parameter by position and
	// owning type.
	TypeOpGenericTypeParameter
	// TypeOpGenericMethodParameter encodes a generic parameter by position
	// and owning method.
	TypeOpGenericMethodParameter
	// TypeOpTVar encodes a type generic parameter by position against the
	// generic context in scope.
	TypeOpTVar
	// TypeOpMVar encodes a method generic parameter by position against the
	// generic context in scope.
	TypeOpMVar

	// TypeOpWellKnown marks the start of the well-known token block.
	TypeOpWellKnown TypeOperation = 0x20

	// Well-known scalar tokens.
	TypeOpBool    TypeOperation = 0x20
	TypeOpInt8    TypeOperation = 0x21
	TypeOpUint8   TypeOperation = 0x22
	TypeOpInt16   TypeOperation = 0x23
	TypeOpUint16  TypeOperation = 0x24
	TypeOpInt32   TypeOperation = 0x25
	TypeOpUint32  TypeOperation = 0x26
	TypeOpInt64   TypeOperation = 0x27
	TypeOpUint64  TypeOperation = 0x28
	TypeOpInt     TypeOperation = 0x29
	TypeOpUint    TypeOperation = 0x2A
	TypeOpFloat32 TypeOperation = 0x2B
	TypeOpFloat64 TypeOperation = 0x2C
	TypeOpString  TypeOperation = 0x2D
	TypeOpBytes   TypeOperation = 0x2E
	TypeOpTime    TypeOperation = 0x2F

	// Well-known reflection-root tokens.
	TypeOpObject      TypeOperation = 0x30
	TypeOpAssembly    TypeOperation = 0x31
	TypeOpModule      TypeOperation = 0x32
	TypeOpType        TypeOperation = 0x33
	TypeOpField       TypeOperation = 0x34
	TypeOpMethod      TypeOperation = 0x35
	TypeOpConstructor TypeOperation = 0x36
	TypeOpProperty    TypeOperation = 0x37
	TypeOpEvent       TypeOperation = 0x38
	TypeOpDelegate    TypeOperation = 0x39
	TypeOpArray       TypeOperation = 0x3A
	TypeOpTuple       TypeOperation = 0x3B
)

// ModuleOperation is a one-byte discriminator in the module opcode space.
type ModuleOperation uint8

// Module-level pickle operations.
const (
	// ModuleOpMemo encodes a back-reference to an already written module.
	ModuleOpMemo ModuleOperation = iota
	// ModuleOpMscorlib encodes the core library manifest module.
	ModuleOpMscorlib
	// ModuleOpManifestModuleRef encodes the manifest module of an assembly.
	ModuleOpManifestModuleRef
	// ModuleOpModuleRef encodes a module by name within an assembly.
	ModuleOpModuleRef
	// ModuleOpModuleDef encodes a full module definition including global
	// fields and methods.
	ModuleOpModuleDef
)

// AssemblyOperation is a one-byte discriminator in the assembly opcode space.
type AssemblyOperation uint8

// Assembly-level pickle operations.
const (
	// AssemblyOpMemo encodes a back-reference to an already written assembly.
	AssemblyOpMemo AssemblyOperation = iota
	// AssemblyOpMscorlib encodes the core library assembly.
	AssemblyOpMscorlib
	// AssemblyOpAssemblyRef encodes an assembly by full name.
	AssemblyOpAssemblyRef
	// AssemblyOpAssemblyDef encodes a full assembly redefinition.
	AssemblyOpAssemblyDef
)

// SignatureElementOperation is a one-byte discriminator in the signature
// element opcode space.
type SignatureElementOperation uint8

// Signature-element pickle operations.
const (
	// SigOpType encodes a named type element.
	SigOpType SignatureElementOperation = iota
	// SigOpTVar encodes a type generic parameter by position.
	SigOpTVar
	// SigOpMVar encodes a method generic parameter by position.
	SigOpMVar
	// SigOpGeneric encodes a constructed generic element.
	SigOpGeneric
	// SigOpArray encodes an array shape element.
	SigOpArray
	// SigOpByRef encodes a by-reference element.
	SigOpByRef
	// SigOpPointer encodes an unmanaged pointer element.
	SigOpPointer
	// SigOpModreq encodes a required custom modifier element.
	SigOpModreq
	// SigOpModopt encodes an optional custom modifier element.
	SigOpModopt
)

// String returns the string representation of an object operation.
func (op ObjectOperation) String() string {
	objectOpMap := map[ObjectOperation]string{
		ObjectOpNull:   "Null",
		ObjectOpMemo:   "Memo",
		ObjectOpObject: "Object",
	}

	if value, ok := objectOpMap[op]; ok {
		return value
	}
	return "?"
}

// String returns the string representation of a type operation.
func (op TypeOperation) String() string {
	typeOpMap := map[TypeOperation]string{
		TypeOpMemo:                   "Memo",
		TypeOpTypeRef:                "TypeRef",
		TypeOpTypeDef:                "TypeDef",
		TypeOpGenericInstantiation:   "GenericInstantiation",
		TypeOpArrayType:              "ArrayType",
		TypeOpGenericTypeParameter:   "GenericTypeParameter",
		TypeOpGenericMethodParameter: "GenericMethodParameter",
		TypeOpTVar:                   "TVar",
		TypeOpMVar:                   "MVar",
		TypeOpBool:                   "Bool",
		TypeOpInt8:                   "Int8",
		TypeOpUint8:                  "Uint8",
		TypeOpInt16:                  "Int16",
		TypeOpUint16:                 "Uint16",
		TypeOpInt32:                  "Int32",
		TypeOpUint32:                 "Uint32",
		TypeOpInt64:                  "Int64",
		TypeOpUint64:                 "Uint64",
		TypeOpInt:                    "Int",
		TypeOpUint:                   "Uint",
		TypeOpFloat32:                "Float32",
		TypeOpFloat64:                "Float64",
		TypeOpString:                 "String",
		TypeOpBytes:                  "Bytes",
		TypeOpTime:                   "Time",
		TypeOpObject:                 "Object",
		TypeOpAssembly:               "Assembly",
		TypeOpModule:                 "Module",
		TypeOpType:                   "Type",
		TypeOpField:                  "Field",
		TypeOpMethod:                 "Method",
		TypeOpConstructor:            "Constructor",
		TypeOpProperty:               "Property",
		TypeOpEvent:                  "Event",
		TypeOpDelegate:               "Delegate",
		TypeOpArray:                  "Array",
		TypeOpTuple:                  "Tuple",
	}

	if value, ok := typeOpMap[op]; ok {
		return value
	}
	return "?"
}

// String returns the string representation of a module operation.
func (op ModuleOperation) String() string {
	moduleOpMap := map[ModuleOperation]string{
		ModuleOpMemo:              "Memo",
		ModuleOpMscorlib:          "MscorlibModule",
		ModuleOpManifestModuleRef: "ManifestModuleRef",
		ModuleOpModuleRef:         "ModuleRef",
		ModuleOpModuleDef:         "ModuleDef",
	}

	if value, ok := moduleOpMap[op]; ok {
		return value
	}
	return "?"
}

// String returns the string representation of an assembly operation.
func (op AssemblyOperation) String() string {
	assemblyOpMap := map[AssemblyOperation]string{
		AssemblyOpMemo:        "Memo",
		AssemblyOpMscorlib:    "MscorlibAssembly",
		AssemblyOpAssemblyRef: "AssemblyRef",
		AssemblyOpAssemblyDef: "AssemblyDef",
	}

	if value, ok := assemblyOpMap[op]; ok {
		return value
	}
	return "?"
}

// String returns the string representation of a signature element operation.
func (op SignatureElementOperation) String() string {
	sigOpMap := map[SignatureElementOperation]string{
		SigOpType:    "Type",
		SigOpTVar:    "TVar",
		SigOpMVar:    "MVar",
		SigOpGeneric: "Generic",
		SigOpArray:   "Array",
		SigOpByRef:   "ByRef",
		SigOpPointer: "Pointer",
		SigOpModreq:  "Modreq",
		SigOpModopt:  "Modopt",
	}

	if value, ok := sigOpMap[op]; ok {
		return value
	}
	return "?"
}
