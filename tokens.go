// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

import "fmt"

// Metadata table indices. A metadata token packs the owning table index in
// its top byte and a one-based row identifier in the lower three bytes.
const (
	// The current module descriptor.
	TblModule = 0
	// Class reference descriptors.
	TblTypeRef = 1
	// Class or interface definition descriptors.
	TblTypeDef = 2
	// Field definition descriptors.
	TblField = 4
	// Method definition descriptors.
	TblMethodDef = 6
	// Parameter definition descriptors.
	TblParam = 8
	// Interface implementation descriptors.
	TblInterfaceImpl = 9
	// Member (field or method) reference descriptors.
	TblMemberRef = 10
	// Constant value descriptors for fields, parameters and properties.
	TblConstant = 11
	// Custom attribute descriptors.
	TblCustomAttribute = 12
	// Stand-alone signature descriptors.
	TblStandAloneSig = 17
	// Event descriptors.
	TblEvent = 20
	// Property descriptors.
	TblProperty = 23
	// Module reference descriptors.
	TblModuleRef = 26
	// Type specification descriptors.
	TblTypeSpec = 27
	// The current assembly descriptor.
	TblAssembly = 32
	// Assembly reference descriptors.
	TblAssemblyRef = 35
	// Generic method instantiation descriptors.
	TblMethodSpec = 43
	// User string heap pseudo-table. String tokens resolve against the
	// module's user-string map rather than a metadata table.
	TblUserString = 0x70
)

// Token is a metadata token: `(table << 24) | row`. Row identifiers are
// one-based; a zero row denotes a nil token.
type Token uint32

// NewToken builds a token from a table index and a one-based row.
func NewToken(table int, row uint32) Token {
	return Token(uint32(table)<<24 | (row & 0x00ffffff))
}

// Table returns the metadata table index encoded in the token.
func (t Token) Table() int {
	return int(t >> 24)
}

// Row returns the one-based row identifier encoded in the token.
func (t Token) Row() uint32 {
	return uint32(t) & 0x00ffffff
}

// IsNil reports whether the token has a zero row.
func (t Token) IsNil() bool {
	return t.Row() == 0
}

// TokenTableToString returns the string representation of a token table
// index.
func TokenTableToString(k int) string {
	tokenTablesMap := map[int]string{
		TblModule:          "Module",
		TblTypeRef:         "TypeRef",
		TblTypeDef:         "TypeDef",
		TblField:           "Field",
		TblMethodDef:       "MethodDef",
		TblParam:           "Param",
		TblInterfaceImpl:   "InterfaceImpl",
		TblMemberRef:       "MemberRef",
		TblConstant:        "Constant",
		TblCustomAttribute: "CustomAttribute",
		TblStandAloneSig:   "StandAloneSig",
		TblEvent:           "Event",
		TblProperty:        "Property",
		TblModuleRef:       "ModuleRef",
		TblTypeSpec:        "TypeSpec",
		TblAssembly:        "Assembly",
		TblAssemblyRef:     "AssemblyRef",
		TblMethodSpec:      "MethodSpec",
		TblUserString:      "UserString",
	}

	if value, ok := tokenTablesMap[k]; ok {
		return value
	}
	return ""
}

// String returns a printable form of the token.
func (t Token) String() string {
	name := TokenTableToString(t.Table())
	if name == "" {
		name = fmt.Sprintf("Table%d", t.Table())
	}
	return fmt.Sprintf("%s(0x%06x)", name, t.Row())
}
