// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

import "fmt"

// Module is a unit of metadata and code inside an assembly. Dynamic modules
// additionally carry a token table mapping IL metadata tokens back to the
// members they name, plus a user-string heap for InlineString operands.
type Module struct {
	// Name of the module, usually the file name with extension.
	Name string

	// Assembly owning this module.
	Assembly *Assembly

	// Dynamic marks modules emitted at run time.
	Dynamic bool

	// GlobalFields are module-level fields. Fields carrying raw data blobs
	// have RVAData set.
	GlobalFields []*Field

	// GlobalMethods are module-level methods.
	GlobalMethods []*Method

	// Attributes are the module-level custom attributes.
	Attributes []*Attribute

	manifest bool
	types    []*Type

	tokens      map[Token]interface{}
	userStrings map[Token]string
	rows        map[int]uint32
}

func newModule(name string, asm *Assembly, manifest bool) *Module {
	return &Module{
		Name:        name,
		Assembly:    asm,
		manifest:    manifest,
		tokens:      make(map[Token]interface{}),
		userStrings: make(map[Token]string),
		rows:        make(map[int]uint32),
	}
}

// IsManifest reports whether this module carries the assembly manifest.
func (m *Module) IsManifest() bool {
	return m.manifest
}

// IsCore reports whether this module belongs to the core library.
func (m *Module) IsCore() bool {
	return m.Assembly != nil && m.Assembly.IsCore() && m.manifest
}

// Types returns the types defined in this module.
func (m *Module) Types() []*Type {
	return m.types
}

// DefineType starts a type definition in this module.
func (m *Module) DefineType(namespace, name string, kind TypeKind, attrs TypeAttributes) *Type {
	t := &Type{
		name:      name,
		namespace: namespace,
		module:    m,
		kind:      kind,
		attrs:     attrs,
		dynamic:   m.Dynamic,
	}
	m.types = append(m.types, t)
	return t
}

// DefineGlobalField adds a module-level field. Raw data blobs are attached
// through Field.RVAData.
func (m *Module) DefineGlobalField(name string, typ *Type, attrs FieldAttributes) *Field {
	f := &Field{Name: name, Type: typ, Attrs: attrs, module: m}
	m.GlobalFields = append(m.GlobalFields, f)
	return f
}

// DefineGlobalMethod adds a module-level method.
func (m *Module) DefineGlobalMethod(name string, attrs MethodAttributes, ret *Type) *Method {
	mt := &Method{Name: name, Attrs: attrs, module: m}
	mt.Return.Type = ret
	m.GlobalMethods = append(m.GlobalMethods, mt)
	return mt
}

// nextRow hands out one-based rows per table.
func (m *Module) nextRow(table int) uint32 {
	m.rows[table]++
	return m.rows[table]
}

// TokenFor interns a member into the module token table and returns its
// token. Repeated calls for the same member return the same token.
func (m *Module) TokenFor(member interface{}) Token {
	var table int
	switch member.(type) {
	case *Type:
		table = TblTypeDef
	case *Field:
		table = TblField
	case *Method:
		table = TblMethodDef
	case *Constructor:
		table = TblMemberRef
	default:
		table = TblTypeSpec
	}
	for tok, existing := range m.tokens {
		if existing == member && tok.Table() == table {
			return tok
		}
	}
	tok := NewToken(table, m.nextRow(table))
	m.tokens[tok] = member
	return tok
}

// StringTokenFor interns a literal into the user-string heap and returns
// its token.
func (m *Module) StringTokenFor(s string) Token {
	for tok, existing := range m.userStrings {
		if existing == s {
			return tok
		}
	}
	tok := NewToken(TblUserString, m.nextRow(TblUserString))
	m.userStrings[tok] = s
	return tok
}

// ResolveMember resolves a metadata token against the module token table.
// The generic contexts are accepted for parity with constructed callers;
// tokens interned through TokenFor are context-independent.
func (m *Module) ResolveMember(tok Token, typeContext, methodContext []*Type) (interface{}, error) {
	_ = typeContext
	_ = methodContext
	if member, ok := m.tokens[tok]; ok {
		return member, nil
	}
	return nil, fmt.Errorf("module %s: token %s: %w", m.Name, tok, ErrUnresolvedToken)
}

// ResolveString resolves a user-string token.
func (m *Module) ResolveString(tok Token) (string, error) {
	if s, ok := m.userStrings[tok]; ok {
		return s, nil
	}
	return "", fmt.Errorf("module %s: string token %s: %w", m.Name, tok, ErrUnresolvedToken)
}
