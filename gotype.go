// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

import "reflect"

// runtimeAssembly interns the assembly entity standing for a Go package.
// Package assemblies carry their import path as location, so they are
// encoded by reference.
func (p *Pickler) runtimeAssembly(pkgPath string) *Assembly {
	if pkgPath == "" {
		pkgPath = "go"
	}
	if a, ok := p.goAssemblies[pkgPath]; ok {
		return a
	}
	a := NewAssembly(pkgPath)
	a.Location = pkgPath
	p.goAssemblies[pkgPath] = a
	return a
}

// runtimeType interns the metadata type describing a Go reflection type.
func (p *Pickler) runtimeType(t reflect.Type) *Type {
	if rt, ok := p.goTypes[t]; ok {
		return rt
	}
	rt := p.buildRuntimeType(t)
	p.goTypes[t] = rt
	return rt
}

func (p *Pickler) buildRuntimeType(t reflect.Type) *Type {
	if op, ok := wellKnownOps[t]; ok {
		return builtinTypesByOp[op]
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		rt := NewSZArrayType(p.runtimeType(t.Elem()))
		rt.goType = t
		return rt
	case reflect.Ptr:
		// A pointer denotes the reference view of its record type.
		return p.runtimeType(t.Elem())
	}

	name := t.Name()
	if name == "" {
		name = t.String()
	}
	rt := &Type{
		name:      name,
		namespace: t.PkgPath(),
		module:    p.runtimeAssembly(t.PkgPath()).ManifestModule(),
		attrs:     TypeAttrPublic | TypeAttrSealed,
		goType:    t,
	}
	switch t.Kind() {
	case reflect.Struct:
		rt.kind = TypeKindStruct
	case reflect.Int8, reflect.Uint8, reflect.Int16, reflect.Uint16,
		reflect.Int32, reflect.Uint32, reflect.Int64, reflect.Uint64,
		reflect.Int, reflect.Uint:
		rt.kind = TypeKindEnum
		rt.enumUnderlying = primCodeOf(t.Kind())
	default:
		rt.kind = TypeKindClass
	}
	return rt
}

// containerConstructor interns the pseudo-constructor the built-in
// container reducers report as their factory.
func (p *Pickler) containerConstructor(t reflect.Type) *Constructor {
	if c, ok := p.ctorCache[t]; ok {
		return c
	}
	entries := p.runtimeType(reflect.TypeOf([]MapEntry(nil)))
	c := &Constructor{
		Attrs:     MethodAttrPublic,
		Params:    []*Parameter{NewParameter("entries", entries)},
		declaring: p.runtimeType(t),
	}
	p.ctorCache[t] = c
	return c
}
