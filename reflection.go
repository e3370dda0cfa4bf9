// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

import (
	"fmt"
	"reflect"
)

// assemblyMode resolves the encoding policy for an assembly. The pickler's
// own assembly is always a reference; the default encodes by value iff the
// assembly is dynamic or location-less.
func (p *Pickler) assemblyMode(a *Assembly) AssemblyPickleMode {
	if a.FullName == selfAssemblyName {
		return AssemblyModeByReference
	}
	mode := AssemblyModeDefault
	if p.opts.AssemblyMode != nil {
		mode = p.opts.AssemblyMode(a)
	}
	if mode == AssemblyModeDefault {
		if a.Dynamic || a.Location == "" {
			return AssemblyModeByValue
		}
		return AssemblyModeByReference
	}
	return mode
}

// writeAssembly writes an assembly as a core token, a memo, a reference or
// a full definition.
func (p *Pickler) writeAssembly(a *Assembly) error {
	if a.IsCore() {
		return p.w.WriteByte(byte(AssemblyOpMscorlib))
	}
	rv := reflect.ValueOf(a)
	if pos := p.memo.Lookup(rv); pos != memoEmptyPosition {
		if err := p.w.WriteByte(byte(AssemblyOpMemo)); err != nil {
			return err
		}
		p.counters.MemoHits++
		return p.w.WriteMemoPosition(pos)
	}
	pos := p.w.Pos()
	switch p.assemblyMode(a) {
	case AssemblyModeByValue:
		if err := p.w.WriteByte(byte(AssemblyOpAssemblyDef)); err != nil {
			return err
		}
		p.memo.Record(rv, pos)
		if err := p.w.WriteString(a.FullName); err != nil {
			return err
		}
		attrs := a.Attributes
		p.trailers.pushTrailer(func() error {
			return p.writeAttributes(attrs)
		})
		return nil
	default:
		if err := p.w.WriteByte(byte(AssemblyOpAssemblyRef)); err != nil {
			return err
		}
		p.memo.Record(rv, pos)
		return p.w.WriteString(a.FullName)
	}
}

// writeModule writes a module as a core token, a memo, a reference or a
// full definition with global fields and methods.
func (p *Pickler) writeModule(m *Module) error {
	if m.IsCore() {
		return p.w.WriteByte(byte(ModuleOpMscorlib))
	}
	rv := reflect.ValueOf(m)
	if pos := p.memo.Lookup(rv); pos != memoEmptyPosition {
		if err := p.w.WriteByte(byte(ModuleOpMemo)); err != nil {
			return err
		}
		p.counters.MemoHits++
		return p.w.WriteMemoPosition(pos)
	}
	pos := p.w.Pos()

	if p.assemblyMode(m.Assembly) == AssemblyModeByValue {
		if err := p.w.WriteByte(byte(ModuleOpModuleDef)); err != nil {
			return err
		}
		p.memo.Record(rv, pos)
		if err := p.w.WriteString(m.Name); err != nil {
			return err
		}
		if err := p.writeAssembly(m.Assembly); err != nil {
			return err
		}
		if err := p.w.WriteVarUint(uint64(len(m.GlobalFields))); err != nil {
			return err
		}
		for _, f := range m.GlobalFields {
			if err := p.writeGlobalFieldDef(f); err != nil {
				return err
			}
		}
		if err := p.w.WriteVarUint(uint64(len(m.GlobalMethods))); err != nil {
			return err
		}
		for _, gm := range m.GlobalMethods {
			if err := p.writeMethodHeader(gm); err != nil {
				return err
			}
		}
		mod := m
		p.trailers.pushTrailer(func() error {
			for _, gm := range mod.GlobalMethods {
				if err := p.writeDeferredBody(mod, gm.Body, nil, gm.GenericParams); err != nil {
					return err
				}
			}
			return p.writeAttributes(mod.Attributes)
		})
		return nil
	}

	if m.IsManifest() {
		if err := p.w.WriteByte(byte(ModuleOpManifestModuleRef)); err != nil {
			return err
		}
		p.memo.Record(rv, pos)
		return p.writeAssembly(m.Assembly)
	}
	if err := p.w.WriteByte(byte(ModuleOpModuleRef)); err != nil {
		return err
	}
	p.memo.Record(rv, pos)
	if err := p.w.WriteString(m.Name); err != nil {
		return err
	}
	return p.writeAssembly(m.Assembly)
}

// writeGlobalFieldDef writes a module-level field, dumping mapped raw data
// as a fixed-size blob. An all-zero blob is written as a negated length.
func (p *Pickler) writeGlobalFieldDef(f *Field) error {
	if err := p.w.WriteString(f.Name); err != nil {
		return err
	}
	if err := p.w.WriteVarUint(uint64(f.Attrs)); err != nil {
		return err
	}
	if err := p.writeType(f.Type); err != nil {
		return err
	}
	blob := f.RVAData
	if allZero(blob) {
		return p.w.WriteVarInt(-int64(len(blob)))
	}
	if err := p.w.WriteVarInt(int64(len(blob))); err != nil {
		return err
	}
	return p.w.WriteBytes(blob)
}

// typeNeedsDefinition reports whether a type must be written structurally
// rather than by name.
func (p *Pickler) typeNeedsDefinition(t *Type) bool {
	if !t.IsDynamic() {
		m := t.Module()
		if m == nil {
			return false
		}
		return p.assemblyMode(m.Assembly) == AssemblyModeByValue
	}
	return true
}

// writeType writes a type using the type opcode space: a well-known token,
// a memo, a generic parameter, a constructed shape, a reference or a full
// definition.
func (p *Pickler) writeType(t *Type) error {
	if t == nil {
		return fmt.Errorf("nil type: %w", ErrUnserializableNonRuntimeReflection)
	}
	if t.wellKnown != 0 {
		return p.w.WriteByte(byte(t.wellKnown))
	}
	if t.IsPointer() {
		return fmt.Errorf("%s: %w", t.FullName(), ErrUnserializablePointer)
	}
	if t.IsGenericParameter() {
		return p.writeGenericParameter(t)
	}

	rv := reflect.ValueOf(t)
	if pos := p.memo.Lookup(rv); pos != memoEmptyPosition {
		if err := p.w.WriteByte(byte(TypeOpMemo)); err != nil {
			return err
		}
		p.counters.MemoHits++
		return p.w.WriteMemoPosition(pos)
	}
	pos := p.w.Pos()

	switch {
	case t.IsConstructedGeneric():
		if err := p.w.WriteByte(byte(TypeOpGenericInstantiation)); err != nil {
			return err
		}
		if err := p.writeType(t.GenericDefinition()); err != nil {
			return err
		}
		args := t.GenericArguments()
		if err := p.w.WriteVarUint(uint64(len(args))); err != nil {
			return err
		}
		for _, arg := range args {
			if err := p.writeType(arg); err != nil {
				return err
			}
		}
		p.memo.Record(rv, pos)
		return nil

	case t.IsArray():
		if t.Rank() > 255 {
			return fmt.Errorf("%s: rank %d: %w", t.FullName(), t.Rank(), ErrUnsupportedRank)
		}
		if err := p.w.WriteByte(byte(TypeOpArrayType)); err != nil {
			return err
		}
		rank := byte(t.Rank())
		if t.IsSZArray() {
			rank = 0
		}
		if err := p.w.WriteByte(rank); err != nil {
			return err
		}
		if err := p.writeType(t.Element()); err != nil {
			return err
		}
		p.memo.Record(rv, pos)
		return nil

	case t.IsByRef():
		return fmt.Errorf("%s: by-reference types cannot appear here: %w",
			t.FullName(), ErrUnserializableNonRuntimeReflection)

	case p.typeNeedsDefinition(t):
		return p.writeTypeDef(t, rv, pos)
	}

	// Reference by name and declaring scope.
	if err := p.w.WriteByte(byte(TypeOpTypeRef)); err != nil {
		return err
	}
	nested := t.DeclaringType() != nil
	if err := p.w.WriteBool(nested); err != nil {
		return err
	}
	if err := p.w.WriteString(t.qualifiedName()); err != nil {
		return err
	}
	p.memo.Record(rv, pos)
	if nested {
		return p.writeType(t.DeclaringType())
	}
	return p.writeModule(t.Module())
}

// qualifiedName is the namespace-qualified simple name used by references.
func (t *Type) qualifiedName() string {
	if t.declaring != nil || t.namespace == "" {
		return t.name
	}
	return t.namespace + "." + t.name
}

// writeGenericParameter writes a generic parameter, preferring the compact
// context-relative forms when a generic context is in scope.
func (p *Pickler) writeGenericParameter(t *Type) error {
	pos := t.GenericParameterPosition()
	if m := t.GenericParameterOwnerMethod(); m != nil {
		if inContext(p.genericMethodContext, t) {
			if err := p.w.WriteByte(byte(TypeOpMVar)); err != nil {
				return err
			}
			return p.w.WriteVarUint(uint64(pos))
		}
		if err := p.w.WriteByte(byte(TypeOpGenericMethodParameter)); err != nil {
			return err
		}
		if err := p.w.WriteVarUint(uint64(pos)); err != nil {
			return err
		}
		return p.writeMethodBase(m)
	}
	if inContext(p.genericTypeContext, t) {
		if err := p.w.WriteByte(byte(TypeOpTVar)); err != nil {
			return err
		}
		return p.w.WriteVarUint(uint64(pos))
	}
	if err := p.w.WriteByte(byte(TypeOpGenericTypeParameter)); err != nil {
		return err
	}
	if err := p.w.WriteVarUint(uint64(pos)); err != nil {
		return err
	}
	return p.writeType(t.GenericParameterOwnerType())
}

func inContext(context []*Type, t *Type) bool {
	pos := t.GenericParameterPosition()
	return pos < len(context) && context[pos] == t
}

// writeTypeDef writes a full structural type definition. The header is
// written first, the memo registered, and then the kind body; IL bodies,
// attribute tables and static fields go to the trailer.
func (p *Pickler) writeTypeDef(t *Type, rv reflect.Value, pos int64) error {
	if err := p.w.WriteByte(byte(TypeOpTypeDef)); err != nil {
		return err
	}
	if err := p.w.WriteString(t.qualifiedName()); err != nil {
		return err
	}
	if err := p.w.WriteVarUint(uint64(t.Attrs())); err != nil {
		return err
	}
	if err := p.w.WriteByte(byte(t.Kind())); err != nil {
		return err
	}
	params := t.GenericParameters()
	if err := p.w.WriteVarUint(uint64(len(params))); err != nil {
		return err
	}
	for _, gp := range params {
		if err := p.w.WriteString(gp.Name()); err != nil {
			return err
		}
	}
	nested := t.DeclaringType() != nil
	if err := p.w.WriteBool(nested); err != nil {
		return err
	}
	if nested {
		if err := p.writeType(t.DeclaringType()); err != nil {
			return err
		}
	} else {
		if err := p.writeModule(t.Module()); err != nil {
			return err
		}
	}

	// Cycles through base classes, interface maps and generic arguments
	// resolve against the memo from here on.
	p.memo.Record(rv, pos)

	savedType := p.genericTypeContext
	p.genericTypeContext = params
	defer func() { p.genericTypeContext = savedType }()

	switch t.Kind() {
	case TypeKindEnum:
		return p.writeEnumDefBody(t)
	case TypeKindDelegate:
		invoke := t.DelegateInvoke()
		if invoke == nil {
			return fmt.Errorf("delegate %s has no invoke method: %w",
				t.FullName(), ErrUnserializableNonRuntimeReflection)
		}
		return p.writeSignature(MethodSignature(invoke))
	}
	return p.writeStructuralDefBody(t)
}

// writeEnumDefBody writes the underlying code and the named values.
func (p *Pickler) writeEnumDefBody(t *Type) error {
	code := t.EnumUnderlying()
	if !supportedEnumCode(code) {
		return fmt.Errorf("%s: code %s: %w", t.FullName(), code, ErrInvalidEnumUnderlying)
	}
	if err := p.w.WriteByte(byte(code)); err != nil {
		return err
	}
	entries := t.EnumEntries()
	if err := p.w.WriteVarUint(uint64(len(entries))); err != nil {
		return err
	}
	for _, e := range entries {
		if err := p.w.WriteString(e.Name); err != nil {
			return err
		}
		if err := p.writePrimitiveByCode(code, reflect.ValueOf(e.Value)); err != nil {
			return err
		}
	}
	return nil
}

func supportedEnumCode(code PrimitiveCode) bool {
	switch code {
	case PrimInt8, PrimUint8, PrimInt16, PrimUint16, PrimInt32, PrimUint32,
		PrimInt64, PrimUint64, PrimInt, PrimUint:
		return true
	}
	return false
}

// writeStructuralDefBody writes the class/struct/interface definition:
// base, interfaces with map subsets, fields, constructor and method
// headers, properties and events. Bodies, attributes and statics defer.
func (p *Pickler) writeStructuralDefBody(t *Type) error {
	if t.Kind() == TypeKindClass {
		if err := p.w.WriteBool(t.BaseType() != nil); err != nil {
			return err
		}
		if t.BaseType() != nil {
			if err := p.writeType(t.BaseType()); err != nil {
				return err
			}
		}
	}

	ifaces := t.Interfaces()
	if err := p.w.WriteVarUint(uint64(len(ifaces))); err != nil {
		return err
	}
	for _, iface := range ifaces {
		if err := p.writeType(iface); err != nil {
			return err
		}
	}
	maps := interfaceMapSubset(t)
	if err := p.w.WriteVarUint(uint64(len(maps))); err != nil {
		return err
	}
	for _, im := range maps {
		if err := p.writeSignature(MethodSignature(im.InterfaceMethod)); err != nil {
			return err
		}
		if err := p.writeSignature(MethodSignature(im.TargetMethod)); err != nil {
			return err
		}
	}

	fields := t.Fields()
	if err := p.w.WriteVarUint(uint64(len(fields))); err != nil {
		return err
	}
	for _, f := range fields {
		if err := p.w.WriteString(f.Name); err != nil {
			return err
		}
		if err := p.w.WriteVarUint(uint64(f.Attrs)); err != nil {
			return err
		}
		if err := p.writeType(f.Type); err != nil {
			return err
		}
		if f.IsLiteral() {
			if err := p.writeConstant(f.Type, f.Constant); err != nil {
				return err
			}
		}
	}

	ctors := t.Constructors()
	if err := p.w.WriteVarUint(uint64(len(ctors))); err != nil {
		return err
	}
	for _, c := range ctors {
		if err := p.writeConstructorHeader(c); err != nil {
			return err
		}
	}

	methods := t.Methods()
	if err := p.w.WriteVarUint(uint64(len(methods))); err != nil {
		return err
	}
	for _, m := range methods {
		if err := p.writeMethodHeader(m); err != nil {
			return err
		}
	}

	if err := p.writePropertyDefs(t.Properties()); err != nil {
		return err
	}
	if err := p.writeEventDefs(t.Events()); err != nil {
		return err
	}

	p.scheduleTypeTrailers(t)
	return nil
}

// interfaceMapSubset keeps the mappings where the target declares on this
// type or marks a new slot, and whose signature differs from the interface
// method's.
func interfaceMapSubset(t *Type) []InterfaceMapping {
	var subset []InterfaceMapping
	for _, im := range t.InterfaceMaps() {
		target := im.TargetMethod
		if target.DeclaringType() != t && target.Attrs&MethodAttrNewSlot == 0 {
			continue
		}
		if MethodSignature(target).Equal(MethodSignature(im.InterfaceMethod)) {
			continue
		}
		subset = append(subset, im)
	}
	return subset
}

// scheduleTypeTrailers defers IL bodies, attribute tables and static field
// values of a definition.
func (p *Pickler) scheduleTypeTrailers(t *Type) {
	typ := t
	p.trailers.pushTrailer(func() error {
		mod := typ.Module()
		for _, c := range typ.Constructors() {
			if err := p.writeDeferredBody(mod, c.Body, typ.GenericParameters(), nil); err != nil {
				return err
			}
		}
		for _, m := range typ.Methods() {
			if !m.HasBody() {
				continue
			}
			if err := p.writeDeferredBody(mod, m.Body, typ.GenericParameters(), m.GenericParams); err != nil {
				return err
			}
		}
		if err := p.writeAttributes(typ.Attributes); err != nil {
			return err
		}
		for _, m := range typ.Methods() {
			if err := p.writeAttributes(m.Attributes); err != nil {
				return err
			}
		}
		for _, c := range typ.Constructors() {
			if err := p.writeAttributes(c.Attributes); err != nil {
				return err
			}
		}
		return nil
	})
	p.trailers.pushStatic(func() error {
		for _, f := range typ.Fields() {
			if !f.IsStatic() || f.IsLiteral() {
				continue
			}
			if err := p.serializeRoot(f.StaticValue); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeDeferredBody translates one IL body under the generic context of
// its owner. Headerless members write nothing.
func (p *Pickler) writeDeferredBody(m *Module, body *MethodBody, typeContext, methodContext []*Type) error {
	if body == nil {
		return nil
	}
	savedType, savedMethod := p.genericTypeContext, p.genericMethodContext
	p.genericTypeContext, p.genericMethodContext = typeContext, methodContext
	defer func() {
		p.genericTypeContext, p.genericMethodContext = savedType, savedMethod
	}()
	return p.writeILBody(m, body)
}

// writePropertyDefs writes the property table of a definition. The packed
// accessor count keeps getter and setter presence in the low two bits and
// the count of other accessors above them.
func (p *Pickler) writePropertyDefs(props []*Property) error {
	if err := p.w.WriteVarUint(uint64(len(props))); err != nil {
		return err
	}
	for _, prop := range props {
		if err := p.w.WriteString(prop.Name); err != nil {
			return err
		}
		if err := p.w.WriteVarUint(uint64(prop.Attrs)); err != nil {
			return err
		}
		if err := p.writeType(prop.Type); err != nil {
			return err
		}
		if err := p.writeParameters(prop.IndexParams); err != nil {
			return err
		}
		packed := uint64(len(prop.Others)) << 2
		if prop.Getter != nil {
			packed |= 1
		}
		if prop.Setter != nil {
			packed |= 2
		}
		if err := p.w.WriteVarUint(packed); err != nil {
			return err
		}
		if prop.Getter != nil {
			if err := p.writeSignature(MethodSignature(prop.Getter)); err != nil {
				return err
			}
		}
		if prop.Setter != nil {
			if err := p.writeSignature(MethodSignature(prop.Setter)); err != nil {
				return err
			}
		}
		for _, other := range prop.Others {
			if err := p.writeSignature(MethodSignature(other)); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeEventDefs writes the event table of a definition. The packed word
// keeps raiser presence in the low bit and the count of other accessors
// above it.
func (p *Pickler) writeEventDefs(events []*Event) error {
	if err := p.w.WriteVarUint(uint64(len(events))); err != nil {
		return err
	}
	for _, ev := range events {
		if err := p.w.WriteString(ev.Name); err != nil {
			return err
		}
		if err := p.w.WriteVarUint(uint64(ev.Attrs)); err != nil {
			return err
		}
		if err := p.writeType(ev.HandlerType); err != nil {
			return err
		}
		packed := uint64(len(ev.Others)) << 1
		if ev.Raise != nil {
			packed |= 1
		}
		if err := p.w.WriteVarUint(packed); err != nil {
			return err
		}
		if err := p.writeSignature(MethodSignature(ev.Add)); err != nil {
			return err
		}
		if err := p.writeSignature(MethodSignature(ev.Remove)); err != nil {
			return err
		}
		if ev.Raise != nil {
			if err := p.writeSignature(MethodSignature(ev.Raise)); err != nil {
				return err
			}
		}
		for _, other := range ev.Others {
			if err := p.writeSignature(MethodSignature(other)); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeMethodHeader writes a method header: name, flag words, calling
// convention, generic parameter names, return and parameter slots, and the
// locals of bodied methods. The IL itself is deferred.
func (p *Pickler) writeMethodHeader(m *Method) error {
	if err := p.w.WriteString(m.Name); err != nil {
		return err
	}
	if err := p.w.WriteVarUint(uint64(m.Attrs)); err != nil {
		return err
	}
	if err := p.w.WriteVarUint(uint64(m.ImplFlags)); err != nil {
		return err
	}
	if err := p.w.WriteByte(byte(m.CallingConvention)); err != nil {
		return err
	}
	if err := p.w.WriteVarUint(uint64(len(m.GenericParams))); err != nil {
		return err
	}
	for _, gp := range m.GenericParams {
		if err := p.w.WriteString(gp.Name()); err != nil {
			return err
		}
	}

	savedMethod := p.genericMethodContext
	p.genericMethodContext = m.GenericParams
	defer func() { p.genericMethodContext = savedMethod }()

	if err := p.writeParameterSlot(&m.Return); err != nil {
		return err
	}
	if err := p.writeParameters(m.Params); err != nil {
		return err
	}

	if !m.HasBody() {
		return nil
	}
	body := m.Body
	if body == nil {
		body = &MethodBody{}
	}
	if err := p.w.WriteBool(body.InitLocals); err != nil {
		return err
	}
	if err := p.w.WriteVarUint(uint64(len(body.Locals))); err != nil {
		return err
	}
	for _, local := range body.Locals {
		if err := p.writeType(local); err != nil {
			return err
		}
	}
	return nil
}

// writeConstructorHeader writes a constructor header; the IL is deferred.
func (p *Pickler) writeConstructorHeader(c *Constructor) error {
	if err := p.w.WriteString(c.MemberName()); err != nil {
		return err
	}
	if err := p.w.WriteVarUint(uint64(c.Attrs)); err != nil {
		return err
	}
	if err := p.w.WriteVarUint(uint64(c.ImplFlags)); err != nil {
		return err
	}
	if err := p.w.WriteByte(byte(c.CallingConvention)); err != nil {
		return err
	}
	if err := p.writeParameters(c.Params); err != nil {
		return err
	}
	body := c.Body
	if body == nil {
		body = &MethodBody{}
	}
	if err := p.w.WriteBool(body.InitLocals); err != nil {
		return err
	}
	if err := p.w.WriteVarUint(uint64(len(body.Locals))); err != nil {
		return err
	}
	for _, local := range body.Locals {
		if err := p.writeType(local); err != nil {
			return err
		}
	}
	return nil
}

// writeParameters writes a parameter list. The length is packed with a low
// bit reporting whether any slot carries custom modifiers; modifier counts
// pack into one byte with both halves capped at seven.
func (p *Pickler) writeParameters(params []*Parameter) error {
	hasMods := false
	for _, param := range params {
		if len(param.Required) > 0 || len(param.Optional) > 0 {
			hasMods = true
			break
		}
	}
	packed := uint64(len(params)) << 1
	if hasMods {
		packed |= 1
	}
	if err := p.w.WriteVarUint(packed); err != nil {
		return err
	}
	for _, param := range params {
		if hasMods {
			if err := p.writeModifiers(param); err != nil {
				return err
			}
		}
		if err := p.writeType(param.Type); err != nil {
			return err
		}
		if err := p.w.WriteNullableString(param.Name); err != nil {
			return err
		}
		if err := p.w.WriteVarUint(uint64(param.Attrs)); err != nil {
			return err
		}
		if err := p.w.WriteBool(param.HasDefault); err != nil {
			return err
		}
		if param.HasDefault {
			if err := p.writeConstant(param.Type, param.Default); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeParameterSlot writes a single slot (the return position). A void
// return is an absent type.
func (p *Pickler) writeParameterSlot(param *Parameter) error {
	if err := p.writeModifiers(param); err != nil {
		return err
	}
	if err := p.w.WriteBool(param.Type != nil); err != nil {
		return err
	}
	if param.Type == nil {
		return nil
	}
	return p.writeType(param.Type)
}

// writeModifiers writes the packed `(required<<4)|optional` count byte and
// the modifier types.
func (p *Pickler) writeModifiers(param *Parameter) error {
	if len(param.Required) > 7 || len(param.Optional) > 7 {
		return fmt.Errorf("%d required, %d optional: %w",
			len(param.Required), len(param.Optional), ErrUnsupportedModifierCount)
	}
	packed := byte(len(param.Required))<<4 | byte(len(param.Optional))
	if err := p.w.WriteByte(packed); err != nil {
		return err
	}
	for _, mod := range param.Required {
		if err := p.writeType(mod); err != nil {
			return err
		}
	}
	for _, mod := range param.Optional {
		if err := p.writeType(mod); err != nil {
			return err
		}
	}
	return nil
}

// writeConstant writes a constant by its declared type: object constants
// must be null and carry no payload; strings are nullable; enums write the
// underlying code; scalars write direct primitives.
func (p *Pickler) writeConstant(declared *Type, value interface{}) error {
	if declared != nil && declared.Kind() == TypeKindEnum && !declared.IsGenericParameter() &&
		declared.EnumUnderlying() != PrimNone {
		return p.writePrimitiveByCode(declared.EnumUnderlying(), reflect.ValueOf(value))
	}
	if value == nil {
		// Object-typed constant: no payload.
		return nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.String {
		s := rv.String()
		return p.w.WriteNullableString(&s)
	}
	code := primCodeOf(rv.Kind())
	if code == PrimNone {
		return fmt.Errorf("constant %T has no primitive encoding", value)
	}
	return p.writePrimitiveByCode(code, rv)
}

// writePrimitiveByCode writes a scalar with the width its code dictates.
// The value's own sign class is normalized to the declared code, so an
// int64-carried constant fits an unsigned declaration.
func (p *Pickler) writePrimitiveByCode(code PrimitiveCode, rv reflect.Value) error {
	switch code {
	case PrimBool:
		return p.w.WriteBool(rv.Bool())
	case PrimInt8:
		return p.w.WriteByte(byte(rawInt(rv)))
	case PrimUint8:
		return p.w.WriteByte(byte(rawInt(rv)))
	case PrimInt16, PrimUint16:
		return p.w.WriteUint16(uint16(rawInt(rv)))
	case PrimInt32, PrimUint32:
		return p.w.WriteUint32(uint32(rawInt(rv)))
	case PrimInt64, PrimInt, PrimUint64, PrimUint:
		return p.w.WriteUint64(rawInt(rv))
	case PrimFloat32:
		return p.w.WriteFloat32(float32(rv.Float()))
	case PrimFloat64:
		return p.w.WriteFloat64(rv.Float())
	case PrimString:
		s := rv.String()
		return p.w.WriteNullableString(&s)
	}
	return fmt.Errorf("primitive code %d has no writer", code)
}

// rawInt returns the two's-complement bits of any integral value.
func rawInt(rv reflect.Value) uint64 {
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	}
	return uint64(rv.Int())
}

// writeEnumValue writes a named integral value as its underlying code.
func (p *Pickler) writeEnumValue(rv reflect.Value) error {
	code := primCodeOf(rv.Kind())
	if !supportedEnumCode(code) {
		return fmt.Errorf("%s: %w", rv.Type(), ErrInvalidEnumUnderlying)
	}
	return p.writePrimitiveByCode(code, rv)
}

// writeField writes a field reference: name plus reflected scope.
func (p *Pickler) writeField(f *Field) error {
	if err := p.w.WriteString(f.Name); err != nil {
		return err
	}
	if f.DeclaringType() != nil {
		if err := p.w.WriteBool(true); err != nil {
			return err
		}
		return p.writeType(f.DeclaringType())
	}
	if err := p.w.WriteBool(false); err != nil {
		return err
	}
	return p.writeModule(f.module)
}

// writeProperty writes a property reference: signature plus reflected type.
func (p *Pickler) writeProperty(prop *Property) error {
	if err := p.writeSignature(PropertySignature(prop)); err != nil {
		return err
	}
	return p.writeType(prop.DeclaringType())
}

// writeEvent writes an event reference: name plus reflected type.
func (p *Pickler) writeEvent(ev *Event) error {
	if err := p.w.WriteString(ev.Name); err != nil {
		return err
	}
	return p.writeType(ev.DeclaringType())
}

// writeMethod writes a method reference. Constructed generic methods write
// the definition signature plus argument types; plain methods write a zero
// argument count.
func (p *Pickler) writeMethod(m *Method) error {
	if m.IsConstructedGeneric() {
		if err := p.writeSignature(MethodSignature(m.GenericDefinition())); err != nil {
			return err
		}
		args := m.GenericArgs
		if err := p.w.WriteVarUint(uint64(len(args))); err != nil {
			return err
		}
		for _, arg := range args {
			if err := p.writeType(arg); err != nil {
				return err
			}
		}
	} else {
		if err := p.writeSignature(MethodSignature(m)); err != nil {
			return err
		}
		if err := p.w.WriteVarUint(0); err != nil {
			return err
		}
	}
	if m.DeclaringType() != nil {
		if err := p.w.WriteBool(true); err != nil {
			return err
		}
		return p.writeType(m.DeclaringType())
	}
	if err := p.w.WriteBool(false); err != nil {
		return err
	}
	return p.writeModule(m.module)
}

// writeConstructor writes a constructor reference: signature plus
// reflected type.
func (p *Pickler) writeConstructor(c *Constructor) error {
	if err := p.writeSignature(ConstructorSignature(c)); err != nil {
		return err
	}
	return p.writeType(c.DeclaringType())
}

// writeMethodBase writes a method-or-constructor reference behind a one
// byte discriminator.
func (p *Pickler) writeMethodBase(mb MethodBase) error {
	switch m := mb.(type) {
	case *Method:
		if err := p.w.WriteByte(0); err != nil {
			return err
		}
		return p.writeMethod(m)
	case *Constructor:
		if err := p.w.WriteByte(1); err != nil {
			return err
		}
		return p.writeConstructor(m)
	}
	return fmt.Errorf("%T: %w", mb, ErrUnserializableNonRuntimeReflection)
}

// writeMember writes an arbitrary member reference behind a one byte
// discriminator, for operands that may name any member kind.
func (p *Pickler) writeMember(member interface{}) error {
	switch m := member.(type) {
	case *Type:
		if err := p.w.WriteByte(0); err != nil {
			return err
		}
		return p.writeType(m)
	case *Field:
		if err := p.w.WriteByte(1); err != nil {
			return err
		}
		return p.writeField(m)
	case *Method:
		if err := p.w.WriteByte(2); err != nil {
			return err
		}
		return p.writeMethod(m)
	case *Constructor:
		if err := p.w.WriteByte(3); err != nil {
			return err
		}
		return p.writeConstructor(m)
	}
	return fmt.Errorf("%T: %w", member, ErrUnserializableNonRuntimeReflection)
}

// writeSignature writes a structural signature.
func (p *Pickler) writeSignature(sig Signature) error {
	if err := p.w.WriteString(sig.Name); err != nil {
		return err
	}
	if err := p.w.WriteByte(byte(sig.CallingConvention)); err != nil {
		return err
	}
	if err := p.w.WriteVarUint(uint64(sig.GenericParamCount)); err != nil {
		return err
	}
	if err := p.writeSignatureElement(sig.Return); err != nil {
		return err
	}
	if err := p.w.WriteVarUint(uint64(len(sig.Params))); err != nil {
		return err
	}
	for _, param := range sig.Params {
		if err := p.writeSignatureElement(param); err != nil {
			return err
		}
	}
	return nil
}

// writeSignatureElement writes one signature element with its opcode.
func (p *Pickler) writeSignatureElement(elem SignatureElement) error {
	if err := p.w.WriteByte(byte(elem.Op())); err != nil {
		return err
	}
	switch e := elem.(type) {
	case SigNamedType:
		return p.w.WriteString(e.Name)
	case SigGenericParam:
		return p.w.WriteVarUint(uint64(e.Position))
	case SigConstructedGeneric:
		if err := p.writeSignatureElement(e.Def); err != nil {
			return err
		}
		if err := p.w.WriteVarUint(uint64(len(e.Args))); err != nil {
			return err
		}
		for _, arg := range e.Args {
			if err := p.writeSignatureElement(arg); err != nil {
				return err
			}
		}
		return nil
	case SigArray:
		rank := byte(e.Rank)
		if e.SZ {
			rank = 0
		}
		if err := p.w.WriteByte(rank); err != nil {
			return err
		}
		return p.writeSignatureElement(e.Element)
	case SigByRef:
		return p.writeSignatureElement(e.Element)
	case SigPointer:
		return p.writeSignatureElement(e.Element)
	case SigModReq:
		if err := p.writeSignatureElement(e.Element); err != nil {
			return err
		}
		return p.writeSignatureElement(e.Modifier)
	case SigModOpt:
		if err := p.writeSignatureElement(e.Element); err != nil {
			return err
		}
		return p.writeSignatureElement(e.Modifier)
	}
	return fmt.Errorf("signature element %T has no writer", elem)
}

// allZero reports whether every byte of a blob is zero.
func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
