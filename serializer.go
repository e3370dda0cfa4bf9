// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"time"
)

// arrayChunkSize bounds the transient buffer used when bulk-copying
// primitive-element arrays.
const arrayChunkSize = 4096

// serializeRoot dispatches one root value using its runtime type as the
// static context.
func (p *Pickler) serializeRoot(v interface{}) error {
	if v == nil {
		return p.w.WriteByte(byte(ObjectOpNull))
	}
	rv := reflect.ValueOf(v)
	return p.serialize(rv, rv.Type())
}

// serialize writes one value under a static type context. This is the top
// of the per-object dispatch machine: type-info, null, memo, tag, runtime
// type, then the kind-routed body.
func (p *Pickler) serialize(v reflect.Value, static reflect.Type) error {
	if static.Kind() == reflect.UnsafePointer || static.Kind() == reflect.Uintptr {
		return fmt.Errorf("%s: %w", static, ErrUnserializablePointer)
	}
	info := p.cache.Info(static, p.reducers)
	if info.Err != nil {
		return info.Err
	}
	p.counters.Objects++

	// Nullable context: one presence bit, then the inner value.
	if static.Kind() == reflect.Ptr && info.Kind == KindBuiltin && info.HasElement() {
		if v.IsNil() {
			return p.w.WriteByte(0)
		}
		if err := p.w.WriteByte(1); err != nil {
			return err
		}
		return p.serialize(v.Elem(), static.Elem())
	}

	if static.Kind() == reflect.Interface {
		return p.serializeDynamic(v)
	}

	// Reflection entities live in their own opcode spaces.
	if reflectionRoots[static] {
		if v.IsNil() {
			return fmt.Errorf("nil %s: %w", static, ErrUnserializableNonRuntimeReflection)
		}
		return p.writeEntityValue(v.Interface())
	}
	if info.IsValueType() {
		// The static context pins the layout; no tag, no memo (values
		// have no identity).
		if err := p.writeTypeInfoRecord(info); err != nil {
			return err
		}
		return p.writeBody(v, info)
	}

	// Reference context: null, memo, then a tagged first emission.
	if isNilRef(v) {
		return p.w.WriteByte(byte(ObjectOpNull))
	}
	if pos := p.memo.Lookup(v); pos != memoEmptyPosition {
		if err := p.w.WriteByte(byte(ObjectOpMemo)); err != nil {
			return err
		}
		p.counters.MemoHits++
		return p.w.WriteMemoPosition(pos)
	}
	pos := p.w.Pos()
	if err := p.w.WriteByte(byte(ObjectOpObject)); err != nil {
		return err
	}
	p.memo.Record(v, pos)
	if err := p.writeTypeInfoRecord(info); err != nil {
		return err
	}
	return p.writeBody(v, info)
}

// serializeDynamic writes a value held in an interface slot. The runtime
// type may diverge from the static one, so a reflection reference prefixes
// the body; value-typed runtimes carry no memo.
func (p *Pickler) serializeDynamic(v reflect.Value) error {
	if v.IsNil() {
		return p.w.WriteByte(byte(ObjectOpNull))
	}
	dyn := v.Elem()
	info := p.cache.Info(dyn.Type(), p.reducers)
	if info.Err != nil {
		return info.Err
	}

	if info.IsValueType() {
		if err := p.w.WriteByte(byte(ObjectOpObject)); err != nil {
			return err
		}
		if err := p.writeType(p.runtimeType(dyn.Type())); err != nil {
			return err
		}
		if err := p.writeTypeInfoRecord(info); err != nil {
			return err
		}
		return p.writeBody(dyn, info)
	}

	// Entities keep identity in their own opcode spaces; the object memo
	// never sees them.
	if reflectionRoots[dyn.Type()] {
		if err := p.w.WriteByte(byte(ObjectOpObject)); err != nil {
			return err
		}
		if err := p.writeType(p.runtimeType(dyn.Type())); err != nil {
			return err
		}
		return p.writeEntityValue(dyn.Interface())
	}

	if pos := p.memo.Lookup(dyn); pos != memoEmptyPosition {
		if err := p.w.WriteByte(byte(ObjectOpMemo)); err != nil {
			return err
		}
		p.counters.MemoHits++
		return p.w.WriteMemoPosition(pos)
	}
	pos := p.w.Pos()
	if err := p.w.WriteByte(byte(ObjectOpObject)); err != nil {
		return err
	}
	p.memo.Record(dyn, pos)
	if err := p.writeType(p.runtimeType(dyn.Type())); err != nil {
		return err
	}
	if err := p.writeTypeInfoRecord(info); err != nil {
		return err
	}
	return p.writeBody(dyn, info)
}

func isNilRef(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// writeTypeInfoRecord ensures a type-info record is on the stream.
// Well-known types are elided at this level: the token or the static
// context already pins them.
func (p *Pickler) writeTypeInfoRecord(info *TypeInfo) error {
	if info.WellKnown != 0 {
		return nil
	}
	return p.writeTypeInfoTagged(info)
}

// writeTypeInfoTagged writes the discriminated record form used in nested
// positions: 1 plus a token byte for well-known types, index+2 for records
// already inline this run, or 0 followed by the full record. A full record
// registers its index before the suffix so self-referential types close.
func (p *Pickler) writeTypeInfoTagged(info *TypeInfo) error {
	if info.WellKnown != 0 {
		if err := p.w.WriteVarUint(1); err != nil {
			return err
		}
		return p.w.WriteByte(byte(info.WellKnown))
	}
	if idx, ok := p.emittedInfos[info.Type]; ok {
		return p.w.WriteVarUint(idx + 2)
	}
	idx := p.nextInfo
	p.nextInfo++
	p.emittedInfos[info.Type] = idx
	if err := p.w.WriteVarUint(0); err != nil {
		return err
	}
	if err := p.w.WriteString(info.Type.String()); err != nil {
		return err
	}
	if err := p.w.WriteByte(info.Packed()); err != nil {
		return err
	}
	switch info.Kind {
	case KindEnum:
		return p.w.WriteByte(byte(info.EnumCode))
	case KindAutoObject:
		if err := p.w.WriteVarUint(uint64(len(info.Fields))); err != nil {
			return err
		}
		for _, field := range info.Fields {
			if err := p.w.WriteString(field.Name); err != nil {
				return err
			}
			if err := p.writeTypeInfoTagged(field.Info); err != nil {
				return err
			}
		}
		return nil
	default:
		if info.HasElement() {
			return p.writeTypeInfoTagged(info.Elem)
		}
	}
	return nil
}

// writeBody routes a value on its classified kind.
func (p *Pickler) writeBody(v reflect.Value, info *TypeInfo) error {
	switch info.Kind {
	case KindBuiltin:
		return p.writeBuiltin(v, info)
	case KindEnum:
		return p.writeEnumValue(v)
	case KindDelegate:
		return p.writeDelegateValue(v.Interface().(*Delegate))
	case KindReduced:
		return p.writeReduced(v, info)
	case KindSerializable:
		return p.writeSerializable(v)
	case KindAutoObject:
		return p.writeAutoObject(v, info)
	}
	return fmt.Errorf("type %s has no body writer", info.Type)
}

// writeBuiltin writes scalars, strings, time, byte blobs, arrays, tuples
// and reflection entities.
func (p *Pickler) writeBuiltin(v reflect.Value, info *TypeInfo) error {
	t := info.Type
	switch t {
	case byteSliceType:
		return p.w.WriteLengthPrefixedBytes(v.Bytes())
	case timeType:
		return p.w.WriteUint64(uint64(v.Interface().(time.Time).UnixNano()))
	case arrayType:
		return p.writeRectangularArray(v.Interface().(*Array))
	case tupleType:
		return p.writeTuple(v.Interface().(*Tuple))
	}
	if reflectionRoots[t] {
		return p.writeEntityValue(v.Interface())
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return p.writeSZArray(v, info)
	case reflect.Ptr:
		// Nullable body reached through a dynamic slot.
		if v.IsNil() {
			return p.w.WriteByte(0)
		}
		if err := p.w.WriteByte(1); err != nil {
			return err
		}
		return p.serialize(v.Elem(), t.Elem())
	}
	if code := primCodeOf(t.Kind()); code != PrimNone {
		return p.writePrimitiveByCode(code, v)
	}
	return fmt.Errorf("builtin %s has no writer", t)
}

// writeSZArray writes a single-dimension zero-based array: the length,
// then the items. Primitive elements are bulk-copied in fixed chunks.
func (p *Pickler) writeSZArray(v reflect.Value, info *TypeInfo) error {
	n := v.Len()
	if err := p.w.WriteVarUint(uint64(n)); err != nil {
		return err
	}
	elem := info.Type.Elem()
	if size := primByteSize(elem); size > 0 {
		return p.writePrimitiveSpan(v, elem, size)
	}
	for i := 0; i < n; i++ {
		if err := p.serialize(v.Index(i), elem); err != nil {
			return err
		}
	}
	return nil
}

// writeRectangularArray writes the array type, the per-dimension
// `(length, lower-bound)` pairs, then the items in row-major order.
func (p *Pickler) writeRectangularArray(a *Array) error {
	at := NewArrayType(p.runtimeType(a.Element), a.Rank())
	if err := p.writeType(at); err != nil {
		return err
	}
	for _, d := range a.Dims {
		if err := p.w.WriteVarUint(uint64(d.Length)); err != nil {
			return err
		}
		if err := p.w.WriteVarUint(uint64(d.LowerBound)); err != nil {
			return err
		}
	}
	data := reflect.ValueOf(a.Data)
	if size := primByteSize(a.Element); size > 0 {
		return p.writePrimitiveSpan(data, a.Element, size)
	}
	for i := 0; i < data.Len(); i++ {
		if err := p.serialize(data.Index(i), a.Element); err != nil {
			return err
		}
	}
	return nil
}

// primByteSize returns the raw-copy width of a primitive element type,
// zero when the element is not bulk-copyable.
func primByteSize(t reflect.Type) int {
	if t.PkgPath() != "" {
		return 0
	}
	switch t.Kind() {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return 1
	case reflect.Int16, reflect.Uint16:
		return 2
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 4
	case reflect.Int64, reflect.Uint64, reflect.Float64:
		return 8
	}
	return 0
}

// writePrimitiveSpan bulk-copies primitive items as raw little-endian
// bytes, bounded by the chunk size.
func (p *Pickler) writePrimitiveSpan(v reflect.Value, elem reflect.Type, size int) error {
	buf := make([]byte, 0, arrayChunkSize)
	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		err := p.w.WriteBytes(buf)
		buf = buf[:0]
		return err
	}
	n := v.Len()
	for i := 0; i < n; i++ {
		item := v.Index(i)
		var scratch [8]byte
		switch elem.Kind() {
		case reflect.Bool:
			if item.Bool() {
				scratch[0] = 1
			}
		case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			binary.LittleEndian.PutUint64(scratch[:], uint64(item.Int()))
		case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			binary.LittleEndian.PutUint64(scratch[:], item.Uint())
		case reflect.Float32:
			binary.LittleEndian.PutUint32(scratch[:4], math.Float32bits(float32(item.Float())))
		case reflect.Float64:
			binary.LittleEndian.PutUint64(scratch[:], math.Float64bits(item.Float()))
		}
		buf = append(buf, scratch[:size]...)
		if len(buf) >= arrayChunkSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// writeTuple writes the slot count then each slot dynamically. The memo is
// naturally re-checked between slots, so a slot referencing the tuple
// itself resolves.
func (p *Pickler) writeTuple(t *Tuple) error {
	if err := p.w.WriteVarUint(uint64(t.Len())); err != nil {
		return err
	}
	for i := 0; i < t.Len(); i++ {
		item := t.Item(i)
		if err := p.serialize(reflect.ValueOf(&item).Elem(), interfaceType); err != nil {
			return err
		}
	}
	return nil
}

// writeDelegateValue writes the delegate type then the invocation list.
func (p *Pickler) writeDelegateValue(d *Delegate) error {
	if err := p.writeType(d.Type); err != nil {
		return err
	}
	if err := p.w.WriteVarUint(uint64(len(d.Targets))); err != nil {
		return err
	}
	for _, target := range d.Targets {
		if err := p.writeMethod(target.Method); err != nil {
			return err
		}
		recv := target.Receiver
		if err := p.serialize(reflect.ValueOf(&recv).Elem(), interfaceType); err != nil {
			return err
		}
	}
	return nil
}

// writeReduced asks the reducer for `(factory, receiver, args)`, validates
// the factory contract and writes the triple.
func (p *Pickler) writeReduced(v reflect.Value, info *TypeInfo) error {
	red, err := info.Reducer(p, v)
	if err != nil {
		return err
	}
	if err := validateReduction(v.Type(), red); err != nil {
		return err
	}
	if err := p.writeMethodBase(red.Factory); err != nil {
		return err
	}
	recv := red.Receiver
	if err := p.serialize(reflect.ValueOf(&recv).Elem(), interfaceType); err != nil {
		return err
	}
	args := red.Args
	if args == nil {
		args = []interface{}{}
	}
	return p.serialize(reflect.ValueOf(args), reflect.TypeOf(args))
}

// writeSerializable writes the named values an implementor provides.
func (p *Pickler) writeSerializable(v reflect.Value) error {
	impl, ok := v.Interface().(Picklable)
	if !ok {
		pv := reflect.New(v.Type())
		pv.Elem().Set(v)
		impl = pv.Interface().(Picklable)
	}
	entries := impl.PickleData()
	if err := p.w.WriteVarUint(uint64(len(entries))); err != nil {
		return err
	}
	for _, entry := range entries {
		if err := p.w.WriteString(entry.Name); err != nil {
			return err
		}
		value := entry.Value
		if err := p.serialize(reflect.ValueOf(&value).Elem(), interfaceType); err != nil {
			return err
		}
	}
	return nil
}

// writeAutoObject walks the cached field list of a record.
func (p *Pickler) writeAutoObject(v reflect.Value, info *TypeInfo) error {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	for _, field := range info.Fields {
		if err := p.serialize(v.Field(field.Index), field.Info.Type); err != nil {
			return err
		}
	}
	return nil
}

// writeEntityValue routes a reflection entity to its opcode-space writer.
func (p *Pickler) writeEntityValue(v interface{}) error {
	switch e := v.(type) {
	case *Assembly:
		return p.writeAssembly(e)
	case *Module:
		return p.writeModule(e)
	case *Type:
		return p.writeType(e)
	case *Field:
		return p.writeField(e)
	case *Method:
		return p.writeMethod(e)
	case *Constructor:
		return p.writeConstructor(e)
	case *Property:
		return p.writeProperty(e)
	case *Event:
		return p.writeEvent(e)
	}
	return fmt.Errorf("%T: %w", v, ErrUnserializableNonRuntimeReflection)
}
