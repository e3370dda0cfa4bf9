// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// PickledTypeKind is the cached classification of a type.
type PickledTypeKind uint8

// Type-info kinds. Each value must fit in four bits so that the kind and
// flag halves pack into one byte on the wire.
const (
	// KindBuiltin covers scalars, strings, arrays, nullables, tuples and
	// the reflection entity hierarchy.
	KindBuiltin PickledTypeKind = iota
	// KindEnum is a named integral type written as its underlying code.
	KindEnum
	// KindDelegate is a method-typed value with an invocation list.
	KindDelegate
	// KindReduced is a type taken apart by a registered reducer.
	KindReduced
	// KindSerializable is a type providing its own named values.
	KindSerializable
	// KindAutoObject is a record walked field by field.
	KindAutoObject
)

// String returns the name of a type-info kind.
func (k PickledTypeKind) String() string {
	kindMap := map[PickledTypeKind]string{
		KindBuiltin:      "Builtin",
		KindEnum:         "Enum",
		KindDelegate:     "Delegate",
		KindReduced:      "Reduced",
		KindSerializable: "ISerializable",
		KindAutoObject:   "AutoSerializedObject",
	}

	if value, ok := kindMap[k]; ok {
		return value
	}
	return "?"
}

// TypeFlags are the flag half of a packed type-info byte.
type TypeFlags uint8

// Type-info flags. The set must fit in four bits.
const (
	FlagIsValueType TypeFlags = 1 << iota
	FlagIsSealed
	FlagIsAbstract
	FlagHasElement
)

// FieldEntry is one auto-serialized field slot.
type FieldEntry struct {
	// Name of the field.
	Name string

	// Index is the Go struct field index.
	Index int

	// Info is the field's static type record.
	Info *TypeInfo
}

// TypeInfo is the memoized classification of one type.
type TypeInfo struct {
	// Type is the classified Go type.
	Type reflect.Type

	// Kind is the routing decision for values of the type.
	Kind PickledTypeKind

	// Flags is the packed flag half.
	Flags TypeFlags

	// Elem is the element record of element-bearing types.
	Elem *TypeInfo

	// Fields is the ordered field list of auto-serialized records,
	// sorted by name for byte-stable output.
	Fields []FieldEntry

	// EnumCode is the underlying primitive code of enums.
	EnumCode PrimitiveCode

	// Reducer disassembles values of reduced types.
	Reducer Reducer

	// WellKnown is the single-byte token of builtin types, zero otherwise.
	WellKnown TypeOperation

	// Err is the precomputed rejection reason, nil for serializable types.
	Err error
}

// IsValueType reports whether instances are values, never memoized.
func (info *TypeInfo) IsValueType() bool {
	return info.Flags&FlagIsValueType != 0
}

// HasElement reports whether the record carries an element record.
func (info *TypeInfo) HasElement() bool {
	return info.Flags&FlagHasElement != 0
}

// Packed returns the single wire byte `(kind<<4)|flags`.
func (info *TypeInfo) Packed() byte {
	return byte(info.Kind)<<4 | byte(info.Flags)&0x0f
}

// defaultTypeCacheSize bounds the classification cache.
const defaultTypeCacheSize = 4096

// Reflection-root and value-universe types, fixed at init.
var (
	interfaceType   = reflect.TypeOf((*interface{})(nil)).Elem()
	byteSliceType   = reflect.TypeOf((*[]byte)(nil)).Elem()
	timeType        = reflect.TypeOf((*time.Time)(nil)).Elem()
	assemblyType    = reflect.TypeOf((*Assembly)(nil))
	moduleType      = reflect.TypeOf((*Module)(nil))
	typeType        = reflect.TypeOf((*Type)(nil))
	fieldType       = reflect.TypeOf((*Field)(nil))
	methodType      = reflect.TypeOf((*Method)(nil))
	constructorType = reflect.TypeOf((*Constructor)(nil))
	propertyType    = reflect.TypeOf((*Property)(nil))
	eventType       = reflect.TypeOf((*Event)(nil))
	delegateType    = reflect.TypeOf((*Delegate)(nil))
	arrayType       = reflect.TypeOf((*Array)(nil))
	tupleType       = reflect.TypeOf((*Tuple)(nil))
	picklableType   = reflect.TypeOf((*Picklable)(nil)).Elem()
)

// wellKnownOps elide full type references for primitives and reflection
// roots with a single-byte token.
var wellKnownOps = map[reflect.Type]TypeOperation{
	reflect.TypeOf(false):       TypeOpBool,
	reflect.TypeOf(int8(0)):     TypeOpInt8,
	reflect.TypeOf(uint8(0)):    TypeOpUint8,
	reflect.TypeOf(int16(0)):    TypeOpInt16,
	reflect.TypeOf(uint16(0)):   TypeOpUint16,
	reflect.TypeOf(int32(0)):    TypeOpInt32,
	reflect.TypeOf(uint32(0)):   TypeOpUint32,
	reflect.TypeOf(int64(0)):    TypeOpInt64,
	reflect.TypeOf(uint64(0)):   TypeOpUint64,
	reflect.TypeOf(int(0)):      TypeOpInt,
	reflect.TypeOf(uint(0)):     TypeOpUint,
	reflect.TypeOf(float32(0)):  TypeOpFloat32,
	reflect.TypeOf(float64(0)):  TypeOpFloat64,
	reflect.TypeOf(""):          TypeOpString,
	byteSliceType:               TypeOpBytes,
	timeType:                    TypeOpTime,
	interfaceType:               TypeOpObject,
	assemblyType:                TypeOpAssembly,
	moduleType:                  TypeOpModule,
	typeType:                    TypeOpType,
	fieldType:                   TypeOpField,
	methodType:                  TypeOpMethod,
	constructorType:             TypeOpConstructor,
	propertyType:                TypeOpProperty,
	eventType:                   TypeOpEvent,
	delegateType:                TypeOpDelegate,
	arrayType:                   TypeOpArray,
	tupleType:                   TypeOpTuple,
}

// reflectionRoots are the entity pointer types handled by the reflection
// walker rather than the object protocol.
var reflectionRoots = map[reflect.Type]bool{
	assemblyType:    true,
	moduleType:      true,
	typeType:        true,
	fieldType:       true,
	methodType:      true,
	constructorType: true,
	propertyType:    true,
	eventType:       true,
}

// primCodeOf maps an integral reflect kind to its primitive code.
func primCodeOf(k reflect.Kind) PrimitiveCode {
	switch k {
	case reflect.Bool:
		return PrimBool
	case reflect.Int8:
		return PrimInt8
	case reflect.Uint8:
		return PrimUint8
	case reflect.Int16:
		return PrimInt16
	case reflect.Uint16:
		return PrimUint16
	case reflect.Int32:
		return PrimInt32
	case reflect.Uint32:
		return PrimUint32
	case reflect.Int64:
		return PrimInt64
	case reflect.Uint64:
		return PrimUint64
	case reflect.Int:
		return PrimInt
	case reflect.Uint:
		return PrimUint
	case reflect.Float32:
		return PrimFloat32
	case reflect.Float64:
		return PrimFloat64
	case reflect.String:
		return PrimString
	}
	return PrimNone
}

// TypeCache memoizes type classification. A cache may be shared across
// pickler instances provided they use the same reducer registry: writes
// are initialization-only and reads are hot.
type TypeCache struct {
	mu    sync.Mutex
	cache *lru.Cache
}

// NewTypeCache returns an empty classification cache.
func NewTypeCache() *TypeCache {
	cache, err := lru.New(defaultTypeCacheSize)
	if err != nil {
		panic(fmt.Errorf("impossible error: %s", err))
	}
	return &TypeCache{cache: cache}
}

// Info returns the classification record for a type, building it on first
// encounter.
func (c *TypeCache) Info(t reflect.Type, reducers *ReducerRegistry) *TypeInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.infoLocked(t, reducers)
}

func (c *TypeCache) infoLocked(t reflect.Type, reducers *ReducerRegistry) *TypeInfo {
	if v, ok := c.cache.Get(t); ok {
		return v.(*TypeInfo)
	}
	info := &TypeInfo{Type: t}
	// Insert before filling so self-referential types terminate.
	c.cache.Add(t, info)
	c.fill(info, reducers)
	return info
}

// fill classifies the type in precedence order; the first match wins.
func (c *TypeCache) fill(info *TypeInfo, reducers *ReducerRegistry) {
	t := info.Type
	k := t.Kind()

	if k == reflect.UnsafePointer || k == reflect.Uintptr {
		info.Err = fmt.Errorf("%s: %w", t, ErrUnserializablePointer)
		return
	}

	if op, ok := wellKnownOps[t]; ok {
		info.Kind = KindBuiltin
		info.WellKnown = op
		switch {
		case t == delegateType:
			info.Kind = KindDelegate
		case t == interfaceType:
			info.Flags = FlagIsAbstract
			return
		}
		info.Flags = builtinFlags(t)
		return
	}

	switch k {
	case reflect.Slice, reflect.Array:
		info.Kind = KindBuiltin
		info.Flags = builtinFlags(t) | FlagHasElement
		info.Elem = c.infoLocked(t.Elem(), reducers)
		if info.Elem.Err != nil {
			info.Err = info.Elem.Err
		}
		return

	case reflect.Ptr:
		elem := t.Elem()
		_, elemWellKnown := wellKnownOps[elem]
		if elemWellKnown || primCodeOf(elem.Kind()) != PrimNone {
			// Nullable rendition: optional scalar.
			info.Kind = KindBuiltin
			info.Flags = FlagHasElement
			info.Elem = c.infoLocked(elem, reducers)
			return
		}
		if elem.Kind() == reflect.Struct {
			if reducers != nil {
				if reducer := reducers.Lookup(t); reducer != nil {
					info.Kind = KindReduced
					info.Reducer = reducer
					info.Flags = builtinFlags(t)
					return
				}
			}
			if t.Implements(picklableType) {
				info.Kind = KindSerializable
				info.Flags = builtinFlags(t)
				return
			}
			c.fillObject(info, t, elem, reducers)
			return
		}
		info.Err = fmt.Errorf("%s: %w", t, ErrUnserializablePointer)
		return

	case reflect.Interface:
		info.Kind = KindBuiltin
		info.Flags = FlagIsAbstract
		return

	case reflect.Chan, reflect.Func:
		if reducers != nil {
			if reducer := reducers.Lookup(t); reducer != nil {
				info.Kind = KindReduced
				info.Reducer = reducer
				info.Flags = builtinFlags(t)
				return
			}
		}
		info.Err = fmt.Errorf("%s: %w", t, ErrUnserializableMarshalByRef)
		return

	case reflect.Complex64, reflect.Complex128:
		info.Err = fmt.Errorf("complex type %s is not supported", t)
		return
	}

	if code := primCodeOf(k); code != PrimNone && k != reflect.String &&
		k != reflect.Bool && k != reflect.Float32 && k != reflect.Float64 {
		// A named integral type is the enum rendition.
		info.Kind = KindEnum
		info.EnumCode = code
		info.Flags = FlagIsValueType | FlagIsSealed
		return
	}

	if code := primCodeOf(k); code != PrimNone {
		// Named scalar over bool/float/string: transparent builtin.
		info.Kind = KindBuiltin
		info.Flags = FlagIsValueType | FlagIsSealed
		return
	}

	if reducers != nil {
		if reducer := reducers.Lookup(t); reducer != nil {
			info.Kind = KindReduced
			info.Reducer = reducer
			info.Flags = builtinFlags(t)
			return
		}
	}

	if t.Implements(picklableType) ||
		(k == reflect.Struct && reflect.PtrTo(t).Implements(picklableType)) {
		info.Kind = KindSerializable
		info.Flags = builtinFlags(t)
		return
	}

	if k == reflect.Struct {
		c.fillObject(info, t, t, reducers)
		return
	}

	info.Err = fmt.Errorf("%s: %w", t, ErrUnserializableMarshalByRef)
}

// reflectionRootStructs are the bare struct types behind the entity
// pointers. Reaching one outside its canonical pointer shape means a
// tooling-specific reflection variant the stream cannot represent.
var reflectionRootStructs = func() map[reflect.Type]bool {
	structs := make(map[reflect.Type]bool, len(reflectionRoots))
	for t := range reflectionRoots {
		structs[t.Elem()] = true
	}
	return structs
}()

// fillObject classifies an auto-serialized record and builds its field
// list. t is the static type, elem the struct type it denotes.
func (c *TypeCache) fillObject(info *TypeInfo, t, elem reflect.Type, reducers *ReducerRegistry) {
	if reflectionRootStructs[elem] {
		// The canonical entity pointers never reach this path; anything
		// else over an entity struct is a non-root reflection shape.
		if t.Kind() == reflect.Ptr {
			info.Err = fmt.Errorf("%s: %w", t, ErrUnstableStaticType)
		} else {
			info.Err = fmt.Errorf("%s: %w", t, ErrUnserializableNonRuntimeReflection)
		}
		return
	}
	info.Kind = KindAutoObject
	info.Flags = builtinFlags(t)

	fields := make([]FieldEntry, 0, elem.NumField())
	for i := 0; i < elem.NumField(); i++ {
		sf := elem.Field(i)
		if sf.PkgPath != "" {
			continue
		}
		fields = append(fields, FieldEntry{
			Name:  sf.Name,
			Index: i,
			Info:  c.infoLocked(sf.Type, reducers),
		})
	}
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].Name < fields[j].Name
	})
	info.Fields = fields
}

// builtinFlags derives the flag half from the Go kind. Every concrete Go
// type is final, so sealed is the rule rather than the exception.
func builtinFlags(t reflect.Type) TypeFlags {
	var flags TypeFlags
	switch t.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
	default:
		flags |= FlagIsValueType
	}
	if t.Kind() != reflect.Interface {
		flags |= FlagIsSealed
	} else {
		flags |= FlagIsAbstract
	}
	return flags
}
