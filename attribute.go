// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

import (
	"fmt"
	"reflect"
)

// AttributeValueTag is the declared type tag of an attribute argument
// value, the closed serialization-type-code set.
type AttributeValueTag uint8

// Attribute value tags.
const (
	AttrTagBool         AttributeValueTag = 0x02
	AttrTagChar         AttributeValueTag = 0x03
	AttrTagInt8         AttributeValueTag = 0x04
	AttrTagUint8        AttributeValueTag = 0x05
	AttrTagInt16        AttributeValueTag = 0x06
	AttrTagUint16       AttributeValueTag = 0x07
	AttrTagInt32        AttributeValueTag = 0x08
	AttrTagUint32       AttributeValueTag = 0x09
	AttrTagInt64        AttributeValueTag = 0x0A
	AttrTagUint64       AttributeValueTag = 0x0B
	AttrTagFloat32      AttributeValueTag = 0x0C
	AttrTagFloat64      AttributeValueTag = 0x0D
	AttrTagString       AttributeValueTag = 0x0E
	AttrTagSZArray      AttributeValueTag = 0x1D
	AttrTagType         AttributeValueTag = 0x50
	AttrTagTaggedObject AttributeValueTag = 0x51
	AttrTagField        AttributeValueTag = 0x53
	AttrTagProperty     AttributeValueTag = 0x54
	AttrTagEnum         AttributeValueTag = 0x55
)

// String returns the string representation of an attribute value tag.
func (t AttributeValueTag) String() string {
	tagMap := map[AttributeValueTag]string{
		AttrTagBool:         "Bool",
		AttrTagChar:         "Char",
		AttrTagInt8:         "Int8",
		AttrTagUint8:        "Uint8",
		AttrTagInt16:        "Int16",
		AttrTagUint16:       "Uint16",
		AttrTagInt32:        "Int32",
		AttrTagUint32:       "Uint32",
		AttrTagInt64:        "Int64",
		AttrTagUint64:       "Uint64",
		AttrTagFloat32:      "Float32",
		AttrTagFloat64:      "Float64",
		AttrTagString:       "String",
		AttrTagSZArray:      "SZArray",
		AttrTagType:         "Type",
		AttrTagTaggedObject: "TaggedObject",
		AttrTagField:        "Field",
		AttrTagProperty:     "Property",
		AttrTagEnum:         "Enum",
	}

	if value, ok := tagMap[t]; ok {
		return value
	}
	return "?"
}

// attributeTagOf classifies an argument value into its declared tag.
func attributeTagOf(v interface{}) (AttributeValueTag, error) {
	if v == nil {
		return AttrTagString, nil
	}
	if _, ok := v.(*Type); ok {
		return AttrTagType, nil
	}
	t := reflect.TypeOf(v)
	// A named integral type is an enum argument, written with its type.
	if t.PkgPath() != "" {
		switch t.Kind() {
		case reflect.Int8, reflect.Uint8, reflect.Int16, reflect.Uint16,
			reflect.Int32, reflect.Uint32, reflect.Int64, reflect.Uint64,
			reflect.Int, reflect.Uint:
			return AttrTagEnum, nil
		}
	}
	switch t.Kind() {
	case reflect.Bool:
		return AttrTagBool, nil
	case reflect.Int8:
		return AttrTagInt8, nil
	case reflect.Uint8:
		return AttrTagUint8, nil
	case reflect.Int16:
		return AttrTagInt16, nil
	case reflect.Uint16:
		return AttrTagUint16, nil
	case reflect.Int32:
		return AttrTagInt32, nil
	case reflect.Uint32:
		return AttrTagUint32, nil
	case reflect.Int64, reflect.Int:
		return AttrTagInt64, nil
	case reflect.Uint64, reflect.Uint:
		return AttrTagUint64, nil
	case reflect.Float32:
		return AttrTagFloat32, nil
	case reflect.Float64:
		return AttrTagFloat64, nil
	case reflect.String:
		return AttrTagString, nil
	case reflect.Slice, reflect.Array:
		return AttrTagSZArray, nil
	case reflect.Interface:
		return AttrTagTaggedObject, nil
	}
	return 0, fmt.Errorf("attribute value %T has no serialization type code", v)
}

// writeAttributes writes a custom attribute table: the count, then for
// each attribute its type, constructor reference, positional arguments and
// named arguments.
func (p *Pickler) writeAttributes(attrs []*Attribute) error {
	if err := p.w.WriteVarUint(uint64(len(attrs))); err != nil {
		return err
	}
	for _, attr := range attrs {
		if err := p.writeType(attr.AttributeType()); err != nil {
			return err
		}
		if err := p.writeConstructor(attr.Constructor); err != nil {
			return err
		}
		if err := p.w.WriteVarUint(uint64(len(attr.Arguments))); err != nil {
			return err
		}
		for _, arg := range attr.Arguments {
			if err := p.writeAttributeValue(arg); err != nil {
				return err
			}
		}
		if err := p.w.WriteVarUint(uint64(len(attr.Named))); err != nil {
			return err
		}
		for _, named := range attr.Named {
			memberTag := AttrTagProperty
			if named.Field {
				memberTag = AttrTagField
			}
			if err := p.w.WriteByte(byte(memberTag)); err != nil {
				return err
			}
			valueTag, err := attributeTagOf(named.Value)
			if err != nil {
				return err
			}
			if err := p.w.WriteByte(byte(valueTag)); err != nil {
				return err
			}
			if err := p.w.WriteString(named.Name); err != nil {
				return err
			}
			if err := p.writeAttributeValuePayload(valueTag, named.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeAttributeValue writes a (tag, value) pair.
func (p *Pickler) writeAttributeValue(v interface{}) error {
	tag, err := attributeTagOf(v)
	if err != nil {
		return err
	}
	if err := p.w.WriteByte(byte(tag)); err != nil {
		return err
	}
	return p.writeAttributeValuePayload(tag, v)
}

// writeAttributeValuePayload writes the value bytes for a known tag.
func (p *Pickler) writeAttributeValuePayload(tag AttributeValueTag, v interface{}) error {
	switch tag {
	case AttrTagBool:
		return p.w.WriteBool(v.(bool))
	case AttrTagInt8:
		return p.w.WriteByte(byte(v.(int8)))
	case AttrTagUint8:
		return p.w.WriteByte(v.(uint8))
	case AttrTagInt16:
		return p.w.WriteUint16(uint16(v.(int16)))
	case AttrTagUint16:
		return p.w.WriteUint16(v.(uint16))
	case AttrTagInt32:
		return p.w.WriteUint32(uint32(v.(int32)))
	case AttrTagUint32:
		return p.w.WriteUint32(v.(uint32))
	case AttrTagInt64:
		return p.w.WriteUint64(uint64(reflect.ValueOf(v).Int()))
	case AttrTagUint64:
		return p.w.WriteUint64(reflect.ValueOf(v).Uint())
	case AttrTagFloat32:
		return p.w.WriteFloat32(v.(float32))
	case AttrTagFloat64:
		return p.w.WriteFloat64(v.(float64))
	case AttrTagString:
		if v == nil {
			return p.w.WriteNullableString(nil)
		}
		s := reflect.ValueOf(v).String()
		return p.w.WriteNullableString(&s)
	case AttrTagType:
		return p.writeType(v.(*Type))
	case AttrTagEnum:
		rv := reflect.ValueOf(v)
		if err := p.writeType(p.runtimeType(rv.Type())); err != nil {
			return err
		}
		return p.writeEnumValue(rv)
	case AttrTagSZArray:
		// Read-only collections are materialized to arrays before
		// encoding; a Go slice already is one.
		rv := reflect.ValueOf(v)
		if err := p.w.WriteVarUint(uint64(rv.Len())); err != nil {
			return err
		}
		for i := 0; i < rv.Len(); i++ {
			if err := p.writeAttributeValue(rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		return nil
	case AttrTagTaggedObject:
		return p.writeAttributeValue(reflect.ValueOf(v).Elem().Interface())
	}
	return fmt.Errorf("attribute tag %s has no payload writer", tag)
}
