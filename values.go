// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

import (
	"fmt"
	"reflect"
)

// ArrayDimension is the extent of one array dimension.
type ArrayDimension struct {
	Length     int
	LowerBound int
}

// Array is a rectangular array value of arbitrary rank and lower bounds.
// Single-dimension zero-based arrays are ordinary Go slices and do not use
// this type.
type Array struct {
	// Element is the element type of the array.
	Element reflect.Type

	// Dims are the per-dimension extents, outermost first.
	Dims []ArrayDimension

	// Data is a Go slice of Element holding the items in row-major order.
	Data interface{}
}

// NewArray allocates a rectangular array value.
func NewArray(element reflect.Type, dims ...ArrayDimension) *Array {
	total := 1
	for _, d := range dims {
		total *= d.Length
	}
	data := reflect.MakeSlice(reflect.SliceOf(element), total, total)
	return &Array{Element: element, Dims: dims, Data: data.Interface()}
}

// Rank returns the number of dimensions.
func (a *Array) Rank() int { return len(a.Dims) }

// Len returns the total number of items.
func (a *Array) Len() int {
	total := 1
	for _, d := range a.Dims {
		total *= d.Length
	}
	return total
}

// index converts per-dimension indices (in lower-bound space) to the
// row-major offset into Data.
func (a *Array) index(indices ...int) (int, error) {
	if len(indices) != len(a.Dims) {
		return 0, fmt.Errorf("array rank %d, got %d indices",
			len(a.Dims), len(indices))
	}
	off := 0
	for i, d := range a.Dims {
		idx := indices[i] - d.LowerBound
		if idx < 0 || idx >= d.Length {
			return 0, fmt.Errorf("index %d out of range for dimension %d",
				indices[i], i)
		}
		off = off*d.Length + idx
	}
	return off, nil
}

// Get returns the item at the given indices.
func (a *Array) Get(indices ...int) (interface{}, error) {
	off, err := a.index(indices...)
	if err != nil {
		return nil, err
	}
	return reflect.ValueOf(a.Data).Index(off).Interface(), nil
}

// Set stores an item at the given indices.
func (a *Array) Set(value interface{}, indices ...int) error {
	off, err := a.index(indices...)
	if err != nil {
		return err
	}
	reflect.ValueOf(a.Data).Index(off).Set(reflect.ValueOf(value))
	return nil
}

// Tuple is an ordered, heterogeneous group of items. Tuple slots are
// dispatched dynamically; a slot may legally reference the tuple itself.
type Tuple struct {
	items []interface{}
}

// NewTuple returns a tuple over the given items.
func NewTuple(items ...interface{}) *Tuple {
	return &Tuple{items: items}
}

// Len returns the number of slots.
func (t *Tuple) Len() int { return len(t.items) }

// Item returns the i-th slot.
func (t *Tuple) Item(i int) interface{} { return t.items[i] }

// SetItem stores a value into the i-th slot.
func (t *Tuple) SetItem(i int, v interface{}) { t.items[i] = v }

// DelegateTarget is one entry of a delegate invocation list.
type DelegateTarget struct {
	// Method invoked by this entry.
	Method *Method

	// Receiver is nil for static targets.
	Receiver interface{}
}

// Delegate is a method-typed value: a delegate type plus its invocation
// list.
type Delegate struct {
	// Type is the delegate metadata type.
	Type *Type

	// Targets is the invocation list, in call order.
	Targets []DelegateTarget
}

// NewDelegate returns a single-target delegate.
func NewDelegate(typ *Type, method *Method, receiver interface{}) *Delegate {
	return &Delegate{
		Type:    typ,
		Targets: []DelegateTarget{{Method: method, Receiver: receiver}},
	}
}

// Combine appends a target to the invocation list.
func (d *Delegate) Combine(method *Method, receiver interface{}) {
	d.Targets = append(d.Targets, DelegateTarget{Method: method, Receiver: receiver})
}

// NamedValue is one (name, value) pair provided by a Picklable implementor.
type NamedValue struct {
	Name  string
	Value interface{}
}

// Picklable lets a type take over its own encoding by providing named
// values the reader feeds back to it.
type Picklable interface {
	PickleData() []NamedValue
}
