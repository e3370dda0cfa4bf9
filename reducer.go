// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

import (
	"fmt"
	"reflect"
	"sort"
)

// Reduction is the disassembled form of an opaque value: a factory the
// reader invokes, an optional receiver, and the argument list.
type Reduction struct {
	// Factory is the constructor or method reassembling the value.
	Factory MethodBase

	// Receiver is the instance the factory is invoked on, nil for
	// constructors and static methods.
	Receiver interface{}

	// Args are the factory arguments.
	Args []interface{}
}

// Reducer converts a value into its reduction.
type Reducer func(p *Pickler, v reflect.Value) (*Reduction, error)

// ReducerRegistry maps types to reducers. Lookup tries the concrete type
// first, then falls back to the type's kind, the rendition of an
// open-generic-definition fallback.
type ReducerRegistry struct {
	exact map[reflect.Type]Reducer
	kinds map[reflect.Kind]Reducer
}

// NewReducerRegistry returns a registry with the built-in container
// reducers installed.
func NewReducerRegistry() *ReducerRegistry {
	r := &ReducerRegistry{
		exact: make(map[reflect.Type]Reducer),
		kinds: make(map[reflect.Kind]Reducer),
	}
	r.RegisterKind(reflect.Map, reduceMap)
	return r
}

// Register installs a reducer for a concrete type.
func (r *ReducerRegistry) Register(t reflect.Type, fn Reducer) error {
	if _, ok := r.exact[t]; ok {
		return fmt.Errorf("type %s already has a reducer registered", t)
	}
	r.exact[t] = fn
	return nil
}

// RegisterKind installs a fallback reducer for every type of the kind.
func (r *ReducerRegistry) RegisterKind(k reflect.Kind, fn Reducer) {
	r.kinds[k] = fn
}

// Lookup returns the reducer for a type, or nil.
func (r *ReducerRegistry) Lookup(t reflect.Type) Reducer {
	if fn, ok := r.exact[t]; ok {
		return fn
	}
	if fn, ok := r.kinds[t.Kind()]; ok {
		return fn
	}
	return nil
}

// MapEntry is one key/value pair of a reduced map.
type MapEntry struct {
	Key   interface{}
	Value interface{}
}

// reduceMap is the built-in reducer for map types. Entries are sorted by
// formatted key so the output stream is deterministic.
func reduceMap(p *Pickler, v reflect.Value) (*Reduction, error) {
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	entries := make([]MapEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, MapEntry{
			Key:   k.Interface(),
			Value: v.MapIndex(k).Interface(),
		})
	}
	return &Reduction{
		Factory: p.containerConstructor(v.Type()),
		Args:    []interface{}{entries},
	}, nil
}

// validateReduction enforces the factory contract: a constructor must have
// no receiver and declare the target type; a method must return the target
// type.
func validateReduction(target reflect.Type, red *Reduction) error {
	// denotes reports whether a metadata type can stand for the target:
	// Go-interned types and builtin tokens must match it; dynamic types
	// carry no Go identity and are accepted.
	denotes := func(t *Type) bool {
		switch {
		case t.GoType() != nil:
			return t.GoType() == target
		case t.wellKnown != 0:
			return wellKnownOps[target] == t.wellKnown
		}
		return true
	}
	switch factory := red.Factory.(type) {
	case *Constructor:
		if red.Receiver != nil {
			return fmt.Errorf("%s: constructor factory cannot take a receiver: %w",
				target, ErrInvalidReduction)
		}
		if declared := factory.DeclaringType(); declared == nil || !denotes(declared) {
			return fmt.Errorf("%s: constructor does not declare the target type: %w",
				target, ErrInvalidReduction)
		}
	case *Method:
		ret := factory.Return.Type
		if ret == nil || !denotes(ret) {
			return fmt.Errorf("%s: factory method does not return the target type: %w",
				target, ErrInvalidReduction)
		}
	default:
		return fmt.Errorf("%s: factory is neither constructor nor method: %w",
			target, ErrInvalidReduction)
	}
	return nil
}
