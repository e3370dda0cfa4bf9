// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

import "reflect"

// memoEmptyPosition is the distinguished sentinel for "not memoized".
const memoEmptyPosition int64 = -1

// memoKey identifies a heap object by reference. Pointers and maps key on
// their pointer word; slices key on the data pointer plus length so that
// reslices of the same backing array do not alias each other.
type memoKey struct {
	ptr uintptr
	len int
}

// MemoTable maps object identity to the stream position where the object
// was first written. Value-type instances never enter the table.
type MemoTable struct {
	positions map[memoKey]int64
}

// NewMemoTable returns an empty memo table.
func NewMemoTable() *MemoTable {
	return &MemoTable{positions: make(map[memoKey]int64)}
}

// keyFor derives the identity key for a reference value. The second return
// reports whether the value has reference identity at all.
func (m *MemoTable) keyFor(v reflect.Value) (memoKey, bool) {
	switch v.Kind() {
	case reflect.Ptr, reflect.Map:
		if v.IsNil() {
			return memoKey{}, false
		}
		return memoKey{ptr: v.Pointer()}, true
	case reflect.Slice:
		if v.IsNil() {
			return memoKey{}, false
		}
		return memoKey{ptr: v.Pointer(), len: v.Len()}, true
	}
	return memoKey{}, false
}

// Lookup returns the memoized position for a reference value, or the empty
// sentinel when the value has not been written yet.
func (m *MemoTable) Lookup(v reflect.Value) int64 {
	key, ok := m.keyFor(v)
	if !ok {
		return memoEmptyPosition
	}
	if pos, ok := m.positions[key]; ok {
		return pos
	}
	return memoEmptyPosition
}

// Record registers the stream position of a reference value's first
// emission. Recording the same identity twice is a protocol violation and
// the first position wins.
func (m *MemoTable) Record(v reflect.Value, pos int64) {
	key, ok := m.keyFor(v)
	if !ok {
		return
	}
	if _, exists := m.positions[key]; exists {
		return
	}
	m.positions[key] = pos
}

// Len returns the number of memoized identities.
func (m *MemoTable) Len() int {
	return len(m.positions)
}
