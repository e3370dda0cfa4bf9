// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

import "errors"

// Errors
var (

	// ErrUnserializablePointer is returned when a raw pointer type is
	// encountered in the object graph.
	ErrUnserializablePointer = errors.New(
		"raw pointer types cannot be pickled")

	// ErrUnserializableMarshalByRef is returned for live-handle types such
	// as channels and functions, which have no stream representation.
	ErrUnserializableMarshalByRef = errors.New(
		"marshal-by-reference types cannot be pickled")

	// ErrUnserializableNonRuntimeReflection is returned when a reflection
	// object is not one of the runtime-provided concrete kinds. The stream
	// format cannot represent tooling-specific variants.
	ErrUnserializableNonRuntimeReflection = errors.New(
		"reflection object is not a runtime-provided kind")

	// ErrUnstableStaticType is returned when a derived concrete reflection
	// type is used where the reflection root is required.
	ErrUnstableStaticType = errors.New(
		"static type must be a reflection root, not a concrete reflection kind")

	// ErrInvalidReduction is returned when a reducer yields a factory whose
	// signature does not match the target-type contract.
	ErrInvalidReduction = errors.New(
		"reducer factory does not match target type contract")

	// ErrUnsupportedRank is returned when an array rank exceeds 255.
	ErrUnsupportedRank = errors.New("array rank exceeds 255")

	// ErrUnsupportedModifierCount is returned when a parameter carries more
	// than 7 required or optional custom modifiers.
	ErrUnsupportedModifierCount = errors.New(
		"parameter carries more than 7 custom modifiers")

	// ErrInvalidEnumUnderlying is returned when an enum's underlying numeric
	// code is not in the supported set.
	ErrInvalidEnumUnderlying = errors.New(
		"enum underlying type is not a supported numeric code")

	// ErrUnterminatedTrailer is returned when a run completes with undrained
	// trailer or static-field closures.
	ErrUnterminatedTrailer = errors.New(
		"pickle run completed with undrained trailer work")

	// ErrMemoNotReady is returned by readers when a memo reference points to
	// a position that has not been populated yet.
	ErrMemoNotReady = errors.New("memo position not populated yet")

	// ErrUnknownILOpcode is returned when an IL body contains an opcode that
	// is not in the opcode table.
	ErrUnknownILOpcode = errors.New("unknown IL opcode")

	// ErrUnresolvedToken is returned when an IL body references a metadata
	// token the owning module cannot resolve.
	ErrUnresolvedToken = errors.New("metadata token cannot be resolved")
)
