// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

// Core library identity. Types, modules and members belonging to this
// assembly are always encoded with the single-byte core tokens.
const (
	CoreAssemblyName = "mscorlib"
	CoreModuleName   = "CommonLanguageRuntimeLibrary"

	// selfAssemblyName is the pickler's own assembly identity. It is always
	// encoded by reference, never redefined in a stream.
	selfAssemblyName = "saferwall.pickle"
)

// AssemblyPickleMode selects how an assembly is encoded.
type AssemblyPickleMode int

// Assembly pickle modes.
const (
	// AssemblyModeDefault encodes by value iff the assembly is dynamic or
	// has no location.
	AssemblyModeDefault AssemblyPickleMode = iota
	// AssemblyModeByReference encodes the assembly as a name reference.
	AssemblyModeByReference
	// AssemblyModeByValue encodes the assembly as a full redefinition,
	// including its modules, types and bodies.
	AssemblyModeByValue
)

// Assembly is a loadable unit of modules and the root of the metadata
// entity hierarchy.
type Assembly struct {
	// FullName is the display name of the assembly.
	FullName string

	// Location is the on-disk origin, empty for in-memory assemblies.
	Location string

	// Dynamic marks assemblies emitted at run time.
	Dynamic bool

	// Attributes are the assembly-level custom attributes.
	Attributes []*Attribute

	manifest *Module
	modules  []*Module
}

// NewAssembly returns an assembly with a manifest module named after it
// (the full name plus ".dll").
func NewAssembly(fullName string) *Assembly {
	asm := &Assembly{FullName: fullName}
	asm.manifest = newModule(fullName+".dll", asm, true)
	asm.modules = []*Module{asm.manifest}
	return asm
}

// NewDynamicAssembly returns a location-less dynamic assembly with a
// manifest module ready for type emission.
func NewDynamicAssembly(fullName string) *Assembly {
	asm := NewAssembly(fullName)
	asm.Dynamic = true
	asm.manifest.Dynamic = true
	return asm
}

// ManifestModule returns the module carrying the assembly manifest.
func (a *Assembly) ManifestModule() *Module {
	return a.manifest
}

// Modules returns all modules of the assembly.
func (a *Assembly) Modules() []*Module {
	return a.modules
}

// DefineModule adds a non-manifest module to the assembly.
func (a *Assembly) DefineModule(name string) *Module {
	m := newModule(name, a, false)
	m.Dynamic = a.Dynamic
	a.modules = append(a.modules, m)
	return m
}

// IsCore reports whether this assembly is the core library.
func (a *Assembly) IsCore() bool {
	return a.FullName == CoreAssemblyName
}

// coreAssembly is the process-wide core library entity.
var coreAssembly = func() *Assembly {
	asm := NewAssembly(CoreAssemblyName)
	asm.Location = CoreModuleName
	asm.manifest.Name = CoreModuleName
	return asm
}()

// CoreAssembly returns the core library assembly entity.
func CoreAssembly() *Assembly {
	return coreAssembly
}

// CoreModule returns the core library manifest module entity.
func CoreModule() *Module {
	return coreAssembly.manifest
}
