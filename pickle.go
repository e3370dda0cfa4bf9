// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package pickle serializes arbitrary object graphs, including reflection
// entities and dynamically emitted types with IL bodies, into a
// self-describing binary stream.
package pickle

import (
	"io"
	"os"
	"reflect"
	"runtime"
	"strconv"
	"strings"

	"github.com/saferwall/pickle/log"
)

// Stream preamble constants.
var (
	// PickleMagic opens every stream.
	PickleMagic = [4]byte{'P', 'K', 'L', 'A'}
)

// Pickler format version.
const (
	PicklerMajorVersion = 1
	PicklerMinorVersion = 0
)

// Options for pickling.
type Options struct {

	// AssemblyMode decides ref-vs-def per assembly; nil keeps the default
	// policy (by value iff dynamic or location-less).
	AssemblyMode func(*Assembly) AssemblyPickleMode

	// Reducers maps container types to their disassemblers, by default the
	// built-in registry.
	Reducers *ReducerRegistry

	// TypeCache shares type classification across pickler instances, by
	// default a fresh cache.
	TypeCache *TypeCache

	// A custom logger.
	Logger log.Logger
}

// Counters accumulates stream statistics over one run.
type Counters struct {
	// Objects is the number of dispatched values.
	Objects int

	// MemoHits is the number of back-references written.
	MemoHits int

	// TrailerHighWater is the deepest nested trailer scope seen.
	TrailerHighWater int
}

// A Pickler writes one object graph to a byte sink. A pickler is
// single-threaded: exactly one Pickle call may be in flight, and concurrent
// graphs need independent instances.
type Pickler struct {
	opts     *Options
	logger   *log.Helper
	w        *Writer
	memo     *MemoTable
	cache    *TypeCache
	reducers *ReducerRegistry
	trailers *trailerScheduler

	emittedInfos map[reflect.Type]uint64
	nextInfo     uint64

	genericTypeContext   []*Type
	genericMethodContext []*Type

	goTypes      map[reflect.Type]*Type
	goAssemblies map[string]*Assembly
	ctorCache    map[reflect.Type]*Constructor

	counters Counters
}

// New instantiates a pickler over the given sink.
func New(w io.Writer, opts *Options) *Pickler {
	p := &Pickler{
		w:            NewWriter(w),
		memo:         NewMemoTable(),
		trailers:     newTrailerScheduler(),
		emittedInfos: make(map[reflect.Type]uint64),
		goTypes:      make(map[reflect.Type]*Type),
		goAssemblies: make(map[string]*Assembly),
		ctorCache:    make(map[reflect.Type]*Constructor),
	}
	if opts != nil {
		p.opts = opts
	} else {
		p.opts = &Options{}
	}

	if p.opts.Reducers == nil {
		p.opts.Reducers = NewReducerRegistry()
	}
	if p.opts.TypeCache == nil {
		p.opts.TypeCache = NewTypeCache()
	}
	p.reducers = p.opts.Reducers
	p.cache = p.opts.TypeCache

	var logger log.Logger
	if p.opts.Logger == nil {
		logger = log.NewStdLogger(os.Stdout)
		p.logger = log.NewHelper(log.NewFilter(logger,
			log.FilterLevel(log.LevelError)))
	} else {
		p.logger = log.NewHelper(p.opts.Logger)
	}
	return p
}

// Pickle writes the preamble, the root value, and the deferred trailers.
// On return the stream is complete and both deferred-work stacks are empty.
func (p *Pickler) Pickle(root interface{}) error {
	if err := p.w.WriteBytes(PickleMagic[:]); err != nil {
		return err
	}
	if err := p.w.WriteVarUint(PicklerMajorVersion); err != nil {
		return err
	}
	if err := p.w.WriteVarUint(PicklerMinorVersion); err != nil {
		return err
	}
	rtMajor, rtMinor := runtimeVersion()
	if err := p.w.WriteVarUint(rtMajor); err != nil {
		return err
	}
	if err := p.w.WriteVarUint(rtMinor); err != nil {
		return err
	}

	err := p.trailers.scope(func() error {
		return p.serializeRoot(root)
	})
	if err != nil {
		return err
	}

	// Static fields run after the entire graph; anything they schedule
	// drains before the scope closes.
	err = p.trailers.scope(func() error {
		return p.trailers.drainStatics()
	})
	if err != nil {
		return err
	}

	p.counters.TrailerHighWater = p.trailers.maxDepth
	if err := p.trailers.assertDrained(); err != nil {
		p.logger.Errorf("pickle run left deferred work: %v", err)
		return err
	}
	return nil
}

// Counters returns the statistics accumulated so far.
func (p *Pickler) Counters() Counters {
	return p.counters
}

// Pos returns the current stream position.
func (p *Pickler) Pos() int64 {
	return p.w.Pos()
}

// runtimeVersion parses the informational Go toolchain version.
func runtimeVersion() (uint64, uint64) {
	version := strings.TrimPrefix(runtime.Version(), "go")
	parts := strings.SplitN(version, ".", 3)
	if len(parts) < 2 {
		return 0, 0
	}
	major, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, 0
	}
	minor, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return major, 0
	}
	return major, minor
}
