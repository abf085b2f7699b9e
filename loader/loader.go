// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package loader materializes typed, cross-referenced module graphs from
// SAILAR records. Cross-references resolve lazily on first access and are
// memoized per module; a loader is used by a single goroutine while
// loading, after which the forced graph may be shared for read-only
// inspection.
package loader

import (
	"os"

	"github.com/samber/lo"

	sailar "github.com/sailar-lang/sailar"
	"github.com/sailar-lang/sailar/log"
)

// Source is an adapter supplying the records of one module, regardless of
// where they come from.
type Source interface {
	// Records returns the module's records in file order.
	Records() ([]sailar.Record, error)
}

// Resolver maps a module identifier to a source for its records. A nil
// source with a nil error means the module is unknown.
type Resolver interface {
	Resolve(identifier sailar.ModuleIdentifier) (Source, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(identifier sailar.ModuleIdentifier) (Source, error)

func (f ResolverFunc) Resolve(identifier sailar.ModuleIdentifier) (Source, error) {
	return f(identifier)
}

type moduleSource struct {
	module *sailar.Module
}

// ModuleSource adapts an in-memory module to the Source interface.
func ModuleSource(module *sailar.Module) Source {
	return moduleSource{module: module}
}

func (s moduleSource) Records() ([]sailar.Record, error) {
	return s.module.Records(), nil
}

type bytesSource struct {
	data []byte
	pool *sailar.BufferPool
}

// BytesSource adapts the binary form of a module to the Source interface;
// the bytes are parsed when the module is loaded.
func BytesSource(data []byte, pool *sailar.BufferPool) Source {
	return bytesSource{data: data, pool: pool}
}

func (s bytesSource) Records() ([]sailar.Record, error) {
	module, err := sailar.FromBytes(s.data, s.pool)
	if err != nil {
		return nil, err
	}
	return module.Records(), nil
}

// Options configures a Loader.
type Options struct {
	// PointerSize is the presumed pointer size in bytes of the target,
	// used to map native integer types; 8 when zero.
	PointerSize int

	// Resolver locates imported modules. A nil resolver makes every
	// import fail with ModuleNotFoundError.
	Resolver Resolver

	// Logger replaces the default error-level stderr logger.
	Logger log.Logger
}

// Loader owns a graph of loaded modules. It caches one loaded module per
// identifier and invokes its resolver exactly once per imported
// identifier.
type Loader struct {
	pointerSize int
	resolver    Resolver
	modules     map[string]*Module
	failures    map[string]error
	loading     map[string]bool
	logger      *log.Helper

	native lazy[nativeIntegerTypes]
}

type nativeIntegerTypes struct {
	signed   sailar.Type
	unsigned sailar.Type
}

// New creates an empty loader.
func New(opts *Options) *Loader {
	if opts == nil {
		opts = &Options{}
	}

	l := &Loader{
		pointerSize: opts.PointerSize,
		resolver:    opts.Resolver,
		modules:     make(map[string]*Module),
		failures:    make(map[string]error),
		loading:     make(map[string]bool),
	}
	if l.pointerSize == 0 {
		l.pointerSize = 8
	}

	if opts.Logger == nil {
		l.logger = log.NewHelper(log.NewFilter(log.NewStdLogger(os.Stderr),
			log.FilterLevel(log.LevelError)))
	} else {
		l.logger = log.NewHelper(opts.Logger)
	}
	return l
}

// PointerSize returns the presumed pointer size in bytes used by all
// loaded modules.
func (l *Loader) PointerSize() int {
	return l.pointerSize
}

// NativeIntegerType returns the fixed width integer type standing in for
// the native width one at the loader's pointer size.
func (l *Loader) NativeIntegerType(signed bool) (sailar.Type, error) {
	native, err := l.native.get(func() (nativeIntegerTypes, error) {
		switch l.pointerSize {
		case 2:
			return nativeIntegerTypes{signed: sailar.TypeS16, unsigned: sailar.TypeU16}, nil
		case 4:
			return nativeIntegerTypes{signed: sailar.TypeS32, unsigned: sailar.TypeU32}, nil
		case 8:
			return nativeIntegerTypes{signed: sailar.TypeS64, unsigned: sailar.TypeU64}, nil
		default:
			return nativeIntegerTypes{}, &InvalidPointerSizeError{Size: l.pointerSize}
		}
	})
	if err != nil {
		return sailar.Type{}, err
	}
	if signed {
		return native.signed, nil
	}
	return native.unsigned, nil
}

// ForceLoad loads a module from source unconditionally, used for the root
// application. When the module's definitions collide on a symbol, the
// module is still returned alongside the DuplicateSymbolError; the first
// definition of each symbol stays accessible.
func (l *Loader) ForceLoad(source Source) (*Module, error) {
	records, err := source.Records()
	if err != nil {
		return nil, err
	}

	module, err := newModule(l, records)
	if module != nil && module.identifier != nil {
		key := module.identifier.Key()
		if _, exists := l.modules[key]; !exists {
			l.modules[key] = module
		}
	}
	return module, err
}

// Load returns the cached module named by identifier, invoking the
// resolver on first request. Failed resolutions are cached as well, so
// repeated requests yield the same diagnostic.
func (l *Loader) Load(identifier sailar.ModuleIdentifier) (*Module, error) {
	key := identifier.Key()
	if module, ok := l.modules[key]; ok {
		return module, nil
	}
	if err, ok := l.failures[key]; ok {
		return nil, err
	}
	if l.loading[key] {
		return nil, &ResolverCycleError{Identifier: identifier}
	}

	l.loading[key] = true
	defer delete(l.loading, key)

	module, err := l.resolve(identifier)
	if err != nil {
		l.failures[key] = err
		return nil, err
	}
	l.modules[key] = module
	return module, nil
}

func (l *Loader) resolve(identifier sailar.ModuleIdentifier) (*Module, error) {
	if l.resolver == nil {
		return nil, &ModuleNotFoundError{Identifier: identifier}
	}

	l.logger.Debugf("resolving module %s", identifier)
	source, err := l.resolver.Resolve(identifier)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, &ModuleNotFoundError{Identifier: identifier}
	}

	records, err := source.Records()
	if err != nil {
		return nil, err
	}
	return newModule(l, records)
}

// LookupModule returns the loaded module named by identifier, or nil when
// no such module has been loaded.
func (l *Loader) LookupModule(identifier sailar.ModuleIdentifier) *Module {
	return l.modules[identifier.Key()]
}

// LookupFunction returns every loaded function definition indexed under
// symbol across all loaded modules.
func (l *Loader) LookupFunction(symbol sailar.Identifier) []*Function {
	return lo.FilterMap(lo.Values(l.modules), func(module *Module, _ int) (*Function, bool) {
		function := module.Symbols().Function(symbol)
		return function, function != nil
	})
}
