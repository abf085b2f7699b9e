// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package sailar

import (
	"errors"
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/sailar-lang/sailar/log"
)

// ErrInvalidFileSize is returned when a file is smaller than the module
// prologue (magic, format version and length size) plus one header size
// byte.
var ErrInvalidFileSize = errors.New("not a SAILAR module, smaller than the file prologue")

// minimumFileSize is the prologue plus an empty header size byte.
const minimumFileSize = len("SAILAR") + 3 + 1

// A File represents an open SAILAR module file.
type File struct {
	Module *Module

	data   mmap.MMap
	bytes  []byte
	f      *os.File
	opts   *Options
	logger *log.Helper
}

// Options configures opening and parsing of module files.
type Options struct {
	// Pool supplies scratch buffers to the parser; nil means fresh
	// allocation.
	Pool *BufferPool

	// Logger replaces the default error-level stderr logger.
	Logger log.Logger
}

func newFile(opts *Options) *File {
	file := &File{}
	if opts != nil {
		file.opts = opts
	} else {
		file.opts = &Options{}
	}

	if file.opts.Logger == nil {
		logger := log.NewStdLogger(os.Stderr)
		file.logger = log.NewHelper(log.NewFilter(logger,
			log.FilterLevel(log.LevelError)))
	} else {
		file.logger = log.NewHelper(file.opts.Logger)
	}
	return file
}

// Open instantiates a file instance with options given a file name.
func Open(name string, opts *Options) (*File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	// Memory map the file instead of using read/write.
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}

	file := newFile(opts)
	file.data = data
	file.bytes = data
	file.f = f
	return file, nil
}

// NewBytes instantiates a file instance with options given a memory
// buffer.
func NewBytes(data []byte, opts *Options) (*File, error) {
	file := newFile(opts)
	file.bytes = data
	return file, nil
}

// Parse decodes the module contained in the file.
func (f *File) Parse() error {
	if len(f.bytes) < minimumFileSize {
		return ErrInvalidFileSize
	}

	module, err := FromBytes(f.bytes, f.opts.Pool)
	if err != nil {
		f.logger.Errorf("module parsing failed: %v", err)
		return err
	}
	f.Module = module
	return nil
}

// Close closes the File.
func (f *File) Close() error {
	if f.data != nil {
		_ = f.data.Unmap()
	}
	if f.f != nil {
		return f.f.Close()
	}
	return nil
}
