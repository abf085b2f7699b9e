// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package sailar implements the SAILAR module toolchain core: the binary
// module codec, the validating code block builder, and the record model
// shared with the semantic loader.
//
// A module travels through the toolchain as
//
//	builder -> records -> writer -> bytes -> parser -> records -> loader
//
// The writer and the parser agree on a single variable-width integer size
// for every length and index in a module; the width is chosen to be the
// narrowest of 1, 2 or 4 bytes that fits the module's content and is
// recorded in the file header.
package sailar

// Magic is the byte sequence identifying the start of a SAILAR module.
var Magic = [6]byte{'S', 'A', 'I', 'L', 'A', 'R'}

// FormatVersion specifies the version of a SAILAR module file.
type FormatVersion struct {
	// Major is incremented when backwards incompatible changes are made
	// to the format.
	Major uint8 `json:"major"`
	Minor uint8 `json:"minor"`
}

// MinimumFormatVersion is the lowest format version supported by this
// package. Modules below it are rejected by the parser.
var MinimumFormatVersion = FormatVersion{Major: 0, Minor: 12}

// IsSupported reports whether modules of version v can be read.
func (v FormatVersion) IsSupported() bool {
	if v.Major != MinimumFormatVersion.Major {
		return v.Major > MinimumFormatVersion.Major
	}
	return v.Minor >= MinimumFormatVersion.Minor
}

// Flags stored in the first byte of a function definition record.
const (
	// FunctionFlagExport marks a definition visible to importing modules.
	FunctionFlagExport uint8 = 1 << 0

	// FunctionFlagForeign marks a definition whose body lives in an
	// external library rather than in a code block.
	FunctionFlagForeign uint8 = 1 << 1
)

// Visibility classifies how a function definition is exposed through the
// module's symbol table.
type Visibility uint8

const (
	// VisibilityPrivate definitions are indexed in the symbol table but
	// cannot be imported by other modules.
	VisibilityPrivate Visibility = iota

	// VisibilityExport definitions are indexed and importable.
	VisibilityExport

	// VisibilityHidden definitions carry no symbol at all. On the wire a
	// hidden definition has a zero-length symbol name.
	VisibilityHidden
)

// String returns the name of the visibility class.
func (v Visibility) String() string {
	switch v {
	case VisibilityPrivate:
		return "private"
	case VisibilityExport:
		return "export"
	case VisibilityHidden:
		return "hidden"
	default:
		return "unknown"
	}
}
