// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package sailar

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Errors returned when constructing identifiers.
var (
	// ErrEmptyIdentifier is returned for zero-length identifiers.
	ErrEmptyIdentifier = errors.New("identifiers must not be empty")

	// ErrIdentifierInteriorNUL is returned when an identifier contains a
	// NUL byte.
	ErrIdentifierInteriorNUL = errors.New("identifiers must not contain NUL bytes")

	// ErrIdentifierNotUTF8 is returned when an identifier is not valid
	// UTF-8.
	ErrIdentifierNotUTF8 = errors.New("identifiers must be valid UTF-8")
)

// Identifier is a non-empty UTF-8 string with no interior NUL bytes.
// Comparisons are byte-wise. The zero value is not a valid identifier and
// only appears as the symbol of hidden definitions.
type Identifier string

// NewIdentifier validates s and returns it as an Identifier.
func NewIdentifier(s string) (Identifier, error) {
	if len(s) == 0 {
		return "", ErrEmptyIdentifier
	}
	if strings.IndexByte(s, 0) >= 0 {
		return "", ErrIdentifierInteriorNUL
	}
	if !utf8.ValidString(s) {
		return "", ErrIdentifierNotUTF8
	}
	return Identifier(s), nil
}

// IdentifierFromBytes validates b and returns it as an Identifier.
func IdentifierFromBytes(b []byte) (Identifier, error) {
	return NewIdentifier(string(b))
}

// MustIdentifier is NewIdentifier for known-good literals; it panics on
// invalid input.
func MustIdentifier(s string) Identifier {
	id, err := NewIdentifier(s)
	if err != nil {
		panic(err)
	}
	return id
}

// Len returns the length of the identifier in bytes.
func (id Identifier) Len() int {
	return len(id)
}

func (id Identifier) String() string {
	return string(id)
}
