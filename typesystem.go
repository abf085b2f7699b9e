// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package sailar

import "fmt"

// TypeCode is the tag byte identifying a type signature on the wire.
type TypeCode uint8

// Tag bytes for the primitive type signatures. Composite signatures
// (pointers, structs, arrays) have reserved tag space and are not yet
// assigned.
const (
	TypeCodeU8      TypeCode = 0x01
	TypeCodeU16     TypeCode = 0x02
	TypeCodeU32     TypeCode = 0x04
	TypeCodeU64     TypeCode = 0x08
	TypeCodeUNative TypeCode = 0x0A
	TypeCodeS8      TypeCode = 0x11
	TypeCodeS16     TypeCode = 0x12
	TypeCodeS32     TypeCode = 0x14
	TypeCodeS64     TypeCode = 0x18
	TypeCodeSNative TypeCode = 0x1A
	TypeCodeF32     TypeCode = 0xF4
	TypeCodeF64     TypeCode = 0xF8
)

// InvalidTypeCodeError is returned when a type signature tag byte does not
// correspond to a known type.
type InvalidTypeCodeError struct {
	Value uint8
}

func (e *InvalidTypeCodeError) Error() string {
	return fmt.Sprintf("%#02X is not a valid type signature tag", e.Value)
}

// Type is a value type signature. Equality is structural; each distinct
// type occupies exactly one slot in a module's type signature table.
type Type struct {
	code TypeCode
}

// The primitive type signatures.
var (
	TypeU8      = Type{TypeCodeU8}
	TypeU16     = Type{TypeCodeU16}
	TypeU32     = Type{TypeCodeU32}
	TypeU64     = Type{TypeCodeU64}
	TypeUNative = Type{TypeCodeUNative}
	TypeS8      = Type{TypeCodeS8}
	TypeS16     = Type{TypeCodeS16}
	TypeS32     = Type{TypeCodeS32}
	TypeS64     = Type{TypeCodeS64}
	TypeSNative = Type{TypeCodeSNative}
	TypeF32     = Type{TypeCodeF32}
	TypeF64     = Type{TypeCodeF64}
)

// TypeFromCode maps a tag byte back to its type signature.
func TypeFromCode(code TypeCode) (Type, error) {
	switch code {
	case TypeCodeU8, TypeCodeU16, TypeCodeU32, TypeCodeU64, TypeCodeUNative,
		TypeCodeS8, TypeCodeS16, TypeCodeS32, TypeCodeS64, TypeCodeSNative,
		TypeCodeF32, TypeCodeF64:
		return Type{code}, nil
	default:
		return Type{}, &InvalidTypeCodeError{Value: uint8(code)}
	}
}

// Code returns the wire tag of the type.
func (t Type) Code() TypeCode {
	return t.code
}

// IsInteger reports whether t is a fixed or native width integer type.
func (t Type) IsInteger() bool {
	switch t.code {
	case TypeCodeU8, TypeCodeU16, TypeCodeU32, TypeCodeU64, TypeCodeUNative,
		TypeCodeS8, TypeCodeS16, TypeCodeS32, TypeCodeS64, TypeCodeSNative:
		return true
	default:
		return false
	}
}

// IsFloat reports whether t is a floating point type.
func (t Type) IsFloat() bool {
	return t.code == TypeCodeF32 || t.code == TypeCodeF64
}

// FixedWidth returns the size in bytes of a fixed width type, or 0 for
// native width types.
func (t Type) FixedWidth() int {
	switch t.code {
	case TypeCodeU8, TypeCodeS8:
		return 1
	case TypeCodeU16, TypeCodeS16:
		return 2
	case TypeCodeU32, TypeCodeS32, TypeCodeF32:
		return 4
	case TypeCodeU64, TypeCodeS64, TypeCodeF64:
		return 8
	default:
		return 0
	}
}

// IsSigned reports whether t is a signed integer type.
func (t Type) IsSigned() bool {
	switch t.code {
	case TypeCodeS8, TypeCodeS16, TypeCodeS32, TypeCodeS64, TypeCodeSNative:
		return true
	default:
		return false
	}
}

func (t Type) String() string {
	switch t.code {
	case TypeCodeU8:
		return "u8"
	case TypeCodeU16:
		return "u16"
	case TypeCodeU32:
		return "u32"
	case TypeCodeU64:
		return "u64"
	case TypeCodeUNative:
		return "unative"
	case TypeCodeS8:
		return "s8"
	case TypeCodeS16:
		return "s16"
	case TypeCodeS32:
		return "s32"
	case TypeCodeS64:
		return "s64"
	case TypeCodeSNative:
		return "snative"
	case TypeCodeF32:
		return "f32"
	case TypeCodeF64:
		return "f64"
	default:
		return fmt.Sprintf("type(%#02X)", uint8(t.code))
	}
}
