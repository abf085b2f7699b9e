// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package sailar

import (
	"encoding/binary"
	"fmt"
)

// Opcode is the single-byte operation code of an instruction. Opcodes are
// enumerated ahead of their implementation so that future additions do not
// perturb the byte format of existing instructions.
type Opcode uint8

const (
	OpcodeNop Opcode = iota
	OpcodeRet
	opcodePhi // reserved, block inputs replace phi instructions
	OpcodeSelect
	OpcodeSwitch
	OpcodeBr
	OpcodeBrIf
	OpcodeCall
	OpcodeCallIndr
	OpcodeCallRet
	OpcodeAdd
	OpcodeSub
	OpcodeMul
	OpcodeDiv
	OpcodeAnd
	OpcodeOr
	OpcodeNot
	OpcodeXor
	OpcodeRem
	OpcodeMod
	OpcodeDivRem
	OpcodeShL
	OpcodeShR
	OpcodeRotL
	OpcodeRotR
	OpcodeConstI
	OpcodeConstF
	OpcodeCmp
	OpcodePopCnt
	OpcodeClz
	OpcodeCtz
	OpcodeReverse
	OpcodeFunction
	OpcodeConvI
	OpcodeConvF
	OpcodeField
	OpcodeGlobal
	OpcodeMemSt
	OpcodeMemLd
	OpcodeMemCpy
)

const (
	OpcodeAlloca Opcode = 0xFD
	OpcodeBreak  Opcode = 0xFE

	// opcodeContinuation is not an instruction; it indicates that more
	// opcode bytes follow.
	opcodeContinuation Opcode = 0xFF
)

// InvalidOpcodeError is returned when an instruction buffer contains an
// opcode with no decoding.
type InvalidOpcodeError struct {
	Value uint8
}

func (e *InvalidOpcodeError) Error() string {
	return fmt.Sprintf("%#02X is not a valid opcode", e.Value)
}

// OverflowBehavior selects how integer arithmetic treats overflow.
type OverflowBehavior uint8

const (
	// OverflowIgnore silently wraps.
	OverflowIgnore OverflowBehavior = 0

	// OverflowFlag introduces an extra temporary register holding a
	// boolean overflow indicator.
	OverflowFlag OverflowBehavior = 1

	// OverflowSaturate clamps the result to the type's range.
	OverflowSaturate OverflowBehavior = 2
)

// InvalidOverflowBehaviorError is returned when an arithmetic instruction
// carries an unknown overflow behavior byte. Unknown bytes are refused
// rather than guessed at.
type InvalidOverflowBehaviorError struct {
	Value uint8
}

func (e *InvalidOverflowBehaviorError) Error() string {
	return fmt.Sprintf("%#02X is not a valid overflow behavior", e.Value)
}

func overflowBehaviorFromByte(value uint8) (OverflowBehavior, error) {
	switch b := OverflowBehavior(value); b {
	case OverflowIgnore, OverflowFlag, OverflowSaturate:
		return b, nil
	default:
		return 0, &InvalidOverflowBehaviorError{Value: value}
	}
}

// IntegerConstant is a typed integer constant. The raw bits are stored in
// a uint64 regardless of width; signed values are sign extended.
type IntegerConstant struct {
	typ  Type
	bits uint64
}

// Typed constant constructors.
func ConstU8(v uint8) IntegerConstant   { return IntegerConstant{TypeU8, uint64(v)} }
func ConstU16(v uint16) IntegerConstant { return IntegerConstant{TypeU16, uint64(v)} }
func ConstU32(v uint32) IntegerConstant { return IntegerConstant{TypeU32, uint64(v)} }
func ConstU64(v uint64) IntegerConstant { return IntegerConstant{TypeU64, v} }
func ConstS8(v int8) IntegerConstant    { return IntegerConstant{TypeS8, uint64(v)} }
func ConstS16(v int16) IntegerConstant  { return IntegerConstant{TypeS16, uint64(v)} }
func ConstS32(v int32) IntegerConstant  { return IntegerConstant{TypeS32, uint64(v)} }
func ConstS64(v int64) IntegerConstant  { return IntegerConstant{TypeS64, uint64(v)} }

// Type returns the constant's integer type.
func (c IntegerConstant) Type() Type {
	return c.typ
}

// Bits returns the constant's raw little-endian bits, sign extended for
// signed types.
func (c IntegerConstant) Bits() uint64 {
	return c.bits
}

// Int64 returns the constant's value as a signed integer.
func (c IntegerConstant) Int64() int64 {
	if c.typ.IsSigned() {
		switch c.typ.FixedWidth() {
		case 1:
			return int64(int8(c.bits))
		case 2:
			return int64(int16(c.bits))
		case 4:
			return int64(int32(c.bits))
		}
	}
	return int64(c.bits)
}

func (c IntegerConstant) String() string {
	if c.typ.IsSigned() {
		return fmt.Sprintf("%d.%s", c.Int64(), c.typ)
	}
	return fmt.Sprintf("%d.%s", c.bits, c.typ)
}

// appendBytes encodes the constant's value at its type's width in
// little-endian order.
func (c IntegerConstant) appendBytes(dst []byte) []byte {
	switch c.typ.FixedWidth() {
	case 1:
		return append(dst, uint8(c.bits))
	case 2:
		return binary.LittleEndian.AppendUint16(dst, uint16(c.bits))
	case 4:
		return binary.LittleEndian.AppendUint32(dst, uint32(c.bits))
	default:
		return binary.LittleEndian.AppendUint64(dst, c.bits)
	}
}

// Value is an instruction operand: either the contents of a register,
// addressed by flat index, or an inline integer constant.
type Value struct {
	isConstant bool
	register   RegisterIndex
	constant   IntegerConstant
}

// RegisterValue is an operand reading the register at the given flat
// index.
func RegisterValue(index RegisterIndex) Value {
	return Value{register: index}
}

// ConstantValue is an inline integer constant operand.
func ConstantValue(constant IntegerConstant) Value {
	return Value{isConstant: true, constant: constant}
}

// IsConstant reports whether the operand is an inline constant.
func (v Value) IsConstant() bool {
	return v.isConstant
}

// Register returns the operand's register index. Only meaningful when the
// operand is not a constant.
func (v Value) Register() RegisterIndex {
	return v.register
}

// Constant returns the operand's constant. Only meaningful when the
// operand is a constant.
func (v Value) Constant() IntegerConstant {
	return v.constant
}

func (v Value) String() string {
	if v.isConstant {
		return v.constant.String()
	}
	return fmt.Sprintf("%%%d", v.register)
}

// Instruction is a single operation in a code block. The concrete types in
// this package are the only implementations; switching over them is
// exhaustive for the supported opcode set.
type Instruction interface {
	Opcode() Opcode
}

// Nop does nothing.
type Nop struct{}

func (Nop) Opcode() Opcode { return OpcodeNop }

// Break is a breakpoint for attached debuggers.
type Break struct{}

func (Break) Opcode() Opcode { return OpcodeBreak }

// Ret transfers control back to the calling function with the given
// return values. It terminates its block.
type Ret struct {
	Values []Value
}

func (Ret) Opcode() Opcode { return OpcodeRet }

// ConstI stores an integer constant into a new temporary register.
type ConstI struct {
	Constant IntegerConstant
}

func (ConstI) Opcode() Opcode { return OpcodeConstI }

// Add computes X + Y into a new temporary register.
type Add struct {
	Behavior OverflowBehavior
	X, Y     Value
}

func (Add) Opcode() Opcode { return OpcodeAdd }

// Sub computes X - Y into a new temporary register.
type Sub struct {
	Behavior OverflowBehavior
	X, Y     Value
}

func (Sub) Opcode() Opcode { return OpcodeSub }

// Mul computes X * Y into a new temporary register.
type Mul struct {
	Behavior OverflowBehavior
	X, Y     Value
}

func (Mul) Opcode() Opcode { return OpcodeMul }

// Call invokes the instantiation at Callee with the given arguments,
// defining one temporary register per callee result.
type Call struct {
	Callee    InstantiationIndex
	Arguments []Value
}

func (Call) Opcode() Opcode { return OpcodeCall }

// IsTerminator reports whether instr ends a code block.
func IsTerminator(instr Instruction) bool {
	switch instr.Opcode() {
	case OpcodeRet, OpcodeBr, OpcodeBrIf, OpcodeSwitch:
		return true
	default:
		return false
	}
}
