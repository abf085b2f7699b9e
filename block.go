// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package sailar

import (
	"errors"
	"fmt"
)

// Validation errors raised while emitting instructions. A failed emission
// appends nothing to the block being built, so the builder stays usable and
// the block can still be completed.
var (
	// ErrEmptyBlock is returned when a block is finalized with no
	// instructions.
	ErrEmptyBlock = errors.New("code blocks must not be empty")
)

// InvalidResultTypeError reports a return value whose type does not match
// the block's result type at the same position.
type InvalidResultTypeError struct {
	Index    int
	Expected Type
	Actual   Type
}

func (e *InvalidResultTypeError) Error() string {
	return fmt.Sprintf("expected result at index %d to be of type %s but got %s",
		e.Index, e.Expected, e.Actual)
}

// ExpectedTypeError reports an operand of the wrong type. Expected is nil
// when any integer type would have been accepted.
type ExpectedTypeError struct {
	Actual   Type
	Expected *Type
}

func (e *ExpectedTypeError) Error() string {
	if e.Expected == nil {
		return fmt.Sprintf("expected integer type but got %s", e.Actual)
	}
	return fmt.Sprintf("expected %s but got %s", *e.Expected, e.Actual)
}

// ResultCountMismatchError reports a return with the wrong arity.
type ResultCountMismatchError struct {
	Expected int
	Actual   int
}

func (e *ResultCountMismatchError) Error() string {
	return fmt.Sprintf("expected %d results but got %d", e.Expected, e.Actual)
}

// ArgumentCountMismatchError reports a call with the wrong arity.
type ArgumentCountMismatchError struct {
	Expected int
	Actual   int
}

func (e *ArgumentCountMismatchError) Error() string {
	return fmt.Sprintf("expected %d arguments but got %d", e.Expected, e.Actual)
}

// ArgumentTypeMismatchError reports a call argument whose type does not
// match the callee's parameter type at the same position.
type ArgumentTypeMismatchError struct {
	Index    int
	Expected Type
	Actual   Type
}

func (e *ArgumentTypeMismatchError) Error() string {
	return fmt.Sprintf("expected argument at index %d to be of type %s, but got %s",
		e.Index, e.Expected, e.Actual)
}

// Input is an input register: a value passed into a block. Handles are
// stable for the lifetime of the builder.
type Input struct {
	index int
	typ   Type
}

// Type returns the register's declared type.
func (r *Input) Type() Type { return r.typ }

// Temporary is a temporary register holding the result of executing an
// instruction. Handles returned by the builder remain valid across
// subsequent emissions.
type Temporary struct {
	index int
	typ   Type
}

// Type returns the register's declared type.
func (r *Temporary) Type() Type { return r.typ }

// Operand is a value consumed by an emitted instruction: an input
// register, a temporary register, or an integer constant.
type Operand interface {
	operandType() Type
	wireValue(inputCount int) Value
}

func (r *Input) operandType() Type     { return r.typ }
func (r *Temporary) operandType() Type { return r.typ }

// Registers occupy a single flat index space on the wire: inputs first,
// then temporaries.
func (r *Input) wireValue(int) Value {
	return RegisterValue(RegisterIndex(r.index))
}

func (r *Temporary) wireValue(inputCount int) Value {
	return RegisterValue(RegisterIndex(inputCount + r.index))
}

func (c IntegerConstant) operandType() Type { return c.typ }

func (c IntegerConstant) wireValue(int) Value { return ConstantValue(c) }

// FlaggedResult is the result of an arithmetic emission with flagged
// overflow: the computed value plus a u8 register set when the operation
// overflowed.
type FlaggedResult struct {
	Result *Temporary
	Flag   *Temporary
}

// BlockBuilder emits a type-checked instruction stream for a block with a
// fixed (result types, input types) contract. Emissions that fail leave
// the instruction stream untouched.
type BlockBuilder struct {
	integerSize LengthSize
	resultTypes []Type
	inputs      []*Input
	temporaries []*Temporary
	instrs      []Instruction
	block       *Block
}

// NewBlockBuilder creates a builder for a block producing resultTypes from
// inputTypes.
func NewBlockBuilder(resultTypes, inputTypes []Type) *BlockBuilder {
	b := &BlockBuilder{
		integerSize: LengthSizeOne,
		resultTypes: append([]Type(nil), resultTypes...),
	}
	b.inputs = make([]*Input, len(inputTypes))
	for i, t := range inputTypes {
		b.inputs[i] = &Input{index: i, typ: t}
	}
	b.integerSize.ResizeToFit(len(b.inputs))
	b.integerSize.ResizeToFit(len(b.resultTypes))
	return b
}

// ResultTypes returns the block's declared result types.
func (b *BlockBuilder) ResultTypes() []Type {
	return b.resultTypes
}

// InputRegisters returns the block's input registers in order.
func (b *BlockBuilder) InputRegisters() []*Input {
	return b.inputs
}

func (b *BlockBuilder) defineTemporary(typ Type) *Temporary {
	temporary := &Temporary{index: len(b.temporaries), typ: typ}
	b.temporaries = append(b.temporaries, temporary)
	return temporary
}

func (b *BlockBuilder) operandValue(operand Operand) Value {
	return operand.wireValue(len(b.inputs))
}

// EmitNop emits an instruction that does nothing.
func (b *BlockBuilder) EmitNop() {
	b.instrs = append(b.instrs, Nop{})
}

// EmitBreak emits a debugger breakpoint.
func (b *BlockBuilder) EmitBreak() {
	b.instrs = append(b.instrs, Break{})
}

// EmitConstI emits an instruction storing constant into a new temporary
// register of the constant's type.
func (b *BlockBuilder) EmitConstI(constant IntegerConstant) *Temporary {
	b.instrs = append(b.instrs, ConstI{Constant: constant})
	return b.defineTemporary(constant.Type())
}

type arithmeticInstruction func(behavior OverflowBehavior, x, y Value) Instruction

func (b *BlockBuilder) integerArithmetic(behavior OverflowBehavior, x, y Operand, instr arithmeticInstruction) (*Temporary, error) {
	xType := x.operandType()
	if !xType.IsInteger() {
		return nil, &ExpectedTypeError{Actual: xType}
	}
	if yType := y.operandType(); yType != xType {
		return nil, &ExpectedTypeError{Actual: yType, Expected: &xType}
	}

	b.instrs = append(b.instrs, instr(behavior, b.operandValue(x), b.operandValue(y)))
	return b.defineTemporary(xType), nil
}

func (b *BlockBuilder) integerArithmeticFlagged(x, y Operand, instr arithmeticInstruction) (FlaggedResult, error) {
	result, err := b.integerArithmetic(OverflowFlag, x, y, instr)
	if err != nil {
		return FlaggedResult{}, err
	}
	return FlaggedResult{Result: result, Flag: b.defineTemporary(TypeU8)}, nil
}

func addInstruction(behavior OverflowBehavior, x, y Value) Instruction {
	return Add{Behavior: behavior, X: x, Y: y}
}

func subInstruction(behavior OverflowBehavior, x, y Value) Instruction {
	return Sub{Behavior: behavior, X: x, Y: y}
}

func mulInstruction(behavior OverflowBehavior, x, y Value) Instruction {
	return Mul{Behavior: behavior, X: x, Y: y}
}

// EmitAdd emits an addition of two integer operands of the same type,
// ignoring overflow. The sum occupies a new temporary register.
func (b *BlockBuilder) EmitAdd(x, y Operand) (*Temporary, error) {
	return b.integerArithmetic(OverflowIgnore, x, y, addInstruction)
}

// EmitAddFlagged is EmitAdd with an additional u8 overflow flag register.
func (b *BlockBuilder) EmitAddFlagged(x, y Operand) (FlaggedResult, error) {
	return b.integerArithmeticFlagged(x, y, addInstruction)
}

// EmitAddSaturating is EmitAdd saturating at the type's bounds instead of
// wrapping.
func (b *BlockBuilder) EmitAddSaturating(x, y Operand) (*Temporary, error) {
	return b.integerArithmetic(OverflowSaturate, x, y, addInstruction)
}

// EmitSub emits a subtraction of two integer operands of the same type,
// ignoring overflow.
func (b *BlockBuilder) EmitSub(x, y Operand) (*Temporary, error) {
	return b.integerArithmetic(OverflowIgnore, x, y, subInstruction)
}

// EmitSubFlagged is EmitSub with an additional u8 overflow flag register.
func (b *BlockBuilder) EmitSubFlagged(x, y Operand) (FlaggedResult, error) {
	return b.integerArithmeticFlagged(x, y, subInstruction)
}

// EmitSubSaturating is EmitSub saturating at the type's bounds.
func (b *BlockBuilder) EmitSubSaturating(x, y Operand) (*Temporary, error) {
	return b.integerArithmetic(OverflowSaturate, x, y, subInstruction)
}

// EmitMul emits a multiplication of two integer operands of the same
// type, ignoring overflow.
func (b *BlockBuilder) EmitMul(x, y Operand) (*Temporary, error) {
	return b.integerArithmetic(OverflowIgnore, x, y, mulInstruction)
}

// EmitMulFlagged is EmitMul with an additional u8 overflow flag register.
func (b *BlockBuilder) EmitMulFlagged(x, y Operand) (FlaggedResult, error) {
	return b.integerArithmeticFlagged(x, y, mulInstruction)
}

// EmitMulSaturating is EmitMul saturating at the type's bounds.
func (b *BlockBuilder) EmitMulSaturating(x, y Operand) (*Temporary, error) {
	return b.integerArithmetic(OverflowSaturate, x, y, mulInstruction)
}

// EmitCall emits a call to the given instantiation. Argument count and
// types must match the callee's parameters element-wise. One temporary
// register is defined per callee result, in result order.
func (b *BlockBuilder) EmitCall(callee *Instantiation, arguments ...Operand) ([]*Temporary, error) {
	signature := callee.Signature()
	parameterTypes := signature.ParameterTypes()
	if len(arguments) != len(parameterTypes) {
		return nil, &ArgumentCountMismatchError{Expected: len(parameterTypes), Actual: len(arguments)}
	}

	values := make([]Value, len(arguments))
	for i, argument := range arguments {
		if actual := argument.operandType(); actual != parameterTypes[i] {
			return nil, &ArgumentTypeMismatchError{Index: i, Expected: parameterTypes[i], Actual: actual}
		}
		values[i] = b.operandValue(argument)
	}

	b.integerSize.ResizeToFit(int(callee.Index()))
	b.instrs = append(b.instrs, Call{Callee: callee.Index(), Arguments: values})

	results := make([]*Temporary, 0, len(signature.ResultTypes()))
	for _, resultType := range signature.ResultTypes() {
		results = append(results, b.defineTemporary(resultType))
	}
	return results, nil
}

// EmitRet emits the terminating return instruction and finalizes the
// block. Value count and types must match the block's result types
// element-wise.
func (b *BlockBuilder) EmitRet(values ...Operand) (*Block, error) {
	if len(values) != len(b.resultTypes) {
		return nil, &ResultCountMismatchError{Expected: len(b.resultTypes), Actual: len(values)}
	}

	returned := make([]Value, len(values))
	for i, value := range values {
		if actual := value.operandType(); actual != b.resultTypes[i] {
			return nil, &InvalidResultTypeError{Index: i, Expected: b.resultTypes[i], Actual: actual}
		}
		returned[i] = b.operandValue(value)
	}

	b.integerSize.ResizeToFit(len(returned))
	b.instrs = append(b.instrs, Ret{Values: returned})
	return b.finish()
}

func (b *BlockBuilder) finish() (*Block, error) {
	if len(b.instrs) == 0 {
		return nil, ErrEmptyBlock
	}
	if b.block != nil {
		return b.block, nil
	}

	inputTypes := make([]Type, len(b.inputs))
	for i, input := range b.inputs {
		inputTypes[i] = input.typ
	}
	temporaryTypes := make([]Type, len(b.temporaries))
	for i, temporary := range b.temporaries {
		temporaryTypes[i] = temporary.typ
	}
	b.integerSize.ResizeToFit(len(temporaryTypes))
	b.integerSize.ResizeToFit(len(inputTypes) + len(temporaryTypes))

	b.block = &Block{
		integerSize:    b.integerSize,
		inputTypes:     inputTypes,
		resultTypes:    b.resultTypes,
		temporaryTypes: temporaryTypes,
		instructions:   append([]Instruction(nil), b.instrs...),
	}
	return b.block, nil
}

// Block is a finalized code block: a non-empty instruction sequence
// ending in a terminator, together with the register type lists.
type Block struct {
	integerSize    LengthSize
	inputTypes     []Type
	resultTypes    []Type
	temporaryTypes []Type
	instructions   []Instruction
}

// IntegerSize is the narrowest length size fitting every register index
// and count used by the block.
func (b *Block) IntegerSize() LengthSize { return b.integerSize }

// InputTypes returns the types of the block's input registers.
func (b *Block) InputTypes() []Type { return b.inputTypes }

// ResultTypes returns the types of the block's results.
func (b *Block) ResultTypes() []Type { return b.resultTypes }

// TemporaryTypes returns the types of the block's temporary registers.
func (b *Block) TemporaryTypes() []Type { return b.temporaryTypes }

// Instructions returns the block's instructions in order.
func (b *Block) Instructions() []Instruction { return b.instructions }
