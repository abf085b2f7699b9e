// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package sailar

import (
	"errors"
	"testing"
)

func TestEmitRetTypeMismatch(t *testing.T) {
	builder := NewBlockBuilder([]Type{TypeS32}, nil)

	_, err := builder.EmitRet(ConstU8(5))
	var mismatch *InvalidResultTypeError
	if !errors.As(err, &mismatch) {
		t.Fatalf("EmitRet got %v, want InvalidResultTypeError", err)
	}
	if mismatch.Index != 0 || mismatch.Expected != TypeS32 || mismatch.Actual != TypeU8 {
		t.Errorf("EmitRet got {%d %s %s}, want {0 s32 u8}",
			mismatch.Index, mismatch.Expected, mismatch.Actual)
	}
}

func TestEmitRetCountMismatch(t *testing.T) {
	builder := NewBlockBuilder([]Type{TypeS32, TypeS32}, nil)

	_, err := builder.EmitRet(ConstS32(1))
	var mismatch *ResultCountMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("EmitRet got %v, want ResultCountMismatchError", err)
	}
	if mismatch.Expected != 2 || mismatch.Actual != 1 {
		t.Errorf("EmitRet got {%d %d}, want {2 1}", mismatch.Expected, mismatch.Actual)
	}
}

func TestEmitAddTypeRules(t *testing.T) {

	tests := []struct {
		name string
		x, y Operand
		ok   bool
	}{
		{"same type", ConstS32(1), ConstS32(2), true},
		{"mismatched integers", ConstS32(1), ConstU8(2), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := NewBlockBuilder([]Type{TypeS32}, nil)
			result, err := builder.EmitAdd(tt.x, tt.y)
			if tt.ok {
				if err != nil {
					t.Fatalf("EmitAdd failed, reason: %v", err)
				}
				if result.Type() != tt.x.operandType() {
					t.Errorf("EmitAdd result type got %s, want %s", result.Type(), tt.x.operandType())
				}
				return
			}
			var mismatch *ExpectedTypeError
			if !errors.As(err, &mismatch) {
				t.Fatalf("EmitAdd got %v, want ExpectedTypeError", err)
			}
			if mismatch.Expected == nil || *mismatch.Expected != tt.x.operandType() {
				t.Errorf("EmitAdd expected type got %v, want %s", mismatch.Expected, tt.x.operandType())
			}
		})
	}
}

func TestEmitAddExpectsInteger(t *testing.T) {
	builder := NewBlockBuilder(nil, []Type{TypeF32, TypeF32})
	inputs := builder.InputRegisters()

	_, err := builder.EmitAdd(inputs[0], inputs[1])
	var mismatch *ExpectedTypeError
	if !errors.As(err, &mismatch) {
		t.Fatalf("EmitAdd got %v, want ExpectedTypeError", err)
	}
	if mismatch.Expected != nil {
		t.Errorf("EmitAdd should expect any integer type, got %s", *mismatch.Expected)
	}
	if mismatch.Actual != TypeF32 {
		t.Errorf("EmitAdd actual type got %s, want f32", mismatch.Actual)
	}
}

func TestEmitAddFlagged(t *testing.T) {
	builder := NewBlockBuilder([]Type{TypeU16}, nil)

	x := builder.EmitConstI(ConstU16(65535))
	y := builder.EmitConstI(ConstU16(1))
	flagged, err := builder.EmitAddFlagged(x, y)
	if err != nil {
		t.Fatalf("EmitAddFlagged failed, reason: %v", err)
	}
	if flagged.Result.Type() != TypeU16 {
		t.Errorf("result register type got %s, want u16", flagged.Result.Type())
	}
	if flagged.Flag.Type() != TypeU8 {
		t.Errorf("flag register type got %s, want u8", flagged.Flag.Type())
	}

	block, err := builder.EmitRet(flagged.Result)
	if err != nil {
		t.Fatalf("EmitRet failed, reason: %v", err)
	}
	// Two constants plus the result and flag registers.
	if len(block.TemporaryTypes()) != 4 {
		t.Errorf("temporary count got %d, want 4", len(block.TemporaryTypes()))
	}
}

func TestRegisterIndexFlattening(t *testing.T) {
	builder := NewBlockBuilder([]Type{TypeS32}, []Type{TypeS32, TypeS32})
	inputs := builder.InputRegisters()

	sum, err := builder.EmitAdd(inputs[0], inputs[1])
	if err != nil {
		t.Fatalf("EmitAdd failed, reason: %v", err)
	}
	doubled, err := builder.EmitAdd(sum, inputs[1])
	if err != nil {
		t.Fatalf("EmitAdd failed, reason: %v", err)
	}

	block, err := builder.EmitRet(doubled)
	if err != nil {
		t.Fatalf("EmitRet failed, reason: %v", err)
	}

	instrs := block.Instructions()
	if len(instrs) != 3 {
		t.Fatalf("instruction count got %d, want 3", len(instrs))
	}

	second, ok := instrs[1].(Add)
	if !ok {
		t.Fatalf("second instruction got %T, want Add", instrs[1])
	}
	// The first temporary sits after the two inputs in the flat index
	// space.
	if second.X.Register() != 2 {
		t.Errorf("temporary register index got %d, want 2", second.X.Register())
	}
	if second.Y.Register() != 1 {
		t.Errorf("input register index got %d, want 1", second.Y.Register())
	}

	ret, ok := instrs[2].(Ret)
	if !ok {
		t.Fatalf("final instruction got %T, want Ret", instrs[2])
	}
	if !IsTerminator(ret) {
		t.Errorf("Ret should be a terminator")
	}
	if ret.Values[0].Register() != 3 {
		t.Errorf("second temporary index got %d, want 3", ret.Values[0].Register())
	}
}

func TestEmitCallArityMismatch(t *testing.T) {
	module := NewModule(MustIdentifier("calls"), []uint32{1, 0})
	signature := NewSignature([]Type{TypeS32}, []Type{TypeS32, TypeS32})

	addBuilder := NewBlockBuilder([]Type{TypeS32}, []Type{TypeS32, TypeS32})
	inputs := addBuilder.InputRegisters()
	sum, err := addBuilder.EmitAdd(inputs[0], inputs[1])
	if err != nil {
		t.Fatalf("EmitAdd failed, reason: %v", err)
	}
	body, err := addBuilder.EmitRet(sum)
	if err != nil {
		t.Fatalf("EmitRet failed, reason: %v", err)
	}
	definition, err := module.AddFunction(MustIdentifier("add2"), signature, DefinedBody(body), VisibilityExport)
	if err != nil {
		t.Fatalf("AddFunction failed, reason: %v", err)
	}
	callee := module.AddInstantiation(definition)

	builder := NewBlockBuilder([]Type{TypeS32}, nil)
	_, err = builder.EmitCall(callee, ConstS32(1))
	var mismatch *ArgumentCountMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("EmitCall got %v, want ArgumentCountMismatchError", err)
	}
	if mismatch.Expected != 2 || mismatch.Actual != 1 {
		t.Errorf("EmitCall got {%d %d}, want {2 1}", mismatch.Expected, mismatch.Actual)
	}
}

func TestEmitCallArgumentTypeMismatch(t *testing.T) {
	module := NewModule(MustIdentifier("calls"), []uint32{1, 0})
	signature := NewSignature(nil, []Type{TypeS32})

	foreign, err := module.AddFunction(MustIdentifier("consume"), signature,
		ForeignFunctionBody(MustIdentifier("libc"), MustIdentifier("consume")), VisibilityPrivate)
	if err != nil {
		t.Fatalf("AddFunction failed, reason: %v", err)
	}
	callee := module.AddInstantiation(foreign)

	builder := NewBlockBuilder(nil, nil)
	_, err = builder.EmitCall(callee, ConstU8(1))
	var mismatch *ArgumentTypeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("EmitCall got %v, want ArgumentTypeMismatchError", err)
	}
	if mismatch.Index != 0 || mismatch.Expected != TypeS32 || mismatch.Actual != TypeU8 {
		t.Errorf("EmitCall got {%d %s %s}, want {0 s32 u8}",
			mismatch.Index, mismatch.Expected, mismatch.Actual)
	}
}

func TestEmitCallResults(t *testing.T) {
	module := NewModule(MustIdentifier("calls"), []uint32{1, 0})
	signature := NewSignature([]Type{TypeS32, TypeU8}, nil)

	foreign, err := module.AddFunction(MustIdentifier("pair"), signature,
		ForeignFunctionBody(MustIdentifier("librt"), MustIdentifier("pair")), VisibilityPrivate)
	if err != nil {
		t.Fatalf("AddFunction failed, reason: %v", err)
	}
	callee := module.AddInstantiation(foreign)

	builder := NewBlockBuilder([]Type{TypeS32}, nil)
	results, err := builder.EmitCall(callee)
	if err != nil {
		t.Fatalf("EmitCall failed, reason: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("EmitCall result count got %d, want 2", len(results))
	}
	if results[0].Type() != TypeS32 || results[1].Type() != TypeU8 {
		t.Errorf("EmitCall result types got %s, %s, want s32, u8",
			results[0].Type(), results[1].Type())
	}
}

func TestBuilderUsableAfterError(t *testing.T) {
	builder := NewBlockBuilder([]Type{TypeS32}, nil)

	if _, err := builder.EmitAdd(ConstS32(1), ConstU8(2)); err == nil {
		t.Fatalf("EmitAdd should have failed")
	}
	// The failed emission leaves no trace; the block can still be
	// completed.
	block, err := builder.EmitRet(ConstS32(0))
	if err != nil {
		t.Fatalf("EmitRet failed, reason: %v", err)
	}
	if len(block.Instructions()) != 1 {
		t.Errorf("instruction count got %d, want 1", len(block.Instructions()))
	}
}
