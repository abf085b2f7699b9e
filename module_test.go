// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package sailar

import (
	"errors"
	"fmt"
	"testing"
)

func exitBlock(t *testing.T, code int32) *Block {
	t.Helper()
	builder := NewBlockBuilder([]Type{TypeS32}, nil)
	block, err := builder.EmitRet(ConstS32(code))
	if err != nil {
		t.Fatalf("EmitRet failed, reason: %v", err)
	}
	return block
}

func TestDuplicateSymbol(t *testing.T) {
	module := NewModule(MustIdentifier("dup"), []uint32{1, 0})
	signature := NewSignature([]Type{TypeS32}, nil)

	first, err := module.AddFunction(MustIdentifier("main"), signature,
		DefinedBody(exitBlock(t, 0)), VisibilityExport)
	if err != nil {
		t.Fatalf("AddFunction failed, reason: %v", err)
	}

	_, err = module.AddFunction(MustIdentifier("main"), signature,
		DefinedBody(exitBlock(t, 1)), VisibilityExport)
	var duplicate *DuplicateSymbolError
	if !errors.As(err, &duplicate) {
		t.Fatalf("AddFunction got %v, want DuplicateSymbolError", err)
	}
	if duplicate.Symbol != "main" {
		t.Errorf("duplicate symbol got %q, want %q", duplicate.Symbol, "main")
	}

	// The first entry stays intact.
	symbol := module.Symbols().Get(MustIdentifier("main"))
	if symbol == nil || symbol.Definition() != first.Template().Index {
		t.Errorf("symbol table should still point at the first definition")
	}
	if len(module.Definitions()) != 1 {
		t.Errorf("definition count got %d, want 1", len(module.Definitions()))
	}
}

func TestSignatureInterning(t *testing.T) {
	module := NewModule(MustIdentifier("interning"), []uint32{1, 0})

	for i := 0; i < 3; i++ {
		name := MustIdentifier(fmt.Sprintf("f%d", i))
		_, err := module.AddFunction(name, NewSignature([]Type{TypeS32}, []Type{TypeS32}),
			ForeignFunctionBody(MustIdentifier("librt"), name), VisibilityPrivate)
		if err != nil {
			t.Fatalf("AddFunction failed, reason: %v", err)
		}
	}

	if got := len(module.FunctionSignatures()); got != 1 {
		t.Errorf("function signature count got %d, want 1", got)
	}
	if got := len(module.TypeSignatures()); got != 1 {
		t.Errorf("type signature count got %d, want 1", got)
	}
	// All three definitions reference the same interned slot.
	for _, definition := range module.Definitions() {
		if definition.Signature != 0 {
			t.Errorf("signature index got %d, want 0", definition.Signature)
		}
	}
}

func TestHiddenDefinitionsNotIndexed(t *testing.T) {
	module := NewModule(MustIdentifier("hidden"), []uint32{1, 0})
	signature := NewSignature(nil, nil)

	_, err := module.AddFunction("", signature,
		ForeignFunctionBody(MustIdentifier("librt"), MustIdentifier("setup")), VisibilityHidden)
	if err != nil {
		t.Fatalf("AddFunction failed, reason: %v", err)
	}
	if module.Symbols().Len() != 0 {
		t.Errorf("hidden definitions should not be indexed, got %d symbols", module.Symbols().Len())
	}

	_, err = module.AddFunction("", signature,
		ForeignFunctionBody(MustIdentifier("librt"), MustIdentifier("teardown")), VisibilityPrivate)
	if !errors.Is(err, ErrHiddenSymbol) {
		t.Errorf("AddFunction got %v, want ErrHiddenSymbol", err)
	}
}

func TestLengthSizeGrowth(t *testing.T) {
	module := NewModule(MustIdentifier("wide"), []uint32{1, 0})
	signature := NewSignature(nil, nil)

	// Push the identifiers table past the one byte index range.
	for i := 0; i < 300; i++ {
		_, err := module.AddFunction("", signature,
			ForeignFunctionBody(MustIdentifier(fmt.Sprintf("lib%d", i)), MustIdentifier("f")),
			VisibilityHidden)
		if err != nil {
			t.Fatalf("AddFunction failed, reason: %v", err)
		}
	}

	if module.LengthSize() != LengthSizeTwo {
		t.Fatalf("length size got %d, want %d", module.LengthSize(), LengthSizeTwo)
	}

	contents, err := module.RawContents(nil)
	if err != nil {
		t.Fatalf("RawContents failed, reason: %v", err)
	}
	parsed, err := FromBytes(contents, nil)
	if err != nil {
		t.Fatalf("FromBytes failed, reason: %v", err)
	}
	if parsed.LengthSize() != LengthSizeTwo {
		t.Errorf("parsed length size got %d, want %d", parsed.LengthSize(), LengthSizeTwo)
	}
	if got := len(parsed.Identifiers()); got != 300 {
		t.Errorf("parsed identifier count got %d, want 300", got)
	}
	if got := len(parsed.Definitions()); got != 300 {
		t.Errorf("parsed definition count got %d, want 300", got)
	}
}

func TestAnonymousModuleRoundTrip(t *testing.T) {
	module := NewAnonymousModule()
	if !module.IsAnonymous() {
		t.Fatalf("module should be anonymous")
	}

	contents, err := module.RawContents(nil)
	if err != nil {
		t.Fatalf("RawContents failed, reason: %v", err)
	}
	parsed, err := FromBytes(contents, nil)
	if err != nil {
		t.Fatalf("FromBytes failed, reason: %v", err)
	}
	if !parsed.IsAnonymous() {
		t.Errorf("parsed module should be anonymous")
	}
}

func TestRawContentsMemoized(t *testing.T) {
	module, err := ExitWith(MustIdentifier("true"), 0)
	if err != nil {
		t.Fatalf("ExitWith failed, reason: %v", err)
	}

	first, err := module.RawContents(nil)
	if err != nil {
		t.Fatalf("RawContents failed, reason: %v", err)
	}
	second, err := module.RawContents(nil)
	if err != nil {
		t.Fatalf("RawContents failed, reason: %v", err)
	}
	if &first[0] != &second[0] {
		t.Errorf("RawContents should memoize the serialized form")
	}
}
