// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package loader

import (
	"errors"
	"testing"

	sailar "github.com/sailar-lang/sailar"
)

// recordsSource supplies a fixed record stream.
type recordsSource struct {
	records []sailar.Record
}

func (s recordsSource) Records() ([]sailar.Record, error) {
	return s.records, nil
}

// countingResolver hands out module bytes and counts invocations.
type countingResolver struct {
	modules map[string][]byte
	calls   int
}

func (r *countingResolver) Resolve(identifier sailar.ModuleIdentifier) (Source, error) {
	r.calls++
	data, ok := r.modules[identifier.Key()]
	if !ok {
		return nil, nil
	}
	return BytesSource(data, nil), nil
}

func exitWithBytes(t *testing.T, name string, code int32) []byte {
	t.Helper()
	module, err := sailar.ExitWith(sailar.MustIdentifier(name), code)
	if err != nil {
		t.Fatalf("ExitWith failed, reason: %v", err)
	}
	contents, err := module.RawContents(nil)
	if err != nil {
		t.Fatalf("RawContents failed, reason: %v", err)
	}
	return contents
}

func TestLoadExitWithZero(t *testing.T) {
	loader := New(nil)

	module, err := loader.ForceLoad(BytesSource(exitWithBytes(t, "true", 0), nil))
	if err != nil {
		t.Fatalf("ForceLoad failed, reason: %v", err)
	}
	if module.Identifier() == nil || module.Identifier().Name != "true" {
		t.Fatalf("module identifier got %v, want true", module.Identifier())
	}

	entry, err := module.EntryPoint()
	if err != nil {
		t.Fatalf("EntryPoint failed, reason: %v", err)
	}
	if entry == nil {
		t.Fatalf("module should designate an entry point")
	}

	function, err := entry.Template()
	if err != nil {
		t.Fatalf("Template failed, reason: %v", err)
	}
	if function.Symbol() != "main" || !function.IsExport() {
		t.Errorf("entry function got %q/%s, want exported main",
			function.Symbol(), function.Visibility())
	}

	body, err := function.Body()
	if err != nil {
		t.Fatalf("Body failed, reason: %v", err)
	}
	if body.Block == nil {
		t.Fatalf("entry function body should be a code block")
	}

	results, err := body.Block.ResultTypes()
	if err != nil {
		t.Fatalf("ResultTypes failed, reason: %v", err)
	}
	if len(results) != 1 || results[0] != sailar.TypeS32 {
		t.Fatalf("block result types got %v, want [s32]", results)
	}

	instrs := body.Block.Instructions()
	ret, ok := instrs[len(instrs)-1].(sailar.Ret)
	if !ok {
		t.Fatalf("final instruction got %T, want Ret", instrs[len(instrs)-1])
	}
	if len(ret.Values) != 1 || ret.Values[0].Constant().Type() != sailar.TypeS32 {
		t.Errorf("Ret should return a single s32 value")
	}
}

func duplicateMainRecords() []sailar.Record {
	return []sailar.Record{
		sailar.ModuleIdentifierField{Identifier: sailar.ModuleIdentifier{
			Name:    sailar.MustIdentifier("dup"),
			Version: []uint32{1, 0},
		}},
		sailar.TypeSignatureRecord{Type: sailar.TypeS32},
		sailar.FunctionSignatureRecord{ResultTypes: []sailar.TypeIndex{0}},
		sailar.CodeBlockRecord{
			RegisterTypes: []sailar.TypeIndex{0},
			ResultCount:   1,
			Instructions: []sailar.Instruction{
				sailar.Ret{Values: []sailar.Value{sailar.ConstantValue(sailar.ConstS32(0))}},
			},
		},
		sailar.FunctionDefinitionRecord{
			Visibility: sailar.VisibilityExport,
			Symbol:     sailar.MustIdentifier("main"),
		},
		sailar.FunctionDefinitionRecord{
			Visibility: sailar.VisibilityExport,
			Symbol:     sailar.MustIdentifier("main"),
		},
	}
}

func TestDuplicateSymbolReported(t *testing.T) {
	loader := New(nil)

	module, err := loader.ForceLoad(recordsSource{records: duplicateMainRecords()})
	var duplicate *sailar.DuplicateSymbolError
	if !errors.As(err, &duplicate) {
		t.Fatalf("ForceLoad got %v, want DuplicateSymbolError", err)
	}
	if duplicate.Symbol != "main" {
		t.Errorf("duplicate symbol got %q, want main", duplicate.Symbol)
	}

	// The first definition remains accessible.
	if module == nil {
		t.Fatalf("the module should still be returned")
	}
	function := module.Symbols().Function(sailar.MustIdentifier("main"))
	if function == nil {
		t.Fatalf("the first main should stay indexed")
	}
	if len(module.Functions()) != 2 {
		t.Errorf("definition count got %d, want 2", len(module.Functions()))
	}
	if function != module.Functions()[0] {
		t.Errorf("the indexed main should be the first definition")
	}
}

func TestCrossModuleResolution(t *testing.T) {
	helperIdentifier := sailar.ModuleIdentifier{
		Name:    sailar.MustIdentifier("B"),
		Version: []uint32{1, 0},
	}

	// Module B exports Helper.
	b := sailar.NewModule(sailar.MustIdentifier("B"), []uint32{1, 0})
	signature := sailar.NewSignature([]sailar.Type{sailar.TypeS32}, nil)
	builder := sailar.NewBlockBuilder([]sailar.Type{sailar.TypeS32}, nil)
	block, err := builder.EmitRet(sailar.ConstS32(42))
	if err != nil {
		t.Fatalf("EmitRet failed, reason: %v", err)
	}
	_, err = b.AddFunction(sailar.MustIdentifier("Helper"), signature,
		sailar.DefinedBody(block), sailar.VisibilityExport)
	if err != nil {
		t.Fatalf("AddFunction failed, reason: %v", err)
	}
	bBytes, err := b.RawContents(nil)
	if err != nil {
		t.Fatalf("RawContents failed, reason: %v", err)
	}

	// Module A imports Helper and instantiates it.
	a := sailar.NewModule(sailar.MustIdentifier("A"), []uint32{1, 0})
	imported, err := a.AddFunctionImport(helperIdentifier, sailar.MustIdentifier("Helper"), signature)
	if err != nil {
		t.Fatalf("AddFunctionImport failed, reason: %v", err)
	}
	a.AddInstantiation(imported)
	aBytes, err := a.RawContents(nil)
	if err != nil {
		t.Fatalf("RawContents failed, reason: %v", err)
	}

	resolver := &countingResolver{modules: map[string][]byte{
		helperIdentifier.Key(): bBytes,
	}}
	loader := New(&Options{Resolver: resolver})

	moduleA, err := loader.ForceLoad(BytesSource(aBytes, nil))
	if err != nil {
		t.Fatalf("ForceLoad failed, reason: %v", err)
	}

	// B is only resolved once the instantiation is dereferenced.
	if resolver.calls != 0 {
		t.Fatalf("resolver invoked %d times before first access, want 0", resolver.calls)
	}

	instantiation, err := moduleA.Instantiation(0)
	if err != nil {
		t.Fatalf("Instantiation failed, reason: %v", err)
	}
	helper, err := instantiation.Template()
	if err != nil {
		t.Fatalf("Template failed, reason: %v", err)
	}
	if helper.Symbol() != "Helper" {
		t.Errorf("resolved symbol got %q, want Helper", helper.Symbol())
	}
	if helper.Module() == moduleA {
		t.Errorf("Helper should live in module B")
	}
	if resolver.calls != 1 {
		t.Fatalf("resolver invoked %d times, want 1", resolver.calls)
	}

	// Second access returns the same handle without re-invoking the
	// resolver.
	again, err := instantiation.Template()
	if err != nil {
		t.Fatalf("Template failed, reason: %v", err)
	}
	if again != helper {
		t.Errorf("repeated access should return the same handle")
	}
	if resolver.calls != 1 {
		t.Errorf("resolver invoked %d times after second access, want 1", resolver.calls)
	}

	if loader.LookupModule(helperIdentifier) == nil {
		t.Errorf("module B should be cached in the loader")
	}
	if functions := loader.LookupFunction(sailar.MustIdentifier("Helper")); len(functions) != 1 {
		t.Errorf("LookupFunction got %d results, want 1", len(functions))
	}
}

func TestModuleNotFound(t *testing.T) {
	unknown := sailar.ModuleIdentifier{Name: sailar.MustIdentifier("missing"), Version: []uint32{1}}
	resolver := &countingResolver{modules: map[string][]byte{}}
	loader := New(&Options{Resolver: resolver})

	_, err := loader.Load(unknown)
	var notFound *ModuleNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Load got %v, want ModuleNotFoundError", err)
	}

	// The failure is cached; the resolver runs once.
	_, again := loader.Load(unknown)
	if !errors.Is(again, err) {
		t.Errorf("repeated Load should return the cached error")
	}
	if resolver.calls != 1 {
		t.Errorf("resolver invoked %d times, want 1", resolver.calls)
	}
}

func TestLazyCellIdempotence(t *testing.T) {
	loader := New(nil)
	module, err := loader.ForceLoad(BytesSource(exitWithBytes(t, "true", 0), nil))
	if err != nil {
		t.Fatalf("ForceLoad failed, reason: %v", err)
	}

	first, err := module.CodeBlock(0)
	if err != nil {
		t.Fatalf("CodeBlock failed, reason: %v", err)
	}
	second, err := module.CodeBlock(0)
	if err != nil {
		t.Fatalf("CodeBlock failed, reason: %v", err)
	}
	if first != second {
		t.Errorf("CodeBlock should memoize its handle")
	}

	firstSignature, err := module.FunctionSignature(0)
	if err != nil {
		t.Fatalf("FunctionSignature failed, reason: %v", err)
	}
	secondSignature, err := module.FunctionSignature(0)
	if err != nil {
		t.Fatalf("FunctionSignature failed, reason: %v", err)
	}
	if firstSignature != secondSignature {
		t.Errorf("FunctionSignature should memoize its handle")
	}
}

func TestIndexOutOfBounds(t *testing.T) {
	loader := New(nil)
	module, err := loader.ForceLoad(BytesSource(exitWithBytes(t, "true", 0), nil))
	if err != nil {
		t.Fatalf("ForceLoad failed, reason: %v", err)
	}

	if _, err := module.CodeBlock(7); err == nil {
		t.Errorf("CodeBlock(7) should fail")
	} else {
		var bounds *IndexOutOfBoundsError
		if !errors.As(err, &bounds) {
			t.Errorf("CodeBlock(7) got %v, want IndexOutOfBoundsError", err)
		}
	}

	if _, err := module.FunctionTemplate(sailar.TemplateRef{Kind: sailar.TemplateImport, Index: 3}); err == nil {
		t.Errorf("FunctionTemplate should fail for a missing import")
	}
}

func TestNativeIntegerType(t *testing.T) {

	tests := []struct {
		pointerSize int
		signed      sailar.Type
		ok          bool
	}{
		{2, sailar.TypeS16, true},
		{4, sailar.TypeS32, true},
		{8, sailar.TypeS64, true},
		{3, sailar.Type{}, false},
	}

	for _, tt := range tests {
		loader := New(&Options{PointerSize: tt.pointerSize})
		got, err := loader.NativeIntegerType(true)
		if tt.ok {
			if err != nil {
				t.Errorf("NativeIntegerType(%d) failed, reason: %v", tt.pointerSize, err)
			} else if got != tt.signed {
				t.Errorf("NativeIntegerType(%d) got %s, want %s", tt.pointerSize, got, tt.signed)
			}
			continue
		}
		var invalid *InvalidPointerSizeError
		if !errors.As(err, &invalid) {
			t.Errorf("NativeIntegerType(%d) got %v, want InvalidPointerSizeError", tt.pointerSize, err)
		}
	}
}
