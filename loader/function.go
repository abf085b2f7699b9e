// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package loader

import (
	sailar "github.com/sailar-lang/sailar"
)

// Function is a loaded function definition.
type Function struct {
	module *Module
	index  int
	record sailar.FunctionDefinitionRecord

	signature lazy[*FunctionSignature]
	body      lazy[*FunctionBody]
}

// Module returns the module defining the function.
func (f *Function) Module() *Module {
	return f.module
}

// Symbol returns the function's name; empty for hidden definitions.
func (f *Function) Symbol() sailar.Identifier {
	return f.record.Symbol
}

// Visibility returns the definition's symbol classification.
func (f *Function) Visibility() sailar.Visibility {
	return f.record.Visibility
}

// IsExport reports whether the function may be imported by other
// modules.
func (f *Function) IsExport() bool {
	return f.record.Visibility == sailar.VisibilityExport
}

// Signature resolves the function's signature.
func (f *Function) Signature() (*FunctionSignature, error) {
	return f.signature.get(func() (*FunctionSignature, error) {
		return f.module.FunctionSignature(f.record.Signature)
	})
}

// Body resolves the function's body: the entry code block for defined
// functions, or the foreign reference for foreign ones.
func (f *Function) Body() (*FunctionBody, error) {
	return f.body.get(func() (*FunctionBody, error) {
		if foreign := f.record.Body.Foreign; foreign != nil {
			library, err := f.module.identifierAt(foreign.Library)
			if err != nil {
				return nil, err
			}
			return &FunctionBody{Foreign: &ForeignBody{
				Library:    library,
				EntryPoint: foreign.EntryPoint,
			}}, nil
		}

		block, err := f.module.CodeBlock(f.record.Body.Block)
		if err != nil {
			return nil, err
		}
		return &FunctionBody{Block: block}, nil
	})
}

// FunctionBody is a resolved function body; exactly one field is set.
type FunctionBody struct {
	Block   *CodeBlock
	Foreign *ForeignBody
}

// ForeignBody locates a function body in an external library.
type ForeignBody struct {
	Library    sailar.Identifier
	EntryPoint sailar.Identifier
}

// FunctionSignature is a loaded function signature whose type indices
// resolve on first access.
type FunctionSignature struct {
	module *Module
	index  sailar.FunctionSignatureIndex
	record sailar.FunctionSignatureRecord

	results    lazy[[]sailar.Type]
	parameters lazy[[]sailar.Type]
}

// Module returns the module the signature belongs to.
func (s *FunctionSignature) Module() *Module {
	return s.module
}

// Index returns the signature's position in its module's table.
func (s *FunctionSignature) Index() sailar.FunctionSignatureIndex {
	return s.index
}

// ResultTypes resolves the signature's result types in order.
func (s *FunctionSignature) ResultTypes() ([]sailar.Type, error) {
	return s.results.get(func() ([]sailar.Type, error) {
		return s.module.typesAt(s.record.ResultTypes)
	})
}

// ParameterTypes resolves the signature's parameter types in order.
func (s *FunctionSignature) ParameterTypes() ([]sailar.Type, error) {
	return s.parameters.get(func() ([]sailar.Type, error) {
		return s.module.typesAt(s.record.ParameterTypes)
	})
}

// CodeBlock is a loaded code block whose register type indices resolve on
// first access.
type CodeBlock struct {
	module *Module
	index  sailar.CodeBlockIndex
	record sailar.CodeBlockRecord

	inputs      lazy[[]sailar.Type]
	results     lazy[[]sailar.Type]
	temporaries lazy[[]sailar.Type]
}

// Module returns the module the block belongs to.
func (b *CodeBlock) Module() *Module {
	return b.module
}

// Index returns the block's position in its module's table.
func (b *CodeBlock) Index() sailar.CodeBlockIndex {
	return b.index
}

// InputTypes resolves the types of the block's input registers.
func (b *CodeBlock) InputTypes() ([]sailar.Type, error) {
	return b.inputs.get(func() ([]sailar.Type, error) {
		return b.module.typesAt(b.record.InputTypes())
	})
}

// ResultTypes resolves the types of the block's results.
func (b *CodeBlock) ResultTypes() ([]sailar.Type, error) {
	return b.results.get(func() ([]sailar.Type, error) {
		return b.module.typesAt(b.record.ResultTypes())
	})
}

// TemporaryTypes resolves the types of the block's temporary registers.
func (b *CodeBlock) TemporaryTypes() ([]sailar.Type, error) {
	return b.temporaries.get(func() ([]sailar.Type, error) {
		return b.module.typesAt(b.record.TemporaryTypes())
	})
}

// RegisterCount returns the size of the block's flat register space.
func (b *CodeBlock) RegisterCount() int {
	return b.record.InputCount + b.record.TemporaryCount
}

// Instructions returns the block's instructions in order.
func (b *CodeBlock) Instructions() []sailar.Instruction {
	return b.record.Instructions
}

// Instantiation is a loaded function instantiation: the callable handle
// Call instructions and the entry point name.
type Instantiation struct {
	module *Module
	index  sailar.InstantiationIndex
	record sailar.FunctionInstantiationRecord

	template lazy[*Function]
}

// Module returns the module the instantiation belongs to.
func (i *Instantiation) Module() *Module {
	return i.module
}

// Index returns the instantiation's position in its module's table.
func (i *Instantiation) Index() sailar.InstantiationIndex {
	return i.index
}

// Template resolves the instantiated template to the function definition
// it names, forcing the load of imported modules as needed. Repeated
// access returns the same handle or the same error.
func (i *Instantiation) Template() (*Function, error) {
	return i.template.get(func() (*Function, error) {
		return i.module.FunctionTemplate(i.record.Template)
	})
}
