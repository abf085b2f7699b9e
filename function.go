// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package sailar

// ForeignBody locates a function's implementation in an external library,
// used by the foreign function interface and for functions defined in the
// runtime.
type ForeignBody struct {
	// Library is the name of the library the function is defined in.
	Library Identifier

	// EntryPoint is the name of the function within the library.
	EntryPoint Identifier
}

// FunctionBody is the implementation of a function definition: either a
// code block defined in the module, or a foreign reference.
type FunctionBody struct {
	block   *Block
	foreign *ForeignBody
}

// DefinedBody is a body implemented by the given entry block.
func DefinedBody(block *Block) FunctionBody {
	return FunctionBody{block: block}
}

// ForeignFunctionBody is a body implemented by entryPoint in library.
func ForeignFunctionBody(library, entryPoint Identifier) FunctionBody {
	return FunctionBody{foreign: &ForeignBody{Library: library, EntryPoint: entryPoint}}
}

// Block returns the entry block of a defined body, or nil for foreign
// bodies.
func (b FunctionBody) Block() *Block { return b.block }

// Foreign returns the foreign reference, or nil for defined bodies.
func (b FunctionBody) Foreign() *ForeignBody { return b.foreign }

// FunctionTemplate is a function's source of implementation: a local
// definition or an import. Templates are what instantiations point at.
type FunctionTemplate interface {
	// Template returns the wire reference naming this template.
	Template() TemplateRef

	// Signature returns the function's signature.
	Signature() *Signature
}

// FunctionDefinition is a function defined by this module, returned by
// Module.AddFunction. Identity is by symbol within the module.
type FunctionDefinition struct {
	module     *Module
	index      int
	symbol     Identifier
	signature  *Signature
	visibility Visibility
	foreign    bool
}

// Symbol returns the definition's name; empty for hidden definitions.
func (d *FunctionDefinition) Symbol() Identifier { return d.symbol }

// Signature returns the function's signature.
func (d *FunctionDefinition) Signature() *Signature { return d.signature }

// Visibility returns the definition's symbol classification.
func (d *FunctionDefinition) Visibility() Visibility { return d.visibility }

// IsForeign reports whether the body lives in an external library.
func (d *FunctionDefinition) IsForeign() bool { return d.foreign }

// Template returns the wire reference naming this definition.
func (d *FunctionDefinition) Template() TemplateRef {
	return TemplateRef{Kind: TemplateDefinition, Index: d.index}
}

// FunctionImport is a function imported from another module, returned by
// Module.AddFunctionImport.
type FunctionImport struct {
	module    *Module
	index     int
	owner     ModuleIdentifier
	symbol    Identifier
	signature *Signature
}

// Owner returns the identifier of the module the function is imported
// from.
func (f *FunctionImport) Owner() ModuleIdentifier { return f.owner }

// Symbol returns the imported function's exported name.
func (f *FunctionImport) Symbol() Identifier { return f.symbol }

// Signature returns the function's signature as declared at the import
// site.
func (f *FunctionImport) Signature() *Signature { return f.signature }

// Template returns the wire reference naming this import.
func (f *FunctionImport) Template() TemplateRef {
	return TemplateRef{Kind: TemplateImport, Index: f.index}
}

// Instantiation is a callable handle pointing at a template; it is the
// unit named by Call instructions and by the entry point.
type Instantiation struct {
	index     InstantiationIndex
	signature *Signature
}

// Index returns the instantiation's position in the instantiation table.
func (i *Instantiation) Index() InstantiationIndex { return i.index }

// Signature returns the signature of the instantiated template.
func (i *Instantiation) Signature() *Signature { return i.signature }
