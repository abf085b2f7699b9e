// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package sailar

import (
	"errors"

	"github.com/samber/lo"
)

// ErrHiddenSymbol is returned when a private or exported definition is
// added without a symbol.
var ErrHiddenSymbol = errors.New("only hidden definitions may omit a symbol")

// Module is an in-memory SAILAR module. Content added through the Add
// methods is interned into insertion-ordered tables; the module tracks the
// narrowest length size able to encode what it holds.
//
// A module without an identifier is anonymous and cannot be imported.
type Module struct {
	formatVersion FormatVersion
	lengthSize    LengthSize
	identifier    *ModuleIdentifier

	identifiers        indexMap[Identifier]
	typeSignatures     indexMap[Type]
	functionSignatures functionSignatureTable
	codeBlocks         []CodeBlockRecord
	moduleImports      []ModuleImportRecord
	moduleImportKeys   map[string]ModuleImportIndex
	functionImports    []FunctionImportRecord
	definitions        []FunctionDefinitionRecord
	instantiations     []FunctionInstantiationRecord
	entryPoint         *InstantiationIndex
	symbols            SymbolTable

	contents []byte
}

// NewModule creates a module named by name and version.
func NewModule(name Identifier, version []uint32) *Module {
	m := NewAnonymousModule()
	m.identifier = &ModuleIdentifier{Name: name, Version: append([]uint32(nil), version...)}
	m.lengthSize.ResizeToFit(name.Len())
	m.lengthSize.ResizeToFit(len(version))
	for _, n := range version {
		m.lengthSize.ResizeToFit(int(n))
	}
	return m
}

// NewAnonymousModule creates a module without an identifier. It can be
// loaded as a root but never imported.
func NewAnonymousModule() *Module {
	return &Module{
		formatVersion: MinimumFormatVersion,
		lengthSize:    LengthSizeOne,
	}
}

// FormatVersion returns the module's file format version.
func (m *Module) FormatVersion() FormatVersion { return m.formatVersion }

// LengthSize returns the current width of the module's length and index
// values. It grows monotonically as content is added and is fixed into the
// header at emit time.
func (m *Module) LengthSize() LengthSize { return m.lengthSize }

// Identifier returns the module's name and version, or nil for anonymous
// modules.
func (m *Module) Identifier() *ModuleIdentifier { return m.identifier }

// IsAnonymous reports whether the module lacks an identifier.
func (m *Module) IsAnonymous() bool { return m.identifier == nil }

// Symbols returns the module's symbol table.
func (m *Module) Symbols() *SymbolTable { return &m.symbols }

// Identifiers returns the identifiers table in insertion order.
func (m *Module) Identifiers() []Identifier { return m.identifiers.ordered() }

// TypeSignatures returns the type signature table in insertion order.
func (m *Module) TypeSignatures() []Type { return m.typeSignatures.ordered() }

// FunctionSignatures returns the function signature table in insertion
// order.
func (m *Module) FunctionSignatures() []FunctionSignatureRecord {
	return m.functionSignatures.ordered()
}

// CodeBlocks returns the code block table.
func (m *Module) CodeBlocks() []CodeBlockRecord { return m.codeBlocks }

// ModuleImports returns the imported modules table.
func (m *Module) ModuleImports() []ModuleImportRecord { return m.moduleImports }

// FunctionImports returns the function imports table.
func (m *Module) FunctionImports() []FunctionImportRecord { return m.functionImports }

// Definitions returns the function definitions table.
func (m *Module) Definitions() []FunctionDefinitionRecord { return m.definitions }

// Instantiations returns the function instantiation table.
func (m *Module) Instantiations() []FunctionInstantiationRecord { return m.instantiations }

// EntryPoint returns the entry point instantiation index, if one is set.
func (m *Module) EntryPoint() (InstantiationIndex, bool) {
	if m.entryPoint == nil {
		return 0, false
	}
	return *m.entryPoint, true
}

// TypeSignatureAt resolves a type signature index.
func (m *Module) TypeSignatureAt(index TypeIndex) (Type, bool) {
	return m.typeSignatures.at(int(index))
}

// FunctionSignatureAt resolves a function signature index.
func (m *Module) FunctionSignatureAt(index FunctionSignatureIndex) (FunctionSignatureRecord, bool) {
	return m.functionSignatures.at(index)
}

// IdentifierAt resolves an identifier index.
func (m *Module) IdentifierAt(index IdentifierIndex) (Identifier, bool) {
	return m.identifiers.at(int(index))
}

// CodeBlockAt resolves a code block index.
func (m *Module) CodeBlockAt(index CodeBlockIndex) (CodeBlockRecord, bool) {
	if index < 0 || int(index) >= len(m.codeBlocks) {
		return CodeBlockRecord{}, false
	}
	return m.codeBlocks[index], true
}

func (m *Module) invalidateContents() {
	m.contents = nil
}

func (m *Module) addType(t Type) TypeIndex {
	index := TypeIndex(m.typeSignatures.getOrInsert(t))
	m.lengthSize.ResizeToFit(int(index))
	m.lengthSize.ResizeToFit(m.typeSignatures.len())
	return index
}

func (m *Module) addIdentifier(id Identifier) IdentifierIndex {
	index := IdentifierIndex(m.identifiers.getOrInsert(id))
	m.lengthSize.ResizeToFit(id.Len())
	m.lengthSize.ResizeToFit(int(index))
	m.lengthSize.ResizeToFit(m.identifiers.len())
	return index
}

func (m *Module) addSignature(signature *Signature) FunctionSignatureIndex {
	record := FunctionSignatureRecord{
		ResultTypes:    lo.Map(signature.ResultTypes(), func(t Type, _ int) TypeIndex { return m.addType(t) }),
		ParameterTypes: lo.Map(signature.ParameterTypes(), func(t Type, _ int) TypeIndex { return m.addType(t) }),
	}
	index := m.functionSignatures.getOrInsert(record)
	m.lengthSize.ResizeToFit(len(record.ResultTypes))
	m.lengthSize.ResizeToFit(len(record.ParameterTypes))
	m.lengthSize.ResizeToFit(int(index))
	m.lengthSize.ResizeToFit(m.functionSignatures.len())
	return index
}

func (m *Module) addBlock(block *Block) CodeBlockIndex {
	registerTypes := make([]TypeIndex, 0,
		len(block.InputTypes())+len(block.ResultTypes())+len(block.TemporaryTypes()))
	for _, t := range block.InputTypes() {
		registerTypes = append(registerTypes, m.addType(t))
	}
	for _, t := range block.ResultTypes() {
		registerTypes = append(registerTypes, m.addType(t))
	}
	for _, t := range block.TemporaryTypes() {
		registerTypes = append(registerTypes, m.addType(t))
	}

	record := CodeBlockRecord{
		RegisterTypes:  registerTypes,
		InputCount:     len(block.InputTypes()),
		ResultCount:    len(block.ResultTypes()),
		TemporaryCount: len(block.TemporaryTypes()),
		Instructions:   block.Instructions(),
	}

	index := CodeBlockIndex(len(m.codeBlocks))
	m.codeBlocks = append(m.codeBlocks, record)
	if block.IntegerSize() > m.lengthSize {
		m.lengthSize = block.IntegerSize()
	}
	m.lengthSize.ResizeToFit(len(registerTypes))
	m.lengthSize.ResizeToFit(int(index))
	m.lengthSize.ResizeToFit(len(m.codeBlocks))
	return index
}

// AddFunction adds a function definition. The symbol must be empty for
// hidden definitions and non-empty otherwise; adding a second private or
// exported definition under an existing symbol fails with
// DuplicateSymbolError.
func (m *Module) AddFunction(symbol Identifier, signature *Signature, body FunctionBody, visibility Visibility) (*FunctionDefinition, error) {
	if visibility == VisibilityHidden {
		symbol = ""
	} else if symbol == "" {
		return nil, ErrHiddenSymbol
	}

	index := len(m.definitions)
	if err := m.symbols.insert(symbol, index, visibility); err != nil {
		return nil, err
	}

	record := FunctionDefinitionRecord{
		Visibility: visibility,
		Signature:  m.addSignature(signature),
		Symbol:     symbol,
	}
	if foreign := body.Foreign(); foreign != nil {
		record.Body.Foreign = &ForeignBodyRecord{
			Library:    m.addIdentifier(foreign.Library),
			EntryPoint: foreign.EntryPoint,
		}
		m.lengthSize.ResizeToFit(foreign.EntryPoint.Len())
	} else {
		record.Body.Block = m.addBlock(body.Block())
	}

	m.definitions = append(m.definitions, record)
	m.lengthSize.ResizeToFit(symbol.Len())
	m.lengthSize.ResizeToFit(len(m.definitions))
	m.invalidateContents()

	return &FunctionDefinition{
		module:     m,
		index:      index,
		symbol:     symbol,
		signature:  signature,
		visibility: visibility,
		foreign:    body.Foreign() != nil,
	}, nil
}

// AddFunctionImport declares a dependency on a function exported by the
// module named owner. The declared signature must match the exporting
// definition's; the loader verifies this when the template is resolved.
func (m *Module) AddFunctionImport(owner ModuleIdentifier, symbol Identifier, signature *Signature) (*FunctionImport, error) {
	if symbol == "" {
		return nil, ErrEmptyIdentifier
	}

	moduleIndex, ok := m.moduleImportKeys[owner.Key()]
	if !ok {
		if m.moduleImportKeys == nil {
			m.moduleImportKeys = make(map[string]ModuleImportIndex)
		}
		moduleIndex = ModuleImportIndex(len(m.moduleImports))
		m.moduleImportKeys[owner.Key()] = moduleIndex
		m.moduleImports = append(m.moduleImports, ModuleImportRecord{Identifier: owner})
		m.lengthSize.ResizeToFit(owner.Name.Len())
		m.lengthSize.ResizeToFit(len(owner.Version))
		for _, n := range owner.Version {
			m.lengthSize.ResizeToFit(int(n))
		}
		m.lengthSize.ResizeToFit(len(m.moduleImports))
	}

	index := len(m.functionImports)
	m.functionImports = append(m.functionImports, FunctionImportRecord{
		Module:    moduleIndex,
		Symbol:    symbol,
		Signature: m.addSignature(signature),
	})
	m.lengthSize.ResizeToFit(symbol.Len())
	m.lengthSize.ResizeToFit(len(m.functionImports))
	m.invalidateContents()

	return &FunctionImport{
		module:    m,
		index:     index,
		owner:     owner,
		symbol:    symbol,
		signature: signature,
	}, nil
}

// AddInstantiation adds a callable instantiation of template.
func (m *Module) AddInstantiation(template FunctionTemplate) *Instantiation {
	ref := template.Template()
	index := InstantiationIndex(len(m.instantiations))
	m.instantiations = append(m.instantiations, FunctionInstantiationRecord{Template: ref})
	m.lengthSize.ResizeToFit(ref.Index)
	m.lengthSize.ResizeToFit(int(index))
	m.lengthSize.ResizeToFit(len(m.instantiations))
	m.invalidateContents()
	return &Instantiation{index: index, signature: template.Signature()}
}

// SetEntryPoint designates instantiation as the program entry point.
func (m *Module) SetEntryPoint(instantiation *Instantiation) {
	index := instantiation.Index()
	m.entryPoint = &index
	m.lengthSize.ResizeToFit(int(index))
	m.invalidateContents()
}

// Records returns the module's content as a stream of records in file
// order, the form consumed by loader sources.
func (m *Module) Records() []Record {
	records := make([]Record, 0,
		1+m.identifiers.len()+m.typeSignatures.len()+m.functionSignatures.len()+
			len(m.codeBlocks)+len(m.moduleImports)+len(m.functionImports)+
			len(m.definitions)+len(m.instantiations)+1)

	if m.identifier != nil {
		records = append(records, ModuleIdentifierField{Identifier: *m.identifier})
	}
	for _, id := range m.identifiers.ordered() {
		records = append(records, IdentifierRecord{Identifier: id})
	}
	for _, t := range m.typeSignatures.ordered() {
		records = append(records, TypeSignatureRecord{Type: t})
	}
	for _, signature := range m.functionSignatures.ordered() {
		records = append(records, signature)
	}
	for _, block := range m.codeBlocks {
		records = append(records, block)
	}
	for _, imported := range m.moduleImports {
		records = append(records, imported)
	}
	for _, imported := range m.functionImports {
		records = append(records, imported)
	}
	for _, definition := range m.definitions {
		records = append(records, definition)
	}
	for _, instantiation := range m.instantiations {
		records = append(records, instantiation)
	}
	if m.entryPoint != nil {
		records = append(records, EntryPointField{Instantiation: *m.entryPoint})
	}
	return records
}

// RawContents returns the module's binary form, serializing it on first
// use and memoizing the bytes until the module is next mutated.
func (m *Module) RawContents(pool *BufferPool) ([]byte, error) {
	if m.contents == nil {
		buffer := pool.RentCapacity(512)
		defer buffer.Return()
		if err := m.emitTo(buffer, pool); err != nil {
			return nil, err
		}
		m.contents = append([]byte(nil), buffer.Bytes()...)
	}
	return m.contents, nil
}
