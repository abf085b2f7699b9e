// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package loader

import (
	sailar "github.com/sailar-lang/sailar"
)

// Module is a loaded SAILAR module: the record tables of one source plus
// memoizing cells that turn indices into strong references on demand.
type Module struct {
	loader     *Loader
	identifier *sailar.ModuleIdentifier

	identifiers        []sailar.Identifier
	typeSignatures     []sailar.Type
	signatureRecords   []sailar.FunctionSignatureRecord
	blockRecords       []sailar.CodeBlockRecord
	moduleImports      []sailar.ModuleImportRecord
	functionImports    []sailar.FunctionImportRecord
	definitions        []*Function
	instantiations     []*Instantiation
	entryPoint         *sailar.InstantiationIndex
	symbols            SymbolLookup

	signatureCells      []lazy[*FunctionSignature]
	blockCells          []lazy[*CodeBlock]
	importedModuleCells []lazy[*Module]
	importCells         []lazy[*Function]
}

// newModule assembles a loaded module from a record stream. A duplicate
// symbol among the definitions is reported alongside the module; the
// first definition of the symbol stays indexed.
func newModule(l *Loader, records []sailar.Record) (*Module, error) {
	m := &Module{loader: l}

	var symbolErr error
	for _, record := range records {
		switch record := record.(type) {
		case sailar.ModuleIdentifierField:
			identifier := record.Identifier
			m.identifier = &identifier
		case sailar.EntryPointField:
			index := record.Instantiation
			m.entryPoint = &index
		case sailar.IdentifierRecord:
			m.identifiers = append(m.identifiers, record.Identifier)
		case sailar.TypeSignatureRecord:
			m.typeSignatures = append(m.typeSignatures, record.Type)
		case sailar.FunctionSignatureRecord:
			m.signatureRecords = append(m.signatureRecords, record)
		case sailar.CodeBlockRecord:
			m.blockRecords = append(m.blockRecords, record)
		case sailar.ModuleImportRecord:
			m.moduleImports = append(m.moduleImports, record)
		case sailar.FunctionImportRecord:
			m.functionImports = append(m.functionImports, record)
		case sailar.FunctionDefinitionRecord:
			function := &Function{module: m, index: len(m.definitions), record: record}
			if err := m.symbols.insert(function); err != nil && symbolErr == nil {
				symbolErr = err
			}
			m.definitions = append(m.definitions, function)
		case sailar.FunctionInstantiationRecord:
			m.instantiations = append(m.instantiations, &Instantiation{
				module: m,
				index:  sailar.InstantiationIndex(len(m.instantiations)),
				record: record,
			})
		case sailar.DataRecord:
			// The data section is reserved.
		}
	}

	m.signatureCells = make([]lazy[*FunctionSignature], len(m.signatureRecords))
	m.blockCells = make([]lazy[*CodeBlock], len(m.blockRecords))
	m.importedModuleCells = make([]lazy[*Module], len(m.moduleImports))
	m.importCells = make([]lazy[*Function], len(m.functionImports))
	return m, symbolErr
}

// Loader returns the loader owning this module.
func (m *Module) Loader() *Loader {
	return m.loader
}

// Identifier returns the module's name and version, or nil for anonymous
// modules.
func (m *Module) Identifier() *sailar.ModuleIdentifier {
	return m.identifier
}

// IsAnonymous reports whether the module lacks an identifier and can
// therefore never be imported.
func (m *Module) IsAnonymous() bool {
	return m.identifier == nil
}

// Symbols returns the module's symbol lookup.
func (m *Module) Symbols() *SymbolLookup {
	return &m.symbols
}

// Functions returns the module's function definitions in record order.
func (m *Module) Functions() []*Function {
	return m.definitions
}

// Instantiations returns the module's function instantiations in record
// order.
func (m *Module) Instantiations() []*Instantiation {
	return m.instantiations
}

// EntryPoint returns the program entry point instantiation, or nil when
// the module does not designate one.
func (m *Module) EntryPoint() (*Instantiation, error) {
	if m.entryPoint == nil {
		return nil, nil
	}
	return m.Instantiation(*m.entryPoint)
}

// Instantiation resolves an instantiation index.
func (m *Module) Instantiation(index sailar.InstantiationIndex) (*Instantiation, error) {
	if index < 0 || int(index) >= len(m.instantiations) {
		return nil, &IndexOutOfBoundsError{Table: "function instantiation", Index: int(index)}
	}
	return m.instantiations[index], nil
}

// typeAt resolves a type signature index.
func (m *Module) typeAt(index sailar.TypeIndex) (sailar.Type, error) {
	if index < 0 || int(index) >= len(m.typeSignatures) {
		return sailar.Type{}, &IndexOutOfBoundsError{Table: "type signature", Index: int(index)}
	}
	return m.typeSignatures[index], nil
}

func (m *Module) typesAt(indices []sailar.TypeIndex) ([]sailar.Type, error) {
	types := make([]sailar.Type, len(indices))
	for i, index := range indices {
		t, err := m.typeAt(index)
		if err != nil {
			return nil, err
		}
		types[i] = t
	}
	return types, nil
}

// identifierAt resolves an identifiers table index.
func (m *Module) identifierAt(index sailar.IdentifierIndex) (sailar.Identifier, error) {
	if index < 0 || int(index) >= len(m.identifiers) {
		return "", &IndexOutOfBoundsError{Table: "identifier", Index: int(index)}
	}
	return m.identifiers[index], nil
}

// FunctionSignature resolves a function signature index to a cached
// shared handle.
func (m *Module) FunctionSignature(index sailar.FunctionSignatureIndex) (*FunctionSignature, error) {
	if index < 0 || int(index) >= len(m.signatureCells) {
		return nil, &IndexOutOfBoundsError{Table: "function signature", Index: int(index)}
	}
	return m.signatureCells[index].get(func() (*FunctionSignature, error) {
		return &FunctionSignature{module: m, index: index, record: m.signatureRecords[index]}, nil
	})
}

// CodeBlock resolves a code block index to a cached shared handle.
func (m *Module) CodeBlock(index sailar.CodeBlockIndex) (*CodeBlock, error) {
	if index < 0 || int(index) >= len(m.blockCells) {
		return nil, &IndexOutOfBoundsError{Table: "code block", Index: int(index)}
	}
	return m.blockCells[index].get(func() (*CodeBlock, error) {
		return &CodeBlock{module: m, index: index, record: m.blockRecords[index]}, nil
	})
}

// importedModule resolves an imported modules table index, forcing the
// load of the imported module on first access.
func (m *Module) importedModule(index sailar.ModuleImportIndex) (*Module, error) {
	if index < 0 || int(index) >= len(m.importedModuleCells) {
		return nil, &IndexOutOfBoundsError{Table: "module import", Index: int(index)}
	}
	return m.importedModuleCells[index].get(func() (*Module, error) {
		return m.loader.Load(m.moduleImports[index].Identifier)
	})
}

// FunctionTemplate resolves a template reference to the definition it
// names, following imports across modules. Results and errors are
// memoized.
func (m *Module) FunctionTemplate(ref sailar.TemplateRef) (*Function, error) {
	if ref.Kind == sailar.TemplateDefinition {
		if ref.Index < 0 || ref.Index >= len(m.definitions) {
			return nil, &IndexOutOfBoundsError{Table: "function definition", Index: ref.Index}
		}
		return m.definitions[ref.Index], nil
	}

	if ref.Index < 0 || ref.Index >= len(m.importCells) {
		return nil, &IndexOutOfBoundsError{Table: "function import", Index: ref.Index}
	}
	return m.importCells[ref.Index].get(func() (*Function, error) {
		return m.resolveImport(m.functionImports[ref.Index])
	})
}

func (m *Module) resolveImport(record sailar.FunctionImportRecord) (*Function, error) {
	owner, err := m.importedModule(record.Module)
	if err != nil {
		return nil, err
	}
	identifier := m.moduleImports[record.Module].Identifier

	function := owner.Symbols().Function(record.Symbol)
	if function == nil || function.Visibility() != sailar.VisibilityExport {
		return nil, &SymbolNotFoundError{Module: identifier, Symbol: record.Symbol}
	}

	// The import site declares a signature; it must agree with the
	// exporting definition.
	declared, err := m.FunctionSignature(record.Signature)
	if err != nil {
		return nil, err
	}
	actual, err := function.Signature()
	if err != nil {
		return nil, err
	}
	equal, err := signaturesEqual(declared, actual)
	if err != nil {
		return nil, err
	}
	if !equal {
		return nil, &ImportSignatureMismatchError{Module: identifier, Symbol: record.Symbol}
	}
	return function, nil
}

func signaturesEqual(a, b *FunctionSignature) (bool, error) {
	aResults, err := a.ResultTypes()
	if err != nil {
		return false, err
	}
	bResults, err := b.ResultTypes()
	if err != nil {
		return false, err
	}
	aParameters, err := a.ParameterTypes()
	if err != nil {
		return false, err
	}
	bParameters, err := b.ParameterTypes()
	if err != nil {
		return false, err
	}
	return typesEqual(aResults, bResults) && typesEqual(aParameters, bParameters), nil
}

func typesEqual(a, b []sailar.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i, t := range a {
		if b[i] != t {
			return false
		}
	}
	return true
}
