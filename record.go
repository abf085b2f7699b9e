// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package sailar

import (
	"fmt"
	"strconv"
	"strings"
)

// Index types into the per-module tables. An index stored in a record is
// always within the range of its target table at emit time.
type (
	// IdentifierIndex refers into the identifiers table.
	IdentifierIndex int

	// TypeIndex refers into the type signature table.
	TypeIndex int

	// FunctionSignatureIndex refers into the function signature table.
	FunctionSignatureIndex int

	// CodeBlockIndex refers into the code block table.
	CodeBlockIndex int

	// ModuleImportIndex refers into the imported modules table.
	ModuleImportIndex int

	// InstantiationIndex refers into the function instantiation table.
	InstantiationIndex int

	// RegisterIndex is a flat index into a code block's register space,
	// inputs first, then temporaries.
	RegisterIndex int
)

// RecordType indicates what kind of content is contained in a record.
type RecordType uint8

const (
	RecordTypeMetadataField         RecordType = 0
	RecordTypeIdentifier            RecordType = 2
	RecordTypeTypeSignature         RecordType = 3
	RecordTypeFunctionSignature     RecordType = 4
	RecordTypeData                  RecordType = 5
	RecordTypeCodeBlock             RecordType = 6
	RecordTypeModuleImport          RecordType = 7
	RecordTypeFunctionImport        RecordType = 8
	RecordTypeFunctionDefinition    RecordType = 9
	RecordTypeFunctionInstantiation RecordType = 10
)

// Record is a single tagged element in a module's wire form. The concrete
// record types in this package are the only implementations.
type Record interface {
	RecordType() RecordType
}

// ModuleIdentifier names a module: an identifier plus an ordered sequence
// of non-negative version numbers. Equality is structural.
type ModuleIdentifier struct {
	Name    Identifier `json:"name"`
	Version []uint32   `json:"version"`
}

// Equal reports structural equality with other.
func (id ModuleIdentifier) Equal(other ModuleIdentifier) bool {
	if id.Name != other.Name || len(id.Version) != len(other.Version) {
		return false
	}
	for i, n := range id.Version {
		if other.Version[i] != n {
			return false
		}
	}
	return true
}

// Key returns a map key uniquely identifying the module.
func (id ModuleIdentifier) Key() string {
	var sb strings.Builder
	sb.WriteString(string(id.Name))
	for _, n := range id.Version {
		sb.WriteByte(0)
		sb.WriteString(strconv.FormatUint(uint64(n), 10))
	}
	return sb.String()
}

func (id ModuleIdentifier) String() string {
	parts := make([]string, len(id.Version))
	for i, n := range id.Version {
		parts[i] = strconv.FormatUint(uint64(n), 10)
	}
	return fmt.Sprintf("%s, v%s", id.Name, strings.Join(parts, "."))
}

// ModuleIdentifierField is the metadata field naming the containing
// module. A module without one is anonymous and cannot be imported.
type ModuleIdentifierField struct {
	Identifier ModuleIdentifier
}

func (ModuleIdentifierField) RecordType() RecordType { return RecordTypeMetadataField }

// EntryPointField is the metadata field designating the instantiation that
// starts the program.
type EntryPointField struct {
	Instantiation InstantiationIndex
}

func (EntryPointField) RecordType() RecordType { return RecordTypeMetadataField }

// IdentifierRecord is an entry in the identifiers table, referenced by
// index from other records.
type IdentifierRecord struct {
	Identifier Identifier
}

func (IdentifierRecord) RecordType() RecordType { return RecordTypeIdentifier }

// TypeSignatureRecord is an entry in the type signature table.
type TypeSignatureRecord struct {
	Type Type
}

func (TypeSignatureRecord) RecordType() RecordType { return RecordTypeTypeSignature }

// FunctionSignatureRecord is an entry in the function signature table,
// referring to type signatures by index only.
type FunctionSignatureRecord struct {
	ResultTypes    []TypeIndex `json:"result_types"`
	ParameterTypes []TypeIndex `json:"parameter_types"`
}

func (FunctionSignatureRecord) RecordType() RecordType { return RecordTypeFunctionSignature }

// DataRecord is an entry in the data table. The data section itself is
// reserved; records of this kind exist so the tag space stays stable.
type DataRecord struct {
	Bytes []byte
}

func (DataRecord) RecordType() RecordType { return RecordTypeData }

// CodeBlockRecord is the wire form of a code block. Register types are
// stored as input, result, temporary; register operands address a single
// flat index space of inputs first, then temporaries.
type CodeBlockRecord struct {
	// RegisterTypes holds input types, then result types, then temporary
	// types.
	RegisterTypes  []TypeIndex   `json:"register_types"`
	InputCount     int           `json:"input_count"`
	ResultCount    int           `json:"result_count"`
	TemporaryCount int           `json:"temporary_count"`
	Instructions   []Instruction `json:"-"`
}

func (CodeBlockRecord) RecordType() RecordType { return RecordTypeCodeBlock }

// InputTypes returns the type indices of the block's input registers.
func (b CodeBlockRecord) InputTypes() []TypeIndex {
	return b.RegisterTypes[:b.InputCount]
}

// ResultTypes returns the type indices of the block's results.
func (b CodeBlockRecord) ResultTypes() []TypeIndex {
	return b.RegisterTypes[b.InputCount : b.InputCount+b.ResultCount]
}

// TemporaryTypes returns the type indices of the block's temporary
// registers.
func (b CodeBlockRecord) TemporaryTypes() []TypeIndex {
	return b.RegisterTypes[b.InputCount+b.ResultCount:]
}

// ModuleImportRecord is an entry in the imported modules table.
type ModuleImportRecord struct {
	Identifier ModuleIdentifier `json:"identifier"`
}

func (ModuleImportRecord) RecordType() RecordType { return RecordTypeModuleImport }

// FunctionImportRecord names a function exported by an imported module.
type FunctionImportRecord struct {
	Module    ModuleImportIndex      `json:"module"`
	Symbol    Identifier             `json:"symbol"`
	Signature FunctionSignatureIndex `json:"signature"`
}

func (FunctionImportRecord) RecordType() RecordType { return RecordTypeFunctionImport }

// FunctionBodyRecord is the body of a function definition: either a code
// block defined in this module, or a foreign reference into an external
// library.
type FunctionBodyRecord struct {
	// Block is the entry block index for defined bodies.
	Block CodeBlockIndex `json:"block"`

	// Foreign is set for foreign bodies.
	Foreign *ForeignBodyRecord `json:"foreign,omitempty"`
}

// IsForeign reports whether the body lives in an external library.
func (b FunctionBodyRecord) IsForeign() bool {
	return b.Foreign != nil
}

// ForeignBodyRecord locates a function body in an external library. The
// library name lives in the identifiers table; the entry point name is
// stored inline.
type ForeignBodyRecord struct {
	Library    IdentifierIndex `json:"library"`
	EntryPoint Identifier      `json:"entry_point"`
}

// FunctionDefinitionRecord is the wire form of a function definition.
// Hidden definitions carry an empty symbol.
type FunctionDefinitionRecord struct {
	Visibility Visibility             `json:"visibility"`
	Signature  FunctionSignatureIndex `json:"signature"`
	Symbol     Identifier             `json:"symbol"`
	Body       FunctionBodyRecord     `json:"body"`
}

func (FunctionDefinitionRecord) RecordType() RecordType { return RecordTypeFunctionDefinition }

// Flags returns the definition's wire flags byte.
func (d FunctionDefinitionRecord) Flags() uint8 {
	var flags uint8
	if d.Visibility == VisibilityExport {
		flags |= FunctionFlagExport
	}
	if d.Body.IsForeign() {
		flags |= FunctionFlagForeign
	}
	return flags
}

// TemplateKind distinguishes the two sources of a function template.
type TemplateKind uint8

const (
	// TemplateDefinition refers into the function definitions table.
	TemplateDefinition TemplateKind = 0

	// TemplateImport refers into the function imports table.
	TemplateImport TemplateKind = 1
)

// TemplateRef names a function template: a local definition or an import.
type TemplateRef struct {
	Kind  TemplateKind `json:"kind"`
	Index int          `json:"index"`
}

func (t TemplateRef) String() string {
	if t.Kind == TemplateImport {
		return fmt.Sprintf("import #%d", t.Index)
	}
	return fmt.Sprintf("definition #%d", t.Index)
}

// FunctionInstantiationRecord is a callable handle pointing at a template;
// instantiations are the unit named by callers and by the entry point.
type FunctionInstantiationRecord struct {
	Template TemplateRef `json:"template"`
}

func (FunctionInstantiationRecord) RecordType() RecordType { return RecordTypeFunctionInstantiation }
