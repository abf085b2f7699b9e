// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package sailar

import "fmt"

// DuplicateSymbolError is returned when a second definition is inserted
// under an identifier that already names one. The first definition is left
// intact.
type DuplicateSymbolError struct {
	Symbol Identifier
}

func (e *DuplicateSymbolError) Error() string {
	return fmt.Sprintf("a definition with the symbol %q already exists", string(e.Symbol))
}

// DefinedSymbol pairs a private or exported identifier with its defining
// function definition.
type DefinedSymbol struct {
	name       Identifier
	definition int
	visibility Visibility
}

// Name returns the symbol's identifier.
func (s *DefinedSymbol) Name() Identifier { return s.name }

// Definition returns the index of the defining entry in the function
// definitions table.
func (s *DefinedSymbol) Definition() int { return s.definition }

// Visibility returns the symbol's classification; never VisibilityHidden,
// as hidden definitions are not indexed.
func (s *DefinedSymbol) Visibility() Visibility { return s.visibility }

// IsExport reports whether the symbol may be imported by other modules.
func (s *DefinedSymbol) IsExport() bool { return s.visibility == VisibilityExport }

// SymbolTable maps each private or exported identifier in a module to its
// single defining entry. Hidden definitions are not indexed. Iteration
// order is unspecified.
type SymbolTable struct {
	entries map[Identifier]*DefinedSymbol
}

// Get returns the symbol named by identifier, or nil.
func (t *SymbolTable) Get(identifier Identifier) *DefinedSymbol {
	return t.entries[identifier]
}

// Len returns the number of indexed symbols.
func (t *SymbolTable) Len() int {
	return len(t.entries)
}

// Symbols returns the indexed symbols in unspecified order.
func (t *SymbolTable) Symbols() []*DefinedSymbol {
	symbols := make([]*DefinedSymbol, 0, len(t.entries))
	for _, symbol := range t.entries {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// insert indexes a definition under name. Inserting into an occupied slot
// fails with DuplicateSymbolError and leaves the existing entry intact.
func (t *SymbolTable) insert(name Identifier, definition int, visibility Visibility) error {
	if visibility == VisibilityHidden {
		return nil
	}
	if _, occupied := t.entries[name]; occupied {
		return &DuplicateSymbolError{Symbol: name}
	}
	if t.entries == nil {
		t.entries = make(map[Identifier]*DefinedSymbol)
	}
	t.entries[name] = &DefinedSymbol{name: name, definition: definition, visibility: visibility}
	return nil
}
