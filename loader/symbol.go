// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package loader

import (
	sailar "github.com/sailar-lang/sailar"
)

// SymbolLookup indexes a loaded module's private and exported function
// definitions by symbol. Hidden definitions are not indexed. Iteration
// order is unspecified.
type SymbolLookup struct {
	functions map[sailar.Identifier]*Function
}

// Function returns the definition indexed under symbol, or nil.
func (s *SymbolLookup) Function(symbol sailar.Identifier) *Function {
	return s.functions[symbol]
}

// Functions returns the indexed definitions in unspecified order.
func (s *SymbolLookup) Functions() []*Function {
	functions := make([]*Function, 0, len(s.functions))
	for _, function := range s.functions {
		functions = append(functions, function)
	}
	return functions
}

// Len returns the number of indexed symbols.
func (s *SymbolLookup) Len() int {
	return len(s.functions)
}

// insert indexes function under its symbol. The first definition wins;
// inserting a second one fails with DuplicateSymbolError.
func (s *SymbolLookup) insert(function *Function) error {
	if function.Visibility() == sailar.VisibilityHidden {
		return nil
	}
	symbol := function.Symbol()
	if _, occupied := s.functions[symbol]; occupied {
		return &sailar.DuplicateSymbolError{Symbol: symbol}
	}
	if s.functions == nil {
		s.functions = make(map[sailar.Identifier]*Function)
	}
	s.functions[symbol] = function
	return nil
}
