// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package loader

import (
	"fmt"

	sailar "github.com/sailar-lang/sailar"
)

// IndexOutOfBoundsError is returned when a record index does not resolve
// within its target table.
type IndexOutOfBoundsError struct {
	Table string
	Index int
}

func (e *IndexOutOfBoundsError) Error() string {
	return fmt.Sprintf("index %d is out of bounds for the %s table", e.Index, e.Table)
}

// ModuleNotFoundError is returned when the resolver does not know a
// module.
type ModuleNotFoundError struct {
	Identifier sailar.ModuleIdentifier
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("module %s could not be found", e.Identifier)
}

// InvalidPointerSizeError is returned when a loader is created with a
// pointer size that has no native integer mapping.
type InvalidPointerSizeError struct {
	Size int
}

func (e *InvalidPointerSizeError) Error() string {
	return fmt.Sprintf("%d is not a valid pointer size", e.Size)
}

// ResolverCycleError is returned when resolving a module import leads
// back to a module whose resolution is still in progress.
type ResolverCycleError struct {
	Identifier sailar.ModuleIdentifier
}

func (e *ResolverCycleError) Error() string {
	return fmt.Sprintf("resolution of module %s depends on itself", e.Identifier)
}

// SymbolNotFoundError is returned when an imported module does not export
// the requested symbol.
type SymbolNotFoundError struct {
	Module sailar.ModuleIdentifier
	Symbol sailar.Identifier
}

func (e *SymbolNotFoundError) Error() string {
	return fmt.Sprintf("module %s does not export a function %q", e.Module, string(e.Symbol))
}

// ImportSignatureMismatchError is returned when an import's declared
// signature differs from the exporting definition's.
type ImportSignatureMismatchError struct {
	Module sailar.ModuleIdentifier
	Symbol sailar.Identifier
}

func (e *ImportSignatureMismatchError) Error() string {
	return fmt.Sprintf("function %q imported from module %s has a mismatched signature",
		string(e.Symbol), e.Module)
}
