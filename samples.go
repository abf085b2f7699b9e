// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package sailar

// ExitWith builds a sample module containing an exported entry point
// function named "main" that returns the given exit code.
func ExitWith(name Identifier, exitCode int32) (*Module, error) {
	module := NewModule(name, []uint32{1, 0})

	signature := NewSignature([]Type{TypeS32}, nil)
	builder := NewBlockBuilder([]Type{TypeS32}, nil)
	block, err := builder.EmitRet(ConstS32(exitCode))
	if err != nil {
		return nil, err
	}

	main, err := module.AddFunction(MustIdentifier("main"), signature, DefinedBody(block), VisibilityExport)
	if err != nil {
		return nil, err
	}

	module.SetEntryPoint(module.AddInstantiation(main))
	return module, nil
}
