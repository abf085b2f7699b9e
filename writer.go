// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package sailar

import (
	"errors"
	"io"
)

// errLengthOverflow signals that a length or index does not fit the width
// currently being tried; the writer retries the emission one width up.
var errLengthOverflow = errors.New("length does not fit the current integer size")

// emitter appends length-size-aware output to a rented buffer.
type emitter struct {
	buf  *RentedBuffer
	size LengthSize
}

func (e *emitter) writeByte(b byte) {
	e.buf.data = append(e.buf.data, b)
}

func (e *emitter) writeBytes(p []byte) {
	e.buf.data = append(e.buf.data, p...)
}

func (e *emitter) writeLength(n int) error {
	data, err := e.size.appendLength(e.buf.data, n)
	if err != nil {
		return err
	}
	e.buf.data = data
	return nil
}

// writeIdentifier writes a length-prefixed identifier. Hidden definition
// symbols are written as a zero length.
func (e *emitter) writeIdentifier(id Identifier) error {
	if err := e.writeLength(id.Len()); err != nil {
		return err
	}
	e.writeBytes([]byte(id))
	return nil
}

func (e *emitter) writeConstant(c IntegerConstant) {
	e.writeByte(byte(c.Type().Code()))
	e.buf.data = c.appendBytes(e.buf.data)
}

func (e *emitter) writeValue(v Value) error {
	if v.IsConstant() {
		e.writeByte(1)
		e.writeConstant(v.Constant())
		return nil
	}
	e.writeByte(0)
	return e.writeLength(int(v.Register()))
}

func (e *emitter) writeInstruction(instr Instruction) error {
	e.writeByte(byte(instr.Opcode()))
	switch instr := instr.(type) {
	case Nop, Break:
		return nil
	case Ret:
		if err := e.writeLength(len(instr.Values)); err != nil {
			return err
		}
		for _, value := range instr.Values {
			if err := e.writeValue(value); err != nil {
				return err
			}
		}
		return nil
	case ConstI:
		e.writeConstant(instr.Constant)
		return nil
	case Add:
		return e.writeArithmetic(instr.Behavior, instr.X, instr.Y)
	case Sub:
		return e.writeArithmetic(instr.Behavior, instr.X, instr.Y)
	case Mul:
		return e.writeArithmetic(instr.Behavior, instr.X, instr.Y)
	case Call:
		if err := e.writeLength(int(instr.Callee)); err != nil {
			return err
		}
		if err := e.writeLength(len(instr.Arguments)); err != nil {
			return err
		}
		for _, argument := range instr.Arguments {
			if err := e.writeValue(argument); err != nil {
				return err
			}
		}
		return nil
	default:
		return &InvalidOpcodeError{Value: uint8(instr.Opcode())}
	}
}

func (e *emitter) writeArithmetic(behavior OverflowBehavior, x, y Value) error {
	e.writeByte(uint8(behavior))
	if err := e.writeValue(x); err != nil {
		return err
	}
	return e.writeValue(y)
}

// writeSection writes a size-prefixed section containing count records
// produced by fill. An empty section is just a zero size.
func (e *emitter) writeSection(pool *BufferPool, count int, fill func(*emitter) error) error {
	if count == 0 {
		return e.writeLength(0)
	}

	sub := pool.Rent()
	defer sub.Return()
	se := &emitter{buf: sub, size: e.size}
	if err := fill(se); err != nil {
		return err
	}

	if err := e.writeLength(sub.Len()); err != nil {
		return err
	}
	if err := e.writeLength(count); err != nil {
		return err
	}
	e.writeBytes(sub.Bytes())
	return nil
}

// writeBlob writes a size-prefixed blob with no record count, used for
// the header, instruction buffers and the entry point field.
func (e *emitter) writeBlob(pool *BufferPool, fill func(*emitter) error) error {
	sub := pool.Rent()
	defer sub.Return()
	se := &emitter{buf: sub, size: e.size}
	if err := fill(se); err != nil {
		return err
	}

	if err := e.writeLength(sub.Len()); err != nil {
		return err
	}
	e.writeBytes(sub.Bytes())
	return nil
}

// Write serializes the module. Given the same module, the output is bit
// identical across calls. The pool may be nil.
func (m *Module) Write(w io.Writer, pool *BufferPool) error {
	buffer := pool.RentCapacity(512)
	defer buffer.Return()
	if err := m.emitTo(buffer, pool); err != nil {
		return err
	}
	_, err := w.Write(buffer.Bytes())
	return err
}

// emitTo serializes the module into out, starting at the module's current
// length size and retrying one width up whenever a length or index fails
// to fit, so that the recorded width is the smallest sufficient one.
func (m *Module) emitTo(out *RentedBuffer, pool *BufferPool) error {
	size := m.lengthSize
	for {
		out.data = out.data[:0]
		err := m.emit(out, pool, size)
		if err == nil {
			return nil
		}
		if !errors.Is(err, errLengthOverflow) {
			return err
		}
		next, ok := size.next()
		if !ok {
			return ErrUnsupportedIntegerSize
		}
		size = next
	}
}

func (m *Module) emit(out *RentedBuffer, pool *BufferPool, size LengthSize) error {
	e := &emitter{buf: out, size: size}

	e.writeBytes(Magic[:])
	e.writeByte(m.formatVersion.Major)
	e.writeByte(m.formatVersion.Minor)
	e.writeByte(size.Tag())

	// Header. A zero size marks an anonymous module.
	if m.identifier == nil {
		if err := e.writeLength(0); err != nil {
			return err
		}
	} else {
		err := e.writeBlob(pool, func(e *emitter) error {
			if err := e.writeIdentifier(m.identifier.Name); err != nil {
				return err
			}
			if err := e.writeLength(len(m.identifier.Version)); err != nil {
				return err
			}
			for _, n := range m.identifier.Version {
				if err := e.writeLength(int(n)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	identifiers := m.identifiers.ordered()
	err := e.writeSection(pool, len(identifiers), func(e *emitter) error {
		for _, id := range identifiers {
			if err := e.writeIdentifier(id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	types := m.typeSignatures.ordered()
	err = e.writeSection(pool, len(types), func(e *emitter) error {
		for _, t := range types {
			e.writeByte(uint8(t.Code()))
		}
		return nil
	})
	if err != nil {
		return err
	}

	signatures := m.functionSignatures.ordered()
	err = e.writeSection(pool, len(signatures), func(e *emitter) error {
		for _, signature := range signatures {
			if err := e.writeLength(len(signature.ResultTypes)); err != nil {
				return err
			}
			if err := e.writeLength(len(signature.ParameterTypes)); err != nil {
				return err
			}
			for _, index := range signature.ResultTypes {
				if err := e.writeLength(int(index)); err != nil {
					return err
				}
			}
			for _, index := range signature.ParameterTypes {
				if err := e.writeLength(int(index)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Data section, reserved.
	if err := e.writeLength(0); err != nil {
		return err
	}

	err = e.writeSection(pool, len(m.codeBlocks), func(e *emitter) error {
		for _, block := range m.codeBlocks {
			if err := e.writeCodeBlock(pool, block); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = e.writeSection(pool, len(m.moduleImports), func(e *emitter) error {
		for _, imported := range m.moduleImports {
			if err := e.writeIdentifier(imported.Identifier.Name); err != nil {
				return err
			}
			if err := e.writeLength(len(imported.Identifier.Version)); err != nil {
				return err
			}
			for _, n := range imported.Identifier.Version {
				if err := e.writeLength(int(n)); err != nil {
					return err
				}
			}
		}
		if err := e.writeLength(len(m.functionImports)); err != nil {
			return err
		}
		for _, imported := range m.functionImports {
			if err := e.writeLength(int(imported.Module)); err != nil {
				return err
			}
			if err := e.writeIdentifier(imported.Symbol); err != nil {
				return err
			}
			if err := e.writeLength(int(imported.Signature)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = e.writeSection(pool, len(m.definitions), func(e *emitter) error {
		for _, definition := range m.definitions {
			e.writeByte(definition.Flags())
			if err := e.writeLength(int(definition.Signature)); err != nil {
				return err
			}
			if err := e.writeIdentifier(definition.Symbol); err != nil {
				return err
			}
			if foreign := definition.Body.Foreign; foreign != nil {
				if err := e.writeLength(int(foreign.Library)); err != nil {
					return err
				}
				if err := e.writeIdentifier(foreign.EntryPoint); err != nil {
					return err
				}
			} else {
				if err := e.writeLength(int(definition.Body.Block)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = e.writeSection(pool, len(m.instantiations), func(e *emitter) error {
		for _, instantiation := range m.instantiations {
			e.writeByte(uint8(instantiation.Template.Kind))
			if err := e.writeLength(instantiation.Template.Index); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if m.entryPoint == nil {
		if err := e.writeLength(0); err != nil {
			return err
		}
	} else {
		err := e.writeBlob(pool, func(e *emitter) error {
			return e.writeLength(int(*m.entryPoint))
		})
		if err != nil {
			return err
		}
	}

	// Namespace and debugging sections, reserved.
	if err := e.writeLength(0); err != nil {
		return err
	}
	return e.writeLength(0)
}

func (e *emitter) writeCodeBlock(pool *BufferPool, block CodeBlockRecord) error {
	if err := e.writeLength(block.InputCount); err != nil {
		return err
	}
	if err := e.writeLength(block.ResultCount); err != nil {
		return err
	}
	if err := e.writeLength(block.TemporaryCount); err != nil {
		return err
	}
	for _, index := range block.RegisterTypes {
		if err := e.writeLength(int(index)); err != nil {
			return err
		}
	}
	return e.writeBlob(pool, func(e *emitter) error {
		for _, instr := range block.Instructions {
			if err := e.writeInstruction(instr); err != nil {
				return err
			}
		}
		return nil
	})
}
