// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package sailar

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ParseError is the error type returned by Parse. It carries the byte
// offset into the source at which parsing failed.
type ParseError struct {
	Offset int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("error at offset %#X, %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// InvalidMagicError is returned when a source does not begin with the
// SAILAR magic bytes.
type InvalidMagicError struct {
	Actual []byte
}

func (e *InvalidMagicError) Error() string {
	return fmt.Sprintf("expected magic % X, but got % X", Magic[:], e.Actual)
}

// UnsupportedFormatVersionError is returned for modules older than the
// minimum supported format version.
type UnsupportedFormatVersionError struct {
	Version FormatVersion
}

func (e *UnsupportedFormatVersionError) Error() string {
	return fmt.Sprintf("format version %d.%d is below the minimum supported %d.%d",
		e.Version.Major, e.Version.Minor,
		MinimumFormatVersion.Major, MinimumFormatVersion.Minor)
}

// LengthTooLargeError is returned when a four byte length value does not
// fit the platform's int.
type LengthTooLargeError struct {
	Value uint32
}

func (e *LengthTooLargeError) Error() string {
	return fmt.Sprintf("the length value %d is too large and cannot be used", e.Value)
}

// InvalidTemplateKindError is returned for an unknown function template
// kind byte in an instantiation record.
type InvalidTemplateKindError struct {
	Value uint8
}

func (e *InvalidTemplateKindError) Error() string {
	return fmt.Sprintf("%#02X is not a valid function template kind", e.Value)
}

// invalidValueFlagError reports an unknown operand flag byte.
type invalidValueFlagError struct {
	value uint8
}

func (e *invalidValueFlagError) Error() string {
	return fmt.Sprintf("%#02X is not a valid value flag", e.value)
}

// reader tracks a byte offset while decoding length-size-aware input.
type reader struct {
	src    io.Reader
	offset int
	size   LengthSize
}

func (r *reader) fail(err error) error {
	var parseError *ParseError
	if errors.As(err, &parseError) {
		return err
	}
	return &ParseError{Offset: r.offset, Err: err}
}

func (r *reader) eof(what string) error {
	return r.fail(fmt.Errorf("expected %s but got EOF", what))
}

// read fills p, failing with an EOF diagnostic naming what when the
// source is exhausted.
func (r *reader) read(p []byte, what string) error {
	n, err := io.ReadFull(r.src, p)
	r.offset += n
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return r.eof(what)
		}
		return r.fail(err)
	}
	return nil
}

func (r *reader) readByte(what string) (byte, error) {
	var buffer [1]byte
	if err := r.read(buffer[:], what); err != nil {
		return 0, err
	}
	return buffer[0], nil
}

func (r *reader) readLength(what string) (int, error) {
	var buffer [4]byte
	p := buffer[:r.size]
	if err := r.read(p, what); err != nil {
		return 0, err
	}
	value, _, ok := r.size.decodeLength(p)
	if !ok {
		var wide uint32
		for i := len(p) - 1; i >= 0; i-- {
			wide = wide<<8 | uint32(p[i])
		}
		return 0, r.fail(&LengthTooLargeError{Value: wide})
	}
	return value, nil
}

// readSizeAndCount reads a section's byte size and, when the size is non
// zero, its record count.
func (r *reader) readSizeAndCount(section string) (int, int, error) {
	size, err := r.readLength("byte size of " + section)
	if err != nil {
		return 0, 0, err
	}
	if size == 0 {
		return 0, 0, nil
	}
	count, err := r.readLength(section + " count")
	if err != nil {
		return 0, 0, err
	}
	return size, count, nil
}

// parseBuffer reads length bytes into a rented buffer and hands a reader
// over them to parse, bounding parser state on malformed sizes.
func (r *reader) parseBuffer(pool *BufferPool, length int, what string, parse func(*reader) error) error {
	buffer := pool.RentCapacity(length)
	defer buffer.Return()
	buffer.data = buffer.data[:length]

	start := r.offset
	if err := r.read(buffer.data, what); err != nil {
		return err
	}

	sub := &reader{src: bytes.NewReader(buffer.data), offset: start, size: r.size}
	return parse(sub)
}

func (r *reader) readIdentifier(what string) (Identifier, error) {
	id, err := r.readOptionalIdentifier(what)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", r.fail(ErrEmptyIdentifier)
	}
	return id, nil
}

// readOptionalIdentifier allows a zero length, used for hidden definition
// symbols.
func (r *reader) readOptionalIdentifier(what string) (Identifier, error) {
	length, err := r.readLength("length of " + what)
	if err != nil {
		return "", err
	}
	if length == 0 {
		return "", nil
	}
	buffer := make([]byte, length)
	if err := r.read(buffer, what); err != nil {
		return "", err
	}
	id, err := IdentifierFromBytes(buffer)
	if err != nil {
		return "", r.fail(err)
	}
	return id, nil
}

func (r *reader) readVersionNumbers() ([]uint32, error) {
	count, err := r.readLength("module version length")
	if err != nil {
		return nil, err
	}
	version := make([]uint32, count)
	for i := range version {
		n, err := r.readLength(fmt.Sprintf("module version number #%d", i))
		if err != nil {
			return nil, err
		}
		version[i] = uint32(n)
	}
	return version, nil
}

func (r *reader) readConstant() (IntegerConstant, error) {
	tag, err := r.readByte("integer constant type")
	if err != nil {
		return IntegerConstant{}, err
	}
	typ, err := TypeFromCode(TypeCode(tag))
	if err != nil {
		return IntegerConstant{}, r.fail(err)
	}
	width := typ.FixedWidth()
	if !typ.IsInteger() || width == 0 {
		return IntegerConstant{}, r.fail(&InvalidTypeCodeError{Value: tag})
	}

	var buffer [8]byte
	if err := r.read(buffer[:width], "integer constant value"); err != nil {
		return IntegerConstant{}, err
	}
	var bits uint64
	for i := width - 1; i >= 0; i-- {
		bits = bits<<8 | uint64(buffer[i])
	}
	if typ.IsSigned() && width < 8 && buffer[width-1]&0x80 != 0 {
		// Sign extend.
		bits |= ^uint64(0) << (width * 8)
	}
	return IntegerConstant{typ: typ, bits: bits}, nil
}

func (r *reader) readValue() (Value, error) {
	flag, err := r.readByte("value flag")
	if err != nil {
		return Value{}, err
	}
	switch flag {
	case 0:
		index, err := r.readLength("register index")
		if err != nil {
			return Value{}, err
		}
		return RegisterValue(RegisterIndex(index)), nil
	case 1:
		constant, err := r.readConstant()
		if err != nil {
			return Value{}, err
		}
		return ConstantValue(constant), nil
	default:
		return Value{}, r.fail(&invalidValueFlagError{value: flag})
	}
}

func (r *reader) readValues(count int, what string) ([]Value, error) {
	values := make([]Value, count)
	for i := range values {
		value, err := r.readValue()
		if err != nil {
			return nil, err
		}
		values[i] = value
	}
	return values, nil
}

func (r *reader) readInstruction() (Instruction, error) {
	opcode, err := r.readByte("opcode")
	if err != nil {
		return nil, err
	}

	switch Opcode(opcode) {
	case OpcodeNop:
		return Nop{}, nil
	case OpcodeBreak:
		return Break{}, nil
	case OpcodeRet:
		count, err := r.readLength("return value count")
		if err != nil {
			return nil, err
		}
		values, err := r.readValues(count, "return value")
		if err != nil {
			return nil, err
		}
		return Ret{Values: values}, nil
	case OpcodeConstI:
		constant, err := r.readConstant()
		if err != nil {
			return nil, err
		}
		return ConstI{Constant: constant}, nil
	case OpcodeAdd, OpcodeSub, OpcodeMul:
		behaviorByte, err := r.readByte("overflow behavior")
		if err != nil {
			return nil, err
		}
		behavior, err := overflowBehaviorFromByte(behaviorByte)
		if err != nil {
			return nil, r.fail(err)
		}
		x, err := r.readValue()
		if err != nil {
			return nil, err
		}
		y, err := r.readValue()
		if err != nil {
			return nil, err
		}
		switch Opcode(opcode) {
		case OpcodeAdd:
			return Add{Behavior: behavior, X: x, Y: y}, nil
		case OpcodeSub:
			return Sub{Behavior: behavior, X: x, Y: y}, nil
		default:
			return Mul{Behavior: behavior, X: x, Y: y}, nil
		}
	case OpcodeCall:
		callee, err := r.readLength("callee instantiation index")
		if err != nil {
			return nil, err
		}
		count, err := r.readLength("call argument count")
		if err != nil {
			return nil, err
		}
		arguments, err := r.readValues(count, "call argument")
		if err != nil {
			return nil, err
		}
		return Call{Callee: InstantiationIndex(callee), Arguments: arguments}, nil
	default:
		return nil, r.fail(&InvalidOpcodeError{Value: opcode})
	}
}

// Parse reads a module from src. Errors carry the byte offset at which
// parsing halted. The pool may be nil.
func Parse(src io.Reader, pool *BufferPool) (*Module, error) {
	r := &reader{src: src, size: LengthSizeOne}

	{
		magic := make([]byte, len(Magic))
		n, err := io.ReadAtLeast(r.src, magic, len(magic))
		r.offset += n
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, r.fail(err)
		}
		if !bytes.Equal(magic[:n], Magic[:]) {
			return nil, &ParseError{Offset: 0, Err: &InvalidMagicError{Actual: magic[:n]}}
		}
	}

	m := NewAnonymousModule()

	{
		major, err := r.readByte("format version")
		if err != nil {
			return nil, err
		}
		minor, err := r.readByte("format version")
		if err != nil {
			return nil, err
		}
		m.formatVersion = FormatVersion{Major: major, Minor: minor}
		if !m.formatVersion.IsSupported() {
			return nil, r.fail(&UnsupportedFormatVersionError{Version: m.formatVersion})
		}

		tag, err := r.readByte("length size value")
		if err != nil {
			return nil, err
		}
		size, err := lengthSizeFromTag(tag)
		if err != nil {
			return nil, r.fail(err)
		}
		r.size = size
		m.lengthSize = size
	}

	if err := parseHeader(r, pool, m); err != nil {
		return nil, err
	}
	if err := parseIdentifiers(r, pool, m); err != nil {
		return nil, err
	}
	if err := parseTypeSignatures(r, pool, m); err != nil {
		return nil, err
	}
	if err := parseFunctionSignatures(r, pool, m); err != nil {
		return nil, err
	}
	if err := skipSection(r, pool, "data"); err != nil {
		return nil, err
	}
	if err := parseCodeBlocks(r, pool, m); err != nil {
		return nil, err
	}
	if err := parseImports(r, pool, m); err != nil {
		return nil, err
	}
	if err := parseDefinitions(r, pool, m); err != nil {
		return nil, err
	}
	if err := parseInstantiations(r, pool, m); err != nil {
		return nil, err
	}
	if err := parseEntryPoint(r, pool, m); err != nil {
		return nil, err
	}
	if err := skipSection(r, pool, "namespaces"); err != nil {
		return nil, err
	}
	if err := skipSection(r, pool, "debugging information"); err != nil {
		return nil, err
	}

	return m, nil
}

// FromBytes parses a module contained in a byte slice.
func FromBytes(data []byte, pool *BufferPool) (*Module, error) {
	return Parse(bytes.NewReader(data), pool)
}

func parseHeader(r *reader, pool *BufferPool, m *Module) error {
	size, err := r.readLength("size of module header")
	if err != nil {
		return err
	}
	if size == 0 {
		// Anonymous module.
		return nil
	}
	return r.parseBuffer(pool, size, "module header", func(r *reader) error {
		name, err := r.readIdentifier("module name")
		if err != nil {
			return err
		}
		version, err := r.readVersionNumbers()
		if err != nil {
			return err
		}
		m.identifier = &ModuleIdentifier{Name: name, Version: version}
		return nil
	})
}

func parseIdentifiers(r *reader, pool *BufferPool, m *Module) error {
	size, count, err := r.readSizeAndCount("identifiers")
	if err != nil || size == 0 {
		return err
	}
	return r.parseBuffer(pool, size, "identifiers", func(r *reader) error {
		for i := 0; i < count; i++ {
			id, err := r.readIdentifier(fmt.Sprintf("identifier #%d", i))
			if err != nil {
				return err
			}
			m.identifiers.append(id)
		}
		return nil
	})
}

func parseTypeSignatures(r *reader, pool *BufferPool, m *Module) error {
	size, count, err := r.readSizeAndCount("type signatures")
	if err != nil || size == 0 {
		return err
	}
	return r.parseBuffer(pool, size, "type signatures", func(r *reader) error {
		for i := 0; i < count; i++ {
			tag, err := r.readByte(fmt.Sprintf("type signature #%d", i))
			if err != nil {
				return err
			}
			t, err := TypeFromCode(TypeCode(tag))
			if err != nil {
				return r.fail(err)
			}
			m.typeSignatures.append(t)
		}
		return nil
	})
}

func parseFunctionSignatures(r *reader, pool *BufferPool, m *Module) error {
	size, count, err := r.readSizeAndCount("function signatures")
	if err != nil || size == 0 {
		return err
	}
	return r.parseBuffer(pool, size, "function signatures", func(r *reader) error {
		for i := 0; i < count; i++ {
			resultCount, err := r.readLength("result count")
			if err != nil {
				return err
			}
			parameterCount, err := r.readLength("parameter count")
			if err != nil {
				return err
			}
			record := FunctionSignatureRecord{
				ResultTypes:    make([]TypeIndex, resultCount),
				ParameterTypes: make([]TypeIndex, parameterCount),
			}
			for j := range record.ResultTypes {
				index, err := r.readLength("result type index")
				if err != nil {
					return err
				}
				record.ResultTypes[j] = TypeIndex(index)
			}
			for j := range record.ParameterTypes {
				index, err := r.readLength("parameter type index")
				if err != nil {
					return err
				}
				record.ParameterTypes[j] = TypeIndex(index)
			}
			m.functionSignatures.append(record)
		}
		return nil
	})
}

func skipSection(r *reader, pool *BufferPool, section string) error {
	size, err := r.readLength("byte size of " + section)
	if err != nil || size == 0 {
		return err
	}
	return r.parseBuffer(pool, size, section, func(*reader) error { return nil })
}

func parseCodeBlocks(r *reader, pool *BufferPool, m *Module) error {
	size, count, err := r.readSizeAndCount("code blocks")
	if err != nil || size == 0 {
		return err
	}
	return r.parseBuffer(pool, size, "code blocks", func(r *reader) error {
		for i := 0; i < count; i++ {
			block, err := parseCodeBlock(r, pool, i)
			if err != nil {
				return err
			}
			m.codeBlocks = append(m.codeBlocks, block)
		}
		return nil
	})
}

func parseCodeBlock(r *reader, pool *BufferPool, index int) (CodeBlockRecord, error) {
	what := fmt.Sprintf("code block #%d", index)
	block := CodeBlockRecord{}
	var err error
	if block.InputCount, err = r.readLength(what + " input count"); err != nil {
		return block, err
	}
	if block.ResultCount, err = r.readLength(what + " result count"); err != nil {
		return block, err
	}
	if block.TemporaryCount, err = r.readLength(what + " temporary count"); err != nil {
		return block, err
	}

	total := block.InputCount + block.ResultCount + block.TemporaryCount
	block.RegisterTypes = make([]TypeIndex, total)
	for i := range block.RegisterTypes {
		typeIndex, err := r.readLength("register type index")
		if err != nil {
			return block, err
		}
		block.RegisterTypes[i] = TypeIndex(typeIndex)
	}

	instructionSize, err := r.readLength(what + " instruction buffer size")
	if err != nil {
		return block, err
	}
	err = r.parseBuffer(pool, instructionSize, what+" instructions", func(r *reader) error {
		end := r.offset + instructionSize
		for r.offset < end {
			instr, err := r.readInstruction()
			if err != nil {
				return err
			}
			block.Instructions = append(block.Instructions, instr)
		}
		return nil
	})
	return block, err
}

func parseImports(r *reader, pool *BufferPool, m *Module) error {
	size, count, err := r.readSizeAndCount("imports")
	if err != nil || size == 0 {
		return err
	}
	return r.parseBuffer(pool, size, "imports", func(r *reader) error {
		for i := 0; i < count; i++ {
			name, err := r.readIdentifier(fmt.Sprintf("imported module #%d name", i))
			if err != nil {
				return err
			}
			version, err := r.readVersionNumbers()
			if err != nil {
				return err
			}
			identifier := ModuleIdentifier{Name: name, Version: version}
			if m.moduleImportKeys == nil {
				m.moduleImportKeys = make(map[string]ModuleImportIndex)
			}
			m.moduleImportKeys[identifier.Key()] = ModuleImportIndex(len(m.moduleImports))
			m.moduleImports = append(m.moduleImports, ModuleImportRecord{Identifier: identifier})
		}

		functionCount, err := r.readLength("function import count")
		if err != nil {
			return err
		}
		for i := 0; i < functionCount; i++ {
			moduleIndex, err := r.readLength("imported module index")
			if err != nil {
				return err
			}
			symbol, err := r.readIdentifier(fmt.Sprintf("function import #%d symbol", i))
			if err != nil {
				return err
			}
			signature, err := r.readLength("function import signature index")
			if err != nil {
				return err
			}
			m.functionImports = append(m.functionImports, FunctionImportRecord{
				Module:    ModuleImportIndex(moduleIndex),
				Symbol:    symbol,
				Signature: FunctionSignatureIndex(signature),
			})
		}
		return nil
	})
}

func parseDefinitions(r *reader, pool *BufferPool, m *Module) error {
	size, count, err := r.readSizeAndCount("function definitions")
	if err != nil || size == 0 {
		return err
	}
	return r.parseBuffer(pool, size, "function definitions", func(r *reader) error {
		for i := 0; i < count; i++ {
			flags, err := r.readByte(fmt.Sprintf("function definition #%d flags", i))
			if err != nil {
				return err
			}
			signature, err := r.readLength("function signature index")
			if err != nil {
				return err
			}
			symbol, err := r.readOptionalIdentifier("function symbol")
			if err != nil {
				return err
			}

			record := FunctionDefinitionRecord{
				Signature: FunctionSignatureIndex(signature),
				Symbol:    symbol,
			}
			switch {
			case flags&FunctionFlagExport != 0:
				record.Visibility = VisibilityExport
			case symbol == "":
				record.Visibility = VisibilityHidden
			default:
				record.Visibility = VisibilityPrivate
			}

			if flags&FunctionFlagForeign != 0 {
				library, err := r.readLength("foreign library identifier index")
				if err != nil {
					return err
				}
				entryPoint, err := r.readIdentifier("foreign entry point")
				if err != nil {
					return err
				}
				record.Body.Foreign = &ForeignBodyRecord{
					Library:    IdentifierIndex(library),
					EntryPoint: entryPoint,
				}
			} else {
				block, err := r.readLength("entry block index")
				if err != nil {
					return err
				}
				record.Body.Block = CodeBlockIndex(block)
			}

			// The first definition wins on duplicate symbols; the
			// loader reports the conflict.
			_ = m.symbols.insert(record.Symbol, len(m.definitions), record.Visibility)
			m.definitions = append(m.definitions, record)
		}
		return nil
	})
}

func parseInstantiations(r *reader, pool *BufferPool, m *Module) error {
	size, count, err := r.readSizeAndCount("function instantiations")
	if err != nil || size == 0 {
		return err
	}
	return r.parseBuffer(pool, size, "function instantiations", func(r *reader) error {
		for i := 0; i < count; i++ {
			kind, err := r.readByte(fmt.Sprintf("function instantiation #%d template kind", i))
			if err != nil {
				return err
			}
			if kind != uint8(TemplateDefinition) && kind != uint8(TemplateImport) {
				return r.fail(&InvalidTemplateKindError{Value: kind})
			}
			index, err := r.readLength("function template index")
			if err != nil {
				return err
			}
			m.instantiations = append(m.instantiations, FunctionInstantiationRecord{
				Template: TemplateRef{Kind: TemplateKind(kind), Index: index},
			})
		}
		return nil
	})
}

func parseEntryPoint(r *reader, pool *BufferPool, m *Module) error {
	size, err := r.readLength("byte size of entry point")
	if err != nil || size == 0 {
		return err
	}
	return r.parseBuffer(pool, size, "entry point", func(r *reader) error {
		index, err := r.readLength("entry point instantiation index")
		if err != nil {
			return err
		}
		entryPoint := InstantiationIndex(index)
		m.entryPoint = &entryPoint
		return nil
	})
}
