// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package parser streams Component-Model binary sections into the
// type/value model of package component, mirroring the state-machine
// shape of a core-Wasm section decoder but specialized to sections
// 1..12 of the Component Model binary format.
package parser

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/pulseengine/wrt-go/component"
)

// Section IDs for Component-Model sections, per §4.3.
const (
	SectionCoreModule    = 1
	SectionCoreInstance  = 2
	SectionCoreType      = 3
	SectionComponent     = 4
	SectionInstance      = 5
	SectionAlias         = 6
	SectionType          = 7
	SectionCanon         = 8
	SectionStart         = 9
	SectionImport        = 10
	SectionExport        = 11
	SectionValue         = 12
)

// State is the parser's current position in the Component Model's
// nesting structure.
type State uint8

const (
	StateCore State = iota
	StateTypes
	StateInterface
	StateComponent
	StateNestedComponent
)

func (s State) String() string {
	switch s {
	case StateCore:
		return "Core"
	case StateTypes:
		return "Types"
	case StateInterface:
		return "Interface"
	case StateComponent:
		return "Component"
	case StateNestedComponent:
		return "NestedComponent"
	default:
		return "Unknown"
	}
}

// ParseError is returned for any malformed input: bad LEB128, a
// section claiming more bytes than remain, invalid UTF-8 in a name, or
// an unregistered type reference.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parser: %s", e.Reason)
}

// Import is one parsed component-level import: a name plus the
// runtime type it names.
type Import struct {
	Name string
	Type component.ValTypeRef
}

// Export is one parsed component-level export.
type Export struct {
	Name string
	Type component.ValTypeRef
}

// CoreModule holds an embedded core module's raw bytes, deferred for a
// nested core-Wasm parser invocation the caller supplies.
type CoreModule struct {
	Bytes []byte
}

// NestedComponent holds a nested component's raw bytes, stored rather
// than recursively decoded, per §4.3.
type NestedComponent struct {
	Bytes []byte
	Depth int
}

// Decoded accumulates everything a parsing pass has produced.
type Decoded struct {
	Types            []component.ValTypeRef
	Imports          []Import
	Exports          []Export
	CoreModules      []CoreModule
	NestedComponents []NestedComponent
	StartFuncIdx     uint32
	HasStart         bool
}

// Parser streams Component-Model sections, maintaining nesting state
// and a TypeStore shared with the rest of the decode.
type Parser struct {
	store *component.TypeStore
	state State
	depth int

	out Decoded
}

// New returns a parser backed by store, which receives every decoded
// type.
func New(store *component.TypeStore) *Parser {
	return &Parser{store: store, state: StateCore}
}

// State reports the parser's current nesting state.
func (p *Parser) State() State { return p.state }

// Result returns everything decoded so far.
func (p *Parser) Result() Decoded { return p.out }

// updateState advances the state machine based on which section was
// just begun, per §4.3's "transitions are driven by which section was
// just begun" rule.
func (p *Parser) updateState(sectionID uint8) {
	switch sectionID {
	case SectionType:
		p.state = StateTypes
	case SectionImport, SectionExport:
		p.state = StateInterface
	case SectionComponent:
		p.depth++
		p.state = StateNestedComponent
	case SectionCoreModule, SectionCoreInstance, SectionCoreType:
		p.state = StateCore
	case SectionInstance, SectionAlias, SectionCanon, SectionStart, SectionValue:
		p.state = StateComponent
	}
}

// ParseSection decodes one section's payload. Unknown section IDs
// outside 1..12 are skipped, not rejected.
func (p *Parser) ParseSection(sectionID uint8, data []byte) error {
	p.updateState(sectionID)

	switch sectionID {
	case SectionType:
		return p.parseTypeSection(data)
	case SectionImport:
		return p.parseImportSection(data)
	case SectionExport:
		return p.parseExportSection(data)
	case SectionStart:
		return p.parseStartSection(data)
	case SectionCoreModule:
		return p.parseCoreModuleSection(data)
	case SectionComponent:
		return p.parseNestedComponentSection(data)
	case SectionCoreInstance, SectionCoreType, SectionInstance, SectionAlias, SectionCanon, SectionValue:
		// Structurally present but not modeled beyond the type/value
		// registry this parser feeds; only the leading count is read
		// and the payload is neither interpreted nor checked.
		return p.skipCountedSection(data)
	default:
		return nil
	}
}

type byteCursor struct {
	data []byte
	off  int
}

func (c *byteCursor) remaining() int { return len(c.data) - c.off }

func (c *byteCursor) readUvarint() (uint64, int, error) {
	if c.remaining() == 0 {
		return 0, 0, &ParseError{Reason: "unexpected end of section reading varint"}
	}
	v, n := binary.Uvarint(c.data[c.off:])
	if n <= 0 {
		return 0, 0, &ParseError{Reason: "malformed LEB128 varint"}
	}
	c.off += n
	return v, n, nil
}

func (c *byteCursor) readBytes(n uint64) ([]byte, error) {
	if n > uint64(c.remaining()) {
		return nil, &ParseError{Reason: "section declares more bytes than remain"}
	}
	b := c.data[c.off : c.off+int(n)]
	c.off += int(n)
	return b, nil
}

func (c *byteCursor) readString() (string, error) {
	n, _, err := c.readUvarint()
	if err != nil {
		return "", err
	}
	b, err := c.readBytes(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", &ParseError{Reason: "invalid UTF-8 in name"}
	}
	return string(b), nil
}

// readValType decodes a minimal inline ValType encoding: a single kind
// byte for primitives (the common case arriving from a type section
// entry already resolved against the component value model); composite
// kinds are not re-derived here since the full wire grammar for them is
// owned by component/convert's Resolver-based path once a complete
// local type table exists.
func (c *byteCursor) readValType() (component.ValType, error) {
	if c.remaining() == 0 {
		return component.ValType{}, &ParseError{Reason: "unexpected end of section reading type"}
	}
	kind := component.Kind(c.data[c.off])
	c.off++
	if !kind.IsPrimitive() && kind != component.KindVoid {
		return component.ValType{}, &ParseError{Reason: fmt.Sprintf("composite type kind %d requires the resolver-based decode path", kind)}
	}
	return component.ValType{Kind: kind}, nil
}

func (p *Parser) parseTypeSection(data []byte) error {
	c := &byteCursor{data: data}
	count, _, err := c.readUvarint()
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		vt, err := c.readValType()
		if err != nil {
			return err
		}
		ref, err := p.store.Register(vt)
		if err != nil {
			return err
		}
		p.out.Types = append(p.out.Types, ref)
	}
	return nil
}

func (p *Parser) parseImportSection(data []byte) error {
	c := &byteCursor{data: data}
	count, _, err := c.readUvarint()
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		name, err := c.readString()
		if err != nil {
			return err
		}
		typeIdx, _, err := c.readUvarint()
		if err != nil {
			return err
		}
		ref, err := p.typeRefAt(typeIdx)
		if err != nil {
			return err
		}
		p.out.Imports = append(p.out.Imports, Import{Name: name, Type: ref})
	}
	return nil
}

func (p *Parser) parseExportSection(data []byte) error {
	c := &byteCursor{data: data}
	count, _, err := c.readUvarint()
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		name, err := c.readString()
		if err != nil {
			return err
		}
		typeIdx, _, err := c.readUvarint()
		if err != nil {
			return err
		}
		ref, err := p.typeRefAt(typeIdx)
		if err != nil {
			return err
		}
		p.out.Exports = append(p.out.Exports, Export{Name: name, Type: ref})
	}
	return nil
}

func (p *Parser) parseStartSection(data []byte) error {
	c := &byteCursor{data: data}
	idx, _, err := c.readUvarint()
	if err != nil {
		return err
	}
	p.out.StartFuncIdx = uint32(idx)
	p.out.HasStart = true
	return nil
}

func (p *Parser) parseCoreModuleSection(data []byte) error {
	c := &byteCursor{data: data}
	n, _, err := c.readUvarint()
	if err != nil {
		return err
	}
	b, err := c.readBytes(n)
	if err != nil {
		return err
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	p.out.CoreModules = append(p.out.CoreModules, CoreModule{Bytes: cp})
	return nil
}

func (p *Parser) parseNestedComponentSection(data []byte) error {
	c := &byteCursor{data: data}
	n, _, err := c.readUvarint()
	if err != nil {
		return err
	}
	b, err := c.readBytes(n)
	if err != nil {
		return err
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	p.out.NestedComponents = append(p.out.NestedComponents, NestedComponent{Bytes: cp, Depth: p.depth})
	p.depth--
	if p.depth <= 0 {
		p.depth = 0
		p.state = StateComponent
	}
	return nil
}

// skipCountedSection accepts a section this decoder doesn't project
// into its own structures. It reads only the leading count varint (an
// empty section is accepted); the items after it are not parsed and
// their byte lengths are not checked.
func (p *Parser) skipCountedSection(data []byte) error {
	c := &byteCursor{data: data}
	if c.remaining() == 0 {
		return nil
	}
	_, _, err := c.readUvarint()
	return err
}

// typeRefAt resolves a local type index into this parser's TypeStore.
// The Component Model's local indices and the TypeStore's append-only
// refs coincide as long as every type section is parsed before any
// section that references it, which ParseSection's caller is
// responsible for ordering (matching the format's own requirement that
// types precede their use).
func (p *Parser) typeRefAt(idx uint64) (component.ValTypeRef, error) {
	if idx >= uint64(len(p.out.Types)) {
		return 0, &ParseError{Reason: fmt.Sprintf("type index %d not yet registered", idx)}
	}
	return p.out.Types[idx], nil
}
