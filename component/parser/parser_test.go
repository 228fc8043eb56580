// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package parser

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulseengine/wrt-go/component"
)

func uvarint(v uint64) []byte {
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, v)
	return buf[:n]
}

func TestParseTypeSectionRegistersTypes(t *testing.T) {
	store := component.NewTypeStore()
	p := New(store)

	var data bytes.Buffer
	data.Write(uvarint(2)) // count
	data.WriteByte(byte(component.KindS32))
	data.WriteByte(byte(component.KindString))

	require.NoError(t, p.ParseSection(SectionType, data.Bytes()))
	require.Equal(t, StateTypes, p.State())

	result := p.Result()
	require.Len(t, result.Types, 2)

	t0, err := store.Resolve(result.Types[0])
	require.NoError(t, err)
	require.Equal(t, component.KindS32, t0.Kind)
}

func TestParseImportAndExportSections(t *testing.T) {
	store := component.NewTypeStore()
	p := New(store)

	var typeData bytes.Buffer
	typeData.Write(uvarint(1))
	typeData.WriteByte(byte(component.KindU32))
	require.NoError(t, p.ParseSection(SectionType, typeData.Bytes()))

	var importData bytes.Buffer
	importData.Write(uvarint(1))
	importData.Write(uvarint(uint64(len("count"))))
	importData.WriteString("count")
	importData.Write(uvarint(0))
	require.NoError(t, p.ParseSection(SectionImport, importData.Bytes()))
	require.Equal(t, StateInterface, p.State())

	result := p.Result()
	require.Len(t, result.Imports, 1)
	require.Equal(t, "count", result.Imports[0].Name)
}

func TestParseImportInvalidUTF8Fails(t *testing.T) {
	store := component.NewTypeStore()
	p := New(store)

	var importData bytes.Buffer
	importData.Write(uvarint(1))
	importData.Write(uvarint(2))
	importData.Write([]byte{0xff, 0xfe}) // invalid UTF-8
	importData.Write(uvarint(0))

	err := p.ParseSection(SectionImport, importData.Bytes())
	require.Error(t, err)
}

func TestParseSectionDeclaringTooManyBytesFails(t *testing.T) {
	store := component.NewTypeStore()
	p := New(store)

	var coreData bytes.Buffer
	coreData.Write(uvarint(100)) // claims 100 bytes, none present

	err := p.ParseSection(SectionCoreModule, coreData.Bytes())
	require.Error(t, err)
}

func TestUnknownSectionIDIsSkipped(t *testing.T) {
	store := component.NewTypeStore()
	p := New(store)

	err := p.ParseSection(200, []byte{1, 2, 3})
	require.NoError(t, err)
}

func TestNestedComponentSectionDeferred(t *testing.T) {
	store := component.NewTypeStore()
	p := New(store)

	var data bytes.Buffer
	payload := []byte{0xAA, 0xBB}
	data.Write(uvarint(uint64(len(payload))))
	data.Write(payload)

	require.NoError(t, p.ParseSection(SectionComponent, data.Bytes()))
	result := p.Result()
	require.Len(t, result.NestedComponents, 1)
	require.Equal(t, payload, result.NestedComponents[0].Bytes)
}

func TestStartSectionRecordsFuncIdx(t *testing.T) {
	store := component.NewTypeStore()
	p := New(store)

	var data bytes.Buffer
	data.Write(uvarint(7))
	require.NoError(t, p.ParseSection(SectionStart, data.Bytes()))

	result := p.Result()
	require.True(t, result.HasStart)
	require.Equal(t, uint32(7), result.StartFuncIdx)
}

func TestImportReferencingUnregisteredTypeFails(t *testing.T) {
	store := component.NewTypeStore()
	p := New(store)

	var importData bytes.Buffer
	importData.Write(uvarint(1))
	importData.Write(uvarint(uint64(len("x"))))
	importData.WriteString("x")
	importData.Write(uvarint(5)) // no type at index 5

	err := p.ParseSection(SectionImport, importData.Bytes())
	require.Error(t, err)
}
