// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package component

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildABRecord registers Record[("a", S32), ("b", String)] in typeStore
// and puts values (42, "hi") into valueStore, returning the record's
// ValueRef.
func buildABRecord(t *testing.T, typeStore *TypeStore, valueStore *ValueStore) ValueRef {
	t.Helper()

	s32Ref, err := typeStore.Register(ValType{Kind: KindS32})
	require.NoError(t, err)
	strRef, err := typeStore.Register(ValType{Kind: KindString})
	require.NoError(t, err)

	_, err = typeStore.Register(ValType{
		Kind: KindRecord,
		RecordFields: []Field{
			{Name: "a", Type: s32Ref},
			{Name: "b", Type: strRef},
		},
	})
	require.NoError(t, err)

	aVal := valueStore.Put(ComponentValue{Kind: KindS32, S64: 42})
	bVal := valueStore.Put(ComponentValue{Kind: KindString, Str: "hi"})
	recordRef := valueStore.Put(ComponentValue{
		Kind:   KindRecord,
		Fields: []ValueRef{aVal, bVal},
	})
	return recordRef
}

func TestRecordRoundTripEquality(t *testing.T) {
	typeStore := NewTypeStore()
	valueStore := NewValueStore()
	recordRef := buildABRecord(t, typeStore, valueStore)

	original, err := valueStore.Get(recordRef)
	require.NoError(t, err)

	rebuilt, freshStore, err := RoundTrip(original, valueStore)
	require.NoError(t, err)
	require.True(t, original.Equal(rebuilt, freshStore), "round-tripped record must equal original")
}

func TestRecordFieldValuesPreserved(t *testing.T) {
	typeStore := NewTypeStore()
	valueStore := NewValueStore()
	recordRef := buildABRecord(t, typeStore, valueStore)

	original, err := valueStore.Get(recordRef)
	require.NoError(t, err)

	rebuilt, freshStore, err := RoundTrip(original, valueStore)
	require.NoError(t, err)
	require.Equal(t, KindRecord, rebuilt.Kind)
	require.Len(t, rebuilt.Fields, 2)

	a, err := freshStore.Get(rebuilt.Fields[0])
	require.NoError(t, err)
	require.Equal(t, int64(42), a.S64)

	b, err := freshStore.Get(rebuilt.Fields[1])
	require.NoError(t, err)
	require.Equal(t, "hi", b.Str)
}

func TestValueEqualDiffersOnMismatchedField(t *testing.T) {
	valueStore := NewValueStore()
	aVal := valueStore.Put(ComponentValue{Kind: KindS32, S64: 1})
	bVal := valueStore.Put(ComponentValue{Kind: KindS32, S64: 2})
	require.False(t, mustGet(t, valueStore, aVal).Equal(mustGet(t, valueStore, bVal), valueStore))
}

func mustGet(t *testing.T, store *ValueStore, ref ValueRef) ComponentValue {
	t.Helper()
	v, err := store.Get(ref)
	require.NoError(t, err)
	return v
}

func TestNestedListRoundTrip(t *testing.T) {
	valueStore := NewValueStore()
	item0 := valueStore.Put(ComponentValue{Kind: KindU32, U64: 10})
	item1 := valueStore.Put(ComponentValue{Kind: KindU32, U64: 20})
	listRef := valueStore.Put(ComponentValue{Kind: KindList, Items: []ValueRef{item0, item1}})

	original, err := valueStore.Get(listRef)
	require.NoError(t, err)

	rebuilt, freshStore, err := RoundTrip(original, valueStore)
	require.NoError(t, err)
	require.True(t, original.Equal(rebuilt, freshStore))
}

func TestOptionAndResultRoundTrip(t *testing.T) {
	valueStore := NewValueStore()

	innerRef := valueStore.Put(ComponentValue{Kind: KindS32, S64: 7})
	someRef := valueStore.Put(ComponentValue{Kind: KindOption, OptionSet: true, OptionVal: innerRef})

	original, err := valueStore.Get(someRef)
	require.NoError(t, err)
	rebuilt, freshStore, err := RoundTrip(original, valueStore)
	require.NoError(t, err)
	require.True(t, original.Equal(rebuilt, freshStore))

	errRef := valueStore.Put(ComponentValue{Kind: KindString, Str: "bad"})
	resultRef := valueStore.Put(ComponentValue{Kind: KindResult, ResultOK: false, ResultVal: errRef})
	originalResult, err := valueStore.Get(resultRef)
	require.NoError(t, err)
	rebuiltResult, freshResultStore, err := RoundTrip(originalResult, valueStore)
	require.NoError(t, err)
	require.True(t, originalResult.Equal(rebuiltResult, freshResultStore))
}

func TestVariantRoundTrip(t *testing.T) {
	valueStore := NewValueStore()
	payload := valueStore.Put(ComponentValue{Kind: KindU64, U64: 99})
	variantRef := valueStore.Put(ComponentValue{
		Kind:           KindVariant,
		CaseIdx:        1,
		HasCasePayload: true,
		CasePayload:    payload,
	})

	original, err := valueStore.Get(variantRef)
	require.NoError(t, err)
	rebuilt, freshStore, err := RoundTrip(original, valueStore)
	require.NoError(t, err)
	require.True(t, original.Equal(rebuilt, freshStore))
}

func TestTypeStoreRecordCeilingEnforced(t *testing.T) {
	typeStore := NewTypeStore()
	fields := make([]Field, MaxRecordFields+1)
	for i := range fields {
		fields[i] = Field{Name: "f"}
	}
	_, err := typeStore.Register(ValType{Kind: KindRecord, RecordFields: fields})
	require.Error(t, err)
}

func TestValTypeEqualResolvesThroughStore(t *testing.T) {
	typeStore := NewTypeStore()
	s32A, err := typeStore.Register(ValType{Kind: KindS32})
	require.NoError(t, err)
	s32B, err := typeStore.Register(ValType{Kind: KindS32})
	require.NoError(t, err)

	listA := ValType{Kind: KindList, ListElem: s32A}
	listB := ValType{Kind: KindList, ListElem: s32B}
	require.True(t, listA.Equal(listB, typeStore))
}
