// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package component

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValTypeSerializeRoundTrip(t *testing.T) {
	typeStore := NewTypeStore()
	s32Ref, err := typeStore.Register(ValType{Kind: KindS32})
	require.NoError(t, err)
	strRef, err := typeStore.Register(ValType{Kind: KindString})
	require.NoError(t, err)

	recordRef, err := typeStore.Register(ValType{
		Kind: KindRecord,
		RecordFields: []Field{
			{Name: "a", Type: s32Ref},
			{Name: "b", Type: strRef},
		},
	})
	require.NoError(t, err)
	record, err := typeStore.Resolve(recordRef)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, record.ToBytes(&buf, typeStore))

	freshStore := NewTypeStore()
	rebuilt, err := FromBytesType(&buf, freshStore)
	require.NoError(t, err)

	require.True(t, record.Equal(rebuilt, freshStore))
}

func TestValTypeSerializeVariantAndOption(t *testing.T) {
	typeStore := NewTypeStore()
	u32Ref, err := typeStore.Register(ValType{Kind: KindU32})
	require.NoError(t, err)

	variant := ValType{
		Kind: KindVariant,
		VariantCases: []Case{
			{Name: "none", HasPayload: false},
			{Name: "some", HasPayload: true, Payload: u32Ref},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, variant.ToBytes(&buf, typeStore))

	freshStore := NewTypeStore()
	rebuilt, err := FromBytesType(&buf, freshStore)
	require.NoError(t, err)
	require.True(t, variant.Equal(rebuilt, freshStore))
}
