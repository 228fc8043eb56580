// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package convert

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulseengine/wrt-go/component"
	"github.com/pulseengine/wrt-go/component/format"
)

func TestRuntimeTypeOfPrimitive(t *testing.T) {
	store := component.NewTypeStore()
	ref, err := RuntimeTypeOf(format.ValType{Kind: format.KindS32}, store)
	require.NoError(t, err)

	rt, err := store.Resolve(ref)
	require.NoError(t, err)
	require.Equal(t, component.KindS32, rt.Kind)
}

func TestFormatTypeOfSplitsResultVariants(t *testing.T) {
	store := component.NewTypeStore()
	s32Ref, err := store.Register(component.ValType{Kind: component.KindS32})
	require.NoError(t, err)
	strRef, err := store.Register(component.ValType{Kind: component.KindString})
	require.NoError(t, err)

	resultBoth, err := store.Register(component.ValType{
		Kind: component.KindResult, ResultOK: s32Ref, ResultOKSet: true,
		ResultErr: strRef, ResultErrSet: true,
	})
	require.NoError(t, err)

	table := NewFormatTypeTable()
	fref, err := FormatTypeOf(resultBoth, store, table)
	require.NoError(t, err)
	require.Equal(t, format.KindResultBoth, table.Entries()[fref].Kind)

	resultOKOnly, err := store.Register(component.ValType{Kind: component.KindResult, ResultOK: s32Ref, ResultOKSet: true})
	require.NoError(t, err)
	fref2, err := FormatTypeOf(resultOKOnly, store, table)
	require.NoError(t, err)
	require.Equal(t, format.KindResultOK, table.Entries()[fref2].Kind)
}

func TestRuntimeAndFormatValueRoundTrip(t *testing.T) {
	valueStore := component.NewValueStore()
	cv := format.ConstValue{
		Kind: format.KindRecord,
		Fields: []format.ConstValue{
			{Kind: format.KindS32, S64: 42},
			{Kind: format.KindString, Str: "hi"},
		},
	}

	ref, err := RuntimeValueOf(cv, valueStore)
	require.NoError(t, err)

	rebuilt, err := FormatValueOf(ref, valueStore)
	require.NoError(t, err)
	require.Equal(t, format.KindRecord, rebuilt.Kind)
	require.Len(t, rebuilt.Fields, 2)
	require.Equal(t, int64(42), rebuilt.Fields[0].S64)
	require.Equal(t, "hi", rebuilt.Fields[1].Str)
}

func TestCoreValueTypeRoundTrip(t *testing.T) {
	for _, c := range []CoreValueType{CoreI32, CoreI64, CoreF32, CoreF64} {
		rt, err := RuntimeValTypeOfCore(c)
		require.NoError(t, err)
		back, err := CoreValueTypeOfRuntime(rt.Kind)
		require.NoError(t, err)
		require.Equal(t, c, back)
	}
}

func TestCoreValueTypeRejectsReferenceTypes(t *testing.T) {
	_, err := RuntimeValTypeOfCore(CoreFuncRef)
	require.Error(t, err)
	_, err = RuntimeValTypeOfCore(CoreExternRef)
	require.Error(t, err)
}

// flatResolver resolves format.TypeRef indices against a flat slice, the
// shape a test fixture builds directly rather than going through the
// section parser's incremental local type table.
func flatResolver(types []format.ValType) Resolver {
	return func(ref format.TypeRef) (format.ValType, error) {
		if int(ref) >= len(types) {
			return format.ValType{}, fmt.Errorf("convert_test: type ref %d out of range", ref)
		}
		return types[ref], nil
	}
}

func TestRuntimeExternTypeOfFunction(t *testing.T) {
	types := []format.ValType{{Kind: format.KindS32}}
	resolve := flatResolver(types)
	store := component.NewTypeStore()

	fe := format.ExternType{
		Kind:        format.ExternKindFunction,
		FuncParams:  []format.FuncParam{{Name: "arg", Type: 0}},
		FuncResults: []format.TypeRef{0},
	}

	re, err := RuntimeExternTypeOf(fe, resolve, store)
	require.NoError(t, err)
	require.Equal(t, component.ExternKindFunction, re.Kind)
	require.Len(t, re.FuncParams, 1)
	require.Equal(t, "arg", re.FuncParams[0].Name)
	require.Len(t, re.FuncResults, 1)

	paramType, err := store.Resolve(re.FuncParams[0].Type)
	require.NoError(t, err)
	require.Equal(t, component.KindS32, paramType.Kind)
}

func TestRuntimeExternTypeOfInstanceAndComponent(t *testing.T) {
	types := []format.ValType{{Kind: format.KindString}}
	resolve := flatResolver(types)
	store := component.NewTypeStore()

	valueExport := format.ExternType{Kind: format.ExternKindValue, ValueType: 0}
	instance := format.ExternType{
		Kind:            format.ExternKindInstance,
		InstanceExports: []format.NamedExternType{{Name: "greeting", Type: valueExport}},
	}
	comp := format.ExternType{
		Kind: format.ExternKindComponent,
		ComponentImports: []format.ImportEntry{
			{Namespace: "wasi", Name: "clock", Type: valueExport},
		},
		ComponentExports: []format.NamedExternType{{Name: "api", Type: instance}},
	}

	re, err := RuntimeExternTypeOf(comp, resolve, store)
	require.NoError(t, err)
	require.Equal(t, component.ExternKindComponent, re.Kind)
	require.Len(t, re.ComponentImports, 1)
	require.Equal(t, "wasi", re.ComponentImports[0].Namespace)
	require.Len(t, re.ComponentExports, 1)
	require.Equal(t, "api", re.ComponentExports[0].Name)
	require.Equal(t, component.ExternKindInstance, re.ComponentExports[0].Type.Kind)
	require.Len(t, re.ComponentExports[0].Type.InstanceExports, 1)
	require.Equal(t, "greeting", re.ComponentExports[0].Type.InstanceExports[0].Name)
}

func TestFormatExternTypeOfRoundTripsFunction(t *testing.T) {
	store := component.NewTypeStore()
	s32Ref, err := store.Register(component.ValType{Kind: component.KindS32})
	require.NoError(t, err)

	re := component.ExternType{
		Kind:        component.ExternKindFunction,
		FuncParams:  []component.FuncParam{{Name: "arg", Type: s32Ref}},
		FuncResults: []component.ValTypeRef{s32Ref},
	}

	table := NewFormatTypeTable()
	fe, err := FormatExternTypeOf(re, store, table)
	require.NoError(t, err)
	require.Equal(t, format.ExternKindFunction, fe.Kind)
	require.Len(t, fe.FuncParams, 1)
	require.Equal(t, "arg", fe.FuncParams[0].Name)
	require.Equal(t, format.KindS32, table.Entries()[fe.FuncParams[0].Type].Kind)
}
