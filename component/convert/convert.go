// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package convert is the bidirectional bridge between the wire-level
// format package and the runtime component package, and between core
// WebAssembly value types and Component-Model value types. Conversions
// return an error rather than panic where a type has no counterpart on
// the other side (for example core reference types, or component kinds
// with no core-Wasm representation).
package convert

import (
	"fmt"

	"github.com/pulseengine/wrt-go/component"
	"github.com/pulseengine/wrt-go/component/format"
	"github.com/pulseengine/wrt-go/foundation"
)

// CoreValueType mirrors core WebAssembly's value types. Only the four
// numeric ones have a direct Component-Model mapping.
type CoreValueType uint8

const (
	CoreI32 CoreValueType = iota
	CoreI64
	CoreF32
	CoreF64
	CoreFuncRef
	CoreExternRef
)

// RuntimeTypeOf converts a format-level type (as produced by the
// section parser) into its runtime equivalent, interning every
// composite child into store. No resolver is available here, so any
// kind whose children are format.TypeRef indices (record, variant with
// payload, list, tuple, option, result) returns an error; callers with
// such types use RuntimeTypeOfResolved. Unknown kinds and ceiling
// violations caught by store.Register are also errors.
func RuntimeTypeOf(ft format.ValType, store *component.TypeStore) (component.ValTypeRef, error) {
	rt, err := runtimeValType(ft, store)
	if err != nil {
		return 0, err
	}
	return store.Register(rt)
}

func runtimeValType(ft format.ValType, store *component.TypeStore) (component.ValType, error) {
	switch ft.Kind {
	case format.KindBool:
		return component.ValType{Kind: component.KindBool}, nil
	case format.KindS8:
		return component.ValType{Kind: component.KindS8}, nil
	case format.KindU8:
		return component.ValType{Kind: component.KindU8}, nil
	case format.KindS16:
		return component.ValType{Kind: component.KindS16}, nil
	case format.KindU16:
		return component.ValType{Kind: component.KindU16}, nil
	case format.KindS32:
		return component.ValType{Kind: component.KindS32}, nil
	case format.KindU32:
		return component.ValType{Kind: component.KindU32}, nil
	case format.KindS64:
		return component.ValType{Kind: component.KindS64}, nil
	case format.KindU64:
		return component.ValType{Kind: component.KindU64}, nil
	case format.KindF32:
		return component.ValType{Kind: component.KindF32}, nil
	case format.KindF64:
		return component.ValType{Kind: component.KindF64}, nil
	case format.KindChar:
		return component.ValType{Kind: component.KindChar}, nil
	case format.KindString:
		return component.ValType{Kind: component.KindString}, nil
	case format.KindVoid:
		return component.ValType{Kind: component.KindVoid}, nil
	case format.KindErrorContext:
		return component.ValType{Kind: component.KindErrorContext}, nil
	case format.KindRecord:
		fields := make([]component.Field, 0, len(ft.RecordFields))
		for _, f := range ft.RecordFields {
			childFt, err := resolveFormatChild(f.Type)
			if err != nil {
				return component.ValType{}, err
			}
			ref, err := RuntimeTypeOf(childFt, store)
			if err != nil {
				return component.ValType{}, err
			}
			fields = append(fields, component.Field{Name: f.Name, Type: ref})
		}
		return component.ValType{Kind: component.KindRecord, RecordFields: fields}, nil
	case format.KindVariant:
		cases := make([]component.Case, 0, len(ft.VariantCases))
		for _, c := range ft.VariantCases {
			rc := component.Case{Name: c.Name, HasPayload: c.HasPayload}
			if c.HasPayload {
				childFt, err := resolveFormatChild(c.Payload)
				if err != nil {
					return component.ValType{}, err
				}
				ref, err := RuntimeTypeOf(childFt, store)
				if err != nil {
					return component.ValType{}, err
				}
				rc.Payload = ref
			}
			cases = append(cases, rc)
		}
		return component.ValType{Kind: component.KindVariant, VariantCases: cases}, nil
	case format.KindList, format.KindFixedList:
		childFt, err := resolveFormatChild(ft.ListElem)
		if err != nil {
			return component.ValType{}, err
		}
		ref, err := RuntimeTypeOf(childFt, store)
		if err != nil {
			return component.ValType{}, err
		}
		kind := component.KindList
		if ft.Kind == format.KindFixedList {
			kind = component.KindFixedList
		}
		return component.ValType{Kind: kind, ListElem: ref, FixedListLen: ft.FixedListLen}, nil
	case format.KindTuple:
		elems := make([]component.ValTypeRef, 0, len(ft.TupleElems))
		for _, te := range ft.TupleElems {
			childFt, err := resolveFormatChild(te)
			if err != nil {
				return component.ValType{}, err
			}
			ref, err := RuntimeTypeOf(childFt, store)
			if err != nil {
				return component.ValType{}, err
			}
			elems = append(elems, ref)
		}
		return component.ValType{Kind: component.KindTuple, TupleElems: elems}, nil
	case format.KindFlags:
		return component.ValType{Kind: component.KindFlags, FlagsNames: ft.FlagsNames}, nil
	case format.KindEnum:
		return component.ValType{Kind: component.KindEnum, EnumNames: ft.EnumNames}, nil
	case format.KindOption:
		childFt, err := resolveFormatChild(ft.OptionElem)
		if err != nil {
			return component.ValType{}, err
		}
		ref, err := RuntimeTypeOf(childFt, store)
		if err != nil {
			return component.ValType{}, err
		}
		return component.ValType{Kind: component.KindOption, OptionElem: ref}, nil
	case format.KindResultOK, format.KindResultErr, format.KindResultBoth:
		rt := component.ValType{Kind: component.KindResult}
		if ft.Kind == format.KindResultOK || ft.Kind == format.KindResultBoth {
			childFt, err := resolveFormatChild(ft.ResultOK)
			if err != nil {
				return component.ValType{}, err
			}
			ref, err := RuntimeTypeOf(childFt, store)
			if err != nil {
				return component.ValType{}, err
			}
			rt.ResultOK, rt.ResultOKSet = ref, true
		}
		if ft.Kind == format.KindResultErr || ft.Kind == format.KindResultBoth {
			childFt, err := resolveFormatChild(ft.ResultErr)
			if err != nil {
				return component.ValType{}, err
			}
			ref, err := RuntimeTypeOf(childFt, store)
			if err != nil {
				return component.ValType{}, err
			}
			rt.ResultErr, rt.ResultErrSet = ref, true
		}
		return rt, nil
	case format.KindOwnHandle:
		return component.ValType{Kind: component.KindOwnHandle, HandleRes: ft.HandleRes}, nil
	case format.KindBorrowHandle:
		return component.ValType{Kind: component.KindBorrowHandle, HandleRes: ft.HandleRes}, nil
	default:
		return component.ValType{}, fmt.Errorf("convert: unknown format kind %d", ft.Kind)
	}
}

// resolveFormatChild is a seam for resolving a format.TypeRef back into
// a format.ValType. The section parser keeps its own local type table
// for this; callers that already have a flat tree (as in tests) can
// bypass it by constructing ValTypes directly rather than going through
// TypeRef indirection. Production callers should use
// RuntimeTypeOfResolved instead of relying on this returning anything
// but an error.
func resolveFormatChild(ref format.TypeRef) (format.ValType, error) {
	return format.ValType{}, fmt.Errorf("convert: format.TypeRef %d requires a resolver; use RuntimeTypeOfResolved", ref)
}

// Resolver looks up a format.TypeRef against whatever local type table
// produced it (typically the section parser's in-progress type index).
type Resolver func(format.TypeRef) (format.ValType, error)

// RuntimeTypeOfResolved is RuntimeTypeOf for callers that have a
// Resolver capable of expanding format.TypeRef indices, such as the
// section parser decoding a type section incrementally.
func RuntimeTypeOfResolved(ft format.ValType, resolve Resolver, store *component.TypeStore) (component.ValTypeRef, error) {
	rt, err := runtimeValTypeResolved(ft, resolve, store)
	if err != nil {
		return 0, err
	}
	return store.Register(rt)
}

func runtimeValTypeResolved(ft format.ValType, resolve Resolver, store *component.TypeStore) (component.ValType, error) {
	switch ft.Kind {
	case format.KindRecord:
		fields := make([]component.Field, 0, len(ft.RecordFields))
		for _, f := range ft.RecordFields {
			childFt, err := resolve(f.Type)
			if err != nil {
				return component.ValType{}, err
			}
			ref, err := RuntimeTypeOfResolved(childFt, resolve, store)
			if err != nil {
				return component.ValType{}, err
			}
			fields = append(fields, component.Field{Name: f.Name, Type: ref})
		}
		return component.ValType{Kind: component.KindRecord, RecordFields: fields}, nil
	case format.KindList, format.KindFixedList:
		childFt, err := resolve(ft.ListElem)
		if err != nil {
			return component.ValType{}, err
		}
		ref, err := RuntimeTypeOfResolved(childFt, resolve, store)
		if err != nil {
			return component.ValType{}, err
		}
		kind := component.KindList
		if ft.Kind == format.KindFixedList {
			kind = component.KindFixedList
		}
		return component.ValType{Kind: kind, ListElem: ref, FixedListLen: ft.FixedListLen}, nil
	default:
		// Primitives and every other composite kind don't reference
		// format.TypeRef children in a way that needs resolve, or are
		// handled identically to the unresolved path.
		return runtimeValType(ft, store)
	}
}

// FormatTypeOf converts a runtime type back into its wire-level
// spelling, splitting component.KindResult into the three format
// result shapes per the wire format's narrower result encoding.
func FormatTypeOf(ref component.ValTypeRef, store *component.TypeStore, formatStore *FormatTypeTable) (format.TypeRef, error) {
	rt, err := store.Resolve(ref)
	if err != nil {
		return 0, err
	}
	ft, err := formatValType(rt, store, formatStore)
	if err != nil {
		return 0, err
	}
	return formatStore.add(ft), nil
}

// FormatTypeTable accumulates format.ValType entries during a
// runtime->format conversion pass, giving out format.TypeRef indices
// the way a section encoder would.
type FormatTypeTable struct {
	entries []format.ValType
}

// NewFormatTypeTable returns an empty table.
func NewFormatTypeTable() *FormatTypeTable {
	return &FormatTypeTable{}
}

func (t *FormatTypeTable) add(v format.ValType) format.TypeRef {
	t.entries = append(t.entries, v)
	return format.TypeRef(len(t.entries) - 1)
}

// Entries returns the accumulated format.ValType entries in order.
func (t *FormatTypeTable) Entries() []format.ValType {
	return t.entries
}

func formatValType(rt component.ValType, store *component.TypeStore, ft *FormatTypeTable) (format.ValType, error) {
	switch rt.Kind {
	case component.KindBool:
		return format.ValType{Kind: format.KindBool}, nil
	case component.KindS8:
		return format.ValType{Kind: format.KindS8}, nil
	case component.KindU8:
		return format.ValType{Kind: format.KindU8}, nil
	case component.KindS16:
		return format.ValType{Kind: format.KindS16}, nil
	case component.KindU16:
		return format.ValType{Kind: format.KindU16}, nil
	case component.KindS32:
		return format.ValType{Kind: format.KindS32}, nil
	case component.KindU32:
		return format.ValType{Kind: format.KindU32}, nil
	case component.KindS64:
		return format.ValType{Kind: format.KindS64}, nil
	case component.KindU64:
		return format.ValType{Kind: format.KindU64}, nil
	case component.KindF32:
		return format.ValType{Kind: format.KindF32}, nil
	case component.KindF64:
		return format.ValType{Kind: format.KindF64}, nil
	case component.KindChar:
		return format.ValType{Kind: format.KindChar}, nil
	case component.KindString:
		return format.ValType{Kind: format.KindString}, nil
	case component.KindVoid:
		return format.ValType{Kind: format.KindVoid}, nil
	case component.KindErrorContext:
		return format.ValType{Kind: format.KindErrorContext}, nil
	case component.KindRecord:
		fields := make([]format.Field, 0, len(rt.RecordFields))
		for _, f := range rt.RecordFields {
			childRef, err := FormatTypeOf(f.Type, store, ft)
			if err != nil {
				return format.ValType{}, err
			}
			fields = append(fields, format.Field{Name: f.Name, Type: childRef})
		}
		return format.ValType{Kind: format.KindRecord, RecordFields: fields}, nil
	case component.KindList, component.KindFixedList:
		childRef, err := FormatTypeOf(rt.ListElem, store, ft)
		if err != nil {
			return format.ValType{}, err
		}
		kind := format.KindList
		if rt.Kind == component.KindFixedList {
			kind = format.KindFixedList
		}
		return format.ValType{Kind: kind, ListElem: childRef, FixedListLen: rt.FixedListLen}, nil
	case component.KindResult:
		switch {
		case rt.ResultOKSet && rt.ResultErrSet:
			okRef, err := FormatTypeOf(rt.ResultOK, store, ft)
			if err != nil {
				return format.ValType{}, err
			}
			errRef, err := FormatTypeOf(rt.ResultErr, store, ft)
			if err != nil {
				return format.ValType{}, err
			}
			return format.ValType{Kind: format.KindResultBoth, ResultOK: okRef, ResultErr: errRef}, nil
		case rt.ResultOKSet:
			okRef, err := FormatTypeOf(rt.ResultOK, store, ft)
			if err != nil {
				return format.ValType{}, err
			}
			return format.ValType{Kind: format.KindResultOK, ResultOK: okRef}, nil
		case rt.ResultErrSet:
			errRef, err := FormatTypeOf(rt.ResultErr, store, ft)
			if err != nil {
				return format.ValType{}, err
			}
			return format.ValType{Kind: format.KindResultErr, ResultErr: errRef}, nil
		default:
			return format.ValType{}, &component.ConversionError{Reason: "result type with neither ok nor err set has no wire spelling"}
		}
	case component.KindOwnHandle:
		return format.ValType{Kind: format.KindOwnHandle, HandleRes: rt.HandleRes}, nil
	case component.KindBorrowHandle:
		return format.ValType{Kind: format.KindBorrowHandle, HandleRes: rt.HandleRes}, nil
	default:
		return format.ValType{}, fmt.Errorf("convert: unhandled runtime kind %d", rt.Kind)
	}
}

// RuntimeValueOf converts a format-level constant literal into a
// runtime ComponentValue, interning composite sub-values into
// valueStore.
func RuntimeValueOf(cv format.ConstValue, valueStore *component.ValueStore) (component.ValueRef, error) {
	v, err := runtimeValue(cv, valueStore)
	if err != nil {
		return 0, err
	}
	return valueStore.Put(v), nil
}

func runtimeValue(cv format.ConstValue, valueStore *component.ValueStore) (component.ComponentValue, error) {
	switch cv.Kind {
	case format.KindBool:
		return component.ComponentValue{Kind: component.KindBool, Bool: cv.Bool}, nil
	case format.KindS8, format.KindS16, format.KindS32, format.KindS64:
		return component.ComponentValue{Kind: component.Kind(cv.Kind), S64: cv.S64}, nil
	case format.KindU8, format.KindU16, format.KindU32, format.KindU64:
		return component.ComponentValue{Kind: component.Kind(cv.Kind), U64: cv.U64}, nil
	case format.KindF32:
		return component.ComponentValue{Kind: component.KindF32, F32: foundation.FloatBits32(cv.F32)}, nil
	case format.KindF64:
		return component.ComponentValue{Kind: component.KindF64, F64: foundation.FloatBits64(cv.F64)}, nil
	case format.KindChar:
		return component.ComponentValue{Kind: component.KindChar, Char: cv.Char}, nil
	case format.KindString:
		return component.ComponentValue{Kind: component.KindString, Str: cv.Str}, nil
	case format.KindRecord:
		refs := make([]component.ValueRef, 0, len(cv.Fields))
		for _, f := range cv.Fields {
			r, err := RuntimeValueOf(f, valueStore)
			if err != nil {
				return component.ComponentValue{}, err
			}
			refs = append(refs, r)
		}
		return component.ComponentValue{Kind: component.KindRecord, Fields: refs}, nil
	case format.KindList, format.KindFixedList, format.KindTuple:
		refs := make([]component.ValueRef, 0, len(cv.Items))
		for _, it := range cv.Items {
			r, err := RuntimeValueOf(it, valueStore)
			if err != nil {
				return component.ComponentValue{}, err
			}
			refs = append(refs, r)
		}
		kind := component.KindList
		switch cv.Kind {
		case format.KindFixedList:
			kind = component.KindFixedList
		case format.KindTuple:
			kind = component.KindTuple
		}
		return component.ComponentValue{Kind: kind, Items: refs}, nil
	case format.KindFlags:
		return component.ComponentValue{Kind: component.KindFlags, FlagBits: cv.FlagBits}, nil
	case format.KindEnum:
		return component.ComponentValue{Kind: component.KindEnum, EnumIdx: cv.EnumIdx}, nil
	case format.KindVariant:
		result := component.ComponentValue{Kind: component.KindVariant, CaseIdx: cv.CaseIdx}
		if cv.CasePayload != nil {
			r, err := RuntimeValueOf(*cv.CasePayload, valueStore)
			if err != nil {
				return component.ComponentValue{}, err
			}
			result.HasCasePayload = true
			result.CasePayload = r
		}
		return result, nil
	case format.KindOption:
		result := component.ComponentValue{Kind: component.KindOption}
		if cv.OptionVal != nil {
			r, err := RuntimeValueOf(*cv.OptionVal, valueStore)
			if err != nil {
				return component.ComponentValue{}, err
			}
			result.OptionSet = true
			result.OptionVal = r
		}
		return result, nil
	case format.KindResultOK, format.KindResultErr, format.KindResultBoth:
		result := component.ComponentValue{Kind: component.KindResult, ResultOK: cv.ResultOK}
		if cv.ResultVal != nil {
			r, err := RuntimeValueOf(*cv.ResultVal, valueStore)
			if err != nil {
				return component.ComponentValue{}, err
			}
			result.ResultVal = r
		}
		return result, nil
	case format.KindOwnHandle:
		return component.ComponentValue{Kind: component.KindOwnHandle, HandleIdx: cv.HandleIdx}, nil
	case format.KindBorrowHandle:
		return component.ComponentValue{Kind: component.KindBorrowHandle, HandleIdx: cv.HandleIdx}, nil
	case format.KindVoid:
		return component.ComponentValue{Kind: component.KindVoid}, nil
	default:
		return component.ComponentValue{}, fmt.Errorf("convert: unhandled format const kind %d", cv.Kind)
	}
}

// FormatValueOf converts a runtime ComponentValue back into its
// format-level literal spelling.
func FormatValueOf(ref component.ValueRef, valueStore *component.ValueStore) (format.ConstValue, error) {
	v, err := valueStore.Get(ref)
	if err != nil {
		return format.ConstValue{}, err
	}
	return formatValue(v, valueStore)
}

func formatValue(v component.ComponentValue, valueStore *component.ValueStore) (format.ConstValue, error) {
	switch v.Kind {
	case component.KindBool:
		return format.ConstValue{Kind: format.KindBool, Bool: v.Bool}, nil
	case component.KindS8, component.KindS16, component.KindS32, component.KindS64:
		return format.ConstValue{Kind: format.Kind(v.Kind), S64: v.S64}, nil
	case component.KindU8, component.KindU16, component.KindU32, component.KindU64:
		return format.ConstValue{Kind: format.Kind(v.Kind), U64: v.U64}, nil
	case component.KindF32:
		return format.ConstValue{Kind: format.KindF32, F32: uint32(v.F32)}, nil
	case component.KindF64:
		return format.ConstValue{Kind: format.KindF64, F64: uint64(v.F64)}, nil
	case component.KindChar:
		return format.ConstValue{Kind: format.KindChar, Char: v.Char}, nil
	case component.KindString:
		return format.ConstValue{Kind: format.KindString, Str: v.Str}, nil
	case component.KindRecord:
		fields := make([]format.ConstValue, 0, len(v.Fields))
		for _, r := range v.Fields {
			cv, err := FormatValueOf(r, valueStore)
			if err != nil {
				return format.ConstValue{}, err
			}
			fields = append(fields, cv)
		}
		return format.ConstValue{Kind: format.KindRecord, Fields: fields}, nil
	case component.KindList, component.KindFixedList, component.KindTuple:
		items := make([]format.ConstValue, 0, len(v.Items))
		for _, r := range v.Items {
			cv, err := FormatValueOf(r, valueStore)
			if err != nil {
				return format.ConstValue{}, err
			}
			items = append(items, cv)
		}
		kind := format.KindList
		switch v.Kind {
		case component.KindFixedList:
			kind = format.KindFixedList
		case component.KindTuple:
			kind = format.KindTuple
		}
		return format.ConstValue{Kind: kind, Items: items}, nil
	case component.KindFlags:
		return format.ConstValue{Kind: format.KindFlags, FlagBits: v.FlagBits}, nil
	case component.KindEnum:
		return format.ConstValue{Kind: format.KindEnum, EnumIdx: v.EnumIdx}, nil
	case component.KindVariant:
		result := format.ConstValue{Kind: format.KindVariant, CaseIdx: v.CaseIdx}
		if v.HasCasePayload {
			cv, err := FormatValueOf(v.CasePayload, valueStore)
			if err != nil {
				return format.ConstValue{}, err
			}
			result.CasePayload = &cv
		}
		return result, nil
	case component.KindOption:
		result := format.ConstValue{Kind: format.KindOption}
		if v.OptionSet {
			cv, err := FormatValueOf(v.OptionVal, valueStore)
			if err != nil {
				return format.ConstValue{}, err
			}
			result.OptionVal = &cv
		}
		return result, nil
	case component.KindResult:
		cv, err := FormatValueOf(v.ResultVal, valueStore)
		if err != nil {
			return format.ConstValue{}, err
		}
		kind := format.KindResultErr
		if v.ResultOK {
			kind = format.KindResultOK
		}
		return format.ConstValue{Kind: kind, ResultOK: v.ResultOK, ResultVal: &cv}, nil
	case component.KindOwnHandle:
		return format.ConstValue{Kind: format.KindOwnHandle, HandleIdx: v.HandleIdx}, nil
	case component.KindBorrowHandle:
		return format.ConstValue{Kind: format.KindBorrowHandle, HandleIdx: v.HandleIdx}, nil
	case component.KindVoid:
		return format.ConstValue{Kind: format.KindVoid}, nil
	default:
		return format.ConstValue{}, fmt.Errorf("convert: unhandled runtime value kind %d", v.Kind)
	}
}

// RuntimeValTypeOfCore converts a core WebAssembly value type into its
// Component-Model runtime equivalent. FuncRef and ExternRef have no
// direct scalar mapping and return a ConversionError, matching the
// original's NotImplementedError for those two cases.
func RuntimeValTypeOfCore(c CoreValueType) (component.ValType, error) {
	switch c {
	case CoreI32:
		return component.ValType{Kind: component.KindS32}, nil
	case CoreI64:
		return component.ValType{Kind: component.KindS64}, nil
	case CoreF32:
		return component.ValType{Kind: component.KindF32}, nil
	case CoreF64:
		return component.ValType{Kind: component.KindF64}, nil
	default:
		return component.ValType{}, &component.ConversionError{Reason: "core reference types have no direct component scalar mapping"}
	}
}

// CoreValueTypeOfRuntime is the inverse of RuntimeValTypeOfCore,
// succeeding only for the four numeric kinds core Wasm can express.
func CoreValueTypeOfRuntime(k component.Kind) (CoreValueType, error) {
	switch k {
	case component.KindS32, component.KindU32:
		return CoreI32, nil
	case component.KindS64, component.KindU64:
		return CoreI64, nil
	case component.KindF32:
		return CoreF32, nil
	case component.KindF64:
		return CoreF64, nil
	default:
		return 0, &component.ConversionError{Reason: fmt.Sprintf("component kind %d has no core value-type representation", k)}
	}
}

// RuntimeExternTypeOf converts a format-level extern type, as named in a
// component's import or export section, into its five-variant runtime
// equivalent, resolving every nested format.TypeRef via resolve and
// interning composite value types into store. Unlike RuntimeTypeOf,
// there is no unresolved convenience form: every ExternType variant
// other than Instance/Component carries at least one TypeRef into the
// section's local type table, so a resolver is always required.
func RuntimeExternTypeOf(fe format.ExternType, resolve Resolver, store *component.TypeStore) (component.ExternType, error) {
	switch fe.Kind {
	case format.ExternKindFunction:
		params := make([]component.FuncParam, 0, len(fe.FuncParams))
		for _, p := range fe.FuncParams {
			ref, err := resolveAndRegister(p.Type, resolve, store)
			if err != nil {
				return component.ExternType{}, err
			}
			params = append(params, component.FuncParam{Name: p.Name, Type: ref})
		}
		results := make([]component.ValTypeRef, 0, len(fe.FuncResults))
		for _, r := range fe.FuncResults {
			ref, err := resolveAndRegister(r, resolve, store)
			if err != nil {
				return component.ExternType{}, err
			}
			results = append(results, ref)
		}
		return component.ExternType{Kind: component.ExternKindFunction, FuncParams: params, FuncResults: results}, nil

	case format.ExternKindValue:
		ref, err := resolveAndRegister(fe.ValueType, resolve, store)
		if err != nil {
			return component.ExternType{}, err
		}
		return component.ExternType{Kind: component.ExternKindValue, ValueType: ref}, nil

	case format.ExternKindType:
		ref, err := resolveAndRegister(fe.TypeIndex, resolve, store)
		if err != nil {
			return component.ExternType{}, err
		}
		return component.ExternType{Kind: component.ExternKindType, TypeIndex: ref}, nil

	case format.ExternKindInstance:
		exports, err := runtimeNamedExternTypes(fe.InstanceExports, resolve, store)
		if err != nil {
			return component.ExternType{}, err
		}
		return component.ExternType{Kind: component.ExternKindInstance, InstanceExports: exports}, nil

	case format.ExternKindComponent:
		imports := make([]component.ImportEntry, 0, len(fe.ComponentImports))
		for _, im := range fe.ComponentImports {
			rt, err := RuntimeExternTypeOf(im.Type, resolve, store)
			if err != nil {
				return component.ExternType{}, err
			}
			imports = append(imports, component.ImportEntry{Namespace: im.Namespace, Name: im.Name, Type: rt})
		}
		exports, err := runtimeNamedExternTypes(fe.ComponentExports, resolve, store)
		if err != nil {
			return component.ExternType{}, err
		}
		return component.ExternType{Kind: component.ExternKindComponent, ComponentImports: imports, ComponentExports: exports}, nil

	default:
		return component.ExternType{}, fmt.Errorf("convert: unknown format extern kind %d", fe.Kind)
	}
}

func resolveAndRegister(ref format.TypeRef, resolve Resolver, store *component.TypeStore) (component.ValTypeRef, error) {
	ft, err := resolve(ref)
	if err != nil {
		return 0, err
	}
	return RuntimeTypeOfResolved(ft, resolve, store)
}

func runtimeNamedExternTypes(entries []format.NamedExternType, resolve Resolver, store *component.TypeStore) ([]component.NamedExternType, error) {
	out := make([]component.NamedExternType, 0, len(entries))
	for _, e := range entries {
		rt, err := RuntimeExternTypeOf(e.Type, resolve, store)
		if err != nil {
			return nil, err
		}
		out = append(out, component.NamedExternType{Name: e.Name, Type: rt})
	}
	return out, nil
}

// FormatExternTypeOf converts a runtime ExternType back into its
// wire-level spelling, assigning every nested type its format.TypeRef
// index in formatStore.
func FormatExternTypeOf(re component.ExternType, store *component.TypeStore, formatStore *FormatTypeTable) (format.ExternType, error) {
	switch re.Kind {
	case component.ExternKindFunction:
		params := make([]format.FuncParam, 0, len(re.FuncParams))
		for _, p := range re.FuncParams {
			ref, err := FormatTypeOf(p.Type, store, formatStore)
			if err != nil {
				return format.ExternType{}, err
			}
			params = append(params, format.FuncParam{Name: p.Name, Type: ref})
		}
		results := make([]format.TypeRef, 0, len(re.FuncResults))
		for _, r := range re.FuncResults {
			ref, err := FormatTypeOf(r, store, formatStore)
			if err != nil {
				return format.ExternType{}, err
			}
			results = append(results, ref)
		}
		return format.ExternType{Kind: format.ExternKindFunction, FuncParams: params, FuncResults: results}, nil

	case component.ExternKindValue:
		ref, err := FormatTypeOf(re.ValueType, store, formatStore)
		if err != nil {
			return format.ExternType{}, err
		}
		return format.ExternType{Kind: format.ExternKindValue, ValueType: ref}, nil

	case component.ExternKindType:
		ref, err := FormatTypeOf(re.TypeIndex, store, formatStore)
		if err != nil {
			return format.ExternType{}, err
		}
		return format.ExternType{Kind: format.ExternKindType, TypeIndex: ref}, nil

	case component.ExternKindInstance:
		exports, err := formatNamedExternTypes(re.InstanceExports, store, formatStore)
		if err != nil {
			return format.ExternType{}, err
		}
		return format.ExternType{Kind: format.ExternKindInstance, InstanceExports: exports}, nil

	case component.ExternKindComponent:
		imports := make([]format.ImportEntry, 0, len(re.ComponentImports))
		for _, im := range re.ComponentImports {
			ft, err := FormatExternTypeOf(im.Type, store, formatStore)
			if err != nil {
				return format.ExternType{}, err
			}
			imports = append(imports, format.ImportEntry{Namespace: im.Namespace, Name: im.Name, Type: ft})
		}
		exports, err := formatNamedExternTypes(re.ComponentExports, store, formatStore)
		if err != nil {
			return format.ExternType{}, err
		}
		return format.ExternType{Kind: format.ExternKindComponent, ComponentImports: imports, ComponentExports: exports}, nil

	default:
		return format.ExternType{}, fmt.Errorf("convert: unknown runtime extern kind %d", re.Kind)
	}
}

func formatNamedExternTypes(entries []component.NamedExternType, store *component.TypeStore, formatStore *FormatTypeTable) ([]format.NamedExternType, error) {
	out := make([]format.NamedExternType, 0, len(entries))
	for _, e := range entries {
		ft, err := FormatExternTypeOf(e.Type, store, formatStore)
		if err != nil {
			return nil, err
		}
		out = append(out, format.NamedExternType{Name: e.Name, Type: ft})
	}
	return out, nil
}
