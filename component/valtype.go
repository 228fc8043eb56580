// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package component implements the Component Model's runtime value/type
// representations: an enum of primitive and composite ValTypes whose
// composite cases reference children by ValTypeRef rather than owning
// them, breaking recursion without heap-allocated cycles, exactly as
// §4.2/§9 of the specification requires.
package component

import "fmt"

// Capacity ceilings per §3.3. Fixed compile-time constants, as required.
const (
	MaxRecordFields     = 32
	MaxVariantCases     = 64
	MaxTupleElements    = 32
	MaxFlagsNames       = 32
	MaxEnumNames        = 64
	MaxListItems        = 4096
	MaxFixedListItems   = 4096
	MaxErrorContextItems = 16
	MaxNameBytes        = 64
)

// ValTypeRef is an opaque index into a TypeStore. Equality on ValTypeRef
// is reference-equality (same index); equality on ValType is structural.
type ValTypeRef uint32

// Kind enumerates the primitive and composite cases of a runtime ValType.
type Kind uint8

const (
	KindBool Kind = iota
	KindS8
	KindU8
	KindS16
	KindU16
	KindS32
	KindU32
	KindS64
	KindU64
	KindF32
	KindF64
	KindChar
	KindString
	KindRecord
	KindVariant
	KindList
	KindFixedList
	KindTuple
	KindFlags
	KindEnum
	KindOption
	KindResult
	KindOwnHandle
	KindBorrowHandle
	KindVoid
	KindErrorContext
)

func (k Kind) IsPrimitive() bool {
	return k <= KindString
}

// Field is one named field of a record, tagged by the child type it
// references.
type Field struct {
	Name string
	Type ValTypeRef
}

// Case is one named case of a variant, with an optional payload type.
type Case struct {
	Name    string
	Payload ValTypeRef // zero value interpreted via HasPayload
	HasPayload bool
}

// ValType is the runtime representation of a Component-Model type.
// Composite cases never own their children directly; they reference
// them by ValTypeRef into whichever TypeStore registered them.
type ValType struct {
	Kind Kind

	// Composite payloads. Only the field matching Kind is meaningful.
	RecordFields  []Field        // KindRecord
	VariantCases  []Case         // KindVariant
	ListElem      ValTypeRef     // KindList, KindFixedList
	FixedListLen  uint32         // KindFixedList
	TupleElems    []ValTypeRef   // KindTuple
	FlagsNames    []string       // KindFlags
	EnumNames     []string       // KindEnum
	OptionElem    ValTypeRef     // KindOption
	ResultOK      ValTypeRef     // KindResult
	ResultOKSet   bool
	ResultErr     ValTypeRef
	ResultErrSet  bool
	HandleRes     uint32 // resource type index for Own/Borrow handle kinds
}

// validateCeilings checks the per-container capacity bounds from §3.3.
func (t ValType) validateCeilings() error {
	switch t.Kind {
	case KindRecord:
		if len(t.RecordFields) > MaxRecordFields {
			return fmt.Errorf("component: record has %d fields, exceeds %d", len(t.RecordFields), MaxRecordFields)
		}
		for _, f := range t.RecordFields {
			if len(f.Name) > MaxNameBytes {
				return fmt.Errorf("component: field name %q exceeds %d bytes", f.Name, MaxNameBytes)
			}
		}
	case KindVariant:
		if len(t.VariantCases) > MaxVariantCases {
			return fmt.Errorf("component: variant has %d cases, exceeds %d", len(t.VariantCases), MaxVariantCases)
		}
	case KindTuple:
		if len(t.TupleElems) > MaxTupleElements {
			return fmt.Errorf("component: tuple has %d elements, exceeds %d", len(t.TupleElems), MaxTupleElements)
		}
	case KindFlags:
		if len(t.FlagsNames) > MaxFlagsNames {
			return fmt.Errorf("component: flags has %d names, exceeds %d", len(t.FlagsNames), MaxFlagsNames)
		}
	case KindEnum:
		if len(t.EnumNames) > MaxEnumNames {
			return fmt.Errorf("component: enum has %d names, exceeds %d", len(t.EnumNames), MaxEnumNames)
		}
	case KindFixedList:
		if t.FixedListLen > MaxFixedListItems {
			return fmt.Errorf("component: fixed-list length %d exceeds %d", t.FixedListLen, MaxFixedListItems)
		}
	}
	return nil
}

// Equal reports structural equality, resolving child refs through store.
func (t ValType) Equal(other ValType, store *TypeStore) bool {
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case KindRecord:
		if len(t.RecordFields) != len(other.RecordFields) {
			return false
		}
		for i, f := range t.RecordFields {
			g := other.RecordFields[i]
			if f.Name != g.Name {
				return false
			}
			ft, _ := store.Resolve(f.Type)
			gt, _ := store.Resolve(g.Type)
			if !ft.Equal(gt, store) {
				return false
			}
		}
		return true
	case KindList, KindFixedList:
		et, _ := store.Resolve(t.ListElem)
		eo, _ := store.Resolve(other.ListElem)
		if t.Kind == KindFixedList && t.FixedListLen != other.FixedListLen {
			return false
		}
		return et.Equal(eo, store)
	case KindTuple:
		if len(t.TupleElems) != len(other.TupleElems) {
			return false
		}
		for i, r := range t.TupleElems {
			a, _ := store.Resolve(r)
			b, _ := store.Resolve(other.TupleElems[i])
			if !a.Equal(b, store) {
				return false
			}
		}
		return true
	case KindFlags:
		return equalStrings(t.FlagsNames, other.FlagsNames)
	case KindEnum:
		return equalStrings(t.EnumNames, other.EnumNames)
	case KindOption:
		a, _ := store.Resolve(t.OptionElem)
		b, _ := store.Resolve(other.OptionElem)
		return a.Equal(b, store)
	case KindVariant:
		if len(t.VariantCases) != len(other.VariantCases) {
			return false
		}
		for i, c := range t.VariantCases {
			d := other.VariantCases[i]
			if c.Name != d.Name || c.HasPayload != d.HasPayload {
				return false
			}
			if c.HasPayload {
				a, _ := store.Resolve(c.Payload)
				b, _ := store.Resolve(d.Payload)
				if !a.Equal(b, store) {
					return false
				}
			}
		}
		return true
	case KindResult:
		if t.ResultOKSet != other.ResultOKSet || t.ResultErrSet != other.ResultErrSet {
			return false
		}
		if t.ResultOKSet {
			a, _ := store.Resolve(t.ResultOK)
			b, _ := store.Resolve(other.ResultOK)
			if !a.Equal(b, store) {
				return false
			}
		}
		if t.ResultErrSet {
			a, _ := store.Resolve(t.ResultErr)
			b, _ := store.Resolve(other.ResultErr)
			if !a.Equal(b, store) {
				return false
			}
		}
		return true
	case KindOwnHandle, KindBorrowHandle:
		return t.HandleRes == other.HandleRes
	default:
		return true // primitives, void, error-context: Kind equality suffices
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
