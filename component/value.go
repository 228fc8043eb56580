// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package component

import (
	"fmt"

	"github.com/pulseengine/wrt-go/foundation"
)

// ComponentValue is the runtime representation of a Component-Model
// value: either a primitive (held by value) or a composite whose
// sub-values are referenced by ValueRef into a ValueStore. This yields a
// total Eq (via FloatBits for floats), a deterministic checksum, and a
// bounded upper limit on any one container.
type ComponentValue struct {
	Kind Kind

	Bool   bool
	S64    int64 // holds s8/s16/s32/s64
	U64    uint64 // holds u8/u16/u32/u64
	F32    foundation.FloatBits32
	F64    foundation.FloatBits64
	Char   rune
	Str    string

	Fields   []ValueRef // record: one per Field in type order
	CaseIdx  int        // variant: index into VariantCases
	CasePayload ValueRef
	HasCasePayload bool
	Items    []ValueRef // list, fixed-list, tuple, error-context
	FlagBits []bool     // flags: one per FlagsNames
	EnumIdx  int        // enum: index into EnumNames
	OptionSet bool
	OptionVal ValueRef
	ResultOK  bool // true = ok case, false = err case
	ResultVal ValueRef
	HandleIdx uint32 // own/borrow handle value
}

// Equal reports deep equality, resolving ValueRefs through store and
// ValTypeRefs (implicit via structural shape) — two values are equal
// only if every reachable sub-value is equal.
func (v ComponentValue) Equal(other ComponentValue, store *ValueStore) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindBool:
		return v.Bool == other.Bool
	case KindS8, KindS16, KindS32, KindS64:
		return v.S64 == other.S64
	case KindU8, KindU16, KindU32, KindU64:
		return v.U64 == other.U64
	case KindF32:
		return v.F32 == other.F32
	case KindF64:
		return v.F64 == other.F64
	case KindChar:
		return v.Char == other.Char
	case KindString:
		return v.Str == other.Str
	case KindRecord, KindTuple, KindList, KindFixedList, KindErrorContext:
		items, oitems := v.refList(), other.refList()
		if len(items) != len(oitems) {
			return false
		}
		for i := range items {
			a, err := store.Get(items[i])
			if err != nil {
				return false
			}
			b, err := store.Get(oitems[i])
			if err != nil {
				return false
			}
			if !a.Equal(b, store) {
				return false
			}
		}
		return true
	case KindFlags:
		if len(v.FlagBits) != len(other.FlagBits) {
			return false
		}
		for i := range v.FlagBits {
			if v.FlagBits[i] != other.FlagBits[i] {
				return false
			}
		}
		return true
	case KindEnum:
		return v.EnumIdx == other.EnumIdx
	case KindVariant:
		if v.CaseIdx != other.CaseIdx || v.HasCasePayload != other.HasCasePayload {
			return false
		}
		if !v.HasCasePayload {
			return true
		}
		a, erra := store.Get(v.CasePayload)
		b, errb := store.Get(other.CasePayload)
		if erra != nil || errb != nil {
			return false
		}
		return a.Equal(b, store)
	case KindOption:
		if v.OptionSet != other.OptionSet {
			return false
		}
		if !v.OptionSet {
			return true
		}
		a, erra := store.Get(v.OptionVal)
		b, errb := store.Get(other.OptionVal)
		if erra != nil || errb != nil {
			return false
		}
		return a.Equal(b, store)
	case KindResult:
		if v.ResultOK != other.ResultOK {
			return false
		}
		a, erra := store.Get(v.ResultVal)
		b, errb := store.Get(other.ResultVal)
		if erra != nil || errb != nil {
			return false
		}
		return a.Equal(b, store)
	case KindOwnHandle, KindBorrowHandle:
		return v.HandleIdx == other.HandleIdx
	case KindVoid:
		return true
	default:
		return false
	}
}

func (v ComponentValue) refList() []ValueRef {
	if v.Fields != nil {
		return v.Fields
	}
	return v.Items
}

// Checksum folds v into acc, resolving sub-values through store. Because
// it takes a store, ComponentValue does not satisfy
// foundation.Checksummable.
func (v ComponentValue) Checksum(acc uint64, store *ValueStore) uint64 {
	acc = foundation.ChecksumBytes(acc, []byte{byte(v.Kind)})
	switch v.Kind {
	case KindBool:
		b := byte(0)
		if v.Bool {
			b = 1
		}
		return foundation.ChecksumBytes(acc, []byte{b})
	case KindS8, KindS16, KindS32, KindS64:
		return foundation.ChecksumBytes(acc, u64Bytes(uint64(v.S64)))
	case KindU8, KindU16, KindU32, KindU64:
		return foundation.ChecksumBytes(acc, u64Bytes(v.U64))
	case KindF32:
		return v.F32.Checksum(acc)
	case KindF64:
		return v.F64.Checksum(acc)
	case KindChar:
		return foundation.ChecksumBytes(acc, u64Bytes(uint64(v.Char)))
	case KindString:
		return foundation.ChecksumBytes(acc, []byte(v.Str))
	case KindRecord, KindTuple, KindList, KindFixedList, KindErrorContext:
		for _, r := range v.refList() {
			item, err := store.Get(r)
			if err == nil {
				acc = item.Checksum(acc, store)
			}
		}
		return acc
	case KindFlags:
		for i, b := range v.FlagBits {
			bb := byte(0)
			if b {
				bb = 1
			}
			_ = i
			acc = foundation.ChecksumBytes(acc, []byte{bb})
		}
		return acc
	case KindEnum:
		return foundation.ChecksumBytes(acc, u64Bytes(uint64(v.EnumIdx)))
	case KindVariant:
		acc = foundation.ChecksumBytes(acc, u64Bytes(uint64(v.CaseIdx)))
		if v.HasCasePayload {
			if item, err := store.Get(v.CasePayload); err == nil {
				acc = item.Checksum(acc, store)
			}
		}
		return acc
	case KindOption:
		if v.OptionSet {
			if item, err := store.Get(v.OptionVal); err == nil {
				acc = item.Checksum(acc, store)
			}
		}
		return acc
	case KindResult:
		b := byte(0)
		if v.ResultOK {
			b = 1
		}
		acc = foundation.ChecksumBytes(acc, []byte{b})
		if item, err := store.Get(v.ResultVal); err == nil {
			acc = item.Checksum(acc, store)
		}
		return acc
	case KindOwnHandle, KindBorrowHandle:
		return foundation.ChecksumBytes(acc, u64Bytes(uint64(v.HandleIdx)))
	default:
		return acc
	}
}

func u64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

// ConversionError is returned by the bidirectional conversion layer
// (§3.3/§4.2) when a value has no representation on the other side.
type ConversionError struct {
	Reason string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("component: conversion error: %s", e.Reason)
}

// NotImplementedError marks a conversion path deliberately left
// unimplemented (distinct from ConversionError, which marks a path that
// provably cannot succeed).
type NotImplementedError struct {
	What string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("component: not implemented: %s", e.What)
}
