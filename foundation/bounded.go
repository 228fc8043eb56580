// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package foundation

import (
	"fmt"
	"unicode/utf8"
)

// BoundedVec is an ordered sequence of at most N items of T, backed by a
// MemoryProvider. len(items) never exceeds N; Push beyond N fails with
// ErrCapacityExceeded and never grows the backing provider past its
// initial budget.
type BoundedVec[T any] struct {
	max   int
	items []T
	p     *MemoryProvider
}

// NewBoundedVec constructs a BoundedVec with capacity max, reserving
// itemSize*max bytes from p up front.
func NewBoundedVec[T any](max int, itemSize uint64, p *MemoryProvider) (*BoundedVec[T], error) {
	if max < 0 {
		return nil, fmt.Errorf("foundation: negative capacity %d", max)
	}
	if err := p.Reserve(itemSize * uint64(max)); err != nil {
		return nil, err
	}
	return &BoundedVec[T]{max: max, p: p}, nil
}

// Len reports the current number of elements.
func (v *BoundedVec[T]) Len() int { return len(v.items) }

// Cap reports the fixed maximum number of elements.
func (v *BoundedVec[T]) Cap() int { return v.max }

// Push appends value, failing with ErrCapacityExceeded once Len() == Cap().
func (v *BoundedVec[T]) Push(value T) error {
	if len(v.items) >= v.max {
		return fmt.Errorf("%w: vec at capacity %d", ErrCapacityExceeded, v.max)
	}
	v.items = append(v.items, value)
	return nil
}

// Get returns the item at index i.
func (v *BoundedVec[T]) Get(i int) (T, error) {
	var zero T
	if i < 0 || i >= len(v.items) {
		return zero, fmt.Errorf("foundation: index %d out of range [0,%d)", i, len(v.items))
	}
	return v.items[i], nil
}

// Set overwrites the item at index i.
func (v *BoundedVec[T]) Set(i int, value T) error {
	if i < 0 || i >= len(v.items) {
		return fmt.Errorf("foundation: index %d out of range [0,%d)", i, len(v.items))
	}
	v.items[i] = value
	return nil
}

// Slice returns a read-only view of the current items. Callers must not
// mutate the returned slice.
func (v *BoundedVec[T]) Slice() []T { return v.items }

// Checksum folds the item count and each item, via elem, into acc. Its
// extra elem parameter means BoundedVec does not satisfy Checksummable.
func (v *BoundedVec[T]) Checksum(acc uint64, elem func(acc uint64, t T) uint64) uint64 {
	acc = ChecksumBytes(acc, []byte{byte(len(v.items))})
	for _, it := range v.items {
		acc = elem(acc, it)
	}
	return acc
}

// BoundedString is UTF-8 text whose byte length never exceeds N.
type BoundedString struct {
	max   int
	bytes []byte
}

// NewBoundedString constructs an empty BoundedString with the given byte
// capacity, reserving that many bytes from p.
func NewBoundedString(max int, p *MemoryProvider) (*BoundedString, error) {
	if err := p.Reserve(uint64(max)); err != nil {
		return nil, err
	}
	return &BoundedString{max: max}, nil
}

// Set replaces the string's contents, validating UTF-8 and the capacity
// bound.
func (s *BoundedString) Set(text string) error {
	if !utf8.ValidString(text) {
		return fmt.Errorf("foundation: invalid UTF-8")
	}
	if len(text) > s.max {
		return fmt.Errorf("%w: string of %d bytes exceeds capacity %d", ErrCapacityExceeded, len(text), s.max)
	}
	s.bytes = []byte(text)
	return nil
}

// String returns the current contents.
func (s *BoundedString) String() string { return string(s.bytes) }

// Len reports the current byte length.
func (s *BoundedString) Len() int { return len(s.bytes) }

// Cap reports the fixed maximum byte length.
func (s *BoundedString) Cap() int { return s.max }

// Checksum implements Checksummable.
func (s *BoundedString) Checksum(acc uint64) uint64 { return ChecksumBytes(acc, s.bytes) }

// WasmNameMaxBytes is the per-name byte ceiling from §3.3 of the
// specification (record/variant/flag/enum names, etc.).
const WasmNameMaxBytes = 64

// WasmName is a BoundedString specialized for Wasm identifiers
// (function, field, case names) with the module-wide per-name ceiling.
type WasmName struct {
	BoundedString
}

// NewWasmName constructs a WasmName bounded by WasmNameMaxBytes.
func NewWasmName(p *MemoryProvider) (*WasmName, error) {
	bs, err := NewBoundedString(WasmNameMaxBytes, p)
	if err != nil {
		return nil, err
	}
	return &WasmName{BoundedString: *bs}, nil
}
