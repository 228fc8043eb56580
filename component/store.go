// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package component

import (
	"fmt"
	"sync"
)

// TypeStore is a process-wide (or per-component) registry assigning each
// distinct ValType a stable ValTypeRef on first registration. Appends
// are monotonic: indices never invalidate, matching §4.2/§9's "created
// on init; never shrunk" global-state rule. Interning is not performed —
// duplicate structurally-equal types may or may not share a ref — so
// equality on ValTypeRef stays reference-equality while equality on
// ValType stays structural (resolved via Equal).
type TypeStore struct {
	mu    sync.RWMutex
	types []ValType
}

// NewTypeStore returns an empty store.
func NewTypeStore() *TypeStore {
	return &TypeStore{}
}

// Register validates t's capacity ceilings and appends it, returning a
// stable ValTypeRef.
func (s *TypeStore) Register(t ValType) (ValTypeRef, error) {
	if err := t.validateCeilings(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types = append(s.types, t)
	return ValTypeRef(len(s.types) - 1), nil
}

// Resolve returns the ValType registered at ref.
func (s *TypeStore) Resolve(ref ValTypeRef) (ValType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(ref) >= len(s.types) {
		return ValType{}, fmt.Errorf("component: type ref %d not registered (store has %d entries)", ref, len(s.types))
	}
	return s.types[ref], nil
}

// Len reports the number of registered types.
func (s *TypeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.types)
}

// ValueRef is an opaque index into a ValueStore.
type ValueRef uint32

// ValueStore vends ValueRefs and holds owned ComponentValues, mirroring
// TypeStore's append-only, monotonic-index design so that values can
// reference other values (record fields, list items, ...) without
// owning them directly.
type ValueStore struct {
	mu     sync.RWMutex
	values []ComponentValue
}

// NewValueStore returns an empty store.
func NewValueStore() *ValueStore {
	return &ValueStore{}
}

// Put appends v and returns its stable ValueRef.
func (s *ValueStore) Put(v ComponentValue) ValueRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = append(s.values, v)
	return ValueRef(len(s.values) - 1)
}

// Get returns the value registered at ref.
func (s *ValueStore) Get(ref ValueRef) (ComponentValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(ref) >= len(s.values) {
		return ComponentValue{}, fmt.Errorf("component: value ref %d not registered (store has %d entries)", ref, len(s.values))
	}
	return s.values[ref], nil
}

// Len reports the number of stored values.
func (s *ValueStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
