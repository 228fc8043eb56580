// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wasmref

import (
	"errors"
	"testing"

	"github.com/bytecodealliance/wasmtime-go/v13"
	"github.com/stretchr/testify/require"
)

func TestTrapCodeForMapsKnownViolations(t *testing.T) {
	require.Equal(t, wasmtime.StackOverflow, TrapCodeFor("shadow_stack_overflow"))
	require.Equal(t, wasmtime.MemoryOutOfBounds, TrapCodeFor("memory_access_out_of_bounds"))
	require.Equal(t, wasmtime.IndirectCallBadSignature, TrapCodeFor("indirect_call_type_mismatch"))
	require.Equal(t, wasmtime.UnreachableCodeReached, TrapCodeFor("invalid_branch_target"))
	require.Equal(t, wasmtime.UnreachableCodeReached, TrapCodeFor("invalid_landing_pad"))
	require.Equal(t, wasmtime.UnreachableCodeReached, TrapCodeFor("something_unmapped"))
}

func TestIsStackOverflowRejectsNonTrapErrors(t *testing.T) {
	require.False(t, IsStackOverflow(errors.New("not a trap")))
	require.False(t, IsStackOverflow(nil))
}

func TestIsStackOverflowDetectsRealStackOverflowTrap(t *testing.T) {
	engine := wasmtime.NewEngine()
	store := wasmtime.NewStore(engine)

	wasm, err := wasmtime.Wat2Wasm(`
	(module
	  (func $recurse (export "recurse") (result i32)
	    call $recurse)
	)
	`)
	require.NoError(t, err)

	module, err := wasmtime.NewModule(store.Engine, wasm)
	require.NoError(t, err)

	instance, err := wasmtime.NewInstance(store, module, nil)
	require.NoError(t, err)

	recurse := instance.GetExport(store, "recurse").Func()
	_, callErr := recurse.Call(store)
	require.Error(t, callErr)
	require.True(t, IsStackOverflow(callErr))
}
