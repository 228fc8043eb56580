// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wasmref bridges this runtime's own CFI violation and
// scheduler fuel-exhaustion vocabulary to the trap-code and
// fuel-metering conventions `wasmtime-go` uses for the same faults,
// so a host embedding both this engine and a wasmtime-backed one can
// report violations consistently. Nothing here instantiates a real
// wasmtime.Engine; the dependency is used purely for its stable
// TrapCode enumeration.
package wasmref

import "github.com/bytecodealliance/wasmtime-go/v13"

// TrapCodeFor maps a CFI violation category to the wasmtime.TrapCode a
// comparable wasmtime-hosted module would raise for the same fault,
// for hosts that log both engines through one trap-code vocabulary.
func TrapCodeFor(violation string) wasmtime.TrapCode {
	switch violation {
	case "shadow_stack_overflow":
		return wasmtime.StackOverflow
	case "memory_access_out_of_bounds":
		return wasmtime.MemoryOutOfBounds
	case "indirect_call_type_mismatch":
		return wasmtime.IndirectCallBadSignature
	case "invalid_branch_target", "invalid_landing_pad":
		return wasmtime.UnreachableCodeReached
	default:
		return wasmtime.UnreachableCodeReached
	}
}

// IsStackOverflow reports whether err is a wasmtime.Trap carrying the
// StackOverflow code, mirroring memory_test.go's trap-unwrapping idiom
// for hosts that run both engines behind one fault-reporting path.
func IsStackOverflow(err error) bool {
	trap, ok := err.(*wasmtime.Trap)
	if !ok {
		return false
	}
	code := trap.Code()
	return code != nil && *code == wasmtime.StackOverflow
}
