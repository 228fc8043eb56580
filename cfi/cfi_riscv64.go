// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

//go:build riscv64

package cfi

import "sync"

// RiscvCFI tracks landing-pad (lpad) instruction labels inserted at
// indirect-call targets, per the RISC-V Zicfilp extension's labeling
// scheme.
type RiscvCFI struct {
	mu     sync.Mutex
	labels map[uint32]uint32
}

// NewHardwareCFI returns the riscv64 HardwareCFI implementation.
func NewHardwareCFI() HardwareCFI {
	return &RiscvCFI{labels: make(map[uint32]uint32)}
}

// TagIndirectCallTarget inserts a landing-pad instruction with label 0
// at addr — label checking against the caller's expected label is left
// to ValidateLandingPad's caller, which already knows the expected
// type index from the call-indirect validation step.
func (r *RiscvCFI) TagIndirectCallTarget(addr uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labels[addr] = 0
}

// ValidateLandingPad reports whether addr carries a landing-pad label.
func (r *RiscvCFI) ValidateLandingPad(addr uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.labels[addr]
	return ok
}
