// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

//go:build !arm64 && !riscv64

package cfi

// SoftwareCFI is the fallback HardwareCFI implementation for
// architectures with no native CFI instruction support. Every target
// validates as sound; landing-pad enforcement stays entirely in the
// shadow-stack/landing-pad bookkeeping in State.
type SoftwareCFI struct{}

// NewHardwareCFI returns the architecture's HardwareCFI implementation.
func NewHardwareCFI() HardwareCFI {
	return SoftwareCFI{}
}

func (SoftwareCFI) TagIndirectCallTarget(addr uint32) {}

func (SoftwareCFI) ValidateLandingPad(addr uint32) bool { return true }
