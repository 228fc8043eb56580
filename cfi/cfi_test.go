// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cfi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingStepper struct {
	steps int
}

func (s *recordingStepper) Step(instr Instruction, ctx *ExecutionContext) error {
	s.steps++
	return nil
}

func newTestEngine(policy ViolationPolicy) (*Engine, *recordingStepper) {
	stepper := &recordingStepper{}
	return NewWithPolicy(stepper, NewHardwareCFI(), policy), stepper
}

func TestRegularInstructionPassesThroughToStepper(t *testing.T) {
	engine, stepper := newTestEngine(PolicyReturnError)
	ctx := &ExecutionContext{}

	result, err := engine.ExecuteInstructionWithCFI(Instruction{Op: OpOther}, ctx)
	require.NoError(t, err)
	require.Equal(t, ResultContinue, result)
	require.Equal(t, 1, stepper.steps)
	require.Equal(t, uint64(1), ctx.FuelConsumed)
}

func TestCallPushesShadowStackAndReturnPopsIt(t *testing.T) {
	engine, _ := newTestEngine(PolicyReturnError)
	ctx := &ExecutionContext{FunctionIndex: 3}

	_, err := engine.ExecuteInstructionWithCFI(Instruction{Op: OpCall, FuncIdx: 9}, ctx)
	require.NoError(t, err)
	require.Len(t, engine.State().ShadowStack, 1)

	_, err = engine.ExecuteInstructionWithCFI(Instruction{Op: OpReturn}, ctx)
	require.NoError(t, err)
	require.Len(t, engine.State().ShadowStack, 0)
}

func TestReturnWithEmptyShadowStackIsMismatch(t *testing.T) {
	engine, _ := newTestEngine(PolicyReturnError)
	ctx := &ExecutionContext{}

	_, err := engine.ExecuteInstructionWithCFI(Instruction{Op: OpReturn}, ctx)
	require.Error(t, err)
	var vErr *ViolationError
	require.True(t, errors.As(err, &vErr))
	require.Equal(t, ViolationShadowStackMismatch, vErr.Type)
}

func TestBranchToUnlistedTargetFails(t *testing.T) {
	engine, _ := newTestEngine(PolicyReturnError)
	ctx := &ExecutionContext{}

	_, err := engine.ExecuteInstructionWithCFI(Instruction{Op: OpBr, Label: 5}, ctx)
	require.Error(t, err)
}

func TestBranchToListedTargetSucceeds(t *testing.T) {
	engine, _ := newTestEngine(PolicyReturnError)
	require.NoError(t, engine.AddValidBranchTarget(5))
	ctx := &ExecutionContext{}

	result, err := engine.ExecuteInstructionWithCFI(Instruction{Op: OpBr, Label: 5}, ctx)
	require.NoError(t, err)
	require.Equal(t, ResultBranched, result)
}

func TestCallIndirectRequiresMatchingType(t *testing.T) {
	engine, _ := newTestEngine(PolicyReturnError)
	ctx := &ExecutionContext{}

	_, err := engine.ExecuteInstructionWithCFI(Instruction{Op: OpCallIndirect, TableIdx: 0, FuncIdx: 2, TypeIdx: 7}, ctx)
	require.Error(t, err)

	engine.SetIndirectCallTarget(0, 2, 7)
	result, err := engine.ExecuteInstructionWithCFI(Instruction{Op: OpCallIndirect, TableIdx: 0, FuncIdx: 2, TypeIdx: 7}, ctx)
	require.NoError(t, err)
	require.Equal(t, ResultCalled, result)
}

func TestLogAndContinuePolicySwallowsViolation(t *testing.T) {
	engine, _ := newTestEngine(PolicyLogAndContinue)
	ctx := &ExecutionContext{}

	result, err := engine.ExecuteInstructionWithCFI(Instruction{Op: OpReturn}, ctx)
	require.NoError(t, err)
	require.Equal(t, ResultContinue, result)
}

func TestLandingPadSatisfiedIsValidatedAndDropped(t *testing.T) {
	engine, _ := newTestEngine(PolicyReturnError)
	require.NoError(t, engine.AddLandingPadExpectation(LandingPadExpectation{
		FunctionIndex: 1, Offset: 10, DeadlineFuel: 1000,
	}))
	ctx := &ExecutionContext{FunctionIndex: 1, InstructionPointer: 10}

	_, err := engine.ExecuteInstructionWithCFI(Instruction{Op: OpOther}, ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), engine.Metrics().LandingPadsValidated)
	require.Len(t, engine.State().LandingPads, 0)
}

func TestLandingPadTimeoutRaisesViolation(t *testing.T) {
	engine, _ := newTestEngine(PolicyReturnError)
	require.NoError(t, engine.AddLandingPadExpectation(LandingPadExpectation{
		FunctionIndex: 1, Offset: 99, DeadlineFuel: 5,
	}))
	ctx := &ExecutionContext{FunctionIndex: 2, InstructionPointer: 0, FuelConsumed: 10}

	_, err := engine.ExecuteInstructionWithCFI(Instruction{Op: OpOther}, ctx)
	require.Error(t, err)
	var vErr *ViolationError
	require.True(t, errors.As(err, &vErr))
	require.Equal(t, ViolationLandingPadTimeout, vErr.Type)
}

func TestMetricsTrackInstructionsAndPeakDepth(t *testing.T) {
	engine, _ := newTestEngine(PolicyReturnError)
	ctx := &ExecutionContext{}

	_, _ = engine.ExecuteInstructionWithCFI(Instruction{Op: OpCall}, ctx)
	_, _ = engine.ExecuteInstructionWithCFI(Instruction{Op: OpCall}, ctx)
	require.Equal(t, uint64(2), engine.Metrics().InstructionsProtected)
	require.Equal(t, 2, engine.Metrics().PeakShadowStackDepth)
}
