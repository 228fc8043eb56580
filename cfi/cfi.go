// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package cfi implements Control Flow Integrity protection wrapped
// around an instruction stepper: a shadow stack for return addresses,
// landing-pad validation for indirect calls, and policy-driven
// handling of any violation raised along the way.
package cfi

import (
	"context"
	"fmt"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/bytecodealliance/wasmtime-go/v13"
	"github.com/pulseengine/wrt-go/foundation"
	"github.com/pulseengine/wrt-go/internal/wasmref"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	maxShadowStackDepth  = 64
	maxLandingPads       = 32
	maxValidBranchTargets = 256
	maxViolationCount    = 10
)

// ShadowStackEntry records one call frame's return address, stack
// pointer, and owning function, so a later return can be checked
// against it.
type ShadowStackEntry struct {
	ReturnAddress uint32
	StackPointer  uint32
	FunctionIndex uint32
}

// Checksum implements foundation.Checksummable.
func (e ShadowStackEntry) Checksum(acc uint64) uint64 {
	acc = foundation.ChecksumBytes(acc, u32le(e.ReturnAddress))
	acc = foundation.ChecksumBytes(acc, u32le(e.StackPointer))
	return foundation.ChecksumBytes(acc, u32le(e.FunctionIndex))
}

func u32le(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// LandingPadExpectation is a pending requirement that execution reach
// a specific (function, offset) landing pad before a fuel-time
// deadline.
type LandingPadExpectation struct {
	FunctionIndex uint32
	Offset        uint32
	DeadlineFuel  uint64
}

// ViolationType enumerates the distinct CFI faults the engine can
// raise.
type ViolationType uint8

const (
	ViolationNone ViolationType = iota
	ViolationShadowStackOverflow
	ViolationShadowStackMismatch
	ViolationMissingLandingPad
	ViolationInvalidLandingPad
	ViolationLandingPadTimeout
	ViolationExcessiveViolations
	ViolationInvalidBranchTarget
	ViolationIndirectCallTypeMismatch
)

func (v ViolationType) String() string {
	switch v {
	case ViolationShadowStackOverflow:
		return "shadow stack overflow"
	case ViolationShadowStackMismatch:
		return "shadow stack mismatch"
	case ViolationMissingLandingPad:
		return "missing landing pad"
	case ViolationInvalidLandingPad:
		return "invalid landing pad"
	case ViolationLandingPadTimeout:
		return "landing pad timeout"
	case ViolationExcessiveViolations:
		return "excessive violations"
	case ViolationInvalidBranchTarget:
		return "invalid branch target"
	case ViolationIndirectCallTypeMismatch:
		return "indirect call type mismatch"
	default:
		return "none"
	}
}

// WasmtimeTrapCode returns the wasmtime.TrapCode a comparable
// wasmtime-hosted module would raise for this violation, for hosts
// that log this engine and a wasmtime-backed one through one
// trap-code vocabulary.
func (v ViolationType) WasmtimeTrapCode() wasmtime.TrapCode {
	switch v {
	case ViolationShadowStackOverflow:
		return wasmref.TrapCodeFor("shadow_stack_overflow")
	case ViolationIndirectCallTypeMismatch:
		return wasmref.TrapCodeFor("indirect_call_type_mismatch")
	case ViolationInvalidBranchTarget, ViolationInvalidLandingPad:
		return wasmref.TrapCodeFor("invalid_branch_target")
	default:
		return wasmref.TrapCodeFor("")
	}
}

// ViolationError wraps a raised ViolationType as a Go error so
// ReturnError policy callers get a typed value via errors.As.
type ViolationError struct {
	Type ViolationType
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("cfi: violation: %s", e.Type)
}

// ViolationPolicy selects how the engine responds to a raised
// violation.
type ViolationPolicy uint8

const (
	// PolicyReturnError surfaces a typed error to the caller. Default.
	PolicyReturnError ViolationPolicy = iota
	PolicyLogAndContinue
	PolicyTerminate
	PolicyAttemptRecovery
)

// ControlOpKind enumerates the control-flow instruction shapes the
// engine dispatches specially; anything else is a "regular"
// instruction routed to the wrapped stepper.
type ControlOpKind uint8

const (
	OpOther ControlOpKind = iota
	OpCallIndirect
	OpReturn
	OpBr
	OpBrIf
	OpCall
	OpOtherControl
)

// Instruction is the minimal shape the CFI engine needs from whatever
// instruction representation the caller's stepper uses.
type Instruction struct {
	Op         ControlOpKind
	TypeIdx    uint32
	TableIdx   uint32
	Label      uint32
	FuncIdx    uint32
}

// Stepper executes a single non-control instruction. The CFI engine
// delegates to it for everything outside the control-flow ops it
// special-cases, so a host runtime's regular interpreter loop plugs in
// unchanged.
type Stepper interface {
	Step(instr Instruction, ctx *ExecutionContext) error
}

// ExecutionContext is the live execution state the engine reads and
// mutates each instruction: current function, instruction pointer, and
// stack pointer.
type ExecutionContext struct {
	FunctionIndex    uint32
	InstructionPointer uint32
	StackPointer     uint32
	FuelConsumed     uint64
}

// State is the CFI-specific execution context: shadow stack, pending
// landing-pad expectations, and the set of branch targets this
// function is permitted to jump to.
type State struct {
	ShadowStack       []ShadowStackEntry
	LandingPads       []LandingPadExpectation
	ValidBranchTargets []uint32
	ViolationCount    int
}

// NewState returns an empty CFI state.
func NewState() *State {
	return &State{}
}

func (s *State) pushShadowStack(e ShadowStackEntry) error {
	if len(s.ShadowStack) >= maxShadowStackDepth {
		return &ViolationError{Type: ViolationShadowStackOverflow}
	}
	s.ShadowStack = append(s.ShadowStack, e)
	return nil
}

func (s *State) popShadowStack() (ShadowStackEntry, bool) {
	if len(s.ShadowStack) == 0 {
		return ShadowStackEntry{}, false
	}
	last := s.ShadowStack[len(s.ShadowStack)-1]
	s.ShadowStack = s.ShadowStack[:len(s.ShadowStack)-1]
	return last, true
}

func (s *State) addLandingPad(e LandingPadExpectation) error {
	if len(s.LandingPads) >= maxLandingPads {
		return &ViolationError{Type: ViolationInvalidLandingPad}
	}
	s.LandingPads = append(s.LandingPads, e)
	return nil
}

func (s *State) addValidBranchTarget(t uint32) error {
	if len(s.ValidBranchTargets) >= maxValidBranchTargets {
		return &ViolationError{Type: ViolationInvalidBranchTarget}
	}
	s.ValidBranchTargets = append(s.ValidBranchTargets, t)
	return nil
}

func (s *State) isValidBranchTarget(t uint32) bool {
	for _, v := range s.ValidBranchTargets {
		if v == t {
			return true
		}
	}
	return false
}

// Metrics accumulates observational statistics over the engine's
// lifetime.
type Metrics struct {
	InstructionsProtected  uint64
	OverheadNanos          uint64
	PeakShadowStackDepth   int
	LandingPadsValidated   uint64
	ControlFlowChanges     uint64
}

// ExecutionResult is what ExecuteInstructionWithCFI returns on the
// success path.
type ExecutionResult uint8

const (
	ResultContinue ExecutionResult = iota
	ResultReturned
	ResultBranched
	ResultCalled
)

// HardwareCFI is the architecture-specific integration seam: inserting
// a landing-pad instruction at an indirect-call target and validating
// that the target actually carries one. The software-only build
// (cfi_software.go) provides a no-op implementation; arm64/riscv64
// builds (cfi_arm64.go, cfi_riscv64.go) provide real ones.
type HardwareCFI interface {
	TagIndirectCallTarget(addr uint32)
	ValidateLandingPad(addr uint32) bool
}

// Engine wraps a Stepper with CFI validation, per-instruction
// dispatch, and policy-driven violation handling.
type Engine struct {
	state    *State
	stepper  Stepper
	policy   ViolationPolicy
	metrics  Metrics
	hardware HardwareCFI
	log      logging.Logger
	tracer   trace.Tracer

	tableTypes map[uint32]uint32 // table_idx*large+entry -> type_idx, populated by the host
}

// New returns an engine with the default ReturnError policy. Tracing
// uses the global otel TracerProvider, a no-op until the host installs
// a real one, so span emission is safe to leave on unconditionally.
func New(stepper Stepper, hardware HardwareCFI) *Engine {
	return &Engine{
		state:      NewState(),
		stepper:    stepper,
		policy:     PolicyReturnError,
		hardware:   hardware,
		log:        logging.NoLog{},
		tracer:     otel.Tracer("github.com/pulseengine/wrt-go/cfi"),
		tableTypes: make(map[uint32]uint32),
	}
}

// SetLogger attaches log for violation-policy decisions: Warn when a
// violation is logged-and-continued or recovered from, Error when the
// engine terminates execution for it.
func (e *Engine) SetLogger(log logging.Logger) {
	if log == nil {
		log = logging.NoLog{}
	}
	e.log = log
}

// StartBatch opens one otel span covering a batch of subsequent
// ExecuteInstructionWithCFI calls (a basic block or host call), since
// a span per instruction would dwarf the work it measures. Callers
// defer span.End() themselves.
func (e *Engine) StartBatch(ctx context.Context, batchLabel string) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, batchLabel, trace.WithAttributes(
		attribute.Int("cfi.shadow_stack_depth", len(e.state.ShadowStack)),
		attribute.Int("cfi.violation_count", e.state.ViolationCount),
	))
}

// NewWithPolicy returns an engine using the given violation policy.
func NewWithPolicy(stepper Stepper, hardware HardwareCFI, policy ViolationPolicy) *Engine {
	e := New(stepper, hardware)
	e.policy = policy
	return e
}

// State returns the engine's CFI state, for callers that need to seed
// valid branch targets or landing-pad expectations before execution.
func (e *Engine) State() *State { return e.state }

// Metrics returns accumulated statistics.
func (e *Engine) Metrics() Metrics { return e.metrics }

// SetIndirectCallTarget records the expected type index for a given
// (table_idx, entry) pair, used by call_indirect validation.
func (e *Engine) SetIndirectCallTarget(tableIdx, entry, typeIdx uint32) {
	e.tableTypes[tableKey(tableIdx, entry)] = typeIdx
}

func tableKey(tableIdx, entry uint32) uint32 {
	return tableIdx*1_000_003 + entry
}

// AddLandingPadExpectation registers a pending landing pad the engine
// must observe before deadlineFuel fuel-time elapses.
func (e *Engine) AddLandingPadExpectation(exp LandingPadExpectation) error {
	return e.state.addLandingPad(exp)
}

// AddValidBranchTarget whitelists a branch label for this function.
func (e *Engine) AddValidBranchTarget(target uint32) error {
	return e.state.addValidBranchTarget(target)
}

// ExecuteInstructionWithCFI runs one instruction through the full CFI
// pipeline: context update, pre-execution validation, dispatch, and
// post-execution validation, applying the configured ViolationPolicy
// to any violation raised along the way.
func (e *Engine) ExecuteInstructionWithCFI(instr Instruction, ctx *ExecutionContext) (ExecutionResult, error) {
	start := time.Now()

	if err := e.validatePreExecution(ctx); err != nil {
		return e.applyPolicy(err, ctx)
	}

	result, err := e.dispatch(instr, ctx)

	e.metrics.InstructionsProtected++
	e.metrics.OverheadNanos += uint64(time.Since(start).Nanoseconds())
	if len(e.state.ShadowStack) > e.metrics.PeakShadowStackDepth {
		e.metrics.PeakShadowStackDepth = len(e.state.ShadowStack)
	}

	if err != nil {
		if wasmref.IsStackOverflow(err) {
			err = &ViolationError{Type: ViolationShadowStackOverflow}
		}
		return e.applyPolicy(err, ctx)
	}
	return result, nil
}

func (e *Engine) validatePreExecution(ctx *ExecutionContext) error {
	kept := e.state.LandingPads[:0]
	for _, exp := range e.state.LandingPads {
		if exp.FunctionIndex == ctx.FunctionIndex && exp.Offset == ctx.InstructionPointer {
			e.metrics.LandingPadsValidated++
			continue // satisfied; drop it
		}
		if ctx.FuelConsumed > exp.DeadlineFuel {
			return &ViolationError{Type: ViolationLandingPadTimeout}
		}
		kept = append(kept, exp)
	}
	e.state.LandingPads = kept

	if len(e.state.ShadowStack) > maxShadowStackDepth {
		return &ViolationError{Type: ViolationShadowStackOverflow}
	}
	if e.state.ViolationCount > maxViolationCount {
		return &ViolationError{Type: ViolationExcessiveViolations}
	}
	return nil
}

func (e *Engine) dispatch(instr Instruction, ctx *ExecutionContext) (ExecutionResult, error) {
	switch instr.Op {
	case OpCallIndirect:
		return e.executeCallIndirect(instr, ctx)
	case OpReturn:
		return e.executeReturn(ctx)
	case OpBr, OpBrIf:
		return e.executeBranch(instr, ctx)
	case OpCall:
		return e.executeCall(instr, ctx)
	case OpOtherControl:
		e.metrics.ControlFlowChanges++
		return ResultContinue, nil
	default:
		ctx.FuelConsumed++ // minimum fuel for CFI overhead on regular instructions
		if err := e.stepper.Step(instr, ctx); err != nil {
			return ResultContinue, err
		}
		return ResultContinue, nil
	}
}

func (e *Engine) executeCallIndirect(instr Instruction, ctx *ExecutionContext) (ExecutionResult, error) {
	expectedType, ok := e.tableTypes[tableKey(instr.TableIdx, instr.FuncIdx)]
	if !ok || expectedType != instr.TypeIdx {
		return ResultContinue, &ViolationError{Type: ViolationIndirectCallTypeMismatch}
	}
	if e.hardware != nil && !e.hardware.ValidateLandingPad(instr.FuncIdx) {
		return ResultContinue, &ViolationError{Type: ViolationInvalidLandingPad}
	}
	if err := e.state.pushShadowStack(ShadowStackEntry{
		ReturnAddress: ctx.InstructionPointer + 1,
		StackPointer:  ctx.StackPointer,
		FunctionIndex: ctx.FunctionIndex,
	}); err != nil {
		return ResultContinue, err
	}
	return ResultCalled, nil
}

func (e *Engine) executeReturn(ctx *ExecutionContext) (ExecutionResult, error) {
	entry, ok := e.state.popShadowStack()
	if !ok {
		return ResultContinue, &ViolationError{Type: ViolationShadowStackMismatch}
	}
	if entry.FunctionIndex != ctx.FunctionIndex {
		return ResultContinue, &ViolationError{Type: ViolationShadowStackMismatch}
	}
	return ResultReturned, nil
}

func (e *Engine) executeBranch(instr Instruction, ctx *ExecutionContext) (ExecutionResult, error) {
	if !e.state.isValidBranchTarget(instr.Label) {
		return ResultContinue, &ViolationError{Type: ViolationInvalidBranchTarget}
	}
	return ResultBranched, nil
}

func (e *Engine) executeCall(instr Instruction, ctx *ExecutionContext) (ExecutionResult, error) {
	if err := e.state.pushShadowStack(ShadowStackEntry{
		ReturnAddress: ctx.InstructionPointer + 1,
		StackPointer:  ctx.StackPointer,
		FunctionIndex: ctx.FunctionIndex,
	}); err != nil {
		return ResultContinue, err
	}
	return ResultCalled, nil
}

// applyPolicy implements the four ViolationPolicy behaviors.
func (e *Engine) applyPolicy(err error, ctx *ExecutionContext) (ExecutionResult, error) {
	e.state.ViolationCount++

	fields := []zap.Field{
		zap.Error(err),
		zap.Uint32("functionIndex", ctx.FunctionIndex),
	}
	if ve, ok := err.(*ViolationError); ok {
		fields = append(fields, zap.String("wasmtimeTrapCode", fmt.Sprintf("%v", ve.Type.WasmtimeTrapCode())))
	}

	switch e.policy {
	case PolicyLogAndContinue:
		e.log.Warn("CFI violation, continuing per policy", fields...)
		return ResultContinue, nil
	case PolicyTerminate:
		e.log.Error("CFI violation, terminating per policy", fields...)
		return ResultContinue, err
	case PolicyAttemptRecovery:
		e.log.Warn("CFI violation, attempting recovery", fields...)
		e.state.LandingPads = nil
		if len(e.state.ShadowStack) > 0 {
			e.state.ShadowStack = e.state.ShadowStack[:1]
		}
		return ResultContinue, nil
	default: // PolicyReturnError
		e.log.Error("CFI violation, returning error per policy", fields...)
		return ResultContinue, err
	}
}

// Reset clears all CFI state (shadow stack, landing pads, branch
// targets) without resetting accumulated metrics.
func (e *Engine) Reset() {
	e.state = NewState()
}
