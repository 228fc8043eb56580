// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package nncap implements capability-based access control for neural
// network inference operations, mapping ASIL verification levels onto
// concrete resource limits and approved-model checks.
package nncap

import (
	"crypto/subtle"
	"fmt"
)

// VerificationLevel maps to the ASIL scale a capability operates at.
type VerificationLevel uint8

const (
	LevelStandard VerificationLevel = iota
	LevelSampling
	LevelContinuous
	LevelRedundant
	LevelFormal
)

func (l VerificationLevel) String() string {
	switch l {
	case LevelStandard:
		return "standard"
	case LevelSampling:
		return "sampling"
	case LevelContinuous:
		return "continuous"
	case LevelRedundant:
		return "redundant"
	case LevelFormal:
		return "formal"
	default:
		return "unknown"
	}
}

// ModelFormat enumerates the model serialization formats a capability
// may or may not accept.
type ModelFormat uint8

const (
	FormatONNX ModelFormat = iota
	FormatTensorFlow
	FormatPyTorch
	FormatOpenVINO
	FormatTractNative
)

// ResourceType enumerates NN subsystem resource kinds for cleanup
// operations.
type ResourceType uint8

const (
	ResourceModel ResourceType = iota
	ResourceExecutionContext
	ResourceTensor
)

// Operation is one capability-gated neural-network action.
type Operation struct {
	Kind         OperationKind
	Size         int
	Format       ModelFormat
	ModelID      uint32
	Dimensions   []uint32
	EstimatedFLOPs uint64
	OutputIndex  uint32
	Resource     ResourceType
}

// OperationKind discriminates the Operation variants.
type OperationKind uint8

const (
	OpLoad OperationKind = iota
	OpCreateContext
	OpSetInput
	OpCompute
	OpGetOutput
	OpDropResource
)

// ResourceLimits bounds the memory/time/concurrency an operation may
// consume.
type ResourceLimits struct {
	MaxModelSize          int
	MaxTensorMemory       int
	MaxTensorDimensions   int
	MaxExecutionTimeMicros uint64
	MaxConcurrentModels   int
	MaxConcurrentContexts int
}

// DefaultResourceLimits mirrors the Standard/QM tier's generous ceiling.
func DefaultResourceLimits() ResourceLimits {
	return ResourceLimits{
		MaxModelSize:           100 * 1024 * 1024,
		MaxTensorMemory:        50 * 1024 * 1024,
		MaxTensorDimensions:    8,
		MaxExecutionTimeMicros: 0,
		MaxConcurrentModels:    4,
		MaxConcurrentContexts:  8,
	}
}

// ErrCapabilityViolation is returned when an operation exceeds a
// capability's resource limits or isn't permitted at its tier.
type ErrCapabilityViolation struct {
	Reason string
}

func (e *ErrCapabilityViolation) Error() string {
	return fmt.Sprintf("nncap: %s", e.Reason)
}

// ErrUnsupportedLevel is returned when a caller requests a
// VerificationLevel no capability implementation exists for yet,
// distinguishing "not built yet" from a policy-denied
// ErrCapabilityViolation so callers can tell the two apart with
// errors.As.
type ErrUnsupportedLevel struct {
	Level VerificationLevel
}

func (e *ErrUnsupportedLevel) Error() string {
	return fmt.Sprintf("nncap: verification level %s is not supported by this capability factory", e.Level)
}

// Capability is the common interface every verification tier
// implements; VerifyOperation is the capability gate callers must pass
// before performing an NN action.
type Capability interface {
	VerificationLevel() VerificationLevel
	VerifyOperation(op Operation) error
	ResourceLimits() ResourceLimits
	AllowsDynamicLoading() bool
	AllowedFormats() []ModelFormat
	IsModelApproved(hash [32]byte) bool
}

func containsFormat(formats []ModelFormat, f ModelFormat) bool {
	for _, candidate := range formats {
		if candidate == f {
			return true
		}
	}
	return false
}

// constantTimeModelApproved reports whether hash matches any entry in
// approved, comparing every entry and accumulating the result with
// bitwise OR so that execution time doesn't depend on which entry (if
// any) matches, or on how early a mismatch occurs within an entry.
func constantTimeModelApproved(approved [][32]byte, hash [32]byte) bool {
	var anyMatch int
	for _, candidate := range approved {
		anyMatch |= subtle.ConstantTimeCompare(candidate[:], hash[:])
	}
	return anyMatch == 1
}

// CreateCapability returns the capability implementation for level,
// following the factory mapping: ASIL-C/D (Redundant/Formal) have no
// capability implementation yet and return ErrUnsupportedLevel rather
// than a degraded capability or a policy-denial ErrCapabilityViolation.
func CreateCapability(level VerificationLevel) (Capability, error) {
	switch level {
	case LevelStandard:
		return NewDynamicCapability(), nil
	case LevelSampling:
		return NewBoundedCapability(), nil
	case LevelContinuous:
		return NewStaticCapability(nil), nil
	case LevelRedundant, LevelFormal:
		return nil, &ErrUnsupportedLevel{Level: level}
	default:
		return nil, &ErrUnsupportedLevel{Level: level}
	}
}
