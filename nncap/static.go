// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package nncap

// StaticCapability is the Continuous/ASIL-B tier: only pre-approved
// model hashes may load, only deterministic formats are accepted, and
// hash approval is checked in constant time to avoid leaking which
// hashes are in the approved set via timing.
type StaticCapability struct {
	limits               ResourceLimits
	approvedModels       [][32]byte
	deterministicExecution bool
}

// NewStaticCapability returns a Continuous-tier capability whose only
// loadable models are those in approvedHashes.
func NewStaticCapability(approvedHashes [][32]byte) *StaticCapability {
	approved := make([][32]byte, len(approvedHashes))
	copy(approved, approvedHashes)
	return &StaticCapability{
		limits: ResourceLimits{
			MaxModelSize:           20 * 1024 * 1024,
			MaxTensorMemory:        10 * 1024 * 1024,
			MaxTensorDimensions:    4,
			MaxExecutionTimeMicros: 1_000_000,
			MaxConcurrentModels:    1,
			MaxConcurrentContexts:  2,
		},
		approvedModels:         approved,
		deterministicExecution: true,
	}
}

func (c *StaticCapability) VerificationLevel() VerificationLevel { return LevelContinuous }

func (c *StaticCapability) VerifyOperation(op Operation) error {
	switch op.Kind {
	case OpLoad:
		if op.Size > c.limits.MaxModelSize {
			return &ErrCapabilityViolation{Reason: "model exceeds static allocation"}
		}
		if op.Format != FormatONNX && op.Format != FormatTractNative {
			return &ErrCapabilityViolation{Reason: "format not verified for deterministic execution"}
		}
	case OpSetInput:
		if op.Size > c.limits.MaxTensorMemory {
			return &ErrCapabilityViolation{Reason: "tensor exceeds static memory pool"}
		}
		if len(op.Dimensions) > c.limits.MaxTensorDimensions {
			return &ErrCapabilityViolation{Reason: "tensor complexity exceeds static limit"}
		}
	case OpCompute:
		if !c.deterministicExecution {
			return &ErrCapabilityViolation{Reason: "non-deterministic execution not allowed"}
		}
	}
	return nil
}

func (c *StaticCapability) ResourceLimits() ResourceLimits { return c.limits }
func (c *StaticCapability) AllowsDynamicLoading() bool     { return false }
func (c *StaticCapability) AllowedFormats() []ModelFormat {
	return []ModelFormat{FormatONNX, FormatTractNative}
}

// IsModelApproved checks hash against the approved set in constant
// time: every candidate is compared and the results are combined with
// bitwise OR, so the number of matching or mismatching bytes never
// affects control flow.
func (c *StaticCapability) IsModelApproved(hash [32]byte) bool {
	return constantTimeModelApproved(c.approvedModels, hash)
}
