// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package nncap

// BoundedCapability is the Sampling/ASIL-A tier: a narrower set of
// well-tested formats and tighter resource limits than Dynamic, with
// runtime monitoring enabled but still no pre-approval requirement.
type BoundedCapability struct {
	limits           ResourceLimits
	allowedFormats   []ModelFormat
	runtimeMonitoring bool
}

// NewBoundedCapability returns a Sampling-tier capability with its
// fixed ASIL-A resource envelope.
func NewBoundedCapability() *BoundedCapability {
	return &BoundedCapability{
		limits: ResourceLimits{
			MaxModelSize:           50 * 1024 * 1024,
			MaxTensorMemory:        20 * 1024 * 1024,
			MaxTensorDimensions:    6,
			MaxExecutionTimeMicros: 10_000_000,
			MaxConcurrentModels:    2,
			MaxConcurrentContexts:  4,
		},
		allowedFormats:    []ModelFormat{FormatONNX, FormatTractNative},
		runtimeMonitoring: true,
	}
}

func (c *BoundedCapability) VerificationLevel() VerificationLevel { return LevelSampling }

func (c *BoundedCapability) VerifyOperation(op Operation) error {
	switch op.Kind {
	case OpLoad:
		if op.Size > c.limits.MaxModelSize {
			return &ErrCapabilityViolation{Reason: "model size exceeds bounded limit"}
		}
		if !containsFormat(c.allowedFormats, op.Format) {
			return &ErrCapabilityViolation{Reason: "model format not in bounded set"}
		}
	case OpSetInput:
		if op.Size > c.limits.MaxTensorMemory {
			return &ErrCapabilityViolation{Reason: "tensor exceeds bounded memory"}
		}
		if len(op.Dimensions) > c.limits.MaxTensorDimensions {
			return &ErrCapabilityViolation{Reason: "tensor dimensions exceed bound"}
		}
	}
	return nil
}

func (c *BoundedCapability) ResourceLimits() ResourceLimits { return c.limits }
func (c *BoundedCapability) AllowsDynamicLoading() bool     { return true }
func (c *BoundedCapability) AllowedFormats() []ModelFormat  { return c.allowedFormats }
func (c *BoundedCapability) IsModelApproved(hash [32]byte) bool {
	return true
}
