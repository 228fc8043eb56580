// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package nncap

// DynamicCapability is the Standard/QM tier: any format, generous
// limits, no pre-approval requirement, optional resource tracking.
type DynamicCapability struct {
	limits          ResourceLimits
	allowedFormats  []ModelFormat
	resourceTracker *ResourceTracker
}

// NewDynamicCapability returns a Standard-tier capability with default
// limits and no resource tracking.
func NewDynamicCapability() *DynamicCapability {
	return &DynamicCapability{
		limits:         DefaultResourceLimits(),
		allowedFormats: allFormats(),
	}
}

// NewDynamicCapabilityWithTracking returns a Standard-tier capability
// that additionally enforces rate limits and concurrency quotas via a
// ResourceTracker.
func NewDynamicCapabilityWithTracking(limits ResourceLimits, rateLimits RateLimits) *DynamicCapability {
	return &DynamicCapability{
		limits:          limits,
		allowedFormats:  allFormats(),
		resourceTracker: NewResourceTracker(limits, rateLimits),
	}
}

func allFormats() []ModelFormat {
	return []ModelFormat{FormatONNX, FormatTensorFlow, FormatPyTorch, FormatOpenVINO, FormatTractNative}
}

func (c *DynamicCapability) VerificationLevel() VerificationLevel { return LevelStandard }

func (c *DynamicCapability) VerifyOperation(op Operation) error {
	if c.resourceTracker != nil {
		guard, err := c.resourceTracker.CheckOperationAllowed(op)
		if err != nil {
			return err
		}
		defer guard.Release()
	}

	switch op.Kind {
	case OpLoad:
		if op.Size > c.limits.MaxModelSize {
			return &ErrCapabilityViolation{Reason: "model size exceeds limit"}
		}
		if !containsFormat(c.allowedFormats, op.Format) {
			return &ErrCapabilityViolation{Reason: "model format not allowed"}
		}
	case OpSetInput:
		if op.Size > c.limits.MaxTensorMemory {
			return &ErrCapabilityViolation{Reason: "tensor size exceeds limit"}
		}
		if len(op.Dimensions) > c.limits.MaxTensorDimensions {
			return &ErrCapabilityViolation{Reason: "too many tensor dimensions"}
		}
	}
	return nil
}

func (c *DynamicCapability) ResourceLimits() ResourceLimits   { return c.limits }
func (c *DynamicCapability) AllowsDynamicLoading() bool       { return true }
func (c *DynamicCapability) AllowedFormats() []ModelFormat    { return c.allowedFormats }
func (c *DynamicCapability) IsModelApproved(hash [32]byte) bool {
	return true
}

// ResourceTrackerStats returns the tracker's usage statistics and true
// when tracking was enabled, or a zero value and false otherwise.
func (c *DynamicCapability) ResourceTrackerStats() (ResourceUsageStats, bool) {
	if c.resourceTracker == nil {
		return ResourceUsageStats{}, false
	}
	return c.resourceTracker.UsageStats(), true
}
