// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package nncap

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDynamicCapabilityAllowsLargeModel(t *testing.T) {
	cap := NewDynamicCapability()
	require.Equal(t, LevelStandard, cap.VerificationLevel())
	require.True(t, cap.AllowsDynamicLoading())

	err := cap.VerifyOperation(Operation{Kind: OpLoad, Size: 50 * 1024 * 1024, Format: FormatONNX})
	require.NoError(t, err)
}

func TestDynamicCapabilityRejectsDisallowedFormatWhenRestricted(t *testing.T) {
	cap := NewDynamicCapability()
	cap.allowedFormats = []ModelFormat{FormatONNX}

	err := cap.VerifyOperation(Operation{Kind: OpLoad, Size: 1024, Format: FormatPyTorch})
	require.Error(t, err)
}

func TestBoundedCapabilityRejectsOversizedModel(t *testing.T) {
	cap := NewBoundedCapability()
	require.Equal(t, LevelSampling, cap.VerificationLevel())

	err := cap.VerifyOperation(Operation{Kind: OpLoad, Size: 100 * 1024 * 1024, Format: FormatONNX})
	require.Error(t, err)
}

func TestBoundedCapabilityRejectsFormatOutsideBoundedSet(t *testing.T) {
	cap := NewBoundedCapability()
	err := cap.VerifyOperation(Operation{Kind: OpLoad, Size: 1024, Format: FormatPyTorch})
	require.Error(t, err)
}

func TestStaticCapabilityRejectsNonDeterministicFormat(t *testing.T) {
	cap := NewStaticCapability(nil)
	require.Equal(t, LevelContinuous, cap.VerificationLevel())
	require.False(t, cap.AllowsDynamicLoading())

	err := cap.VerifyOperation(Operation{Kind: OpLoad, Size: 10 * 1024 * 1024, Format: FormatPyTorch})
	require.Error(t, err)
}

func TestStaticCapabilityAcceptsApprovedDeterministicFormat(t *testing.T) {
	cap := NewStaticCapability(nil)
	err := cap.VerifyOperation(Operation{Kind: OpLoad, Size: 1024, Format: FormatONNX})
	require.NoError(t, err)
}

func TestConstantTimeModelApproval(t *testing.T) {
	hash1 := [32]byte{}
	hash2 := [32]byte{}
	hash3 := [32]byte{}
	for i := range hash1 {
		hash1[i] = 0xAA
		hash2[i] = 0xBB
		hash3[i] = 0xCC
	}

	cap := NewStaticCapability([][32]byte{hash1, hash2, hash3})

	require.True(t, cap.IsModelApproved(hash1))
	require.True(t, cap.IsModelApproved(hash2))
	require.True(t, cap.IsModelApproved(hash3))

	unapproved := [32]byte{}
	for i := range unapproved {
		unapproved[i] = 0xDD
	}
	require.False(t, cap.IsModelApproved(unapproved))

	earlyDiff := hash1
	earlyDiff[0] = 0xFF
	require.False(t, cap.IsModelApproved(earlyDiff))

	lateDiff := hash1
	lateDiff[31] = 0xFF
	require.False(t, cap.IsModelApproved(lateDiff))
}

func TestCreateCapabilityFactory(t *testing.T) {
	std, err := CreateCapability(LevelStandard)
	require.NoError(t, err)
	require.Equal(t, LevelStandard, std.VerificationLevel())

	sampling, err := CreateCapability(LevelSampling)
	require.NoError(t, err)
	require.Equal(t, LevelSampling, sampling.VerificationLevel())

	_, err = CreateCapability(LevelRedundant)
	var unsupported *ErrUnsupportedLevel
	require.ErrorAs(t, err, &unsupported)
	require.Equal(t, LevelRedundant, unsupported.Level)

	_, err = CreateCapability(LevelFormal)
	require.ErrorAs(t, err, &unsupported)
	require.Equal(t, LevelFormal, unsupported.Level)

	var violation *ErrCapabilityViolation
	require.False(t, errors.As(err, &violation), "unsupported level must not be reported as a capability violation")
}

func TestResourceTrackerEnforcesConcurrentModelLimit(t *testing.T) {
	limits := ResourceLimits{MaxModelSize: 1024, MaxTensorMemory: 4096, MaxTensorDimensions: 4, MaxConcurrentModels: 1, MaxConcurrentContexts: 4}
	tracker := NewResourceTracker(limits, DefaultRateLimits())

	guard, err := tracker.CheckOperationAllowed(Operation{Kind: OpLoad, Size: 100})
	require.NoError(t, err)
	tracker.AllocateModel(100)
	guard.Release()

	_, err = tracker.CheckOperationAllowed(Operation{Kind: OpLoad, Size: 100})
	require.Error(t, err)
}

func TestResourceTrackerEnforcesLoadRateLimit(t *testing.T) {
	limits := ResourceLimits{MaxModelSize: 1024 * 1024, MaxTensorMemory: 1024 * 1024, MaxTensorDimensions: 4, MaxConcurrentModels: 100, MaxConcurrentContexts: 100}
	rateLimits := RateLimits{MaxLoadsPerMinute: 2, MaxInferencesPerSecond: 100, MaxConcurrentOperations: 100, WindowSize: 60 * time.Second}
	tracker := NewResourceTracker(limits, rateLimits)

	for i := 0; i < 2; i++ {
		guard, err := tracker.CheckOperationAllowed(Operation{Kind: OpLoad, Size: 10})
		require.NoError(t, err)
		guard.Release()
	}

	_, err := tracker.CheckOperationAllowed(Operation{Kind: OpLoad, Size: 10})
	require.Error(t, err)
}

func TestResourceTrackerUsageStatsReflectAllocations(t *testing.T) {
	tracker := NewResourceTracker(DefaultResourceLimits(), DefaultRateLimits())
	tracker.AllocateModel(1024)
	tracker.AllocateContext()

	stats := tracker.UsageStats()
	require.Equal(t, 1, stats.ActiveModels)
	require.Equal(t, 1, stats.ActiveContexts)
	require.Equal(t, 1024, stats.TotalMemoryUsed)

	tracker.DeallocateModel(1024)
	tracker.DeallocateContext()
	stats = tracker.UsageStats()
	require.Equal(t, 0, stats.ActiveModels)
	require.Equal(t, 0, stats.ActiveContexts)
	require.Equal(t, 0, stats.TotalMemoryUsed)
}

func TestDynamicCapabilityWithTrackingAdmitsLoadAndReportsStats(t *testing.T) {
	limits := ResourceLimits{MaxModelSize: 1024 * 1024, MaxTensorMemory: 1024 * 1024, MaxTensorDimensions: 4, MaxConcurrentModels: 1, MaxConcurrentContexts: 4}
	cap := NewDynamicCapabilityWithTracking(limits, DefaultRateLimits())

	err := cap.VerifyOperation(Operation{Kind: OpLoad, Size: 10, Format: FormatONNX})
	require.NoError(t, err)

	_, tracked := cap.ResourceTrackerStats()
	require.True(t, tracked)
}
