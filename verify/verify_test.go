// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package verify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmptyRequirementSetIsFullyCompliant(t *testing.T) {
	result, _ := ScanDocumentationCoverage(nil, 85.0, nil)
	require.Equal(t, 0, result.TotalRequirements)
	require.Equal(t, 100.0, result.CompliancePercentage)
	require.True(t, result.CertificationReady)
}

func TestSparseRequirementFailsCoverage(t *testing.T) {
	reqs := []Requirement{
		{ID: "DOC_TEST_001", Title: "Test Requirement", Description: "A", ASILLevel: ASILC},
	}
	result, _ := ScanDocumentationCoverage(reqs, 85.0, nil)
	require.Equal(t, 1, result.TotalRequirements)
	require.Equal(t, 0, result.CompliantRequirements)
	require.NotEmpty(t, result.Violations)
	require.False(t, result.CertificationReady)
}

func TestWellDocumentedRequirementIsCompliant(t *testing.T) {
	longDescription := "This is a comprehensive description of a safety requirement that provides " +
		"detailed information about the expected behavior, constraints, and verification criteria " +
		"for the implementation, written to satisfy even the strictest ASIL documentation bar."
	reqs := []Requirement{
		{
			ID:              "DOC_TEST_002",
			Title:           "Well Documented Requirement",
			Description:     longDescription,
			ASILLevel:       ASILA,
			Implementations: []string{"well_documented_impl.go"},
			Tests:           []string{"comprehensive_test.go"},
		},
	}
	result, _ := ScanDocumentationCoverage(reqs, 85.0, func(string) bool { return true })
	require.Equal(t, 1, result.CompliantRequirements)
	require.Equal(t, 100.0, result.CompliancePercentage)
	require.True(t, result.CertificationReady)
}

func TestStandardsRiseWithASILLevel(t *testing.T) {
	qm := StandardsForASIL(ASILQM)
	asilD := StandardsForASIL(ASILD)

	require.Greater(t, asilD.MinDescriptionLength, qm.MinDescriptionLength)
	require.True(t, asilD.RequiresVerificationDoc)
	require.False(t, qm.RequiresVerificationDoc)
	require.Greater(t, asilD.RequiredComplianceScore, qm.RequiredComplianceScore)
}

func TestViolationSeverityRisesWithASILLevel(t *testing.T) {
	asilDSeverity := violationSeverity(ASILD, ViolationMissingDescription)
	qmSeverity := violationSeverity(ASILQM, ViolationMissingDescription)
	require.Equal(t, SeverityError, asilDSeverity)
	require.Equal(t, SeverityInfo, qmSeverity)
}

func TestParseByteSizeSuffixes(t *testing.T) {
	n, err := parseByteSize("4KB")
	require.NoError(t, err)
	require.Equal(t, uint64(4*1024), n)

	n, err = parseByteSize("2MB")
	require.NoError(t, err)
	require.Equal(t, uint64(2*1024*1024), n)

	n, err = parseByteSize("1GB")
	require.NoError(t, err)
	require.Equal(t, uint64(1024*1024*1024), n)

	n, err = parseByteSize("512")
	require.NoError(t, err)
	require.Equal(t, uint64(512), n)

	_, err = parseByteSize("not-a-size")
	require.Error(t, err)
}

func TestDiscoverPlatformLimitsAppliesCLIOverride(t *testing.T) {
	cfg := PlatformDiscoveryConfig{
		CLIOverrides: map[string]string{"max_stack_override": "8KB"},
	}
	limits, diagnostics := DiscoverPlatformLimits(cfg)
	require.Equal(t, uint64(8*1024), limits.MaxStackBytes)
	require.False(t, diagnostics.HasErrors())
}

func TestDiscoverPlatformLimitsIgnoresRelaxingOverride(t *testing.T) {
	cfg := PlatformDiscoveryConfig{
		CLIOverrides: map[string]string{"max_stack_override": "1GB"},
	}
	limits, _ := DiscoverPlatformLimits(cfg)
	require.Equal(t, DefaultPlatformLimits().MaxStackBytes, limits.MaxStackBytes)
}

func TestDiscoverPlatformLimitsEnvOverride(t *testing.T) {
	cfg := PlatformDiscoveryConfig{
		EnvLookup: func(key string) (string, bool) {
			if key == "WRT_MAX_COMPONENTS" {
				return "4", true
			}
			return "", false
		},
	}
	limits, _ := DiscoverPlatformLimits(cfg)
	require.Equal(t, 4, limits.MaxComponents)
}

func TestDiscoverPlatformLimitsConfigFileOverride(t *testing.T) {
	cfg := PlatformDiscoveryConfig{
		ConfigFilePath: "platform.conf",
		ReadConfigFile: func(path string) ([]byte, error) {
			return []byte("# comment\nmax_stack_bytes=16KB\n"), nil
		},
	}
	limits, _ := DiscoverPlatformLimits(cfg)
	require.Equal(t, uint64(16*1024), limits.MaxStackBytes)
}

func TestDiscoverPlatformLimitsContainerProbeTightens(t *testing.T) {
	cfg := PlatformDiscoveryConfig{
		ProbeCgroup: func() (uint64, bool) { return 32 * 1024 * 1024, true },
	}
	limits, _ := DiscoverPlatformLimits(cfg)
	require.Equal(t, uint64(32*1024*1024), limits.MaxTotalMemory)
	require.Equal(t, ContainerDocker, limits.ContainerRuntime)
}

func TestDiscoverPlatformLimitsValidatesStackFloor(t *testing.T) {
	cfg := PlatformDiscoveryConfig{
		CLIOverrides:     map[string]string{},
		StrictValidation: true,
	}
	limits, diagnostics := DiscoverPlatformLimits(cfg)
	require.GreaterOrEqual(t, limits.MaxStackBytes, uint64(4*1024))
	require.False(t, diagnostics.HasErrors())
}

func TestEvaluateRejectsInsufficientCompliance(t *testing.T) {
	err := Evaluate(ASILD, 90.0, 2*1024*1024*1024, ContainerNone)
	require.Error(t, err)
}

func TestEvaluateRejectsInsufficientMemory(t *testing.T) {
	err := Evaluate(ASILC, 95.0, 100*1024*1024, ContainerNone)
	require.Error(t, err)
}

func TestEvaluateRejectsContainerAtHighestASIL(t *testing.T) {
	err := Evaluate(ASILD, 99.0, 2*1024*1024*1024, ContainerDocker)
	require.Error(t, err)
}

func TestEvaluatePassesWhenAllThresholdsCleared(t *testing.T) {
	err := Evaluate(ASILB, 90.0, 512*1024*1024, ContainerKubernetes)
	require.NoError(t, err)
}

func TestEvaluateUnknownLevelErrors(t *testing.T) {
	err := Evaluate(ASILLevel(99), 100, 1024*1024*1024, ContainerNone)
	require.Error(t, err)
}
