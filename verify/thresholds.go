// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package verify

import "fmt"

// AdmissionThreshold is the certification bar for one ASIL level:
// minimum documentation compliance, minimum platform memory, and the
// container runtimes still permitted at that tier.
type AdmissionThreshold struct {
	MinCompliancePercent float64
	MinMemoryBytes       uint64
	AllowedContainers    []ContainerRuntime
}

// ASILThresholds is the fixed admission table from §6.4: compliance
// and memory floors rise, and allowed container runtimes narrow, as
// ASIL level rises. ASIL-D permits only native execution.
var ASILThresholds = map[ASILLevel]AdmissionThreshold{
	ASILQM: {
		MinCompliancePercent: 70,
		MinMemoryBytes:       64 * 1024 * 1024,
		AllowedContainers:    []ContainerRuntime{ContainerNone, ContainerDocker, ContainerKubernetes, ContainerLXC, ContainerSystemdNspawn, ContainerOther},
	},
	ASILA: {
		MinCompliancePercent: 80,
		MinMemoryBytes:       128 * 1024 * 1024,
		AllowedContainers:    []ContainerRuntime{ContainerNone, ContainerDocker, ContainerKubernetes, ContainerLXC},
	},
	ASILB: {
		MinCompliancePercent: 85,
		MinMemoryBytes:       256 * 1024 * 1024,
		AllowedContainers:    []ContainerRuntime{ContainerNone, ContainerDocker, ContainerKubernetes},
	},
	ASILC: {
		MinCompliancePercent: 90,
		MinMemoryBytes:       512 * 1024 * 1024,
		AllowedContainers:    []ContainerRuntime{ContainerNone, ContainerDocker},
	},
	ASILD: {
		MinCompliancePercent: 95,
		MinMemoryBytes:       1024 * 1024 * 1024,
		AllowedContainers:    []ContainerRuntime{ContainerNone},
	},
}

func containerAllowed(allowed []ContainerRuntime, runtime ContainerRuntime) bool {
	for _, candidate := range allowed {
		if candidate == runtime {
			return true
		}
	}
	return false
}

// Evaluate gates certification for level against compliancePercent
// (from ScanDocumentationCoverage), memoryBytes (from
// DiscoverPlatformLimits), and the detected container runtime.
// Returns nil if the level's admission threshold is cleared.
func Evaluate(level ASILLevel, compliancePercent float64, memoryBytes uint64, runtime ContainerRuntime) error {
	threshold, ok := ASILThresholds[level]
	if !ok {
		return fmt.Errorf("verify: no admission threshold defined for ASIL level %s", level)
	}
	if compliancePercent < threshold.MinCompliancePercent {
		return fmt.Errorf("verify: ASIL-%s requires %.1f%% documentation compliance, got %.1f%%", level, threshold.MinCompliancePercent, compliancePercent)
	}
	if memoryBytes < threshold.MinMemoryBytes {
		return fmt.Errorf("verify: ASIL-%s requires at least %d bytes of memory, got %d", level, threshold.MinMemoryBytes, memoryBytes)
	}
	if !containerAllowed(threshold.AllowedContainers, runtime) {
		return fmt.Errorf("verify: ASIL-%s does not permit container runtime %s", level, runtime)
	}
	return nil
}
