// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package verify

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ava-labs/avalanchego/utils/units"
)

// PlatformID identifies the operating system or embedded target the
// runtime is verified against.
type PlatformID uint8

const (
	PlatformLinux PlatformID = iota
	PlatformQNX
	PlatformMacOS
	PlatformWindows
	PlatformVxWorks
	PlatformZephyr
	PlatformTock
	PlatformEmbedded
	PlatformUnknown
)

func (p PlatformID) String() string {
	switch p {
	case PlatformLinux:
		return "Linux"
	case PlatformQNX:
		return "QNX"
	case PlatformMacOS:
		return "macOS"
	case PlatformWindows:
		return "Windows"
	case PlatformVxWorks:
		return "VxWorks"
	case PlatformZephyr:
		return "Zephyr"
	case PlatformTock:
		return "Tock"
	case PlatformEmbedded:
		return "Embedded"
	default:
		return "Unknown"
	}
}

// ContainerRuntime identifies the container/sandbox the process is
// running under, if any.
type ContainerRuntime uint8

const (
	ContainerNone ContainerRuntime = iota
	ContainerDocker
	ContainerKubernetes
	ContainerLXC
	ContainerSystemdNspawn
	ContainerOther
)

func (c ContainerRuntime) String() string {
	switch c {
	case ContainerNone:
		return "native"
	case ContainerDocker:
		return "docker"
	case ContainerKubernetes:
		return "kubernetes"
	case ContainerLXC:
		return "lxc"
	case ContainerSystemdNspawn:
		return "systemd-nspawn"
	default:
		return "other"
	}
}

// PlatformLimits is the resource envelope the runtime must respect on
// the current platform, discovered by layering progressively more
// specific sources over a set of base defaults.
type PlatformLimits struct {
	MaxTotalMemory      uint64
	MaxWasmLinearMemory uint64
	MaxStackBytes       uint64
	MaxComponents       int
	PlatformID          PlatformID
	ContainerRuntime    ContainerRuntime
}

// DefaultPlatformLimits returns the conservative base envelope applied
// before any override source is consulted.
func DefaultPlatformLimits() PlatformLimits {
	return PlatformLimits{
		MaxTotalMemory:      1024 * 1024 * 1024,
		MaxWasmLinearMemory: 256 * 1024 * 1024,
		MaxStackBytes:       1024 * 1024,
		MaxComponents:       256,
		PlatformID:          PlatformUnknown,
		ContainerRuntime:    ContainerNone,
	}
}

// PlatformDiscoveryConfig supplies the override sources consulted
// after the base defaults: CLI args (already parsed into flag-style
// key=value strings), a config-file path, and whether validation
// failures should auto-correct (non-strict) or fail (strict).
type PlatformDiscoveryConfig struct {
	CLIOverrides     map[string]string
	ConfigFilePath   string
	StrictValidation bool
	EnvLookup        func(string) (string, bool)
	ReadConfigFile   func(string) ([]byte, error)
	ProbeCgroup      func() (uint64, bool)
}

func (c PlatformDiscoveryConfig) envLookup() func(string) (string, bool) {
	if c.EnvLookup != nil {
		return c.EnvLookup
	}
	return os.LookupEnv
}

// DiscoverPlatformLimits runs the full layering pipeline per §6.3:
// base defaults → CLI overrides → WRT_-prefixed environment variables
// → config file (key=value, # comments) → container-runtime probes →
// validation. Each override layer may only tighten a limit already set:
// a value above the current limit is ignored with a warning, whatever
// its source, and the container probe only lowers max_total_memory.
func DiscoverPlatformLimits(cfg PlatformDiscoveryConfig) (PlatformLimits, *DiagnosticCollection) {
	diagnostics := NewDiagnosticCollection("", "platform-verification")
	limits := DefaultPlatformLimits()

	applyCLIOverrides(&limits, cfg.CLIOverrides, diagnostics)
	applyEnvOverrides(&limits, cfg.envLookup(), diagnostics)
	applyConfigFileOverrides(&limits, cfg, diagnostics)
	applyContainerLimits(&limits, cfg, diagnostics)
	validatePlatformLimits(&limits, cfg.StrictValidation, diagnostics)

	diagnostics.Addf(SeverityInfo, "platform-verified", "platform verification complete: %s (%s)", limits.PlatformID, limits.ContainerRuntime)
	return limits, diagnostics
}

func tighten(current uint64, override uint64, name string, diagnostics *DiagnosticCollection) uint64 {
	if override == 0 {
		return current
	}
	if override > current {
		diagnostics.Addf(SeverityWarning, "platform-override-relaxed", "%s override %d exceeds current limit %d, ignoring", name, override, current)
		return current
	}
	return override
}

func applyCLIOverrides(limits *PlatformLimits, overrides map[string]string, diagnostics *DiagnosticCollection) {
	for key, value := range overrides {
		n, err := parseByteSize(value)
		if err != nil {
			diagnostics.Addf(SeverityWarning, "platform-cli-invalid", "CLI override %s=%s is not a valid size: %v", key, value, err)
			continue
		}
		applyNamedOverride(limits, key, n, diagnostics)
	}
}

func applyEnvOverrides(limits *PlatformLimits, lookup func(string) (string, bool), diagnostics *DiagnosticCollection) {
	for _, key := range []string{"MAX_TOTAL_MEMORY", "MAX_WASM_LINEAR_MEMORY", "MAX_STACK_BYTES", "MAX_COMPONENTS"} {
		value, ok := lookup("WRT_" + key)
		if !ok {
			continue
		}
		n, err := parseByteSize(value)
		if err != nil {
			diagnostics.Addf(SeverityWarning, "platform-env-invalid", "environment override WRT_%s=%s is not valid: %v", key, value, err)
			continue
		}
		applyNamedOverride(limits, strings.ToLower(key), n, diagnostics)
	}
}

func applyConfigFileOverrides(limits *PlatformLimits, cfg PlatformDiscoveryConfig, diagnostics *DiagnosticCollection) {
	if cfg.ConfigFilePath == "" || cfg.ReadConfigFile == nil {
		return
	}
	contents, err := cfg.ReadConfigFile(cfg.ConfigFilePath)
	if err != nil {
		diagnostics.Addf(SeverityWarning, "platform-config-unreadable", "config file %s could not be read: %v", cfg.ConfigFilePath, err)
		return
	}
	for _, line := range strings.Split(string(contents), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		n, err := parseByteSize(strings.TrimSpace(value))
		if err != nil {
			diagnostics.Addf(SeverityWarning, "platform-config-invalid", "config file entry %s is not valid: %v", line, err)
			continue
		}
		applyNamedOverride(limits, strings.ToLower(strings.TrimSpace(key)), n, diagnostics)
	}
}

func applyContainerLimits(limits *PlatformLimits, cfg PlatformDiscoveryConfig, diagnostics *DiagnosticCollection) {
	if cfg.ProbeCgroup == nil {
		return
	}
	cgroupLimit, ok := cfg.ProbeCgroup()
	if !ok {
		return
	}
	limits.ContainerRuntime = ContainerDocker
	if cgroupLimit < limits.MaxTotalMemory {
		diagnostics.Addf(SeverityInfo, "platform-container-tightened", "cgroup memory limit %d tightens max_total_memory", cgroupLimit)
		limits.MaxTotalMemory = cgroupLimit
	}
}

func applyNamedOverride(limits *PlatformLimits, name string, n uint64, diagnostics *DiagnosticCollection) {
	switch name {
	case "max_memory_override", "max_total_memory":
		limits.MaxTotalMemory = tighten(limits.MaxTotalMemory, n, "max_total_memory", diagnostics)
	case "max_wasm_memory_override", "max_wasm_linear_memory":
		limits.MaxWasmLinearMemory = tighten(limits.MaxWasmLinearMemory, n, "max_wasm_linear_memory", diagnostics)
	case "max_stack_override", "max_stack_bytes":
		limits.MaxStackBytes = tighten(limits.MaxStackBytes, n, "max_stack_bytes", diagnostics)
	case "max_components_override", "max_components":
		limits.MaxComponents = int(tighten(uint64(limits.MaxComponents), n, "max_components", diagnostics))
	}
}

func validatePlatformLimits(limits *PlatformLimits, strict bool, diagnostics *DiagnosticCollection) {
	if limits.MaxWasmLinearMemory > limits.MaxTotalMemory {
		if strict {
			diagnostics.Addf(SeverityError, "platform-invalid-wasm-memory", "max_wasm_linear_memory (%d) exceeds max_total_memory (%d)", limits.MaxWasmLinearMemory, limits.MaxTotalMemory)
		} else {
			diagnostics.Addf(SeverityWarning, "platform-wasm-memory-corrected", "max_wasm_linear_memory exceeded max_total_memory, correcting to %d", limits.MaxTotalMemory)
			limits.MaxWasmLinearMemory = limits.MaxTotalMemory
		}
	}
	if limits.MaxTotalMemory < 1024*1024 {
		diagnostics.Addf(SeverityError, "platform-total-memory-too-small", "max_total_memory %d is below the 1 MiB floor", limits.MaxTotalMemory)
	}
	if limits.MaxStackBytes < 4*1024 {
		diagnostics.Addf(SeverityError, "platform-stack-too-small", "max_stack_bytes %d is below the 4 KiB floor", limits.MaxStackBytes)
	}
	if limits.MaxComponents < 1 {
		diagnostics.Addf(SeverityError, "platform-max-components-invalid", "max_components must be at least 1")
	}
}

// parseByteSize parses a bare byte count or a value with a KB/MB/GB
// suffix (decimal magnitude times 1024^k).
func parseByteSize(value string) (uint64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty value")
	}
	multiplier := uint64(1)
	upper := strings.ToUpper(value)
	switch {
	case strings.HasSuffix(upper, "GB"):
		multiplier = uint64(units.GiB)
		value = value[:len(value)-2]
	case strings.HasSuffix(upper, "MB"):
		multiplier = uint64(units.MiB)
		value = value[:len(value)-2]
	case strings.HasSuffix(upper, "KB"):
		multiplier = uint64(units.KiB)
		value = value[:len(value)-2]
	}
	n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, err
	}
	return n * multiplier, nil
}
