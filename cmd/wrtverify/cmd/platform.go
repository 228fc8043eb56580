// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pulseengine/wrt-go/verify"
)

type platformFlags struct {
	configFile string
	overrides  []string
	strict     bool
}

func newPlatformCmd(r *root) *cobra.Command {
	f := &platformFlags{}
	cmd := &cobra.Command{
		Use:   "platform",
		Short: "Discover the platform's resource-limit envelope",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlatform(r, f)
		},
	}
	cmd.Flags().StringVar(&f.configFile, "config-file", "", "platform limits config file (key=value per line)")
	cmd.Flags().StringArrayVar(&f.overrides, "override", nil, "CLI override, key=value (repeatable)")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "fail instead of auto-correcting invalid limit combinations")
	return cmd
}

func runPlatform(r *root, f *platformFlags) error {
	overrides := make(map[string]string, len(f.overrides))
	for _, kv := range f.overrides {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid --override %q, expected key=value", kv)
		}
		overrides[key] = value
	}

	cfg := verify.PlatformDiscoveryConfig{
		CLIOverrides:     overrides,
		ConfigFilePath:   f.configFile,
		StrictValidation: f.strict,
		ReadConfigFile:   os.ReadFile,
		ProbeCgroup:      probeCgroupMemoryLimit,
	}

	limits, diagnostics := verify.DiscoverPlatformLimits(cfg)
	logDiagnostics(r.log, diagnostics)

	fmt.Printf("platform:              %s (container: %s)\n", limits.PlatformID, limits.ContainerRuntime)
	fmt.Printf("max_total_memory:      %d\n", limits.MaxTotalMemory)
	fmt.Printf("max_wasm_linear_memory: %d\n", limits.MaxWasmLinearMemory)
	fmt.Printf("max_stack_bytes:       %d\n", limits.MaxStackBytes)
	fmt.Printf("max_components:        %d\n", limits.MaxComponents)

	if diagnostics.HasErrors() {
		return fmt.Errorf("platform discovery reported %d error diagnostics", diagnostics.CountBySeverity(verify.SeverityError))
	}
	return nil
}

// probeCgroupMemoryLimit reads the cgroup v2 memory.max file, falling
// back to the cgroup v1 memory.limit_in_bytes path, and reports ok=false
// when neither is present (not running under a memory-limited cgroup)
// or the value is the kernel's "unlimited" sentinel.
func probeCgroupMemoryLimit() (uint64, bool) {
	for _, path := range []string{
		"/sys/fs/cgroup/memory.max",
		"/sys/fs/cgroup/memory/memory.limit_in_bytes",
	} {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		text := strings.TrimSpace(string(raw))
		if text == "max" {
			continue
		}
		n, err := strconv.ParseUint(text, 10, 64)
		if err != nil {
			continue
		}
		const unreasonablyLarge = 1 << 62
		if n >= unreasonablyLarge {
			continue
		}
		return n, true
	}
	return 0, false
}

func logDiagnostics(log interface {
	Debug(string, ...zap.Field)
	Warn(string, ...zap.Field)
	Error(string, ...zap.Field)
}, diagnostics *verify.DiagnosticCollection) {
	for _, d := range diagnostics.Diagnostics {
		fields := []zap.Field{zap.String("code", d.Code), zap.String("pass", d.Source)}
		switch d.Severity {
		case verify.SeverityError:
			log.Error(d.Message, fields...)
		case verify.SeverityWarning:
			log.Warn(d.Message, fields...)
		default:
			log.Debug(d.Message, fields...)
		}
	}
}
