// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pulseengine/wrt-go/verify"
)

type admitFlags struct {
	asilLevel  string
	compliance float64
	memoryMiB  int
	container  string
}

func newAdmitCmd(r *root) *cobra.Command {
	f := &admitFlags{}
	cmd := &cobra.Command{
		Use:   "admit",
		Short: "Evaluate ASIL admission thresholds for a measured configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdmit(r, f)
		},
	}
	cmd.Flags().StringVar(&f.asilLevel, "asil-level", "QM", "target ASIL level (QM, A, B, C, D)")
	cmd.Flags().Float64Var(&f.compliance, "compliance", 0, "measured documentation compliance percentage")
	cmd.Flags().IntVar(&f.memoryMiB, "memory-mib", 0, "available platform memory in MiB")
	cmd.Flags().StringVar(&f.container, "container", "native", "container runtime (native, docker, kubernetes, lxc, systemd-nspawn, other)")
	return cmd
}

func parseContainerRuntime(s string) (verify.ContainerRuntime, error) {
	switch s {
	case "native", "none", "":
		return verify.ContainerNone, nil
	case "docker":
		return verify.ContainerDocker, nil
	case "kubernetes", "k8s":
		return verify.ContainerKubernetes, nil
	case "lxc":
		return verify.ContainerLXC, nil
	case "systemd-nspawn":
		return verify.ContainerSystemdNspawn, nil
	case "other":
		return verify.ContainerOther, nil
	default:
		return 0, fmt.Errorf("unrecognized container runtime %q", s)
	}
}

func runAdmit(r *root, f *admitFlags) error {
	level, err := parseASILLevel(f.asilLevel)
	if err != nil {
		return err
	}
	runtime, err := parseContainerRuntime(f.container)
	if err != nil {
		return err
	}
	memoryBytes := uint64(f.memoryMiB) * 1024 * 1024

	if err := verify.Evaluate(level, f.compliance, memoryBytes, runtime); err != nil {
		r.log.Error("admission rejected", zap.String("asil", f.asilLevel), zap.Error(err))
		return err
	}
	r.log.Info("admission cleared", zap.String("asil", f.asilLevel))
	fmt.Printf("ASIL-%s admission cleared: %.1f%% compliance, %d MiB, %s\n", f.asilLevel, f.compliance, f.memoryMiB, f.container)
	return nil
}
