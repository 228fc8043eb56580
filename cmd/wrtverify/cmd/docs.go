// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pulseengine/wrt-go/verify"
)

type docsFlags struct {
	manifestFile      string
	minCompliance     float64
}

func newDocsCmd(r *root) *cobra.Command {
	f := &docsFlags{}
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Scan a requirement manifest for documentation coverage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocs(r, f)
		},
	}
	cmd.Flags().StringVar(&f.manifestFile, "manifest", "", "requirement manifest YAML file (required)")
	cmd.Flags().Float64Var(&f.minCompliance, "min-compliance", 90.0, "minimum compliance percentage required for certification readiness")
	cmd.MarkFlagRequired("manifest")
	return cmd
}

func runDocs(r *root, f *docsFlags) error {
	requirements, implDocumented, err := loadRequirementManifest(f.manifestFile)
	if err != nil {
		return err
	}

	result, diagnostics := verify.ScanDocumentationCoverage(requirements, f.minCompliance, implDocumented)
	logDiagnostics(r.log, diagnostics)

	fmt.Printf("requirements:        %d\n", result.TotalRequirements)
	fmt.Printf("compliant:           %d\n", result.CompliantRequirements)
	fmt.Printf("compliance:          %.1f%%\n", result.CompliancePercentage)
	fmt.Printf("violations:          %d\n", len(result.Violations))
	fmt.Printf("certification ready: %t\n", result.CertificationReady)

	if !result.CertificationReady {
		return fmt.Errorf("documentation coverage %.1f%% is below the %.1f%% certification bar", result.CompliancePercentage, f.minCompliance)
	}
	return nil
}
