// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/pulseengine/wrt-go/verify"
)

// RequirementManifest is the on-disk (YAML) description of the
// requirement set a documentation-coverage scan runs against.
type RequirementManifest struct {
	Requirements []ManifestRequirement `yaml:"requirements"`
}

// ManifestRequirement mirrors verify.Requirement in YAML-tagged form,
// plus a DocumentedImplementations allowlist used to answer the
// implDocumented callback without touching the filesystem.
type ManifestRequirement struct {
	ID                       string   `yaml:"id"`
	Title                    string   `yaml:"title"`
	Description              string   `yaml:"description"`
	ASILLevel                string   `yaml:"asil_level"`
	Implementations          []string `yaml:"implementations"`
	Tests                    []string `yaml:"tests"`
	Documentation            []string `yaml:"documentation"`
	DocumentedImplementations []string `yaml:"documented_implementations"`
}

func parseASILLevel(s string) (verify.ASILLevel, error) {
	switch s {
	case "", "QM", "qm":
		return verify.ASILQM, nil
	case "A", "a":
		return verify.ASILA, nil
	case "B", "b":
		return verify.ASILB, nil
	case "C", "c":
		return verify.ASILC, nil
	case "D", "d":
		return verify.ASILD, nil
	default:
		return 0, fmt.Errorf("unrecognized ASIL level %q", s)
	}
}

func loadRequirementManifest(path string) ([]verify.Requirement, func(string) bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading requirement manifest: %w", err)
	}
	var manifest RequirementManifest
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return nil, nil, fmt.Errorf("parsing requirement manifest: %w", err)
	}

	documented := make(map[string]bool)
	requirements := make([]verify.Requirement, 0, len(manifest.Requirements))
	for _, m := range manifest.Requirements {
		level, err := parseASILLevel(m.ASILLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("requirement %s: %w", m.ID, err)
		}
		requirements = append(requirements, verify.Requirement{
			ID:              m.ID,
			Title:           m.Title,
			Description:     m.Description,
			ASILLevel:       level,
			Implementations: m.Implementations,
			Tests:           m.Tests,
			Documentation:   m.Documentation,
		})
		for _, impl := range m.DocumentedImplementations {
			documented[impl] = true
		}
	}

	implDocumented := func(ref string) bool { return documented[ref] }
	return requirements, implDocumented, nil
}
