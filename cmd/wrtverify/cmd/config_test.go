// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulseengine/wrt-go/verify"
)

const sampleManifest = `
requirements:
  - id: REQ-001
    title: Bounded fuel accounting
    description: >-
      Every scheduler fuel deduction must be checked against the task's
      remaining WCET budget before the task is allowed to continue
      executing on the next scheduling tick.
    asil_level: C
    implementations:
      - scheduler/scheduler.go
    tests:
      - scheduler/scheduler_test.go
    documentation:
      - docs/scheduler.md
    documented_implementations:
      - scheduler/scheduler.go
`

func TestLoadRequirementManifestParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "requirements.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o644))

	requirements, implDocumented, err := loadRequirementManifest(path)
	require.NoError(t, err)
	require.Len(t, requirements, 1)
	require.Equal(t, verify.ASILC, requirements[0].ASILLevel)
	require.True(t, implDocumented("scheduler/scheduler.go"))
	require.False(t, implDocumented("cfi/cfi.go"))
}

func TestParseASILLevelRejectsUnknown(t *testing.T) {
	_, err := parseASILLevel("Z")
	require.Error(t, err)
}
