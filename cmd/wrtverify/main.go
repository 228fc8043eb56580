// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command wrtverify runs the safety-verification surfaces standalone:
// platform-limits discovery, documentation-coverage scanning, and
// ASIL admission-threshold evaluation, each against a live workspace
// rather than as a library call from the runtime itself.
package main

import (
	"os"

	"github.com/pulseengine/wrt-go/cmd/wrtverify/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
