// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"fmt"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/spf13/cobra"
)

type root struct {
	log      logging.Logger
	logLevel string
}

// NewRootCmd returns the wrtverify command tree: platform-limits
// discovery, documentation-coverage scanning, and ASIL admission
// evaluation as independent subcommands sharing one logger.
func NewRootCmd() *cobra.Command {
	r := &root{}
	cmd := &cobra.Command{
		Use:           "wrtverify",
		Short:         "Safety-verification surfaces for the wrt-go runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return r.initLogger()
		},
	}

	cmd.PersistentFlags().StringVar(&r.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cobra.EnablePrefixMatching = true
	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.DisableAutoGenTag = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	cmd.AddCommand(
		newPlatformCmd(r),
		newDocsCmd(r),
		newAdmitCmd(r),
	)

	return cmd
}

func (r *root) initLogger() error {
	loggingConfig := logging.Config{}
	level, err := logging.ToLevel(r.logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", r.logLevel, err)
	}
	loggingConfig.LogLevel = level
	logFactory := logging.NewFactory(loggingConfig)
	log, err := logFactory.Make("wrtverify")
	if err != nil {
		logFactory.Close()
		return err
	}
	r.log = log
	return nil
}
