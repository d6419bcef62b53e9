// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stacklok/skills-registry/policy"
)

type policyReport struct {
	Source   string         `json:"source"`
	Hash     string         `json:"hash"`
	LoadedAt time.Time      `json:"loadedAt"`
	Policy   *policy.Policy `json:"policy"`
}

func newPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect the registry policy",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the active policy and its hash",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				snap := newPolicyLoader(cfg, cfg.Logger(cmd.ErrOrStderr()), nil).Current()

				source := snap.Source
				if source == "" {
					source = "defaults"
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(policyReport{
					Source:   source,
					Hash:     snap.Hash,
					LoadedAt: snap.LoadedAt,
					Policy:   snap.Policy,
				})
			},
		},
		&cobra.Command{
			Use:   "check <file>",
			Short: "Validate a policy document",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				if _, err := policy.Parse(data); err != nil {
					return fmt.Errorf("%s: %w", args[0], err)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
				return err
			},
		},
	)
	return cmd
}
