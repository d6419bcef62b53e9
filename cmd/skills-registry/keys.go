// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/stacklok/skills-registry/keys"
)

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the publisher signing key",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "ensure",
			Short: "Create the publisher key if it does not exist",
			Args:  cobra.NoArgs,
			RunE: withKeys(func(w io.Writer, km *keys.Manager) error {
				id, err := km.EnsureActiveIdentity()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(w, "path: %s\npublic key: %s\n", km.Path(), id.PublicKey)
				return err
			}),
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the active and trusted public keys",
			Args:  cobra.NoArgs,
			RunE: withKeys(func(w io.Writer, km *keys.Manager) error {
				active, err := km.ActivePublicKey()
				if err != nil {
					return err
				}
				trusted, err := km.TrustedPublicKeys()
				if err != nil {
					return err
				}

				if _, err := fmt.Fprintf(w, "active: %s\n", active); err != nil {
					return err
				}
				previous := make([]string, 0, len(trusted))
				for k := range trusted {
					if k != active {
						previous = append(previous, k)
					}
				}
				slices.Sort(previous)
				for _, k := range previous {
					if _, err := fmt.Fprintf(w, "trusted: %s\n", k); err != nil {
						return err
					}
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "rotate",
			Short: "Replace the publisher key with a new one",
			Args:  cobra.NoArgs,
			RunE: withKeys(func(w io.Writer, km *keys.Manager) error {
				previous, err := km.Rotate()
				if err != nil {
					return err
				}
				active, err := km.ActivePublicKey()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(w,
					"active: %s\nretired: %s\nadd the retired key to PUBLISHER_PREVIOUS_PUBLIC_KEYS to keep its versions visible\n",
					active, previous)
				return err
			}),
		},
	)
	return cmd
}

func withKeys(fn func(io.Writer, *keys.Manager) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return fn(cmd.OutOrStdout(), newKeyManager(cfg, cfg.Logger(cmd.ErrOrStderr())))
	}
}
