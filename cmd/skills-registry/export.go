// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/stacklok/skills-registry/metrics"
	"github.com/stacklok/skills-registry/oci"
	"github.com/stacklok/skills-registry/registry"
)

func newExportCmd() *cobra.Command {
	var (
		dir       string
		pushRepo  string
		plainHTTP bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export visible skills as OCI artifacts",
		Long: `Export writes every skill version visible under the current policy
into an OCI image layout, one manifest per version tagged <slug>-<version>.
With --push the exported tags are copied to a remote repository.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			logger := cfg.Logger(cmd.ErrOrStderr())
			if dir == "" {
				dir = cfg.ExportDir
			}

			m, err := metrics.New(prometheus.NewRegistry())
			if err != nil {
				return err
			}
			st, err := openStore(ctx, cfg, m, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			svc := registry.New(st, newKeyManager(cfg, logger), newPolicyLoader(cfg, logger, m),
				registry.WithLogger(logger),
				registry.WithName(cfg.Name),
			)
			skills, err := svc.ExportAll(ctx)
			if err != nil {
				return err
			}

			layout, err := oci.NewStore(dir)
			if err != nil {
				return err
			}
			rep, err := oci.NewExporter(layout, oci.WithLogger(logger)).Export(ctx, skills)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tags := make([]string, 0, len(rep.Exported))
			for _, e := range rep.Exported {
				tags = append(tags, e.Tag)
				if _, err := fmt.Fprintf(out, "%s\t%s\n", e.Tag, e.Manifest.Digest); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(out, "exported %d versions of %d skills to %s\n", len(rep.Exported), len(skills), dir); err != nil {
				return err
			}
			if len(rep.Skipped) > 0 {
				if _, err := fmt.Fprintf(out, "skipped %d versions with mismatched content digests\n", len(rep.Skipped)); err != nil {
					return err
				}
			}

			if pushRepo == "" {
				return nil
			}
			pusher, err := oci.NewPusher(oci.WithPlainHTTP(plainHTTP))
			if err != nil {
				return err
			}
			if err := pusher.Push(ctx, layout, pushRepo, tags); err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "pushed %d tags to %s\n", len(tags), pushRepo)
			return err
		},
	}
	cmd.Flags().StringVar(&dir, "oci", "", "OCI image layout directory (defaults to EXPORT_DIR)")
	cmd.Flags().StringVar(&pushRepo, "push", "", "remote repository to copy exported tags to, e.g. ghcr.io/acme/skills")
	cmd.Flags().BoolVar(&plainHTTP, "plain-http", false, "use plain HTTP when pushing")
	return cmd
}
