// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SmartGallery Contributors

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smartgallery-dev/smartgallery/internal/config"
	sgerr "github.com/smartgallery-dev/smartgallery/pkg/errors"
)

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index <path>",
		Short: "Index an image or a folder of images",
		Long:  "Extract an embedding for the given image (or each image in the given folder) and add it to the tenant's collection.",
		Args:  cobra.ExactArgs(1),
		RunE:  runIndex,
	}
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.ConfigFileUsed())
	if err != nil {
		return err
	}
	tenant := resolveTenant(cfg)

	g, err := WireGallery(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = g.Close() }()

	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return sgerr.Errorf(sgerr.CodeGallerySourceNotFound, "statting %s: %w", path, err)
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if !info.IsDir() {
		id, err := g.Service.AddImage(ctx, tenant, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "indexed %s for %s\n", id, tenant)
		return nil
	}

	summary, err := g.Service.AddFolder(ctx, tenant, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "indexed %d/%d images for %s\n", summary.Succeeded, summary.Attempted, tenant)
	for _, f := range summary.Failures {
		fmt.Fprintf(out, "  failed %s: %s\n", f.Path, f.Reason)
	}
	return nil
}

// resolveTenant returns the tenant for this invocation: the --user flag when
// given, otherwise the configured default tenant.
func resolveTenant(cfg *config.Config) string {
	if tenant := viper.GetString("gallery.default_tenant"); tenant != "" {
		return tenant
	}
	return cfg.Gallery.DefaultTenant
}
