// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SmartGallery Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smartgallery-dev/smartgallery/internal/config"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configured backend and known tenants",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(viper.ConfigFileUsed())
	if err != nil {
		return err
	}

	g, err := WireGallery(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = g.Close() }()

	tenants, err := g.Service.Tenants(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "backend:   %s\n", cfg.Storage.Backend)
	fmt.Fprintf(out, "extractor: %s (%s, %d dims)\n", cfg.Extractor.Endpoint, cfg.Extractor.Model, cfg.Extractor.Dimensions)
	fmt.Fprintf(out, "tenants:   %d\n", len(tenants))
	for _, tenant := range tenants {
		fmt.Fprintf(out, "  %s\n", tenant)
	}
	return nil
}
