// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SmartGallery Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smartgallery-dev/smartgallery/internal/config"
)

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>...",
		Short: "Find the image closest to a text query",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
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

	query := strings.Join(args, " ")
	result, err := g.Service.Search(cmd.Context(), tenant, query)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !result.Found {
		fmt.Fprintf(out, "no match for %q\n", query)
		return nil
	}
	fmt.Fprintf(out, "%s (score %.4f)\n", result.Identifier, result.Score)
	return nil
}
