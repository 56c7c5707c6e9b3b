// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SmartGallery Contributors

package main

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smartgallery-dev/smartgallery/internal/config"
	"github.com/smartgallery-dev/smartgallery/internal/server"
	sgerr "github.com/smartgallery-dev/smartgallery/pkg/errors"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the smartgallery HTTP server",
		Long:  "Load configuration, wire the vector store and embedding extractor, and serve the REST API.",
		RunE:  runServe,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")
	_ = viper.BindPFlag("networking.listen", cmd.Flags().Lookup("listen"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	// initViper resolved the config file, whether from --config or
	// auto-discovery; load from wherever it landed.
	cfg, err := config.Load(viper.ConfigFileUsed())
	if err != nil {
		return err
	}

	// Apply any flag/env overrides that Viper resolved.
	if listen := viper.GetString("networking.listen"); listen != "" {
		cfg.Networking.Listen = listen
	}

	g, err := WireGallery(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = g.Close() }()

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Networking.Listen,
		CORSOrigins: cfg.Networking.CORSOrigins,
	})
	if err != nil {
		return sgerr.Wrap(err, sgerr.CodeServerStartFailure, "creating server")
	}
	srv.RegisterService(g.Service)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting smartgallery",
		"listen", cfg.Networking.Listen,
		"backend", cfg.Storage.Backend,
		"model", cfg.Extractor.Model,
	)
	return srv.Start(ctx)
}
