// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aleutian-labs/rlmstore/internal/config"
	"github.com/aleutian-labs/rlmstore/internal/mcpserver"
	"github.com/aleutian-labs/rlmstore/internal/runtime"
)

var metricsAddr string

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tool surface over stdio (§6/§7)",
		RunE:  runServe,
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "if set, expose Prometheus metrics on this address (e.g. :9090)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("rlmstore: %w", err)
	}

	log, err := buildLogger(cfg)
	if err != nil {
		return fmt.Errorf("rlmstore: %w", err)
	}

	rt, err := runtime.New(cfg, log)
	if err != nil {
		return fmt.Errorf("rlmstore: opening runtime: %w", err)
	}

	srv, err := mcpserver.New(rt, cfg, log)
	if err != nil {
		return fmt.Errorf("rlmstore: building tool surface: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		go serveMetrics(ctx, metricsAddr, log)
	}

	log.Info("rlmstore serving over stdio", "data_dir", cfg.DataDir, "tokenizer", cfg.Tokenizer)
	return srv.Run(ctx)
}

// buildLogger constructs the slog.Logger per §6's logging config: JSON when
// structured_logging is set (the default), text otherwise, written to
// log_file when given or stderr so stdout stays reserved for the stdio
// transport's JSON-RPC frames.
func buildLogger(cfg config.Server) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	var w io.Writer = os.Stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file %s: %w", cfg.LogFile, err)
		}
		w = f
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.StructuredLogging {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), nil
}

// serveMetrics runs the Prometheus /metrics endpoint until ctx is canceled.
// Errors other than a clean shutdown are logged, not fatal: metrics are an
// ambient concern and must never take the tool surface down with them.
func serveMetrics(ctx context.Context, addr string, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("metrics server stopped", "error", err)
	}
}
