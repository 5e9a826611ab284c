// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command rlmstore is the engine's entrypoint: it loads config (§6), opens
// a runtime.Runtime, and serves the tool surface over stdio, the way
// cmd/aleutian wired its cobra root against the orchestrator services.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "rlmstore",
		Short: "Session-scoped retrieval and provenance engine for RLM workflows",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults applied when omitted)")
	root.AddCommand(newServeCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
