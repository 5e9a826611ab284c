// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the server-level configuration (§6's config table)
// from YAML, with environment variables overriding file values the way
// services/trace/agent/providers/config.go layers OLLAMA_BASE_URL over a
// config file default.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/aleutian-labs/rlmstore/internal/metastore"
)

// Server is the top-level engine configuration (§6).
type Server struct {
	DataDir                    string `yaml:"data_dir"`
	DefaultMaxToolCalls        int    `yaml:"default_max_tool_calls"`
	DefaultMaxCharsResponse    int    `yaml:"default_max_chars_per_response"`
	DefaultMaxCharsPeek        int    `yaml:"default_max_chars_per_peek"`
	MaxConcurrentLoads         int    `yaml:"max_concurrent_loads"`
	MaxFileSizeMB              int    `yaml:"max_file_size_mb"`
	Tokenizer                  string `yaml:"tokenizer"`
	LogLevel                   string `yaml:"log_level"`
	StructuredLogging          bool   `yaml:"structured_logging"`
	LogFile                    string `yaml:"log_file"`
	AllowNoncanonicalToolNames bool   `yaml:"allow_noncanonical_tool_names"`
}

// Defaults returns the server configuration used when no config file is
// supplied, matching §6's documented defaults.
func Defaults() Server {
	return Server{
		DataDir:                    "./data",
		DefaultMaxToolCalls:        500,
		DefaultMaxCharsResponse:    8000,
		DefaultMaxCharsPeek:        4000,
		MaxConcurrentLoads:         8,
		MaxFileSizeMB:              50,
		Tokenizer:                  "default-v1",
		LogLevel:                   "info",
		StructuredLogging:          true,
		LogFile:                    "",
		AllowNoncanonicalToolNames: false,
	}
}

// Load reads a YAML config file at path (if non-empty and present),
// applies it over Defaults, and then applies environment variable
// overrides on top — the same file-then-env layering
// services/trace/agent/providers/config.go uses for its Ollama URL.
func Load(path string) (Server, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config: file %s does not exist: %w", path, err)
			}
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.MaxConcurrentLoads <= 0 {
		return cfg, fmt.Errorf("config: max_concurrent_loads must be positive, got %d", cfg.MaxConcurrentLoads)
	}
	if cfg.MaxFileSizeMB <= 0 {
		return cfg, fmt.Errorf("config: max_file_size_mb must be positive, got %d", cfg.MaxFileSizeMB)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Server) {
	if v := os.Getenv("RLMSTORE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("RLMSTORE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("RLMSTORE_TOKENIZER"); v != "" {
		cfg.Tokenizer = v
	}
	if v := os.Getenv("RLMSTORE_MAX_TOOL_CALLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DefaultMaxToolCalls = n
		}
	}
	if v := os.Getenv("RLMSTORE_MAX_CONCURRENT_LOADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConcurrentLoads = n
		}
	}
	if v := os.Getenv("RLMSTORE_ALLOW_NONCANONICAL_TOOL_NAMES"); v != "" {
		cfg.AllowNoncanonicalToolNames = v == "1" || v == "true"
	}
}

// MaxFileSizeBytes converts MaxFileSizeMB to bytes for the blob store's
// ingestion path.
func (s Server) MaxFileSizeBytes() int64 {
	return int64(s.MaxFileSizeMB) * 1024 * 1024
}

// DefaultSessionConfig builds the per-session config merged from the
// server defaults, before any per-session override in session.create's
// request overlays it (§6).
func (s Server) DefaultSessionConfig() metastore.SessionConfig {
	return metastore.SessionConfig{
		MaxToolCalls:        s.DefaultMaxToolCalls,
		MaxCharsPerResponse: s.DefaultMaxCharsResponse,
		MaxCharsPerPeek:     s.DefaultMaxCharsPeek,
		ChunkCacheEnabled:   true,
	}
}

// MergeSessionConfig overlays a partial per-session config (zero values
// mean "use the default") onto the server defaults.
func MergeSessionConfig(base metastore.SessionConfig, override metastore.SessionConfig) metastore.SessionConfig {
	merged := base
	if override.MaxToolCalls != 0 {
		merged.MaxToolCalls = override.MaxToolCalls
	}
	if override.MaxCharsPerResponse != 0 {
		merged.MaxCharsPerResponse = override.MaxCharsPerResponse
	}
	if override.MaxCharsPerPeek != 0 {
		merged.MaxCharsPerPeek = override.MaxCharsPerPeek
	}
	merged.ChunkCacheEnabled = base.ChunkCacheEnabled
	if override.ModelHints != nil {
		merged.ModelHints = override.ModelHints
	}
	return merged
}
