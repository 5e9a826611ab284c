// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aleutian-labs/rlmstore/internal/metastore"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataDir != "./data" || cfg.DefaultMaxToolCalls != 500 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFromYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "data_dir: /var/rlmstore\ndefault_max_tool_calls: 42\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataDir != "/var/rlmstore" || cfg.DefaultMaxToolCalls != 42 {
		t.Fatalf("expected overridden values, got %+v", cfg)
	}
	if cfg.DefaultMaxCharsResponse != 8000 {
		t.Fatalf("expected untouched field to retain default, got %+v", cfg)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvOverridesFileAndDefaults(t *testing.T) {
	t.Setenv("RLMSTORE_DATA_DIR", "/env/data")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataDir != "/env/data" {
		t.Fatalf("expected env override, got %s", cfg.DataDir)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("data_dir: /file/data\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	fromFile, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if fromFile.DataDir != "/env/data" {
		t.Fatalf("expected env to override the file value, got %s", fromFile.DataDir)
	}
}

func TestMergeSessionConfigOverridesOnlyNonZero(t *testing.T) {
	base := Defaults().DefaultSessionConfig()
	merged := MergeSessionConfig(base, metastore.SessionConfig{})
	if merged.MaxToolCalls != base.MaxToolCalls {
		t.Fatalf("expected base retained, got %+v", merged)
	}

	withOverride := MergeSessionConfig(base, metastore.SessionConfig{MaxToolCalls: 7})
	if withOverride.MaxToolCalls != 7 {
		t.Fatalf("expected override applied, got %+v", withOverride)
	}
}
