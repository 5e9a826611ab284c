// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package runtime

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/aleutian-labs/rlmstore/internal/config"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()
	cfg.DefaultMaxToolCalls = 0 // unlimited unless a test overrides it

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt, err := New(cfg, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func createSession(t *testing.T, rt *Runtime, override func(*SessionCreateRequest)) string {
	t.Helper()
	req := SessionCreateRequest{Name: "test-session"}
	if override != nil {
		override(&req)
	}
	resp, err := rt.SessionCreate(context.Background(), req)
	if err != nil {
		t.Fatalf("SessionCreate: %v", err)
	}
	return resp.SessionID
}
