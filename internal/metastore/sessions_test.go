// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package metastore

import (
	"context"
	"testing"

	"github.com/aleutian-labs/rlmstore/internal/rlmerrors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGetSession(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	sess := Session{ID: "s1", Name: "demo", Config: SessionConfig{MaxToolCalls: 10}}
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetSession(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != SessionActive {
		t.Fatalf("expected active status, got %s", got.Status)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be stamped")
	}
}

func TestGetMissingSessionReturnsSessionNotFound(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.GetSession(ctx, "missing")
	kind, ok := rlmerrors.KindOf(err)
	if !ok || kind != rlmerrors.SessionNotFound {
		t.Fatalf("expected SessionNotFound, got %v", err)
	}
}

func TestCloseSessionTwiceFails(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	if err := s.CreateSession(ctx, Session{ID: "s1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.CloseSession(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	err := s.CloseSession(ctx, "s1")
	kind, ok := rlmerrors.KindOf(err)
	if !ok || kind != rlmerrors.SessionAlreadyClosed {
		t.Fatalf("expected SessionAlreadyClosed, got %v", err)
	}
}

func TestRequireActiveRejectsClosedSession(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	if err := s.CreateSession(ctx, Session{ID: "s1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.CloseSession(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	_, err := s.RequireActive(ctx, "s1")
	kind, ok := rlmerrors.KindOf(err)
	if !ok || kind != rlmerrors.SessionClosed {
		t.Fatalf("expected SessionClosed, got %v", err)
	}
}
