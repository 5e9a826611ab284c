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
	"time"

	"github.com/aleutian-labs/rlmstore/internal/rlmerrors"
)

func TestCreateAndGetArtifact(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	art := Artifact{ID: "a1", SessionID: "s1", Type: "summary", Content: `{"ok":true}`}
	if err := s.CreateArtifact(ctx, art); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetArtifact(ctx, "s1", "a1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != "summary" || got.Content != `{"ok":true}` {
		t.Fatalf("unexpected artifact: %+v", got)
	}
}

func TestGetArtifactNotFound(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	_, err := s.GetArtifact(ctx, "s1", "missing")
	kind, ok := rlmerrors.KindOf(err)
	if !ok || kind != rlmerrors.ArtifactNotFound {
		t.Fatalf("expected ArtifactNotFound, got %v", err)
	}
}

func TestListArtifactsFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	base := time.Unix(1000, 0).UTC()
	arts := []Artifact{
		{ID: "a1", SessionID: "s1", Type: "summary", SpanID: "sp1", ProducedAt: base.Add(2 * time.Second)},
		{ID: "a2", SessionID: "s1", Type: "summary", SpanID: "sp2", ProducedAt: base.Add(1 * time.Second)},
		{ID: "a3", SessionID: "s1", Type: "note", SpanID: "sp1", ProducedAt: base},
	}
	for _, a := range arts {
		if err := s.CreateArtifact(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListArtifacts(ctx, "s1", ArtifactFilter{Type: "summary"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 summary artifacts, got %d", len(got))
	}
	if got[0].ID != "a2" || got[1].ID != "a1" {
		t.Fatalf("expected ProducedAt-ascending order, got %+v", got)
	}

	bySpan, err := s.ListArtifacts(ctx, "s1", ArtifactFilter{SpanID: "sp1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(bySpan) != 2 {
		t.Fatalf("expected 2 artifacts for sp1, got %d", len(bySpan))
	}
}
