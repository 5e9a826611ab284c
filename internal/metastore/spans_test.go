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

func intp(v int) *int { return &v }

func TestCreateSpansBatchAndListOrdersByChunkIndex(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	spans := []Span{
		{ID: "sp3", SessionID: "s1", DocumentID: "d1", ChunkIndex: intp(2)},
		{ID: "sp1", SessionID: "s1", DocumentID: "d1", ChunkIndex: intp(0)},
		{ID: "sp2", SessionID: "s1", DocumentID: "d1", ChunkIndex: intp(1)},
	}
	if err := s.CreateSpansBatch(ctx, spans); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListSpansForDocument(ctx, "s1", "d1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(got))
	}
	if got[0].ID != "sp1" || got[1].ID != "sp2" || got[2].ID != "sp3" {
		t.Fatalf("expected chunk-index order, got %+v", got)
	}
}

func TestGetSpanNotFound(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	_, err := s.GetSpan(ctx, "s1", "missing")
	kind, ok := rlmerrors.KindOf(err)
	if !ok || kind != rlmerrors.SpanNotFound {
		t.Fatalf("expected SpanNotFound, got %v", err)
	}
}

func TestDeleteSpanTombstoneCarriesDocumentAndChunkIndex(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	span := Span{ID: "sp1", SessionID: "s1", DocumentID: "d1", ChunkIndex: intp(2)}
	if err := s.CreateSpansBatch(ctx, []Span{span}); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteSpan(ctx, "s1", "sp1"); err != nil {
		t.Fatal(err)
	}

	_, err := s.GetSpan(ctx, "s1", "sp1")
	rerr, ok := err.(*rlmerrors.Error)
	if !ok {
		t.Fatalf("expected *rlmerrors.Error, got %T (%v)", err, err)
	}
	if rerr.Kind != rlmerrors.SpanNotFound {
		t.Fatalf("expected SpanNotFound, got %v", rerr.Kind)
	}
	if rerr.EntityName != "d1" {
		t.Fatalf("expected tombstoned span's error to name document d1, got %q", rerr.EntityName)
	}
	if rerr.ChunkIndex == nil || *rerr.ChunkIndex != 2 {
		t.Fatalf("expected tombstoned span's error to carry chunk_index 2, got %v", rerr.ChunkIndex)
	}

	if got, err := s.ListSpansForDocument(ctx, "s1", "d1"); err != nil || len(got) != 0 {
		t.Fatalf("expected a tombstoned span to be excluded from ListSpansForDocument, got %+v (err %v)", got, err)
	}
}

func TestSpansScopedToDocumentWithinSession(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	spans := []Span{
		{ID: "sp1", SessionID: "s1", DocumentID: "d1", ChunkIndex: intp(0)},
		{ID: "sp2", SessionID: "s1", DocumentID: "d2", ChunkIndex: intp(0)},
	}
	if err := s.CreateSpansBatch(ctx, spans); err != nil {
		t.Fatal(err)
	}
	got, err := s.ListSpansForDocument(ctx, "s1", "d1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "sp1" {
		t.Fatalf("expected only d1's span, got %+v", got)
	}
}
