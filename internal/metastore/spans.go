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
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/aleutian-labs/rlmstore/internal/rlmerrors"
)

// CreateSpansBatch inserts every span in spans in a single transaction,
// mirroring CreateDocumentsBatch's all-or-nothing commit (§4.3, chunk.create
// persists the whole chunk set or none of it).
func (s *Store) CreateSpansBatch(ctx context.Context, spans []Span) error {
	if len(spans) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		for _, span := range spans {
			if span.CreatedAt.IsZero() {
				span.CreatedAt = now
			}
			enc, err := gobEncode(span)
			if err != nil {
				return err
			}
			if err := txn.Set(spanKey(span.SessionID, span.ID), enc); err != nil {
				return err
			}
			if err := txn.Set(spanByDocKey(span.SessionID, span.DocumentID, span.ID), []byte(span.ID)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetSpan loads a single span. The caller is responsible for attaching
// ChunkIndex to any error it raises downstream (§7: span errors carry
// chunk_index when available) when the lookup key itself carries no
// record of it. A span the caller never created fails this way: GetSpan
// has nothing but the id to report.
//
// A span removed via DeleteSpan's soft delete is different: its row
// survives as a tombstone, so the SpanNotFound it produces already
// carries the owning document and chunk_index (§7/S7).
func (s *Store) GetSpan(ctx context.Context, sessionID, spanID string) (Span, error) {
	var span Span
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, getErr := txn.Get(spanKey(sessionID, spanID))
		if getErr == badger.ErrKeyNotFound {
			return rlmerrors.NotFound(rlmerrors.SpanNotFound, sessionID, spanID, nil)
		}
		if getErr != nil {
			return getErr
		}
		return item.Value(func(v []byte) error { return gobDecode(v, &span) })
	})
	if err != nil {
		return Span{}, err
	}
	if !span.DeletedAt.IsZero() {
		return Span{}, rlmerrors.NotFound(rlmerrors.SpanNotFound, sessionID, span.DocumentID, span.ChunkIndex)
	}
	return span, nil
}

// DeleteSpan soft-deletes a span, marking it tombstoned without removing
// its row or its document/chunk_index metadata. This is the test hook S7
// exercises; the engine itself never calls it as part of any tool's normal
// path (spans are otherwise immutable once created).
func (s *Store) DeleteSpan(ctx context.Context, sessionID, spanID string) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		item, getErr := txn.Get(spanKey(sessionID, spanID))
		if getErr == badger.ErrKeyNotFound {
			return rlmerrors.NotFound(rlmerrors.SpanNotFound, sessionID, spanID, nil)
		}
		if getErr != nil {
			return getErr
		}
		var span Span
		if valErr := item.Value(func(v []byte) error { return gobDecode(v, &span) }); valErr != nil {
			return valErr
		}
		span.DeletedAt = time.Now().UTC()
		enc, encErr := gobEncode(span)
		if encErr != nil {
			return encErr
		}
		return txn.Set(spanKey(sessionID, spanID), enc)
	})
}

// ListSpansForDocument returns every span over docID, ordered by
// ChunkIndex ascending (spans with a nil ChunkIndex — not produced by
// chunk.create — sort last, by ID).
func (s *Store) ListSpansForDocument(ctx context.Context, sessionID, docID string) ([]Span, error) {
	var spans []Span
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		prefix := spanByDocPrefix(sessionID, docID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var spanID string
			if err := it.Item().Value(func(v []byte) error { spanID = string(v); return nil }); err != nil {
				return err
			}
			item, getErr := txn.Get(spanKey(sessionID, spanID))
			if getErr != nil {
				return getErr
			}
			var span Span
			if err := item.Value(func(v []byte) error { return gobDecode(v, &span) }); err != nil {
				return err
			}
			if !span.DeletedAt.IsZero() {
				continue
			}
			spans = append(spans, span)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(spans, func(i, j int) bool {
		si, sj := spans[i].ChunkIndex, spans[j].ChunkIndex
		if si == nil && sj == nil {
			return spans[i].ID < spans[j].ID
		}
		if si == nil {
			return false
		}
		if sj == nil {
			return true
		}
		return *si < *sj
	})
	return spans, nil
}
