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
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aleutian-labs/rlmstore/internal/blobstore"
	"github.com/aleutian-labs/rlmstore/internal/chunking"
	"github.com/aleutian-labs/rlmstore/internal/metastore"
	"github.com/aleutian-labs/rlmstore/internal/metrics"
	"github.com/aleutian-labs/rlmstore/internal/rlmerrors"
)

func buildStrategy(spec StrategySpec) (chunking.Strategy, error) {
	switch spec.Kind {
	case "fixed":
		return chunking.NewFixed(spec.ChunkSize, spec.Overlap, spec.MaxChunks)
	case "lines":
		return chunking.NewLines(spec.LineCount, spec.Overlap, spec.MaxChunks)
	case "delimiter":
		return chunking.NewDelimiter(spec.Pattern, spec.IsRegex, spec.MaxChunks)
	default:
		return nil, fmt.Errorf("chunking: unknown strategy kind %q", spec.Kind)
	}
}

// ChunkCreate tiles a document per the requested strategy and persists the
// resulting spans in one batch. Repeated calls with an equivalent strategy
// reuse the existing span set rather than renumbering it (§4.3). It must
// run under the session lock: the documents-of-session set it writes to
// must stay consistent with the index cache.
func (r *Runtime) ChunkCreate(ctx context.Context, req ChunkCreateRequest) (ChunkCreateResponse, error) {
	start := time.Now()
	correlationID := newCorrelationID()

	if err := r.charge(ctx, req.SessionID, ToolChunkCreate); err != nil {
		r.emitTrace(ctx, req.SessionID, ToolChunkCreate, start, nil, nil, false, correlationID)
		return ChunkCreateResponse{}, err
	}

	lock, err := r.locks.acquire(ctx, req.SessionID)
	if err != nil {
		r.emitTrace(ctx, req.SessionID, ToolChunkCreate, start, nil, nil, false, correlationID)
		return ChunkCreateResponse{}, err
	}
	defer r.locks.release(lock)

	strategy, err := buildStrategy(req.Strategy)
	if err != nil {
		wrapped := rlmerrors.Wrap(rlmerrors.InvalidArgument, "invalid chunk strategy", err).WithSession(req.SessionID)
		r.emitTrace(ctx, req.SessionID, ToolChunkCreate, start, nil, nil, false, correlationID)
		return ChunkCreateResponse{}, wrapped
	}

	doc, err := r.meta.GetDocument(ctx, req.SessionID, req.DocumentID)
	if err != nil {
		r.emitTrace(ctx, req.SessionID, ToolChunkCreate, start, nil, nil, false, correlationID)
		return ChunkCreateResponse{}, err
	}

	existing, err := r.meta.ListSpansForDocument(ctx, req.SessionID, req.DocumentID)
	if err != nil {
		r.emitTrace(ctx, req.SessionID, ToolChunkCreate, start, nil, nil, false, correlationID)
		return ChunkCreateResponse{}, err
	}
	descriptor := strategy.Descriptor()
	if reused := spansForDescriptor(existing, descriptor); len(reused) > 0 {
		resp := ChunkCreateResponse{Spans: reused}
		r.emitTrace(ctx, req.SessionID, ToolChunkCreate, start, nil, summarizeKeys(map[string]any{"reused": true}), true, correlationID)
		return resp, nil
	}

	content, err := r.blobs.Get(doc.ContentHash)
	if err != nil {
		wrapped := rlmerrors.Wrap(rlmerrors.BlobMissing, "document content unreachable", err).WithSession(req.SessionID).WithEntity(req.DocumentID)
		r.emitTrace(ctx, req.SessionID, ToolChunkCreate, start, nil, nil, false, correlationID)
		return ChunkCreateResponse{}, wrapped
	}

	ranges, err := strategy.Chunk(content)
	if err != nil {
		wrapped := rlmerrors.Wrap(rlmerrors.InvalidArgument, "chunking failed", err).WithSession(req.SessionID).WithEntity(req.DocumentID)
		r.emitTrace(ctx, req.SessionID, ToolChunkCreate, start, nil, nil, false, correlationID)
		return ChunkCreateResponse{}, wrapped
	}

	spans := make([]metastore.Span, len(ranges))
	for i, rg := range ranges {
		idx := i
		spans[i] = metastore.Span{
			ID:          uuid.NewString(),
			SessionID:   req.SessionID,
			DocumentID:  req.DocumentID,
			Start:       rg.Start,
			End:         rg.End,
			ContentHash: blobstore.Hash(content[rg.Start:rg.End]),
			Strategy:    descriptor,
			ChunkIndex:  &idx,
		}
	}

	if err := r.meta.CreateSpansBatch(ctx, spans); err != nil {
		r.emitTrace(ctx, req.SessionID, ToolChunkCreate, start, nil, nil, false, correlationID)
		return ChunkCreateResponse{}, err
	}

	resp := ChunkCreateResponse{Spans: spans}
	r.emitTrace(ctx, req.SessionID, ToolChunkCreate, start, nil, summarizeKeys(map[string]any{"count": len(spans)}), true, correlationID)
	return resp, nil
}

// spansForDescriptor returns existing spans produced by the same strategy
// descriptor, in chunk-index order, or nil if none match.
func spansForDescriptor(spans []metastore.Span, descriptor string) []metastore.Span {
	var out []metastore.Span
	for _, s := range spans {
		if s.Strategy == descriptor {
			out = append(out, s)
		}
	}
	return out
}

// SpanGet resolves span references to their content. A span id that never
// existed fails with a SpanNotFound naming the session and the requested
// span id, with no chunk_index; a span
// removed via the test-only DeleteSpan hook fails with a SpanNotFound
// that already carries its owning document and chunk_index, since
// GetSpan recovers both from the tombstoned row (§7/S7).
func (r *Runtime) SpanGet(ctx context.Context, req SpanGetRequest) (SpanGetResponse, error) {
	start := time.Now()
	correlationID := newCorrelationID()

	sess, err := r.meta.GetSession(ctx, req.SessionID)
	if err != nil {
		r.emitTrace(ctx, req.SessionID, ToolSpanGet, start, nil, nil, false, correlationID)
		return SpanGetResponse{}, err
	}
	if err := r.charge(ctx, req.SessionID, ToolSpanGet); err != nil {
		r.emitTrace(ctx, req.SessionID, ToolSpanGet, start, nil, nil, false, correlationID)
		return SpanGetResponse{}, err
	}

	budget := newByteBudget(sess.Config.MaxCharsPerResponse)
	results := make([]SpanResult, 0, len(req.SpanIDs))
	for _, spanID := range req.SpanIDs {
		span, err := r.meta.GetSpan(ctx, req.SessionID, spanID)
		if err != nil {
			r.emitTrace(ctx, req.SessionID, ToolSpanGet, start, nil, nil, false, correlationID)
			return SpanGetResponse{}, err
		}
		content, err := r.blobStoreSliceForSpan(ctx, span)
		if err != nil {
			wrapped := rlmerrors.Wrap(rlmerrors.BlobMissing, "span content unreachable", err).
				WithSession(req.SessionID).WithEntity(span.DocumentID)
			if span.ChunkIndex != nil {
				wrapped = wrapped.WithChunkIndex(*span.ChunkIndex)
			}
			r.emitTrace(ctx, req.SessionID, ToolSpanGet, start, nil, nil, false, correlationID)
			return SpanGetResponse{}, wrapped
		}
		taken := budget.take(content)
		truncated := len(taken) < len(content)
		if truncated {
			metrics.ResponseTruncatedTotal.WithLabelValues(ToolSpanGet).Inc()
		}
		results = append(results, SpanResult{Span: span, Content: taken, Truncated: truncated})
	}

	resp := SpanGetResponse{Results: results}
	r.emitTrace(ctx, req.SessionID, ToolSpanGet, start, nil, summarizeKeys(map[string]any{"count": len(results)}), true, correlationID)
	return resp, nil
}

func (r *Runtime) blobStoreSliceForSpan(ctx context.Context, span metastore.Span) ([]byte, error) {
	doc, err := r.metaDocForSpan(ctx, span)
	if err != nil {
		return nil, err
	}
	return r.blobs.GetSlice(doc.ContentHash, span.Start, span.End)
}

func (r *Runtime) metaDocForSpan(ctx context.Context, span metastore.Span) (metastore.Document, error) {
	return r.meta.GetDocument(ctx, span.SessionID, span.DocumentID)
}
