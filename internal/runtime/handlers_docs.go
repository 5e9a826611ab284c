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
	"time"

	"github.com/aleutian-labs/rlmstore/internal/blobstore"
	"github.com/aleutian-labs/rlmstore/internal/metrics"
	"github.com/aleutian-labs/rlmstore/internal/rlmerrors"
)

// DocsList is read-only and requires no session lock.
func (r *Runtime) DocsList(ctx context.Context, req DocsListRequest) (DocsListResponse, error) {
	start := time.Now()
	correlationID := newCorrelationID()

	if _, err := r.meta.GetSession(ctx, req.SessionID); err != nil {
		r.emitTrace(ctx, req.SessionID, ToolDocsList, start, nil, nil, false, correlationID)
		return DocsListResponse{}, err
	}
	if err := r.charge(ctx, req.SessionID, ToolDocsList); err != nil {
		r.emitTrace(ctx, req.SessionID, ToolDocsList, start, nil, nil, false, correlationID)
		return DocsListResponse{}, err
	}

	docs, err := r.meta.ListDocuments(ctx, req.SessionID)
	if err != nil {
		r.emitTrace(ctx, req.SessionID, ToolDocsList, start, nil, nil, false, correlationID)
		return DocsListResponse{}, err
	}

	offset := req.Page.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > len(docs) {
		offset = len(docs)
	}
	end := len(docs)
	if req.Page.Limit > 0 && offset+req.Page.Limit < end {
		end = offset + req.Page.Limit
	}

	resp := DocsListResponse{Documents: docs[offset:end]}
	r.emitTrace(ctx, req.SessionID, ToolDocsList, start, nil, summarizeKeys(map[string]any{"count": len(resp.Documents)}), true, correlationID)
	return resp, nil
}

// DocsPeek reads a byte range of a document through the blob store,
// applying both the per-call response cap and the peek-specific cap
// (§4.6 step 5).
func (r *Runtime) DocsPeek(ctx context.Context, req DocsPeekRequest) (DocsPeekResponse, error) {
	start := time.Now()
	correlationID := newCorrelationID()

	sess, err := r.meta.GetSession(ctx, req.SessionID)
	if err != nil {
		r.emitTrace(ctx, req.SessionID, ToolDocsPeek, start, nil, nil, false, correlationID)
		return DocsPeekResponse{}, err
	}
	if err := r.charge(ctx, req.SessionID, ToolDocsPeek); err != nil {
		r.emitTrace(ctx, req.SessionID, ToolDocsPeek, start, nil, nil, false, correlationID)
		return DocsPeekResponse{}, err
	}

	doc, err := r.meta.GetDocument(ctx, req.SessionID, req.DocumentID)
	if err != nil {
		r.emitTrace(ctx, req.SessionID, ToolDocsPeek, start, nil, nil, false, correlationID)
		return DocsPeekResponse{}, err
	}

	if req.Start < 0 || req.End < req.Start {
		err := rlmerrors.New(rlmerrors.InvalidArgument, "start/end out of range").WithSession(req.SessionID).WithEntity(req.DocumentID)
		r.emitTrace(ctx, req.SessionID, ToolDocsPeek, start, nil, nil, false, correlationID)
		return DocsPeekResponse{}, err
	}

	sliceBytes, err := r.blobs.GetSlice(doc.ContentHash, req.Start, req.End)
	if err != nil {
		kind := rlmerrors.BlobMissing
		if err != blobstore.ErrAbsent {
			kind = rlmerrors.Internal
		}
		wrapped := rlmerrors.Wrap(kind, "failed to read document content", err).WithSession(req.SessionID).WithEntity(req.DocumentID)
		r.emitTrace(ctx, req.SessionID, ToolDocsPeek, start, nil, nil, false, correlationID)
		return DocsPeekResponse{}, wrapped
	}

	peekCap := sess.Config.MaxCharsPerPeek
	responseCap := sess.Config.MaxCharsPerResponse
	budget := newByteBudget(minPositive(peekCap, responseCap))
	content := budget.take(sliceBytes)

	resp := DocsPeekResponse{
		Content:     content,
		ContentHash: blobstore.Hash(sliceBytes),
		Truncated:   budget.Truncated(),
		TotalLength: doc.LengthChars,
		SpanStart:   req.Start,
		SpanEnd:     req.Start + len(sliceBytes),
	}
	if resp.Truncated {
		metrics.ResponseTruncatedTotal.WithLabelValues(ToolDocsPeek).Inc()
	}
	r.emitTrace(ctx, req.SessionID, ToolDocsPeek, start, nil, summarizeKeys(map[string]any{"truncated": resp.Truncated}), true, correlationID)
	return resp, nil
}

// minPositive returns the smaller of two caps, treating <=0 as "no cap".
func minPositive(a, b int) int {
	if a <= 0 {
		return b
	}
	if b <= 0 {
		return a
	}
	if a < b {
		return a
	}
	return b
}
