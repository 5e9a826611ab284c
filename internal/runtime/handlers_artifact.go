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

	"github.com/google/uuid"

	"github.com/aleutian-labs/rlmstore/internal/blobstore"
	"github.com/aleutian-labs/rlmstore/internal/metastore"
	"github.com/aleutian-labs/rlmstore/internal/rlmerrors"
)

// ArtifactStore records a derived result, either against an existing span
// or an inline byte range that is first promoted to a span of its own
// (§4.3's "a caller may supply an inline span instead of a prior
// chunk.create call"). Writing a new span this way requires the session
// lock for the same reason chunk.create does.
func (r *Runtime) ArtifactStore(ctx context.Context, req ArtifactStoreRequest) (ArtifactStoreResponse, error) {
	start := time.Now()
	correlationID := newCorrelationID()

	if err := r.charge(ctx, req.SessionID, ToolArtifactStore); err != nil {
		r.emitTrace(ctx, req.SessionID, ToolArtifactStore, start, nil, nil, false, correlationID)
		return ArtifactStoreResponse{}, err
	}

	spanID := req.SpanID
	if req.Inline != nil {
		created, err := r.storeInlineSpan(ctx, req.SessionID, *req.Inline)
		if err != nil {
			r.emitTrace(ctx, req.SessionID, ToolArtifactStore, start, nil, nil, false, correlationID)
			return ArtifactStoreResponse{}, err
		}
		spanID = created.ID
	} else if spanID != "" {
		if _, err := r.meta.GetSpan(ctx, req.SessionID, spanID); err != nil {
			r.emitTrace(ctx, req.SessionID, ToolArtifactStore, start, nil, nil, false, correlationID)
			return ArtifactStoreResponse{}, err
		}
	}

	artifact := metastore.Artifact{
		ID:         uuid.NewString(),
		SessionID:  req.SessionID,
		SpanID:     spanID,
		Type:       req.Type,
		Content:    req.Content,
		Model:      req.Model,
		PromptHash: req.PromptHash,
		ProducedAt: time.Now().UTC(),
	}
	if err := r.meta.CreateArtifact(ctx, artifact); err != nil {
		r.emitTrace(ctx, req.SessionID, ToolArtifactStore, start, nil, nil, false, correlationID)
		return ArtifactStoreResponse{}, err
	}

	resp := ArtifactStoreResponse{ArtifactID: artifact.ID, SpanID: spanID}
	r.emitTrace(ctx, req.SessionID, ToolArtifactStore, start, nil, summarizeKeys(map[string]any{"artifact_id": resp.ArtifactID}), true, correlationID)
	return resp, nil
}

// storeInlineSpan promotes an InlineSpan to a persisted span under the
// session lock, reusing content hashing from the blob store the same way
// chunk.create does.
func (r *Runtime) storeInlineSpan(ctx context.Context, sessionID string, inline InlineSpan) (metastore.Span, error) {
	lock, err := r.locks.acquire(ctx, sessionID)
	if err != nil {
		return metastore.Span{}, err
	}
	defer r.locks.release(lock)

	doc, err := r.meta.GetDocument(ctx, sessionID, inline.DocumentID)
	if err != nil {
		return metastore.Span{}, err
	}
	if inline.Start < 0 || inline.End < inline.Start {
		return metastore.Span{}, rlmerrors.New(rlmerrors.InvalidArgument, "inline span start/end out of range").
			WithSession(sessionID).WithEntity(inline.DocumentID)
	}

	content, err := r.blobs.GetSlice(doc.ContentHash, inline.Start, inline.End)
	if err != nil {
		return metastore.Span{}, rlmerrors.Wrap(rlmerrors.BlobMissing, "inline span content unreachable", err).
			WithSession(sessionID).WithEntity(inline.DocumentID)
	}

	span := metastore.Span{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		DocumentID:  inline.DocumentID,
		Start:       inline.Start,
		End:         inline.End,
		ContentHash: blobstore.Hash(content),
		Strategy:    "inline",
	}
	if err := r.meta.CreateSpansBatch(ctx, []metastore.Span{span}); err != nil {
		return metastore.Span{}, err
	}
	return span, nil
}

// ArtifactList is read-only and requires no session lock.
func (r *Runtime) ArtifactList(ctx context.Context, req ArtifactListRequest) (ArtifactListResponse, error) {
	start := time.Now()
	correlationID := newCorrelationID()

	if _, err := r.meta.GetSession(ctx, req.SessionID); err != nil {
		r.emitTrace(ctx, req.SessionID, ToolArtifactList, start, nil, nil, false, correlationID)
		return ArtifactListResponse{}, err
	}
	if err := r.charge(ctx, req.SessionID, ToolArtifactList); err != nil {
		r.emitTrace(ctx, req.SessionID, ToolArtifactList, start, nil, nil, false, correlationID)
		return ArtifactListResponse{}, err
	}

	artifacts, err := r.meta.ListArtifacts(ctx, req.SessionID, req.Filter)
	if err != nil {
		r.emitTrace(ctx, req.SessionID, ToolArtifactList, start, nil, nil, false, correlationID)
		return ArtifactListResponse{}, err
	}

	resp := ArtifactListResponse{Artifacts: artifacts}
	r.emitTrace(ctx, req.SessionID, ToolArtifactList, start, nil, summarizeKeys(map[string]any{"count": len(artifacts)}), true, correlationID)
	return resp, nil
}

// ArtifactGet is read-only and requires no session lock.
func (r *Runtime) ArtifactGet(ctx context.Context, req ArtifactGetRequest) (ArtifactGetResponse, error) {
	start := time.Now()
	correlationID := newCorrelationID()

	if _, err := r.meta.GetSession(ctx, req.SessionID); err != nil {
		r.emitTrace(ctx, req.SessionID, ToolArtifactGet, start, nil, nil, false, correlationID)
		return ArtifactGetResponse{}, err
	}
	if err := r.charge(ctx, req.SessionID, ToolArtifactGet); err != nil {
		r.emitTrace(ctx, req.SessionID, ToolArtifactGet, start, nil, nil, false, correlationID)
		return ArtifactGetResponse{}, err
	}

	artifact, err := r.meta.GetArtifact(ctx, req.SessionID, req.ArtifactID)
	if err != nil {
		r.emitTrace(ctx, req.SessionID, ToolArtifactGet, start, nil, nil, false, correlationID)
		return ArtifactGetResponse{}, err
	}

	resp := ArtifactGetResponse{Artifact: artifact}
	r.emitTrace(ctx, req.SessionID, ToolArtifactGet, start, nil, nil, true, correlationID)
	return resp, nil
}
