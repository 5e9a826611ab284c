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

	"github.com/aleutian-labs/rlmstore/internal/config"
	"github.com/aleutian-labs/rlmstore/internal/metastore"
	"github.com/aleutian-labs/rlmstore/internal/rlmerrors"
)

// SessionCreate is the one tool allowed to run before its budget charge
// (§4.6 step 2's exception): there is no session row to charge against
// until this call creates one.
func (r *Runtime) SessionCreate(ctx context.Context, req SessionCreateRequest) (SessionCreateResponse, error) {
	start := time.Now()
	correlationID := newCorrelationID()

	sessionID := uuid.NewString()
	cfg := config.MergeSessionConfig(r.cfg.DefaultSessionConfig(), req.ConfigOverride)

	sess := metastore.Session{ID: sessionID, Name: req.Name, Config: cfg}
	if err := r.meta.CreateSession(ctx, sess); err != nil {
		r.emitTrace(ctx, sessionID, ToolSessionCreate, start, summarizeKeys(map[string]any{"name": req.Name}), nil, false, correlationID)
		return SessionCreateResponse{}, err
	}

	if err := r.chargeAfterCreate(ctx, sessionID); err != nil {
		r.emitTrace(ctx, sessionID, ToolSessionCreate, start, summarizeKeys(map[string]any{"name": req.Name}), nil, false, correlationID)
		return SessionCreateResponse{}, err
	}

	resp := SessionCreateResponse{SessionID: sessionID, Config: cfg, CreatedAt: time.Now().UTC()}
	r.emitTrace(ctx, sessionID, ToolSessionCreate, start,
		summarizeKeys(map[string]any{"name": req.Name}),
		summarizeKeys(map[string]any{"session_id": resp.SessionID}),
		true, correlationID)
	return resp, nil
}

// SessionInfo is read-only and does not touch the index cache, so it runs
// without the session lock. It is the one inspection tool that must keep
// working after session.close (§4.6: "read-only inspection is exempt from
// the closed-session error"), so it only runs through the normal budget
// charge while the session is still active; a closed session is reported
// on without touching tool_calls_used, since TryIncrementToolCalls treats
// any non-active session as an unconditional SessionClosed.
func (r *Runtime) SessionInfo(ctx context.Context, req SessionInfoRequest) (SessionInfoResponse, error) {
	start := time.Now()
	correlationID := newCorrelationID()

	sess, err := r.meta.GetSession(ctx, req.SessionID)
	if err != nil {
		r.emitTrace(ctx, req.SessionID, ToolSessionInfo, start, summarizeKeys(map[string]any{"session_id": req.SessionID}), nil, false, correlationID)
		return SessionInfoResponse{}, err
	}

	if sess.Status == metastore.SessionActive {
		if err := r.charge(ctx, req.SessionID, ToolSessionInfo); err != nil {
			r.emitTrace(ctx, req.SessionID, ToolSessionInfo, start, summarizeKeys(map[string]any{"session_id": req.SessionID}), nil, false, correlationID)
			return SessionInfoResponse{}, err
		}
	}

	docs, err := r.meta.ListDocuments(ctx, req.SessionID)
	if err != nil {
		r.emitTrace(ctx, req.SessionID, ToolSessionInfo, start, nil, nil, false, correlationID)
		return SessionInfoResponse{}, err
	}

	remaining := 0
	if sess.Config.MaxToolCalls > 0 {
		remaining = sess.Config.MaxToolCalls - sess.ToolCallsUsed
		if remaining < 0 {
			remaining = 0
		}
	}

	resp := SessionInfoResponse{
		SessionID:          sess.ID,
		Status:             sess.Status,
		DocumentCount:      len(docs),
		ToolCallsUsed:      sess.ToolCallsUsed,
		ToolCallsRemaining: remaining,
	}
	r.emitTrace(ctx, req.SessionID, ToolSessionInfo, start, nil, summarizeKeys(map[string]any{"status": resp.Status}), true, correlationID)
	return resp, nil
}

// SessionClose transitions the session to completed, persists its index
// (if any was built), and evicts the session lock entry so the lock map
// does not grow without bound (§4.6's "released and its entry removed
// when session.close completes"). Closing a session that is no longer
// active fails with SessionAlreadyClosed before any budget charge.
func (r *Runtime) SessionClose(ctx context.Context, req SessionCloseRequest) (SessionCloseResponse, error) {
	start := time.Now()
	correlationID := newCorrelationID()

	if sess, getErr := r.meta.GetSession(ctx, req.SessionID); getErr == nil && sess.Status != metastore.SessionActive {
		r.emitTrace(ctx, req.SessionID, ToolSessionClose, start, nil, nil, false, correlationID)
		return SessionCloseResponse{}, rlmerrors.New(rlmerrors.SessionAlreadyClosed, "session already closed").WithSession(req.SessionID)
	}

	if err := r.charge(ctx, req.SessionID, ToolSessionClose); err != nil {
		r.emitTrace(ctx, req.SessionID, ToolSessionClose, start, nil, nil, false, correlationID)
		return SessionCloseResponse{}, err
	}

	lock, err := r.locks.acquire(ctx, req.SessionID)
	if err != nil {
		r.emitTrace(ctx, req.SessionID, ToolSessionClose, start, nil, nil, false, correlationID)
		return SessionCloseResponse{}, err
	}
	defer r.locks.release(lock)

	r.persistIndexOnClose(ctx, req.SessionID)
	r.cache.invalidate(req.SessionID)

	if err := r.meta.CloseSession(ctx, req.SessionID); err != nil {
		r.emitTrace(ctx, req.SessionID, ToolSessionClose, start, nil, nil, false, correlationID)
		return SessionCloseResponse{}, err
	}

	// Only evict the lock entry once CloseSession has actually committed,
	// so a concurrent caller blocked on r.locks.acquire either observes the
	// session as closed (if it acquires after this point, with no entry
	// left to reuse) or was already holding the lock before the close (and
	// so ran strictly before it) — never a window where a fresh, unlocked
	// entry lets it race the close itself.
	r.locks.evict(req.SessionID)

	docs, _ := r.meta.ListDocuments(ctx, req.SessionID)
	artifacts, _ := r.meta.ListArtifacts(ctx, req.SessionID, metastore.ArtifactFilter{})
	spanCount := 0
	for _, d := range docs {
		spans, err := r.meta.ListSpansForDocument(ctx, req.SessionID, d.ID)
		if err == nil {
			spanCount += len(spans)
		}
	}

	resp := SessionCloseResponse{
		Status:        metastore.SessionCompleted,
		DocumentCount: len(docs),
		SpanCount:     spanCount,
		ArtifactCount: len(artifacts),
	}
	r.emitTrace(ctx, req.SessionID, ToolSessionClose, start, nil, summarizeKeys(map[string]any{"status": resp.Status}), true, correlationID)
	return resp, nil
}
