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
)

// TraceList is a supplemented read-only tool (not in the original tool
// table) exposing the append-only trace log a session has accumulated, so
// a caller can audit what ran against it without reaching into the store
// directly.
func (r *Runtime) TraceList(ctx context.Context, req TraceListRequest) (TraceListResponse, error) {
	start := time.Now()
	correlationID := newCorrelationID()

	if _, err := r.meta.GetSession(ctx, req.SessionID); err != nil {
		r.emitTrace(ctx, req.SessionID, ToolTraceList, start, nil, nil, false, correlationID)
		return TraceListResponse{}, err
	}
	if err := r.charge(ctx, req.SessionID, ToolTraceList); err != nil {
		r.emitTrace(ctx, req.SessionID, ToolTraceList, start, nil, nil, false, correlationID)
		return TraceListResponse{}, err
	}

	entries, err := r.meta.ListTraces(ctx, req.SessionID, req.Page)
	if err != nil {
		r.emitTrace(ctx, req.SessionID, ToolTraceList, start, nil, nil, false, correlationID)
		return TraceListResponse{}, err
	}

	resp := TraceListResponse{Entries: entries}
	r.emitTrace(ctx, req.SessionID, ToolTraceList, start, nil, summarizeKeys(map[string]any{"count": len(entries)}), true, correlationID)
	return resp, nil
}
