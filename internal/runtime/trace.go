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

	"github.com/aleutian-labs/rlmstore/internal/metastore"
	"github.com/aleutian-labs/rlmstore/internal/metrics"
)

// newCorrelationID assigns a UUID at the start of a tool call, per §3's
// trace entry contract. Cleared implicitly on return — nothing in the
// runtime retains it past the call that produced it.
func newCorrelationID() string {
	return uuid.NewString()
}

// summarizeKeys builds an input/output "summary" (§4.6: "keys only; not
// full bytes") from a set of named fields, rendering each value's dynamic
// type rather than its content.
func summarizeKeys(fields map[string]any) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = fmt.Sprintf("%T", v)
	}
	return out
}

// emitTrace appends a trace entry and logs (but never returns) any
// failure: tracing must not fail the underlying operation (§4.6, §7).
func (r *Runtime) emitTrace(ctx context.Context, sessionID, toolName string, start time.Time, inputSummary, outputSummary map[string]string, success bool, correlationID string) {
	entry := metastore.TraceEntry{
		SessionID:     sessionID,
		Timestamp:     time.Now().UTC(),
		ToolName:      toolName,
		InputSummary:  inputSummary,
		OutputSummary: outputSummary,
		DurationMs:    time.Since(start).Milliseconds(),
		Success:       success,
		CorrelationID: correlationID,
	}
	if err := r.meta.AppendTrace(ctx, entry); err != nil {
		r.log.Warn("trace append failed", "session_id", sessionID, "tool", toolName, "error", err)
	}

	outcome := "success"
	if !success {
		outcome = "error"
	}
	metrics.ToolCallsTotal.WithLabelValues(toolName, outcome).Inc()
}
