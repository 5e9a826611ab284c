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

	"github.com/aleutian-labs/rlmstore/internal/metrics"
	"github.com/aleutian-labs/rlmstore/internal/rlmerrors"
)

// preChargeExemptTool is the single operation allowed to run before its
// budget charge (§4.6, §9's open question): session.create is charged
// after the session row exists, since there is no session to charge
// against beforehand. Matching is exact-string, never suffix — a
// `foo.session.create`-shaped name must still be pre-charged.
const preChargeExemptTool = ToolSessionCreate

// charge calls the atomic budget primitive for sessionID unless toolName
// is exactly the pre-charge-exempt name. Returns a BudgetExceeded
// *rlmerrors.Error when the cap is reached; the caller must not proceed to
// the operation's side effect in that case.
func (r *Runtime) charge(ctx context.Context, sessionID, toolName string) error {
	if toolName == preChargeExemptTool {
		return nil
	}
	used, admitted, err := r.meta.TryIncrementToolCalls(ctx, sessionID)
	if err != nil {
		return err
	}
	if !admitted {
		sess, getErr := r.meta.GetSession(ctx, sessionID)
		limit := 0
		if getErr == nil {
			limit = sess.Config.MaxToolCalls
		}
		metrics.BudgetDeniedTotal.WithLabelValues(sessionID).Inc()
		return rlmerrors.BudgetExceededErr(sessionID, used, limit)
	}
	return nil
}

// chargeAfterCreate performs session.create's post-creation charge. Exactly
// one call increments tool_calls_used to 1 for a brand-new session.
func (r *Runtime) chargeAfterCreate(ctx context.Context, sessionID string) error {
	_, admitted, err := r.meta.TryIncrementToolCalls(ctx, sessionID)
	if err != nil {
		return err
	}
	if !admitted {
		// A session.create whose own post-charge is denied means
		// max_tool_calls was configured to 0 — the session exists but can
		// never be used. Surface this as BudgetExceeded rather than
		// silently leaving tool_calls_used at 0.
		return rlmerrors.BudgetExceededErr(sessionID, 0, 0)
	}
	return nil
}
