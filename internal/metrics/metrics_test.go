// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestToolCallsTotalIncrements(t *testing.T) {
	ToolCallsTotal.Reset()
	ToolCallsTotal.WithLabelValues("session.create", "success").Inc()
	ToolCallsTotal.WithLabelValues("session.create", "success").Inc()

	got := testutil.ToFloat64(ToolCallsTotal.WithLabelValues("session.create", "success"))
	if got != 2 {
		t.Fatalf("expected counter at 2, got %v", got)
	}
}

func TestIndexBuildSecondsObserves(t *testing.T) {
	IndexBuildSeconds.Observe(0.5)
	if count := testutil.CollectAndCount(IndexBuildSeconds); count != 1 {
		t.Fatalf("expected one registered histogram metric, got %d", count)
	}
}

func TestBudgetDeniedTotalLabeledBySession(t *testing.T) {
	BudgetDeniedTotal.Reset()
	BudgetDeniedTotal.WithLabelValues("sess-1").Inc()

	if got := testutil.ToFloat64(BudgetDeniedTotal.WithLabelValues("sess-1")); got != 1 {
		t.Fatalf("expected 1 denial recorded for sess-1, got %v", got)
	}
	if got := testutil.ToFloat64(BudgetDeniedTotal.WithLabelValues("sess-2")); got != 0 {
		t.Fatalf("expected 0 denials recorded for sess-2, got %v", got)
	}
}
