// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package metrics exposes the runtime's Prometheus instrumentation, the
// way services/trace/agent/providers/egress/metrics.go tracks egress
// calls: a handful of counters and a histogram, registered once via
// promauto and updated from the runtime's tool-call and index-build
// paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ToolCallsTotal counts every tool invocation by canonical name and
	// outcome (success, error).
	ToolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rlmstore",
		Subsystem: "runtime",
		Name:      "tool_calls_total",
		Help:      "Total tool calls by canonical name and outcome",
	}, []string{"tool", "outcome"})

	// BudgetDeniedTotal counts budget-exceeded denials by session, so a
	// caller scraping /metrics can see which sessions are running hot
	// without reading every trace entry.
	BudgetDeniedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rlmstore",
		Subsystem: "budget",
		Name:      "denied_total",
		Help:      "Total try_increment_tool_calls denials by session",
	}, []string{"session_id"})

	// IndexTierTotal counts which tier of the three-tier index cache
	// served a get_or_build_index call (§4.6: hit-memory, hit-disk,
	// rebuilt).
	IndexTierTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rlmstore",
		Subsystem: "index",
		Name:      "tier_total",
		Help:      "Index retrieval outcomes by cache tier",
	}, []string{"tier"})

	// IndexBuildSeconds measures how long a full BM25 rebuild takes. It
	// carries no labels: rebuilds of every session size share one
	// histogram.
	IndexBuildSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "rlmstore",
		Subsystem: "index",
		Name:      "build_seconds",
		Help:      "Time spent rebuilding a session's BM25 index",
		Buckets:   prometheus.DefBuckets,
	})

	// ResponseTruncatedTotal counts responses whose content was clipped by
	// max_chars_per_response or max_chars_per_peek (§8 property 7).
	ResponseTruncatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rlmstore",
		Subsystem: "runtime",
		Name:      "response_truncated_total",
		Help:      "Total responses truncated by a response-size cap",
	}, []string{"tool"})
)
