// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package metastore implements the durable metadata store (C2): sessions,
// documents, spans, artifacts, and traces, backed by BadgerDB (see
// internal/badgerkv). Every write that must be linearizable goes through a
// single transaction; batch inserts commit in one transaction or not at
// all.
package metastore

import "time"

// SessionStatus is the session lifecycle state (§4.6's "active →
// completed" state machine).
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

// SessionConfig is the per-session budget/cap envelope (§6's session
// config table).
type SessionConfig struct {
	MaxToolCalls        int
	MaxCharsPerResponse int
	MaxCharsPerPeek     int
	ChunkCacheEnabled   bool
	ModelHints          map[string]string
}

// Session is the lifecycle container owning documents, spans, artifacts,
// and traces (§3).
type Session struct {
	ID            string
	Name          string
	Status        SessionStatus
	CreatedAt     time.Time
	ClosedAt      time.Time
	Config        SessionConfig
	ToolCallsUsed int
}

// SourceKind distinguishes how a document's bytes were supplied.
type SourceKind string

const (
	SourceInline SourceKind = "inline"
	SourceFile   SourceKind = "file"
)

// Source describes where a document's bytes came from.
type Source struct {
	Kind SourceKind
	Path string
}

// Document is an immutable, session-scoped reference to a blob (§3).
type Document struct {
	ID          string
	SessionID   string
	ContentHash string
	Source      Source
	LengthChars int
	Metadata    map[string]string
	CreatedAt   time.Time
}

// Span is an immutable, session-scoped half-open byte range over a
// document (§3).
type Span struct {
	ID          string
	SessionID   string
	DocumentID  string
	Start       int
	End         int
	ContentHash string
	Strategy    string
	ChunkIndex  *int
	CreatedAt   time.Time
	// DeletedAt is set by DeleteSpan's soft delete. The row is kept (rather
	// than removed) so a later GetSpan can still report the owning document
	// and chunk_index in its SpanNotFound error (§7/S7).
	DeletedAt time.Time
}

// Artifact is a session-scoped derived result, optionally attributed to a
// span (§3).
type Artifact struct {
	ID         string
	SessionID  string
	SpanID     string // empty means session-level
	Type       string
	Content    string // raw JSON text
	Model      string
	PromptHash string
	ProducedAt time.Time
	CreatedAt  time.Time
}

// TraceEntry is an append-only per-operation record (§3).
type TraceEntry struct {
	SessionID     string
	Timestamp     time.Time
	ToolName      string
	InputSummary  map[string]string
	OutputSummary map[string]string
	DurationMs    int64
	Success       bool
	CorrelationID string
}

// Page describes a pagination request.
type Page struct {
	Offset int
	Limit  int
}

// ArtifactFilter restricts artifact.list results.
type ArtifactFilter struct {
	SpanID string
	Type   string
}
