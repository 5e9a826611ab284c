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
	"time"

	"github.com/aleutian-labs/rlmstore/internal/metastore"
)

// --- session.* ---

type SessionCreateRequest struct {
	Name           string
	ConfigOverride metastore.SessionConfig
}

type SessionCreateResponse struct {
	SessionID string
	Config    metastore.SessionConfig
	CreatedAt time.Time
}

type SessionInfoRequest struct {
	SessionID string
}

type SessionInfoResponse struct {
	SessionID          string
	Status             metastore.SessionStatus
	DocumentCount      int
	ToolCallsUsed      int
	ToolCallsRemaining int
}

type SessionCloseRequest struct {
	SessionID string
}

type SessionCloseResponse struct {
	Status        metastore.SessionStatus
	DocumentCount int
	SpanCount     int
	ArtifactCount int
}

// --- docs.* ---

// SourceSpec is one requested load in docs.load. Exactly one of Inline or
// Path is set, selected by Kind.
type SourceSpec struct {
	Kind   metastore.SourceKind
	Inline string
	Path   string
}

type DocsLoadRequest struct {
	SessionID string
	Sources   []SourceSpec
}

type LoadedDoc struct {
	DocumentID    string
	ContentHash   string
	LengthChars   int
	TokenEstimate int
}

type LoadError struct {
	Spec    string
	Message string
}

type DocsLoadResponse struct {
	Loaded []LoadedDoc
	Errors []LoadError
}

type DocsListRequest struct {
	SessionID string
	Page      metastore.Page
}

type DocsListResponse struct {
	Documents []metastore.Document
}

type DocsPeekRequest struct {
	SessionID  string
	DocumentID string
	Start      int
	End        int
}

type DocsPeekResponse struct {
	Content     []byte
	ContentHash string
	Truncated   bool
	TotalLength int
	SpanStart   int
	SpanEnd     int
}

// --- chunk.* / span.* ---

// StrategySpec describes a chunking strategy request (§4.3).
type StrategySpec struct {
	Kind      string // "fixed" | "lines" | "delimiter"
	ChunkSize int
	LineCount int
	Overlap   int
	Pattern   string
	IsRegex   bool
	MaxChunks int
}

type ChunkCreateRequest struct {
	SessionID  string
	DocumentID string
	Strategy   StrategySpec
}

type ChunkCreateResponse struct {
	Spans []metastore.Span
}

type SpanGetRequest struct {
	SessionID string
	SpanIDs   []string
}

type SpanResult struct {
	Span      metastore.Span
	Content   []byte
	Truncated bool
}

type SpanGetResponse struct {
	Results []SpanResult
}

// --- search.query ---

type SearchMethod string

const (
	SearchBM25    SearchMethod = "bm25"
	SearchRegex   SearchMethod = "regex"
	SearchLiteral SearchMethod = "literal"
)

type SearchQueryRequest struct {
	SessionID   string
	Query       string
	Method      SearchMethod
	Limit       int
	ContextSize int
	DocFilter   []string
}

type SearchMatch struct {
	DocumentID string
	Score      float64
	SpanStart  int
	SpanEnd    int
	Context    []byte
	Highlights []HighlightResult
}

type HighlightResult struct {
	Start int
	End   int
	Terms []string
}

type SearchQueryResponse struct {
	Matches   []SearchMatch
	Truncated bool
}

// --- artifact.* ---

type InlineSpan struct {
	DocumentID string
	Start      int
	End        int
}

type ArtifactStoreRequest struct {
	SessionID  string
	SpanID     string
	Inline     *InlineSpan
	Type       string
	Content    string
	Model      string
	PromptHash string
}

type ArtifactStoreResponse struct {
	ArtifactID string
	SpanID     string
}

type ArtifactListRequest struct {
	SessionID string
	Filter    metastore.ArtifactFilter
}

type ArtifactListResponse struct {
	Artifacts []metastore.Artifact
}

type ArtifactGetRequest struct {
	SessionID  string
	ArtifactID string
}

type ArtifactGetResponse struct {
	Artifact metastore.Artifact
}

// --- trace.list (supplemented) ---

type TraceListRequest struct {
	SessionID string
	Page      metastore.Page
}

type TraceListResponse struct {
	Entries []metastore.TraceEntry
}
