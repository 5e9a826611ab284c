// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aleutian-labs/rlmstore/internal/metastore"
	"github.com/aleutian-labs/rlmstore/internal/runtime"
)

// --- wire argument shapes (§6's "Input (key fields)" column) ---

type sessionCreateArgs struct {
	Name                string            `json:"name,omitempty"`
	MaxToolCalls        int               `json:"max_tool_calls,omitempty"`
	MaxCharsPerResponse int               `json:"max_chars_per_response,omitempty"`
	MaxCharsPerPeek     int               `json:"max_chars_per_peek,omitempty"`
	ModelHints          map[string]string `json:"model_hints,omitempty"`
}

type sessionIDArgs struct {
	SessionID string `json:"session_id"`
}

type sourceSpecArg struct {
	Kind   string `json:"kind"`
	Inline string `json:"inline,omitempty"`
	Path   string `json:"path,omitempty"`
}

type docsLoadArgs struct {
	SessionID string          `json:"session_id"`
	Sources   []sourceSpecArg `json:"sources"`
}

type docsListArgs struct {
	SessionID string `json:"session_id"`
	Offset    int    `json:"offset,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

type docsPeekArgs struct {
	SessionID  string `json:"session_id"`
	DocumentID string `json:"document_id"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
}

type strategyArg struct {
	Kind      string `json:"kind"`
	ChunkSize int    `json:"chunk_size,omitempty"`
	LineCount int    `json:"line_count,omitempty"`
	Overlap   int    `json:"overlap,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
	IsRegex   bool   `json:"is_regex,omitempty"`
	MaxChunks int    `json:"max_chunks,omitempty"`
}

type chunkCreateArgs struct {
	SessionID  string      `json:"session_id"`
	DocumentID string      `json:"document_id"`
	Strategy   strategyArg `json:"strategy"`
}

type spanGetArgs struct {
	SessionID string   `json:"session_id"`
	SpanIDs   []string `json:"span_ids"`
}

type searchQueryArgs struct {
	SessionID   string   `json:"session_id"`
	Query       string   `json:"query"`
	Method      string   `json:"method,omitempty"`
	Limit       int      `json:"limit,omitempty"`
	ContextSize int      `json:"context_size,omitempty"`
	DocFilter   []string `json:"doc_filter,omitempty"`
}

type inlineSpanArg struct {
	DocumentID string `json:"document_id"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
}

type artifactStoreArgs struct {
	SessionID  string         `json:"session_id"`
	SpanID     string         `json:"span_id,omitempty"`
	Inline     *inlineSpanArg `json:"inline_span,omitempty"`
	Type       string         `json:"type"`
	Content    string         `json:"content"`
	Model      string         `json:"model,omitempty"`
	PromptHash string         `json:"prompt_hash,omitempty"`
}

type artifactListArgs struct {
	SessionID string `json:"session_id"`
	SpanID    string `json:"span_id,omitempty"`
	Type      string `json:"type,omitempty"`
}

type artifactGetArgs struct {
	SessionID  string `json:"session_id"`
	ArtifactID string `json:"artifact_id"`
}

type traceListArgs struct {
	SessionID string `json:"session_id"`
	Offset    int    `json:"offset,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// toolRegistrations lists every canonical tool (§6's table plus the
// supplemented trace.list) paired with the closure that binds it to an
// mcp.Server under its final (possibly sanitized) name.
func toolRegistrations(rt *runtime.Runtime) []toolRegistration {
	return []toolRegistration{
		{runtime.ToolSessionCreate, func(s *mcp.Server, name string) {
			mcp.AddTool(s, &mcp.Tool{Name: name, Description: "Create a new retrieval session with an optional name and config overrides."},
				func(ctx context.Context, _ *mcp.CallToolRequest, args sessionCreateArgs) (*mcp.CallToolResult, runtime.SessionCreateResponse, error) {
					resp, err := rt.SessionCreate(ctx, runtime.SessionCreateRequest{
						Name: args.Name,
						ConfigOverride: metastore.SessionConfig{
							MaxToolCalls:        args.MaxToolCalls,
							MaxCharsPerResponse: args.MaxCharsPerResponse,
							MaxCharsPerPeek:     args.MaxCharsPerPeek,
							ModelHints:          args.ModelHints,
						},
					})
					return result(name, resp, err)
				})
		}},
		{runtime.ToolSessionInfo, func(s *mcp.Server, name string) {
			mcp.AddTool(s, &mcp.Tool{Name: name, Description: "Report a session's status, document count, and tool-call budget."},
				func(ctx context.Context, _ *mcp.CallToolRequest, args sessionIDArgs) (*mcp.CallToolResult, runtime.SessionInfoResponse, error) {
					resp, err := rt.SessionInfo(ctx, runtime.SessionInfoRequest{SessionID: args.SessionID})
					return result(name, resp, err)
				})
		}},
		{runtime.ToolSessionClose, func(s *mcp.Server, name string) {
			mcp.AddTool(s, &mcp.Tool{Name: name, Description: "Close a session, persisting its index and evicting its lock."},
				func(ctx context.Context, _ *mcp.CallToolRequest, args sessionIDArgs) (*mcp.CallToolResult, runtime.SessionCloseResponse, error) {
					resp, err := rt.SessionClose(ctx, runtime.SessionCloseRequest{SessionID: args.SessionID})
					return result(name, resp, err)
				})
		}},
		{runtime.ToolDocsLoad, func(s *mcp.Server, name string) {
			mcp.AddTool(s, &mcp.Tool{Name: name, Description: "Load documents into a session from inline text, files, directories, or globs."},
				func(ctx context.Context, _ *mcp.CallToolRequest, args docsLoadArgs) (*mcp.CallToolResult, runtime.DocsLoadResponse, error) {
					sources := make([]runtime.SourceSpec, len(args.Sources))
					for i, src := range args.Sources {
						sources[i] = runtime.SourceSpec{Kind: metastoreSourceKind(src.Kind), Inline: src.Inline, Path: src.Path}
					}
					resp, err := rt.DocsLoad(ctx, runtime.DocsLoadRequest{SessionID: args.SessionID, Sources: sources})
					return result(name, resp, err)
				})
		}},
		{runtime.ToolDocsList, func(s *mcp.Server, name string) {
			mcp.AddTool(s, &mcp.Tool{Name: name, Description: "List a session's documents, paginated."},
				func(ctx context.Context, _ *mcp.CallToolRequest, args docsListArgs) (*mcp.CallToolResult, runtime.DocsListResponse, error) {
					resp, err := rt.DocsList(ctx, runtime.DocsListRequest{
						SessionID: args.SessionID,
						Page:      metastore.Page{Offset: args.Offset, Limit: args.Limit},
					})
					return result(name, resp, err)
				})
		}},
		{runtime.ToolDocsPeek, func(s *mcp.Server, name string) {
			mcp.AddTool(s, &mcp.Tool{Name: name, Description: "Read a byte range of a document's content, capped by max_chars_per_peek."},
				func(ctx context.Context, _ *mcp.CallToolRequest, args docsPeekArgs) (*mcp.CallToolResult, runtime.DocsPeekResponse, error) {
					resp, err := rt.DocsPeek(ctx, runtime.DocsPeekRequest{
						SessionID: args.SessionID, DocumentID: args.DocumentID, Start: args.Start, End: args.End,
					})
					return result(name, resp, err)
				})
		}},
		{runtime.ToolChunkCreate, func(s *mcp.Server, name string) {
			mcp.AddTool(s, &mcp.Tool{Name: name, Description: "Tile a document into spans using a fixed, lines, or delimiter chunking strategy."},
				func(ctx context.Context, _ *mcp.CallToolRequest, args chunkCreateArgs) (*mcp.CallToolResult, runtime.ChunkCreateResponse, error) {
					resp, err := rt.ChunkCreate(ctx, runtime.ChunkCreateRequest{
						SessionID:  args.SessionID,
						DocumentID: args.DocumentID,
						Strategy: runtime.StrategySpec{
							Kind: args.Strategy.Kind, ChunkSize: args.Strategy.ChunkSize, LineCount: args.Strategy.LineCount,
							Overlap: args.Strategy.Overlap, Pattern: args.Strategy.Pattern, IsRegex: args.Strategy.IsRegex,
							MaxChunks: args.Strategy.MaxChunks,
						},
					})
					return result(name, resp, err)
				})
		}},
		{runtime.ToolSpanGet, func(s *mcp.Server, name string) {
			mcp.AddTool(s, &mcp.Tool{Name: name, Description: "Resolve span ids to their content, hash, and truncation status."},
				func(ctx context.Context, _ *mcp.CallToolRequest, args spanGetArgs) (*mcp.CallToolResult, runtime.SpanGetResponse, error) {
					resp, err := rt.SpanGet(ctx, runtime.SpanGetRequest{SessionID: args.SessionID, SpanIDs: args.SpanIDs})
					return result(name, resp, err)
				})
		}},
		{runtime.ToolSearchQuery, func(s *mcp.Server, name string) {
			mcp.AddTool(s, &mcp.Tool{Name: name, Description: "Search a session's documents by BM25, regex, or literal match."},
				func(ctx context.Context, _ *mcp.CallToolRequest, args searchQueryArgs) (*mcp.CallToolResult, runtime.SearchQueryResponse, error) {
					method := runtime.SearchMethod(args.Method)
					if method == "" {
						method = runtime.SearchBM25
					}
					resp, err := rt.SearchQuery(ctx, runtime.SearchQueryRequest{
						SessionID: args.SessionID, Query: args.Query, Method: method,
						Limit: args.Limit, ContextSize: args.ContextSize, DocFilter: args.DocFilter,
					})
					return result(name, resp, err)
				})
		}},
		{runtime.ToolArtifactStore, func(s *mcp.Server, name string) {
			mcp.AddTool(s, &mcp.Tool{Name: name, Description: "Store a derived artifact against a span (existing or inline) or at session level."},
				func(ctx context.Context, _ *mcp.CallToolRequest, args artifactStoreArgs) (*mcp.CallToolResult, runtime.ArtifactStoreResponse, error) {
					var inline *runtime.InlineSpan
					if args.Inline != nil {
						inline = &runtime.InlineSpan{DocumentID: args.Inline.DocumentID, Start: args.Inline.Start, End: args.Inline.End}
					}
					resp, err := rt.ArtifactStore(ctx, runtime.ArtifactStoreRequest{
						SessionID: args.SessionID, SpanID: args.SpanID, Inline: inline,
						Type: args.Type, Content: args.Content, Model: args.Model, PromptHash: args.PromptHash,
					})
					return result(name, resp, err)
				})
		}},
		{runtime.ToolArtifactList, func(s *mcp.Server, name string) {
			mcp.AddTool(s, &mcp.Tool{Name: name, Description: "List a session's artifacts, optionally filtered by span or type."},
				func(ctx context.Context, _ *mcp.CallToolRequest, args artifactListArgs) (*mcp.CallToolResult, runtime.ArtifactListResponse, error) {
					resp, err := rt.ArtifactList(ctx, runtime.ArtifactListRequest{
						SessionID: args.SessionID,
						Filter:    metastore.ArtifactFilter{SpanID: args.SpanID, Type: args.Type},
					})
					return result(name, resp, err)
				})
		}},
		{runtime.ToolArtifactGet, func(s *mcp.Server, name string) {
			mcp.AddTool(s, &mcp.Tool{Name: name, Description: "Fetch one artifact by id, including its provenance."},
				func(ctx context.Context, _ *mcp.CallToolRequest, args artifactGetArgs) (*mcp.CallToolResult, runtime.ArtifactGetResponse, error) {
					resp, err := rt.ArtifactGet(ctx, runtime.ArtifactGetRequest{SessionID: args.SessionID, ArtifactID: args.ArtifactID})
					return result(name, resp, err)
				})
		}},
		{runtime.ToolTraceList, func(s *mcp.Server, name string) {
			mcp.AddTool(s, &mcp.Tool{Name: name, Description: "List a session's append-only trace log, paginated."},
				func(ctx context.Context, _ *mcp.CallToolRequest, args traceListArgs) (*mcp.CallToolResult, runtime.TraceListResponse, error) {
					resp, err := rt.TraceList(ctx, runtime.TraceListRequest{
						SessionID: args.SessionID,
						Page:      metastore.Page{Offset: args.Offset, Limit: args.Limit},
					})
					return result(name, resp, err)
				})
		}},
	}
}
