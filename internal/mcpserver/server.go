// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package mcpserver is the only piece of this repo that talks to the
// outside world (§1's "the transport that delivers tool calls ... is
// specified only by the interface it presents to the core"). It adapts
// the runtime's Go method surface to a JSON-RPC-style stdio transport
// using github.com/modelcontextprotocol/go-sdk, the same dependency the
// teacher already carries as a transitive require.
//
// Every tool is registered under its canonical dotted name (§6) verbatim.
// If the transport cannot accept a name in that shape, registration falls
// back to a sanitized name when the server config allows it, or the
// server refuses to start (§7's ToolNamingFailure).
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aleutian-labs/rlmstore/internal/config"
	"github.com/aleutian-labs/rlmstore/internal/metastore"
	"github.com/aleutian-labs/rlmstore/internal/rlmerrors"
	"github.com/aleutian-labs/rlmstore/internal/runtime"
)

// canonicalToolName matches the transport's registration constraint for a
// tool name. Dotted names (session.create) are legal MCP tool names under
// the spec's own wire format, but are kept behind this pattern so the
// allow_noncanonical_tool_names fallback (§6, §7) has somewhere real to
// bite if a future transport tightens the rule.
var canonicalToolName = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,128}$`)

// Server wraps an mcp.Server bound to one runtime.Runtime.
type Server struct {
	mcp *mcp.Server
	log *slog.Logger
}

// New builds the stdio tool surface for rt. It fails closed with a
// ToolNamingFailure if any canonical name cannot be registered verbatim
// and cfg.AllowNoncanonicalToolNames is false.
func New(rt *runtime.Runtime, cfg config.Server, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}

	impl := &mcp.Implementation{Name: "rlmstore", Version: "0.1.0"}
	s := mcp.NewServer(impl, nil)
	srv := &Server{mcp: s, log: log}

	fellBack := false
	for _, reg := range toolRegistrations(rt) {
		name := reg.name
		if !canonicalToolName.MatchString(name) {
			if !cfg.AllowNoncanonicalToolNames {
				return nil, rlmerrors.New(rlmerrors.ToolNamingFailure,
					fmt.Sprintf("transport cannot register canonical tool name %q and allow_noncanonical_tool_names is false", name))
			}
			name = sanitizeToolName(name)
			fellBack = true
		}
		reg.register(s, name)
	}
	if fellBack {
		log.Warn("one or more tool names required sanitizing; callers relying on canonical dotted names will not find them")
	}

	return srv, nil
}

// sanitizeToolName is the allow_noncanonical_tool_names fallback (§6):
// dots become underscores, the only transformation needed to satisfy a
// hypothetical stricter transport.
func sanitizeToolName(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}

// Run blocks serving tool calls over stdio until ctx is canceled or the
// client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// toolRegistration pairs a canonical tool name with the closure that binds
// it to the mcp.Server under a (possibly sanitized) final name.
type toolRegistration struct {
	name     string
	register func(s *mcp.Server, finalName string)
}

// result turns a runtime response or error into the typed MCP result
// shape. Errors never cross as transport-level failures: every rlmerrors
// kind becomes a structured, non-crashing tool result with isError=true
// (§7: "never crash the process").
func result[T any](finalName string, value T, err error) (*mcp.CallToolResult, T, error) {
	if err != nil {
		msg := err.Error()
		kind := "Internal"
		if k, ok := rlmerrors.KindOf(err); ok {
			kind = string(k)
		}
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%s: %s", kind, msg)}},
		}, value, nil
	}
	encoded, marshalErr := json.Marshal(value)
	if marshalErr != nil {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Internal: failed to encode %s result: %v", finalName, marshalErr)}},
		}, value, nil
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(encoded)}}}, value, nil
}

// metastoreSourceKind maps the wire-level string to the internal enum.
// Every kind other than "inline" maps to "file": expandSources (§4.6)
// resolves a file source's path as a file, a directory or a glob pattern,
// and reports a per-source load error when nothing exists or matches.
func metastoreSourceKind(kind string) metastore.SourceKind {
	switch kind {
	case "inline":
		return metastore.SourceInline
	default:
		return metastore.SourceFile
	}
}
