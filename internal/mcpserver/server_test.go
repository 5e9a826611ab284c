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
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aleutian-labs/rlmstore/internal/metastore"
	"github.com/aleutian-labs/rlmstore/internal/rlmerrors"
)

func TestCanonicalToolNameAcceptsDottedNames(t *testing.T) {
	for _, name := range []string{"session.create", "docs.load", "search.query", "trace.list"} {
		if !canonicalToolName.MatchString(name) {
			t.Errorf("expected %q to match canonical tool name pattern", name)
		}
	}
}

func TestCanonicalToolNameRejectsEmpty(t *testing.T) {
	if canonicalToolName.MatchString("") {
		t.Fatal("empty tool name must not be considered canonical")
	}
}

func TestSanitizeToolNameReplacesDots(t *testing.T) {
	got := sanitizeToolName("session.create")
	want := "session_create"
	if got != want {
		t.Fatalf("sanitizeToolName(%q) = %q, want %q", "session.create", got, want)
	}
}

func TestResultMapsErrorKindIntoTextContent(t *testing.T) {
	err := rlmerrors.New(rlmerrors.SessionNotFound, "no such session").WithSession("sess-1")
	res, _, callErr := result("session.info", struct{}{}, err)
	if callErr != nil {
		t.Fatalf("result should never surface a transport-level error, got %v", callErr)
	}
	if !res.IsError {
		t.Fatal("expected IsError to be set for a runtime error")
	}
	if len(res.Content) != 1 {
		t.Fatalf("expected exactly one content item, got %d", len(res.Content))
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok || !strings.HasPrefix(text.Text, "SessionNotFound: ") {
		t.Fatalf("expected text content prefixed with the error kind, got %#v", res.Content[0])
	}
}

func TestResultEncodesSuccessValueAsJSON(t *testing.T) {
	res, val, err := result("session.info", 42, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatal("did not expect IsError for a successful result")
	}
	if val != 42 {
		t.Fatalf("expected the original value to pass through unchanged, got %v", val)
	}
	if len(res.Content) != 1 {
		t.Fatalf("expected exactly one content item, got %d", len(res.Content))
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok || text.Text != "42" {
		t.Fatalf("expected JSON text content %q, got %#v", "42", res.Content[0])
	}
}

func TestMetastoreSourceKindDefaultsToFile(t *testing.T) {
	if got := metastoreSourceKind("inline"); got != metastore.SourceInline {
		t.Fatalf("expected inline to map to SourceInline, got %v", got)
	}
	if got := metastoreSourceKind("file"); got != metastore.SourceFile {
		t.Fatalf("expected file to map to SourceFile, got %v", got)
	}
	if got := metastoreSourceKind("glob"); got != metastore.SourceFile {
		t.Fatalf("expected unknown kind to default to SourceFile, got %v", got)
	}
}
