// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package runtime implements the session runtime (C6): the outer protocol
// every tool call goes through (authenticate, charge, lock, dispatch, cap,
// trace), the per-session lock map, the three-tier index cache, and the
// bounded concurrent document loader. It composes internal/blobstore,
// internal/metastore, internal/chunking, internal/lexindex, and
// internal/indexpersist; nothing above this package talks to those
// directly.
package runtime

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aleutian-labs/rlmstore/internal/blobstore"
	"github.com/aleutian-labs/rlmstore/internal/config"
	"github.com/aleutian-labs/rlmstore/internal/indexpersist"
	"github.com/aleutian-labs/rlmstore/internal/lexindex"
	"github.com/aleutian-labs/rlmstore/internal/metastore"
)

// Canonical tool names (§6, §9: "keep the canonical names as data, separate
// from the handler type"). Every handler is registered under exactly one
// of these; the transport layer must present them verbatim.
const (
	ToolSessionCreate = "session.create"
	ToolSessionInfo   = "session.info"
	ToolSessionClose  = "session.close"

	ToolDocsLoad = "docs.load"
	ToolDocsList = "docs.list"
	ToolDocsPeek = "docs.peek"

	ToolChunkCreate = "chunk.create"
	ToolSpanGet     = "span.get"

	ToolSearchQuery = "search.query"

	ToolArtifactStore = "artifact.store"
	ToolArtifactList  = "artifact.list"
	ToolArtifactGet   = "artifact.get"

	// ToolTraceList is a supplemented operation (not in the original tool
	// table) exposing the append-only trace log for inspection/export.
	ToolTraceList = "trace.list"
)

// Runtime is the constructed handle a transport drives. There is no
// process-global singleton (§9): every dependency is injected here.
type Runtime struct {
	cfg config.Server

	blobs     *blobstore.Store
	meta      *metastore.Store
	idxstore  *indexpersist.Store
	cache     *indexCache
	locks     *lockManager
	tokenizer lexindex.Tokenizer
	loaderSem int
	log       *slog.Logger
}

// New constructs a Runtime rooted at cfg.DataDir, opening (and migrating,
// for the metadata store) its three on-disk subtrees.
func New(cfg config.Server, log *slog.Logger) (*Runtime, error) {
	if log == nil {
		log = slog.Default()
	}

	blobs, err := blobstore.Open(filepath.Join(cfg.DataDir, "blobs"))
	if err != nil {
		return nil, fmt.Errorf("runtime: open blob store: %w", err)
	}
	meta, err := metastore.Open(filepath.Join(cfg.DataDir, "metadata"))
	if err != nil {
		return nil, fmt.Errorf("runtime: open metadata store: %w", err)
	}
	idxstore, err := indexpersist.Open(filepath.Join(cfg.DataDir, "indexes"))
	if err != nil {
		return nil, fmt.Errorf("runtime: open index persistence: %w", err)
	}
	cache, err := newIndexCache(defaultIndexCacheSize)
	if err != nil {
		return nil, fmt.Errorf("runtime: build index cache: %w", err)
	}

	tokenizer, err := resolveTokenizer(cfg.Tokenizer)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		cfg:       cfg,
		blobs:     blobs,
		meta:      meta,
		idxstore:  idxstore,
		cache:     cache,
		locks:     newLockManager(),
		tokenizer: tokenizer,
		loaderSem: cfg.MaxConcurrentLoads,
		log:       log,
	}, nil
}

// Close releases the runtime's durable stores. It does not touch
// in-flight requests; callers must drain those first.
func (r *Runtime) Close() error {
	return r.meta.Close()
}

// resolveTokenizer maps a configured tokenizer name to an implementation.
// Per §4.4/§9, the name is part of the index's identity, so adding a new
// tokenizer means adding a new name here, never silently changing the
// behavior behind an existing one.
func resolveTokenizer(name string) (lexindex.Tokenizer, error) {
	switch name {
	case "", lexindex.DefaultTokenizerName:
		return lexindex.DefaultTokenizer{}, nil
	default:
		return nil, fmt.Errorf("runtime: unknown tokenizer %q", name)
	}
}
