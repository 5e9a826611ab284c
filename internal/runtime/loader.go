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
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/aleutian-labs/rlmstore/internal/metastore"
)

// concreteLoad is one file-system or inline source resolved to a single
// unit of work for the bounded concurrent loader.
type concreteLoad struct {
	specLabel string
	path      string // "" for inline
	inline    []byte
	isInline  bool
}

// expandSources turns the request's source specs into concrete loads,
// expanding directories and globs and rejecting oversized files up front
// (§4.6's loader: "rejecting any path whose size exceeds max_file_size_mb").
func expandSources(specs []SourceSpec, maxFileSizeBytes int64) ([]concreteLoad, []LoadError) {
	var loads []concreteLoad
	var errs []LoadError

	for _, spec := range specs {
		switch spec.Kind {
		case metastore.SourceInline:
			loads = append(loads, concreteLoad{specLabel: "inline", inline: []byte(spec.Inline), isInline: true})
		case metastore.SourceFile:
			paths, expandErr := expandPath(spec.Path)
			if expandErr != nil {
				errs = append(errs, LoadError{Spec: spec.Path, Message: expandErr.Error()})
				continue
			}
			for _, p := range paths {
				info, statErr := os.Stat(p)
				if statErr != nil {
					errs = append(errs, LoadError{Spec: p, Message: fmt.Sprintf("file not found: %v", statErr)})
					continue
				}
				if info.Size() > maxFileSizeBytes {
					errs = append(errs, LoadError{Spec: p, Message: fmt.Sprintf("file exceeds max_file_size_mb (%d bytes)", info.Size())})
					continue
				}
				loads = append(loads, concreteLoad{specLabel: p, path: p})
			}
		default:
			errs = append(errs, LoadError{Spec: string(spec.Kind), Message: "invalid source kind"})
		}
	}
	return loads, errs
}

// expandPath resolves a single file/directory/glob spec into concrete file
// paths. Directories are expanded non-recursively; glob patterns use
// filepath.Glob.
func expandPath(path string) ([]string, error) {
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			entries, readErr := os.ReadDir(path)
			if readErr != nil {
				return nil, readErr
			}
			var out []string
			for _, e := range entries {
				if !e.IsDir() {
					out = append(out, filepath.Join(path, e.Name()))
				}
			}
			return out, nil
		}
		return []string{path}, nil
	}

	matches, err := filepath.Glob(path)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", path, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files matched and path does not exist: %s", path)
	}
	return matches, nil
}

// loadOne resolves one concrete load to bytes, reading from disk for file
// sources.
func loadOne(c concreteLoad) ([]byte, error) {
	if c.isInline {
		return c.inline, nil
	}
	return os.ReadFile(c.path)
}

// DocsLoad is the bounded concurrent loader (§4.6). It must run under the
// session lock because a successful commit invalidates the index caches,
// whose visibility must be consistent with the newly committed documents.
func (r *Runtime) DocsLoad(ctx context.Context, req DocsLoadRequest) (DocsLoadResponse, error) {
	start := time.Now()
	correlationID := newCorrelationID()

	if err := r.charge(ctx, req.SessionID, ToolDocsLoad); err != nil {
		r.emitTrace(ctx, req.SessionID, ToolDocsLoad, start, nil, nil, false, correlationID)
		return DocsLoadResponse{}, err
	}

	lock, err := r.locks.acquire(ctx, req.SessionID)
	if err != nil {
		r.emitTrace(ctx, req.SessionID, ToolDocsLoad, start, nil, nil, false, correlationID)
		return DocsLoadResponse{}, err
	}
	defer r.locks.release(lock)

	maxBytes := r.cfg.MaxFileSizeBytes()
	loads, expandErrs := expandSources(req.Sources, maxBytes)

	type loadResult struct {
		doc LoadedDoc
		err *LoadError
	}

	results := make([]loadResult, len(loads))
	sem := semaphore.NewWeighted(int64(maxPositive(r.cfg.MaxConcurrentLoads, 1)))
	var wg sync.WaitGroup

	for i, c := range loads {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = loadResult{err: &LoadError{Spec: c.specLabel, Message: err.Error()}}
			continue
		}
		wg.Add(1)
		go func(i int, c concreteLoad) {
			defer wg.Done()
			defer sem.Release(1)

			content, readErr := loadOne(c)
			if readErr != nil {
				results[i] = loadResult{err: &LoadError{Spec: c.specLabel, Message: fmt.Sprintf("decode error: %v", readErr)}}
				return
			}
			hash, putErr := r.blobs.Put(content)
			if putErr != nil {
				results[i] = loadResult{err: &LoadError{Spec: c.specLabel, Message: fmt.Sprintf("blob store write failed: %v", putErr)}}
				return
			}
			results[i] = loadResult{doc: LoadedDoc{
				DocumentID:    uuid.NewString(),
				ContentHash:   hash,
				LengthChars:   len(content),
				TokenEstimate: estimateTokens(content),
			}}
		}(i, c)
	}
	wg.Wait()

	resp := DocsLoadResponse{}
	for _, e := range expandErrs {
		resp.Errors = append(resp.Errors, e)
	}

	var toCommit []metastore.Document
	for _, res := range results {
		if res.err != nil {
			resp.Errors = append(resp.Errors, *res.err)
			continue
		}
		resp.Loaded = append(resp.Loaded, res.doc)
		toCommit = append(toCommit, metastore.Document{
			ID:          res.doc.DocumentID,
			SessionID:   req.SessionID,
			ContentHash: res.doc.ContentHash,
			LengthChars: res.doc.LengthChars,
		})
	}

	if len(toCommit) > 0 {
		if err := r.meta.CreateDocumentsBatch(ctx, toCommit); err != nil {
			r.emitTrace(ctx, req.SessionID, ToolDocsLoad, start, nil, nil, false, correlationID)
			return DocsLoadResponse{}, err
		}
		// The cache invalidation must be visible before this call returns
		// (§5's ordering guarantee: a successful docs.load happens-before
		// the next search's rebuild decision).
		r.invalidateIndex(req.SessionID)
	}

	r.emitTrace(ctx, req.SessionID, ToolDocsLoad, start,
		summarizeKeys(map[string]any{"sources": len(req.Sources)}),
		summarizeKeys(map[string]any{"loaded": len(resp.Loaded), "errors": len(resp.Errors)}),
		true, correlationID)
	return resp, nil
}

// estimateTokens is a rough whitespace-based token count, advisory only
// (§6: docs.load's result reports "token estimate").
func estimateTokens(content []byte) int {
	count := 0
	inToken := false
	for _, b := range content {
		isSpace := b == ' ' || b == '\n' || b == '\t' || b == '\r'
		if isSpace {
			inToken = false
			continue
		}
		if !inToken {
			count++
			inToken = true
		}
	}
	return count
}

func maxPositive(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
