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
	"bytes"
	"context"
	"regexp"
	"time"

	"github.com/aleutian-labs/rlmstore/internal/lexindex"
	"github.com/aleutian-labs/rlmstore/internal/metrics"
	"github.com/aleutian-labs/rlmstore/internal/rlmerrors"
)

// SearchQuery dispatches to one of the three search methods (§4.4). Only
// the bm25 path touches the index cache and therefore needs the session
// lock; regex and literal scan document content directly and need none.
func (r *Runtime) SearchQuery(ctx context.Context, req SearchQueryRequest) (SearchQueryResponse, error) {
	start := time.Now()
	correlationID := newCorrelationID()

	if _, err := r.meta.GetSession(ctx, req.SessionID); err != nil {
		r.emitTrace(ctx, req.SessionID, ToolSearchQuery, start, nil, nil, false, correlationID)
		return SearchQueryResponse{}, err
	}
	if err := r.charge(ctx, req.SessionID, ToolSearchQuery); err != nil {
		r.emitTrace(ctx, req.SessionID, ToolSearchQuery, start, nil, nil, false, correlationID)
		return SearchQueryResponse{}, err
	}

	var resp SearchQueryResponse
	var err error
	switch req.Method {
	case SearchBM25, "":
		resp, err = r.searchBM25(ctx, req)
	case SearchRegex:
		resp, err = r.searchPattern(ctx, req, true)
	case SearchLiteral:
		resp, err = r.searchPattern(ctx, req, false)
	default:
		err = rlmerrors.New(rlmerrors.InvalidArgument, "unknown search method").WithSession(req.SessionID)
	}
	if err != nil {
		r.emitTrace(ctx, req.SessionID, ToolSearchQuery, start, nil, nil, false, correlationID)
		return SearchQueryResponse{}, err
	}

	r.emitTrace(ctx, req.SessionID, ToolSearchQuery, start,
		summarizeKeys(map[string]any{"method": req.Method}),
		summarizeKeys(map[string]any{"matches": len(resp.Matches)}),
		true, correlationID)
	return resp, nil
}

func (r *Runtime) searchBM25(ctx context.Context, req SearchQueryRequest) (SearchQueryResponse, error) {
	lock, err := r.locks.acquire(ctx, req.SessionID)
	if err != nil {
		return SearchQueryResponse{}, err
	}
	defer r.locks.release(lock)

	idx, _, err := r.getOrBuildIndex(ctx, req.SessionID)
	if err != nil {
		return SearchQueryResponse{}, err
	}

	docContent := func(docID string) []byte {
		doc, err := r.meta.GetDocument(ctx, req.SessionID, docID)
		if err != nil {
			return nil
		}
		content, err := r.blobs.Get(doc.ContentHash)
		if err != nil {
			return nil
		}
		return content
	}

	queryTerms := lexindex.QueryTermSet(r.tokenizer, req.Query)
	lexMatches := idx.Query(req.Query, lexindex.QueryOptions{
		Limit:       req.Limit,
		ContextSize: req.ContextSize,
		DocFilter:   req.DocFilter,
	}, docContent)

	matches := make([]SearchMatch, 0, len(lexMatches))
	for _, m := range lexMatches {
		content := docContent(m.DocID)
		var snippet []byte
		if content != nil && m.ContentTo <= len(content) && m.ContentFrom <= m.ContentTo {
			snippet = content[m.ContentFrom:m.ContentTo]
		}
		var highlights []HighlightResult
		for _, h := range lexindex.Highlights(snippet, r.tokenizer, queryTerms) {
			highlights = append(highlights, HighlightResult{Start: h.Start, End: h.End, Terms: h.Terms})
		}
		matches = append(matches, SearchMatch{
			DocumentID: m.DocID,
			Score:      m.Score,
			SpanStart:  m.ContentFrom,
			SpanEnd:    m.ContentTo,
			Context:    snippet,
			Highlights: highlights,
		})
	}
	return SearchQueryResponse{Matches: matches}, nil
}

// searchPattern implements the non-index regex/literal search methods:
// scan each in-scope document's content directly, with no reliance on the
// BM25 index (§4.4: these methods "bypass the index entirely").
func (r *Runtime) searchPattern(ctx context.Context, req SearchQueryRequest, isRegex bool) (SearchQueryResponse, error) {
	var re *regexp.Regexp
	if isRegex {
		compiled, err := regexp.Compile(req.Query)
		if err != nil {
			return SearchQueryResponse{}, rlmerrors.Wrap(rlmerrors.InvalidArgument, "invalid regex pattern", err).WithSession(req.SessionID)
		}
		re = compiled
	}

	docs, err := r.meta.ListDocuments(ctx, req.SessionID)
	if err != nil {
		return SearchQueryResponse{}, err
	}
	filter := toSet(req.DocFilter)

	var matches []SearchMatch
	for _, doc := range docs {
		if filter != nil && !filter[doc.ID] {
			continue
		}
		content, err := r.blobs.Get(doc.ContentHash)
		if err != nil {
			r.log.Warn("skipping unreachable document during pattern search",
				"session_id", req.SessionID, "document_id", doc.ID, "error", err)
			continue
		}

		var hits [][2]int
		if isRegex {
			for _, loc := range re.FindAllIndex(content, -1) {
				hits = append(hits, [2]int{loc[0], loc[1]})
			}
		} else {
			pat := []byte(req.Query)
			for i := 0; i+len(pat) <= len(content); {
				idx := bytes.Index(content[i:], pat)
				if idx < 0 {
					break
				}
				hits = append(hits, [2]int{i + idx, i + idx + len(pat)})
				i = i + idx + len(pat)
			}
		}

		for _, h := range hits {
			from, to := lexindex.ContextWindow(len(content), h[0], h[1], req.ContextSize)
			matches = append(matches, SearchMatch{
				DocumentID: doc.ID,
				Score:      0,
				SpanStart:  from,
				SpanEnd:    to,
				Context:    content[from:to],
			})
			if req.Limit > 0 && len(matches) >= req.Limit {
				metrics.ResponseTruncatedTotal.WithLabelValues(ToolSearchQuery).Inc()
				return SearchQueryResponse{Matches: matches, Truncated: true}, nil
			}
		}
	}
	return SearchQueryResponse{Matches: matches}, nil
}

func toSet(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
