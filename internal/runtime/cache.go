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
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aleutian-labs/rlmstore/internal/lexindex"
)

// defaultIndexCacheSize bounds how many sessions' BM25 indexes are held in
// memory at once; evicted sessions fall back to the on-disk tier (C5) or a
// full rebuild, never to data loss, since the index is always reproducible
// from the documents in C2/C1.
const defaultIndexCacheSize = 256

// indexCache is the in-memory tier of the three-tier index cache (§4.6).
type indexCache struct {
	lru *lru.Cache[string, *lexindex.Index]
}

func newIndexCache(size int) (*indexCache, error) {
	if size <= 0 {
		size = defaultIndexCacheSize
	}
	c, err := lru.New[string, *lexindex.Index](size)
	if err != nil {
		return nil, err
	}
	return &indexCache{lru: c}, nil
}

func (c *indexCache) get(sessionID string) (*lexindex.Index, bool) {
	return c.lru.Get(sessionID)
}

func (c *indexCache) put(sessionID string, idx *lexindex.Index) {
	c.lru.Add(sessionID, idx)
}

func (c *indexCache) invalidate(sessionID string) {
	c.lru.Remove(sessionID)
}
