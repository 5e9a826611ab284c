// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package indexpersist implements C5: the atomic on-disk snapshot of a
// session's BM25 index plus its fingerprint metadata, and the staleness
// check that forces a rebuild when a session's document set has moved on.
//
// Storage layout per session, under the server's data_dir:
//
//	indexes/<session id>/index     (gob-encoded lexindex.Payload)
//	indexes/<session id>/metadata  (gob-encoded Metadata)
//
// Both files are written with github.com/natefinch/atomic, which performs
// the write-temp-then-rename dance §4.5 requires: a crash mid-write leaves
// either the previous file or nothing, never a half-written one.
package indexpersist

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/natefinch/atomic"

	"github.com/aleutian-labs/rlmstore/internal/lexindex"
)

// CurrentIndexVersion is bumped whenever the wire format of Metadata or
// lexindex.Payload changes incompatibly. A snapshot whose IndexVersion
// does not match is treated as stale (§9: "refuse to load snapshots of
// other versions").
const CurrentIndexVersion = 1

// Metadata is the fingerprint record persisted alongside the index body.
type Metadata struct {
	IndexVersion   int
	CreatedAt      time.Time
	DocCount       int
	Tokenizer      string
	DocFingerprint string
}

// DocFingerprint hashes contentHashesInIDOrder, the session's documents'
// content hashes in ascending document-id order, with SHA-256, writing a
// NUL byte after each hash. The hashes must already be sorted by ascending
// document id by the caller (the metadata store's
// get_document_fingerprints contract, §4.2).
func DocFingerprint(contentHashesInIDOrder []string) string {
	h := sha256.New()
	for _, ch := range contentHashesInIDOrder {
		h.Write([]byte(ch))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Store persists index snapshots under root, one subdirectory per session.
type Store struct {
	root string
}

func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("indexpersist: create root: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) dir(sessionID string) string {
	return filepath.Join(s.root, sessionID)
}

func (s *Store) indexPath(sessionID string) string    { return filepath.Join(s.dir(sessionID), "index") }
func (s *Store) metadataPath(sessionID string) string { return filepath.Join(s.dir(sessionID), "metadata") }

// Write performs the atomic snapshot write protocol: both files are
// written via temp-then-rename, so a reader never observes a half-written
// index (§4.5). There is no ordering requirement between the two renames
// from a correctness standpoint — Read treats either file being
// missing/corrupt as "no snapshot" — but the index body is renamed first
// so that a reader who only checks for the metadata file never finds a
// metadata record without a matching body.
func (s *Store) Write(sessionID string, payload lexindex.Payload, meta Metadata) error {
	dir := s.dir(sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("indexpersist: mkdir %s: %w", dir, err)
	}

	meta.IndexVersion = CurrentIndexVersion

	var indexBuf bytes.Buffer
	if err := gob.NewEncoder(&indexBuf).Encode(payload); err != nil {
		return fmt.Errorf("indexpersist: encode index body: %w", err)
	}
	var metaBuf bytes.Buffer
	if err := gob.NewEncoder(&metaBuf).Encode(meta); err != nil {
		return fmt.Errorf("indexpersist: encode metadata: %w", err)
	}

	if err := atomic.WriteFile(s.indexPath(sessionID), &indexBuf); err != nil {
		return fmt.Errorf("indexpersist: write index body: %w", err)
	}
	if err := atomic.WriteFile(s.metadataPath(sessionID), &metaBuf); err != nil {
		return fmt.Errorf("indexpersist: write metadata: %w", err)
	}
	return nil
}

// Read loads a previously written snapshot. Per §4.5's read protocol: if
// either file is absent, unreadable, or fails deserialization, the
// persisted index is treated as nonexistent (ok=false, err=nil) and any
// residue is deleted — callers never see a partially decoded snapshot.
func (s *Store) Read(sessionID string) (payload lexindex.Payload, meta Metadata, ok bool, err error) {
	metaBytes, metaErr := os.ReadFile(s.metadataPath(sessionID))
	indexBytes, indexErr := os.ReadFile(s.indexPath(sessionID))
	if metaErr != nil || indexErr != nil {
		s.Invalidate(sessionID)
		return lexindex.Payload{}, Metadata{}, false, nil
	}

	if decErr := gob.NewDecoder(bytes.NewReader(metaBytes)).Decode(&meta); decErr != nil {
		s.Invalidate(sessionID)
		return lexindex.Payload{}, Metadata{}, false, nil
	}
	if decErr := gob.NewDecoder(bytes.NewReader(indexBytes)).Decode(&payload); decErr != nil {
		s.Invalidate(sessionID)
		return lexindex.Payload{}, Metadata{}, false, nil
	}
	if meta.IndexVersion != CurrentIndexVersion {
		s.Invalidate(sessionID)
		return lexindex.Payload{}, Metadata{}, false, nil
	}
	return payload, meta, true, nil
}

// Invalidate removes any on-disk snapshot for sessionID. Safe to call when
// no snapshot exists.
func (s *Store) Invalidate(sessionID string) error {
	if err := os.Remove(s.indexPath(sessionID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("indexpersist: remove index body: %w", err)
	}
	if err := os.Remove(s.metadataPath(sessionID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("indexpersist: remove metadata: %w", err)
	}
	return nil
}

// Fresh reports whether meta is still valid against the session's current
// state, per §4.5's staleness definition: doc_count, doc_fingerprint, and
// tokenizer must all match.
func Fresh(meta Metadata, currentDocCount int, currentFingerprint, currentTokenizer string) bool {
	return meta.DocCount == currentDocCount &&
		meta.DocFingerprint == currentFingerprint &&
		meta.Tokenizer == currentTokenizer
}

// SortFingerprintInputs is a small helper for callers assembling the
// (id, content_hash) pairs from a store that does not guarantee id order;
// it sorts by id ascending and returns just the hashes, ready for
// DocFingerprint.
func SortFingerprintInputs(ids []string, hashes []string) []string {
	type pair struct {
		id, hash string
	}
	pairs := make([]pair, len(ids))
	for i := range ids {
		pairs[i] = pair{ids[i], hashes[i]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].id < pairs[j].id })
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.hash
	}
	return out
}
