// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package metastore

import (
	"context"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/aleutian-labs/rlmstore/internal/rlmerrors"
)

// CreateArtifact persists a single artifact (artifact.store, §6).
func (s *Store) CreateArtifact(ctx context.Context, art Artifact) error {
	if art.CreatedAt.IsZero() {
		art.CreatedAt = time.Now().UTC()
	}
	enc, err := gobEncode(art)
	if err != nil {
		return err
	}
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := txn.Set(artifactKey(art.SessionID, art.ID), enc); err != nil {
			return err
		}
		return txn.Set(artifactBySessionKey(art.SessionID, art.ID), []byte(art.ID))
	})
}

// GetArtifact loads a single artifact.
func (s *Store) GetArtifact(ctx context.Context, sessionID, artifactID string) (Artifact, error) {
	var art Artifact
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, getErr := txn.Get(artifactKey(sessionID, artifactID))
		if getErr == badger.ErrKeyNotFound {
			return rlmerrors.NotFound(rlmerrors.ArtifactNotFound, sessionID, artifactID, nil)
		}
		if getErr != nil {
			return getErr
		}
		return item.Value(func(v []byte) error { return gobDecode(v, &art) })
	})
	if err != nil {
		return Artifact{}, err
	}
	return art, nil
}

// ListArtifacts returns every artifact in sessionID matching filter (empty
// fields match anything), ordered by ProducedAt ascending then ID.
func (s *Store) ListArtifacts(ctx context.Context, sessionID string, filter ArtifactFilter) ([]Artifact, error) {
	var arts []Artifact
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		prefix := artifactBySessionPrefix(sessionID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var artID string
			if err := it.Item().Value(func(v []byte) error { artID = string(v); return nil }); err != nil {
				return err
			}
			item, getErr := txn.Get(artifactKey(sessionID, artID))
			if getErr != nil {
				return getErr
			}
			var art Artifact
			if err := item.Value(func(v []byte) error { return gobDecode(v, &art) }); err != nil {
				return err
			}
			if filter.SpanID != "" && art.SpanID != filter.SpanID {
				continue
			}
			if filter.Type != "" && art.Type != filter.Type {
				continue
			}
			arts = append(arts, art)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(arts, func(i, j int) bool {
		if arts[i].ProducedAt.Equal(arts[j].ProducedAt) {
			return arts[i].ID < arts[j].ID
		}
		return arts[i].ProducedAt.Before(arts[j].ProducedAt)
	})
	return arts, nil
}
