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

// CreateDocumentsBatch inserts every document in docs in a single
// transaction: either all of them land or none do (§4.3's "partial
// batches never commit half-written"; the caller — docs.load in
// internal/runtime — is responsible for separating per-file load
// failures from this all-or-nothing metadata commit).
func (s *Store) CreateDocumentsBatch(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		for _, doc := range docs {
			if doc.CreatedAt.IsZero() {
				doc.CreatedAt = now
			}
			enc, err := gobEncode(doc)
			if err != nil {
				return err
			}
			if err := txn.Set(docKey(doc.SessionID, doc.ID), enc); err != nil {
				return err
			}
			if err := txn.Set(docBySessionKey(doc.SessionID, doc.ID), []byte(doc.ID)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetDocument loads a single document.
func (s *Store) GetDocument(ctx context.Context, sessionID, docID string) (Document, error) {
	var doc Document
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, getErr := txn.Get(docKey(sessionID, docID))
		if getErr == badger.ErrKeyNotFound {
			return rlmerrors.NotFound(rlmerrors.DocumentNotFound, sessionID, docID, nil)
		}
		if getErr != nil {
			return getErr
		}
		return item.Value(func(v []byte) error { return gobDecode(v, &doc) })
	})
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// ListDocuments returns every document belonging to sessionID, in
// ascending document-id order (the order get_document_fingerprints and
// the index's doc_fingerprint, §4.5, both depend on).
func (s *Store) ListDocuments(ctx context.Context, sessionID string) ([]Document, error) {
	var docs []Document
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		prefix := []byte(docPrefix + sessionID + "/")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var doc Document
			if err := it.Item().Value(func(v []byte) error { return gobDecode(v, &doc) }); err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// GetDocumentFingerprints returns (ids, content hashes) for every document
// in sessionID, sorted ascending by id — the exact shape
// indexpersist.DocFingerprint / SortFingerprintInputs expect.
func (s *Store) GetDocumentFingerprints(ctx context.Context, sessionID string) (ids []string, hashes []string, err error) {
	docs, err := s.ListDocuments(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	ids = make([]string, len(docs))
	hashes = make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
		hashes[i] = d.ContentHash
	}
	return ids, hashes, nil
}
