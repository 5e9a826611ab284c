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
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/aleutian-labs/rlmstore/internal/rlmerrors"
)

// CreateSession persists a brand-new, active session. Callers assign ID
// before calling (the runtime generates it, typically a uuid).
func (s *Store) CreateSession(ctx context.Context, sess Session) error {
	sess.Status = SessionActive
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	enc, err := gobEncode(sess)
	if err != nil {
		return err
	}
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(sessionKey(sess.ID), enc)
	})
}

// GetSession loads a session by id.
func (s *Store) GetSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, getErr := txn.Get(sessionKey(id))
		if getErr == badger.ErrKeyNotFound {
			return rlmerrors.NotFound(rlmerrors.SessionNotFound, id, id, nil)
		}
		if getErr != nil {
			return getErr
		}
		return item.Value(func(v []byte) error { return gobDecode(v, &sess) })
	})
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// CloseSession transitions a session to completed, recording ClosedAt.
// Closing an already-closed session returns SessionAlreadyClosed (§7).
func (s *Store) CloseSession(ctx context.Context, id string) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		item, getErr := txn.Get(sessionKey(id))
		if getErr == badger.ErrKeyNotFound {
			return rlmerrors.NotFound(rlmerrors.SessionNotFound, id, id, nil)
		}
		if getErr != nil {
			return getErr
		}
		var sess Session
		if valErr := item.Value(func(v []byte) error { return gobDecode(v, &sess) }); valErr != nil {
			return valErr
		}
		if sess.Status == SessionCompleted {
			return rlmerrors.New(rlmerrors.SessionAlreadyClosed, "session already closed").WithSession(id)
		}
		sess.Status = SessionCompleted
		sess.ClosedAt = time.Now().UTC()
		enc, encErr := gobEncode(sess)
		if encErr != nil {
			return encErr
		}
		return txn.Set(sessionKey(id), enc)
	})
}

// RequireActive loads a session and returns SessionClosed if it is no
// longer active (§7: operations against a closed session are rejected).
func (s *Store) RequireActive(ctx context.Context, id string) (Session, error) {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if sess.Status != SessionActive {
		return Session{}, rlmerrors.New(rlmerrors.SessionClosed, "session is not active").WithSession(id)
	}
	return sess, nil
}
