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

	badger "github.com/dgraph-io/badger/v4"

	"github.com/aleutian-labs/rlmstore/internal/rlmerrors"
)

// TryIncrementToolCalls is the budget's single atomic statement
// (§4.2/§8.4): it reads tool_calls_used, and if used < max_tool_calls,
// increments and commits in the same BadgerDB transaction, so two
// concurrent callers can never both observe and consume the final slot.
// It returns the used count after the attempt and whether the call was
// admitted.
func (s *Store) TryIncrementToolCalls(ctx context.Context, sessionID string) (usedAfter int, admitted bool, err error) {
	txnErr := s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		item, getErr := txn.Get(sessionKey(sessionID))
		if getErr == badger.ErrKeyNotFound {
			return rlmerrors.NotFound(rlmerrors.SessionNotFound, sessionID, sessionID, nil)
		}
		if getErr != nil {
			return getErr
		}
		var sess Session
		if valErr := item.Value(func(v []byte) error { return gobDecode(v, &sess) }); valErr != nil {
			return valErr
		}
		if sess.Status != SessionActive {
			return rlmerrors.New(rlmerrors.SessionClosed, "session is not active").WithSession(sessionID)
		}

		usedAfter = sess.ToolCallsUsed
		if sess.Config.MaxToolCalls > 0 && sess.ToolCallsUsed >= sess.Config.MaxToolCalls {
			admitted = false
			return nil
		}

		sess.ToolCallsUsed++
		usedAfter = sess.ToolCallsUsed
		admitted = true
		enc, encErr := gobEncode(sess)
		if encErr != nil {
			return encErr
		}
		return txn.Set(sessionKey(sessionID), enc)
	})
	if txnErr != nil {
		return 0, false, txnErr
	}
	return usedAfter, admitted, nil
}
