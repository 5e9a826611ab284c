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
	"encoding/binary"

	badger "github.com/dgraph-io/badger/v4"
)

// AppendTrace records a single append-only trace entry (§4.6). Tracing is
// best-effort from the runtime's point of view — the runtime logs and
// discards any error this returns rather than failing the operation the
// trace describes — but the append itself is atomic: the sequence number
// and the entry are assigned and written in the same transaction, so two
// concurrent traces for the same session never collide.
func (s *Store) AppendTrace(ctx context.Context, entry TraceEntry) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		seq := uint64(0)
		item, getErr := txn.Get(traceSeqKey(entry.SessionID))
		if getErr == nil {
			if valErr := item.Value(func(v []byte) error {
				if len(v) == 8 {
					seq = binary.BigEndian.Uint64(v)
				}
				return nil
			}); valErr != nil {
				return valErr
			}
		} else if getErr != badger.ErrKeyNotFound {
			return getErr
		}

		enc, err := gobEncode(entry)
		if err != nil {
			return err
		}
		if err := txn.Set(traceKey(entry.SessionID, seq), enc); err != nil {
			return err
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, seq+1)
		return txn.Set(traceSeqKey(entry.SessionID), buf)
	})
}

// ListTraces returns a page of trace entries for sessionID in the order
// they were appended.
func (s *Store) ListTraces(ctx context.Context, sessionID string, page Page) ([]TraceEntry, error) {
	var all []TraceEntry
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		prefix := tracePrefixFor(sessionID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var entry TraceEntry
			if err := it.Item().Value(func(v []byte) error { return gobDecode(v, &entry) }); err != nil {
				return err
			}
			all = append(all, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	offset := page.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := len(all)
	if page.Limit > 0 && offset+page.Limit < end {
		end = offset + page.Limit
	}
	return all[offset:end], nil
}
