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
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// CurrentSchemaVersion is bumped whenever the on-disk key/value encoding
// changes incompatibly. migrate brings an older store forward one version
// at a time; it never runs a migration backwards and never skips a step.
const CurrentSchemaVersion = 1

func (s *Store) migrate(ctx context.Context) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		current, err := readSchemaVersion(txn)
		if err != nil {
			return err
		}
		if current > CurrentSchemaVersion {
			return fmt.Errorf("metastore: on-disk schema version %d is newer than supported version %d", current, CurrentSchemaVersion)
		}

		for current < CurrentSchemaVersion {
			if err := applyMigration(txn, current); err != nil {
				return fmt.Errorf("metastore: migration %d->%d: %w", current, current+1, err)
			}
			current++
		}

		return writeSchemaVersion(txn, current)
	})
}

// applyMigration runs the single step that brings the store from version
// `from` to `from+1`. There is only the implicit bootstrap step today
// (empty store -> version 1); real migrations get a `case` here.
func applyMigration(txn *badger.Txn, from int) error {
	switch from {
	case 0:
		return nil
	default:
		return fmt.Errorf("no migration defined for version %d", from)
	}
}

func readSchemaVersion(txn *badger.Txn) (int, error) {
	item, err := txn.Get([]byte(schemaVersionKey))
	if err == badger.ErrKeyNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var version int
	err = item.Value(func(v []byte) error {
		if len(v) == 8 {
			version = int(binary.BigEndian.Uint64(v))
		}
		return nil
	})
	return version, err
}

func writeSchemaVersion(txn *badger.Txn, version int) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(version))
	return txn.Set([]byte(schemaVersionKey), buf)
}
