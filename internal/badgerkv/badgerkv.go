// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badgerkv wraps a single BadgerDB instance with a small
// transaction helper, in the shape the teacher's agent/routing package
// expects of its storage/badger.DB (WithTxn / WithReadTxn taking a
// context and a closure over *badger.Txn). The teacher embeds this
// wrapper as service-global infrastructure; here it backs the metadata
// store (C2), which needs exactly one thing BadgerDB gives for free that
// a plain file format would not: a single atomic statement for the
// tool-call budget counter (§4.2's try_increment_tool_calls).
package badgerkv

import (
	"context"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// DB is an opened BadgerDB instance plus the transaction helpers the rest
// of the engine is built against.
type DB struct {
	bdb *badger.DB
}

// Open opens (creating if necessary) a BadgerDB rooted at dir.
func Open(dir string) (*DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerkv: open %s: %w", dir, err)
	}
	return &DB{bdb: bdb}, nil
}

func (db *DB) Close() error {
	if db == nil || db.bdb == nil {
		return nil
	}
	return db.bdb.Close()
}

// WithTxn runs fn inside a read-write transaction, retrying on BadgerDB's
// optimistic-concurrency conflict error. This is the store's atomic
// statement primitive: every write that must be linearizable (most
// pointedly try_increment_tool_calls, §4.2/§8.4) goes through WithTxn.
func (db *DB) WithTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		txn := db.bdb.NewTransaction(true)
		err := fn(txn)
		if err != nil {
			txn.Discard()
			return err
		}
		err = txn.Commit()
		if err == nil {
			return nil
		}
		if err == badger.ErrConflict {
			continue
		}
		return fmt.Errorf("badgerkv: commit: %w", err)
	}
}

// WithReadTxn runs fn inside a read-only transaction.
func (db *DB) WithReadTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := db.bdb.NewTransaction(false)
	defer txn.Discard()
	return fn(txn)
}
