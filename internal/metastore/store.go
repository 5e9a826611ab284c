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
	"fmt"

	"github.com/aleutian-labs/rlmstore/internal/badgerkv"
)

// Store is the BadgerDB-backed metadata store (C2).
type Store struct {
	db *badgerkv.DB
}

// Open opens (creating if necessary) the metadata store rooted at dir and
// runs any pending forward migrations.
func Open(dir string) (*Store, error) {
	db, err := badgerkv.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("metastore: open: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("metastore: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }
