// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package indexpersist

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aleutian-labs/rlmstore/internal/lexindex"
)

func samplePayload() lexindex.Payload {
	idx := lexindex.Build(lexindex.DefaultTokenizer{}, []lexindex.DocInput{
		{DocID: "d1", Content: []byte("the quick brown fox")},
	})
	return idx.Snapshot()
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	payload := samplePayload()
	meta := Metadata{CreatedAt: time.Unix(0, 0).UTC(), DocCount: 1, Tokenizer: "default-v1", DocFingerprint: "abc"}

	if err := s.Write("sess-1", payload, meta); err != nil {
		t.Fatal(err)
	}

	got, gotMeta, ok, err := s.Read("sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected snapshot to be found")
	}
	if gotMeta.DocCount != 1 || gotMeta.Tokenizer != "default-v1" {
		t.Fatalf("metadata mismatch: %+v", gotMeta)
	}
	if len(got.Docs) != 1 || got.Docs[0].DocID != "d1" {
		t.Fatalf("payload mismatch: %+v", got)
	}
}

func TestReadMissingIsNotFoundNotError(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, _, ok, err := s.Read("never-written")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing snapshot")
	}
}

func TestReadCorruptMetadataSelfHeals(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write("sess-1", samplePayload(), Metadata{DocCount: 1, Tokenizer: "default-v1"}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.metadataPath("sess-1"), []byte("not a gob stream"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, ok, err := s.Read("sess-1")
	if err != nil {
		t.Fatalf("expected self-healing, got error %v", err)
	}
	if ok {
		t.Fatal("expected corrupted snapshot to be reported as absent")
	}
	if _, statErr := os.Stat(s.metadataPath("sess-1")); !os.IsNotExist(statErr) {
		t.Fatal("expected residue removed after corruption detected")
	}
	if _, statErr := os.Stat(s.indexPath("sess-1")); !os.IsNotExist(statErr) {
		t.Fatal("expected index body residue removed too")
	}
}

func TestNoTempFilesLeftAfterWrite(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write("sess-1", samplePayload(), Metadata{DocCount: 1, Tokenizer: "default-v1"}); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "sess-1"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected exactly 2 files (index, metadata), got %d: %v", len(entries), entries)
	}
}

func TestFreshness(t *testing.T) {
	meta := Metadata{DocCount: 3, DocFingerprint: "fp1", Tokenizer: "default-v1"}
	if !Fresh(meta, 3, "fp1", "default-v1") {
		t.Fatal("expected fresh")
	}
	if Fresh(meta, 4, "fp1", "default-v1") {
		t.Fatal("expected stale on doc_count mismatch")
	}
	if Fresh(meta, 3, "fp2", "default-v1") {
		t.Fatal("expected stale on fingerprint mismatch")
	}
	if Fresh(meta, 3, "fp1", "default-v2") {
		t.Fatal("expected stale on tokenizer mismatch")
	}
}

func TestDocFingerprintDeterministic(t *testing.T) {
	fp1 := DocFingerprint([]string{"h1", "h2", "h3"})
	fp2 := DocFingerprint([]string{"h1", "h2", "h3"})
	if fp1 != fp2 {
		t.Fatal("expected deterministic fingerprint")
	}
	fp3 := DocFingerprint([]string{"h1", "h2", "h4"})
	if fp1 == fp3 {
		t.Fatal("expected fingerprint to change when a hash changes")
	}
}

func TestVersionMismatchTreatedAsStale(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	meta := Metadata{DocCount: 1, Tokenizer: "default-v1"}
	if err := s.Write("sess-1", samplePayload(), meta); err != nil {
		t.Fatal(err)
	}

	_, gotMeta, ok, err := s.Read("sess-1")
	if err != nil || !ok {
		t.Fatalf("expected initial read to succeed, ok=%v err=%v", ok, err)
	}
	if gotMeta.IndexVersion != CurrentIndexVersion {
		t.Fatalf("expected persisted version to equal CurrentIndexVersion, got %d", gotMeta.IndexVersion)
	}

	// Simulate a future incompatible format by rewriting the persisted
	// metadata with a bumped version number.
	future := Metadata{IndexVersion: CurrentIndexVersion + 1, DocCount: 1, Tokenizer: "default-v1"}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(future); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.metadataPath("sess-1"), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, ok, err = s.Read("sess-1")
	if err != nil {
		t.Fatalf("expected a version mismatch to be handled without error, got %v", err)
	}
	if ok {
		t.Fatal("expected a snapshot of another version to be reported as absent")
	}
	if _, statErr := os.Stat(s.metadataPath("sess-1")); !os.IsNotExist(statErr) {
		t.Fatal("expected residue removed after a version mismatch")
	}
}

func TestCrashBeforeRenameLeavesNoSnapshot(t *testing.T) {
	// Surrogate for "fault-inject a crash before the rename step": never
	// call Write at all, which is exactly the on-disk state a crash before
	// the first rename would leave. Read must behave identically to the
	// index never having been written.
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, _, ok, err := s.Read("sess-1")
	if err != nil || ok {
		t.Fatalf("expected no snapshot, got ok=%v err=%v", ok, err)
	}
}
