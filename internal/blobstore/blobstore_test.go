// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package blobstore

import (
	"bytes"
	"errors"
	"os"
	"sync"
	"testing"
)

func TestPutIdempotent(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	b := []byte("the quick brown fox")
	h1, err := s.Put(b)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := s.Put(b)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatalf("expected same hash, got %s and %s", h1, h2)
	}
	got, err := s.Get(h1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, b) {
		t.Fatalf("round trip mismatch")
	}
}

func TestGetAbsent(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.Get("0000000000000000000000000000000000000000000000000000000000000000")
	if !errors.Is(err, ErrAbsent) {
		t.Fatalf("expected ErrAbsent, got %v", err)
	}
}

func TestGetSliceClamps(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	h, err := s.Put([]byte("0123456789"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.GetSlice(h, 5, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "56789" {
		t.Fatalf("expected clamped slice, got %q", got)
	}
}

func TestConcurrentPutSameBytes(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	b := bytes.Repeat([]byte("x"), 4096)

	var wg sync.WaitGroup
	hashes := make([]string, 32)
	for i := range hashes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := s.Put(b)
			if err != nil {
				t.Error(err)
				return
			}
			hashes[i] = h
		}(i)
	}
	wg.Wait()

	want := Hash(b)
	for _, h := range hashes {
		if h != want {
			t.Fatalf("hash mismatch under concurrency: got %s want %s", h, want)
		}
	}
}

func TestCorruptedObjectTreatedAsAbsent(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	h, err := s.Put([]byte("original"))
	if err != nil {
		t.Fatal(err)
	}
	p, err := s.path(h)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte("tampered"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = s.Get(h)
	if !errors.Is(err, ErrAbsent) {
		t.Fatalf("expected ErrAbsent for corrupted object, got %v", err)
	}
}
