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
	"sync"
	"testing"
)

func TestTryIncrementToolCallsRespectsLimit(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	if err := s.CreateSession(ctx, Session{ID: "s1", Config: SessionConfig{MaxToolCalls: 2}}); err != nil {
		t.Fatal(err)
	}

	used, ok, err := s.TryIncrementToolCalls(ctx, "s1")
	if err != nil || !ok || used != 1 {
		t.Fatalf("call 1: used=%d ok=%v err=%v", used, ok, err)
	}
	used, ok, err = s.TryIncrementToolCalls(ctx, "s1")
	if err != nil || !ok || used != 2 {
		t.Fatalf("call 2: used=%d ok=%v err=%v", used, ok, err)
	}
	used, ok, err = s.TryIncrementToolCalls(ctx, "s1")
	if err != nil || ok {
		t.Fatalf("call 3: expected denial, got used=%d ok=%v err=%v", used, ok, err)
	}
}

// TestConcurrentIncrementAdmitsExactlyCap proves §8's concurrency property:
// under N concurrent callers racing against a cap, exactly cap succeed and
// the rest are denied — never more, never fewer.
func TestConcurrentIncrementAdmitsExactlyCap(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	const cap = 5
	const callers = 50
	if err := s.CreateSession(ctx, Session{ID: "s1", Config: SessionConfig{MaxToolCalls: cap}}); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	denied := 0

	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			_, ok, err := s.TryIncrementToolCalls(ctx, "s1")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if ok {
				admitted++
			} else {
				denied++
			}
		}()
	}
	wg.Wait()

	if admitted != cap {
		t.Fatalf("expected exactly %d admitted, got %d", cap, admitted)
	}
	if denied != callers-cap {
		t.Fatalf("expected exactly %d denied, got %d", callers-cap, denied)
	}

	sess, err := s.GetSession(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if sess.ToolCallsUsed != cap {
		t.Fatalf("expected stored ToolCallsUsed=%d, got %d", cap, sess.ToolCallsUsed)
	}
}

func TestTryIncrementToolCallsUnlimitedWhenZero(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	if err := s.CreateSession(ctx, Session{ID: "s1", Config: SessionConfig{MaxToolCalls: 0}}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 100; i++ {
		_, ok, err := s.TryIncrementToolCalls(ctx, "s1")
		if err != nil || !ok {
			t.Fatalf("call %d: expected admitted, ok=%v err=%v", i, ok, err)
		}
	}
}
