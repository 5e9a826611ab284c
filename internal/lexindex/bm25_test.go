// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lexindex

import "testing"

func TestBuildEmpty(t *testing.T) {
	idx := Build(DefaultTokenizer{}, nil)
	if idx.DocCount() != 0 {
		t.Fatalf("expected empty index, got %d docs", idx.DocCount())
	}
	if idx.Query("anything", QueryOptions{}, nil) != nil {
		t.Fatal("expected nil matches from empty index")
	}
}

func TestQueryRanksRelevantDocFirst(t *testing.T) {
	docs := []DocInput{
		{DocID: "a", Content: []byte("The Python programming language is used widely.")},
		{DocID: "b", Content: []byte("Bananas are a good source of potassium.")},
	}
	idx := Build(DefaultTokenizer{}, docs)

	content := map[string][]byte{"a": docs[0].Content, "b": docs[1].Content}
	matches := idx.Query("python language", QueryOptions{Limit: 2, ContextSize: 40}, func(id string) []byte {
		return content[id]
	})
	if len(matches) == 0 {
		t.Fatal("expected at least one match")
	}
	if matches[0].DocID != "a" {
		t.Fatalf("expected doc 'a' to rank first, got %s", matches[0].DocID)
	}
}

func TestQueryNeverDropsNegativeScores(t *testing.T) {
	// "the" appears in every document, so its RSJ IDF is negative or near
	// zero; the document must still be returned (search honesty, §8.5).
	docs := []DocInput{
		{DocID: "a", Content: []byte("the the the the cat")},
		{DocID: "b", Content: []byte("the the the the dog")},
		{DocID: "c", Content: []byte("the the the the bird")},
	}
	idx := Build(DefaultTokenizer{}, docs)
	content := map[string][]byte{"a": docs[0].Content, "b": docs[1].Content, "c": docs[2].Content}
	matches := idx.Query("the", QueryOptions{Limit: 10}, func(id string) []byte { return content[id] })
	if len(matches) != 3 {
		t.Fatalf("expected all 3 docs returned even with low/negative idf, got %d", len(matches))
	}
}

func TestQueryExcludesZeroOverlapDocs(t *testing.T) {
	// §8 property 5: every returned match's span must contain a query
	// token. A document sharing no token with the query must not appear
	// at all, even when there are fewer candidate documents than limit.
	docs := []DocInput{
		{DocID: "a", Content: []byte("python language tutorial")},
		{DocID: "b", Content: []byte("bananas and potassium")},
	}
	idx := Build(DefaultTokenizer{}, docs)
	content := map[string][]byte{"a": docs[0].Content, "b": docs[1].Content}
	matches := idx.Query("python", QueryOptions{Limit: 10}, func(id string) []byte {
		return content[id]
	})
	if len(matches) != 1 || matches[0].DocID != "a" {
		t.Fatalf("expected only the overlapping doc 'a', got %v", matches)
	}
}

func TestQueryRespectsDocFilter(t *testing.T) {
	docs := []DocInput{
		{DocID: "a", Content: []byte("apple banana cherry")},
		{DocID: "b", Content: []byte("apple banana cherry")},
	}
	idx := Build(DefaultTokenizer{}, docs)
	content := map[string][]byte{"a": docs[0].Content, "b": docs[1].Content}
	matches := idx.Query("apple", QueryOptions{Limit: 10, DocFilter: []string{"b"}}, func(id string) []byte {
		return content[id]
	})
	if len(matches) != 1 || matches[0].DocID != "b" {
		t.Fatalf("expected only doc 'b', got %v", matches)
	}
}

func TestMatchSpanContainsQueryToken(t *testing.T) {
	docs := []DocInput{
		{DocID: "a", Content: []byte("prefix text python language suffix text")},
	}
	idx := Build(DefaultTokenizer{}, docs)
	content := docs[0].Content
	matches := idx.Query("python", QueryOptions{Limit: 1, ContextSize: 10}, func(string) []byte { return content })
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	m := matches[0]
	snippet := string(content[m.ContentFrom:m.ContentTo])
	if !containsToken(snippet, "python") {
		t.Fatalf("snippet %q does not contain matched token", snippet)
	}
}

func containsToken(snippet, term string) bool {
	for _, tok := range (DefaultTokenizer{}).Tokenize(snippet) {
		if tok.Text == term {
			return true
		}
	}
	return false
}

func TestHighlightsAttributeOnlyContainedTerms(t *testing.T) {
	snippet := []byte("python python-language rocks")
	terms := QueryTermSet(DefaultTokenizer{}, "python language")
	hs := Highlights(snippet, DefaultTokenizer{}, terms)
	if len(hs) == 0 {
		t.Fatal("expected highlights")
	}
	for _, h := range hs {
		text := string(snippet[h.Start:h.End])
		for _, term := range h.Terms {
			if !containsToken(text, term) {
				t.Fatalf("highlight text %q does not contain attributed term %q", text, term)
			}
		}
	}
}

func TestTruncatedDocsTracked(t *testing.T) {
	big := make([]byte, MaxIndexedChars+100)
	for i := range big {
		big[i] = 'a'
	}
	idx := Build(DefaultTokenizer{}, []DocInput{{DocID: "huge", Content: big}})
	trunc := idx.TruncatedDocs()
	if len(trunc) != 1 || trunc[0] != "huge" {
		t.Fatalf("expected 'huge' marked truncated, got %v", trunc)
	}
}
