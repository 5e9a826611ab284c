// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lexindex implements the BM25 lexical index (C4): an in-memory,
// immutable-after-build inverted index over a session's documents, plus
// the tokenizer abstraction and highlight extraction that back
// search.query.
package lexindex

import "math"

// BM25 tuning constants, fixed per §4.4 ("never changes them within a
// schema version"). 1.5/0.75 are the Robertson et al. defaults.
const (
	K1 = 1.5
	B  = 0.75
)

// MaxIndexedChars caps how much of a single document's content is fed into
// the index. Documents longer than this are truncated for indexing
// purposes only — the stored document and its spans are untouched. §4.4
// requires a warning-level trace naming the affected document when this
// fires; the runtime, not this package, owns trace emission.
const MaxIndexedChars = 2_000_000

// bm25Doc is the per-document representation the index scores against.
type bm25Doc struct {
	docID string
	tf    map[string]int
	terms int // total token count (not unique vocabulary size)
}

// Index is a BM25 inverted index over a fixed set of documents. Immutable
// after Build; safe for concurrent read-only use, matching §4.4's
// "injectable tokenizer with a stable name" contract.
type Index struct {
	tokenizer Tokenizer
	docs      []bm25Doc
	byDocID   map[string]int // docID -> index into docs
	df        map[string]int
	idf       map[string]float64
	avgLen    float64
	n         int

	// truncated records which documents were cut to MaxIndexedChars so the
	// runtime can emit the warning trace §4.4 requires.
	truncated []string
}

// DocInput is one document's raw content keyed by its document id.
type DocInput struct {
	DocID   string
	Content []byte
}

// TokenizerName reports the name of the tokenizer this index was built
// with — part of the staleness contract in §4.5.
func (idx *Index) TokenizerName() string {
	if idx == nil || idx.tokenizer == nil {
		return ""
	}
	return idx.tokenizer.Name()
}

// DocCount reports how many documents are indexed.
func (idx *Index) DocCount() int {
	if idx == nil {
		return 0
	}
	return idx.n
}

// TruncatedDocs returns the document ids that were truncated to
// MaxIndexedChars during Build, in build order.
func (idx *Index) TruncatedDocs() []string {
	if idx == nil {
		return nil
	}
	return idx.truncated
}

// Build constructs an Index from docs using tokenizer. An empty docs slice
// yields a valid, empty index that scores every query to nothing.
func Build(tokenizer Tokenizer, docs []DocInput) *Index {
	idx := &Index{
		tokenizer: tokenizer,
		byDocID:   make(map[string]int, len(docs)),
		df:        make(map[string]int),
		idf:       make(map[string]float64),
	}
	if len(docs) == 0 {
		return idx
	}

	bdocs := make([]bm25Doc, 0, len(docs))
	totalLen := 0
	df := make(map[string]int)

	for _, d := range docs {
		content := d.Content
		wasTruncated := false
		if len(content) > MaxIndexedChars {
			content = content[:MaxIndexedChars]
			wasTruncated = true
		}

		tf := make(map[string]int)
		terms := 0
		seen := make(map[string]bool)
		for _, tok := range tokenizer.Tokenize(string(content)) {
			tf[tok.Text]++
			terms++
			if !seen[tok.Text] {
				seen[tok.Text] = true
				df[tok.Text]++
			}
		}

		bdocs = append(bdocs, bm25Doc{docID: d.DocID, tf: tf, terms: terms})
		totalLen += terms
		if wasTruncated {
			idx.truncated = append(idx.truncated, d.DocID)
		}
	}

	n := len(bdocs)
	avgLen := float64(totalLen) / float64(n)

	// Classic Robertson-Sparck-Jones IDF. Unlike a Lucene-style smoothed
	// variant, this can go negative for terms present in a majority of
	// documents — §4.4 requires callers never filter matches on that
	// basis ("search honesty", §8 property 5).
	idf := make(map[string]float64, len(df))
	for term, docFreq := range df {
		idf[term] = idfRSJ(n, docFreq)
	}

	byDocID := make(map[string]int, n)
	for i, d := range bdocs {
		byDocID[d.docID] = i
	}

	idx.docs = bdocs
	idx.byDocID = byDocID
	idx.df = df
	idx.idf = idf
	idx.avgLen = avgLen
	idx.n = n
	return idx
}

func idfRSJ(n, df int) float64 {
	return math.Log(float64(n)-float64(df)+0.5) - math.Log(float64(df)+0.5)
}

// scoreDoc returns the raw (unnormalized) BM25 score of doc against the
// already-tokenized query term frequency map. Terms absent from the index
// vocabulary contribute zero, per-term scores may be negative.
func (idx *Index) scoreDoc(queryTF map[string]int, d bm25Doc) float64 {
	dl := float64(d.terms)
	var score float64
	for term, qtf := range queryTF {
		tf, ok := d.tf[term]
		if !ok {
			continue
		}
		termIDF, known := idx.idf[term]
		if !known {
			continue
		}
		tfFloat := float64(tf)
		numerator := tfFloat * (K1 + 1)
		lengthNorm := K1 * (1 - B + B*dl/idx.avgLen)
		denominator := tfFloat + lengthNorm
		score += termIDF * (numerator / denominator) * float64(qtf)
	}
	return score
}
