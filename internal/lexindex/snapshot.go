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

// Payload is the versioned, self-describing wire representation of a BM25
// Index, per the design note in spec.md §9 ("Pickle-style index
// serialization"): vocabulary, document vector, term-frequency structures,
// document lengths, and parameters are all explicit fields, gob-encoded by
// the caller (internal/indexpersist), never the Go runtime's native
// interpreter-coupled format.
type Payload struct {
	K1     float64
	B      float64
	AvgLen float64
	N      int
	IDF    map[string]float64
	Docs   []PayloadDoc

	Truncated []string
}

// PayloadDoc is one document's serialized term-frequency vector.
type PayloadDoc struct {
	DocID string
	TF    map[string]int
	Terms int
}

// Snapshot extracts idx's build state into a Payload suitable for gob
// encoding.
func (idx *Index) Snapshot() Payload {
	if idx == nil {
		return Payload{K1: K1, B: B, IDF: map[string]float64{}}
	}
	docs := make([]PayloadDoc, len(idx.docs))
	for i, d := range idx.docs {
		docs[i] = PayloadDoc{DocID: d.docID, TF: d.tf, Terms: d.terms}
	}
	return Payload{
		K1:        K1,
		B:         B,
		AvgLen:    idx.avgLen,
		N:         idx.n,
		IDF:       idx.idf,
		Docs:      docs,
		Truncated: idx.truncated,
	}
}

// FromSnapshot reconstructs an Index from a previously persisted Payload
// without re-tokenizing the source documents. tokenizer must be the same
// tokenizer (by name) the payload was built with; the caller is
// responsible for enforcing the staleness contract (§4.5) before calling
// this — FromSnapshot itself performs no staleness check.
func FromSnapshot(tokenizer Tokenizer, p Payload) *Index {
	idx := &Index{
		tokenizer: tokenizer,
		byDocID:   make(map[string]int, len(p.Docs)),
		df:        make(map[string]int),
		idf:       p.IDF,
		avgLen:    p.AvgLen,
		n:         p.N,
		truncated: p.Truncated,
	}
	if idx.idf == nil {
		idx.idf = make(map[string]float64)
	}
	docs := make([]bm25Doc, len(p.Docs))
	for i, d := range p.Docs {
		docs[i] = bm25Doc{docID: d.DocID, tf: d.TF, terms: d.Terms}
		idx.byDocID[d.DocID] = i
	}
	idx.docs = docs
	return idx
}
