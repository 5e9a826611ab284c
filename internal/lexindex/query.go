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

import "sort"

// Highlight is a half-open byte range within a returned snippet, carrying
// the set of query terms matched at that range. Highlights merges
// overlapping ranges before returning them.
type Highlight struct {
	Start int
	End   int
	Terms []string
}

// Match is one ranked result of a Query call.
type Match struct {
	DocID       string
	Score       float64 // may be negative; never filtered on that basis
	BestStart   int     // byte offset in the document of the best-matching token
	BestEnd     int
	ContentFrom int // snippet window start, clamped to [0, doc length)
	ContentTo   int // snippet window end
}

// QueryOptions parameterizes a Query call.
type QueryOptions struct {
	Limit       int
	ContextSize int      // desired context window size in characters/bytes
	DocFilter   []string // optional restriction to specific document ids; nil/empty means all
}

// Query ranks idx's documents against query and returns up to
// opts.Limit matches. docContent must supply, for any candidate doc id,
// the full document bytes so the best match window and context snippet
// can be located — the index itself stores only term statistics, not the
// document text (§4.4: "content is delegated" — documents live in the
// blob store, the index is query-time infrastructure only).
func (idx *Index) Query(query string, opts QueryOptions, docContent func(docID string) []byte) []Match {
	if idx == nil || len(idx.docs) == 0 || query == "" {
		return nil
	}

	queryTokens := idx.tokenizer.Tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}
	queryTF := make(map[string]int)
	for _, t := range queryTokens {
		queryTF[t.Text]++
	}

	var filter map[string]bool
	if len(opts.DocFilter) > 0 {
		filter = make(map[string]bool, len(opts.DocFilter))
		for _, id := range opts.DocFilter {
			filter[id] = true
		}
	}

	type scored struct {
		doc   bm25Doc
		score float64
	}
	var candidates []scored
	for _, d := range idx.docs {
		if filter != nil && !filter[d.docID] {
			continue
		}
		// A document sharing no token with the query is excluded outright,
		// not merely left with a low or negative score (§8 property 5: every
		// match's span must contain a query token — a zero-overlap document
		// has no such span for bestWindow to find).
		if !hasOverlap(d, queryTF) {
			continue
		}
		score := idx.scoreDoc(queryTF, d)
		candidates = append(candidates, scored{doc: d, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	limit := opts.Limit
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}

	var matches []Match
	for _, c := range candidates[:limit] {
		content := docContent(c.doc.docID)
		bestStart, bestEnd := bestWindow(content, idx.tokenizer, queryTF)
		from, to := ContextWindow(len(content), bestStart, bestEnd, opts.ContextSize)
		matches = append(matches, Match{
			DocID:       c.doc.docID,
			Score:       c.score,
			BestStart:   bestStart,
			BestEnd:     bestEnd,
			ContentFrom: from,
			ContentTo:   to,
		})
	}
	return matches
}

// hasOverlap reports whether d shares at least one token with queryTF.
// Score alone cannot answer this: a shared term with a zero or negative
// IDF still overlaps, while an unshared term never does.
func hasOverlap(d bm25Doc, queryTF map[string]int) bool {
	for term := range queryTF {
		if _, ok := d.tf[term]; ok {
			return true
		}
	}
	return false
}

// bestWindow locates the earliest token in content matching a query term,
// returning its byte range. Callers only reach this after hasOverlap has
// confirmed a shared term exists, so the [0,0) fallback here only fires if
// the document's indexed content and its stored blob have since diverged
// (e.g. truncation at index time) — never as a disguised "no match".
func bestWindow(content []byte, tokenizer Tokenizer, queryTF map[string]int) (int, int) {
	for _, tok := range tokenizer.Tokenize(string(content)) {
		if _, ok := queryTF[tok.Text]; ok {
			return tok.Start, tok.End
		}
	}
	return 0, 0
}

// ContextWindow centers a context window of size contextSize around
// [bestStart, bestEnd), clamped to [0, docLen). Exported so callers outside
// this package (e.g. the runtime's regex/literal search, which bypasses the
// index but still needs the same snippet-centering behavior) share one
// implementation instead of reimplementing the clamp arithmetic.
func ContextWindow(docLen, bestStart, bestEnd, contextSize int) (int, int) {
	if contextSize <= 0 {
		return bestStart, bestEnd
	}
	matchLen := bestEnd - bestStart
	pad := contextSize - matchLen
	if pad < 0 {
		pad = 0
	}
	before := pad / 2
	after := pad - before

	from := bestStart - before
	to := bestEnd + after
	if from < 0 {
		to += -from
		from = 0
	}
	if to > docLen {
		from -= to - docLen
		to = docLen
	}
	if from < 0 {
		from = 0
	}
	return from, to
}

// Highlights finds every occurrence of a query term inside snippet
// (relative byte offsets) and merges overlapping/adjacent occurrences,
// carrying the union of terms each merged region covers.
func Highlights(snippet []byte, tokenizer Tokenizer, queryTerms map[string]bool) []Highlight {
	type hit struct {
		start, end int
		term       string
	}
	var hits []hit
	for _, tok := range tokenizer.Tokenize(string(snippet)) {
		if queryTerms[tok.Text] {
			hits = append(hits, hit{tok.Start, tok.End, tok.Text})
		}
	}
	if len(hits) == 0 {
		return nil
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].start < hits[j].start })

	var merged []Highlight
	cur := Highlight{Start: hits[0].start, End: hits[0].end, Terms: []string{hits[0].term}}
	for _, h := range hits[1:] {
		if h.start <= cur.End {
			if h.end > cur.End {
				cur.End = h.end
			}
			if !containsTerm(cur.Terms, h.term) {
				cur.Terms = append(cur.Terms, h.term)
			}
			continue
		}
		merged = append(merged, cur)
		cur = Highlight{Start: h.start, End: h.end, Terms: []string{h.term}}
	}
	merged = append(merged, cur)
	return merged
}

func containsTerm(terms []string, term string) bool {
	for _, t := range terms {
		if t == term {
			return true
		}
	}
	return false
}

// QueryTermSet tokenizes query into a set suitable for Highlights.
func QueryTermSet(tokenizer Tokenizer, query string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range tokenizer.Tokenize(query) {
		set[tok.Text] = true
	}
	return set
}
