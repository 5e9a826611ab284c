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

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Tokenizer is a named pure function from text to a sequence of tokens.
// Its Name is part of the persisted index's identity (§4.5): two
// behaviorally different tokenizers must never share a name, and a
// tokenizer's behavior must never change under an existing name — bump
// the name instead.
type Tokenizer interface {
	Name() string
	Tokenize(text string) []Token
}

// Token is a single tokenizer output: the normalized term text plus the
// half-open byte range in the *original* input it was extracted from, so
// callers can map matches back to highlightable source positions.
type Token struct {
	Text  string
	Start int
	End   int
}

// DefaultTokenizerName is the stable identity of DefaultTokenizer. Any
// change to its behavior must be shipped under a new name (see the
// Tokenizer interface doc above).
const DefaultTokenizerName = "default-v1"

// DefaultTokenizer lowercases, NFC-normalizes, and splits on a
// letter-or-digit class that additionally treats internal hyphens and
// apostrophes as part of a token (so "can't" and "hyphen-ated" survive
// intact), then drops tokens shorter than two characters.
type DefaultTokenizer struct{}

func (DefaultTokenizer) Name() string { return DefaultTokenizerName }

func (DefaultTokenizer) Tokenize(text string) []Token {
	normalized := norm.NFC.String(text)
	runes := []rune(normalized)

	var tokens []Token
	n := len(runes)
	i := 0
	// byteOffset tracks the UTF-8 byte position of runes[i] in normalized.
	byteOffset := 0
	runeByteLen := make([]int, n)
	for idx, r := range runes {
		runeByteLen[idx] = utf8RuneLen(r)
	}

	isWordRune := func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}
	isInternalJoiner := func(r rune) bool {
		return r == '-' || r == '\'' || r == '’'
	}

	for i < n {
		if !isWordRune(runes[i]) {
			byteOffset += runeByteLen[i]
			i++
			continue
		}
		start := i
		startByte := byteOffset
		for i < n {
			if isWordRune(runes[i]) {
				byteOffset += runeByteLen[i]
				i++
				continue
			}
			if isInternalJoiner(runes[i]) && i+1 < n && isWordRune(runes[i+1]) {
				byteOffset += runeByteLen[i]
				i++
				continue
			}
			break
		}
		end := i
		endByte := byteOffset
		word := strings.ToLower(string(runes[start:end]))
		word = strings.Trim(word, "-'’")
		if len([]rune(word)) >= 2 {
			tokens = append(tokens, Token{Text: word, Start: startByte, End: endByte})
		}
	}
	return tokens
}

func utf8RuneLen(r rune) int {
	switch {
	case r < 0x80:
		return 1
	case r < 0x800:
		return 2
	case r < 0x10000:
		return 3
	default:
		return 4
	}
}
