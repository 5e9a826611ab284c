// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rlmerrors defines the closed set of error kinds the engine
// returns to callers, and the typed carrier that attaches structured
// context (session id, entity name, chunk index, budget counters) to
// each one.
package rlmerrors

import "fmt"

// Kind enumerates every error category the engine can surface. The set is
// closed: handlers must not invent new kinds, and callers may safely switch
// on Kind exhaustively.
type Kind string

const (
	SessionNotFound      Kind = "SessionNotFound"
	SessionClosed        Kind = "SessionClosed"
	SessionAlreadyClosed Kind = "SessionAlreadyClosed"

	DocumentNotFound Kind = "DocumentNotFound"
	SpanNotFound     Kind = "SpanNotFound"
	ArtifactNotFound Kind = "ArtifactNotFound"

	InvalidArgument Kind = "InvalidArgument"
	BudgetExceeded  Kind = "BudgetExceeded"

	FileTooLarge Kind = "FileTooLarge"
	FileNotFound Kind = "FileNotFound"
	DecodeError  Kind = "DecodeError"

	BlobMissing Kind = "BlobMissing"
	BlobCorrupt Kind = "BlobCorrupt"

	IndexCorrupt      Kind = "IndexCorrupt"
	ToolNamingFailure Kind = "ToolNamingFailure"

	Internal Kind = "Internal"
)

// Error is the typed carrier returned by every engine operation that can
// fail in an expected, recoverable way. Infrastructure faults (disk full,
// store unreachable) are wrapped with Kind Internal rather than panicking.
type Error struct {
	Kind    Kind
	Message string

	SessionID  string
	EntityName string
	ChunkIndex *int
	Used       int
	Limit      int

	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// Is supports errors.Is(err, rlmerrors.SessionNotFound)-style matching via
// a Kind sentinel wrapped in a bare *Error{Kind: k}.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if as(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// as is a tiny local errors.As to avoid importing errors just for this.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, wrapped: err}
}

func (e *Error) WithSession(id string) *Error {
	e.SessionID = id
	return e
}

func (e *Error) WithEntity(name string) *Error {
	e.EntityName = name
	return e
}

func (e *Error) WithChunkIndex(idx int) *Error {
	e.ChunkIndex = &idx
	return e
}

func (e *Error) WithBudget(used, limit int) *Error {
	e.Used = used
	e.Limit = limit
	return e
}

// NotFound builds a *_NotFound error carrying the session id, the entity
// name, and — for spans — the chunk index if known. This is the single
// construction point §7 requires: "includes session id, owning entity
// name, and (for spans) chunk_index when available".
func NotFound(kind Kind, sessionID, entityName string, chunkIndex *int) *Error {
	e := &Error{Kind: kind, Message: fmt.Sprintf("%s not found: %s", kind, entityName), SessionID: sessionID, EntityName: entityName}
	e.ChunkIndex = chunkIndex
	return e
}

func BudgetExceededErr(sessionID string, used, limit int) *Error {
	return &Error{
		Kind:      BudgetExceeded,
		Message:   "tool call budget exceeded",
		SessionID: sessionID,
		Used:      used,
		Limit:     limit,
	}
}
