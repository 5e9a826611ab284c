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

import "fmt"

// Key layout. BadgerDB has no tables, so every entity is namespaced by a
// string prefix; "by-session" index keys exist so list operations can
// range-scan without a secondary store.
const (
	schemaVersionKey = "schema/version"

	sessionPrefix = "session/"                    // session/<id>                     -> Session
	docPrefix     = "doc/"                        // doc/<sessionID>/<docID>          -> Document
	docBySession  = "idx/doc_by_session/"         // idx/doc_by_session/<sessionID>/<docID> -> docID (presence index)
	spanPrefix    = "span/"                       // span/<sessionID>/<spanID>        -> Span
	spanByDoc     = "idx/span_by_doc/"             // idx/span_by_doc/<sessionID>/<docID>/<spanID> -> spanID
	artifactPfx   = "artifact/"                   // artifact/<sessionID>/<artifactID> -> Artifact
	artifactBySes = "idx/artifact_by_session/"     // idx/artifact_by_session/<sessionID>/<artifactID>
	tracePrefix   = "trace/"                      // trace/<sessionID>/<seq zero-padded> -> TraceEntry
)

func sessionKey(id string) []byte { return []byte(sessionPrefix + id) }

func docKey(sessionID, docID string) []byte {
	return []byte(docPrefix + sessionID + "/" + docID)
}

func docBySessionPrefix(sessionID string) []byte {
	return []byte(docBySession + sessionID + "/")
}

func docBySessionKey(sessionID, docID string) []byte {
	return []byte(docBySession + sessionID + "/" + docID)
}

func spanKey(sessionID, spanID string) []byte {
	return []byte(spanPrefix + sessionID + "/" + spanID)
}

func spanByDocPrefix(sessionID, docID string) []byte {
	return []byte(spanByDoc + sessionID + "/" + docID + "/")
}

func spanByDocKey(sessionID, docID, spanID string) []byte {
	return []byte(spanByDoc + sessionID + "/" + docID + "/" + spanID)
}

func artifactKey(sessionID, artifactID string) []byte {
	return []byte(artifactPfx + sessionID + "/" + artifactID)
}

func artifactBySessionPrefix(sessionID string) []byte {
	return []byte(artifactBySes + sessionID + "/")
}

func artifactBySessionKey(sessionID, artifactID string) []byte {
	return []byte(artifactBySes + sessionID + "/" + artifactID)
}

func tracePrefixFor(sessionID string) []byte {
	return []byte(tracePrefix + sessionID + "/")
}

func traceKey(sessionID string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d", tracePrefix, sessionID, seq))
}

func traceSeqKey(sessionID string) []byte {
	return []byte("seq/trace/" + sessionID)
}
