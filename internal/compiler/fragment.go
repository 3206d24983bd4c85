// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package compiler

import (
	"strconv"
	"strings"
)

// chunkKind discriminates a fragment chunk: literal text the compiler
// itself controls, or a reserved parameter slot.
type chunkKind int

const (
	chunkText chunkKind = iota
	chunkParam
)

type chunk struct {
	kind chunkKind
	text string // chunkText
	val  any    // chunkParam
}

// fragment is the immutable SQL fragment value of spec §4.1: an ordered
// list of text chunks and reserved parameter slots, with the bound
// values for those slots. Fragments compose by concatenation; only
// finalize assigns `$1, $2, …` placeholders, in first-use order.
type fragment struct {
	chunks []chunk
}

// raw appends literal SQL text. Used only for operator words and
// keywords the compiler itself controls — never for user input (spec
// §4.1).
func raw(s string) fragment {
	return fragment{chunks: []chunk{{kind: chunkText, text: s}}}
}

// empty returns the empty fragment, the identity element for join.
func empty() fragment {
	return fragment{}
}

// value reserves a parameter slot bound to v. The caller must already
// have applied any cast text around the placeholder.
func value(v any) fragment {
	return fragment{chunks: []chunk{{kind: chunkParam, val: v}}}
}

// ident quotes each segment with double quotes and joins them with '.'.
// The name mapper decides what strings are passed in; ident itself does
// not consult any schema.
func ident(segments ...string) fragment {
	var sb strings.Builder
	for i, s := range segments {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteByte('"')
		sb.WriteString(strings.ReplaceAll(s, `"`, `""`))
		sb.WriteByte('"')
	}
	return raw(sb.String())
}

// cat concatenates fragments with no separator.
func cat(frags ...fragment) fragment {
	return joinFrags(frags, empty())
}

// joinFrags concatenates fragments, inserting sep between consecutive
// entries. Empty entries are not skipped; callers that need that filter
// them first (see assembleClauses).
func joinFrags(frags []fragment, sep fragment) fragment {
	var out fragment
	first := true
	for _, f := range frags {
		if !first {
			out.chunks = append(out.chunks, sep.chunks...)
		}
		out.chunks = append(out.chunks, f.chunks...)
		first = false
	}
	return out
}

// sepRaw is a convenience for joinFrags(frags, raw(sep)).
func sepRaw(frags []fragment, sep string) fragment {
	return joinFrags(frags, raw(sep))
}

// isEmpty reports whether f carries no chunks at all, the sentinel used
// to omit an optional clause (WHERE, ORDER BY, LIMIT) entirely.
func (f fragment) isEmpty() bool {
	return len(f.chunks) == 0
}

// isLiteralTrue reports whether f is exactly the bare "TRUE" sentinel
// emitted by compileCondition's non-top-level empty-And case, so callers
// assembling an AND-list can drop it as a no-op conjunct.
func (f fragment) isLiteralTrue() bool {
	return len(f.chunks) == 1 && f.chunks[0].kind == chunkText && f.chunks[0].text == "TRUE"
}

// assembleClauses joins non-empty clause fragments with a single space,
// so omitted clauses (spec §4.6 "absent clauses are omitted") leave no
// stray whitespace in the emitted text.
func assembleClauses(clauses ...fragment) fragment {
	nonEmpty := make([]fragment, 0, len(clauses))
	for _, c := range clauses {
		if !c.isEmpty() {
			nonEmpty = append(nonEmpty, c)
		}
	}
	return sepRaw(nonEmpty, " ")
}

// finalize walks the chunk list, assigns $1, $2, … in first-use order,
// and produces the (text, values) pair spec §6.1 returns.
func (f fragment) finalize() (string, []any) {
	var sb strings.Builder
	var values []any
	for _, c := range f.chunks {
		switch c.kind {
		case chunkText:
			sb.WriteString(c.text)
		case chunkParam:
			values = append(values, c.val)
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(len(values)))
		}
	}
	return sb.String(), values
}
