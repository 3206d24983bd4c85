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
	"sort"

	"github.com/typedrat/zql/internal/zqlerr"
	"github.com/typedrat/zql/internal/zqlschema"
)

// compileProjection emits `server_col AS client_col` for every column of
// the current table's client schema, except where a same-named
// relationship shadows the slot (spec §4.5). Timestamp columns are
// unwrapped to plain millisecond integers via EXTRACT(EPOCH ...).
func (c *compileCtx) compileProjection(tbl zqlschema.ClientTable, shadowed map[string]bool) ([]fragment, error) {
	cur := c.current()
	serverTable := physicalTableName(tbl.From)

	names := make([]string, 0, len(tbl.Columns))
	for name := range tbl.Columns {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]fragment, 0, len(names))
	for _, clientCol := range names {
		if shadowed[clientCol] {
			continue
		}
		col := tbl.Columns[clientCol]
		desc, ok := c.server[serverTable][col.ServerName]
		if !ok {
			return nil, zqlerr.Structural(zqlerr.CodeUnknownColumn, clientCol, "column %q has no server descriptor in table %q", clientCol, serverTable)
		}
		ref := ident(cur.sqlAlias, col.ServerName)
		expr := projectedExpr(ref, desc)
		out = append(out, cat(expr, raw(" AS "), ident(clientCol)))
	}
	return out, nil
}

// projectedExpr wraps a column reference for emission in the SELECT
// list: timestamps become millisecond epoch numbers (scalar or array),
// everything else passes through unchanged (spec §4.5).
func projectedExpr(ref fragment, desc zqlschema.ServerColumn) fragment {
	fam := classify(desc)
	if fam != famTimestampTZ && fam != famTimestamp {
		return ref
	}
	epoch := cat(raw("EXTRACT(EPOCH FROM "), ref, raw(") * 1000"))
	if !desc.IsArray {
		return epoch
	}
	// Timestamp arrays: unfold each element's epoch value (spec §4.5).
	return cat(raw("ARRAY(SELECT EXTRACT(EPOCH FROM elem) * 1000 FROM unnest("), ref, raw(") AS elem)"))
}

// compileOrderBy emits ORDER BY with per-column collation for
// text/uuid/enum columns (spec §4.5). Returns the empty fragment when
// order is empty, so the caller omits the clause entirely.
func (c *compileCtx) compileOrderBy(order []OrderColumn) (fragment, error) {
	if len(order) == 0 {
		return empty(), nil
	}
	cur := c.current()
	items := make([]fragment, len(order))
	for i, oc := range order {
		desc, serverCol, err := c.resolveColumn(Column(oc.Column))
		if err != nil {
			return fragment{}, err
		}
		dir := "ASC"
		if oc.Desc {
			dir = "DESC"
		}
		ref := ident(cur.sqlAlias, serverCol)
		fam := classify(desc)
		var item fragment
		switch fam {
		case famText, famUUID, famEnum:
			item = cat(ref, raw(` COLLATE "ucs_basic" `+dir))
		default:
			item = cat(ref, raw(" "+dir))
		}
		items[i] = item
	}
	return cat(raw("ORDER BY "), sepRaw(items, ", ")), nil
}

// compileLimit binds and casts the LIMIT parameter (spec §4.5). A
// missing or zero limit omits the clause, unless singular is true, in
// which case LIMIT 1 is emitted regardless of the AST limit so callers
// requesting a scalar-shaped result get exactly one row.
func (c *compileCtx) compileLimit(limit int, singular bool) fragment {
	if singular {
		return raw("LIMIT 1")
	}
	if limit <= 0 {
		return empty()
	}
	return cat(raw("LIMIT "), value(formatNumber(float64(limit))), raw("::text::double precision"))
}

// compileStart converts a cursor row into the compound lexicographic
// predicate of spec §4.5: for ordering (k1 asc, k2 desc, ...), a
// disjunction of groups where group i pins k1..k(i-1) equal and applies
// the appropriate strict inequality to ki; an inclusive cursor appends a
// final all-equal group.
func (c *compileCtx) compileStart(start *Start, order []OrderColumn) (fragment, error) {
	if start == nil || len(order) == 0 {
		return empty(), nil
	}
	cur := c.current()

	type resolvedCol struct {
		ref  fragment
		fam  pgFamily
		desc bool
	}
	cols := make([]resolvedCol, len(order))
	for i, oc := range order {
		desc, serverCol, err := c.resolveColumn(Column(oc.Column))
		if err != nil {
			return fragment{}, err
		}
		cols[i] = resolvedCol{ref: ident(cur.sqlAlias, serverCol), fam: classify(desc), desc: oc.Desc}
	}

	literalFor := func(i int) (fragment, error) {
		lit, ok := start.Row[order[i].Column]
		if !ok {
			return fragment{}, zqlerr.Structural(zqlerr.CodeInvalidLiteral, order[i].Column, "cursor row is missing value for ordering column %q", order[i].Column)
		}
		return c.coerceLiteral(lit, cols[i].fam)
	}

	eqGroup := func(upTo int) ([]fragment, error) {
		out := make([]fragment, upTo)
		for i := 0; i < upTo; i++ {
			litFrag, err := literalFor(i)
			if err != nil {
				return nil, err
			}
			out[i] = cat(coerceOrderRef(cols[i].ref, cols[i].fam), raw(" = "), litFrag)
		}
		return out, nil
	}

	var groups []fragment
	for i := range order {
		eq, err := eqGroup(i)
		if err != nil {
			return fragment{}, err
		}
		litFrag, err := literalFor(i)
		if err != nil {
			return fragment{}, err
		}
		op := ">"
		if cols[i].desc {
			op = "<"
		}
		ineq := cat(coerceOrderRef(cols[i].ref, cols[i].fam), raw(" "+op+" "), litFrag)
		parts := append(eq, ineq)
		groups = append(groups, cat(raw("("), sepRaw(parts, " AND "), raw(")")))
	}

	if start.Exclusive {
		return cat(raw("("), sepRaw(groups, " OR "), raw(")")), nil
	}

	eqAll, err := eqGroup(len(order))
	if err != nil {
		return fragment{}, err
	}
	groups = append(groups, cat(raw("("), sepRaw(eqAll, " AND "), raw(")")))
	return cat(raw("("), sepRaw(groups, " OR "), raw(")")), nil
}

// coerceOrderRef applies the same collation used in ORDER BY so cursor
// comparisons agree with the declared ordering (spec §8.4 "Collation
// uniformity").
func coerceOrderRef(ref fragment, fam pgFamily) fragment {
	switch fam {
	case famText:
		return cat(ref, raw(` COLLATE "ucs_basic"`))
	case famUUID, famEnum:
		return cat(ref, raw(`::text COLLATE "ucs_basic"`))
	default:
		return ref
	}
}
