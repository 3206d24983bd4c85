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

import "github.com/typedrat/zql/internal/zqlerr"

// compileRootQuery emits the root scalar wrapper of spec §4.6: a single
// row with a single `zql_result` column holding the whole result as JSON
// text, aggregated with json_agg/row_to_json or, for a singular output
// format, row_to_json alone over a LIMIT-1 inner query.
func (c *compileCtx) compileRootQuery(q Query, format OutputFormat) (fragment, error) {
	selectFrag, err := c.compileQuerySelect(q, format)
	if err != nil {
		return fragment{}, err
	}
	inner := cat(raw(`(`), selectFrag, raw(`) "root"`))
	if format.Singular {
		return cat(raw(`SELECT row_to_json("root")::text AS "zql_result" FROM `), inner), nil
	}
	return cat(raw(`SELECT COALESCE(json_agg(row_to_json("root")),'[]'::json)::text AS "zql_result" FROM `), inner), nil
}

// compileQuerySelect emits one subquery's body: SELECT list, FROM,
// WHERE, ORDER BY, LIMIT, in that fixed order, with absent clauses
// omitted (spec §4.6 "State machine for subquery emission"). The
// caller's scope (if any) must already be on the stack; this pushes and
// pops its own table's scope around relationship/projection/predicate
// compilation.
func (c *compileCtx) compileQuerySelect(q Query, format OutputFormat) (fragment, error) {
	tbl, err := c.mapper.Table(q.Table)
	if err != nil {
		return fragment{}, err
	}
	alias := c.nextAlias(q.Table)
	c.pushScope(q.Table, alias)
	defer c.popScope()

	relFrags, shadow, err := c.compileRelationships(q.Related, format)
	if err != nil {
		return fragment{}, err
	}
	projFrags, err := c.compileProjection(tbl, shadow)
	if err != nil {
		return fragment{}, err
	}
	selectList := append(append([]fragment{}, relFrags...), projFrags...)

	fromSegs, err := c.mapper.TableName(q.Table)
	if err != nil {
		return fragment{}, err
	}
	fromFrag := cat(raw("FROM "), ident(fromSegs...), raw(" AS "), ident(alias))

	whereFrag, err := c.compileCondition(q.Where, true)
	if err != nil {
		return fragment{}, err
	}
	startFrag, err := c.compileStart(q.Start, q.OrderBy)
	if err != nil {
		return fragment{}, err
	}
	whereClause := combineWhere(whereFrag, startFrag)

	orderFrag, err := c.compileOrderBy(q.OrderBy)
	if err != nil {
		return fragment{}, err
	}
	limitFrag := c.compileLimit(q.Limit, format.Singular)

	return assembleClauses(
		cat(raw("SELECT "), sepRaw(selectList, ", ")),
		fromFrag,
		whereClause,
		orderFrag,
		limitFrag,
	), nil
}

// combineWhere ANDs a query's own (already-parenthesized) filter
// fragment with its cursor predicate, prefixing the result with the
// WHERE keyword; either or both may be empty.
func combineWhere(parts ...fragment) fragment {
	nonEmpty := make([]fragment, 0, len(parts))
	for _, p := range parts {
		if !p.isEmpty() {
			nonEmpty = append(nonEmpty, p)
		}
	}
	if len(nonEmpty) == 0 {
		return empty()
	}
	return cat(raw("WHERE "), sepRaw(nonEmpty, " AND "))
}

// relationshipOutputKey is the client-visible field name a compiled
// relationship occupies in its parent's projected row: the subquery's
// own Alias when set, else its table name. For a hidden (junction)
// relationship this is the name the original caller gave the whole
// two-hop edge (e.g. "tracks" for `playlist.related('tracks', ...)`),
// carried on the junction-stage Query's Alias field.
func relationshipOutputKey(q Query) string {
	if q.Alias != "" {
		return q.Alias
	}
	return q.Table
}

// compileRelationships compiles every relationship hanging off a query,
// returning one "(...) AS \"key\"" fragment per relationship plus the
// set of client column names those relationships shadow in the parent's
// own projection (spec §4.5 "EXCEPT where a same-named relationship has
// shadowed that column").
func (c *compileCtx) compileRelationships(rels []Relationship, parentFormat OutputFormat) ([]fragment, map[string]bool, error) {
	if len(rels) == 0 {
		return nil, nil, nil
	}
	out := make([]fragment, 0, len(rels))
	shadow := make(map[string]bool, len(rels))
	for _, rel := range rels {
		key := relationshipOutputKey(rel.Subquery)
		shadow[key] = true
		nested := parentFormat.formatFor(key)

		var body fragment
		var err error
		if rel.Hidden {
			body, err = c.compileJunctionRelationship(rel, nested, key)
		} else {
			body, err = c.compileOneHopRelationship(rel, nested, key)
		}
		if err != nil {
			return nil, nil, err
		}
		out = append(out, cat(body, raw(" AS "), ident(key)))
	}
	return out, shadow, nil
}

// compileOneHopRelationship emits the inline scalar subquery for an
// ordinary (non-junction) relationship (spec §4.6 "One-hop
// relationship"): a correlated child select wrapped in
// json_agg(row_to_json(...)) (or row_to_json alone when singular).
func (c *compileCtx) compileOneHopRelationship(rel Relationship, format OutputFormat, key string) (fragment, error) {
	selectFrag, err := c.compileOneHopSelect(rel, format)
	if err != nil {
		return fragment{}, err
	}
	return wrapAggregate(selectFrag, "inner_"+key, format.Singular), nil
}

// compileOneHopSelect emits just the SELECT/FROM/WHERE/ORDER BY/LIMIT
// body of a one-hop relationship's correlated child query, without the
// outer json_agg/row_to_json wrapper — reused by compileOneHopRelationship
// (wrapped as a scalar subquery) and by compileCorrelatedSubqueryBody
// (wrapped in EXISTS/NOT EXISTS instead).
func (c *compileCtx) compileOneHopSelect(rel Relationship, format OutputFormat) (fragment, error) {
	parent := c.current()
	child := rel.Subquery

	childTbl, err := c.mapper.Table(child.Table)
	if err != nil {
		return fragment{}, err
	}
	childAlias := c.nextAlias(child.Table)
	c.pushScope(child.Table, childAlias)

	relFrags, shadow, err := c.compileRelationships(child.Related, format)
	if err != nil {
		c.popScope()
		return fragment{}, err
	}
	projFrags, err := c.compileProjection(childTbl, shadow)
	if err != nil {
		c.popScope()
		return fragment{}, err
	}
	selectList := append(append([]fragment{}, relFrags...), projFrags...)

	fromSegs, err := c.mapper.TableName(child.Table)
	if err != nil {
		c.popScope()
		return fragment{}, err
	}
	fromFrag := cat(raw("FROM "), ident(fromSegs...), raw(" AS "), ident(childAlias))

	corrFrag, err := c.compileCorrelation(parent.sqlAlias, parent.clientTable, childAlias, child.Table, rel.Correlation)
	if err != nil {
		c.popScope()
		return fragment{}, err
	}
	userWhereFrag, err := c.compileCondition(child.Where, false)
	if err != nil {
		c.popScope()
		return fragment{}, err
	}
	startFrag, err := c.compileStart(child.Start, child.OrderBy)
	if err != nil {
		c.popScope()
		return fragment{}, err
	}
	whereClause := cat(raw("WHERE "), sepRaw(nonEmptyAndWrap(cat(raw("("), corrFrag, raw(")")), userWhereFrag, startFrag), " AND "))

	orderFrag, err := c.compileOrderBy(child.OrderBy)
	if err != nil {
		c.popScope()
		return fragment{}, err
	}
	limitFrag := c.compileLimit(child.Limit, format.Singular)

	c.popScope()

	return assembleClauses(
		cat(raw("SELECT "), sepRaw(selectList, ", ")),
		fromFrag,
		whereClause,
		orderFrag,
		limitFrag,
	), nil
}

// compileJunctionRelationship emits the flat join the compiler uses for
// a two-hop (junction) relationship (spec §4.6 "Two-hop (junction)",
// GLOSSARY "Junction"/"Hidden relationship"). The junction table is
// joined directly to the destination table in a single FROM, which lets
// PostgreSQL plan it as an index lookup on both sides (spec §9).
func (c *compileCtx) compileJunctionRelationship(rel Relationship, format OutputFormat, key string) (fragment, error) {
	selectFrag, err := c.compileJunctionSelect(rel, key, format)
	if err != nil {
		return fragment{}, err
	}
	return wrapAggregate(selectFrag, "inner_"+key, format.Singular), nil
}

// compileJunctionSelect emits just the body of a two-hop relationship's
// query — shared between compileJunctionRelationship (wrapped as a
// scalar subquery) and compileCorrelatedSubqueryBody (wrapped in
// EXISTS/NOT EXISTS instead).
func (c *compileCtx) compileJunctionSelect(rel Relationship, key string, format OutputFormat) (fragment, error) {
	parent := c.current()
	junctionQuery := rel.Subquery

	if len(junctionQuery.Related) != 1 {
		return fragment{}, zqlerr.Structural(zqlerr.CodeInvalidRelationship, key,
			"hidden relationship %q must have exactly one child relationship, got %d", key, len(junctionQuery.Related))
	}
	farRel := junctionQuery.Related[0]
	destQuery := farRel.Subquery

	junctionTbl, err := c.mapper.Table(junctionQuery.Table)
	if err != nil {
		return fragment{}, err
	}
	destTbl, err := c.mapper.Table(destQuery.Table)
	if err != nil {
		return fragment{}, err
	}

	jAlias := c.nextAlias(junctionQuery.Table)
	dAlias := c.nextAlias(destQuery.Table)

	c.pushScope(destQuery.Table, dAlias)

	relFrags, shadow, err := c.compileRelationships(destQuery.Related, format)
	if err != nil {
		c.popScope()
		return fragment{}, err
	}
	projFrags, err := c.compileProjection(destTbl, shadow)
	if err != nil {
		c.popScope()
		return fragment{}, err
	}
	selectList := append(append([]fragment{}, relFrags...), projFrags...)

	onFrag, err := c.compileCorrelation(jAlias, junctionQuery.Table, dAlias, destQuery.Table, farRel.Correlation)
	if err != nil {
		c.popScope()
		return fragment{}, err
	}
	firstCorrFrag, err := c.compileCorrelation(parent.sqlAlias, parent.clientTable, jAlias, junctionQuery.Table, rel.Correlation)
	if err != nil {
		c.popScope()
		return fragment{}, err
	}
	userWhereFrag, err := c.compileCondition(destQuery.Where, false)
	if err != nil {
		c.popScope()
		return fragment{}, err
	}
	startFrag, err := c.compileStart(destQuery.Start, destQuery.OrderBy)
	if err != nil {
		c.popScope()
		return fragment{}, err
	}

	var orderFrag fragment
	if len(destQuery.OrderBy) > 0 {
		orderFrag, err = c.compileOrderBy(destQuery.OrderBy)
		if err != nil {
			c.popScope()
			return fragment{}, err
		}
	} else {
		// Default to the junction's primary key so results are
		// deterministic (spec §4.6 "Ordering defaults to the junction's
		// primary key").
		pkOrder := make([]OrderColumn, len(junctionTbl.PrimaryKey))
		for i, pk := range junctionTbl.PrimaryKey {
			pkOrder[i] = OrderColumn{Column: pk}
		}
		c.pushScope(junctionQuery.Table, jAlias)
		orderFrag, err = c.compileOrderBy(pkOrder)
		c.popScope()
		if err != nil {
			c.popScope()
			return fragment{}, err
		}
	}
	limitFrag := c.compileLimit(destQuery.Limit, format.Singular)

	c.popScope()

	junctionFromSegs, err := c.mapper.TableName(junctionQuery.Table)
	if err != nil {
		return fragment{}, err
	}
	destFromSegs, err := c.mapper.TableName(destQuery.Table)
	if err != nil {
		return fragment{}, err
	}
	fromFrag := cat(
		raw("FROM "), ident(junctionFromSegs...), raw(" AS "), ident(jAlias),
		raw(" JOIN "), ident(destFromSegs...), raw(" AS "), ident(dAlias),
		raw(" ON "), onFrag,
	)

	whereClause := cat(raw("WHERE "), sepRaw(nonEmptyAndWrap(cat(raw("("), firstCorrFrag, raw(")")), userWhereFrag, startFrag), " AND "))

	return assembleClauses(
		cat(raw("SELECT "), sepRaw(selectList, ", ")),
		fromFrag,
		whereClause,
		orderFrag,
		limitFrag,
	), nil
}

// compileCorrelatedSubqueryBody emits the bare SELECT body of a
// relationship reused as the inner query of an EXISTS/NOT EXISTS
// condition (spec §4.4 "Correlated subquery"): a one-hop relationship's
// correlated child select, or — for a hidden relationship — the
// junction-to-destination join, each without its aggregate wrapper.
func (c *compileCtx) compileCorrelatedSubqueryBody(rel Relationship) (fragment, error) {
	if rel.Hidden {
		key := relationshipOutputKey(rel.Subquery)
		return c.compileJunctionSelect(rel, key, OutputFormat{})
	}
	return c.compileOneHopSelect(rel, OutputFormat{})
}

// wrapAggregate wraps a compiled subquery body in the json_agg/
// row_to_json scalar-subquery shape of spec §4.6 "One-hop relationship".
func wrapAggregate(selectFrag fragment, innerAlias string, singular bool) fragment {
	inner := cat(raw("("), selectFrag, raw(") "), ident(innerAlias))
	if singular {
		return cat(raw("(SELECT row_to_json("), ident(innerAlias), raw(") FROM "), inner, raw(")"))
	}
	return cat(raw("(SELECT COALESCE(json_agg(row_to_json("), ident(innerAlias), raw(")),'[]'::json) FROM "), inner, raw(")"))
}

// nonEmptyAndWrap filters out any condition fragment that compiled to
// the empty-And TRUE sentinel shape we never emit at non-top level (it
// compiles to the literal "TRUE" fragment, which is harmless to AND in
// but noisy) alongside genuinely empty fragments, keeping only the
// fragments worth conjoining. The correlation fragment is always kept.
func nonEmptyAndWrap(correlation fragment, rest ...fragment) []fragment {
	out := []fragment{correlation}
	for _, f := range rest {
		if f.isEmpty() || f.isLiteralTrue() {
			continue
		}
		out = append(out, f)
	}
	return out
}

// compileCorrelation zips a parent's field list against a child's field
// list positionally, producing `parent.f_i = child.f_i` conjunctions
// (spec §3 "Correlation", §4.6). Both field lists are client-schema
// column names, resolved directly against their own tables without
// requiring either to be the "current" scope.
func (c *compileCtx) compileCorrelation(parentAlias, parentClientTable, childAlias, childClientTable string, corr Correlation) (fragment, error) {
	if len(corr.ParentField) == 0 || len(corr.ParentField) != len(corr.ChildField) {
		return fragment{}, zqlerr.Structural(zqlerr.CodeCorrelationArityMismatch, "",
			"correlation field-count mismatch: %d parent fields, %d child fields", len(corr.ParentField), len(corr.ChildField))
	}
	parts := make([]fragment, len(corr.ParentField))
	for i := range corr.ParentField {
		pCol, err := c.mapper.ColumnName(parentClientTable, corr.ParentField[i])
		if err != nil {
			return fragment{}, err
		}
		cCol, err := c.mapper.ColumnName(childClientTable, corr.ChildField[i])
		if err != nil {
			return fragment{}, err
		}
		parts[i] = cat(ident(parentAlias, pCol), raw(" = "), ident(childAlias, cCol))
	}
	return sepRaw(parts, " AND "), nil
}
