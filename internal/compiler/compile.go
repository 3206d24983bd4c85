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
	"context"
	"strconv"

	"go.opentelemetry.io/otel/trace"

	"github.com/typedrat/zql/internal/zqlerr"
	"github.com/typedrat/zql/internal/zqlschema"
)

// OutputFormat tells the relationship compiler, per alias, whether a
// subquery produces a single object (row_to_json) or an array
// (json_agg), and recurses into each relationship's own format (spec
// §6.1).
type OutputFormat struct {
	Singular      bool
	Relationships map[string]OutputFormat
}

// formatFor looks up the nested format for a relationship alias,
// defaulting to the non-singular (array) shape when the caller did not
// specify one — the common case for ordinary `.related(...)` calls.
func (f OutputFormat) formatFor(alias string) OutputFormat {
	if f.Relationships == nil {
		return OutputFormat{}
	}
	if nested, ok := f.Relationships[alias]; ok {
		return nested
	}
	return OutputFormat{}
}

// PreparedSchema is the per-schema derived structure the compiler may
// cache across calls (spec §5 "Shared resource"): a precomputed
// server-name lookup and the mapper built from it. Schemas are read-only
// inputs; PreparedSchema never mutates them.
type PreparedSchema struct {
	client zqlschema.ClientSchema
	server zqlschema.ServerSchema
	mapper *nameMapper
}

// Prepare builds a PreparedSchema once, for reuse across many Compile
// calls against the same (server, client) schema pair.
func Prepare(server zqlschema.ServerSchema, client zqlschema.ClientSchema) *PreparedSchema {
	return &PreparedSchema{
		client: client,
		server: server,
		mapper: newNameMapper(client),
	}
}

// CompileOptions carries the caller-supplied knobs beyond the AST
// itself. Tracer is the only optional side channel; it is never
// consulted for control flow, only to annotate a span around Compile
// (spec §5: the compiler "holds no I/O resources... there are no
// suspension points").
type CompileOptions struct {
	Format OutputFormat
	Tracer trace.Tracer
}

// Result is the compiler's output: a parameterized statement and its
// ordered parameter values (spec §6.1).
type Result struct {
	Text   string
	Values []any
}

// Compile translates q into a single parameterized PostgreSQL statement
// that, executed, yields one row with one column `zql_result` holding
// the JSON-encoded result (spec §4.6, §6.1). Each call allocates a fresh
// alias counter; emission is pure and deterministic (spec §5, §8.1).
func Compile(server zqlschema.ServerSchema, client zqlschema.ClientSchema, q Query, opts CompileOptions) (Result, error) {
	return CompilePrepared(Prepare(server, client), q, opts)
}

// CompilePrepared is Compile against an already-built PreparedSchema,
// avoiding recomputation of the derived per-schema structures for
// callers compiling many queries against the same schema.
func CompilePrepared(ps *PreparedSchema, q Query, opts CompileOptions) (Result, error) {
	ctx := &compileCtx{
		server: ps.server,
		client: ps.client,
		mapper: ps.mapper,
	}
	if opts.Tracer != nil {
		_, span := opts.Tracer.Start(context.Background(), "compiler.Compile")
		defer span.End()
	}

	root, err := ctx.compileRootQuery(q, opts.Format)
	if err != nil {
		return Result{}, err
	}
	text, values := root.finalize()
	return Result{Text: text, Values: values}, nil
}

// compileCtx carries the mutable state of a single Compile call: the
// alias counter and the scope stack needed to resolve column references
// against the table currently being projected (spec §5 "given immutable
// inputs it produces a (text, params) deterministically").
type compileCtx struct {
	server zqlschema.ServerSchema
	client zqlschema.ClientSchema
	mapper *nameMapper

	aliasSeq int
	scopes   []scope
}

// scope is one entry of the alias stack: the client table name being
// compiled and the SQL alias it was assigned, used to resolve bare
// column references in WHERE/ORDER BY/correlations.
type scope struct {
	clientTable string
	sqlAlias    string
}

func (c *compileCtx) pushScope(clientTable, sqlAlias string) {
	c.scopes = append(c.scopes, scope{clientTable: clientTable, sqlAlias: sqlAlias})
}

func (c *compileCtx) popScope() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

func (c *compileCtx) current() scope {
	return c.scopes[len(c.scopes)-1]
}

// nextAlias allocates the next numbered alias for clientTable, e.g.
// "issue_0", "comments_1", following the wire-level example of spec
// §6.3.
func (c *compileCtx) nextAlias(clientTable string) string {
	a := clientTable + "_" + strconv.Itoa(c.aliasSeq)
	c.aliasSeq++
	return a
}

// currentServerColumn resolves a client column name, in the scope
// currently on top of the stack, to its server column descriptor.
func (c *compileCtx) currentServerColumn(clientCol string) (zqlschema.ServerColumn, bool) {
	cur := c.current()
	tbl, ok := c.client[cur.clientTable]
	if !ok {
		return zqlschema.ServerColumn{}, false
	}
	col, ok := tbl.Columns[clientCol]
	if !ok {
		return zqlschema.ServerColumn{}, false
	}
	serverTable := physicalTableName(tbl.From)
	serverCol, ok := c.server[serverTable][col.ServerName]
	return serverCol, ok
}

// physicalTableName strips a schema qualifier (if any) for the purpose
// of looking the table up in the server schema map, which is keyed by
// bare physical table name.
func physicalTableName(from string) string {
	segs := splitQualified(from)
	return segs[len(segs)-1]
}

// resolveColumn resolves a column ValuePosition in the current scope to
// its server column descriptor and bare physical column name (not yet
// quoted or cast — callers apply the family-specific cast themselves).
func (c *compileCtx) resolveColumn(v ValuePosition) (zqlschema.ServerColumn, string, error) {
	cur := c.current()
	serverCol, err := c.mapper.ColumnName(cur.clientTable, v.ColumnName)
	if err != nil {
		return zqlschema.ServerColumn{}, "", err
	}
	desc, ok := c.currentServerColumn(v.ColumnName)
	if !ok {
		return zqlschema.ServerColumn{}, "", zqlerr.Structural(zqlerr.CodeUnknownColumn, v.ColumnName, "column %q has no server type descriptor", v.ColumnName)
	}
	return desc, serverCol, nil
}
