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
	"strings"

	"github.com/typedrat/zql/internal/zqlerr"
	"github.com/typedrat/zql/internal/zqlschema"
)

// nameMapper is the bidirectional client↔server identifier translator
// (spec §4.2). Every identifier the compiler emits flows through a
// nameMapper; the compiler never emits a raw client name as a table or
// column reference.
type nameMapper struct {
	schema zqlschema.ClientSchema

	// serverTableToClient inverts schema[client].From -> client, backing
	// the serverToClient direction (ServerToClientTable).
	serverTableToClient map[string]string
}

func newNameMapper(schema zqlschema.ClientSchema) *nameMapper {
	inv := make(map[string]string, len(schema))
	for client, tbl := range schema {
		inv[tbl.From] = client
	}
	return &nameMapper{schema: schema, serverTableToClient: inv}
}

// TableName returns the physical name for a client table, split on the
// schema qualifier if one is present (e.g. "alt.user" -> ["alt", "user"]).
func (m *nameMapper) TableName(client string) ([]string, error) {
	tbl, ok := m.schema[client]
	if !ok {
		return nil, zqlerr.Structural(zqlerr.CodeUnknownTable, client, "unknown table %q", client)
	}
	return splitQualified(tbl.From), nil
}

// ColumnName returns the physical column name for a client column of a
// client table.
func (m *nameMapper) ColumnName(client, clientCol string) (string, error) {
	tbl, ok := m.schema[client]
	if !ok {
		return "", zqlerr.Structural(zqlerr.CodeUnknownTable, client, "unknown table %q", client)
	}
	col, ok := tbl.Columns[clientCol]
	if !ok {
		return "", zqlerr.Structural(zqlerr.CodeUnknownColumn, client+"."+clientCol, "unknown column %q on table %q", clientCol, client)
	}
	return col.ServerName, nil
}

// Table looks up the full client-schema table definition, for callers
// that need the primary key or relationship list.
func (m *nameMapper) Table(client string) (zqlschema.ClientTable, error) {
	tbl, ok := m.schema[client]
	if !ok {
		return zqlschema.ClientTable{}, zqlerr.Structural(zqlerr.CodeUnknownTable, client, "unknown table %q", client)
	}
	return tbl, nil
}

// ServerToClientTable is the inverse direction. It is not consulted
// during SQL emission, and the extractor does not call it either: the
// extracted JSON already carries client names.
func (m *nameMapper) ServerToClientTable(server string) (string, bool) {
	c, ok := m.serverTableToClient[server]
	return c, ok
}

// splitQualified splits a possibly schema-qualified physical name on the
// first '.', returning one or two segments.
func splitQualified(name string) []string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return []string{name[:i], name[i+1:]}
	}
	return []string{name}
}
