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

package pgexec

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5"

	"github.com/typedrat/zql/internal/compiler"
	"github.com/typedrat/zql/internal/zqlschema"
)

// fakeRow is a pgx.Row stub that hands back a fixed `zql_result` text, so
// the round trip from compiled statement to extracted JSON can be tested
// without a real database.
type fakeRow struct {
	text string
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	ptr, ok := dest[0].(*string)
	if !ok {
		return errors.New("fakeRow: expected *string destination")
	}
	*ptr = r.text
	return nil
}

type fakeQuerier struct {
	row     fakeRow
	gotSQL  string
	gotArgs []any
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.gotSQL = sql
	q.gotArgs = args
	return q.row
}

func testSchemas() (zqlschema.ServerSchema, zqlschema.ClientSchema) {
	server := zqlschema.ServerSchema{
		"issue": {
			"id":    {Type: "uuid"},
			"title": {Type: "text"},
		},
	}
	client := zqlschema.ClientSchema{
		"issue": {
			From: "issue",
			Columns: map[string]zqlschema.ClientColumn{
				"id":    {ServerName: "id"},
				"title": {ServerName: "title"},
			},
			PrimaryKey: []string{"id"},
		},
	}
	return server, client
}

func TestExecutorRun(t *testing.T) {
	server, client := testSchemas()
	q := compiler.Query{Table: "issue"}
	res, err := compiler.Compile(server, client, q, compiler.CompileOptions{})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	fq := &fakeQuerier{row: fakeRow{text: `[{"id":"a","title":"hello"}]`}}
	exec := &Executor{db: fq}

	got, err := exec.Run(context.Background(), res)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []any{map[string]any{"id": "a", "title": "hello"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Run() mismatch (-want +got):\n%s", diff)
	}
	if fq.gotSQL != res.Text {
		t.Errorf("QueryRow sql = %q, want %q", fq.gotSQL, res.Text)
	}
	if diff := cmp.Diff(res.Values, fq.gotArgs); diff != "" {
		t.Errorf("QueryRow args mismatch (-want +got):\n%s", diff)
	}
}

func TestExecutorRunValueOutOfSafeRange(t *testing.T) {
	server, client := testSchemas()
	q := compiler.Query{Table: "issue"}
	res, err := compiler.Compile(server, client, q, compiler.CompileOptions{})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	fq := &fakeQuerier{row: fakeRow{text: `[{"hash":9007199254740993}]`}}
	exec := &Executor{db: fq}

	if _, err := exec.Run(context.Background(), res); err == nil {
		t.Fatal("Run() error = nil, want ValueOutOfSafeRange")
	}
}

func TestExecutorRunDriverError(t *testing.T) {
	server, client := testSchemas()
	q := compiler.Query{Table: "issue"}
	res, err := compiler.Compile(server, client, q, compiler.CompileOptions{})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	fq := &fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}}
	exec := &Executor{db: fq}

	if _, err := exec.Run(context.Background(), res); err == nil {
		t.Fatal("Run() error = nil, want wrapped pgx.ErrNoRows")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("Run() error = %v, want wrapping pgx.ErrNoRows", err)
	}
}
