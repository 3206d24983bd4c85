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

package zqlschema

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadServerSchema(t *testing.T) {
	doc := []byte(`
tables:
  issue:
    id:
      type: uuid
    status:
      type: issue_status
      isEnum: true
`)
	got, err := LoadServerSchema(context.Background(), doc)
	if err != nil {
		t.Fatalf("LoadServerSchema() error = %v", err)
	}
	want := ServerSchema{
		"issue": {
			"id":     {Type: "uuid"},
			"status": {Type: "issue_status", IsEnum: true},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadServerSchema() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadServerSchemaMissingType(t *testing.T) {
	doc := []byte(`
tables:
  issue:
    id:
      isEnum: true
`)
	if _, err := LoadServerSchema(context.Background(), doc); err == nil {
		t.Fatal("LoadServerSchema() error = nil, want validation error for missing type")
	}
}

func TestLoadClientSchema(t *testing.T) {
	doc := []byte(`
tables:
  issue:
    from: issues
    primaryKey: [id]
    columns:
      id:
        serverName: id
      title:
        serverName: title
    relationships:
      comments:
        sourceField: id
        destField: issueId
        destSchema: comments
        cardinality: many
`)
	got, err := LoadClientSchema(context.Background(), doc)
	if err != nil {
		t.Fatalf("LoadClientSchema() error = %v", err)
	}
	want := ClientSchema{
		"issue": {
			From: "issues",
			Columns: map[string]ClientColumn{
				"id":    {ServerName: "id"},
				"title": {ServerName: "title"},
			},
			PrimaryKey: []string{"id"},
			Relationships: map[string]ClientRelationship{
				"comments": {
					SourceField: "id",
					DestField:   "issueId",
					DestSchema:  "comments",
					Cardinality: "many",
				},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadClientSchema() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadClientSchemaMissingPrimaryKey(t *testing.T) {
	doc := []byte(`
tables:
  issue:
    from: issues
    columns:
      id:
        serverName: id
`)
	if _, err := LoadClientSchema(context.Background(), doc); err == nil {
		t.Fatal("LoadClientSchema() error = nil, want validation error for missing primaryKey")
	}
}

func TestLoadClientSchemaInvalidCardinality(t *testing.T) {
	doc := []byte(`
tables:
  issue:
    from: issues
    primaryKey: [id]
    columns:
      id:
        serverName: id
    relationships:
      comments:
        sourceField: id
        destField: issueId
        destSchema: comments
        cardinality: lots
`)
	if _, err := LoadClientSchema(context.Background(), doc); err == nil {
		t.Fatal("LoadClientSchema() error = nil, want validation error for invalid cardinality")
	}
}

func TestLoadServerSchemaMalformedYAML(t *testing.T) {
	if _, err := LoadServerSchema(context.Background(), []byte("tables: [this, is, not, a, map")); err == nil {
		t.Fatal("LoadServerSchema() error = nil, want decode error")
	}
}
