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

// Package zqlschema holds the server and client schema documents the
// compiler is driven by (spec §3 "Server schema" / "Client schema") and
// the YAML loaders for them, decoupled from the pure compiler package.
package zqlschema

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	yaml "github.com/goccy/go-yaml"
)

var validate = validator.New()

// ServerColumn describes one physical PostgreSQL column, as referenced
// by the coercer (spec §4.3).
type ServerColumn struct {
	Type    string `yaml:"type" validate:"required"`
	IsEnum  bool   `yaml:"isEnum"`
	IsArray bool   `yaml:"isArray"`
}

// ServerTable is the column map for one physical table.
type ServerTable map[string]ServerColumn

// ServerSchema maps a physical table name to its column descriptors.
type ServerSchema map[string]ServerTable

// ServerSchemaDoc is the YAML envelope for a ServerSchema document.
type ServerSchemaDoc struct {
	Tables ServerSchema `yaml:"tables" validate:"required"`
}

// ClientRelationship describes a one- or two-hop relationship from the
// client's point of view (spec §3 "Client schema").
type ClientRelationship struct {
	SourceField string `yaml:"sourceField" validate:"required"`
	DestField   string `yaml:"destField" validate:"required"`
	DestSchema  string `yaml:"destSchema" validate:"required"`
	Cardinality string `yaml:"cardinality" validate:"required,oneof=one many"`
}

// ClientColumn is a client-visible column and its server-side rename.
type ClientColumn struct {
	ServerName string `yaml:"serverName" validate:"required"`
}

// ClientTable is one client-schema table definition.
type ClientTable struct {
	// From is the physical ("server") name this client table maps to.
	// May be schema-qualified, e.g. "alternate_schema.user".
	From          string                        `yaml:"from" validate:"required"`
	Columns       map[string]ClientColumn       `yaml:"columns" validate:"required"`
	PrimaryKey    []string                      `yaml:"primaryKey" validate:"required,min=1"`
	Relationships map[string]ClientRelationship `yaml:"relationships"`
}

// ClientSchema maps client table names to their definitions.
type ClientSchema map[string]ClientTable

// ClientSchemaDoc is the YAML envelope for a ClientSchema document.
type ClientSchemaDoc struct {
	Tables ClientSchema `yaml:"tables" validate:"required"`
}

// LoadServerSchema decodes and validates a server schema document.
func LoadServerSchema(ctx context.Context, r []byte) (ServerSchema, error) {
	var doc ServerSchemaDoc
	dec := yaml.NewDecoder(bytes.NewReader(r))
	if err := dec.DecodeContext(ctx, &doc); err != nil {
		return nil, fmt.Errorf("unable to decode server schema: %w", err)
	}
	if err := validate.StructCtx(ctx, &doc); err != nil {
		return nil, fmt.Errorf("invalid server schema: %w", err)
	}
	return doc.Tables, nil
}

// LoadClientSchema decodes and validates a client schema document.
func LoadClientSchema(ctx context.Context, r []byte) (ClientSchema, error) {
	var doc ClientSchemaDoc
	dec := yaml.NewDecoder(bytes.NewReader(r))
	if err := dec.DecodeContext(ctx, &doc); err != nil {
		return nil, fmt.Errorf("unable to decode client schema: %w", err)
	}
	if err := validate.StructCtx(ctx, &doc); err != nil {
		return nil, fmt.Errorf("invalid client schema: %w", err)
	}
	return doc.Tables, nil
}
