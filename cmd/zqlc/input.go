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

package zqlc

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/typedrat/zql/internal/compiler"
	"github.com/typedrat/zql/internal/zqlschema"
)

// loadSchemas reads and validates the server and client schema YAML
// documents at the given paths.
func loadSchemas(ctx context.Context, serverPath, clientPath string) (zqlschema.ServerSchema, zqlschema.ClientSchema, error) {
	serverRaw, err := os.ReadFile(serverPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading server schema %q: %w", serverPath, err)
	}
	server, err := zqlschema.LoadServerSchema(ctx, serverRaw)
	if err != nil {
		return nil, nil, fmt.Errorf("loading server schema %q: %w", serverPath, err)
	}

	clientRaw, err := os.ReadFile(clientPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading client schema %q: %w", clientPath, err)
	}
	client, err := zqlschema.LoadClientSchema(ctx, clientRaw)
	if err != nil {
		return nil, nil, fmt.Errorf("loading client schema %q: %w", clientPath, err)
	}
	return server, client, nil
}

// loadQuery decodes a JSON-encoded compiler.Query from the given path.
func loadQuery(path string) (compiler.Query, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return compiler.Query{}, fmt.Errorf("reading query %q: %w", path, err)
	}
	var q compiler.Query
	if err := json.Unmarshal(raw, &q); err != nil {
		return compiler.Query{}, fmt.Errorf("parsing query %q: %w", path, err)
	}
	return q, nil
}
