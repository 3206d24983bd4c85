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
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/typedrat/zql/internal/compiler"
)

type compileFlags struct {
	serverSchema string
	clientSchema string
	queryFile    string
	singular     bool
	explain      bool
}

func newCompileCommand(root *Command) *cobra.Command {
	f := &compileFlags{}
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a query AST into a parameterized PostgreSQL statement",
		RunE: func(cc *cobra.Command, args []string) error {
			return runCompile(root, f)
		},
	}
	bindSchemaFlags(cmd, &f.serverSchema, &f.clientSchema, &f.queryFile)
	cmd.Flags().BoolVar(&f.singular, "singular", false, "Compile for a scalar (singular) result instead of an array.")
	cmd.Flags().BoolVar(&f.explain, "explain", false, "Also print the alias tree the relationship compiler produced.")
	return cmd
}

func bindSchemaFlags(cmd *cobra.Command, serverSchema, clientSchema, queryFile *string) {
	cmd.Flags().StringVar(serverSchema, "server-schema", "", "Path to the server schema YAML document.")
	cmd.Flags().StringVar(clientSchema, "client-schema", "", "Path to the client schema YAML document.")
	cmd.Flags().StringVar(queryFile, "query", "", "Path to the JSON-encoded query AST.")
	_ = cmd.MarkFlagRequired("server-schema")
	_ = cmd.MarkFlagRequired("client-schema")
	_ = cmd.MarkFlagRequired("query")
}

func compileFromFlags(root *Command, f *compileFlags) (compiler.Result, error) {
	ctx := root.Context()
	server, client, err := loadSchemas(ctx, f.serverSchema, f.clientSchema)
	if err != nil {
		return compiler.Result{}, err
	}
	q, err := loadQuery(f.queryFile)
	if err != nil {
		return compiler.Result{}, err
	}
	opts := compiler.CompileOptions{Format: compiler.OutputFormat{Singular: f.singular}}
	return compiler.Compile(server, client, q, opts)
}

func runCompile(root *Command, f *compileFlags) error {
	if err := root.initLogger(); err != nil {
		return err
	}
	ctx := root.Context()
	root.logger.InfoContext(ctx, "compiling query", "requestId", root.requestID, "query", f.queryFile)

	res, err := compileFromFlags(root, f)
	if err != nil {
		root.logger.ErrorContext(ctx, "compile failed", "requestId", root.requestID, "error", err)
		return err
	}
	root.logger.InfoContext(ctx, "compiled query", "requestId", root.requestID, "params", len(res.Values))

	out := root.OutOrStdout()
	fmt.Fprintln(out, res.Text)
	if len(res.Values) > 0 {
		valuesJSON, err := json.Marshal(res.Values)
		if err != nil {
			return fmt.Errorf("encoding parameter values: %w", err)
		}
		fmt.Fprintf(out, "-- values: %s\n", valuesJSON)
	}
	if f.explain {
		fmt.Fprintln(out, "-- aliases:")
		for _, alias := range explainAliases(res.Text) {
			fmt.Fprintf(out, "--   %s\n", alias)
		}
	}
	return nil
}

// aliasPattern matches the double-quoted aliases the relationship
// compiler gives its subqueries and tables: `) "root"` and
// `) "inner_<key>"` after a parenthesized subquery, and per-table
// aliases like "issue_0" after `FROM`/`JOIN <table> AS`. Column output
// names (`"col" AS "name"`) are not matched.
var aliasPattern = regexp.MustCompile(`(?:(?:FROM|JOIN) (?:"(?:[^"]|"")*"\.)?"(?:[^"]|"")*" AS |\) )"([^"]+)"`)

// explainAliases extracts, in first-use order, every alias the compiled
// statement introduces, giving operators a readable view of the
// relationship tree without instrumenting the pure compiler itself.
func explainAliases(sql string) []string {
	matches := aliasPattern.FindAllStringSubmatch(sql, -1)
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		alias := m[1]
		if seen[alias] {
			continue
		}
		seen[alias] = true
		out = append(out, alias)
	}
	return out
}
