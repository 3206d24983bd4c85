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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/typedrat/zql/internal/pgexec"
)

type runFlags struct {
	compileFlags

	host     string
	port     string
	user     string
	password string
	database string
	sslMode  string
}

func newRunCommand(root *Command) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compile a query AST and execute it against a live PostgreSQL database",
		RunE: func(cc *cobra.Command, args []string) error {
			return runRun(root, f)
		},
	}
	bindSchemaFlags(cmd, &f.serverSchema, &f.clientSchema, &f.queryFile)
	cmd.Flags().BoolVar(&f.singular, "singular", false, "Compile for a scalar (singular) result instead of an array.")

	cmd.Flags().StringVar(&f.host, "host", "127.0.0.1", "Database host.")
	cmd.Flags().StringVar(&f.port, "port", "5432", "Database port.")
	cmd.Flags().StringVar(&f.user, "user", "", "Database user.")
	cmd.Flags().StringVar(&f.password, "password", "", "Database password.")
	cmd.Flags().StringVar(&f.database, "database", "", "Database name.")
	cmd.Flags().StringVar(&f.sslMode, "sslmode", "", "sslmode query parameter (disable, require, verify-full, ...).")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("database")

	return cmd
}

func runRun(root *Command, f *runFlags) error {
	if err := root.initLogger(); err != nil {
		return err
	}

	ctx := root.Context()
	res, err := compileFromFlags(root, &f.compileFlags)
	if err != nil {
		return err
	}
	root.logger.InfoContext(ctx, "compiled statement", "requestId", root.requestID, "params", len(res.Values))

	pool, err := pgexec.Connect(ctx, pgexec.Config{
		Host:     f.host,
		Port:     f.port,
		User:     f.user,
		Password: f.password,
		Database: f.database,
		SSLMode:  f.sslMode,
	})
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	text, err := pgexec.NewExecutor(pool).RunText(ctx, res)
	if err != nil {
		root.logger.ErrorContext(ctx, "run failed", "requestId", root.requestID, "error", err)
		return fmt.Errorf("running compiled statement: %w", err)
	}
	fmt.Fprintln(root.OutOrStdout(), text)
	return nil
}
