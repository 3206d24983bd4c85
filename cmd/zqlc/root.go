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

// Package zqlc is the zqlc CLI: compile a query AST against a schema
// pair into SQL, and optionally run it against a live PostgreSQL
// database.
package zqlc

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/typedrat/zql/internal/log"
)

// Execute adds all child commands to the root command and runs it. It is
// called once by main.main.
func Execute() {
	if err := NewCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// Command represents an invocation of the CLI, mirroring the teacher's
// cmd.Command: it embeds *cobra.Command and carries the streams and
// shared flags every subcommand reads.
type Command struct {
	*cobra.Command

	logLevel  string
	logFormat string
	logger    log.Logger
	outStream io.Writer
	errStream io.Writer

	// requestID tags every log line emitted by this invocation, so
	// concurrent runs in JSON-log-collection pipelines can be
	// correlated back to a single `zqlc` call.
	requestID string
}

// NewCommand returns a Command wired with the compile and run
// subcommands.
func NewCommand() *Command {
	baseCmd := &cobra.Command{
		Use:           "zqlc",
		Short:         "Compile and run ZQL-style relational queries against PostgreSQL",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd := &Command{
		Command:   baseCmd,
		outStream: os.Stdout,
		errStream: os.Stderr,
	}
	baseCmd.SetOut(cmd.outStream)
	baseCmd.SetErr(cmd.errStream)

	flags := cmd.PersistentFlags()
	flags.StringVar(&cmd.logLevel, "log-level", log.Info, "Minimum level logged: DEBUG, INFO, WARN, ERROR.")
	flags.StringVar(&cmd.logFormat, "logging-format", "standard", "Logging format: standard or JSON.")

	cmd.AddCommand(newCompileCommand(cmd))
	cmd.AddCommand(newRunCommand(cmd))

	return cmd
}

// initLogger lazily builds cmd.logger from the parsed flags; subcommands
// call this in their RunE before doing any work.
func (cmd *Command) initLogger() error {
	logger, err := log.NewLogger(cmd.logFormat, cmd.logLevel, cmd.outStream, cmd.errStream)
	if err != nil {
		return err
	}
	cmd.logger = logger
	cmd.requestID = uuid.NewString()
	return nil
}
