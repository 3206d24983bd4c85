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

// Package pgexec is the thin driver adapter that runs a compiler.Result
// against a live PostgreSQL connection and hands its single `zql_result`
// column to the extractor. It is the external collaborator spec §1
// describes: the compiler itself never imports this package.
package pgexec

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/typedrat/zql/internal/compiler"
	"github.com/typedrat/zql/internal/extractor"
)

// Config names the connection parameters for the target database,
// mirroring the teacher's internal/sources/postgres.Config shape.
type Config struct {
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
	QueryParams map[string]string
}

// Connect opens a pgxpool.Pool for cfg and verifies it with a Ping.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	qp := make(map[string]string, len(cfg.QueryParams)+1)
	for k, v := range cfg.QueryParams {
		qp[k] = v
	}
	if cfg.SSLMode != "" {
		if _, ok := qp["sslmode"]; !ok {
			qp["sslmode"] = cfg.SSLMode
		}
	}

	connURL := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Path:     cfg.Database,
		RawQuery: convertParamMapToRawQuery(qp),
	}
	pool, err := pgxpool.New(ctx, connURL.String())
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to connect successfully: %w", err)
	}
	return pool, nil
}

func convertParamMapToRawQuery(queryParams map[string]string) string {
	if len(queryParams) == 0 {
		return ""
	}
	keys := make([]string, 0, len(queryParams))
	for k := range queryParams {
		if queryParams[k] != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	values := url.Values{}
	for _, k := range keys {
		values.Set(k, queryParams[k])
	}
	return values.Encode()
}

// rowQuerier is the slice of *pgxpool.Pool this package actually calls;
// tests substitute a fake that never opens a socket.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Executor runs compiled statements against a single pool (or fake) and
// extracts their scalar JSON result.
type Executor struct {
	db rowQuerier
}

// NewExecutor wraps an already-connected pool.
func NewExecutor(pool *pgxpool.Pool) *Executor {
	return &Executor{db: pool}
}

// Run executes a compiled statement and extracts its `zql_result` column
// into a plain JSON value (spec §6.1, §6.2). The compiler guarantees
// exactly one row; a driver that returns zero rows is a contract
// violation and surfaces as the underlying pgx.ErrNoRows.
func (e *Executor) Run(ctx context.Context, res compiler.Result) (any, error) {
	var raw string
	if err := e.db.QueryRow(ctx, res.Text, res.Values...).Scan(&raw); err != nil {
		return nil, fmt.Errorf("executing compiled statement: %w", err)
	}
	v, err := extractor.Extract(raw)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// RunText is Run's convenience form for callers (the CLI) that want the
// re-serialized JSON text rather than a decoded Go value.
func (e *Executor) RunText(ctx context.Context, res compiler.Result) (string, error) {
	var raw string
	if err := e.db.QueryRow(ctx, res.Text, res.Values...).Scan(&raw); err != nil {
		return "", fmt.Errorf("executing compiled statement: %w", err)
	}
	return extractor.String(raw)
}
