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

// Package log provides the structured logger used by the CLI and the
// optional execution path. The compiler package itself never imports
// this package: compilation is pure (spec §5) and has nothing to log.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	Debug = "DEBUG"
	Info  = "INFO"
	Warn  = "WARN"
	Error = "ERROR"
)

// Logger is the minimal surface the CLI depends on, so call sites don't
// need to know whether they're writing text or JSON lines.
type Logger interface {
	DebugContext(ctx context.Context, msg string, keysAndValues ...any)
	InfoContext(ctx context.Context, msg string, keysAndValues ...any)
	WarnContext(ctx context.Context, msg string, keysAndValues ...any)
	ErrorContext(ctx context.Context, msg string, keysAndValues ...any)
}

// NewLogger creates a new logger based on the provided format and level.
func NewLogger(format, level string, out, err io.Writer) (Logger, error) {
	switch strings.ToLower(format) {
	case "json":
		return newStructuredLogger(out, err, level)
	case "standard", "":
		return newStdLogger(out, err, level)
	default:
		return nil, fmt.Errorf("logging format invalid: %s", format)
	}
}

// SeverityToLevel returns the slog level for a severity string.
func SeverityToLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(s) {
	case Debug:
		return slog.LevelDebug, nil
	case Info:
		return slog.LevelInfo, nil
	case Warn:
		return slog.LevelWarn, nil
	case Error:
		return slog.LevelError, nil
	default:
		return slog.Level(0), fmt.Errorf("invalid log level: %q", s)
	}
}

type splitLogger struct {
	outLogger *slog.Logger
	errLogger *slog.Logger
}

func (sl *splitLogger) DebugContext(ctx context.Context, msg string, kv ...any) {
	sl.outLogger.DebugContext(ctx, msg, kv...)
}

func (sl *splitLogger) InfoContext(ctx context.Context, msg string, kv ...any) {
	sl.outLogger.InfoContext(ctx, msg, kv...)
}

func (sl *splitLogger) WarnContext(ctx context.Context, msg string, kv ...any) {
	sl.errLogger.WarnContext(ctx, msg, kv...)
}

func (sl *splitLogger) ErrorContext(ctx context.Context, msg string, kv ...any) {
	sl.errLogger.ErrorContext(ctx, msg, kv...)
}

func levelVar(logLevel string) (*slog.LevelVar, error) {
	lvl, err := SeverityToLevel(logLevel)
	if err != nil {
		return nil, err
	}
	v := new(slog.LevelVar)
	v.Set(lvl)
	return v, nil
}

// newStdLogger creates a Logger that writes plain text lines.
func newStdLogger(outW, errW io.Writer, logLevel string) (Logger, error) {
	programLevel, err := levelVar(logLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: programLevel}
	return &splitLogger{
		outLogger: slog.New(slog.NewTextHandler(outW, opts)),
		errLogger: slog.New(slog.NewTextHandler(errW, opts)),
	}, nil
}

// newStructuredLogger creates a Logger that writes JSON lines.
func newStructuredLogger(outW, errW io.Writer, logLevel string) (Logger, error) {
	programLevel, err := levelVar(logLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: programLevel}
	return &splitLogger{
		outLogger: slog.New(slog.NewJSONHandler(outW, opts)),
		errLogger: slog.New(slog.NewJSONHandler(errW, opts)),
	}, nil
}
