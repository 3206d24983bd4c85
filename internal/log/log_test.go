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

package log

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestNewLoggerFormats(t *testing.T) {
	tcs := []struct {
		name    string
		format  string
		wantErr bool
	}{
		{"standard", "standard", false},
		{"default empty", "", false},
		{"json", "json", false},
		{"case insensitive", "JSON", false},
		{"unrecognized", "xml", true},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			var out, errW bytes.Buffer
			l, err := NewLogger(tc.format, Info, &out, &errW)
			if tc.wantErr {
				if err == nil {
					t.Fatal("NewLogger() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewLogger() error = %v", err)
			}
			if l == nil {
				t.Fatal("NewLogger() returned nil Logger")
			}
		})
	}
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	var out, errW bytes.Buffer
	if _, err := NewLogger("standard", "TRACE", &out, &errW); err == nil {
		t.Fatal("NewLogger() error = nil, want invalid log level error")
	}
}

func TestSeverityToLevel(t *testing.T) {
	tcs := []struct {
		sev     string
		wantErr bool
	}{
		{Debug, false}, {Info, false}, {Warn, false}, {Error, false},
		{"debug", false}, // case-insensitive
		{"TRACE", true},
	}
	for _, tc := range tcs {
		t.Run(tc.sev, func(t *testing.T) {
			if _, err := SeverityToLevel(tc.sev); (err != nil) != tc.wantErr {
				t.Errorf("SeverityToLevel(%q) error = %v, wantErr %v", tc.sev, err, tc.wantErr)
			}
		})
	}
}

func TestLoggerRoutesBySeverity(t *testing.T) {
	var out, errW bytes.Buffer
	l, err := NewLogger("standard", Debug, &out, &errW)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	ctx := context.Background()
	l.InfoContext(ctx, "info message")
	l.ErrorContext(ctx, "error message")

	if !strings.Contains(out.String(), "info message") {
		t.Errorf("out stream = %q, want to contain info message", out.String())
	}
	if !strings.Contains(errW.String(), "error message") {
		t.Errorf("err stream = %q, want to contain error message", errW.String())
	}
	if strings.Contains(out.String(), "error message") {
		t.Error("out stream should not receive error-level logs")
	}
}
