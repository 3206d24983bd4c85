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

package extractor

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/typedrat/zql/internal/zqlerr"
)

func TestExtractScalarsAndStructures(t *testing.T) {
	got, err := Extract(`[{"id":"a","count":3,"ok":true,"tags":null}]`)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := []any{
		map[string]any{"id": "a", "count": float64(3), "ok": true, "tags": nil},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractSafeRangeBoundaries(t *testing.T) {
	tcs := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"max safe int", `9007199254740991`, false},
		{"min safe int", `-9007199254740991`, false},
		{"one past max", `9007199254740992`, true},
		{"one before min", `-9007199254740992`, true},
		{"far beyond int64", `99999999999999999999999999999`, true},
		{"fractional near boundary passes through unchecked", `9007199254740992.5`, false},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Extract(tc.raw)
			if (err != nil) != tc.wantErr {
				t.Errorf("Extract(%s) error = %v, wantErr %v", tc.raw, err, tc.wantErr)
			}
			if err != nil {
				if _, ok := err.(*zqlerr.ResultError); !ok {
					t.Errorf("Extract(%s) error type = %T, want *zqlerr.ResultError", tc.raw, err)
				}
			}
		})
	}
}

func TestExtractMalformedJSON(t *testing.T) {
	if _, err := Extract(`{not json`); err == nil {
		t.Fatal("Extract() error = nil, want parse error")
	}
}

func TestExtractPathNamesOffendingValue(t *testing.T) {
	_, err := Extract(`[{"comments":[{"hash":9007199254740993}]}]`)
	if err == nil {
		t.Fatal("Extract() error = nil, want safe-range error")
	}
	re, ok := err.(*zqlerr.ResultError)
	if !ok {
		t.Fatalf("Extract() error type = %T, want *zqlerr.ResultError", err)
	}
	want := "[0]['comments'][0]['hash']"
	if re.Path != want {
		t.Errorf("Extract() error path = %q, want %q", re.Path, want)
	}
}

func TestStringReencodesSafeResult(t *testing.T) {
	got, err := String(`[{"id":"a","n":1}]`)
	if err != nil {
		t.Fatalf("String() error = %v", err)
	}
	want := `[{"id":"a","n":1}]`
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestStringPropagatesUnsafeError(t *testing.T) {
	if _, err := String(`9007199254740993`); err == nil {
		t.Fatal("String() error = nil, want safe-range error")
	}
}
