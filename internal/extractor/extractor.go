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

// Package extractor parses the single `zql_result` column the compiled
// query returns into a plain JSON value, guarding against integers
// outside the safe double-precision range (spec §6.2).
package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/typedrat/zql/internal/zqlerr"
)

// maxSafeInt and minSafeInt bound the integers a JSON number can carry
// without silent precision loss when decoded as a float64 (spec §6.2,
// matching JS's Number.MAX_SAFE_INTEGER / MIN_SAFE_INTEGER).
const (
	maxSafeInt = 1<<53 - 1
	minSafeInt = -(1<<53 - 1)
)

// Extract parses raw (the driver's `zql_result` column text) and returns
// it as a plain Go JSON value (map[string]any / []any / string / float64
// / bool / nil), rejecting any integer that falls outside the safe
// range. The returned error, when non-nil, is always a *zqlerr.ResultError
// with a path like `[2]['comments'][1]['hash']` naming the offending
// value (spec §6.2).
func Extract(raw string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, zqlerr.Result(zqlerr.CodeInvalidLiteral, "", "cannot parse result JSON: %v", err)
	}
	return walk(v, "")
}

// walk recursively converts json.Number leaves to float64, checking the
// safe-integer range at each one, and rebuilds maps/slices with the
// converted leaves in place.
func walk(v any, path string) (any, error) {
	switch x := v.(type) {
	case json.Number:
		return checkNumber(x, path)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, child := range x {
			converted, err := walk(child, path+"['"+k+"']")
			if err != nil {
				return nil, err
			}
			out[k] = converted
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, child := range x {
			converted, err := walk(child, path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	default:
		return v, nil
	}
}

// checkNumber rejects an integral json.Number outside the safe
// double-precision range and otherwise returns its float64 value.
// Non-integral numbers (those with a fraction or exponent) are never
// bigints and pass through unchecked.
func checkNumber(n json.Number, path string) (any, error) {
	s := n.String()
	if isIntegral(s) {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			if i > maxSafeInt || i < minSafeInt {
				return nil, zqlerr.Result(zqlerr.CodeValueOutOfSafeRange, path, "%s", s)
			}
		} else {
			// Too large even for int64: definitely unsafe.
			return nil, zqlerr.Result(zqlerr.CodeValueOutOfSafeRange, path, "%s", s)
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, zqlerr.Result(zqlerr.CodeInvalidLiteral, path, "cannot parse number %q: %v", s, err)
	}
	if math.IsInf(f, 0) {
		return nil, zqlerr.Result(zqlerr.CodeValueOutOfSafeRange, path, "%s", s)
	}
	return f, nil
}

// isIntegral reports whether s (a json.Number's canonical text) has no
// fraction or exponent part, i.e. is a plain integer literal.
func isIntegral(s string) bool {
	s = strings.TrimPrefix(s, "-")
	return !strings.ContainsAny(s, ".eE")
}

// String is a convenience for callers that want the re-serialized,
// safety-checked JSON text rather than the decoded Go value (e.g. the
// CLI's `run` output, via pgexec's RunText).
func String(raw string) (string, error) {
	v, err := Extract(raw)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("re-encoding extracted result: %w", err)
	}
	return string(b), nil
}
