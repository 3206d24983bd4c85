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

package compiler

import (
	"testing"

	"github.com/typedrat/zql/internal/zqlschema"
)

func TestClassify(t *testing.T) {
	tcs := []struct {
		name string
		col  zqlschema.ServerColumn
		want pgFamily
	}{
		{"enum wins over type", zqlschema.ServerColumn{Type: "text", IsEnum: true}, famEnum},
		{"uuid", zqlschema.ServerColumn{Type: "uuid"}, famUUID},
		{"timestamptz", zqlschema.ServerColumn{Type: "timestamptz"}, famTimestampTZ},
		{"timestamp without time zone", zqlschema.ServerColumn{Type: "timestamp without time zone"}, famTimestamp},
		{"jsonb", zqlschema.ServerColumn{Type: "jsonb"}, famJSON},
		{"boolean", zqlschema.ServerColumn{Type: "boolean"}, famBoolean},
		{"varchar", zqlschema.ServerColumn{Type: "varchar"}, famText},
		{"bigint", zqlschema.ServerColumn{Type: "int8"}, famNumeric},
		{"unrecognized type", zqlschema.ServerColumn{Type: "tsvector"}, famOther},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			if got := classify(tc.col); got != tc.want {
				t.Errorf("classify(%+v) = %v, want %v", tc.col, got, tc.want)
			}
		})
	}
}

func TestCoerceLiteralText(t *testing.T) {
	c := &compileCtx{}
	frag, err := c.coerceLiteral(StringLit("hello"), famText)
	if err != nil {
		t.Fatalf("coerceLiteral() error = %v", err)
	}
	text, vals := frag.finalize()
	if text != `$1::text COLLATE "ucs_basic"` {
		t.Errorf("coerceLiteral() text = %q", text)
	}
	if len(vals) != 1 || vals[0] != "hello" {
		t.Errorf("coerceLiteral() values = %v, want [hello]", vals)
	}
}

func TestCoerceLiteralNullText(t *testing.T) {
	// Scenario D (spec §8): IS against null on a text-family column
	// casts and collates the literal side, not a bare parameter.
	c := &compileCtx{}
	frag, err := c.coerceLiteral(NullLit(), famText)
	if err != nil {
		t.Fatalf("coerceLiteral() error = %v", err)
	}
	text, vals := frag.finalize()
	if want := `$1::text COLLATE "ucs_basic"`; text != want {
		t.Errorf("coerceLiteral(null) text = %q, want %q", text, want)
	}
	if len(vals) != 1 || vals[0] != nil {
		t.Errorf("coerceLiteral(null) values = %v, want [nil]", vals)
	}
}

func TestCoerceLiteralNullNumeric(t *testing.T) {
	c := &compileCtx{}
	frag, err := c.coerceLiteral(NullLit(), famNumeric)
	if err != nil {
		t.Fatalf("coerceLiteral() error = %v", err)
	}
	text, vals := frag.finalize()
	if want := `$1::text::double precision`; text != want {
		t.Errorf("coerceLiteral(null) text = %q, want %q", text, want)
	}
	if len(vals) != 1 || vals[0] != nil {
		t.Errorf("coerceLiteral(null) values = %v, want [nil]", vals)
	}
}

func TestCoerceLiteralTimestampTZ(t *testing.T) {
	c := &compileCtx{}
	frag, err := c.coerceLiteral(NumberLit(1700000000000), famTimestampTZ)
	if err != nil {
		t.Fatalf("coerceLiteral() error = %v", err)
	}
	text, vals := frag.finalize()
	want := `to_timestamp($1::text::bigint / 1000.0)`
	if text != want {
		t.Errorf("coerceLiteral() text = %q, want %q", text, want)
	}
	if len(vals) != 1 || vals[0] != "1700000000000" {
		t.Errorf("coerceLiteral() values = %v", vals)
	}
}

func TestCoerceLiteralTimestampNoTZ(t *testing.T) {
	c := &compileCtx{}
	frag, err := c.coerceLiteral(NumberLit(1700000000000), famTimestamp)
	if err != nil {
		t.Fatalf("coerceLiteral() error = %v", err)
	}
	text, _ := frag.finalize()
	want := `to_timestamp($1::text::bigint / 1000.0) AT TIME ZONE 'UTC'`
	if text != want {
		t.Errorf("coerceLiteral() text = %q, want %q", text, want)
	}
}

func TestCoerceLiteralNumeric(t *testing.T) {
	c := &compileCtx{}
	frag, err := c.coerceLiteral(NumberLit(3.5), famNumeric)
	if err != nil {
		t.Fatalf("coerceLiteral() error = %v", err)
	}
	text, vals := frag.finalize()
	if text != `$1::text::double precision` {
		t.Errorf("coerceLiteral() text = %q", text)
	}
	if vals[0] != "3.5" {
		t.Errorf("coerceLiteral() values = %v, want [3.5]", vals)
	}
}

func TestCoerceLiteralJSON(t *testing.T) {
	c := &compileCtx{}
	frag, err := c.coerceLiteral(ArrayLit(NumberLit(1), StringLit("a")), famJSON)
	if err != nil {
		t.Fatalf("coerceLiteral() error = %v", err)
	}
	text, vals := frag.finalize()
	if text != `$1::text::jsonb` {
		t.Errorf("coerceLiteral() text = %q", text)
	}
	if vals[0] != `[1,"a"]` {
		t.Errorf("coerceLiteral() values = %v, want [1,\"a\"]", vals)
	}
}

func TestCoerceLiteralBooleanRejectsNonBoolean(t *testing.T) {
	c := &compileCtx{}
	if _, err := c.coerceLiteral(StringLit("true"), famBoolean); err == nil {
		t.Fatal("coerceLiteral() error = nil, want type coercion error")
	}
}

func TestCoerceArrayLiteral(t *testing.T) {
	c := &compileCtx{}
	frag, err := c.coerceArrayLiteral(ArrayLit(StringLit("a"), StringLit("b")))
	if err != nil {
		t.Fatalf("coerceArrayLiteral() error = %v", err)
	}
	text, vals := frag.finalize()
	if text != `$1::text::jsonb` {
		t.Errorf("coerceArrayLiteral() text = %q", text)
	}
	if vals[0] != `["a","b"]` {
		t.Errorf("coerceArrayLiteral() values = %v", vals)
	}
}

func TestClassifyLiteral(t *testing.T) {
	tcs := []struct {
		name string
		lit  Literal
		want pgFamily
	}{
		{"string", StringLit("x"), famText},
		{"number", NumberLit(1), famNumeric},
		{"boolean", BoolLit(true), famBoolean},
		{"non-empty array takes element family", ArrayLit(NumberLit(1)), famNumeric},
		{"empty array defaults to text", ArrayLit(), famText},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyLiteral(tc.lit); got != tc.want {
				t.Errorf("classifyLiteral(%+v) = %v, want %v", tc.lit, got, tc.want)
			}
		})
	}
}
