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
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/typedrat/zql/internal/zqlerr"
	"github.com/typedrat/zql/internal/zqlschema"
)

// pgFamily classifies a physical PostgreSQL type into the families the
// coercer switches on (spec §4.3).
type pgFamily int

const (
	famText pgFamily = iota
	famUUID
	famEnum
	famNumeric
	famTimestampTZ
	famTimestamp
	famJSON
	famBoolean
	famOther
)

var textFamilyTypes = map[string]bool{
	"text": true, "varchar": true, "character varying": true,
	"bpchar": true, "char": true, "citext": true,
}

var numericFamilyTypes = map[string]bool{
	"int2": true, "int4": true, "int8": true, "smallint": true, "integer": true, "bigint": true,
	"numeric": true, "decimal": true, "float4": true, "float8": true, "real": true,
	"double precision": true, "serial": true, "serial2": true, "serial4": true, "serial8": true,
	"smallserial": true, "bigserial": true,
}

func classify(col zqlschema.ServerColumn) pgFamily {
	if col.IsEnum {
		return famEnum
	}
	switch col.Type {
	case "uuid":
		return famUUID
	case "timestamp with time zone", "timestamptz":
		return famTimestampTZ
	case "timestamp without time zone", "timestamp":
		return famTimestamp
	case "jsonb", "json":
		return famJSON
	case "boolean", "bool":
		return famBoolean
	}
	if textFamilyTypes[col.Type] {
		return famText
	}
	if numericFamilyTypes[col.Type] {
		return famNumeric
	}
	return famOther
}

// classifyLiteral derives a family for a literal-vs-literal comparison,
// per spec §4.3 "When the counterpart is itself a literal". An empty
// array takes its element family from the other side at the call site;
// the caller resolves that before invoking classifyLiteral.
func classifyLiteral(lit Literal) pgFamily {
	switch lit.Kind {
	case LitString:
		return famText
	case LitNumber:
		return famNumeric
	case LitBoolean:
		return famBoolean
	case LitArray:
		if len(lit.Array) > 0 {
			return classifyLiteral(lit.Array[0])
		}
		// Empty array defaults to string element type when compared to
		// null or another empty array (spec §4.3).
		return famText
	default:
		return famText
	}
}

// coerceColumnRef emits a column reference, cast and collated per fam for
// ordinary comparisons. IS/IS NOT compare raw values (spec §4.4, scenario
// D in §8): the column side is left bare and forIsComparison suppresses
// the cast/collation, which moves instead to the literal side via
// coerceLiteral's null handling below.
func (c *compileCtx) coerceColumnRef(tableAlias, serverCol string, fam pgFamily, forIsComparison bool) fragment {
	col := ident(tableAlias, serverCol)
	if forIsComparison {
		return col
	}
	switch fam {
	case famText:
		return cat(col, raw(` COLLATE "ucs_basic"`))
	case famUUID, famEnum:
		return cat(col, raw(`::text COLLATE "ucs_basic"`))
	default:
		return col
	}
}

// coerceLiteral binds lit as a parameter, casting it according to fam,
// following spec §4.3 exactly. A null literal receives the same
// family-specific cast as a non-null one (scenario D in spec §8: `IS`
// against null on a text column emits `$1::text COLLATE "ucs_basic"`
// with values = [null]) rather than being bound as a bare, uncast
// parameter.
func (c *compileCtx) coerceLiteral(lit Literal, fam pgFamily) (fragment, error) {
	switch fam {
	case famText, famUUID, famEnum:
		if lit.Kind == LitNull {
			return cat(value(nil), raw(`::text COLLATE "ucs_basic"`)), nil
		}
		s, err := literalAsString(lit)
		if err != nil {
			return fragment{}, err
		}
		return cat(value(s), raw(`::text COLLATE "ucs_basic"`)), nil
	case famNumeric:
		if lit.Kind == LitNull {
			return cat(value(nil), raw(`::text::double precision`)), nil
		}
		s, err := literalAsNumericString(lit)
		if err != nil {
			return fragment{}, err
		}
		return cat(value(s), raw(`::text::double precision`)), nil
	case famBoolean:
		if lit.Kind == LitNull {
			return value(nil), nil
		}
		if lit.Kind != LitBoolean {
			return fragment{}, zqlerr.TypeCoercion(zqlerr.CodeInvalidLiteral, "expected boolean literal, got %v", lit.Kind)
		}
		return value(lit.Bool), nil
	case famTimestampTZ:
		if lit.Kind == LitNull {
			return cat(raw("to_timestamp("), value(nil), raw("::text::bigint / 1000.0)")), nil
		}
		ms, err := literalAsEpochMillis(lit)
		if err != nil {
			return fragment{}, err
		}
		return cat(raw("to_timestamp("), value(ms), raw("::text::bigint / 1000.0)")), nil
	case famTimestamp:
		if lit.Kind == LitNull {
			return cat(raw("to_timestamp("), value(nil), raw("::text::bigint / 1000.0) AT TIME ZONE 'UTC'")), nil
		}
		ms, err := literalAsEpochMillis(lit)
		if err != nil {
			return fragment{}, err
		}
		return cat(raw("to_timestamp("), value(ms), raw("::text::bigint / 1000.0) AT TIME ZONE 'UTC'")), nil
	case famJSON:
		if lit.Kind == LitNull {
			return cat(value(nil), raw("::text::jsonb")), nil
		}
		b, err := json.Marshal(literalToJSONValue(lit))
		if err != nil {
			return fragment{}, zqlerr.TypeCoercion(zqlerr.CodeInvalidLiteral, "cannot JSON-encode literal: %v", err)
		}
		return cat(value(string(b)), raw("::text::jsonb")), nil
	default:
		if lit.Kind == LitNull {
			return value(nil), nil
		}
		s, err := literalAsString(lit)
		if err != nil {
			return fragment{}, err
		}
		return value(s), nil
	}
}

// literalAsString renders a scalar literal's text form for parameters
// that are bound as text (spec §9 "No implicit numeric casts").
func literalAsString(lit Literal) (string, error) {
	switch lit.Kind {
	case LitString:
		return lit.Str, nil
	case LitNumber:
		return formatNumber(lit.Num), nil
	case LitBoolean:
		if lit.Bool {
			return "true", nil
		}
		return "false", nil
	default:
		return "", zqlerr.TypeCoercion(zqlerr.CodeInvalidLiteral, "cannot render literal of kind %v as text", lit.Kind)
	}
}

func literalAsNumericString(lit Literal) (string, error) {
	if lit.Kind != LitNumber {
		return "", zqlerr.TypeCoercion(zqlerr.CodeInvalidLiteral, "expected numeric literal, got %v", lit.Kind)
	}
	return formatNumber(lit.Num), nil
}

// literalAsEpochMillis validates and renders a timestamp literal, which
// the AST carries as milliseconds-since-epoch (spec §4.3).
func literalAsEpochMillis(lit Literal) (string, error) {
	if lit.Kind != LitNumber {
		return "", zqlerr.TypeCoercion(zqlerr.CodeInvalidLiteral, "expected epoch-millis numeric literal, got %v", lit.Kind)
	}
	return formatNumber(lit.Num), nil
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// literalToJSONValue converts a Literal into a plain Go value suitable
// for json.Marshal, matching the JS-style value space of spec §4.3.
func literalToJSONValue(lit Literal) any {
	switch lit.Kind {
	case LitNull:
		return nil
	case LitString:
		return lit.Str
	case LitNumber:
		return lit.Num
	case LitBoolean:
		return lit.Bool
	case LitArray:
		out := make([]any, len(lit.Array))
		for i, e := range lit.Array {
			out[i] = literalToJSONValue(e)
		}
		return out
	default:
		return nil
	}
}

// coerceArrayLiteral JSON-encodes an array literal for the IN/NOT IN
// jsonb_array_elements_text unfold (spec §4.3 "arrays on the left of
// IN/NOT IN").
func (c *compileCtx) coerceArrayLiteral(lit Literal) (fragment, error) {
	if lit.Kind != LitArray {
		return fragment{}, zqlerr.TypeCoercion(zqlerr.CodeInvalidLiteral, "IN/NOT IN right-hand side must be an array literal, got %v", lit.Kind)
	}
	b, err := json.Marshal(literalToJSONValue(lit))
	if err != nil {
		return fragment{}, zqlerr.TypeCoercion(zqlerr.CodeInvalidLiteral, "cannot JSON-encode array literal: %v", err)
	}
	return cat(value(string(b)), raw("::text::jsonb")), nil
}

// familyOf resolves the pgFamily to drive coercion for a ValuePosition
// pair: the non-literal side (a column) always wins; if both sides are
// literals, the literal's own JS-style value decides (spec §4.3).
func (c *compileCtx) familyOf(left, right ValuePosition) (pgFamily, error) {
	lCol, lIsCol := c.columnFamily(left)
	rCol, rIsCol := c.columnFamily(right)
	switch {
	case lIsCol:
		return lCol, nil
	case rIsCol:
		return rCol, nil
	case left.Tag == ValLiteral:
		fam := classifyLiteral(left.Literal)
		if left.Literal.Kind == LitArray && len(left.Literal.Array) == 0 && right.Tag == ValLiteral {
			return classifyLiteral(right.Literal), nil
		}
		return fam, nil
	case right.Tag == ValLiteral:
		return classifyLiteral(right.Literal), nil
	default:
		return famOther, fmt.Errorf("internal error: no literal or column operand")
	}
}

// columnFamily resolves the server column family for a `column`
// ValuePosition resolved against the current query's table.
func (c *compileCtx) columnFamily(v ValuePosition) (pgFamily, bool) {
	if v.Tag != ValColumn {
		return famOther, false
	}
	col, ok := c.currentServerColumn(v.ColumnName)
	if !ok {
		return famOther, false
	}
	return classify(col), true
}
