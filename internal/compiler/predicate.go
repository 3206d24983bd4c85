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

import "github.com/typedrat/zql/internal/zqlerr"

// compileCondition dispatches on the condition tag (spec §4.4).
// topLevel controls the empty-And special case: at the top level of a
// query's own WHERE, an empty And compiles to the empty fragment so the
// caller omits the WHERE keyword entirely; everywhere else it compiles
// to TRUE (spec §4.4, and the Open Question in §9 about unifying this).
func (c *compileCtx) compileCondition(cond Condition, topLevel bool) (fragment, error) {
	switch cond.Tag {
	case CondAnd:
		if len(cond.Conditions) == 0 {
			if topLevel {
				return empty(), nil
			}
			return raw("TRUE"), nil
		}
		parts, err := c.compileConditionList(cond.Conditions)
		if err != nil {
			return fragment{}, err
		}
		return cat(raw("("), sepRaw(parts, " AND "), raw(")")), nil

	case CondOr:
		if len(cond.Conditions) == 0 {
			return raw("FALSE"), nil
		}
		parts, err := c.compileConditionList(cond.Conditions)
		if err != nil {
			return fragment{}, err
		}
		return cat(raw("("), sepRaw(parts, " OR "), raw(")")), nil

	case CondSimple:
		return c.compileSimple(cond)

	case CondCorrelatedSubquery:
		return c.compileCorrelatedSubquery(cond)

	default:
		return fragment{}, zqlerr.Structural(zqlerr.CodeUnrecognizedOperator, "", "unrecognized condition tag %v", cond.Tag)
	}
}

func (c *compileCtx) compileConditionList(conds []Condition) ([]fragment, error) {
	out := make([]fragment, len(conds))
	for i, sub := range conds {
		f, err := c.compileCondition(sub, false)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// compileSimple compiles a `simple` condition (spec §4.4). IS/IS NOT
// become IS NOT DISTINCT FROM / IS DISTINCT FROM; everything else is
// emitted as an ordinary binary operator after each side is coerced.
// Ordinary `=`/`!=` against a literal null is passed through unchanged:
// per spec §4.4 that NULL-unsafe behavior is the builder API's
// responsibility, not the predicate compiler's, so a caller who wants
// NULL-safe equality must use IS/IS NOT explicitly.
func (c *compileCtx) compileSimple(cond Condition) (fragment, error) {
	switch cond.Op {
	case OpIs, OpIsNot:
		return c.compileIsComparison(cond)
	case OpIn, OpNotIn:
		return c.compileInComparison(cond)
	case OpLike, OpNotLike, OpILike, OpNotILike:
		return c.compileLikeComparison(cond)
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		return c.compileOrdinaryComparison(cond)
	default:
		return fragment{}, zqlerr.Structural(zqlerr.CodeUnrecognizedOperator, "", "unrecognized operator %q", cond.Op)
	}
}

// compileOperand coerces a single value position under fam. forIsComparison
// is threaded through to coerceColumnRef: IS/IS NOT leave the column side
// bare, since that operator pair compares raw values and the collation
// moves to the literal side instead (spec §4.4, scenario D in §8).
func (c *compileCtx) compileOperand(v ValuePosition, fam pgFamily, forIsComparison bool) (fragment, error) {
	switch v.Tag {
	case ValColumn:
		_, serverCol, err := c.resolveColumn(v)
		if err != nil {
			return fragment{}, err
		}
		return c.coerceColumnRef(c.current().sqlAlias, serverCol, fam, forIsComparison), nil
	case ValLiteral:
		return c.coerceLiteral(v.Literal, fam)
	case ValStatic:
		return fragment{}, zqlerr.Structural(zqlerr.CodeStaticParameterNotBound, v.StaticField, "static parameter %q (anchor %q) reached compilation unbound", v.StaticField, v.StaticAnchor)
	default:
		return fragment{}, zqlerr.Structural(zqlerr.CodeUnrecognizedOperator, "", "unrecognized value position tag %v", v.Tag)
	}
}

func (c *compileCtx) compileOrdinaryComparison(cond Condition) (fragment, error) {
	fam, err := c.familyOf(cond.Left, cond.Right)
	if err != nil {
		return fragment{}, err
	}
	left, err := c.compileOperand(cond.Left, fam, false)
	if err != nil {
		return fragment{}, err
	}
	right, err := c.compileOperand(cond.Right, fam, false)
	if err != nil {
		return fragment{}, err
	}
	return cat(left, raw(" "+string(cond.Op)+" "), right), nil
}

// compileIsComparison implements IS / IS NOT -> IS NOT DISTINCT FROM /
// IS DISTINCT FROM (spec §4.4, scenario D in §8). Unlike ordinary
// comparisons, the column side is left bare: the collation/cast that
// would normally land on the column moves to the literal side via
// coerceLiteral.
func (c *compileCtx) compileIsComparison(cond Condition) (fragment, error) {
	fam, err := c.familyOf(cond.Left, cond.Right)
	if err != nil {
		return fragment{}, err
	}
	left, err := c.compileOperand(cond.Left, fam, true)
	if err != nil {
		return fragment{}, err
	}
	right, err := c.compileOperand(cond.Right, fam, true)
	if err != nil {
		return fragment{}, err
	}
	op := " IS NOT DISTINCT FROM "
	if cond.Op == OpIsNot {
		op = " IS DISTINCT FROM "
	}
	return cat(left, raw(op), right), nil
}

// compileLikeComparison treats both sides as text-family regardless of
// the underlying column type (spec §4.4).
func (c *compileCtx) compileLikeComparison(cond Condition) (fragment, error) {
	left, err := c.compileOperand(cond.Left, famText, false)
	if err != nil {
		return fragment{}, err
	}
	right, err := c.compileOperand(cond.Right, famText, false)
	if err != nil {
		return fragment{}, err
	}
	return cat(left, raw(" "+string(cond.Op)+" "), right), nil
}

// compileInComparison implements IN/NOT IN as `left = ANY(ARRAY(...))`
// or its negation, unfolding the right-hand jsonb array under the
// collation of the left side's family (spec §4.3, §4.4, scenario E).
func (c *compileCtx) compileInComparison(cond Condition) (fragment, error) {
	if cond.Right.Tag != ValLiteral || cond.Right.Literal.Kind != LitArray {
		return fragment{}, zqlerr.Structural(zqlerr.CodeInvalidLiteral, "", "IN/NOT IN right-hand side must be a literal array")
	}

	leftFam, leftIsCol := c.columnFamily(cond.Left)
	if !leftIsCol {
		if cond.Left.Tag == ValLiteral {
			leftFam = classifyLiteral(cond.Left.Literal)
		} else {
			leftFam = classifyArrayElemFamily(cond.Right.Literal)
		}
	}

	left, err := c.compileOperand(cond.Left, leftFam, false)
	if err != nil {
		return fragment{}, err
	}

	arrParam, err := c.coerceArrayLiteral(cond.Right.Literal)
	if err != nil {
		return fragment{}, err
	}

	elemCast := elemCastFor(leftFam)
	unfold := cat(
		raw("ARRAY(SELECT value"), raw(elemCast), raw(" FROM jsonb_array_elements_text("),
		arrParam, raw("))"),
	)

	anyExpr := cat(left, raw(" = ANY("), unfold, raw(")"))
	if cond.Op == OpIn {
		return anyExpr, nil
	}
	return cat(raw("NOT ("), anyExpr, raw(")")), nil
}

// elemCastFor renders the per-element cast applied inside
// jsonb_array_elements_text's SELECT, matching the family the left
// operand was coerced under (spec §4.3).
func elemCastFor(fam pgFamily) string {
	switch fam {
	case famText, famUUID, famEnum:
		return `::text COLLATE "ucs_basic"`
	case famNumeric:
		return `::text::double precision`
	default:
		return `::text COLLATE "ucs_basic"`
	}
}

// classifyArrayElemFamily infers a family for the array literal itself
// when the left operand carries no column descriptor (literal-vs-literal
// IN, which is unusual but not forbidden by the AST).
func classifyArrayElemFamily(arr Literal) pgFamily {
	if len(arr.Array) == 0 {
		return famText
	}
	return classifyLiteral(arr.Array[0])
}

// compileCorrelatedSubquery implements EXISTS/NOT EXISTS (spec §4.4):
// the nested subquery's own WHERE is the conjunction of its filters and
// the correlation predicate, built by compileCorrelatedSubqueryBody.
func (c *compileCtx) compileCorrelatedSubquery(cond Condition) (fragment, error) {
	sub, err := c.compileCorrelatedSubqueryBody(cond.Related)
	if err != nil {
		return fragment{}, err
	}
	switch cond.CorrelatedOp {
	case OpExists:
		return cat(raw("EXISTS ("), sub, raw(")")), nil
	case OpNotExists:
		return cat(raw("NOT EXISTS ("), sub, raw(")")), nil
	default:
		return fragment{}, zqlerr.Structural(zqlerr.CodeUnrecognizedOperator, "", "unrecognized correlated operator %q", cond.CorrelatedOp)
	}
}
