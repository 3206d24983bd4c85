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

// Package compiler translates a language-neutral relational query AST
// (spec §3) into a single parameterized PostgreSQL statement (spec §4,
// §6.1). The package is pure: Compile has no I/O and no suspension
// points (spec §5).
package compiler

// Query is one level of the AST: a table, its filter, ordering, limit,
// cursor, and the related subqueries hanging off of it.
type Query struct {
	Table   string         `json:"table"`
	Alias   string         `json:"alias,omitempty"`
	Where   Condition      `json:"where,omitzero"`
	OrderBy []OrderColumn  `json:"orderBy,omitempty"`
	Limit   int            `json:"limit,omitempty"`
	Start   *Start         `json:"start,omitempty"`
	Related []Relationship `json:"related,omitempty"`
	// System marks a query issued on behalf of the system rather than an
	// end user; it carries no compiler-visible behavior today but is
	// threaded through so callers can audit it (mirrors the AST's own
	// `system?` field).
	System string `json:"system,omitempty"`
}

// Relationship is a correlated subquery reference hanging off a parent
// Query (spec §3 "Relationship").
type Relationship struct {
	Correlation Correlation `json:"correlation"`
	Subquery    Query       `json:"subquery"`
	// Hidden marks a relationship that exists only to reach a further
	// relationship (a junction hop); its own rows never appear in the
	// output (spec GLOSSARY "Hidden relationship").
	Hidden bool `json:"hidden,omitempty"`
}

// Correlation zips a parent's field list against a child's field list,
// positionally, to build `parent.f_i = child.f_i` conjunctions.
type Correlation struct {
	ParentField []string `json:"parentField"`
	ChildField  []string `json:"childField"`
}

// OrderColumn is one column of an ORDER BY list.
type OrderColumn struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc,omitempty"`
}

// Start is the cursor position for keyset pagination (spec §4.5 "Start").
type Start struct {
	// Row holds, for each column named in the query's OrderBy, the
	// cursor's value for that column.
	Row       map[string]Literal `json:"row"`
	Exclusive bool               `json:"exclusive,omitempty"`
}

// ConditionTag discriminates the Condition sum type.
type ConditionTag int

const (
	CondAnd ConditionTag = iota
	CondOr
	CondSimple
	CondCorrelatedSubquery
)

// SimpleOperator enumerates the only comparison operators the compiler
// knows how to emit (spec §3 "SimpleOperator").
type SimpleOperator string

const (
	OpEq        SimpleOperator = "="
	OpNeq       SimpleOperator = "!="
	OpLt        SimpleOperator = "<"
	OpLte       SimpleOperator = "<="
	OpGt        SimpleOperator = ">"
	OpGte       SimpleOperator = ">="
	OpLike      SimpleOperator = "LIKE"
	OpNotLike   SimpleOperator = "NOT LIKE"
	OpILike     SimpleOperator = "ILIKE"
	OpNotILike  SimpleOperator = "NOT ILIKE"
	OpIn        SimpleOperator = "IN"
	OpNotIn     SimpleOperator = "NOT IN"
	OpIs        SimpleOperator = "IS"
	OpIsNot     SimpleOperator = "IS NOT"
)

// CorrelatedOp enumerates the operators valid on a correlatedSubquery
// condition.
type CorrelatedOp string

const (
	OpExists    CorrelatedOp = "EXISTS"
	OpNotExists CorrelatedOp = "NOT EXISTS"
)

// Condition is the tagged union over and/or/simple/correlatedSubquery
// (spec §3 "Condition"). Exactly the fields relevant to Tag are
// populated; callers construct it through the And/Or/Simple/
// CorrelatedSubquery helpers below rather than setting fields directly.
type Condition struct {
	Tag        ConditionTag `json:"tag"`
	Conditions []Condition  `json:"conditions,omitempty"` // CondAnd / CondOr

	// CondSimple
	Op    SimpleOperator `json:"op,omitempty"`
	Left  ValuePosition  `json:"left,omitzero"`
	Right ValuePosition  `json:"right,omitzero"`

	// CondCorrelatedSubquery
	CorrelatedOp CorrelatedOp `json:"correlatedOp,omitempty"`
	Related      Relationship `json:"related,omitzero"`
}

// And builds an n-ary AND condition. An empty And is legal (spec §3) and
// compiles to TRUE, or to the empty string at the top level of a query's
// own WHERE (spec §4.4).
func And(conditions ...Condition) Condition {
	return Condition{Tag: CondAnd, Conditions: conditions}
}

// Or builds an n-ary OR condition. An empty Or compiles to FALSE.
func Or(conditions ...Condition) Condition {
	return Condition{Tag: CondOr, Conditions: conditions}
}

// Simple builds a `simple` comparison condition.
func Simple(left ValuePosition, op SimpleOperator, right ValuePosition) Condition {
	return Condition{Tag: CondSimple, Op: op, Left: left, Right: right}
}

// CorrelatedSubquery builds an EXISTS/NOT EXISTS condition over a
// relationship (spec §4.4).
func CorrelatedSubquery(op CorrelatedOp, related Relationship) Condition {
	return Condition{Tag: CondCorrelatedSubquery, CorrelatedOp: op, Related: related}
}

// IsEmpty reports whether c is the empty And (⇒ TRUE) or the empty Or
// (⇒ FALSE); both compile specially (spec §4.4, §8.7).
func (c Condition) IsEmpty() bool {
	return (c.Tag == CondAnd || c.Tag == CondOr) && len(c.Conditions) == 0
}

// ValuePositionTag discriminates the ValuePosition sum type.
type ValuePositionTag int

const (
	ValColumn ValuePositionTag = iota
	ValLiteral
	ValStatic
)

// ValuePosition is the tagged union over column/literal/static (spec §3
// "ValuePosition"). A `static` position reaching compilation is always a
// caller bug (spec §4.3, §9 "Static parameter policy") and aborts
// compilation with StaticParameterNotBound.
type ValuePosition struct {
	Tag ValuePositionTag `json:"tag"`

	// ValColumn
	ColumnName string `json:"columnName,omitempty"`

	// ValLiteral
	Literal Literal `json:"literal,omitzero"`

	// ValStatic
	StaticAnchor string `json:"staticAnchor,omitempty"`
	StaticField  string `json:"staticField,omitempty"`
}

// Column builds a `column` ValuePosition.
func Column(name string) ValuePosition {
	return ValuePosition{Tag: ValColumn, ColumnName: name}
}

// Lit builds a `literal` ValuePosition.
func Lit(v Literal) ValuePosition {
	return ValuePosition{Tag: ValLiteral, Literal: v}
}

// Static builds a `static` ValuePosition; compiling one is always a
// fatal StaticParameterNotBound error.
func Static(anchor, field string) ValuePosition {
	return ValuePosition{Tag: ValStatic, StaticAnchor: anchor, StaticField: field}
}

// LiteralKind discriminates the JS-style literal value space (spec §4.3
// "the literal's JS-style value").
type LiteralKind int

const (
	LitNull LiteralKind = iota
	LitString
	LitNumber
	LitBoolean
	LitArray
)

// Literal is a JS-style scalar or array value carried by the AST. Arrays
// are homogeneous in element kind for the purposes of coercion; an empty
// array's element kind is resolved from its comparison counterpart (spec
// §4.3).
type Literal struct {
	Kind  LiteralKind `json:"kind"`
	Str   string      `json:"str,omitempty"`
	Num   float64     `json:"num,omitempty"`
	Bool  bool        `json:"bool,omitempty"`
	Array []Literal   `json:"array,omitempty"`
	// ArrayElemKind is set on an empty array when the caller already
	// knows the intended element kind (e.g. IN against a known-typed
	// column); zero value (LitNull) means "unknown, infer from context".
	ArrayElemKind LiteralKind `json:"arrayElemKind,omitempty"`
}

// NullLit is the literal null value.
func NullLit() Literal { return Literal{Kind: LitNull} }

// StringLit builds a string literal.
func StringLit(s string) Literal { return Literal{Kind: LitString, Str: s} }

// NumberLit builds a numeric literal.
func NumberLit(n float64) Literal { return Literal{Kind: LitNumber, Num: n} }

// BoolLit builds a boolean literal.
func BoolLit(b bool) Literal { return Literal{Kind: LitBoolean, Bool: b} }

// ArrayLit builds an array literal, as used on the right of IN/NOT IN.
func ArrayLit(elems ...Literal) Literal { return Literal{Kind: LitArray, Array: elems} }
