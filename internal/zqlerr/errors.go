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

// Package zqlerr defines the typed error categories shared by the
// compiler and the result extractor (spec §7). Every error the compiler
// returns is fatal and synchronous: there is no retry and no partial
// emission.
package zqlerr

import "fmt"

// Category classifies where in the pipeline an error originated.
type Category string

const (
	CategoryStructural   Category = "STRUCTURAL"
	CategoryTypeCoercion Category = "TYPE_COERCION"
	CategoryResult       Category = "RESULT"
)

// CompilerError is the interface satisfied by every error this module
// raises; callers can type-switch on Code to distinguish the kinds listed
// in spec §6.1.
type CompilerError interface {
	error
	Category() Category
	CodeString() string
}

// Code enumerates the stable error codes from spec §6.1 and §6.2.
const (
	CodeStaticParameterNotBound  = "StaticParameterNotBound"
	CodeInvalidRelationship      = "InvalidRelationship"
	CodeCorrelationArityMismatch = "CorrelationArityMismatch"
	CodeUnknownColumn            = "UnknownColumn"
	CodeUnknownTable             = "UnknownTable"
	CodeUnrecognizedOperator     = "UnrecognizedOperator"
	CodeInvalidLiteral           = "InvalidLiteral"
	CodeValueOutOfSafeRange      = "ValueOutOfSafeRange"
)

// StructuralError reports a malformed AST: a bad relationship, an arity
// mismatch, an unbound static parameter, or an unknown identifier. The
// Path, when non-empty, names the offending subtree for diagnostics.
type StructuralError struct {
	Code string
	Msg  string
	Path string
}

func (e *StructuralError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("%s: %s (at %s)", e.Code, e.Msg, e.Path)
}

func (e *StructuralError) Category() Category { return CategoryStructural }
func (e *StructuralError) CodeString() string { return e.Code }

// TypeCoercionError reports a literal whose JS-style value has no
// corresponding PostgreSQL cast (e.g. a non-boolean literal compared
// with a boolean column). Enum values are not checked against any list
// of allowed values.
type TypeCoercionError struct {
	Code string
	Msg  string
}

func (e *TypeCoercionError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Msg) }
func (e *TypeCoercionError) Category() Category { return CategoryTypeCoercion }
func (e *TypeCoercionError) CodeString() string { return e.Code }

// ResultError reports a failure while extracting the decoded JSON result,
// such as a bigint outside the safe double-precision integer range.
type ResultError struct {
	Code string
	Msg  string
	Path string
}

func (e *ResultError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("%s: %s = %s", e.Code, e.Path, e.Msg)
}

func (e *ResultError) Category() Category { return CategoryResult }
func (e *ResultError) CodeString() string { return e.Code }

// Structural builds a *StructuralError.
func Structural(code, path, format string, args ...any) *StructuralError {
	return &StructuralError{Code: code, Path: path, Msg: fmt.Sprintf(format, args...)}
}

// TypeCoercion builds a *TypeCoercionError.
func TypeCoercion(code, format string, args ...any) *TypeCoercionError {
	return &TypeCoercionError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Result builds a *ResultError.
func Result(code, path, format string, args ...any) *ResultError {
	return &ResultError{Code: code, Path: path, Msg: fmt.Sprintf(format, args...)}
}
