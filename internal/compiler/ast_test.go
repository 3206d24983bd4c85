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

import "testing"

func TestConditionIsEmpty(t *testing.T) {
	tcs := []struct {
		name string
		cond Condition
		want bool
	}{
		{"empty and", And(), true},
		{"empty or", Or(), true},
		{"non-empty and", And(Simple(Column("a"), OpEq, Lit(NumberLit(1)))), false},
		{"simple is never empty", Simple(Column("a"), OpEq, Lit(NumberLit(1))), false},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cond.IsEmpty(); got != tc.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tc.want)
			}
		})
	}
}

// The zero Condition value (an unset Query.Where) and an explicit And()
// with no conditions are indistinguishable and both compile identically
// (compileCondition treats every empty And the same way, regardless of
// how the caller built it).
func TestZeroConditionIsEmptyAnd(t *testing.T) {
	var zero Condition
	if !zero.IsEmpty() {
		t.Error("zero Condition.IsEmpty() = false, want true")
	}
	if zero.Tag != CondAnd {
		t.Errorf("zero Condition.Tag = %v, want CondAnd", zero.Tag)
	}
}
