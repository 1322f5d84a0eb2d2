// Copyright (c) 2024 The Falcon Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package sema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rv64cc/internal/arena"
	"rv64cc/internal/diag"
	"rv64cc/internal/lex"
	"rv64cc/internal/parse"
	"rv64cc/internal/source"
	"rv64cc/internal/types"
)

func checkText(t *testing.T, text string) *diag.Bag {
	t.Helper()
	bag := diag.NewBag(nil)
	reg := types.NewRegistry()
	tz := lex.NewTokenizer(source.FromString("<test>", text), bag)
	ar := arena.New(1 << 20)
	p := parse.NewParser(tz, bag, ar, reg)
	prog := p.Parse()
	require.Equal(t, 0, bag.Errors(), "parse errors: %v", bag.All())
	NewChecker(bag, reg, "<test>").Check(prog)
	return bag
}

// The left of an assignment must be a dereference, index, member
// access, or a plain identifier of non-const type.
func TestAssignToNonLvalueIsError(t *testing.T) {
	bag := checkText(t, `int main(){ int a; 1 = a; return 0; }`)
	assert.Greater(t, bag.Errors(), 0)
}

func TestAssignToConstQualifiedIsError(t *testing.T) {
	bag := checkText(t, `int main(){ const int a = 1; a = 2; return a; }`)
	assert.Greater(t, bag.Errors(), 0)
}

// Call arity must match the declaration.
func TestCallArityMismatchIsError(t *testing.T) {
	bag := checkText(t, `
int add(int a, int b){ return a+b; }
int main(){ return add(1); }
`)
	assert.Greater(t, bag.Errors(), 0)
}

func TestCallToUndeclaredFunctionIsError(t *testing.T) {
	bag := checkText(t, `int main(){ return missing(1,2); }`)
	assert.Greater(t, bag.Errors(), 0)
}

// sizeof(void) is a semantic error.
func TestSizeofVoidIsError(t *testing.T) {
	bag := checkText(t, `int main(){ return sizeof(void); }`)
	assert.Greater(t, bag.Errors(), 0)
}

func TestSizeofExprIsNotAnError(t *testing.T) {
	bag := checkText(t, `int main(){ int x; return sizeof(x); }`)
	assert.Equal(t, 0, bag.Errors())
}

// Disallowed casts are errors: casting a struct value
// to an integer has no entry in the allowed-conversion table.
func TestCastStructToIntIsError(t *testing.T) {
	bag := checkText(t, `
struct A{ int x; };
int main(){ struct A a; return (int)a; }
`)
	assert.Greater(t, bag.Errors(), 0)
}

func TestCastPointerToPointerIsAllowed(t *testing.T) {
	bag := checkText(t, `int main(){ int x; int *p = &x; char *c = (char*)p; return 0; }`)
	assert.Equal(t, 0, bag.Errors())
}

// Accessing a member the struct does not declare is an error.
func TestUndefinedStructMemberIsError(t *testing.T) {
	bag := checkText(t, `
struct A{ int x; };
int main(){ struct A a; return a.y; }
`)
	assert.Greater(t, bag.Errors(), 0)
}

func TestBreakOutsideLoopIsError(t *testing.T) {
	bag := checkText(t, `int main(){ break; return 0; }`)
	assert.Greater(t, bag.Errors(), 0)
}

func TestBreakInsideLoopIsFine(t *testing.T) {
	bag := checkText(t, `int main(){ while(1){ break; } return 0; }`)
	assert.Equal(t, 0, bag.Errors())
}

func TestTooManyArrayInitializersIsError(t *testing.T) {
	bag := checkText(t, `int main(){ int a[2] = {1,2,3}; return a[0]; }`)
	assert.Greater(t, bag.Errors(), 0)
}

func TestWellTypedInitializerListIsFine(t *testing.T) {
	bag := checkText(t, `int main(){ int a[3] = {1,2,3}; return a[0]; }`)
	assert.Equal(t, 0, bag.Errors())
}

// Struct and union values cannot cross a function boundary in either
// direction; both get a clear diagnostic instead of a bad call sequence.
func TestStructByValueInSignatureIsError(t *testing.T) {
	bag := checkText(t, `
struct A{ int x; };
struct A id(struct A a){ return a; }
int main(){ return 0; }
`)
	assert.Greater(t, bag.Errors(), 0)
}

func TestVoidVariableDeclarationIsError(t *testing.T) {
	bag := checkText(t, `int main(){ void v; return 0; }`)
	assert.Greater(t, bag.Errors(), 0)
}

// A second declaration of the same name in the same scope is a
// redefinition even when it arrives in a separate statement.
func TestRedefinitionAcrossStatementsIsError(t *testing.T) {
	bag := checkText(t, `int main(){ int a; int a; return 0; }`)
	assert.Greater(t, bag.Errors(), 0)
}

func TestParameterRedefinitionIsError(t *testing.T) {
	bag := checkText(t, `int f(int a){ int a; return a; }`)
	assert.Greater(t, bag.Errors(), 0)
}

// Shadowing in a nested scope is not a redefinition.
func TestShadowingInNestedScopeIsFine(t *testing.T) {
	bag := checkText(t, `int main(){ int a = 1; { int a = 2; a = 3; } return a; }`)
	assert.Equal(t, 0, bag.Errors())
}

// Adding two pointers has no meaning; the checker rejects it instead of
// letting codegen emit plain register arithmetic.
func TestPointerPlusPointerIsError(t *testing.T) {
	bag := checkText(t, `int main(){ int *p; int *q; int r = p + q; return r; }`)
	assert.Greater(t, bag.Errors(), 0)
}

// Pointer difference of equal types stays legal and yields long long.
func TestPointerMinusPointerIsFine(t *testing.T) {
	bag := checkText(t, `int main(){ int *p; int *q; long long d = p - q; return 0; }`)
	assert.Equal(t, 0, bag.Errors())
}
