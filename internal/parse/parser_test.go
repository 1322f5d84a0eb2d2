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

package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rv64cc/internal/arena"
	"rv64cc/internal/diag"
	"rv64cc/internal/lex"
	"rv64cc/internal/source"
	"rv64cc/internal/types"
)

func parseText(t *testing.T, text string) (*Program, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(nil)
	reg := types.NewRegistry()
	tz := lex.NewTokenizer(source.FromString("<test>", text), bag)
	ar := arena.New(1 << 20)
	p := NewParser(tz, bag, ar, reg)
	return p.Parse(), bag
}

func mainBody(t *testing.T, prog *Program) *Block {
	t.Helper()
	for _, fn := range prog.Funcs {
		if fn.Name == "main" {
			require.NotNil(t, fn.Body)
			return fn.Body
		}
	}
	require.Fail(t, "no main function found")
	return nil
}

func firstReturnValue(t *testing.T, b *Block) Expr {
	t.Helper()
	for _, s := range b.Stmts {
		if r, ok := s.(*ReturnStmt); ok {
			return r.Value
		}
	}
	require.Fail(t, "no return statement found")
	return nil
}

// sizeof on a parenthesised type name parses as
// SizeofTypeExpr; sizeof on an expression parses as SizeofExprExpr.
func TestSizeofTypeVsSizeofExpr(t *testing.T) {
	prog, bag := parseText(t, `int main(){ return sizeof(int); }`)
	require.Equal(t, 0, bag.Errors())
	ret := firstReturnValue(t, mainBody(t, prog))
	_, ok := ret.(*SizeofTypeExpr)
	assert.True(t, ok, "expected SizeofTypeExpr, got %T", ret)

	prog2, bag2 := parseText(t, `int main(){ int x; return sizeof x; }`)
	require.Equal(t, 0, bag2.Errors())
	ret2 := firstReturnValue(t, mainBody(t, prog2))
	_, ok2 := ret2.(*SizeofExprExpr)
	assert.True(t, ok2, "expected SizeofExprExpr, got %T", ret2)
}

// `cond ? then : else` parses into a
// TernaryExpr with all three arms populated.
func TestTernaryExprParsesAllThreeArms(t *testing.T) {
	prog, bag := parseText(t, `int main(){ return 1 ? 2 : 3; }`)
	require.Equal(t, 0, bag.Errors())
	ret := firstReturnValue(t, mainBody(t, prog))
	tern, ok := ret.(*TernaryExpr)
	require.True(t, ok, "expected TernaryExpr, got %T", ret)
	assert.NotNil(t, tern.Cond)
	assert.NotNil(t, tern.Then)
	assert.NotNil(t, tern.Else)
}

// Ternary is right-associative and binds looser than ||: `a ? b : c ? d
// : e` is `a ? b : (c ? d : e)`.
func TestTernaryIsRightAssociative(t *testing.T) {
	prog, bag := parseText(t, `int main(){ return 1 ? 2 : 3 ? 4 : 5; }`)
	require.Equal(t, 0, bag.Errors())
	outer, ok := firstReturnValue(t, mainBody(t, prog)).(*TernaryExpr)
	require.True(t, ok)
	_, innerIsTernary := outer.Else.(*TernaryExpr)
	assert.True(t, innerIsTernary, "Else arm should itself be a TernaryExpr")
}

// A name bound by `typedef` is usable as a
// type specifier afterward.
func TestTypedefNameUsableAsTypeSpecifier(t *testing.T) {
	prog, bag := parseText(t, `
typedef int my_int;
int main(){ my_int x = 5; return x; }
`)
	require.Equal(t, 0, bag.Errors(), "errors: %v", bag.All())
	require.Len(t, prog.Typedefs, 1)
	assert.Equal(t, "my_int", prog.Typedefs[0].Name)
}

// && binds tighter than ||, matching C precedence.
func TestLogicalAndBindsTighterThanOr(t *testing.T) {
	prog, bag := parseText(t, `int main(){ return 1 || 0 && 0; }`)
	require.Equal(t, 0, bag.Errors())
	ret := firstReturnValue(t, mainBody(t, prog))
	bin, ok := ret.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, lex.POrOr, bin.Op)
	rhs, ok := bin.Right.(*BinaryExpr)
	require.True(t, ok, "right side of || should itself be a BinaryExpr (the && group)")
	assert.Equal(t, lex.PAndAnd, rhs.Op)
}

// A file-scope struct definition with no declarator parses, and a later
// function can declare and use a variable of that struct type.
func TestStructDeclarationRegistersComposite(t *testing.T) {
	prog, bag := parseText(t, `
struct point { int x; int y; };
int main(){ struct point p; return p.x; }
`)
	require.Equal(t, 0, bag.Errors(), "errors: %v", bag.All())
	require.NotEmpty(t, prog.Funcs)
}

// A dangling `else` attaches to the nearest unmatched `if` (the classic
// dangling-else rule).
func TestDanglingElseAttachesToNearestIf(t *testing.T) {
	prog, bag := parseText(t, `
int main(){
    if (1)
        if (0)
            return 1;
        else
            return 2;
    return 3;
}
`)
	require.Equal(t, 0, bag.Errors())
	body := mainBody(t, prog)
	require.NotEmpty(t, body.Stmts)
	outer, ok := body.Stmts[0].(*IfStmt)
	require.True(t, ok)
	require.Len(t, outer.Then.Stmts, 1)
	inner, ok := outer.Then.Stmts[0].(*IfStmt)
	require.True(t, ok)
	assert.NotNil(t, inner.Else, "else should bind to the inner if")
}

// A syntax error still leaves Program.Funcs populated with what parsed
// before the error, rather than
// aborting the whole parse.
func TestSyntaxErrorRecoversAtStatementBoundary(t *testing.T) {
	prog, bag := parseText(t, `int main(){ int a = ; return 0; }`)
	assert.Greater(t, bag.Errors(), 0)
	assert.NotEmpty(t, prog.Funcs)
}
