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

package driver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rv64cc/internal/config"
)

// compileOK runs the full pipeline and fails the test immediately if any
// stage reported an error: the pipeline "refuses to proceed
// past a stage with errors > 0" for well-typed input.
func compileOK(t *testing.T, name, text string) *Result {
	t.Helper()
	res := CompileString(name, text, config.New())
	require.Equal(t, "", res.FailedStage, "diagnostics: %v", res.Bag.All())
	require.Equal(t, 0, res.Bag.Errors())
	return res
}

func TestArithmeticReturn(t *testing.T) {
	res := compileOK(t, "a.c", `int main(){ return 2 + 3 * 4; }`)
	assert.Contains(t, res.Asm, "main:")
	assert.Contains(t, res.Asm, ".text")
}

// Assignment through a pointer writes the pointee.
func TestPointerAssignment(t *testing.T) {
	res := compileOK(t, "b.c", `int main(){ int a=2, b=1, *c=&b; *c=12; return a+b; }`)
	assert.Contains(t, res.Asm, "main:")
}

func TestForLoopControlFlow(t *testing.T) {
	res := compileOK(t, "c.c", `int main(){ int i=0, s=0; for(i=0;i<5;i=i+1){ s=s+i; } return s; }`)
	assert.Contains(t, res.Asm, "main:")
	// A for loop must lower to at least one branch and one jump back.
	assert.True(t, strings.Count(res.Asm, "\tj ") >= 1)
}

// Struct layout and member access: sizeof(A)==16 with members at
// offsets 0, 4, 8; size is a multiple of the alignment, which is the
// max member alignment.
func TestStructLayoutAndMemberAccess(t *testing.T) {
	res := compileOK(t, "d.c", `
struct A{ char c; int i; long l; };
int main(){ struct A a; a.c=1; a.i=2; a.l=3; return a.c+a.i+a.l; }
`)
	comp, ok := res.Reg.Struct("A")
	require.True(t, ok)
	assert.Equal(t, 16, comp.Size)
	assert.Equal(t, 8, comp.Align)
	offsets := map[string]int{}
	for _, m := range comp.Members {
		offsets[m.Name] = m.Offset
	}
	assert.Equal(t, 0, offsets["c"])
	assert.Equal(t, 4, offsets["i"])
	assert.Equal(t, 8, offsets["l"])
}

// Function calls under LP64D, including a nested call whose result
// feeds the outer call's second argument.
func TestNestedFunctionCalls(t *testing.T) {
	res := compileOK(t, "e.c", `
int add(int a, int b){ return a+b; }
int main(){ return add(12, add(1,2)) + 2; }
`)
	assert.Contains(t, res.Asm, "add:")
	assert.Contains(t, res.Asm, "main:")
	assert.Contains(t, res.Asm, "call add")
}

// Float arithmetic and a cast back to int.
func TestFloatCastToInt(t *testing.T) {
	res := compileOK(t, "f.c", `int main(){ float x = (float)12/15*10; return (int)x; }`)
	assert.Contains(t, res.Asm, "main:")
	assert.Contains(t, res.Asm, "fcvt")
}

// Boundary behaviour: an empty function body still emits a
// standard prologue/epilogue.
func TestEmptyFunctionBody(t *testing.T) {
	res := compileOK(t, "empty.c", `int f(){}`)
	assert.Contains(t, res.Asm, "f:")
}

// Boundary behaviour: 0x alone is a lexical error, and the
// pipeline must stop at the parsing stage rather than proceeding.
func TestMalformedHexLiteralStopsAtParsing(t *testing.T) {
	res := CompileString("bad.c", `int main(){ return 0x; }`, config.New())
	assert.Equal(t, "parsing", res.FailedStage)
	assert.Greater(t, res.Bag.Errors(), 0)
}

// Boundary behaviour: 0b102 is an error (invalid digit in
// a binary literal).
func TestInvalidBinaryDigitIsError(t *testing.T) {
	res := CompileString("bad2.c", `int main(){ return 0b102; }`, config.New())
	assert.Equal(t, "parsing", res.FailedStage)
}

func TestConstantFoldingIsIdempotent(t *testing.T) {
	withFold := CompileString("fold.c", `int main(){ return 2+3*4; }`, config.New())
	require.Equal(t, "", withFold.FailedStage)
	// Compiling the folded form (2+3*4 == 14) must give the same output.
	again := CompileString("fold.c", `int main(){ return 14; }`, config.New())
	require.Equal(t, "", again.FailedStage)
	assert.Equal(t, withFold.Asm, again.Asm)
}

func TestRedeclarationIsSemanticError(t *testing.T) {
	res := CompileString("redecl.c", `int main(){ int a=1; int a=2; return a; }`, config.New())
	assert.Equal(t, "semantic analysis", res.FailedStage)
}

func TestUndeclaredIdentifierIsSemanticError(t *testing.T) {
	res := CompileString("undecl.c", `int main(){ return x; }`, config.New())
	assert.Equal(t, "semantic analysis", res.FailedStage)
}
