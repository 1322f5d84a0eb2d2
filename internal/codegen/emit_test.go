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

package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rv64cc/internal/arena"
	"rv64cc/internal/diag"
	"rv64cc/internal/lex"
	"rv64cc/internal/mir"
	"rv64cc/internal/parse"
	"rv64cc/internal/sema"
	"rv64cc/internal/source"
	"rv64cc/internal/types"
)

// emitText runs source all the way through to assembly text, mirroring
// driver.Compile's stage order (lex -> parse -> sema -> lower -> emit).
// It lives here rather than importing internal/driver to avoid a
// package import cycle (driver already imports codegen).
func emitText(t *testing.T, text string) string {
	t.Helper()
	bag := diag.NewBag(nil)
	reg := types.NewRegistry()
	buf := source.FromString("<test>", text)
	tz := lex.NewTokenizer(buf, bag)
	ar := arena.New(1 << 20)
	p := parse.NewParser(tz, bag, ar, reg)
	prog := p.Parse()
	require.Equal(t, 0, bag.Errors(), "parse errors: %v", bag.All())
	sema.NewChecker(bag, reg, buf.Name).Check(prog)
	require.Equal(t, 0, bag.Errors(), "sema errors: %v", bag.All())
	mod := mir.NewLowerer(reg, bag, buf.Name).Lower(prog)
	require.Equal(t, 0, bag.Errors(), "lowering errors: %v", bag.All())
	return EmitModule(mod)
}

// The function prologue spills ra/fp and reserves a
// 16-byte-aligned frame; the epilogue restores both before ret.
func TestEmitFunctionHasPrologueAndEpilogue(t *testing.T) {
	asm := emitText(t, `int main(){ return 0; }`)
	assert.Contains(t, asm, "\t.globl main\n")
	assert.Contains(t, asm, "main:\n")
	assert.Contains(t, asm, "addi sp, sp, -")
	assert.Contains(t, asm, "sd ra, ")
	assert.Contains(t, asm, "sd fp, ")
	assert.Contains(t, asm, "ret\n")
}

// Globals with a scalar initializer go into .data with the directive
// matching their width.
func TestEmitGlobalWithInitializerUsesDataSection(t *testing.T) {
	asm := emitText(t, `int g = 42; int main(){ return g; }`)
	assert.Contains(t, asm, "\t.section .data\n")
	assert.Contains(t, asm, "\t.word 42\n")
}

// A global with no initializer is zero-filled rather than given an
// explicit value (tentative definition semantics).
func TestEmitGlobalWithoutInitializerIsZeroed(t *testing.T) {
	asm := emitText(t, `int g; int main(){ return g; }`)
	assert.Contains(t, asm, "\t.zero 4\n")
}

// Two occurrences of the same string literal share one .rodata label.
func TestEmitStringLiteralsArePooled(t *testing.T) {
	asm := emitText(t, `
int puts(char *s);
int main(){ puts("hi"); puts("hi"); return 0; }
`)
	assert.Contains(t, asm, "\t.section .rodata\n")
	count := strings.Count(asm, "\t.string \"hi\"\n")
	assert.Equal(t, 1, count)
}

// Distinct string literals get distinct labels.
func TestEmitDistinctStringLiteralsGetDistinctLabels(t *testing.T) {
	asm := emitText(t, `
int puts(char *s);
int main(){ puts("hi"); puts("bye"); return 0; }
`)
	assert.Contains(t, asm, "\t.string \"hi\"\n")
	assert.Contains(t, asm, "\t.string \"bye\"\n")
}

// A function with no globals at all omits the .data/.rodata sections
// entirely rather than emitting empty ones.
func TestEmitOmitsEmptySections(t *testing.T) {
	asm := emitText(t, `int main(){ return 1+2; }`)
	assert.NotContains(t, asm, ".section .data")
	assert.NotContains(t, asm, ".section .rodata")
	assert.Contains(t, asm, "\t.text\n")
}

func TestDirectiveForSizeMatchesWidth(t *testing.T) {
	assert.Equal(t, "\t.byte", directiveForSize(1))
	assert.Equal(t, "\t.half", directiveForSize(2))
	assert.Equal(t, "\t.word", directiveForSize(4))
	assert.Equal(t, "\t.dword", directiveForSize(8))
}

func TestAlign3MapsSizeToLog2Alignment(t *testing.T) {
	assert.Equal(t, 0, align3(1))
	assert.Equal(t, 1, align3(2))
	assert.Equal(t, 2, align3(4))
	assert.Equal(t, 3, align3(8))
}

// A float immediate loads from a .rodata pool entry; two uses of the
// same spelling share one constant.
func TestEmitFloatLiteralPooled(t *testing.T) {
	asm := emitText(t, `int main(){ float x = 1.5f; float y = 1.5f; return 0; }`)
	assert.Contains(t, asm, "\t.section .rodata\n")
	count := strings.Count(asm, "\t.word 1069547520\n")
	assert.Equal(t, 1, count)
}
