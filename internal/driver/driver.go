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

// Package driver wires source -> lex -> parse -> (fold) -> sema -> mir ->
// codegen into one strictly staged pipeline. It is
// the one place cmd/rv64cc and the test suite both call into, so a test
// can exercise the whole pipeline on an in-memory buffer without going
// through the CLI or the filesystem.
package driver

import (
	"rv64cc/internal/arena"
	"rv64cc/internal/codegen"
	"rv64cc/internal/config"
	"rv64cc/internal/diag"
	"rv64cc/internal/fold"
	"rv64cc/internal/lex"
	"rv64cc/internal/mir"
	"rv64cc/internal/parse"
	"rv64cc/internal/sema"
	"rv64cc/internal/source"
	"rv64cc/internal/types"
)

// Result collects every stage's output, so a caller (or a test) can
// inspect the AST, the type registry, the MIR, and the final assembly
// without re-running the pipeline.
type Result struct {
	Bag    *diag.Bag
	Reg    *types.Registry
	Prog   *parse.Program
	Module *mir.Module
	Asm    string
	// FailedStage is "" on success, or the name of the stage that
	// stopped the pipeline with errors > 0; later stages never run
	// after a failed one.
	FailedStage string
}

// Compile runs the whole pipeline over buf. It never runs lowering or
// codegen if an earlier stage reported any error.
func Compile(buf *source.Buffer, opts config.Options) *Result {
	bag := diag.NewBag(nil)
	reg := types.NewRegistry()
	r := &Result{Bag: bag, Reg: reg}

	tz := lex.NewTokenizer(buf, bag)
	ar := arena.New(1 << 24)
	p := parse.NewParser(tz, bag, ar, reg)
	prog := p.Parse()
	r.Prog = prog
	if bag.Errors() > 0 {
		r.FailedStage = "parsing"
		return r
	}

	if opts.FoldConstants {
		fold.Program(prog)
	}

	checker := sema.NewChecker(bag, reg, buf.Name)
	checker.Check(prog)
	if bag.Errors() > 0 {
		r.FailedStage = "semantic analysis"
		return r
	}

	lowerer := mir.NewLowerer(reg, bag, buf.Name)
	mod := lowerer.Lower(prog)
	r.Module = mod
	if bag.Errors() > 0 {
		r.FailedStage = "lowering"
		return r
	}

	r.Asm = codegen.EmitModule(mod)
	return r
}

// CompileString is a convenience wrapper for Compile(source.FromString(...)).
func CompileString(name, text string, opts config.Options) *Result {
	return Compile(source.FromString(name, text), opts)
}
