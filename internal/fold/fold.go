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

// Package fold is the optional constant-folding pass: it
// folds pure integer `+ - * /` and unary `- +` on numeric-literal
// subtrees into a single decimal-literal leaf, and folds float<->int
// casts of constants. Division by zero leaves the subtree untouched
// rather than folding it, so sema/codegen see the same divide-by-zero
// they would from unfolded code.
package fold

import (
	"strconv"

	"rv64cc/internal/lex"
	"rv64cc/internal/parse"
	"rv64cc/internal/source"
	"rv64cc/internal/types"
)

// Expr folds e bottom-up and returns its (possibly replaced) root. The
// caller is responsible for substituting the result back into its own
// parent field; Expr never mutates a node in place except to fold its
// children.
func Expr(e parse.Expr) parse.Expr {
	if e == nil {
		return nil
	}
	switch x := e.(type) {
	case *parse.ParenExpr:
		x.Inner = Expr(x.Inner)
		if lit, ok := x.Inner.(*parse.LiteralExpr); ok {
			return lit
		}
		return x
	case *parse.BinaryExpr:
		x.Left = Expr(x.Left)
		x.Right = Expr(x.Right)
		if lv, ok := intValue(x.Left); ok {
			if rv, ok2 := intValue(x.Right); ok2 {
				if res, folded := applyIntOp(x.Op, lv, rv); folded {
					return intLiteral(res, x.Pos())
				}
			}
		}
		return x
	case *parse.UnaryExpr:
		x.Inner = Expr(x.Inner)
		if x.Postfix || (x.Op != lex.PMinus && x.Op != lex.PPlus) {
			return x
		}
		if v, ok := intValue(x.Inner); ok {
			if x.Op == lex.PMinus {
				v = -v
			}
			return intLiteral(v, x.Pos())
		}
		if f, isDouble, ok := floatValue(x.Inner); ok {
			if x.Op == lex.PMinus {
				f = -f
			}
			return floatLiteral(f, isDouble, x.Pos())
		}
		return x
	case *parse.CastExpr:
		x.Inner = Expr(x.Inner)
		return foldCast(x)
	case *parse.IndexExpr:
		x.Base = Expr(x.Base)
		x.Index = Expr(x.Index)
		return x
	case *parse.MemberExpr:
		x.Base = Expr(x.Base)
		return x
	case *parse.CallExpr:
		for i, a := range x.Args {
			x.Args[i] = Expr(a)
		}
		return x
	case *parse.AssignExpr:
		x.Right = Expr(x.Right)
		return x
	case *parse.TernaryExpr:
		x.Cond = Expr(x.Cond)
		x.Then = Expr(x.Then)
		x.Else = Expr(x.Else)
		return x
	case *parse.InitListExpr:
		for i, el := range x.Elems {
			x.Elems[i] = Expr(el)
		}
		return x
	default:
		return e
	}
}

// Program folds every expression reachable from prog in place, run
// between parsing and sema so the checker and lowerer both see already
// reduced constant subtrees. The CLI's -fold-constants flag controls
// whether Program is invoked at all.
func Program(prog *parse.Program) {
	for _, g := range prog.Globals {
		g.Init = Expr(g.Init)
	}
	for _, fn := range prog.Funcs {
		if fn.Body != nil {
			block(fn.Body)
		}
	}
}

func block(b *parse.Block) {
	for _, s := range b.Stmts {
		stmt(s)
	}
}

func stmt(s parse.Stmt) {
	switch st := s.(type) {
	case *parse.ExprStmt:
		st.X = Expr(st.X)
	case *parse.DeclStmt:
		for _, d := range st.Decls {
			d.Init = Expr(d.Init)
		}
	case *parse.ReturnStmt:
		st.Value = Expr(st.Value)
	case *parse.IfStmt:
		st.Cond = Expr(st.Cond)
		block(st.Then)
		switch e := st.Else.(type) {
		case *parse.Block:
			block(e)
		case *parse.IfStmt:
			stmt(e)
		}
	case *parse.WhileStmt:
		st.Cond = Expr(st.Cond)
		block(st.Body)
	case *parse.ForStmt:
		stmt(st.Init)
		st.Cond = Expr(st.Cond)
		st.Post = Expr(st.Post)
		block(st.Body)
	case *parse.BlockStmt:
		block(st.Body)
	}
}

func intValue(e parse.Expr) (int64, bool) {
	lit, ok := e.(*parse.LiteralExpr)
	if !ok || !lit.Tok.Kind.IsLiteral() {
		return 0, false
	}
	switch lit.Tok.Kind {
	case lex.LitDec, lex.LitHex, lex.LitOct, lex.LitBin:
		return lit.Tok.Value.Int, true
	case lex.LitChar:
		return lit.Tok.Value.Int, true
	}
	return 0, false
}

// floatValue returns (value, wasDouble, ok).
func floatValue(e parse.Expr) (float64, bool, bool) {
	lit, ok := e.(*parse.LiteralExpr)
	if !ok {
		return 0, false, false
	}
	switch lit.Tok.Kind {
	case lex.LitDouble:
		return lit.Tok.Value.Float, true, true
	case lex.LitFloat:
		return lit.Tok.Value.Float, false, true
	}
	return 0, false, false
}

func applyIntOp(op lex.Kind, l, r int64) (int64, bool) {
	switch op {
	case lex.PPlus:
		return l + r, true
	case lex.PMinus:
		return l - r, true
	case lex.PStar:
		return l * r, true
	case lex.PSlash:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	}
	return 0, false
}

func foldCast(x *parse.CastExpr) parse.Expr {
	if iv, ok := intValue(x.Inner); ok && x.To.IsFloating() {
		return floatLiteral(float64(iv), x.To.Base == types.BaseDouble, x.Pos())
	}
	if fv, _, ok := floatValue(x.Inner); ok && x.To.IsInteger() {
		return intLiteral(int64(fv), x.Pos())
	}
	return x
}

// synthToken builds a lex.Token backed by a freshly materialized
// one-off source buffer, so a folded literal's Text spelling is the
// computed decimal/float value rather than a slice of the original
// source (there is no single source span to point at once operands
// have been combined).
func synthToken(kind lex.Kind, text string) lex.Token {
	buf := source.FromString("<const-fold>", text)
	return lex.Token{Kind: kind, Text: source.Splice{Buf: buf, Offset: 0, Length: len(text)}}
}

func intLiteral(v int64, pos parse.Position) *parse.LiteralExpr {
	tok := synthToken(lex.LitDec, strconv.FormatInt(v, 10))
	tok.Value.Int = v
	return parse.NewLiteralExpr(pos, tok)
}

func floatLiteral(v float64, isDouble bool, pos parse.Position) *parse.LiteralExpr {
	kind := lex.LitFloat
	if isDouble {
		kind = lex.LitDouble
	}
	tok := synthToken(kind, strconv.FormatFloat(v, 'g', -1, 64))
	tok.Value.Float = v
	return parse.NewLiteralExpr(pos, tok)
}
