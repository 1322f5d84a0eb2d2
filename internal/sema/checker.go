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
	"strings"

	"rv64cc/internal/diag"
	"rv64cc/internal/lex"
	"rv64cc/internal/parse"
	"rv64cc/internal/types"
)

// Checker runs the post-parse semantic pass: name resolution, operator
// and cast type-checking, lvalue/arity/initializer validation. It
// assigns every Expr its ExprType so internal/mir's lowering never has
// to re-derive one.
type Checker struct {
	bag  *diag.Bag
	reg  *types.Registry
	file string

	funcs map[string]*parse.FuncDecl

	// declared tracks, per block, the names whose declarations this walk
	// has already passed, so a second `int a;` in the same scope is a
	// redefinition even across separate declaration statements.
	declared map[*parse.Block]map[string]bool

	loopDepth int
}

// NewChecker creates a Checker reporting into bag and resolving
// composite layouts through reg.
func NewChecker(bag *diag.Bag, reg *types.Registry, file string) *Checker {
	return &Checker{
		bag:      bag,
		reg:      reg,
		file:     file,
		funcs:    make(map[string]*parse.FuncDecl),
		declared: make(map[*parse.Block]map[string]bool),
	}
}

func (c *Checker) errorf(pos parse.Position, format string, args ...interface{}) {
	c.bag.Errorf(diag.Semantic, c.file, pos.Line, pos.Col, format, args...)
}

// Check walks the whole translation unit. Analysis
// continues to the end of each function body even after an error; the
// pipeline only refuses to proceed once Check returns if
// c.bag.Errors() > 0 overall.
func (c *Checker) Check(prog *parse.Program) {
	for _, fn := range prog.Funcs {
		c.funcs[fn.Name] = fn
	}
	for _, g := range prog.Globals {
		c.checkDeclaredType(g.Pos(), g.Name, g.Type)
		if g.Init != nil {
			c.checkInitializer(prog.File, g.Type, g.Init)
		}
	}
	for _, fn := range prog.Funcs {
		c.checkSignature(fn)
		if fn.Body != nil {
			params := make(map[string]bool, len(fn.Params))
			for _, p := range fn.Params {
				params[p.Name] = true
			}
			c.declared[fn.Body] = params
			c.checkBlock(fn.Body, fn)
		}
	}
}

// checkSignature rejects struct/union values in a function signature:
// the call sequence passes scalars in registers only, so aggregates must
// travel behind a pointer. Reporting it here keeps the failure a
// diagnostic instead of a miscompiled call.
func (c *Checker) checkSignature(fn *parse.FuncDecl) {
	if fn.RetType.IsComposite() {
		c.bag.Errorf(diag.FeatureNotSupported, c.file, fn.Pos().Line, fn.Pos().Col,
			"returning %s by value from %q is not supported; return a pointer", fn.RetType, fn.Name)
	}
	ints, floats := 0, 0
	for _, p := range fn.Params {
		if p.Type.IsComposite() {
			c.bag.Errorf(diag.FeatureNotSupported, c.file, fn.Pos().Line, fn.Pos().Col,
				"passing %s by value (parameter %q of %q) is not supported; pass a pointer", p.Type, p.Name, fn.Name)
			continue
		}
		if p.Type.IsFloating() {
			floats++
		} else {
			ints++
		}
	}
	if ints > 8 || floats > 8 {
		c.bag.Errorf(diag.FeatureNotSupported, c.file, fn.Pos().Line, fn.Pos().Col,
			"%q needs more than eight argument registers of one kind; stack-passed arguments are not supported", fn.Name)
	}
}

// checkDeclaredType validates that a variable can actually be laid out:
// not void, not an undefined struct/union tag.
func (c *Checker) checkDeclaredType(pos parse.Position, name string, t *types.DataType) {
	base := t
	for base.Kind == types.KArray {
		base = base.Elem
	}
	if base.Kind == types.KVoid {
		c.errorf(pos, "variable %q declared with void type", name)
		return
	}
	if base.IsComposite() {
		if comp := c.composite(base); comp == nil || !comp.Defined {
			c.errorf(pos, "variable %q has incomplete type %s", name, base)
		}
	}
}

func (c *Checker) checkBlock(b *parse.Block, fn *parse.FuncDecl) {
	for _, s := range b.Stmts {
		c.checkStmt(b, fn, s)
	}
}

func (c *Checker) checkStmt(scope *parse.Block, fn *parse.FuncDecl, s parse.Stmt) {
	switch st := s.(type) {
	case *parse.ExprStmt:
		c.checkExpr(scope, st.X)
	case *parse.DeclStmt:
		seen := c.declared[scope]
		if seen == nil {
			seen = make(map[string]bool)
			c.declared[scope] = seen
		}
		for _, d := range st.Decls {
			if seen[d.Name] {
				c.errorf(d.Pos(), "redefinition of %q", d.Name)
			}
			seen[d.Name] = true
			c.checkDeclaredType(d.Pos(), d.Name, d.Type)
			if d.Init != nil {
				c.checkInitializer(scope, d.Type, d.Init)
			}
		}
	case *parse.ReturnStmt:
		if st.Value != nil {
			rt := c.checkExpr(scope, st.Value)
			if fn.RetType.Kind == types.KVoid {
				c.errorf(st.Pos(), "returning a value from void function %q", fn.Name)
			} else if !convertible(rt, fn.RetType) {
				c.errorf(st.Pos(), "cannot return %s from function returning %s", rt, fn.RetType)
			}
		} else if fn.RetType.Kind != types.KVoid {
			c.errorf(st.Pos(), "missing return value in function %q returning %s", fn.Name, fn.RetType)
		}
	case *parse.IfStmt:
		ct := c.checkExpr(scope, st.Cond)
		if !ct.IsScalar() && ct.Kind != types.KError {
			c.errorf(st.Pos(), "if condition must be scalar, got %s", ct)
		}
		c.checkBlock(st.Then, fn)
		switch e := st.Else.(type) {
		case *parse.Block:
			c.checkBlock(e, fn)
		case *parse.IfStmt:
			c.checkStmt(scope, fn, e)
		}
	case *parse.WhileStmt:
		c.loopDepth++
		ct := c.checkExpr(scope, st.Cond)
		if !ct.IsScalar() && ct.Kind != types.KError {
			c.errorf(st.Pos(), "while condition must be scalar, got %s", ct)
		}
		c.checkBlock(st.Body, fn)
		c.loopDepth--
	case *parse.ForStmt:
		c.loopDepth++
		c.checkStmt(st.Body, fn, st.Init)
		if st.Cond != nil {
			c.checkExpr(st.Body, st.Cond)
		}
		if st.Post != nil {
			c.checkExpr(st.Body, st.Post)
		}
		c.checkBlock(st.Body, fn)
		c.loopDepth--
	case *parse.BreakStmt:
		if c.loopDepth == 0 {
			c.errorf(st.Pos(), "break outside of a loop")
		}
	case *parse.ContinueStmt:
		if c.loopDepth == 0 {
			c.errorf(st.Pos(), "continue outside of a loop")
		}
	case *parse.BlockStmt:
		c.checkBlock(st.Body, fn)
	case *parse.EmptyStmt, *parse.ErrorStmt:
		// nothing to check
	}
}

// checkInitializer validates a scalar or brace initializer against its
// declared type: initializer lists must structurally match the
// declared aggregate.
func (c *Checker) checkInitializer(scope *parse.Block, declared *types.DataType, init parse.Expr) {
	if lst, ok := init.(*parse.InitListExpr); ok {
		switch {
		case declared.IsArray():
			if declared.Count >= 0 && len(lst.Elems) > declared.Count {
				c.errorf(init.Pos(), "too many initializers for array of %d elements", declared.Count)
			}
			for _, e := range lst.Elems {
				c.checkInitializer(scope, declared.Elem, e)
			}
		case declared.IsComposite():
			comp := c.composite(declared)
			if comp != nil && len(lst.Elems) > len(comp.Members) {
				c.errorf(init.Pos(), "too many initializers for %s", declared)
			}
			for i, e := range lst.Elems {
				if comp != nil && i < len(comp.Members) {
					c.checkInitializer(scope, comp.Members[i].Type, e)
				} else {
					c.checkExpr(scope, e)
				}
			}
		default:
			c.errorf(init.Pos(), "brace initializer used for scalar type %s", declared)
		}
		init.SetExprType(declared)
		return
	}
	t := c.checkExpr(scope, init)
	if !convertible(t, declared) {
		c.errorf(init.Pos(), "cannot initialize %s from %s", declared, t)
	}
}

func (c *Checker) composite(t *types.DataType) *types.Composite {
	if t.Kind == types.KStruct {
		if cp, ok := c.reg.Struct(t.Name); ok {
			return cp
		}
	}
	if t.Kind == types.KUnion {
		if cp, ok := c.reg.Union(t.Name); ok {
			return cp
		}
	}
	return nil
}

// convertible is sema's coarse "can this value be used where that type
// is expected" predicate: any scalar converts to any other scalar
// (integer promotion/truncation and float<->int are all legal, if
// sometimes lossy), composites only convert to their own identical
// type, and the error type is always accepted to avoid cascading.
func convertible(from, to *types.DataType) bool {
	if from.Kind == types.KError || to.Kind == types.KError {
		return true
	}
	if from.IsScalar() && to.IsScalar() {
		return true
	}
	return from.Equals(to)
}

// checkExpr type-checks e in scope, recording and returning its
// resultant DataType. A failed check yields types.Error rather than
// aborting, so the rest of the function can still be checked.
func (c *Checker) checkExpr(scope *parse.Block, e parse.Expr) *types.DataType {
	if e == nil {
		return types.Error
	}
	var t *types.DataType
	switch x := e.(type) {
	case *parse.ParenExpr:
		t = c.checkExpr(scope, x.Inner)
	case *parse.IdentExpr:
		if dt, ok := scope.Lookup(x.Name); ok {
			t = dt
		} else {
			c.errorf(x.Pos(), "undeclared identifier %q", x.Name)
			t = types.Error
		}
	case *parse.LiteralExpr:
		t = literalType(x.Tok)
	case *parse.BinaryExpr:
		lt := c.checkExpr(scope, x.Left)
		rt := c.checkExpr(scope, x.Right)
		t = resultantType(c.reg, lt, rt, x.Op, c.bag, c.file, x.Pos().Line, x.Pos().Col)
	case *parse.AssignExpr:
		lt := c.checkExpr(scope, x.Left)
		rt := c.checkExpr(scope, x.Right)
		if !x.Left.IsLvalue() {
			c.errorf(x.Pos(), "left-hand side of assignment is not an lvalue")
		} else if lt.Qual.Has(types.QConst) {
			c.errorf(x.Pos(), "cannot assign to const-qualified value")
		}
		if lt.IsComposite() && x.Op != lex.PAssign {
			c.errorf(x.Pos(), "compound assignment is not defined for %s", lt)
		}
		t = resultantType(c.reg, lt, rt, underlyingOp(x.Op), c.bag, c.file, x.Pos().Line, x.Pos().Col)
	case *parse.UnaryExpr:
		t = c.checkUnary(scope, x)
	case *parse.CallExpr:
		t = c.checkCall(scope, x)
	case *parse.CastExpr:
		it := c.checkExpr(scope, x.Inner)
		if !castAllowed(it, x.To) {
			c.errorf(x.Pos(), "invalid cast from %s to %s", it, x.To)
		}
		t = x.To
	case *parse.InitListExpr:
		for _, el := range x.Elems {
			c.checkExpr(scope, el)
		}
		t = types.Error
	case *parse.IndexExpr:
		bt := c.checkExpr(scope, x.Base)
		it := c.checkExpr(scope, x.Index)
		if !it.IsInteger() && it.Kind != types.KError {
			c.errorf(x.Pos(), "array index must be an integer, got %s", it)
		}
		switch {
		case bt.IsArray():
			t = bt.Elem
		case bt.IsPointer():
			t = bt.Pointee
		case bt.Kind == types.KError:
			t = types.Error
		default:
			c.errorf(x.Pos(), "cannot index into %s", bt)
			t = types.Error
		}
	case *parse.MemberExpr:
		bt := c.checkExpr(scope, x.Base)
		target := bt
		if x.Arrow {
			if !bt.IsPointer() {
				c.errorf(x.Pos(), "-> applied to non-pointer %s", bt)
				t = types.Error
				break
			}
			target = bt.Pointee
		}
		comp := c.composite(target)
		if comp == nil {
			if target.Kind != types.KError {
				c.errorf(x.Pos(), "%s is not a struct or union", target)
			}
			t = types.Error
			break
		}
		m, ok := comp.Member(x.Member)
		if !ok {
			c.errorf(x.Pos(), "%s has no member %q", target, x.Member)
			t = types.Error
			break
		}
		t = m.Type
	case *parse.SizeofTypeExpr:
		if x.Of.Kind == types.KVoid {
			c.errorf(x.Pos(), "sizeof(void) is invalid")
		}
		t = types.ULong
	case *parse.SizeofExprExpr:
		it := c.checkExpr(scope, x.Inner)
		if it.Kind == types.KVoid {
			c.errorf(x.Pos(), "sizeof of a void expression is invalid")
		}
		t = types.ULong
	case *parse.TernaryExpr:
		ct := c.checkExpr(scope, x.Cond)
		if !ct.IsScalar() && ct.Kind != types.KError {
			c.errorf(x.Pos(), "ternary condition must be scalar, got %s", ct)
		}
		tt := c.checkExpr(scope, x.Then)
		et := c.checkExpr(scope, x.Else)
		// The arms merge like an assignment: equal pointer arms keep the
		// left arm's type, mixed scalars promote.
		t = resultantType(c.reg, tt, et, lex.PAssign, c.bag, c.file, x.Pos().Line, x.Pos().Col)
	case *parse.ErrorExpr:
		t = types.Error
	default:
		t = types.Error
	}
	e.SetExprType(t)
	return t
}

func (c *Checker) checkUnary(scope *parse.Block, x *parse.UnaryExpr) *types.DataType {
	it := c.checkExpr(scope, x.Inner)
	switch x.Op {
	case lex.PAmp:
		if !x.Inner.IsLvalue() {
			c.errorf(x.Pos(), "cannot take the address of a non-lvalue")
			return types.Error
		}
		return types.Pointer(it)
	case lex.PStar:
		if it.IsPointer() {
			return it.Pointee
		}
		if it.IsArray() {
			return it.Elem
		}
		if it.Kind != types.KError {
			c.errorf(x.Pos(), "cannot dereference non-pointer %s", it)
		}
		return types.Error
	case lex.PIncr, lex.PDecr:
		if !x.Inner.IsLvalue() {
			c.errorf(x.Pos(), "operand of %s must be an lvalue", opName(x.Op))
		}
		return it
	case lex.PBang:
		if !it.IsScalar() && it.Kind != types.KError {
			c.errorf(x.Pos(), "! requires a scalar operand, got %s", it)
		}
		return types.Int
	case lex.PTilde:
		if !it.IsInteger() && it.Kind != types.KError {
			c.errorf(x.Pos(), "~ requires an integer operand, got %s", it)
		}
		return it
	default: // unary + / -
		if !it.IsScalar() && it.Kind != types.KError {
			c.errorf(x.Pos(), "unary %s requires a scalar operand, got %s", opName(x.Op), it)
		}
		return it
	}
}

func (c *Checker) checkCall(scope *parse.Block, x *parse.CallExpr) *types.DataType {
	fn, ok := c.funcs[x.Callee]
	if !ok {
		c.errorf(x.Pos(), "call to undeclared function %q", x.Callee)
		for _, a := range x.Args {
			c.checkExpr(scope, a)
		}
		return types.Error
	}
	if len(x.Args) != len(fn.Params) && !(fn.Variadic && len(x.Args) >= len(fn.Params)) {
		c.errorf(x.Pos(), "%q expects %d argument(s), got %d", x.Callee, len(fn.Params), len(x.Args))
	}
	for i, a := range x.Args {
		at := c.checkExpr(scope, a)
		if i < len(fn.Params) && !convertible(at, fn.Params[i].Type) {
			c.errorf(a.Pos(), "argument %d to %q: cannot convert %s to %s", i+1, x.Callee, at, fn.Params[i].Type)
		}
	}
	return fn.RetType
}

func opName(k lex.Kind) string {
	switch k {
	case lex.PIncr:
		return "++"
	case lex.PDecr:
		return "--"
	case lex.PPlus:
		return "+"
	case lex.PMinus:
		return "-"
	}
	return "operator"
}

// castAllowed is the explicit-conversion table collapsed to its
// essentials: any scalar casts to any scalar; a pointer may be cast to
// another pointer (a lossy-pointee-size cast is a caller concern, not
// an error here); any value may be cast to void, but a void value cannot
// be cast to anything else.
func castAllowed(from, to *types.DataType) bool {
	if from.Kind == types.KError || to.Kind == types.KError {
		return true
	}
	if to.Kind == types.KVoid {
		return true
	}
	if from.IsPointer() && to.IsPointer() {
		return true
	}
	if from.Kind == types.KVoid {
		return false
	}
	return from.IsScalar() && to.IsScalar()
}

// literalType infers a LiteralExpr's DataType from its token kind and
// (for integers) its suffix spelling.
func literalType(tok lex.Token) *types.DataType {
	switch tok.Kind {
	case lex.LitFloat:
		return types.Float
	case lex.LitDouble:
		return types.Double
	case lex.LitChar:
		return types.Char
	case lex.LitString:
		return types.Pointer(types.Char)
	case lex.LitDec, lex.LitHex, lex.LitOct, lex.LitBin:
		spell := strings.ToLower(tok.Text.Text())
		unsigned := strings.Contains(spell, "u")
		long := strings.Count(spell, "l")
		switch {
		case long >= 2:
			if unsigned {
				return &types.DataType{Kind: types.KPrimary, Base: types.BaseInt, Qual: types.QUnsigned | types.QLongLong}
			}
			return types.LongLong
		case long == 1:
			if unsigned {
				return types.ULong
			}
			return types.Long
		case unsigned:
			return types.UInt
		default:
			return types.Int
		}
	}
	return types.Error
}
