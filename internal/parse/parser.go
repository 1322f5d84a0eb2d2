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
	"fmt"

	"rv64cc/internal/arena"
	"rv64cc/internal/diag"
	"rv64cc/internal/lex"
	"rv64cc/internal/types"
)

// recoverySet is the set of tokens a syntax error resynchronizes on:
// a statement/declaration boundary
// or a closing delimiter, so a dropped token doesn't cascade.
var recoverySet = map[lex.Kind]bool{
	lex.PLBrace: true, lex.PRBrace: true, lex.PSemi: true,
	lex.PComma: true, lex.PRParen: true, lex.PRBracket: true,
	lex.TkEOF: true,
}

// Parser is a one-token-lookahead recursive-descent parser over a
// Tokenizer, producing the arena-allocated tree of internal/parse's AST
// node types. Subexpressions are parsed by precedence climbing
// (parseSubexpr) rather than one grammar production per precedence
// level.
type Parser struct {
	tz  *lex.Tokenizer
	bag *diag.Bag
	ar  *arena.Arena
	reg *types.Registry

	typedefs map[string]*types.DataType
	anonSeq  int

	cur    lex.Token
	errors int
}

// NewParser creates a Parser that will read from tz, report into bag,
// allocate nodes from ar, and resolve/define struct and union tags in
// reg.
func NewParser(tz *lex.Tokenizer, bag *diag.Bag, ar *arena.Arena, reg *types.Registry) *Parser {
	p := &Parser{tz: tz, bag: bag, ar: ar, reg: reg, typedefs: make(map[string]*types.DataType)}
	p.cur = tz.Next()
	return p
}

// Errors reports how many syntax errors were recorded.
func (p *Parser) Errors() int { return p.errors }

func (p *Parser) pos() Position { return Position{p.cur.Line(), p.cur.Column()} }

func (p *Parser) advance() lex.Token {
	t := p.cur
	p.cur = p.tz.Next()
	return t
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors++
	p.bag.Errorf(diag.Syntactic, p.tz.File(), p.cur.Line(), p.cur.Column(), format, args...)
}

// expect consumes cur if it has kind k, else reports a diagnostic and
// leaves cur untouched so the caller's synchronize() can recover.
func (p *Parser) expect(k lex.Kind) (lex.Token, bool) {
	if p.cur.Kind == k {
		return p.advance(), true
	}
	p.errorf("unexpected token %q", p.cur.String())
	return p.cur, false
}

func (p *Parser) expectIdent() (string, bool) {
	if p.cur.Kind == lex.TkIdent {
		return p.advance().String(), true
	}
	p.errorf("expected identifier, found %q", p.cur.String())
	return "", false
}

// synchronize discards tokens up to the next recovery delimiter and
// consumes that delimiter only when it is ';' or ','; any other member of
// recoverySet (EOF, braces, ')' or ']') is left as cur. This keeps a
// malformed declaration or statement from corrupting everything after it.
func (p *Parser) synchronize() {
	for !recoverySet[p.cur.Kind] {
		p.advance()
	}
	if p.cur.Kind == lex.PSemi || p.cur.Kind == lex.PComma {
		p.advance()
	}
}

// -----------------------------------------------------------------------
// Program / external declarations

// Parse consumes the whole token stream and returns the translation
// unit. Compilation only proceeds past this stage when p.Errors() == 0.
func (p *Parser) Parse() *Program {
	file := p.newBlock(nil, ScopeUnnamed)
	prog := &Program{File: file}

	for p.cur.Kind != lex.TkEOF {
		p.parseExternalDecl(prog, file)
	}
	return prog
}

func (p *Parser) isTypeStart(k lex.Kind) bool {
	switch k {
	case lex.KwVoid, lex.KwChar, lex.KwInt, lex.KwShort, lex.KwLong, lex.KwFloat,
		lex.KwDouble, lex.KwSigned, lex.KwUnsigned, lex.KwStruct, lex.KwUnion,
		lex.KwConst, lex.KwVolatile, lex.KwExtern, lex.KwStatic, lex.KwInline,
		lex.KwRegister, lex.KwTypedef:
		return true
	case lex.TkIdent:
		_, ok := p.typedefs[p.cur.String()]
		return ok
	}
	return false
}

// parseExternalDecl handles one top-level typedef, function, or global
// variable declaration, reporting feature-not-supported for any
// recognized-but-unimplemented keyword it meets along the way.
func (p *Parser) parseExternalDecl(prog *Program, file *Block) {
	if !p.isTypeStart(p.cur.Kind) {
		p.errorf("expected a declaration, found %q", p.cur.String())
		p.synchronize()
		return
	}

	base, isTypedef, ok := p.parseDeclSpec()
	if !ok {
		p.synchronize()
		return
	}

	// `struct A { ... };` with no declarator only registers the tag.
	if base.IsComposite() && p.cur.Kind == lex.PSemi {
		p.advance()
		return
	}

	ty, name, nameOK := p.parseDeclarator(base)
	if !nameOK {
		p.synchronize()
		return
	}

	if isTypedef {
		p.typedefs[name] = ty
		td := &TypedefDecl{declBase: declBase{pos: p.pos()}, Name: name, Type: ty}
		prog.Typedefs = append(prog.Typedefs, td)
		p.expect(lex.PSemi)
		return
	}

	if p.cur.Kind == lex.PLParen {
		fn := p.parseFuncRest(file, name, ty)
		prog.Funcs = append(prog.Funcs, fn)
		file.Symbols.Declare(name, fnPointerType(fn))
		return
	}

	var init Expr
	if p.cur.Kind == lex.PAssign {
		p.advance()
		init = p.parseInitializer()
	}
	vd := &VarDecl{declBase: declBase{pos: p.pos()}, Name: name, Type: ty, Init: init}
	prog.Globals = append(prog.Globals, vd)
	file.Symbols.Declare(name, ty)
	for p.cur.Kind == lex.PComma {
		p.advance()
		_, name2, ok2 := p.parseDeclarator(base)
		if !ok2 {
			break
		}
		var init2 Expr
		if p.cur.Kind == lex.PAssign {
			p.advance()
			init2 = p.parseInitializer()
		}
		vd2 := &VarDecl{declBase: declBase{pos: p.pos()}, Name: name2, Type: ty, Init: init2}
		prog.Globals = append(prog.Globals, vd2)
		file.Symbols.Declare(name2, ty)
	}
	p.expect(lex.PSemi)
}

func fnPointerType(fn *FuncDecl) *types.DataType {
	return types.Pointer(fn.RetType)
}

// parseFuncRest parses the parameter list and body (or trailing ';' for
// a prototype) of a function whose name and return type are already
// known; cur is the opening '('. file becomes the body's parent scope so
// globals stay visible from inside the function.
func (p *Parser) parseFuncRest(file *Block, name string, ret *types.DataType) *FuncDecl {
	pos := p.pos()
	p.advance() // '('
	var params []Param
	variadic := false
	if p.cur.Kind != lex.PRParen {
		for {
			if p.cur.Kind == lex.PEllipsis {
				p.advance()
				variadic = true
				break
			}
			if p.cur.Kind == lex.KwVoid {
				// bare `(void)` parameter list
				save := p.cur
				p.advance()
				if p.cur.Kind == lex.PRParen {
					break
				}
				p.tz.RewindTo(save)
				p.cur = p.tz.Next()
			}
			base, _, ok := p.parseDeclSpec()
			if !ok {
				break
			}
			pty, pname, _ := p.parseDeclarator(base)
			// An array parameter adjusts to a pointer to its element.
			params = append(params, Param{Name: pname, Type: pty.Decay()})
			if p.cur.Kind != lex.PComma {
				break
			}
			p.advance()
		}
	}
	p.expect(lex.PRParen)

	fn := &FuncDecl{declBase: declBase{pos: pos}, Name: name, Params: params, Variadic: variadic, RetType: ret}
	if p.cur.Kind == lex.PSemi {
		p.advance()
		return fn
	}
	fn.Body = p.parseFunctionBody(file, fn)
	return fn
}

func (p *Parser) parseFunctionBody(file *Block, fn *FuncDecl) *Block {
	b := p.newBlock(file, ScopeFunction)
	b.FuncName = fn.Name
	for _, pm := range fn.Params {
		b.Symbols.Declare(pm.Name, pm.Type)
	}
	p.expect(lex.PLBrace)
	for p.cur.Kind != lex.PRBrace && p.cur.Kind != lex.TkEOF {
		b.Stmts = append(b.Stmts, p.parseStmt(b))
	}
	p.expect(lex.PRBrace)
	return b
}

// newBlock allocates a Block from the parser's arena -- scopes are
// exactly the kind of short-lived, per-compilation node the arena is
// sized for.
func (p *Parser) newBlock(parent *Block, kind ScopeKind) *Block {
	b := arena.Alloc[Block](p.ar)
	b.Symbols = types.NewSymbolTable[*types.DataType]()
	b.StructTags = types.NewSymbolTable[*types.Composite]()
	b.UnionTags = types.NewSymbolTable[*types.Composite]()
	b.Parent = parent
	b.Kind = kind
	b.pos = p.pos()
	return b
}

// -----------------------------------------------------------------------
// Declaration specifiers and declarators

// parseDeclSpec consumes storage-class keywords, qualifiers, and the
// base-type keywords/struct-union-specifier/typedef-name, returning the
// (unqualified-of-pointer) base DataType, whether `typedef` appeared,
// and whether anything parseable was found at all.
func (p *Parser) parseDeclSpec() (*types.DataType, bool, bool) {
	var qual types.Qual
	isTypedef := false
	sawSigned, sawUnsigned := false, false
	longCount := 0
	sawShort := false
	var base *types.DataType
	any := false

loop:
	for {
		switch p.cur.Kind {
		case lex.KwTypedef:
			isTypedef = true
			p.advance()
			any = true
		case lex.KwExtern:
			qual |= types.QExtern
			p.advance()
			any = true
		case lex.KwStatic:
			qual |= types.QStatic
			p.advance()
			any = true
		case lex.KwInline:
			qual |= types.QInline
			p.advance()
			any = true
		case lex.KwRegister:
			qual |= types.QRegister
			p.advance()
			any = true
		case lex.KwConst:
			qual |= types.QConst
			p.advance()
			any = true
		case lex.KwVolatile:
			qual |= types.QVolatile
			p.advance()
			any = true
		case lex.KwSigned:
			sawSigned = true
			p.advance()
			any = true
		case lex.KwUnsigned:
			sawUnsigned = true
			p.advance()
			any = true
		case lex.KwShort:
			sawShort = true
			p.advance()
			any = true
		case lex.KwLong:
			longCount++
			p.advance()
			any = true
		case lex.KwChar:
			base = types.Char
			p.advance()
			any = true
		case lex.KwInt:
			if base == nil {
				base = types.Int
			}
			p.advance()
			any = true
		case lex.KwFloat:
			base = types.Float
			p.advance()
			any = true
		case lex.KwDouble:
			base = types.Double
			p.advance()
			any = true
		case lex.KwVoid:
			base = types.Void
			p.advance()
			any = true
		case lex.KwStruct, lex.KwUnion:
			base = p.parseCompositeSpec()
			any = true
		case lex.TkIdent:
			if t, ok := p.typedefs[p.cur.String()]; ok && base == nil {
				base = t
				p.advance()
				any = true
			} else {
				break loop
			}
		default:
			if _, unsupported := lex.UnsupportedKeywords[p.cur.Kind]; unsupported {
				p.errors++
				p.bag.Errorf(diag.FeatureNotSupported, p.tz.File(), p.cur.Line(), p.cur.Column(),
					"unsupported construct %q", p.cur.String())
				p.advance()
				any = true
				continue
			}
			break loop
		}
	}

	if !any {
		return nil, false, false
	}
	if base == nil {
		base = types.Int
	}
	out := &types.DataType{Kind: base.Kind, Base: base.Base, Qual: base.Qual | qual, Pointee: base.Pointee, Elem: base.Elem, Count: base.Count, Name: base.Name}
	if sawUnsigned {
		out.Qual |= types.QUnsigned
		out.Qual &^= types.QSigned
	} else if sawSigned {
		out.Qual |= types.QSigned
	}
	if sawShort {
		out.Qual |= types.QShort
	}
	if longCount == 1 {
		out.Qual |= types.QLong
	} else if longCount >= 2 {
		out.Qual |= types.QLongLong
	}
	return out, isTypedef, true
}

// parseCompositeSpec parses `struct|union [Tag] [ '{' member-list '}' ]`.
// cur is the struct/union keyword. An untagged definition (as in
// `typedef struct { ... } Name;`) gets a synthesized tag so the registry
// can still key it by name.
func (p *Parser) parseCompositeSpec() *types.DataType {
	isUnion := p.cur.Kind == lex.KwUnion
	p.advance()
	var name string
	if p.cur.Kind == lex.TkIdent {
		name = p.advance().String()
	} else if p.cur.Kind == lex.PLBrace {
		p.anonSeq++
		name = fmt.Sprintf("<anonymous-%d>", p.anonSeq)
	} else {
		p.errorf("expected a struct/union tag or member list, found %q", p.cur.String())
		return types.Error
	}

	var comp *types.Composite
	if isUnion {
		comp = p.reg.DefineUnion(name)
	} else {
		comp = p.reg.DefineStruct(name)
	}

	if p.cur.Kind == lex.PLBrace {
		p.advance()
		for p.cur.Kind != lex.PRBrace && p.cur.Kind != lex.TkEOF {
			mbase, _, ok := p.parseDeclSpec()
			if !ok {
				p.synchronize()
				continue
			}
			for {
				mty, mname, mok := p.parseDeclarator(mbase)
				if mok && !comp.AddMember(mname, mty) {
					p.errorf("duplicate member %q", mname)
				}
				if p.cur.Kind != lex.PComma {
					break
				}
				p.advance()
			}
			p.expect(lex.PSemi)
		}
		p.expect(lex.PRBrace)
		p.reg.Layout(comp)
	}

	if isUnion {
		return types.UnionRef(name)
	}
	return types.StructRef(name)
}

// parseDeclarator parses the pointer-qualifier chain and either a name
// with optional array dimensions: `base ('*' qualifier*)*` plus the
// trailing array suffix.
func (p *Parser) parseDeclarator(base *types.DataType) (*types.DataType, string, bool) {
	ty := base
	for p.cur.Kind == lex.PStar {
		p.advance()
		var q types.Qual
		for p.cur.Kind == lex.KwConst || p.cur.Kind == lex.KwVolatile || p.cur.Kind == lex.KwRestrict {
			if p.cur.Kind == lex.KwConst {
				q |= types.QConst
			}
			p.advance()
		}
		ty = &types.DataType{Kind: types.KPointer, Pointee: ty, Qual: q}
	}

	name, ok := p.expectIdent()
	if !ok {
		return ty, "", false
	}

	for p.cur.Kind == lex.PLBracket {
		p.advance()
		count := -1
		if p.cur.Kind != lex.PRBracket {
			if p.cur.Kind.IsLiteral() {
				count = int(p.advance().Value.Int)
			} else {
				p.errorf("expected a constant array bound")
				p.synchronize()
			}
		}
		p.expect(lex.PRBracket)
		ty = types.Array(ty, count)
	}
	return ty, name, true
}

// -----------------------------------------------------------------------
// Statements

func (p *Parser) parseStmt(scope *Block) Stmt {
	pos := p.pos()
	switch p.cur.Kind {
	case lex.PSemi:
		p.advance()
		return &EmptyStmt{stmtBase{pos}}
	case lex.PLBrace:
		inner := p.newBlock(scope, ScopeUnnamed)
		p.advance()
		for p.cur.Kind != lex.PRBrace && p.cur.Kind != lex.TkEOF {
			inner.Stmts = append(inner.Stmts, p.parseStmt(inner))
		}
		p.expect(lex.PRBrace)
		return &BlockStmt{stmtBase{pos}, inner}
	case lex.KwIf:
		return p.parseIf(scope)
	case lex.KwWhile:
		return p.parseWhile(scope)
	case lex.KwFor:
		return p.parseFor(scope)
	case lex.KwReturn:
		p.advance()
		var val Expr
		if p.cur.Kind != lex.PSemi {
			val = p.parseExpression()
		}
		p.expect(lex.PSemi)
		return &ReturnStmt{stmtBase{pos}, val}
	case lex.KwBreak:
		p.advance()
		p.expect(lex.PSemi)
		return &BreakStmt{stmtBase{pos}}
	case lex.KwContinue:
		p.advance()
		p.expect(lex.PSemi)
		return &ContinueStmt{stmtBase{pos}}
	default:
		if p.isTypeStart(p.cur.Kind) {
			return p.parseDeclStmt(scope)
		}
		x := p.parseExpression()
		p.expect(lex.PSemi)
		return &ExprStmt{stmtBase{pos}, x}
	}
}

func (p *Parser) parseDeclStmt(scope *Block) Stmt {
	pos := p.pos()
	base, isTypedef, ok := p.parseDeclSpec()
	if !ok {
		p.synchronize()
		return &ErrorStmt{stmtBase{pos}}
	}
	if isTypedef {
		ty, name, nameOK := p.parseDeclarator(base)
		if nameOK {
			p.typedefs[name] = ty
		}
		p.expect(lex.PSemi)
		return &EmptyStmt{stmtBase{pos}}
	}

	var decls []*VarDecl
	for {
		ty, name, dok := p.parseDeclarator(base)
		if !dok {
			break
		}
		var init Expr
		if p.cur.Kind == lex.PAssign {
			p.advance()
			init = p.parseInitializer()
		}
		scope.Symbols.Declare(name, ty)
		decls = append(decls, &VarDecl{declBase: declBase{pos: p.pos()}, Name: name, Type: ty, Init: init})
		if p.cur.Kind != lex.PComma {
			break
		}
		p.advance()
	}
	p.expect(lex.PSemi)
	return &DeclStmt{stmtBase{pos}, decls}
}

func (p *Parser) parseIf(scope *Block) Stmt {
	pos := p.pos()
	p.advance()
	p.expect(lex.PLParen)
	cond := p.parseExpression()
	p.expect(lex.PRParen)
	then := p.parseBracedOrSingle(scope, ScopeIf)
	var els Node
	if p.cur.Kind == lex.KwElse {
		p.advance()
		if p.cur.Kind == lex.KwIf {
			els = p.parseIf(scope)
		} else {
			els = p.parseBracedOrSingle(scope, ScopeIf)
		}
	}
	return &IfStmt{stmtBase{pos}, cond, then, els}
}

func (p *Parser) parseWhile(scope *Block) Stmt {
	pos := p.pos()
	p.advance()
	p.expect(lex.PLParen)
	cond := p.parseExpression()
	p.expect(lex.PRParen)
	body := p.parseBracedOrSingle(scope, ScopeWhile)
	return &WhileStmt{stmtBase{pos}, cond, body}
}

// parseFor keeps the init-clause a separate statement so it is lowered
// and emitted exactly once, before the loop's condition test, never
// re-evaluated on iteration.
func (p *Parser) parseFor(scope *Block) Stmt {
	pos := p.pos()
	p.advance()
	p.expect(lex.PLParen)
	forScope := p.newBlock(scope, ScopeFor)

	var init Stmt
	switch {
	case p.cur.Kind == lex.PSemi:
		p.advance()
		init = &EmptyStmt{stmtBase{p.pos()}}
	case p.isTypeStart(p.cur.Kind):
		init = p.parseDeclStmt(forScope)
	default:
		x := p.parseExpression()
		p.expect(lex.PSemi)
		init = &ExprStmt{stmtBase{p.pos()}, x}
	}

	var cond Expr
	if p.cur.Kind != lex.PSemi {
		cond = p.parseExpression()
	}
	p.expect(lex.PSemi)

	var post Expr
	if p.cur.Kind != lex.PRParen {
		post = p.parseExpression()
	}
	p.expect(lex.PRParen)

	forScope.Stmts = []Stmt{p.parseStmt(forScope)}
	body := forScope
	return &ForStmt{stmtBase{pos}, init, cond, post, body}
}

// parseBracedOrSingle parses either a `{ ... }` block or a single
// statement as a control-flow body, always materializing a Block so
// sema has a uniform scope to attach to.
func (p *Parser) parseBracedOrSingle(parent *Block, kind ScopeKind) *Block {
	if p.cur.Kind == lex.PLBrace {
		b := p.newBlock(parent, kind)
		p.advance()
		for p.cur.Kind != lex.PRBrace && p.cur.Kind != lex.TkEOF {
			b.Stmts = append(b.Stmts, p.parseStmt(b))
		}
		p.expect(lex.PRBrace)
		return b
	}
	b := p.newBlock(parent, kind)
	b.Stmts = []Stmt{p.parseStmt(b)}
	return b
}

// -----------------------------------------------------------------------
// Expressions: Pratt-style precedence climbing

// binPrec returns the precedence of a binary operator, C's table with
// lower numbers binding tighter; ok is false for a non-binary token.
func binPrec(k lex.Kind) (int, bool) {
	switch k {
	case lex.PStar, lex.PSlash, lex.PPercent:
		return 3, true
	case lex.PPlus, lex.PMinus:
		return 4, true
	case lex.PShl, lex.PShr:
		return 5, true
	case lex.PLt, lex.PGt, lex.PLe, lex.PGe:
		return 6, true
	case lex.PEq, lex.PNe:
		return 7, true
	case lex.PAmp:
		return 8, true
	case lex.PCaret:
		return 9, true
	case lex.PPipe:
		return 10, true
	case lex.PAndAnd:
		return 11, true
	case lex.POrOr:
		return 12, true
	}
	return 0, false
}

func isAssignOp(k lex.Kind) bool {
	switch k {
	case lex.PAssign, lex.PMulAssign, lex.PDivAssign, lex.PModAssign, lex.PAddAssign,
		lex.PSubAssign, lex.PShlAssign, lex.PShrAssign, lex.PAndAssign, lex.PXorAssign, lex.POrAssign:
		return true
	}
	return false
}

// parseExpression is the entry point for any subexpr position; the
// comma operator is deliberately not implemented as a general binary
// operator, only as a list separator in call arguments, initializer
// lists and declarator lists.
func (p *Parser) parseExpression() Expr {
	return p.parseAssignment()
}

// parseAssignment handles `=` and the compound-assignment punctuators,
// precedence 14, right-associative.
func (p *Parser) parseAssignment() Expr {
	left := p.parseTernary()
	if isAssignOp(p.cur.Kind) {
		op := p.cur.Kind
		pos := p.pos()
		p.advance()
		right := p.parseAssignment()
		return &AssignExpr{exprBase: exprBase{pos: pos}, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseTernary() Expr {
	cond := p.parseSubexpr(13)
	if p.cur.Kind == lex.PQuestion {
		pos := p.pos()
		p.advance()
		then := p.parseAssignment()
		p.expect(lex.PColon)
		els := p.parseAssignment()
		return &TernaryExpr{exprBase: exprBase{pos: pos}, Cond: cond, Then: then, Else: els}
	}
	return cond
}

// parseSubexpr climbs binary-operator precedence strictly below
// maxPrec: it parses a unary term, then repeatedly folds in any binop
// whose precedence is tighter than maxPrec, recursing with that binop's
// own precedence as the new bound. Left-to-right associativity falls
// out of breaking the loop (rather than recursing) on a tie.
func (p *Parser) parseSubexpr(maxPrec int) Expr {
	left := p.parseUnary()
	for {
		prec, ok := binPrec(p.cur.Kind)
		if !ok || prec >= maxPrec {
			return left
		}
		op := p.cur.Kind
		pos := p.pos()
		p.advance()
		right := p.parseSubexpr(prec)
		left = &BinaryExpr{exprBase: exprBase{pos: pos}, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() Expr {
	pos := p.pos()
	switch p.cur.Kind {
	case lex.PAmp, lex.PStar, lex.PPlus, lex.PMinus, lex.PBang, lex.PTilde, lex.PIncr, lex.PDecr:
		op := p.advance().Kind
		inner := p.parseUnary()
		return &UnaryExpr{exprBase: exprBase{pos: pos}, Op: op, Inner: inner}
	case lex.KwSizeof:
		return p.parseSizeof()
	case lex.PLParen:
		if p.looksLikeCastAhead() {
			return p.parseCast()
		}
	}
	return p.parsePostfix()
}

// parseSizeof handles both `sizeof(type)` and `sizeof expr`.
func (p *Parser) parseSizeof() Expr {
	pos := p.pos()
	p.advance()
	if p.cur.Kind == lex.PLParen {
		mark := p.cur
		p.advance()
		if p.isTypeStart(p.cur.Kind) {
			base, _, ok := p.parseDeclSpec()
			if ok {
				ty, _, _ := p.parseTypeNameTail(base)
				p.expect(lex.PRParen)
				return &SizeofTypeExpr{exprBase: exprBase{pos: pos}, Of: ty}
			}
		}
		p.tz.RewindTo(mark)
		p.cur = p.tz.Next()
	}
	inner := p.parseUnary()
	return &SizeofExprExpr{exprBase: exprBase{pos: pos}, Inner: inner}
}

// parseTypeNameTail parses the pointer-chain suffix of an abstract type
// name (used by sizeof and casts, where there is no declarator
// identifier).
func (p *Parser) parseTypeNameTail(base *types.DataType) (*types.DataType, string, bool) {
	ty := base
	for p.cur.Kind == lex.PStar {
		p.advance()
		for p.cur.Kind == lex.KwConst || p.cur.Kind == lex.KwVolatile || p.cur.Kind == lex.KwRestrict {
			p.advance()
		}
		ty = types.Pointer(ty)
	}
	return ty, "", true
}

// looksLikeCastAhead peeks past '(' for a type-starting token, then
// rewinds the tokenizer so the real parse of the cast (or, if this
// turns out not to be one, the parenthesized subexpression) starts
// fresh from '('.
func (p *Parser) looksLikeCastAhead() bool {
	mark := p.cur
	p.advance()
	isType := p.isTypeStart(p.cur.Kind)
	p.tz.RewindTo(mark)
	p.cur = p.tz.Next()
	return isType
}

func (p *Parser) parseCast() Expr {
	pos := p.pos()
	p.advance() // '('
	base, _, ok := p.parseDeclSpec()
	if !ok {
		return &ErrorExpr{exprBase{pos: pos}}
	}
	ty, _, _ := p.parseTypeNameTail(base)
	p.expect(lex.PRParen)
	inner := p.parseUnary()
	return &CastExpr{exprBase: exprBase{pos: pos}, To: ty, Inner: inner}
}

func (p *Parser) parsePostfix() Expr {
	e := p.parsePrimary()
	for {
		pos := p.pos()
		switch p.cur.Kind {
		case lex.PLBracket:
			p.advance()
			idx := p.parseExpression()
			p.expect(lex.PRBracket)
			e = &IndexExpr{exprBase: exprBase{pos: pos}, Base: e, Index: idx}
		case lex.PDot:
			p.advance()
			name, _ := p.expectIdent()
			e = &MemberExpr{exprBase: exprBase{pos: pos}, Base: e, Member: name, Arrow: false}
		case lex.PArrow:
			p.advance()
			name, _ := p.expectIdent()
			e = &MemberExpr{exprBase: exprBase{pos: pos}, Base: e, Member: name, Arrow: true}
		case lex.PIncr, lex.PDecr:
			op := p.advance().Kind
			e = &UnaryExpr{exprBase: exprBase{pos: pos}, Op: op, Postfix: true, Inner: e}
		default:
			return e
		}
	}
}

func (p *Parser) parsePrimary() Expr {
	pos := p.pos()
	switch {
	case p.cur.Kind == lex.PLParen:
		p.advance()
		e := p.parseExpression()
		p.expect(lex.PRParen)
		return &ParenExpr{exprBase: exprBase{pos: pos}, Inner: e}
	case p.cur.Kind == lex.TkIdent:
		name := p.advance().String()
		if p.cur.Kind == lex.PLParen {
			p.advance()
			var args []Expr
			if p.cur.Kind != lex.PRParen {
				args = append(args, p.parseAssignment())
				for p.cur.Kind == lex.PComma {
					p.advance()
					args = append(args, p.parseAssignment())
				}
			}
			p.expect(lex.PRParen)
			return &CallExpr{exprBase: exprBase{pos: pos}, Callee: name, Args: args}
		}
		return &IdentExpr{exprBase: exprBase{pos: pos}, Name: name}
	case p.cur.Kind == lex.PLBrace:
		return p.parseInitList()
	case p.cur.Kind.IsLiteral():
		tok := p.advance()
		return &LiteralExpr{exprBase: exprBase{pos: pos}, Tok: tok}
	}
	p.errorf("expected an expression, found %q", p.cur.String())
	return &ErrorExpr{exprBase{pos: pos}}
}

// parseInitializer is a declarator's `= ...` right-hand side: either a
// brace initializer-list or a plain assignment-expression.
func (p *Parser) parseInitializer() Expr {
	if p.cur.Kind == lex.PLBrace {
		return p.parseInitList()
	}
	return p.parseAssignment()
}

func (p *Parser) parseInitList() Expr {
	pos := p.pos()
	p.advance() // '{'
	var elems []Expr
	for p.cur.Kind != lex.PRBrace && p.cur.Kind != lex.TkEOF {
		elems = append(elems, p.parseInitializer())
		if p.cur.Kind != lex.PComma {
			break
		}
		p.advance()
	}
	p.expect(lex.PRBrace)
	return &InitListExpr{exprBase: exprBase{pos: pos}, Elems: elems}
}
