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

package mir

import (
	"fmt"
	"strconv"

	"rv64cc/internal/diag"
	"rv64cc/internal/lex"
	"rv64cc/internal/parse"
	"rv64cc/internal/sema"
	"rv64cc/internal/types"
)

// Lowerer is the node-by-node AST->MIR rewrite
// into explicit Load/Store/AddressOf form, with casts inserted wherever
// an operand's machine type differs from its binary/assignment node's
// resultant type. Lowering assumes sema already accepted the program;
// any invariant violation here is an internal compiler error
// (diag.ICE), not a recoverable diagnostic.
type Lowerer struct {
	reg  *types.Registry
	bag  *diag.Bag
	file string

	funcs map[string]*parse.FuncDecl

	curFunc string
	curRet  *types.DataType
	names   map[*parse.Block]map[string]string
	nameSeq int
	tmpSeq  int
}

// NewLowerer creates a Lowerer resolving composite layouts through reg
// and reporting non-fatal lowering diagnostics (e.g. dropped aggregate
// global initializers) into bag.
func NewLowerer(reg *types.Registry, bag *diag.Bag, file string) *Lowerer {
	return &Lowerer{
		reg:   reg,
		bag:   bag,
		file:  file,
		funcs: make(map[string]*parse.FuncDecl),
		names: make(map[*parse.Block]map[string]string),
	}
}

// Lower rewrites a whole translation unit into a Module.
func (l *Lowerer) Lower(prog *parse.Program) *Module {
	for _, fn := range prog.Funcs {
		l.funcs[fn.Name] = fn
	}
	mod := &Module{}
	for _, g := range prog.Globals {
		mod.Globals = append(mod.Globals, l.lowerGlobal(g))
	}
	for _, fn := range prog.Funcs {
		if fn.Body == nil {
			continue // prototype only, nothing to lower
		}
		mod.Funcs = append(mod.Funcs, l.lowerFunc(fn))
	}
	return mod
}

func (l *Lowerer) lowerGlobal(g *parse.VarDecl) *Global {
	dt := FromDataType(l.reg, g.Type)
	out := &Global{Name: g.Name, Type: dt}
	if g.Init == nil {
		return out
	}
	if _, isList := g.Init.(*parse.InitListExpr); isList {
		if l.bag != nil {
			l.bag.Warnf(diag.FeatureNotSupported, l.file, g.Pos().Line, g.Pos().Col,
				"aggregate initializer for global %q emitted zero-initialized", g.Name)
		}
		return out
	}
	var discard []Primitive
	v := l.lowerExprValue(&discard, nil, g.Init)
	imm, ok := v.(*Immediate)
	if !ok || len(discard) > 0 {
		if l.bag != nil {
			l.bag.Warnf(diag.FeatureNotSupported, l.file, g.Pos().Line, g.Pos().Col,
				"non-constant initializer for global %q emitted zero-initialized", g.Name)
		}
		return out
	}
	out.Init = l.coerceImmediate(imm, g.Type)
	return out
}

// coerceImmediate converts a constant initializer's value to the
// global's own representation so the data directive can be emitted
// directly, with no runtime cast.
func (l *Lowerer) coerceImmediate(imm *Immediate, to *types.DataType) *Immediate {
	m := FromDataType(l.reg, to)
	outImm := &Immediate{exprBase: exprBase{mty: m, sty: to}, Text: imm.Text}
	switch {
	case imm.MType().IsFloat() && m.IsFloat():
		outImm.FloatVal = imm.FloatVal
	case imm.MType().IsFloat():
		outImm.IntVal = int64(imm.FloatVal)
	case m.IsFloat():
		outImm.FloatVal = float64(imm.IntVal)
	default:
		outImm.IntVal = imm.IntVal
	}
	return outImm
}

func (l *Lowerer) lowerFunc(fn *parse.FuncDecl) *Func {
	l.curFunc = fn.Name
	l.curRet = fn.RetType

	params := make([]Param, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = Param{Name: l.mangle(fn.Body, p.Name), Type: FromDataType(l.reg, p.Type)}
	}

	var body []Primitive
	l.lowerBlockInto(&body, fn.Body)

	return &Func{
		Name:     fn.Name,
		Params:   params,
		Variadic: fn.Variadic,
		RetType:  FromDataType(l.reg, fn.RetType),
		RetSrc:   fn.RetType,
		Body:     body,
	}
}

// mangle assigns (and memoizes) a function-unique storage name for name
// as declared in scope, so identically-named locals in sibling or
// nested scopes never collide once MIR drops the AST's scope nesting.
func (l *Lowerer) mangle(scope *parse.Block, name string) string {
	m, ok := l.names[scope]
	if !ok {
		m = make(map[string]string)
		l.names[scope] = m
	}
	if mangled, ok := m[name]; ok {
		return mangled
	}
	l.nameSeq++
	mangled := fmt.Sprintf("%s.%s.%d", l.curFunc, name, l.nameSeq)
	m[name] = mangled
	return mangled
}

// resolveName mirrors parse.Block.Lookup's scope-chain walk, returning
// the mangled storage name for a local/parameter or the identifier
// itself for a global/function. File scope (the block with no parent)
// never mangles: those names are .data/.text symbols.
func (l *Lowerer) resolveName(scope *parse.Block, name string) string {
	for s := scope; s != nil; s = s.Parent {
		if _, ok := s.Symbols.Lookup(name); ok {
			if s.Parent == nil {
				return name
			}
			return l.mangle(s, name)
		}
	}
	return name
}

func (l *Lowerer) newTemp() string {
	l.tmpSeq++
	return fmt.Sprintf("%s.$t%d", l.curFunc, l.tmpSeq)
}

func (l *Lowerer) composite(ty *types.DataType) *types.Composite {
	switch ty.Kind {
	case types.KStruct:
		c, _ := l.reg.Struct(ty.Name)
		return c
	case types.KUnion:
		c, _ := l.reg.Union(ty.Name)
		return c
	}
	return nil
}

func kindFor(m DType) LoadKind {
	if m.IsFloat() {
		return LoadFloat
	}
	return LoadInt
}

// -----------------------------------------------------------------------
// Statements

func (l *Lowerer) lowerBlockInto(out *[]Primitive, b *parse.Block) {
	for _, s := range b.Stmts {
		l.lowerStmt(out, b, s)
	}
}

func (l *Lowerer) lowerStmt(out *[]Primitive, scope *parse.Block, s parse.Stmt) {
	switch st := s.(type) {
	case *parse.ExprStmt:
		v := l.lowerExprValue(out, scope, st.X)
		*out = append(*out, &ExprStmt{X: v})

	case *parse.DeclStmt:
		for _, d := range st.Decls {
			mangled := l.mangle(scope, d.Name)
			dt := FromDataType(l.reg, d.Type)
			*out = append(*out, &StackAlloc{Name: mangled, Type: dt, Size: dt.Size, Align: dt.Align})
			if d.Init != nil {
				l.lowerInitInto(out, scope, &AddressOf{exprBase: ptrExprBase(l.reg, d.Type), Leaf: mangled}, 0, d.Type, d.Init)
			}
		}

	case *parse.ReturnStmt:
		if st.Value == nil {
			*out = append(*out, &Return{})
			return
		}
		v := l.lowerExprValue(out, scope, st.Value)
		v = l.castTo(v, st.Value.ExprType(), l.curRet)
		*out = append(*out, &Return{Value: v})

	case *parse.IfStmt:
		cond := l.lowerExprValue(out, scope, st.Cond)
		var thenPrims []Primitive
		l.lowerBlockInto(&thenPrims, st.Then)
		var elsePrims []Primitive
		switch e := st.Else.(type) {
		case *parse.Block:
			l.lowerBlockInto(&elsePrims, e)
		case *parse.IfStmt:
			l.lowerStmt(&elsePrims, scope, e)
		}
		*out = append(*out, &If{Cond: cond, Then: thenPrims, Else: elsePrims})

	case *parse.WhileStmt:
		var condPre []Primitive
		cond := l.lowerExprValue(&condPre, scope, st.Cond)
		var body []Primitive
		l.lowerBlockInto(&body, st.Body)
		*out = append(*out, &Loop{CondPre: condPre, Cond: cond, Body: body})

	case *parse.ForStmt:
		l.lowerStmt(out, st.Body, st.Init)
		var condPre []Primitive
		var cond Expr
		if st.Cond != nil {
			cond = l.lowerExprValue(&condPre, st.Body, st.Cond)
		}
		var body []Primitive
		l.lowerBlockInto(&body, st.Body)
		var post []Primitive
		if st.Post != nil {
			pv := l.lowerExprValue(&post, st.Body, st.Post)
			post = append(post, &ExprStmt{X: pv})
		}
		*out = append(*out, &Loop{CondPre: condPre, Cond: cond, Body: body, Post: post})

	case *parse.BreakStmt:
		*out = append(*out, &Jump{Label: BreakSentinel})
	case *parse.ContinueStmt:
		*out = append(*out, &Jump{Label: ContinueSentinel})

	case *parse.BlockStmt:
		var inner []Primitive
		l.lowerBlockInto(&inner, st.Body)
		*out = append(*out, &Scope{Body: inner})

	case *parse.EmptyStmt, *parse.ErrorStmt, nil:
		// nothing to lower
	default:
		diag.ICE("unhandled statement kind %T", s)
	}
}

// lowerInitInto stores init (scalar or, recursively, a brace
// initializer list) at addr+baseOffset, following the declared type's
// structure exactly as sema's checkInitializer validated it.
func (l *Lowerer) lowerInitInto(out *[]Primitive, scope *parse.Block, addr Expr, baseOffset int, ty *types.DataType, init parse.Expr) {
	if lst, ok := init.(*parse.InitListExpr); ok {
		switch {
		case ty.IsArray():
			elemM := FromDataType(l.reg, ty.Elem)
			for i, e := range lst.Elems {
				l.lowerInitInto(out, scope, addr, baseOffset+i*elemM.Size, ty.Elem, e)
			}
		case ty.IsComposite():
			comp := l.composite(ty)
			for i, e := range lst.Elems {
				if comp == nil || i >= len(comp.Members) {
					continue
				}
				mem := comp.Members[i]
				l.lowerInitInto(out, scope, addr, baseOffset+mem.Offset, mem.Type, e)
			}
		}
		return
	}
	if ty.IsComposite() {
		srcBase, srcOff, _ := l.lowerAddrParts(out, scope, init)
		l.copyComposite(out, addr, baseOffset, srcBase, srcOff, ty)
		return
	}
	v := l.lowerExprValue(out, scope, init)
	v = l.castTo(v, init.ExprType(), ty)
	m := FromDataType(l.reg, ty)
	*out = append(*out, &ExprStmt{X: &Store{exprBase: exprBase{mty: m, sty: ty}, Left: addr, Right: v, Offset: baseOffset, Size: m.Size}})
}

// copyComposite rewrites a struct/union assignment as one Store per
// scalar member (recursing through nested composites and array
// elements), keeping every Store's size equal to the size of the value
// it actually moves.
func (l *Lowerer) copyComposite(out *[]Primitive, dst Expr, dstOff int, src Expr, srcOff int, ty *types.DataType) {
	switch {
	case ty.IsArray():
		elemSize := l.reg.SizeOf(ty.Elem)
		for i := 0; i < ty.Count; i++ {
			l.copyComposite(out, dst, dstOff+i*elemSize, src, srcOff+i*elemSize, ty.Elem)
		}
	case ty.IsComposite():
		comp := l.composite(ty)
		if comp == nil {
			diag.ICE("copy of undefined composite %s during lowering", ty)
		}
		if comp.IsUnion {
			// Union contents are opaque; copy the widest member's bytes.
			widest, size := 0, 0
			for i := range comp.Members {
				if sz := l.reg.SizeOf(comp.Members[i].Type); sz > size {
					widest, size = i, sz
				}
			}
			if len(comp.Members) > 0 {
				l.copyComposite(out, dst, dstOff, src, srcOff, comp.Members[widest].Type)
			}
			return
		}
		for i := range comp.Members {
			m := comp.Members[i]
			l.copyComposite(out, dst, dstOff+m.Offset, src, srcOff+m.Offset, m.Type)
		}
	default:
		m := FromDataType(l.reg, ty)
		val := &Load{exprBase: exprBase{mty: m, sty: ty}, Base: src, Offset: srcOff, Size: m.Size, Kind: kindFor(m)}
		*out = append(*out, &ExprStmt{X: &Store{exprBase: exprBase{mty: m, sty: ty}, Left: dst, Right: val, Offset: dstOff, Size: m.Size}})
	}
}

// -----------------------------------------------------------------------
// Lvalue addressing

// lowerAddrParts resolves e (which must be an lvalue) to the (base
// address expression, byte offset, pointee type) triple every
// Load/Store/LoadAddress construction needs.
func (l *Lowerer) lowerAddrParts(out *[]Primitive, scope *parse.Block, e parse.Expr) (Expr, int, *types.DataType) {
	switch x := e.(type) {
	case *parse.ParenExpr:
		return l.lowerAddrParts(out, scope, x.Inner)

	case *parse.IdentExpr:
		ty := x.ExprType()
		name := l.resolveName(scope, x.Name)
		return &AddressOf{exprBase: ptrExprBase(l.reg, ty), Leaf: name}, 0, ty

	case *parse.MemberExpr:
		var base Expr
		var baseOff int
		var targetTy *types.DataType
		if x.Arrow {
			base = l.lowerExprValue(out, scope, x.Base)
			targetTy = x.Base.ExprType().Pointee
		} else {
			base, baseOff, targetTy = l.lowerAddrParts(out, scope, x.Base)
		}
		comp := l.composite(targetTy)
		if comp == nil {
			diag.ICE("member access on non-composite type %s during lowering", targetTy)
		}
		mem, ok := comp.Member(x.Member)
		if !ok {
			diag.ICE("member %q not found on %s during lowering", x.Member, targetTy)
		}
		return base, baseOff + mem.Offset, mem.Type

	case *parse.IndexExpr:
		bt := x.Base.ExprType()
		var elemTy *types.DataType
		var baseAddr Expr
		if bt.IsArray() {
			elemTy = bt.Elem
			baseAddr, _, _ = l.lowerAddrParts(out, scope, x.Base)
		} else if bt.IsPointer() {
			elemTy = bt.Pointee
			baseAddr = l.lowerExprValue(out, scope, x.Base)
		} else {
			diag.ICE("index base is neither array nor pointer during lowering")
		}
		idx := l.lowerExprValue(out, scope, x.Index)
		elemM := FromDataType(l.reg, elemTy)
		idxNode := &Index{exprBase: ptrExprBase(l.reg, elemTy), Base: baseAddr, IndexExpr: idx, ElementSize: elemM.Size}
		return idxNode, 0, elemTy

	case *parse.UnaryExpr: // *p
		ptrVal := l.lowerExprValue(out, scope, x.Inner)
		return ptrVal, 0, x.ExprType()

	default:
		diag.ICE("expression is not an lvalue during lowering: %T", e)
	}
	return nil, 0, nil
}

func ptrExprBase(reg *types.Registry, pointee *types.DataType) exprBase {
	pt := types.Pointer(pointee)
	return exprBase{mty: FromDataType(reg, pt), sty: pt}
}

// loadLValue reads the current value at an lvalue expression.
func (l *Lowerer) loadLValue(out *[]Primitive, scope *parse.Block, e parse.Expr) Expr {
	base, offset, ty := l.lowerAddrParts(out, scope, e)
	m := FromDataType(l.reg, ty)
	return &Load{exprBase: exprBase{mty: m, sty: ty}, Base: base, Offset: offset, Size: m.Size, Kind: kindFor(m)}
}

// addressOf computes `&e`. When the lvalue's offset is already zero the
// base expression already *is* the address (AddressOf/Index/a loaded
// pointer value): `&x` reuses the Load's own base+offset, collapsed to
// the base alone in the degenerate offset==0 case.
func (l *Lowerer) addressOf(out *[]Primitive, scope *parse.Block, e parse.Expr) Expr {
	base, offset, ty := l.lowerAddrParts(out, scope, e)
	if offset == 0 {
		return base
	}
	return &LoadAddress{exprBase: ptrExprBase(l.reg, ty), Base: base, Offset: offset}
}

// -----------------------------------------------------------------------
// Expressions

func (l *Lowerer) lowerExprValue(out *[]Primitive, scope *parse.Block, e parse.Expr) Expr {
	switch x := e.(type) {
	case *parse.ParenExpr:
		return l.lowerExprValue(out, scope, x.Inner)
	case *parse.LiteralExpr:
		return l.lowerLiteral(x)
	case *parse.IdentExpr, *parse.MemberExpr, *parse.IndexExpr:
		return l.loadLValue(out, scope, e)
	case *parse.UnaryExpr:
		return l.lowerUnary(out, scope, x)
	case *parse.BinaryExpr:
		return l.lowerBinary(out, scope, x)
	case *parse.AssignExpr:
		return l.lowerAssign(out, scope, x)
	case *parse.CallExpr:
		return l.lowerCall(out, scope, x)
	case *parse.CastExpr:
		inner := l.lowerExprValue(out, scope, x.Inner)
		return l.castTo(inner, x.Inner.ExprType(), x.To)
	case *parse.SizeofTypeExpr:
		return l.immUnsigned(l.reg.SizeOf(x.Of))
	case *parse.SizeofExprExpr:
		return l.immUnsigned(l.reg.SizeOf(x.Inner.ExprType()))
	case *parse.TernaryExpr:
		return l.lowerTernary(out, scope, x)
	default:
		diag.ICE("unhandled expression kind during lowering: %T", e)
	}
	return nil
}

func (l *Lowerer) lowerLiteral(x *parse.LiteralExpr) Expr {
	ty := x.ExprType()
	m := FromDataType(l.reg, ty)
	base := exprBase{mty: m, sty: ty}
	switch x.Tok.Kind {
	case lex.LitFloat, lex.LitDouble:
		return &Immediate{exprBase: base, Text: x.Tok.Text.Text(), FloatVal: x.Tok.Value.Float}
	case lex.LitString:
		return &Immediate{exprBase: base, IsString: true, Str: x.Tok.Value.Str}
	default:
		return &Immediate{exprBase: base, Text: x.Tok.Text.Text(), IntVal: x.Tok.Value.Int}
	}
}

func (l *Lowerer) immUnsigned(v int) Expr {
	m := FromDataType(l.reg, types.ULong)
	return &Immediate{exprBase: exprBase{mty: m, sty: types.ULong}, Text: strconv.Itoa(v), IntVal: int64(v)}
}

func (l *Lowerer) immInt(v int64, ty *types.DataType) Expr {
	m := FromDataType(l.reg, ty)
	return &Immediate{exprBase: exprBase{mty: m, sty: ty}, Text: strconv.FormatInt(v, 10), IntVal: v}
}

func (l *Lowerer) lowerUnary(out *[]Primitive, scope *parse.Block, x *parse.UnaryExpr) Expr {
	switch x.Op {
	case lex.PAmp:
		return l.addressOf(out, scope, x.Inner)
	case lex.PStar:
		return l.loadLValue(out, scope, x)
	case lex.PIncr, lex.PDecr:
		return l.lowerIncrDecr(out, scope, x)
	default: // ! ~ - +
		inner := l.lowerExprValue(out, scope, x.Inner)
		ty := x.ExprType()
		if x.Op == lex.PBang && inner.MType().IsFloat() {
			// Logical not of a float is a comparison against 0.0, which
			// keeps the result in an integer register.
			zero := &Immediate{exprBase: exprBase{mty: inner.MType(), sty: inner.SrcType()}, Text: "0.0"}
			return &Binary{exprBase: exprBase{mty: FromDataType(l.reg, ty), sty: ty}, Op: lex.PEq, Left: inner, Right: zero}
		}
		return &Unary{exprBase: exprBase{mty: FromDataType(l.reg, ty), sty: ty}, Op: x.Op, Inner: inner}
	}
}

func (l *Lowerer) lowerIncrDecr(out *[]Primitive, scope *parse.Block, x *parse.UnaryExpr) Expr {
	base, offset, ty := l.lowerAddrParts(out, scope, x.Inner)
	m := FromDataType(l.reg, ty)
	eb := exprBase{mty: m, sty: ty}
	one := l.immInt(1, types.Int)
	op := lex.PPlus
	if x.Op == lex.PDecr {
		op = lex.PMinus
	}
	cur := &Load{exprBase: eb, Base: base, Offset: offset, Size: m.Size, Kind: kindFor(m)}
	var newVal Expr
	if ty.Decay().IsPointer() {
		elemSize := l.reg.SizeOf(ty.Decay().Pointee)
		idx := one
		if x.Op == lex.PDecr {
			idx = l.immInt(-1, types.Int)
		}
		newVal = &Index{exprBase: ptrExprBase(l.reg, ty.Decay().Pointee), Base: cur, IndexExpr: idx, ElementSize: elemSize}
	} else {
		newVal = &Binary{exprBase: eb, Op: op, Left: cur, Right: l.castTo(one, types.Int, ty)}
	}
	store := &Store{exprBase: eb, Left: base, Right: newVal, Offset: offset, Size: m.Size}
	if !x.Postfix {
		return store
	}
	tmp := l.newTemp()
	*out = append(*out, &StackAlloc{Name: tmp, Type: m, Size: m.Size, Align: m.Align})
	tmpAddr := &AddressOf{exprBase: ptrExprBase(l.reg, ty), Leaf: tmp}
	*out = append(*out, &ExprStmt{X: &Store{exprBase: eb, Left: tmpAddr, Right: cur, Offset: 0, Size: m.Size}})
	*out = append(*out, &ExprStmt{X: store})
	return &Load{exprBase: eb, Base: tmpAddr, Offset: 0, Size: m.Size, Kind: kindFor(m)}
}

func (l *Lowerer) lowerBinary(out *[]Primitive, scope *parse.Block, x *parse.BinaryExpr) Expr {
	switch x.Op {
	case lex.PAndAnd, lex.POrOr:
		return l.lowerLogical(out, scope, x)
	}

	lt, rt := x.Left.ExprType(), x.Right.ExprType()
	if ld, rd := lt.Decay(), rt.Decay(); (ld.IsPointer() && (x.Op == lex.PPlus || x.Op == lex.PMinus)) ||
		(rd.IsPointer() && x.Op == lex.PPlus) {
		return l.lowerPointerArith(out, scope, x, lt, rt)
	}

	resTy := x.ExprType()
	lv := l.castTo(l.lowerExprValue(out, scope, x.Left), lt, resTy)
	rv := l.castTo(l.lowerExprValue(out, scope, x.Right), rt, resTy)
	return &Binary{exprBase: exprBase{mty: FromDataType(l.reg, resTy), sty: resTy}, Op: x.Op, Left: lv, Right: rv}
}

func (l *Lowerer) lowerPointerArith(out *[]Primitive, scope *parse.Block, x *parse.BinaryExpr, lt, rt *types.DataType) Expr {
	ld, rd := lt.Decay(), rt.Decay()
	if ld.IsPointer() && rd.IsPointer() {
		elemSize := l.reg.SizeOf(ld.Pointee)
		lv := l.lowerExprValue(out, scope, x.Left)
		rv := l.lowerExprValue(out, scope, x.Right)
		diff := &Binary{exprBase: exprBase{mty: FromDataType(l.reg, types.LongLong), sty: types.LongLong}, Op: lex.PMinus, Left: lv, Right: rv}
		if elemSize <= 1 {
			return diff
		}
		return &Binary{exprBase: diff.exprBase, Op: lex.PSlash, Left: diff, Right: l.immInt(int64(elemSize), types.LongLong)}
	}

	var ptrSide, intSide parse.Expr
	if ld.IsPointer() {
		ptrSide, intSide = x.Left, x.Right
	} else {
		ptrSide, intSide = x.Right, x.Left
	}
	elemTy := ptrSide.ExprType().Decay().Pointee
	elemSize := l.reg.SizeOf(elemTy)

	var baseAddr Expr
	if ptrSide.ExprType().IsArray() {
		baseAddr = l.addressOf(out, scope, ptrSide)
	} else {
		baseAddr = l.lowerExprValue(out, scope, ptrSide)
	}
	idx := l.lowerExprValue(out, scope, intSide)
	if x.Op == lex.PMinus {
		idx = &Unary{exprBase: exprBase{mty: idx.MType(), sty: idx.SrcType()}, Op: lex.PMinus, Inner: idx}
	}
	return &Index{exprBase: ptrExprBase(l.reg, elemTy), Base: baseAddr, IndexExpr: idx, ElementSize: elemSize}
}

func (l *Lowerer) lowerLogical(out *[]Primitive, scope *parse.Block, x *parse.BinaryExpr) Expr {
	tmp := l.newTemp()
	i32 := DType{Kind: DI32, Size: 4, Align: 4}
	*out = append(*out, &StackAlloc{Name: tmp, Type: i32, Size: 4, Align: 4})
	tmpAddr := &AddressOf{exprBase: exprBase{mty: DType{Kind: DPtr, Size: 8, Align: 8}, sty: types.Pointer(types.Int)}, Leaf: tmp}

	cond := l.lowerExprValue(out, scope, x.Left)

	var truthy, falsy []Primitive
	if x.Op == lex.PAndAnd {
		bv := l.lowerExprValue(&truthy, scope, x.Right)
		truthy = append(truthy, &ExprStmt{X: &Store{exprBase: exprBase{mty: i32, sty: types.Int}, Left: tmpAddr, Right: boolOf(bv), Offset: 0, Size: 4}})
		falsy = append(falsy, &ExprStmt{X: &Store{exprBase: exprBase{mty: i32, sty: types.Int}, Left: tmpAddr, Right: l.immInt(0, types.Int), Offset: 0, Size: 4}})
	} else {
		truthy = append(truthy, &ExprStmt{X: &Store{exprBase: exprBase{mty: i32, sty: types.Int}, Left: tmpAddr, Right: l.immInt(1, types.Int), Offset: 0, Size: 4}})
		bv := l.lowerExprValue(&falsy, scope, x.Right)
		falsy = append(falsy, &ExprStmt{X: &Store{exprBase: exprBase{mty: i32, sty: types.Int}, Left: tmpAddr, Right: boolOf(bv), Offset: 0, Size: 4}})
	}
	*out = append(*out, &If{Cond: cond, Then: truthy, Else: falsy})
	return &Load{exprBase: exprBase{mty: i32, sty: types.Int}, Base: tmpAddr, Offset: 0, Size: 4, Kind: LoadInt}
}

// boolOf normalizes an arbitrary scalar value to 0/1 via a `!= 0`
// comparison, the same 0/1 materialization codegen produces for every
// relational operator.
func boolOf(v Expr) Expr {
	return &Binary{exprBase: exprBase{mty: DType{Kind: DI32, Size: 4, Align: 4}, sty: types.Int}, Op: lex.PNe, Left: v, Right: &Immediate{exprBase: exprBase{mty: v.MType(), sty: v.SrcType()}, Text: "0"}}
}

func (l *Lowerer) lowerTernary(out *[]Primitive, scope *parse.Block, x *parse.TernaryExpr) Expr {
	ty := x.ExprType()
	m := FromDataType(l.reg, ty)
	tmp := l.newTemp()
	*out = append(*out, &StackAlloc{Name: tmp, Type: m, Size: m.Size, Align: m.Align})
	tmpAddr := &AddressOf{exprBase: ptrExprBase(l.reg, ty), Leaf: tmp}

	cond := l.lowerExprValue(out, scope, x.Cond)

	var thenPrims []Primitive
	tv := l.lowerExprValue(&thenPrims, scope, x.Then)
	tv = l.castTo(tv, x.Then.ExprType(), ty)
	thenPrims = append(thenPrims, &ExprStmt{X: &Store{exprBase: exprBase{mty: m, sty: ty}, Left: tmpAddr, Right: tv, Offset: 0, Size: m.Size}})

	var elsePrims []Primitive
	ev := l.lowerExprValue(&elsePrims, scope, x.Else)
	ev = l.castTo(ev, x.Else.ExprType(), ty)
	elsePrims = append(elsePrims, &ExprStmt{X: &Store{exprBase: exprBase{mty: m, sty: ty}, Left: tmpAddr, Right: ev, Offset: 0, Size: m.Size}})

	*out = append(*out, &If{Cond: cond, Then: thenPrims, Else: elsePrims})
	return &Load{exprBase: exprBase{mty: m, sty: ty}, Base: tmpAddr, Offset: 0, Size: m.Size, Kind: kindFor(m)}
}

func (l *Lowerer) lowerAssign(out *[]Primitive, scope *parse.Block, x *parse.AssignExpr) Expr {
	base, offset, ty := l.lowerAddrParts(out, scope, x.Left)
	m := FromDataType(l.reg, ty)
	eb := exprBase{mty: m, sty: ty}

	if ty.IsComposite() {
		srcBase, srcOff, _ := l.lowerAddrParts(out, scope, x.Right)
		l.copyComposite(out, base, offset, srcBase, srcOff, ty)
		// Memberwise stores are already in out; the expression's own value
		// (rarely consumed) is an 8-byte integer load from the start of
		// the destination.
		return &Load{exprBase: eb, Base: base, Offset: offset, Size: 8, Kind: LoadInt}
	}

	if x.Op == lex.PAssign {
		rv := l.lowerExprValue(out, scope, x.Right)
		rv = l.castTo(rv, x.Right.ExprType(), ty)
		return &Store{exprBase: eb, Left: base, Right: rv, Offset: offset, Size: m.Size}
	}

	if ty.Decay().IsPointer() && (x.Op == lex.PAddAssign || x.Op == lex.PSubAssign) {
		elemTy := ty.Decay().Pointee
		elemSize := l.reg.SizeOf(elemTy)
		cur := &Load{exprBase: eb, Base: base, Offset: offset, Size: m.Size, Kind: kindFor(m)}
		idx := l.lowerExprValue(out, scope, x.Right)
		if x.Op == lex.PSubAssign {
			idx = &Unary{exprBase: exprBase{mty: idx.MType(), sty: idx.SrcType()}, Op: lex.PMinus, Inner: idx}
		}
		newPtr := &Index{exprBase: ptrExprBase(l.reg, elemTy), Base: cur, IndexExpr: idx, ElementSize: elemSize}
		return &Store{exprBase: eb, Left: base, Right: newPtr, Offset: offset, Size: m.Size}
	}

	cur := &Load{exprBase: eb, Base: base, Offset: offset, Size: m.Size, Kind: kindFor(m)}
	rv := l.lowerExprValue(out, scope, x.Right)
	binOp := sema.UnderlyingOp(x.Op)
	resTy := sema.ResultantType(l.reg, ty, x.Right.ExprType(), binOp)
	lv2 := l.castTo(cur, ty, resTy)
	rv2 := l.castTo(rv, x.Right.ExprType(), resTy)
	binRes := &Binary{exprBase: exprBase{mty: FromDataType(l.reg, resTy), sty: resTy}, Op: binOp, Left: lv2, Right: rv2}
	stored := l.castTo(binRes, resTy, ty)
	return &Store{exprBase: eb, Left: base, Right: stored, Offset: offset, Size: m.Size}
}

func (l *Lowerer) lowerCall(out *[]Primitive, scope *parse.Block, x *parse.CallExpr) Expr {
	fn := l.funcs[x.Callee]
	args := make([]Expr, len(x.Args))
	for i, a := range x.Args {
		v := l.lowerExprValue(out, scope, a)
		if fn != nil && i < len(fn.Params) {
			v = l.castTo(v, a.ExprType(), fn.Params[i].Type)
		}
		args[i] = v
	}
	retTy := x.ExprType()
	return &Call{exprBase: exprBase{mty: FromDataType(l.reg, retTy), sty: retTy}, Fn: x.Callee, Args: args}
}

// castTo wraps v in a Cast node whenever its source type differs from
// to: any operand whose machine type differs from the result type gets
// an explicit Cast.
func (l *Lowerer) castTo(v Expr, from, to *types.DataType) Expr {
	if from == nil || to == nil || from.Equals(to) {
		return v
	}
	fm := FromDataType(l.reg, from)
	tm := FromDataType(l.reg, to)
	if fm == tm {
		return v
	}
	return &Cast{exprBase: exprBase{mty: tm, sty: to}, From: fm, To: tm, Inner: v}
}
