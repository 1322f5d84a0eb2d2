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
	"fmt"
	"math"
	"sort"
	"strings"

	"rv64cc/internal/lex"
	"rv64cc/internal/mir"
)

func bitsF32(f float32) uint32 { return math.Float32bits(f) }
func bitsF64(f float64) uint64 { return math.Float64bits(f) }

// Emitter walks a lowered mir.Module depth-first and prints RV64GC/LP64D
// GNU-assembler text. One Emitter produces a whole
// translation unit; per-function state (the register allocator, the
// frame layout, the active loop's break/continue labels) is reset at
// the start of each emitFunc.
type Emitter struct {
	text   strings.Builder
	data   strings.Builder
	rodata strings.Builder

	alloc   *Allocator
	frame   *Frame
	curFunc string

	floatLabels  map[string]string
	floatOrder   []string
	stringLabels map[string]string
	stringOrder  []string
	labelSeq     int

	loops []loopLabels
}

type loopLabels struct{ cont, brk string }

// NewEmitter creates an Emitter with empty literal pools.
func NewEmitter() *Emitter {
	return &Emitter{
		floatLabels:  make(map[string]string),
		stringLabels: make(map[string]string),
	}
}

// EmitModule renders mod as one assembly file.
func EmitModule(mod *mir.Module) string {
	e := NewEmitter()
	for _, g := range mod.Globals {
		e.emitGlobal(g)
	}
	for _, fn := range mod.Funcs {
		e.emitFunc(fn)
	}

	var out strings.Builder
	out.WriteString("\t.option nopic\n")
	if e.rodata.Len() > 0 {
		out.WriteString("\t.section .rodata\n")
		out.WriteString(e.rodata.String())
	}
	if e.data.Len() > 0 {
		out.WriteString("\t.section .data\n")
		out.WriteString(e.data.String())
	}
	out.WriteString("\t.text\n")
	out.WriteString(e.text.String())
	return out.String()
}

func (e *Emitter) newLabel(prefix string) string {
	e.labelSeq++
	return fmt.Sprintf(".L%s%d", prefix, e.labelSeq)
}

func (e *Emitter) emit(format string, args ...interface{}) {
	e.text.WriteString("\t")
	e.text.WriteString(fmt.Sprintf(format, args...))
	e.text.WriteString("\n")
}

func (e *Emitter) label(name string) {
	e.text.WriteString(name)
	e.text.WriteString(":\n")
}

// -----------------------------------------------------------------------
// Globals and literal pools

func (e *Emitter) emitGlobal(g *mir.Global) {
	e.data.WriteString(fmt.Sprintf("\t.globl %s\n\t.align %d\n%s:\n", g.Name, align3(g.Type.Align), g.Name))
	if g.Init == nil {
		e.data.WriteString(fmt.Sprintf("\t.zero %d\n", g.Type.Size))
		return
	}
	imm, ok := g.Init.(*mir.Immediate)
	if !ok {
		e.data.WriteString(fmt.Sprintf("\t.zero %d\n", g.Type.Size))
		return
	}
	switch {
	case imm.MType().IsFloat() && imm.MType().Size == 4:
		e.data.WriteString(fmt.Sprintf("\t.word %d\n", int32(bitsF32(float32(imm.FloatVal)))))
	case imm.MType().IsFloat():
		e.data.WriteString(fmt.Sprintf("\t.dword %d\n", int64(bitsF64(imm.FloatVal))))
	default:
		e.data.WriteString(directiveForSize(g.Type.Size) + fmt.Sprintf(" %d\n", imm.IntVal))
	}
}

func directiveForSize(size int) string {
	switch size {
	case 1:
		return "\t.byte"
	case 2:
		return "\t.half"
	case 4:
		return "\t.word"
	default:
		return "\t.dword"
	}
}

func align3(n int) int {
	switch {
	case n >= 8:
		return 3
	case n == 4:
		return 2
	case n == 2:
		return 1
	default:
		return 0
	}
}

// poolFloat interns a float/double immediate into .rodata by its
// decimal spelling; two source occurrences of the same spelling share
// one constant.
func (e *Emitter) poolFloat(imm *mir.Immediate) string {
	key := fmt.Sprintf("%v:%d", imm.Text, imm.MType().Size)
	if lbl, ok := e.floatLabels[key]; ok {
		return lbl
	}
	lbl := e.newLabel("F")
	e.floatLabels[key] = lbl
	if imm.MType().Size == 4 {
		e.rodata.WriteString(fmt.Sprintf("\t.align 2\n%s:\n\t.word %d\n", lbl, int32(bitsF32(float32(imm.FloatVal)))))
	} else {
		e.rodata.WriteString(fmt.Sprintf("\t.align 3\n%s:\n\t.dword %d\n", lbl, int64(bitsF64(imm.FloatVal))))
	}
	return lbl
}

func (e *Emitter) poolString(s string) string {
	if lbl, ok := e.stringLabels[s]; ok {
		return lbl
	}
	lbl := e.newLabel("S")
	e.stringLabels[s] = lbl
	e.rodata.WriteString(fmt.Sprintf("%s:\n\t.string %q\n", lbl, s))
	return lbl
}

// -----------------------------------------------------------------------
// Function prologue/epilogue

func (e *Emitter) emitFunc(fn *mir.Func) {
	e.curFunc = fn.Name
	e.frame = BuildFrame(fn)
	e.alloc = NewAllocator()
	e.loops = nil

	frameSize := e.frame.Size // includes the 16-byte ra/fp save area

	e.text.WriteString(fmt.Sprintf("\t.globl %s\n\t.type %s, @function\n", fn.Name, fn.Name))
	e.label(fn.Name)
	e.emit("addi sp, sp, -%d", frameSize)
	e.emit("sd ra, %d(sp)", frameSize-8)
	e.emit("sd fp, %d(sp)", frameSize-16)
	e.emit("addi fp, sp, %d", frameSize)

	intIdx, fltIdx := 0, 0
	for _, p := range fn.Params {
		off, ok := e.frame.Offsets[p.Name]
		if !ok {
			continue
		}
		if p.Type.IsFloat() {
			reg := ArgReg(KindFloat, fltIdx)
			fltIdx++
			if reg == "" {
				continue
			}
			e.emit("%s %s, %d(fp)", storeMnemonicFloat(p.Type.Size), reg, off)
		} else {
			reg := ArgReg(KindInt, intIdx)
			intIdx++
			if reg == "" {
				continue
			}
			e.emit("%s %s, %d(fp)", storeMnemonicInt(p.Type.Size), reg, off)
		}
	}

	for _, prim := range fn.Body {
		e.emitPrim(prim)
	}

	e.emitEpilogue(fn, frameSize)
}

func (e *Emitter) emitEpilogue(fn *mir.Func, frameSize int) {
	e.label(fmt.Sprintf(".Lret_%s", fn.Name))
	e.emit("ld ra, %d(sp)", frameSize-8)
	e.emit("ld fp, %d(sp)", frameSize-16)
	e.emit("addi sp, sp, %d", frameSize)
	e.emit("ret")
}

func storeMnemonicInt(size int) string {
	switch size {
	case 1:
		return "sb"
	case 2:
		return "sh"
	case 4:
		return "sw"
	default:
		return "sd"
	}
}

func loadMnemonicInt(size int, signed bool) string {
	switch size {
	case 1:
		if signed {
			return "lb"
		}
		return "lbu"
	case 2:
		if signed {
			return "lh"
		}
		return "lhu"
	case 4:
		if signed {
			return "lw"
		}
		return "lwu"
	default:
		return "ld"
	}
}

func storeMnemonicFloat(size int) string {
	if size == 4 {
		return "fsw"
	}
	return "fsd"
}

func loadMnemonicFloat(size int) string {
	if size == 4 {
		return "flw"
	}
	return "fld"
}

// -----------------------------------------------------------------------
// Statement-level emission

func (e *Emitter) emitPrim(p mir.Primitive) {
	switch n := p.(type) {
	case *mir.ExprStmt:
		r := e.emitExpr(n.X)
		e.freeIfTemp(r)

	case *mir.StackAlloc, *mir.StackFree, *mir.LabelStmt:
		// Frame layout already assigned every local's slot in BuildFrame;
		// nothing to emit at the point of declaration itself.

	case *mir.Scope:
		for _, inner := range n.Body {
			e.emitPrim(inner)
		}

	case *mir.If:
		elseLbl := e.newLabel("else")
		endLbl := e.newLabel("endif")
		e.emitBranchIfFalse(n.Cond, elseLbl)
		for _, s := range n.Then {
			e.emitPrim(s)
		}
		if len(n.Else) > 0 {
			e.emit("j %s", endLbl)
		}
		e.label(elseLbl)
		for _, s := range n.Else {
			e.emitPrim(s)
		}
		e.label(endLbl)

	case *mir.Loop:
		top := e.newLabel("loop")
		cont := e.newLabel("continue")
		brk := e.newLabel("break")
		e.loops = append(e.loops, loopLabels{cont: cont, brk: brk})

		e.label(top)
		for _, s := range n.CondPre {
			e.emitPrim(s)
		}
		if n.Cond != nil {
			e.emitBranchIfFalse(n.Cond, brk)
		}
		for _, s := range n.Body {
			e.emitPrim(s)
		}
		e.label(cont)
		for _, s := range n.Post {
			e.emitPrim(s)
		}
		e.emit("j %s", top)
		e.label(brk)

		e.loops = e.loops[:len(e.loops)-1]

	case *mir.Jump:
		if len(e.loops) == 0 {
			break // malformed input would have been rejected by sema; nothing to target
		}
		top := e.loops[len(e.loops)-1]
		switch n.Label {
		case mir.BreakSentinel:
			e.emit("j %s", top.brk)
		case mir.ContinueSentinel:
			e.emit("j %s", top.cont)
		default:
			e.emit("j %s", n.Label)
		}

	case *mir.Return:
		if n.Value != nil {
			r := e.emitExpr(n.Value)
			e.moveToReturnReg(r, n.Value.MType())
			e.freeIfTemp(r)
		}
		e.emit("j .Lret_%s", e.curFunc)

	default:
		panic(fmt.Sprintf("codegen: unhandled primitive %T", p))
	}
}

func (e *Emitter) moveToReturnReg(r string, m mir.DType) {
	if m.IsFloat() {
		if r != "fa0" {
			e.emit("%s fa0, %s", fmov(m.Size), r)
		}
		return
	}
	if r != "a0" {
		e.emit("mv a0, %s", r)
	}
}

func fmov(size int) string {
	if size == 4 {
		return "fmv.s"
	}
	return "fmv.d"
}

// emitBranchIfFalse evaluates cond and jumps to target when it is zero,
// the shared shape every If/Loop test uses.
func (e *Emitter) emitBranchIfFalse(cond mir.Expr, target string) {
	r := e.emitExpr(cond)
	if cond.MType().IsFloat() {
		iz := e.allocInt(ClassTemporary)
		e.emit("feq.%s %s, %s, zero", floatSuffix(cond.MType().Size), iz, r)
		e.emit("beqz %s, %s", iz, target)
		e.freeReg(iz)
	} else {
		e.emit("beqz %s, %s", r, target)
	}
	e.freeIfTemp(r)
}

// -----------------------------------------------------------------------
// Expression-level emission

// emitExpr recurses depth-first and returns the architectural register
// name holding e's value; depth-first evaluation keeps the register
// pressure bounded within one well-formed statement tree.
func (e *Emitter) emitExpr(x mir.Expr) string {
	switch n := x.(type) {
	case *mir.Immediate:
		return e.emitImmediate(n)
	case *mir.AddressOf:
		return e.emitAddressOf(n)
	case *mir.LoadAddress:
		base := e.emitExpr(n.Base)
		e.emit("addi %s, %s, %d", base, base, n.Offset)
		return base
	case *mir.Load:
		base := e.emitExpr(n.Base)
		dst := base
		if n.MType().IsFloat() {
			dst = e.allocFloat(ClassTemporary)
			e.emit("%s %s, %d(%s)", loadMnemonicFloat(n.Size), dst, n.Offset, base)
			e.freeReg(base)
		} else {
			e.emit("%s %s, %d(%s)", loadMnemonicInt(n.Size, n.MType().IsSigned()), dst, n.Offset, base)
		}
		return dst
	case *mir.Index:
		return e.emitIndex(n)
	case *mir.Store:
		return e.emitStore(n)
	case *mir.Binary:
		return e.emitBinary(n)
	case *mir.Unary:
		return e.emitUnary(n)
	case *mir.Cast:
		return e.emitCast(n)
	case *mir.Call:
		return e.emitCall(n)
	default:
		panic(fmt.Sprintf("codegen: unhandled expr %T", x))
	}
}

func (e *Emitter) emitImmediate(n *mir.Immediate) string {
	if n.IsString {
		lbl := e.poolString(n.Str)
		r := e.allocInt(ClassTemporary)
		e.emit("la %s, %s", r, lbl)
		return r
	}
	if n.MType().IsFloat() {
		lbl := e.poolFloat(n)
		addr := e.allocInt(ClassTemporary)
		e.emit("la %s, %s", addr, lbl)
		fr := e.allocFloat(ClassTemporary)
		e.emit("%s %s, 0(%s)", loadMnemonicFloat(n.MType().Size), fr, addr)
		e.freeReg(addr)
		return fr
	}
	r := e.allocInt(ClassTemporary)
	e.emit("li %s, %d", r, n.IntVal)
	return r
}

func (e *Emitter) emitAddressOf(n *mir.AddressOf) string {
	r := e.allocInt(ClassTemporary)
	if off, ok := e.frame.Offsets[n.Leaf]; ok {
		e.emit("addi %s, fp, %d", r, off)
	} else {
		e.emit("la %s, %s", r, n.Leaf)
	}
	return r
}

func (e *Emitter) emitIndex(n *mir.Index) string {
	base := e.emitExpr(n.Base)
	idx := e.emitExpr(n.IndexExpr)
	switch n.ElementSize {
	case 1:
		// no scaling needed
	case 2, 4, 8:
		e.emit("slli %s, %s, %d", idx, idx, log2(n.ElementSize))
	default:
		sz := e.allocInt(ClassTemporary)
		e.emit("li %s, %d", sz, n.ElementSize)
		e.emit("mul %s, %s, %s", idx, idx, sz)
		e.freeReg(sz)
	}
	e.emit("add %s, %s, %s", base, base, idx)
	e.freeReg(idx)
	return base
}

func log2(n int) int {
	p := 0
	for n > 1 {
		n >>= 1
		p++
	}
	return p
}

func (e *Emitter) emitStore(n *mir.Store) string {
	addr := e.emitExpr(n.Left)
	val := e.emitExpr(n.Right)
	if n.MType().IsFloat() {
		e.emit("%s %s, %d(%s)", storeMnemonicFloat(n.Size), val, n.Offset, addr)
	} else {
		e.emit("%s %s, %d(%s)", storeMnemonicInt(n.Size), val, n.Offset, addr)
	}
	e.freeReg(addr)
	return val
}

// -----------------------------------------------------------------------
// Binary/unary/cast operator tables

func (e *Emitter) emitBinary(n *mir.Binary) string {
	if n.MType().IsFloat() {
		return e.emitFloatBinary(n)
	}
	return e.emitIntBinary(n)
}

// depth is the height of an expression tree, used to order binary
// operand evaluation: emitting the deeper side first keeps the number
// of simultaneously live intermediates at or below depth+1, so a
// well-formed statement never exhausts a register class.
func depth(x mir.Expr) int {
	switch n := x.(type) {
	case *mir.Binary:
		l, r := depth(n.Left), depth(n.Right)
		if l > r {
			return l + 1
		}
		return r + 1
	case *mir.Unary:
		return depth(n.Inner) + 1
	case *mir.Cast:
		return depth(n.Inner) + 1
	case *mir.Load:
		return depth(n.Base) + 1
	case *mir.LoadAddress:
		return depth(n.Base) + 1
	case *mir.Index:
		l, r := depth(n.Base), depth(n.IndexExpr)
		if l > r {
			return l + 1
		}
		return r + 1
	case *mir.Store:
		l, r := depth(n.Left), depth(n.Right)
		if l > r {
			return l + 1
		}
		return r + 1
	case *mir.Call:
		d := 0
		for _, a := range n.Args {
			if ad := depth(a); ad > d {
				d = ad
			}
		}
		return d + 1
	default:
		return 1
	}
}

// emitOperands evaluates a binary node's two children, deeper side
// first, and returns their registers in (left, right) order.
func (e *Emitter) emitOperands(left, right mir.Expr) (string, string) {
	if depth(right) > depth(left) {
		r := e.emitExpr(right)
		l := e.emitExpr(left)
		return l, r
	}
	l := e.emitExpr(left)
	r := e.emitExpr(right)
	return l, r
}

func (e *Emitter) emitIntBinary(n *mir.Binary) string {
	l, r := e.emitOperands(n.Left, n.Right)
	signed := n.MType().IsSigned()
	dst := l
	switch n.Op {
	case lex.PPlus:
		e.emit("add %s, %s, %s", dst, l, r)
	case lex.PMinus:
		e.emit("sub %s, %s, %s", dst, l, r)
	case lex.PStar:
		e.emit("mul %s, %s, %s", dst, l, r)
	case lex.PSlash:
		if signed {
			e.emit("div %s, %s, %s", dst, l, r)
		} else {
			e.emit("divu %s, %s, %s", dst, l, r)
		}
	case lex.PPercent:
		if signed {
			e.emit("rem %s, %s, %s", dst, l, r)
		} else {
			e.emit("remu %s, %s, %s", dst, l, r)
		}
	case lex.PAmp:
		e.emit("and %s, %s, %s", dst, l, r)
	case lex.PPipe:
		e.emit("or %s, %s, %s", dst, l, r)
	case lex.PCaret:
		e.emit("xor %s, %s, %s", dst, l, r)
	case lex.PShl:
		e.emit("sll %s, %s, %s", dst, l, r)
	case lex.PShr:
		if signed {
			e.emit("sra %s, %s, %s", dst, l, r)
		} else {
			e.emit("srl %s, %s, %s", dst, l, r)
		}
	case lex.PLt:
		if signed {
			e.emit("slt %s, %s, %s", dst, l, r)
		} else {
			e.emit("sltu %s, %s, %s", dst, l, r)
		}
	case lex.PGt:
		if signed {
			e.emit("slt %s, %s, %s", dst, r, l)
		} else {
			e.emit("sltu %s, %s, %s", dst, r, l)
		}
	case lex.PLe:
		if signed {
			e.emit("slt %s, %s, %s", dst, r, l)
		} else {
			e.emit("sltu %s, %s, %s", dst, r, l)
		}
		e.emit("xori %s, %s, 1", dst, dst)
	case lex.PGe:
		if signed {
			e.emit("slt %s, %s, %s", dst, l, r)
		} else {
			e.emit("sltu %s, %s, %s", dst, l, r)
		}
		e.emit("xori %s, %s, 1", dst, dst)
	case lex.PEq:
		e.emit("xor %s, %s, %s", dst, l, r)
		e.emit("seqz %s, %s", dst, dst)
	case lex.PNe:
		e.emit("xor %s, %s, %s", dst, l, r)
		e.emit("snez %s, %s", dst, dst)
	default:
		panic(fmt.Sprintf("codegen: unhandled integer binary op %v", n.Op))
	}
	e.freeReg(r)
	return dst
}

func floatSuffix(size int) string {
	if size == 4 {
		return "s"
	}
	return "d"
}

func (e *Emitter) emitFloatBinary(n *mir.Binary) string {
	l, r := e.emitOperands(n.Left, n.Right)
	sfx := floatSuffix(n.Left.MType().Size)
	dst := l
	switch n.Op {
	case lex.PPlus:
		e.emit("fadd.%s %s, %s, %s", sfx, dst, l, r)
	case lex.PMinus:
		e.emit("fsub.%s %s, %s, %s", sfx, dst, l, r)
	case lex.PStar:
		e.emit("fmul.%s %s, %s, %s", sfx, dst, l, r)
	case lex.PSlash:
		e.emit("fdiv.%s %s, %s, %s", sfx, dst, l, r)
	default:
		// Comparisons produce an integer 0/1 result, so they need a fresh
		// integer destination rather than reusing the float operand.
		ir := e.allocInt(ClassTemporary)
		switch n.Op {
		case lex.PLt:
			e.emit("flt.%s %s, %s, %s", sfx, ir, l, r)
		case lex.PLe:
			e.emit("fle.%s %s, %s, %s", sfx, ir, l, r)
		case lex.PGt:
			e.emit("flt.%s %s, %s, %s", sfx, ir, r, l)
		case lex.PGe:
			e.emit("fle.%s %s, %s, %s", sfx, ir, r, l)
		case lex.PEq:
			e.emit("feq.%s %s, %s, %s", sfx, ir, l, r)
		case lex.PNe:
			e.emit("feq.%s %s, %s, %s", sfx, ir, l, r)
			e.emit("xori %s, %s, 1", ir, ir)
		default:
			panic(fmt.Sprintf("codegen: unhandled float binary op %v", n.Op))
		}
		e.freeReg(l)
		e.freeReg(r)
		return ir
	}
	e.freeReg(r)
	return dst
}

func (e *Emitter) emitUnary(n *mir.Unary) string {
	inner := e.emitExpr(n.Inner)
	if n.MType().IsFloat() {
		switch n.Op {
		case lex.PMinus:
			e.emit("fneg.%s %s, %s", floatSuffix(n.MType().Size), inner, inner)
		case lex.PPlus:
			// no-op
		default:
			panic(fmt.Sprintf("codegen: unhandled float unary op %v", n.Op))
		}
		return inner
	}
	switch n.Op {
	case lex.PMinus:
		e.emit("neg %s, %s", inner, inner)
	case lex.PPlus:
		// no-op
	case lex.PTilde:
		e.emit("not %s, %s", inner, inner)
	case lex.PBang:
		e.emit("seqz %s, %s", inner, inner)
	default:
		panic(fmt.Sprintf("codegen: unhandled unary op %v", n.Op))
	}
	return inner
}

// emitCast covers the whole conversion table: widen/narrow integers
// (sign- or zero-extending), convert between integer and floating
// representations, and reinterpret pointers, all driven by From/To's
// machine DKind rather than the source DataType.
func (e *Emitter) emitCast(n *mir.Cast) string {
	src := e.emitExpr(n.Inner)
	if n.From.IsInt() && n.To.IsInt() {
		return e.castIntToInt(src, n.From, n.To)
	}
	if n.From.IsFloat() && n.To.IsFloat() {
		if n.From.Size == n.To.Size {
			return src
		}
		dst := e.allocFloat(ClassTemporary)
		if n.To.Size == 8 {
			e.emit("fcvt.d.s %s, %s", dst, src)
		} else {
			e.emit("fcvt.s.d %s, %s", dst, src)
		}
		e.freeReg(src)
		return dst
	}
	if n.From.IsInt() && n.To.IsFloat() {
		dst := e.allocFloat(ClassTemporary)
		op := "fcvt." + floatSuffix(n.To.Size) + "." + intCvtSuffix(n.From)
		e.emit("%s %s, %s", op, dst, src)
		e.freeReg(src)
		return dst
	}
	if n.From.IsFloat() && n.To.IsInt() {
		dst := e.allocInt(ClassTemporary)
		op := "fcvt." + intCvtSuffix(n.To) + "." + floatSuffix(n.From.Size)
		e.emit("%s %s, %s, rtz", op, dst, src)
		e.freeReg(src)
		return dst
	}
	// Pointer<->pointer/integer reinterpretation: same register width,
	// nothing to emit.
	return src
}

func intCvtSuffix(d mir.DType) string {
	if d.Size == 8 {
		if d.IsSigned() {
			return "l"
		}
		return "lu"
	}
	if d.IsSigned() {
		return "w"
	}
	return "wu"
}

func (e *Emitter) castIntToInt(src string, from, to mir.DType) string {
	if to.Size >= from.Size {
		if to.Size == from.Size {
			return src
		}
		if from.IsSigned() {
			switch from.Size {
			case 1:
				e.emit("slli %s, %s, 56", src, src)
				e.emit("srai %s, %s, 56", src, src)
			case 2:
				e.emit("slli %s, %s, 48", src, src)
				e.emit("srai %s, %s, 48", src, src)
			case 4:
				e.emit("sext.w %s, %s", src, src)
			}
		} else {
			switch from.Size {
			case 1:
				e.emit("andi %s, %s, 0xff", src, src)
			case 2:
				e.emit("slli %s, %s, 48", src, src)
				e.emit("srli %s, %s, 48", src, src)
			case 4:
				e.emit("slli %s, %s, 32", src, src)
				e.emit("srli %s, %s, 32", src, src)
			}
		}
		return src
	}
	// Narrowing: the low bits already hold the truncated value; RV64
	// keeps values in full 64-bit registers so nothing further is
	// needed until the result is stored with its narrower width.
	return src
}

// -----------------------------------------------------------------------
// Calls

func (e *Emitter) emitCall(n *mir.Call) string {
	type argVal struct {
		reg   string
		float bool
	}
	// Evaluate every argument before moving any of them into an a0../
	// fa0.. register, so a nested call inside one argument's own
	// subtree can't stomp a sibling argument's already-computed value.
	vals := make([]argVal, len(n.Args))
	for i, a := range n.Args {
		r := e.emitExpr(a)
		vals[i] = argVal{reg: r, float: a.MType().IsFloat()}
	}

	intIdx, fltIdx := 0, 0
	for _, v := range vals {
		if v.float {
			dst := ArgReg(KindFloat, fltIdx)
			fltIdx++
			if dst != "" && dst != v.reg {
				e.emit("%s %s, %s", fmov(8), dst, v.reg)
			}
		} else {
			dst := ArgReg(KindInt, intIdx)
			intIdx++
			if dst != "" && dst != v.reg {
				e.emit("mv %s, %s", dst, v.reg)
			}
		}
		e.freeReg(v.reg)
	}

	// Whatever is still occupied now belongs to an outer expression (a
	// sibling operand's partial result) that must survive the callee
	// clobbering every caller-saved register; spill it to the stack
	// around the call and reload it after.
	intSnap := e.alloc.Snapshot(KindInt)
	fltSnap := e.alloc.Snapshot(KindFloat)
	intNames := sortedNames(intSnap)
	fltNames := sortedNames(fltSnap)

	spillBytes := alignUp(8*(len(intNames)+len(fltNames)), 16)
	if spillBytes > 0 {
		e.emit("addi sp, sp, -%d", spillBytes)
		off := 0
		for _, r := range intNames {
			e.emit("sd %s, %d(sp)", r, off)
			off += 8
		}
		for _, r := range fltNames {
			e.emit("fsd %s, %d(sp)", r, off)
			off += 8
		}
	}

	e.emit("call %s", n.Fn)

	if spillBytes > 0 {
		off := 0
		for _, r := range intNames {
			e.emit("ld %s, %d(sp)", r, off)
			off += 8
		}
		for _, r := range fltNames {
			e.emit("fld %s, %d(sp)", r, off)
			off += 8
		}
		e.emit("addi sp, sp, %d", spillBytes)
	}
	e.alloc.Restore(KindInt, intSnap)
	e.alloc.Restore(KindFloat, fltSnap)

	if n.MType().Kind == mir.DVoid {
		return ""
	}
	if n.MType().IsFloat() {
		dst := e.allocFloat(ClassTemporary)
		e.emit("%s %s, fa0", fmov(n.MType().Size), dst)
		return dst
	}
	dst := e.allocInt(ClassTemporary)
	e.emit("mv %s, a0", dst)
	return dst
}

func sortedNames(occ Occupancy) []string {
	names := make([]string, 0, len(occ))
	for n := range occ {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// -----------------------------------------------------------------------
// Register allocation helpers

func (e *Emitter) allocInt(class RegClass) string {
	id := e.alloc.AllocVirtual(KindInt, class)
	name, ok := e.alloc.Resolve(id)
	if !ok {
		panic("codegen: integer register pool exhausted")
	}
	return name
}

func (e *Emitter) allocFloat(class RegClass) string {
	id := e.alloc.AllocVirtual(KindFloat, class)
	name, ok := e.alloc.Resolve(id)
	if !ok {
		panic("codegen: floating-point register pool exhausted")
	}
	return name
}

func (e *Emitter) freeReg(name string) {
	e.alloc.FreeByName(name)
}

// freeIfTemp releases r back to the allocator whatever class it came
// from (the emitter only allocates Temporary-class registers); a
// zero-value r (e.g. a void call result) is a no-op.
func (e *Emitter) freeIfTemp(r string) {
	if r == "" {
		return
	}
	e.freeReg(r)
}
