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

// Package sema implements name resolution, getResultantType
// type-checking, and the cast/lvalue/call/initializer validations run
// between parsing and lowering.
package sema

import (
	"rv64cc/internal/diag"
	"rv64cc/internal/lex"
	"rv64cc/internal/types"
)

// UnderlyingOp exposes underlyingOp to other packages (internal/mir's
// compound-assignment lowering needs the same mapping the checker used).
func UnderlyingOp(op lex.Kind) lex.Kind { return underlyingOp(op) }

// ResultantType exposes resultantType without a diagnostic bag, for
// callers (internal/mir's lowering) that already know the operands
// type-check and only need the resultant type itself.
func ResultantType(reg *types.Registry, l, r *types.DataType, op lex.Kind) *types.DataType {
	return resultantType(reg, l, r, op, nil, "", 0, 0)
}

func isAssignKind(op lex.Kind) bool {
	switch op {
	case lex.PAssign, lex.PMulAssign, lex.PDivAssign, lex.PModAssign, lex.PAddAssign,
		lex.PSubAssign, lex.PShlAssign, lex.PShrAssign, lex.PAndAssign, lex.PXorAssign, lex.POrAssign:
		return true
	}
	return false
}

// underlyingOp maps a compound-assignment punctuator to the arithmetic
// operator it performs (`+=` -> `+`), so resultantType can be computed
// once for both plain binops and compound assignments. Plain `=` maps
// to itself so resultantType's pointer rules see "this is assignment".
func underlyingOp(op lex.Kind) lex.Kind {
	switch op {
	case lex.PAddAssign:
		return lex.PPlus
	case lex.PSubAssign:
		return lex.PMinus
	case lex.PMulAssign:
		return lex.PStar
	case lex.PDivAssign:
		return lex.PSlash
	case lex.PModAssign:
		return lex.PPercent
	case lex.PShlAssign:
		return lex.PShl
	case lex.PShrAssign:
		return lex.PShr
	case lex.PAndAssign:
		return lex.PAmp
	case lex.PXorAssign:
		return lex.PCaret
	case lex.POrAssign:
		return lex.PPipe
	}
	return op
}

// resultantType implements `getResultantType(L,R,op)`: C's usual
// arithmetic conversions plus the pointer-arithmetic special cases.
// file/line/col locate its diagnostics: a warning for a pointer-pointee
// mismatch in an assignment, an error for invalid pointer operands. bag
// may be nil to suppress both (ResultantType does this for internal/mir's
// lowering, which only cares about the resulting type).
func resultantType(reg *types.Registry, l, r *types.DataType, op lex.Kind, bag *diag.Bag, file string, line, col int32) *types.DataType {
	ld, rd := l.Decay(), r.Decay()
	li, ri := ld.IndirectionLevel(), rd.IndirectionLevel()

	if li != ri {
		if li > ri {
			return ld
		}
		return rd
	}

	if li > 0 {
		// Both sides are pointers of equal indirection: only assignment
		// and pointer-minus-pointer are meaningful. Anything else has no
		// pointer semantics to give it.
		if op == lex.PMinus && ld.Equals(rd) {
			return types.LongLong
		}
		if isAssignKind(op) {
			if !ld.Equals(rd) && bag != nil {
				bag.Warnf(diag.Semantic, file, line, col, "pointer types %s and %s differ", ld, rd)
			}
			return ld
		}
		if bag != nil {
			bag.Errorf(diag.Semantic, file, line, col, "invalid operands %s and %s to binary operator", ld, rd)
		}
		return types.Error
	}

	if ld.IsComposite() || rd.IsComposite() {
		if ld.Equals(rd) {
			return ld
		}
		return types.Error
	}

	if ld.Base == types.BaseDouble || rd.Base == types.BaseDouble {
		return types.Double
	}
	if ld.Base == types.BaseFloat || rd.Base == types.BaseFloat {
		return types.Float
	}
	return integerPromote(ld, rd)
}

// integerPromote ranks char=0 < short=1 < int=2 < long=3 < long_long=4.
func integerPromote(l, r *types.DataType) *types.DataType {
	if l.IsSigned() == r.IsSigned() {
		if l.Rank() >= r.Rank() {
			return l
		}
		return r
	}
	var sgn, uns *types.DataType
	if l.IsSigned() {
		sgn, uns = l, r
	} else {
		sgn, uns = r, l
	}
	if uns.Rank() >= sgn.Rank() {
		return uns
	}
	if sgn.Rank() > uns.Rank() {
		return sgn
	}
	if uns.Qual.Has(types.QUnsigned) {
		return uns
	}
	return &types.DataType{Kind: types.KPrimary, Base: sgn.Base, Qual: sgn.Qual | types.QUnsigned}
}
