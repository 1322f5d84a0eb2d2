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
	"testing"

	"github.com/stretchr/testify/assert"

	"rv64cc/internal/lex"
	"rv64cc/internal/types"
)

func TestResultantPointerPlusInteger(t *testing.T) {
	reg := types.NewRegistry()
	p := types.Pointer(types.Int)
	got := ResultantType(reg, p, types.Int, lex.PPlus)
	assert.True(t, got.Equals(p))
}

func TestResultantPointerMinusPointerIsLongLong(t *testing.T) {
	reg := types.NewRegistry()
	p := types.Pointer(types.Int)
	got := ResultantType(reg, p, p, lex.PMinus)
	assert.True(t, got.Equals(types.LongLong))
}

func TestResultantMixedDoubleWins(t *testing.T) {
	reg := types.NewRegistry()
	got := ResultantType(reg, types.Int, types.Double, lex.PPlus)
	assert.True(t, got.Equals(types.Double))
}

func TestResultantMixedFloatWinsOverInt(t *testing.T) {
	reg := types.NewRegistry()
	got := ResultantType(reg, types.Float, types.Int, lex.PPlus)
	assert.True(t, got.Equals(types.Float))
}

// Same signedness: the higher-ranked type wins (int vs long -> long).
func TestIntegerPromoteSameSignednessHigherRank(t *testing.T) {
	got := integerPromote(types.Int, types.Long)
	assert.True(t, got.Equals(types.Long))
	got = integerPromote(types.Long, types.Int)
	assert.True(t, got.Equals(types.Long))
}

// Different signedness, unsigned rank >= signed rank -> unsigned wins.
func TestIntegerPromoteUnsignedRankAtLeastSigned(t *testing.T) {
	got := integerPromote(types.Int, types.ULong)
	assert.True(t, got.Equals(types.ULong))
}

// Different signedness, signed can represent the unsigned's range
// (signed strictly higher rank) -> signed wins.
func TestIntegerPromoteSignedCanRepresentUnsigned(t *testing.T) {
	got := integerPromote(types.Long, &types.DataType{Kind: types.KPrimary, Base: types.BaseInt, Qual: types.QUnsigned})
	assert.True(t, got.Equals(types.Long))
}

func TestUnderlyingOpMapsCompoundAssignToArithmetic(t *testing.T) {
	assert.Equal(t, lex.PPlus, UnderlyingOp(lex.PAddAssign))
	assert.Equal(t, lex.PMinus, UnderlyingOp(lex.PSubAssign))
	assert.Equal(t, lex.PStar, UnderlyingOp(lex.PMulAssign))
	assert.Equal(t, lex.PAssign, UnderlyingOp(lex.PAssign))
}

func TestResultantSameStructNameAllowed(t *testing.T) {
	reg := types.NewRegistry()
	a := types.StructRef("A")
	got := ResultantType(reg, a, a, lex.PAssign)
	assert.True(t, got.Equals(a))
}

func TestResultantDifferentStructNameIsError(t *testing.T) {
	reg := types.NewRegistry()
	a := types.StructRef("A")
	b := types.StructRef("B")
	got := ResultantType(reg, a, b, lex.PAssign)
	assert.Equal(t, types.Error, got)
}

// Between two pointers of equal indirection only assignment and
// pointer-minus-pointer mean anything; every other operator is
// rejected rather than handed to codegen as 64-bit arithmetic.
func TestResultantPointerPlusPointerIsError(t *testing.T) {
	reg := types.NewRegistry()
	p := types.Pointer(types.Int)
	got := ResultantType(reg, p, p, lex.PPlus)
	assert.Equal(t, types.Error, got)
}

func TestResultantPointerBitwiseOpIsError(t *testing.T) {
	reg := types.NewRegistry()
	p := types.Pointer(types.Int)
	for _, op := range []lex.Kind{lex.PAmp, lex.PPipe, lex.PCaret, lex.PStar, lex.PSlash} {
		got := ResultantType(reg, p, p, op)
		assert.Equal(t, types.Error, got, "op %v", op)
	}
}

func TestResultantPointerMinusUnequalPointeesIsError(t *testing.T) {
	reg := types.NewRegistry()
	pi := types.Pointer(types.Int)
	pc := types.Pointer(types.Char)
	got := ResultantType(reg, pi, pc, lex.PMinus)
	assert.Equal(t, types.Error, got)
}

func TestResultantPointerAssignmentKeepsLeft(t *testing.T) {
	reg := types.NewRegistry()
	p := types.Pointer(types.Int)
	got := ResultantType(reg, p, p, lex.PAssign)
	assert.True(t, got.Equals(p))
}
