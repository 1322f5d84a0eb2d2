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

// Package mir is the lower-level tree-shaped IR between the AST and
// the emitter: an
// explicit-memory rewrite of the AST (Load/Store/AddressOf/Index/Cast
// primitives) carrying a machine DType alongside the source DataType,
// plus the AST->MIR lowering pass. This subset drops long double,
// 128-bit integers and f16/f128.
package mir

import "rv64cc/internal/types"

// DKind is MIR_Datatype's tag.
type DKind int

const (
	DU8 DKind = iota
	DU16
	DU32
	DU64
	DI8
	DI16
	DI32
	DI64
	DF32
	DF64
	DPtr
	DBool
	DVoid
	DStruct
	DArray
)

// DType is a MIR_Datatype: a machine-level tag plus the size/alignment
// codegen needs (composites and arrays carry these explicitly since
// their DKind alone doesn't determine width).
type DType struct {
	Kind  DKind
	Size  int
	Align int
}

func (d DType) IsFloat() bool { return d.Kind == DF32 || d.Kind == DF64 }
func (d DType) IsInt() bool {
	switch d.Kind {
	case DU8, DU16, DU32, DU64, DI8, DI16, DI32, DI64, DBool:
		return true
	}
	return false
}
func (d DType) IsSigned() bool {
	switch d.Kind {
	case DI8, DI16, DI32, DI64:
		return true
	}
	return false
}

// FromDataType machine-lowers a source DataType: int->i32, long/long
// long->i64, short->i16, char->i8, with the unsigned counterpart chosen
// when the source type is unsigned.
func FromDataType(reg *types.Registry, t *types.DataType) DType {
	switch t.Kind {
	case types.KVoid, types.KError:
		return DType{Kind: DVoid}
	case types.KPointer:
		return DType{Kind: DPtr, Size: 8, Align: 8}
	case types.KArray:
		sz := reg.SizeOf(t)
		return DType{Kind: DArray, Size: sz, Align: reg.AlignOf(t)}
	case types.KStruct, types.KUnion:
		return DType{Kind: DStruct, Size: reg.SizeOf(t), Align: reg.AlignOf(t)}
	}
	if t.Base == types.BaseFloat {
		return DType{Kind: DF32, Size: 4, Align: 4}
	}
	if t.Base == types.BaseDouble {
		return DType{Kind: DF64, Size: 8, Align: 8}
	}
	if t.Base == types.BaseBool {
		return DType{Kind: DBool, Size: 1, Align: 1}
	}
	unsigned := t.Qual.Has(types.QUnsigned)
	switch {
	case t.Base == types.BaseChar:
		if unsigned {
			return DType{Kind: DU8, Size: 1, Align: 1}
		}
		return DType{Kind: DI8, Size: 1, Align: 1}
	case t.Qual.Has(types.QShort):
		if unsigned {
			return DType{Kind: DU16, Size: 2, Align: 2}
		}
		return DType{Kind: DI16, Size: 2, Align: 2}
	case t.Qual.Has(types.QLong), t.Qual.Has(types.QLongLong):
		if unsigned {
			return DType{Kind: DU64, Size: 8, Align: 8}
		}
		return DType{Kind: DI64, Size: 8, Align: 8}
	default:
		if unsigned {
			return DType{Kind: DU32, Size: 4, Align: 4}
		}
		return DType{Kind: DI32, Size: 4, Align: 4}
	}
}
