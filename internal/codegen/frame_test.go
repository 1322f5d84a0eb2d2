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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rv64cc/internal/mir"
)

// The total frame (including the 16-byte ra/fp save area) is rounded to
// 16 bytes, and every local is aligned to its own type's alignment
// before being placed.
func TestBuildFrameRoundsTotalTo16Bytes(t *testing.T) {
	fn := &mir.Func{
		Body: []mir.Primitive{
			&mir.StackAlloc{Name: "a", Size: 1, Align: 1},
		},
	}
	f := BuildFrame(fn)
	assert.Zero(t, f.Size%16)
	assert.Equal(t, 32, f.Size)
}

// Locals live strictly below the saved-ra/fp area at the top of the
// frame, so no slot may land inside [fp-16, fp).
func TestBuildFrameAssignsNegativeOffsetsFromFP(t *testing.T) {
	fn := &mir.Func{
		Body: []mir.Primitive{
			&mir.StackAlloc{Name: "a", Size: 8, Align: 8},
			&mir.StackAlloc{Name: "b", Size: 8, Align: 8},
		},
	}
	f := BuildFrame(fn)
	require.Contains(t, f.Offsets, "a")
	require.Contains(t, f.Offsets, "b")
	assert.LessOrEqual(t, f.Offsets["a"], -16)
	assert.LessOrEqual(t, f.Offsets["b"], -16)
	assert.NotEqual(t, f.Offsets["a"], f.Offsets["b"])
}

// A local narrower than the running offset's current alignment still
// gets rounded up to its own alignment before being placed (e.g. a
// char followed by a long must not straddle a misaligned boundary).
func TestBuildFrameAlignsEachSlotToItsOwnType(t *testing.T) {
	fn := &mir.Func{
		Body: []mir.Primitive{
			&mir.StackAlloc{Name: "c", Size: 1, Align: 1},
			&mir.StackAlloc{Name: "l", Size: 8, Align: 8},
		},
	}
	f := BuildFrame(fn)
	assert.Zero(t, (-f.Offsets["l"])%8)
}

// Locals nested inside if/while/for/block scopes are all visited by the
// same single allocator pass.
func TestBuildFrameWalksNestedScopes(t *testing.T) {
	fn := &mir.Func{
		Body: []mir.Primitive{
			&mir.If{
				Then: []mir.Primitive{&mir.StackAlloc{Name: "in_if", Size: 4, Align: 4}},
			},
			&mir.Loop{
				Body: []mir.Primitive{&mir.StackAlloc{Name: "in_loop", Size: 4, Align: 4}},
			},
			&mir.Scope{
				Body: []mir.Primitive{&mir.StackAlloc{Name: "in_scope", Size: 4, Align: 4}},
			},
		},
	}
	f := BuildFrame(fn)
	assert.Contains(t, f.Offsets, "in_if")
	assert.Contains(t, f.Offsets, "in_loop")
	assert.Contains(t, f.Offsets, "in_scope")
}

// Incoming parameters get a frame slot too, so the prologue can spill
// a0..a7/fa0..fa7 into them.
func TestBuildFrameReservesSlotsForParameters(t *testing.T) {
	fn := &mir.Func{
		Params: []mir.Param{{Name: "x", Type: mir.DType{Kind: mir.DI32, Size: 4, Align: 4}}},
		Body:   []mir.Primitive{&mir.StackAlloc{Name: "y", Size: 4, Align: 4}},
	}
	f := BuildFrame(fn)
	assert.Contains(t, f.Offsets, "x")
	assert.Contains(t, f.Offsets, "y")
}
