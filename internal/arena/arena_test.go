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

package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct{ v int }

func TestAllocReturnsDistinctPointers(t *testing.T) {
	a := New(0)
	p1 := Alloc[node](a)
	p2 := Alloc[node](a)
	assert.NotSame(t, p1, p2)
}

// Allocations made since PushFrame are invalidated by PopFrame, but the
// Go pointers themselves remain valid memory (no manual free) -- only
// the arena's own bookkeeping rewinds, per the package doc comment.
func TestPushPopFrameRewindsAllocationCount(t *testing.T) {
	a := New(0)
	Alloc[node](a)
	a.PushFrame()
	Alloc[node](a)
	Alloc[node](a)
	require.Equal(t, 3, a.total)
	a.PopFrame()
	assert.Equal(t, 1, a.total)
}

func TestPopFrameWithoutPushPanics(t *testing.T) {
	a := New(0)
	assert.Panics(t, func() { a.PopFrame() })
}

func TestFrameDepthTracksNesting(t *testing.T) {
	a := New(0)
	assert.Equal(t, 0, a.Depth())
	a.PushFrame()
	a.PushFrame()
	assert.Equal(t, 2, a.Depth())
	a.PopFrame()
	assert.Equal(t, 1, a.Depth())
	a.PopFrame()
	assert.Equal(t, 0, a.Depth())
}

func TestFrameDepthLimitPanics(t *testing.T) {
	a := New(0)
	assert.Panics(t, func() {
		for i := 0; i <= MaxFrameDepth; i++ {
			a.PushFrame()
		}
	})
}

// Arena.Alloc fails with ErrOutOfMemory once the configured object limit
// is reached.
func TestAllocLimitPanicsWithErrOutOfMemory(t *testing.T) {
	a := New(2)
	Alloc[node](a)
	Alloc[node](a)
	assert.PanicsWithValue(t, &ErrOutOfMemory{Limit: 2}, func() { Alloc[node](a) })
}

// A frame pushed before a new slab type is first allocated into still
// rewinds that slab to empty, not to some stale length.
func TestPopFrameTruncatesSlabCreatedAfterPush(t *testing.T) {
	type other struct{ s string }
	a := New(0)
	a.PushFrame()
	Alloc[other](a)
	require.Equal(t, 1, a.total)
	a.PopFrame()
	assert.Equal(t, 0, a.total)
}
