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
)

func TestAllocPhysicalFailsWhenAlreadyOccupied(t *testing.T) {
	a := NewAllocator()
	_, ok := a.AllocPhysical("a0")
	require.True(t, ok)
	_, ok = a.AllocPhysical("a0")
	assert.False(t, ok, "a0 is already occupied")
}

func TestResolvePicksFirstFreeRegisterInClass(t *testing.T) {
	a := NewAllocator()
	id := a.AllocVirtual(KindInt, ClassTemporary)
	name, ok := a.Resolve(id)
	require.True(t, ok)
	assert.Equal(t, IntTempNames[0], name)
}

// An architectural register is occupied iff at least one live virtual
// id maps to it -- so Free must make the name immediately resolvable
// again by a fresh vreg.
func TestFreeMakesRegisterAvailableAgain(t *testing.T) {
	a := NewAllocator()
	id1 := a.AllocVirtual(KindInt, ClassTemporary)
	name1, _ := a.Resolve(id1)
	a.Free(id1)

	id2 := a.AllocVirtual(KindInt, ClassTemporary)
	name2, _ := a.Resolve(id2)
	assert.Equal(t, name1, name2, "freed register should be reused by the next allocation")
}

// Resolving a vreg id after it has been freed must fail: the mapping is
// gone, not reissued.
func TestResolveAfterFreeFails(t *testing.T) {
	a := NewAllocator()
	id := a.AllocVirtual(KindInt, ClassTemporary)
	a.Resolve(id)
	a.Free(id)
	_, ok := a.Resolve(id)
	assert.False(t, ok)
}

func TestDistinctVirtualRegsGetDistinctPhysicalRegs(t *testing.T) {
	a := NewAllocator()
	id1 := a.AllocVirtual(KindInt, ClassTemporary)
	id2 := a.AllocVirtual(KindInt, ClassTemporary)
	n1, _ := a.Resolve(id1)
	n2, _ := a.Resolve(id2)
	assert.NotEqual(t, n1, n2)
}

// A call site snapshots caller-saved registers, spills them, and
// restores the same occupancy afterward, so every caller-saved register
// occupied before the call holds the same value after it (modulo the
// ABI return registers).
func TestSnapshotRestoreRoundTrips(t *testing.T) {
	a := NewAllocator()
	id := a.AllocVirtual(KindInt, ClassTemporary)
	name, _ := a.Resolve(id)

	snap := a.Snapshot(KindInt)
	require.Contains(t, snap, name)

	// Simulate a call clobbering every caller-saved int register, then
	// restoring from the snapshot.
	a.Restore(KindInt, snap)

	resolved, ok := a.Resolve(id)
	require.True(t, ok)
	assert.Equal(t, name, resolved)
}

func TestOccupiedTempAndArgListsOnlyBusyRegisters(t *testing.T) {
	a := NewAllocator()
	assert.Empty(t, a.OccupiedTempAndArg(KindInt))
	id := a.AllocVirtual(KindInt, ClassTemporary)
	name, _ := a.Resolve(id)
	assert.Equal(t, []string{name}, a.OccupiedTempAndArg(KindInt))
}

func TestArgRegByIndex(t *testing.T) {
	assert.Equal(t, "a0", ArgReg(KindInt, 0))
	assert.Equal(t, "fa3", ArgReg(KindFloat, 3))
	assert.Equal(t, "", ArgReg(KindInt, 99))
}

func TestAllocPhysicalOccupiesTheNamedRegister(t *testing.T) {
	a := NewAllocator()
	_, ok := a.AllocPhysical("fa0")
	require.True(t, ok)
	_, ok = a.AllocPhysical("fa0")
	assert.False(t, ok, "fa0 is already occupied")
}
