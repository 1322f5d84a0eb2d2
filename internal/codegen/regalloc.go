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

// Package codegen walks MIR and emits RV64GC/LP64D GNU-assembler text
// : a register/stack allocator on top of the RV64
// register file, a per-function frame layout pass, and the tree-walking
// emitter itself.
package codegen

import "github.com/samber/lo"

// RegKind distinguishes the integer and floating-point register files.
type RegKind int

const (
	KindInt RegKind = iota
	KindFloat
)

// RegClass picks which pool a virtual register resolves from:
// temporary (caller-saved), saved (callee-saved), or either.
type RegClass int

const (
	ClassTemporary RegClass = iota
	ClassSaved
	ClassAny
)

// VReg is the opaque id alloc_virtual hands back; callers never see a
// concrete register name until they call Resolve.
type VReg int

type vregInfo struct {
	kind  RegKind
	class RegClass
	reg   string // "" until resolved
}

// Allocator hands out RV64 registers on demand: a free-list per
// architectural register class, keyed by name rather than a numeric
// encoding since every consumer (the emitter) only ever needs the ABI
// name to print.
type Allocator struct {
	intTemp  []string
	intSaved []string
	intArg   []string
	fltTemp  []string
	fltSaved []string
	fltArg   []string

	occupied map[string]VReg // reg name -> owning vreg, absent = free
	vregs    map[VReg]*vregInfo
	next     VReg
}

// IntTempNames, IntSavedNames, IntArgNames, FloatTempNames,
// FloatSavedNames and FloatArgNames name the RV64 ABI registers in each
// class (x8/s0 is reserved as the frame pointer and excluded from
// IntSavedNames; x0/ra/sp/gp/tp are special-purpose and are never
// allocated through this pool).
var (
	IntTempNames    = []string{"t0", "t1", "t2", "t3", "t4", "t5", "t6"}
	IntSavedNames   = []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10", "s11"}
	IntArgNames     = []string{"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7"}
	FloatTempNames  = []string{"ft0", "ft1", "ft2", "ft3", "ft4", "ft5", "ft6", "ft7", "ft8", "ft9", "ft10", "ft11"}
	FloatSavedNames = []string{"fs0", "fs1", "fs2", "fs3", "fs4", "fs5", "fs6", "fs7", "fs8", "fs9", "fs10", "fs11"}
	FloatArgNames   = []string{"fa0", "fa1", "fa2", "fa3", "fa4", "fa5", "fa6", "fa7"}
)

// NewAllocator creates a fresh Allocator with every pool free, one per
// function; no allocator state survives across functions.
func NewAllocator() *Allocator {
	return &Allocator{
		intTemp:  append([]string(nil), IntTempNames...),
		intSaved: append([]string(nil), IntSavedNames...),
		intArg:   append([]string(nil), IntArgNames...),
		fltTemp:  append([]string(nil), FloatTempNames...),
		fltSaved: append([]string(nil), FloatSavedNames...),
		fltArg:   append([]string(nil), FloatArgNames...),
		occupied: make(map[string]VReg),
		vregs:    make(map[VReg]*vregInfo),
	}
}

func (a *Allocator) poolFor(kind RegKind, class RegClass) []string {
	switch {
	case kind == KindInt && class == ClassTemporary:
		return a.intTemp
	case kind == KindInt && class == ClassSaved:
		return a.intSaved
	case kind == KindInt && class == ClassAny:
		return append(append([]string(nil), a.intTemp...), a.intSaved...)
	case kind == KindFloat && class == ClassTemporary:
		return a.fltTemp
	case kind == KindFloat && class == ClassSaved:
		return a.fltSaved
	default:
		return append(append([]string(nil), a.fltTemp...), a.fltSaved...)
	}
}

// AllocPhysical reserves a specific architectural register by name,
// failing if it is already occupied.
func (a *Allocator) AllocPhysical(name string) (VReg, bool) {
	if _, busy := a.occupied[name]; busy {
		return 0, false
	}
	kind := KindInt
	if lo.Contains(a.fltTemp, name) || lo.Contains(a.fltSaved, name) || lo.Contains(a.fltArg, name) {
		kind = KindFloat
	}
	id := a.newVReg(kind, ClassAny)
	a.vregs[id].reg = name
	a.occupied[name] = id
	return id, true
}

// AllocVirtual returns an opaque id without committing to a concrete
// register yet; Resolve assigns the physical register lazily, on first
// use.
func (a *Allocator) AllocVirtual(kind RegKind, class RegClass) VReg {
	return a.newVReg(kind, class)
}

func (a *Allocator) newVReg(kind RegKind, class RegClass) VReg {
	a.next++
	id := a.next
	a.vregs[id] = &vregInfo{kind: kind, class: class}
	return id
}

// Resolve returns the architectural register backing id, picking the
// first free register in its requested class on first call. A caller
// that exhausts every register in the class has broken the bounded-
// pressure assumption; the emitter recurses depth-first specifically so
// this never happens for well-formed expression trees.
func (a *Allocator) Resolve(id VReg) (string, bool) {
	info, ok := a.vregs[id]
	if !ok {
		return "", false
	}
	if info.reg != "" {
		return info.reg, true
	}
	for _, name := range a.poolFor(info.kind, info.class) {
		if _, busy := a.occupied[name]; !busy {
			info.reg = name
			a.occupied[name] = id
			return name, true
		}
	}
	return "", false
}

// Free releases id's architectural register back to its pool. Resolving
// id again after Free returns false: the mapping is gone, not re-issued.
func (a *Allocator) Free(id VReg) {
	info, ok := a.vregs[id]
	if !ok || info.reg == "" {
		return
	}
	delete(a.occupied, info.reg)
	delete(a.vregs, id)
}

// FreeByName releases whatever vreg currently occupies the architectural
// register name, a no-op if name is not occupied (e.g. a fixed register
// like fp/sp the allocator never owned). The emitter only ever carries
// register names once Resolve has been called, so this is its sole way
// to give a register back.
func (a *Allocator) FreeByName(name string) {
	if id, ok := a.occupied[name]; ok {
		a.Free(id)
	}
}

// Occupancy is a point-in-time snapshot of which names in a class are
// occupied, used to save/restore caller-saved registers around a call.
type Occupancy map[string]VReg

// Snapshot captures the current occupancy of every name the allocator
// knows about for kind (both temp and arg pools are caller-saved and
// relevant to a call site).
func (a *Allocator) Snapshot(kind RegKind) Occupancy {
	snap := make(Occupancy)
	names := a.callerSavedNames(kind)
	for _, n := range names {
		if id, busy := a.occupied[n]; busy {
			snap[n] = id
		}
	}
	return snap
}

// Restore re-imposes a previously captured Occupancy, used after a call
// instruction has clobbered the caller-saved class.
func (a *Allocator) Restore(kind RegKind, snap Occupancy) {
	for _, n := range a.callerSavedNames(kind) {
		delete(a.occupied, n)
	}
	for n, id := range snap {
		a.occupied[n] = id
		if info, ok := a.vregs[id]; ok {
			info.reg = n
		}
	}
}

func (a *Allocator) callerSavedNames(kind RegKind) []string {
	if kind == KindInt {
		return append(append([]string(nil), a.intTemp...), a.intArg...)
	}
	return append(append([]string(nil), a.fltTemp...), a.fltArg...)
}

// OccupiedTempAndArg lists every name of kind's temp+arg pools currently
// holding a live value, used by the call sequence to know what to spill.
func (a *Allocator) OccupiedTempAndArg(kind RegKind) []string {
	return lo.Filter(a.callerSavedNames(kind), func(n string, _ int) bool {
		_, busy := a.occupied[n]
		return busy
	})
}

// ArgReg returns the i'th argument register name for kind, or "" if i
// exceeds the eight architectural argument registers LP64D reserves.
func ArgReg(kind RegKind, i int) string {
	if kind == KindFloat {
		if i < len(FloatArgNames) {
			return FloatArgNames[i]
		}
		return ""
	}
	if i < len(IntArgNames) {
		return IntArgNames[i]
	}
	return ""
}
