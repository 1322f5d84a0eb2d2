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

import "rv64cc/internal/mir"

// Frame is one function's stack layout: every local of every nested
// scope, allocated by a single bump allocator that aligns each slot and
// rounds the total to 16 bytes. Offsets are negative from fp. The top 16
// bytes of the frame (fp-8 and fp-16) hold the saved ra and caller fp,
// so local slots begin at fp-16 and grow downward.
type Frame struct {
	Offsets map[string]int
	Size    int
}

// saveAreaSize is the ra/fp spill area at the top of every frame.
const saveAreaSize = 16

func alignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}

// BuildFrame walks every StackAlloc reachable from fn.Body with a single
// allocator covering all nested scopes, plus one slot per incoming
// parameter so the prologue can spill a0..a7/fa0..fa7.
func BuildFrame(fn *mir.Func) *Frame {
	f := &Frame{Offsets: make(map[string]int)}
	running := saveAreaSize
	place := func(name string, size, align int) {
		running = alignUp(running, align)
		running += size
		f.Offsets[name] = -running
	}
	for _, p := range fn.Params {
		sz, al := p.Type.Size, p.Type.Align
		if sz == 0 {
			sz, al = 8, 8
		}
		place(p.Name, sz, al)
	}
	var walk func(prims []mir.Primitive)
	walk = func(prims []mir.Primitive) {
		for _, p := range prims {
			switch n := p.(type) {
			case *mir.StackAlloc:
				place(n.Name, n.Size, n.Align)
			case *mir.If:
				walk(n.Then)
				walk(n.Else)
			case *mir.Loop:
				walk(n.CondPre)
				walk(n.Body)
				walk(n.Post)
			case *mir.Scope:
				walk(n.Body)
			}
		}
	}
	walk(fn.Body)
	f.Size = alignUp(running, 16)
	return f
}
