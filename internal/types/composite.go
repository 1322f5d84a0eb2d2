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

package types

// Member is one field of a Composite: its type and its byte offset, as
// assigned by Registry.Layout.
type Member struct {
	Name   string
	Type   *DataType
	Offset int
}

// Composite models a struct or union: an ordered map from
// member name to {type, offset}, plus the size/alignment the single
// layout pass computes.
type Composite struct {
	Name    string
	IsUnion bool
	Defined bool
	Size    int
	Align   int

	Members []Member
	index   map[string]int
}

// NewComposite starts an (initially undefined, zero-member) composite.
func NewComposite(name string, isUnion bool) *Composite {
	return &Composite{Name: name, IsUnion: isUnion, index: make(map[string]int)}
}

// AddMember appends a member in source order. Returns false if name is
// already declared in this composite (the parser reports it as a
// duplicate member).
func (c *Composite) AddMember(name string, t *DataType) bool {
	if _, exists := c.index[name]; exists {
		return false
	}
	c.index[name] = len(c.Members)
	c.Members = append(c.Members, Member{Name: name, Type: t})
	return true
}

// Member looks up a member by name, returning (member, true) on success.
func (c *Composite) Member(name string) (Member, bool) {
	i, ok := c.index[name]
	if !ok {
		return Member{}, false
	}
	return c.Members[i], true
}

// Registry owns every struct and union tag declared across the
// translation unit. Structs and unions have separate namespaces in C, so
// "struct Foo" and "union Foo" may coexist.
type Registry struct {
	structs map[string]*Composite
	unions  map[string]*Composite
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{structs: make(map[string]*Composite), unions: make(map[string]*Composite)}
}

// DefineStruct returns the Composite for name, creating it if this is the
// first declaration (a forward reference via `struct Foo;` or `struct Foo
// *p`).
func (r *Registry) DefineStruct(name string) *Composite {
	if c, ok := r.structs[name]; ok {
		return c
	}
	c := NewComposite(name, false)
	r.structs[name] = c
	return c
}

// DefineUnion is DefineStruct's union counterpart.
func (r *Registry) DefineUnion(name string) *Composite {
	if c, ok := r.unions[name]; ok {
		return c
	}
	c := NewComposite(name, true)
	r.unions[name] = c
	return c
}

func (r *Registry) Struct(name string) (*Composite, bool) { c, ok := r.structs[name]; return c, ok }
func (r *Registry) Union(name string) (*Composite, bool)  { c, ok := r.unions[name]; return c, ok }

func alignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}

// Layout runs the single layout pass: for a struct, walk
// members in source order, rounding the running offset up to each
// member's alignment before placing it, then round the total up to the
// composite's own alignment (max of member alignments). A union places
// every member at offset 0; its size is the largest member, rounded up to
// the largest alignment.
func (r *Registry) Layout(c *Composite) {
	if c.IsUnion {
		maxSize, maxAlign := 0, 1
		for i := range c.Members {
			c.Members[i].Offset = 0
			if sz := r.SizeOf(c.Members[i].Type); sz > maxSize {
				maxSize = sz
			}
			if al := r.AlignOf(c.Members[i].Type); al > maxAlign {
				maxAlign = al
			}
		}
		c.Align = maxAlign
		c.Size = alignUp(maxSize, maxAlign)
		c.Defined = true
		return
	}

	offset, maxAlign := 0, 1
	for i := range c.Members {
		al := r.AlignOf(c.Members[i].Type)
		offset = alignUp(offset, al)
		c.Members[i].Offset = offset
		offset += r.SizeOf(c.Members[i].Type)
		if al > maxAlign {
			maxAlign = al
		}
	}
	c.Align = maxAlign
	c.Size = alignUp(offset, maxAlign)
	c.Defined = true
}

// SizeOf computes sizeof(t) under the LP64D ABI (8-byte pointers/longs,
// 4-byte int, etc.), consulting this Registry for composite members.
func (r *Registry) SizeOf(t *DataType) int {
	switch t.Kind {
	case KVoid:
		return 0
	case KPointer:
		return 8
	case KArray:
		if t.Count < 0 {
			return 8 // unsized array used as a pointer-decayed value
		}
		return r.SizeOf(t.Elem) * t.Count
	case KStruct:
		if c, ok := r.structs[t.Name]; ok && c.Defined {
			return c.Size
		}
		return 0
	case KUnion:
		if c, ok := r.unions[t.Name]; ok && c.Defined {
			return c.Size
		}
		return 0
	case KPrimary:
		switch {
		case t.Qual.Has(QShort):
			return 2
		case t.Qual.Has(QLongLong), t.Qual.Has(QLong):
			return 8
		default:
			switch t.Base {
			case BaseChar, BaseBool:
				return 1
			case BaseFloat:
				return 4
			case BaseDouble:
				return 8
			default:
				return 4
			}
		}
	}
	return 0
}

// AlignOf computes the natural alignment of t; every primitive and
// pointer in this ABI is self-aligned, arrays take their element's
// alignment, composites carry their own computed alignment.
func (r *Registry) AlignOf(t *DataType) int {
	switch t.Kind {
	case KArray:
		return r.AlignOf(t.Elem)
	case KStruct:
		if c, ok := r.structs[t.Name]; ok && c.Defined {
			return c.Align
		}
		return 1
	case KUnion:
		if c, ok := r.unions[t.Name]; ok && c.Defined {
			return c.Align
		}
		return 1
	default:
		return r.SizeOf(t)
	}
}
