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

import "github.com/samber/lo"

// SymbolTable is an insertion-order-preserving mapping from identifier to
// payload, generic over the
// payload type so one implementation serves both the parser's
// identifier->DataType tables and the lowerer's identifier->StorageInfo
// tables.
type SymbolTable[V any] struct {
	order []string
	index map[string]V
}

// NewSymbolTable creates an empty table.
func NewSymbolTable[V any]() *SymbolTable[V] {
	return &SymbolTable[V]{index: make(map[string]V)}
}

// Declare inserts name->value, appending to insertion order. Returns false
// without modifying the table if name is already declared. Sema's
// redefinition check keeps its own per-block record and does not use
// this result.
func (s *SymbolTable[V]) Declare(name string, value V) bool {
	if _, exists := s.index[name]; exists {
		return false
	}
	s.order = append(s.order, name)
	s.index[name] = value
	return true
}

// Set overwrites an existing (or declares a new) entry, used when a
// later pass refines an already-declared symbol's payload in place.
func (s *SymbolTable[V]) Set(name string, value V) {
	if _, exists := s.index[name]; !exists {
		s.order = append(s.order, name)
	}
	s.index[name] = value
}

// Lookup returns (value, true) if name is declared directly in this
// table (not walking any parent scope chain -- that's the caller's job).
func (s *SymbolTable[V]) Lookup(name string) (V, bool) {
	v, ok := s.index[name]
	return v, ok
}

// Names returns every declared identifier in insertion order.
func (s *SymbolTable[V]) Names() []string {
	return append([]string(nil), s.order...)
}

// Len reports how many symbols are declared.
func (s *SymbolTable[V]) Len() int { return len(s.order) }

// Values returns every payload in insertion order, built with lo.Map over
// Names rather than a hand-rolled loop.
func (s *SymbolTable[V]) Values() []V {
	return lo.Map(s.order, func(name string, _ int) V {
		return s.index[name]
	})
}
