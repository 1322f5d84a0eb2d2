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

// Package source owns the byte buffer for one translation unit and the
// line/column bookkeeping the tokenizer drives while scanning it.
package source

import "os"

// Buffer is the byte buffer for a translation unit. It is owned by the
// Tokenizer for the lifetime of a compilation; every Splice handed out by
// the lexer is a zero-copy view into Bytes and must not outlive it.
type Buffer struct {
	Name  string
	Bytes []byte
}

// Load reads an entire file into a Buffer.
func Load(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Buffer{Name: path, Bytes: data}, nil
}

// FromString builds a Buffer directly from in-memory text, used by tests
// that don't want to touch the filesystem.
func FromString(name, text string) *Buffer {
	return &Buffer{Name: name, Bytes: []byte(text)}
}

// Splice is a zero-copy pointer+length view into a Buffer, annotated with
// the 1-based line/column of its first byte.
type Splice struct {
	Buf    *Buffer
	Offset int
	Length int
	Line   int32
	Column int32
}

// Text materializes the splice's bytes as a string. Called lazily; tokens
// carry the Splice itself, not a pre-materialized string, so scanning never
// allocates per-token.
func (s Splice) Text() string {
	if s.Buf == nil {
		return ""
	}
	return string(s.Buf.Bytes[s.Offset : s.Offset+s.Length])
}

// Cursor walks a Buffer one byte at a time, tracking 1-based line/column.
// The Tokenizer drives one Cursor per Buffer; DFAs only ever see bytes fed
// to them by the Cursor, never touch it directly.
type Cursor struct {
	Buf    *Buffer
	Offset int
	Line   int32
	Column int32
}

// NewCursor creates a Cursor positioned at the start of buf.
func NewCursor(buf *Buffer) *Cursor {
	return &Cursor{Buf: buf, Offset: 0, Line: 1, Column: 0}
}

// Mark is an opaque, restorable cursor position.
type Mark struct {
	Offset int
	Line   int32
	Column int32
}

// Save captures the current position so a later Restore can rewind to it.
// This underlies the tokenizer's checkpoint/rewind contract.
func (c *Cursor) Save() Mark {
	return Mark{Offset: c.Offset, Line: c.Line, Column: c.Column}
}

// Restore rewinds the cursor to a previously captured Mark.
func (c *Cursor) Restore(m Mark) {
	c.Offset, c.Line, c.Column = m.Offset, m.Line, m.Column
}

// AtEOF reports whether the cursor has consumed the whole buffer.
func (c *Cursor) AtEOF() bool {
	return c.Offset >= len(c.Buf.Bytes)
}

// Peek returns the byte at the cursor without consuming it, or 0 at EOF.
func (c *Cursor) Peek() byte {
	if c.AtEOF() {
		return 0
	}
	return c.Buf.Bytes[c.Offset]
}

// PeekAt returns the byte ahead bytes from the cursor, or 0 past EOF.
func (c *Cursor) PeekAt(ahead int) byte {
	idx := c.Offset + ahead
	if idx < 0 || idx >= len(c.Buf.Bytes) {
		return 0
	}
	return c.Buf.Bytes[idx]
}

// Advance consumes and returns the next byte, maintaining line/column:
// '\n' increments the line and resets the column, any other byte advances
// the column.
func (c *Cursor) Advance() byte {
	b := c.Buf.Bytes[c.Offset]
	c.Offset++
	if b == '\n' {
		c.Line++
		c.Column = 0
	} else {
		c.Column++
	}
	return b
}

// SpliceFrom builds a Splice spanning [start, c.Offset) with the given
// reported position (normally the position at start).
func (c *Cursor) SpliceFrom(start int, line, column int32) Splice {
	return Splice{Buf: c.Buf, Offset: start, Length: c.Offset - start, Line: line, Column: column}
}
