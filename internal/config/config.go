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

// Package config holds the compiler's CLI options, populated by cobra
// flags in cmd/rv64cc and consulted by the pipeline driver. Shared as
// its own package so tests can construct an Options value without
// going through cobra at all. No env vars or config files are read.
package config

// Options is the whole of the CLI surface.
type Options struct {
	// Input is the single positional source path.
	Input string
	// Output is the destination for the emitted assembly; defaults to
	// "./codegen_output.s".
	Output string
	// NoPrint suppresses dumping the parse tree / MIR / assembly to
	// stdout.
	NoPrint bool
	// FoldConstants runs internal/fold between parsing and sema.
	FoldConstants bool
}

// DefaultOutput is the default -o value.
const DefaultOutput = "./codegen_output.s"

// New returns Options with every default applied except Input, which
// the caller must still set from the positional argument.
func New() Options {
	return Options{Output: DefaultOutput, FoldConstants: true}
}
