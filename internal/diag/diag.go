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

// Package diag is the compiler's structured diagnostic sink. Every stage
// (lex, parse, sema) accumulates into a Bag and keeps going so one run can
// report many errors; lowering and codegen assume well-formed input and
// call ICE on an invariant violation instead.
package diag

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Severity classifies a diagnostic. Warnings never gate stage progression;
// only Errors do.
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Warning {
		return "WARN"
	}
	return "ERROR"
}

// Category classifies a diagnostic by the stage-level failure family.
type Category string

const (
	Lexical             Category = "lexical"
	Syntactic           Category = "syntactic"
	Semantic            Category = "semantic"
	FeatureNotSupported Category = "feature-not-supported"
)

// Diagnostic is one structured message.
type Diagnostic struct {
	Severity Severity
	Category Category
	File     string
	Line     int32
	Column   int32
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d [%s] %s", d.File, d.Line, d.Column, d.Severity, d.Message)
}

// Bag accumulates diagnostics for one compilation stage (or the whole
// pipeline) and logs each one through logrus as it is recorded.
type Bag struct {
	Log   *logrus.Logger
	items []Diagnostic
}

// NewBag creates a Bag. log may be nil, in which case logrus.StandardLogger
// is used.
func NewBag(log *logrus.Logger) *Bag {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Bag{Log: log}
}

func (b *Bag) record(sev Severity, cat Category, file string, line, col int32, format string, args ...interface{}) {
	d := Diagnostic{
		Severity: sev,
		Category: cat,
		File:     file,
		Line:     line,
		Column:   col,
		Message:  fmt.Sprintf(format, args...),
	}
	b.items = append(b.items, d)

	entry := b.Log.WithFields(logrus.Fields{
		"file": file, "line": line, "col": col, "category": string(cat),
	})
	if sev == Warning {
		entry.Warn(d.Message)
	} else {
		entry.Error(d.Message)
	}
}

// Errorf records an error-severity diagnostic.
func (b *Bag) Errorf(cat Category, file string, line, col int32, format string, args ...interface{}) {
	b.record(Error, cat, file, line, col, format, args...)
}

// Warnf records a warning-severity diagnostic.
func (b *Bag) Warnf(cat Category, file string, line, col int32, format string, args ...interface{}) {
	b.record(Warning, cat, file, line, col, format, args...)
}

// Errors returns the count of Error-severity diagnostics recorded so far.
// The pipeline refuses to proceed past a stage for which this is nonzero.
func (b *Bag) Errors() int {
	n := 0
	for _, d := range b.items {
		if d.Severity == Error {
			n++
		}
	}
	return n
}

// Warnings returns the count of Warning-severity diagnostics.
func (b *Bag) Warnings() int {
	n := 0
	for _, d := range b.items {
		if d.Severity == Warning {
			n++
		}
	}
	return n
}

// All returns every recorded diagnostic in recording order.
func (b *Bag) All() []Diagnostic { return b.items }

// Merge appends another Bag's diagnostics into this one, used to fold a
// per-function checkContext pass's findings into the whole-program Bag.
func (b *Bag) Merge(other *Bag) {
	b.items = append(b.items, other.items...)
}

// ICEError marks an internal-compiler-error: an invariant violation in
// lowering or codegen, which assume well-formed input and therefore abort
// rather than recover.
type ICEError struct {
	Message string
}

func (e *ICEError) Error() string { return "internal compiler error: " + e.Message }

// ICE raises an ICEError. Lowering/codegen call this on invariants that
// should be unreachable given sema already accepted the input.
func ICE(format string, args ...interface{}) {
	panic(&ICEError{Message: fmt.Sprintf(format, args...)})
}
