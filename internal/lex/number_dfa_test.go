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

package lex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// feed steps the DFA through every byte of s from a fresh Restart,
// stopping early (and reporting false) the moment Step refuses a byte
// per Step's contract: the move is a no-op and the caller must stop.
func feed(d *DFA, s string) bool {
	d.Restart()
	for i := 0; i < len(s); i++ {
		if !d.Step(s[i]) {
			return false
		}
	}
	return true
}

func TestNumberDFADecimalInteger(t *testing.T) {
	d := NewNumberDFA()
	assert.True(t, feed(d, "12345"))
	assert.Equal(t, LitDec, d.AcceptingToken())
}

func TestNumberDFAHexLiteral(t *testing.T) {
	d := NewNumberDFA()
	assert.True(t, feed(d, "0x1A2b"))
	assert.Equal(t, LitHex, d.AcceptingToken())
}

func TestNumberDFAOctalLiteral(t *testing.T) {
	d := NewNumberDFA()
	assert.True(t, feed(d, "0755"))
	assert.Equal(t, LitOct, d.AcceptingToken())
}

func TestNumberDFABinaryLiteral(t *testing.T) {
	d := NewNumberDFA()
	assert.True(t, feed(d, "0b1011"))
	assert.Equal(t, LitBin, d.AcceptingToken())
}

func TestNumberDFADecimalDoubleAndFloat(t *testing.T) {
	d := NewNumberDFA()
	assert.True(t, feed(d, "3.14"))
	assert.Equal(t, LitDouble, d.AcceptingToken())

	d2 := NewNumberDFA()
	assert.True(t, feed(d2, "3.14f"))
	assert.Equal(t, LitFloat, d2.AcceptingToken())
}

func TestNumberDFAHexFloat(t *testing.T) {
	d := NewNumberDFA()
	assert.True(t, feed(d, "0x1.8p3"))
	assert.Equal(t, LitDouble, d.AcceptingToken())

	d2 := NewNumberDFA()
	assert.True(t, feed(d2, "0x1.8p3f"))
	assert.Equal(t, LitFloat, d2.AcceptingToken())
}

func TestNumberDFAIntegerSuffixes(t *testing.T) {
	for _, s := range []string{"1u", "1U", "1l", "1L", "1ul", "1ll", "1ull"} {
		d := NewNumberDFA()
		assert.True(t, feed(d, s), "suffix form %q should be accepted", s)
		assert.Equal(t, LitDec, d.AcceptingToken(), "suffix form %q", s)
	}
}

// Boundary behaviour: "0" alone is an accepting NumericDec
// state.
func TestNumberDFAZeroAlone(t *testing.T) {
	d := NewNumberDFA()
	assert.True(t, feed(d, "0"))
	assert.Equal(t, LitDec, d.AcceptingToken())
}

// Boundary behaviour: "0x" alone never reaches an accepting
// state.
func TestNumberDFAHexPrefixAloneIsNonAccepting(t *testing.T) {
	d := NewNumberDFA()
	feed(d, "0x")
	assert.Equal(t, TkError, d.AcceptingToken())
}

// Boundary behaviour: "0b102" -- the '2' is an invalid
// binary digit, landing in the non-accepting InvalidBinary state.
func TestNumberDFAInvalidBinaryDigitIsNonAccepting(t *testing.T) {
	d := NewNumberDFA()
	feed(d, "0b102")
	assert.Equal(t, TkError, d.AcceptingToken())
}

func TestNumberDFAInvalidOctalDigitIsNonAccepting(t *testing.T) {
	d := NewNumberDFA()
	feed(d, "08")
	assert.Equal(t, TkError, d.AcceptingToken())
}

// Step refuses to advance past a byte that has no transition out of the
// current state.
func TestStepReturnsFalseOnErrorTransition(t *testing.T) {
	d := NewNumberDFA()
	d.Restart()
	assert.True(t, d.Step('1'))
	assert.False(t, d.Step('$'))
}

func TestDFARestartReturnsToStartState(t *testing.T) {
	d := NewNumberDFA()
	d.Step('1')
	d.Step('2')
	before := d.State()
	d.Restart()
	after := d.State()
	assert.NotEqual(t, before, after)
	assert.Equal(t, TkError, d.AcceptingToken())
}
