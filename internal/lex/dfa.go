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

// State is one state of a DFA. StateError (zero value) is the designated
// error state: no DFA ever reports it as its current state after a Step,
// since Step refuses to move into it.
type State int

const StateError State = 0

// Transition is a state x byte -> state mapping. It is expressed as a Go
// function over a typed State enum rather than a literal two-dimensional
// byte array: for the state counts these automata have (a few dozen),
// a function is exactly as deterministic and far more legible/debuggable
// than a transition table would be, while still satisfying the "state x
// byte -> state mapping with a designated error state" contract.
type Transition func(State, byte) State

// Accept reports the token Kind a state accepts, or ok=false if the state
// is non-accepting.
type Accept func(State) (Kind, bool)

// DFA is the generic state-transition engine shared by NumberDFA,
// PunctuatorDFA and StringDFA.
type DFA struct {
	start      State
	transition Transition
	accept     Accept
	state      State
}

// NewDFA builds a DFA with the given start state, transition function and
// accepting-state predicate.
func NewDFA(start State, transition Transition, accept Accept) *DFA {
	d := &DFA{start: start, transition: transition, accept: accept}
	d.Restart()
	return d
}

// Restart returns the DFA to its start state.
func (d *DFA) Restart() { d.state = d.start }

// Step advances one byte. If the target would be the error state, Step is
// a no-op and returns false; the caller must stop feeding bytes.
func (d *DFA) Step(b byte) bool {
	next := d.transition(d.state, b)
	if next == StateError {
		return false
	}
	d.state = next
	return true
}

// State returns the DFA's current state, mostly useful for tests.
func (d *DFA) State() State { return d.state }

// AcceptingToken returns the token kind corresponding to the current
// state, or TkError if the state is non-accepting.
func (d *DFA) AcceptingToken() Kind {
	if k, ok := d.accept(d.state); ok {
		return k
	}
	return TkError
}

func isDigit(b byte) bool    { return b >= '0' && b <= '9' }
func isHexDigit(b byte) bool { return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F') }
func isOctDigit(b byte) bool { return b >= '0' && b <= '7' }
func isBinDigit(b byte) bool { return b == '0' || b == '1' }
func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_'
}
func isIdentByte(b byte) bool { return isLetter(b) || isDigit(b) }
func isPrintable(b byte) bool { return b >= 0x20 && b < 0x7f }
