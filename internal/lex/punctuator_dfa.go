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

// punctuatorSpellings lists every recognized C punctuator,
// including every compound-assignment form. Built into a trie so the
// generic DFA engine drives maximal-munch recognition the same way
// NumberDFA and StringDFA do, rather than a hand-written switch per
// punctuator.
var punctuatorSpellings = []struct {
	text string
	kind Kind
}{
	{"[", PLBracket}, {"]", PRBracket}, {"(", PLParen}, {")", PRParen},
	{"{", PLBrace}, {"}", PRBrace},
	{"...", PEllipsis}, {".", PDot},
	{"->", PArrow}, {"--", PDecr}, {"-=", PSubAssign}, {"-", PMinus},
	{"++", PIncr}, {"+=", PAddAssign}, {"+", PPlus},
	{"&&", PAndAnd}, {"&=", PAndAssign}, {"&", PAmp},
	{"*=", PMulAssign}, {"*", PStar},
	{"~", PTilde},
	{"!=", PNe}, {"!", PBang},
	{"/=", PDivAssign}, {"/", PSlash},
	{"%=", PModAssign}, {"%", PPercent},
	{"<<=", PShlAssign}, {"<<", PShl}, {"<=", PLe}, {"<", PLt},
	{">>=", PShrAssign}, {">>", PShr}, {">=", PGe}, {">", PGt},
	{"==", PEq}, {"=", PAssign},
	{"^=", PXorAssign}, {"^", PCaret},
	{"||", POrOr}, {"|=", POrAssign}, {"|", PPipe},
	{"&&", PAndAnd},
	{"?", PQuestion},
	{":", PColon},
	{";", PSemi},
	{",", PComma},
}

type punctTrie struct {
	next     []map[byte]State
	acceptOK []bool
	accept   []Kind
}

func buildPunctuatorTrie() *punctTrie {
	t := &punctTrie{
		next:     []map[byte]State{{}}, // state 0 = unused (error); state 1 = root
		acceptOK: []bool{false},
		accept:   []Kind{TkError},
	}
	// push the real root as state index 1
	t.next = append(t.next, map[byte]State{})
	t.acceptOK = append(t.acceptOK, false)
	t.accept = append(t.accept, TkError)
	const root State = 1

	newState := func() State {
		t.next = append(t.next, map[byte]State{})
		t.acceptOK = append(t.acceptOK, false)
		t.accept = append(t.accept, TkError)
		return State(len(t.next) - 1)
	}

	for _, p := range punctuatorSpellings {
		cur := root
		for i := 0; i < len(p.text); i++ {
			b := p.text[i]
			nxt, ok := t.next[cur][b]
			if !ok {
				nxt = newState()
				t.next[cur][b] = nxt
			}
			cur = nxt
		}
		t.acceptOK[cur] = true
		t.accept[cur] = p.kind
	}
	return t
}

var sharedPunctuatorTrie = buildPunctuatorTrie()

// NewPunctuatorDFA builds the maximal-munch DFA over the C punctuator set.
// "Start" is state 1 (the trie root); StateError (0) is reserved, matching
// the framework's convention, so the trie's own nodes are numbered from 1.
func NewPunctuatorDFA() *DFA {
	trie := sharedPunctuatorTrie
	transition := func(s State, b byte) State {
		if int(s) >= len(trie.next) {
			return StateError
		}
		if nxt, ok := trie.next[s][b]; ok {
			return nxt
		}
		return StateError
	}
	accept := func(s State) (Kind, bool) {
		if int(s) >= len(trie.acceptOK) {
			return TkError, false
		}
		if trie.acceptOK[s] {
			return trie.accept[s], true
		}
		return TkError, false
	}
	return NewDFA(State(1), transition, accept)
}
