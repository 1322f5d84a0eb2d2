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

import "rv64cc/internal/source"

// Kind discriminates a Token. Tokens are value objects and are never
// mutated after Tokenizer.Next emits them; a Token's Splice remains valid for
// as long as the underlying source.Buffer does.
type Kind int

const (
	TkError Kind = iota
	TkEOF
	TkIdent

	// Keywords. Not all are semantically implemented; the rest are still
	// recognized lexically and rejected later with a feature-not-supported
	// diagnostic.
	KwAuto
	KwBreak
	KwCase
	KwChar
	KwConst
	KwContinue
	KwDefault
	KwDo
	KwDouble
	KwElse
	KwEnum
	KwExtern
	KwFloat
	KwFor
	KwGoto
	KwIf
	KwInline
	KwInt
	KwLong
	KwRegister
	KwRestrict
	KwReturn
	KwShort
	KwSigned
	KwSizeof
	KwStatic
	KwStruct
	KwSwitch
	KwTypedef
	KwTypeof
	KwTypeofUnqual
	KwUnion
	KwUnsigned
	KwVoid
	KwVolatile
	KwWhile

	// Literal kinds.
	LitHex
	LitBin
	LitDec
	LitOct
	LitFloat
	LitDouble
	LitChar
	LitString

	// Punctuators.
	PLBracket  // [
	PRBracket  // ]
	PLParen    // (
	PRParen    // )
	PLBrace    // {
	PRBrace    // }
	PDot       // .
	PArrow     // ->
	PIncr      // ++
	PDecr      // --
	PAmp       // &
	PStar      // *
	PPlus      // +
	PMinus     // -
	PTilde     // ~
	PBang      // !
	PSlash     // /
	PPercent   // %
	PShl       // <<
	PShr       // >>
	PLt        // <
	PGt        // >
	PLe        // <=
	PGe        // >=
	PEq        // ==
	PNe        // !=
	PCaret     // ^
	PPipe      // |
	PAndAnd    // &&
	POrOr      // ||
	PQuestion  // ?
	PColon     // :
	PSemi      // ;
	PEllipsis  // ...
	PAssign    // =
	PMulAssign // *=
	PDivAssign // /=
	PModAssign // %=
	PAddAssign // +=
	PSubAssign // -=
	PShlAssign // <<=
	PShrAssign // >>=
	PAndAssign // &=
	PXorAssign // ^=
	POrAssign  // |=
	PComma     // ,
)

// Keywords maps identifier spelling to its keyword Kind. It is consulted
// only after the maximal identifier run has been scanned, upgrading an
// identifier token into a keyword kind post-hoc.
var Keywords = map[string]Kind{
	"auto": KwAuto, "break": KwBreak, "case": KwCase, "char": KwChar,
	"const": KwConst, "continue": KwContinue, "default": KwDefault, "do": KwDo,
	"double": KwDouble, "else": KwElse, "enum": KwEnum, "extern": KwExtern,
	"float": KwFloat, "for": KwFor, "goto": KwGoto, "if": KwIf,
	"inline": KwInline, "int": KwInt, "long": KwLong, "register": KwRegister,
	"restrict": KwRestrict, "return": KwReturn, "short": KwShort, "signed": KwSigned,
	"sizeof": KwSizeof, "static": KwStatic, "struct": KwStruct, "switch": KwSwitch,
	"typedef": KwTypedef, "typeof": KwTypeof, "typeof_unqual": KwTypeofUnqual,
	"union": KwUnion, "unsigned": KwUnsigned, "void": KwVoid, "volatile": KwVolatile,
	"while": KwWhile,
}

// UnsupportedKeywords names keywords that are recognized but not
// implemented; the parser rejects them with a feature-not-supported
// diagnostic when it meets one among a declaration's specifiers.
var UnsupportedKeywords = map[Kind]string{
	KwGoto: "goto", KwEnum: "enum (with explicit underlying type)",
	KwCase: "switch/case", KwSwitch: "switch/case", KwDefault: "switch/case",
	KwTypeof: "typeof", KwTypeofUnqual: "typeof_unqual",
}

// Token is an immutable value: a discriminant plus a zero-copy splice into
// the source buffer.
type Token struct {
	Kind  Kind
	Text  source.Splice
	Value TokenValue
}

// TokenValue carries the decoded payload for literal tokens (the numeric
// value for numeric/char literals, the unescaped bytes for a string
// literal). Non-literal tokens leave this at its zero value.
type TokenValue struct {
	Int    int64
	Float  float64
	Str    string
	IsChar bool
}

func (t Token) Line() int32   { return t.Text.Line }
func (t Token) Column() int32 { return t.Text.Column }
func (t Token) String() string {
	return t.Text.Text()
}

// IsLiteral reports whether a Kind is one of the eight literal kinds.
func (k Kind) IsLiteral() bool {
	switch k {
	case LitHex, LitBin, LitDec, LitOct, LitFloat, LitDouble, LitChar, LitString:
		return true
	}
	return false
}

// IsKeyword reports whether a Kind is one of the reserved keywords.
func (k Kind) IsKeyword() bool {
	return k >= KwAuto && k <= KwWhile
}
