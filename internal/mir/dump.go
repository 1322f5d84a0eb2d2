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

package mir

import (
	"fmt"
	"io"
	"strings"
)

// Dump prints mod as an indented tree, one node per line, mirroring
// parse.Dump's style for the AST. The CLI's -no-print flag suppresses
// this.
func Dump(w io.Writer, mod *Module) {
	for _, g := range mod.Globals {
		fmt.Fprintf(w, "Global{%s}\n", g.Name)
		if g.Init != nil {
			dumpExpr(w, g.Init, 1)
		}
	}
	for _, fn := range mod.Funcs {
		fmt.Fprintf(w, "Func{%s}\n", fn.Name)
		dumpPrims(w, fn.Body, 1)
	}
}

func indent(depth int) string { return strings.Repeat("..", depth) }

func dumpPrims(w io.Writer, prims []Primitive, depth int) {
	for _, p := range prims {
		dumpPrim(w, p, depth)
	}
}

func dumpPrim(w io.Writer, p Primitive, depth int) {
	switch n := p.(type) {
	case *If:
		fmt.Fprintln(w, indent(depth)+"If")
		dumpExpr(w, n.Cond, depth+1)
		dumpPrims(w, n.Then, depth+1)
		dumpPrims(w, n.Else, depth+1)
	case *Loop:
		fmt.Fprintln(w, indent(depth)+"Loop")
		dumpPrims(w, n.CondPre, depth+1)
		if n.Cond != nil {
			dumpExpr(w, n.Cond, depth+1)
		}
		dumpPrims(w, n.Body, depth+1)
		dumpPrims(w, n.Post, depth+1)
	case *Return:
		fmt.Fprintln(w, indent(depth)+"Return")
		if n.Value != nil {
			dumpExpr(w, n.Value, depth+1)
		}
	case *Jump:
		fmt.Fprintln(w, indent(depth)+"Jump{"+n.Label+"}")
	case *ExprStmt:
		fmt.Fprintln(w, indent(depth)+"ExprStmt")
		dumpExpr(w, n.X, depth+1)
	case *Scope:
		fmt.Fprintln(w, indent(depth)+"Scope")
		dumpPrims(w, n.Body, depth+1)
	case *LabelStmt:
		fmt.Fprintln(w, indent(depth)+"Label{"+n.Name+"}")
	case *StackAlloc:
		fmt.Fprintf(w, "%sStackAlloc{%s,size=%d}\n", indent(depth), n.Name, n.Size)
	case *StackFree:
		fmt.Fprintln(w, indent(depth)+"StackFree{"+n.Name+"}")
	}
}

func dumpExpr(w io.Writer, e Expr, depth int) {
	if e == nil {
		return
	}
	switch x := e.(type) {
	case *AddressOf:
		fmt.Fprintln(w, indent(depth)+"AddressOf{"+x.Leaf+"}")
	case *LoadAddress:
		fmt.Fprintln(w, indent(depth)+"LoadAddress")
		dumpExpr(w, x.Base, depth+1)
	case *Load:
		fmt.Fprintf(w, "%sLoad{size=%d}\n", indent(depth), x.Size)
		dumpExpr(w, x.Base, depth+1)
	case *Store:
		fmt.Fprintf(w, "%sStore{size=%d}\n", indent(depth), x.Size)
		dumpExpr(w, x.Left, depth+1)
		dumpExpr(w, x.Right, depth+1)
	case *Index:
		fmt.Fprintln(w, indent(depth)+"Index")
		dumpExpr(w, x.Base, depth+1)
		dumpExpr(w, x.IndexExpr, depth+1)
	case *Leaf:
		fmt.Fprintln(w, indent(depth)+"Leaf{"+x.Name+"}")
	case *Immediate:
		fmt.Fprintln(w, indent(depth)+"Immediate{"+x.Text+"}")
	case *Binary:
		fmt.Fprintf(w, "%sBinary{%d}\n", indent(depth), x.Op)
		dumpExpr(w, x.Left, depth+1)
		dumpExpr(w, x.Right, depth+1)
	case *Unary:
		fmt.Fprintf(w, "%sUnary{%d}\n", indent(depth), x.Op)
		dumpExpr(w, x.Inner, depth+1)
	case *Cast:
		fmt.Fprintln(w, indent(depth)+"Cast")
		dumpExpr(w, x.Inner, depth+1)
	case *Call:
		fmt.Fprintln(w, indent(depth)+"Call{"+x.Fn+"}")
		for _, a := range x.Args {
			dumpExpr(w, a, depth+1)
		}
	}
}
