package ast

import (
	"fmt"
	"strings"
)

// Expr is the expression vocabulary the checker hands to the solver.
// The solver only ever inspects expressions at call sites: it matches
// literal arguments against expected types and records per-expression
// side tables keyed by these nodes.
type Expr interface {
	Positioner
	exprNode()
	ExprName() string
}

var _ Expr = (*Var)(nil)
var _ Expr = (*NumberLit)(nil)
var _ Expr = (*StringLit)(nil)
var _ Expr = (*BoolLit)(nil)
var _ Expr = (*NilLit)(nil)
var _ Expr = (*Call)(nil)
var _ Expr = (*Func)(nil)
var _ Expr = (*TableLit)(nil)
var _ Expr = (*Index)(nil)

type Var struct {
	Range
	Name string
}

func (*Var) exprNode()          {}
func (*Var) ExprName() string   { return "var" }
func (e *Var) String() string   { return e.Name }

type NumberLit struct {
	Range
	Value string
}

func (*NumberLit) exprNode()        {}
func (*NumberLit) ExprName() string { return "number" }

type StringLit struct {
	Range
	Value string
}

func (*StringLit) exprNode()        {}
func (*StringLit) ExprName() string { return "string" }

type BoolLit struct {
	Range
	Value bool
}

func (*BoolLit) exprNode()        {}
func (*BoolLit) ExprName() string { return "boolean" }

type NilLit struct {
	Range
}

func (*NilLit) exprNode()        {}
func (*NilLit) ExprName() string { return "nil" }

type Call struct {
	Range
	Func Expr
	Args []Expr
}

func (*Call) exprNode()        {}
func (*Call) ExprName() string { return "call" }

// Func is a function literal. Params with no annotation arrive untyped and
// are bound bidirectionally from the expected type at the call site.
type Func struct {
	Range
	Params   []*Var
	Variadic bool
}

func (*Func) exprNode()        {}
func (*Func) ExprName() string { return "function" }

// TableField is a single entry of a table literal. A nil Key means the
// field is positional (array part).
type TableField struct {
	Key   Expr
	Value Expr
}

type TableLit struct {
	Range
	Fields []TableField
}

func (*TableLit) exprNode()        {}
func (*TableLit) ExprName() string { return "table" }

// Index is subject.key or subject[key].
type Index struct {
	Range
	Subject Expr
	Key     Expr
}

func (*Index) exprNode()        {}
func (*Index) ExprName() string { return "index" }

// ExprString renders an expression for logs and test names.
func ExprString(e Expr) string {
	switch e := e.(type) {
	case *Var:
		return e.Name
	case *NumberLit:
		return e.Value
	case *StringLit:
		return fmt.Sprintf("%q", e.Value)
	case *BoolLit:
		return fmt.Sprint(e.Value)
	case *NilLit:
		return "nil"
	case *Call:
		args := make([]string, 0, len(e.Args))
		for _, a := range e.Args {
			args = append(args, ExprString(a))
		}
		return ExprString(e.Func) + "(" + strings.Join(args, ", ") + ")"
	case *Func:
		params := make([]string, 0, len(e.Params))
		for _, p := range e.Params {
			params = append(params, p.Name)
		}
		return "function(" + strings.Join(params, ", ") + ")"
	case *TableLit:
		return fmt.Sprintf("{... %d fields}", len(e.Fields))
	case *Index:
		return ExprString(e.Subject) + "[" + ExprString(e.Key) + "]"
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("<%s>", e.ExprName())
	}
}
