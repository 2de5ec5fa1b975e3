package field

import (
	"fmt"
	"strings"
)

// Expr is a node of the computed-expression tree. Expressions are declared
// once on a property descriptor and rendered to SQL text by the table
// layer, which resolves column and association references against the
// owning model.
type Expr interface {
	expr()
}

// ColumnExpr references a property of the owning model by name. It renders
// as the qualified, underscored column.
type ColumnExpr struct {
	Name string
}

// CountExpr counts the rows reachable through an association of the owning
// model. It renders as a correlated COUNT(*) subquery.
type CountExpr struct {
	Edge string
}

// LiteralExpr embeds a constant value in the rendered expression.
type LiteralExpr struct {
	Value any
}

// RawExpr embeds a verbatim SQL fragment.
type RawExpr struct {
	Fragment string
}

// ListExpr concatenates its parts in order.
type ListExpr []Expr

func (ColumnExpr) expr()  {}
func (CountExpr) expr()   {}
func (LiteralExpr) expr() {}
func (RawExpr) expr()     {}
func (ListExpr) expr()    {}

// Col references a property of the owning model.
func Col(name string) Expr { return ColumnExpr{Name: name} }

// CountRel counts rows reachable through the named association.
func CountRel(edge string) Expr { return CountExpr{Edge: edge} }

// Lit embeds a constant value.
func Lit(v any) Expr { return LiteralExpr{Value: v} }

// Raw embeds a verbatim SQL fragment.
func Raw(fragment string) Expr { return RawExpr{Fragment: fragment} }

// Concat joins the given expressions in order. A single expression is
// returned unwrapped.
func Concat(parts ...Expr) Expr {
	if len(parts) == 1 {
		return parts[0]
	}
	return ListExpr(parts)
}

// Literal renders a LiteralExpr value as inline SQL text. Strings are
// single-quoted with embedded quotes doubled.
func Literal(v any) string {
	switch v := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case nil:
		return "NULL"
	default:
		return fmt.Sprintf("%v", v)
	}
}
