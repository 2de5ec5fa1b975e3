package sql

import (
	"github.com/syssam/modelq/dialect"
)

// InsertBuilder builds an INSERT statement.
type InsertBuilder struct {
	dialect   string
	table     string
	columns   []string
	values    [][]any
	defaults  bool
	returning []string
}

// Insert returns a Postgres insert builder for the given table.
func Insert(table string) *InsertBuilder {
	return &InsertBuilder{dialect: dialect.Postgres, table: table}
}

// Columns sets the insert column list.
func (i *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	i.columns = columns
	return i
}

// Values appends one row of values.
func (i *InsertBuilder) Values(values ...any) *InsertBuilder {
	i.values = append(i.values, values)
	return i
}

// Default renders DEFAULT VALUES instead of a column/value list.
func (i *InsertBuilder) Default() *InsertBuilder {
	i.defaults = true
	return i
}

// Returning appends a RETURNING clause.
func (i *InsertBuilder) Returning(columns ...string) *InsertBuilder {
	i.returning = append(i.returning, columns...)
	return i
}

// Query returns the rendered INSERT statement and its arguments.
func (i *InsertBuilder) Query() (string, []any) {
	b := NewBuilder(i.dialect)
	b.WriteString("INSERT INTO ").Ident(i.table)
	switch {
	case i.defaults && len(i.columns) == 0:
		b.WriteString(" DEFAULT VALUES")
	default:
		b.WriteByte(' ').Wrap(func(b *Builder) {
			b.IdentComma(i.columns...)
		})
		b.WriteString(" VALUES ")
		for n, row := range i.values {
			if n > 0 {
				b.Comma()
			}
			b.Wrap(func(b *Builder) {
				b.Args(row...)
			})
		}
	}
	joinReturning(b, i.returning)
	return b.String(), b.args
}

// UpdateBuilder builds an UPDATE statement.
type UpdateBuilder struct {
	dialect   string
	table     string
	cte       *WithBuilder
	assigns   []func(*Builder)
	where     *Predicate
	returning []string
}

// Update returns a Postgres update builder for the given table.
func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{dialect: dialect.Postgres, table: table}
}

// With attaches a common table expression to the statement.
func (u *UpdateBuilder) With(w *WithBuilder) *UpdateBuilder {
	u.cte = w
	return u
}

// Set assigns the given value to the column.
func (u *UpdateBuilder) Set(column string, v any) *UpdateBuilder {
	u.assigns = append(u.assigns, func(b *Builder) {
		b.Ident(column).WriteString(" = ").Arg(v)
	})
	return u
}

// Add atomically increments the column by n.
func (u *UpdateBuilder) Add(column string, n any) *UpdateBuilder {
	u.assigns = append(u.assigns, func(b *Builder) {
		b.Ident(column).WriteString(" = ").Ident(column).WriteString(" + ").Arg(n)
	})
	return u
}

// Sub atomically decrements the column by n.
func (u *UpdateBuilder) Sub(column string, n any) *UpdateBuilder {
	u.assigns = append(u.assigns, func(b *Builder) {
		b.Ident(column).WriteString(" = ").Ident(column).WriteString(" - ").Arg(n)
	})
	return u
}

// Empty reports whether the builder carries no assignments.
func (u *UpdateBuilder) Empty() bool { return len(u.assigns) == 0 }

// Where appends the given predicate conjunctively.
func (u *UpdateBuilder) Where(p *Predicate) *UpdateBuilder {
	if p == nil {
		return u
	}
	if u.where != nil {
		u.where = And(u.where, p)
	} else {
		u.where = p
	}
	return u
}

// Returning appends a RETURNING clause.
func (u *UpdateBuilder) Returning(columns ...string) *UpdateBuilder {
	u.returning = append(u.returning, columns...)
	return u
}

// Query returns the rendered UPDATE statement and its arguments.
func (u *UpdateBuilder) Query() (string, []any) {
	b := NewBuilder(u.dialect)
	if u.cte != nil {
		u.cte.writeTo(b)
	}
	b.WriteString("UPDATE ").Ident(u.table).WriteString(" SET ")
	for n, assign := range u.assigns {
		if n > 0 {
			b.Comma()
		}
		assign(b)
	}
	if u.where != nil {
		b.WriteString(" WHERE ")
		u.where.writeTo(b)
	}
	joinReturning(b, u.returning)
	return b.String(), b.args
}

// DeleteBuilder builds a DELETE statement.
type DeleteBuilder struct {
	dialect   string
	table     string
	cte       *WithBuilder
	where     *Predicate
	returning []string
}

// Delete returns a Postgres delete builder for the given table.
func Delete(table string) *DeleteBuilder {
	return &DeleteBuilder{dialect: dialect.Postgres, table: table}
}

// With attaches a common table expression to the statement.
func (d *DeleteBuilder) With(w *WithBuilder) *DeleteBuilder {
	d.cte = w
	return d
}

// Where appends the given predicate conjunctively.
func (d *DeleteBuilder) Where(p *Predicate) *DeleteBuilder {
	if p == nil {
		return d
	}
	if d.where != nil {
		d.where = And(d.where, p)
	} else {
		d.where = p
	}
	return d
}

// Returning appends a RETURNING clause.
func (d *DeleteBuilder) Returning(columns ...string) *DeleteBuilder {
	d.returning = append(d.returning, columns...)
	return d
}

// Query returns the rendered DELETE statement and its arguments.
func (d *DeleteBuilder) Query() (string, []any) {
	b := NewBuilder(d.dialect)
	if d.cte != nil {
		d.cte.writeTo(b)
	}
	b.WriteString("DELETE FROM ").Ident(d.table)
	if d.where != nil {
		b.WriteString(" WHERE ")
		d.where.writeTo(b)
	}
	joinReturning(b, d.returning)
	return b.String(), b.args
}

func joinReturning(b *Builder, columns []string) {
	if len(columns) == 0 {
		return
	}
	b.WriteString(" RETURNING ")
	b.IdentComma(columns...)
}
