// Package sql provides the low-level SQL builders the statement factory
// composes: SELECT with joins and CTEs, INSERT/UPDATE/DELETE with
// RETURNING, DDL statements, and the driver implementation over
// database/sql.
//
// Builders are cheap, single-use value factories: each call to Query
// renders the statement and its positional arguments from scratch, so a
// builder is never shared between goroutines mid-construction.
package sql

import (
	"strconv"
	"strings"

	"github.com/syssam/modelq/dialect"
)

// Querier wraps the Query method, implemented by all statement builders.
type Querier interface {
	// Query returns the query representation of the element
	// and its arguments (if any).
	Query() (string, []any)
}

// Builder is the base accumulator shared by all statement builders. It
// collects SQL text and positional arguments; placeholders are written as
// '?' during construction and rewritten to $n for Postgres on output.
type Builder struct {
	dialect string
	sb      strings.Builder
	args    []any
}

// NewBuilder returns a fresh builder for the given dialect.
func NewBuilder(dialect string) *Builder {
	return &Builder{dialect: dialect}
}

// Dialect returns the dialect of the builder.
func (b *Builder) Dialect() string { return b.dialect }

// WriteString appends raw SQL text.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// WriteByte appends a single byte of raw SQL text.
func (b *Builder) WriteByte(c byte) *Builder {
	b.sb.WriteByte(c)
	return b
}

// Comma appends ", ".
func (b *Builder) Comma() *Builder { return b.WriteString(", ") }

// Pad appends a single space.
func (b *Builder) Pad() *Builder { return b.WriteByte(' ') }

// Quote quotes the given identifier for the configured dialect.
func (b *Builder) Quote(ident string) string {
	if b.dialect == dialect.MySQL {
		return "`" + ident + "`"
	}
	return `"` + ident + `"`
}

// isRawExpr reports whether s is already a rendered expression rather
// than a plain identifier, and must not be re-quoted.
func isRawExpr(s string) bool {
	return s == "*" || strings.ContainsAny(s, `("' ?`)
}

// Ident appends the given identifier, quoting each dot-separated part.
// Strings that already look like expressions are appended verbatim.
func (b *Builder) Ident(s string) *Builder {
	if isRawExpr(s) {
		return b.WriteString(s)
	}
	parts := strings.Split(s, ".")
	for i, p := range parts {
		if i > 0 {
			b.WriteByte('.')
		}
		if p == "*" {
			b.WriteByte('*')
		} else {
			b.WriteString(b.Quote(p))
		}
	}
	return b
}

// IdentComma appends the given identifiers, comma-separated.
func (b *Builder) IdentComma(idents ...string) *Builder {
	for i, s := range idents {
		if i > 0 {
			b.Comma()
		}
		b.Ident(s)
	}
	return b
}

// Arg appends a placeholder and records its argument.
func (b *Builder) Arg(v any) *Builder {
	b.args = append(b.args, v)
	return b.WriteByte('?')
}

// Args appends placeholders for all given arguments, comma-separated.
func (b *Builder) Args(vs ...any) *Builder {
	for i, v := range vs {
		if i > 0 {
			b.Comma()
		}
		b.Arg(v)
	}
	return b
}

// Wrap wraps the output of f in parentheses.
func (b *Builder) Wrap(f func(*Builder)) *Builder {
	b.WriteByte('(')
	f(b)
	return b.WriteByte(')')
}

// String returns the accumulated SQL with dialect-specific placeholders.
func (b *Builder) String() string {
	query := b.sb.String()
	if b.dialect != dialect.Postgres {
		return query
	}
	// Rewrite '?' placeholders to $n, skipping quoted literals that may
	// appear in raw user fragments.
	var (
		out    strings.Builder
		n      int
		quoted bool
	)
	out.Grow(len(query) + len(b.args)*2)
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			quoted = !quoted
			out.WriteByte(c)
		case c == '?' && !quoted:
			n++
			out.WriteByte('$')
			out.WriteString(strconv.Itoa(n))
		default:
			out.WriteByte(c)
		}
	}
	return out.String()
}

// Predicate is a composable WHERE element.
type Predicate struct {
	fns []func(*Builder)
}

// P returns an empty predicate.
func P() *Predicate { return &Predicate{} }

func pred(f func(*Builder)) *Predicate {
	return &Predicate{fns: []func(*Builder){f}}
}

func (p *Predicate) append(f func(*Builder)) *Predicate {
	p.fns = append(p.fns, f)
	return p
}

// writeTo renders the predicate into the builder.
func (p *Predicate) writeTo(b *Builder) {
	for _, f := range p.fns {
		f(b)
	}
}

// Query renders the predicate standalone, defaulting to Postgres.
func (p *Predicate) Query() (string, []any) {
	b := NewBuilder(dialect.Postgres)
	p.writeTo(b)
	return b.String(), b.args
}

func binary(col, op string, v any) *Predicate {
	return pred(func(b *Builder) {
		b.Ident(col).WriteString(" " + op + " ").Arg(v)
	})
}

// EQ returns a column = value predicate.
func EQ(col string, v any) *Predicate { return binary(col, "=", v) }

// NEQ returns a column <> value predicate.
func NEQ(col string, v any) *Predicate { return binary(col, "<>", v) }

// GT returns a column > value predicate.
func GT(col string, v any) *Predicate { return binary(col, ">", v) }

// GTE returns a column >= value predicate.
func GTE(col string, v any) *Predicate { return binary(col, ">=", v) }

// LT returns a column < value predicate.
func LT(col string, v any) *Predicate { return binary(col, "<", v) }

// LTE returns a column <= value predicate.
func LTE(col string, v any) *Predicate { return binary(col, "<=", v) }

// Like returns a LIKE predicate.
func Like(col string, pattern any) *Predicate { return binary(col, "LIKE", pattern) }

// ILike returns a case-insensitive LIKE predicate (Postgres ILIKE).
func ILike(col string, pattern any) *Predicate { return binary(col, "ILIKE", pattern) }

// Regexp returns a POSIX regular-expression predicate (Postgres ~).
func Regexp(col string, pattern any) *Predicate { return binary(col, "~", pattern) }

// IsNull returns a column IS NULL predicate.
func IsNull(col string) *Predicate {
	return pred(func(b *Builder) {
		b.Ident(col).WriteString(" IS NULL")
	})
}

// NotNull returns a column IS NOT NULL predicate.
func NotNull(col string) *Predicate {
	return pred(func(b *Builder) {
		b.Ident(col).WriteString(" IS NOT NULL")
	})
}

// In returns a column IN (values...) predicate. An empty list renders as
// FALSE so the predicate matches no rows.
func In(col string, vs ...any) *Predicate {
	return pred(func(b *Builder) {
		if len(vs) == 0 {
			b.WriteString("FALSE")
			return
		}
		b.Ident(col).WriteString(" IN ").Wrap(func(b *Builder) {
			b.Args(vs...)
		})
	})
}

// NotIn returns a column NOT IN (values...) predicate. An empty list
// renders as TRUE.
func NotIn(col string, vs ...any) *Predicate {
	return pred(func(b *Builder) {
		if len(vs) == 0 {
			b.WriteString("TRUE")
			return
		}
		b.Ident(col).WriteString(" NOT IN ").Wrap(func(b *Builder) {
			b.Args(vs...)
		})
	})
}

// InSelect returns a column IN (subquery) predicate.
func InSelect(col string, s *Selector) *Predicate {
	return pred(func(b *Builder) {
		b.Ident(col).WriteString(" IN ").Wrap(func(b *Builder) {
			s.writeTo(b)
		})
	})
}

// Exists returns an EXISTS (subquery) predicate.
func Exists(s *Selector) *Predicate {
	return pred(func(b *Builder) {
		b.WriteString("EXISTS ").Wrap(func(b *Builder) {
			s.writeTo(b)
		})
	})
}

// NotExists returns a NOT EXISTS (subquery) predicate.
func NotExists(s *Selector) *Predicate {
	return pred(func(b *Builder) {
		b.WriteString("NOT EXISTS ").Wrap(func(b *Builder) {
			s.writeTo(b)
		})
	})
}

// ColumnsEQ returns a column = column predicate, used for join and
// correlation conditions.
func ColumnsEQ(col1, col2 string) *Predicate {
	return pred(func(b *Builder) {
		b.Ident(col1).WriteString(" = ").Ident(col2)
	})
}

// ExprP returns a predicate from a raw SQL fragment with '?' placeholders.
func ExprP(expr string, args ...any) *Predicate {
	return pred(func(b *Builder) {
		for i := 0; i < len(expr); i++ {
			if expr[i] == '?' {
				if len(args) == 0 {
					b.WriteByte('?')
					continue
				}
				b.Arg(args[0])
				args = args[1:]
				continue
			}
			b.WriteByte(expr[i])
		}
	})
}

// And combines the given predicates conjunctively.
func And(ps ...*Predicate) *Predicate {
	if len(ps) == 1 {
		return ps[0]
	}
	return pred(func(b *Builder) {
		b.Wrap(func(b *Builder) {
			for i, p := range ps {
				if i > 0 {
					b.WriteString(" AND ")
				}
				p.writeTo(b)
			}
		})
	})
}

// Or combines the given predicates disjunctively.
func Or(ps ...*Predicate) *Predicate {
	if len(ps) == 1 {
		return ps[0]
	}
	return pred(func(b *Builder) {
		b.Wrap(func(b *Builder) {
			for i, p := range ps {
				if i > 0 {
					b.WriteString(" OR ")
				}
				p.writeTo(b)
			}
		})
	})
}

// Not negates the given predicate.
func Not(p *Predicate) *Predicate {
	return pred(func(b *Builder) {
		b.WriteString("NOT ")
		b.Wrap(func(b *Builder) {
			p.writeTo(b)
		})
	})
}

// SelectTable is a table reference in a FROM or JOIN clause.
type SelectTable struct {
	name   string
	schema string
	as     string
}

// Table returns a new table reference.
func Table(name string) *SelectTable {
	return &SelectTable{name: name}
}

// Schema sets the schema qualifier of the table.
func (t *SelectTable) Schema(name string) *SelectTable {
	t.schema = name
	return t
}

// As sets the table alias.
func (t *SelectTable) As(alias string) *SelectTable {
	t.as = alias
	return t
}

// Name returns the table name.
func (t *SelectTable) Name() string { return t.name }

// Alias returns the table alias, or the table name if none was set.
func (t *SelectTable) Alias() string {
	if t.as != "" {
		return t.as
	}
	return t.name
}

// C returns the given column qualified by the table's alias.
func (t *SelectTable) C(column string) string {
	return t.Alias() + "." + column
}

// Columns returns the given columns qualified by the table's alias.
func (t *SelectTable) Columns(columns ...string) []string {
	qualified := make([]string, len(columns))
	for i, c := range columns {
		qualified[i] = t.C(c)
	}
	return qualified
}

func (t *SelectTable) writeTo(b *Builder) {
	if t.schema != "" {
		b.Ident(t.schema).WriteByte('.')
	}
	b.Ident(t.name)
	if t.as != "" {
		b.WriteString(" AS ").Ident(t.as)
	}
}

// WithBuilder is a named common table expression attached to a statement.
type WithBuilder struct {
	name string
	s    *Selector
}

// With returns a new common table expression with the given name.
func With(name string) *WithBuilder {
	return &WithBuilder{name: name}
}

// As sets the inner query of the expression.
func (w *WithBuilder) As(s *Selector) *WithBuilder {
	w.s = s
	return w
}

// Name returns the name of the expression.
func (w *WithBuilder) Name() string { return w.name }

func (w *WithBuilder) writeTo(b *Builder) {
	b.WriteString("WITH ").Ident(w.name).WriteString(" AS ")
	b.Wrap(func(b *Builder) {
		w.s.writeTo(b)
	})
	b.Pad()
}

type join struct {
	kind  string // "JOIN", "LEFT JOIN", ...
	table *SelectTable
	on    *Predicate
}

// Selector builds a SELECT statement.
type Selector struct {
	dialect  string
	cte      *WithBuilder
	distinct bool
	columns  []string
	from     *SelectTable
	joins    []*join
	where    *Predicate
	groupBy  []string
	having   *Predicate
	orderBy  []string
	limit    *int
	offset   *int
}

// Select returns a Postgres selector for the given columns.
func Select(columns ...string) *Selector {
	return (&Selector{dialect: dialect.Postgres}).Select(columns...)
}

// Select replaces the column list of the selector.
func (s *Selector) Select(columns ...string) *Selector {
	s.columns = columns
	return s
}

// AppendSelect appends columns to the selector's column list.
func (s *Selector) AppendSelect(columns ...string) *Selector {
	s.columns = append(s.columns, columns...)
	return s
}

// SelectedColumns returns the current column list.
func (s *Selector) SelectedColumns() []string { return s.columns }

// Distinct marks the selection as DISTINCT.
func (s *Selector) Distinct() *Selector {
	s.distinct = true
	return s
}

// From sets the source table of the selection.
func (s *Selector) From(t *SelectTable) *Selector {
	s.from = t
	return s
}

// C returns the given column qualified by the selector's FROM alias.
func (s *Selector) C(column string) string {
	if s.from == nil {
		return column
	}
	return s.from.C(column)
}

// With attaches a common table expression to the selection.
func (s *Selector) With(w *WithBuilder) *Selector {
	s.cte = w
	return s
}

// Where appends the given predicate conjunctively.
func (s *Selector) Where(p *Predicate) *Selector {
	if p == nil {
		return s
	}
	if s.where != nil {
		s.where = And(s.where, p)
	} else {
		s.where = p
	}
	return s
}

// Join appends an INNER JOIN on the given table.
func (s *Selector) Join(t *SelectTable) *Selector {
	return s.join("JOIN", t)
}

// LeftJoin appends a LEFT OUTER JOIN on the given table.
func (s *Selector) LeftJoin(t *SelectTable) *Selector {
	return s.join("LEFT JOIN", t)
}

func (s *Selector) join(kind string, t *SelectTable) *Selector {
	s.joins = append(s.joins, &join{kind: kind, table: t})
	return s
}

// On sets the join condition of the most recent join to col1 = col2.
func (s *Selector) On(col1, col2 string) *Selector {
	return s.OnP(ColumnsEQ(col1, col2))
}

// OnP sets the join condition of the most recent join. Repeated calls
// combine conjunctively.
func (s *Selector) OnP(p *Predicate) *Selector {
	if len(s.joins) == 0 {
		return s
	}
	j := s.joins[len(s.joins)-1]
	if j.on != nil {
		j.on = And(j.on, p)
	} else {
		j.on = p
	}
	return s
}

// GroupBy sets the grouping columns.
func (s *Selector) GroupBy(columns ...string) *Selector {
	s.groupBy = append(s.groupBy, columns...)
	return s
}

// Having sets the HAVING predicate.
func (s *Selector) Having(p *Predicate) *Selector {
	s.having = p
	return s
}

// OrderBy appends ordering terms. A term may be a plain column, a
// qualified column, or a rendered expression like `"users"."id" ASC`.
func (s *Selector) OrderBy(columns ...string) *Selector {
	s.orderBy = append(s.orderBy, columns...)
	return s
}

// Limit sets the LIMIT clause.
func (s *Selector) Limit(n int) *Selector {
	s.limit = &n
	return s
}

// Offset sets the OFFSET clause.
func (s *Selector) Offset(n int) *Selector {
	s.offset = &n
	return s
}

func (s *Selector) writeTo(b *Builder) {
	if s.cte != nil {
		s.cte.writeTo(b)
	}
	b.WriteString("SELECT ")
	if s.distinct {
		b.WriteString("DISTINCT ")
	}
	if len(s.columns) == 0 {
		b.WriteByte('*')
	}
	for i, c := range s.columns {
		if i > 0 {
			b.Comma()
		}
		b.Ident(c)
	}
	if s.from != nil {
		b.WriteString(" FROM ")
		s.from.writeTo(b)
	}
	for _, j := range s.joins {
		b.Pad().WriteString(j.kind).Pad()
		j.table.writeTo(b)
		if j.on != nil {
			b.WriteString(" ON ")
			j.on.writeTo(b)
		}
	}
	if s.where != nil {
		b.WriteString(" WHERE ")
		s.where.writeTo(b)
	}
	if len(s.groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.IdentComma(s.groupBy...)
	}
	if s.having != nil {
		b.WriteString(" HAVING ")
		s.having.writeTo(b)
	}
	if len(s.orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.IdentComma(s.orderBy...)
	}
	if s.limit != nil {
		b.WriteString(" LIMIT ").WriteString(strconv.Itoa(*s.limit))
	}
	if s.offset != nil {
		b.WriteString(" OFFSET ").WriteString(strconv.Itoa(*s.offset))
	}
}

// Query returns the rendered SELECT statement and its arguments.
func (s *Selector) Query() (string, []any) {
	b := NewBuilder(s.dialect)
	s.writeTo(b)
	return b.String(), b.args
}

// DialectBuilder prefixes all root builders with the given dialect.
type DialectBuilder struct {
	dialect string
}

// Dialect returns a builder factory for the given dialect.
func Dialect(name string) *DialectBuilder {
	return &DialectBuilder{dialect: name}
}

// Select returns a selector for the configured dialect.
func (d *DialectBuilder) Select(columns ...string) *Selector {
	return (&Selector{dialect: d.dialect}).Select(columns...)
}

// Insert returns an insert builder for the configured dialect.
func (d *DialectBuilder) Insert(table string) *InsertBuilder {
	b := Insert(table)
	b.dialect = d.dialect
	return b
}

// Update returns an update builder for the configured dialect.
func (d *DialectBuilder) Update(table string) *UpdateBuilder {
	b := Update(table)
	b.dialect = d.dialect
	return b
}

// Delete returns a delete builder for the configured dialect.
func (d *DialectBuilder) Delete(table string) *DeleteBuilder {
	b := Delete(table)
	b.dialect = d.dialect
	return b
}

// CreateTable returns a DDL table builder for the configured dialect.
func (d *DialectBuilder) CreateTable(name string) *TableBuilder {
	b := CreateTable(name)
	b.dialect = d.dialect
	return b
}

// AlterTable returns a DDL alter builder for the configured dialect.
func (d *DialectBuilder) AlterTable(name string) *AlterBuilder {
	b := AlterTable(name)
	b.dialect = d.dialect
	return b
}

// DropTable returns a DDL drop builder for the configured dialect.
func (d *DialectBuilder) DropTable(name string) *DropBuilder {
	b := DropTable(name)
	b.dialect = d.dialect
	return b
}

// CreateSchema returns a DDL schema builder for the configured dialect.
func (d *DialectBuilder) CreateSchema(name string) *SchemaBuilder {
	b := CreateSchema(name)
	b.dialect = d.dialect
	return b
}
