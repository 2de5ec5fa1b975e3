package sql

import (
	"strings"

	"github.com/syssam/modelq/dialect"
)

// ColumnBuilder builds one column definition of a CREATE or ALTER TABLE
// statement.
type ColumnBuilder struct {
	name string
	typ  []string
}

// Column returns a column definition builder for the given name.
func Column(name string) *ColumnBuilder {
	return &ColumnBuilder{name: name}
}

// Type sets the DDL clause tokens of the column, in order.
func (c *ColumnBuilder) Type(tokens ...string) *ColumnBuilder {
	c.typ = tokens
	return c
}

// Name returns the column name.
func (c *ColumnBuilder) Name() string { return c.name }

func (c *ColumnBuilder) writeTo(b *Builder) {
	b.Ident(c.name)
	if len(c.typ) > 0 {
		b.Pad().WriteString(strings.Join(c.typ, " "))
	}
}

// TableBuilder builds a CREATE TABLE statement.
type TableBuilder struct {
	dialect     string
	name        string
	schema      string
	ifNotExists bool
	columns     []*ColumnBuilder
}

// CreateTable returns a Postgres CREATE TABLE builder for the given table.
func CreateTable(name string) *TableBuilder {
	return &TableBuilder{dialect: dialect.Postgres, name: name}
}

// Schema sets the schema qualifier of the table.
func (t *TableBuilder) Schema(name string) *TableBuilder {
	t.schema = name
	return t
}

// IfNotExists makes the statement idempotent.
func (t *TableBuilder) IfNotExists() *TableBuilder {
	t.ifNotExists = true
	return t
}

// Columns appends column definitions.
func (t *TableBuilder) Columns(columns ...*ColumnBuilder) *TableBuilder {
	t.columns = append(t.columns, columns...)
	return t
}

// Query returns the rendered CREATE TABLE statement and its arguments.
func (t *TableBuilder) Query() (string, []any) {
	b := NewBuilder(t.dialect)
	b.WriteString("CREATE TABLE ")
	if t.ifNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	if t.schema != "" {
		b.Ident(t.schema).WriteByte('.')
	}
	b.Ident(t.name)
	b.Pad().Wrap(func(b *Builder) {
		for i, c := range t.columns {
			if i > 0 {
				b.Comma()
			}
			c.writeTo(b)
		}
	})
	return b.String(), b.args
}

// AlterBuilder builds an ALTER TABLE statement with any combination of
// ADD COLUMN, DROP COLUMN and ALTER COLUMN TYPE clauses.
type AlterBuilder struct {
	dialect string
	name    string
	schema  string
	clauses []func(*Builder)
}

// AlterTable returns a Postgres ALTER TABLE builder for the given table.
func AlterTable(name string) *AlterBuilder {
	return &AlterBuilder{dialect: dialect.Postgres, name: name}
}

// Schema sets the schema qualifier of the table.
func (a *AlterBuilder) Schema(name string) *AlterBuilder {
	a.schema = name
	return a
}

// AddColumn appends an ADD COLUMN clause.
func (a *AlterBuilder) AddColumn(c *ColumnBuilder) *AlterBuilder {
	a.clauses = append(a.clauses, func(b *Builder) {
		b.WriteString("ADD COLUMN ")
		c.writeTo(b)
	})
	return a
}

// DropColumn appends a DROP COLUMN clause.
func (a *AlterBuilder) DropColumn(name string) *AlterBuilder {
	a.clauses = append(a.clauses, func(b *Builder) {
		b.WriteString("DROP COLUMN ").Ident(name)
	})
	return a
}

// ModifyType appends an ALTER COLUMN ... TYPE clause with the given type
// tokens.
func (a *AlterBuilder) ModifyType(name string, tokens ...string) *AlterBuilder {
	a.clauses = append(a.clauses, func(b *Builder) {
		b.WriteString("ALTER COLUMN ").Ident(name)
		b.WriteString(" TYPE ").WriteString(strings.Join(tokens, " "))
	})
	return a
}

// Empty reports whether the builder carries no clauses.
func (a *AlterBuilder) Empty() bool { return len(a.clauses) == 0 }

// Query returns the rendered ALTER TABLE statement and its arguments.
func (a *AlterBuilder) Query() (string, []any) {
	b := NewBuilder(a.dialect)
	b.WriteString("ALTER TABLE ")
	if a.schema != "" {
		b.Ident(a.schema).WriteByte('.')
	}
	b.Ident(a.name)
	b.Pad()
	for i, clause := range a.clauses {
		if i > 0 {
			b.Comma()
		}
		clause(b)
	}
	return b.String(), b.args
}

// DropBuilder builds a DROP TABLE statement.
type DropBuilder struct {
	dialect  string
	name     string
	schema   string
	ifExists bool
	cascade  bool
}

// DropTable returns a Postgres DROP TABLE builder for the given table.
func DropTable(name string) *DropBuilder {
	return &DropBuilder{dialect: dialect.Postgres, name: name}
}

// Schema sets the schema qualifier of the table.
func (d *DropBuilder) Schema(name string) *DropBuilder {
	d.schema = name
	return d
}

// IfExists makes the statement idempotent.
func (d *DropBuilder) IfExists() *DropBuilder {
	d.ifExists = true
	return d
}

// Cascade drops dependent objects as well.
func (d *DropBuilder) Cascade() *DropBuilder {
	d.cascade = true
	return d
}

// Query returns the rendered DROP TABLE statement and its arguments.
func (d *DropBuilder) Query() (string, []any) {
	b := NewBuilder(d.dialect)
	b.WriteString("DROP TABLE ")
	if d.ifExists {
		b.WriteString("IF EXISTS ")
	}
	if d.schema != "" {
		b.Ident(d.schema).WriteByte('.')
	}
	b.Ident(d.name)
	if d.cascade {
		b.WriteString(" CASCADE")
	}
	return b.String(), b.args
}

// SchemaBuilder builds a CREATE SCHEMA statement.
type SchemaBuilder struct {
	dialect     string
	name        string
	ifNotExists bool
}

// CreateSchema returns a Postgres CREATE SCHEMA builder.
func CreateSchema(name string) *SchemaBuilder {
	return &SchemaBuilder{dialect: dialect.Postgres, name: name}
}

// IfNotExists makes the statement idempotent.
func (s *SchemaBuilder) IfNotExists() *SchemaBuilder {
	s.ifNotExists = true
	return s
}

// Query returns the rendered CREATE SCHEMA statement and its arguments.
func (s *SchemaBuilder) Query() (string, []any) {
	b := NewBuilder(s.dialect)
	b.WriteString("CREATE SCHEMA ")
	if s.ifNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	b.Ident(s.name)
	return b.String(), b.args
}
