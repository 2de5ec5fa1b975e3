// Package field provides fluent builders for declaring model properties.
//
// Each constructor maps a declared type keyword to the DDL clause tokens
// used when the owning table is created or altered:
//
//	field.Serial("id")              // "serial", "PRIMARY KEY"
//	field.Text("name")              // "text"
//	field.Decimal("price", 10, 2)   // "numeric(10,2)"
//	field.Timestamp("created_at")   // "timestamp"
//
// Properties that do not own a storage column are declared with Count,
// Computed or the Virtual modifier; they are skipped by INSERT/UPDATE and
// rendered as computed subselect expressions on read.
package field

import (
	"fmt"

	"github.com/go-openapi/inflect"
	"github.com/google/uuid"
)

// A Descriptor holds the resolved metadata of a single model property.
// Descriptors are produced by the builders in this package and consumed
// once by the model registry; they are not modified afterwards.
type Descriptor struct {
	Name      string   // property name as declared on the model
	Column    string   // storage column, defaults to the underscored name
	Clauses   []string // DDL type tokens, e.g. ["numeric(10,2)", "NOT NULL"]
	Virtual   bool     // no storage column of its own
	Aggregate bool     // computed over a group, excluded from RETURNING
	Hidden    bool     // suppressed from default column lists
	CountOf   string   // association whose rows this property counts
	Expr      Expr     // computed expression, rendered on read
	RawWhere  string   // verbatim WHERE template with one substitution slot
	Ref       string   // referenced model for foreign-key columns
	Default   func() any
	FullText  bool // full-text search vector target
}

// Field is implemented by all property builders.
type Field interface {
	Descriptor() *Descriptor
}

// Builder is the base property builder returned by the type constructors.
type Builder struct {
	desc *Descriptor
}

// Descriptor implements Field.
func (b *Builder) Descriptor() *Descriptor { return b.desc }

// Column overrides the storage column name.
func (b *Builder) Column(name string) *Builder {
	b.desc.Column = name
	return b
}

// NotNull appends a NOT NULL constraint token.
func (b *Builder) NotNull() *Builder {
	b.desc.Clauses = append(b.desc.Clauses, "NOT NULL")
	return b
}

// Unique appends a UNIQUE constraint token.
func (b *Builder) Unique() *Builder {
	b.desc.Clauses = append(b.desc.Clauses, "UNIQUE")
	return b
}

// PrimaryKey appends a PRIMARY KEY constraint token.
func (b *Builder) PrimaryKey() *Builder {
	b.desc.Clauses = append(b.desc.Clauses, "PRIMARY KEY")
	return b
}

// Hidden suppresses the property from default column lists. Hidden
// properties are still selectable by name.
func (b *Builder) Hidden() *Builder {
	b.desc.Hidden = true
	return b
}

// Aggregate marks the property as a group-level aggregate. Aggregate
// properties are excluded from RETURNING clauses.
func (b *Builder) Aggregate() *Builder {
	b.desc.Aggregate = true
	return b
}

// Virtual detaches the property from storage. Virtual properties are
// skipped by INSERT and UPDATE.
func (b *Builder) Virtual() *Builder {
	b.desc.Virtual = true
	return b
}

// RawWhere installs a verbatim WHERE template for this property. The
// template must contain exactly one substitution slot (?): filter values
// for the property bind to it instead of the usual operator dispatch.
func (b *Builder) RawWhere(tmpl string) *Builder {
	b.desc.RawWhere = tmpl
	return b
}

// DefaultFunc sets a function generating the default value on insert.
func (b *Builder) DefaultFunc(fn func() any) *Builder {
	b.desc.Default = fn
	return b
}

func newBuilder(name string, clauses ...string) *Builder {
	return &Builder{desc: &Descriptor{
		Name:    name,
		Column:  inflect.Underscore(name),
		Clauses: clauses,
	}}
}

// Text declares an unbounded text property.
func Text(name string) *Builder { return newBuilder(name, "text") }

// String declares a bounded varchar property.
func String(name string, size int) *Builder {
	return newBuilder(name, fmt.Sprintf("varchar(%d)", size))
}

// Int declares a 32-bit integer property.
func Int(name string) *Builder { return newBuilder(name, "integer") }

// Int64 declares a 64-bit integer property.
func Int64(name string) *Builder { return newBuilder(name, "bigint") }

// Serial declares an auto-incrementing integer primary key.
func Serial(name string) *Builder {
	return newBuilder(name, "serial", "PRIMARY KEY")
}

// BigSerial declares an auto-incrementing 64-bit primary key.
func BigSerial(name string) *Builder {
	return newBuilder(name, "bigserial", "PRIMARY KEY")
}

// Decimal declares a numeric property. It accepts zero arguments
// (unconstrained), one (precision) or two (precision and scale).
func Decimal(name string, args ...int) *Builder {
	switch len(args) {
	case 0:
		return newBuilder(name, "numeric")
	case 1:
		return newBuilder(name, fmt.Sprintf("numeric(%d)", args[0]))
	default:
		return newBuilder(name, fmt.Sprintf("numeric(%d,%d)", args[0], args[1]))
	}
}

// Float declares a double-precision property.
func Float(name string) *Builder { return newBuilder(name, "double precision") }

// Bool declares a boolean property.
func Bool(name string) *Builder { return newBuilder(name, "boolean") }

// Date declares a calendar-date property.
func Date(name string) *Builder { return newBuilder(name, "date") }

// Timestamp declares a date-and-time property.
func Timestamp(name string) *Builder { return newBuilder(name, "timestamp") }

// TimeOfDay declares a time-of-day property.
func TimeOfDay(name string) *Builder { return newBuilder(name, "time") }

// Interval declares a duration property.
func Interval(name string) *Builder { return newBuilder(name, "interval") }

// JSON declares a jsonb document property.
func JSON(name string) *Builder { return newBuilder(name, "jsonb") }

// Bytes declares a binary property.
func Bytes(name string) *Builder { return newBuilder(name, "bytea") }

// UUID declares a UUID primary key with a generated default.
func UUID(name string) *Builder {
	b := newBuilder(name, "uuid", "PRIMARY KEY")
	b.desc.Default = func() any { return uuid.New() }
	return b
}

// References declares a foreign-key column referencing the given model's
// primary key. The column type and REFERENCES clause are resolved by the
// registry once the target model is known.
func References(name, model string) *Builder {
	b := newBuilder(name, "integer")
	b.desc.Ref = model
	return b
}

// FullText declares a tsvector column used as the full-text search target.
func FullText(name string) *Builder {
	b := newBuilder(name, "tsvector")
	b.desc.Hidden = true
	b.desc.FullText = true
	return b
}

// Count declares a virtual property holding the number of rows reachable
// through the named association. It renders as a correlated COUNT(*)
// subquery and owns no storage column.
func Count(name, association string) *Builder {
	b := newBuilder(name, "")
	b.desc.Clauses = nil
	b.desc.Virtual = true
	b.desc.CountOf = association
	return b
}

// Computed declares a virtual property rendered from the given expression.
// The expression is wrapped in parentheses and aliased to the property's
// column name when selected.
func Computed(name string, parts ...Expr) *Builder {
	b := newBuilder(name, "")
	b.desc.Clauses = nil
	b.desc.Virtual = true
	b.desc.Expr = Concat(parts...)
	return b
}
