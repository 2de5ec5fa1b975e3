// Package modelq holds the model graph at the core of the query engine:
// models, their properties and their associations, assembled by a Registry
// in two phases (declare, then link) and treated as read-only afterwards.
//
// Statement construction against the graph lives in the table package;
// property and association declaration lives in schema/field and
// schema/edge.
package modelq

import (
	"fmt"

	"github.com/go-openapi/inflect"

	"github.com/syssam/modelq/schema/edge"
	"github.com/syssam/modelq/schema/field"
)

// Definition is the explicit schema description of a single model: its
// name plus the ordered property and association declarations. Definitions
// are consumed once by Registry.Register.
type Definition struct {
	Name   string
	Fields []field.Field
	Edges  []edge.Edge
}

// Model is a named collection of properties and associations. Models are
// created by the registry and immutable after Link.
type Model struct {
	name         string
	tableName    string
	props        []*Property
	propsByName  map[string]*Property
	assocs       []*Association
	assocsByName map[string]*Association
	registry     *Registry
}

// Name returns the declared model name.
func (m *Model) Name() string { return m.name }

// TableName returns the pluralized, underscored SQL identifier of the
// model's table.
func (m *Model) TableName() string { return m.tableName }

// Properties returns the model's properties in declaration order.
// Registry-synthesized foreign-key properties follow the declared ones.
func (m *Model) Properties() []*Property { return m.props }

// Property returns the property with the given name. The second return
// value reports whether it exists; callers must treat a miss as an
// unknown-property failure.
func (m *Model) Property(name string) (*Property, bool) {
	p, ok := m.propsByName[name]
	return p, ok
}

// ID returns the model's id property, or nil if the model has none.
func (m *Model) ID() *Property {
	p, _ := m.propsByName["id"]
	return p
}

// FullTextProperty returns the model's full-text search property, or nil.
func (m *Model) FullTextProperty() *Property {
	for _, p := range m.props {
		if p.desc.FullText {
			return p
		}
	}
	return nil
}

// Associations returns the model's associations in declaration order.
func (m *Model) Associations() []*Association { return m.assocs }

// Association returns the association with the given name. The second
// return value reports whether it exists.
func (m *Model) Association(name string) (*Association, bool) {
	a, ok := m.assocsByName[name]
	return a, ok
}

// Registry returns the registry owning this model.
func (m *Model) Registry() *Registry { return m.registry }

// Property is a scalar or computed field of a model, bound to zero or one
// storage column. Properties are immutable after Link.
type Property struct {
	desc  *field.Descriptor
	model *Model
}

// Name returns the declared property name.
func (p *Property) Name() string { return p.desc.Name }

// Column returns the storage column name.
func (p *Property) Column() string { return p.desc.Column }

// Clauses returns the DDL type tokens of the property.
func (p *Property) Clauses() []string { return p.desc.Clauses }

// Model returns the owning model.
func (p *Property) Model() *Model { return p.model }

// Storable reports whether the property owns a storage column and
// participates in INSERT and UPDATE.
func (p *Property) Storable() bool {
	return !p.desc.Virtual && !p.desc.Aggregate
}

// Computed reports whether the property is rendered as a computed
// expression instead of a column reference.
func (p *Property) Computed() bool {
	return p.desc.CountOf != "" || p.desc.Expr != nil
}

// Hidden reports whether the property is suppressed from default column
// lists.
func (p *Property) Hidden() bool { return p.desc.Hidden }

// Aggregate reports whether the property is a group-level aggregate.
func (p *Property) Aggregate() bool { return p.desc.Aggregate }

// FullText reports whether the property is the full-text search target.
func (p *Property) FullText() bool { return p.desc.FullText }

// CountOf returns the name of the association this property counts, or "".
func (p *Property) CountOf() string { return p.desc.CountOf }

// Expr returns the computed expression tree, or nil.
func (p *Property) Expr() field.Expr { return p.desc.Expr }

// RawWhere returns the verbatim WHERE template of the property, or "".
func (p *Property) RawWhere() string { return p.desc.RawWhere }

// Default returns the insert-default generator of the property, or nil.
func (p *Property) Default() func() any { return p.desc.Default }

// Association is a property subtype representing a relation to another
// model. The relation kind is fixed at declaration time; target and
// through references are resolved by Registry.Link.
type Association struct {
	desc        *edge.Descriptor
	owner       *Model
	target      *Model
	through     *Model
	throughFrom *Association
	throughTo   *Association
}

// Name returns the declared association name.
func (a *Association) Name() string { return a.desc.Name }

// Rel returns the relation kind.
func (a *Association) Rel() edge.Rel { return a.desc.Rel }

// Owner returns the model declaring the association.
func (a *Association) Owner() *Model { return a.owner }

// Target returns the associated model.
func (a *Association) Target() *Model { return a.target }

// Through returns the join model of a many-to-many association, or nil.
func (a *Association) Through() *Model { return a.through }

// ThroughFrom returns the through-model association pointing back at the
// owner, or nil.
func (a *Association) ThroughFrom() *Association { return a.throughFrom }

// ThroughTo returns the through-model association pointing at the target,
// or nil.
func (a *Association) ThroughTo() *Association { return a.throughTo }

// Required reports whether traversal emits an inner join.
func (a *Association) Required() bool { return a.desc.Required }

// AutoFetch reports whether the association is eagerly joined on select.
func (a *Association) AutoFetch() bool { return a.desc.AutoFetch }

// ForeignKeyColumn returns the foreign-key column mediating the relation.
// For belongsTo the column lives on the owner's table; for hasOne and
// hasMany it lives on the target's table. Many-to-many associations have
// no single foreign key; their sides resolve through ThroughFrom and
// ThroughTo.
func (a *Association) ForeignKeyColumn() string {
	if a.desc.ForeignKey != "" {
		return a.desc.ForeignKey
	}
	switch a.desc.Rel {
	case edge.BelongsToRel:
		return inflect.Underscore(a.desc.Name) + "_id"
	case edge.HasOneRel, edge.HasManyRel:
		return inflect.Underscore(a.owner.name) + "_id"
	default:
		return ""
	}
}

func (a *Association) String() string {
	return fmt.Sprintf("%s.%s (%s %s)", a.owner.name, a.desc.Name, a.desc.Rel, a.desc.Target)
}
