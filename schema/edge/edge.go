// Package edge provides fluent builders for declaring model associations.
//
// An association is a property of its owning model that resolves to a join
// topology instead of a storage column:
//
//	edge.BelongsTo("user", "User")
//	edge.HasMany("posts", "Post").AutoFetch()
//	edge.ManyToMany("tags", "Tag").Through("PostTag", "post", "tag")
//
// Relation kinds are fixed at declaration time. Target and through models
// are referenced by name and resolved by the registry in a second pass,
// after all models are declared.
package edge

// Rel is the relation kind of an association.
type Rel int

// Relation kinds.
const (
	BelongsToRel Rel = iota
	HasOneRel
	HasManyRel
	ManyToManyRel
)

// String returns the declared name of the relation kind.
func (r Rel) String() string {
	switch r {
	case BelongsToRel:
		return "belongsTo"
	case HasOneRel:
		return "hasOne"
	case HasManyRel:
		return "hasMany"
	case ManyToManyRel:
		return "manyToMany"
	default:
		return "unknown"
	}
}

// A Descriptor holds the declared metadata of a single association.
type Descriptor struct {
	Name        string // association name as declared on the model
	Target      string // target model name, resolved at link time
	Rel         Rel
	Through     string // through model name for many-to-many
	ThroughFrom string // through-model association pointing back at the owner
	ThroughTo   string // through-model association pointing at the target
	Required    bool   // inner join instead of left outer
	AutoFetch   bool   // eagerly joined on select
	ForeignKey  string // overrides the conventional foreign-key column
}

// Edge is implemented by all association builders.
type Edge interface {
	Descriptor() *Descriptor
}

// Builder is the base association builder returned by the relation
// constructors.
type Builder struct {
	desc *Descriptor
}

// Descriptor implements Edge.
func (b *Builder) Descriptor() *Descriptor { return b.desc }

// Required marks the association as mandatory: traversing it emits an
// inner join instead of a left outer join.
func (b *Builder) Required() *Builder {
	b.desc.Required = true
	return b
}

// AutoFetch marks the association for eager joining on select, recursing
// into auto-fetch children up to the depth bound.
func (b *Builder) AutoFetch() *Builder {
	b.desc.AutoFetch = true
	return b
}

// ForeignKey overrides the conventional foreign-key column. For belongsTo
// the column lives on the owner; for hasOne/hasMany it lives on the target.
func (b *Builder) ForeignKey(column string) *Builder {
	b.desc.ForeignKey = column
	return b
}

// Through names the join model mediating a many-to-many association, and
// the two associations on it pointing back at the owner and at the target.
func (b *Builder) Through(model, from, to string) *Builder {
	b.desc.Through = model
	b.desc.ThroughFrom = from
	b.desc.ThroughTo = to
	return b
}

func newBuilder(name, target string, rel Rel) *Builder {
	return &Builder{desc: &Descriptor{Name: name, Target: target, Rel: rel}}
}

// BelongsTo declares that the owner holds a foreign key referencing the
// target model.
func BelongsTo(name, target string) *Builder {
	return newBuilder(name, target, BelongsToRel)
}

// HasOne declares the semantic inverse of a belongsTo on the target: the
// target holds the foreign key, and at most one row matches.
func HasOne(name, target string) *Builder {
	return newBuilder(name, target, HasOneRel)
}

// HasMany declares that the target holds a foreign key referencing the
// owner, with any number of matching rows.
func HasMany(name, target string) *Builder {
	return newBuilder(name, target, HasManyRel)
}

// ManyToMany declares a relation mediated by a through model; the through
// model and its two sides are named with Through.
func ManyToMany(name, target string) *Builder {
	return newBuilder(name, target, ManyToManyRel)
}
