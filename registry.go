package modelq

import (
	"fmt"

	"github.com/go-openapi/inflect"

	"github.com/syssam/modelq/schema/edge"
	"github.com/syssam/modelq/schema/field"
)

// Registry owns the model graph. Models are added with Register and
// resolved with Link; association targets may be declared later than
// their referrer, so resolution is deferred until all models are known.
// After Link the graph is read-only and safe for concurrent use.
type Registry struct {
	models  map[string]*Model
	ordered []*Model
	linked  bool
}

// NewRegistry returns an empty, unlinked registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]*Model)}
}

// Register declares one or more models. It fails on duplicate model,
// property or association names, and on any registration after Link.
func (r *Registry) Register(defs ...Definition) error {
	if r.linked {
		return ErrRegistryLinked
	}
	for _, def := range defs {
		if err := r.register(def); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("modelq: model with empty name")
	}
	if _, ok := r.models[def.Name]; ok {
		return fmt.Errorf("modelq: model %q registered twice", def.Name)
	}
	m := &Model{
		name:         def.Name,
		tableName:    inflect.Tableize(def.Name),
		propsByName:  make(map[string]*Property, len(def.Fields)),
		assocsByName: make(map[string]*Association, len(def.Edges)),
		registry:     r,
	}
	for _, f := range def.Fields {
		desc := f.Descriptor()
		if _, ok := m.propsByName[desc.Name]; ok {
			return fmt.Errorf("modelq: model %q declares property %q twice", def.Name, desc.Name)
		}
		p := &Property{desc: desc, model: m}
		m.props = append(m.props, p)
		m.propsByName[desc.Name] = p
	}
	for _, e := range def.Edges {
		desc := e.Descriptor()
		if _, ok := m.assocsByName[desc.Name]; ok {
			return fmt.Errorf("modelq: model %q declares association %q twice", def.Name, desc.Name)
		}
		a := &Association{desc: desc, owner: m}
		m.assocs = append(m.assocs, a)
		m.assocsByName[desc.Name] = a
	}
	r.models[def.Name] = m
	r.ordered = append(r.ordered, m)
	return nil
}

// Link resolves every association's target, through model and through-side
// references, synthesizes conventional foreign-key columns for belongsTo
// associations that lack one, and validates computed-expression
// references. It must be called exactly once, after all models are
// registered; the graph is immutable afterwards.
func (r *Registry) Link() error {
	if r.linked {
		return ErrRegistryLinked
	}
	for _, m := range r.ordered {
		for _, a := range m.assocs {
			if err := r.linkAssociation(a); err != nil {
				return err
			}
		}
	}
	// Second sweep: foreign keys and referenced clauses need every
	// association's target resolved first.
	for _, m := range r.ordered {
		if err := r.resolveColumns(m); err != nil {
			return err
		}
		if err := r.validateComputed(m); err != nil {
			return err
		}
	}
	r.linked = true
	return nil
}

func (r *Registry) linkAssociation(a *Association) error {
	target, ok := r.models[a.desc.Target]
	if !ok {
		return fmt.Errorf("modelq: association %s: %w", a, NewUnknownModelError(a.desc.Target))
	}
	a.target = target
	if a.desc.Rel != edge.ManyToManyRel {
		return nil
	}
	if a.desc.Through == "" {
		return fmt.Errorf("modelq: association %s: manyToMany requires a through model", a)
	}
	through, ok := r.models[a.desc.Through]
	if !ok {
		return fmt.Errorf("modelq: association %s: %w", a, NewUnknownModelError(a.desc.Through))
	}
	a.through = through
	from, ok := through.assocsByName[a.desc.ThroughFrom]
	if !ok {
		return fmt.Errorf("modelq: association %s: %w", a,
			NewUnknownAssociationError(through.tableName, a.desc.ThroughFrom))
	}
	to, ok := through.assocsByName[a.desc.ThroughTo]
	if !ok {
		return fmt.Errorf("modelq: association %s: %w", a,
			NewUnknownAssociationError(through.tableName, a.desc.ThroughTo))
	}
	if from.desc.Rel != edge.BelongsToRel || to.desc.Rel != edge.BelongsToRel {
		return fmt.Errorf("modelq: association %s: through sides %q and %q must be belongsTo",
			a, a.desc.ThroughFrom, a.desc.ThroughTo)
	}
	a.throughFrom = from
	a.throughTo = to
	return nil
}

// resolveColumns synthesizes foreign-key properties for belongsTo
// associations without a declared column, and completes REFERENCES
// clauses on declared foreign-key properties.
func (r *Registry) resolveColumns(m *Model) error {
	for _, p := range m.props {
		if p.desc.Ref == "" {
			continue
		}
		target, ok := r.models[p.desc.Ref]
		if !ok {
			return fmt.Errorf("modelq: property %s.%s: %w", m.name, p.desc.Name, NewUnknownModelError(p.desc.Ref))
		}
		p.desc.Clauses = append(p.desc.Clauses, fmt.Sprintf("REFERENCES %q(%q)", target.tableName, "id"))
		p.desc.Ref = ""
	}
	for _, a := range m.assocs {
		if a.desc.Rel != edge.BelongsToRel {
			continue
		}
		fk := a.ForeignKeyColumn()
		if _, ok := m.propsByName[fk]; ok {
			continue
		}
		desc := &field.Descriptor{
			Name:    fk,
			Column:  fk,
			Clauses: []string{"integer", fmt.Sprintf("REFERENCES %q(%q)", a.target.tableName, "id")},
		}
		p := &Property{desc: desc, model: m}
		m.props = append(m.props, p)
		m.propsByName[fk] = p
	}
	return nil
}

// validateComputed checks counting targets and expression references so
// rendering cannot fail later.
func (r *Registry) validateComputed(m *Model) error {
	for _, p := range m.props {
		if p.desc.CountOf != "" {
			if _, ok := m.assocsByName[p.desc.CountOf]; !ok {
				return fmt.Errorf("modelq: property %s.%s counts %w", m.name, p.desc.Name,
					NewUnknownAssociationError(m.tableName, p.desc.CountOf))
			}
		}
		if p.desc.Expr != nil {
			if err := r.validateExpr(m, p, p.desc.Expr); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Registry) validateExpr(m *Model, p *Property, e field.Expr) error {
	switch e := e.(type) {
	case field.ColumnExpr:
		ref, ok := m.propsByName[e.Name]
		if !ok {
			return fmt.Errorf("modelq: expression of %s.%s references %w", m.name, p.desc.Name,
				NewUnknownPropertyError(m.tableName, e.Name))
		}
		if !ref.Storable() {
			return fmt.Errorf("modelq: expression of %s.%s references non-storable property %q",
				m.name, p.desc.Name, e.Name)
		}
	case field.CountExpr:
		if _, ok := m.assocsByName[e.Edge]; !ok {
			return fmt.Errorf("modelq: expression of %s.%s counts %w", m.name, p.desc.Name,
				NewUnknownAssociationError(m.tableName, e.Edge))
		}
	case field.ListExpr:
		for _, part := range e {
			if err := r.validateExpr(m, p, part); err != nil {
				return err
			}
		}
	}
	return nil
}

// Linked reports whether Link has completed.
func (r *Registry) Linked() bool { return r.linked }

// Model returns the model with the given name. The second return value
// reports whether it exists.
func (r *Registry) Model(name string) (*Model, bool) {
	m, ok := r.models[name]
	return m, ok
}

// MustModel returns the model with the given name and panics if it does
// not exist. Intended for setup code running right after Link.
func (r *Registry) MustModel(name string) *Model {
	m, ok := r.models[name]
	if !ok {
		panic(NewUnknownModelError(name))
	}
	return m
}

// Models returns all registered models in registration order.
func (r *Registry) Models() []*Model { return r.ordered }
