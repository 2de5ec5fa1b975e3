package table

import (
	"strings"

	"github.com/syssam/modelq"
	"github.com/syssam/modelq/dialect/sql"
	"github.com/syssam/modelq/schema/edge"
)

// joinSpec is one resolved association join: the dotted path that reached
// it, the alias of the joined table, and the alias of its parent step.
type joinSpec struct {
	path        string
	alias       string
	parentAlias string
	assoc       *modelq.Association
}

// chainAlias derives the alias for the table reached by the given
// association chain: the target's table name plus every association name
// in traversal order, joined by underscore. The derivation is injective
// per path, so repeated association names at different depths stay
// distinct.
func chainAlias(a *modelq.Association, chain []string) string {
	return a.Target().TableName() + "_" + strings.Join(chain, "_")
}

// throughAlias derives the alias for the through table of a many-to-many
// step, using the same chain rule against the through table's name.
func throughAlias(a *modelq.Association, chain []string) string {
	return a.Through().TableName() + "_" + strings.Join(chain, "_")
}

// fetchGraph resolves the associations to join for a SELECT: those
// explicitly requested through opts.Fetch plus auto-fetch associations
// not excluded by the select whitelist, recursively up to the depth
// bound. The result is in deterministic traversal order.
func (t *Table) fetchGraph(opts *SelectOptions) ([]*joinSpec, error) {
	depth := opts.Depth
	if depth <= 0 {
		depth = t.depth
	}
	for _, path := range opts.Fetch {
		if err := t.checkFetchPath(path); err != nil {
			return nil, err
		}
	}
	var specs []*joinSpec
	t.collectJoins(t.model, t.model.TableName(), nil, depth, opts, &specs)
	return specs, nil
}

// checkFetchPath validates an explicit fetch path segment by segment.
func (t *Table) checkFetchPath(path string) error {
	m := t.model
	for _, name := range strings.Split(path, ".") {
		a, ok := m.Association(name)
		if !ok {
			return modelq.NewUnknownAssociationError(m.TableName(), name)
		}
		m = a.Target()
	}
	return nil
}

func (t *Table) collectJoins(m *modelq.Model, parentAlias string, chain []string,
	depth int, opts *SelectOptions, specs *[]*joinSpec) {
	if depth <= 0 {
		return
	}
	for _, a := range m.Associations() {
		names := append(append([]string{}, chain...), a.Name())
		path := strings.Join(names, ".")
		// A child joins when explicitly requested (which forces its full
		// chain in) or when flagged auto-fetch and not excluded by the
		// select whitelist.
		explicit := fetchRequested(opts.Fetch, path)
		auto := a.AutoFetch() && !excludedBySelect(opts.Select, path)
		if !explicit && !auto {
			continue
		}
		spec := &joinSpec{
			path:        path,
			alias:       chainAlias(a, names),
			parentAlias: parentAlias,
			assoc:       a,
		}
		*specs = append(*specs, spec)
		t.collectJoins(a.Target(), spec.alias, names, depth-1, opts, specs)
	}
}

// fetchRequested reports whether the path itself or a descendant of it
// appears in the explicit fetch list.
func fetchRequested(fetch []string, path string) bool {
	for _, f := range fetch {
		if f == path || strings.HasPrefix(f, path+".") {
			return true
		}
	}
	return false
}

// excludedBySelect reports whether a select whitelist is present and
// names nothing under the given association path.
func excludedBySelect(selected []string, path string) bool {
	if len(selected) == 0 {
		return false
	}
	for _, s := range selected {
		if s == "*" || s == path || strings.HasPrefix(s, path+".") {
			return false
		}
	}
	return true
}

// applyJoin appends the join clauses for one resolved association.
// Required associations join inner, optional ones left-outer; a
// many-to-many association joins its through table first.
func (t *Table) applyJoin(s *sql.Selector, j *joinSpec) {
	a := j.assoc
	target := t.sqlTable(a.Target().TableName(), j.alias)
	switch a.Rel() {
	case edge.BelongsToRel:
		t.join(s, a.Required(), target).
			On(j.parentAlias+"."+a.ForeignKeyColumn(), j.alias+".id")
	case edge.HasOneRel, edge.HasManyRel:
		t.join(s, a.Required(), target).
			On(j.alias+"."+a.ForeignKeyColumn(), j.parentAlias+".id")
	case edge.ManyToManyRel:
		names := strings.Split(j.path, ".")
		thr := throughAlias(a, names)
		t.join(s, a.Required(), t.sqlTable(a.Through().TableName(), thr)).
			On(thr+"."+a.ThroughFrom().ForeignKeyColumn(), j.parentAlias+".id")
		t.join(s, a.Required(), target).
			On(j.alias+".id", thr+"."+a.ThroughTo().ForeignKeyColumn())
	}
}

func (t *Table) join(s *sql.Selector, required bool, tbl *sql.SelectTable) *sql.Selector {
	if required {
		return s.Join(tbl)
	}
	return s.LeftJoin(tbl)
}

// selectColumns builds the full column list: the base model's visible
// columns first, then each joined association's columns aliased by path.
func (t *Table) selectColumns(base string, joins []*joinSpec, selected []string) ([]string, error) {
	narrow, err := t.ownNarrowing(selected)
	if err != nil {
		return nil, err
	}
	var columns []string
	for _, p := range t.model.Properties() {
		name := p.Name()
		explicit := narrow != nil && narrow[name]
		if narrow != nil && !explicit && name != "id" {
			continue
		}
		if (p.Hidden() || p.Aggregate()) && !explicit {
			continue
		}
		switch {
		case p.Computed():
			columns = append(columns, t.computedColumn(p, base, name))
		case p.Storable():
			columns = append(columns, base+"."+p.Column())
		}
	}
	for _, j := range joins {
		columns = append(columns, t.assocColumns(j, selected)...)
	}
	return columns, nil
}

// ownNarrowing returns the set of base-model property names an explicit
// select list allows, or nil when the list does not narrow the base
// columns. Unknown names fail.
func (t *Table) ownNarrowing(selected []string) (map[string]bool, error) {
	if len(selected) == 0 {
		return nil, nil
	}
	narrow := make(map[string]bool)
	wildcard := false
	for _, s := range selected {
		if s == "*" {
			wildcard = true
			continue
		}
		if strings.Contains(s, ".") {
			continue
		}
		if _, ok := t.model.Property(s); !ok {
			return nil, modelq.NewUnknownPropertyError(t.model.TableName(), s)
		}
		narrow[s] = true
	}
	if wildcard {
		return nil, nil
	}
	if len(narrow) == 0 {
		// Select list names only association paths; base columns keep
		// their defaults.
		return nil, nil
	}
	return narrow, nil
}

// assocColumns selects the columns of one joined association: id always,
// all visible properties unless the select list narrows the path, else
// exactly the matched names. Every column is aliased by its path so
// repeated association names at different depths stay unique.
func (t *Table) assocColumns(j *joinSpec, selected []string) []string {
	target := j.assoc.Target()
	pathPrefix := j.path + "."
	all := true
	match := map[string]bool{}
	if len(selected) > 0 {
		all = false
		for _, s := range selected {
			switch {
			case s == "*", s == pathPrefix+"*":
				all = true
			case strings.HasPrefix(s, pathPrefix):
				rest := strings.TrimPrefix(s, pathPrefix)
				if !strings.Contains(rest, ".") {
					match[rest] = true
				}
			}
		}
	}
	var columns []string
	for _, p := range target.Properties() {
		name := p.Name()
		explicit := match[name]
		if !all && !explicit && name != "id" {
			continue
		}
		if (p.Hidden() || p.Aggregate()) && !explicit {
			continue
		}
		aliased := strings.ReplaceAll(j.path, ".", t.sep) + t.sep + name
		switch {
		case p.Computed():
			columns = append(columns, t.computedColumn(p, j.alias, aliased))
		case p.Storable():
			columns = append(columns, qcol(j.alias, p.Column())+` AS "`+aliased+`"`)
		}
	}
	return columns
}

// resolvePath resolves a plain or dotted property reference for sorting:
// plain names resolve on the base model, dotted paths only against an
// association that is part of the join graph.
func (t *Table) resolvePath(path, base string, joined map[string]*joinSpec) (*modelq.Property, string, error) {
	if !strings.Contains(path, ".") {
		p, ok := t.model.Property(path)
		if !ok {
			return nil, "", modelq.NewUnknownPropertyError(t.model.TableName(), path)
		}
		return p, base, nil
	}
	idx := strings.LastIndex(path, ".")
	prefix, name := path[:idx], path[idx+1:]
	j, ok := joined[prefix]
	if !ok {
		return nil, "", modelq.NewUnknownAssociationError(t.model.TableName(), prefix)
	}
	p, ok := j.assoc.Target().Property(name)
	if !ok {
		return nil, "", modelq.NewUnknownPropertyError(j.assoc.Target().TableName(), name)
	}
	return p, j.alias, nil
}
